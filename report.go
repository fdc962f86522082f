package ppocrconv

import (
	"encoding"
	"log/slog"
)

// Options are shared by all readers and conversion pipelines.
type Options struct {
	Labels  LabelOptions // Rewrites applied to every transcription.
	Logger  *slog.Logger // Defaults to slog.Default().
	Metrics *Metrics     // Optional.
}

// SkippedFile is an annotation file that produced no output.
type SkippedFile struct {
	Path string
	Err  error
}

// Report summarizes one conversion run.
type Report struct {
	Discovered      int           // Annotation files found.
	Converted       int           // Annotation files that produced output.
	Lines           int           // Records written.
	SkippedShapes   int           // Shapes dropped because of invalid lines or empty crops.
	UnlabeledShapes int           // Shapes dropped because their label is empty.
	Skipped         []SkippedFile // Annotation files that were skipped, in discovery order.
}

// Failed reports whether any annotation file had to be skipped.
func (r Report) Failed() bool {
	return len(r.Skipped) > 0
}

// Add merges the counts and skipped files of other into r.
func (r *Report) Add(other Report) {
	r.Discovered += other.Discovered
	r.Converted += other.Converted
	r.Lines += other.Lines
	r.SkippedShapes += other.SkippedShapes
	r.UnlabeledShapes += other.UnlabeledShapes
	r.Skipped = append(r.Skipped, other.Skipped...)
}

// run carries the state of a single conversion invocation.
type run struct {
	logger  *slog.Logger
	metrics *Metrics
	labels  LabelOptions
	report  Report
}

func newRun(opts Options) *run {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &run{logger: logger, metrics: opts.Metrics, labels: opts.Labels}
}

func (r *run) discovered(dir string, n int) {
	r.report.Discovered += n
	r.logger.Info("Parsing labels", "dir", dir, "files", n)
}

func (r *run) converted(path string) {
	r.report.Converted++
	r.metrics.file(statusConverted)
	r.logger.Debug("Converted", "file", path)
}

func (r *run) skipFile(path string, err error) {
	r.report.Skipped = append(r.report.Skipped, SkippedFile{Path: path, Err: err})
	r.metrics.file(statusSkipped)
	r.logger.Warn("Skipping annotation file", "file", path, "error", err)
}

func (r *run) skipShape(path string, err error) {
	r.report.SkippedShapes++
	r.metrics.shape(outcomeSkipped, 1)
	r.logger.Warn("Skipping shape", "file", path, "error", err)
}

func (r *run) unlabeled(path string, shapeIndex int) {
	r.report.UnlabeledShapes++
	r.metrics.shape(outcomeUnlabeled, 1)
	r.logger.Debug("Skipping shape without label", "file", path, "shape", shapeIndex)
}

func (r *run) rewriteLabels(f *AnnotatedFile) {
	if n := r.labels.Rewrite(f); n > 0 {
		r.logger.Debug("Rewrote labels", "file", f.LabelPath, "count", n)
	}
}

// write writes the records to path and completes the report.
func (r *run) write(path, format string, records []encoding.TextMarshaler) (Report, error) {
	n, err := WriteLines(path, records, r.logger)
	r.report.Lines = n
	r.metrics.records(format, n)
	if err != nil {
		return r.report, err
	}

	r.logger.Info("Conversion complete", "output", path, "format", format,
		"lines", n, "converted", r.report.Converted, "skipped", len(r.report.Skipped))
	return r.report, nil
}
