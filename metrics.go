package ppocrconv

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values of the conversion metrics.
const (
	statusConverted = "converted"
	statusSkipped   = "skipped"

	outcomeEmitted   = "emitted"
	outcomeSkipped   = "skipped"
	outcomeUnlabeled = "unlabeled"

	formatDetection   = "detection"
	formatRecognition = "recognition"
	formatTFRecord    = "tfrecord"
)

// Metrics counts conversion progress on a private registry. A nil *Metrics records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	files  *prometheus.CounterVec
	shapes *prometheus.CounterVec
	lines  *prometheus.CounterVec
}

// NewMetrics creates the conversion counters and registers them on a new registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ppocrconv_annotation_files_total",
				Help: "Annotation files processed, by status",
			},
			[]string{"status"}, // converted, skipped
		),
		shapes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ppocrconv_shapes_total",
				Help: "Annotated shapes processed, by outcome",
			},
			[]string{"outcome"}, // emitted, skipped, unlabeled
		),
		lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ppocrconv_records_written_total",
				Help: "Output records written, by format",
			},
			[]string{"format"}, // detection, recognition, tfrecord
		),
	}
	m.Registry.MustRegister(m.files, m.shapes, m.lines)
	return m
}

// WriteToTextfile writes all metrics in the Prometheus text format to path, for collection by
// the node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}

func (m *Metrics) file(status string) {
	if m != nil {
		m.files.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) shape(outcome string, n int) {
	if m != nil && n > 0 {
		m.shapes.WithLabelValues(outcome).Add(float64(n))
	}
}

func (m *Metrics) records(format string, n int) {
	if m != nil && n > 0 {
		m.lines.WithLabelValues(format).Add(float64(n))
	}
}
