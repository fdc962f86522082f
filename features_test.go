package ppocrconv_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"
	"github.com/sensorable/ppocrconv"
)

// scenario holds the dataset and results of one scenario. Labels and images share one folder.
type scenario struct {
	dataDir  string
	cropDir  string
	output   string
	classMap ppocrconv.ClassLabelMap
	report   ppocrconv.Report
	lines    []string
}

func (s *scenario) options() ppocrconv.Options {
	return ppocrconv.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (s *scenario) aYOLOLabelFileContaining(name string, doc *godog.DocString) error {
	return os.WriteFile(filepath.Join(s.dataDir, name), []byte(doc.Content+"\n"), 0o600)
}

func (s *scenario) anImageOfPixels(name string, width, height int) error {
	f, err := os.Create(filepath.Join(s.dataDir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	img := image.NewGray(image.Rect(0, 0, width, height))
	if strings.HasSuffix(name, ".png") {
		return png.Encode(f, img)
	}
	return jpeg.Encode(f, img, nil)
}

func (s *scenario) aClassMapWithTheLabels(labels string) error {
	s.classMap = strings.Split(labels, ",")
	return nil
}

func (s *scenario) aLabelMeDocumentWithTheShapes(name, imagePath string, table *godog.Table) error {
	doc := ppocrconv.LabelMeFile{ImagePath: imagePath, Shapes: []ppocrconv.LabelMeShape{}}
	for _, row := range table.Rows[1:] {
		shape := ppocrconv.LabelMeShape{Label: row.Cells[0].Value, ShapeType: "polygon"}
		for _, pair := range strings.Fields(row.Cells[1].Value) {
			xy := strings.Split(pair, ",")
			if len(xy) != 2 {
				return fmt.Errorf("invalid point %q", pair)
			}
			x, err := strconv.ParseFloat(xy[0], 64)
			if err != nil {
				return err
			}
			y, err := strconv.ParseFloat(xy[1], 64)
			if err != nil {
				return err
			}
			shape.Points = append(shape.Points, []float64{x, y})
		}
		doc.Shapes = append(doc.Shapes, shape)
	}

	enc, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dataDir, name), enc, 0o600)
}

func (s *scenario) finish(report ppocrconv.Report, err error) error {
	if err != nil {
		return err
	}
	s.report = report

	data, err := os.ReadFile(s.output)
	if err != nil {
		return err
	}
	if text := strings.TrimSuffix(string(data), "\n"); text != "" {
		s.lines = strings.Split(text, "\n")
	}
	return nil
}

func (s *scenario) iConvertTheYOLOLabelsToDetection(width, height int) error {
	return s.finish(ppocrconv.YOLOToDetection(ppocrconv.DetectionConfig{
		LabelDir:    s.dataDir,
		Output:      s.output,
		ImageDir:    s.dataDir,
		ImageWidth:  width,
		ImageHeight: height,
		ClassMap:    s.classMap,
		Options:     s.options(),
	}))
}

func (s *scenario) iCropTheYOLOLabelsToRecognition() error {
	return s.finish(ppocrconv.YOLOToRecognition(ppocrconv.RecognitionConfig{
		LabelDir: s.dataDir,
		Output:   s.output,
		CropDir:  s.cropDir,
		ImageDir: s.dataDir,
		ClassMap: s.classMap,
		Options:  s.options(),
	}))
}

func (s *scenario) iCropTheLabelMeDocumentsToRecognition() error {
	return s.finish(ppocrconv.LabelMeToRecognition(ppocrconv.RecognitionConfig{
		LabelDir: s.dataDir,
		Output:   s.output,
		CropDir:  s.cropDir,
		Options:  s.options(),
	}))
}

func (s *scenario) iConvertTheLabelMeDocumentsToDetection() error {
	return s.finish(ppocrconv.LabelMeToDetection(ppocrconv.DetectionConfig{
		LabelDir:    s.dataDir,
		Output:      s.output,
		ImagePrefix: "images",
		Options:     s.options(),
	}))
}

func (s *scenario) theOutputHasLines(n int) error {
	if len(s.lines) != n {
		return fmt.Errorf("expected %d lines, got %d: %q", n, len(s.lines), s.lines)
	}
	return nil
}

func (s *scenario) line(n int) (string, error) {
	if n < 1 || n > len(s.lines) {
		return "", fmt.Errorf("no line %d in %d lines", n, len(s.lines))
	}
	return s.lines[n-1], nil
}

func (s *scenario) lineHasRegionsWithThePoints(n, regions int, points string) error {
	line, err := s.line(n)
	if err != nil {
		return err
	}
	_, enc, ok := strings.Cut(line, "\t")
	if !ok {
		return fmt.Errorf("line %d has no tab: %q", n, line)
	}

	var anns []struct {
		Transcription string          `json:"transcription"`
		Points        json.RawMessage `json:"points"`
	}
	if err := json.Unmarshal([]byte(enc), &anns); err != nil {
		return err
	}
	if len(anns) != regions {
		return fmt.Errorf("expected %d regions, got %d", regions, len(anns))
	}
	if got := string(anns[0].Points); got != points {
		return fmt.Errorf("expected the points %s, got %s", points, got)
	}
	return nil
}

func (s *scenario) lineIsTheImageWithTheRegions(n int, path string, doc *godog.DocString) error {
	line, err := s.line(n)
	if err != nil {
		return err
	}
	if want := path + "\t" + strings.TrimSpace(doc.Content); line != want {
		return fmt.Errorf("expected %q, got %q", want, line)
	}
	return nil
}

func (s *scenario) lineIsTheCropLabeled(n int, crop, label string) error {
	line, err := s.line(n)
	if err != nil {
		return err
	}
	if want := filepath.ToSlash(filepath.Join(s.cropDir, crop)) + "\t\"" + label + "\""; line != want {
		return fmt.Errorf("expected %q, got %q", want, line)
	}
	if _, err := os.Stat(filepath.Join(s.cropDir, crop)); err != nil {
		return err
	}
	return nil
}

func (s *scenario) noAnnotationFileWasSkipped() error {
	if s.report.Failed() {
		return fmt.Errorf("skipped %d files: %v", len(s.report.Skipped), s.report.Skipped)
	}
	return nil
}

func (s *scenario) theAnnotationFileWasSkipped(name string) error {
	for _, f := range s.report.Skipped {
		if filepath.Base(f.Path) == name {
			if !errors.Is(f.Err, ppocrconv.ErrMissingImage) {
				return fmt.Errorf("%s was skipped for another reason: %v", name, f.Err)
			}
			return nil
		}
	}
	return fmt.Errorf("%s was not skipped", name)
}

func (s *scenario) shapesWereSkipped(n int) error {
	if s.report.SkippedShapes != n {
		return fmt.Errorf("expected %d skipped shapes, got %d", n, s.report.SkippedShapes)
	}
	return nil
}

func (s *scenario) shapesHadNoLabel(n int) error {
	if s.report.UnlabeledShapes != n {
		return fmt.Errorf("expected %d unlabeled shapes, got %d", n, s.report.UnlabeledShapes)
	}
	return nil
}

func initializeScenario(sc *godog.ScenarioContext) {
	s := &scenario{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "ppocrconv-feature-")
		if err != nil {
			return ctx, err
		}
		*s = scenario{
			dataDir: filepath.Join(dir, "data"),
			cropDir: filepath.Join(dir, "out", "crops"),
			output:  filepath.Join(dir, "out", "labels.txt"),
		}
		return ctx, os.MkdirAll(s.dataDir, 0o755)
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		return ctx, os.RemoveAll(filepath.Dir(s.dataDir))
	})

	sc.Step(`^a YOLO label file "([^"]*)" containing:$`, s.aYOLOLabelFileContaining)
	sc.Step(`^an image "([^"]*)" of (\d+)x(\d+) pixels$`, s.anImageOfPixels)
	sc.Step(`^a class map with the labels "([^"]*)"$`, s.aClassMapWithTheLabels)
	sc.Step(`^a LabelMe document "([^"]*)" for the image "([^"]*)" with the shapes:$`, s.aLabelMeDocumentWithTheShapes)

	sc.Step(`^I convert the YOLO labels to the detection format for (\d+)x(\d+) images$`, s.iConvertTheYOLOLabelsToDetection)
	sc.Step(`^I crop the YOLO labels to the recognition format$`, s.iCropTheYOLOLabelsToRecognition)
	sc.Step(`^I crop the LabelMe documents to the recognition format$`, s.iCropTheLabelMeDocumentsToRecognition)
	sc.Step(`^I convert the LabelMe documents to the detection format$`, s.iConvertTheLabelMeDocumentsToDetection)

	sc.Step(`^the output has (\d+) lines?$`, s.theOutputHasLines)
	sc.Step(`^line (\d+) has (\d+) regions? with the points "([^"]*)"$`, s.lineHasRegionsWithThePoints)
	sc.Step(`^line (\d+) is the image "([^"]*)" with the regions:$`, s.lineIsTheImageWithTheRegions)
	sc.Step(`^line (\d+) is the crop "([^"]*)" labeled "([^"]*)"$`, s.lineIsTheCropLabeled)
	sc.Step(`^no annotation file was skipped$`, s.noAnnotationFileWasSkipped)
	sc.Step(`^the annotation file "([^"]*)" was skipped$`, s.theAnnotationFileWasSkipped)
	sc.Step(`^(\d+) shapes? (?:was|were) skipped$`, s.shapesWereSkipped)
	sc.Step(`^(\d+) shapes? had no label$`, s.shapesHadNoLabel)
}

// TestFeatures runs the Godog suite in features/.
func TestFeatures(t *testing.T) {
	format := os.Getenv("GODOG_FORMAT")
	if format == "" {
		format = "pretty"
	}

	suite := godog.TestSuite{
		Name:                "ppocrconv",
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   format,
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
