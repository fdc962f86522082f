package ppocrconv

// Conversion pipelines from LabelMe and YOLO annotations to PaddleOCR label files.

import (
	"encoding"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults for unset configuration fields.
const (
	DefaultImageExt    = ".jpg"
	DefaultCropExt     = "jpg"
	DefaultJPEGQuality = 95
)

// DetectionConfig configures a conversion to the PaddleOCR detection format.
type DetectionConfig struct {
	LabelDir string // The source annotation folder.
	Output   string // The output label file.

	// LabelMe only. Emitted image paths are ImagePrefix/<base name><ImageExt>.
	ImagePrefix string
	ImageExt    string // Defaults to DefaultImageExt.

	// YOLO only.
	ImageDir    string        // The paired image folder.
	ImageWidth  int           // Zero reads the width from each image.
	ImageHeight int           // Zero reads the height from each image.
	ClassMap    ClassLabelMap // Optional. Without a map the class id is the transcription.

	Options
}

// RecognitionConfig configures a conversion to the PaddleOCR recognition format.
type RecognitionConfig struct {
	LabelDir    string // The source annotation folder.
	Output      string // The output label file.
	CropDir     string // The folder receiving the cropped images.
	CropExt     string // Encoding of the crops, by extension. Defaults to DefaultCropExt.
	JPEGQuality int    // Quality of JPEG and WebP crops. Defaults to DefaultJPEGQuality.

	// YOLO only.
	ImageDir    string        // The paired image folder.
	ImageWidth  int           // Zero reads the width from each image.
	ImageHeight int           // Zero reads the height from each image.
	ClassMap    ClassLabelMap // Labels by class id. Ids without an entry become UnknownLabel.

	Options
}

// LabelMeToDetection writes one detection line per LabelMe document in cfg.LabelDir.
func LabelMeToDetection(cfg DetectionConfig) (Report, error) {
	run := newRun(cfg.Options)
	image := LabelMeImageInDir(cfg.ImagePrefix, withDot(cfg.ImageExt, DefaultImageExt))

	var records []encoding.TextMarshaler
	err := walkLabelMe(cfg.LabelDir, image, run, func(f AnnotatedFile) error {
		records = append(records, ToDetectionLine(f))
		run.metrics.shape(outcomeEmitted, len(f.Shapes))
		run.converted(f.LabelPath)
		return nil
	})
	if err != nil {
		return run.report, err
	}

	return run.write(cfg.Output, formatDetection, records)
}

// YOLOToDetection writes one detection line per YOLO label file in cfg.LabelDir that has a
// paired image in cfg.ImageDir.
func YOLOToDetection(cfg DetectionConfig) (Report, error) {
	run := newRun(cfg.Options)
	src := YOLOSource{
		LabelDir:    cfg.LabelDir,
		ImageDir:    cfg.ImageDir,
		ImageWidth:  cfg.ImageWidth,
		ImageHeight: cfg.ImageHeight,
		ClassMap:    cfg.ClassMap,
	}

	var records []encoding.TextMarshaler
	err := walkYOLO(src, run, func(f AnnotatedFile) error {
		records = append(records, ToDetectionLine(f))
		run.metrics.shape(outcomeEmitted, len(f.Shapes))
		run.converted(f.LabelPath)
		return nil
	})
	if err != nil {
		return run.report, err
	}

	return run.write(cfg.Output, formatDetection, records)
}

// LabelMeToRecognition crops every labeled shape of the LabelMe documents in cfg.LabelDir from
// the image named by the document and writes one recognition line per crop.
func LabelMeToRecognition(cfg RecognitionConfig) (Report, error) {
	run := newRun(cfg.Options)
	if err := cfg.prepare(); err != nil {
		return run.report, err
	}

	var records []encoding.TextMarshaler
	err := walkLabelMe(cfg.LabelDir, LabelMeImageFromDocument, run, func(f AnnotatedFile) error {
		lines, err := cfg.cropShapes(f, run)
		records = append(records, lines...)
		return err
	})
	if err != nil {
		return run.report, err
	}

	return run.write(cfg.Output, formatRecognition, records)
}

// YOLOToRecognition crops every labeled shape of the YOLO label files in cfg.LabelDir from the
// paired image in cfg.ImageDir and writes one recognition line per crop.
func YOLOToRecognition(cfg RecognitionConfig) (Report, error) {
	run := newRun(cfg.Options)
	if err := cfg.prepare(); err != nil {
		return run.report, err
	}
	src := YOLOSource{
		LabelDir:    cfg.LabelDir,
		ImageDir:    cfg.ImageDir,
		ImageWidth:  cfg.ImageWidth,
		ImageHeight: cfg.ImageHeight,
		ClassMap:    cfg.ClassMap,
	}
	if src.ClassMap == nil {
		src.ClassMap = ClassLabelMap{}
	}

	var records []encoding.TextMarshaler
	err := walkYOLO(src, run, func(f AnnotatedFile) error {
		lines, err := cfg.cropShapes(f, run)
		records = append(records, lines...)
		return err
	})
	if err != nil {
		return run.report, err
	}

	return run.write(cfg.Output, formatRecognition, records)
}

// prepare applies defaults and creates the crop folder.
func (cfg *RecognitionConfig) prepare() error {
	cfg.CropExt = strings.TrimPrefix(cfg.CropExt, ".")
	if cfg.CropExt == "" {
		cfg.CropExt = DefaultCropExt
	}
	if !supportedCropExt(cfg.CropExt) {
		return fmt.Errorf("unsupported crop encoding %q", cfg.CropExt)
	}
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}

	if err := os.MkdirAll(cfg.CropDir, 0o755); err != nil {
		return fmt.Errorf("%w: cannot create crop directory %q: %v", ErrWrite, cfg.CropDir, err)
	}
	return nil
}

// cropShapes crops and saves the labeled shapes of f and returns their recognition lines. A
// missing or undecodable image skips the file. Failing to save a crop ends the run.
func (cfg RecognitionConfig) cropShapes(f AnnotatedFile, run *run) ([]encoding.TextMarshaler, error) {
	img, err := loadImage(f.FilePath)
	if err != nil {
		run.skipFile(f.LabelPath, err)
		return nil, nil
	}

	base := f.BaseName()
	records := make([]encoding.TextMarshaler, 0, len(f.Shapes))
	for i, s := range f.Shapes {
		if s.Label == "" {
			run.unlabeled(f.LabelPath, i)
			continue
		}

		crop, _, err := CropRegion(img, s.Points)
		if err != nil {
			run.skipShape(f.LabelPath, fmt.Errorf("shape %d: %w", i, err))
			continue
		}

		cropPath := filepath.Join(cfg.CropDir, CropName(base, i, cfg.CropExt))
		if err := saveImage(cropPath, crop, cfg.JPEGQuality); err != nil {
			return records, fmt.Errorf("%w: cannot save crop %q: %v", ErrWrite, cropPath, err)
		}
		records = append(records, RecognitionLine{CropPath: toSlash(cropPath), Label: s.Label})
	}

	run.metrics.shape(outcomeEmitted, len(records))
	run.converted(f.LabelPath)
	return records, nil
}

// withDot returns ext with a leading dot, or def if ext is empty.
func withDot(ext, def string) string {
	if ext == "" {
		return def
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}
