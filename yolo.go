package ppocrconv

// YOLO (Roboflow YOLOv8 export) specific functionality.

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// YOLOBox is a single annotation within a YOLO label file. All coordinates are normalized to
// [0, 1] relative to the image size.
type YOLOBox struct {
	ClassID int
	XCenter float64
	YCenter float64
	Width   float64
	Height  float64
}

// yoloImageExts are probed, in order, for the image paired with a label file.
var yoloImageExts = []string{".jpg", ".png"}

// ParseYOLOLine parses the whitespace-separated fields "classId xCenter yCenter width height".
func ParseYOLOLine(line string) (YOLOBox, error) {
	tokens := strings.Fields(line)
	if len(tokens) != 5 {
		return YOLOBox{}, fmt.Errorf("%w: %d fields in %q, expected 5", ErrInvalidShapeLine, len(tokens), line)
	}

	var v [5]float64
	for i, t := range tokens {
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return YOLOBox{}, fmt.Errorf("%w: %v", ErrInvalidShapeLine, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return YOLOBox{}, fmt.Errorf("%w: field %d is %q, expected a finite number", ErrInvalidShapeLine, i+1, t)
		}
		v[i] = f
	}

	// Class ids are converted to int, which is only defined inside its range.
	if v[0] < math.MinInt32 || v[0] > math.MaxInt32 {
		return YOLOBox{}, fmt.Errorf("%w: class id %q out of range", ErrInvalidShapeLine, tokens[0])
	}

	return YOLOBox{ClassID: int(v[0]), XCenter: v[1], YCenter: v[2], Width: v[3], Height: v[4]}, nil
}

// Polygon de-normalizes the box to an image of the given size and returns the corners ordered
// top-left, top-right, bottom-right, bottom-left. Boxes are not clamped to the image.
func (b YOLOBox) Polygon(imageWidth, imageHeight float64) Polygon {
	xCenter := b.XCenter * imageWidth
	yCenter := b.YCenter * imageHeight
	width := b.Width * imageWidth
	height := b.Height * imageHeight

	return boxPolygon(xCenter-width/2, yCenter-height/2, xCenter+width/2, yCenter+height/2)
}

// ReadYOLO parses the YOLO label file at path. Blank lines are ignored. Lines that do not parse
// are returned as lineErrs, all wrapping ErrInvalidShapeLine, and do not produce a box.
func ReadYOLO(path string) (boxes []YOLOBox, lineErrs []error, err error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, nil, &AnnotationError{Path: path, Err: err}
	}

	boxes = make([]YOLOBox, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b, err := ParseYOLOLine(line)
		if err != nil {
			lineErrs = append(lineErrs, &AnnotationError{Path: path, Line: i + 1, Err: err})
			continue
		}
		boxes = append(boxes, b)
	}

	return boxes, lineErrs, nil
}

// FindYOLOImage returns the path of the image named baseNoExt in imageDir, trying the .jpg and
// then the .png extension.
func FindYOLOImage(imageDir, baseNoExt string) (string, error) {
	for _, ext := range yoloImageExts {
		path := filepath.Join(imageDir, baseNoExt+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no %s image for %q in %q",
		ErrMissingImage, strings.Join(yoloImageExts, " or "), baseNoExt, imageDir)
}

// YOLOSource describes a folder of YOLO label files and its paired images.
type YOLOSource struct {
	LabelDir    string        // The label files.
	ImageDir    string        // The paired images.
	ImageWidth  int           // Width for de-normalization. Zero reads it from each image.
	ImageHeight int           // Height for de-normalization. Zero reads it from each image.
	ClassMap    ClassLabelMap // Class labels. Without a map the class id is the transcription.
}

// walkYOLO reads each YOLO label file of src in discovery order, pairs it with its image and
// passes the result to visit. Files without an image or that cannot be read are recorded in the
// report and skipped. An error returned by visit ends the walk.
func walkYOLO(src YOLOSource, run *run, visit func(AnnotatedFile) error) error {
	labelFiles, err := filesByExtInDir(src.LabelDir, ".txt")
	if err != nil {
		return err
	}
	run.discovered(src.LabelDir, len(labelFiles))

	for _, path := range labelFiles {
		_, baseNoExt, _, err := splitPath(path)
		if err != nil {
			run.skipFile(path, err)
			continue
		}

		imagePath, err := FindYOLOImage(src.ImageDir, baseNoExt)
		if err != nil {
			run.skipFile(path, err)
			continue
		}

		width, height := src.ImageWidth, src.ImageHeight
		if width <= 0 || height <= 0 {
			cfg, _, err := decodeImageConfig(imagePath)
			if err != nil {
				run.skipFile(path, fmt.Errorf("cannot read the size of %q: %w", imagePath, err))
				continue
			}
			width, height = cfg.Width, cfg.Height
		}

		boxes, lineErrs, err := ReadYOLO(path)
		if err != nil {
			run.skipFile(path, err)
			continue
		}
		for _, e := range lineErrs {
			run.skipShape(path, e)
		}

		f := AnnotatedFile{
			LabelPath: path,
			FilePath:  toSlash(filepath.Clean(imagePath)),
			Shapes:    make([]Shape, 0, len(boxes)),
		}
		for _, b := range boxes {
			// Huge normalized values can still overflow once multiplied by the image size.
			points := b.Polygon(float64(width), float64(height))
			if !points.finite() {
				run.skipShape(path, fmt.Errorf("%w: class %d box %v is not finite at %dx%d",
					ErrInvalidShapeLine, b.ClassID, b, width, height))
				continue
			}

			label, ok := src.ClassMap.resolve(b.ClassID)
			if !ok {
				run.logger.Warn("Class id has no label", "file", path, "class_id", b.ClassID, "label", label)
			}
			f.Shapes = append(f.Shapes, Shape{Label: label, Points: points})
		}

		run.rewriteLabels(&f)
		if err := visit(f); err != nil {
			return err
		}
	}

	return nil
}

// FromYOLO reads all YOLO label files of src.
func FromYOLO(src YOLOSource, opts Options) ([]AnnotatedFile, Report, error) {
	run := newRun(opts)
	var data []AnnotatedFile
	err := walkYOLO(src, run, func(f AnnotatedFile) error {
		data = append(data, f)
		run.converted(f.LabelPath)
		return nil
	})
	return data, run.report, err
}
