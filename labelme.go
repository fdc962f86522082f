package ppocrconv

// LabelMe specific functionality.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LabelMeShape is a single labeled shape within a LabelMe document.
type LabelMeShape struct {
	Label     string      `json:"label"`
	Points    [][]float64 `json:"points"`
	ShapeType string      `json:"shape_type,omitempty"`
}

// LabelMeFile defines the LabelMe annotation structure for a single image.
type LabelMeFile struct {
	ImagePath   string         `json:"imagePath"`
	Shapes      []LabelMeShape `json:"shapes"`
	ImageWidth  int            `json:"imageWidth,omitempty"`
	ImageHeight int            `json:"imageHeight,omitempty"`
}

// LabelMeImageFunc derives the image reference for the LabelMe document doc read from labelPath.
type LabelMeImageFunc func(labelPath string, doc LabelMeFile) string

// LabelMeImageInDir references the image by the base name of the annotation file, with the
// extension ext, inside prefix. This is the layout of PaddleOCR detection datasets, where
// image paths are relative to the dataset root, e.g. "images/img_1.jpg".
func LabelMeImageInDir(prefix, ext string) LabelMeImageFunc {
	return func(labelPath string, _ LabelMeFile) string {
		name := (AnnotatedFile{LabelPath: labelPath}).BaseName() + ext
		if prefix == "" {
			return name
		}
		return toSlash(filepath.Join(prefix, name))
	}
}

// LabelMeImageFromDocument resolves the document's imagePath relative to the directory of the
// annotation file.
func LabelMeImageFromDocument(labelPath string, doc LabelMeFile) string {
	return filepath.Join(filepath.Dir(labelPath), doc.ImagePath)
}

// ReadLabelMe reads and parses the LabelMe document at path.
func ReadLabelMe(path string) (LabelMeFile, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return LabelMeFile{}, &AnnotationError{Path: path, Err: err}
	}

	var doc LabelMeFile
	if err := json.Unmarshal(enc, &doc); err != nil {
		return LabelMeFile{}, &AnnotationError{
			Path: path,
			Err:  fmt.Errorf("%w: %v", ErrMalformedAnnotation, err),
		}
	}

	// Point counts are not validated, but every point needs two coordinates.
	for i, s := range doc.Shapes {
		for j, pt := range s.Points {
			if len(pt) < 2 {
				return LabelMeFile{}, &AnnotationError{
					Path: path,
					Err:  fmt.Errorf("%w: shape %d point %d has %d coordinates", ErrMalformedAnnotation, i, j, len(pt)),
				}
			}
		}
	}

	return doc, nil
}

// toAnnotatedFile converts the document to the intermediate representation. Points keep their
// order.
func (doc LabelMeFile) toAnnotatedFile(labelPath, imagePath string) AnnotatedFile {
	f := AnnotatedFile{
		LabelPath: labelPath,
		FilePath:  imagePath,
		Shapes:    make([]Shape, len(doc.Shapes)),
	}
	for i, s := range doc.Shapes {
		points := make(Polygon, len(s.Points))
		for j, pt := range s.Points {
			points[j] = Point{X: pt[0], Y: pt[1]}
		}
		f.Shapes[i] = Shape{Label: s.Label, Points: points}
	}
	return f
}

// walkLabelMe reads each LabelMe document in labelDir in discovery order and passes it to visit.
// Documents that cannot be read are recorded in the report and skipped. An error returned by
// visit ends the walk.
func walkLabelMe(labelDir string, image LabelMeImageFunc, run *run, visit func(AnnotatedFile) error) error {
	labelFiles, err := filesByExtInDir(labelDir, ".json")
	if err != nil {
		return err
	}
	run.discovered(labelDir, len(labelFiles))

	for _, path := range labelFiles {
		doc, err := ReadLabelMe(path)
		if err != nil {
			run.skipFile(path, err)
			continue
		}

		f := doc.toAnnotatedFile(path, image(path, doc))
		run.rewriteLabels(&f)
		if err := visit(f); err != nil {
			return err
		}
	}

	return nil
}

// FromLabelMe reads all LabelMe documents in labelDir. Image references are derived with image.
func FromLabelMe(labelDir string, image LabelMeImageFunc, opts Options) ([]AnnotatedFile, Report, error) {
	run := newRun(opts)
	var data []AnnotatedFile
	err := walkLabelMe(labelDir, image, run, func(f AnnotatedFile) error {
		data = append(data, f)
		run.converted(f.LabelPath)
		return nil
	})
	return data, run.report, err
}
