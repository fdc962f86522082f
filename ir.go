package ppocrconv

// The intermediate annotation representation shared by all readers and writers.

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"
)

// Point is an absolute pixel coordinate measured from the top-left corner of the image.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as an [x, y] pair.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// Polygon is the canonical geometry of a region: an ordered list of absolute pixel coordinates.
// Polygons derived from boxes always have four points ordered top-left, top-right,
// bottom-right, bottom-left.
type Polygon []Point

// Extent returns the axis-aligned bounds of p. ok is false for an empty polygon.
func (p Polygon) Extent() (minX, minY, maxX, maxY float64, ok bool) {
	if len(p) == 0 {
		return 0, 0, 0, 0, false
	}

	xs := make([]float64, len(p))
	ys := make([]float64, len(p))
	for i, pt := range p {
		xs[i] = pt.X
		ys[i] = pt.Y
	}

	return floats.Min(xs), floats.Min(ys), floats.Max(xs), floats.Max(ys), true
}

// finite reports whether all coordinates of p are finite numbers.
func (p Polygon) finite() bool {
	for _, pt := range p {
		if math.IsNaN(pt.X) || math.IsInf(pt.X, 0) || math.IsNaN(pt.Y) || math.IsInf(pt.Y, 0) {
			return false
		}
	}
	return true
}

// cropRect is the integer rectangle spanned by p, with coordinates truncated towards zero.
func (p Polygon) cropRect() (image.Rectangle, error) {
	minX, minY, maxX, maxY, ok := p.Extent()
	if !ok {
		return image.Rectangle{}, fmt.Errorf("%w: polygon has no points", ErrEmptyCrop)
	}

	return image.Rect(int(minX), int(minY), int(maxX), int(maxY)), nil
}

// boxPolygon returns the four corner polygon of the box (xMin, yMin)-(xMax, yMax).
func boxPolygon(xMin, yMin, xMax, yMax float64) Polygon {
	return Polygon{
		{X: xMin, Y: yMin}, // top-left
		{X: xMax, Y: yMin}, // top-right
		{X: xMax, Y: yMax}, // bottom-right
		{X: xMin, Y: yMax}, // bottom-left
	}
}

// Shape is one labeled region of an image.
type Shape struct {
	Label  string  // The transcription or class label.
	Points Polygon // The canonical polygon.
}

// AnnotatedFile is the intermediate representation of one source image and its annotations.
type AnnotatedFile struct {
	LabelPath string  // The annotation file the record was read from.
	FilePath  string  // The image reference. It is not guaranteed to exist.
	Shapes    []Shape // The shapes in source order.
}

// BaseName is the base name of the annotation file without its extension.
func (f AnnotatedFile) BaseName() string {
	name := filepath.Base(f.LabelPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// LabelMapping replaces the substring Old with New in labels.
type LabelMapping struct {
	Old string
	New string
}

// ParseLabelMappings parses mappings of the form old=new.
func ParseLabelMappings(mappings []string) ([]LabelMapping, error) {
	result := make([]LabelMapping, 0, len(mappings))
	for _, v := range mappings {
		a := strings.Split(v, "=")
		if len(a) != 2 || a[0] == "" {
			return nil, fmt.Errorf("invalid label mapping: %q", v)
		}
		result = append(result, LabelMapping{Old: a[0], New: a[1]})
	}
	return result, nil
}

// LabelOptions controls how transcriptions are rewritten before they are serialized.
type LabelOptions struct {
	Mappings  []LabelMapping // Substring replacements, applied in order.
	Normalize bool           // Apply Unicode NFC normalization.
}

// apply rewrites a single label.
func (o LabelOptions) apply(label string) string {
	for _, m := range o.Mappings {
		label = strings.ReplaceAll(label, m.Old, m.New)
	}
	if o.Normalize {
		label = norm.NFC.String(label)
	}
	return label
}

// Rewrite applies the label options to all shapes of f and returns the number of changed
// labels.
func (o LabelOptions) Rewrite(f *AnnotatedFile) int {
	if len(o.Mappings) == 0 && !o.Normalize {
		return 0
	}

	count := 0
	for i := range f.Shapes {
		s := &f.Shapes[i]
		label := o.apply(s.Label)
		if label != s.Label {
			s.Label = label
			count++
		}
	}
	return count
}
