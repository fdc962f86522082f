package ppocrconv

import (
	"errors"
	"fmt"
)

// Conditions reported by the readers and pipelines. Test with errors.Is.
var (
	// ErrMalformedAnnotation is returned when an annotation document cannot be parsed. The file
	// is skipped.
	ErrMalformedAnnotation = errors.New("malformed annotation")

	// ErrInvalidShapeLine is returned for a box line that does not hold exactly five numeric
	// fields. Only that shape is skipped.
	ErrInvalidShapeLine = errors.New("invalid shape line")

	// ErrMissingImage is returned when no image can be found for an annotation file. The file is
	// skipped.
	ErrMissingImage = errors.New("missing image")

	// ErrEmptyCrop is returned when a region does not overlap its image. The region is skipped.
	ErrEmptyCrop = errors.New("empty crop region")

	// ErrWrite is returned when an output artifact cannot be created or written. It ends the run.
	ErrWrite = errors.New("write failed")
)

// AnnotationError adds the annotation file, and the line for line based formats, to an error.
type AnnotationError struct {
	Path string
	Line int // One-based line number, zero if not applicable.
	Err  error
}

func (e *AnnotationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *AnnotationError) Unwrap() error {
	return e.Err
}
