package ppocrconv

// PaddleOCR label file specific functionality.

import (
	"bufio"
	"bytes"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DetectionAnnotation is one region of a PaddleOCR detection label line.
type DetectionAnnotation struct {
	Transcription string  `json:"transcription"`
	Points        Polygon `json:"points"`
}

// DetectionLine is one line of a PaddleOCR detection label file:
//
//	path<TAB>[{"transcription": ..., "points": [[x, y], ...]}, ...]
type DetectionLine struct {
	ImagePath   string
	Annotations []DetectionAnnotation
}

// ToDetectionLine converts the annotations of one image to a detection line.
func ToDetectionLine(f AnnotatedFile) DetectionLine {
	line := DetectionLine{
		ImagePath:   toSlash(f.FilePath),
		Annotations: make([]DetectionAnnotation, len(f.Shapes)),
	}
	for i, s := range f.Shapes {
		points := s.Points
		if points == nil {
			points = Polygon{}
		}
		line.Annotations[i] = DetectionAnnotation{Transcription: s.Label, Points: points}
	}
	return line
}

// MarshalText implements encoding.TextMarshaler. Non-ASCII characters are kept as they are.
func (l DetectionLine) MarshalText() ([]byte, error) {
	if err := checkField("image path", l.ImagePath); err != nil {
		return nil, err
	}

	annotations := l.Annotations
	if annotations == nil {
		annotations = []DetectionAnnotation{}
	}

	var buf bytes.Buffer
	buf.WriteString(toSlash(l.ImagePath))
	buf.WriteByte('\t')

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(annotations); err != nil {
		return nil, err
	}

	// Encode terminates with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// RecognitionLine is one line of a PaddleOCR recognition label file:
//
//	cropPath<TAB>"label"
type RecognitionLine struct {
	CropPath string
	Label    string
}

// MarshalText implements encoding.TextMarshaler. The label must not be empty.
func (l RecognitionLine) MarshalText() ([]byte, error) {
	if l.Label == "" {
		return nil, errors.New("empty label")
	}
	if err := checkField("crop path", l.CropPath); err != nil {
		return nil, err
	}
	if err := checkField("label", l.Label); err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%s\t\"%s\"", toSlash(l.CropPath), l.Label)), nil
}

// checkField rejects values that would break the line structure.
func checkField(name, v string) error {
	if strings.ContainsAny(v, "\t\r\n") {
		return fmt.Errorf("%s %q contains a tab or line break", name, v)
	}
	return nil
}

// WriteLines writes one line per record to the file at path, replacing any existing file and
// creating missing parent directories. Records that fail to serialize are logged and omitted.
//
// Returns the number of lines written. Errors creating or writing the file wrap ErrWrite.
func WriteLines(path string, records []encoding.TextMarshaler, logger *slog.Logger) (n int, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("%w: cannot create directory %q: %v", ErrWrite, dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWrite, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrWrite, cerr)
		}
	}()

	w := bufio.NewWriter(file)
	for i, r := range records {
		line, err := r.MarshalText()
		if err != nil {
			logger.Warn("Omitting record that cannot be serialized", "output", path, "record", i, "error", err)
			continue
		}
		if _, err := w.Write(line); err != nil {
			return n, fmt.Errorf("%w: %v", ErrWrite, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return n, fmt.Errorf("%w: %v", ErrWrite, err)
		}
		n++
	}
	if err := w.Flush(); err != nil {
		return n, fmt.Errorf("%w: %v", ErrWrite, err)
	}

	return n, nil
}
