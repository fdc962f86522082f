package ppocrconv

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownLabel is substituted for class ids without an entry in the ClassLabelMap.
const UnknownLabel = "unknown"

// ClassLabelMap maps integer class ids to string labels. It is loaded once per dataset and is
// read-only afterwards.
type ClassLabelMap []string

// LoadClassLabelMap loads the class labels from path.
//
// Files with a .yaml or .yml extension are read as YOLO dataset documents, with the labels in
// the "names" field given either as a sequence or as a mapping from class id to label. Any other
// file is read as plain text with one label per line.
func LoadClassLabelMap(path string) (ClassLabelMap, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAMLClassLabelMap(path)
	}

	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	// Trailing blank lines are not labels.
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	labels := make(ClassLabelMap, len(lines))
	for i, l := range lines {
		labels[i] = strings.TrimSpace(l)
	}
	return labels, nil
}

func loadYAMLClassLabelMap(path string) (ClassLabelMap, error) {
	enc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read class labels %q: %w", path, err)
	}

	var doc struct {
		Names yaml.Node `yaml:"names"`
	}
	if err := yaml.Unmarshal(enc, &doc); err != nil {
		return nil, &AnnotationError{Path: path, Err: fmt.Errorf("%w: %v", ErrMalformedAnnotation, err)}
	}

	switch doc.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := doc.Names.Decode(&names); err != nil {
			return nil, &AnnotationError{Path: path, Err: fmt.Errorf("%w: names: %v", ErrMalformedAnnotation, err)}
		}
		return ClassLabelMap(names), nil

	case yaml.MappingNode:
		var byID map[int]string
		if err := doc.Names.Decode(&byID); err != nil {
			return nil, &AnnotationError{Path: path, Err: fmt.Errorf("%w: names: %v", ErrMalformedAnnotation, err)}
		}
		size := 0
		for id := range byID {
			if id < 0 {
				return nil, &AnnotationError{Path: path, Err: fmt.Errorf("%w: negative class id %d", ErrMalformedAnnotation, id)}
			}
			if id >= size {
				size = id + 1
			}
		}
		labels := make(ClassLabelMap, size)
		for id, label := range byID {
			labels[id] = label
		}
		return labels, nil

	case 0:
		return nil, &AnnotationError{Path: path, Err: fmt.Errorf("%w: no names field", ErrMalformedAnnotation)}
	}

	return nil, &AnnotationError{Path: path, Err: fmt.Errorf("%w: names must be a sequence or a mapping", ErrMalformedAnnotation)}
}

// Label returns the label for id. If id has no entry, UnknownLabel is returned and ok is false.
func (m ClassLabelMap) Label(id int) (label string, ok bool) {
	if id < 0 || id >= len(m) {
		return UnknownLabel, false
	}
	return m[id], true
}

// resolve returns the transcription for a class id. Without a map the transcription is the
// numeric id itself.
func (m ClassLabelMap) resolve(id int) (string, bool) {
	if m == nil {
		return strconv.Itoa(id), true
	}
	return m.Label(id)
}
