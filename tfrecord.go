package ppocrconv

// TFRecord object detection specific functionality.

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// tfLabelIDs assigns the object detection class ids, starting at 1. Labels of the class map keep
// their position, other labels are appended in the order they are first seen.
type tfLabelIDs struct {
	ids    map[string]int64
	labels []string
}

func newTFLabelIDs(classMap ClassLabelMap) *tfLabelIDs {
	l := &tfLabelIDs{ids: make(map[string]int64, len(classMap))}
	for _, label := range classMap {
		l.id(label)
	}
	return l
}

func (l *tfLabelIDs) id(label string) int64 {
	if id, ok := l.ids[label]; ok {
		return id
	}
	l.labels = append(l.labels, label)
	id := int64(len(l.labels))
	l.ids[label] = id
	return id
}

// toTFFeatures converts one annotated image to the object detection feature map. The bounds of
// each polygon become the normalized box.
func toTFFeatures(f AnnotatedFile, ids *tfLabelIDs) (TFFeatureMap, error) {
	// Get the image width and height.
	img, format, err := decodeImageConfig(f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %w", err)
	}
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("image %q has no pixels", f.FilePath)
	}

	// Read the image data.
	imgData, err := os.ReadFile(f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %w", err)
	}

	// Prepare the feature map for the per file data.
	m := make(TFFeatureMap, 16)
	m["image/height"] = img.Height
	m["image/width"] = img.Width
	m["image/filename"] = f.FilePath
	m["image/source_id"] = f.FilePath
	m["image/encoded"] = imgData
	m["image/format"] = format

	// Prepare the per shape data.
	n := len(f.Shapes)
	xmins := make([]float32, 0, n)
	ymins := make([]float32, 0, n)
	xmaxs := make([]float32, 0, n)
	ymaxs := make([]float32, 0, n)
	classes := make([]string, 0, n)
	classIDs := make([]int64, 0, n)
	for _, s := range f.Shapes {
		minX, minY, maxX, maxY, ok := s.Points.Extent()
		if !ok {
			continue
		}
		xmins = append(xmins, float32(minX)/float32(img.Width))
		ymins = append(ymins, float32(minY)/float32(img.Height))
		xmaxs = append(xmaxs, float32(maxX)/float32(img.Width))
		ymaxs = append(ymaxs, float32(maxY)/float32(img.Height))
		classes = append(classes, s.Label)
		classIDs = append(classIDs, ids.id(s.Label))
	}
	m["image/object/bbox/xmin"] = xmins
	m["image/object/bbox/ymin"] = ymins
	m["image/object/bbox/xmax"] = xmaxs
	m["image/object/bbox/ymax"] = ymaxs
	m["image/object/class/text"] = classes
	m["image/object/class/label"] = classIDs

	return m, nil
}

// WriteTFRecord converts and writes the annotation data, one image at a time, to one or more
// TFRecord files stored under recordFilePath (with suffixes added when numShards > 1). The label
// map is written to labelMapPath.
//
// Class ids follow classMap, which may be nil. Images that cannot be read are logged and left
// out. Returns the number of examples written.
func WriteTFRecord(recordFilePath, labelMapPath string, data []AnnotatedFile, numShards int,
	classMap ClassLabelMap, opts Options) (written int, err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	run := newRun(opts)
	if numShards <= 0 {
		numShards = 1
	}
	if len(data) == 0 {
		return 0, saveTFLabelMap(labelMapPath, newTFLabelIDs(classMap))
	}

	if err := os.MkdirAll(filepath.Dir(recordFilePath), 0o755); err != nil {
		return 0, fmt.Errorf("%w: cannot create directory for %q: %v", ErrWrite, recordFilePath, err)
	}

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	defer func() {
		if shardFile != nil {
			closeWithErrCheck(shardFile, &err)
		}
	}()
	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))
	shardIdx := -1
	ids := newTFLabelIDs(classMap)

	// Convert and serialise one data element at a time.
	for i, f := range data {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			// Close the previous shard file.
			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return written, fmt.Errorf("%w: %v", ErrWrite, err)
				}
				shardFile = nil
			}

			// Create the new shard file.
			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			sf, err := os.Create(shardPath)
			if err != nil {
				return written, fmt.Errorf("%w: failed to create shard at %q: %v", ErrWrite, shardPath, err)
			}
			shardFile = sf
		}

		// Convert the file data to an example.
		features, err := toTFFeatures(f, ids)
		if err != nil {
			run.logger.Warn("Failed to convert", "file", f.FilePath, "error", err)
			continue
		}
		tfExample := example.New(features)

		// Write the example.
		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			return written, fmt.Errorf("%w: failed to write example: %v", ErrWrite, err)
		}
		written++
	}
	run.metrics.records(formatTFRecord, written)

	if err := saveTFLabelMap(labelMapPath, ids); err != nil {
		return written, err
	}
	run.logger.Info("Wrote TFRecord", "output", recordFilePath, "examples", written,
		"shards", numShards, "labels", len(ids.labels))
	return written, nil
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFLabelMap writes the label ids in the object detection StringIntLabelMap text format.
func saveTFLabelMap(path string, ids *tfLabelIDs) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: cannot create directory for %q: %v", ErrWrite, path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: failed to create the label map file %q: %v", ErrWrite, path, err)
	}
	defer closeWithErrCheck(file, &err)

	w := bufio.NewWriter(file)
	for i, label := range ids.labels {
		if _, err := fmt.Fprintf(w, "item {\n  id: %d\n  name: %s\n}\n", i+1, strconv.Quote(label)); err != nil {
			return fmt.Errorf("%w: failed to write the label map %q: %v", ErrWrite, path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: failed to write the label map %q: %v", ErrWrite, path, err)
	}

	return nil
}

