package ppocrconv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labelMeDoc = `{
  "version": "5.2.1",
  "flags": {},
  "shapes": [
    {"label": "PIN-01", "points": [[10.5, 4], [50, 4], [50, 20], [10.5, 20]], "shape_type": "polygon"},
    {"label": "x", "points": [[3, 9], [1, 2], [7, 1]], "shape_type": "polygon"}
  ],
  "imagePath": "img_1.png",
  "imageData": null,
  "imageHeight": 40,
  "imageWidth": 60
}`

func TestReadLabelMe(t *testing.T) {
	path := writeFile(t, t.TempDir(), "img_1.json", labelMeDoc)

	doc, err := ReadLabelMe(path)
	require.NoError(t, err)
	assert.Equal(t, "img_1.png", doc.ImagePath)
	assert.Equal(t, 60, doc.ImageWidth)
	assert.Equal(t, 40, doc.ImageHeight)
	require.Len(t, doc.Shapes, 2)
	assert.Equal(t, "PIN-01", doc.Shapes[0].Label)

	// Point order is kept.
	f := doc.toAnnotatedFile(path, "images/img_1.jpg")
	assert.Equal(t, Polygon{{3, 9}, {1, 2}, {7, 1}}, f.Shapes[1].Points)
	assert.Equal(t, "images/img_1.jpg", f.FilePath)
}

func TestReadLabelMeMalformed(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"syntax.json":    `{"shapes": [`,
		"types.json":     `{"shapes": "none"}`,
		"one_coord.json": `{"shapes": [{"label": "a", "points": [[1]]}]}`,
	} {
		_, err := ReadLabelMe(writeFile(t, dir, name, content))
		assert.ErrorIs(t, err, ErrMalformedAnnotation, name)
	}
}

func TestLabelMeImageFuncs(t *testing.T) {
	labelPath := filepath.Join("data", "labels", "img_7.json")

	assert.Equal(t, "images/img_7.jpg", LabelMeImageInDir("images", ".jpg")(labelPath, LabelMeFile{}))
	assert.Equal(t, "img_7.png", LabelMeImageInDir("", ".png")(labelPath, LabelMeFile{}))
	assert.Equal(t, filepath.Join("data", "labels", "..", "raw", "x.png"),
		LabelMeImageFromDocument(labelPath, LabelMeFile{ImagePath: "../raw/x.png"}))
}

func TestFromLabelMe(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", labelMeDoc)
	writeFile(t, dir, "a.json", `{"shapes": [], "imagePath": "a.png"}`)
	writeFile(t, dir, "c.json", `not json`)
	writeFile(t, dir, "notes.txt", `ignored`)

	data, report, err := FromLabelMe(dir, LabelMeImageInDir("images", ".jpg"), Options{
		Labels: LabelOptions{Mappings: []LabelMapping{{Old: "-", New: ""}}},
	})
	require.NoError(t, err)

	require.Len(t, data, 2)
	assert.Equal(t, "images/a.jpg", data[0].FilePath)
	assert.Empty(t, data[0].Shapes)
	assert.Equal(t, "images/b.jpg", data[1].FilePath)
	assert.Equal(t, "PIN01", data[1].Shapes[0].Label)

	assert.Equal(t, 3, report.Discovered)
	assert.Equal(t, 2, report.Converted)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, filepath.Join(dir, "c.json"), report.Skipped[0].Path)
	assert.True(t, report.Failed())
}

func TestFromLabelMeMissingDir(t *testing.T) {
	_, _, err := FromLabelMe(filepath.Join(t.TempDir(), "nope"), LabelMeImageFromDocument, Options{})
	assert.Error(t, err)
}
