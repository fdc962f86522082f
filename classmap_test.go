package ppocrconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadClassLabelMap(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    ClassLabelMap
		wantErr error
	}{
		{
			name: "yaml sequence",
			file: "data.yaml",
			content: `train: ../train/images
val: ../valid/images
nc: 3
names: ['A', 'B', '7']
`,
			want: ClassLabelMap{"A", "B", "7"},
		},
		{
			name: "yaml mapping",
			file: "data.yml",
			content: `names:
  0: car
  2: plate
`,
			want: ClassLabelMap{"car", "", "plate"},
		},
		{
			name:    "text",
			file:    "classes.txt",
			content: "car\n plate \n\n\n",
			want:    ClassLabelMap{"car", "plate"},
		},
		{
			name:    "yaml without names",
			file:    "data.yaml",
			content: "nc: 2\n",
			wantErr: ErrMalformedAnnotation,
		},
		{
			name:    "yaml scalar names",
			file:    "data.yaml",
			content: "names: car\n",
			wantErr: ErrMalformedAnnotation,
		},
		{
			name:    "yaml negative id",
			file:    "data.yaml",
			content: "names:\n  -1: car\n",
			wantErr: ErrMalformedAnnotation,
		},
		{
			name:    "invalid yaml",
			file:    "data.yaml",
			content: "names: [a, b\n",
			wantErr: ErrMalformedAnnotation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			got, err := LoadClassLabelMap(path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadClassLabelMapMissingFile(t *testing.T) {
	_, err := LoadClassLabelMap("/nonexistent/data.yaml")
	assert.Error(t, err)
}

func TestClassLabelMapLabel(t *testing.T) {
	m := ClassLabelMap{"a", "b", "c", "d", "e"}

	label, ok := m.Label(2)
	assert.True(t, ok)
	assert.Equal(t, "c", label)

	for _, id := range []int{5, 999, -1} {
		label, ok := m.Label(id)
		assert.False(t, ok)
		assert.Equal(t, UnknownLabel, label)
	}

	label, ok = ClassLabelMap(nil).resolve(12)
	assert.True(t, ok)
	assert.Equal(t, "12", label)

	label, ok = ClassLabelMap{}.resolve(0)
	assert.False(t, ok)
	assert.Equal(t, UnknownLabel, label)
}
