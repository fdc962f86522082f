package ppocrconv

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// loadImage reads and decodes the image at path. A file that does not exist is reported as
// ErrMissingImage.
func loadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %v", ErrMissingImage, err)
		}
		return nil, fmt.Errorf("cannot decode image %q: %w", path, err)
	}
	return img, nil
}

// saveImage encodes img according to the file extension of path and writes it. WebP is
// encoded lossy with jpegQuality as its quality.
func saveImage(path string, img image.Image, jpegQuality int) (err error) {
	if strings.ToLower(filepath.Ext(path)) != ".webp" {
		return imaging.Save(img, path, imaging.JPEGQuality(jpegQuality))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(f, &err)

	return webp.Encode(f, img, &webp.Options{Quality: float32(jpegQuality)})
}

// supportedCropExt reports whether crops can be encoded with the extension ext (without the
// dot).
func supportedCropExt(ext string) bool {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg", "png", "bmp", "gif", "tif", "tiff", "webp":
		return true
	}
	return false
}
