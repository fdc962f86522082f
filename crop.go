package ppocrconv

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropRegion returns the part of img covered by the axis-aligned bounds of p, with the bounds
// truncated to integer pixel coordinates. It also returns the rectangle that was cropped.
//
// The rectangle is clipped to the image bounds. If nothing is left after clipping, the error
// wraps ErrEmptyCrop.
func CropRegion(img image.Image, p Polygon) (*image.NRGBA, image.Rectangle, error) {
	r, err := p.cropRect()
	if err != nil {
		return nil, image.Rectangle{}, err
	}

	clipped := r.Intersect(img.Bounds())
	if clipped.Empty() {
		return nil, clipped, fmt.Errorf("%w: %v does not overlap the image bounds %v",
			ErrEmptyCrop, r, img.Bounds())
	}

	return imaging.Crop(img, clipped), clipped, nil
}

// CropName is the file name of the crop of the shape at shapeIndex within the annotation file
// with base name baseNoExt.
func CropName(baseNoExt string, shapeIndex int, ext string) string {
	return fmt.Sprintf("%s_%d.%s", baseNoExt, shapeIndex, ext)
}
