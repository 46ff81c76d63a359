package image

import (
	"image"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/xerrors"
)

// Resize maps the full extent of img onto a width x height canonical buffer
// using a bicubic (Catmull-Rom) kernel. The aspect ratio is not preserved.
func Resize(img image.Image, width int, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, xerrors.Errorf("failed to resize to %dx%d: %w", width, height, ErrInvalidDimensions)
	}
	if img.Bounds().Empty() {
		return nil, xerrors.Errorf("failed to resize empty source %v: %w", img.Bounds(), ErrInvalidDimensions)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst, nil
}

// ToCanonical copies img into a new NRGBA buffer of the same size anchored at
// the origin. Pixels are sampled, never filtered.
func ToCanonical(img image.Image) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, xerrors.Errorf("failed to convert empty image %v: %w", bounds, ErrInvalidDimensions)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	if src, ok := img.(*image.NRGBA); ok {
		rowBytes := bounds.Dx() * 4
		for y := 0; y < bounds.Dy(); y++ {
			srcOffset := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			dstOffset := dst.PixOffset(0, y)
			copy(dst.Pix[dstOffset:dstOffset+rowBytes], src.Pix[srcOffset:srcOffset+rowBytes])
		}
		return dst, nil
	}

	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst, nil
}

// ResizeAndCanonicalize returns a width x height canonical copy of img,
// resampling only when the size actually changes.
func ResizeAndCanonicalize(img image.Image, width int, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, xerrors.Errorf("failed to normalize to %dx%d: %w", width, height, ErrInvalidDimensions)
	}

	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return ToCanonical(img)
	}
	return Resize(img, width, height)
}
