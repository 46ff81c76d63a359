package image

import (
	"errors"
	"image"
)

var (
	// ErrInvalidDimensions is returned when a requested or supplied size is not positive.
	ErrInvalidDimensions = errors.New("invalid image dimensions")
	// ErrDimensionMismatch is returned when two buffers compared pixel by pixel differ in size.
	ErrDimensionMismatch = errors.New("image dimensions do not match")
	// ErrImageTooSmall is returned when a composite image cannot be split into a 3x3 grid.
	ErrImageTooSmall = errors.New("image is too small for 3x3 split")
)

type DiffResult struct {
	Image *image.NRGBA
	// DiffAmount is the fraction of pixels that received any highlight.
	DiffAmount float64
}

type Differ interface {
	Calculate(reference image.Image, current image.Image) (*DiffResult, error)
}
