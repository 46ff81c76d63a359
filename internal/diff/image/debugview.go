package image

import (
	"image"

	"github.com/oliamb/cutter"
	"golang.org/x/xerrors"
)

// SplitDebugView cuts a composite screenshot laid out as a 3x3 grid and
// returns the bottom-right cell as current and the bottom-middle cell as
// reference.
func SplitDebugView(img image.Image) (current image.Image, reference image.Image, err error) {
	bounds := img.Bounds()
	cellWidth := bounds.Dx() / 3
	cellHeight := bounds.Dy() / 3
	if cellWidth <= 0 || cellHeight <= 0 {
		return nil, nil, xerrors.Errorf("failed to split %dx%d debug view: %w", bounds.Dx(), bounds.Dy(), ErrImageTooSmall)
	}

	current, err = cropCell(img, 2, 2, cellWidth, cellHeight)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to crop current cell: %w", err)
	}
	reference, err = cropCell(img, 1, 2, cellWidth, cellHeight)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to crop reference cell: %w", err)
	}
	return current, reference, nil
}

func cropCell(img image.Image, column int, row int, cellWidth int, cellHeight int) (image.Image, error) {
	return cutter.Crop(img, cutter.Config{
		Width:   cellWidth,
		Height:  cellHeight,
		Anchor:  image.Point{X: column * cellWidth, Y: row * cellHeight},
		Mode:    cutter.TopLeft,
		Options: cutter.Copy,
	})
}
