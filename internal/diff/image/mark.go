package image

import (
	"image"
	"math"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Smoothstep is the cubic Hermite ramp from 0 at edge0 to 1 at edge1. When
// the edges coincide it degrades to a hard step at edge0.
func Smoothstep(edge0 float64, edge1 float64, x float64) float64 {
	if math.Abs(edge1-edge0) < 1e-6 {
		if x >= edge0 {
			return 1
		}
		return 0
	}

	u := clamp((x-edge0)/(edge1-edge0), 0, 1)
	return u * u * (3 - 2*u)
}

// ComputeDiff blends every pixel of current toward p.MarkColor according to
// how far it is from the same pixel of reference. Both buffers must already
// have the same size; alpha is always taken from current.
func ComputeDiff(reference *image.NRGBA, current *image.NRGBA, p Parameters) (*image.NRGBA, error) {
	diff, _, err := computeDiff(reference, current, p, runtime.GOMAXPROCS(0))
	return diff, err
}

func computeDiff(reference *image.NRGBA, current *image.NRGBA, p Parameters, numWorkers int) (*image.NRGBA, int64, error) {
	referenceBounds := reference.Bounds()
	currentBounds := current.Bounds()
	if currentBounds.Empty() {
		return nil, 0, xerrors.Errorf("failed to compare empty image %v: %w", currentBounds, ErrInvalidDimensions)
	}
	if referenceBounds.Dx() != currentBounds.Dx() || referenceBounds.Dy() != currentBounds.Dy() {
		return nil, 0, xerrors.Errorf("failed to compare %dx%d reference with %dx%d current: %w",
			referenceBounds.Dx(), referenceBounds.Dy(), currentBounds.Dx(), currentBounds.Dy(), ErrDimensionMismatch)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	width := currentBounds.Dx()
	height := currentBounds.Dy()
	diff := image.NewNRGBA(image.Rect(0, 0, width, height))

	b := newBlender(p)
	rowsPerWorker := height / numWorkers

	var markedPixelCount int64
	var eg errgroup.Group
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}
		if startY == endY {
			continue
		}

		eg.Go(func() error {
			var localMarked int64
			for y := startY; y < endY; y++ {
				referenceRow := reference.Pix[reference.PixOffset(referenceBounds.Min.X, referenceBounds.Min.Y+y):]
				currentRow := current.Pix[current.PixOffset(currentBounds.Min.X, currentBounds.Min.Y+y):]
				diffRow := diff.Pix[diff.PixOffset(0, y):]
				localMarked += b.blendRow(referenceRow[:width*4], currentRow[:width*4], diffRow[:width*4])
			}
			atomic.AddInt64(&markedPixelCount, localMarked)
			return nil
		})
	}
	_ = eg.Wait()

	return diff, markedPixelCount, nil
}

type blender struct {
	threshold  float64
	markAmount float64
	markR      float64
	markG      float64
	markB      float64
}

func newBlender(p Parameters) *blender {
	p = p.Clamp()
	return &blender{
		threshold:  p.Threshold,
		markAmount: p.MarkAmount,
		markR:      float64(p.MarkColor.R) / 255,
		markG:      float64(p.MarkColor.G) / 255,
		markB:      float64(p.MarkColor.B) / 255,
	}
}

// blendRow writes one output row and reports how many of its pixels were marked.
func (b *blender) blendRow(reference []uint8, current []uint8, diff []uint8) int64 {
	var marked int64
	for i := 0; i+3 < len(current); i += 4 {
		refR := float64(reference[i]) / 255
		refG := float64(reference[i+1]) / 255
		refB := float64(reference[i+2]) / 255

		curR := float64(current[i]) / 255
		curG := float64(current[i+1]) / 255
		curB := float64(current[i+2]) / 255

		d := max(math.Abs(refR-curR), math.Abs(refG-curG), math.Abs(refB-curB))

		m := Smoothstep(b.threshold, b.threshold*2, d)
		t := clamp(m*b.markAmount, 0, 1)
		if t > 0 {
			marked++
		}

		diff[i] = toByte(curR + (b.markR-curR)*t)
		diff[i+1] = toByte(curG + (b.markG-curG)*t)
		diff[i+2] = toByte(curB + (b.markB-curB)*t)
		diff[i+3] = current[i+3]
	}
	return marked
}

func toByte(v float64) uint8 {
	return uint8(clamp(v*255+0.5, 0, 255))
}

type MarkDiff struct {
	params Parameters
}

func NewMarkDiff(p Parameters) *MarkDiff {
	return &MarkDiff{
		params: p.Clamp(),
	}
}

func (m *MarkDiff) Parameters() Parameters {
	return m.params
}

// Calculate resizes reference onto current's size, normalizes both and
// highlights where they differ.
func (m *MarkDiff) Calculate(reference image.Image, current image.Image) (*DiffResult, error) {
	currentNRGBA, err := ToCanonical(current)
	if err != nil {
		return nil, xerrors.Errorf("failed to normalize current image: %w", err)
	}

	bounds := currentNRGBA.Bounds()
	referenceNRGBA, err := ResizeAndCanonicalize(reference, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, xerrors.Errorf("failed to normalize reference image: %w", err)
	}

	diff, markedPixelCount, err := computeDiff(referenceNRGBA, currentNRGBA, m.params, runtime.GOMAXPROCS(0))
	if err != nil {
		return nil, err
	}

	totalPixelCount := int64(bounds.Dx() * bounds.Dy())
	return &DiffResult{
		Image:      diff,
		DiffAmount: float64(markedPixelCount) / float64(totalPixelCount),
	}, nil
}
