package image

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/exp/constraints"
	"golang.org/x/xerrors"
)

const (
	DefaultThreshold = 0.003
	// InitialMarkAmount is used until the first comparison has been shown.
	InitialMarkAmount = 1.0
	DefaultMarkAmount = 0.5
)

var DefaultMarkColor = color.RGBA{R: 0xff, G: 0x66, B: 0x99, A: 0xff}

type Parameters struct {
	// Threshold is the normalized per-channel difference below which nothing is marked.
	Threshold float64
	// MarkColor is the highlight colour. Its alpha is ignored.
	MarkColor color.RGBA
	// MarkAmount scales the strength of every highlight.
	MarkAmount float64
}

func DefaultParameters() Parameters {
	return Parameters{
		Threshold:  DefaultThreshold,
		MarkColor:  DefaultMarkColor,
		MarkAmount: DefaultMarkAmount,
	}
}

// Clamp returns a copy with Threshold and MarkAmount limited to [0, 1].
func (p Parameters) Clamp() Parameters {
	return Parameters{
		Threshold:  clampUnit(p.Threshold),
		MarkColor:  p.MarkColor,
		MarkAmount: clampUnit(p.MarkAmount),
	}
}

// ParseThreshold parses a tolerance typed by a user. Values outside [0, 1]
// saturate; text that is not a number leaves previous in place.
func ParseThreshold(s string, previous float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return previous
	}
	return clampUnit(v)
}

// ParseMarkColor accepts "#rrggbb" or "#rgb", with or without the leading '#'.
func ParseMarkColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 7 && len(s) != 4 {
		return color.RGBA{}, xerrors.Errorf("invalid mark color %q", s)
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, xerrors.Errorf("invalid mark color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

func FormatMarkColor(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func clamp[T constraints.Ordered](v T, lo T, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, 1)
}
