package config

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Animation holds everything the timeline and compositor need for one
// session. It is built once and never mutated afterwards.
type Animation struct {
	DrawDuration float64
	HoldDuration float64
	Background   color.RGBA
	Title        string
	Easing       string
}

// DrawFrames is floor(DrawDuration * FPS), never negative.
func (a Animation) DrawFrames() int {
	return framesFor(a.DrawDuration)
}

// HoldFrames is floor(HoldDuration * FPS), never negative.
func (a Animation) HoldFrames() int {
	return framesFor(a.HoldDuration)
}

// TotalFrames is the frame budget: draw + hold + one second of outro.
func (a Animation) TotalFrames() int {
	return a.DrawFrames() + a.HoldFrames() + OutroFrames
}

// MaxDuration caps each phase so frame counts stay far from int overflow.
const MaxDuration = 3600.0

func framesFor(seconds float64) int {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	seconds = math.Min(seconds, MaxDuration)
	return int(math.Floor(seconds * FPS))
}

// ParseHexColor accepts "#rrggbb" (the hash is optional) and returns an
// opaque colour.
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimSpace(s)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	if len(hex) != 7 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: want #rrggbb", s)
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
