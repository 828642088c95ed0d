package analyzer

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ivlev/svg2video/internal/source"
)

// Finding is an element whose stroke will be hard to see.
type Finding struct {
	Index    int
	Tag      string
	Stroke   color.RGBA
	Distance float64 // CIEDE2000, 0 = identical, ~1 = black vs white
}

// ContrastChecker flags strokes that nearly match the background.
type ContrastChecker struct {
	MinDistance float64
}

// NewContrastChecker creates a checker with default settings
func NewContrastChecker() *ContrastChecker {
	return &ContrastChecker{
		MinDistance: 0.1, // ~10 ΔE, заметно на глаз
	}
}

// Check returns the elements of doc whose stroke colour is closer than
// MinDistance to bg. Zero-length elements are skipped because they carry
// no animated stroke.
func (c *ContrastChecker) Check(doc *source.Document, bg color.Color) []Finding {
	if doc == nil {
		return nil
	}
	back, _ := colorful.MakeColor(opaque(bg))

	var out []Finding
	for i, el := range doc.Elements {
		if el.Length <= 0 {
			continue
		}
		stroke, _ := colorful.MakeColor(opaque(el.Stroke))
		d := stroke.DistanceCIEDE2000(back)
		if d < c.MinDistance {
			out = append(out, Finding{Index: i, Tag: el.Tag, Stroke: el.Stroke, Distance: d})
		}
	}
	return out
}

// opaque drops alpha so MakeColor never sees a fully transparent colour.
func opaque(c color.Color) color.Color {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return color.Black
	}
	return color.RGBA{
		R: uint8(r * 0xffff / a >> 8),
		G: uint8(g * 0xffff / a >> 8),
		B: uint8(b * 0xffff / a >> 8),
		A: 255,
	}
}
