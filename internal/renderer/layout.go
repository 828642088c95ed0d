package renderer

import (
	"math"

	"github.com/gogpu/gg"

	"github.com/ivlev/svg2video/internal/source"
)

const (
	// FitFactor leaves a margin around the graphic.
	FitFactor = 0.6
	// TitleBias lifts the graphic by this share of the canvas height to make
	// room for the title.
	TitleBias = 0.1
)

// Layout maps view-box coordinates onto the canvas.
type Layout struct {
	ViewBox source.ViewBox
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Fit centres vb on a width x height canvas at FitFactor of the largest
// uniform scale, shifted up by TitleBias.
func Fit(vb source.ViewBox, width, height int) Layout {
	w, h := float64(width), float64(height)
	scale := math.Min(w/vb.Width, h/vb.Height) * FitFactor
	return Layout{
		ViewBox: vb,
		Scale:   scale,
		OffsetX: (w - vb.Width*scale) / 2,
		OffsetY: (h-vb.Height*scale)/2 - h*TitleBias,
	}
}

// Apply converts a view-box point to device pixels.
func (l Layout) Apply(p gg.Point) gg.Point {
	return gg.Pt(
		(p.X-l.ViewBox.X)*l.Scale+l.OffsetX,
		(p.Y-l.ViewBox.Y)*l.Scale+l.OffsetY,
	)
}

// Trim returns the first revealed units of every subpath of outline. Each
// subpath starts its own dash, so all of them grow at the same time.
func Trim(outline []source.Polyline, revealed float64) []source.Polyline {
	if revealed <= 0 || math.IsNaN(revealed) {
		return nil
	}

	var out []source.Polyline
	for _, pl := range outline {
		if len(pl) == 0 {
			continue
		}
		budget := revealed
		part := source.Polyline{pl[0]}
		for i := 1; i < len(pl); i++ {
			seg := pl[i-1].Distance(pl[i])
			if seg <= budget {
				part = append(part, pl[i])
				budget -= seg
				continue
			}
			if budget > 0 {
				part = append(part, pl[i-1].Lerp(pl[i], budget/seg))
			}
			break
		}
		if len(part) > 1 {
			out = append(out, part)
		}
	}
	return out
}
