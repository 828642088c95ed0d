package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"

	"github.com/ivlev/svg2video/internal/source"
	"github.com/ivlev/svg2video/internal/timeline"
)

const (
	// TitleSize is the font size as a share of the canvas height.
	TitleSize = 0.06
	// TitleTop is where the top of the title box sits, as a share of the
	// canvas height.
	TitleTop = 0.7
)

var titleColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Compositor draws frames of a fixed size. It keeps a private canvas and is
// not safe for concurrent use; give every session its own.
type Compositor struct {
	width, height int
	background    gg.RGBA

	pm   *gg.Pixmap
	ctx  *gg.Context
	face text.Face
}

// NewCompositor prepares a width x height canvas with the title font loaded.
func NewCompositor(width, height int, background color.Color) (*Compositor, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas %dx%d", width, height)
	}

	src, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("load title font: %w", err)
	}

	pm := gg.NewPixmap(width, height)
	ctx := gg.NewContext(width, height, gg.WithPixmap(pm))
	face := src.Face(math.Round(TitleSize * float64(height)))
	ctx.SetFont(face)

	return &Compositor{
		width:      width,
		height:     height,
		background: gg.FromColor(background),
		pm:         pm,
		ctx:        ctx,
		face:       face,
	}, nil
}

// Bounds is the frame rectangle every dst passed to Compose must have.
func (c *Compositor) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.width, c.height)
}

// Compose renders the frame described by st into dst. dst is only written
// once the whole frame has been drawn.
func (c *Compositor) Compose(dst *image.RGBA, doc *source.Document, st timeline.State) error {
	if dst == nil || dst.Bounds().Dx() != c.width || dst.Bounds().Dy() != c.height {
		return fmt.Errorf("compose: destination must be %dx%d", c.width, c.height)
	}
	if len(st.Revealed) != len(doc.Elements) {
		return fmt.Errorf("compose: state has %d lengths for %d elements", len(st.Revealed), len(doc.Elements))
	}

	c.ctx.ClearPath()
	c.ctx.ClearWithColor(c.background)

	layout := Fit(doc.ViewBox, c.width, c.height)
	for i, el := range doc.Elements {
		if err := c.strokeElement(layout, el, st.Revealed[i]); err != nil {
			return fmt.Errorf("compose frame %d: element %d: %w", st.Frame, i, err)
		}
	}

	c.drawTitle(st.Title)

	copyPixels(dst, c.pm.Data(), c.width, c.height)
	return nil
}

// strokeElement draws the revealed prefix of every subpath of el. The device line width
// equals the element's stroke width regardless of the fit scale.
func (c *Compositor) strokeElement(l Layout, el source.Element, revealed float64) error {
	visible := el.Outline
	if el.Length > 0 && revealed < el.Length {
		visible = Trim(el.Outline, revealed)
	}
	if len(visible) == 0 {
		return nil
	}

	for _, pl := range visible {
		p := l.Apply(pl[0])
		c.ctx.MoveTo(p.X, p.Y)
		for _, pt := range pl[1:] {
			p = l.Apply(pt)
			c.ctx.LineTo(p.X, p.Y)
		}
	}

	c.ctx.SetColor(el.Stroke)
	c.ctx.SetLineWidth(el.StrokeWidth)
	c.ctx.SetLineCap(gg.LineCapButt)
	c.ctx.SetLineJoin(gg.LineJoinRound)
	return c.ctx.Stroke()
}

func (c *Compositor) drawTitle(title string) {
	if title == "" {
		return
	}
	h := float64(c.height)
	width := c.face.Advance(title)
	baseline := h*TitleTop + c.face.Metrics().Ascent

	c.ctx.SetColor(titleColor)
	c.ctx.DrawString(title, (float64(c.width)-width)/2, baseline)
}

// Close releases the canvas.
func (c *Compositor) Close() error {
	return c.ctx.Close()
}

func copyPixels(dst *image.RGBA, src []uint8, width, height int) {
	row := width * 4
	if dst.Stride == row && len(dst.Pix) >= len(src) {
		copy(dst.Pix, src)
		return
	}
	for y := 0; y < height; y++ {
		off := dst.PixOffset(dst.Rect.Min.X, dst.Rect.Min.Y+y)
		copy(dst.Pix[off:off+row], src[y*row:(y+1)*row])
	}
}
