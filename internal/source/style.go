package source

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const defaultStrokeWidth = 2

var defaultStroke = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

var namedColors = map[string]color.RGBA{
	"black":   {0x00, 0x00, 0x00, 0xff},
	"white":   {0xff, 0xff, 0xff, 0xff},
	"red":     {0xff, 0x00, 0x00, 0xff},
	"green":   {0x00, 0x80, 0x00, 0xff},
	"lime":    {0x00, 0xff, 0x00, 0xff},
	"blue":    {0x00, 0x00, 0xff, 0xff},
	"yellow":  {0xff, 0xff, 0x00, 0xff},
	"cyan":    {0x00, 0xff, 0xff, 0xff},
	"magenta": {0xff, 0x00, 0xff, 0xff},
	"orange":  {0xff, 0xa5, 0x00, 0xff},
	"purple":  {0x80, 0x00, 0x80, 0xff},
	"gray":    {0x80, 0x80, 0x80, 0xff},
	"grey":    {0x80, 0x80, 0x80, 0xff},
	"silver":  {0xc0, 0xc0, 0xc0, 0xff},
	"navy":    {0x00, 0x00, 0x80, 0xff},
	"teal":    {0x00, 0x80, 0x80, 0xff},
	"maroon":  {0x80, 0x00, 0x00, 0xff},
	"olive":   {0x80, 0x80, 0x00, 0xff},
	"gold":    {0xff, 0xd7, 0x00, 0xff},
	"pink":    {0xff, 0xc0, 0xcb, 0xff},
	"brown":   {0xa5, 0x2a, 0x2a, 0xff},
}

// strokeOf resolves the stroke paint of n. Inline style wins over
// presentation attributes.
func strokeOf(n *node) (color.RGBA, float64) {
	decl := parseStyle(n.attr("style"))

	paint, ok := decl["stroke"]
	if !ok {
		paint = n.attr("stroke")
	}
	c, ok := ParseColor(paint)
	if !ok {
		c = defaultStroke
	}

	width, ok := decl["stroke-width"]
	if !ok {
		width = n.attr("stroke-width")
	}
	return c, parseStrokeWidth(width)
}

func parseStyle(s string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "!important"))
	}
	return out
}

func parseStrokeWidth(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(w) || w <= 0 {
		return defaultStrokeWidth
	}
	return w
}

// ParseColor understands #rgb, #rrggbb, rgb(r, g, b) and a few CSS names.
// It reports false for "none", "currentColor", gradients and anything else
// it cannot resolve to a solid colour.
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return color.RGBA{}, false
	case strings.HasPrefix(s, "#"):
		if len(s) != 4 && len(s) != 7 {
			return color.RGBA{}, false
		}
		c, err := colorful.Hex(s)
		if err != nil {
			return color.RGBA{}, false
		}
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 0xff}, true
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseRGBFunc(s[len("rgb(") : len(s)-1])
	}
	c, ok := namedColors[s]
	return c, ok
}

func parseRGBFunc(args string) (color.RGBA, bool) {
	parts := strings.Split(args, ",")
	if len(parts) != 3 {
		return color.RGBA{}, false
	}
	var ch [3]uint8
	for i, p := range parts {
		p = strings.TrimSpace(p)
		scale := 1.0
		if strings.HasSuffix(p, "%") {
			p = strings.TrimSuffix(p, "%")
			scale = 255.0 / 100
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || !finite(v) {
			return color.RGBA{}, false
		}
		v = math.Round(v * scale)
		ch[i] = uint8(math.Max(0, math.Min(255, v)))
	}
	return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 0xff}, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
