package source

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/gg"
)

// geometryOf builds the outline of n. A non-empty reason explains why the
// element ends up with partial or no geometry.
func geometryOf(n *node) (*gg.Path, string) {
	p := gg.NewPath()
	switch n.name {
	case "path":
		d := strings.TrimSpace(n.attr("d"))
		if d == "" {
			return nil, "missing path data"
		}
		if err := parsePathData(d, p); err != nil {
			return p, err.Error()
		}
	case "rect":
		if !rectPath(p, n) {
			return nil, "rect has no area"
		}
	case "circle":
		r := num(n, "r")
		if r <= 0 {
			return nil, "circle has no radius"
		}
		p.Circle(num(n, "cx"), num(n, "cy"), r)
	case "ellipse":
		rx, ry := num(n, "rx"), num(n, "ry")
		if rx <= 0 || ry <= 0 {
			return nil, "ellipse has no radius"
		}
		p.Ellipse(num(n, "cx"), num(n, "cy"), rx, ry)
	case "line":
		p.MoveTo(num(n, "x1"), num(n, "y1"))
		p.LineTo(num(n, "x2"), num(n, "y2"))
	case "polyline", "polygon":
		pts := parsePoints(n.attr("points"))
		if len(pts) < 2 {
			return nil, n.name + " needs at least two points"
		}
		p.MoveTo(pts[0].X, pts[0].Y)
		for _, pt := range pts[1:] {
			p.LineTo(pt.X, pt.Y)
		}
		if n.name == "polygon" {
			p.LineTo(pts[0].X, pts[0].Y)
			p.Close()
		}
	default:
		return nil, "<" + n.name + "> has no outline"
	}
	return p, ""
}

func rectPath(p *gg.Path, n *node) bool {
	x, y := num(n, "x"), num(n, "y")
	w, h := num(n, "width"), num(n, "height")
	if w <= 0 || h <= 0 {
		return false
	}

	rx, okx := attrNum(n, "rx")
	ry, oky := attrNum(n, "ry")
	switch {
	case !okx && oky:
		rx = ry
	case okx && !oky:
		ry = rx
	}
	rx = math.Min(math.Max(rx, 0), w/2)
	ry = math.Min(math.Max(ry, 0), h/2)

	if rx == 0 || ry == 0 {
		p.MoveTo(x, y)
		p.LineTo(x+w, y)
		p.LineTo(x+w, y+h)
		p.LineTo(x, y+h)
		p.LineTo(x, y)
		p.Close()
		return true
	}

	p.MoveTo(x+rx, y)
	p.LineTo(x+w-rx, y)
	arcTo(p, gg.Pt(x+w-rx, y), rx, ry, 0, false, true, gg.Pt(x+w, y+ry))
	p.LineTo(x+w, y+h-ry)
	arcTo(p, gg.Pt(x+w, y+h-ry), rx, ry, 0, false, true, gg.Pt(x+w-rx, y+h))
	p.LineTo(x+rx, y+h)
	arcTo(p, gg.Pt(x+rx, y+h), rx, ry, 0, false, true, gg.Pt(x, y+h-ry))
	p.LineTo(x, y+ry)
	arcTo(p, gg.Pt(x, y+ry), rx, ry, 0, false, true, gg.Pt(x+rx, y))
	p.Close()
	return true
}

func attrNum(n *node, name string) (float64, bool) {
	s := strings.TrimSuffix(strings.TrimSpace(n.attr(name)), "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(v) {
		return 0, false
	}
	return v, true
}

func num(n *node, name string) float64 {
	v, _ := attrNum(n, name)
	return v
}

// parsePoints reads a points list. A trailing odd coordinate is dropped.
func parsePoints(s string) []gg.Point {
	sc := &scanner{s: s}
	var vals []float64
	for sc.atNumber() {
		v, err := sc.number()
		if err != nil {
			break
		}
		vals = append(vals, v)
	}
	pts := make([]gg.Point, 0, len(vals)/2)
	for i := 0; i+1 < len(vals); i += 2 {
		pts = append(pts, gg.Pt(vals[i], vals[i+1]))
	}
	return pts
}
