package source

import (
	"math"

	"github.com/gogpu/gg"
)

// flattenDivisions sets the curve tolerance as a fraction of the view-box
// diagonal. At the compositor's scale this stays below one device pixel.
const flattenDivisions = 1000

const maxCurveSegments = 512

// flatten turns path into polylines, one per subpath.
func flatten(path *gg.Path, step float64) []Polyline {
	if step <= 0 || !finite(step) {
		step = 0.1
	}

	var (
		out         []Polyline
		cur         Polyline
		last, start gg.Point
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, cur)
		}
		cur = nil
	}

	for _, el := range path.Elements() {
		switch e := el.(type) {
		case gg.MoveTo:
			flush()
			cur = Polyline{e.Point}
			last, start = e.Point, e.Point
		case gg.LineTo:
			if len(cur) == 0 {
				cur = Polyline{last}
			}
			cur = append(cur, e.Point)
			last = e.Point
		case gg.QuadTo:
			if len(cur) == 0 {
				cur = Polyline{last}
			}
			q := gg.NewQuadBez(last, e.Control, e.Point)
			n := segmentsFor(last.Distance(e.Control)+e.Control.Distance(e.Point), step)
			for i := 1; i <= n; i++ {
				cur = append(cur, q.Eval(float64(i)/float64(n)))
			}
			cur[len(cur)-1] = e.Point
			last = e.Point
		case gg.CubicTo:
			if len(cur) == 0 {
				cur = Polyline{last}
			}
			c := gg.NewCubicBez(last, e.Control1, e.Control2, e.Point)
			hull := last.Distance(e.Control1) + e.Control1.Distance(e.Control2) + e.Control2.Distance(e.Point)
			n := segmentsFor(hull, step)
			for i := 1; i <= n; i++ {
				cur = append(cur, c.Eval(float64(i)/float64(n)))
			}
			cur[len(cur)-1] = e.Point
			last = e.Point
		case gg.Close:
			if len(cur) > 0 && cur[len(cur)-1] != start {
				cur = append(cur, start)
			}
			flush()
			last = start
		}
	}
	flush()
	return out
}

func segmentsFor(length, step float64) int {
	n := int(math.Ceil(length / step))
	if n < 2 {
		return 2
	}
	if n > maxCurveSegments {
		return maxCurveSegments
	}
	return n
}

// PolylineLength is the summed segment length of the outline.
func PolylineLength(outline []Polyline) float64 {
	var total float64
	for _, pl := range outline {
		for i := 1; i < len(pl); i++ {
			total += pl[i-1].Distance(pl[i])
		}
	}
	return total
}
