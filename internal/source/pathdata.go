package source

import (
	"fmt"
	"math"
	"strconv"

	"github.com/gogpu/gg"
)

// pathSink receives absolute drawing commands. *gg.Path implements it.
type pathSink interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadraticTo(cx, cy, x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
	Close()
}

var _ pathSink = (*gg.Path)(nil)

// PathSyntaxError points at the first byte of d that could not be parsed.
type PathSyntaxError struct {
	Offset int
	Msg    string
}

func (e *PathSyntaxError) Error() string {
	return fmt.Sprintf("path data: %s at offset %d", e.Msg, e.Offset)
}

type scanner struct {
	s   string
	pos int
}

func (sc *scanner) done() bool { return sc.pos >= len(sc.s) }

func (sc *scanner) skipSpace() {
	for !sc.done() {
		switch sc.s[sc.pos] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			sc.pos++
		default:
			return
		}
	}
}

func (sc *scanner) fail(msg string) error {
	return &PathSyntaxError{Offset: sc.pos, Msg: msg}
}

// atNumber reports whether the next token starts a number.
func (sc *scanner) atNumber() bool {
	sc.skipSpace()
	if sc.done() {
		return false
	}
	c := sc.s[sc.pos]
	return c == '-' || c == '+' || c == '.' || isDigit(c)
}

func (sc *scanner) number() (float64, error) {
	sc.skipSpace()
	start := sc.pos
	i := sc.pos
	if i < len(sc.s) && (sc.s[i] == '+' || sc.s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(sc.s) && isDigit(sc.s[i]) {
		i++
		digits++
	}
	if i < len(sc.s) && sc.s[i] == '.' {
		i++
		for i < len(sc.s) && isDigit(sc.s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, sc.fail("expected number")
	}
	if i < len(sc.s) && (sc.s[i] == 'e' || sc.s[i] == 'E') {
		j := i + 1
		if j < len(sc.s) && (sc.s[j] == '+' || sc.s[j] == '-') {
			j++
		}
		if j < len(sc.s) && isDigit(sc.s[j]) {
			for j < len(sc.s) && isDigit(sc.s[j]) {
				j++
			}
			i = j
		}
	}
	v, err := strconv.ParseFloat(sc.s[start:i], 64)
	if err != nil || !finite(v) {
		return 0, sc.fail("bad number")
	}
	sc.pos = i
	return v, nil
}

// flag reads an arc flag, which may be packed without separators ("a1 1 0 11 5 5").
func (sc *scanner) flag() (bool, error) {
	sc.skipSpace()
	if sc.done() {
		return false, sc.fail("expected flag")
	}
	switch sc.s[sc.pos] {
	case '0':
		sc.pos++
		return false, nil
	case '1':
		sc.pos++
		return true, nil
	}
	return false, sc.fail("expected flag")
}

func (sc *scanner) numbers(dst []float64) error {
	for i := range dst {
		v, err := sc.number()
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isCommand(c byte) bool {
	switch c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'C', 'c', 'S', 's',
		'Q', 'q', 'T', 't', 'A', 'a', 'Z', 'z':
		return true
	}
	return false
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

// parsePathData feeds the commands of d into sink as absolute coordinates.
// Closing segments are emitted as an explicit LineTo so that they are
// measured. On a syntax error everything before the bad segment has already
// been emitted and the error is returned.
func parsePathData(d string, sink pathSink) error {
	sc := &scanner{s: d}

	var (
		cur, start, ctrl gg.Point
		prev             byte
		open             bool // a subpath has been started
		reopen           bool // Z was seen; the next segment starts at start
	)

	begin := func() {
		if reopen {
			sink.MoveTo(start.X, start.Y)
			reopen = false
		}
	}

	for {
		sc.skipSpace()
		if sc.done() {
			return nil
		}
		c := sc.s[sc.pos]
		if !isCommand(c) {
			return sc.fail(fmt.Sprintf("unexpected %q", c))
		}
		sc.pos++
		op := upper(c)
		rel := c != op

		if !open && op != 'M' {
			return sc.fail("path must start with moveto")
		}

		if op == 'Z' {
			if !reopen {
				if cur != start {
					sink.LineTo(start.X, start.Y)
				}
				sink.Close()
			}
			cur = start
			reopen = true
			prev = 'Z'
			continue
		}

		for first := true; first || sc.atNumber(); first = false {
			var base gg.Point
			if rel {
				base = cur
			}

			switch op {
			case 'M':
				var a [2]float64
				if err := sc.numbers(a[:]); err != nil {
					return err
				}
				cur = gg.Pt(base.X+a[0], base.Y+a[1])
				sink.MoveTo(cur.X, cur.Y)
				start = cur
				open = true
				reopen = false
				// Further pairs are implicit lineto commands.
				op = 'L'
				prev = 'M'
				continue

			case 'L':
				var a [2]float64
				if err := sc.numbers(a[:]); err != nil {
					return err
				}
				begin()
				cur = gg.Pt(base.X+a[0], base.Y+a[1])
				sink.LineTo(cur.X, cur.Y)

			case 'H':
				x, err := sc.number()
				if err != nil {
					return err
				}
				begin()
				cur = gg.Pt(base.X+x, cur.Y)
				sink.LineTo(cur.X, cur.Y)

			case 'V':
				y, err := sc.number()
				if err != nil {
					return err
				}
				begin()
				if rel {
					cur = gg.Pt(cur.X, cur.Y+y)
				} else {
					cur = gg.Pt(cur.X, y)
				}
				sink.LineTo(cur.X, cur.Y)

			case 'C':
				var a [6]float64
				if err := sc.numbers(a[:]); err != nil {
					return err
				}
				begin()
				c1 := gg.Pt(base.X+a[0], base.Y+a[1])
				ctrl = gg.Pt(base.X+a[2], base.Y+a[3])
				cur = gg.Pt(base.X+a[4], base.Y+a[5])
				sink.CubicTo(c1.X, c1.Y, ctrl.X, ctrl.Y, cur.X, cur.Y)

			case 'S':
				var a [4]float64
				if err := sc.numbers(a[:]); err != nil {
					return err
				}
				begin()
				c1 := cur
				if prev == 'C' || prev == 'S' {
					c1 = reflect(ctrl, cur)
				}
				ctrl = gg.Pt(base.X+a[0], base.Y+a[1])
				cur = gg.Pt(base.X+a[2], base.Y+a[3])
				sink.CubicTo(c1.X, c1.Y, ctrl.X, ctrl.Y, cur.X, cur.Y)

			case 'Q':
				var a [4]float64
				if err := sc.numbers(a[:]); err != nil {
					return err
				}
				begin()
				ctrl = gg.Pt(base.X+a[0], base.Y+a[1])
				cur = gg.Pt(base.X+a[2], base.Y+a[3])
				sink.QuadraticTo(ctrl.X, ctrl.Y, cur.X, cur.Y)

			case 'T':
				var a [2]float64
				if err := sc.numbers(a[:]); err != nil {
					return err
				}
				begin()
				if prev == 'Q' || prev == 'T' {
					ctrl = reflect(ctrl, cur)
				} else {
					ctrl = cur
				}
				cur = gg.Pt(base.X+a[0], base.Y+a[1])
				sink.QuadraticTo(ctrl.X, ctrl.Y, cur.X, cur.Y)

			case 'A':
				var r [3]float64
				if err := sc.numbers(r[:]); err != nil {
					return err
				}
				large, err := sc.flag()
				if err != nil {
					return err
				}
				sweep, err := sc.flag()
				if err != nil {
					return err
				}
				var a [2]float64
				if err := sc.numbers(a[:]); err != nil {
					return err
				}
				begin()
				end := gg.Pt(base.X+a[0], base.Y+a[1])
				arcTo(sink, cur, r[0], r[1], r[2], large, sweep, end)
				cur = end
			}
			prev = op
		}
	}
}

func reflect(p, about gg.Point) gg.Point {
	return gg.Pt(2*about.X-p.X, 2*about.Y-p.Y)
}

// arcTo converts an elliptical arc in endpoint form to cubic Béziers,
// following the center parameterization of SVG 1.1 appendix F.6.
func arcTo(sink pathSink, from gg.Point, rx, ry, rotation float64, large, sweep bool, to gg.Point) {
	if from == to {
		return
	}
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 {
		sink.LineTo(to.X, to.Y)
		return
	}

	phi := rotation * math.Pi / 180
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)

	dx := (from.X - to.X) / 2
	dy := (from.Y - to.Y) / 2
	x1 := cosPhi*dx + sinPhi*dy
	y1 := -sinPhi*dx + cosPhi*dy

	if lambda := x1*x1/(rx*rx) + y1*y1/(ry*ry); lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}

	num := rx*rx*ry*ry - rx*rx*y1*y1 - ry*ry*x1*x1
	den := rx*rx*y1*y1 + ry*ry*x1*x1
	coef := 0.0
	if den != 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1 / ry
	cyp := -coef * ry * x1 / rx

	cx := cosPhi*cxp - sinPhi*cyp + (from.X+to.X)/2
	cy := sinPhi*cxp + cosPhi*cyp + (from.Y+to.Y)/2

	theta1 := vectorAngle(1, 0, (x1-cxp)/rx, (y1-cyp)/ry)
	delta := vectorAngle((x1-cxp)/rx, (y1-cyp)/ry, (-x1-cxp)/rx, (-y1-cyp)/ry)
	if !sweep && delta > 0 {
		delta -= 2 * math.Pi
	} else if sweep && delta < 0 {
		delta += 2 * math.Pi
	}

	segments := int(math.Ceil(math.Abs(delta) / (math.Pi / 2)))
	if segments < 1 {
		segments = 1
	}
	step := delta / float64(segments)
	k := 4.0 / 3.0 * math.Tan(step/4)

	point := func(a float64) gg.Point {
		ca, sa := math.Cos(a), math.Sin(a)
		return gg.Pt(
			cx+rx*ca*cosPhi-ry*sa*sinPhi,
			cy+rx*ca*sinPhi+ry*sa*cosPhi,
		)
	}
	tangent := func(a float64) gg.Point {
		ca, sa := math.Cos(a), math.Sin(a)
		return gg.Pt(
			-rx*sa*cosPhi-ry*ca*sinPhi,
			-rx*sa*sinPhi+ry*ca*cosPhi,
		)
	}

	for i := 0; i < segments; i++ {
		a1 := theta1 + float64(i)*step
		a2 := a1 + step
		p1, p2 := point(a1), point(a2)
		if i == segments-1 {
			p2 = to
		}
		t1, t2 := tangent(a1), tangent(a2)
		sink.CubicTo(
			p1.X+k*t1.X, p1.Y+k*t1.Y,
			p2.X-k*t2.X, p2.Y-k*t2.Y,
			p2.X, p2.Y,
		)
	}
}

func vectorAngle(ux, uy, vx, vy float64) float64 {
	return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
}
