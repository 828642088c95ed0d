package source

import (
	"bytes"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"github.com/gogpu/gg"
)

// ViewBox is the coordinate system of the document in user units.
type ViewBox struct {
	X, Y          float64
	Width, Height float64
}

// Polyline is a flattened run of connected points in view-box units.
type Polyline []gg.Point

// Element is one drawable outline of the document.
type Element struct {
	Tag         string
	Outline     []Polyline
	Stroke      color.RGBA
	StrokeWidth float64
	// Length is the arc length of the outline; 0 when it could not be measured.
	Length float64
}

// Warning describes an element that was kept but could not be measured.
type Warning struct {
	Index  int
	Tag    string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("element %d <%s>: %s", w.Index, w.Tag, w.Reason)
}

// Document is the parsed, measured vector graphic. It is immutable once
// returned by Parse.
type Document struct {
	ViewBox  ViewBox
	Elements []Element
	Warnings []Warning
}

// Lengths returns the arc length of every element in document order.
func (d *Document) Lengths() []float64 {
	out := make([]float64, len(d.Elements))
	for i, el := range d.Elements {
		out[i] = el.Length
	}
	return out
}

// ParseError reports input that is not a usable vector document.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse svg: %s: %v", e.Reason, e.Err)
	}
	return "parse svg: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser extracts outlines from SVG documents.
type Parser struct {
	Logger *slog.Logger
}

// Parse uses a Parser with the default logger.
func Parse(data []byte) (*Document, error) {
	return (&Parser{}).Parse(data)
}

func (p *Parser) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Parse decodes data, collects the drawable elements and measures them.
func (p *Parser) Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Reason: "empty document"}
	}

	root, err := decodeTree(data)
	if err != nil {
		return nil, &ParseError{Reason: "malformed xml", Err: err}
	}
	svg := root.find("svg")
	if svg == nil {
		return nil, &ParseError{Reason: "no <svg> element"}
	}

	doc := &Document{ViewBox: readViewBox(svg)}
	vb := doc.ViewBox
	step := math.Hypot(vb.Width, vb.Height) / flattenDivisions

	for i, n := range collectElements(svg) {
		el := Element{Tag: n.name}
		el.Stroke, el.StrokeWidth = strokeOf(n)

		path, reason := geometryOf(n)
		if path != nil {
			el.Length = measure(path, step)
			el.Outline = flatten(path, step)
		}
		if el.Length == 0 && reason == "" {
			reason = "outline has zero length"
		}
		if reason != "" {
			w := Warning{Index: i, Tag: n.name, Reason: reason}
			doc.Warnings = append(doc.Warnings, w)
			p.logger().Warn("geometry warning", "index", i, "tag", n.name, "reason", reason)
		}
		doc.Elements = append(doc.Elements, el)
	}

	p.logger().Debug("svg parsed",
		"elements", len(doc.Elements),
		"warnings", len(doc.Warnings),
		"viewbox", fmt.Sprintf("%g %g %g %g", vb.X, vb.Y, vb.Width, vb.Height))
	return doc, nil
}

func measure(path *gg.Path, step float64) float64 {
	l := path.Length(step / 100)
	if math.IsNaN(l) || math.IsInf(l, 0) || l < 0 {
		return 0
	}
	return l
}
