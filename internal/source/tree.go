package source

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

type node struct {
	name     string
	attrs    map[string]string
	children []*node
}

func (n *node) attr(name string) string {
	return n.attrs[name]
}

// find returns n or its first descendant with the given local name.
func (n *node) find(name string) *node {
	if n.name == name {
		return n
	}
	for _, c := range n.children {
		if f := c.find(name); f != nil {
			return f
		}
	}
	return nil
}

func decodeTree(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = xml.HTMLEntity

	doc := &node{}
	stack := []*node{doc}
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: make(map[string]string, len(t.Attr))}
			for _, a := range t.Attr {
				n.attrs[a.Name.Local] = a.Value
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	if len(doc.children) == 0 {
		return nil, errors.New("no root element")
	}
	return doc, nil
}

// Containers whose content is never painted directly.
var hiddenContainers = map[string]bool{
	"defs":     true,
	"clipPath": true,
	"mask":     true,
	"symbol":   true,
	"marker":   true,
	"pattern":  true,
	"metadata": true,
}

// Root children that carry no geometry at all.
var nonGraphic = map[string]bool{
	"defs":     true,
	"metadata": true,
	"title":    true,
	"desc":     true,
	"style":    true,
	"script":   true,
}

// collectElements returns every rendered <path> below svg in document
// order. Without any, it falls back to the graphic children of svg.
func collectElements(svg *node) []*node {
	var paths []*node
	var walk func(n *node)
	walk = func(n *node) {
		for _, c := range n.children {
			if hiddenContainers[c.name] {
				continue
			}
			if c.name == "path" {
				paths = append(paths, c)
			}
			walk(c)
		}
	}
	walk(svg)
	if len(paths) > 0 {
		return paths
	}

	var fallback []*node
	for _, c := range svg.children {
		if !nonGraphic[c.name] {
			fallback = append(fallback, c)
		}
	}
	return fallback
}

const defaultExtent = 100

func readViewBox(svg *node) ViewBox {
	if vb, ok := parseViewBox(svg.attr("viewBox")); ok {
		return vb
	}
	return ViewBox{
		Width:  parseExtent(svg.attr("width")),
		Height: parseExtent(svg.attr("height")),
	}
}

func parseViewBox(s string) (ViewBox, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return ViewBox{}, false
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil || !finite(n) {
			return ViewBox{}, false
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return ViewBox{}, false
	}
	return ViewBox{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, true
}

// parseExtent reads a width/height attribute. Only plain numbers and px are
// understood; anything else falls back to 100.
func parseExtent(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !finite(v) || v <= 0 {
		return defaultExtent
	}
	return v
}
