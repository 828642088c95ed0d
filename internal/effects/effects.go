package effects

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fogleman/ease"
)

// Curve maps a linear progress value in [0, 1] to the reveal fraction.
type Curve func(t float64) float64

// Only curves that are monotone with f(0)=0 and f(1)=1 are registered:
// overshooting curves (back, elastic, bounce) would let a stroke grow past
// its length and then shrink.
var curves = map[string]Curve{
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"in-cubic":     ease.InCubic,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"in-sine":      ease.InSine,
	"out-sine":     ease.OutSine,
	"in-out-sine":  ease.InOutSine,
}

// Lookup returns the named curve. An empty name means linear.
func Lookup(name string) (Curve, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "linear"
	}
	c, ok := curves[key]
	if !ok {
		return nil, fmt.Errorf("unknown easing %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// Names lists the registered curves in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(curves))
	for n := range curves {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply evaluates c at t with both the input and the output clamped to
// [0, 1]. A nil curve is linear.
func Apply(c Curve, t float64) float64 {
	t = clamp01(t)
	if c == nil {
		return t
	}
	return clamp01(c(t))
}

func clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
