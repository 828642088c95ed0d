package effects

import (
	"math"
	"testing"
)

func TestCurvesAreMonotone(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			c, err := Lookup(name)
			if err != nil {
				t.Fatalf("Lookup(%q) failed: %v", name, err)
			}

			if v := Apply(c, 0); math.Abs(v) > 1e-9 {
				t.Errorf("f(0) = %f, expected 0", v)
			}
			if v := Apply(c, 1); math.Abs(v-1) > 1e-9 {
				t.Errorf("f(1) = %f, expected 1", v)
			}

			prev := 0.0
			for i := 0; i <= 200; i++ {
				v := Apply(c, float64(i)/200)
				if v < prev-1e-12 {
					t.Fatalf("curve decreased at step %d: %f < %f", i, v, prev)
				}
				prev = v
			}
		})
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup(""); err != nil {
		t.Errorf("empty name should resolve to linear: %v", err)
	}
	if _, err := Lookup("In-Out-Quad"); err != nil {
		t.Errorf("lookup should be case-insensitive: %v", err)
	}
	if _, err := Lookup("out-bounce"); err == nil {
		t.Error("expected error for unregistered curve")
	}
}

func TestApplyClamps(t *testing.T) {
	if v := Apply(nil, 1.7); v != 1 {
		t.Errorf("expected clamp to 1, got %f", v)
	}
	if v := Apply(nil, -0.3); v != 0 {
		t.Errorf("expected clamp to 0, got %f", v)
	}
	if v := Apply(nil, 0.25); v != 0.25 {
		t.Errorf("nil curve should be linear, got %f", v)
	}
}
