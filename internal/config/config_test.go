package config

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestFrameBudget(t *testing.T) {
	tests := []struct {
		draw, hold float64
		drawFrames int
		holdFrames int
		total      int
	}{
		{2, 2, 120, 120, 300},
		{0, 0, 0, 0, 60},
		{1.5, 0.25, 90, 15, 165},
		{0.01, 0, 0, 0, 60},
		{3.999, 1, 239, 60, 359},
		{math.Inf(1), 0, 216000, 0, 216060},
		{1e300, 1e300, 216000, 216000, 432060},
		{math.NaN(), math.Inf(-1), 0, 0, 60},
	}

	for _, tt := range tests {
		a := Animation{DrawDuration: tt.draw, HoldDuration: tt.hold}
		if got := a.DrawFrames(); got != tt.drawFrames {
			t.Errorf("draw=%v: expected %d draw frames, got %d", tt.draw, tt.drawFrames, got)
		}
		if got := a.HoldFrames(); got != tt.holdFrames {
			t.Errorf("hold=%v: expected %d hold frames, got %d", tt.hold, tt.holdFrames, got)
		}
		if got := a.TotalFrames(); got != tt.total {
			t.Errorf("draw=%v hold=%v: expected %d total frames, got %d", tt.draw, tt.hold, tt.total, got)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#1a2B3c")
	if err != nil {
		t.Fatalf("ParseHexColor failed: %v", err)
	}
	want := color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 0xff}
	if c != want {
		t.Errorf("expected %v, got %v", want, c)
	}

	if _, err := ParseHexColor("ff0000"); err != nil {
		t.Errorf("hash-less colour should parse: %v", err)
	}

	for _, bad := range []string{"", "#fff", "#12345g", "red"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cfg.DrawDuration = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative duration should be rejected")
	}

	for _, d := range []float64{math.Inf(1), math.NaN(), 1e300, MaxDuration + 1} {
		cfg = Default()
		cfg.DrawDuration = d
		if err := cfg.Validate(); err == nil {
			t.Errorf("duration %v should be rejected", d)
		}
		cfg = Default()
		cfg.HoldDuration = d
		if err := cfg.Validate(); err == nil {
			t.Errorf("hold %v should be rejected", d)
		}
	}

	cfg = Default()
	cfg.DrawDuration = MaxDuration
	if err := cfg.Validate(); err != nil {
		t.Errorf("duration at the cap should be accepted: %v", err)
	}

	cfg = Default()
	cfg.Format = "gif"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown format should be rejected")
	}

	cfg = Default()
	cfg.Easing = "out-elastic"
	if err := cfg.Validate(); err == nil {
		t.Error("non-monotone easing should be rejected")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("title: Pickaxe\nduration: 3\nbackground: \"#102030\"\nformat: avi\nmqtt:\n  broker: tcp://localhost:1883\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Title != "Pickaxe" || cfg.DrawDuration != 3 || cfg.Format != "avi" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.HoldDuration != 2 {
		t.Errorf("expected default hold 2, got %v", cfg.HoldDuration)
	}
	if cfg.MQTT.Topic != "svg2video/progress" || cfg.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("unexpected mqtt section: %+v", cfg.MQTT)
	}

	anim, err := cfg.Animation()
	if err != nil {
		t.Fatalf("Animation failed: %v", err)
	}
	if anim.Background != (color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}) {
		t.Errorf("unexpected background %v", anim.Background)
	}
	if cfg.Extension() != ".avi" {
		t.Errorf("expected .avi, got %s", cfg.Extension())
	}
}
