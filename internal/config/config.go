package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/svg2video/internal/effects"
)

// Canvas and timing constants shared by every capture session.
const (
	FPS         = 60
	Width       = 1920
	Height      = 1080
	OutroFrames = FPS // one second at full reveal
)

// Supported output formats.
const (
	FormatMP4  = "mp4"
	FormatWebM = "webm"
	FormatAVI  = "avi"
)

type Config struct {
	InputPath    string  `yaml:"input"`
	OutputVideo  string  `yaml:"output"`
	Title        string  `yaml:"title"`
	DrawDuration float64 `yaml:"duration"`
	HoldDuration float64 `yaml:"hold"`
	Background   string  `yaml:"background"`
	Easing       string  `yaml:"easing"`
	Format       string  `yaml:"format"`
	VideoEncoder string  `yaml:"encoder"`
	Quality      int     `yaml:"quality"`
	Workers      int     `yaml:"workers"`
	Realtime     bool    `yaml:"realtime"`
	PreviewPath  string  `yaml:"preview"`
	ShowStats    bool    `yaml:"stats"`
	MQTT         MQTT    `yaml:"mqtt"`
	BuildVersion string  `yaml:"-"`
}

// MQTT configures the optional progress publisher.
type MQTT struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Default returns the stock settings:
// 2s of drawing, 2s hold, black background.
func Default() *Config {
	return &Config{
		Title:        "Animation",
		DrawDuration: 2,
		HoldDuration: 2,
		Background:   "#000000",
		Easing:       "linear",
		Format:       FormatMP4,
		Workers:      1,
		MQTT: MQTT{
			Topic:    "svg2video/progress",
			ClientID: "svg2video",
		},
	}
}

// Load reads a YAML config file on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a capture session depends on.
func (c *Config) Validate() error {
	if err := checkDuration("duration", c.DrawDuration); err != nil {
		return err
	}
	if err := checkDuration("hold", c.HoldDuration); err != nil {
		return err
	}
	if _, err := ParseHexColor(c.Background); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case FormatMP4, FormatWebM, FormatAVI:
	default:
		return fmt.Errorf("unknown format %q (mp4, webm, avi)", c.Format)
	}
	if _, err := effects.Lookup(c.Easing); err != nil {
		return err
	}
	return nil
}

func checkDuration(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > MaxDuration {
		return fmt.Errorf("%s must be within [0, %g] seconds, got %v", name, MaxDuration, v)
	}
	return nil
}

// Animation extracts the immutable per-session animation settings.
func (c *Config) Animation() (Animation, error) {
	bg, err := ParseHexColor(c.Background)
	if err != nil {
		return Animation{}, err
	}
	return Animation{
		DrawDuration: c.DrawDuration,
		HoldDuration: c.HoldDuration,
		Background:   bg,
		Title:        c.Title,
		Easing:       c.Easing,
	}, nil
}

// Extension returns the file extension for the configured output format.
func (c *Config) Extension() string {
	return "." + strings.ToLower(c.Format)
}
