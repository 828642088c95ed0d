package director

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/system"
)

// PlanVersion is written into every generated plan.
const PlanVersion = "1.0"

// GeneratePlan creates one job per SVG file in dir, in name order.
// Titles default to the file name without extension.
func GeneratePlan(dir string) (*Plan, error) {
	files, err := system.ListFiles(dir, ".svg")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no svg files in %s", dir)
	}

	plan := &Plan{Version: PlanVersion}
	for i, f := range files {
		plan.Jobs = append(plan.Jobs, Job{
			ID:    i + 1,
			Input: f,
			Title: titleFromName(f),
		})
	}
	return plan, nil
}

func titleFromName(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// Apply merges the job over base and returns a new config.
// Output defaults to output/<name>_<timestamp>.<ext>.
func (j Job) Apply(base *config.Config, now time.Time) *config.Config {
	cfg := *base
	cfg.InputPath = j.Input
	if j.Title != "" {
		cfg.Title = j.Title
	}
	if j.Duration > 0 {
		cfg.DrawDuration = j.Duration
	}
	if j.Hold > 0 {
		cfg.HoldDuration = j.Hold
	}
	if j.Background != "" {
		cfg.Background = j.Background
	}
	if j.Easing != "" {
		cfg.Easing = j.Easing
	}
	if j.Format != "" {
		cfg.Format = j.Format
	}
	cfg.OutputVideo = j.Output
	if cfg.OutputVideo == "" {
		cfg.OutputVideo = OutputPath(j.Input, cfg.Extension(), now)
	}
	return &cfg
}

// OutputPath builds the default output name for input.
func OutputPath(input, ext string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join("output", fmt.Sprintf("%s_%s%s", name, now.Format("2006-01-02_15-04-05"), ext))
}
