package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/director"
	"github.com/ivlev/svg2video/internal/video"
)

// Result is the outcome of one plan job.
type Result struct {
	Job    director.Job
	Output string
	Clip   *video.Clip
	Err    error
}

// CaptureFile renders cfg.InputPath and writes the clip to cfg.OutputVideo.
func CaptureFile(ctx context.Context, cfg *config.Config, opts ...Option) (*video.Clip, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	anim, err := cfg.Animation()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	opts = append([]Option{WithOutput(cfg.Format, cfg.VideoEncoder, cfg.Quality)}, opts...)
	clip, err := Capture(ctx, data, anim, opts...)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.OutputVideo), 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(cfg.OutputVideo, clip.Data, 0644); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}
	return clip, nil
}

// RunPlan captures every job of plan in its own session, at most workers at
// a time. One failed job does not stop the others; the joined error lists
// every failure.
func RunPlan(ctx context.Context, plan *director.Plan, base *config.Config, workers int, opts ...Option) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	now := time.Now()
	results := make([]Result, len(plan.Jobs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, job := range plan.Jobs {
		cfg := job.Apply(base, now)
		results[i] = Result{Job: job, Output: cfg.OutputVideo}
		g.Go(func() error {
			clip, err := CaptureFile(ctx, cfg, opts...)
			results[i].Clip = clip
			if err != nil {
				results[i].Err = fmt.Errorf("job %d (%s): %w", i+1, filepath.Base(job.Input), err)
			}
			return nil
		})
	}
	g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}
