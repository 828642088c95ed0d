package engine

import (
	"context"
	"runtime"
	"time"
)

// Scheduler signals when the next frame may be produced. Next blocks until
// then or until ctx is done.
type Scheduler interface {
	Next(ctx context.Context) error
}

// Immediate yields to other goroutines between frames without waiting for
// wall-clock time. Offline encodes and tests use it.
type Immediate struct{}

func (Immediate) Next(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

// Paced releases one frame per interval, like a display refresh.
type Paced struct {
	ticker *time.Ticker
}

// NewPaced paces frames at fps frames per second.
func NewPaced(fps int) *Paced {
	if fps <= 0 {
		fps = 60
	}
	return &Paced{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

func (p *Paced) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ticker.C:
		return nil
	}
}

// Stop releases the ticker.
func (p *Paced) Stop() {
	p.ticker.Stop()
}

// Manual hands out frames one Step at a time.
type Manual struct {
	ch chan struct{}
}

func NewManual() *Manual {
	return &Manual{ch: make(chan struct{})}
}

// Step allows one more frame. It blocks until the session asks for it.
func (m *Manual) Step() {
	m.ch <- struct{}{}
}

func (m *Manual) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ch:
		return nil
	}
}
