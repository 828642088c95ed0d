package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/progress"
	"github.com/ivlev/svg2video/internal/renderer"
	"github.com/ivlev/svg2video/internal/source"
	"github.com/ivlev/svg2video/internal/system"
	"github.com/ivlev/svg2video/internal/timeline"
	"github.com/ivlev/svg2video/internal/video"
)

// State is the lifecycle stage of a Session.
type State int

const (
	Idle State = iota
	Capturing
	Finalizing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Finalizing:
		return "finalizing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Compositor draws one frame. *renderer.Compositor implements it.
type Compositor interface {
	Compose(dst *image.RGBA, doc *source.Document, st timeline.State) error
}

var errSessionOver = errors.New("session already finished")

// Session captures one document into one clip. All of its state is touched
// only by the goroutine that calls Tick or Run.
type Session struct {
	doc      *source.Document
	anim     config.Animation
	tl       timeline.Timeline
	lengths  []float64
	opts     settings
	reporter progress.Reporter

	comp     Compositor
	ownsComp io.Closer
	sched    Scheduler
	stopper  interface{ Stop() }
	sink     video.Sink
	pool     *system.FramePool

	state State
	frame int
	clip  *video.Clip
	err   error
	stats Stats
}

// NewSession prepares an idle session. Nothing is opened until the first
// Tick.
func NewSession(doc *source.Document, anim config.Animation, opts ...Option) *Session {
	s := &Session{
		doc:  doc,
		anim: anim,
		tl:   timeline.New(anim),
		opts: buildSettings(opts),
	}
	if doc != nil {
		s.lengths = doc.Lengths()
	}
	s.reporter = progress.NewMonotonic(s.opts.reporter)
	s.comp = s.opts.compositor
	s.sched = s.opts.scheduler
	if s.opts.newSched != nil {
		s.sched = s.opts.newSched()
		s.stopper, _ = s.sched.(interface{ Stop() })
	}
	s.pool = s.opts.pool
	if s.pool == nil {
		s.pool = system.NewFramePool(config.Width, config.Height)
	}
	return s
}

func (s *Session) State() State { return s.state }

// Frame is the index of the next frame to be captured.
func (s *Session) Frame() int { return s.frame }

func (s *Session) TotalFrames() int { return s.tl.TotalFrames }

// Stats reports timings collected so far.
func (s *Session) Stats() Stats { return s.stats }

// Tick advances the session by exactly one frame. The first call opens the
// sink; the call that submits the last frame also finalizes the clip. done
// is true once the session reached Completed or Failed.
func (s *Session) Tick(ctx context.Context) (done bool, err error) {
	switch s.state {
	case Completed:
		return true, nil
	case Failed:
		return true, s.err
	}

	if err := ctx.Err(); err != nil {
		return true, s.fail(err)
	}

	if s.state == Idle {
		if err := s.begin(ctx); err != nil {
			return true, s.fail(err)
		}
	}

	if s.frame < s.tl.TotalFrames {
		if err := s.captureFrame(); err != nil {
			return true, s.fail(err)
		}
	}

	if s.frame >= s.tl.TotalFrames {
		if err := s.finalize(); err != nil {
			return true, s.fail(err)
		}
		return true, nil
	}
	return false, nil
}

// Run drives the session to completion, waiting on the scheduler before
// every frame.
func (s *Session) Run(ctx context.Context) (*video.Clip, error) {
	for {
		if s.state == Idle || s.state == Capturing {
			if err := s.sched.Next(ctx); err != nil {
				return nil, s.fail(err)
			}
		}
		done, err := s.Tick(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			if s.clip == nil {
				return nil, errSessionOver
			}
			return s.clip, nil
		}
	}
}

// Job is a session running on its own goroutine.
type Job struct {
	done chan struct{}
	clip *video.Clip
	err  error
}

// Start runs the session in the background.
func (s *Session) Start(ctx context.Context) *Job {
	j := &Job{done: make(chan struct{})}
	go func() {
		defer close(j.done)
		j.clip, j.err = s.Run(ctx)
	}()
	return j
}

// Done is closed once the session finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the session finished and returns its result.
func (j *Job) Wait() (*video.Clip, error) {
	<-j.done
	return j.clip, j.err
}

func (s *Session) begin(ctx context.Context) error {
	if s.doc == nil {
		return fmt.Errorf("session has no document")
	}
	s.stats.Start = time.Now()

	if s.comp == nil {
		c, err := renderer.NewCompositor(config.Width, config.Height, s.anim.Background)
		if err != nil {
			return fmt.Errorf("init compositor: %w", err)
		}
		s.comp, s.ownsComp = c, c
	}

	p := video.Params{
		Width:   config.Width,
		Height:  config.Height,
		FPS:     config.FPS,
		Format:  s.opts.format,
		Encoder: s.opts.encoder,
		Quality: s.opts.quality,
	}
	sink, err := s.opts.opener.Open(ctx, p)
	if err != nil {
		var ee *video.EncoderError
		if !errors.As(err, &ee) {
			err = &video.EncoderError{Op: "open", Err: err}
		}
		return err
	}
	s.sink = sink
	s.transition(Capturing)
	return nil
}

func (s *Session) captureFrame() error {
	st := s.tl.State(s.frame, s.lengths, s.anim.Title)

	buf := s.pool.Get()
	defer s.pool.Put(buf)

	t0 := time.Now()
	if err := s.comp.Compose(buf, s.doc, st); err != nil {
		return fmt.Errorf("compose frame %d: %w", s.frame, err)
	}
	t1 := time.Now()
	if err := s.sink.WriteFrame(buf); err != nil {
		var ee *video.EncoderError
		if !errors.As(err, &ee) {
			err = &video.EncoderError{Op: "write", Err: err}
		}
		return fmt.Errorf("frame %d: %w", s.frame, err)
	}
	s.stats.Compose += t1.Sub(t0)
	s.stats.Encode += time.Since(t1)

	s.frame++
	s.stats.Frames = s.frame
	s.reporter.Report(progress.Update{
		Percent: progress.Capture(s.frame, s.tl.TotalFrames),
		Stage:   progress.StageRendering,
	})
	return nil
}

func (s *Session) finalize() error {
	s.transition(Finalizing)
	s.reporter.Report(progress.Update{Percent: progress.FinishPercent, Stage: progress.StageFinalizing})

	t0 := time.Now()
	clip, err := s.sink.Close()
	s.sink = nil
	if err != nil {
		var ee *video.EncoderError
		if !errors.As(err, &ee) {
			err = &video.EncoderError{Op: "close", Err: err}
		}
		return err
	}
	s.stats.Finalize = time.Since(t0)
	s.stats.Total = time.Since(s.stats.Start)

	s.clip = clip
	s.release()
	s.transition(Completed)
	if s.opts.onStats != nil {
		s.opts.onStats(s.stats)
	}
	s.opts.logger.Info("clip ready",
		"frames", clip.Frames,
		"bytes", len(clip.Data),
		"container", clip.Container,
		"elapsed", s.stats.Total.Round(time.Millisecond))
	return nil
}

// fail moves the session to Failed, discarding anything the sink buffered.
func (s *Session) fail(err error) error {
	if s.state == Failed {
		return s.err
	}
	if s.sink != nil {
		if aerr := s.sink.Abort(); aerr != nil {
			s.opts.logger.Warn("abort encoder", "err", aerr)
		}
		s.sink = nil
	}
	s.release()
	s.err = err
	s.clip = nil
	s.transition(Failed)
	s.opts.logger.Error("capture failed", "frame", s.frame, "err", err)
	return err
}

func (s *Session) release() {
	if s.ownsComp != nil {
		if err := s.ownsComp.Close(); err != nil {
			s.opts.logger.Warn("close compositor", "err", err)
		}
		s.ownsComp = nil
		s.comp = nil
	}
	if s.stopper != nil {
		s.stopper.Stop()
		s.stopper = nil
	}
}

func (s *Session) transition(to State) {
	s.opts.logger.Debug("session state", "from", s.state, "to", to, "frame", s.frame, "total", s.tl.TotalFrames)
	s.state = to
}
