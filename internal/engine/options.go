package engine

import (
	"log/slog"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/progress"
	"github.com/ivlev/svg2video/internal/system"
	"github.com/ivlev/svg2video/internal/video"
)

type settings struct {
	compositor Compositor
	opener     video.Opener
	scheduler  Scheduler
	newSched   func() Scheduler
	reporter   progress.Reporter
	logger     *slog.Logger
	pool       *system.FramePool
	format     string
	encoder    string
	quality    int
	onStats    func(Stats)
}

// Option customizes a Session or a Capture call.
type Option func(*settings)

func buildSettings(opts []Option) settings {
	s := settings{
		opener:    video.DefaultOpener,
		scheduler: Immediate{},
		reporter:  progress.Nop,
		format:    config.FormatMP4,
	}
	for _, o := range opts {
		o(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// WithCompositor replaces the default gg compositor.
func WithCompositor(c Compositor) Option {
	return func(s *settings) { s.compositor = c }
}

// WithOpener replaces the encoder sink factory.
func WithOpener(o video.Opener) Option {
	return func(s *settings) { s.opener = o }
}

func WithScheduler(sc Scheduler) Option {
	return func(s *settings) { s.scheduler = sc }
}

// WithSchedulerFunc gives every session its own scheduler, built when the
// session is created. Schedulers with a Stop method are stopped when the
// session ends. It takes precedence over WithScheduler.
func WithSchedulerFunc(fn func() Scheduler) Option {
	return func(s *settings) { s.newSched = fn }
}

func WithReporter(r progress.Reporter) Option {
	return func(s *settings) {
		if r != nil {
			s.reporter = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithFramePool shares frame buffers between sessions of the same size.
func WithFramePool(p *system.FramePool) Option {
	return func(s *settings) { s.pool = p }
}

// WithOutput selects container format, ffmpeg encoder and quality.
func WithOutput(format, encoder string, quality int) Option {
	return func(s *settings) {
		if format != "" {
			s.format = format
		}
		s.encoder = encoder
		s.quality = quality
	}
}

// WithStatsFunc receives the timings of every completed session.
func WithStatsFunc(fn func(Stats)) Option {
	return func(s *settings) { s.onStats = fn }
}
