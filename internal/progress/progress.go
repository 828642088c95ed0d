// Package progress carries (percent, stage) updates from a capture session
// to whoever is watching it.
package progress

import (
	"context"
	"log/slog"
	"math"
	"sync"
)

// Stage labels used by the capture pipeline.
const (
	StageCanvas     = "canvas"
	StageParsing    = "parsing"
	StageRendering  = "rendering"
	StageFinalizing = "finalizing"
)

// Percentages of the fixed stages. Rendering fills the band between
// CaptureStart and CaptureStart+CaptureSpan.
const (
	CanvasPercent = 10
	ParsePercent  = 20
	CaptureStart  = 30
	CaptureSpan   = 60
	FinishPercent = 100
)

type Update struct {
	Percent float64 `json:"percent"`
	Stage   string  `json:"stage"`
}

// Reporter receives updates. Implementations must not block for long: they
// are called from the frame loop.
type Reporter interface {
	Report(u Update)
}

// Func adapts a function to Reporter.
type Func func(u Update)

func (f Func) Report(u Update) { f(u) }

// Nop discards every update.
var Nop Reporter = Func(func(Update) {})

// Multi fans an update out to every reporter in order.
func Multi(rs ...Reporter) Reporter {
	var list []Reporter
	for _, r := range rs {
		if r != nil {
			list = append(list, r)
		}
	}
	return Func(func(u Update) {
		for _, r := range list {
			r.Report(u)
		}
	})
}

// Capture is the percentage reported after frame of total frames.
func Capture(frame, total int) float64 {
	if total <= 0 {
		return CaptureStart + CaptureSpan
	}
	f := float64(frame) / float64(total)
	if f > 1 {
		f = 1
	}
	if f < 0 {
		f = 0
	}
	return CaptureStart + f*CaptureSpan
}

// Monotonic clamps updates to [0, 100] and drops any that would move the
// percentage backwards.
type Monotonic struct {
	next Reporter

	mu   sync.Mutex
	last float64
	seen bool
}

func NewMonotonic(next Reporter) *Monotonic {
	return &Monotonic{next: next}
}

func (m *Monotonic) Report(u Update) {
	if math.IsNaN(u.Percent) {
		return
	}
	u.Percent = math.Max(0, math.Min(100, u.Percent))

	m.mu.Lock()
	if m.seen && u.Percent < m.last {
		m.mu.Unlock()
		return
	}
	m.last, m.seen = u.Percent, true
	m.mu.Unlock()

	m.next.Report(u)
}

// Last returns the highest percentage forwarded so far.
func (m *Monotonic) Last() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Latest keeps only the newest unread update. A slow reader never holds up
// the reporter; older values are overwritten.
type Latest struct {
	mu sync.Mutex
	ch chan Update
}

func NewLatest() *Latest {
	return &Latest{ch: make(chan Update, 1)}
}

func (l *Latest) Report(u Update) {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ch:
	default:
	}
	l.ch <- u
}

// C delivers the most recent update.
func (l *Latest) C() <-chan Update {
	return l.ch
}

// Log writes updates to a structured logger.
type Log struct {
	Logger *slog.Logger
	Level  slog.Level
}

func (l Log) Report(u Update) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), l.Level, "progress", "percent", math.Round(u.Percent*10)/10, "stage", u.Stage)
}
