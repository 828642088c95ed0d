// Package timeline maps a frame index to what has to be visible on it.
package timeline

import (
	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/effects"
)

// Timeline is the frame budget of one session.
type Timeline struct {
	DrawFrames  int
	HoldFrames  int
	TotalFrames int

	curve effects.Curve
}

// State is everything the compositor needs for one frame.
type State struct {
	Frame    int
	Revealed []float64
	Title    string
}

// New derives the frame budget from anim. An unknown easing falls back to
// linear; config.Validate rejects it earlier.
func New(anim config.Animation) Timeline {
	curve, err := effects.Lookup(anim.Easing)
	if err != nil {
		curve = nil
	}
	return Timeline{
		DrawFrames:  anim.DrawFrames(),
		HoldFrames:  anim.HoldFrames(),
		TotalFrames: anim.TotalFrames(),
		curve:       curve,
	}
}

// Progress is min(1, frame/DrawFrames), or 1 when there is nothing to draw.
func (tl Timeline) Progress(frame int) float64 {
	if tl.DrawFrames <= 0 {
		return 1
	}
	if frame <= 0 {
		return 0
	}
	if frame >= tl.DrawFrames {
		return 1
	}
	return float64(frame) / float64(tl.DrawFrames)
}

// Fraction is the eased share of every outline that is revealed at frame.
func (tl Timeline) Fraction(frame int) float64 {
	p := tl.Progress(frame)
	if p >= 1 {
		return 1
	}
	return effects.Apply(tl.curve, p)
}

// TitleRunes is how many of the n title characters are shown at frame.
func (tl Timeline) TitleRunes(frame, n int) int {
	if n <= 0 {
		return 0
	}
	if frame >= tl.DrawFrames {
		return n
	}
	if frame <= 0 {
		return 0
	}
	return n * frame / tl.DrawFrames
}

// State computes the frame state for the given element lengths and title.
func (tl Timeline) State(frame int, lengths []float64, title string) State {
	if frame < 0 {
		frame = 0
	}

	f := tl.Fraction(frame)
	revealed := make([]float64, len(lengths))
	for i, l := range lengths {
		if l <= 0 {
			continue
		}
		r := l * f
		if r > l {
			r = l
		}
		revealed[i] = r
	}

	runes := []rune(title)
	return State{
		Frame:    frame,
		Revealed: revealed,
		Title:    string(runes[:tl.TitleRunes(frame, len(runes))]),
	}
}

// StateAt is New(anim).State(frame, lengths, title).
func StateAt(frame int, anim config.Animation, lengths []float64, title string) State {
	return New(anim).State(frame, lengths, title)
}
