package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gg"

	"github.com/ivlev/svg2video/internal/config"
	"github.com/ivlev/svg2video/internal/director"
	"github.com/ivlev/svg2video/internal/progress"
	"github.com/ivlev/svg2video/internal/source"
	"github.com/ivlev/svg2video/internal/timeline"
	"github.com/ivlev/svg2video/internal/video"
)

const lineSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
  <path d="M10 50 L90 50" stroke="#ff0000" stroke-width="4"/>
</svg>`

// fakeCompositor records the frame states it was asked to draw.
type fakeCompositor struct {
	states []timeline.State
	failAt int
}

func (c *fakeCompositor) Compose(dst *image.RGBA, doc *source.Document, st timeline.State) error {
	if c.failAt > 0 && st.Frame == c.failAt {
		return fmt.Errorf("boom")
	}
	rev := append([]float64(nil), st.Revealed...)
	st.Revealed = rev
	c.states = append(c.states, st)
	dst.SetRGBA(0, 0, color.RGBA{R: uint8(st.Frame), A: 255})
	return nil
}

// fakeSink keeps frame markers instead of encoding.
type fakeSink struct {
	frames    []uint8
	failWrite int
	failClose bool
	closed    bool
	aborted   bool
}

func (s *fakeSink) WriteFrame(img *image.RGBA) error {
	if s.failWrite > 0 && len(s.frames) == s.failWrite {
		return fmt.Errorf("pipe closed")
	}
	s.frames = append(s.frames, img.RGBAAt(0, 0).R)
	return nil
}

func (s *fakeSink) Close() (*video.Clip, error) {
	s.closed = true
	if s.failClose {
		return nil, &video.EncoderError{Op: "close", Err: fmt.Errorf("moov atom missing")}
	}
	return &video.Clip{Data: append([]byte(nil), s.frames...), MIMEType: "video/test", Container: "test", Frames: len(s.frames)}, nil
}

func (s *fakeSink) Abort() error {
	s.aborted = true
	return nil
}

type fakeOpener struct {
	sink    *fakeSink
	opened  int
	params  video.Params
	openErr error
}

func (o *fakeOpener) Open(ctx context.Context, p video.Params) (video.Sink, error) {
	o.opened++
	o.params = p
	if o.openErr != nil {
		return nil, o.openErr
	}
	return o.sink, nil
}

type recorder struct {
	updates []progress.Update
}

func (r *recorder) Report(u progress.Update) { r.updates = append(r.updates, u) }

func testAnim() config.Animation {
	return config.Animation{
		DrawDuration: 0.5,
		Background:   color.RGBA{A: 255},
		Title:        "Logo",
		Easing:       "linear",
	}
}

func newFakes() (*fakeCompositor, *fakeOpener) {
	return &fakeCompositor{}, &fakeOpener{sink: &fakeSink{}}
}

func TestCaptureEmptyDocument(t *testing.T) {
	comp, op := newFakes()
	anim := testAnim()

	clip, err := Capture(context.Background(), []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"></svg>`), anim,
		WithCompositor(comp), WithOpener(op))
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if clip.Frames != anim.TotalFrames() {
		t.Errorf("Expected %d frames, got %d", anim.TotalFrames(), clip.Frames)
	}
	if len(comp.states) != anim.TotalFrames() {
		t.Fatalf("Expected %d composed frames, got %d", anim.TotalFrames(), len(comp.states))
	}
	last := comp.states[len(comp.states)-1]
	if len(last.Revealed) != 0 || last.Title != "Logo" {
		t.Errorf("Unexpected final state: %+v", last)
	}
}

func TestCaptureParseErrorOpensNothing(t *testing.T) {
	comp, op := newFakes()
	rec := &recorder{}

	_, err := Capture(context.Background(), []byte("<html><body/></html>"), testAnim(),
		WithCompositor(comp), WithOpener(op), WithReporter(rec))

	var pe *source.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if op.opened != 0 || len(comp.states) != 0 {
		t.Errorf("Expected no sink and no frames, got opened=%d frames=%d", op.opened, len(comp.states))
	}
	if len(rec.updates) != 1 || rec.updates[0].Stage != progress.StageCanvas {
		t.Errorf("Expected only the canvas update, got %+v", rec.updates)
	}
}

func TestCaptureProgress(t *testing.T) {
	comp, op := newFakes()
	rec := &recorder{}

	if _, err := Capture(context.Background(), []byte(lineSVG), testAnim(),
		WithCompositor(comp), WithOpener(op), WithReporter(rec)); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if len(rec.updates) < 4 {
		t.Fatalf("Too few updates: %d", len(rec.updates))
	}
	first, second := rec.updates[0], rec.updates[1]
	if first.Percent != 10 || first.Stage != progress.StageCanvas {
		t.Errorf("Unexpected first update %+v", first)
	}
	if second.Percent != 20 || second.Stage != progress.StageParsing {
		t.Errorf("Unexpected second update %+v", second)
	}
	for i := 1; i < len(rec.updates); i++ {
		if rec.updates[i].Percent < rec.updates[i-1].Percent {
			t.Fatalf("Progress decreased at %d: %v -> %v", i, rec.updates[i-1].Percent, rec.updates[i].Percent)
		}
	}
	last := rec.updates[len(rec.updates)-1]
	if last.Percent != 100 || last.Stage != progress.StageFinalizing {
		t.Errorf("Expected 100 finalizing, got %+v", last)
	}
	if !op.sink.closed {
		t.Error("Sink was not closed")
	}
}

func TestFramesInOrder(t *testing.T) {
	comp, op := newFakes()
	doc, err := source.Parse([]byte(lineSVG))
	if err != nil {
		t.Fatal(err)
	}
	anim := testAnim()

	s := NewSession(doc, anim, WithCompositor(comp), WithOpener(op))
	clip, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if s.State() != Completed {
		t.Errorf("Expected completed, got %s", s.State())
	}

	for i, st := range comp.states {
		if st.Frame != i {
			t.Fatalf("Frame %d composed as %d", i, st.Frame)
		}
	}
	for i, marker := range op.sink.frames {
		if int(marker) != i%256 {
			t.Fatalf("Sink frame %d carries marker %d", i, marker)
		}
	}
	if !bytes.Equal(clip.Data, op.sink.frames) {
		t.Error("Clip does not hold the submitted frames")
	}

	draw := anim.DrawFrames()
	length := doc.Elements[0].Length
	if got := comp.states[draw].Revealed[0]; got != length {
		t.Errorf("Expected full reveal %v at frame %d, got %v", length, draw, got)
	}
	if got := comp.states[0].Revealed[0]; got != 0 {
		t.Errorf("Expected nothing revealed at frame 0, got %v", got)
	}
	if p := op.params; p.Width != config.Width || p.Height != config.Height || p.FPS != config.FPS {
		t.Errorf("Sink opened with %+v", p)
	}
}

func TestEncoderFailures(t *testing.T) {
	doc := &source.Document{ViewBox: source.ViewBox{Width: 10, Height: 10}}

	tests := []struct {
		name      string
		opener    *fakeOpener
		wantAbort bool
	}{
		{"open", &fakeOpener{openErr: fmt.Errorf("ffmpeg not found")}, false},
		{"write", &fakeOpener{sink: &fakeSink{failWrite: 5}}, true},
		{"close", &fakeOpener{sink: &fakeSink{failClose: true}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(doc, testAnim(), WithCompositor(&fakeCompositor{}), WithOpener(tt.opener))
			clip, err := s.Run(context.Background())

			var ee *video.EncoderError
			if !errors.As(err, &ee) {
				t.Fatalf("Expected EncoderError, got %v", err)
			}
			if ee.Op != tt.name {
				t.Errorf("Expected op %s, got %s", tt.name, ee.Op)
			}
			if clip != nil {
				t.Error("Expected no clip")
			}
			if s.State() != Failed {
				t.Errorf("Expected failed, got %s", s.State())
			}
			if tt.opener.sink != nil && tt.opener.sink.aborted != tt.wantAbort {
				t.Errorf("Expected aborted=%v", tt.wantAbort)
			}

			// A failed session stays failed.
			if done, again := s.Tick(context.Background()); !done || again != err {
				t.Errorf("Expected the same error after failure, got %v", again)
			}
		})
	}
}

func TestComposeFailureAbortsSink(t *testing.T) {
	op := &fakeOpener{sink: &fakeSink{}}
	doc := &source.Document{ViewBox: source.ViewBox{Width: 10, Height: 10}}

	s := NewSession(doc, testAnim(), WithCompositor(&fakeCompositor{failAt: 3}), WithOpener(op))
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("Expected compose error")
	}
	if !op.sink.aborted || op.sink.closed {
		t.Errorf("Expected aborted and not closed sink, got %+v", op.sink)
	}
	if len(op.sink.frames) != 3 {
		t.Errorf("Expected 3 frames before failure, got %d", len(op.sink.frames))
	}
}

func TestTickStepsOneFrame(t *testing.T) {
	comp, op := newFakes()
	doc := &source.Document{
		ViewBox:  source.ViewBox{Width: 10, Height: 10},
		Elements: []source.Element{{Outline: []source.Polyline{{gg.Pt(0, 0), gg.Pt(10, 0)}}, Length: 10}},
	}
	anim := testAnim()
	s := NewSession(doc, anim, WithCompositor(comp), WithOpener(op))
	ctx := context.Background()

	if s.State() != Idle || op.opened != 0 {
		t.Fatal("Session must not open anything before the first tick")
	}
	for i := 1; i < anim.TotalFrames(); i++ {
		done, err := s.Tick(ctx)
		if err != nil || done {
			t.Fatalf("Tick %d: done=%v err=%v", i, done, err)
		}
		if s.Frame() != i || s.State() != Capturing {
			t.Fatalf("After tick %d: frame=%d state=%s", i, s.Frame(), s.State())
		}
	}
	done, err := s.Tick(ctx)
	if !done || err != nil {
		t.Fatalf("Last tick: done=%v err=%v", done, err)
	}
	if s.State() != Completed || op.opened != 1 {
		t.Errorf("Expected completed with one sink, got %s opened=%d", s.State(), op.opened)
	}
	if s.Stats().Frames != anim.TotalFrames() {
		t.Errorf("Stats frames %d", s.Stats().Frames)
	}
}

func TestManualScheduler(t *testing.T) {
	comp, op := newFakes()
	doc := &source.Document{ViewBox: source.ViewBox{Width: 10, Height: 10}}
	anim := testAnim()
	m := NewManual()

	job := NewSession(doc, anim, WithCompositor(comp), WithOpener(op), WithScheduler(m)).Start(context.Background())

	for i := 0; i < anim.TotalFrames(); i++ {
		select {
		case <-job.Done():
			t.Fatalf("Session finished after %d steps", i)
		default:
		}
		m.Step()
	}

	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Session did not finish")
	}
	clip, err := job.Wait()
	if err != nil || clip.Frames != anim.TotalFrames() {
		t.Fatalf("Unexpected result: %v %v", clip, err)
	}
}

func TestCancelFailsSession(t *testing.T) {
	comp, op := newFakes()
	doc := &source.Document{ViewBox: source.ViewBox{Width: 10, Height: 10}}
	m := NewManual()
	ctx, cancel := context.WithCancel(context.Background())

	job := NewSession(doc, testAnim(), WithCompositor(comp), WithOpener(op), WithScheduler(m)).Start(ctx)
	m.Step()
	m.Step()
	cancel()

	clip, err := job.Wait()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if clip != nil {
		t.Error("Expected no clip after cancel")
	}
	if !op.sink.aborted {
		t.Error("Expected aborted sink")
	}
}

func TestPacedScheduler(t *testing.T) {
	fast := NewPaced(1000)
	defer fast.Stop()
	if err := fast.Next(context.Background()); err != nil {
		t.Fatal(err)
	}

	slow := NewPaced(1)
	defer slow.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := slow.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCaptureMJPEG(t *testing.T) {
	if testing.Short() {
		t.Skip("full-size render")
	}
	anim := testAnim()
	anim.DrawDuration = 0.1

	clip, err := Capture(context.Background(), []byte(lineSVG), anim, WithOutput(config.FormatAVI, "", 0))
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if clip.Container != "avi" || clip.Frames != anim.TotalFrames() {
		t.Errorf("Unexpected clip: %s %d frames", clip.Container, clip.Frames)
	}
	if !bytes.HasPrefix(clip.Data, []byte("RIFF")) {
		t.Error("Expected RIFF header")
	}
}

func TestStatsReport(t *testing.T) {
	st := Stats{Total: 2 * time.Second, Compose: time.Second, Encode: 500 * time.Millisecond, Frames: 120}
	if st.FPS() != 60 {
		t.Errorf("Expected 60 fps, got %v", st.FPS())
	}
	report := st.Report("test", nil)
	if !bytes.Contains([]byte(report), []byte("Effective FPS: 60.00")) {
		t.Errorf("Unexpected report:\n%s", report)
	}

	entry := st.LogEntry(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), "test", "in/logo.svg")
	path := filepath.Join(t.TempDir(), BenchmarkLog)
	if err := AppendBenchmark(path, entry); err != nil {
		t.Fatal(err)
	}
	if err := AppendBenchmark(path, entry); err != nil {
		t.Fatal(err)
	}
}

func TestRunPlan(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.svg")
	bad := filepath.Join(dir, "bad.svg")
	if err := os.WriteFile(good, []byte(lineSVG), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("<svg><path d="), 0644); err != nil {
		t.Fatal(err)
	}

	plan := &director.Plan{Jobs: []director.Job{
		{Input: good, Output: filepath.Join(dir, "out", "a.test"), Duration: 0.1},
		{Input: bad, Output: filepath.Join(dir, "out", "b.test")},
		{Input: good, Output: filepath.Join(dir, "out", "c.test"), Title: "C"},
	}}

	// Every session gets its own sink.
	opener := video.OpenerFunc(func(ctx context.Context, p video.Params) (video.Sink, error) {
		return &fakeSink{}, nil
	})

	results, err := RunPlan(context.Background(), plan, config.Default(), 2, WithOpener(opener),
		WithCompositor(nopCompositor{}))
	if err == nil {
		t.Fatal("Expected the broken job to be reported")
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	var pe *source.ParseError
	if !errors.As(results[1].Err, &pe) {
		t.Errorf("Expected ParseError for job 2, got %v", results[1].Err)
	}
	for _, i := range []int{0, 2} {
		r := results[i]
		if r.Err != nil || r.Clip == nil {
			t.Fatalf("Job %d failed: %v", i+1, r.Err)
		}
		data, err := os.ReadFile(r.Output)
		if err != nil {
			t.Fatalf("Job %d output missing: %v", i+1, err)
		}
		if len(data) != r.Clip.Frames {
			t.Errorf("Job %d wrote %d bytes for %d frames", i+1, len(data), r.Clip.Frames)
		}
	}
	if results[0].Clip.Frames == results[2].Clip.Frames {
		t.Error("Job durations were not applied")
	}
}

// nopCompositor is stateless and safe to share between sessions.
type nopCompositor struct{}

func (nopCompositor) Compose(dst *image.RGBA, doc *source.Document, st timeline.State) error {
	return nil
}

// countingScheduler records how often it was stepped and stopped.
type countingScheduler struct {
	mu      sync.Mutex
	ticks   int
	stopped int
}

func (c *countingScheduler) Next(ctx context.Context) error {
	c.mu.Lock()
	c.ticks++
	c.mu.Unlock()
	return ctx.Err()
}

func (c *countingScheduler) Stop() {
	c.mu.Lock()
	c.stopped++
	c.mu.Unlock()
}

func TestSchedulerPerSession(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "logo.svg")
	if err := os.WriteFile(input, []byte(lineSVG), 0644); err != nil {
		t.Fatal(err)
	}
	plan := &director.Plan{Jobs: []director.Job{
		{Input: input, Output: filepath.Join(dir, "a.test"), Duration: 0.1},
		{Input: input, Output: filepath.Join(dir, "b.test"), Duration: 0.1},
		{Input: input, Output: filepath.Join(dir, "c.test"), Duration: 0.1},
	}}
	opener := video.OpenerFunc(func(ctx context.Context, p video.Params) (video.Sink, error) {
		return &fakeSink{}, nil
	})

	var mu sync.Mutex
	var built []*countingScheduler
	factory := func() Scheduler {
		sc := &countingScheduler{}
		mu.Lock()
		built = append(built, sc)
		mu.Unlock()
		return sc
	}

	results, err := RunPlan(context.Background(), plan, config.Default(), 3,
		WithOpener(opener), WithCompositor(nopCompositor{}), WithSchedulerFunc(factory))
	if err != nil {
		t.Fatalf("RunPlan failed: %v", err)
	}
	if len(built) != len(plan.Jobs) {
		t.Fatalf("Expected %d schedulers, got %d", len(plan.Jobs), len(built))
	}
	for i, sc := range built {
		if sc.stopped != 1 {
			t.Errorf("Scheduler %d stopped %d times", i, sc.stopped)
		}
	}
	// Each scheduler paced exactly one clip.
	ticks := map[int]bool{}
	for _, r := range results {
		ticks[r.Clip.Frames] = true
	}
	for i, sc := range built {
		if !ticks[sc.ticks] {
			t.Errorf("Scheduler %d ticked %d times, no clip has that many frames", i, sc.ticks)
		}
	}
}

func TestSchedulerFuncOverridesShared(t *testing.T) {
	comp, op := newFakes()
	shared := &countingScheduler{}
	own := &countingScheduler{}

	doc := &source.Document{
		ViewBox:  source.ViewBox{Width: 10, Height: 10},
		Elements: []source.Element{{Outline: []source.Polyline{{gg.Pt(0, 0), gg.Pt(10, 0)}}, Length: 10}},
	}
	anim := testAnim()

	s := NewSession(doc, anim, WithCompositor(comp), WithOpener(op),
		WithScheduler(shared), WithSchedulerFunc(func() Scheduler { return own }))
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if shared.ticks != 0 || shared.stopped != 0 {
		t.Errorf("Shared scheduler was used: ticks=%d stopped=%d", shared.ticks, shared.stopped)
	}
	if own.ticks != anim.TotalFrames() || own.stopped != 1 {
		t.Errorf("Session scheduler: ticks=%d stopped=%d", own.ticks, own.stopped)
	}
}

type failingCloser struct{ calls int }

func (c *failingCloser) Close() error {
	c.calls++
	return fmt.Errorf("font cache busy")
}

func TestReleaseLogsCloseError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	closer := &failingCloser{}

	s := NewSession(nil, testAnim(), WithLogger(logger))
	s.ownsComp = closer
	s.release()
	s.release()

	if closer.calls != 1 {
		t.Errorf("Expected one Close, got %d", closer.calls)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "close compositor") ||
		!strings.Contains(out, "font cache busy") {
		t.Errorf("Close error not logged: %q", out)
	}
	if s.ownsComp != nil || s.comp != nil {
		t.Error("Compositor still held after release")
	}
}
