package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// syncBuffer collects ffmpeg's stderr. exec copies into it from its own
// goroutine until Wait, while WriteFrame may read it on a failed write.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// FFmpegSink pipes raw RGBA frames into an ffmpeg process that encodes them
// into a temporary file. The file is read back and removed on Close.
type FFmpegSink struct {
	p       Params
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	stdin   io.WriteCloser
	stderr  *syncBuffer
	outPath string
	frames  int
	done    bool
}

// OpenFFmpeg starts ffmpeg for an mp4 (H.264) or webm (VP9) clip.
func OpenFFmpeg(ctx context.Context, p Params) (*FFmpegSink, error) {
	if p.Format == "" {
		p.Format = "mp4"
	}
	p.Format = strings.ToLower(p.Format)

	tmp, err := os.CreateTemp("", "svg2video-*."+p.Format)
	if err != nil {
		return nil, encoderErr("open", err)
	}
	outPath := tmp.Name()
	tmp.Close()

	ctx, cancel := context.WithCancel(ctx)
	s := &FFmpegSink{p: p, cancel: cancel, outPath: outPath, stderr: &syncBuffer{}}
	s.cmd = exec.CommandContext(ctx, "ffmpeg", buildFFmpegArgs(p, outPath)...)
	s.cmd.Stderr = s.stderr

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		s.cleanup()
		return nil, encoderErr("open", fmt.Errorf("stdin pipe error: %w", err))
	}
	s.stdin = stdin

	if err := s.cmd.Start(); err != nil {
		s.cleanup()
		return nil, encoderErr("open", fmt.Errorf("ffmpeg start error: %w", err))
	}
	return s, nil
}

func buildFFmpegArgs(p Params, outPath string) []string {
	args := []string{
		"-y",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height),
		"-framerate", fmt.Sprintf("%d", p.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
	}

	if p.Format == "webm" {
		q := p.Quality
		if q <= 0 {
			q = 32
		}
		args = append(args, "-c:v", "libvpx-vp9", "-b:v", "0", "-crf", fmt.Sprintf("%d", q), "-row-mt", "1")
		return append(args, outPath)
	}

	encoder := p.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	args = append(args, "-c:v", encoder)

	// Качество в зависимости от энкодера
	switch encoder {
	case "h264_videotoolbox":
		q := p.Quality
		if q <= 0 {
			q = 75
		}
		args = append(args, "-b:v", fmt.Sprintf("%dk", q*100))
	case "h264_nvenc":
		q := p.Quality
		if q <= 0 {
			q = 28
		}
		args = append(args, "-cq", fmt.Sprintf("%d", q))
	default: // libx264
		q := p.Quality
		if q <= 0 {
			q = 23
		}
		args = append(args, "-crf", fmt.Sprintf("%d", q), "-preset", "medium")
	}

	args = append(args, "-movflags", "+faststart", outPath)
	return args
}

func (s *FFmpegSink) WriteFrame(img *image.RGBA) error {
	if s.done {
		return encoderErr("write", fmt.Errorf("sink already closed"))
	}
	if b := img.Bounds(); b.Dx() != s.p.Width || b.Dy() != s.p.Height {
		return encoderErr("write", fmt.Errorf("frame %dx%d, sink expects %dx%d", b.Dx(), b.Dy(), s.p.Width, s.p.Height))
	}
	if err := writeRawRGBA(s.stdin, img); err != nil {
		return encoderErr("write", s.withStderr(fmt.Errorf("write raw error: %w", err)))
	}
	s.frames++
	return nil
}

func (s *FFmpegSink) Close() (*Clip, error) {
	if s.done {
		return nil, encoderErr("close", fmt.Errorf("sink already closed"))
	}
	s.done = true
	defer s.cleanup()

	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return nil, encoderErr("close", s.withStderr(fmt.Errorf("ffmpeg wait error: %w", err)))
	}

	data, err := os.ReadFile(s.outPath)
	if err != nil {
		return nil, encoderErr("close", err)
	}

	clip := &Clip{Data: data, Frames: s.frames}
	if s.p.Format == "webm" {
		clip.MIMEType, clip.Container, clip.Codec = "video/webm", "webm", "vp9"
	} else {
		clip.MIMEType, clip.Container, clip.Codec = "video/mp4", "mp4", "h264"
	}
	return clip, nil
}

func (s *FFmpegSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	s.stdin.Close()
	s.cancel()
	_ = s.cmd.Wait()
	s.cleanup()
	return nil
}

func (s *FFmpegSink) cleanup() {
	s.cancel()
	os.Remove(s.outPath)
}

func (s *FFmpegSink) withStderr(err error) error {
	if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
		return fmt.Errorf("%w, output: %s", err, msg)
	}
	return err
}
