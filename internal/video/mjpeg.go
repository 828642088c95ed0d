package video

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/icza/mjpeg"
)

// MJPEGSink writes a Motion-JPEG AVI without any external tools.
type MJPEGSink struct {
	p       Params
	aw      mjpeg.AviWriter
	outPath string
	buf     bytes.Buffer
	frames  int
	done    bool
}

// OpenMJPEG creates the AVI writer in a temporary file.
func OpenMJPEG(p Params) (*MJPEGSink, error) {
	tmp, err := os.CreateTemp("", "svg2video-*.avi")
	if err != nil {
		return nil, encoderErr("open", err)
	}
	outPath := tmp.Name()
	tmp.Close()

	aw, err := mjpeg.New(outPath, int32(p.Width), int32(p.Height), int32(p.FPS))
	if err != nil {
		os.Remove(outPath)
		return nil, encoderErr("open", fmt.Errorf("failed to create video writer: %w", err))
	}
	if p.Quality <= 0 || p.Quality > 100 {
		p.Quality = 90
	}
	return &MJPEGSink{p: p, aw: aw, outPath: outPath}, nil
}

func (s *MJPEGSink) WriteFrame(img *image.RGBA) error {
	if s.done {
		return encoderErr("write", fmt.Errorf("sink already closed"))
	}
	if b := img.Bounds(); b.Dx() != s.p.Width || b.Dy() != s.p.Height {
		return encoderErr("write", fmt.Errorf("frame %dx%d, sink expects %dx%d", b.Dx(), b.Dy(), s.p.Width, s.p.Height))
	}

	s.buf.Reset()
	if err := jpeg.Encode(&s.buf, img, &jpeg.Options{Quality: s.p.Quality}); err != nil {
		return encoderErr("write", fmt.Errorf("failed to encode frame %d as JPEG: %w", s.frames, err))
	}
	if err := s.aw.AddFrame(s.buf.Bytes()); err != nil {
		return encoderErr("write", fmt.Errorf("failed to add frame %d: %w", s.frames, err))
	}
	s.frames++
	return nil
}

func (s *MJPEGSink) Close() (*Clip, error) {
	if s.done {
		return nil, encoderErr("close", fmt.Errorf("sink already closed"))
	}
	s.done = true
	defer os.Remove(s.outPath)

	if err := s.aw.Close(); err != nil {
		return nil, encoderErr("close", err)
	}
	data, err := os.ReadFile(s.outPath)
	if err != nil {
		return nil, encoderErr("close", err)
	}
	return &Clip{
		Data:      data,
		MIMEType:  "video/x-msvideo",
		Container: "avi",
		Codec:     "mjpeg",
		Frames:    s.frames,
	}, nil
}

func (s *MJPEGSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	s.aw.Close()
	return os.Remove(s.outPath)
}
