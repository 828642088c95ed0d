package video

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"strings"
)

// Clip is the finished, encoded video.
type Clip struct {
	Data      []byte
	MIMEType  string
	Container string
	Codec     string
	Frames    int
}

// Params binds a sink to the raster it will receive.
type Params struct {
	Width   int
	Height  int
	FPS     int
	Format  string // mp4, webm or avi
	Encoder string // ffmpeg encoder for mp4; libx264 when empty
	Quality int    // encoder specific; 0 picks a default
}

// Sink consumes frames in order and produces exactly one Clip.
type Sink interface {
	WriteFrame(img *image.RGBA) error
	// Close flushes the encoder and returns the clip.
	Close() (*Clip, error)
	// Abort stops the encoder and discards everything written so far.
	Abort() error
}

// Opener creates sinks. Sessions take one so tests can swap the encoder.
type Opener interface {
	Open(ctx context.Context, p Params) (Sink, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, p Params) (Sink, error)

func (f OpenerFunc) Open(ctx context.Context, p Params) (Sink, error) {
	return f(ctx, p)
}

// DefaultOpener picks the sink from Params.Format.
var DefaultOpener Opener = OpenerFunc(NewSink)

// EncoderError is returned when a sink cannot be opened, accept a frame or
// be finalized.
type EncoderError struct {
	Op  string
	Err error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("encoder %s: %v", e.Op, e.Err)
}

func (e *EncoderError) Unwrap() error { return e.Err }

func encoderErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EncoderError{Op: op, Err: err}
}

// NewSink opens the sink for p.Format.
func NewSink(ctx context.Context, p Params) (Sink, error) {
	if p.Width <= 0 || p.Height <= 0 || p.FPS <= 0 {
		return nil, encoderErr("open", fmt.Errorf("invalid params %dx%d@%d", p.Width, p.Height, p.FPS))
	}
	switch strings.ToLower(p.Format) {
	case "", "mp4", "webm":
		s, err := OpenFFmpeg(ctx, p)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "avi":
		s, err := OpenMJPEG(p)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, encoderErr("open", fmt.Errorf("unsupported format %q", p.Format))
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix[:bounds.Dx()*bounds.Dy()*4])
	return err
}
