package source

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"
)

// DefaultPreviewHeight bounds the height of RenderPreview output.
const DefaultPreviewHeight = 300

// RenderPreview rasterizes the whole document with MuPDF and scales it
// down to at most maxHeight pixels, keeping the aspect ratio.
func RenderPreview(data []byte, maxHeight int) (*image.RGBA, error) {
	if maxHeight <= 0 {
		maxHeight = DefaultPreviewHeight
	}

	// MuPDF picks the document handler from the file extension.
	tmp, err := os.CreateTemp("", "svg2video-preview-*.svg")
	if err != nil {
		return nil, fmt.Errorf("preview temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("preview temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("preview temp file: %w", err)
	}

	doc, err := fitz.New(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("open with mupdf: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() < 1 {
		return nil, fmt.Errorf("mupdf: document has no pages")
	}
	img, err := doc.ImageDPI(0, 96)
	if err != nil {
		return nil, fmt.Errorf("mupdf render: %w", err)
	}
	return scaleToHeight(img, maxHeight), nil
}

func scaleToHeight(src image.Image, maxHeight int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if h > maxHeight {
		w = max(1, w*maxHeight/h)
		h = maxHeight
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// WritePNG stores img at path, creating parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
