// Package capture writes frame grabs to PNG files.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// ErrPixelSize is returned when pixel data does not match the frame size.
var ErrPixelSize = errors.New("pixel data size mismatch")

// Writer names and writes screenshots into one directory.
type Writer struct {
	dir    string
	prefix string
	now    func() time.Time
}

// New creates a writer. An empty dir writes into the working directory.
func New(dir, prefix string) *Writer {
	return &Writer{dir: dir, prefix: prefix, now: time.Now}
}

// Filename returns the path the next capture taken at t would use.
func (w *Writer) Filename(t time.Time) string {
	name := fmt.Sprintf("%s_%s.png", w.prefix, t.Format("2006-01-02_15-04-05.000"))
	if w.dir != "" {
		name = filepath.Join(w.dir, name)
	}
	return name
}

// FromPixels writes bottom-up RGBA rows, as read back from OpenGL, as a
// top-down PNG and returns its path.
func (w *Writer) FromPixels(pixels []byte, width, height int) (string, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return "", fmt.Errorf("%dx%d frame with %d bytes: %w", width, height, len(pixels), ErrPixelSize)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		copy(img.Pix[y*img.Stride:y*img.Stride+rowSize], pixels[src:src+rowSize])
	}
	return w.FromImage(img)
}

// FromImage writes img as a PNG and returns its path.
func (w *Writer) FromImage(img image.Image) (string, error) {
	if w.dir != "" {
		if err := os.MkdirAll(w.dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := w.Filename(w.now())
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}
