package texture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestDecodePNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	src.Set(1, 2, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	img, err := Decode("texture_00.png", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 3 {
		t.Errorf("bounds = %v, want 2x3", img.Bounds())
	}
	if got := img.RGBAAt(1, 2); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestDecodeGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"texture.png", []byte("definitely not an image")},
		{"texture.tga", []byte{1, 2, 3}},
		{"texture.png", nil},
	}
	for _, tt := range tests {
		if _, err := Decode(tt.name, tt.data); !errors.Is(err, ErrDecodeFailed) {
			t.Errorf("Decode(%s) = %v, want ErrDecodeFailed", tt.name, err)
		}
	}
}

// tgaHeader builds a header for a w x h image.
func tgaHeader(kind byte, w, h int, bpp byte, topDown bool) []byte {
	hdr := make([]byte, tgaHeaderSize)
	hdr[2] = kind
	hdr[12], hdr[13] = byte(w), byte(w>>8)
	hdr[14], hdr[15] = byte(h), byte(h>>8)
	hdr[16] = bpp
	if topDown {
		hdr[17] = 0x20
	}
	return hdr
}

func TestDecodeTGAUncompressed(t *testing.T) {
	// 2x1, bottom-up, 24 bit: blue then red (stored as BGR).
	data := append(tgaHeader(tgaUncompressed, 2, 1, 24, false),
		255, 0, 0,
		0, 0, 255,
	)
	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA: %v", err)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("pixel 0 = %v, want blue", got)
	}
	if got := img.RGBAAt(1, 0); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel 1 = %v, want red", got)
	}
}

func TestDecodeTGAOrientation(t *testing.T) {
	// 1x2, 32 bit. First stored pixel is the bottom row unless top-down.
	pixels := []byte{
		0, 255, 0, 128, // green, half alpha
		0, 0, 0, 255, // black
	}
	bottomUp, err := DecodeTGA(append(tgaHeader(tgaUncompressed, 1, 2, 32, false), pixels...))
	if err != nil {
		t.Fatalf("DecodeTGA bottom-up: %v", err)
	}
	if got := bottomUp.RGBAAt(0, 1); got != (color.RGBA{G: 255, A: 128}) {
		t.Errorf("bottom-up row 1 = %v, want green", got)
	}

	topDown, err := DecodeTGA(append(tgaHeader(tgaUncompressed, 1, 2, 32, true), pixels...))
	if err != nil {
		t.Fatalf("DecodeTGA top-down: %v", err)
	}
	if got := topDown.RGBAAt(0, 0); got != (color.RGBA{G: 255, A: 128}) {
		t.Errorf("top-down row 0 = %v, want green", got)
	}
}

func TestDecodeTGARLE(t *testing.T) {
	// 4x1 top-down: a run of three white pixels, then one literal red.
	data := append(tgaHeader(tgaRLE, 4, 1, 24, true),
		0x82, 255, 255, 255,
		0x00, 0, 0, 255,
	)
	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA: %v", err)
	}
	for x := 0; x < 3; x++ {
		if got := img.RGBAAt(x, 0); got != (color.RGBA{255, 255, 255, 255}) {
			t.Errorf("pixel %d = %v, want white", x, got)
		}
	}
	if got := img.RGBAAt(3, 0); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("pixel 3 = %v, want red", got)
	}
}

func TestDecodeTGAUnsupported(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"color mapped", func() []byte { h := tgaHeader(tgaUncompressed, 1, 1, 24, false); h[1] = 1; return h }()},
		{"grayscale", tgaHeader(3, 1, 1, 8, false)},
		{"16 bit", tgaHeader(tgaUncompressed, 1, 1, 16, false)},
		{"truncated pixels", tgaHeader(tgaUncompressed, 4, 4, 32, false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTGA(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestToRGBAPassthrough(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if ToRGBA(src) != src {
		t.Error("origin-anchored RGBA should be returned as is")
	}

	sub := src.SubImage(image.Rect(1, 1, 3, 3))
	out := ToRGBA(sub)
	if out.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Errorf("sub-image bounds = %v, want origin-anchored 2x2", out.Bounds())
	}
}
