package texture

import (
	"errors"
	"fmt"
	"image"
)

const (
	tgaHeaderSize   = 18
	tgaUncompressed = 2
	tgaRLE          = 10
)

// DecodeTGA decodes uncompressed (type 2) and RLE (type 10) true-color TGA
// data with 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, errors.New("tga: header truncated")
	}

	idLength := int(data[0])
	if data[1] != 0 {
		return nil, errors.New("tga: color-mapped images not supported")
	}
	kind := data[2]
	if kind != tgaUncompressed && kind != tgaRLE {
		return nil, fmt.Errorf("tga: unsupported image type %d", kind)
	}
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("tga: unsupported depth %d", bpp)
	}
	topDown := data[17]&0x20 != 0

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, errors.New("tga: data truncated")
	}

	px := &tgaPixels{
		img:     image.NewRGBA(image.Rect(0, 0, width, height)),
		width:   width,
		height:  height,
		size:    bpp / 8,
		topDown: topDown,
	}

	src := data[offset:]
	total := width * height
	if kind == tgaUncompressed {
		if len(src) < total*px.size {
			return nil, errors.New("tga: pixel data truncated")
		}
		for i := 0; i < total; i++ {
			px.put(i, src[i*px.size:])
		}
		return px.img, nil
	}

	// Each RLE packet is a header byte followed by either one pixel that
	// repeats (high bit set) or a run of literal pixels.
	n := 0
	for n < total && len(src) > 0 {
		head := src[0]
		src = src[1:]
		count := int(head&0x7f) + 1
		if head&0x80 != 0 {
			if len(src) < px.size {
				break
			}
			for j := 0; j < count && n < total; j++ {
				px.put(n, src)
				n++
			}
			src = src[px.size:]
			continue
		}
		for j := 0; j < count && n < total; j++ {
			if len(src) < px.size {
				break
			}
			px.put(n, src)
			src = src[px.size:]
			n++
		}
	}
	return px.img, nil
}

type tgaPixels struct {
	img           *image.RGBA
	width, height int
	size          int
	topDown       bool
}

// put stores the BGR(A) pixel at the start of p as pixel number i.
func (t *tgaPixels) put(i int, p []byte) {
	x, y := i%t.width, i/t.width
	if !t.topDown {
		y = t.height - 1 - y
	}
	o := t.img.PixOffset(x, y)
	t.img.Pix[o+0] = p[2]
	t.img.Pix[o+1] = p[1]
	t.img.Pix[o+2] = p[0]
	if t.size == 4 {
		t.img.Pix[o+3] = p[3]
	} else {
		t.img.Pix[o+3] = 0xff
	}
}
