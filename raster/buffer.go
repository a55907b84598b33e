// Package raster provides the owned RGBA8 pixel buffer that all adjustment
// stages operate on, plus the colour math and convolution kernels they share.
package raster

import (
	"fmt"
	"image"

	apperrors "github.com/darkroom-go/darkroom/errors"
)

// Buffer is a width×height RGBA8 raster, row-major, no padding.
// A Buffer is exclusively owned by whichever stage currently holds it;
// ownership transfers stage-to-stage and the previous holder must not touch
// it again.  Invariant: len(Pix) == W*H*4.
type Buffer struct {
	W, H int
	Pix  []uint8
}

// New allocates a zeroed buffer.  maxPixels bounds the allocation; pass 0 for
// no limit.  Exceeding the bound is the only fatal error a pipeline pass can
// hit and is reported in the alloc category.
func New(w, h int, maxPixels int64) (*Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, apperrors.New(apperrors.CategoryAlloc, "raster.new",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, w, h))
	}
	px := int64(w) * int64(h)
	if maxPixels > 0 && px > maxPixels {
		return nil, apperrors.New(apperrors.CategoryAlloc, "raster.new",
			fmt.Errorf("%w: %d pixels, limit %d", apperrors.ErrAllocLimit, px, maxPixels))
	}
	return &Buffer{W: w, H: h, Pix: make([]uint8, px*4)}, nil
}

// Clone returns an independently owned copy.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{W: b.W, H: b.H, Pix: pix}
}

// Offset returns the index of pixel (x, y) in Pix.
func (b *Buffer) Offset(x, y int) int { return (y*b.W + x) * 4 }

// At returns the RGBA channels of pixel (x, y).
func (b *Buffer) At(x, y int) (r, g, bl, a uint8) {
	i := b.Offset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// Set stores the RGBA channels of pixel (x, y).
func (b *Buffer) Set(x, y int, r, g, bl, a uint8) {
	i := b.Offset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = r, g, bl, a
}

// FromImage copies src into a new Buffer, flattening any color model to
// non-premultiplied 8-bit RGBA.
func FromImage(src image.Image, maxPixels int64) (*Buffer, error) {
	bounds := src.Bounds()
	buf, err := New(bounds.Dx(), bounds.Dy(), maxPixels)
	if err != nil {
		return nil, err
	}
	// Fast path: NRGBA with zero-origin bounds shares the exact layout.
	if n, ok := src.(*image.NRGBA); ok && bounds.Min == (image.Point{}) && n.Stride == buf.W*4 {
		copy(buf.Pix, n.Pix)
		return buf, nil
	}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := src.At(x, y).RGBA()
			if a > 0 && a < 0xffff {
				// Un-premultiply so edits operate on straight alpha.
				r = r * 0xffff / a
				g = g * 0xffff / a
				b = b * 0xffff / a
			}
			buf.Pix[i] = uint8(r >> 8)
			buf.Pix[i+1] = uint8(g >> 8)
			buf.Pix[i+2] = uint8(b >> 8)
			buf.Pix[i+3] = uint8(a >> 8)
			i += 4
		}
	}
	return buf, nil
}

// ToImage returns an image.NRGBA view backed by a copy of the buffer.
func (b *Buffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.W, b.H))
	copy(img.Pix, b.Pix)
	return img
}
