package encoder

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/darkroom-go/darkroom/core"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 8 % 256), G: uint8(y * 8 % 256), B: 128, A: 255})
		}
	}
	return img
}

func TestPNG_EncodeRoundTrip(t *testing.T) {
	enc := NewPNG()
	if !enc.CanEncode(core.FormatPNG) || enc.CanEncode(core.FormatJPEG) {
		t.Error("CanEncode: png encoder should accept only png")
	}

	data, err := enc.Encode(context.Background(), testImage(20, 10), core.EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("re-decode: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("dimensions: got %dx%d, want 20x10", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestJPEG_EncodeQuality(t *testing.T) {
	enc := NewJPEG(85)

	low, err := enc.Encode(context.Background(), testImage(64, 64), core.EncodeOptions{Quality: 10})
	if err != nil {
		t.Fatal(err)
	}
	high, err := enc.Encode(context.Background(), testImage(64, 64), core.EncodeOptions{Quality: 95})
	if err != nil {
		t.Fatal(err)
	}
	if len(low) >= len(high) {
		t.Errorf("quality 10 output (%d bytes) not smaller than quality 95 (%d bytes)", len(low), len(high))
	}

	// JPEG magic bytes.
	if low[0] != 0xFF || low[1] != 0xD8 {
		t.Error("output is not a jpeg stream")
	}
}

func TestEncode_NilImage(t *testing.T) {
	if _, err := NewPNG().Encode(context.Background(), nil, core.EncodeOptions{}); err == nil {
		t.Error("png: expected error for nil image, got nil")
	}
	if _, err := NewJPEG(85).Encode(context.Background(), nil, core.EncodeOptions{}); err == nil {
		t.Error("jpeg: expected error for nil image, got nil")
	}
}
