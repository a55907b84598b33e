package decoder

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/darkroom-go/darkroom/core"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	return img
}

func TestPNG_Decode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(32, 24)); err != nil {
		t.Fatal(err)
	}

	dec := NewPNG()
	if !dec.CanDecode(core.FormatPNG) || dec.CanDecode(core.FormatJPEG) {
		t.Error("CanDecode: png decoder should accept only png")
	}

	out, err := dec.Decode(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Meta.Width != 32 || out.Meta.Height != 24 {
		t.Errorf("meta dimensions: got %dx%d, want 32x24", out.Meta.Width, out.Meta.Height)
	}
	if out.Meta.Format != core.FormatPNG {
		t.Errorf("meta format: got %s, want png", out.Meta.Format)
	}
	if _, ok := out.Image.(image.Image); !ok {
		t.Error("decoded payload is not an image.Image")
	}
}

func TestJPEG_Decode(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(16, 16), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}

	out, err := NewJPEG().Decode(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Meta.Format != core.FormatJPEG {
		t.Errorf("meta format: got %s, want jpeg", out.Meta.Format)
	}
	if out.Meta.Width != 16 || out.Meta.Height != 16 {
		t.Errorf("meta dimensions: got %dx%d, want 16x16", out.Meta.Width, out.Meta.Height)
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := NewPNG().Decode(context.Background(), bytes.NewReader([]byte("not a png"))); err == nil {
		t.Error("png: expected decode error, got nil")
	}
	if _, err := NewJPEG().Decode(context.Background(), bytes.NewReader([]byte("not a jpeg"))); err == nil {
		t.Error("jpeg: expected decode error, got nil")
	}
}

func TestDecode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPNG().Decode(ctx, bytes.NewReader(nil)); err == nil {
		t.Error("expected cancellation error, got nil")
	}
}
