package utils

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}, "png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{"too short", []byte{0xFF}, "unknown"},
		{"text", []byte("hello, this is not an image"), "unknown"},
	}
	for _, tc := range tests {
		if got := DetectFormat(tc.data); got != tc.want {
			t.Errorf("%s: DetectFormat = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestScaleDimensions(t *testing.T) {
	tests := []struct {
		srcW, srcH, targetW, targetH int
		wantW, wantH                 int
	}{
		{800, 600, 400, 0, 400, 300},
		{800, 600, 0, 300, 400, 300},
		{800, 600, 200, 200, 200, 200},
		{800, 600, 0, 0, 800, 600},
	}
	for _, tc := range tests {
		gotW, gotH := ScaleDimensions(tc.srcW, tc.srcH, tc.targetW, tc.targetH)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Errorf("ScaleDimensions(%d,%d,%d,%d) = %d,%d; want %d,%d",
				tc.srcW, tc.srcH, tc.targetW, tc.targetH, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}

func TestPreviewDimensions(t *testing.T) {
	tests := []struct {
		srcW, srcH   int
		factor       float64
		wantW, wantH int
	}{
		{100, 80, 0.5, 50, 40},
		{100, 80, 0.75, 75, 60},
		{100, 80, 1.0, 100, 80},
		{3, 2, 0.5, 1, 1},
		{1, 1, 0.5, 1, 1}, // never below 1x1
	}
	for _, tc := range tests {
		gotW, gotH := PreviewDimensions(tc.srcW, tc.srcH, tc.factor)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Errorf("PreviewDimensions(%d,%d,%v) = %d,%d; want %d,%d",
				tc.srcW, tc.srcH, tc.factor, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("snapshot-a"))
	if a != ContentHash([]byte("snapshot-a")) {
		t.Error("hash is not stable for identical input")
	}
	if a == ContentHash([]byte("snapshot-b")) {
		t.Error("different inputs collided")
	}
}

func TestCloneBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	cp := CloneBytes(src)
	src[0] = 9
	if cp[0] != 1 {
		t.Error("clone aliases the source slice")
	}
}

func TestDrainReader(t *testing.T) {
	payload := strings.Repeat("x", 100*1024)
	buf, err := DrainReader(context.Background(), strings.NewReader(payload), 32*1024)
	if err != nil {
		t.Fatalf("DrainReader: %v", err)
	}
	defer ReleaseBuffer(buf)
	if buf.Len() != len(payload) {
		t.Errorf("drained %d bytes, want %d", buf.Len(), len(payload))
	}
	if !bytes.Equal(buf.Bytes(), []byte(payload)) {
		t.Error("drained content mismatch")
	}
}

func TestDrainReader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := DrainReader(ctx, strings.NewReader("data"), 16); err == nil {
		t.Error("expected cancellation error, got nil")
	}
}

func TestLimitedReader(t *testing.T) {
	lr := &LimitedReader{R: strings.NewReader(strings.Repeat("y", 20)), Max: 10}
	got, err := io.ReadAll(lr)
	if err == nil {
		t.Fatal("expected error reading past the limit, got nil")
	}
	if len(got) != 10 {
		t.Errorf("read %d bytes before the limit, want 10", len(got))
	}
}

func TestLimitedReader_ExactSizeInput(t *testing.T) {
	lr := &LimitedReader{R: strings.NewReader(strings.Repeat("y", 10)), Max: 10}
	got, err := io.ReadAll(lr)
	if err != nil {
		t.Fatalf("input of exactly Max bytes should read cleanly, got %v", err)
	}
	if len(got) != 10 {
		t.Errorf("read %d bytes, want 10", len(got))
	}
}
