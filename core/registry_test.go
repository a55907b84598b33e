package core

import (
	"context"
	"io"
	"testing"
)

type nopDecoder struct{}

func (nopDecoder) Decode(context.Context, io.Reader) (*DecodedImage, error) { return nil, nil }
func (nopDecoder) CanDecode(Format) bool                                    { return true }

type nopEncoder struct{}

func (nopEncoder) Encode(context.Context, interface{}, EncodeOptions) ([]byte, error) {
	return nil, nil
}
func (nopEncoder) CanEncode(Format) bool { return true }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	if _, ok := reg.DecoderFor(FormatPNG); ok {
		t.Error("empty registry resolved a decoder")
	}

	reg.RegisterDecoder(FormatPNG, nopDecoder{})
	reg.RegisterEncoder(FormatJPEG, nopEncoder{})

	if _, ok := reg.DecoderFor(FormatPNG); !ok {
		t.Error("registered decoder not found")
	}
	if _, ok := reg.EncoderFor(FormatJPEG); !ok {
		t.Error("registered encoder not found")
	}
	if _, ok := reg.EncoderFor(FormatWebP); ok {
		t.Error("unregistered encoder resolved")
	}
	// An encoder-only slot must not resolve as a decoder.
	if _, ok := reg.DecoderFor(FormatJPEG); ok {
		t.Error("encoder-only format resolved a decoder")
	}
}

func TestRegistry_DecodeFormats(t *testing.T) {
	reg := NewRegistry()
	if got := reg.DecodeFormats(); len(got) != 0 {
		t.Errorf("empty registry lists formats: %v", got)
	}

	reg.RegisterDecoder(FormatPNG, nopDecoder{})
	reg.RegisterDecoder(FormatJPEG, nopDecoder{})
	reg.RegisterEncoder(FormatWebP, nopEncoder{}) // encoder-only, excluded

	got := reg.DecodeFormats()
	if len(got) != 2 || got[0] != FormatJPEG || got[1] != FormatPNG {
		t.Errorf("DecodeFormats = %v, want [jpeg png]", got)
	}
}
