// Package encoder provides format-specific image encoders.
package encoder

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/darkroom-go/darkroom/core"
	apperrors "github.com/darkroom-go/darkroom/errors"
)

// PNG encodes images to PNG format.  PNG is the engine's default boundary
// format so repeated edits round-trip losslessly.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanEncode(format core.Format) bool { return format == core.FormatPNG }

func (p *PNG) Encode(ctx context.Context, img interface{}, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}

	src, ok := img.(image.Image)
	if !ok || src == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "png.encode", apperrors.ErrEmptyInput)
	}

	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	if opts.Lossless {
		enc.CompressionLevel = png.BestCompression
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, src); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}
	return buf.Bytes(), nil
}
