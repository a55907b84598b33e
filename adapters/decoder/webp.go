package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"github.com/darkroom-go/darkroom/core"
	apperrors "github.com/darkroom-go/darkroom/errors"
	"github.com/darkroom-go/darkroom/utils"
)

// WebP decodes WebP images using golang.org/x/image/webp.
// NOTE: golang.org/x/image/webp only supports lossy WebP decoding.
// For lossless or animated WebP, register the libvips backend instead.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.DecodedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}

	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.drain", err)
	}
	defer utils.ReleaseBuffer(buf)

	img, err := webp.Decode(utils.BytesReader(buf.Bytes()))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}

	bounds := img.Bounds()
	return &core.DecodedImage{
		Image: img,
		Meta: core.Metadata{
			Width:    bounds.Dx(),
			Height:   bounds.Dy(),
			Format:   core.FormatWebP,
			HasAlpha: hasAlpha(img),
		},
	}, nil
}
