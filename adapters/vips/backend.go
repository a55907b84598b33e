//go:build cgo

// Package vips provides an optional libvips-powered codec backend.  Register
// it on the engine's registry when the build links libvips; the pure-Go
// codecs remain the default.
package vips

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/darkroom-go/darkroom/core"
	apperrors "github.com/darkroom-go/darkroom/errors"
	"github.com/darkroom-go/darkroom/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	DefaultQuality int
	MaxCacheSize   int
	MaxWorkers     int
	ReportLeaks    bool
}

// Backend is a unified libvips-powered Decoder and Encoder.  Compared with
// the pure-Go codecs it adds lossless/animated WebP decoding and EXIF
// auto-rotation.  Safe for concurrent use across goroutines.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// Register wires the backend into reg for every format it handles.
func Register(reg core.Registry, b *Backend) {
	for _, f := range []core.Format{core.FormatJPEG, core.FormatPNG, core.FormatWebP} {
		reg.RegisterDecoder(f, b)
		reg.RegisterEncoder(f, b.EncoderFor(f))
	}
}

// ─── Decoder ──────────────────────────────────────────────────────────────────

func (b *Backend) CanDecode(f core.Format) bool {
	switch f {
	case core.FormatJPEG, core.FormatPNG, core.FormatWebP, core.FormatUnknown:
		return true
	}
	return false
}

func (b *Backend) Decode(ctx context.Context, r io.Reader) (*core.DecodedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode", err)
	}

	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode.drain", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	ref, err := govips.NewImageFromBuffer(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode", err)
	}
	defer ref.Close()

	// Bake the EXIF orientation into the pixels so the pipeline never has to
	// care about it.
	if err := ref.AutoRotate(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode.autorotate", err)
	}

	// Bridge into the pure-Go pixel world through a lossless PNG hop; the
	// adjustment stages operate on raster.Buffer, not vips refs.
	ep := govips.NewPngExportParams()
	pngBytes, _, err := ref.ExportPng(ep)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode.export", err)
	}
	img, err := png.Decode(utils.BytesReader(pngBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "vips.decode.bridge", err)
	}

	return &core.DecodedImage{
		Image: img,
		Meta: core.Metadata{
			Width:    ref.Width(),
			Height:   ref.Height(),
			Format:   vipsFormatToCore(ref.Format()),
			HasAlpha: ref.HasAlpha(),
		},
	}, nil
}

// ─── Encoder ──────────────────────────────────────────────────────────────────

// EncoderFor returns a core.Encoder bound to one output format.
func (b *Backend) EncoderFor(f core.Format) core.Encoder {
	return &formatEncoder{backend: b, format: f}
}

type formatEncoder struct {
	backend *Backend
	format  core.Format
}

func (e *formatEncoder) CanEncode(f core.Format) bool { return f == e.format }

func (e *formatEncoder) Encode(ctx context.Context, img interface{}, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode", err)
	}

	src, ok := img.(image.Image)
	if !ok || src == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "vips.encode", apperrors.ErrEmptyInput)
	}

	// Enter vips through the same lossless PNG bridge used on decode.
	pngBuf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(pngBuf)
	if err := png.Encode(pngBuf, src); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.bridge", err)
	}
	ref, err := govips.NewImageFromBuffer(utils.CloneBytes(pngBuf.Bytes()))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode", err)
	}
	defer ref.Close()

	quality := opts.Quality
	if quality <= 0 {
		quality = e.backend.cfg.DefaultQuality
	}

	switch e.format {
	case core.FormatJPEG:
		ep := govips.NewJpegExportParams()
		ep.Quality = quality
		ep.Interlace = opts.Interlaced
		out, _, err := ref.ExportJpeg(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.jpeg", err)
		}
		return out, nil

	case core.FormatPNG:
		ep := govips.NewPngExportParams()
		ep.Interlace = opts.Interlaced
		out, _, err := ref.ExportPng(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.png", err)
		}
		return out, nil

	case core.FormatWebP:
		// Real lossless/lossy WebP instead of the pure-Go shim.
		ep := govips.NewWebpExportParams()
		ep.Quality = quality
		ep.Lossless = opts.Lossless
		out, _, err := ref.ExportWebp(ep)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryEncode, "vips.encode.webp", err)
		}
		return out, nil

	default:
		return nil, apperrors.New(apperrors.CategoryEncode, "vips.encode",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, e.format))
	}
}

func vipsFormatToCore(t govips.ImageType) core.Format {
	switch t {
	case govips.ImageTypeJPEG:
		return core.FormatJPEG
	case govips.ImageTypePNG:
		return core.FormatPNG
	case govips.ImageTypeWEBP:
		return core.FormatWebP
	}
	return core.FormatUnknown
}
