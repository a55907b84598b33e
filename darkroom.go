// Package darkroom is the public entry point for the photo adjustment engine:
// load an image, apply tone/colour/geometry/effect adjustments with debounced
// preview rendering, undo/redo rendered snapshots, and export a final
// full-resolution encode.
package darkroom

import (
	"context"
	"io"

	"github.com/darkroom-go/darkroom/adapters/decoder"
	"github.com/darkroom-go/darkroom/adapters/encoder"
	"github.com/darkroom-go/darkroom/config"
	"github.com/darkroom-go/darkroom/core"
	"github.com/darkroom-go/darkroom/engine"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	WebP = core.FormatWebP
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// DefaultParams returns the identity adjustment set.
func DefaultParams() core.AdjustmentParams { return core.DefaultParams() }

// Editor is the primary entry point.  One Editor edits one image at a time.
type Editor struct {
	inner *engine.Engine
	reg   *core.DefaultRegistry
}

// New creates a fully wired Editor with default JPEG, PNG, and WebP codecs
// registered.  Pass a custom config.Config to override defaults.
func New(cfg config.Config) (*Editor, error) {
	reg := core.NewRegistry()
	// Register built-in codecs.
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG(cfg.DefaultQuality))
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatWebP, encoder.NewWebP(cfg.DefaultQuality))

	inner, err := engine.New(cfg, reg)
	if err != nil {
		return nil, err
	}
	return &Editor{inner: inner, reg: reg}, nil
}

// SetLogger attaches a structured logger.
func (e *Editor) SetLogger(l core.Logger) { e.inner.SetLogger(l) }

// AddHook registers an observer for pipeline stage events.
func (e *Editor) AddHook(h core.Hook) { e.inner.AddHook(h) }

// RegisterDecoder registers a custom decoder for the given format.
func (e *Editor) RegisterDecoder(f core.Format, d core.Decoder) { e.reg.RegisterDecoder(f, d) }

// RegisterEncoder registers a custom encoder for the given format.
func (e *Editor) RegisterEncoder(f core.Format, enc core.Encoder) { e.reg.RegisterEncoder(f, enc) }

// Load decodes src and readies the editor: the full-resolution buffer is kept
// as the immutable source of truth and a downscaled preview buffer is built
// at the configured quality factor.
func (e *Editor) Load(ctx context.Context, src core.Source) error {
	return e.inner.Initialize(ctx, src)
}

// Adjust merges the partial patch onto the current adjustments and returns a
// preview-tier render.  Rapid calls coalesce: only the newest request's
// result is authoritative, superseded calls fail with ErrSuperseded.
func (e *Editor) Adjust(ctx context.Context, patch core.Patch) (core.EncodedImage, error) {
	return e.inner.UpdateAdjustments(ctx, patch)
}

// Reset restores default adjustments and returns a preview-tier render.
func (e *Editor) Reset(ctx context.Context) (core.EncodedImage, error) {
	return e.inner.ResetAdjustments(ctx)
}

// Export renders the current adjustments at full source resolution.
func (e *Editor) Export(ctx context.Context) (core.EncodedImage, error) {
	return e.inner.GenerateFinalImage(ctx)
}

// Undo steps back one committed snapshot.
func (e *Editor) Undo() (core.EncodedImage, bool) { return e.inner.Undo() }

// Redo steps forward one committed snapshot.
func (e *Editor) Redo() (core.EncodedImage, bool) { return e.inner.Redo() }

// Close releases buffers and terminates the owned task executor.
func (e *Editor) Close() { e.inner.Destroy() }

// Stats returns lightweight render statistics.
func (e *Editor) Stats() (renders, errors int64) { return e.inner.Stats() }

// ── Source constructors ───────────────────────────────────────────────────────

// FromReader creates a Source from an io.Reader.
func FromReader(r io.Reader) core.Source { return core.Source{Reader: r, Size: -1} }

// FromReaderWithMeta creates a Source with known size and content-type hints.
func FromReaderWithMeta(r io.Reader, size int64, contentType, name string) core.Source {
	return core.Source{Reader: r, Size: size, ContentType: contentType, Name: name}
}

// ── Patch constructors ────────────────────────────────────────────────────────

// Brightness returns a patch setting brightness (0-200, 100 neutral).
func Brightness(v float64) core.Patch { return core.Patch{Brightness: &v} }

// Contrast returns a patch setting contrast (0-200, 100 neutral).
func Contrast(v float64) core.Patch { return core.Patch{Contrast: &v} }

// Saturation returns a patch setting saturation (0-200, 100 neutral).
func Saturation(v float64) core.Patch { return core.Patch{Saturation: &v} }

// Rotate returns a patch setting the rotation in degrees clockwise.
func Rotate(degrees float64) core.Patch { return core.Patch{RotationDegrees: &degrees} }

// Filter returns a patch selecting a filter preset.
func Filter(p core.FilterPreset) core.Patch { return core.Patch{Filter: &p} }

// Crop returns a patch cropping to the given rect in the rotated/flipped
// coordinate space.
func Crop(x, y, w, h int) core.Patch {
	return core.Patch{Crop: &core.CropRect{X: x, Y: y, W: w, H: h}}
}
