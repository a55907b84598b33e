package core

import (
	"fmt"
	"strings"
)

// FilterPreset is the closed set of named effect filters.  The Effects stage
// switches over it exhaustively, so adding a preset is a compile-time-checked
// enumeration change rather than a map lookup.
type FilterPreset uint8

const (
	FilterNone FilterPreset = iota
	FilterGrayscale
	FilterSepia
	FilterInvert
	FilterWarm
	FilterCool
	FilterVintage
	FilterDramatic
	FilterNoir
	FilterFade
)

var filterNames = [...]string{
	FilterNone:      "none",
	FilterGrayscale: "grayscale",
	FilterSepia:     "sepia",
	FilterInvert:    "invert",
	FilterWarm:      "warm",
	FilterCool:      "cool",
	FilterVintage:   "vintage",
	FilterDramatic:  "dramatic",
	FilterNoir:      "noir",
	FilterFade:      "fade",
}

func (f FilterPreset) String() string {
	if int(f) < len(filterNames) {
		return filterNames[f]
	}
	return "none"
}

// Presets lists every preset name in declaration order.
func Presets() []string {
	out := make([]string, len(filterNames))
	copy(out, filterNames[:])
	return out
}

// ParseFilterPreset resolves a preset by name; unknown names are an error.
func ParseFilterPreset(name string) (FilterPreset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range filterNames {
		if n == name {
			return FilterPreset(i), nil
		}
	}
	return FilterNone, fmt.Errorf("unknown filter preset %q", name)
}

// CropRect is an optional crop region expressed in the coordinate space of
// the already-rotated/flipped buffer.
type CropRect struct {
	X, Y, W, H int
}

// AdjustmentParams is the immutable value object driving a pipeline pass,
// grouped by stage.  Out-of-range values are clamped before use, never
// rejected.
type AdjustmentParams struct {
	// Geometry.
	RotationDegrees float64 // 0/90/180/270 for pixel-exact output; arbitrary allowed
	FlipHorizontal  bool
	FlipVertical    bool
	Crop            *CropRect

	// Tone.
	Brightness float64 // [0,200], 100 = neutral
	Contrast   float64 // [0,200], 100 = neutral
	Clarity    float64 // [-100,100]
	Sharpen    float64 // [0,100]

	// Colour.
	Saturation  float64 // [0,200], 100 = neutral
	Vibrance    float64 // [-100,100]
	Hue         float64 // [0,360)
	Temperature float64 // [-100,100]

	// Effects.
	Filter   FilterPreset
	Vignette float64 // [0,100]
	Noise    float64 // [0,100]
	Blur     float64 // [0,100]
}

// DefaultParams returns the identity adjustment set.
func DefaultParams() AdjustmentParams {
	return AdjustmentParams{
		Brightness: 100,
		Contrast:   100,
		Saturation: 100,
	}
}

// Clamped returns a copy with every numeric field forced into range.
func (p AdjustmentParams) Clamped() AdjustmentParams {
	p.RotationDegrees = wrap360(p.RotationDegrees)
	p.Brightness = clampRange(p.Brightness, 0, 200)
	p.Contrast = clampRange(p.Contrast, 0, 200)
	p.Clarity = clampRange(p.Clarity, -100, 100)
	p.Sharpen = clampRange(p.Sharpen, 0, 100)
	p.Saturation = clampRange(p.Saturation, 0, 200)
	p.Vibrance = clampRange(p.Vibrance, -100, 100)
	p.Hue = wrap360(p.Hue)
	p.Temperature = clampRange(p.Temperature, -100, 100)
	if int(p.Filter) >= len(filterNames) {
		p.Filter = FilterNone
	}
	p.Vignette = clampRange(p.Vignette, 0, 100)
	p.Noise = clampRange(p.Noise, 0, 100)
	p.Blur = clampRange(p.Blur, 0, 100)
	return p
}

// Patch is a partial adjustment update; nil fields leave the current value
// unchanged.  A new Patch atomically replaces any pending one when previews
// are coalesced.
type Patch struct {
	RotationDegrees *float64
	FlipHorizontal  *bool
	FlipVertical    *bool
	Crop            *CropRect
	ClearCrop       bool

	Brightness *float64
	Contrast   *float64
	Clarity    *float64
	Sharpen    *float64

	Saturation  *float64
	Vibrance    *float64
	Hue         *float64
	Temperature *float64

	Filter   *FilterPreset
	Vignette *float64
	Noise    *float64
	Blur     *float64
}

// Apply merges the patch onto p and returns the clamped result.
func (patch Patch) Apply(p AdjustmentParams) AdjustmentParams {
	if patch.RotationDegrees != nil {
		p.RotationDegrees = *patch.RotationDegrees
	}
	if patch.FlipHorizontal != nil {
		p.FlipHorizontal = *patch.FlipHorizontal
	}
	if patch.FlipVertical != nil {
		p.FlipVertical = *patch.FlipVertical
	}
	if patch.ClearCrop {
		p.Crop = nil
	} else if patch.Crop != nil {
		c := *patch.Crop
		p.Crop = &c
	}
	if patch.Brightness != nil {
		p.Brightness = *patch.Brightness
	}
	if patch.Contrast != nil {
		p.Contrast = *patch.Contrast
	}
	if patch.Clarity != nil {
		p.Clarity = *patch.Clarity
	}
	if patch.Sharpen != nil {
		p.Sharpen = *patch.Sharpen
	}
	if patch.Saturation != nil {
		p.Saturation = *patch.Saturation
	}
	if patch.Vibrance != nil {
		p.Vibrance = *patch.Vibrance
	}
	if patch.Hue != nil {
		p.Hue = *patch.Hue
	}
	if patch.Temperature != nil {
		p.Temperature = *patch.Temperature
	}
	if patch.Filter != nil {
		p.Filter = *patch.Filter
	}
	if patch.Vignette != nil {
		p.Vignette = *patch.Vignette
	}
	if patch.Noise != nil {
		p.Noise = *patch.Noise
	}
	if patch.Blur != nil {
		p.Blur = *patch.Blur
	}
	return p.Clamped()
}

// Discrete reports whether the patch represents an explicit, discrete action
// (rotate, flip, crop, preset selection) rather than a slider drag.  Discrete
// actions commit to history immediately instead of waiting out the debounce
// window.
func (patch Patch) Discrete() bool {
	return patch.RotationDegrees != nil ||
		patch.FlipHorizontal != nil ||
		patch.FlipVertical != nil ||
		patch.Crop != nil ||
		patch.ClearCrop ||
		patch.Filter != nil
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func wrap360(v float64) float64 {
	for v < 0 {
		v += 360
	}
	for v >= 360 {
		v -= 360
	}
	return v
}
