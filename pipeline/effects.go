package pipeline

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/darkroom-go/darkroom/core"
	"github.com/darkroom-go/darkroom/raster"
)

// Empirically chosen constants, kept verbatim for output parity with earlier
// renditions of the engine.  Do not re-derive.
const (
	// blurRadiusStep maps the blur slider to a kernel radius:
	// radius = max(1, blur/20).
	blurRadiusStep = 20
	// noiseAmplitude scales the noise slider to a per-channel excursion:
	// ±(noise/100)*25 at full strength.
	noiseAmplitude = 25
	// vignetteInner is the fraction of the image radius left untouched.
	vignetteInner = 0.5
)

// EffectsStage applies the filter preset, vignette, noise and blur, in that
// order.  Seed fixes the noise generator for reproducible output; 0 seeds
// from the clock.
type EffectsStage struct {
	Seed int64
}

func (s *EffectsStage) Name() string { return "effects" }

func (s *EffectsStage) Apply(ctx context.Context, buf *raster.Buffer, p core.AdjustmentParams) (*raster.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.Filter != core.FilterNone {
		if err := applyPreset(ctx, buf, p.Filter); err != nil {
			return nil, err
		}
	}
	if p.Vignette > 0 {
		applyVignette(buf, p.Vignette/100)
	}
	if p.Noise > 0 {
		s.applyNoise(buf, p.Noise/100)
	}
	if p.Blur > 0 {
		radius := int(p.Blur) / blurRadiusStep
		if radius < 1 {
			radius = 1
		}
		buf = raster.BoxBlur(buf, radius)
	}
	return buf, nil
}

// applyPreset rewrites RGB per the named recipe.  The switch is exhaustive
// over the closed FilterPreset set.
func applyPreset(ctx context.Context, buf *raster.Buffer, preset core.FilterPreset) error {
	return raster.ParallelRows(ctx, buf.H, func(y0, y1 int) error {
		for i := y0 * buf.W * 4; i < y1*buf.W*4; i += 4 {
			r := float64(buf.Pix[i])
			g := float64(buf.Pix[i+1])
			b := float64(buf.Pix[i+2])

			var nr, ng, nb float64
			switch preset {
			case core.FilterNone:
				nr, ng, nb = r, g, b
			case core.FilterGrayscale:
				luma := 0.299*r + 0.587*g + 0.114*b
				nr, ng, nb = luma, luma, luma
			case core.FilterSepia:
				nr = 0.393*r + 0.769*g + 0.189*b
				ng = 0.349*r + 0.686*g + 0.168*b
				nb = 0.272*r + 0.534*g + 0.131*b
			case core.FilterInvert:
				nr, ng, nb = 255-r, 255-g, 255-b
			case core.FilterWarm:
				nr, ng, nb = r*1.15+10, g*1.05+5, b*0.85
			case core.FilterCool:
				nr, ng, nb = r*0.85, g*1.05+5, b*1.15+10
			case core.FilterVintage:
				nr, ng, nb = r*0.9+30, g*0.85+20, b*0.7+10
			case core.FilterDramatic:
				nr, ng, nb = r*1.3-25, g*1.3-25, b*1.3-25
			case core.FilterNoir:
				luma := 0.299*r + 0.587*g + 0.114*b
				v := luma*1.3 - 30
				nr, ng, nb = v, v, v
			case core.FilterFade:
				nr, ng, nb = r*0.75+50, g*0.75+50, b*0.75+50
			}

			buf.Pix[i] = raster.Clamp255(nr)
			buf.Pix[i+1] = raster.Clamp255(ng)
			buf.Pix[i+2] = raster.Clamp255(nb)
		}
		return nil
	})
}

// applyVignette darkens radially: no effect within vignetteInner of the image
// radius from center, then quadratic falloff to the edge scaled by amount.
func applyVignette(buf *raster.Buffer, amount float64) {
	cx := float64(buf.W-1) / 2
	cy := float64(buf.H-1) / 2
	maxDist := math.Hypot(cx, cy)
	if maxDist == 0 {
		return
	}

	for y := 0; y < buf.H; y++ {
		dy := float64(y) - cy
		for x := 0; x < buf.W; x++ {
			dx := float64(x) - cx
			d := math.Hypot(dx, dy) / maxDist
			if d <= vignetteInner {
				continue
			}
			t := (d - vignetteInner) / (1 - vignetteInner)
			factor := 1 - t*t*amount
			i := buf.Offset(x, y)
			for c := 0; c < 3; c++ {
				buf.Pix[i+c] = raster.Clamp255(float64(buf.Pix[i+c]) * factor)
			}
		}
	}
}

// applyNoise adds uniform noise to roughly half the pixels.
func (s *EffectsStage) applyNoise(buf *raster.Buffer, amount float64) {
	seed := s.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	excursion := amount * noiseAmplitude
	for i := 0; i < len(buf.Pix); i += 4 {
		if rng.Float64() >= 0.5 {
			continue
		}
		n := (rng.Float64()*2 - 1) * excursion
		for c := 0; c < 3; c++ {
			buf.Pix[i+c] = raster.Clamp255(float64(buf.Pix[i+c]) + n)
		}
	}
}
