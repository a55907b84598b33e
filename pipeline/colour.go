package pipeline

import (
	"context"

	"github.com/darkroom-go/darkroom/core"
	"github.com/darkroom-go/darkroom/raster"
)

// ColourStage applies temperature in RGB space, then rotates hue and adjusts
// saturation/vibrance through an HSL round-trip.
type ColourStage struct{}

func (s *ColourStage) Name() string { return "colour" }

func (s *ColourStage) Apply(ctx context.Context, buf *raster.Buffer, p core.AdjustmentParams) (*raster.Buffer, error) {
	temperature := p.Temperature != 0
	hsl := p.Saturation != 100 || p.Vibrance != 0 || p.Hue != 0
	if !temperature && !hsl {
		return buf, nil
	}

	// Temperature shift per unit: R/G move together, B moves twice as far in
	// the opposite direction.  Warm (+) lifts R/G and drops B.
	const tempStep = 0.3
	rgShift := p.Temperature * tempStep
	bShift := -p.Temperature * tempStep * 2

	hueShift := p.Hue / 360
	satScale := p.Saturation / 100
	vibrance := p.Vibrance / 100

	err := raster.ParallelRows(ctx, buf.H, func(y0, y1 int) error {
		for i := y0 * buf.W * 4; i < y1*buf.W*4; i += 4 {
			r, g, b := buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2]

			if temperature {
				r = raster.Clamp255(float64(r) + rgShift)
				g = raster.Clamp255(float64(g) + rgShift)
				b = raster.Clamp255(float64(b) + bShift)
			}

			if hsl {
				h, sat, l := raster.RGBToHSL(r, g, b)
				h += hueShift
				if h >= 1 {
					h--
				}
				sat *= satScale
				if vibrance != 0 {
					// Vibrance boosts saturation more for less-saturated
					// pixels.
					sat *= 1 + vibrance*(1-sat)
				}
				if sat < 0 {
					sat = 0
				} else if sat > 1 {
					sat = 1
				}
				r, g, b = raster.HSLToRGB(h, sat, l)
			}

			buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = r, g, b
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}
