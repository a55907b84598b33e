package pipeline

import (
	"context"

	"github.com/darkroom-go/darkroom/core"
	"github.com/darkroom-go/darkroom/raster"
)

// ToneStage applies brightness, contrast, clarity and unsharp-mask sharpening,
// in that order.  Brightness and contrast are neutral at 100.
type ToneStage struct{}

func (s *ToneStage) Name() string { return "tone" }

func (s *ToneStage) Apply(ctx context.Context, buf *raster.Buffer, p core.AdjustmentParams) (*raster.Buffer, error) {
	neutral := p.Brightness == 100 && p.Contrast == 100 && p.Clarity == 0
	if neutral && p.Sharpen == 0 {
		return buf, nil
	}

	if !neutral {
		scale := p.Brightness / 100
		// Standard contrast correction factor; contrast is recentered from
		// the [0,200] slider range to [-100,100] before use.
		c := p.Contrast - 100
		factor := 259 * (c + 255) / (255 * (259 - c))
		clarity := p.Clarity / 100

		err := raster.ParallelRows(ctx, buf.H, func(y0, y1 int) error {
			for i := y0 * buf.W * 4; i < y1*buf.W*4; i += 4 {
				var ch [3]float64
				for c := 0; c < 3; c++ {
					v := float64(buf.Pix[i+c]) * scale
					ch[c] = factor*(v-128) + 128
				}
				if clarity != 0 {
					// Local contrast: push each channel away from the
					// pixel's own RGB mean.
					avg := (ch[0] + ch[1] + ch[2]) / 3
					for c := 0; c < 3; c++ {
						ch[c] += (ch[c] - avg) * clarity
					}
				}
				for c := 0; c < 3; c++ {
					buf.Pix[i+c] = raster.Clamp255(ch[c])
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// Sharpen runs once, after brightness/contrast/clarity have been applied
	// to every pixel.
	if p.Sharpen > 0 {
		buf = raster.UnsharpMask(buf, p.Sharpen/100)
	}
	return buf, nil
}
