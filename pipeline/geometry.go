package pipeline

import (
	"context"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/darkroom-go/darkroom/core"
	"github.com/darkroom-go/darkroom/raster"
)

// GeometryStage applies rotation about the buffer center and horizontal /
// vertical flips as a single composition, then an optional crop.  Crop
// coordinates are expressed in the already-rotated/flipped coordinate space.
// This is the only stage that may change buffer dimensions.
type GeometryStage struct {
	MaxPixels int64
}

func (s *GeometryStage) Name() string { return "geometry" }

func (s *GeometryStage) Apply(ctx context.Context, buf *raster.Buffer, p core.AdjustmentParams) (*raster.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rotation := p.RotationDegrees
	quarter := math.Mod(rotation, 90) == 0

	out := buf
	switch {
	case rotation == 0 && !p.FlipHorizontal && !p.FlipVertical:
		// Identity transform.
	case quarter:
		var err error
		out, err = s.remapQuarter(buf, int(rotation), p.FlipHorizontal, p.FlipVertical)
		if err != nil {
			return nil, err
		}
	default:
		// Arbitrary angles resample and introduce transparent fill at the
		// corners; only quarter turns are pixel-exact.
		var err error
		out, err = s.rotateArbitrary(buf, rotation, p.FlipHorizontal, p.FlipVertical)
		if err != nil {
			return nil, err
		}
	}

	if p.Crop != nil {
		return s.crop(out, *p.Crop)
	}
	return out, nil
}

// remapQuarter composes a 0/90/180/270 degree clockwise rotation with the
// flips into one per-pixel source lookup, keeping output pixel-exact.
func (s *GeometryStage) remapQuarter(src *raster.Buffer, degrees int, flipH, flipV bool) (*raster.Buffer, error) {
	srcW, srcH := src.W, src.H
	dstW, dstH := srcW, srcH
	if degrees == 90 || degrees == 270 {
		dstW, dstH = srcH, srcW
	}

	dst, err := raster.New(dstW, dstH, s.MaxPixels)
	if err != nil {
		return nil, err
	}

	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			// Undo the flips in destination space first, then invert the
			// rotation to find the source pixel.
			fx, fy := x, y
			if flipH {
				fx = dstW - 1 - x
			}
			if flipV {
				fy = dstH - 1 - y
			}

			var sx, sy int
			switch degrees {
			case 90:
				sx, sy = fy, srcH-1-fx
			case 180:
				sx, sy = srcW-1-fx, srcH-1-fy
			case 270:
				sx, sy = srcW-1-fy, fx
			default:
				sx, sy = fx, fy
			}

			so := src.Offset(sx, sy)
			do := dst.Offset(x, y)
			copy(dst.Pix[do:do+4], src.Pix[so:so+4])
		}
	}
	return dst, nil
}

// rotateArbitrary handles non-quarter angles through the imaging resampler,
// filling exposed corners with transparent background.
func (s *GeometryStage) rotateArbitrary(src *raster.Buffer, degrees float64, flipH, flipV bool) (*raster.Buffer, error) {
	img := src.ToImage()
	// imaging rotates counter-clockwise; the engine's convention is clockwise.
	rotated := imaging.Rotate(img, -degrees, color.NRGBA{})
	if flipH {
		rotated = imaging.FlipH(rotated)
	}
	if flipV {
		rotated = imaging.FlipV(rotated)
	}
	return raster.FromImage(rotated, s.MaxPixels)
}

// crop copies the requested region, clamped to the buffer bounds.  A rect
// with no overlap leaves the buffer unchanged — geometry never rejects
// out-of-range input.
func (s *GeometryStage) crop(src *raster.Buffer, r core.CropRect) (*raster.Buffer, error) {
	x0, y0 := r.X, r.Y
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	x1, y1 := r.X+r.W, r.Y+r.H
	if x1 > src.W {
		x1 = src.W
	}
	if y1 > src.H {
		y1 = src.H
	}
	if x1 <= x0 || y1 <= y0 {
		return src, nil
	}

	dst, err := raster.New(x1-x0, y1-y0, s.MaxPixels)
	if err != nil {
		return nil, err
	}
	for y := y0; y < y1; y++ {
		so := src.Offset(x0, y)
		do := dst.Offset(0, y-y0)
		copy(dst.Pix[do:do+(x1-x0)*4], src.Pix[so:so+(x1-x0)*4])
	}
	return dst, nil
}
