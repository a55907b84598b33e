package raster

// BoxBlur applies a two-pass separable mean filter with integer radius r.
// Sampling outside the image repeats the edge pixel (clamp-to-edge).  Each
// channel, alpha included, is averaged independently.  The input buffer is
// consumed; the returned buffer is newly owned by the caller.
func BoxBlur(src *Buffer, radius int) *Buffer {
	if radius <= 0 {
		return src
	}
	w, h := src.W, src.H
	window := float64(2*radius + 1)

	// Pass 1: horizontal.
	tmp := &Buffer{W: w, H: h, Pix: make([]uint8, len(src.Pix))}
	for y := 0; y < h; y++ {
		row := y * w * 4
		for x := 0; x < w; x++ {
			var sum [4]float64
			for k := -radius; k <= radius; k++ {
				sx := clampIndex(x+k, w)
				o := row + sx*4
				sum[0] += float64(src.Pix[o])
				sum[1] += float64(src.Pix[o+1])
				sum[2] += float64(src.Pix[o+2])
				sum[3] += float64(src.Pix[o+3])
			}
			o := row + x*4
			for c := 0; c < 4; c++ {
				tmp.Pix[o+c] = Clamp255(sum[c] / window)
			}
		}
	}

	// Pass 2: vertical, reusing the input allocation as destination.
	dst := src
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var sum [4]float64
			for k := -radius; k <= radius; k++ {
				sy := clampIndex(y+k, h)
				o := (sy*w + x) * 4
				sum[0] += float64(tmp.Pix[o])
				sum[1] += float64(tmp.Pix[o+1])
				sum[2] += float64(tmp.Pix[o+2])
				sum[3] += float64(tmp.Pix[o+3])
			}
			o := (y*w + x) * 4
			for c := 0; c < 4; c++ {
				dst.Pix[o+c] = Clamp255(sum[c] / window)
			}
		}
	}
	return dst
}

// UnsharpMask sharpens by adding back the difference between the original and
// a radius-1 box blur: out = orig + amount * (orig - blurred), clamped per
// channel.  Alpha is preserved from the original.
func UnsharpMask(src *Buffer, amount float64) *Buffer {
	if amount <= 0 {
		return src
	}
	blurred := BoxBlur(src.Clone(), 1)
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			orig := float64(src.Pix[i+c])
			blur := float64(blurred.Pix[i+c])
			src.Pix[i+c] = Clamp255(orig + amount*(orig-blur))
		}
	}
	return src
}

// clampIndex clamps i into [0, n) by repeating the edge.
func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
