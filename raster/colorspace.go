package raster

import "math"

// RGBToHSL converts 8-bit RGB channels to hue/saturation/lightness, each
// normalized to [0, 1).  The achromatic case (max == min) yields h = s = 0.
func RGBToHSL(r, g, b uint8) (h, s, l float64) {
	rf := float64(r) / 255
	gf := float64(g) / 255
	bf := float64(b) / 255

	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	l = (max + min) / 2

	if max == min {
		return 0, 0, l
	}

	d := max - min
	if l > 0.5 {
		s = d / (2 - max - min)
	} else {
		s = d / (max + min)
	}

	switch max {
	case rf:
		h = (gf - bf) / d
		if gf < bf {
			h += 6
		}
	case gf:
		h = (bf-rf)/d + 2
	default:
		h = (rf-gf)/d + 4
	}
	h /= 6
	return h, s, l
}

// HSLToRGB converts normalized HSL back to 8-bit RGB.  s == 0 yields the
// grayscale (l, l, l) scaled to [0, 255].
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	if s == 0 {
		v := Clamp255(l * 255)
		return v, v, v
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	rf := hueToChannel(p, q, h+1.0/3)
	gf := hueToChannel(p, q, h)
	bf := hueToChannel(p, q, h-1.0/3)
	return Clamp255(rf * 255), Clamp255(gf * 255), Clamp255(bf * 255)
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}

// Clamp255 rounds x and clamps it into [0, 255].  Every stage applies it as
// the last step before storing a channel into the output buffer.
func Clamp255(x float64) uint8 {
	v := math.Round(x)
	if v >= 255 {
		return 255
	}
	if v <= 0 {
		return 0
	}
	return uint8(v)
}
