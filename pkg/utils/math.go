package utils

import "math"

// HSLToRGB converts hue in degrees and saturation/lightness in [0,1] to 8-bit RGB.
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2
	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}
	return toByte(rf + m), toByte(gf + m), toByte(bf + m)
}

func toByte(v float64) uint8 {
	return uint8(math.Round(Clamp(v, 0, 1) * 255))
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Percent formats a share in [0,1] as a whole percentage.
func Percent(share float64) int {
	return int(math.Round(share * 100))
}
