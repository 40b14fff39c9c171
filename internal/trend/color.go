package trend

import (
	"fmt"

	"github.com/hyperjump/trendlens/pkg/utils"
)

const (
	hueStep   = 60
	hueOffset = 200

	saturation = 0.70
	lightness  = 0.50
)

// Hue returns the hue in degrees for the keyword at index i of a result set.
func Hue(i int) int {
	h := (i*hueStep + hueOffset) % 360
	if h < 0 {
		h += 360
	}
	return h
}

// Color returns the CSS color for hue h.
func Color(h int) string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", h, int(saturation*100), int(lightness*100))
}

// RGB returns the color for hue h as red, green, and blue bytes.
func RGB(h int) (r, g, b uint8) {
	return utils.HSLToRGB(float64(h), saturation, lightness)
}

// Hex returns the color for hue h as #rrggbb.
func Hex(h int) string {
	r, g, b := RGB(h)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
