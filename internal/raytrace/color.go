package raytrace

import (
	"math"

	"mask-light-renderer/internal/mathutil"
)

const (
	// DisplayGamma is the encoding gamma of the output bytes.
	DisplayGamma = 2.2
	invGamma     = 1.0 / DisplayGamma
)

// RGB is a linear-light color. Components are not clamped.
type RGB struct {
	R, G, B float64
}

// diagnosticColor marks a boundary pixel whose normal is undefined. It lies
// outside any color a ray can deposit.
var diagnosticColor = RGB{10, -10, -10}

func (c RGB) Scale(s float64) RGB {
	return RGB{c.R * s, c.G * s, c.B * s}
}

// HueToRGB maps a hue in [0,1) to a saturated color. The hue circle is split
// into three bands ramping red→green, green→blue and blue→red; the ramp is
// square-rooted so mid-band hues keep their brightness.
func HueToRGB(hue float64) RGB {
	hue -= math.Floor(hue)
	x := hue * 3
	band := int(x)
	t := x - float64(band)
	if band > 2 {
		band, t = 2, 1
	}

	var c RGB
	switch band {
	case 0:
		c = RGB{1 - t, t, 0}
	case 1:
		c = RGB{0, 1 - t, t}
	default:
		c = RGB{t, 0, 1 - t}
	}
	return RGB{math.Sqrt(c.R), math.Sqrt(c.G), math.Sqrt(c.B)}
}

// EncodeGamma converts one linear channel to a display byte. Values at or
// below zero (including NaN) map to 0, values at or above one to 255.
func EncodeGamma(v float64) uint8 {
	v = mathutil.Clamp01(v)
	return clamp255(math.Pow(v, invGamma) * 255)
}

// Blit writes the whole buffer into out as gamma-encoded RGBA8 with opaque
// alpha. len(out) must be Width*Height*4.
func (a *Accum) Blit(out []byte) {
	n := a.Width * a.Height
	for i := 0; i < n; i++ {
		src := a.Pix[i*3 : i*3+3 : i*3+3]
		dst := out[i*4 : i*4+4 : i*4+4]
		dst[0] = EncodeGamma(src[0])
		dst[1] = EncodeGamma(src[1])
		dst[2] = EncodeGamma(src[2])
		dst[3] = 255
	}
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
