package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Flatten composites img over black and returns an opaque copy anchored at
// (0,0). Transparent mask pixels become outside regardless of their color.
func Flatten(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := dst.PixOffset(x-b.Min.X, y-b.Min.Y)
			a := float64(img.Pix[si+3]) / 255.0
			dst.Pix[di] = clamp8(float64(img.Pix[si]) * a)
			dst.Pix[di+1] = clamp8(float64(img.Pix[si+1]) * a)
			dst.Pix[di+2] = clamp8(float64(img.Pix[si+2]) * a)
			dst.Pix[di+3] = 255
		}
	}
	return dst
}

// Fit flattens img and rescales it to width×height with CatmullRom
// filtering. When the size already matches only the flatten happens.
func Fit(img *image.NRGBA, width, height int) *image.NRGBA {
	flat := Flatten(img)
	if flat.Bounds().Dx() == width && flat.Bounds().Dy() == height {
		return flat
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), flat, flat.Bounds(), draw.Src, nil)
	// CatmullRom overshoots near hard edges; alpha must stay opaque.
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 255
	}
	return dst
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
