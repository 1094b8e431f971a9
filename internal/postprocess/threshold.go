package postprocess

import "image"

// DefaultLevel splits gray levels the same way the renderer's material test does.
const DefaultLevel = 128

// Threshold turns img into a binary mask: pixels whose mean RGB is at least
// level become white, everything else black. The result is opaque.
func Threshold(img *image.NRGBA, level uint8) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := dst.PixOffset(x-b.Min.X, y-b.Min.Y)
			sum := int(img.Pix[si]) + int(img.Pix[si+1]) + int(img.Pix[si+2])
			var v uint8
			if sum >= 3*int(level) {
				v = 255
			}
			dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2], dst.Pix[di+3] = v, v, v, 255
		}
	}
	return dst
}

// InsideFraction returns the share of white pixels in a binary mask.
func InsideFraction(mask *image.NRGBA) float64 {
	b := mask.Bounds()
	if b.Empty() {
		return 0
	}
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.Pix[mask.PixOffset(x, y)] >= DefaultLevel {
				n++
			}
		}
	}
	return float64(n) / float64(b.Dx()*b.Dy())
}
