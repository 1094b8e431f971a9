package postprocess

import "image"

// Blur smooths img with three box passes in each direction, which approximates
// a Gaussian with sigma near radius. Samples past the border clamp to the edge.
// The result is an opaque copy; radius <= 0 returns the copy unblurred.
func Blur(img *image.NRGBA, radius int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		si := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:(y+1)*dst.Stride], img.Pix[si:si+w*4])
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 255
	}
	if radius <= 0 || w == 0 || h == 0 {
		return dst
	}

	tmp := make([]uint8, len(dst.Pix))
	copy(tmp, dst.Pix)
	for range 3 {
		box(dst.Pix, tmp, h, w, w*4, 4, radius)
		box(tmp, dst.Pix, w, h, 4, w*4, radius)
	}
	return dst
}

// box runs a moving average of width 2r+1 over the RGB channels of lines
// lines of n samples each. Line l starts at l*lineStep; samples are step apart.
func box(src, dst []uint8, lines, n, lineStep, step, r int) {
	win := 2*r + 1
	at := func(base, i int) int {
		return base + min(max(i, 0), n-1)*step
	}
	for l := 0; l < lines; l++ {
		base := l * lineStep
		for c := 0; c < 3; c++ {
			sum := 0
			for k := -r; k <= r; k++ {
				sum += int(src[at(base, k)+c])
			}
			for i := 0; i < n; i++ {
				dst[base+i*step+c] = uint8((sum + win/2) / win)
				sum += int(src[at(base, i+r+1)+c]) - int(src[at(base, i-r)+c])
			}
		}
	}
}
