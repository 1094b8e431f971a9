package raytrace

import "gonum.org/v1/gonum/floats"

// Accum holds the linear-light accumulation target as one flat slice for
// cache locality.
type Accum struct {
	Width  int
	Height int
	Pix    []float64 // RGB interleaved, len = W*H*3
}

// NewAccum allocates a zeroed buffer.
func NewAccum(w, h int) *Accum {
	return &Accum{
		Width:  w,
		Height: h,
		Pix:    make([]float64, w*h*3),
	}
}

func (a *Accum) offset(col, row int) int {
	return (row*a.Width + col) * 3
}

// At returns the accumulated color of one pixel.
func (a *Accum) At(col, row int) RGB {
	i := a.offset(col, row)
	return RGB{a.Pix[i], a.Pix[i+1], a.Pix[i+2]}
}

// Add adds c to one pixel.
func (a *Accum) Add(col, row int, c RGB) {
	i := a.offset(col, row)
	a.Pix[i] += c.R
	a.Pix[i+1] += c.G
	a.Pix[i+2] += c.B
}

// Set overwrites one pixel addressed by its linear index row*W+col.
func (a *Accum) Set(index int, c RGB) {
	i := index * 3
	a.Pix[i] = c.R
	a.Pix[i+1] = c.G
	a.Pix[i+2] = c.B
}

// Scale multiplies every cell by f.
func (a *Accum) Scale(f float64) {
	floats.Scale(f, a.Pix)
}

// Merge adds b cell by cell. Both buffers must have the same size.
func (a *Accum) Merge(b *Accum) {
	floats.Add(a.Pix, b.Pix)
}

// Reset zeroes the buffer.
func (a *Accum) Reset() {
	clear(a.Pix)
}

// Energy returns the sum of all channels of all cells.
func (a *Accum) Energy() float64 {
	return floats.Sum(a.Pix)
}
