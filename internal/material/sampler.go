// Package material gives read-only access to the mask images that define the
// medium: which pixels are inside an object and which way its surface faces.
package material

import (
	"errors"
	"fmt"

	"mask-light-renderer/internal/mathutil"
)

// Threshold separates outside (< Threshold) from inside (>= Threshold).
const Threshold = 0.5

var (
	ErrEmptyImage = errors.New("material: image has zero area")
	ErrBufferSize = errors.New("material: buffer length does not match image size")
)

// Sampler reads two same-sized RGBA8 buffers: the binary edge mask and a
// blurred copy of it used for normal estimation. The buffers are borrowed, not
// copied; they must outlive the Sampler and stay unmodified while it is used.
type Sampler struct {
	width  int
	height int
	edge   []byte
	blur   []byte
}

// NewSampler validates the buffers against width*height*4.
func NewSampler(width, height int, edge, blur []byte) (*Sampler, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}
	n := width * height * 4
	if len(edge) != n {
		return nil, fmt.Errorf("%w: edge has %d bytes, want %d", ErrBufferSize, len(edge), n)
	}
	if len(blur) != n {
		return nil, fmt.Errorf("%w: blur has %d bytes, want %d", ErrBufferSize, len(blur), n)
	}
	return &Sampler{width: width, height: height, edge: edge, blur: blur}, nil
}

// Width returns the image width in pixels.
func (s *Sampler) Width() int { return s.width }

// Height returns the image height in pixels.
func (s *Sampler) Height() int { return s.height }

// MaterialValue returns the mean of R, G, B of the edge mask scaled to [0,1].
// col and row must be in range.
func (s *Sampler) MaterialValue(col, row int) float64 {
	return average(s.edge, (row*s.width+col)*4)
}

// BlurValue is MaterialValue on the blurred buffer.
func (s *Sampler) BlurValue(col, row int) float64 {
	return average(s.blur, (row*s.width+col)*4)
}

// Inside reports whether a material value lies inside an object.
func Inside(v float64) bool {
	return v >= Threshold
}

// NormalAt estimates the surface normal at (col, row) from a 3×3 Sobel
// gradient of the blurred mask. Neighbours past the border are clamped to the
// edge pixel. The normal points toward increasing material value. ok is false
// when the neighbourhood is flat and the normal is undefined.
func (s *Sampler) NormalAt(col, row int) (n mathutil.Vec2, ok bool) {
	left := max(col-1, 0)
	right := min(col+1, s.width-1)
	up := max(row-1, 0)
	down := min(row+1, s.height-1)

	tl := s.BlurValue(left, up)
	tc := s.BlurValue(col, up)
	tr := s.BlurValue(right, up)
	ml := s.BlurValue(left, row)
	mr := s.BlurValue(right, row)
	bl := s.BlurValue(left, down)
	bc := s.BlurValue(col, down)
	br := s.BlurValue(right, down)

	gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
	gy := (bl + 2*bc + br) - (tl + 2*tc + tr)
	if gx == 0 && gy == 0 {
		return mathutil.Vec2{}, false
	}
	return mathutil.Vec2{gx, gy}.Normalize(), true
}

func average(pix []byte, i int) float64 {
	sum := int(pix[i]) + int(pix[i+1]) + int(pix[i+2])
	return float64(sum) / 3 / 255
}
