package raytrace

import (
	"math"

	"mask-light-renderer/internal/mathutil"
)

// NextVoxel advances pos along dir to just past the nearest vertical or
// horizontal grid line (exact 2D DDA). dir should be unit length.
func NextVoxel(pos, dir mathutil.Vec2) mathutil.Vec2 {
	f := pos.Fract()
	tx := crossing(f[0], dir[0])
	ty := crossing(f[1], dir[1])
	return pos.Add(dir.Scale(minStep(tx, ty) + VoxelEpsilon))
}

// crossing returns the parametric distance from a cell-local coordinate to
// the cell wall in direction d. d == 0 never crosses and yields +Inf.
func crossing(frac, d float64) float64 {
	switch {
	case d > 0:
		return (1 - frac) / d
	case d < 0:
		return frac / -d
	default:
		return math.Inf(1)
	}
}

// minStep returns the smaller of two crossing distances. A non-finite operand
// is replaced by sqrt(2), the longest path through a unit cell, so the walker
// always takes a finite step.
func minStep(a, b float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		a = mathutil.Sqrt2
	}
	if math.IsNaN(b) || math.IsInf(b, 0) {
		b = mathutil.Sqrt2
	}
	return math.Min(a, b)
}

// ValidateBounds floors pos to a pixel and reports whether that pixel lies in
// [0,width)×[0,height). Non-finite positions are out of bounds.
func ValidateBounds(pos mathutil.Vec2, width, height int) (col, row int, ok bool) {
	if !pos.IsFinite() {
		return 0, 0, false
	}
	f := pos.Floor()
	if f[0] < 0 || f[0] >= float64(width) || f[1] < 0 || f[1] >= float64(height) {
		return 0, 0, false
	}
	return int(f[0]), int(f[1]), true
}
