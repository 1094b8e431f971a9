package mathutil

import "math"

const (
	// Tau is a full turn in radians.
	Tau = 2 * math.Pi

	// Sqrt2 is the longest straight path through a unit cell.
	Sqrt2 = math.Sqrt2
)

// Clamp01 clamps x to [0,1]. NaN maps to 0.
func Clamp01(x float64) float64 {
	if !(x > 0) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
