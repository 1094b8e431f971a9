package mathutil

import "math"

// Vec2 is a 2-component vector (value type, stack-allocated).
// Index 0 is x (column axis), index 1 is y (row axis).
type Vec2 [2]float64

func (a Vec2) Add(b Vec2) Vec2 {
	return Vec2{a[0] + b[0], a[1] + b[1]}
}

func (a Vec2) Sub(b Vec2) Vec2 {
	return Vec2{a[0] - b[0], a[1] - b[1]}
}

func (v Vec2) Neg() Vec2 {
	return Vec2{-v[0], -v[1]}
}

func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v[0] * s, v[1] * s}
}

// Div divides componentwise. A zero component in b yields ±Inf or NaN.
func (a Vec2) Div(b Vec2) Vec2 {
	return Vec2{a[0] / b[0], a[1] / b[1]}
}

func (v Vec2) DivScalar(s float64) Vec2 {
	return Vec2{v[0] / s, v[1] / s}
}

func (a Vec2) Dot(b Vec2) float64 {
	return a[0]*b[0] + a[1]*b[1]
}

func (v Vec2) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns v / |v|. The zero vector has no direction and yields NaN
// components; callers check IsFinite where that can happen.
func (v Vec2) Normalize() Vec2 {
	return v.DivScalar(math.Sqrt(v.Dot(v)))
}

// Floor returns the per-component floor.
func (v Vec2) Floor() Vec2 {
	return Vec2{math.Floor(v[0]), math.Floor(v[1])}
}

// Fract returns v - Floor(v), each component in [0,1).
func (v Vec2) Fract() Vec2 {
	return v.Sub(v.Floor())
}

// FloorInt floors both components to an integer (col, row) pair.
// The result is meaningless for non-finite vectors.
func (v Vec2) FloorInt() (int, int) {
	f := v.Floor()
	return int(f[0]), int(f[1])
}

// IsFinite reports whether neither component is NaN or ±Inf.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(v[0]) && !math.IsInf(v[0], 0) &&
		!math.IsNaN(v[1]) && !math.IsInf(v[1], 0)
}

// FromAngle returns the unit vector (cos θ, sin θ).
func FromAngle(theta float64) Vec2 {
	s, c := math.Sincos(theta)
	return Vec2{c, s}
}
