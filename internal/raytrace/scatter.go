package raytrace

import (
	"math"
	"math/rand"

	"mask-light-renderer/internal/mathutil"
)

// Diffuse returns a random unit direction on the same side of the surface as
// the incoming direction, so a diffuse bounce keeps transmitting rather than
// turning back.
func Diffuse(rng *rand.Rand, incoming, normal mathutil.Vec2) mathutil.Vec2 {
	var p mathutil.Vec2
	for {
		p = mathutil.Vec2{rng.Float64()*2 - 1, rng.Float64()*2 - 1}
		if p != (mathutil.Vec2{}) {
			break
		}
	}
	d := p.Normalize()
	if (d.Dot(normal) >= 0) != (incoming.Dot(normal) >= 0) {
		d = d.Neg()
	}
	return d
}

// Reflect mirrors incoming about the surface with the given unit normal.
func Reflect(incoming, normal mathutil.Vec2) mathutil.Vec2 {
	return incoming.Sub(normal.Scale(2 * incoming.Dot(normal)))
}

// Refract bends incoming through a surface by Snell's law. eta is the ratio
// of refractive indices for a ray travelling against the normal; a ray on the
// back side uses the flipped normal and 1/eta. ok is false on total internal
// reflection. The result is not normalized.
func Refract(eta float64, incoming, normal mathutil.Vec2) (out mathutil.Vec2, ok bool) {
	if incoming.Dot(normal) >= 0 {
		normal = normal.Neg()
		eta = 1 / eta
	}
	cosi := -incoming.Dot(normal)
	k := 1 - eta*eta*(1-cosi*cosi)
	if k < 0 {
		return mathutil.Vec2{}, false
	}
	return incoming.Scale(eta).Add(normal.Scale(eta*cosi - math.Sqrt(k))), true
}
