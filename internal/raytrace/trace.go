package raytrace

import (
	"math/rand"

	"mask-light-renderer/internal/material"
	"mask-light-renderer/internal/mathutil"
)

// tracer casts rays into one accumulation buffer with one random source.
// It is not safe for concurrent use; parallel frames give each worker its own.
type tracer struct {
	sampler *material.Sampler
	params  Params
	rng     *rand.Rand
	acc     *Accum
	budget  int

	stats   FrameStats
	diag    []int // linear indices of pixels to mark with diagnosticColor
	observe func(Event)
}

func newTracer(s *material.Sampler, p Params, rng *rand.Rand, acc *Accum) *tracer {
	return &tracer{
		sampler: s,
		params:  p,
		rng:     rng,
		acc:     acc,
		budget:  2 * max(s.Width(), s.Height()),
	}
}

// castRandom emits one ray from origin with a uniform angle and hue.
func (t *tracer) castRandom(origin mathutil.Vec2, weight float64) {
	theta := t.rng.Float64() * mathutil.Tau
	hue := t.rng.Float64()
	t.trace(origin, mathutil.FromAngle(theta), hue, weight)
}

// trace walks one ray through the grid, depositing color*weight on every
// visited pixel and scattering at material boundaries. It returns the number
// of pixels written.
func (t *tracer) trace(pos, dir mathutil.Vec2, hue, weight float64) int {
	t.stats.Rays++
	if !dir.IsFinite() {
		t.emit(Event{Kind: NonFinite, Dir: dir})
		return 0
	}

	color := HueToRGB(hue).Scale(weight)
	eta := t.params.Eta(hue)
	w, h := t.sampler.Width(), t.sampler.Height()

	var prev float64
	first := true
	cooldown := 0
	for step := 0; step < t.budget; step++ {
		col, row, ok := ValidateBounds(pos, w, h)
		if !ok {
			t.emit(Event{Kind: Exited, Step: step, Dir: dir})
			return step
		}
		t.stats.Steps++
		t.acc.Add(col, row, color)

		v := t.sampler.MaterialValue(col, row)
		switch {
		case cooldown > 0:
			cooldown--
		case !first && material.Inside(prev) != material.Inside(v):
			n, ok := t.sampler.NormalAt(col, row)
			if !ok {
				if t.params.MarkUndefinedNormals {
					t.diag = append(t.diag, row*w+col)
				}
				t.emit(Event{Kind: UndefinedNormal, Col: col, Row: row, Step: step, Dir: dir})
				return step + 1
			}

			kind := Refracted
			if v < prev && t.rng.Float64() < t.params.DiffuseProbability {
				dir, kind = Diffuse(t.rng, dir, n), Diffused
			} else if r, ok := Refract(eta, dir, n); ok {
				dir = r.Normalize()
			} else {
				dir, kind = Reflect(dir, n), Reflected
			}
			if !dir.IsFinite() {
				t.emit(Event{Kind: NonFinite, Col: col, Row: row, Step: step, Dir: dir})
				return step + 1
			}
			t.emit(Event{Kind: kind, Col: col, Row: row, Step: step, Dir: dir})
			cooldown = t.params.RefractCooldown
		}

		prev, first = v, false
		pos = NextVoxel(pos, dir)
	}

	t.emit(Event{Kind: BudgetExhausted, Step: t.budget, Dir: dir})
	return t.budget
}

func (t *tracer) emit(ev Event) {
	t.stats.record(ev.Kind)
	if t.observe != nil {
		t.observe(ev)
	}
}
