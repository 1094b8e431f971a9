package raytrace

import (
	"errors"
	"fmt"
	"math"
)

// VoxelEpsilon is added to every DDA step so the walker always lands strictly
// inside the next cell.
const VoxelEpsilon = 0.01

var ErrInvalidParams = errors.New("raytrace: invalid params")

// Params holds the visual tuning constants of the renderer. None of them
// affect correctness, only the look and brightness of the image.
type Params struct {
	// Rays cast per Raytrace call.
	ItersPerFrame int `json:"iters_per_frame"`
	// Overall brightness scale K; each ray is weighted K/(ItersPerFrame*frame).
	Brightness float64 `json:"brightness"`
	// Chance of a diffuse bounce when a ray leaves a material.
	DiffuseProbability float64 `json:"diffuse_probability"`
	// Steps after a crossing during which no further crossing is detected.
	RefractCooldown int `json:"refract_cooldown"`
	// Refraction ratio is EtaBase + hue*EtaSpread (dispersion).
	EtaBase   float64 `json:"eta_base"`
	EtaSpread float64 `json:"eta_spread"`
	// Write the (10,-10,-10) sentinel where a boundary has no normal.
	MarkUndefinedNormals bool `json:"mark_undefined_normals"`
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		ItersPerFrame:        1000,
		Brightness:           100,
		DiffuseProbability:   0.25,
		RefractCooldown:      3,
		EtaBase:              1.3,
		EtaSpread:            0.2,
		MarkUndefinedNormals: true,
	}
}

// Validate reports the first out-of-range field.
func (p Params) Validate() error {
	switch {
	case p.ItersPerFrame <= 0:
		return fmt.Errorf("%w: iters_per_frame %d must be positive", ErrInvalidParams, p.ItersPerFrame)
	case !(p.Brightness > 0) || math.IsInf(p.Brightness, 0):
		return fmt.Errorf("%w: brightness %v must be positive and finite", ErrInvalidParams, p.Brightness)
	case !(p.DiffuseProbability >= 0 && p.DiffuseProbability <= 1):
		return fmt.Errorf("%w: diffuse_probability %v outside [0,1]", ErrInvalidParams, p.DiffuseProbability)
	case p.RefractCooldown < 0:
		return fmt.Errorf("%w: refract_cooldown %d is negative", ErrInvalidParams, p.RefractCooldown)
	case !(p.EtaBase > 0) || math.IsInf(p.EtaBase, 0):
		return fmt.Errorf("%w: eta_base %v must be positive and finite", ErrInvalidParams, p.EtaBase)
	case !(p.EtaBase+p.EtaSpread > 0) || math.IsNaN(p.EtaSpread) || math.IsInf(p.EtaSpread, 0):
		return fmt.Errorf("%w: eta_spread %v makes the ratio non-positive", ErrInvalidParams, p.EtaSpread)
	}
	return nil
}

// Eta returns the refraction ratio for a ray of the given hue.
func (p Params) Eta(hue float64) float64 {
	return p.EtaBase + hue*p.EtaSpread
}
