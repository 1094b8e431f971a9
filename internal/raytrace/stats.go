package raytrace

import (
	"log/slog"
	"time"

	"mask-light-renderer/internal/mathutil"
)

// EventKind classifies what happened to a ray at one step.
type EventKind uint8

const (
	Exited          EventKind = iota // walked off the image
	BudgetExhausted                  // ran out of steps
	UndefinedNormal                  // crossed a boundary with a flat gradient
	NonFinite                        // direction became NaN or Inf
	Diffused                         // diffuse bounce at a boundary
	Refracted                        // refracted through a boundary
	Reflected                        // total internal reflection
)

func (k EventKind) String() string {
	switch k {
	case Exited:
		return "exited"
	case BudgetExhausted:
		return "budget_exhausted"
	case UndefinedNormal:
		return "undefined_normal"
	case NonFinite:
		return "non_finite"
	case Diffused:
		return "diffused"
	case Refracted:
		return "refracted"
	case Reflected:
		return "reflected"
	}
	return "unknown"
}

// Terminal reports whether the event ends the ray.
func (k EventKind) Terminal() bool {
	return k <= NonFinite
}

// Event describes one ray event. Dir is the direction after the event.
type Event struct {
	Kind EventKind
	Col  int
	Row  int
	Step int
	Dir  mathutil.Vec2
}

// FrameStats counts what the rays of one frame (or a sum of frames) did.
type FrameStats struct {
	Frame    int
	Rays     int
	Steps    int64
	Duration time.Duration

	Exited           int
	BudgetExhausted  int
	UndefinedNormals int
	NonFinite        int
	Diffused         int
	Refracted        int
	Reflected        int
}

func (s *FrameStats) record(k EventKind) {
	switch k {
	case Exited:
		s.Exited++
	case BudgetExhausted:
		s.BudgetExhausted++
	case UndefinedNormal:
		s.UndefinedNormals++
	case NonFinite:
		s.NonFinite++
	case Diffused:
		s.Diffused++
	case Refracted:
		s.Refracted++
	case Reflected:
		s.Reflected++
	}
}

// Crossings is the number of boundary crossings that triggered an event.
func (s FrameStats) Crossings() int {
	return s.Diffused + s.Refracted + s.Reflected + s.UndefinedNormals
}

// Add folds o into s. Frame keeps the latest frame number.
func (s *FrameStats) Add(o FrameStats) {
	s.Frame = max(s.Frame, o.Frame)
	s.Rays += o.Rays
	s.Steps += o.Steps
	s.Duration += o.Duration
	s.Exited += o.Exited
	s.BudgetExhausted += o.BudgetExhausted
	s.UndefinedNormals += o.UndefinedNormals
	s.NonFinite += o.NonFinite
	s.Diffused += o.Diffused
	s.Refracted += o.Refracted
	s.Reflected += o.Reflected
}

// LogValue implements slog.LogValuer.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", s.Frame),
		slog.Int("rays", s.Rays),
		slog.Int64("steps", s.Steps),
		slog.Duration("took", s.Duration),
		slog.Int("exited", s.Exited),
		slog.Int("budget_exhausted", s.BudgetExhausted),
		slog.Int("undefined_normals", s.UndefinedNormals),
		slog.Int("non_finite", s.NonFinite),
		slog.Int("diffused", s.Diffused),
		slog.Int("refracted", s.Refracted),
		slog.Int("reflected", s.Reflected),
	)
}
