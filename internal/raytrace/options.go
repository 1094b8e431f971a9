package raytrace

import (
	"log/slog"
	"math/rand"
)

// Option configures a State.
type Option func(*State)

// WithRand sets the random source for ray angles, hues and diffuse bounces.
// The State takes ownership; do not use r elsewhere concurrently.
func WithRand(r *rand.Rand) Option {
	return func(s *State) {
		s.rng = r
	}
}

// WithSeed is WithRand(rand.New(rand.NewSource(seed))).
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithParams replaces the default tuning. New validates it.
func WithParams(p Params) Option {
	return func(s *State) {
		s.params = p
	}
}

// WithWorkers splits each frame's rays across n goroutines. Each worker
// accumulates into its own buffer, so memory grows by n buffers. n <= 1 keeps
// the frame single-threaded.
func WithWorkers(n int) Option {
	return func(s *State) {
		s.workers = max(n, 1)
	}
}

// WithLogger sets a logger for this State instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		s.logger = l
	}
}
