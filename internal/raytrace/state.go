// Package raytrace renders two-dimensional light transport through a mask
// image. Rays leave a point light, walk the pixel grid cell by cell, refract,
// reflect or scatter where the mask changes, and leave their color on every
// pixel they cross. Each frame adds a batch of rays to a running mean, so the
// image converges as frames accumulate.
package raytrace

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"mask-light-renderer/internal/material"
	"mask-light-renderer/internal/mathutil"
)

var (
	ErrEmptyImage   = errors.New("raytrace: image has zero area")
	ErrBufferSize   = errors.New("raytrace: material buffer length does not match image size")
	ErrInvalidFrame = errors.New("raytrace: frame must be >= 1")
	ErrOutputSize   = errors.New("raytrace: output buffer length does not match image size")
)

// State owns the accumulation buffer of one rendered image and borrows the two
// material buffers. The material buffers must outlive the State and must not
// be modified while it is in use. A State is not safe for concurrent use.
type State struct {
	width   int
	height  int
	sampler *material.Sampler
	origin  mathutil.Vec2
	params  Params
	acc     *Accum

	rng      *rand.Rand
	workers  int
	partials []*Accum
	logger   *slog.Logger

	// observe receives every ray event. Only set with a single worker.
	observe func(Event)
}

// New validates the inputs and allocates a zeroed accumulation buffer.
// edge and blur are RGBA8 buffers of width*height*4 bytes. origin is the
// emission point in pixel coordinates and may lie outside the image.
func New(width, height int, edge, blur []byte, origin mathutil.Vec2, opts ...Option) (*State, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyImage, width, height)
	}
	if n := width * height * 4; len(edge) != n || len(blur) != n {
		return nil, fmt.Errorf("%w: edge %d, blur %d, want %d bytes", ErrBufferSize, len(edge), len(blur), n)
	}
	sampler, err := material.NewSampler(width, height, edge, blur)
	if err != nil {
		return nil, fmt.Errorf("raytrace: %w", err)
	}

	s := &State{
		width:   width,
		height:  height,
		sampler: sampler,
		origin:  origin,
		params:  DefaultParams(),
		acc:     NewAccum(width, height),
		workers: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.params.Validate(); err != nil {
		return nil, err
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.workers > 1 {
		s.partials = make([]*Accum, s.workers)
		for i := range s.partials {
			s.partials[i] = NewAccum(width, height)
		}
	}
	return s, nil
}

// Size returns the image dimensions.
func (s *State) Size() (width, height int) { return s.width, s.height }

// Origin returns the emission point.
func (s *State) Origin() mathutil.Vec2 { return s.origin }

// Params returns the tuning in use.
func (s *State) Params() Params { return s.params }

// Accum exposes the linear accumulation buffer. Callers must not modify it.
func (s *State) Accum() *Accum { return s.acc }

func (s *State) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return Logger()
}

// Raytrace renders frame number frame (starting at 1) and writes the gamma
// encoded image into out, which must hold width*height*4 bytes and is fully
// overwritten. After frame f the buffer holds the mean over all rays of frames
// 1..f. Arguments are checked before anything is modified.
func (s *State) Raytrace(out []byte, frame int) (FrameStats, error) {
	if frame < 1 {
		return FrameStats{}, fmt.Errorf("%w: got %d", ErrInvalidFrame, frame)
	}
	if n := s.width * s.height * 4; len(out) != n {
		return FrameStats{}, fmt.Errorf("%w: got %d bytes, want %d", ErrOutputSize, len(out), n)
	}

	start := time.Now()
	f := float64(frame)
	s.acc.Scale((f - 1) / f)
	weight := s.params.Brightness / (float64(s.params.ItersPerFrame) * f)

	stats, diag := s.cast(weight)
	for _, i := range diag {
		s.acc.Set(i, diagnosticColor)
	}
	s.acc.Blit(out)

	stats.Frame = frame
	stats.Duration = time.Since(start)

	log := s.log()
	log.Debug("frame traced", "stats", stats)
	if stats.UndefinedNormals > 0 {
		log.Warn("boundary without normal", "frame", frame, "count", stats.UndefinedNormals)
	}
	return stats, nil
}

// cast emits ItersPerFrame rays and returns their stats and the pixels that
// need the diagnostic mark.
func (s *State) cast(weight float64) (FrameStats, []int) {
	iters := s.params.ItersPerFrame
	if s.workers <= 1 {
		t := newTracer(s.sampler, s.params, s.rng, s.acc)
		t.observe = s.observe
		for i := 0; i < iters; i++ {
			t.castRandom(s.origin, weight)
		}
		return t.stats, t.diag
	}

	// Seeds are drawn up front so the result depends only on the seed and the
	// worker count, not on scheduling.
	tracers := make([]*tracer, s.workers)
	for i := range tracers {
		s.partials[i].Reset()
		rng := rand.New(rand.NewSource(s.rng.Int63()))
		tracers[i] = newTracer(s.sampler, s.params, rng, s.partials[i])
	}

	var wg sync.WaitGroup
	for i, t := range tracers {
		n := iters / s.workers
		if i < iters%s.workers {
			n++
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range n {
				t.castRandom(s.origin, weight)
			}
		}()
	}
	wg.Wait()

	var stats FrameStats
	var diag []int
	for i, t := range tracers {
		s.acc.Merge(s.partials[i])
		stats.Add(t.stats)
		diag = append(diag, t.diag...)
	}
	return stats, diag
}
