package raytrace

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"slices"
	"testing"

	"gonum.org/v1/gonum/stat"

	"mask-light-renderer/internal/material"
	"mask-light-renderer/internal/mathutil"
)

// grayImage returns a w×h RGBA8 buffer where f gives the gray level of each pixel.
func grayImage(w, h int, f func(col, row int) byte) []byte {
	pix := make([]byte, w*h*4)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			i := (row*w + col) * 4
			g := f(col, row)
			pix[i], pix[i+1], pix[i+2], pix[i+3] = g, g, g, 255
		}
	}
	return pix
}

// stepScene builds a vertical boundary: columns >= boundary are inside. The
// blur buffer ramps across the boundary over one pixel on each side.
func stepScene(w, h, boundary int) (edge, blur []byte) {
	edge = grayImage(w, h, func(col, _ int) byte {
		if col >= boundary {
			return 255
		}
		return 0
	})
	blur = grayImage(w, h, func(col, _ int) byte {
		return byte(min(max((col-boundary+2)*85, 0), 255))
	})
	return edge, blur
}

// circleScene puts a disc of radius r at the image center, with a 3×3 box
// blur for normals.
func circleScene(w, h int, r float64) (edge, blur []byte) {
	cx, cy := float64(w)/2, float64(h)/2
	inside := func(col, row int) bool {
		dx, dy := float64(col)+0.5-cx, float64(row)+0.5-cy
		return dx*dx+dy*dy <= r*r
	}
	edge = grayImage(w, h, func(col, row int) byte {
		if inside(col, row) {
			return 255
		}
		return 0
	})
	blur = grayImage(w, h, func(col, row int) byte {
		sum, n := 0, 0
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nc, nr := col+dx, row+dy
				if nc < 0 || nc >= w || nr < 0 || nr >= h {
					continue
				}
				if inside(nc, nr) {
					sum += 255
				}
				n++
			}
		}
		return byte(sum / n)
	})
	return edge, blur
}

func recordingTracer(t *testing.T, w, h int, edge, blur []byte, p Params) (*tracer, *[]Event) {
	t.Helper()
	s, err := material.NewSampler(w, h, edge, blur)
	if err != nil {
		t.Fatal(err)
	}
	tr := newTracer(s, p, rand.New(rand.NewSource(1)), NewAccum(w, h))
	events := &[]Event{}
	tr.observe = func(ev Event) { *events = append(*events, ev) }
	return tr, events
}

func TestNewRejectsBadInput(t *testing.T) {
	good := make([]byte, 2*2*4)
	bad := DefaultParams()
	bad.ItersPerFrame = 0

	tests := []struct {
		name string
		w, h int
		edge []byte
		opts []Option
		want error
	}{
		{"zero size", 0, 2, good, nil, ErrEmptyImage},
		{"short buffer", 2, 2, good[:8], nil, ErrBufferSize},
		{"bad params", 2, 2, good, []Option{WithParams(bad)}, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.w, tt.h, tt.edge, good, mathutil.Vec2{}, tt.opts...)
			if !errors.Is(err, tt.want) {
				t.Errorf("New error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRaytraceRejectsBadArguments(t *testing.T) {
	edge, blur := stepScene(4, 4, 2)
	s, err := New(4, 4, edge, blur, mathutil.Vec2{0.5, 0.5}, WithSeed(1))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Raytrace(make([]byte, 64), 0); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("frame 0: error = %v, want ErrInvalidFrame", err)
	}
	if _, err := s.Raytrace(make([]byte, 63), 1); !errors.Is(err, ErrOutputSize) {
		t.Errorf("short output: error = %v, want ErrOutputSize", err)
	}
	if e := s.Accum().Energy(); e != 0 {
		t.Errorf("rejected calls modified the buffer: energy %v", e)
	}
}

// With a 1×1 image every ray writes exactly its own color to the single pixel,
// so after frame f the pixel must equal K times the mean color of all rays.
func TestProgressiveMeanInvariant(t *testing.T) {
	const seed, iters, frames = 42, 50, 6
	p := DefaultParams()
	p.ItersPerFrame = iters

	px := grayImage(1, 1, func(int, int) byte { return 0 })
	s, err := New(1, 1, px, px, mathutil.Vec2{0.5, 0.5}, WithSeed(seed), WithParams(p))
	if err != nil {
		t.Fatal(err)
	}

	replay := rand.New(rand.NewSource(seed))
	var sum RGB
	out := make([]byte, 4)
	for f := 1; f <= frames; f++ {
		stats, err := s.Raytrace(out, f)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Rays != iters || stats.Steps != iters {
			t.Fatalf("frame %d: rays=%d steps=%d, want %d each", f, stats.Rays, stats.Steps, iters)
		}

		for i := 0; i < iters; i++ {
			replay.Float64() // angle
			c := HueToRGB(replay.Float64())
			sum.R += c.R
			sum.G += c.G
			sum.B += c.B
		}
		n := float64(iters * f)
		want := RGB{p.Brightness * sum.R / n, p.Brightness * sum.G / n, p.Brightness * sum.B / n}
		got := s.Accum().At(0, 0)
		for _, ch := range [][2]float64{{got.R, want.R}, {got.G, want.G}, {got.B, want.B}} {
			if math.Abs(ch[0]-ch[1]) > 1e-9*math.Max(1, math.Abs(ch[1])) {
				t.Fatalf("frame %d: pixel = %+v, want mean %+v", f, got, want)
			}
		}
	}
}

func TestRaytraceConverges(t *testing.T) {
	const w, h, frames = 32, 32, 60
	edge, blur := circleScene(w, h, 8)
	p := DefaultParams()
	p.ItersPerFrame = 500
	p.MarkUndefinedNormals = false

	s, err := New(w, h, edge, blur, mathutil.Vec2{4.5, 4.5}, WithSeed(7), WithParams(p))
	if err != nil {
		t.Fatal(err)
	}

	out := make([]byte, w*h*4)
	values := make([]float64, 0, frames)
	for f := 1; f <= frames; f++ {
		if _, err := s.Raytrace(out, f); err != nil {
			t.Fatal(err)
		}
		c := s.Accum().At(8, 8)
		values = append(values, c.R+c.G+c.B)
	}

	final := values[frames-1]
	if final <= 0 {
		t.Fatalf("probe pixel received no light: %v", final)
	}
	if rel := math.Abs(final-values[frames/2-1]) / final; rel > 0.15 {
		t.Errorf("value moved %.1f%% between frame %d and %d", rel*100, frames/2, frames)
	}
	early := stat.Variance(values[:10], nil)
	late := stat.Variance(values[frames-10:], nil)
	if late >= early {
		t.Errorf("variance did not shrink: first 10 frames %v, last 10 frames %v", early, late)
	}
}

func TestRayTerminatesWithinBudget(t *testing.T) {
	const w, h = 16, 9
	rng := rand.New(rand.NewSource(21))
	blocks := grayImage(w, h, func(col, row int) byte {
		if (col*7+row*13)%5 < 2 {
			return 255
		}
		return 0
	})
	tr, events := recordingTracer(t, w, h, blocks, blocks, DefaultParams())

	budget := 2 * max(w, h)
	for i := 0; i < 2000; i++ {
		*events = (*events)[:0]
		origin := mathutil.Vec2{rng.Float64() * w, rng.Float64() * h}
		dir := mathutil.FromAngle(rng.Float64() * mathutil.Tau)
		n := tr.trace(origin, dir, rng.Float64(), 1)
		if n < 1 || n > budget {
			t.Fatalf("ray %d wrote %d pixels, want 1..%d", i, n, budget)
		}
		terminal := 0
		for _, ev := range *events {
			if ev.Kind.Terminal() {
				terminal++
			}
		}
		if terminal != 1 {
			t.Fatalf("ray %d ended with %d terminal events: %v", i, terminal, *events)
		}
	}
}

func TestBudgetExhausted(t *testing.T) {
	edge := grayImage(8, 1, func(int, int) byte { return 0 })
	tr, events := recordingTracer(t, 8, 1, edge, edge, DefaultParams())
	tr.budget = 3

	if n := tr.trace(mathutil.Vec2{0.5, 0.5}, mathutil.Vec2{1, 0}, 0, 1); n != 3 {
		t.Errorf("trace wrote %d pixels, want 3", n)
	}
	if len(*events) != 1 || (*events)[0].Kind != BudgetExhausted {
		t.Errorf("events = %v, want one budget_exhausted", *events)
	}
}

func TestNonFiniteDirectionIsDropped(t *testing.T) {
	edge := grayImage(4, 4, func(int, int) byte { return 0 })
	tr, events := recordingTracer(t, 4, 4, edge, edge, DefaultParams())

	dir := mathutil.Vec2{}.Normalize()
	if n := tr.trace(mathutil.Vec2{1.5, 1.5}, dir, 0.2, 1); n != 0 {
		t.Errorf("NaN ray wrote %d pixels", n)
	}
	if len(*events) != 1 || (*events)[0].Kind != NonFinite {
		t.Errorf("events = %v, want one non_finite", *events)
	}
	if e := tr.acc.Energy(); e != 0 || math.IsNaN(e) {
		t.Errorf("buffer energy = %v, want 0", e)
	}
}

// A ray fired perpendicular into a vertical boundary on a 4×4 image crosses
// once, refracts straight through and leaves on the far side.
func TestPerpendicularCrossing4x4(t *testing.T) {
	edge, blur := stepScene(4, 4, 2)
	tr, events := recordingTracer(t, 4, 4, edge, blur, DefaultParams())

	n := tr.trace(mathutil.Vec2{0.5, 1.5}, mathutil.Vec2{1, 0}, 0, 1)
	if n != 4 {
		t.Errorf("wrote %d pixels, want 4", n)
	}
	if len(*events) != 2 {
		t.Fatalf("events = %v, want refracted then exited", *events)
	}
	ev := (*events)[0]
	if ev.Kind != Refracted || ev.Col != 2 || ev.Row != 1 {
		t.Errorf("first event = %+v, want refracted at (2,1)", ev)
	}
	if !near(ev.Dir, mathutil.Vec2{1, 0}, 1e-12) {
		t.Errorf("direction after normal incidence = %v, want [1 0]", ev.Dir)
	}
	if (*events)[1].Kind != Exited {
		t.Errorf("second event = %+v, want exited", (*events)[1])
	}
	if got := tr.stats.Crossings(); got != 1 {
		t.Errorf("crossings = %d, want 1", got)
	}
	for col := 0; col < 4; col++ {
		if c := tr.acc.At(col, 1); c != (RGB{1, 0, 0}) {
			t.Errorf("pixel (%d,1) = %+v, want {1 0 0}", col, c)
		}
	}
}

// angleToNormal is the angle between unit d and the x axis.
func angleToNormal(d mathutil.Vec2) float64 {
	return math.Acos(math.Abs(d[0]))
}

func TestObliqueCrossings(t *testing.T) {
	edge, blur := stepScene(8, 16, 4)
	eta := DefaultParams().Eta(0)

	tests := []struct {
		name     string
		pos, dir mathutil.Vec2
		diffuse  float64
		kind     EventKind
		check    func(in, out mathutil.Vec2) bool
	}{
		{
			name: "entering bends toward normal",
			pos:  mathutil.Vec2{0.5, 1.5}, dir: mathutil.Vec2{1, 0.5}.Normalize(),
			kind: Refracted,
			check: func(in, out mathutil.Vec2) bool {
				return out[0] > 0 && angleToNormal(out) < angleToNormal(in) &&
					math.Abs(out[1]-in[1]/eta) < 1e-9
			},
		},
		{
			name: "leaving bends away from normal",
			pos:  mathutil.Vec2{7.5, 1.5}, dir: mathutil.Vec2{-1, 0.5}.Normalize(),
			kind: Refracted,
			check: func(in, out mathutil.Vec2) bool {
				return out[0] < 0 && math.Abs(out[1]-in[1]*eta) < 1e-9
			},
		},
		{
			name: "grazing exit reflects",
			pos:  mathutil.Vec2{7.5, 0.5}, dir: mathutil.Vec2{-1, 1.5}.Normalize(),
			kind: Reflected,
			check: func(in, out mathutil.Vec2) bool {
				return near(out, mathutil.Vec2{-in[0], in[1]}, 1e-9)
			},
		},
		{
			name:    "entering never diffuses",
			pos:     mathutil.Vec2{0.5, 1.5}, dir: mathutil.Vec2{1, 0.5}.Normalize(),
			diffuse: 1,
			kind:    Refracted,
			check: func(in, out mathutil.Vec2) bool {
				return math.Abs(out[1]-in[1]/eta) < 1e-9
			},
		},
		{
			name:    "leaving diffuses forward",
			pos:     mathutil.Vec2{7.5, 1.5}, dir: mathutil.Vec2{-1, 0.5}.Normalize(),
			diffuse: 1,
			kind:    Diffused,
			check: func(in, out mathutil.Vec2) bool {
				// The boundary normal is along x, so the incoming side is -x.
				return out[0] < 0 && math.Abs(out.Len()-1) < 1e-9
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			p.DiffuseProbability = tt.diffuse
			tr, events := recordingTracer(t, 8, 16, edge, blur, p)
			tr.trace(tt.pos, tt.dir, 0, 1)

			var crossings []Event
			for _, ev := range *events {
				if !ev.Kind.Terminal() {
					crossings = append(crossings, ev)
				}
			}
			if len(crossings) != 1 {
				t.Fatalf("crossing events = %v, want exactly one", crossings)
			}
			ev := crossings[0]
			if ev.Kind != tt.kind {
				t.Errorf("event kind = %v, want %v", ev.Kind, tt.kind)
			}
			if !tt.check(tt.dir, ev.Dir) {
				t.Errorf("direction %v -> %v fails the expected bend", tt.dir, ev.Dir)
			}
		})
	}
}

func TestCooldownSuppressesCrossings(t *testing.T) {
	const w = 16
	// Material alternates every two columns: 0,0,255,255,0,0,...
	edge := grayImage(w, 1, func(col, _ int) byte {
		if col/2%2 == 1 {
			return 255
		}
		return 0
	})
	// A monotonic ramp keeps the normal defined at every column.
	ramp := grayImage(w, 1, func(col, _ int) byte { return byte(col * 16) })

	tests := []struct {
		cooldown int
		want     []int
	}{
		{3, []int{2, 6, 10, 14}},
		{0, []int{2, 4, 6, 8, 10, 12, 14}},
	}
	for _, tt := range tests {
		p := DefaultParams()
		p.DiffuseProbability = 0
		p.RefractCooldown = tt.cooldown
		tr, events := recordingTracer(t, w, 1, edge, ramp, p)

		if n := tr.trace(mathutil.Vec2{0.5, 0.5}, mathutil.Vec2{1, 0}, 0, 1); n != w {
			t.Errorf("cooldown %d: wrote %d pixels, want %d", tt.cooldown, n, w)
		}
		var cols []int
		for _, ev := range *events {
			if ev.Kind.Terminal() {
				if ev.Kind != Exited {
					t.Errorf("cooldown %d: ended with %v, want exited", tt.cooldown, ev.Kind)
				}
				continue
			}
			if ev.Kind != Refracted {
				t.Errorf("cooldown %d: event %+v, want refracted", tt.cooldown, ev)
			}
			cols = append(cols, ev.Col)
		}
		if !slices.Equal(cols, tt.want) {
			t.Errorf("cooldown %d: crossings at %v, want %v", tt.cooldown, cols, tt.want)
		}
	}
}

func TestUndefinedNormalMarksPixel(t *testing.T) {
	const w, h = 4, 1
	edge, _ := stepScene(w, h, 2)
	flat := grayImage(w, h, func(int, int) byte { return 128 })

	for _, mark := range []bool{true, false} {
		p := DefaultParams()
		p.MarkUndefinedNormals = mark
		s, err := New(w, h, edge, flat, mathutil.Vec2{0.5, 0.5}, WithSeed(3), WithParams(p))
		if err != nil {
			t.Fatal(err)
		}
		out := make([]byte, w*h*4)
		stats, err := s.Raytrace(out, 1)
		if err != nil {
			t.Fatal(err)
		}
		if stats.UndefinedNormals == 0 {
			t.Fatalf("mark=%v: no undefined normals counted", mark)
		}
		if stats.Refracted+stats.Reflected+stats.Diffused != 0 {
			t.Errorf("mark=%v: scattering happened on a flat boundary: %+v", mark, stats)
		}
		c := s.Accum().At(2, 0)
		if mark && c != diagnosticColor {
			t.Errorf("marked pixel = %+v, want %+v", c, diagnosticColor)
		}
		if !mark && c.G < 0 {
			t.Errorf("unmarked run wrote the diagnostic color: %+v", c)
		}
	}
}

func TestOriginOutsideImage(t *testing.T) {
	edge, blur := circleScene(8, 8, 2)
	s, err := New(8, 8, edge, blur, mathutil.Vec2{-5, -5}, WithSeed(1))
	if err != nil {
		t.Fatal(err)
	}
	out := make([]byte, 8*8*4)
	stats, err := s.Raytrace(out, 1)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Steps != 0 || stats.Exited != stats.Rays {
		t.Errorf("stats = %+v, want every ray to exit at once", stats)
	}
	for i := 0; i < len(out); i += 4 {
		if out[i] != 0 || out[i+1] != 0 || out[i+2] != 0 || out[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want opaque black", i/4, out[i:i+4])
		}
	}
}

func TestWorkersAreDeterministic(t *testing.T) {
	const w, h = 24, 24
	edge, blur := circleScene(w, h, 6)
	p := DefaultParams()
	p.ItersPerFrame = 301

	render := func() ([]byte, FrameStats) {
		s, err := New(w, h, edge, blur, mathutil.Vec2{3.5, 12.5}, WithSeed(9), WithWorkers(4), WithParams(p))
		if err != nil {
			t.Fatal(err)
		}
		out := make([]byte, w*h*4)
		var total FrameStats
		for f := 1; f <= 3; f++ {
			stats, err := s.Raytrace(out, f)
			if err != nil {
				t.Fatal(err)
			}
			total.Add(stats)
		}
		return out, total
	}

	a, sa := render()
	b, sb := render()
	if !bytes.Equal(a, b) {
		t.Error("same seed and worker count produced different images")
	}
	if sa.Rays != 3*p.ItersPerFrame {
		t.Errorf("rays = %d, want %d", sa.Rays, 3*p.ItersPerFrame)
	}
	if sa.Steps != sb.Steps || sa.Refracted != sb.Refracted || sa.Frame != 3 {
		t.Errorf("stats differ: %+v vs %+v", sa, sb)
	}
}
