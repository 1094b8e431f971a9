package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"mask-light-renderer/internal/config"
	"mask-light-renderer/internal/mathutil"
	"mask-light-renderer/internal/postprocess"
	"mask-light-renderer/internal/raytrace"
	"mask-light-renderer/internal/scene"
	"mask-light-renderer/internal/texture"

	"github.com/HugoSmits86/nativewebp"
)

// FinalName is the file written after the last frame of every job.
const FinalName = "final.webp"

var ErrNoResolver = errors.New("batch: mask job without a mask resolver")

// Config holds all shared resources for a batch run.
type Config struct {
	OutputDir    string
	Masks        texture.Resolver
	Params       raytrace.Params // base tuning; each job's overrides apply on top
	Workers      int             // jobs rendered concurrently
	RayWorkers   int             // goroutines per frame
	BlurRadius   int
	ClusterRatio float64

	Progress io.Writer    // progress lines; nil means stdout
	Logger   *slog.Logger // nil means raytrace.Logger()
}

// Result holds the outcome of rendering one job.
type Result struct {
	Name      string
	Source    string // mask path/name or "scene:<name>"
	Width     int
	Height    int
	Origin    [2]float64
	Seed      int64
	Frames    int // frames completed
	Stats     raytrace.FrameStats
	Snapshots []string // paths relative to OutputDir
	Final     string
	Duration  time.Duration
	Success   bool
	Error     string
}

// Run renders all jobs using a worker pool. Cancelling ctx stops every job
// after its current frame; jobs that finished at least one frame still write
// their final image.
func Run(ctx context.Context, cfg Config, jobs []config.Job) []Result {
	total := 0
	for _, j := range jobs {
		total += j.Frames
	}
	results := make([]Result, len(jobs))
	var frames atomic.Int64

	out := cfg.Progress
	if out == nil {
		out = os.Stdout
	}
	workers := max(cfg.Workers, 1)

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := frames.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					rate := float64(p) / elapsed
					fmt.Fprintf(out, "  [%d/%d] %.1f frames/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	jobChan := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = processJob(ctx, cfg, jobs[idx], func() { frames.Add(1) })
			}
		}()
	}

	// Send work
	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

func processJob(ctx context.Context, cfg Config, job config.Job, frameDone func()) Result {
	start := time.Now()
	res := Result{Name: job.Name, Source: job.Mask}
	if job.Scene != "" {
		res.Source = "scene:" + job.Scene
	}
	if job.Origin != nil {
		res.Origin = *job.Origin
	} else {
		res.Origin = config.DefaultOrigin
	}
	fail := func(err error) Result {
		res.Error = err.Error()
		res.Duration = time.Since(start)
		return res
	}

	log := cfg.Logger
	if log == nil {
		log = raytrace.Logger()
	}
	log = log.With("job", job.Name)

	edge, blur, err := prepareMasks(cfg, job)
	if err != nil {
		return fail(err)
	}
	w, h := edge.Bounds().Dx(), edge.Bounds().Dy()
	res.Width, res.Height = w, h

	res.Seed = job.Seed
	if res.Seed == 0 {
		res.Seed = time.Now().UnixNano()
	}

	state, err := raytrace.New(w, h, edge.Pix, blur.Pix,
		mathutil.Vec2{res.Origin[0], res.Origin[1]},
		raytrace.WithSeed(res.Seed),
		raytrace.WithParams(job.Params.Apply(cfg.Params)),
		raytrace.WithWorkers(cfg.RayWorkers),
		raytrace.WithLogger(log),
	)
	if err != nil {
		return fail(fmt.Errorf("batch: %s: %w", job.Name, err))
	}

	dir := filepath.Join(cfg.OutputDir, job.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fail(err)
	}

	log.Info("job started", "size", fmt.Sprintf("%dx%d", w, h), "frames", job.Frames, "seed", res.Seed)

	frame := image.NewNRGBA(image.Rect(0, 0, w, h))
	var runErr error
	for f := 1; f <= job.Frames; f++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		stats, err := state.Raytrace(frame.Pix, f)
		if err != nil {
			runErr = err
			break
		}
		res.Frames = f
		res.Stats.Add(stats)
		frameDone()

		if job.SnapshotEvery > 0 && f%job.SnapshotEvery == 0 && f < job.Frames {
			name := filepath.Join(job.Name, fmt.Sprintf("frame_%05d.webp", f))
			if err := writeWebP(filepath.Join(cfg.OutputDir, name), frame); err != nil {
				return fail(err)
			}
			res.Snapshots = append(res.Snapshots, name)
		}
	}

	if res.Frames > 0 {
		name := filepath.Join(job.Name, FinalName)
		if err := writeWebP(filepath.Join(cfg.OutputDir, name), frame); err != nil {
			return fail(err)
		}
		res.Final = name
	}
	if runErr != nil {
		log.Warn("job stopped", "frames", res.Frames, "err", runErr)
		return fail(fmt.Errorf("batch: %s: stopped after %d frames: %w", job.Name, res.Frames, runErr))
	}

	res.Success = true
	res.Duration = time.Since(start)
	log.Info("job done", "stats", res.Stats)
	return res
}

// prepareMasks builds the edge and blur images for a job. Both are opaque
// NRGBA of the same size with tightly packed Pix.
func prepareMasks(cfg Config, job config.Job) (edge, blur *image.NRGBA, err error) {
	var src *image.NRGBA
	switch {
	case job.Scene != "":
		src, err = scene.Render(job.Scene, job.Width, job.Height)
	case cfg.Masks == nil:
		err = ErrNoResolver
	default:
		src, err = cfg.Masks.Resolve(job.Mask)
	}
	if err != nil {
		return nil, nil, err
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if job.Width > 0 && job.Height > 0 {
		w, h = job.Width, job.Height
	}
	edge = postprocess.Threshold(postprocess.Fit(src, w, h), postprocess.DefaultLevel)
	if cfg.ClusterRatio > 0 {
		edge = postprocess.RemoveSmallClusters(edge, cfg.ClusterRatio)
	}

	if job.BlurMask == "" {
		return edge, postprocess.Blur(edge, cfg.BlurRadius), nil
	}
	if cfg.Masks == nil {
		return nil, nil, ErrNoResolver
	}
	b, err := cfg.Masks.Resolve(job.BlurMask)
	if err != nil {
		return nil, nil, fmt.Errorf("batch: blur mask: %w", err)
	}
	return edge, postprocess.Fit(b, w, h), nil
}

func writeWebP(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := nativewebp.Encode(f, img, nil); err != nil {
		f.Close()
		return fmt.Errorf("batch: WebP encode %s: %w", path, err)
	}
	return f.Close()
}
