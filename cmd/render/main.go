package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"mask-light-renderer/internal/batch"
	"mask-light-renderer/internal/config"
	"mask-light-renderer/internal/raytrace"
	"mask-light-renderer/internal/scene"
	"mask-light-renderer/internal/texture"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to a JSON config with a job list")
	sceneName := flag.String("scene", "", fmt.Sprintf("Built-in mask to render %v", scene.Names()))
	mask := flag.String("mask", "", fmt.Sprintf("Mask image file %v", texture.Extensions()))
	blurMask := flag.String("blur-mask", "", "Optional pre-blurred mask used for normals")
	width := flag.Int("width", 0, "Render width (default: mask size, 512 for scenes)")
	height := flag.Int("height", 0, "Render height (default: width)")
	origin := flag.String("origin", "", "Light position x,y in pixels (default: 10,10)")
	frames := flag.Int("frames", 0, "Frames per job (default: 100)")
	every := flag.Int("every", 0, "Write a snapshot every N frames (default: 25, -1 disables)")
	seed := flag.Int64("seed", 0, "Random seed (default: time based)")
	workers := flag.Int("workers", 0, "Jobs rendered concurrently (default: NumCPU)")
	rayWorkers := flag.Int("ray-workers", 0, "Goroutines per frame (default: NumCPU/workers)")
	outputDir := flag.String("output", "", "Output directory (default: renders)")
	logLevel := flag.String("log-level", "warn", "Log level: debug, info, warn, error")

	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: -log-level: %v\n", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	raytrace.SetLogger(logger)

	// Load config
	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// A job from flags is added to any jobs in the config
	if *sceneName != "" || *mask != "" {
		job := config.Job{
			Scene:         *sceneName,
			Mask:          *mask,
			BlurMask:      *blurMask,
			Width:         *width,
			Height:        *height,
			Seed:          *seed,
			SnapshotEvery: *every,
		}
		if *width > 0 && *height == 0 {
			job.Height = *width
		}
		if *origin != "" {
			p, err := config.ParsePoint(*origin)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: -origin: %v\n", err)
				os.Exit(2)
			}
			job.Origin = &p
		}
		cfg.Jobs = append(cfg.Jobs, job)
	}

	// CLI flags override config file
	cfg.Resolve(config.Flags{
		OutputDir:     *outputDir,
		Workers:       *workers,
		RayWorkers:    *rayWorkers,
		Frames:        *frames,
		SnapshotEvery: *every,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if len(cfg.Jobs) == 0 {
			fmt.Fprintln(os.Stderr, "Use -scene, -mask or a -config with jobs.")
		}
		os.Exit(1)
	}

	// Build mask index
	var idx *texture.Index
	if cfg.MaskDir != "" {
		var err error
		idx, err = texture.BuildIndex(cfg.MaskDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Masks: %d indexed in %s\n", idx.Len(), cfg.MaskDir)
	}
	masks := texture.NewCache(idx)

	// Print summary
	fmt.Printf("Mask light renderer → WebP\n")
	fmt.Printf("Jobs: %d, Workers: %d, Ray workers: %d\n", len(cfg.Jobs), cfg.Workers, cfg.RayWorkers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()

	// Run batch
	results := batch.Run(ctx, batch.Config{
		OutputDir:    cfg.OutputDir,
		Masks:        masks,
		Params:       cfg.Params.Apply(raytrace.DefaultParams()),
		Workers:      cfg.Workers,
		RayWorkers:   cfg.RayWorkers,
		BlurRadius:   cfg.BlurRadius,
		ClusterRatio: cfg.ClusterRatio,
		Logger:       logger,
	}, cfg.Jobs)

	elapsed := time.Since(start)
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", elapsed.Seconds())

	// Count results
	success, failed := 0, 0
	var errs []batch.Result
	for _, r := range results {
		if r.Success {
			success++
			fmt.Printf("  %s: %d frames, %d rays, %d crossings → %s\n",
				r.Name, r.Frames, r.Stats.Rays, r.Stats.Crossings(), r.Final)
		} else {
			failed++
			errs = append(errs, r)
		}
	}

	fmt.Printf("Rendered: %d/%d\n", success, len(results))

	if len(errs) > 0 {
		fmt.Printf("\nFailed (%d):\n", failed)
		for _, e := range errs[:min(len(errs), 20)] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	// Write manifest
	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
