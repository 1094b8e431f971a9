package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"mask-light-renderer/internal/raytrace"
)

var (
	ErrNoJobs     = errors.New("config: no jobs")
	ErrInvalidJob = errors.New("config: invalid job")
)

// Defaults applied by Resolve.
const (
	DefaultOutputDir     = "renders"
	DefaultFrames        = 100
	DefaultSnapshotEvery = 25
	DefaultBlurRadius    = 2
	DefaultSceneSize     = 512
)

// DefaultOrigin is the light position used when a job does not set one.
var DefaultOrigin = [2]float64{10, 10}

// Config holds all configurable paths, render settings and the job list.
type Config struct {
	// Paths
	MaskDir   string `json:"mask_dir"`
	OutputDir string `json:"output_dir"`

	// Render settings
	Workers       int     `json:"workers"`     // jobs rendered concurrently
	RayWorkers    int     `json:"ray_workers"` // goroutines per frame
	Frames        int     `json:"frames"`
	SnapshotEvery int     `json:"snapshot_every"`
	BlurRadius    int     `json:"blur_radius"`
	ClusterRatio  float64 `json:"cluster_ratio"`
	Params        Params  `json:"params"`

	Jobs []Job `json:"jobs"`

	baseDir string // directory of the loaded file
}

// Job describes one image to render. Exactly one of Mask and Scene is set.
type Job struct {
	Name     string `json:"name"`
	Mask     string `json:"mask"`  // file path or name in MaskDir
	Scene    string `json:"scene"` // built-in procedural mask
	BlurMask string `json:"blur_mask"`

	Width  int `json:"width"` // 0 keeps the mask size
	Height int `json:"height"`

	Origin        *[2]float64 `json:"origin"`
	Frames        int         `json:"frames"`
	SnapshotEvery int         `json:"snapshot_every"`
	Seed          int64       `json:"seed"` // 0 picks a time-based seed
	Params        Params      `json:"params"`
}

// Params overrides individual renderer tunables. Nil fields keep the value
// they are applied to.
type Params struct {
	ItersPerFrame        *int     `json:"iters_per_frame,omitempty"`
	Brightness           *float64 `json:"brightness,omitempty"`
	DiffuseProbability   *float64 `json:"diffuse_probability,omitempty"`
	RefractCooldown      *int     `json:"refract_cooldown,omitempty"`
	EtaBase              *float64 `json:"eta_base,omitempty"`
	EtaSpread            *float64 `json:"eta_spread,omitempty"`
	MarkUndefinedNormals *bool    `json:"mark_undefined_normals,omitempty"`
}

// Apply returns p with every set override written over it.
func (o Params) Apply(p raytrace.Params) raytrace.Params {
	if o.ItersPerFrame != nil {
		p.ItersPerFrame = *o.ItersPerFrame
	}
	if o.Brightness != nil {
		p.Brightness = *o.Brightness
	}
	if o.DiffuseProbability != nil {
		p.DiffuseProbability = *o.DiffuseProbability
	}
	if o.RefractCooldown != nil {
		p.RefractCooldown = *o.RefractCooldown
	}
	if o.EtaBase != nil {
		p.EtaBase = *o.EtaBase
	}
	if o.EtaSpread != nil {
		p.EtaSpread = *o.EtaSpread
	}
	if o.MarkUndefinedNormals != nil {
		p.MarkUndefinedNormals = *o.MarkUndefinedNormals
	}
	return p
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values. Relative paths in the
// file are resolved against its directory by Resolve.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.baseDir = filepath.Dir(path)

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	MaskDir       string
	OutputDir     string
	Workers       int
	RayWorkers    int
	Frames        int
	SnapshotEvery int
	BlurRadius    int
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.MaskDir != "" {
		c.MaskDir = flags.MaskDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.RayWorkers > 0 {
		c.RayWorkers = flags.RayWorkers
	}
	if flags.Frames > 0 {
		c.Frames = flags.Frames
	}
	// Negative disables snapshots for every job without its own cadence.
	if flags.SnapshotEvery != 0 {
		c.SnapshotEvery = flags.SnapshotEvery
	}
	if flags.BlurRadius > 0 {
		c.BlurRadius = flags.BlurRadius
	}

	// Paths from the file are relative to the file
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	c.OutputDir = c.rel(c.OutputDir)
	if c.MaskDir != "" {
		c.MaskDir = c.rel(c.MaskDir)
	}

	// Defaults for render settings
	if c.Frames <= 0 {
		c.Frames = DefaultFrames
	}
	if c.SnapshotEvery < 0 {
		c.SnapshotEvery = 0
	} else if c.SnapshotEvery == 0 {
		c.SnapshotEvery = DefaultSnapshotEvery
	}
	if c.BlurRadius <= 0 {
		c.BlurRadius = DefaultBlurRadius
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if len(c.Jobs) > 0 && c.Workers > len(c.Jobs) {
		c.Workers = len(c.Jobs)
	}
	if c.RayWorkers <= 0 {
		c.RayWorkers = max(1, runtime.NumCPU()/c.Workers)
	}

	for i := range c.Jobs {
		c.resolveJob(&c.Jobs[i], i)
	}
}

func (c *Config) resolveJob(j *Job, i int) {
	if j.Mask != "" && filepath.Ext(j.Mask) != "" {
		j.Mask = c.rel(j.Mask)
	}
	if j.BlurMask != "" && filepath.Ext(j.BlurMask) != "" {
		j.BlurMask = c.rel(j.BlurMask)
	}
	if j.Name == "" {
		switch {
		case j.Scene != "":
			j.Name = j.Scene
		case j.Mask != "":
			base := filepath.Base(j.Mask)
			j.Name = strings.TrimSuffix(base, filepath.Ext(base))
		default:
			j.Name = fmt.Sprintf("job%d", i+1)
		}
	}
	if j.Scene != "" {
		if j.Width <= 0 {
			j.Width = DefaultSceneSize
		}
		if j.Height <= 0 {
			j.Height = j.Width
		}
	}
	if j.Origin == nil {
		o := DefaultOrigin
		j.Origin = &o
	}
	if j.Frames <= 0 {
		j.Frames = c.Frames
	}
	if j.SnapshotEvery == 0 {
		j.SnapshotEvery = c.SnapshotEvery
	}
}

func (c *Config) rel(p string) string {
	if c.baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// JobParams returns the renderer tuning for j: defaults, then the config
// overrides, then the job's own.
func (c *Config) JobParams(j Job) raytrace.Params {
	return j.Params.Apply(c.Params.Apply(raytrace.DefaultParams()))
}

// Validate checks the resolved job list.
func (c *Config) Validate() error {
	if len(c.Jobs) == 0 {
		return ErrNoJobs
	}
	seen := make(map[string]bool, len(c.Jobs))
	for _, j := range c.Jobs {
		if (j.Mask == "") == (j.Scene == "") {
			return fmt.Errorf("%w: %s: set exactly one of mask and scene", ErrInvalidJob, j.Name)
		}
		if j.Width < 0 || j.Height < 0 || (j.Width == 0) != (j.Height == 0) {
			return fmt.Errorf("%w: %s: size %dx%d", ErrInvalidJob, j.Name, j.Width, j.Height)
		}
		if seen[j.Name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidJob, j.Name)
		}
		seen[j.Name] = true
		if err := c.JobParams(j).Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidJob, j.Name, err)
		}
	}
	return nil
}

// ParsePoint parses "x,y" into a point.
func ParsePoint(s string) ([2]float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return [2]float64{}, fmt.Errorf("config: point %q: want x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("config: point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return [2]float64{}, fmt.Errorf("config: point %q: %w", s, err)
	}
	return [2]float64{x, y}, nil
}
