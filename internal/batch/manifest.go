package batch

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ManifestEntry represents one job in the output manifest.
type ManifestEntry struct {
	Name      string     `json:"name"`
	Source    string     `json:"source"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Origin    [2]float64 `json:"origin"`
	Seed      int64      `json:"seed"`
	Frames    int        `json:"frames"`
	Rays      int        `json:"rays"`
	Steps     int64      `json:"steps"`
	Crossings int        `json:"crossings"`
	Undefined int        `json:"undefined_normals"`
	Image     string     `json:"image,omitempty"`
	Snapshots []string   `json:"snapshots,omitempty"`
	Seconds   float64    `json:"seconds"`
	Error     string     `json:"error,omitempty"`
}

// WriteManifest writes the results as JSON to path. Image paths use forward
// slashes relative to the manifest's directory.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		snaps := make([]string, len(r.Snapshots))
		for j, s := range r.Snapshots {
			snaps[j] = filepath.ToSlash(s)
		}
		entries[i] = ManifestEntry{
			Name:      r.Name,
			Source:    r.Source,
			Width:     r.Width,
			Height:    r.Height,
			Origin:    r.Origin,
			Seed:      r.Seed,
			Frames:    r.Frames,
			Rays:      r.Stats.Rays,
			Steps:     r.Stats.Steps,
			Crossings: r.Stats.Crossings(),
			Undefined: r.Stats.UndefinedNormals,
			Image:     filepath.ToSlash(r.Final),
			Snapshots: snaps,
			Seconds:   r.Duration.Seconds(),
			Error:     r.Error,
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
