package texture

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Index maps lowercase mask stems to filesystem paths.
// When two files share a stem the lossless format wins.
type Index struct {
	entries map[string]string // stem.lower() → full path
}

// BuildIndex walks dir and its subdirectories for supported images.
func BuildIndex(dir string) (*Index, error) {
	idx := &Index{entries: make(map[string]string)}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		idx.add(path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("texture: index %s: %w", dir, err)
	}
	return idx, nil
}

func (idx *Index) add(path string) {
	stem := stemOf(path)
	existing, exists := idx.entries[stem]
	if !exists || rank(path) < rank(existing) {
		idx.entries[stem] = path
	}
}

func rank(path string) int {
	return priority[strings.ToLower(filepath.Ext(path))]
}

func stemOf(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ResolvePath returns the filesystem path for a mask name, or ("", false).
// Directory prefixes and extensions in name are ignored.
func (idx *Index) ResolvePath(name string) (string, bool) {
	path, ok := idx.entries[stemOf(name)]
	return path, ok
}

// Names returns the indexed stems in sorted order.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.entries))
	for stem := range idx.entries {
		names = append(names, stem)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of indexed masks.
func (idx *Index) Len() int {
	return len(idx.entries)
}
