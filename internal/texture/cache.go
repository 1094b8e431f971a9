package texture

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
)

var ErrNotFound = errors.New("texture: mask not found")

// Resolver resolves a mask name to a decoded image.
type Resolver interface {
	Resolve(name string) (*image.NRGBA, error)
}

// Cache is a concurrency-safe mask cache. Images it returns are shared and
// must not be modified.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
	index *Index
}

type cacheEntry struct {
	img *image.NRGBA
	err error // load errors are cached too, so a bad file is read once
}

// NewCache creates a cache backed by index. A nil index resolves names as
// plain file paths only.
func NewCache(index *Index) *Cache {
	return &Cache{
		items: make(map[string]*cacheEntry),
		index: index,
	}
}

// Resolve loads and caches a mask. name is looked up in the index first and
// otherwise treated as a file path.
func (c *Cache) Resolve(name string) (*image.NRGBA, error) {
	path, err := c.locate(name)
	if err != nil {
		return nil, err
	}

	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry.img, entry.err
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, err := LoadImage(path)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[path]; exists {
		return entry.img, entry.err
	}
	c.items[path] = &cacheEntry{img: img, err: err}
	return img, err
}

func (c *Cache) locate(name string) (string, error) {
	if c.index != nil {
		if path, ok := c.index.ResolvePath(name); ok {
			return path, nil
		}
	}
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		return name, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Len returns the number of cached entries, failed loads included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
