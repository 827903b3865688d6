package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Tiles is a bounded LRU of tile images keyed by URL.
type Tiles struct {
	lru *lru.Cache[string, []byte]
}

// NewTiles creates a tile cache holding at most size images.
func NewTiles(size int) (*Tiles, error) {
	if size <= 0 {
		return nil, fmt.Errorf("tile cache size must be positive, got %d", size)
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create tile cache: %w", err)
	}
	return &Tiles{lru: c}, nil
}

// Get returns a cached image and marks it recently used.
func (t *Tiles) Get(url string) ([]byte, bool) {
	return t.lru.Get(url)
}

// Add stores an image.
func (t *Tiles) Add(url string, data []byte) {
	t.lru.Add(url, data)
}

// Contains reports whether url is cached without touching recency.
func (t *Tiles) Contains(url string) bool {
	return t.lru.Contains(url)
}

// Len returns the number of cached images.
func (t *Tiles) Len() int {
	return t.lru.Len()
}

// Purge empties the cache.
func (t *Tiles) Purge() {
	t.lru.Purge()
}
