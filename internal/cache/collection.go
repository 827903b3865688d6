package cache

import "sync"

// Collection caches ordered lists of values keyed by name, e.g. the labels
// loaded for each celestial body.
type Collection[V any] struct {
	mu    sync.RWMutex
	items map[string][]V
}

// NewCollection creates an empty Collection.
func NewCollection[V any]() *Collection[V] {
	return &Collection[V]{
		items: make(map[string][]V),
	}
}

// Get returns a copy of the list stored under key.
func (c *Collection[V]) Get(key string) ([]V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list, ok := c.items[key]
	if !ok {
		return nil, false
	}
	return append([]V(nil), list...), true
}

// Set replaces the list stored under key.
func (c *Collection[V]) Set(key string, list []V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = append([]V(nil), list...)
}

// Append adds values to the end of the list stored under key.
func (c *Collection[V]) Append(key string, values ...V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = append(c.items[key], values...)
}

// Update replaces, in place, every value under key for which match returns true.
// It reports how many values were replaced.
func (c *Collection[V]) Update(key string, match func(V) bool, replace func(V) V) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	list := c.items[key]
	for i, v := range list {
		if match(v) {
			list[i] = replace(v)
			n++
		}
	}
	return n
}

// RemoveFunc drops every value under key for which match returns true.
func (c *Collection[V]) RemoveFunc(key string, match func(V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	list, ok := c.items[key]
	if !ok {
		return 0
	}
	kept := list[:0]
	removed := 0
	for _, v := range list {
		if match(v) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	c.items[key] = kept
	return removed
}

// Delete removes a key.
func (c *Collection[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Reset clears the cache.
func (c *Collection[V]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string][]V)
}
