// Package memory keeps label snapshots for the lifetime of the process.
package memory

import (
	"context"
	"sync"

	"github.com/embiggen/planetmap/internal/annotation"
)

// Backend stores snapshots in a map keyed by body.
type Backend struct {
	mu     sync.RWMutex
	labels map[string][]annotation.Label
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{labels: make(map[string][]annotation.Label)}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

// SaveLabels replaces the snapshot of body.
func (b *Backend) SaveLabels(_ context.Context, body string, labels []annotation.Label) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.labels[body] = copyLabels(labels)
	return nil
}

// LoadLabels returns the snapshot of body, or nil when there is none.
func (b *Backend) LoadLabels(_ context.Context, body string) ([]annotation.Label, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyLabels(b.labels[body]), nil
}

func copyLabels(in []annotation.Label) []annotation.Label {
	if in == nil {
		return nil
	}
	out := make([]annotation.Label, len(in))
	for i, l := range in {
		l.Polygon = append(l.Polygon[:0:0], l.Polygon...)
		out[i] = l
	}
	return out
}
