// Package storage holds the offline label snapshot backends. A snapshot is
// the last label list the backend returned for a body; it is shown when the
// backend cannot be reached.
package storage

import (
	"context"

	"github.com/embiggen/planetmap/internal/annotation"
)

// Backend persists label snapshots.
type Backend interface {
	Init() error
	Close() error
	SaveLabels(ctx context.Context, body string, labels []annotation.Label) error
	LoadLabels(ctx context.Context, body string) ([]annotation.Label, error)
}

var _ annotation.Snapshots = Backend(nil)
