// Package navigate implements coordinate search: the destination is parsed,
// its tiles are prefetched, the camera flies there and a search marker is
// dropped on arrival.
package navigate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/embiggen/planetmap/internal/canvas"
	"github.com/embiggen/planetmap/internal/errors"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/id"
	"github.com/embiggen/planetmap/internal/layers"
	"github.com/embiggen/planetmap/internal/prefetch"
	"github.com/embiggen/planetmap/internal/status"
)

// ErrNavigating is returned when a search arrives while a flight is in progress.
var ErrNavigating = errors.New("navigation already in progress")

// Flyer animates the camera.
type Flyer interface {
	FlyTo(ctx context.Context, target geo.LatLon, zoom int, duration time.Duration) error
}

// Prefetcher warms the tiles around a destination.
type Prefetcher interface {
	Prefetch(ctx context.Context, dest geo.LatLon, zoom int) prefetch.Result
}

// Arrival describes a completed search.
type Arrival struct {
	Target   geo.LatLon
	Zoom     int
	Prefetch prefetch.Result
	MarkerID string
}

// Navigator runs coordinate searches. Only one search flies at a time.
type Navigator struct {
	flyer      Flyer
	prefetcher Prefetcher
	canvas     canvas.Canvas
	banner     *status.Banner
	zoom       int
	duration   time.Duration
	logger     *slog.Logger

	mu         sync.Mutex
	navigating bool
}

// New creates a Navigator flying to zoom over duration.
func New(flyer Flyer, prefetcher Prefetcher, c canvas.Canvas, banner *status.Banner, zoom int, duration time.Duration, logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{
		flyer:      flyer,
		prefetcher: prefetcher,
		canvas:     c,
		banner:     banner,
		zoom:       zoom,
		duration:   duration,
		logger:     logger,
	}
}

// Navigating reports whether a flight is in progress.
func (n *Navigator) Navigating() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.navigating
}

// Search parses "lat, lon" and flies there. Unparseable input is reported
// as a ValidationError before anything moves or is fetched.
func (n *Navigator) Search(ctx context.Context, input string) (Arrival, error) {
	target, err := geo.ParseLatLon(input)
	if err != nil {
		verr := errors.Validation("Invalid coordinates").WithCause(err)
		n.banner.Report(verr)
		return Arrival{}, verr
	}

	n.mu.Lock()
	if n.navigating {
		n.mu.Unlock()
		n.logger.Debug("search ignored during flight", "input", input)
		return Arrival{}, ErrNavigating
	}
	n.navigating = true
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		n.navigating = false
		n.mu.Unlock()
	}()

	n.banner.Info("Navigating to coordinates...")

	res := n.prefetcher.Prefetch(ctx, target, n.zoom)

	if err := n.flyer.FlyTo(ctx, target, n.zoom, n.duration); err != nil {
		return Arrival{}, err
	}

	markerID, err := id.Generate("search")
	if err != nil {
		return Arrival{}, err
	}
	n.canvas.Upsert(layers.SearchMarker(markerID, target))
	n.banner.Info("Arrived!")
	n.logger.Info("arrived", "target", target.String(), "zoom", n.zoom, "prefetched", res.Attempted, "prefetchFailed", res.Failed)

	return Arrival{Target: target, Zoom: n.zoom, Prefetch: res, MarkerID: markerID}, nil
}

// ClearSearch removes every search marker and nothing else.
func (n *Navigator) ClearSearch() {
	n.canvas.ClearGroup(canvas.GroupSearch)
	n.banner.Info("Cleared search markers")
}
