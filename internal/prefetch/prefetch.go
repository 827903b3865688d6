// Package prefetch warms the tile cache around a flight destination so the
// canvas finds the tiles in memory when the camera lands.
package prefetch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/influx"
	"github.com/embiggen/planetmap/internal/tile"
)

const instrumentationName = "github.com/embiggen/planetmap/internal/prefetch"

// Warmer loads a tile into the shared cache.
type Warmer interface {
	Warm(ctx context.Context, idx tile.Index) error
	Dataset() string
}

// Result summarizes one prefetch run.
type Result struct {
	Center    tile.Index
	Tiles     []tile.Index
	Attempted int
	Failed    int
	Duration  time.Duration
}

// Prefetcher fetches the 3x3 block of tiles around a destination.
type Prefetcher struct {
	engine    *tile.Engine
	source    Warmer
	telemetry influx.Recorder
	logger    *slog.Logger

	attempted metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a Prefetcher. telemetry may be nil.
func New(engine *tile.Engine, source Warmer, telemetry influx.Recorder, logger *slog.Logger) (*Prefetcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		telemetry = influx.Nop{}
	}
	p := &Prefetcher{engine: engine, source: source, telemetry: telemetry, logger: logger}

	m := otel.Meter(instrumentationName)
	var err error
	p.attempted, err = m.Int64Counter(
		"prefetch.tiles.attempted",
		metric.WithDescription("Tiles requested by prefetch"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attempted counter: %w", err)
	}
	p.failed, err = m.Int64Counter(
		"prefetch.tiles.failed",
		metric.WithDescription("Prefetched tiles that failed to load"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	return p, nil
}

// Prefetch requests every tile in the neighbourhood of dest concurrently and
// returns once all of them have succeeded or failed. Failures are counted,
// never returned.
func (p *Prefetcher) Prefetch(ctx context.Context, dest geo.LatLon, zoom int) Result {
	start := time.Now()
	center := p.engine.ToTileIndex(dest.Lat, dest.Lon, zoom)
	block := p.engine.Neighborhood(center)

	var failed atomic.Int32
	var g errgroup.Group
	for _, idx := range block {
		g.Go(func() error {
			if err := p.source.Warm(ctx, idx); err != nil {
				failed.Add(1)
				p.logger.Debug("prefetch tile failed", "tile", idx.String(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Center:    center,
		Tiles:     block,
		Attempted: len(block),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}

	attrs := metric.WithAttributes(attribute.String("dataset", p.source.Dataset()))
	p.attempted.Add(ctx, int64(res.Attempted), attrs)
	p.failed.Add(ctx, int64(res.Failed), attrs)

	if err := p.telemetry.Record(ctx, influx.MeasurementPrefetch,
		map[string]string{
			"dataset": p.source.Dataset(),
			"zoom":    strconv.Itoa(center.Z),
		},
		map[string]any{
			"attempted":   res.Attempted,
			"failed":      res.Failed,
			"duration_ms": res.Duration.Milliseconds(),
		},
	); err != nil {
		p.logger.Debug("prefetch telemetry not recorded", "error", err)
	}

	p.logger.Debug("prefetch complete",
		"center", center.String(),
		"attempted", res.Attempted,
		"failed", res.Failed,
		"duration", res.Duration)
	return res
}
