// Package viewport tracks the live view of the map canvas.
package viewport

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/embiggen/planetmap/internal/canvas"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/tile"
)

// State is the current view.
type State struct {
	Center  geo.LatLon
	Zoom    float64
	Pointer *geo.LatLon
}

// Config initialises the canvas.
type Config struct {
	MinZoom         int
	MaxZoom         int
	Center          geo.LatLon
	Zoom            float64
	TileURLTemplate string
	Attribution     string
	// After waits for a flight to finish. Defaults to time.After.
	After func(time.Duration) <-chan time.Time
}

type subscriber struct {
	id uint64
	fn func(State)
}

// Controller owns the view state. It is the only component that
// configures the canvas.
type Controller struct {
	canvas canvas.Canvas
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	nextID  uint64
	subs    []subscriber
	onClick func(action, target string)
}

// New initialises the canvas with world bounds and the zoom range.
func New(c canvas.Canvas, cfg Config, logger *slog.Logger) (*Controller, error) {
	if cfg.MinZoom > cfg.MaxZoom {
		return nil, fmt.Errorf("min zoom %d exceeds max zoom %d", cfg.MinZoom, cfg.MaxZoom)
	}
	if cfg.After == nil {
		cfg.After = time.After
	}
	if logger == nil {
		logger = slog.Default()
	}

	v := &Controller{
		canvas: c,
		cfg:    cfg,
		logger: logger,
		state: State{
			Center: cfg.Center.Clamp(),
			Zoom:   clampZoom(cfg.Zoom, cfg.MinZoom, cfg.MaxZoom),
		},
	}

	err := c.Init(canvas.Options{
		MinZoom:         cfg.MinZoom,
		MaxZoom:         cfg.MaxZoom,
		Center:          v.state.Center,
		Zoom:            v.state.Zoom,
		TileURLTemplate: cfg.TileURLTemplate,
		Attribution:     cfg.Attribution,
		NoWrap:          true,
		SouthWest:       geo.LatLon{Lat: geo.MinLat, Lon: geo.MinLon},
		NorthEast:       geo.LatLon{Lat: geo.MaxLat, Lon: geo.MaxLon},
	}, canvas.Events{
		OnMove:         v.handleMove,
		OnZoom:         v.handleZoom,
		OnPointerMove:  v.handlePointerMove,
		OnPointerLeave: v.handlePointerLeave,
		OnAction:       v.handleAction,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise canvas: %w", err)
	}
	return v, nil
}

func clampZoom(z float64, minZoom, maxZoom int) float64 {
	return math.Max(float64(minZoom), math.Min(float64(maxZoom), z))
}

// Viewport returns a copy of the current view.
func (v *Controller) Viewport() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot()
}

func (v *Controller) snapshot() State {
	s := v.state
	if s.Pointer != nil {
		p := *s.Pointer
		s.Pointer = &p
	}
	return s
}

// PointerPosition returns the coordinate under the pointer, if it is over the map.
func (v *Controller) PointerPosition() (geo.LatLon, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Pointer == nil {
		return geo.LatLon{}, false
	}
	return *v.state.Pointer, true
}

// TileZoom is the integer zoom used for tile lookups.
func (v *Controller) TileZoom() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return int(math.Round(v.state.Zoom))
}

// CenterTile returns the tile under the view centre.
func (v *Controller) CenterTile(engine *tile.Engine) tile.Index {
	s := v.Viewport()
	return engine.ToTileIndex(s.Center.Lat, s.Center.Lon, int(math.Round(s.Zoom)))
}

// FormatPointer renders the pointer readout, "-" when off the map.
func (v *Controller) FormatPointer() string {
	p, ok := v.PointerPosition()
	if !ok {
		return "-"
	}
	return p.String()
}

// Subscribe registers fn for every view change. fn runs synchronously on the
// goroutine that delivered the canvas event, after the state was updated.
// Subscribers run in registration order.
func (v *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextID++
	id := v.nextID
	v.subs = append(v.subs, subscriber{id: id, fn: fn})
	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		for i, s := range v.subs {
			if s.id == id {
				v.subs = append(v.subs[:i:i], v.subs[i+1:]...)
				return
			}
		}
	}
}

// OnAction routes popup actions clicked on the canvas.
func (v *Controller) OnAction(fn func(action, target string)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onClick = fn
}

// FlyTo starts an animated flight and returns once duration has elapsed.
// The view state follows the canvas events, not the call.
func (v *Controller) FlyTo(ctx context.Context, target geo.LatLon, zoom int, duration time.Duration) error {
	if !target.Valid() {
		return geo.ErrInvalidCoordinates
	}
	z := clampZoom(float64(zoom), v.cfg.MinZoom, v.cfg.MaxZoom)
	v.logger.Debug("flying", "target", target.String(), "zoom", z, "duration", duration)

	v.canvas.FlyTo(target, z, duration)

	select {
	case <-v.cfg.After(duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetView jumps without animation.
func (v *Controller) SetView(center geo.LatLon, zoom float64) {
	v.canvas.SetView(center.Clamp(), clampZoom(zoom, v.cfg.MinZoom, v.cfg.MaxZoom))
}

func (v *Controller) apply(update func(*State)) {
	v.mu.Lock()
	update(&v.state)
	s := v.snapshot()
	subs := append([]subscriber(nil), v.subs...)
	v.mu.Unlock()

	for _, sub := range subs {
		sub.fn(s)
	}
}

func (v *Controller) handleMove(center geo.LatLon) {
	v.apply(func(s *State) { s.Center = center.Clamp() })
}

func (v *Controller) handleZoom(zoom float64) {
	v.apply(func(s *State) { s.Zoom = clampZoom(zoom, v.cfg.MinZoom, v.cfg.MaxZoom) })
}

func (v *Controller) handlePointerMove(p geo.LatLon) {
	v.apply(func(s *State) {
		c := p.Clamp()
		s.Pointer = &c
	})
}

func (v *Controller) handlePointerLeave() {
	v.apply(func(s *State) { s.Pointer = nil })
}

func (v *Controller) handleAction(action, target string) {
	v.mu.Lock()
	fn := v.onClick
	v.mu.Unlock()
	if fn == nil {
		v.logger.Debug("unhandled popup action", "action", action, "target", target)
		return
	}
	fn(action, target)
}
