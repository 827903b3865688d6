package canvas

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/embiggen/planetmap/internal/geo"
)

// ErrNotDrawing is returned by Complete when no tool is armed.
var ErrNotDrawing = errors.New("no drawing tool is enabled")

// Flight records one FlyTo call.
type Flight struct {
	Center   geo.LatLon
	Zoom     float64
	Duration time.Duration
}

// Headless is an in-memory canvas. It applies view changes instantly and
// lets callers simulate user input; the CLI and tests drive the engine with it.
type Headless struct {
	mu      sync.Mutex
	opts    Options
	events  Events
	ready   bool
	center  geo.LatLon
	zoom    float64
	flights []Flight

	tool      Tool
	drawStyle Style
	onCreated CreatedFunc
	drawn     int

	order  []string
	layers map[string]Layer
}

// NewHeadless creates an uninitialised headless canvas.
func NewHeadless() *Headless {
	return &Headless{layers: make(map[string]Layer)}
}

// Init stores the options and starts at the initial view.
func (h *Headless) Init(opts Options, events Events) error {
	if opts.MinZoom > opts.MaxZoom {
		return fmt.Errorf("min zoom %d exceeds max zoom %d", opts.MinZoom, opts.MaxZoom)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opts = opts
	h.events = events
	h.center = opts.Center
	h.zoom = opts.Zoom
	h.ready = true
	return nil
}

// Options returns what Init was called with.
func (h *Headless) Options() Options {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.opts
}

// SetView jumps to a view and emits move and zoom events.
func (h *Headless) SetView(center geo.LatLon, zoom float64) {
	h.moveTo(center, zoom)
}

// FlyTo records the flight and lands immediately.
func (h *Headless) FlyTo(center geo.LatLon, zoom float64, duration time.Duration) {
	h.mu.Lock()
	h.flights = append(h.flights, Flight{Center: center, Zoom: zoom, Duration: duration})
	h.mu.Unlock()
	h.moveTo(center, zoom)
}

// Pan simulates the user dragging the map.
func (h *Headless) Pan(center geo.LatLon) {
	h.mu.Lock()
	zoom := h.zoom
	h.mu.Unlock()
	h.moveTo(center, zoom)
}

// Zoom simulates the user zooming in place.
func (h *Headless) Zoom(zoom float64) {
	h.mu.Lock()
	center := h.center
	h.mu.Unlock()
	h.moveTo(center, zoom)
}

func (h *Headless) moveTo(center geo.LatLon, zoom float64) {
	h.mu.Lock()
	zoom = math.Max(float64(h.opts.MinZoom), math.Min(float64(h.opts.MaxZoom), zoom))
	zoomChanged := zoom != h.zoom
	h.center = center.Clamp()
	h.zoom = zoom
	events := h.events
	center = h.center
	h.mu.Unlock()

	if zoomChanged && events.OnZoom != nil {
		events.OnZoom(zoom)
	}
	if events.OnMove != nil {
		events.OnMove(center)
	}
}

// PointerMove simulates the pointer hovering over p.
func (h *Headless) PointerMove(p geo.LatLon) {
	h.mu.Lock()
	events := h.events
	h.mu.Unlock()
	if events.OnPointerMove != nil {
		events.OnPointerMove(p)
	}
}

// PointerLeave simulates the pointer leaving the canvas.
func (h *Headless) PointerLeave() {
	h.mu.Lock()
	events := h.events
	h.mu.Unlock()
	if events.OnPointerLeave != nil {
		events.OnPointerLeave()
	}
}

// Click simulates pressing a popup action on a layer.
func (h *Headless) Click(layerID, action string) error {
	h.mu.Lock()
	layer, ok := h.layers[layerID]
	events := h.events
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("no layer %q", layerID)
	}
	if layer.Popup == nil {
		return fmt.Errorf("layer %q has no popup", layerID)
	}
	found := false
	for _, a := range layer.Popup.Actions {
		if a.Name == action {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("layer %q has no action %q", layerID, action)
	}
	if events.OnAction != nil {
		events.OnAction(action, layer.Target)
	}
	return nil
}

// View returns the current centre and zoom.
func (h *Headless) View() (geo.LatLon, float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.center, h.zoom
}

// Flights returns every FlyTo call so far.
func (h *Headless) Flights() []Flight {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Flight(nil), h.flights...)
}

// EnableDraw arms tool.
func (h *Headless) EnableDraw(tool Tool, style Style, onCreated CreatedFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tool = tool
	h.drawStyle = style
	h.onCreated = onCreated
}

// DisableDraw disarms the current tool.
func (h *Headless) DisableDraw() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tool = ""
	h.onCreated = nil
}

// ActiveTool returns the armed tool, or "".
func (h *Headless) ActiveTool() Tool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tool
}

// Complete finishes the shape being drawn with the given vertices. The
// tool is disarmed, the shape is added to GroupDrawn and the created
// callback runs.
func (h *Headless) Complete(points []geo.LatLon) (string, error) {
	h.mu.Lock()
	if h.tool == "" || h.onCreated == nil {
		h.mu.Unlock()
		return "", ErrNotDrawing
	}
	kind := KindPolygon
	if h.tool == ToolPolyline {
		kind = KindPolyline
	}
	h.drawn++
	id := fmt.Sprintf("drawn-%d", h.drawn)
	h.put(Layer{
		ID:     id,
		Group:  GroupDrawn,
		Kind:   kind,
		Points: append([]geo.LatLon(nil), points...),
		Style:  h.drawStyle,
	})
	cb := h.onCreated
	h.tool = ""
	h.onCreated = nil
	h.mu.Unlock()

	cb(id, append([]geo.LatLon(nil), points...))
	return id, nil
}

// Upsert adds or replaces a layer.
func (h *Headless) Upsert(layer Layer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.put(layer)
}

func (h *Headless) put(layer Layer) {
	if _, exists := h.layers[layer.ID]; !exists {
		h.order = append(h.order, layer.ID)
	}
	h.layers[layer.ID] = layer
}

// Remove deletes a layer. Unknown ids are ignored.
func (h *Headless) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(id)
}

func (h *Headless) remove(id string) {
	if _, ok := h.layers[id]; !ok {
		return
	}
	delete(h.layers, id)
	for i, existing := range h.order {
		if existing == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// ClearGroup removes every layer of a group.
func (h *Headless) ClearGroup(group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range append([]string(nil), h.order...) {
		if h.layers[id].Group == group {
			h.remove(id)
		}
	}
}

// Layers returns a group's layers in insertion order. An empty group
// name returns every layer.
func (h *Headless) Layers(group string) []Layer {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Layer
	for _, id := range h.order {
		l := h.layers[id]
		if group == "" || l.Group == group {
			out = append(out, l)
		}
	}
	return out
}

// Layer returns one layer by id.
func (h *Headless) Layer(id string) (Layer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.layers[id]
	return l, ok
}
