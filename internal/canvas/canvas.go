// Package canvas describes the map canvas the engine drives.
//
// Tile rendering and input handling belong to the canvas provider. The engine
// only configures it, listens to its events and manages vector layers on it.
package canvas

import (
	"time"

	"github.com/embiggen/planetmap/internal/geo"
)

// Options configures a canvas at startup.
type Options struct {
	MinZoom         int
	MaxZoom         int
	Center          geo.LatLon
	Zoom            float64
	TileURLTemplate string
	Attribution     string
	// NoWrap stops the tile layer repeating across the antimeridian.
	NoWrap bool
	// SouthWest and NorthEast bound panning.
	SouthWest geo.LatLon
	NorthEast geo.LatLon
}

// Events receives canvas notifications. Nil callbacks are skipped.
type Events struct {
	OnMove         func(center geo.LatLon)
	OnZoom         func(zoom float64)
	OnPointerMove  func(p geo.LatLon)
	OnPointerLeave func()
	// OnAction fires when a popup action is clicked. target is the layer's annotation id.
	OnAction func(action, target string)
}

// Tool is a drawing tool.
type Tool string

const (
	ToolPolygon  Tool = "polygon"
	ToolPolyline Tool = "polyline"
)

// Kind is the geometry of a layer.
type Kind string

const (
	KindPolygon  Kind = "polygon"
	KindPolyline Kind = "polyline"
	KindMarker   Kind = "marker"
	KindCircle   Kind = "circle"
)

// Style is the vector style of a layer.
type Style struct {
	Color       string  `json:"color,omitempty"`
	FillColor   string  `json:"fillColor,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	Opacity     float64 `json:"opacity"`
	FillOpacity float64 `json:"fillOpacity"`
	DashArray   string  `json:"dashArray,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
}

// Action is a button inside a popup.
type Action struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Popup is the content bound to a layer.
type Popup struct {
	HTML    string   `json:"html"`
	Actions []Action `json:"actions,omitempty"`
	Open    bool     `json:"open,omitempty"`
}

// Layer is one vector overlay.
type Layer struct {
	ID     string       `json:"id"`
	Group  string       `json:"group"`
	Kind   Kind         `json:"kind"`
	Points []geo.LatLon `json:"points"`
	Style  Style        `json:"style"`
	// Text is shown on marker layers.
	Text   string `json:"text,omitempty"`
	Popup  *Popup `json:"popup,omitempty"`
	Target string `json:"target,omitempty"`
}

// Layer groups managed by the engine.
const (
	GroupDrawn     = "drawn"
	GroupLabels    = "labels"
	GroupQuestions = "questions"
	GroupMeasure   = "measure"
	GroupSearch    = "search"
)

// CreatedFunc receives a finished shape. layerID names the layer the canvas
// created for it in GroupDrawn.
type CreatedFunc func(layerID string, points []geo.LatLon)

// Canvas is the map canvas provider.
type Canvas interface {
	Init(opts Options, events Events) error
	SetView(center geo.LatLon, zoom float64)
	// FlyTo starts an animated flight and returns immediately.
	FlyTo(center geo.LatLon, zoom float64, duration time.Duration)

	// EnableDraw arms a drawing tool. Only one tool is armed at a time.
	EnableDraw(tool Tool, style Style, onCreated CreatedFunc)
	DisableDraw()

	// Upsert adds the layer or replaces the one with the same ID.
	Upsert(layer Layer)
	Remove(id string)
	ClearGroup(group string)
	Layers(group string) []Layer
}
