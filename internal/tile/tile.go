// Package tile maps body coordinates onto the tile pyramid.
//
// A single Engine is built per body and shared by every consumer so the
// viewport readout, the prefetcher and the tile analyzer always agree on
// which tile a coordinate falls in.
package tile

import (
	"fmt"
	"math"
	"strings"

	"github.com/embiggen/planetmap/internal/geo"
)

// Index addresses one tile.
type Index struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

func (i Index) String() string {
	return fmt.Sprintf("%d/%d/%d", i.Z, i.X, i.Y)
}

// Engine converts coordinates to tile indices for one projection and zoom range.
type Engine struct {
	proj    geo.Projection
	minZoom int
	maxZoom int
}

// NewEngine creates an engine. minZoom and maxZoom are swapped if reversed.
func NewEngine(proj geo.Projection, minZoom, maxZoom int) *Engine {
	if minZoom > maxZoom {
		minZoom, maxZoom = maxZoom, minZoom
	}
	if minZoom < 0 {
		minZoom = 0
	}
	return &Engine{proj: proj, minZoom: minZoom, maxZoom: maxZoom}
}

// Projection returns the projection the engine was built with.
func (e *Engine) Projection() geo.Projection {
	return e.proj
}

// ZoomRange returns the supported zoom levels.
func (e *Engine) ZoomRange() (int, int) {
	return e.minZoom, e.maxZoom
}

// ClampZoom pins z into the supported range.
func (e *Engine) ClampZoom(z int) int {
	return max(e.minZoom, min(e.maxZoom, z))
}

// GridSize returns the number of tile columns and rows at zoom z.
func (e *Engine) GridSize(z int) (cols, rows int) {
	rows = 1 << e.ClampZoom(z)
	return rows * e.proj.Columns(), rows
}

// ToTileIndex returns the tile containing (lat, lon) at the given zoom.
// Coordinates on the south or east edge fall in the last row or column.
func (e *Engine) ToTileIndex(lat, lon float64, zoom int) Index {
	z := e.ClampZoom(zoom)
	cols, rows := e.GridSize(z)

	u, v := e.proj.Project(geo.LatLon{Lat: lat, Lon: lon}.Clamp())
	x := int(math.Floor(u * float64(cols)))
	y := int(math.Floor(v * float64(rows)))

	return Index{
		Z: z,
		X: max(0, min(cols-1, x)),
		Y: max(0, min(rows-1, y)),
	}
}

// Contains reports whether idx addresses a real tile.
func (e *Engine) Contains(idx Index) bool {
	if idx.Z != e.ClampZoom(idx.Z) {
		return false
	}
	cols, rows := e.GridSize(idx.Z)
	return idx.X >= 0 && idx.X < cols && idx.Y >= 0 && idx.Y < rows
}

// Neighborhood returns the 3x3 block centred on idx in row-major order.
// Neighbours outside the grid are omitted; the grid does not wrap.
func (e *Engine) Neighborhood(idx Index) []Index {
	out := make([]Index, 0, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			n := Index{Z: idx.Z, X: idx.X + dx, Y: idx.Y + dy}
			if e.Contains(n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// Bounds returns the north-west and south-east corners of a tile.
func (e *Engine) Bounds(idx Index) (nw, se geo.LatLon) {
	cols, rows := e.GridSize(idx.Z)
	nw = e.proj.Unproject(float64(idx.X)/float64(cols), float64(idx.Y)/float64(rows))
	se = e.proj.Unproject(float64(idx.X+1)/float64(cols), float64(idx.Y+1)/float64(rows))
	return nw, se
}

// Center returns the centre coordinate of a tile.
func (e *Engine) Center(idx Index) geo.LatLon {
	cols, rows := e.GridSize(idx.Z)
	return e.proj.Unproject((float64(idx.X)+0.5)/float64(cols), (float64(idx.Y)+0.5)/float64(rows))
}

// URL builds the tile URL served at /api/tiles/{dataset}/{z}/{x}/{y}.jpg.
func URL(baseURL, dataset string, idx Index) string {
	return fmt.Sprintf("%s/api/tiles/%s/%d/%d/%d.jpg", strings.TrimRight(baseURL, "/"), dataset, idx.Z, idx.X, idx.Y)
}

// URLTemplate is the placeholder form handed to the map canvas.
func URLTemplate(baseURL, dataset string) string {
	return fmt.Sprintf("%s/api/tiles/%s/{z}/{x}/{y}.jpg", strings.TrimRight(baseURL, "/"), dataset)
}
