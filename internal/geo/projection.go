package geo

import (
	"fmt"
	"math"

	"github.com/wroge/wgs84"
)

// Projection maps body coordinates onto the unit square used by a tile pyramid.
// u grows eastward from the antimeridian, v grows southward from the north edge.
type Projection interface {
	Name() string
	Project(p LatLon) (u, v float64)
	Unproject(u, v float64) LatLon
	// Columns is the number of tile columns per tile row at any zoom.
	Columns() int
}

const (
	ProjectionEquirectangular = "equirectangular"
	ProjectionWebMercator     = "webmercator"
)

// NewProjection resolves a configured projection name.
func NewProjection(name string) (Projection, error) {
	switch name {
	case "", ProjectionEquirectangular:
		return Equirectangular{}, nil
	case ProjectionWebMercator:
		return NewWebMercator(), nil
	default:
		return nil, fmt.Errorf("unknown projection: %s", name)
	}
}

// Equirectangular is the plate carrée grid served by the planetary tile sets:
// twice as many columns as rows.
type Equirectangular struct{}

func (Equirectangular) Name() string { return ProjectionEquirectangular }

func (Equirectangular) Columns() int { return 2 }

func (Equirectangular) Project(p LatLon) (float64, float64) {
	return (p.Lon + 180) / 360, (90 - p.Lat) / 180
}

func (Equirectangular) Unproject(u, v float64) LatLon {
	return LatLon{Lat: 90 - v*180, Lon: u*360 - 180}
}

// mercatorHalfExtent is half the width of the EPSG:3857 plane in metres.
const mercatorHalfExtent = 20037508.342789244

// MaxMercatorLat is the latitude at which the square mercator grid ends.
const MaxMercatorLat = 85.05112878

// WebMercator projects through EPSG:4326 -> EPSG:3857 onto a square grid.
type WebMercator struct {
	forward func(a, b, c float64) (float64, float64, float64)
	inverse func(a, b, c float64) (float64, float64, float64)
}

// NewWebMercator builds the wgs84 transforms once.
func NewWebMercator() WebMercator {
	epsg := wgs84.EPSG()
	return WebMercator{
		forward: epsg.Transform(4326, 3857),
		inverse: epsg.Transform(3857, 4326),
	}
}

func (WebMercator) Name() string { return ProjectionWebMercator }

func (WebMercator) Columns() int { return 1 }

func (m WebMercator) Project(p LatLon) (float64, float64) {
	lat := math.Max(-MaxMercatorLat, math.Min(MaxMercatorLat, p.Lat))
	x, y, _ := m.forward(p.Lon, lat, 0)
	return (x + mercatorHalfExtent) / (2 * mercatorHalfExtent), (mercatorHalfExtent - y) / (2 * mercatorHalfExtent)
}

func (m WebMercator) Unproject(u, v float64) LatLon {
	x := u*2*mercatorHalfExtent - mercatorHalfExtent
	y := mercatorHalfExtent - v*2*mercatorHalfExtent
	lon, lat, _ := m.inverse(x, y, 0)
	return LatLon{Lat: lat, Lon: lon}
}
