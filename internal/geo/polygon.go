package geo

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Geometry helpers use X=lon, Y=lat.

// LineString builds a simplefeatures line through the given points.
func LineString(points []LatLon) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("line must have at least 2 points, got %d", len(points))
	}
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.Lon, p.Lat)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// Ring closes the polygon outline so it can be stored as WKT.
func Ring(poly []LatLon) (geom.LineString, error) {
	if len(poly) < 3 {
		return geom.LineString{}, fmt.Errorf("polygon must have at least 3 vertices, got %d", len(poly))
	}
	closed := append(append([]LatLon{}, poly...), poly[0])
	return LineString(closed)
}

// RingWKT returns the closed outline as a WKT LINESTRING.
func RingWKT(poly []LatLon) (string, error) {
	ls, err := Ring(poly)
	if err != nil {
		return "", err
	}
	return ls.AsText(), nil
}

// Centroid returns the arithmetic mean of the polygon's vertices.
// Forum posts are anchored at this point.
func Centroid(poly []LatLon) (LatLon, error) {
	if len(poly) == 0 {
		return LatLon{}, ErrInvalidCoordinates
	}
	points := make([]geom.Point, 0, len(poly))
	for _, p := range poly {
		pt, err := geom.NewPoint(geom.Coordinates{
			XY:   geom.XY{X: p.Lon, Y: p.Lat},
			Type: geom.DimXY,
		})
		if err != nil {
			return LatLon{}, fmt.Errorf("vertex %s: %w", p, err)
		}
		points = append(points, pt)
	}
	c, ok := geom.NewMultiPoint(points).Centroid().Coordinates()
	if !ok {
		return LatLon{}, ErrInvalidCoordinates
	}
	return LatLon{Lat: c.Y, Lon: c.X}, nil
}
