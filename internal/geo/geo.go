package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Body-fixed coordinates are planetocentric degrees: latitude in [-90,90],
// longitude in [-180,180]. Flattened coordinate arrays on the wire are
// ordered lat,lon,lat,lon,...

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0
)

// LatLon is a point on a body's surface.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies inside the world bounds.
func (p LatLon) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= MinLat && p.Lat <= MaxLat && p.Lon >= MinLon && p.Lon <= MaxLon
}

// Clamp pins the point to the world bounds.
func (p LatLon) Clamp() LatLon {
	return LatLon{
		Lat: math.Max(MinLat, math.Min(MaxLat, p.Lat)),
		Lon: math.Max(MinLon, math.Min(MaxLon, p.Lon)),
	}
}

// String formats the point the way the side panel shows it.
func (p LatLon) String() string {
	return fmt.Sprintf("%.4f°, %.4f°", p.Lat, p.Lon)
}

// ParseLatLon parses user search input in the form "lat, lon".
func ParseLatLon(input string) (LatLon, error) {
	parts := strings.Split(strings.TrimSpace(input), ",")
	if len(parts) != 2 {
		return LatLon{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return LatLon{}, ErrInvalidCoordinates
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return LatLon{}, ErrInvalidCoordinates
	}
	p := LatLon{Lat: lat, Lon: lon}
	if !p.Valid() {
		return LatLon{}, ErrInvalidCoordinates
	}
	return p, nil
}

// Flatten encodes a polygon as lat,lon,lat,lon,...
func Flatten(poly []LatLon) []float64 {
	flat := make([]float64, 0, len(poly)*2)
	for _, p := range poly {
		flat = append(flat, p.Lat, p.Lon)
	}
	return flat
}

// Unflatten decodes a lat,lon,... array. Odd-length or out-of-range input is rejected.
func Unflatten(flat []float64) ([]LatLon, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("odd coordinate count %d: %w", len(flat), ErrInvalidCoordinates)
	}
	poly := make([]LatLon, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		p := LatLon{Lat: flat[i], Lon: flat[i+1]}
		if !p.Valid() {
			return nil, fmt.Errorf("vertex %d (%v,%v): %w", i/2, flat[i], flat[i+1], ErrInvalidCoordinates)
		}
		poly = append(poly, p)
	}
	return poly, nil
}

// BoundsCenter returns the centre of the polygon's lat/lon bounding box.
// Label markers are anchored here.
func BoundsCenter(poly []LatLon) LatLon {
	if len(poly) == 0 {
		return LatLon{}
	}
	minLat, maxLat := poly[0].Lat, poly[0].Lat
	minLon, maxLon := poly[0].Lon, poly[0].Lon
	for _, p := range poly[1:] {
		minLat = math.Min(minLat, p.Lat)
		maxLat = math.Max(maxLat, p.Lat)
		minLon = math.Min(minLon, p.Lon)
		maxLon = math.Max(maxLon, p.Lon)
	}
	return LatLon{Lat: (minLat + maxLat) / 2, Lon: (minLon + maxLon) / 2}
}
