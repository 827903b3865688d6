package geo

import (
	"errors"
	"math"
)

// ErrTooFewPoints is returned when a measurement has fewer than two points.
var ErrTooFewPoints = errors.New("at least two points are required")

// Mean body radii in kilometres.
const (
	MarsRadiusKm    = 3389.5
	MoonRadiusKm    = 1737.4
	MercuryRadiusKm = 2439.7
)

// Haversine returns the great-circle distance between a and b on a sphere of radiusKm.
func Haversine(a, b LatLon, radiusKm float64) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return radiusKm * c
}

// Distance sums the great-circle length of consecutive segments of points.
func Distance(points []LatLon, radiusKm float64) (float64, error) {
	if len(points) < 2 {
		return 0, ErrTooFewPoints
	}
	var total float64
	for i := 0; i+1 < len(points); i++ {
		total += Haversine(points[i], points[i+1], radiusKm)
	}
	return total, nil
}
