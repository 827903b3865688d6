package geo

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentroid_Square(t *testing.T) {
	c, err := Centroid([]LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 2}, {Lat: 2, Lon: 2}, {Lat: 2, Lon: 0}})

	require.NoError(t, err)
	assert.InDelta(t, 1.0, c.Lat, 1e-9)
	assert.InDelta(t, 1.0, c.Lon, 1e-9)
}

func TestCentroid_Empty(t *testing.T) {
	_, err := Centroid(nil)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestCentroid_NonFiniteVertex(t *testing.T) {
	_, err := Centroid([]LatLon{{Lat: 0, Lon: 0}, {Lat: math.NaN(), Lon: 1}, {Lat: 1, Lon: 1}})
	require.Error(t, err)
}

func TestLineString_LonLatOrder(t *testing.T) {
	ls, err := LineString([]LatLon{{Lat: -14.5, Lon: 175.4}, {Lat: -14.5, Lon: 176.4}})

	require.NoError(t, err)
	seq := ls.Coordinates()
	assert.Equal(t, 2, seq.Length())
	start := seq.GetXY(0)
	assert.Equal(t, 175.4, start.X)
	assert.Equal(t, -14.5, start.Y)
}

func TestLineString_TooFewPoints(t *testing.T) {
	_, err := LineString([]LatLon{{Lat: 1, Lon: 1}})
	require.Error(t, err)
}

func TestRingWKT_ClosesOutline(t *testing.T) {
	wkt, err := RingWKT([]LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(wkt, "LINESTRING"), wkt)
	assert.Equal(t, 4, strings.Count(wkt, ",")+1)
}

func TestRing_TooFewVertices(t *testing.T) {
	_, err := Ring([]LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}})
	require.Error(t, err)
}
