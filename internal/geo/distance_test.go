package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance_OneDegreeOfLongitudeOnMars(t *testing.T) {
	d, err := Distance([]LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}}, MarsRadiusKm)

	require.NoError(t, err)
	assert.InDelta(t, 59.157, d, 0.01)
}

func TestDistance_ReversalIsSymmetric(t *testing.T) {
	path := []LatLon{{Lat: 18.65, Lon: -133.8}, {Lat: -4.5, Lon: 137.4}, {Lat: -14.5, Lon: 175.4}}
	reversed := []LatLon{path[2], path[1], path[0]}

	forward, err := Distance(path, MarsRadiusKm)
	require.NoError(t, err)
	backward, err := Distance(reversed, MarsRadiusKm)
	require.NoError(t, err)

	assert.InDelta(t, forward, backward, 1e-9)
}

func TestDistance_SamePointIsZero(t *testing.T) {
	p := LatLon{Lat: 12.3, Lon: 45.6}
	d, err := Distance([]LatLon{p, p}, MarsRadiusKm)

	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestDistance_TooFewPoints(t *testing.T) {
	_, err := Distance([]LatLon{{Lat: 1, Lon: 1}}, MarsRadiusKm)
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = Distance(nil, MarsRadiusKm)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestDistance_SumsSegments(t *testing.T) {
	a, b, c := LatLon{Lat: 0, Lon: 0}, LatLon{Lat: 0, Lon: 1}, LatLon{Lat: 1, Lon: 1}

	total, err := Distance([]LatLon{a, b, c}, MoonRadiusKm)
	require.NoError(t, err)

	assert.InDelta(t, Haversine(a, b, MoonRadiusKm)+Haversine(b, c, MoonRadiusKm), total, 1e-9)
}

func TestHaversine_ScalesWithRadius(t *testing.T) {
	a, b := LatLon{Lat: 10, Lon: 10}, LatLon{Lat: -20, Lon: 40}
	assert.InDelta(t, 2*Haversine(a, b, 1000), Haversine(a, b, 2000), 1e-9)
}
