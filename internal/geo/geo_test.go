package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLatLon_Valid(t *testing.T) {
	p, err := ParseLatLon("-14.5, 175.4")

	require.NoError(t, err)
	assert.Equal(t, -14.5, p.Lat)
	assert.Equal(t, 175.4, p.Lon)
}

func TestParseLatLon_NoSpace(t *testing.T) {
	p, err := ParseLatLon("  4.5,137.4 ")

	require.NoError(t, err)
	assert.Equal(t, LatLon{Lat: 4.5, Lon: 137.4}, p)
}

func TestParseLatLon_Invalid(t *testing.T) {
	tests := []string{
		"abc",
		"",
		"1,2,3",
		"12.5",
		"north, 10",
		"10, east",
		"91, 0",
		"0, -181",
		"NaN, 0",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseLatLon(input)
			assert.True(t, errors.Is(err, ErrInvalidCoordinates), "input %q", input)
		})
	}
}

func TestLatLon_Clamp(t *testing.T) {
	assert.Equal(t, LatLon{Lat: 90, Lon: -180}, LatLon{Lat: 95, Lon: -200}.Clamp())
	assert.Equal(t, LatLon{Lat: 10, Lon: 20}, LatLon{Lat: 10, Lon: 20}.Clamp())
}

func TestLatLon_String(t *testing.T) {
	assert.Equal(t, "-14.5000°, 175.4000°", LatLon{Lat: -14.5, Lon: 175.4}.String())
}

func TestFlattenUnflatten(t *testing.T) {
	poly := []LatLon{{Lat: 18.65, Lon: -133.8}, {Lat: 18.65, Lon: -132.8}, {Lat: 17.65, Lon: -132.8}}

	flat := Flatten(poly)
	assert.Equal(t, []float64{18.65, -133.8, 18.65, -132.8, 17.65, -132.8}, flat)

	back, err := Unflatten(flat)
	require.NoError(t, err)
	assert.Equal(t, poly, back)
}

func TestUnflatten_OddLength(t *testing.T) {
	_, err := Unflatten([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestUnflatten_OutOfRange(t *testing.T) {
	_, err := Unflatten([]float64{1, 2, 100, 2})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestBoundsCenter(t *testing.T) {
	c := BoundsCenter([]LatLon{{Lat: 0, Lon: 0}, {Lat: 10, Lon: 0}, {Lat: 10, Lon: 20}, {Lat: 2, Lon: 4}})
	assert.Equal(t, LatLon{Lat: 5, Lon: 10}, c)
	assert.Equal(t, LatLon{}, BoundsCenter(nil))
}
