package navigate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embiggen/planetmap/internal/api"
	"github.com/embiggen/planetmap/internal/cache"
	"github.com/embiggen/planetmap/internal/canvas"
	"github.com/embiggen/planetmap/internal/errors"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/prefetch"
	"github.com/embiggen/planetmap/internal/status"
	"github.com/embiggen/planetmap/internal/tile"
	"github.com/embiggen/planetmap/internal/tiles"
	"github.com/embiggen/planetmap/internal/viewport"
)

type fixture struct {
	canvas    *canvas.Headless
	viewport  *viewport.Controller
	banner    *status.Banner
	nav       *Navigator
	tileHits  *atomic.Int32
	tilePaths *sync.Map
}

func newFixture(t *testing.T, after func(time.Duration) <-chan time.Time) *fixture {
	t.Helper()
	var hits atomic.Int32
	var paths sync.Map
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		paths.Store(r.URL.Path, true)
		_, _ = w.Write([]byte("jpeg"))
	}))
	t.Cleanup(server.Close)

	c := canvas.NewHeadless()
	vp, err := viewport.New(c, viewport.Config{MinZoom: 1, MaxZoom: 7, Zoom: 2, After: after}, nil)
	require.NoError(t, err)

	engine := tile.NewEngine(geo.Equirectangular{}, 1, 7)
	lru, err := cache.NewTiles(64)
	require.NoError(t, err)
	source := tiles.NewSource(api.New(server.URL), lru, "global", nil)
	pf, err := prefetch.New(engine, source, nil, nil)
	require.NoError(t, err)

	banner := status.New(time.Hour, nil)
	nav := New(vp, pf, c, banner, 7, 3500*time.Millisecond, nil)
	return &fixture{canvas: c, viewport: vp, banner: banner, nav: nav, tileHits: &hits, tilePaths: &paths}
}

func instant(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func (f *fixture) bannerText() string {
	msg, _ := f.banner.Current()
	return msg.Text
}

func TestSearch_FliesAndDropsMarker(t *testing.T) {
	f := newFixture(t, instant)

	arrival, err := f.nav.Search(context.Background(), "-14.5, 175.4")

	require.NoError(t, err)
	assert.Equal(t, geo.LatLon{Lat: -14.5, Lon: 175.4}, arrival.Target)

	assert.Equal(t, 9, arrival.Prefetch.Attempted)
	assert.Equal(t, int32(9), f.tileHits.Load())
	for _, idx := range arrival.Prefetch.Tiles {
		assert.Equal(t, 7, idx.Z)
		_, ok := f.tilePaths.Load("/api/tiles/global/" + idx.String() + ".jpg")
		assert.True(t, ok, "tile %s requested", idx)
	}
	assert.Equal(t, tile.Index{Z: 7, X: 252, Y: 74}, arrival.Prefetch.Center)

	flights := f.canvas.Flights()
	require.Len(t, flights, 1)
	assert.Equal(t, 7.0, flights[0].Zoom)
	assert.Equal(t, 3500*time.Millisecond, flights[0].Duration)
	assert.Equal(t, geo.LatLon{Lat: -14.5, Lon: 175.4}, f.viewport.Viewport().Center)

	markers := f.canvas.Layers(canvas.GroupSearch)
	require.Len(t, markers, 1)
	assert.Equal(t, arrival.MarkerID, markers[0].ID)
	assert.True(t, strings.HasPrefix(markers[0].ID, "search-"))
	assert.Equal(t, []geo.LatLon{{Lat: -14.5, Lon: 175.4}}, markers[0].Points)

	assert.Equal(t, "Arrived!", f.bannerText())
	assert.False(t, f.nav.Navigating())
}

func TestSearch_InvalidInput(t *testing.T) {
	for _, input := range []string{"abc", "12", "1, 2, 3", "91, 0", ""} {
		t.Run(input, func(t *testing.T) {
			f := newFixture(t, instant)

			_, err := f.nav.Search(context.Background(), input)

			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
			assert.Equal(t, "Invalid coordinates", f.bannerText())
			assert.Empty(t, f.canvas.Flights())
			assert.Zero(t, f.tileHits.Load())
			assert.Empty(t, f.canvas.Layers(canvas.GroupSearch))
		})
	}
}

func TestSearch_IgnoredWhileFlying(t *testing.T) {
	landed := make(chan time.Time)
	f := newFixture(t, func(time.Duration) <-chan time.Time { return landed })

	done := make(chan error, 1)
	go func() {
		_, err := f.nav.Search(context.Background(), "-14.5, 175.4")
		done <- err
	}()
	require.Eventually(t, func() bool { return len(f.canvas.Flights()) == 1 }, time.Second, time.Millisecond)

	_, err := f.nav.Search(context.Background(), "10, 10")
	assert.ErrorIs(t, err, ErrNavigating)

	landed <- time.Now()
	require.NoError(t, <-done)
	assert.Len(t, f.canvas.Flights(), 1)
}

func TestSearch_CancelledFlight(t *testing.T) {
	f := newFixture(t, func(time.Duration) <-chan time.Time { return make(chan time.Time) })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.nav.Search(ctx, "-14.5, 175.4")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.canvas.Layers(canvas.GroupSearch))
	assert.False(t, f.nav.Navigating())
}

func TestClearSearch(t *testing.T) {
	f := newFixture(t, instant)
	_, err := f.nav.Search(context.Background(), "-14.5, 175.4")
	require.NoError(t, err)
	_, err = f.nav.Search(context.Background(), "10, 20")
	require.NoError(t, err)
	f.canvas.Upsert(canvas.Layer{ID: "label-1", Group: canvas.GroupLabels})

	f.nav.ClearSearch()

	assert.Empty(t, f.canvas.Layers(canvas.GroupSearch))
	assert.Len(t, f.canvas.Layers(canvas.GroupLabels), 1)
	assert.Equal(t, "Cleared search markers", f.bannerText())
}
