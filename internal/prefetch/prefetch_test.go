package prefetch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/tile"
)

type fakeWarmer struct {
	mu     sync.Mutex
	warmed []tile.Index
	fail   map[tile.Index]bool
}

func (f *fakeWarmer) Warm(_ context.Context, idx tile.Index) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmed = append(f.warmed, idx)
	if f.fail[idx] {
		return errors.New("boom")
	}
	return nil
}

func (f *fakeWarmer) Dataset() string { return "global" }

type fakeRecorder struct {
	measurement string
	tags        map[string]string
	fields      map[string]any
}

func (r *fakeRecorder) Record(_ context.Context, m string, tags map[string]string, fields map[string]any) error {
	r.measurement, r.tags, r.fields = m, tags, fields
	return nil
}

func newEngine() *tile.Engine {
	return tile.NewEngine(geo.Equirectangular{}, 1, 7)
}

func TestPrefetch_SearchDestination(t *testing.T) {
	w := &fakeWarmer{}
	rec := &fakeRecorder{}
	p, err := New(newEngine(), w, rec, nil)
	require.NoError(t, err)

	res := p.Prefetch(context.Background(), geo.LatLon{Lat: -14.5, Lon: 175.4}, 7)

	assert.Equal(t, tile.Index{Z: 7, X: 252, Y: 74}, res.Center)
	assert.Equal(t, 9, res.Attempted)
	assert.Equal(t, 0, res.Failed)
	assert.ElementsMatch(t, res.Tiles, w.warmed)
	for _, idx := range w.warmed {
		assert.Equal(t, 7, idx.Z)
		assert.InDelta(t, 252, idx.X, 1)
		assert.InDelta(t, 74, idx.Y, 1)
	}

	assert.Equal(t, "tile_prefetch", rec.measurement)
	assert.Equal(t, "7", rec.tags["zoom"])
	assert.Equal(t, 9, rec.fields["attempted"])
}

func TestPrefetch_FailuresAreSwallowed(t *testing.T) {
	center := tile.Index{Z: 7, X: 252, Y: 74}
	corner := tile.Index{Z: 7, X: 251, Y: 73}
	w := &fakeWarmer{fail: map[tile.Index]bool{center: true, corner: true}}
	p, err := New(newEngine(), w, nil, nil)
	require.NoError(t, err)

	res := p.Prefetch(context.Background(), geo.LatLon{Lat: -14.5, Lon: 175.4}, 7)

	assert.Equal(t, 9, res.Attempted)
	assert.Equal(t, 2, res.Failed)
	assert.Len(t, w.warmed, 9)
}

func TestPrefetch_EdgeOfGrid(t *testing.T) {
	w := &fakeWarmer{}
	p, err := New(newEngine(), w, nil, nil)
	require.NoError(t, err)

	res := p.Prefetch(context.Background(), geo.LatLon{Lat: 90, Lon: -180}, 3)

	assert.Equal(t, tile.Index{Z: 3, X: 0, Y: 0}, res.Center)
	assert.Equal(t, 4, res.Attempted)
}
