package gormstorage

import (
	"context"
	"testing"
	"time"

	"github.com/embiggen/planetmap/internal/annotation"
	"github.com/embiggen/planetmap/internal/database"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface check
var _ annotation.Snapshots = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDB("")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	b := New(db, sqlDB.Close, zerolog.Nop())
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func square(lat, lon float64) []geo.LatLon {
	return []geo.LatLon{
		{Lat: lat, Lon: lon},
		{Lat: lat, Lon: lon + 1},
		{Lat: lat + 1, Lon: lon + 1},
		{Lat: lat + 1, Lon: lon},
	}
}

func TestInit_NoDB(t *testing.T) {
	assert.Error(t, New(nil, nil, zerolog.Nop()).Init())
}

func TestSaveLoad_KeepsOrder(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	labels := []annotation.Label{
		{ID: "9", OwnerUserID: 102, CelestialObject: "Mars", Title: "Zeta", Polygon: square(10, 10), Color: "#ff6b6b", CreatedAt: created, UpdatedAt: created},
		{ID: "2", OwnerUserID: 102, CelestialObject: "Mars", Title: "Alpha", Polygon: square(-5, 40), Color: "#4ecdc4", CreatedAt: created, UpdatedAt: created},
	}
	require.NoError(t, b.SaveLabels(ctx, "Mars", labels))

	got, err := b.LoadLabels(ctx, "Mars")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "9", got[0].ID)
	assert.Equal(t, "2", got[1].ID)
	assert.Equal(t, square(-5, 40), got[1].Polygon)
	assert.Equal(t, "#4ecdc4", got[1].Color)
	assert.True(t, created.Equal(got[0].CreatedAt))
}

func TestSaveLabels_ReplacesOnlyThatBody(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.SaveLabels(ctx, "Mars", []annotation.Label{{ID: "1", Polygon: square(0, 0)}, {ID: "2", Polygon: square(1, 1)}}))
	require.NoError(t, b.SaveLabels(ctx, "Moon", []annotation.Label{{ID: "m", Polygon: square(0, 0)}}))
	require.NoError(t, b.SaveLabels(ctx, "Mars", []annotation.Label{{ID: "3", Polygon: square(2, 2)}}))

	mars, err := b.LoadLabels(ctx, "Mars")
	require.NoError(t, err)
	require.Len(t, mars, 1)
	assert.Equal(t, "3", mars[0].ID)

	moon, err := b.LoadLabels(ctx, "Moon")
	require.NoError(t, err)
	require.Len(t, moon, 1)
}

func TestSaveLabels_SkipsDegeneratePolygons(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.SaveLabels(ctx, "Mars", []annotation.Label{
		{ID: "line", Polygon: square(0, 0)[:2]},
		{ID: "ok", Polygon: square(0, 0)},
	}))

	got, err := b.LoadLabels(ctx, "Mars")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].ID)

	var row model.LabelSnapshot
	require.NoError(t, b.DB().Where("label_id = ?", "ok").First(&row).Error)
	assert.Contains(t, row.Outline, "LINESTRING")
}

func TestSaveLabels_EmptyClears(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.SaveLabels(ctx, "Mars", []annotation.Label{{ID: "1", Polygon: square(0, 0)}}))
	require.NoError(t, b.SaveLabels(ctx, "Mars", nil))

	got, err := b.LoadLabels(ctx, "Mars")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRefreshedAt(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	_, ok, err := b.RefreshedAt(ctx, "Mars")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.SaveLabels(ctx, "Mars", []annotation.Label{{ID: "1", Polygon: square(0, 0)}}))
	require.NoError(t, b.SaveLabels(ctx, "Mars", []annotation.Label{{ID: "1", Polygon: square(0, 0)}, {ID: "2", Polygon: square(3, 3)}}))

	at, ok, err := b.RefreshedAt(ctx, "Mars")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), at, time.Minute)

	var info model.SnapshotInfo
	require.NoError(t, b.DB().Where("celestial_object = ?", "Mars").First(&info).Error)
	assert.Equal(t, 2, info.LabelCount)
}
