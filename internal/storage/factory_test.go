package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/embiggen/planetmap/internal/annotation"
	"github.com/embiggen/planetmap/internal/config"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"memory", config.StorageConfig{Type: "memory"}},
		{"default", config.StorageConfig{}},
		{"sqlite", config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "s.db")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := storage.NewBackend(tt.cfg, zerolog.Nop())
			require.NoError(t, err)
			require.NoError(t, b.Init())
			defer b.Close()

			ctx := context.Background()
			labels := []annotation.Label{{ID: "1", Title: "Crater", Polygon: []geo.LatLon{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}}}}
			require.NoError(t, b.SaveLabels(ctx, "Mars", labels))

			got, err := b.LoadLabels(ctx, "Mars")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "Crater", got[0].Title)
		})
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "s3"}, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown storage type")
}
