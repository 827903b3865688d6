package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embiggen/planetmap/internal/config"
)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{}, zerolog.Nop())

	err := m.Connect(context.Background())

	assert.ErrorIs(t, err, ErrDisabled)
	assert.False(t, m.Valid())
}

func TestConnect_UnreachableWritesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "telemetry.gz")
	m := NewManager(config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "planetmap",
		Bucket:     "planetmap_telemetry",
		BackupPath: backup,
	}, zerolog.Nop())

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.Valid())

	err := m.Record(context.Background(), MeasurementPrefetch,
		map[string]string{"dataset": "global"},
		map[string]any{"attempted": 9, "failed": 1})
	require.NoError(t, err)
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	assert.True(t, strings.HasPrefix(line, "tile_prefetch,dataset=global "), line)
	assert.Contains(t, line, "attempted=9i")
	assert.Contains(t, line, "failed=1i")
}

func TestWritePoint_WithoutConnect(t *testing.T) {
	m := NewManager(config.InfluxConfig{Enabled: true}, zerolog.Nop())

	err := m.WritePoint(context.Background(), NewPoint(MeasurementDistance, nil, map[string]any{"km": 1.5}, time.Now()))

	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), MeasurementDistance, nil, nil))
}
