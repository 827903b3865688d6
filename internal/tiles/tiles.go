// Package tiles loads tile images through the shared LRU cache.
package tiles

import (
	"context"
	"log/slog"

	"github.com/embiggen/planetmap/internal/cache"
	"github.com/embiggen/planetmap/internal/tile"
)

// Fetcher downloads one tile image.
type Fetcher interface {
	FetchTile(ctx context.Context, dataset string, idx tile.Index) ([]byte, error)
	TileURL(dataset string, idx tile.Index) string
}

// Placeholder is substituted for tiles that fail to load: a 1x1 grey GIF.
var Placeholder = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x80, 0x80, 0x80,
	0x00, 0x00, 0x00, 0x21, 0xf9, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Source serves the tiles of one dataset.
type Source struct {
	fetcher Fetcher
	cache   *cache.Tiles
	dataset string
	logger  *slog.Logger
}

// NewSource creates a Source.
func NewSource(fetcher Fetcher, c *cache.Tiles, dataset string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{fetcher: fetcher, cache: c, dataset: dataset, logger: logger}
}

// Dataset returns the dataset name.
func (s *Source) Dataset() string {
	return s.dataset
}

// Load returns the tile image, from cache when possible. Failures are not
// reported to the caller; the placeholder is returned instead.
func (s *Source) Load(ctx context.Context, idx tile.Index) []byte {
	data, err := s.fetch(ctx, idx)
	if err != nil {
		s.logger.Debug("tile load failed, using placeholder", "tile", idx.String(), "error", err)
		return Placeholder
	}
	return data
}

// Warm fetches a tile into the cache. The error is returned so prefetch can count it.
func (s *Source) Warm(ctx context.Context, idx tile.Index) error {
	_, err := s.fetch(ctx, idx)
	return err
}

// URL is where idx is downloaded from.
func (s *Source) URL(idx tile.Index) string {
	return s.fetcher.TileURL(s.dataset, idx)
}

// Cached reports whether a tile is already in memory.
func (s *Source) Cached(idx tile.Index) bool {
	return s.cache.Contains(s.URL(idx))
}

func (s *Source) fetch(ctx context.Context, idx tile.Index) ([]byte, error) {
	key := s.URL(idx)
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}
	data, err := s.fetcher.FetchTile(ctx, s.dataset, idx)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, data)
	return data, nil
}
