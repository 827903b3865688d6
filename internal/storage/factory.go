package storage

import (
	"fmt"

	"github.com/embiggen/planetmap/internal/config"
	"github.com/embiggen/planetmap/internal/database"
	gormstorage "github.com/embiggen/planetmap/internal/storage/gorm"
	"github.com/embiggen/planetmap/internal/storage/memory"
	sqlitestorage "github.com/embiggen/planetmap/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		m := database.NewManager(cfg.SQLite.Path, log)
		if err := m.Connect(); err != nil {
			return nil, err
		}
		return gormstorage.New(m.DB, m.Close, log), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			Path:           cfg.SQLite.Path,
			BackupPath:     cfg.SQLite.BackupPath,
			BackupInterval: cfg.SQLite.BackupInterval,
		}, log)
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
