// Package sqlitestorage keeps label snapshots in a local SQLite file.
// It wraps the GORM backend and adds an optional periodic backup copy
// made with VACUUM INTO.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/embiggen/planetmap/internal/database"
	gormstorage "github.com/embiggen/planetmap/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	// Path is the database file. Empty keeps the database in memory.
	Path           string
	BackupPath     string
	BackupInterval time.Duration
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New opens the SQLite database.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	db, err := database.GetSqliteDB(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(db, sqlDB.Close, log),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema and starts the backup goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.BackupPath != "" && b.cfg.BackupInterval > 0 {
		b.wg.Add(1)
		go b.backupLoop()
	}

	return nil
}

// Close stops the backup goroutine and closes the database.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()
	return b.Backend.Close()
}

// Backup writes a copy of the database to BackupPath now.
func (b *Backend) Backup() error {
	start := time.Now()
	if err := database.DumpToDisk(b.db, b.cfg.BackupPath); err != nil {
		return err
	}
	b.log.Debug().Dur("duration", time.Since(start)).Str("path", b.cfg.BackupPath).Msg("Backed up snapshot DB")
	return nil
}

func (b *Backend) backupLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.BackupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Backup(); err != nil {
				b.log.Error().Err(err).Msg("Error backing up snapshot DB")
			}
		}
	}
}
