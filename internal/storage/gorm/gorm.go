// Package gormstorage stores label snapshots in any GORM database.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/embiggen/planetmap/internal/annotation"
	"github.com/embiggen/planetmap/internal/database"
	"github.com/embiggen/planetmap/internal/model"
	"github.com/embiggen/planetmap/internal/model/convert"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Backend implements storage.Backend on a *gorm.DB.
type Backend struct {
	db     *gorm.DB
	closer func() error
	log    zerolog.Logger
}

// New wraps db. closer runs on Close and may be nil.
func New(db *gorm.DB, closer func() error, log zerolog.Logger) *Backend {
	return &Backend{db: db, closer: closer, log: log}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init migrates the snapshot tables.
func (b *Backend) Init() error {
	if b.db == nil {
		return errors.New("no database connection")
	}
	return database.Migrate(b.db)
}

// Close releases the connection.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer()
}

// SaveLabels replaces the rows of body in one transaction. Labels whose
// polygon cannot be stored are skipped.
func (b *Backend) SaveLabels(ctx context.Context, body string, labels []annotation.Label) error {
	rows := make([]model.LabelSnapshot, 0, len(labels))
	for i, l := range labels {
		row, err := convert.LabelToSnapshot(body, i, l)
		if err != nil {
			b.log.Warn().Err(err).Str("body", body).Msg("skipping label in snapshot")
			continue
		}
		rows = append(rows, row)
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("celestial_object = ?", body).Delete(&model.LabelSnapshot{}).Error; err != nil {
			return fmt.Errorf("clear snapshot of %s: %w", body, err)
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("write snapshot of %s: %w", body, err)
			}
		}
		info := model.SnapshotInfo{
			CelestialObject: body,
			LabelCount:      len(rows),
			RefreshedAt:     time.Now().UTC(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "celestial_object"}},
			DoUpdates: clause.AssignmentColumns([]string{"label_count", "refreshed_at", "updated_at"}),
		}).Create(&info).Error
	})
}

// LoadLabels returns the snapshot of body in the order it was saved.
func (b *Backend) LoadLabels(ctx context.Context, body string) ([]annotation.Label, error) {
	var rows []model.LabelSnapshot
	err := b.db.WithContext(ctx).
		Where("celestial_object = ?", body).
		Order("position").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("read snapshot of %s: %w", body, err)
	}

	labels := make([]annotation.Label, 0, len(rows))
	for _, row := range rows {
		l, err := convert.SnapshotToLabel(row)
		if err != nil {
			b.log.Warn().Err(err).Str("body", body).Msg("skipping unreadable snapshot row")
			continue
		}
		labels = append(labels, l)
	}
	return labels, nil
}

// RefreshedAt reports when body's snapshot was last written.
func (b *Backend) RefreshedAt(ctx context.Context, body string) (time.Time, bool, error) {
	var info model.SnapshotInfo
	err := b.db.WithContext(ctx).Where("celestial_object = ?", body).First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return info.RefreshedAt, true, nil
}
