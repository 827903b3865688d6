package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SnapshotInfo{},
	&LabelSnapshot{},
}

// SnapshotInfo records when a body's label list was last refreshed.
type SnapshotInfo struct {
	gorm.Model
	CelestialObject string    `json:"celestialObject" gorm:"size:64;uniqueIndex"`
	LabelCount      int       `json:"labelCount"`
	RefreshedAt     time.Time `json:"refreshedAt"`
}

func (*SnapshotInfo) TableName() string {
	return "snapshot_infos"
}

// LabelSnapshot is one label as last seen from the backend.
type LabelSnapshot struct {
	ID              uint   `json:"-" gorm:"primarykey;autoIncrement"`
	CelestialObject string `json:"celestialObject" gorm:"size:64;index:idx_snapshot_body"`
	LabelID         string `json:"labelId" gorm:"size:64;index:idx_snapshot_body"`
	OwnerUserID     int64  `json:"ownerUserId"`
	Title           string `json:"title" gorm:"size:200"`
	Description     string `json:"description" gorm:"size:2000"`
	Color           string `json:"color" gorm:"size:16"`
	// Polygon is the vertex list as JSON [{lat, lon}, ...].
	Polygon datatypes.JSON `json:"polygon"`
	// Outline is the closed ring as WKT with lon as X.
	Outline   string    `json:"outline" gorm:"type:text"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (*LabelSnapshot) TableName() string {
	return "label_snapshots"
}
