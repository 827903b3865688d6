// Package convert maps annotation labels to and from their snapshot rows.
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/embiggen/planetmap/internal/annotation"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/model"
	"gorm.io/datatypes"
)

// LabelToSnapshot converts a label to a row for body. position keeps the
// order the backend returned.
func LabelToSnapshot(body string, position int, l annotation.Label) (model.LabelSnapshot, error) {
	polygon, err := json.Marshal(l.Polygon)
	if err != nil {
		return model.LabelSnapshot{}, fmt.Errorf("encode polygon of label %s: %w", l.ID, err)
	}
	outline, err := geo.RingWKT(l.Polygon)
	if err != nil {
		return model.LabelSnapshot{}, fmt.Errorf("outline of label %s: %w", l.ID, err)
	}
	return model.LabelSnapshot{
		CelestialObject: body,
		LabelID:         l.ID,
		OwnerUserID:     l.OwnerUserID,
		Title:           l.Title,
		Description:     l.Description,
		Color:           l.Color,
		Polygon:         datatypes.JSON(polygon),
		Outline:         outline,
		Position:        position,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}, nil
}

// SnapshotToLabel converts a stored row back to a label.
func SnapshotToLabel(s model.LabelSnapshot) (annotation.Label, error) {
	var polygon []geo.LatLon
	if len(s.Polygon) > 0 {
		if err := json.Unmarshal(s.Polygon, &polygon); err != nil {
			return annotation.Label{}, fmt.Errorf("decode polygon of label %s: %w", s.LabelID, err)
		}
	}
	return annotation.Label{
		ID:              s.LabelID,
		OwnerUserID:     s.OwnerUserID,
		CelestialObject: s.CelestialObject,
		Title:           s.Title,
		Description:     s.Description,
		Polygon:         polygon,
		Color:           s.Color,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}
