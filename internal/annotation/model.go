package annotation

import (
	"strconv"
	"strings"
	"time"

	"github.com/embiggen/planetmap/internal/api"
	"github.com/embiggen/planetmap/internal/geo"
)

// DefaultLabelColor is used for labels loaded from the backend, which does
// not store colours.
const DefaultLabelColor = "#ff6b6b"

// Palette is the set of colours offered for new annotations.
var Palette = []string{"#ff6b6b", "#4ecdc4", "#45b7d1", "#f9ca24", "#6c5ce7", "#fd79a8"}

// Label is a titled polygon owned by a user on one body.
type Label struct {
	ID              string       `json:"id"`
	OwnerUserID     int64        `json:"ownerUserId"`
	CelestialObject string       `json:"celestialObject"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Polygon         []geo.LatLon `json:"polygon"`
	Color           string       `json:"color"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// ForumPost is a question pinned to the centroid of a drawn region.
type ForumPost struct {
	ID          string     `json:"id"`
	OwnerUserID int64      `json:"ownerUserId"`
	Topic       string     `json:"topic"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Coordinate  geo.LatLon `json:"coordinate"`
	// Polygon and Color exist only for questions drawn in this session.
	Polygon   []geo.LatLon `json:"polygon,omitempty"`
	Color     string       `json:"color,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Comment is a reply to a ForumPost.
type Comment struct {
	ID          string    `json:"id"`
	PostID      string    `json:"postId"`
	OwnerUserID int64     `json:"ownerUserId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	// Pending is set while the comment has not been acknowledged by the backend.
	Pending bool `json:"pending,omitempty"`
}

// Thread is a post and its comments.
type Thread struct {
	Post     ForumPost
	Comments []Comment
}

// LabelDraft is the metadata entered for a new label.
type LabelDraft struct {
	Body        string       `label:"Body" validate:"required"`
	Title       string       `label:"Title" validate:"required,max=200"`
	Description string       `label:"Description" validate:"max=2000"`
	Polygon     []geo.LatLon `label:"A label" validate:"min=3"`
	Color       string       `label:"Colour" validate:"omitempty,hexcolor"`
	// IdempotencyKey is reused when the same submission is retried.
	IdempotencyKey string `validate:"-"`
}

// QuestionDraft is the metadata entered for a new question.
type QuestionDraft struct {
	Body           string       `label:"Body" validate:"required"`
	Text           string       `label:"Question" validate:"required,max=2000"`
	Polygon        []geo.LatLon `label:"A question" validate:"min=3"`
	Color          string       `label:"Colour" validate:"omitempty,hexcolor"`
	IdempotencyKey string       `validate:"-"`
}

func labelFromRecord(rec api.LabelRecord) (Label, error) {
	poly, err := geo.Unflatten(rec.Coordinates)
	if err != nil {
		return Label{}, err
	}
	return Label{
		ID:              string(rec.ID),
		OwnerUserID:     parseUserID(rec.UserID),
		CelestialObject: rec.CelestialObject,
		Title:           rec.Title,
		Description:     rec.Description,
		Polygon:         poly,
		Color:           DefaultLabelColor,
		CreatedAt:       parseTime(rec.CreatedAt),
		UpdatedAt:       parseTime(rec.UpdatedAt),
	}, nil
}

// postFromRecord reads a post. Post coordinates are [lon, lat].
func postFromRecord(rec api.PostRecord) ForumPost {
	post := ForumPost{
		ID:          string(rec.ID),
		OwnerUserID: parseUserID(rec.UserID),
		Topic:       rec.Topic,
		Title:       rec.Title,
		Content:     rec.Content,
		CreatedAt:   parseTime(rec.CreatedAt),
	}
	if len(rec.Coordinates) == 2 {
		post.Coordinate = geo.LatLon{Lat: rec.Coordinates[1], Lon: rec.Coordinates[0]}
	}
	return post
}

func commentFromRecord(rec api.CommentRecord) Comment {
	return Comment{
		ID:          string(rec.ID),
		PostID:      string(rec.PostID),
		OwnerUserID: parseUserID(rec.UserID),
		Content:     rec.Content,
		CreatedAt:   parseTime(rec.CreatedAt),
	}
}

func parseUserID(id api.ID) int64 {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// parseTime accepts the timestamp formats the backend is known to emit.
// Unparseable values yield the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
