package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a backend identifier. The backend sends ids as numbers or strings;
// numeric ids are sent back as numbers.
type ID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes integer ids as numbers.
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// LabelRecord is a label as stored by the backend.
type LabelRecord struct {
	ID              ID        `json:"id"`
	UserID          ID        `json:"user_id"`
	CelestialObject string    `json:"celestialObject"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Coordinates     []float64 `json:"coordinates"`
	CreatedAt       string    `json:"created_at,omitempty"`
	UpdatedAt       string    `json:"updated_at,omitempty"`
}

// CreateLabelRequest is the body of POST /labels/add-labels.
// Coordinates are flattened lat,lon pairs.
type CreateLabelRequest struct {
	UserID          int64     `json:"user_id"`
	CelestialObject string    `json:"celestialObject"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Coordinates     []float64 `json:"coordinates"`
}

// CreatePostRequest is the body of POST /forum/create-post.
// Coordinates are [lon, lat].
type CreatePostRequest struct {
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Topic       string     `json:"topic"`
	Content     string     `json:"content"`
	Coordinates [2]float64 `json:"coordinates"`
}

// PostRecord is a forum post as stored by the backend.
type PostRecord struct {
	ID          ID        `json:"id"`
	UserID      ID        `json:"user_id"`
	Title       string    `json:"title"`
	Topic       string    `json:"topic"`
	Content     string    `json:"content"`
	Coordinates []float64 `json:"coordinates"`
	CreatedAt   string    `json:"created_at,omitempty"`
}

// CommentRecord is a forum comment as stored by the backend.
type CommentRecord struct {
	ID        ID     `json:"id"`
	PostID    ID     `json:"post_id"`
	UserID    ID     `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}

// AddCommentRequest is the body of POST /forum/add-comment.
type AddCommentRequest struct {
	PostID  ID     `json:"post_id"`
	UserID  int64  `json:"user_id"`
	Content string `json:"content"`
}

// ThreadResponse is the body of GET /get-forum-thread.
type ThreadResponse struct {
	Post     PostRecord      `json:"post"`
	Comments []CommentRecord `json:"comments"`
}

// AnalyzeRequest is the body of POST /api/ai/analyze-tile.
type AnalyzeRequest struct {
	Dataset  string `json:"dataset"`
	Z        int    `json:"z"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Question string `json:"question"`
}
