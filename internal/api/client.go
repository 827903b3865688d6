// Package api is the HTTP client for the annotation backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/embiggen/planetmap/internal/errors"
	"github.com/embiggen/planetmap/internal/tile"
	"golang.org/x/time/rate"
)

// IdempotencyHeader carries the submission token of a create request.
const IdempotencyHeader = "Idempotency-Key"

// Client handles communication with the annotation backend.
type Client struct {
	baseURL    string
	tilesURL   string
	httpClient *http.Client
	analysis   *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithTilesURL serves tiles from a different origin than the API.
func WithTilesURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.tilesURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAnalysisInterval spaces AI analysis requests at least d apart.
func WithAnalysisInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.analysis = rate.NewLimiter(rate.Every(d), 1)
		} else {
			c.analysis = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		analysis:   rate.NewLimiter(rate.Inf, 1),
	}
	c.tilesURL = c.baseURL
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TilesURL returns the tile origin.
func (c *Client) TilesURL() string {
	return c.tilesURL
}

// ListLabels returns the labels a user owns on a body.
func (c *Client) ListLabels(ctx context.Context, userID int64, body string) ([]LabelRecord, error) {
	endpoint := fmt.Sprintf("%s/labels/get-labels/user_id/%d?celestial_object=%s",
		c.baseURL, userID, url.QueryEscape(body))

	var out struct {
		Labels []LabelRecord `json:"labels"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &out, "list labels"); err != nil {
		return nil, err
	}
	return out.Labels, nil
}

// CreateLabel persists a label. The backend may answer with the stored
// record, with {"label": record}, or with no usable body; in the last case
// the returned record is nil.
func (c *Client) CreateLabel(ctx context.Context, req CreateLabelRequest, idempotencyKey string) (*LabelRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/labels/add-labels", req, idempotencyKey, &raw, "create label"); err != nil {
		return nil, err
	}
	return decodeLabelResponse(raw), nil
}

func decodeLabelResponse(raw json.RawMessage) *LabelRecord {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var wrapped struct {
		Label *LabelRecord `json:"label"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Label != nil && wrapped.Label.ID != "" {
		return wrapped.Label
	}
	var rec LabelRecord
	if err := json.Unmarshal(raw, &rec); err == nil && rec.ID != "" {
		return &rec
	}
	return nil
}

// CreatePost opens a forum thread anchored at a coordinate.
func (c *Client) CreatePost(ctx context.Context, req CreatePostRequest, idempotencyKey string) (*PostRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/forum/create-post", req, idempotencyKey, &raw, "create post"); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var wrapped struct {
		Post *PostRecord `json:"post"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Post != nil && wrapped.Post.ID != "" {
		return wrapped.Post, nil
	}
	var rec PostRecord
	if err := json.Unmarshal(raw, &rec); err == nil && rec.ID != "" {
		return &rec, nil
	}
	return nil, nil
}

// GetThread returns a post with its comments.
func (c *Client) GetThread(ctx context.Context, postID ID) (*ThreadResponse, error) {
	endpoint := fmt.Sprintf("%s/get-forum-thread?post_id=%s", c.baseURL, url.QueryEscape(string(postID)))

	var out ThreadResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, "", &out, "get thread"); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddComment appends a comment to a thread. The stored comment is returned
// when the backend sends one back.
func (c *Client) AddComment(ctx context.Context, req AddCommentRequest) (*CommentRecord, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/forum/add-comment", req, "", &raw, "add comment"); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var wrapped struct {
		Comment *CommentRecord `json:"comment"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Comment != nil && wrapped.Comment.ID != "" {
		return wrapped.Comment, nil
	}
	var rec CommentRecord
	if err := json.Unmarshal(raw, &rec); err == nil && rec.ID != "" {
		return &rec, nil
	}
	return nil, nil
}

// AnalyzeTile asks the backend to describe one tile. Requests are spaced
// by the analysis limiter.
func (c *Client) AnalyzeTile(ctx context.Context, req AnalyzeRequest) (string, error) {
	if err := c.analysis.Wait(ctx); err != nil {
		return "", errors.Network("analysis throttled", err)
	}
	var out struct {
		Analysis string `json:"analysis"`
	}
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/ai/analyze-tile", req, "", &out, "analyze tile"); err != nil {
		return "", err
	}
	return out.Analysis, nil
}

// TileURL returns the image URL of a tile.
func (c *Client) TileURL(dataset string, idx tile.Index) string {
	return tile.URL(c.tilesURL, dataset, idx)
}

// FetchTile downloads one tile image. Failures are TileLoadErrors.
func (c *Client) FetchTile(ctx context.Context, dataset string, idx tile.Index) ([]byte, error) {
	u := c.TileURL(dataset, idx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.TileLoad(u, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.TileLoad(u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.TileLoad(u, fmt.Errorf("status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.TileLoad(u, err)
	}
	return data, nil
}

// do sends a JSON request and decodes a JSON response into out.
// Transport failures and non-2xx answers become NetworkErrors.
func (c *Client) do(ctx context.Context, method, endpoint string, body any, idempotencyKey string, out any, op string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Network(op+" request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Networkf("%s returned status %d", op, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Network(op+" response read failed", err)
	}

	if raw, ok := out.(*json.RawMessage); ok {
		*raw = data
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.Networkf("%s returned an empty body", op)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Network(op+" response malformed", err)
	}
	return nil
}
