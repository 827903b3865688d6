// Package annotation keeps the labels, questions and comments of the loaded
// bodies and synchronizes them with the backend.
package annotation

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/embiggen/planetmap/internal/api"
	"github.com/embiggen/planetmap/internal/cache"
	"github.com/embiggen/planetmap/internal/errors"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/id"
	"github.com/embiggen/planetmap/internal/session"
	"github.com/embiggen/planetmap/internal/validation"
)

// Remote is the annotation backend.
type Remote interface {
	ListLabels(ctx context.Context, userID int64, body string) ([]api.LabelRecord, error)
	CreateLabel(ctx context.Context, req api.CreateLabelRequest, idempotencyKey string) (*api.LabelRecord, error)
	CreatePost(ctx context.Context, req api.CreatePostRequest, idempotencyKey string) (*api.PostRecord, error)
	GetThread(ctx context.Context, postID api.ID) (*api.ThreadResponse, error)
	AddComment(ctx context.Context, req api.AddCommentRequest) (*api.CommentRecord, error)
}

// Snapshots persists the last label list seen for each body so the map can
// still show labels when the backend is unreachable.
type Snapshots interface {
	SaveLabels(ctx context.Context, body string, labels []Label) error
	LoadLabels(ctx context.Context, body string) ([]Label, error)
}

// ChangeKind says which collection changed.
type ChangeKind string

const (
	ChangeLabels    ChangeKind = "labels"
	ChangeQuestions ChangeKind = "questions"
	ChangeComments  ChangeKind = "comments"
)

// Change is sent to subscribers after a collection changed. Key is the body
// for labels and questions and the post id for comments.
type Change struct {
	Kind ChangeKind
	Key  string
}

// Store owns the annotation caches.
type Store struct {
	remote    Remote
	owners    *session.Owners
	snapshots Snapshots
	validator *validation.Validator
	logger    *slog.Logger

	labels    *cache.Collection[Label]
	questions *cache.Collection[ForumPost]
	comments  *cache.Collection[Comment]

	mu          sync.RWMutex
	posts       map[string]ForumPost
	subscribers []func(Change)
}

// NewStore creates a Store. snapshots may be nil.
func NewStore(remote Remote, owners *session.Owners, snapshots Snapshots, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		remote:    remote,
		owners:    owners,
		snapshots: snapshots,
		validator: validation.New(),
		logger:    logger,
		labels:    cache.NewCollection[Label](),
		questions: cache.NewCollection[ForumPost](),
		comments:  cache.NewCollection[Comment](),
		posts:     make(map[string]ForumPost),
	}
}

// Subscribe registers fn to run after every change. Subscribers run
// synchronously in registration order.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	subs := slices.Clone(s.subscribers)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(c)
	}
}

// Labels returns the cached labels of a body.
func (s *Store) Labels(body string) []Label {
	list, _ := s.labels.Get(body)
	return list
}

// Questions returns the questions created on a body in this session.
func (s *Store) Questions(body string) []ForumPost {
	list, _ := s.questions.Get(body)
	return list
}

// Thread returns a cached post and its comments.
func (s *Store) Thread(postID string) (Thread, bool) {
	s.mu.RLock()
	post, ok := s.posts[postID]
	s.mu.RUnlock()
	if !ok {
		return Thread{}, false
	}
	comments, _ := s.comments.Get(postID)
	return Thread{Post: post, Comments: comments}, true
}

// LoadLabels replaces the cached labels of body with the backend's list.
// Polygons with fewer than three vertices are dropped. When the backend is
// unreachable the last snapshot is served and the NetworkError is returned
// alongside it.
func (s *Store) LoadLabels(ctx context.Context, body string) ([]Label, error) {
	owner, err := s.owners.LabelOwner()
	if err != nil {
		return nil, err
	}

	records, err := s.remote.ListLabels(ctx, owner, body)
	if err != nil {
		return s.restoreSnapshot(ctx, body), err
	}

	colors := make(map[string]string)
	for _, l := range s.Labels(body) {
		colors[l.ID] = l.Color
	}

	labels := make([]Label, 0, len(records))
	for _, rec := range records {
		label, err := labelFromRecord(rec)
		if err != nil {
			s.logger.Debug("dropping label with unreadable coordinates", "id", rec.ID, "error", err)
			continue
		}
		if len(label.Polygon) < 3 {
			s.logger.Debug("dropping degenerate label", "id", label.ID, "vertices", len(label.Polygon))
			continue
		}
		if c, ok := colors[label.ID]; ok && c != "" {
			label.Color = c
		}
		if label.CelestialObject == "" {
			label.CelestialObject = body
		}
		labels = append(labels, label)
	}

	s.labels.Set(body, labels)
	s.saveSnapshot(ctx, body)
	s.notify(Change{Kind: ChangeLabels, Key: body})
	return labels, nil
}

func (s *Store) restoreSnapshot(ctx context.Context, body string) []Label {
	if s.snapshots == nil {
		return s.Labels(body)
	}
	snap, err := s.snapshots.LoadLabels(ctx, body)
	if err != nil {
		s.logger.Warn("label snapshot unavailable", "error", err)
		return s.Labels(body)
	}
	if len(snap) == 0 {
		return s.Labels(body)
	}
	s.labels.Set(body, snap)
	s.notify(Change{Kind: ChangeLabels, Key: body})
	s.logger.Info("serving labels from snapshot", "count", len(snap))
	return snap
}

func (s *Store) saveSnapshot(ctx context.Context, body string) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.SaveLabels(ctx, body, s.Labels(body)); err != nil {
		s.logger.Warn("failed to save label snapshot", "error", err)
	}
}

// CreateLabel submits a label and caches it on success.
func (s *Store) CreateLabel(ctx context.Context, draft LabelDraft) (Label, error) {
	label, err := s.SubmitLabel(ctx, draft)
	if err != nil {
		return Label{}, err
	}
	s.CommitLabel(ctx, label)
	return label, nil
}

// SubmitLabel validates and sends a label to the backend without touching the
// cache. The returned label carries the backend's id when the backend reports
// one, the id found by re-listing otherwise, or a locally generated id as a
// last resort.
func (s *Store) SubmitLabel(ctx context.Context, draft LabelDraft) (Label, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Description = strings.TrimSpace(draft.Description)
	if err := s.validate(draft, draft.Polygon); err != nil {
		return Label{}, err
	}
	owner, err := s.owners.LabelOwner()
	if err != nil {
		return Label{}, err
	}

	key := draft.IdempotencyKey
	if key == "" {
		key = id.IdempotencyKey()
	}
	color := draft.Color
	if color == "" {
		color = DefaultLabelColor
	}

	flat := geo.Flatten(draft.Polygon)
	rec, err := s.remote.CreateLabel(ctx, api.CreateLabelRequest{
		UserID:          owner,
		CelestialObject: draft.Body,
		Title:           draft.Title,
		Description:     draft.Description,
		Coordinates:     flat,
	}, key)
	if err != nil {
		return Label{}, err
	}

	now := time.Now().UTC()
	label := Label{
		OwnerUserID:     owner,
		CelestialObject: draft.Body,
		Title:           draft.Title,
		Description:     draft.Description,
		Polygon:         append([]geo.LatLon(nil), draft.Polygon...),
		Color:           color,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if rec != nil && rec.ID != "" {
		label.ID = string(rec.ID)
		if t := parseTime(rec.CreatedAt); !t.IsZero() {
			label.CreatedAt = t
		}
	} else {
		label.ID = s.findCreated(ctx, owner, draft.Body, draft.Title, flat)
	}
	if label.ID == "" {
		local, err := id.Generate("local")
		if err != nil {
			return Label{}, err
		}
		label.ID = local
	}

	return label, nil
}

// CommitLabel adds a submitted label to the cache and the snapshot.
func (s *Store) CommitLabel(ctx context.Context, label Label) {
	body := label.CelestialObject
	s.labels.Append(body, label)
	s.saveSnapshot(ctx, body)
	s.notify(Change{Kind: ChangeLabels, Key: body})
	s.logger.Info("label created", "id", label.ID, "vertices", len(label.Polygon))
}

// findCreated re-lists the owner's labels and returns the id of the newest
// one matching title and coordinates.
func (s *Store) findCreated(ctx context.Context, owner int64, body, title string, flat []float64) string {
	records, err := s.remote.ListLabels(ctx, owner, body)
	if err != nil {
		s.logger.Debug("could not re-list labels after create", "error", err)
		return ""
	}
	known := make(map[string]bool)
	for _, l := range s.Labels(body) {
		known[l.ID] = true
	}
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.ID == "" || known[string(rec.ID)] || rec.Title != title {
			continue
		}
		if sameCoordinates(rec.Coordinates, flat) {
			return string(rec.ID)
		}
	}
	return ""
}

func sameCoordinates(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

// CreateQuestion submits a question and caches it on success.
func (s *Store) CreateQuestion(ctx context.Context, draft QuestionDraft) (ForumPost, error) {
	post, err := s.SubmitQuestion(ctx, draft)
	if err != nil {
		return ForumPost{}, err
	}
	s.CommitQuestion(post)
	return post, nil
}

// SubmitQuestion sends a question pinned to the centroid of the drawn region
// without touching the cache. A signed-in user is required; nothing is sent
// otherwise.
func (s *Store) SubmitQuestion(ctx context.Context, draft QuestionDraft) (ForumPost, error) {
	draft.Text = strings.TrimSpace(draft.Text)
	if err := s.validate(draft, draft.Polygon); err != nil {
		return ForumPost{}, err
	}
	owner, err := s.owners.Require()
	if err != nil {
		return ForumPost{}, err
	}
	centroid, err := geo.Centroid(draft.Polygon)
	if err != nil {
		return ForumPost{}, errors.Validation("Invalid coordinates").WithCause(err)
	}

	key := draft.IdempotencyKey
	if key == "" {
		key = id.IdempotencyKey()
	}
	rec, err := s.remote.CreatePost(ctx, api.CreatePostRequest{
		UserID:      owner,
		Title:       draft.Text,
		Topic:       draft.Body,
		Content:     draft.Text,
		Coordinates: [2]float64{centroid.Lon, centroid.Lat},
	}, key)
	if err != nil {
		return ForumPost{}, err
	}

	post := ForumPost{
		OwnerUserID: owner,
		Topic:       draft.Body,
		Title:       draft.Text,
		Content:     draft.Text,
		Coordinate:  centroid,
		Polygon:     append([]geo.LatLon(nil), draft.Polygon...),
		Color:       draft.Color,
		CreatedAt:   time.Now().UTC(),
	}
	if rec != nil && rec.ID != "" {
		post.ID = string(rec.ID)
		if t := parseTime(rec.CreatedAt); !t.IsZero() {
			post.CreatedAt = t
		}
	} else {
		local, err := id.Generate("local")
		if err != nil {
			return ForumPost{}, err
		}
		post.ID = local
	}

	return post, nil
}

// CommitQuestion adds a submitted question to the cache.
func (s *Store) CommitQuestion(post ForumPost) {
	s.mu.Lock()
	s.posts[post.ID] = post
	s.mu.Unlock()
	s.questions.Append(post.Topic, post)
	s.notify(Change{Kind: ChangeQuestions, Key: post.Topic})
	s.logger.Info("question created", "id", post.ID)
}

// LoadThread fetches a post and its comments. Comments still awaiting
// acknowledgement are kept after the server's list.
func (s *Store) LoadThread(ctx context.Context, postID string) (Thread, error) {
	resp, err := s.remote.GetThread(ctx, api.ID(postID))
	if err != nil {
		return Thread{}, err
	}

	post := postFromRecord(resp.Post)
	if post.ID == "" {
		post.ID = postID
	}
	s.mu.Lock()
	if known, ok := s.posts[post.ID]; ok {
		post.Polygon, post.Color = known.Polygon, known.Color
	}
	s.posts[post.ID] = post
	s.mu.Unlock()

	comments := make([]Comment, 0, len(resp.Comments))
	for _, rec := range resp.Comments {
		c := commentFromRecord(rec)
		if c.PostID == "" {
			c.PostID = post.ID
		}
		comments = append(comments, c)
	}
	if cached, ok := s.comments.Get(post.ID); ok {
		for _, c := range cached {
			if c.Pending && !acknowledged(comments, c) {
				comments = append(comments, c)
			}
		}
	}
	s.comments.Set(post.ID, comments)
	s.notify(Change{Kind: ChangeComments, Key: post.ID})

	return Thread{Post: post, Comments: comments}, nil
}

// acknowledged reports whether the server list already holds a pending
// comment, matched by owner and content.
func acknowledged(server []Comment, pending Comment) bool {
	return slices.ContainsFunc(server, func(c Comment) bool {
		return c.OwnerUserID == pending.OwnerUserID && c.Content == pending.Content
	})
}

// AddComment appends the comment optimistically, then submits it. The
// optimistic entry is replaced by the acknowledged comment, or removed if
// the submission fails.
func (s *Store) AddComment(ctx context.Context, postID, content string) (Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, errors.Validation("Comment required")
	}
	owner, err := s.owners.Require()
	if err != nil {
		return Comment{}, err
	}
	pendingID, err := id.Generate("pending")
	if err != nil {
		return Comment{}, err
	}

	pending := Comment{
		ID:          pendingID,
		PostID:      postID,
		OwnerUserID: owner,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
		Pending:     true,
	}
	s.comments.Append(postID, pending)
	s.notify(Change{Kind: ChangeComments, Key: postID})

	isPending := func(c Comment) bool { return c.ID == pendingID }

	rec, err := s.remote.AddComment(ctx, api.AddCommentRequest{
		PostID:  api.ID(postID),
		UserID:  owner,
		Content: content,
	})
	if err != nil {
		s.comments.RemoveFunc(postID, isPending)
		s.notify(Change{Kind: ChangeComments, Key: postID})
		return Comment{}, err
	}

	confirmed := pending
	confirmed.Pending = false
	if rec != nil && rec.ID != "" {
		confirmed.ID = string(rec.ID)
		if t := parseTime(rec.CreatedAt); !t.IsZero() {
			confirmed.CreatedAt = t
		}
	}
	cached, _ := s.comments.Get(postID)
	if slices.ContainsFunc(cached, func(c Comment) bool { return c.ID == confirmed.ID }) {
		s.comments.RemoveFunc(postID, isPending)
	} else {
		s.comments.Update(postID, isPending, func(Comment) Comment { return confirmed })
	}
	s.notify(Change{Kind: ChangeComments, Key: postID})
	return confirmed, nil
}

func (s *Store) validate(draft any, poly []geo.LatLon) error {
	if err := s.validator.Validate(draft); err != nil {
		return err
	}
	for _, p := range poly {
		if !p.Valid() {
			return errors.Validation("Invalid coordinates")
		}
	}
	return nil
}
