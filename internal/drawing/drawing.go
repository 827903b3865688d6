// Package drawing runs the single drawing session of a map: labels and
// questions are drawn, held for confirmation and submitted; measurements
// are drawn and evaluated on the spot.
package drawing

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/embiggen/planetmap/internal/annotation"
	"github.com/embiggen/planetmap/internal/canvas"
	domainerrors "github.com/embiggen/planetmap/internal/errors"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/id"
	"github.com/embiggen/planetmap/internal/influx"
	"github.com/embiggen/planetmap/internal/layers"
	"github.com/embiggen/planetmap/internal/status"
	"github.com/embiggen/planetmap/internal/validation"
)

// Mode is the state of the drawing session.
type Mode string

const (
	ModeNone            Mode = "none"
	ModeDrawingLabel    Mode = "drawing_label"
	ModeDrawingQuestion Mode = "drawing_question"
	ModeMeasuring       Mode = "measuring"
	ModePendingConfirm  Mode = "pending_confirm"
)

var (
	// ErrSessionSuperseded is returned by Confirm when the session was
	// cancelled or replaced while its submission was in flight.
	ErrSessionSuperseded = errors.New("drawing session was cancelled or replaced")
	// ErrSubmissionInFlight is returned by Confirm while an earlier
	// confirmation of the same session is still waiting for the backend.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrNothingToConfirm is returned by Confirm outside PendingConfirm.
	ErrNothingToConfirm = errors.New("no shape is waiting for confirmation")
)

// Persister saves confirmed annotations. Submit sends a draft to the backend;
// Commit makes the result visible and is only called for a session that is
// still current.
type Persister interface {
	SubmitLabel(ctx context.Context, draft annotation.LabelDraft) (annotation.Label, error)
	CommitLabel(ctx context.Context, label annotation.Label)
	SubmitQuestion(ctx context.Context, draft annotation.QuestionDraft) (annotation.ForumPost, error)
	CommitQuestion(post annotation.ForumPost)
}

// Metadata is what the user typed into the confirmation form.
type Metadata struct {
	Title       string
	Description string
	Question    string
}

// Result is the annotation created by a successful Confirm. Exactly one
// field is set.
type Result struct {
	Label    *annotation.Label
	Question *annotation.ForumPost
}

// State is a snapshot of the session.
type State struct {
	Mode Mode
	// Pending is the drawing mode that produced the shape awaiting
	// confirmation, or ModeNone.
	Pending    Mode
	Vertices   []geo.LatLon
	Color      string
	Generation uint64
	Submitting bool
}

// Config configures a Machine.
type Config struct {
	// Body is the display name sent with new annotations, e.g. "Mars".
	Body     string
	RadiusKm float64
	// QuestionsVisible reports whether question layers are currently shown.
	QuestionsVisible func() bool
}

// Machine owns the drawing session. It is safe for concurrent use.
type Machine struct {
	canvas    canvas.Canvas
	store     Persister
	banner    *status.Banner
	telemetry influx.Recorder
	validator *validation.Validator
	logger    *slog.Logger
	cfg       Config

	mu           sync.Mutex
	mode         Mode
	pending      Mode
	vertices     []geo.LatLon
	shapeID      string
	measureID    string
	token        string
	generation   uint64
	submitting   uint64
	color        string
	lastDistance float64
	hasDistance  bool
	listeners    []func(State)
}

// New creates a Machine in ModeNone. telemetry may be nil.
func New(c canvas.Canvas, store Persister, banner *status.Banner, telemetry influx.Recorder, cfg Config, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	if telemetry == nil {
		telemetry = influx.Nop{}
	}
	if cfg.QuestionsVisible == nil {
		cfg.QuestionsVisible = func() bool { return true }
	}
	return &Machine{
		canvas:    c,
		store:     store,
		banner:    banner,
		telemetry: telemetry,
		validator: validation.New(),
		logger:    logger,
		cfg:       cfg,
		mode:      ModeNone,
		pending:   ModeNone,
		color:     annotation.Palette[0],
	}
}

// OnChange registers fn to run after every state change.
func (m *Machine) OnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// State returns the current session snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Machine) snapshot() State {
	return State{
		Mode:       m.mode,
		Pending:    m.pending,
		Vertices:   append([]geo.LatLon(nil), m.vertices...),
		Color:      m.color,
		Generation: m.generation,
		Submitting: m.submitting != 0 && m.submitting == m.generation,
	}
}

func (m *Machine) notify() {
	m.mu.Lock()
	st := m.snapshot()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(st)
	}
}

// Palette returns the selectable colours.
func (m *Machine) Palette() []string {
	return append([]string(nil), annotation.Palette...)
}

// SetColor selects the colour used for the next shape.
func (m *Machine) SetColor(color string) error {
	sel := struct {
		Color string `label:"Colour" validate:"required,hexcolor"`
	}{Color: strings.TrimSpace(color)}
	if err := m.validator.Validate(sel); err != nil {
		return err
	}
	m.mu.Lock()
	m.color = sel.Color
	m.mu.Unlock()
	m.notify()
	return nil
}

// LastDistance returns the most recent measurement in km.
func (m *Machine) LastDistance() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDistance, m.hasDistance
}

// StartLabel begins drawing a label polygon, or cancels if a label is
// already being drawn.
func (m *Machine) StartLabel() { m.start(ModeDrawingLabel) }

// StartQuestion begins drawing a question polygon, or cancels if a
// question is already being drawn.
func (m *Machine) StartQuestion() { m.start(ModeDrawingQuestion) }

// StartMeasure begins drawing a measurement polyline, or cancels if a
// measurement is already being drawn.
func (m *Machine) StartMeasure() { m.start(ModeMeasuring) }

func (m *Machine) start(mode Mode) {
	m.mu.Lock()
	if m.mode == mode {
		m.cancelLocked()
		m.mu.Unlock()
		m.notify()
		return
	}

	m.cancelLocked()
	m.mode = mode
	gen := m.generation

	tool := canvas.ToolPolygon
	var style canvas.Style
	switch mode {
	case ModeDrawingLabel:
		style = canvas.Style{Color: m.color, Weight: 3, Opacity: 1, FillOpacity: 0.2, DashArray: "10,10"}
	case ModeDrawingQuestion:
		style = canvas.Style{Color: m.color, Weight: 3, Opacity: 1, FillOpacity: 0.3}
	case ModeMeasuring:
		tool = canvas.ToolPolyline
		style = layers.MeasureStyle()
	}
	m.canvas.EnableDraw(tool, style, func(layerID string, points []geo.LatLon) {
		m.shapeCompleted(gen, mode, layerID, points)
	})
	m.mu.Unlock()

	m.logger.Debug("drawing started", "mode", mode, "generation", gen)
	m.notify()
}

// Cancel ends the session from any state: the draw tool is disarmed, the
// drawn or pending shape and the last measurement line are removed, and any
// in-flight confirmation is orphaned.
func (m *Machine) Cancel() {
	m.mu.Lock()
	m.cancelLocked()
	m.mu.Unlock()
	m.notify()
}

func (m *Machine) cancelLocked() {
	m.canvas.DisableDraw()
	if m.shapeID != "" {
		m.canvas.Remove(m.shapeID)
	}
	if m.measureID != "" {
		m.canvas.Remove(m.measureID)
	}
	m.mode = ModeNone
	m.pending = ModeNone
	m.vertices = nil
	m.shapeID = ""
	m.measureID = ""
	m.token = ""
	m.generation++
}

func (m *Machine) shapeCompleted(gen uint64, mode Mode, layerID string, points []geo.LatLon) {
	m.mu.Lock()
	if gen != m.generation || m.mode != mode {
		m.canvas.Remove(layerID)
		m.mu.Unlock()
		m.logger.Debug("discarding shape from stale session", "generation", gen)
		return
	}

	if mode == ModeMeasuring {
		m.measured(layerID, points)
		return
	}

	m.mode = ModePendingConfirm
	m.pending = mode
	m.vertices = append([]geo.LatLon(nil), points...)
	m.shapeID = layerID
	m.token = id.IdempotencyKey()
	m.mu.Unlock()

	m.notify()
}

// measured is called with m.mu held and releases it.
func (m *Machine) measured(layerID string, points []geo.LatLon) {
	km, err := geo.Distance(points, m.cfg.RadiusKm)
	if err != nil {
		m.canvas.Remove(layerID)
		m.mode = ModeNone
		m.mu.Unlock()
		m.banner.Report(domainerrors.Validation("A measurement needs at least 2 points").WithCause(err))
		m.notify()
		return
	}

	m.canvas.Upsert(canvas.Layer{
		ID:     layerID,
		Group:  canvas.GroupMeasure,
		Kind:   canvas.KindPolyline,
		Points: append([]geo.LatLon(nil), points...),
		Style:  layers.MeasureStyle(),
		Popup:  &canvas.Popup{HTML: layers.DistancePopup(km), Open: true},
	})
	m.measureID = layerID
	m.mode = ModeNone
	m.lastDistance = km
	m.hasDistance = true
	m.mu.Unlock()

	if err := m.telemetry.Record(context.Background(), influx.MeasurementDistance,
		map[string]string{"body": m.cfg.Body},
		map[string]any{"km": km, "vertices": len(points)},
	); err != nil {
		m.logger.Debug("distance telemetry not recorded", "error", err)
	}
	m.logger.Info("distance measured", "km", km, "vertices", len(points))
	m.notify()
}

// Confirm submits the pending shape with the entered metadata. Invalid
// metadata and failed submissions leave the session in PendingConfirm so
// the user can correct or retry; retries reuse the same idempotency key.
func (m *Machine) Confirm(ctx context.Context, md Metadata) (Result, error) {
	m.mu.Lock()
	if m.mode != ModePendingConfirm {
		m.mu.Unlock()
		return Result{}, ErrNothingToConfirm
	}
	if m.submitting == m.generation {
		m.mu.Unlock()
		return Result{}, ErrSubmissionInFlight
	}

	gen := m.generation
	kind := m.pending
	shapeID := m.shapeID

	var labelDraft annotation.LabelDraft
	var questionDraft annotation.QuestionDraft
	var draft any
	if kind == ModeDrawingLabel {
		labelDraft = annotation.LabelDraft{
			Body:           m.cfg.Body,
			Title:          strings.TrimSpace(md.Title),
			Description:    strings.TrimSpace(md.Description),
			Polygon:        append([]geo.LatLon(nil), m.vertices...),
			Color:          m.color,
			IdempotencyKey: m.token,
		}
		draft = labelDraft
	} else {
		questionDraft = annotation.QuestionDraft{
			Body:           m.cfg.Body,
			Text:           strings.TrimSpace(md.Question),
			Polygon:        append([]geo.LatLon(nil), m.vertices...),
			Color:          m.color,
			IdempotencyKey: m.token,
		}
		draft = questionDraft
	}

	if err := m.validator.Validate(draft); err != nil {
		m.mu.Unlock()
		m.banner.Report(err)
		return Result{}, err
	}
	m.submitting = gen
	m.mu.Unlock()
	m.notify()

	var res Result
	var err error
	if kind == ModeDrawingLabel {
		var label annotation.Label
		if label, err = m.store.SubmitLabel(ctx, labelDraft); err == nil {
			res.Label = &label
		}
	} else {
		var post annotation.ForumPost
		if post, err = m.store.SubmitQuestion(ctx, questionDraft); err == nil {
			res.Question = &post
		}
	}

	m.mu.Lock()
	if m.submitting == gen {
		m.submitting = 0
	}
	if gen != m.generation {
		m.mu.Unlock()
		m.logger.Debug("discarding result of superseded submission", "generation", gen, "error", err)
		return Result{}, ErrSessionSuperseded
	}
	if err != nil {
		m.mu.Unlock()
		m.reportFailure(kind, err)
		m.notify()
		return Result{}, err
	}

	m.canvas.Remove(shapeID)
	message := "Label added!"
	if res.Label != nil {
		for _, l := range layers.LabelLayers([]annotation.Label{*res.Label}) {
			m.canvas.Upsert(l)
		}
	} else {
		for _, l := range layers.QuestionLayers([]annotation.ForumPost{*res.Question}, m.cfg.QuestionsVisible()) {
			m.canvas.Upsert(l)
		}
		message = "Question posted!"
	}
	m.mode = ModeNone
	m.pending = ModeNone
	m.vertices = nil
	m.shapeID = ""
	m.token = ""
	m.generation++
	m.mu.Unlock()

	if res.Label != nil {
		m.store.CommitLabel(ctx, *res.Label)
	} else {
		m.store.CommitQuestion(*res.Question)
	}
	m.banner.Info(message)
	m.notify()
	return res, nil
}

func (m *Machine) reportFailure(kind Mode, err error) {
	if code, ok := domainerrors.CodeOf(err); ok && code == domainerrors.CodeNetwork {
		if kind == ModeDrawingLabel {
			m.banner.Error("Failed to save label")
		} else {
			m.banner.Error("Failed to post question")
		}
		m.logger.Warn("submission failed", "mode", kind, "error", err)
		return
	}
	m.banner.Report(err)
}
