// Package app mounts the map engine for one celestial body. The routing
// layer creates one Explorer per body it shows.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/embiggen/planetmap/internal/analysis"
	"github.com/embiggen/planetmap/internal/annotation"
	"github.com/embiggen/planetmap/internal/api"
	"github.com/embiggen/planetmap/internal/cache"
	"github.com/embiggen/planetmap/internal/canvas"
	"github.com/embiggen/planetmap/internal/config"
	"github.com/embiggen/planetmap/internal/dispatcher"
	"github.com/embiggen/planetmap/internal/drawing"
	"github.com/embiggen/planetmap/internal/geo"
	"github.com/embiggen/planetmap/internal/influx"
	"github.com/embiggen/planetmap/internal/layers"
	"github.com/embiggen/planetmap/internal/logging"
	"github.com/embiggen/planetmap/internal/navigate"
	"github.com/embiggen/planetmap/internal/prefetch"
	"github.com/embiggen/planetmap/internal/session"
	"github.com/embiggen/planetmap/internal/status"
	"github.com/embiggen/planetmap/internal/tile"
	"github.com/embiggen/planetmap/internal/tiles"
	"github.com/embiggen/planetmap/internal/viewport"
)

// Config selects the body and map behaviour.
type Config struct {
	Body       config.BodyConfig
	Map        config.MapConfig
	Navigation config.NavigationConfig
}

// Deps are the collaborators shared by every mounted body.
type Deps struct {
	Canvas    canvas.Canvas
	Client    *api.Client
	Tiles     *cache.Tiles
	Owners    *session.Owners
	Snapshots annotation.Snapshots
	Banner    *status.Banner
	// Telemetry may be nil.
	Telemetry influx.Recorder
	Logger    *slog.Logger
	// ActionLog receives dispatcher logs. Nil disables them.
	ActionLog dispatcher.Logger
	// After overrides the flight timer.
	After func(time.Duration) <-chan time.Time
}

// Panel is the side-panel readout.
type Panel struct {
	Body      string
	Zoom      float64
	Center    geo.LatLon
	Pointer   string
	Tile      tile.Index
	Labels    int
	Questions int
	Mode      drawing.Mode
	Status    string
}

// Explorer is the engine mounted for one body.
type Explorer struct {
	body   config.BodyConfig
	logger *slog.Logger
	banner *status.Banner

	engine     *tile.Engine
	source     *tiles.Source
	viewport   *viewport.Controller
	store      *annotation.Store
	drawing    *drawing.Machine
	navigator  *navigate.Navigator
	analyzer   *analysis.Analyzer
	dispatcher *dispatcher.Dispatcher

	labelLayers    *layers.Reconciler
	questionLayers *layers.Reconciler

	ctx    context.Context
	cancel context.CancelFunc

	mu               sync.Mutex
	questionsVisible bool
}

// New mounts the engine for cfg.Body on deps.Canvas.
func New(cfg Config, deps Deps) (*Explorer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("body", cfg.Body.DisplayName)

	proj, err := geo.NewProjection(cfg.Map.Projection)
	if err != nil {
		return nil, err
	}
	engine := tile.NewEngine(proj, cfg.Map.MinZoom, cfg.Map.MaxZoom)

	vp, err := viewport.New(deps.Canvas, viewport.Config{
		MinZoom:         cfg.Map.MinZoom,
		MaxZoom:         cfg.Map.MaxZoom,
		Center:          geo.LatLon{Lat: cfg.Map.InitialLat, Lon: cfg.Map.InitialLon},
		Zoom:            float64(cfg.Map.InitialZoom),
		TileURLTemplate: tile.URLTemplate(deps.Client.TilesURL(), cfg.Body.Dataset),
		Attribution:     cfg.Body.DisplayName,
		After:           deps.After,
	}, logger.With("component", "viewport"))
	if err != nil {
		return nil, err
	}

	source := tiles.NewSource(deps.Client, deps.Tiles, cfg.Body.Dataset, logger.With("component", "tiles"))
	pf, err := prefetch.New(engine, source, deps.Telemetry, logger.With("component", "prefetch"))
	if err != nil {
		return nil, fmt.Errorf("failed to create prefetcher: %w", err)
	}

	actionLog := deps.ActionLog
	if actionLog == nil {
		actionLog = nopLogger{}
	}
	bus, err := dispatcher.New(actionLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create action dispatcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Explorer{
		body:             cfg.Body,
		logger:           logger,
		banner:           deps.Banner,
		engine:           engine,
		source:           source,
		viewport:         vp,
		store:            annotation.NewStore(deps.Client, deps.Owners, deps.Snapshots, logger.With("component", "annotations")),
		dispatcher:       bus,
		labelLayers:      layers.NewReconciler(deps.Canvas, canvas.GroupLabels),
		questionLayers:   layers.NewReconciler(deps.Canvas, canvas.GroupQuestions),
		ctx:              ctx,
		cancel:           cancel,
		questionsVisible: true,
	}

	e.drawing = drawing.New(deps.Canvas, e.store, deps.Banner, deps.Telemetry, drawing.Config{
		Body:             cfg.Body.DisplayName,
		RadiusKm:         cfg.Body.RadiusKm,
		QuestionsVisible: e.QuestionsVisible,
	}, logger.With("component", "drawing"))
	e.navigator = navigate.New(vp, pf, deps.Canvas, deps.Banner,
		cfg.Navigation.TargetZoom, cfg.Navigation.FlightDuration, logger.With("component", "navigate"))
	e.analyzer = analysis.New(deps.Client, vp, engine, cfg.Body.Dataset, logger.With("component", "analysis"))

	e.store.Subscribe(e.render)
	bus.Register(layers.ActionExpandQuestion, e.expandQuestion, dispatcher.Logged(), dispatcher.Coalesced())
	vp.OnAction(e.handleAction)

	return e, nil
}

// Open loads the body's labels. A NetworkError is reported and returned,
// but labels restored from the offline snapshot are still shown.
func (e *Explorer) Open(ctx context.Context) error {
	_, err := e.store.LoadLabels(ctx, e.body.DisplayName)
	if err != nil {
		e.banner.Report(err)
		return err
	}
	return nil
}

// Close stops the action bus and abandons background requests.
func (e *Explorer) Close() {
	e.cancel()
	e.dispatcher.Close()
}

func (e *Explorer) Body() config.BodyConfig { return e.body }
func (e *Explorer) Engine() *tile.Engine { return e.engine }
func (e *Explorer) Tiles() *tiles.Source { return e.source }
func (e *Explorer) Viewport() *viewport.Controller { return e.viewport }
func (e *Explorer) Store() *annotation.Store { return e.store }
func (e *Explorer) Drawing() *drawing.Machine { return e.drawing }
func (e *Explorer) Navigator() *navigate.Navigator { return e.navigator }
func (e *Explorer) Analyzer() *analysis.Analyzer { return e.analyzer }
func (e *Explorer) Dispatcher() *dispatcher.Dispatcher { return e.dispatcher }

// Expand loads the thread of a question through the action bus, the same
// route a popup click takes.
func (e *Explorer) Expand(postID string) (annotation.Thread, error) {
	res, err := e.dispatcher.Dispatch(e.ctx, dispatcher.Event{Action: layers.ActionExpandQuestion, Target: postID})
	if err != nil {
		return annotation.Thread{}, err
	}
	return res.(annotation.Thread), nil
}

func (e *Explorer) expandQuestion(ctx context.Context, ev dispatcher.Event) (any, error) {
	ctx = logging.WithAttrs(ctx, slog.String("post", ev.Target))
	thread, err := e.store.LoadThread(ctx, ev.Target)
	if err != nil {
		e.logger.WarnContext(ctx, "thread load failed", "error", err)
		return nil, err
	}
	e.logger.DebugContext(ctx, "thread expanded", "comments", len(thread.Comments))
	return thread, nil
}

func (e *Explorer) handleAction(action, target string) {
	if _, err := e.dispatcher.Dispatch(e.ctx, dispatcher.Event{Action: action, Target: target}); err != nil {
		e.logger.Warn("popup action failed", "action", action, "target", target, "error", err)
		e.banner.Report(err)
	}
}

// QuestionsVisible reports whether question layers are shown.
func (e *Explorer) QuestionsVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.questionsVisible
}

// ToggleQuestions shows or hides every question layer and returns the new
// visibility.
func (e *Explorer) ToggleQuestions() bool {
	e.mu.Lock()
	e.questionsVisible = !e.questionsVisible
	visible := e.questionsVisible
	e.mu.Unlock()

	e.syncQuestions()
	if visible {
		e.banner.Info("Q&A visible")
	} else {
		e.banner.Info("Q&A hidden")
	}
	return visible
}

func (e *Explorer) render(c annotation.Change) {
	switch c.Kind {
	case annotation.ChangeLabels:
		if c.Key == e.body.DisplayName {
			e.labelLayers.Sync(layers.LabelLayers(e.store.Labels(e.body.DisplayName)))
		}
	case annotation.ChangeQuestions:
		if c.Key == e.body.DisplayName {
			e.syncQuestions()
		}
	}
}

func (e *Explorer) syncQuestions() {
	e.questionLayers.Sync(layers.QuestionLayers(e.store.Questions(e.body.DisplayName), e.QuestionsVisible()))
}

// Panel returns the side-panel readout.
func (e *Explorer) Panel() Panel {
	view := e.viewport.Viewport()
	msg, shown := e.banner.Current()
	p := Panel{
		Body:      e.body.DisplayName,
		Zoom:      view.Zoom,
		Center:    view.Center,
		Pointer:   e.viewport.FormatPointer(),
		Tile:      e.viewport.CenterTile(e.engine),
		Labels:    len(e.store.Labels(e.body.DisplayName)),
		Questions: len(e.store.Questions(e.body.DisplayName)),
		Mode:      e.drawing.State().Mode,
	}
	if shown {
		p.Status = msg.Text
	}
	return p
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
