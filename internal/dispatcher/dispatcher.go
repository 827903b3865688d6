// Package dispatcher routes popup actions clicked on the map to their handlers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

const instrumentationName = "github.com/embiggen/planetmap/internal/dispatcher"

var (
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrUnknownAction is returned when no handler is registered for an action.
	ErrUnknownAction = errors.New("unknown action")
)

// Event is one popup action clicked on an annotation layer. Target is the
// annotation id the popup belongs to.
type Event struct {
	Action    string
	Target    string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(ctx context.Context, e Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*options)

type options struct {
	logged    bool
	coalesced bool
	timeout   time.Duration
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(o *options) { o.logged = true }
}

// Coalesced shares one handler call between events for the same target that
// arrive while it is running. Repeated clicks on a popup button then cost
// one backend request.
func Coalesced() Option {
	return func(o *options) { o.coalesced = true }
}

// Timeout bounds each handler call.
func Timeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	closed   bool
	logger   Logger
	group    singleflight.Group

	processed metric.Int64Counter
	failed    metric.Int64Counter
	coalesced metric.Int64Counter
	duration  metric.Float64Histogram
}

// New creates a Dispatcher. Metrics go to the global OTel meter, a no-op
// until a provider is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}

	m := otel.Meter(instrumentationName)

	var err error
	d.processed, err = m.Int64Counter("actions.processed",
		metric.WithDescription("Total popup actions handled"))
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	d.failed, err = m.Int64Counter("actions.failed",
		metric.WithDescription("Total popup actions whose handler returned an error"))
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	d.coalesced, err = m.Int64Counter("actions.coalesced",
		metric.WithDescription("Popup actions answered by an in-flight call for the same target"))
	if err != nil {
		return nil, fmt.Errorf("creating coalesced counter: %w", err)
	}
	d.duration, err = m.Float64Histogram("actions.duration",
		metric.WithDescription("Popup action handling time"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given action. Registering an action twice
// replaces the earlier handler.
func (d *Dispatcher) Register(action string, h HandlerFunc, opts ...Option) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	handler := d.withMetrics(action, h)
	if o.timeout > 0 {
		handler = withTimeout(o.timeout, handler)
	}
	if o.logged {
		handler = d.withLogging(action, handler)
	}
	if o.coalesced {
		handler = d.withCoalescing(action, handler)
	}

	d.mu.Lock()
	d.handlers[action] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler and waits for it.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) (any, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	d.mu.RLock()
	h, ok := d.handlers[e.Action]
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, e.Action)
	}
	return h(ctx, e)
}

// HasHandler returns true if a handler is registered for the action.
func (d *Dispatcher) HasHandler(action string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[action]
	return ok
}

// Close rejects further events. Calls already running finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *Dispatcher) withMetrics(action string, h HandlerFunc) HandlerFunc {
	attrs := metric.WithAttributes(attribute.String("action", action))
	return func(ctx context.Context, e Event) (any, error) {
		start := time.Now()
		result, err := h(ctx, e)
		d.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
		d.processed.Add(ctx, 1, attrs)
		if err != nil {
			d.failed.Add(ctx, 1, attrs)
		}
		return result, err
	}
}

func withTimeout(timeout time.Duration, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return h(ctx, e)
	}
}

// withCoalescing keys calls by action and target. The shared call runs with
// the first caller's context.
func (d *Dispatcher) withCoalescing(action string, h HandlerFunc) HandlerFunc {
	attrs := metric.WithAttributes(attribute.String("action", action))
	return func(ctx context.Context, e Event) (any, error) {
		result, err, shared := d.group.Do(action+"\x00"+e.Target, func() (any, error) {
			return h(ctx, e)
		})
		if shared {
			d.coalesced.Add(ctx, 1, attrs)
		}
		return result, err
	}
}

func (d *Dispatcher) withLogging(action string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling action", "action", action, "target", e.Target)

		result, err := h(ctx, e)

		if err != nil {
			d.logger.Error("action failed", "action", action, "target", e.Target, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("action complete", "action", action, "target", e.Target, "duration", time.Since(start))
		}

		return result, err
	}
}
