package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes computed when a record is written,
// such as the mounted body.
type ContextProvider func() []slog.Attr

type ctxAttrsKey struct{}

// WithAttrs returns a context whose records carry attrs in addition to any
// already attached. Use it to tag everything logged while serving one user
// action, e.g. the drawing session or the post being expanded.
func WithAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

func attrsFrom(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	return attrs
}

// sink is one output with its own minimum level.
type sink struct {
	handler slog.Handler
	level   slog.Level
}

// fanoutHandler writes every record to each sink whose level admits it.
// Dynamic attributes from the provider and the context are added first.
type fanoutHandler struct {
	sinks    []sink
	provider ContextProvider
}

func newFanoutHandler(provider ContextProvider, sinks ...sink) *fanoutHandler {
	kept := sinks[:0:0]
	for _, s := range sinks {
		if s.handler != nil {
			kept = append(kept, s)
		}
	}
	return &fanoutHandler{sinks: kept, provider: provider}
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if level >= s.level && s.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle returns the joined errors of failed sinks. A failing sink does not
// stop delivery to the others.
func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	if f.provider != nil {
		r.AddAttrs(f.provider()...)
	}
	r.AddAttrs(attrsFrom(ctx)...)

	var errs []error
	for _, s := range f.sinks {
		if r.Level < s.level || !s.handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *fanoutHandler) derive(fn func(slog.Handler) slog.Handler) *fanoutHandler {
	sinks := make([]sink, len(f.sinks))
	for i, s := range f.sinks {
		sinks[i] = sink{handler: fn(s.handler), level: s.level}
	}
	return &fanoutHandler{sinks: sinks, provider: f.provider}
}
