package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Options configures SlogManager.Setup.
type Options struct {
	// Level is one of DEBUG, INFO, WARN, ERROR. Unknown values mean INFO.
	Level string
	// Console receives text output. Defaults to os.Stdout when File is nil.
	Console io.Writer
	// File optionally receives text output, e.g. the session log file.
	File io.Writer
	// Graylog optionally receives JSON records, one per GELF message.
	Graylog io.Writer
	// GraylogLevel is the minimum level forwarded to Graylog. Empty means Level.
	GraylogLevel string
	// Context adds dynamic attributes (active body, owner) to every record.
	Context ContextProvider
}

// SlogManager owns the process logger.
type SlogManager struct {
	logger *slog.Logger
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system.
func (m *SlogManager) Setup(opts Options) {
	// sinks filter by level themselves
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	level := parseLevel(opts.Level)
	console := opts.Console
	if console == nil && opts.File == nil {
		console = os.Stdout
	}

	var sinks []sink
	if console != nil {
		sinks = append(sinks, sink{handler: slog.NewTextHandler(console, handlerOpts), level: level})
	}
	if opts.File != nil {
		sinks = append(sinks, sink{handler: slog.NewTextHandler(opts.File, handlerOpts), level: level})
	}
	if opts.Graylog != nil {
		glLevel := level
		if opts.GraylogLevel != "" {
			glLevel = parseLevel(opts.GraylogLevel)
		}
		sinks = append(sinks, sink{handler: slog.NewJSONHandler(opts.Graylog, handlerOpts), level: glLevel})
	}

	handler := newFanoutHandler(opts.Context, sinks...)
	m.logger = slog.New(handler)
	m.logger.Debug("Logging initialized", "level", opts.Level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Component returns a child logger tagged with the component name.
func (m *SlogManager) Component(name string) *slog.Logger {
	return m.Logger().With("component", name)
}
