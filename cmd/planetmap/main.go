package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/embiggen/planetmap/internal/api"
	"github.com/embiggen/planetmap/internal/app"
	"github.com/embiggen/planetmap/internal/cache"
	"github.com/embiggen/planetmap/internal/canvas"
	"github.com/embiggen/planetmap/internal/config"
	"github.com/embiggen/planetmap/internal/influx"
	"github.com/embiggen/planetmap/internal/logging"
	"github.com/embiggen/planetmap/internal/session"
	"github.com/embiggen/planetmap/internal/status"
	"github.com/embiggen/planetmap/internal/storage"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "planetmap"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	SessionStartTime time.Time = time.Now()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout))
}

// run parses flags, mounts the requested body and executes one command, or
// reads commands from in when none is given.
func run(ctx context.Context, args []string, in io.Reader, out io.Writer) int {
	fs := flag.NewFlagSet(AppName, flag.ContinueOnError)
	fs.SetOutput(out)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	bodyName := fs.String("body", "mars", "celestial body to open")
	userID := fs.String("user", os.Getenv("PLANETMAP_USER_ID"), "signed-in user id")
	offline := fs.Bool("offline", false, "skip loading labels on start")
	fs.Usage = func() {
		fmt.Fprintf(out, "%s %s (%s)\n\nusage: %s [flags] [command args...]\n\n", AppName, CurrentVersion, BuildDate, AppName)
		fs.PrintDefaults()
		fmt.Fprintln(out)
		fmt.Fprintln(out, usage)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	sh, cleanup, err := setup(*configDir, *bodyName, *userID, out)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return 1
	}
	defer cleanup()

	if !*offline {
		if err := sh.explorer.Open(ctx); err != nil {
			Logger.Warn("Failed to load labels", "error", err)
		}
	}

	if fs.NArg() == 0 {
		if err := sh.repl(ctx, in); err != nil {
			fmt.Fprintln(out, "error:", err)
			return 1
		}
		return 0
	}
	if err := sh.run(ctx, fs.Args()); err != nil && !errors.Is(err, errQuit) {
		fmt.Fprintln(out, "error:", err)
		return 1
	}
	return 0
}

// setup loads configuration, starts logging and the optional sinks, and
// mounts the body on a headless canvas.
func setup(configDir, bodyName, userID string, out io.Writer) (*shell, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*shell, func(), error) {
		cleanup()
		return nil, nil, err
	}

	configErr := config.Load(configDir)

	logFile, err := openLogFile(viper.GetString("logsDir"))
	if err != nil {
		return fail(err)
	}
	closers = append(closers, func() { _ = logFile.Close() })

	bodyCfg, err := config.GetBodyConfig(bodyName)
	if err != nil {
		return fail(err)
	}

	opts := logging.Options{
		Level: viper.GetString("logLevel"),
		File:  logFile,
		Context: func() []slog.Attr {
			return []slog.Attr{slog.String("body", bodyCfg.DisplayName)}
		},
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		gw, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			fmt.Fprintln(out, "warning:", err)
		} else {
			opts.Graylog = gw
			opts.GraylogLevel = gl.Level
			closers = append(closers, func() { _ = gw.Close() })
		}
	}
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(opts)
	Logger = SlogManager.Logger()
	zlog := logging.NewZerolog(logFile, viper.GetString("logLevel"))

	if configErr != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		Logger.Info("Loaded config")
	}
	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate)

	telemetry := startTelemetry(zlog, &closers)

	backend, err := storage.NewBackend(config.GetStorageConfig(), zlog)
	if err != nil {
		return fail(fmt.Errorf("failed to create storage backend: %w", err))
	}
	if err := backend.Init(); err != nil {
		_ = backend.Close()
		return fail(fmt.Errorf("failed to init storage backend: %w", err))
	}
	closers = append(closers, func() { _ = backend.Close() })

	apiCfg := config.GetAPIConfig()
	client := api.New(apiCfg.ServerURL,
		api.WithTilesURL(apiCfg.TilesURL),
		api.WithTimeout(apiCfg.Timeout),
		api.WithAnalysisInterval(apiCfg.AnalysisInterval),
	)

	mapCfg := config.GetMapConfig()
	lru, err := cache.NewTiles(mapCfg.TileCacheSize)
	if err != nil {
		return fail(err)
	}

	sessions := session.NewMemoryStore()
	if userID != "" {
		sessions.Set(session.UserIDKey, userID)
	}
	sessCfg := config.GetSessionConfig()

	banner := status.New(config.GetStatusTTL(), SlogManager.Component("status"))
	banner.OnChange(func(msg status.Message, visible bool) {
		if visible {
			fmt.Fprintf(out, "[%s] %s\n", msg.Level, msg.Text)
		}
	})

	headless := canvas.NewHeadless()
	explorer, err := app.New(app.Config{
		Body:       bodyCfg,
		Map:        mapCfg,
		Navigation: config.GetNavigationConfig(),
	}, app.Deps{
		Canvas:    headless,
		Client:    client,
		Tiles:     lru,
		Owners:    session.NewOwners(sessions, sessCfg.DefaultOwnerID, sessCfg.LabelOwnerFallback),
		Snapshots: backend,
		Banner:    banner,
		Telemetry: telemetry,
		Logger:    Logger,
		ActionLog: logging.NewDispatcherLogger(zlog),
	})
	if err != nil {
		return fail(err)
	}
	closers = append(closers, explorer.Close)

	return &shell{explorer: explorer, canvas: headless, sessions: sessions, out: out}, cleanup, nil
}

func openLogFile(logsDir string) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	path := logging.LogFilePath(logsDir, AppName, SessionStartTime)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

// startTelemetry connects the Influx sink when enabled. Telemetry is best
// effort; any failure leaves a no-op recorder.
func startTelemetry(zlog zerolog.Logger, closers *[]func()) influx.Recorder {
	m := influx.NewManager(config.GetInfluxConfig(), zlog)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.Connect(ctx)
	if errors.Is(err, influx.ErrDisabled) {
		return influx.Nop{}
	}
	if err != nil {
		Logger.Warn("Telemetry unavailable", "error", err)
		return influx.Nop{}
	}
	*closers = append(*closers, func() { _ = m.Close() })
	return m
}
