package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/queryrun/internal/backend"
	"github.com/vk/queryrun/internal/backend/socketio"
	"github.com/vk/queryrun/internal/backend/sqlengine"
	"github.com/vk/queryrun/internal/ctxlog"
	"github.com/vk/queryrun/internal/options"
	"github.com/vk/queryrun/internal/runloop"
)

// BackendFactory creates the backend a run talks to. settings already
// carries the opened output writers.
type BackendFactory func(ctx context.Context, cfg *Config, settings backend.Settings) (backend.Backend, error)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	logCloser io.Closer
	config    *Config
	env       options.Env

	newBackend BackendFactory
	httpServer *http.Server

	mu     sync.Mutex
	driver *runloop.Driver
}

// Option customises an App.
type Option func(*App)

// WithBackendFactory replaces the backend selected by Config.BackendKind.
func WithBackendFactory(f BackendFactory) Option {
	return func(a *App) { a.newBackend = f }
}

// WithEnv sets the environment used for query templates.
func WithEnv(env options.Env) Option {
	return func(a *App) { a.env = env }
}

// NewApp is the constructor for the main application. Results printed to
// standard output go to outW and logs go to errW unless a log file is set.
func NewApp(outW, errW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	logW, logCloser, err := logOutput(cfg.LogFile, errW)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:       outW,
		logger:     logger,
		logCloser:  logCloser,
		config:     cfg,
		env:        options.Env{},
		newBackend: defaultBackend,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Close releases the log file, if any.
func (a *App) Close() error {
	if a.logCloser == nil {
		return nil
	}
	return a.logCloser.Close()
}

func (a *App) setDriver(d *runloop.Driver) {
	a.mu.Lock()
	a.driver = d
	a.mu.Unlock()
}

// progress returns the live counters, or nil before the run started.
func (a *App) progress() *runloop.Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.driver == nil {
		return nil
	}
	return a.driver.Progress()
}

func defaultBackend(ctx context.Context, cfg *Config, settings backend.Settings) (backend.Backend, error) {
	logger := ctxlog.FromContext(ctx)
	switch cfg.BackendKind {
	case BackendSocketIO:
		logger.Debug("Using socket.io backend.", "endpoint", cfg.Endpoint)
		c, err := socketio.Dial(ctx, socketio.Config{
			Endpoint:           cfg.Endpoint,
			Namespace:          cfg.Namespace,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Settings:           settings,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendSQLite, "":
		logger.Debug("Using embedded SQLite backend.", "data_dir", cfg.DataDir)
		e, err := sqlengine.New(ctx, sqlengine.Config{DataDir: cfg.DataDir, Settings: settings})
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.BackendKind)
	}
}
