package app

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/synfitgo/internal/config"
	"github.com/specialistvlad/synfitgo/internal/synthesis"
)

// InvokerFactory builds the synthesis program driver for a run.
type InvokerFactory func(cfg synthesis.Config) (synthesis.Invoker, error)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	newInvoker InvokerFactory

	status     *status
	httpServer *http.Server
}

// Option customizes an App.
type Option func(*App)

// WithInvokerFactory replaces the SYNPLOT driver, mostly for tests.
func WithInvokerFactory(f InvokerFactory) Option {
	return func(a *App) { a.newInvoker = f }
}

// NewApp is the constructor for the main application. Nothing is read from
// disk until Run.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:       outW,
		logger:     logger,
		config:     cfg,
		loader:     loader,
		newInvoker: newSynplot,
		status:     &status{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func newSynplot(cfg synthesis.Config) (synthesis.Invoker, error) {
	s, err := synthesis.NewSynplot(cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
