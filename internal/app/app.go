package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/eeaton/docstack/internal/cloud"
	"github.com/eeaton/docstack/internal/config"
	"github.com/eeaton/docstack/internal/ctxlog"
	"github.com/eeaton/docstack/internal/engine"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	model  *config.Model
	api    cloud.API
	runner engine.CommandRunner
}

// Option overrides a default dependency, primarily for tests.
type Option func(*App)

// WithAPI replaces the cloud client.
func WithAPI(api cloud.API) Option {
	return func(a *App) { a.api = api }
}

// WithRunner replaces the build submission runner.
func WithRunner(r engine.CommandRunner) Option {
	return func(a *App) { a.runner = r }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and the loaded
// stack model. A stack that fails to load is a fatal startup error and
// panics; the entrypoint recovers it into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.StackPath)
	if err != nil {
		panic(fmt.Errorf("failed to load stack definition: %w", err))
	}
	logger.Debug("Stack definition loaded and translated into unified model.")

	app := &App{
		outW:   outW,
		logger: logger,
		model:  model,
		api:    cloud.NewCLIClient(),
		runner: engine.ShellRunner{},
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Model returns the loaded stack model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// resolveBaseDir picks the directory stack-relative paths resolve against:
// the configured base dir when set, otherwise the stack's own directory.
func resolveBaseDir(appConfig *Config) string {
	if appConfig.BaseDir != "" {
		return appConfig.BaseDir
	}
	info, err := os.Stat(appConfig.StackPath)
	if err == nil && info.IsDir() {
		return appConfig.StackPath
	}
	return filepath.Dir(appConfig.StackPath)
}
