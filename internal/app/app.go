package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/meshweave/internal/ctxlog"
	"github.com/vk/meshweave/internal/registry"
)

// ErrInvalidGraph reports that a graph document failed to load or compile.
// The diagnostics have already been written to the error writer.
var ErrInvalidGraph = errors.New("invalid graph")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	errW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
}

// New is the constructor for the main application. Results are written to
// outW, logs and diagnostics to errW. The registry holds the builtin
// operations, any extra modules and the manifests under
// cfg.ManifestsPath.
func New(ctx context.Context, outW, errW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.NewWithBuiltins(modules...)
	logger.Debug("Builtin operations registered.", "count", reg.Len())

	if cfg.ManifestsPath != "" {
		if err := reg.LoadManifests(ctx, cfg.ManifestsPath); err != nil {
			return nil, fmt.Errorf("failed to load operation manifests: %w", err)
		}
	}

	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		errW:     errW,
		logger:   logger,
		registry: reg,
		config:   cfg,
	}, nil
}

// Registry returns the application's registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// context attaches the app logger to ctx.
func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
