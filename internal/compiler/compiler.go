// Package compiler is the entry point that turns a graph into a program.
package compiler

import (
	"context"
	"time"

	"github.com/vk/meshweave/internal/ctxlog"
	"github.com/vk/meshweave/internal/emitter"
	"github.com/vk/meshweave/internal/graph"
	"github.com/vk/meshweave/internal/resolver"
)

// Option configures a Compile call.
type Option func(*settings)

type settings struct {
	emit emitter.Options
}

// WithLibrary sets the host table the program calls operations on.
func WithLibrary(name string) Option {
	return func(s *settings) { s.emit.Library = name }
}

// Compile resolves and emits g. It works on a snapshot, so g may be edited
// concurrently, and it never returns a partial program: on failure the
// program is nil and the error is a *diag.Error for graph problems.
func Compile(ctx context.Context, g *graph.Graph, opts ...Option) (*emitter.Program, error) {
	prog, _, err := CompileWithPlan(ctx, g, opts...)
	return prog, err
}

// CompileWithPlan is Compile that also returns the execution plan the
// program was emitted from.
func CompileWithPlan(ctx context.Context, g *graph.Graph, opts ...Option) (*emitter.Program, *resolver.Plan, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	snap := g.Snapshot()
	logger.Debug("Compiling graph.", "nodes", snap.Len(), "outputs", len(snap.Outputs()))

	plan, err := resolver.Resolve(ctx, snap)
	if err != nil {
		logger.Debug("Compilation failed during resolution.", "error", err)
		return nil, nil, err
	}

	prog, err := emitter.Emit(ctx, snap, plan, s.emit)
	if err != nil {
		logger.Debug("Compilation failed during emission.", "error", err)
		return nil, nil, err
	}

	logger.Debug("Graph compiled.",
		"statements", len(prog.Statements),
		"skipped", len(plan.Unreachable),
		"duration", time.Since(start),
	)
	return prog, plan, nil
}
