package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/meshweave/internal/compiler"
	"github.com/vk/meshweave/internal/ctxlog"
	"github.com/vk/meshweave/internal/document"
	"github.com/vk/meshweave/internal/emitter"
	"github.com/vk/meshweave/internal/graph"
	"github.com/vk/meshweave/internal/luahost"
	"github.com/vk/meshweave/internal/planviz"
	"github.com/vk/meshweave/internal/registry"
	"github.com/vk/meshweave/internal/resolver"
)

// PlanFormats lists the formats accepted by Plan.
var PlanFormats = []string{"text", "dot", "svg"}

// Compile writes the Lua program for the configured graph.
func (a *App) Compile(ctx context.Context) error {
	ctx = a.context(ctx)
	_, prog, _, err := a.build(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.outW, prog.Source())
	return err
}

// Plan writes the execution plan of the configured graph in format.
func (a *App) Plan(ctx context.Context, format string, showSkipped bool) error {
	ctx = a.context(ctx)
	doc, _, plan, err := a.build(ctx)
	if err != nil {
		return err
	}

	opts := planviz.Options{Name: doc.NameOf, ShowUnreachable: showSkipped}
	switch format {
	case "text":
		_, err = fmt.Fprint(a.outW, planviz.Text(doc.Graph, plan, opts))
	case "dot":
		_, err = fmt.Fprint(a.outW, planviz.ToDOT(doc.Graph, plan, opts))
	case "svg":
		var svg []byte
		svg, err = planviz.RenderSVG(ctx, planviz.ToDOT(doc.Graph, plan, opts))
		if err == nil {
			_, err = a.outW.Write(svg)
		}
	default:
		return fmt.Errorf("unknown plan format %q: must be one of %s", format, strings.Join(PlanFormats, ", "))
	}
	return err
}

// Run compiles the configured graph and executes it against the stand-in
// host library, writing the call trace and the results.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	doc, prog, _, err := a.build(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("Starting dry run.", "statements", len(prog.Statements))
	trace, err := luahost.New(a.registry).Run(ctx, prog)
	if err != nil {
		return err
	}

	for i, call := range trace.Calls {
		name := "?"
		if i < len(prog.Statements) {
			name = doc.NameOf(prog.Statements[i].Node)
		}
		fmt.Fprintf(a.outW, "%3d. %-12s %s\n", i+1, name, call)
	}

	rendered := make(map[graph.OutputRef]string, len(prog.Results))
	for i, res := range prog.Results {
		if i < len(trace.Outputs) {
			rendered[graph.OutputRef{Node: res.Node, Slot: res.Slot}] = trace.Outputs[i]
		}
	}
	for _, out := range doc.Outputs {
		fmt.Fprintf(a.outW, "output %s = %s\n", out.Name, rendered[out.Ref])
	}
	a.logger.Info("Dry run finished.", "calls", len(trace.Calls))
	return nil
}

// ListOperations writes a table of every registered operation.
func (a *App) ListOperations(ctx context.Context) error {
	ctxlog.FromContext(a.context(ctx)).Debug("Listing operations.", "count", a.registry.Len())

	rows := make([][]string, 0, a.registry.Len())
	for _, sig := range a.registry.Operations() {
		rows = append(rows, []string{sig.Op, formatSlots(sig.Inputs), formatSlots(sig.Outputs), sig.Source})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("OPERATION", "INPUTS", "OUTPUTS", "SOURCE").
		Rows(rows...)
	_, err := fmt.Fprintln(a.outW, t.String())
	return err
}

func formatSlots(slots []registry.Slot) string {
	parts := make([]string, len(slots))
	for i, sl := range slots {
		part := sl.Name + " " + sl.Type.String()
		switch {
		case sl.Default != nil:
			part += " = " + sl.Default.String()
		case sl.Optional:
			part += "?"
		}
		parts[i] = part
	}
	return strings.Join(parts, "\n")
}

// build loads and compiles the configured graph. Diagnostics for either
// step are written to the error writer and reported as ErrInvalidGraph.
func (a *App) build(ctx context.Context) (*document.Document, *emitter.Program, *resolver.Plan, error) {
	if a.config.GraphPath == "" {
		return nil, nil, nil, errors.New("no graph document given")
	}

	doc, err := document.Load(ctx, a.registry, a.config.GraphPath)
	if err != nil {
		var diags hcl.Diagnostics
		if errors.As(err, &diags) {
			if werr := document.WriteDiagnostics(a.errW, diags); werr != nil {
				a.logger.Error("Failed to write diagnostics.", "error", werr)
			}
			return nil, nil, nil, fmt.Errorf("%s: %w", a.config.GraphPath, ErrInvalidGraph)
		}
		return nil, nil, nil, err
	}

	prog, plan, err := compiler.CompileWithPlan(ctx, doc.Graph, compiler.WithLibrary(a.config.Library))
	if err != nil {
		if werr := document.WriteDiagnostics(a.errW, hcl.Diagnostics{doc.Diagnostic(err)}); werr != nil {
			a.logger.Error("Failed to write diagnostics.", "error", werr)
		}
		return nil, nil, nil, fmt.Errorf("%s: %w", a.config.GraphPath, ErrInvalidGraph)
	}

	// The host runtime must accept the program as it is printed.
	if err := luahost.Check(prog.Source()); err != nil {
		invalid := &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid program",
			Detail:   fmt.Sprintf("The generated Lua program does not compile: %s.", err),
		}
		if werr := document.WriteDiagnostics(a.errW, hcl.Diagnostics{invalid}); werr != nil {
			a.logger.Error("Failed to write diagnostics.", "error", werr)
		}
		return nil, nil, nil, fmt.Errorf("%s: %w", a.config.GraphPath, ErrInvalidGraph)
	}

	a.logger.Info("Graph compiled.", "path", a.config.GraphPath, "statements", len(prog.Statements), "skipped", len(plan.Unreachable))
	return doc, prog, plan, nil
}
