// Package planviz renders execution plans for people: as text, as Graphviz
// DOT, or as SVG.
package planviz

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/vk/meshweave/internal/graph"
	"github.com/vk/meshweave/internal/resolver"
)

// Options configures plan rendering.
type Options struct {
	// Name returns the display name of a node. Nil means "#<id>".
	Name func(graph.NodeID) string
	// ShowUnreachable includes nodes that the plan leaves out.
	ShowUnreachable bool
}

func (o Options) name(id graph.NodeID) string {
	if o.Name != nil {
		return o.Name(id)
	}
	return "#" + id.String()
}

// Text lists the plan one step per line, followed by the unreachable nodes
// when requested.
func Text(g *graph.Graph, plan *resolver.Plan, opts Options) string {
	var buf bytes.Buffer
	for i, id := range plan.Order {
		n, _ := g.Node(id)
		fmt.Fprintf(&buf, "%3d. %s (%s)", i+1, opts.name(id), n.Op)
		if outs := markedSlots(g, id); len(outs) > 0 {
			fmt.Fprintf(&buf, " -> output %s", strings.Join(outs, ", "))
		}
		buf.WriteByte('\n')
	}
	if opts.ShowUnreachable && len(plan.Unreachable) > 0 {
		buf.WriteString("skipped:\n")
		for _, id := range plan.Unreachable {
			n, _ := g.Node(id)
			fmt.Fprintf(&buf, "     %s (%s)\n", opts.name(id), n.Op)
		}
	}
	return buf.String()
}

// ToDOT converts the plan to Graphviz DOT. Nodes are labelled with their
// step number; output nodes get a double border and skipped nodes a dashed
// grey one.
func ToDOT(g *graph.Graph, plan *resolver.Plan, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph plan {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("\n")

	included := make(map[graph.NodeID]bool)
	for i, id := range plan.Order {
		included[id] = true
		n, _ := g.Node(id)
		label := fmt.Sprintf("%d. %s\n%s", i+1, opts.name(id), n.Op)
		attrs := []string{fmt.Sprintf("label=%q", label)}
		if len(markedSlots(g, id)) > 0 {
			attrs = append(attrs, "peripheries=2")
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", id, strings.Join(attrs, ", "))
	}
	if opts.ShowUnreachable {
		for _, id := range plan.Unreachable {
			included[id] = true
			n, _ := g.Node(id)
			label := fmt.Sprintf("%s\n%s", opts.name(id), n.Op)
			fmt.Fprintf(&buf, "  n%d [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey];\n", id, label)
		}
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if !included[e.From] || !included[e.To] {
			continue
		}
		fmt.Fprintf(&buf, "  n%d -> n%d [label=%q];\n", e.From, e.To, e.FromSlot+" → "+e.ToSlot)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

func markedSlots(g *graph.Graph, id graph.NodeID) []string {
	var slots []string
	for _, ref := range g.Outputs() {
		if ref.Node == id {
			slots = append(slots, ref.Slot)
		}
	}
	return slots
}
