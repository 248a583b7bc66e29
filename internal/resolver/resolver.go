package resolver

import (
	"context"
	"slices"

	"github.com/vk/meshweave/internal/ctxlog"
	"github.com/vk/meshweave/internal/diag"
	"github.com/vk/meshweave/internal/graph"
)

// Plan is the dependency-respecting evaluation order of one compile.
type Plan struct {
	// Order lists every needed node once, sources before readers.
	Order []graph.NodeID
	// Unreachable lists, in ascending order, the nodes no output depends on.
	Unreachable []graph.NodeID
}

// Len returns the number of planned nodes.
func (p *Plan) Len() int { return len(p.Order) }

// Index returns the position of id in the plan, or -1 if it is not planned.
func (p *Plan) Index(id graph.NodeID) int {
	return slices.Index(p.Order, id)
}

type colour uint8

const (
	unvisited colour = iota
	inProgress
	done
)

// Resolve computes the execution plan of g. It fails with CycleDetected when
// a marked output depends on a cycle, and with UnknownNode when a connection
// refers to a node that does not exist.
func Resolve(ctx context.Context, g *graph.Graph) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	outputs := g.Outputs()
	plan := &Plan{Order: make([]graph.NodeID, 0, g.Len())}

	// Per-call state; the graph itself is never annotated.
	state := make(map[graph.NodeID]colour)
	var stack []graph.NodeID

	var visit func(id graph.NodeID) error
	visit = func(id graph.NodeID) error {
		switch state[id] {
		case done:
			return nil
		case inProgress:
			// The stack runs from readers to their sources, so the slice from
			// the repeated node onwards is the cycle in reading order.
			start := slices.Index(stack, id)
			path := make([]int64, 0, len(stack)-start)
			for _, n := range stack[start:] {
				path = append(path, int64(n))
			}
			return &diag.Error{
				Kind:   diag.CycleDetected,
				Cycle:  path,
				Detail: "every node on the path reads from the next one",
			}
		}

		n, ok := g.Node(id)
		if !ok {
			return diag.Newf(diag.UnknownNode, "node %d does not exist", id).WithNodes(int64(id))
		}
		sig, err := g.Signature(id)
		if err != nil {
			return err
		}

		state[id] = inProgress
		stack = append(stack, id)

		for _, slot := range sig.Inputs {
			conn, ok := n.Inputs[slot.Name].(graph.Connection)
			if !ok {
				continue
			}
			if _, exists := g.Node(conn.Node); !exists {
				return diag.Newf(diag.UnknownNode, "input %q reads from node %d, which does not exist", slot.Name, conn.Node).
					WithOp(n.Op).WithNodes(int64(id), int64(conn.Node)).WithSlots(slot.Name)
			}
			if err := visit(conn.Node); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		plan.Order = append(plan.Order, id)
		return nil
	}

	for _, out := range outputs {
		if err := visit(out.Node); err != nil {
			logger.Debug("Dependency resolution failed.", "error", err)
			return nil, err
		}
	}

	for _, id := range g.NodeIDs() {
		if state[id] != done {
			plan.Unreachable = append(plan.Unreachable, id)
		}
	}

	logger.Debug("Resolved execution plan.", "planned", len(plan.Order), "unreachable", len(plan.Unreachable))
	return plan, nil
}
