package emitter

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/meshweave/internal/ctxlog"
	"github.com/vk/meshweave/internal/diag"
	"github.com/vk/meshweave/internal/graph"
	"github.com/vk/meshweave/internal/registry"
	"github.com/vk/meshweave/internal/resolver"
	"github.com/vk/meshweave/internal/value"
)

// DefaultLibrary is the host table operations are called on unless
// Options.Library says otherwise.
const DefaultLibrary = "ops"

// MaxLocals is the number of statements bound to named locals. Later
// statements store their results in a single spill table, so the chunk
// stays within the 200 registers a Lua function may use, with room left for
// call arguments and the result table.
const MaxLocals = 120

// spillTable names the spill table unless the library already uses it.
const spillTable = "nodes"

// Options tunes code generation.
type Options struct {
	// Library is the Lua table exposing the operations. Empty means
	// DefaultLibrary.
	Library string
}

type emitted struct {
	binding string
	sig     *registry.Signature
}

// Emit generates the program for plan, which must have been resolved from
// g. Bindings are re-validated against the registry, so a graph that went
// stale since it was edited is reported rather than miscompiled.
func Emit(ctx context.Context, g *graph.Graph, plan *resolver.Plan, opts Options) (*Program, error) {
	logger := ctxlog.FromContext(ctx)

	lib := opts.Library
	if lib == "" {
		lib = DefaultLibrary
	}
	if !registry.IsIdentifier(lib) {
		return nil, fmt.Errorf("library name %q is not a valid Lua identifier", lib)
	}

	prog := &Program{Library: lib, Statements: make([]Statement, 0, plan.Len())}
	if plan.Len() > MaxLocals {
		prog.Spill = spillTable
		if lib == spillTable {
			prog.Spill = spillTable + "_"
		}
	}
	done := make(map[graph.NodeID]emitted, plan.Len())

	for _, id := range plan.Order {
		n, ok := g.Node(id)
		if !ok {
			return nil, diag.Newf(diag.UnknownNode, "planned node %d does not exist", id).WithNodes(int64(id))
		}
		sig, err := g.Signature(id)
		if err != nil {
			return nil, err
		}

		st := Statement{
			Node:    id,
			Op:      sig.Op,
			Binding: BindingName(sig.Op, id),
			Args:    make([]Arg, 0, len(sig.Inputs)),
			Outputs: make([]string, len(sig.Outputs)),
		}
		if k := len(prog.Statements) + 1; k > MaxLocals {
			st.Binding = fmt.Sprintf("%s[%d]", prog.Spill, k-MaxLocals)
			st.Spilled = true
		}
		for i, out := range sig.Outputs {
			st.Outputs[i] = out.Name
		}

		for _, slot := range sig.Inputs {
			arg, err := resolveArg(n, sig, slot, done)
			if err != nil {
				return nil, err
			}
			st.Args = append(st.Args, arg)
		}

		prog.Statements = append(prog.Statements, st)
		done[id] = emitted{binding: st.Binding, sig: sig}
		logger.Debug("Emitted statement.", "node", id, "op", sig.Op, "binding", st.Binding)
	}

	for _, ref := range g.Outputs() {
		src, ok := done[ref.Node]
		if !ok {
			return nil, diag.Newf(diag.UnknownNode, "output node %d is not part of the plan", ref.Node).
				WithNodes(int64(ref.Node)).WithSlots(ref.Slot)
		}
		idx, err := outputIndex(src, ref.Node, ref.Slot)
		if err != nil {
			return nil, err
		}
		prog.Results = append(prog.Results, Result{Node: ref.Node, Slot: ref.Slot, Ref: src.binding, Index: idx})
	}

	logger.Debug("Program emitted.", "statements", len(prog.Statements), "results", len(prog.Results))
	return prog, nil
}

// resolveArg picks the argument for one input slot: the bound literal, a
// reference to the bound source, the slot default, nil for optional slots,
// and otherwise an UnresolvedRequiredInput error.
func resolveArg(n *graph.Node, sig *registry.Signature, slot registry.Slot, done map[graph.NodeID]emitted) (Arg, error) {
	switch b := n.Inputs[slot.Name].(type) {
	case graph.Literal:
		v, ok := value.Coerce(b.Value, slot.Type)
		if !ok || slot.Type == value.Mesh || (slot.Type == value.Enum && !slot.AcceptsTag(v.AsString())) {
			return Arg{}, diag.Newf(diag.TypeMismatch, "input %q: literal %s does not fit %s slot", slot.Name, b.Value, slot.Type).
				WithOp(sig.Op).WithNodes(int64(n.ID)).WithSlots(slot.Name)
		}
		if _, err := FormatLiteral(v); err != nil {
			return Arg{}, diag.Newf(diag.TypeMismatch, "input %q: %s", slot.Name, err).
				WithOp(sig.Op).WithNodes(int64(n.ID)).WithSlots(slot.Name)
		}
		return Arg{Slot: slot.Name, Kind: ArgLiteral, Value: v}, nil

	case graph.Connection:
		src, ok := done[b.Node]
		if !ok {
			return Arg{}, diag.Newf(diag.UnknownNode, "input %q reads from node %d, which was not emitted before it", slot.Name, b.Node).
				WithOp(sig.Op).WithNodes(int64(n.ID), int64(b.Node)).WithSlots(slot.Name)
		}
		out, _, ok := src.sig.Output(b.Slot)
		if !ok {
			return Arg{}, diag.Newf(diag.UnknownSlot, "operation %q has no output %q", src.sig.Op, b.Slot).
				WithOp(src.sig.Op).WithNodes(int64(b.Node)).WithSlots(b.Slot)
		}
		if !value.IsAssignable(out.Type, slot.Type) {
			return Arg{}, diag.Newf(diag.TypeMismatch, "%s output %q cannot feed %s input %q", out.Type, b.Slot, slot.Type, slot.Name).
				WithOp(sig.Op).WithNodes(int64(b.Node), int64(n.ID)).WithSlots(b.Slot, slot.Name)
		}
		idx, err := outputIndex(src, b.Node, b.Slot)
		if err != nil {
			return Arg{}, err
		}
		return Arg{Slot: slot.Name, Kind: ArgRef, Ref: src.binding, Index: idx}, nil

	case nil:
		switch {
		case slot.Default != nil:
			return Arg{Slot: slot.Name, Kind: ArgLiteral, Value: *slot.Default, Defaulted: true}, nil
		case slot.Optional:
			return Arg{Slot: slot.Name, Kind: ArgNil}, nil
		}
		return Arg{}, diag.Newf(diag.UnresolvedRequiredInput, "input %q of %q is neither connected nor set and has no default", slot.Name, sig.Op).
			WithOp(sig.Op).WithNodes(int64(n.ID)).WithSlots(slot.Name)

	default:
		return Arg{}, fmt.Errorf("node %d input %q: unsupported binding %T", n.ID, slot.Name, b)
	}
}

func outputIndex(src emitted, id graph.NodeID, slot string) (int, error) {
	_, pos, ok := src.sig.Output(slot)
	if !ok {
		return 0, diag.Newf(diag.UnknownSlot, "operation %q has no output %q", src.sig.Op, slot).
			WithOp(src.sig.Op).WithNodes(int64(id)).WithSlots(slot)
	}
	if len(src.sig.Outputs) == 1 {
		return 0, nil
	}
	return pos + 1, nil
}

// BindingName returns the local variable name for node id running op. Bytes
// that cannot appear in a Lua identifier are replaced with underscores.
func BindingName(op string, id graph.NodeID) string {
	var sb strings.Builder
	for i := 0; i < len(op); i++ {
		c := op[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			sb.WriteByte(c)
		case c >= '0' && c <= '9':
			if i == 0 {
				sb.WriteByte('_')
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte('_')
		}
	}
	fmt.Fprintf(&sb, "_%d", id)
	return sb.String()
}
