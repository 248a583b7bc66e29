package graph

import (
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/vk/meshweave/internal/diag"
	"github.com/vk/meshweave/internal/registry"
	"github.com/vk/meshweave/internal/value"
)

// Graph is a thread-safe arena of operation nodes.
type Graph struct {
	mu      sync.RWMutex
	reg     *registry.Registry
	nodes   map[NodeID]*Node
	nextID  NodeID
	outputs []OutputRef
}

// New creates an empty graph whose nodes are checked against reg.
func New(reg *registry.Registry) *Graph {
	return &Graph{
		reg:    reg,
		nodes:  make(map[NodeID]*Node),
		nextID: 1,
	}
}

// Registry returns the registry the graph validates against.
func (g *Graph) Registry() *registry.Registry {
	return g.reg
}

// AddNode creates a node running op with the given initial bindings. Slots
// not present in inputs stay unbound. Nothing is added if any binding is
// invalid.
func (g *Graph) AddNode(op string, inputs map[string]Binding) (NodeID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	sig, ok := g.reg.Lookup(op)
	if !ok {
		return 0, diag.Newf(diag.InvalidSignature, "operation %q is not registered", op).WithOp(op)
	}

	id := g.nextID
	bound := make(map[string]Binding, len(inputs))

	// Sorted so that the reported error does not depend on map order.
	for _, name := range slices.Sorted(maps.Keys(inputs)) {
		slot, _, ok := sig.Input(name)
		if !ok {
			return 0, diag.Newf(diag.InvalidSignature, "operation %q has no input %q", op, name).
				WithOp(op).WithSlots(name)
		}
		switch b := inputs[name].(type) {
		case Literal:
			v, err := checkLiteral(sig, id, slot, b.Value)
			if err != nil {
				return 0, err
			}
			bound[name] = Literal{Value: v}
		case Connection:
			if err := g.checkConnection(b.Node, b.Slot, id, sig, slot); err != nil {
				return 0, err
			}
			bound[name] = b
		default:
			return 0, diag.Newf(diag.TypeMismatch, "input %q has no binding value", name).
				WithOp(op).WithNodes(int64(id)).WithSlots(name)
		}
	}

	g.nodes[id] = &Node{ID: id, Op: op, Inputs: bound}
	g.nextID++
	return id, nil
}

// Connect binds dstSlot of dst to srcSlot of src. Failures are reported in
// the order UnknownNode, UnknownSlot, TypeMismatch, SlotAlreadyBound.
func (g *Graph) Connect(src NodeID, srcSlot string, dst NodeID, dstSlot string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[src]; !ok {
		return unknownNode(src)
	}
	dstNode, ok := g.nodes[dst]
	if !ok {
		return unknownNode(dst)
	}
	dstSig, err := g.signatureOf(dstNode)
	if err != nil {
		return err
	}
	slot, _, ok := dstSig.Input(dstSlot)
	if err := g.checkConnection(src, srcSlot, dst, dstSig, slot); err != nil {
		return err
	}
	if !ok {
		return unknownSlot(dstNode, dstSlot, "input")
	}
	if existing, bound := dstNode.Inputs[dstSlot]; bound {
		return diag.Newf(diag.SlotAlreadyBound, "input %q is already bound to %s", dstSlot, existing).
			WithOp(dstNode.Op).WithNodes(int64(dst)).WithSlots(dstSlot)
	}

	dstNode.Inputs[dstSlot] = Connection{Node: src, Slot: srcSlot}
	return nil
}

// SetLiteral binds v to an input slot, replacing any existing binding.
func (g *Graph) SetLiteral(id NodeID, slotName string, v value.Value) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	sig, err := g.signatureOf(n)
	if err != nil {
		return err
	}
	slot, _, ok := sig.Input(slotName)
	if !ok {
		return unknownSlot(n, slotName, "input")
	}
	coerced, err := checkLiteral(sig, id, slot, v)
	if err != nil {
		return err
	}
	n.Inputs[slotName] = Literal{Value: coerced}
	return nil
}

// Disconnect clears the binding of an input slot. Clearing an unbound slot
// is not an error.
func (g *Graph) Disconnect(id NodeID, slotName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	sig, err := g.signatureOf(n)
	if err != nil {
		return err
	}
	if _, _, ok := sig.Input(slotName); !ok {
		return unknownSlot(n, slotName, "input")
	}
	delete(n.Inputs, slotName)
	return nil
}

// RemoveNode deletes a node together with every binding that reads from it
// and every output designation on it.
func (g *Graph) RemoveNode(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return unknownNode(id)
	}
	delete(g.nodes, id)

	for _, n := range g.nodes {
		for name, b := range n.Inputs {
			if c, ok := b.(Connection); ok && c.Node == id {
				delete(n.Inputs, name)
			}
		}
	}
	g.outputs = slices.DeleteFunc(g.outputs, func(ref OutputRef) bool { return ref.Node == id })
	return nil
}

// MarkOutput designates an output slot as a program result. Results keep
// the order of their first MarkOutput call; marking twice is a no-op.
func (g *Graph) MarkOutput(id NodeID, slotName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return unknownNode(id)
	}
	sig, err := g.signatureOf(n)
	if err != nil {
		return err
	}
	if _, _, ok := sig.Output(slotName); !ok {
		return unknownSlot(n, slotName, "output")
	}

	ref := OutputRef{Node: id, Slot: slotName}
	if !slices.Contains(g.outputs, ref) {
		g.outputs = append(g.outputs, ref)
	}
	return nil
}

// UnmarkOutput removes an output designation and reports whether it existed.
func (g *Graph) UnmarkOutput(id NodeID, slotName string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := slices.Index(g.outputs, OutputRef{Node: id, Slot: slotName})
	if i < 0 {
		return false
	}
	g.outputs = slices.Delete(g.outputs, i, i+1)
	return true
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return n.clone(), true
}

// Signature returns the signature of the operation a node runs.
func (g *Graph) Signature(id NodeID) (*registry.Signature, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, unknownNode(id)
	}
	return g.signatureOf(n)
}

// NodeIDs returns the ids of all nodes in ascending order.
func (g *Graph) NodeIDs() []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Sorted(maps.Keys(g.nodes))
}

// Outputs returns the output designations in mark order.
func (g *Graph) Outputs() []OutputRef {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.outputs)
}

// Edges returns every connection, ordered by target node and slot.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var edges []Edge
	for _, n := range g.nodes {
		for name, b := range n.Inputs {
			if c, ok := b.(Connection); ok {
				edges = append(edges, Edge{From: c.Node, FromSlot: c.Slot, To: n.ID, ToSlot: name})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].ToSlot < edges[j].ToSlot
	})
	return edges
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// Snapshot returns a deep copy of the graph. The copy shares the registry
// but no mutable state, and keeps allocating ids where g left off.
func (g *Graph) Snapshot() *Graph {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cp := &Graph{
		reg:     g.reg,
		nodes:   make(map[NodeID]*Node, len(g.nodes)),
		nextID:  g.nextID,
		outputs: slices.Clone(g.outputs),
	}
	for id, n := range g.nodes {
		cp.nodes[id] = n.clone()
	}
	return cp
}

func (g *Graph) signatureOf(n *Node) (*registry.Signature, error) {
	sig, ok := g.reg.Lookup(n.Op)
	if !ok {
		return nil, diag.Newf(diag.InvalidSignature, "operation %q is not registered", n.Op).
			WithOp(n.Op).WithNodes(int64(n.ID))
	}
	return sig, nil
}

// checkConnection validates reading srcSlot of src into the input slot of
// node dst. The caller reports a missing destination slot itself, so an
// empty slot name only skips the type check.
func (g *Graph) checkConnection(src NodeID, srcSlot string, dst NodeID, dstSig *registry.Signature, slot registry.Slot) error {
	srcNode, ok := g.nodes[src]
	if !ok {
		return unknownNode(src)
	}
	srcSig, err := g.signatureOf(srcNode)
	if err != nil {
		return err
	}
	out, _, ok := srcSig.Output(srcSlot)
	if !ok {
		return unknownSlot(srcNode, srcSlot, "output")
	}
	if slot.Name == "" {
		return nil
	}
	if !value.IsAssignable(out.Type, slot.Type) {
		return diag.Newf(diag.TypeMismatch, "%s output %q cannot feed %s input %q", out.Type, srcSlot, slot.Type, slot.Name).
			WithOp(dstSig.Op).WithNodes(int64(src), int64(dst)).WithSlots(srcSlot, slot.Name)
	}
	return nil
}

// checkLiteral validates v for slot and returns it widened to the slot type.
func checkLiteral(sig *registry.Signature, id NodeID, slot registry.Slot, v value.Value) (value.Value, error) {
	mismatch := func(format string, args ...any) error {
		return diag.Newf(diag.TypeMismatch, format, args...).
			WithOp(sig.Op).WithNodes(int64(id)).WithSlots(slot.Name)
	}

	if !v.IsValid() {
		return value.Value{}, mismatch("input %q: literal has no value", slot.Name)
	}
	if slot.Type == value.Mesh || v.Type() == value.Mesh {
		return value.Value{}, mismatch("input %q: mesh handles cannot be bound as literals, connect a mesh output instead", slot.Name)
	}
	coerced, ok := value.Coerce(v, slot.Type)
	if !ok {
		return value.Value{}, mismatch("input %q: %s literal is not assignable to %s", slot.Name, v.Type(), slot.Type)
	}
	if slot.Type == value.Enum && !slot.AcceptsTag(coerced.AsString()) {
		return value.Value{}, mismatch("input %q: %q is not one of %v", slot.Name, coerced.AsString(), slot.Options)
	}
	return coerced, nil
}

func unknownNode(id NodeID) error {
	return diag.Newf(diag.UnknownNode, "node %d does not exist", id).WithNodes(int64(id))
}

func unknownSlot(n *Node, slot, kind string) error {
	return diag.Newf(diag.UnknownSlot, "operation %q has no %s %q", n.Op, kind, slot).
		WithOp(n.Op).WithNodes(int64(n.ID)).WithSlots(slot)
}
