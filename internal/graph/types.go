package graph

import (
	"fmt"
	"maps"
	"strconv"

	"github.com/vk/meshweave/internal/value"
)

// NodeID identifies a node within one Graph.
type NodeID int64

func (id NodeID) String() string { return strconv.FormatInt(int64(id), 10) }

// Binding is the source of one input slot: a Literal or a Connection.
type Binding interface {
	isBinding()
	fmt.Stringer
}

// Literal binds a constant value to an input slot.
type Literal struct {
	Value value.Value
}

// Connection binds an input slot to an output slot of another node.
type Connection struct {
	Node NodeID
	Slot string
}

func (Literal) isBinding()    {}
func (Connection) isBinding() {}

func (l Literal) String() string    { return l.Value.String() }
func (c Connection) String() string { return fmt.Sprintf("node %d.%s", c.Node, c.Slot) }

// Node is one operation invocation in the graph.
type Node struct {
	ID     NodeID
	Op     string
	Inputs map[string]Binding
}

func (n *Node) clone() *Node {
	return &Node{ID: n.ID, Op: n.Op, Inputs: maps.Clone(n.Inputs)}
}

// OutputRef designates one output slot of a node as a program result.
type OutputRef struct {
	Node NodeID
	Slot string
}

// Edge is a connection derived from a Connection binding on To.ToSlot.
type Edge struct {
	From     NodeID
	FromSlot string
	To       NodeID
	ToSlot   string
}
