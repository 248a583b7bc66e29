// Package graph holds the editable node graph that the compiler consumes.
//
// # Model
//
// A Graph is an arena of nodes keyed by NodeID. Identifiers are handed out
// monotonically and never reused, so a stale id held by an editor can never
// alias a newer node. Each node names an operation registered in the graph's
// registry.Registry; its input and output slots are exactly those of the
// operation's signature.
//
// Every input slot holds at most one Binding:
//   - Literal: a constant value, type checked against the slot on write.
//   - Connection: a reference to one output slot of another node.
//
// Connections are not stored separately. Edges() derives them from the
// Connection bindings, which makes fan-out free and fan-in impossible.
//
// # Validation
//
// Mutations validate eagerly and leave the graph unchanged on failure,
// returning a *diag.Error. Acyclicity is the one property that is not
// checked here: cycles are reported by the resolver when the graph is
// compiled.
//
// # Concurrency
//
// All methods are safe for concurrent use. Compilation works on a
// Snapshot, so an editor can keep mutating the live graph meanwhile.
package graph
