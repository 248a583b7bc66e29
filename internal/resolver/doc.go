// Package resolver turns a graph into an execution plan.
//
// The plan holds every node that some output-marked slot transitively reads
// from, each exactly once, ordered so that a node comes after all of its
// sources. Nodes that no output depends on are left out. Ordering is a
// depth-first post-order walk starting from the marked outputs in mark
// order, visiting a node's sources in the declared order of its input
// slots, so the plan for a given graph is deterministic.
//
// The walk colours nodes unvisited, in progress or done. Reaching a node
// that is still in progress means the graph has a cycle, which is reported
// as a diag.CycleDetected error carrying the offending path.
package resolver
