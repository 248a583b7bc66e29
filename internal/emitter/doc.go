// Package emitter translates an execution plan into a sequential Lua
// program.
//
// Each planned node becomes one statement that calls the node's operation
// through the host library table and stores the result in a local binding
// named after the operation and the node id:
//
//	local make_cube_1 = ops.make_cube(2.0, vector(0.0, 0.0, 0.0))
//	local mesh_stats_2 = ops.mesh_stats(make_cube_1)
//	local add_3 = ops.add(mesh_stats_2[2], 1.0)
//	return { add_3, make_cube_1 }
//
// Arguments are passed positionally in the declared input order. An
// operation with several outputs returns them as a sequence, and readers
// index into it by the 1-based position of the output slot. The program
// ends by returning the output-marked slots in mark order.
//
// Only the first MaxLocals statements get a local. Past that the results
// go into one spill table, since a Lua function has a fixed register budget:
//
//	local nodes = {}
//	nodes[1] = ops.add(add_120, 1.0)
//	nodes[2] = ops.multiply(nodes[1], 2.0)
//
// An input slot without a binding takes its declared default, or nil when
// the slot is optional. Any other unbound slot fails the emit with
// diag.UnresolvedRequiredInput.
package emitter
