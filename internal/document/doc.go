// Package document loads graphs from HCL files so they can be compiled from
// the command line.
//
// A document declares nodes and the outputs to return:
//
//	node "make_cube" "base" {
//	  size = 2.0
//	}
//
//	node "extrude" "top" {
//	  in_mesh = node.base.out_mesh
//	  faces   = "top"
//	  amount  = 0.5
//	}
//
//	output "mesh" {
//	  value = node.top.out_mesh
//	}
//
// The first label of a node block is the operation, the second a name that
// is unique within the document. Attributes bind input slots: a reference of
// the form node.<name>.<slot> connects the slot to another node's output,
// any other expression is evaluated without variables and bound as a
// literal. Nodes may refer to nodes declared later in the file.
//
// Documents are read-only. Graphs edited in memory are never written back.
package document
