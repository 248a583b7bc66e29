// Package registry holds the operation signatures the compiler validates
// nodes against and emits calls for.
//
// A Signature declares, in order, the typed input and output slots of one
// operation tag. The order is significant: the emitted program passes
// arguments positionally in declared input order, and multi-output
// operations return their results in declared output order.
//
// The mesh-editing library that ships with the host is described by a closed
// set of builtin operations (see Kind). Hosts may expose further operations;
// those are declared in HCL manifests and loaded with LoadManifests, then
// checked with Validate so that a malformed manifest is rejected at startup
// rather than surfacing as a confusing compile error later.
package registry
