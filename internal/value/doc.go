// Package value defines the typed values that graph nodes exchange and the
// assignability rules between their types.
//
// Every Value is backed by a cty.Value so that literals decoded from HCL
// (operation manifests and graph documents) can be checked and converted
// with the cty conversion machinery rather than ad-hoc reflection. Mesh
// handles are opaque and represented as cty capsules; they are produced by
// operations at run time and can never be written as literals.
package value
