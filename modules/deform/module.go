// Package deform provides host operations that reshape a whole mesh. Hosts
// that implement them register the module alongside the builtins.
package deform

import (
	"github.com/vk/meshweave/internal/registry"
	"github.com/vk/meshweave/internal/value"
)

// Source is the Signature.Source of every operation in this module.
const Source = "module:deform"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the module's operations.
func (m *Module) Register(r *registry.Registry) {
	for _, sig := range Signatures() {
		r.MustRegister(sig)
	}
}

func ptr(v value.Value) *value.Value { return &v }

var axisOptions = []string{"x", "y", "z"}

// Signatures returns fresh copies of the module's signatures.
func Signatures() []*registry.Signature {
	return []*registry.Signature{
		{
			Op:          "taper",
			Description: "Scales the mesh progressively along an axis.",
			Source:      Source,
			Inputs: []registry.Slot{
				{Name: "in_mesh", Type: value.Mesh, Description: "Mesh to edit."},
				{Name: "axis", Type: value.Enum, Default: ptr(value.NewEnum("z")), Options: axisOptions, Description: "Taper axis."},
				{Name: "factor", Type: value.Scalar, Default: ptr(value.NewScalar(0.5)), Description: "Scale reached at the far end."},
			},
			Outputs: []registry.Slot{{Name: "out_mesh", Type: value.Mesh}},
		},
		{
			Op:          "array",
			Description: "Repeats the mesh with a constant offset and merges the copies.",
			Source:      Source,
			Inputs: []registry.Slot{
				{Name: "in_mesh", Type: value.Mesh, Description: "Mesh to repeat."},
				{Name: "count", Type: value.Integer, Default: ptr(value.NewInteger(2)), Description: "Number of copies."},
				{Name: "offset", Type: value.Vector3, Default: ptr(value.NewVector(1, 0, 0)), Description: "Offset between copies."},
				{Name: "merge_distance", Type: value.Scalar, Optional: true, Description: "Weld vertices closer than this."},
			},
			Outputs: []registry.Slot{
				{Name: "out_mesh", Type: value.Mesh},
				{Name: "num_copies", Type: value.Integer},
			},
		},
	}
}
