package registry

import (
	"fmt"

	"github.com/vk/meshweave/internal/value"
	"github.com/vk/meshweave/internal/xform"
)

// Kind enumerates the builtin operations of the host mesh library. Host is
// the kind of every operation declared by a manifest instead.
type Kind int

const (
	Host Kind = iota
	MakeCube
	MakeQuad
	MakeCircle
	Extrude
	Bevel
	ChamferVertex
	Subdivide
	TransformMesh
	Merge
	SetMaterial
	MeshStats
	MakeVector
	SplitVector
	Add
	Multiply
	Export

	kindCount
)

// BuiltinKinds returns every builtin kind in declaration order.
func BuiltinKinds() []Kind {
	kinds := make([]Kind, 0, kindCount-1)
	for k := MakeCube; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Builtins registers the signatures of every builtin kind.
type Builtins struct{}

// Register implements Module.
func (Builtins) Register(r *Registry) {
	for _, k := range BuiltinKinds() {
		sig := Builtin(k)
		sig.Kind = k
		sig.Source = "builtin"
		r.MustRegister(sig)
	}
}

func ptr(v value.Value) *value.Value { return &v }

func in(name string, t value.Type, desc string) Slot {
	return Slot{Name: name, Type: t, Description: desc}
}

func inDefault(name string, def value.Value, desc string) Slot {
	return Slot{Name: name, Type: def.Type(), Description: desc, Default: ptr(def)}
}

func out(name string, t value.Type) Slot {
	return Slot{Name: name, Type: t}
}

func meshOut() []Slot { return []Slot{out("out_mesh", value.Mesh)} }

// Builtin returns a fresh copy of the signature of builtin kind k. It panics
// for Host and out-of-range kinds.
func Builtin(k Kind) *Signature {
	switch k {
	case MakeCube:
		return &Signature{
			Op:          "make_cube",
			Description: "Creates an axis-aligned cube.",
			Inputs: []Slot{
				inDefault("size", value.NewScalar(1), "Edge length."),
				inDefault("origin", value.NewVector(0, 0, 0), "Cube center."),
			},
			Outputs: meshOut(),
		}
	case MakeQuad:
		return &Signature{
			Op:          "make_quad",
			Description: "Creates a single quad face.",
			Inputs: []Slot{
				inDefault("center", value.NewVector(0, 0, 0), "Quad center."),
				inDefault("normal", value.NewVector(0, 1, 0), "Face normal."),
				inDefault("right", value.NewVector(1, 0, 0), "Direction of the first edge."),
				inDefault("size", value.NewVector(1, 1, 1), "Width and height."),
			},
			Outputs: meshOut(),
		}
	case MakeCircle:
		return &Signature{
			Op:          "make_circle",
			Description: "Creates a circle of vertices, optionally filled.",
			Inputs: []Slot{
				inDefault("center", value.NewVector(0, 0, 0), "Circle center."),
				inDefault("radius", value.NewScalar(1), "Circle radius."),
				inDefault("num_vertices", value.NewInteger(8), "Vertex count."),
				{
					Name: "fill", Type: value.Enum, Description: "Face fill mode.",
					Default: ptr(value.NewEnum("none")),
					Options: []string{"none", "ngon", "triangle_fan"},
				},
			},
			Outputs: meshOut(),
		}
	case Extrude:
		return &Signature{
			Op:          "extrude",
			Description: "Extrudes the selected faces along their normals.",
			Inputs: []Slot{
				in("in_mesh", value.Mesh, "Mesh to edit."),
				inDefault("faces", value.NewText("*"), "Face selection."),
				inDefault("amount", value.NewScalar(1), "Extrusion distance."),
			},
			Outputs: meshOut(),
		}
	case Bevel:
		return &Signature{
			Op:          "bevel",
			Description: "Bevels the selected edges.",
			Inputs: []Slot{
				in("in_mesh", value.Mesh, "Mesh to edit."),
				inDefault("edges", value.NewText("*"), "Edge selection."),
				inDefault("amount", value.NewScalar(0.1), "Bevel width."),
				inDefault("segments", value.NewInteger(1), "Segment count."),
				{Name: "even", Type: value.Bool, Description: "Keep segment widths even.", Optional: true},
			},
			Outputs: meshOut(),
		}
	case ChamferVertex:
		return &Signature{
			Op:          "chamfer_vertex",
			Description: "Chamfers the selected vertices.",
			Inputs: []Slot{
				in("in_mesh", value.Mesh, "Mesh to edit."),
				in("vertices", value.Text, "Vertex selection."),
				inDefault("amount", value.NewScalar(0.1), "Chamfer distance."),
			},
			Outputs: meshOut(),
		}
	case Subdivide:
		return &Signature{
			Op:          "subdivide",
			Description: "Subdivides every face of the mesh.",
			Inputs: []Slot{
				in("in_mesh", value.Mesh, "Mesh to edit."),
				{
					Name: "technique", Type: value.Enum, Description: "Subdivision scheme.",
					Default: ptr(value.NewEnum("catmull_clark")),
					Options: []string{"linear", "catmull_clark"},
				},
				inDefault("iterations", value.NewInteger(1), "Number of passes."),
			},
			Outputs: meshOut(),
		}
	case TransformMesh:
		return &Signature{
			Op:          "transform",
			Description: "Applies an affine transform to every vertex.",
			Inputs: []Slot{
				in("in_mesh", value.Mesh, "Mesh to edit."),
				inDefault("transform", value.NewTransform(xform.Identity()), "Transform to apply."),
			},
			Outputs: meshOut(),
		}
	case Merge:
		return &Signature{
			Op:          "merge",
			Description: "Combines two meshes into one.",
			Inputs: []Slot{
				in("a", value.Mesh, "First mesh."),
				in("b", value.Mesh, "Second mesh."),
			},
			Outputs: meshOut(),
		}
	case SetMaterial:
		return &Signature{
			Op:          "set_material",
			Description: "Assigns a material index to the selected faces.",
			Inputs: []Slot{
				in("in_mesh", value.Mesh, "Mesh to edit."),
				inDefault("faces", value.NewText("*"), "Face selection."),
				inDefault("material", value.NewInteger(0), "Material index."),
			},
			Outputs: meshOut(),
		}
	case MeshStats:
		return &Signature{
			Op:          "mesh_stats",
			Description: "Counts the elements of a mesh.",
			Inputs:      []Slot{in("in_mesh", value.Mesh, "Mesh to inspect.")},
			Outputs: []Slot{
				out("num_vertices", value.Integer),
				out("num_faces", value.Integer),
			},
		}
	case MakeVector:
		return &Signature{
			Op:          "make_vector",
			Description: "Builds a vector from its components.",
			Inputs: []Slot{
				inDefault("x", value.NewScalar(0), ""),
				inDefault("y", value.NewScalar(0), ""),
				inDefault("z", value.NewScalar(0), ""),
			},
			Outputs: []Slot{out("v", value.Vector3)},
		}
	case SplitVector:
		return &Signature{
			Op:          "split_vector",
			Description: "Splits a vector into its components.",
			Inputs:      []Slot{in("v", value.Vector3, "")},
			Outputs: []Slot{
				out("x", value.Scalar),
				out("y", value.Scalar),
				out("z", value.Scalar),
			},
		}
	case Add:
		return &Signature{
			Op:          "add",
			Description: "Adds two scalars.",
			Inputs:      []Slot{in("a", value.Scalar, ""), in("b", value.Scalar, "")},
			Outputs:     []Slot{out("result", value.Scalar)},
		}
	case Multiply:
		return &Signature{
			Op:          "multiply",
			Description: "Multiplies two scalars.",
			Inputs:      []Slot{in("a", value.Scalar, ""), in("b", value.Scalar, "")},
			Outputs:     []Slot{out("result", value.Scalar)},
		}
	case Export:
		return &Signature{
			Op:          "export",
			Description: "Writes the mesh to a file and passes it through.",
			Inputs: []Slot{
				in("in_mesh", value.Mesh, "Mesh to write."),
				in("path", value.Text, "Destination path."),
				{
					Name: "format", Type: value.Enum, Description: "File format.",
					Default: ptr(value.NewEnum("obj")),
					Options: []string{"obj", "ply"},
				},
			},
			Outputs: meshOut(),
		}
	case Host, kindCount:
		panic(fmt.Sprintf("registry: kind %d has no builtin signature", k))
	}
	panic(fmt.Sprintf("registry: unknown kind %d", k))
}

// String returns the operation tag of a builtin kind, or "host".
func (k Kind) String() string {
	if k <= Host || k >= kindCount {
		return "host"
	}
	return Builtin(k).Op
}
