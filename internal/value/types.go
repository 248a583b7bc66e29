package value

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Type identifies the type of a slot or a value.
type Type uint8

const (
	Invalid Type = iota
	Scalar
	Integer
	Bool
	Vector3
	Transform
	Text
	Enum
	Mesh
)

var typeNames = map[Type]string{
	Invalid:   "invalid",
	Scalar:    "scalar",
	Integer:   "integer",
	Bool:      "bool",
	Vector3:   "vector",
	Transform: "transform",
	Text:      "text",
	Enum:      "enum",
	Mesh:      "mesh",
}

// String returns the keyword used for the type in manifests.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseType resolves a manifest type keyword.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if t != Invalid && n == name {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("unknown type %q: supported types are scalar, integer, bool, vector, transform, text, enum, mesh", name)
}

// widenings lists the only implicit conversions allowed between distinct types.
var widenings = map[Type][]Type{
	Integer: {Scalar},
}

// IsAssignable reports whether a value of type from may be bound to a slot
// of type to. Beyond exact matches only the widenings above are allowed;
// in particular there is no conversion to or from Mesh.
func IsAssignable(from, to Type) bool {
	if from == Invalid || to == Invalid {
		return false
	}
	if from == to {
		return true
	}
	for _, w := range widenings[from] {
		if w == to {
			return true
		}
	}
	return false
}

// MeshHandle is the opaque identifier of a mesh owned by the runtime.
type MeshHandle uint64

var meshCapsule = cty.Capsule("mesh", reflect.TypeOf(MeshHandle(0)))

var vectorType = cty.Object(map[string]cty.Type{
	"x": cty.Number,
	"y": cty.Number,
	"z": cty.Number,
})

var quatType = cty.Object(map[string]cty.Type{
	"x": cty.Number,
	"y": cty.Number,
	"z": cty.Number,
	"w": cty.Number,
})

var transformType = cty.Object(map[string]cty.Type{
	"translation": vectorType,
	"rotation":    quatType,
	"scale":       vectorType,
})

// CtyType returns the cty type used to carry values of t.
func (t Type) CtyType() cty.Type {
	switch t {
	case Scalar, Integer:
		return cty.Number
	case Bool:
		return cty.Bool
	case Vector3:
		return vectorType
	case Transform:
		return transformType
	case Text, Enum:
		return cty.String
	case Mesh:
		return meshCapsule
	default:
		return cty.NilType
	}
}
