package value

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/vk/meshweave/internal/xform"
	"github.com/zclconf/go-cty/cty"
)

// Value is a typed value. The zero Value is invalid.
type Value struct {
	typ Type
	v   cty.Value
}

// NewScalar returns a Scalar value. It panics if f is NaN, which has no
// representation in the program's literal syntax.
func NewScalar(f float64) Value {
	return Value{typ: Scalar, v: cty.NumberFloatVal(f)}
}

// NewInteger returns an Integer value.
func NewInteger(i int64) Value {
	return Value{typ: Integer, v: cty.NumberIntVal(i)}
}

// NewBool returns a Bool value.
func NewBool(b bool) Value {
	return Value{typ: Bool, v: cty.BoolVal(b)}
}

// NewVector returns a Vector3 value.
func NewVector(x, y, z float64) Value {
	return Value{typ: Vector3, v: vectorVal(xform.Vec3{x, y, z})}
}

// NewTransform returns a Transform value.
func NewTransform(t xform.Transform) Value {
	q := t.Quat()
	return Value{typ: Transform, v: cty.ObjectVal(map[string]cty.Value{
		"translation": vectorVal(t.Translation()),
		"rotation": cty.ObjectVal(map[string]cty.Value{
			"x": cty.NumberFloatVal(q.V[0]),
			"y": cty.NumberFloatVal(q.V[1]),
			"z": cty.NumberFloatVal(q.V[2]),
			"w": cty.NumberFloatVal(q.W),
		}),
		"scale": vectorVal(t.Scale()),
	})}
}

// NewText returns a Text value.
func NewText(s string) Value {
	return Value{typ: Text, v: cty.StringVal(s)}
}

// NewEnum returns an Enum value carrying the given tag.
func NewEnum(tag string) Value {
	return Value{typ: Enum, v: cty.StringVal(tag)}
}

// NewMeshRef wraps a runtime mesh handle.
func NewMeshRef(h MeshHandle) Value {
	return Value{typ: Mesh, v: cty.CapsuleVal(meshCapsule, &h)}
}

func vectorVal(v xform.Vec3) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"x": cty.NumberFloatVal(v[0]),
		"y": cty.NumberFloatVal(v[1]),
		"z": cty.NumberFloatVal(v[2]),
	})
}

// Type returns the value's type.
func (v Value) Type() Type { return v.typ }

// IsValid reports whether v was built by one of the constructors.
func (v Value) IsValid() bool { return v.typ != Invalid }

// CtyValue returns the cty representation of v.
func (v Value) CtyValue() cty.Value { return v.v }

// Equal reports whether two values have the same type and contents.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	if v.typ == Invalid {
		return true
	}
	if v.typ == Mesh {
		return v.AsMesh() == o.AsMesh()
	}
	return v.v.RawEquals(o.v)
}

// AsFloat returns the numeric value of a Scalar or Integer.
func (v Value) AsFloat() float64 {
	v.mustBe(Scalar, Integer)
	f, _ := v.v.AsBigFloat().Float64()
	return f
}

// AsInt returns the value of an Integer.
func (v Value) AsInt() int64 {
	v.mustBe(Integer)
	i, _ := v.v.AsBigFloat().Int64()
	return i
}

// AsBool returns the value of a Bool.
func (v Value) AsBool() bool {
	v.mustBe(Bool)
	return v.v.True()
}

// AsVector returns the components of a Vector3.
func (v Value) AsVector() xform.Vec3 {
	v.mustBe(Vector3)
	return vectorOf(v.v)
}

// AsTransform returns the Transform carried by v.
func (v Value) AsTransform() xform.Transform {
	v.mustBe(Transform)
	rot := v.v.GetAttr("rotation")
	q := mgl64.Quat{
		W: floatOf(rot.GetAttr("w")),
		V: mgl64.Vec3{floatOf(rot.GetAttr("x")), floatOf(rot.GetAttr("y")), floatOf(rot.GetAttr("z"))},
	}
	return xform.FromQuat(vectorOf(v.v.GetAttr("translation")), q, vectorOf(v.v.GetAttr("scale")))
}

// AsString returns the string of a Text value or the tag of an Enum value.
func (v Value) AsString() string {
	v.mustBe(Text, Enum)
	return v.v.AsString()
}

// AsMesh returns the handle carried by a Mesh value.
func (v Value) AsMesh() MeshHandle {
	v.mustBe(Mesh)
	return *(v.v.EncapsulatedValue().(*MeshHandle))
}

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.typ {
	case Scalar, Integer:
		return fmt.Sprintf("%s(%g)", v.typ, v.AsFloat())
	case Bool:
		return fmt.Sprintf("bool(%t)", v.AsBool())
	case Vector3:
		c := v.AsVector()
		return fmt.Sprintf("vector(%g, %g, %g)", c[0], c[1], c[2])
	case Transform:
		t := v.AsTransform()
		return fmt.Sprintf("transform(t=%v, r=%v, s=%v)", t.Translation(), t.Rotation(), t.Scale())
	case Text, Enum:
		return fmt.Sprintf("%s(%q)", v.typ, v.AsString())
	case Mesh:
		return fmt.Sprintf("mesh(#%d)", v.AsMesh())
	default:
		return "invalid"
	}
}

func (v Value) mustBe(types ...Type) {
	for _, t := range types {
		if v.typ == t {
			return
		}
	}
	panic(fmt.Sprintf("value: %s accessed as %v", v.typ, types))
}

func vectorOf(obj cty.Value) xform.Vec3 {
	return xform.Vec3{floatOf(obj.GetAttr("x")), floatOf(obj.GetAttr("y")), floatOf(obj.GetAttr("z"))}
}

func floatOf(n cty.Value) float64 {
	f, _ := n.AsBigFloat().Float64()
	return f
}

// Coerce converts v to type to using the allowed widenings. It returns false
// when v is not assignable to to.
func Coerce(v Value, to Type) (Value, bool) {
	if !IsAssignable(v.typ, to) {
		return Value{}, false
	}
	if v.typ == to {
		return v, true
	}
	switch {
	case v.typ == Integer && to == Scalar:
		return NewScalar(v.AsFloat()), true
	}
	return Value{}, false
}
