package value

import (
	"fmt"
	"math"

	"github.com/vk/meshweave/internal/xform"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

var vectorListType = cty.List(cty.Number)

// FromCty converts a literal cty value, typically the result of evaluating an
// HCL expression, into a Value of type t.
//
// Vectors are accepted either as three element sequences ([1, 2, 3]) or as
// objects with x, y and z attributes. Transforms are objects with optional
// translation, rotation (XYZ Euler radians) and scale vectors. Mesh values
// are never accepted.
func FromCty(v cty.Value, t Type) (Value, error) {
	if v.IsNull() {
		return Value{}, fmt.Errorf("null is not a valid %s literal", t)
	}
	if !v.IsWhollyKnown() {
		return Value{}, fmt.Errorf("%s literal must be known at load time", t)
	}

	switch t {
	case Scalar:
		f, err := numberOf(v)
		if err != nil {
			return Value{}, err
		}
		if math.IsNaN(f) {
			return Value{}, fmt.Errorf("scalar literal must not be NaN")
		}
		return NewScalar(f), nil
	case Integer:
		n, err := convert.Convert(v, cty.Number)
		if err != nil {
			return Value{}, fmt.Errorf("integer literal: %w", err)
		}
		bf := n.AsBigFloat()
		if !bf.IsInt() {
			return Value{}, fmt.Errorf("integer literal must be a whole number, got %s", bf.Text('g', -1))
		}
		i, _ := bf.Int64()
		return NewInteger(i), nil
	case Bool:
		b, err := convert.Convert(v, cty.Bool)
		if err != nil {
			return Value{}, fmt.Errorf("bool literal: %w", err)
		}
		return NewBool(b.True()), nil
	case Vector3:
		vec, err := vectorFromCty(v)
		if err != nil {
			return Value{}, err
		}
		return NewVector(vec[0], vec[1], vec[2]), nil
	case Transform:
		tr, err := transformFromCty(v)
		if err != nil {
			return Value{}, err
		}
		return NewTransform(tr), nil
	case Text, Enum:
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return Value{}, fmt.Errorf("%s literal: %w", t, err)
		}
		if t == Enum {
			return NewEnum(s.AsString()), nil
		}
		return NewText(s.AsString()), nil
	case Mesh:
		return Value{}, fmt.Errorf("mesh handles cannot be written as literals")
	default:
		return Value{}, fmt.Errorf("cannot decode a literal of type %s", t)
	}
}

func numberOf(v cty.Value) (float64, error) {
	n, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0, fmt.Errorf("scalar literal: %w", err)
	}
	f, _ := n.AsBigFloat().Float64()
	return f, nil
}

func vectorFromCty(v cty.Value) (xform.Vec3, error) {
	ty := v.Type()
	if ty.IsObjectType() {
		obj, err := convert.Convert(v, vectorType)
		if err != nil {
			return xform.Vec3{}, fmt.Errorf("vector literal: %w", err)
		}
		return vectorOf(obj), nil
	}

	list, err := convert.Convert(v, vectorListType)
	if err != nil {
		return xform.Vec3{}, fmt.Errorf("vector literal: %w", err)
	}
	if n := list.LengthInt(); n != 3 {
		return xform.Vec3{}, fmt.Errorf("vector literal must have exactly 3 components, got %d", n)
	}
	var out xform.Vec3
	for i, el := range list.AsValueSlice() {
		if el.IsNull() {
			return xform.Vec3{}, fmt.Errorf("vector component %d is null", i)
		}
		out[i] = floatOf(el)
	}
	return out, nil
}

func transformFromCty(v cty.Value) (xform.Transform, error) {
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return xform.Transform{}, fmt.Errorf("transform literal must be an object with translation, rotation and scale")
	}

	attrs := v.AsValueMap()
	for name := range attrs {
		switch name {
		case "translation", "rotation", "scale":
		default:
			return xform.Transform{}, fmt.Errorf("transform literal has unexpected attribute %q", name)
		}
	}

	translation, rotation, scale := xform.Vec3{}, xform.Vec3{}, xform.Vec3{1, 1, 1}
	parts := []struct {
		name string
		dst  *xform.Vec3
	}{
		{"translation", &translation},
		{"rotation", &rotation},
		{"scale", &scale},
	}
	for _, p := range parts {
		raw, ok := attrs[p.name]
		if !ok {
			continue
		}
		vec, err := vectorFromCty(raw)
		if err != nil {
			return xform.Transform{}, fmt.Errorf("transform %s: %w", p.name, err)
		}
		*p.dst = vec
	}
	return xform.New(translation, rotation, scale), nil
}
