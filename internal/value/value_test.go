package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/meshweave/internal/xform"
	"github.com/zclconf/go-cty/cty"
)

func TestIsAssignable(t *testing.T) {
	testCases := []struct {
		from, to Type
		want     bool
	}{
		{Scalar, Scalar, true},
		{Integer, Scalar, true},
		{Scalar, Integer, false},
		{Mesh, Mesh, true},
		{Mesh, Scalar, false},
		{Scalar, Mesh, false},
		{Enum, Text, false},
		{Text, Enum, false},
		{Vector3, Transform, false},
		{Invalid, Invalid, false},
		{Bool, Integer, false},
	}

	for _, tc := range testCases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, IsAssignable(tc.from, tc.to))
		})
	}
}

func TestParseType(t *testing.T) {
	for typ, name := range typeNames {
		if typ == Invalid {
			continue
		}
		got, err := ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}

	_, err := ParseType("invalid")
	assert.ErrorContains(t, err, "unknown type")
	_, err = ParseType("float")
	assert.ErrorContains(t, err, "unknown type")
}

func TestValue_Accessors(t *testing.T) {
	assert.Equal(t, 2.5, NewScalar(2.5).AsFloat())
	assert.Equal(t, int64(-7), NewInteger(-7).AsInt())
	assert.Equal(t, -7.0, NewInteger(-7).AsFloat())
	assert.True(t, NewBool(true).AsBool())
	assert.Equal(t, xform.Vec3{1, 2, 3}, NewVector(1, 2, 3).AsVector())
	assert.Equal(t, "hello", NewText("hello").AsString())
	assert.Equal(t, "smooth", NewEnum("smooth").AsString())
	assert.Equal(t, MeshHandle(42), NewMeshRef(42).AsMesh())
	assert.True(t, math.IsInf(NewScalar(math.Inf(1)).AsFloat(), 1))

	tr := xform.New(xform.Vec3{1, 0, 0}, xform.Vec3{0, 0.5, 0}, xform.Vec3{2, 2, 2})
	got := NewTransform(tr).AsTransform()
	assert.True(t, tr.ApproxEqual(got, 1e-12))
}

func TestValue_WrongAccessorPanics(t *testing.T) {
	assert.Panics(t, func() { NewText("x").AsFloat() })
	assert.Panics(t, func() { NewScalar(1).AsInt() })
	assert.Panics(t, func() { Value{}.AsMesh() })
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, NewScalar(1).Equal(NewScalar(1)))
	assert.False(t, NewScalar(1).Equal(NewInteger(1)))
	assert.False(t, NewText("a").Equal(NewEnum("a")))
	assert.True(t, NewMeshRef(3).Equal(NewMeshRef(3)))
	assert.False(t, NewMeshRef(3).Equal(NewMeshRef(4)))
	assert.True(t, NewVector(1, 2, 3).Equal(NewVector(1, 2, 3)))
	assert.True(t, Value{}.Equal(Value{}))
}

func TestCoerce(t *testing.T) {
	got, ok := Coerce(NewInteger(3), Scalar)
	require.True(t, ok)
	assert.Equal(t, Scalar, got.Type())
	assert.Equal(t, 3.0, got.AsFloat())

	same, ok := Coerce(NewText("x"), Text)
	require.True(t, ok)
	assert.True(t, same.Equal(NewText("x")))

	_, ok = Coerce(NewScalar(1.5), Integer)
	assert.False(t, ok)
	_, ok = Coerce(NewMeshRef(1), Scalar)
	assert.False(t, ok)
}

func TestFromCty(t *testing.T) {
	testCases := []struct {
		name    string
		in      cty.Value
		typ     Type
		want    Value
		wantErr string
	}{
		{name: "scalar from number", in: cty.NumberFloatVal(2), typ: Scalar, want: NewScalar(2)},
		{name: "scalar from string", in: cty.StringVal("1.5"), typ: Scalar, want: NewScalar(1.5)},
		{name: "integer", in: cty.NumberIntVal(4), typ: Integer, want: NewInteger(4)},
		{name: "integer rejects fraction", in: cty.NumberFloatVal(1.5), typ: Integer, wantErr: "whole number"},
		{name: "bool", in: cty.True, typ: Bool, want: NewBool(true)},
		{name: "text", in: cty.StringVal("hi"), typ: Text, want: NewText("hi")},
		{name: "enum", in: cty.StringVal("quad"), typ: Enum, want: NewEnum("quad")},
		{
			name: "vector from tuple",
			in:   cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2), cty.NumberIntVal(3)}),
			typ:  Vector3,
			want: NewVector(1, 2, 3),
		},
		{
			name: "vector from object",
			in: cty.ObjectVal(map[string]cty.Value{
				"x": cty.NumberIntVal(0), "y": cty.NumberIntVal(1), "z": cty.NumberIntVal(0),
			}),
			typ:  Vector3,
			want: NewVector(0, 1, 0),
		},
		{
			name:    "vector wrong arity",
			in:      cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}),
			typ:     Vector3,
			wantErr: "exactly 3 components",
		},
		{name: "mesh is never a literal", in: cty.StringVal("cube"), typ: Mesh, wantErr: "cannot be written as literals"},
		{name: "null", in: cty.NullVal(cty.Number), typ: Scalar, wantErr: "null"},
		{name: "unknown", in: cty.UnknownVal(cty.Number), typ: Scalar, wantErr: "known at load time"},
		{name: "wrong kind", in: cty.StringVal("abc"), typ: Scalar, wantErr: "scalar literal"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromCty(tc.in, tc.typ)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestFromCty_Transform(t *testing.T) {
	in := cty.ObjectVal(map[string]cty.Value{
		"translation": cty.TupleVal([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2), cty.NumberIntVal(3)}),
		"rotation":    cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.NumberIntVal(0), cty.NumberFloatVal(0.25)}),
	})

	got, err := FromCty(in, Transform)
	require.NoError(t, err)

	tr := got.AsTransform()
	assert.Equal(t, xform.Vec3{1, 2, 3}, tr.Translation())
	assert.Equal(t, xform.Vec3{1, 1, 1}, tr.Scale())
	assert.InDelta(t, 0.25, tr.Rotation()[2], 1e-12)

	_, err = FromCty(cty.ObjectVal(map[string]cty.Value{"skew": cty.NumberIntVal(1)}), Transform)
	assert.ErrorContains(t, err, "unexpected attribute")
}

func TestCtyType(t *testing.T) {
	assert.Equal(t, cty.Number, Scalar.CtyType())
	assert.Equal(t, cty.Number, Integer.CtyType())
	assert.Equal(t, cty.String, Enum.CtyType())
	assert.True(t, Mesh.CtyType().IsCapsuleType())
	assert.True(t, Vector3.CtyType().IsObjectType())
	assert.Equal(t, cty.NilType, Invalid.CtyType())

	for typ := range typeNames {
		if typ == Invalid || typ == Mesh {
			continue
		}
		assert.True(t, typ.CtyType().Equals(typ.CtyType()))
	}
}
