package emitter

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/meshweave/internal/diag"
	"github.com/vk/meshweave/internal/graph"
	"github.com/vk/meshweave/internal/registry"
	"github.com/vk/meshweave/internal/resolver"
	"github.com/vk/meshweave/internal/value"
)

var valueComparer = cmp.Comparer(func(a, b value.Value) bool { return a.Equal(b) })

func newGraph(t *testing.T) *graph.Graph {
	t.Helper()
	return graph.New(registry.NewWithBuiltins())
}

func add(t *testing.T, g *graph.Graph, op string, inputs map[string]graph.Binding) graph.NodeID {
	t.Helper()
	id, err := g.AddNode(op, inputs)
	require.NoError(t, err)
	return id
}

func emit(t *testing.T, g *graph.Graph, opts Options) (*Program, error) {
	t.Helper()
	ctx := context.Background()
	plan, err := resolver.Resolve(ctx, g)
	require.NoError(t, err)
	return Emit(ctx, g, plan, opts)
}

func TestEmit_LiteralRoundTrip(t *testing.T) {
	g := newGraph(t)
	cube := add(t, g, "make_cube", map[string]graph.Binding{"size": graph.Literal{Value: value.NewScalar(2.0)}})
	require.NoError(t, g.MarkOutput(cube, "out_mesh"))

	prog, err := emit(t, g, Options{})
	require.NoError(t, err)

	want := &Program{
		Library: "ops",
		Statements: []Statement{{
			Node:    cube,
			Op:      "make_cube",
			Binding: "make_cube_1",
			Args: []Arg{
				{Slot: "size", Kind: ArgLiteral, Value: value.NewScalar(2)},
				{Slot: "origin", Kind: ArgLiteral, Value: value.NewVector(0, 0, 0), Defaulted: true},
			},
			Outputs: []string{"out_mesh"},
		}},
		Results: []Result{{Node: cube, Slot: "out_mesh", Ref: "make_cube_1"}},
	}
	if diff := cmp.Diff(want, prog, valueComparer); diff != "" {
		t.Errorf("program mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "2.0", prog.Statements[0].Args[0].Expr())
	assert.Equal(t,
		"local make_cube_1 = ops.make_cube(2.0, vector(0.0, 0.0, 0.0))\n"+
			"return { make_cube_1 }\n",
		prog.Source())
}

func TestEmit_FanOutSharesBinding(t *testing.T) {
	g := newGraph(t)
	cube := add(t, g, "make_cube", nil)
	left := add(t, g, "extrude", map[string]graph.Binding{"in_mesh": graph.Connection{Node: cube, Slot: "out_mesh"}})
	right := add(t, g, "subdivide", map[string]graph.Binding{"in_mesh": graph.Connection{Node: cube, Slot: "out_mesh"}})
	merge := add(t, g, "merge", map[string]graph.Binding{
		"a": graph.Connection{Node: left, Slot: "out_mesh"},
		"b": graph.Connection{Node: right, Slot: "out_mesh"},
	})
	require.NoError(t, g.MarkOutput(merge, "out_mesh"))

	prog, err := emit(t, g, Options{})
	require.NoError(t, err)
	require.Len(t, prog.Statements, 4)

	cubeCalls := 0
	for _, st := range prog.Statements {
		if st.Op == "make_cube" {
			cubeCalls++
		}
	}
	assert.Equal(t, 1, cubeCalls)

	l, _ := prog.Statement(left)
	r, _ := prog.Statement(right)
	assert.Equal(t, "make_cube_1", l.Args[0].Expr())
	assert.Equal(t, "make_cube_1", r.Args[0].Expr())

	assert.Equal(t,
		"local make_cube_1 = ops.make_cube(1.0, vector(0.0, 0.0, 0.0))\n"+
			"local extrude_2 = ops.extrude(make_cube_1, \"*\", 1.0)\n"+
			"local subdivide_3 = ops.subdivide(make_cube_1, \"catmull_clark\", 1)\n"+
			"local merge_4 = ops.merge(extrude_2, subdivide_3)\n"+
			"return { merge_4 }\n",
		prog.Source())
}

func TestEmit_UnreachableNodesAbsent(t *testing.T) {
	g := newGraph(t)
	cube := add(t, g, "make_cube", nil)
	orphan := add(t, g, "make_circle", nil)
	require.NoError(t, g.MarkOutput(cube, "out_mesh"))

	prog, err := emit(t, g, Options{})
	require.NoError(t, err)

	_, ok := prog.Statement(orphan)
	assert.False(t, ok)
	assert.NotContains(t, prog.Source(), "make_circle")
}

func TestEmit_MultiOutputIndexing(t *testing.T) {
	g := newGraph(t)
	cube := add(t, g, "make_cube", nil)
	stats := add(t, g, "mesh_stats", map[string]graph.Binding{"in_mesh": graph.Connection{Node: cube, Slot: "out_mesh"}})
	sum := add(t, g, "add", map[string]graph.Binding{
		"a": graph.Connection{Node: stats, Slot: "num_faces"},
		"b": graph.Literal{Value: value.NewInteger(1)},
	})
	require.NoError(t, g.MarkOutput(sum, "result"))
	require.NoError(t, g.MarkOutput(stats, "num_vertices"))

	prog, err := emit(t, g, Options{})
	require.NoError(t, err)

	assert.Equal(t,
		"local make_cube_1 = ops.make_cube(1.0, vector(0.0, 0.0, 0.0))\n"+
			"local mesh_stats_2 = ops.mesh_stats(make_cube_1)\n"+
			"local add_3 = ops.add(mesh_stats_2[2], 1.0)\n"+
			"return { add_3, mesh_stats_2[1] }\n",
		prog.Source())

	assert.Equal(t, []Result{
		{Node: sum, Slot: "result", Ref: "add_3"},
		{Node: stats, Slot: "num_vertices", Ref: "mesh_stats_2", Index: 1},
	}, prog.Results)
}

func TestEmit_UnboundInputs(t *testing.T) {
	g := newGraph(t)
	cube := add(t, g, "make_cube", nil)
	bevel := add(t, g, "bevel", map[string]graph.Binding{"in_mesh": graph.Connection{Node: cube, Slot: "out_mesh"}})
	require.NoError(t, g.MarkOutput(bevel, "out_mesh"))

	prog, err := emit(t, g, Options{})
	require.NoError(t, err)

	st, ok := prog.Statement(bevel)
	require.True(t, ok)
	require.Len(t, st.Args, 5)
	assert.Equal(t, ArgRef, st.Args[0].Kind)
	assert.True(t, st.Args[2].Defaulted)
	assert.Equal(t, ArgNil, st.Args[4].Kind)
	assert.Contains(t, prog.Source(), `local bevel_2 = ops.bevel(make_cube_1, "*", 0.1, 1, nil)`)
}

func TestEmit_UnresolvedRequiredInput(t *testing.T) {
	g := newGraph(t)
	ext := add(t, g, "extrude", map[string]graph.Binding{"amount": graph.Literal{Value: value.NewScalar(2)}})
	require.NoError(t, g.MarkOutput(ext, "out_mesh"))

	prog, err := emit(t, g, Options{})
	assert.Nil(t, prog)
	require.ErrorIs(t, err, diag.ErrUnresolvedRequiredInput)

	var de *diag.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []int64{int64(ext)}, de.Nodes)
	assert.Equal(t, []string{"in_mesh"}, de.Slots)
	assert.Equal(t, "extrude", de.Op)
}

func TestEmit_UnresolvedInputOfDeadNodeIsIgnored(t *testing.T) {
	g := newGraph(t)
	add(t, g, "extrude", nil)
	cube := add(t, g, "make_cube", nil)
	require.NoError(t, g.MarkOutput(cube, "out_mesh"))

	_, err := emit(t, g, Options{})
	assert.NoError(t, err)
}

func TestEmit_EmptyProgram(t *testing.T) {
	g := newGraph(t)
	add(t, g, "make_cube", nil)

	prog, err := emit(t, g, Options{})
	require.NoError(t, err)
	assert.Empty(t, prog.Statements)
	assert.Empty(t, prog.Results)
	assert.Equal(t, "return {}\n", prog.Source())
}

func TestEmit_Library(t *testing.T) {
	g := newGraph(t)
	v := add(t, g, "make_vector", map[string]graph.Binding{"x": graph.Literal{Value: value.NewScalar(1)}})
	require.NoError(t, g.MarkOutput(v, "v"))

	prog, err := emit(t, g, Options{Library: "mesh"})
	require.NoError(t, err)
	assert.Equal(t, "local make_vector_1 = mesh.make_vector(1.0, 0.0, 0.0)\nreturn { make_vector_1 }\n", prog.Source())

	_, err = emit(t, g, Options{Library: "not valid"})
	assert.ErrorContains(t, err, "not a valid Lua identifier")
}

func TestEmit_TransformAndEnumLiterals(t *testing.T) {
	g := newGraph(t)
	cube := add(t, g, "make_cube", nil)
	sub := add(t, g, "subdivide", map[string]graph.Binding{
		"in_mesh":   graph.Connection{Node: cube, Slot: "out_mesh"},
		"technique": graph.Literal{Value: value.NewEnum("linear")},
	})
	exp := add(t, g, "export", map[string]graph.Binding{
		"in_mesh": graph.Connection{Node: sub, Slot: "out_mesh"},
		"path":    graph.Literal{Value: value.NewText("out/cube.obj")},
	})
	require.NoError(t, g.MarkOutput(exp, "out_mesh"))

	prog, err := emit(t, g, Options{})
	require.NoError(t, err)
	assert.Contains(t, prog.Source(), `local subdivide_2 = ops.subdivide(make_cube_1, "linear", 1)`)
	assert.Contains(t, prog.Source(), `local export_3 = ops.export(subdivide_2, "out/cube.obj", "obj")`)
}

func TestBindingName(t *testing.T) {
	assert.Equal(t, "make_cube_4", BindingName("make_cube", 4))
	assert.Equal(t, "my_op_v2_10", BindingName("my-op.v2", 10))
	assert.Equal(t, "_3d_1", BindingName("3d", 1))
}

// chain builds n add nodes, each adding 1 to the previous result, and
// marks the last one as output.
func chain(t *testing.T, g *graph.Graph, n int) graph.NodeID {
	t.Helper()
	one := graph.Literal{Value: value.NewScalar(1)}
	prev := add(t, g, "add", map[string]graph.Binding{"a": one, "b": one})
	for i := 1; i < n; i++ {
		prev = add(t, g, "add", map[string]graph.Binding{
			"a": graph.Connection{Node: prev, Slot: "result"},
			"b": one,
		})
	}
	require.NoError(t, g.MarkOutput(prev, "result"))
	return prev
}

func TestEmit_SpillsPastMaxLocals(t *testing.T) {
	g := newGraph(t)
	last := chain(t, g, 300)
	split := add(t, g, "split_vector", map[string]graph.Binding{
		"v": graph.Literal{Value: value.NewVector(1, 2, 3)},
	})
	require.NoError(t, g.MarkOutput(split, "y"))

	prog, err := emit(t, g, Options{})
	require.NoError(t, err)
	require.Len(t, prog.Statements, 301)
	assert.Equal(t, "nodes", prog.Spill)

	for i, st := range prog.Statements {
		assert.Equal(t, i >= MaxLocals, st.Spilled, "statement %d", i)
	}
	assert.Equal(t, "add_120", prog.Statements[MaxLocals-1].Binding)
	assert.Equal(t, "nodes[1]", prog.Statements[MaxLocals].Binding)
	assert.Equal(t, "add_120", prog.Statements[MaxLocals].Args[0].Expr())

	src := prog.Source()
	assert.Equal(t, MaxLocals+1, strings.Count(src, "local "), "one local per early statement plus the spill table")
	assert.Contains(t, src, "local nodes = {}\nnodes[1] = ops.add(add_120, 1.0)\n")
	assert.Contains(t, src, "nodes[2] = ops.add(nodes[1], 1.0)\n")
	assert.Contains(t, src, "nodes[181] = ops.split_vector(vector(1.0, 2.0, 3.0))\n")
	assert.True(t, strings.HasSuffix(src, "return { nodes[180], nodes[181][2] }\n"))

	st, ok := prog.Statement(last)
	require.True(t, ok)
	assert.Equal(t, "nodes[180]", st.Binding)
}

func TestEmit_SpillTableAvoidsLibraryName(t *testing.T) {
	g := newGraph(t)
	chain(t, g, MaxLocals+1)

	prog, err := emit(t, g, Options{Library: "nodes"})
	require.NoError(t, err)
	assert.Equal(t, "nodes_", prog.Spill)
	assert.Contains(t, prog.Source(), "nodes_[1] = nodes.add(add_120, 1.0)\n")
}

func TestEmit_NoSpillAtMaxLocals(t *testing.T) {
	g := newGraph(t)
	chain(t, g, MaxLocals)

	prog, err := emit(t, g, Options{})
	require.NoError(t, err)
	assert.Empty(t, prog.Spill)
	assert.NotContains(t, prog.Source(), "nodes")
}
