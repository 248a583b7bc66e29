package document

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/meshweave/internal/compiler"
	"github.com/vk/meshweave/internal/graph"
	"github.com/vk/meshweave/internal/registry"
	"github.com/vk/meshweave/internal/value"
)

func decode(t *testing.T, src string) (*Document, hcl.Diagnostics) {
	t.Helper()
	file, diags := hclparse.NewParser().ParseHCL([]byte(src), "test.hcl")
	require.False(t, diags.HasErrors(), diags.Error())
	return Decode(file, registry.NewWithBuiltins(), "test.hcl")
}

const pipeline = `
output "mesh" {
  value = node.top.out_mesh
}

node "extrude" "top" {
  in_mesh = node.base.out_mesh
  faces   = "top"
  amount  = 1
}

node "make_cube" "base" {
  size   = 2.5
  origin = [0, 1, 0]
}

node "subdivide" "smooth" {
  in_mesh   = node.top.out_mesh
  technique = "linear"
}

output "faces" {
  value = node.stats.num_faces
}

node "mesh_stats" "stats" {
  in_mesh = node.base.out_mesh
}
`

func TestDecode(t *testing.T) {
	doc, diags := decode(t, pipeline)
	require.False(t, diags.HasErrors(), diags.Error())

	assert.Equal(t, 4, doc.Graph.Len())
	top, ok := doc.NodeID("top")
	require.True(t, ok)
	base, _ := doc.NodeID("base")
	stats, _ := doc.NodeID("stats")
	assert.Equal(t, "base", doc.NameOf(base))
	assert.Equal(t, "99", doc.NameOf(99))

	n, _ := doc.Graph.Node(top)
	assert.Equal(t, graph.Connection{Node: base, Slot: "out_mesh"}, n.Inputs["in_mesh"])
	amount := n.Inputs["amount"].(graph.Literal).Value
	assert.Equal(t, value.Scalar, amount.Type())
	assert.Equal(t, 1.0, amount.AsFloat())

	cube, _ := doc.Graph.Node(base)
	assert.True(t, value.NewVector(0, 1, 0).Equal(cube.Inputs["origin"].(graph.Literal).Value))

	assert.Equal(t, []Output{
		{Name: "mesh", Ref: graph.OutputRef{Node: top, Slot: "out_mesh"}},
		{Name: "faces", Ref: graph.OutputRef{Node: stats, Slot: "num_faces"}},
	}, doc.Outputs)

	prog, err := compiler.Compile(context.Background(), doc.Graph)
	require.NoError(t, err)
	assert.Equal(t,
		"local make_cube_2 = ops.make_cube(2.5, vector(0.0, 1.0, 0.0))\n"+
			"local extrude_1 = ops.extrude(make_cube_2, \"top\", 1.0)\n"+
			"local mesh_stats_4 = ops.mesh_stats(make_cube_2)\n"+
			"return { extrude_1, mesh_stats_4[2] }\n",
		prog.Source())
}

func TestDecode_TransformLiteral(t *testing.T) {
	doc, diags := decode(t, `
node "make_cube" "c" {}

node "transform" "moved" {
  in_mesh   = node.c.out_mesh
  transform = {
    translation = [1, 2, 3]
    scale       = [2, 2, 2]
  }
}
`)
	require.False(t, diags.HasErrors(), diags.Error())

	id, _ := doc.NodeID("moved")
	n, _ := doc.Graph.Node(id)
	tr := n.Inputs["transform"].(graph.Literal).Value.AsTransform()
	assert.Equal(t, [3]float64{1, 2, 3}, [3]float64(tr.Translation()))
	assert.Equal(t, [3]float64{2, 2, 2}, [3]float64(tr.Scale()))
}

func TestDecode_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		src         string
		wantSummary string
	}{
		{
			name:        "unknown operation",
			src:         `node "explode" "x" {}`,
			wantSummary: "InvalidSignature",
		},
		{
			name:        "unsupported argument",
			src:         `node "make_cube" "x" { depth = 1 }`,
			wantSummary: "Unsupported argument",
		},
		{
			name:        "undeclared node",
			src:         `node "extrude" "x" { in_mesh = node.nope.out_mesh }`,
			wantSummary: "Reference to undeclared node",
		},
		{
			name:        "short reference",
			src:         "node \"make_cube\" \"a\" {}\nnode \"extrude\" \"x\" { in_mesh = node.a }",
			wantSummary: "Invalid reference",
		},
		{
			name:        "computed reference",
			src:         "node \"add\" \"a\" {}\nnode \"add\" \"x\" { a = node.a.result + 1 }",
			wantSummary: "Invalid reference",
		},
		{
			name:        "unknown output slot",
			src:         "node \"make_cube\" \"a\" {}\nnode \"extrude\" \"x\" { in_mesh = node.a.mesh }",
			wantSummary: "UnknownSlot",
		},
		{
			name:        "connection type mismatch",
			src:         "node \"make_cube\" \"a\" {}\nnode \"add\" \"x\" { a = node.a.out_mesh }",
			wantSummary: "TypeMismatch",
		},
		{
			name:        "literal of wrong type",
			src:         `node "make_cube" "x" { size = "large" }`,
			wantSummary: "Invalid literal",
		},
		{
			name:        "enum outside options",
			src:         "node \"make_cube\" \"a\" {}\nnode \"subdivide\" \"x\" {\n in_mesh = node.a.out_mesh\n technique = \"loop\"\n}",
			wantSummary: "TypeMismatch",
		},
		{
			name:        "duplicate name",
			src:         "node \"make_cube\" \"a\" {}\nnode \"make_quad\" \"a\" {}",
			wantSummary: "Duplicate node name",
		},
		{
			name:        "output to input slot",
			src:         "node \"make_cube\" \"a\" {}\noutput \"o\" { value = node.a.size }",
			wantSummary: "UnknownSlot",
		},
		{
			name:        "duplicate output name",
			src:         "node \"add\" \"s\" {\n  a = 1\n  b = 2\n}\noutput \"o\" { value = node.s.result }\noutput \"o\" { value = node.s.result }",
			wantSummary: "Duplicate output name",
		},
		{
			name:        "output without value",
			src:         `output "o" {}`,
			wantSummary: "Missing required argument",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, diags := decode(t, tc.src)
			require.True(t, diags.HasErrors())
			assert.Equal(t, tc.wantSummary, diags.Errs()[0].(*hcl.Diagnostic).Summary, diags.Error())
		})
	}
}

func TestDecode_ReportsAllProblems(t *testing.T) {
	_, diags := decode(t, `
node "make_cube" "a" {
  size  = "large"
  depth = 3
}

node "extrude" "b" {
  in_mesh = node.missing.out_mesh
}
`)
	assert.Len(t, diags.Errs(), 3)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.hcl")
	require.NoError(t, os.WriteFile(path, []byte(pipeline), 0644))

	doc, err := Load(context.Background(), registry.NewWithBuiltins(), path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)
	assert.Len(t, doc.Outputs, 2)

	_, err = Load(context.Background(), registry.NewWithBuiltins(), filepath.Join(dir, "missing.hcl"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.hcl")
	require.NoError(t, os.WriteFile(bad, []byte(`node "make_cube" {`), 0644))
	_, err = Load(context.Background(), registry.NewWithBuiltins(), bad)
	assert.Error(t, err)
}

func TestDiagnostic_PointsAtNode(t *testing.T) {
	doc, diags := decode(t, `
node "make_cube" "base" {}

node "extrude" "top" {
  amount = 2
}

output "mesh" {
  value = node.top.out_mesh
}
`)
	require.False(t, diags.HasErrors(), diags.Error())

	_, err := compiler.Compile(context.Background(), doc.Graph)
	require.Error(t, err)

	d := doc.Diagnostic(err)
	assert.Equal(t, "UnresolvedRequiredInput", d.Summary)
	require.NotNil(t, d.Subject)
	assert.Equal(t, 4, d.Subject.Start.Line)
	assert.Equal(t, "test.hcl", d.Subject.Filename)
}

func TestDiagnostic_PlainError(t *testing.T) {
	doc, diags := decode(t, `node "make_cube" "base" {}`)
	require.False(t, diags.HasErrors())

	d := doc.Diagnostic(assert.AnError)
	assert.Equal(t, "Graph error", d.Summary)
	assert.Nil(t, d.Subject)
}

func TestDecode_DuplicateOutputKeepsFirst(t *testing.T) {
	doc, diags := decode(t, `
node "add" "s" {
  a = 1
  b = 2
}

output "o" {
  value = node.s.result
}

output "o" {
  value = node.s.result
}
`)
	require.Len(t, diags.Errs(), 1)
	assert.Contains(t, diags.Errs()[0].Error(), "already declared at test.hcl:7")
	require.Len(t, doc.Outputs, 1)
	assert.Equal(t, "o", doc.Outputs[0].Name)
}
