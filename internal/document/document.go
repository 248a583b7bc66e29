package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/meshweave/internal/ctxlog"
	"github.com/vk/meshweave/internal/diag"
	"github.com/vk/meshweave/internal/graph"
	"github.com/vk/meshweave/internal/registry"
	"github.com/vk/meshweave/internal/value"
)

// Output is a named output declaration.
type Output struct {
	Name string
	Ref  graph.OutputRef
}

// Document is a graph loaded from a file, together with the names and
// source locations needed to report problems against that file.
type Document struct {
	Path    string
	Graph   *graph.Graph
	Outputs []Output

	ids     map[string]graph.NodeID
	names   map[graph.NodeID]string
	ranges  map[graph.NodeID]hcl.Range
	outputs map[string]hcl.Range
}

// NodeID returns the id of the node declared under name.
func (d *Document) NodeID(name string) (graph.NodeID, bool) {
	id, ok := d.ids[name]
	return id, ok
}

// NameOf returns the declared name of a node, or its id as text.
func (d *Document) NameOf(id graph.NodeID) string {
	if name, ok := d.names[id]; ok {
		return name
	}
	return id.String()
}

// Diagnostic converts a compile error into a diagnostic that points at the
// block of the first node the error names.
func (d *Document) Diagnostic(err error) *hcl.Diagnostic {
	var subject *hcl.Range
	var de *diag.Error
	if errors.As(err, &de) {
		ids := de.Nodes
		if len(ids) == 0 {
			ids = de.Cycle
		}
		if len(ids) > 0 {
			if rng, ok := d.ranges[graph.NodeID(ids[0])]; ok {
				subject = &rng
			}
		}
	}
	return diag.ToHCL(err, subject)
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "node", LabelNames: []string{"op", "name"}},
		{Type: "output", LabelNames: []string{"name"}},
	},
}

var outputSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "value", Required: true},
	},
}

// Load reads the document at path and builds its graph against reg. All
// problems found in the file are returned together as hcl.Diagnostics.
func Load(ctx context.Context, reg *registry.Registry, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading graph document.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, diags
	}

	doc, diags := Decode(file, reg, path)
	if diags.HasErrors() {
		logger.Debug("Graph document is invalid.", "path", path, "errors", len(diags.Errs()))
		return nil, diags
	}

	logger.Debug("Graph document loaded.", "path", path, "nodes", doc.Graph.Len(), "outputs", len(doc.Outputs))
	return doc, nil
}

// Decode builds a document from an already parsed file.
func Decode(file *hcl.File, reg *registry.Registry, path string) (*Document, hcl.Diagnostics) {
	var allDiags hcl.Diagnostics

	content, diags := file.Body.Content(rootSchema)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	doc := &Document{
		Path:    path,
		Graph:   graph.New(reg),
		ids:     make(map[string]graph.NodeID),
		names:   make(map[graph.NodeID]string),
		ranges:  make(map[graph.NodeID]hcl.Range),
		outputs: make(map[string]hcl.Range),
	}

	// Nodes are created before any binding so references may point forward.
	type pending struct {
		id    graph.NodeID
		attrs hcl.Attributes
	}
	var nodes []pending

	for _, block := range content.Blocks.OfType("node") {
		op, name := block.Labels[0], block.Labels[1]
		if prev, exists := doc.ids[name]; exists {
			allDiags = append(allDiags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate node name",
				Detail:   fmt.Sprintf("A node named '%s' was already declared at %s.", name, doc.ranges[prev]),
				Subject:  block.DefRange.Ptr(),
			})
			continue
		}

		attrs, diags := block.Body.JustAttributes()
		allDiags = append(allDiags, diags...)
		if diags.HasErrors() {
			continue
		}

		id, err := doc.Graph.AddNode(op, nil)
		if err != nil {
			allDiags = append(allDiags, diag.ToHCL(err, block.LabelRanges[0].Ptr()))
			continue
		}
		doc.ids[name] = id
		doc.names[id] = name
		doc.ranges[id] = block.DefRange
		nodes = append(nodes, pending{id: id, attrs: attrs})
	}

	for _, n := range nodes {
		allDiags = append(allDiags, doc.bindInputs(n.id, n.attrs)...)
	}

	for _, block := range content.Blocks.OfType("output") {
		allDiags = append(allDiags, doc.addOutput(block)...)
	}

	return doc, allDiags
}

// bindInputs applies the attributes of one node block in source order.
func (d *Document) bindInputs(id graph.NodeID, attrs hcl.Attributes) hcl.Diagnostics {
	var diags hcl.Diagnostics

	sig, err := d.Graph.Signature(id)
	if err != nil {
		return hcl.Diagnostics{diag.ToHCL(err, d.ranges[id].Ptr())}
	}

	for _, attr := range sortedAttributes(attrs) {
		slot, _, ok := sig.Input(attr.Name)
		if !ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported argument",
				Detail:   fmt.Sprintf("Operation '%s' has no input named '%s'. Inputs are %v.", sig.Op, attr.Name, sig.InputNames()),
				Subject:  attr.NameRange.Ptr(),
			})
			continue
		}

		if len(attr.Expr.Variables()) > 0 {
			src, srcSlot, refDiags := d.resolveRef(attr.Expr)
			diags = append(diags, refDiags...)
			if refDiags.HasErrors() {
				continue
			}
			if err := d.Graph.Connect(src, srcSlot, id, slot.Name); err != nil {
				diags = append(diags, diag.ToHCL(err, attr.Expr.Range().Ptr()))
			}
			continue
		}

		raw, valDiags := attr.Expr.Value(nil)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			continue
		}
		v, err := value.FromCty(raw, slot.Type)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid literal",
				Detail:   fmt.Sprintf("Input '%s' of '%s' expects %s: %s.", slot.Name, sig.Op, slot.Type, err),
				Subject:  attr.Expr.Range().Ptr(),
			})
			continue
		}
		if err := d.Graph.SetLiteral(id, slot.Name, v); err != nil {
			diags = append(diags, diag.ToHCL(err, attr.Expr.Range().Ptr()))
		}
	}
	return diags
}

func (d *Document) addOutput(block *hcl.Block) hcl.Diagnostics {
	name := block.Labels[0]
	if prev, exists := d.outputs[name]; exists {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Duplicate output name",
			Detail:   fmt.Sprintf("An output named '%s' was already declared at %s.", name, prev),
			Subject:  block.DefRange.Ptr(),
		}}
	}
	d.outputs[name] = block.DefRange

	content, diags := block.Body.Content(outputSchema)
	if diags.HasErrors() {
		return diags
	}
	expr := content.Attributes["value"].Expr

	id, slot, refDiags := d.resolveRef(expr)
	diags = append(diags, refDiags...)
	if refDiags.HasErrors() {
		return diags
	}
	if err := d.Graph.MarkOutput(id, slot); err != nil {
		return append(diags, diag.ToHCL(err, expr.Range().Ptr()))
	}
	d.Outputs = append(d.Outputs, Output{Name: name, Ref: graph.OutputRef{Node: id, Slot: slot}})
	return diags
}

// resolveRef interprets expr as a node.<name>.<slot> reference.
func (d *Document) resolveRef(expr hcl.Expression) (graph.NodeID, string, hcl.Diagnostics) {
	invalid := func(detail string) hcl.Diagnostics {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid reference",
			Detail:   detail,
			Subject:  expr.Range().Ptr(),
		}}
	}

	traversal, travDiags := hcl.AbsTraversalForExpr(expr)
	if travDiags.HasErrors() {
		return 0, "", invalid("Connections must be a plain reference of the form node.<name>.<slot>; expressions combining references are not supported.")
	}
	if len(traversal) != 3 || traversal.RootName() != "node" {
		return 0, "", invalid("A reference must have the form node.<name>.<slot>.")
	}
	nameAttr, nameOK := traversal[1].(hcl.TraverseAttr)
	slotAttr, slotOK := traversal[2].(hcl.TraverseAttr)
	if !nameOK || !slotOK {
		return 0, "", invalid("A reference must have the form node.<name>.<slot>.")
	}

	id, ok := d.ids[nameAttr.Name]
	if !ok {
		return 0, "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Reference to undeclared node",
			Detail:   fmt.Sprintf("No node named '%s' is declared in this document.", nameAttr.Name),
			Subject:  traversal.SourceRange().Ptr(),
		}}
	}
	return id, slotAttr.Name, nil
}

// sortedAttributes orders attributes by their position in the file so that
// diagnostics come out in reading order.
func sortedAttributes(attrs hcl.Attributes) []*hcl.Attribute {
	list := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Range.Start.Byte < list[j].Range.Start.Byte
	})
	return list
}

// WriteDiagnostics writes diags to w with source snippets from the files
// they refer to.
func WriteDiagnostics(w io.Writer, diags hcl.Diagnostics) error {
	parser := hclparse.NewParser()
	seen := make(map[string]bool)
	for _, d := range diags {
		if d.Subject == nil || seen[d.Subject.Filename] {
			continue
		}
		seen[d.Subject.Filename] = true
		// Files that fail to parse still contribute their bytes.
		_, _ = parser.ParseHCLFile(d.Subject.Filename)
	}
	return hcl.NewDiagnosticTextWriter(w, parser.Files(), 0, false).WriteDiagnostics(diags)
}
