package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/meshweave/internal/ctxlog"
	"github.com/vk/meshweave/internal/fsutil"
	"github.com/vk/meshweave/internal/value"
)

// LoadManifests parses every .hcl file under manifestsPath and registers the
// operations they declare. Signatures are validated before registration; no
// operation from a failing file is registered.
func (r *Registry) LoadManifests(ctx context.Context, manifestsPath string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading operation manifests...", "path", manifestsPath)

	filePaths, err := fsutil.FindFilesByExtension(manifestsPath, ".hcl")
	if err != nil {
		logger.Error("Failed to walk manifests directory", "path", manifestsPath, "error", err)
		return err
	}

	if len(filePaths) == 0 {
		logger.Warn("No .hcl manifest files found in path", "path", manifestsPath)
		return nil
	}

	logger.Debug("Found HCL files to load", "files", filePaths)

	parser := hclparse.NewParser()
	loaded := 0
	for _, filePath := range filePaths {
		hclFile, diags := parser.ParseHCLFile(filePath)
		if diags.HasErrors() {
			return fmt.Errorf("failed to parse HCL file %s: %w", filePath, diags)
		}

		sigs, diags := ParseManifest(hclFile, filePath)
		if diags.HasErrors() {
			return fmt.Errorf("failed to process operation manifest %s: %w", filePath, diags)
		}
		for _, sig := range sigs {
			if err := ValidateSignature(sig); err != nil {
				return fmt.Errorf("invalid operation in %s: %w", filePath, err)
			}
		}
		for _, sig := range sigs {
			if err := r.Register(sig); err != nil {
				return fmt.Errorf("%s: %w", filePath, err)
			}
		}
		loaded += len(sigs)
		logger.Debug("Successfully loaded operations from HCL file", "file", filePath, "count", len(sigs))
	}

	logger.Info("Operation manifests loaded.", "operations_loaded", loaded)
	return nil
}

// manifestRootSchema defines the top-level structure of a manifest file.
type manifestRootSchema struct {
	Operations []*hclOperation `hcl:"operation,block"`
}

// hclOperation is a single 'operation' block for decoding purposes.
type hclOperation struct {
	Op   string   `hcl:"op,label"`
	Body hcl.Body `hcl:",remain"`
}

var operationBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "input", LabelNames: []string{"name"}},
		{Type: "output", LabelNames: []string{"name"}},
	},
}

var inputBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		// `type` is required, but we check for its existence manually
		// to provide a better error message.
		{Name: "type"},
		{Name: "description"},
		{Name: "default"},
		{Name: "optional"},
		{Name: "options"},
	},
}

var outputBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "type", Required: true},
		{Name: "description"},
	},
}

// ParseManifest decodes the 'operation' blocks of one manifest file. Slots
// keep the order in which their blocks appear in the file.
func ParseManifest(hclFile *hcl.File, filePath string) ([]*Signature, hcl.Diagnostics) {
	var allDiags hcl.Diagnostics
	if hclFile == nil {
		allDiags = append(allDiags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "HCL file is nil",
		})
		return nil, allDiags
	}

	root := &manifestRootSchema{}
	diags := gohcl.DecodeBody(hclFile.Body, nil, root)
	allDiags = append(allDiags, diags...)
	if diags.HasErrors() {
		return nil, allDiags
	}

	sigs := make([]*Signature, 0, len(root.Operations))
	for _, parsed := range root.Operations {
		content, contentDiags := parsed.Body.Content(operationBodySchema)
		allDiags = append(allDiags, contentDiags...)
		if contentDiags.HasErrors() {
			continue // Skip this operation but continue parsing others
		}

		sig := &Signature{Op: parsed.Op, Kind: Host, Source: filePath}

		if attr, exists := content.Attributes["description"]; exists {
			allDiags = append(allDiags, gohcl.DecodeExpression(attr.Expr, nil, &sig.Description)...)
		}

		var slotDiags hcl.Diagnostics
		sig.Inputs, slotDiags = parseInputs(content.Blocks.OfType("input"))
		allDiags = append(allDiags, slotDiags...)

		sig.Outputs, slotDiags = parseOutputs(content.Blocks.OfType("output"))
		allDiags = append(allDiags, slotDiags...)

		sigs = append(sigs, sig)
	}

	if allDiags.HasErrors() {
		return nil, allDiags
	}
	return sigs, allDiags
}

func parseInputs(blocks hcl.Blocks) ([]Slot, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	slots := make([]Slot, 0, len(blocks))
	seen := make(map[string]bool)

	for _, block := range blocks {
		name := block.Labels[0]
		if seen[name] {
			diags = append(diags, duplicateSlotDiag("input", name, block))
			continue
		}
		seen[name] = true

		content, contentDiags := block.Body.Content(inputBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}

		typeAttr, exists := content.Attributes["type"]
		if !exists {
			missing := block.Body.MissingItemRange()
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Missing 'type' attribute",
				Detail:   "The 'type' attribute is required for all input blocks.",
				Subject:  &missing,
			})
			continue
		}
		typ, typeDiags := typeFromExpr(typeAttr.Expr)
		diags = append(diags, typeDiags...)
		if typeDiags.HasErrors() {
			continue
		}

		slot := Slot{Name: name, Type: typ}
		if attr, ok := content.Attributes["description"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &slot.Description)...)
		}
		if attr, ok := content.Attributes["optional"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &slot.Optional)...)
		}
		if attr, ok := content.Attributes["options"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &slot.Options)...)
		}
		if attr, ok := content.Attributes["default"]; ok {
			// A nil eval context is used because defaults must be literal values.
			raw, valDiags := attr.Expr.Value(nil)
			diags = append(diags, valDiags...)
			if valDiags.HasErrors() {
				continue
			}
			def, err := value.FromCty(raw, typ)
			if err != nil {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid default value",
					Detail:   fmt.Sprintf("The default value for '%s' is not a valid %s: %s.", name, typ, err),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
			slot.Default = &def
		}

		slots = append(slots, slot)
	}
	return slots, diags
}

func parseOutputs(blocks hcl.Blocks) ([]Slot, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	slots := make([]Slot, 0, len(blocks))
	seen := make(map[string]bool)

	for _, block := range blocks {
		name := block.Labels[0]
		if seen[name] {
			diags = append(diags, duplicateSlotDiag("output", name, block))
			continue
		}
		seen[name] = true

		content, contentDiags := block.Body.Content(outputBodySchema)
		diags = append(diags, contentDiags...)
		if contentDiags.HasErrors() {
			continue
		}

		// The schema enforces that 'type' is required, so we can safely access it.
		typ, typeDiags := typeFromExpr(content.Attributes["type"].Expr)
		diags = append(diags, typeDiags...)
		if typeDiags.HasErrors() {
			continue
		}

		slot := Slot{Name: name, Type: typ}
		if attr, ok := content.Attributes["description"]; ok {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, nil, &slot.Description)...)
		}
		slots = append(slots, slot)
	}
	return slots, diags
}

func duplicateSlotDiag(kind, name string, block *hcl.Block) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf("Duplicate %s definition", kind),
		Detail:   fmt.Sprintf("An %s named '%s' has already been defined.", kind, name),
		Subject:  &block.DefRange,
	}
}

// typeFromExpr converts a bare type keyword such as `scalar` into a value.Type.
func typeFromExpr(expr hcl.Expression) (value.Type, hcl.Diagnostics) {
	var diags hcl.Diagnostics

	// We expect a simple identifier like `mesh`, not a complex expression.
	traversal, travDiags := hcl.AbsTraversalForExpr(expr)
	if travDiags.HasErrors() || len(traversal) != 1 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid type expression",
			Detail:   "The 'type' attribute must be a simple type keyword like 'scalar', 'vector' or 'mesh', not a complex expression.",
			Subject:  expr.Range().Ptr(),
		})
		return value.Invalid, diags
	}

	typ, err := value.ParseType(traversal.RootName())
	if err != nil {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported type",
			Detail:   err.Error(),
			Subject:  expr.Range().Ptr(),
		})
		return value.Invalid, diags
	}
	return typ, diags
}
