package registry

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/meshweave/internal/ctxlog"
	"github.com/vk/meshweave/internal/diag"
	"github.com/vk/meshweave/internal/value"
)

// identRegex matches names that can be used verbatim as Lua identifiers.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var luaKeywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// IsIdentifier reports whether name can be emitted as a Lua identifier.
func IsIdentifier(name string) bool {
	return identRegex.MatchString(name) && !luaKeywords[name]
}

// MaxInputs bounds the inputs of one operation. Every argument of a call
// occupies a Lua register, and a function has at most 200 of them.
const MaxInputs = 32

// ValidateSignature checks a single signature for internal consistency.
func ValidateSignature(sig *Signature) error {
	var errs []string

	if !IsIdentifier(sig.Op) {
		errs = append(errs, fmt.Sprintf("operation tag %q is not a valid identifier", sig.Op))
	}
	if len(sig.Outputs) == 0 {
		errs = append(errs, "operation declares no outputs")
	}
	if len(sig.Inputs) > MaxInputs {
		errs = append(errs, fmt.Sprintf("operation declares %d inputs, at most %d are allowed", len(sig.Inputs), MaxInputs))
	}

	check := func(kind string, slots []Slot) {
		seen := make(map[string]bool)
		for _, sl := range slots {
			if sl.Name == "" {
				errs = append(errs, fmt.Sprintf("%s with empty name", kind))
				continue
			}
			if seen[sl.Name] {
				errs = append(errs, fmt.Sprintf("duplicate %s '%s'", kind, sl.Name))
			}
			seen[sl.Name] = true
			if sl.Type == value.Invalid {
				errs = append(errs, fmt.Sprintf("%s '%s' has no type", kind, sl.Name))
			}
			if len(sl.Options) > 0 && sl.Type != value.Enum {
				errs = append(errs, fmt.Sprintf("%s '%s' declares options but is not an enum", kind, sl.Name))
			}
		}
	}
	check("input", sig.Inputs)
	check("output", sig.Outputs)

	for _, sl := range sig.Inputs {
		if sl.Default == nil {
			continue
		}
		if sl.Type == value.Mesh {
			errs = append(errs, fmt.Sprintf("input '%s': mesh inputs cannot have a default", sl.Name))
			continue
		}
		if !value.IsAssignable(sl.Default.Type(), sl.Type) {
			errs = append(errs, fmt.Sprintf("input '%s': default of type %s is not assignable to %s", sl.Name, sl.Default.Type(), sl.Type))
			continue
		}
		if sl.Type == value.Enum && !sl.AcceptsTag(sl.Default.AsString()) {
			errs = append(errs, fmt.Sprintf("input '%s': default %q is not one of %v", sl.Name, sl.Default.AsString(), sl.Options))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("operation '%s': %s", sig.Op, strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks every registered signature and reports all problems at once.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	var errs diag.List
	for _, sig := range r.Operations() {
		errs.Append(ValidateSignature(sig))
	}

	if err := errs.Err(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	logger.Debug("Registry validation passed.", "operations", r.Len())
	return nil
}
