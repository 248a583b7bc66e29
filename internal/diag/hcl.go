package diag

import (
	"errors"

	"github.com/hashicorp/hcl/v2"
)

// ToHCL converts err into an error diagnostic pointing at subject. Structured
// errors use their Kind as the summary; anything else is summarised as a
// generic failure.
func ToHCL(err error, subject *hcl.Range) *hcl.Diagnostic {
	summary := "Graph error"
	detail := err.Error()
	var de *Error
	if errors.As(err, &de) {
		summary = de.Kind.String()
	}
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  subject,
	}
}
