package diag

import (
	"fmt"
	"strings"
)

// List collects several independent errors found in one pass, such as all
// invalid manifests in a directory.
type List []error

// Append adds err to the list when it is non-nil.
func (l *List) Append(err error) {
	if err != nil {
		*l = append(*l, err)
	}
}

// Err returns nil for an empty list, the single error for a list of one,
// and the list itself otherwise.
func (l List) Err() error {
	switch len(l) {
	case 0:
		return nil
	case 1:
		return l[0]
	default:
		return l
	}
}

// Error implements the error interface.
func (l List) Error() string {
	msgs := make([]string, len(l))
	for i, err := range l {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("found %d errors:\n- %s", len(l), strings.Join(msgs, "\n- "))
}

// Unwrap exposes the members to errors.Is and errors.As.
func (l List) Unwrap() []error { return l }
