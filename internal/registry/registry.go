package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/vk/meshweave/internal/value"
)

// Slot is one named, typed input or output of an operation.
type Slot struct {
	Name        string
	Type        value.Type
	Description string

	// Default is used when an input slot is left unbound. Output slots
	// never carry a default.
	Default *value.Value

	// Optional inputs without a default are passed as nil when unbound.
	Optional bool

	// Options lists the accepted tags of an Enum slot.
	Options []string
}

// Required reports whether an unbound input slot is a compile error.
func (s Slot) Required() bool {
	return s.Default == nil && !s.Optional
}

// AcceptsTag reports whether tag is one of the slot's enum options. Enum
// slots without options accept any tag.
func (s Slot) AcceptsTag(tag string) bool {
	return len(s.Options) == 0 || slices.Contains(s.Options, tag)
}

// Signature is the declared interface of one operation.
type Signature struct {
	// Op is the tag used by graph nodes and, verbatim, as the function name
	// in the emitted program.
	Op          string
	Kind        Kind
	Description string
	Inputs      []Slot
	Outputs     []Slot

	// Source is the manifest path the signature was loaded from, or
	// "builtin".
	Source string
}

// Input returns the input slot called name and its position.
func (s *Signature) Input(name string) (Slot, int, bool) {
	return findSlot(s.Inputs, name)
}

// Output returns the output slot called name and its position.
func (s *Signature) Output(name string) (Slot, int, bool) {
	return findSlot(s.Outputs, name)
}

func findSlot(slots []Slot, name string) (Slot, int, bool) {
	for i, sl := range slots {
		if sl.Name == name {
			return sl, i, true
		}
	}
	return Slot{}, -1, false
}

// InputNames returns the input slot names in declared order.
func (s *Signature) InputNames() []string {
	names := make([]string, len(s.Inputs))
	for i, sl := range s.Inputs {
		names[i] = sl.Name
	}
	return names
}

// String renders the signature as "op(a scalar, b mesh) -> (out mesh)".
func (s *Signature) String() string {
	render := func(slots []Slot) string {
		parts := make([]string, len(slots))
		for i, sl := range slots {
			parts[i] = sl.Name + " " + sl.Type.String()
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprintf("%s(%s) -> (%s)", s.Op, render(s.Inputs), render(s.Outputs))
}

// Module registers a group of signatures.
type Module interface {
	Register(r *Registry)
}

// Registry maps operation tags to signatures. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	signatures map[string]*Signature
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{signatures: make(map[string]*Signature)}
}

// NewWithBuiltins creates a Registry populated with the builtin operations
// and any extra modules.
func NewWithBuiltins(modules ...Module) *Registry {
	r := New()
	Builtins{}.Register(r)
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds sig. It fails if sig does not pass ValidateSignature or
// the tag is already taken.
func (r *Registry) Register(sig *Signature) error {
	if err := ValidateSignature(sig); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, exists := r.signatures[sig.Op]; exists {
		return fmt.Errorf("operation '%s' already registered (from %s)", sig.Op, existing.Source)
	}
	slog.Debug("Registering operation.", "op", sig.Op, "source", sig.Source)
	r.signatures[sig.Op] = sig
	return nil
}

// MustRegister is Register for code-defined signatures, where a duplicate is
// a programming error.
func (r *Registry) MustRegister(sig *Signature) {
	if err := r.Register(sig); err != nil {
		panic(err)
	}
}

// Lookup returns the signature registered for op.
func (r *Registry) Lookup(op string) (*Signature, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sig, ok := r.signatures[op]
	return sig, ok
}

// Operations returns all signatures sorted by tag.
func (r *Registry) Operations() []*Signature {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Signature, 0, len(r.signatures))
	for _, sig := range r.signatures {
		out = append(out, sig)
	}
	slices.SortFunc(out, func(a, b *Signature) int { return strings.Compare(a.Op, b.Op) })
	return out
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.signatures)
}
