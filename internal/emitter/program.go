package emitter

import (
	"fmt"
	"strings"

	"github.com/vk/meshweave/internal/graph"
	"github.com/vk/meshweave/internal/value"
)

// ArgKind tells how an argument gets its value.
type ArgKind uint8

const (
	// ArgLiteral is a constant, either bound to the slot or its default.
	ArgLiteral ArgKind = iota
	// ArgRef reads the binding of an earlier statement.
	ArgRef
	// ArgNil passes nil for an unbound optional slot.
	ArgNil
)

// Arg is one resolved argument of a statement.
type Arg struct {
	Slot string
	Kind ArgKind

	// Value is set for ArgLiteral. Defaulted reports whether it came from
	// the slot's declared default rather than a graph binding.
	Value     value.Value
	Defaulted bool

	// Ref and Index are set for ArgRef. Index is the 1-based output position
	// when the source has several outputs, and 0 otherwise.
	Ref   string
	Index int
}

// Expr renders the argument as a Lua expression.
func (a Arg) Expr() string {
	switch a.Kind {
	case ArgRef:
		return refExpr(a.Ref, a.Index)
	case ArgNil:
		return "nil"
	default:
		// Literals are rendered once during Emit, so this cannot fail here.
		s, err := FormatLiteral(a.Value)
		if err != nil {
			panic(err)
		}
		return s
	}
}

// Statement binds the result of one operation call.
type Statement struct {
	Node graph.NodeID
	Op   string
	// Binding is the Lua expression holding the call's result: a local
	// variable name, or an element of the spill table when Spilled is set.
	Binding string
	Spilled bool
	Args    []Arg
	// Outputs are the output slot names of the operation in declared order.
	Outputs []string
}

// Result is one returned value of the program.
type Result struct {
	Node  graph.NodeID
	Slot  string
	Ref   string
	Index int
}

// Expr renders the result as a Lua expression.
func (r Result) Expr() string { return refExpr(r.Ref, r.Index) }

func refExpr(name string, index int) string {
	if index > 0 {
		return fmt.Sprintf("%s[%d]", name, index)
	}
	return name
}

// Program is a compiled graph.
type Program struct {
	// Library is the name of the host table the operations are called on.
	Library string
	// Spill names the table that holds the results of statements past the
	// first MaxLocals. It is empty when every statement has a local.
	Spill      string
	Statements []Statement
	Results    []Result
}

// Source renders the program as Lua source text.
func (p *Program) Source() string {
	var sb strings.Builder
	spillDeclared := false
	for _, st := range p.Statements {
		args := make([]string, len(st.Args))
		for i, a := range st.Args {
			args[i] = a.Expr()
		}
		call := fmt.Sprintf("%s.%s(%s)", p.Library, st.Op, strings.Join(args, ", "))
		if !st.Spilled {
			fmt.Fprintf(&sb, "local %s = %s\n", st.Binding, call)
			continue
		}
		if !spillDeclared {
			fmt.Fprintf(&sb, "local %s = {}\n", p.Spill)
			spillDeclared = true
		}
		fmt.Fprintf(&sb, "%s = %s\n", st.Binding, call)
	}

	results := make([]string, len(p.Results))
	for i, r := range p.Results {
		results[i] = r.Expr()
	}
	if len(results) == 0 {
		sb.WriteString("return {}\n")
	} else {
		fmt.Fprintf(&sb, "return { %s }\n", strings.Join(results, ", "))
	}
	return sb.String()
}

// Statement returns the statement emitted for node id.
func (p *Program) Statement(id graph.NodeID) (Statement, bool) {
	for _, st := range p.Statements {
		if st.Node == id {
			return st, true
		}
	}
	return Statement{}, false
}
