package luahost

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/meshweave/internal/ctxlog"
	"github.com/vk/meshweave/internal/emitter"
	"github.com/vk/meshweave/internal/registry"
	"github.com/vk/meshweave/internal/value"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const meshTypeName = "mesh"

// Call is one recorded operation invocation.
type Call struct {
	Op      string
	Args    []string
	Results []string
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%s) -> %s", c.Op, strings.Join(c.Args, ", "), strings.Join(c.Results, ", "))
}

// Trace is the record of one dry run.
type Trace struct {
	Calls []Call
	// Outputs are the rendered program results in mark order.
	Outputs []string
}

// Ops returns the operation of every call in call order.
func (t *Trace) Ops() []string {
	ops := make([]string, len(t.Calls))
	for i, c := range t.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Check parses and compiles source without running it.
func Check(source string) error {
	chunk, err := parse.Parse(strings.NewReader(source), "<program>")
	if err != nil {
		return fmt.Errorf("program does not parse: %w", err)
	}
	if _, err := lua.Compile(chunk, "<program>"); err != nil {
		return fmt.Errorf("program does not compile: %w", err)
	}
	return nil
}

// Host runs programs against the operations of a registry.
type Host struct {
	reg *registry.Registry
}

// New creates a Host for the operations in reg.
func New(reg *registry.Registry) *Host {
	return &Host{reg: reg}
}

// Run executes prog and returns the trace of operation calls. Cancelling ctx
// stops the VM.
func (h *Host) Run(ctx context.Context, prog *emitter.Program) (*Trace, error) {
	logger := ctxlog.FromContext(ctx)

	L := newState()
	defer L.Close()
	L.SetContext(ctx)

	r := &run{trace: &Trace{}}
	mt := L.NewTypeMetatable(meshTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(render(L.CheckUserData(1))))
		return 1
	}))
	L.SetGlobal("vector", L.NewFunction(luaVector))

	lib := L.NewTable()
	for _, sig := range h.reg.Operations() {
		L.SetField(lib, sig.Op, L.NewFunction(r.operation(sig)))
	}
	L.SetGlobal(prog.Library, lib)

	fn, err := L.LoadString(prog.Source())
	if err != nil {
		return nil, fmt.Errorf("program does not compile: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		logger.Debug("Program failed.", "error", err, "calls", len(r.trace.Calls))
		return nil, fmt.Errorf("program failed: %w", err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	results, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("program returned %s, expected a table", ret.Type())
	}
	for i := 1; i <= results.Len(); i++ {
		r.trace.Outputs = append(r.trace.Outputs, render(results.RawGetInt(i)))
	}

	logger.Debug("Program finished.", "calls", len(r.trace.Calls), "outputs", len(r.trace.Outputs))
	return r.trace, nil
}

// newState opens only the libraries a compiled program may use.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, pair := range []struct {
		n string
		f lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
		{lua.StringLibName, lua.OpenString},
	} {
		L.Push(L.NewFunction(pair.f))
		L.Push(lua.LString(pair.n))
		L.Call(1, 0)
	}
	return L
}

type run struct {
	trace    *Trace
	nextMesh value.MeshHandle
}

// operation builds the Lua function standing in for sig.
func (r *run) operation(sig *registry.Signature) lua.LGFunction {
	return func(L *lua.LState) int {
		if n := L.GetTop(); n > len(sig.Inputs) {
			L.RaiseError("%s: expected at most %d arguments, got %d", sig.Op, len(sig.Inputs), n)
		}

		args := make([]lua.LValue, len(sig.Inputs))
		rendered := make([]string, len(sig.Inputs))
		for i, slot := range sig.Inputs {
			args[i] = L.Get(i + 1)
			if err := checkArg(args[i], slot); err != nil {
				L.ArgError(i+1, fmt.Sprintf("%s: %s", sig.Op, err))
			}
			rendered[i] = render(args[i])
		}

		outs := r.evaluate(L, sig, args)
		call := Call{Op: sig.Op, Args: rendered, Results: make([]string, len(outs))}
		for i, o := range outs {
			call.Results[i] = render(o)
		}
		r.trace.Calls = append(r.trace.Calls, call)

		if len(outs) == 1 {
			L.Push(outs[0])
			return 1
		}
		tbl := L.CreateTable(len(outs), 0)
		for _, o := range outs {
			tbl.Append(o)
		}
		L.Push(tbl)
		return 1
	}
}

// evaluate computes the outputs of one call.
func (r *run) evaluate(L *lua.LState, sig *registry.Signature, args []lua.LValue) []lua.LValue {
	num := func(i int) float64 { return float64(args[i].(lua.LNumber)) }

	switch sig.Kind {
	case registry.Add:
		return []lua.LValue{lua.LNumber(num(0) + num(1))}
	case registry.Multiply:
		return []lua.LValue{lua.LNumber(num(0) * num(1))}
	case registry.MakeVector:
		return []lua.LValue{newVector(L, num(0), num(1), num(2))}
	case registry.SplitVector:
		v := args[0].(*lua.LTable)
		return []lua.LValue{v.RawGetString("x"), v.RawGetString("y"), v.RawGetString("z")}
	}

	outs := make([]lua.LValue, len(sig.Outputs))
	for i, slot := range sig.Outputs {
		outs[i] = r.placeholder(L, slot.Type)
	}
	return outs
}

func (r *run) placeholder(L *lua.LState, t value.Type) lua.LValue {
	switch t {
	case value.Mesh:
		r.nextMesh++
		ud := L.NewUserData()
		ud.Value = r.nextMesh
		L.SetMetatable(ud, L.GetTypeMetatable(meshTypeName))
		return ud
	case value.Scalar, value.Integer:
		return lua.LNumber(0)
	case value.Bool:
		return lua.LFalse
	case value.Vector3:
		return newVector(L, 0, 0, 0)
	case value.Transform:
		tbl := L.NewTable()
		tbl.RawSetString("translation", newVector(L, 0, 0, 0))
		tbl.RawSetString("rotation", newVector(L, 0, 0, 0))
		tbl.RawSetString("scale", newVector(L, 1, 1, 1))
		return tbl
	case value.Text, value.Enum:
		return lua.LString("")
	}
	return lua.LNil
}

// checkArg verifies that a Lua argument fits the slot type.
func checkArg(v lua.LValue, slot registry.Slot) error {
	if v == lua.LNil {
		if slot.Optional {
			return nil
		}
		return fmt.Errorf("%s expected for '%s', got nil", slot.Type, slot.Name)
	}

	ok := false
	switch slot.Type {
	case value.Scalar:
		_, ok = v.(lua.LNumber)
	case value.Integer:
		n, isNum := v.(lua.LNumber)
		ok = isNum && float64(n) == float64(int64(n))
	case value.Bool:
		_, ok = v.(lua.LBool)
	case value.Text, value.Enum:
		_, ok = v.(lua.LString)
		if ok && slot.Type == value.Enum && !slot.AcceptsTag(string(v.(lua.LString))) {
			return fmt.Errorf("'%s' must be one of %v, got %q", slot.Name, slot.Options, string(v.(lua.LString)))
		}
	case value.Vector3:
		ok = isVector(v)
	case value.Transform:
		tbl, isTable := v.(*lua.LTable)
		ok = isTable && isVector(tbl.RawGetString("translation")) &&
			isVector(tbl.RawGetString("rotation")) && isVector(tbl.RawGetString("scale"))
	case value.Mesh:
		ud, isUD := v.(*lua.LUserData)
		if isUD {
			_, ok = ud.Value.(value.MeshHandle)
		}
	}
	if !ok {
		return fmt.Errorf("%s expected for '%s', got %s", slot.Type, slot.Name, render(v))
	}
	return nil
}
