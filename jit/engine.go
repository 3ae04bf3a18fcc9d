package jit

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cxlang/cxc/ir"
)

// Engine owns one compiled ir.Module and interprets its functions on
// demand. UnitID is stamped by driver.Compile (SPEC_FULL.md's
// compilation-unit identity) so a REPL session recompiling the same
// manifest twice can tell which Engine a stale FuncHandle came from.
type Engine struct {
	module   *ir.Module
	UnitID   uuid.UUID
	funcs    map[string]*ir.Function
	globals  map[*ir.GlobalVariable]*Cell
	builtins map[string]Builtin
}

// Builtin is a host-side implementation for an extern ir.Function, the
// interpreter's equivalent of linking against a native symbol.
type Builtin func(args []Value) (Value, error)

// NewEngine returns an Engine ready to execute mod's functions, with every
// global variable initialized from its declared constant (or zero-valued,
// for globals without one).
func NewEngine(mod *ir.Module, unitID uuid.UUID) *Engine {
	e := &Engine{
		module:   mod,
		UnitID:   unitID,
		funcs:    make(map[string]*ir.Function, len(mod.Functions)),
		globals:  make(map[*ir.GlobalVariable]*Cell, len(mod.GlobalVariables)),
		builtins: map[string]Builtin{},
	}
	for _, fn := range mod.Functions {
		e.funcs[fn.Name()] = fn
	}
	for _, g := range mod.GlobalVariables {
		cell := &Cell{}
		if ptr, ok := g.Type().(*ir.Pointer); ok {
			cell.Value = zeroValue(ptr.Pointee)
		}
		if g.Value != nil {
			if cv, ok := constantValue(g.Value); ok {
				cell.Value = cv
			}
		}
		e.globals[g] = cell
	}
	return e
}

// RegisterBuiltin binds name (an extern function's declared name) to a
// host implementation, the interpreter's stand-in for dynamic linking.
func (e *Engine) RegisterBuiltin(name string, impl Builtin) {
	e.builtins[name] = impl
}

// FuncHandle is the "opaque pointer suitable for JIT invocation" the
// embedding API exposes.
type FuncHandle struct {
	fn     *ir.Function
	engine *Engine
}

// Lookup resolves a mangled function name to a callable handle.
func (e *Engine) Lookup(name string) (FuncHandle, bool) {
	fn, ok := e.funcs[name]
	if !ok {
		return FuncHandle{}, false
	}
	return FuncHandle{fn: fn, engine: e}, true
}

// Name returns the handle's mangled function name.
func (h FuncHandle) Name() string { return h.fn.Name() }

// Call executes fn against args, trapping interpreter invariant
// violations (malformed IR the interpreter can't make sense of) into an
// error instead of a panic, and surfacing interpreted-program faults
// (division by zero, an executed Unreachable) the same way.
func (h FuncHandle) Call(args ...Value) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if te, ok := r.(*trapError); ok {
				err = te
				return
			}
			panic(r)
		}
	}()
	return h.engine.call(h.fn, args)
}

func (e *Engine) call(fn *ir.Function, args []Value) (Value, error) {
	if fn.IsExtern {
		impl, ok := e.builtins[fn.Name()]
		if !ok {
			return Value{}, fmt.Errorf("jit: extern function %q has no registered builtin", fn.Name())
		}
		return impl(args)
	}
	if len(args) != len(fn.Params) {
		return Value{}, fmt.Errorf("jit: %s expects %d arguments, got %d", fn.Name(), len(fn.Params), len(args))
	}
	f := &frame{
		engine: e,
		params: make(map[*ir.Parameter]Value, len(fn.Params)),
		vals:   map[ir.Value]Value{},
	}
	for i, p := range fn.Params {
		f.params[p] = args[i]
	}
	return f.run(fn)
}
