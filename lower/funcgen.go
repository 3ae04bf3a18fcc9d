package lower

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/ir"
	"github.com/cxlang/cxc/types"
)

// exitAction is one action registered for discharge when its owning
// scope unwinds: either a destructor call for a local whose type
// declares one, or a `defer` expression. Both share one ordered list per
// scope so that discharging in reverse registration order naturally
// interleaves destructors and defers in the order spec.md §4.6/§8
// invariant 5 requires ("deinit b, deinit a" for locals a then b).
type exitAction struct {
	destructOf *localBinding // non-nil: call this local's destructor
	deferExpr  *ast.ExprBox  // non-nil: evaluate this expression
}

// localBinding is the storage a VarDecl or ParamDecl lowers to: always a
// stack slot (an AllocaInst), uniformly for parameters and locals alike,
// trading a little SSA-style economy for an address that AssignStmt and
// AddressofExpr can always take, grounded on the Clang -O0 style of
// lowering original_source's backend otherwise leaves unspecified.
type localBinding struct {
	alloca *ir.AllocaInst
	typ    types.Type
}

// scopeFrame is one level of funcGen's scope stack (spec.md §4.6/§8
// invariant 5: "entering a scope pushes, leaving a scope pops and emits
// destructor calls ... in reverse order of acquisition").
type scopeFrame struct {
	actions []exitAction
}

// loopFrame records a break/continue target together with the scope
// depth active when the loop or switch body began, so that breaking or
// continuing out of nested blocks discharges every scope opened since
// then (spec.md §4.6: defer/destructor discharge happens "on every exit
// path: normal, return, break, continue").
type loopFrame struct {
	block      *ir.Block
	scopeDepth int
}

// funcGen is the lowering pass's per-function state, mirroring the
// scope-stack and insertion-point fields original_source's IRGenerator
// carries while emitting one function body.
type funcGen struct {
	gen *Generator
	fn  *ir.Function
	cur *ir.Block

	this   ir.Value // the raw `this` parameter, nil for free functions
	locals map[ast.Decl]*localBinding

	// namedLocals resolves a switch case's associated-value binding by
	// name: SwitchCase carries only AssociatedVar/AssociatedType, not a
	// persistent *ast.VarDecl a VarExpr.Decl elsewhere in the case body
	// could already point at, so bindSwitchAssociatedValue registers the
	// binding here and lowerVarExpr falls back to it when a VarExpr's
	// Decl doesn't resolve through locals.
	namedLocals map[string]*localBinding

	scopes []*scopeFrame

	breakTargets    []loopFrame
	continueTargets []loopFrame

	returnType types.Type
	sretParam  *ir.Parameter // non-nil if this function returns via a hidden pointer parameter

	tempCounter int
}

func newFuncGen(gen *Generator, fn *ir.Function) *funcGen {
	return &funcGen{gen: gen, fn: fn, locals: map[ast.Decl]*localBinding{}, namedLocals: map[string]*localBinding{}}
}

// temp returns a fresh, function-unique SSA value name for debugging
// output, mirroring original_source's nameCounter reset per function.
func (fg *funcGen) temp(prefix string) string {
	fg.tempCounter++
	return prefix + "." + itoaSimple(fg.tempCounter)
}

func itoaSimple(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// emit appends inst to the current block, unless the block has already
// been terminated (by a return/break/continue nested earlier in the same
// statement list) — mirrors original_source's emitStmts stopping at the
// first terminating statement, and guards ir.Block.Append's panic.
func (fg *funcGen) emit(inst ir.Value) ir.Value {
	if fg.cur.HasTerminator() {
		return inst
	}
	fg.cur.Append(inst)
	return inst
}

func (fg *funcGen) setBlock(b *ir.Block) { fg.cur = b }

// beginScope pushes a fresh scope frame.
func (fg *funcGen) beginScope() { fg.scopes = append(fg.scopes, &scopeFrame{}) }

// endScope pops the current scope, discharging its destructor/defer
// actions in reverse order unless the block has already been terminated
// by a return/break/continue that discharged it (and every enclosing
// scope) already.
func (fg *funcGen) endScope() {
	top := fg.scopes[len(fg.scopes)-1]
	fg.scopes = fg.scopes[:len(fg.scopes)-1]
	if fg.cur.HasTerminator() {
		return
	}
	fg.dischargeFrame(top)
}

// bindLocal allocates stack storage for decl, records it in the current
// scope for destructor discharge if its type declares one, and returns
// the backing alloca.
func (fg *funcGen) bindLocal(decl ast.Decl, t types.Type) *ir.AllocaInst {
	irType := fg.gen.lowerType(t)
	alloca := ir.NewAlloca(fg.temp("local"), irType)
	fg.emit(alloca)
	binding := &localBinding{alloca: alloca, typ: t}
	fg.locals[decl] = binding

	if fg.typeDestructor(t) != nil {
		top := fg.scopes[len(fg.scopes)-1]
		top.actions = append(top.actions, exitAction{destructOf: binding})
	}
	return alloca
}

// deferExpr registers e for discharge on every exit of the current
// scope, per spec.md §4.6's DeferStmt semantics.
func (fg *funcGen) deferExpr(e *ast.ExprBox) {
	top := fg.scopes[len(fg.scopes)-1]
	top.actions = append(top.actions, exitAction{deferExpr: e})
}

// typeDestructor returns the resolved TypeDecl's destructor, or nil if t
// doesn't resolve to a type with one.
func (fg *funcGen) typeDestructor(t types.Type) *ast.DeinitDecl {
	if !t.IsValid() || t.Kind() != types.Basic {
		return nil
	}
	decl, ok := t.Decl().(*ast.TypeDecl)
	if !ok {
		return nil
	}
	return decl.Deinitializer()
}

// dischargeFrame runs one scope's actions in reverse registration order.
func (fg *funcGen) dischargeFrame(frame *scopeFrame) {
	for i := len(frame.actions) - 1; i >= 0; i-- {
		fg.dischargeAction(frame.actions[i])
	}
}

func (fg *funcGen) dischargeAction(a exitAction) {
	switch {
	case a.deferExpr != nil:
		fg.lowerExprForEffect(a.deferExpr)
	case a.destructOf != nil:
		deinit := fg.typeDestructor(a.destructOf.typ)
		recv := fg.receiverFromAddress(a.destructOf.alloca, a.destructOf.typ)
		fg.callMethod(deinit, recv, nil)
	}
}

// emitFieldDestructorCall directly emits a destructor call for one receiver
// field, as straight-line instructions rather than a registered exitAction —
// per spec.md §4.6, "destructor calls for a function's receiver fields are
// emitted first in a destructor body", so these must run eagerly at the top
// of a lowered deinit, not at scope-exit time alongside the body's own
// locals.
func (fg *funcGen) emitFieldDestructorCall(f *ast.FieldDecl) {
	idx, _ := f.Parent.FieldIndex(f.Name)
	fieldType := fg.gen.lowerType(f.Type)
	addr := fg.emit(ir.NewGEP(fg.temp("field"), fg.this, []ir.Value{ir.NewConstantInt(ir.Int, 0), ir.NewConstantInt(ir.Int, int64(idx))}, &ir.Pointer{Pointee: fieldType}))
	deinit := fg.typeDestructor(f.Type)
	fg.callMethod(deinit, fg.receiverFromAddress(addr, f.Type), nil)
}

// receiverFromAddress produces the value a method call expects for a
// receiver of type t given the address of a storage slot holding it:
// class/interface receivers are already pointers, so the slot is loaded
// through; struct/union receivers pass the slot's address directly.
func (fg *funcGen) receiverFromAddress(addr ir.Value, t types.Type) ir.Value {
	if fg.gen.isReferenceType(t) {
		return fg.emit(ir.NewLoad(fg.temp("this"), addr, fg.gen.lowerType(t)))
	}
	return addr
}

// dischargeUpTo discharges every scope from the innermost down to (and
// including) the frame at index floor, without popping the scope stack
// — popping still happens later via the matching endScope/function-exit
// calls, which will see the block already terminated and skip their own
// discharge.
func (fg *funcGen) dischargeUpTo(floor int) {
	for i := len(fg.scopes) - 1; i >= floor; i-- {
		fg.dischargeFrame(fg.scopes[i])
	}
}

// dischargeForReturn unwinds every active scope, per spec.md §4.6
// ("defer expressions and destructor calls execute after the return
// value is computed but before the return instruction"), grounded on
// original_source's emitDeferredExprsAndDestructorCallsForReturn.
func (fg *funcGen) dischargeForReturn() {
	fg.dischargeUpTo(0)
}
