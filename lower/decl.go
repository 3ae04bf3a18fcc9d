package lower

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/ir"
)

// getFunctionProto returns decl's prototype, lowering and memoizing it by
// mangled name on first reference, and queuing its body for emission,
// grounded on original_source's irgen-decl.cpp getFunctionProto. The same
// memoization table backs both top-level declarations and generic
// instantiations discovered mid-body, mirroring functionInstantiations.
func (g *Generator) getFunctionProto(decl ast.Decl) *ir.Function {
	mangled := Mangle(decl)
	if existing, ok := g.funcs[mangled]; ok {
		return existing
	}

	fn := underlyingFunctionDecl(decl)
	if fn == nil {
		g.fail("lower: getFunctionProto called on a non-function declaration %T", decl)
		return nil
	}

	var params []*ir.Parameter
	var sretParam *ir.Parameter
	returnType := g.lowerType(fn.Proto.ReturnType)
	if irSizeBytes(returnType) > 16 {
		sretParam = ir.NewParameter("sret", &ir.Pointer{Pointee: returnType})
		params = append(params, sretParam)
		returnType = ir.Void
	}
	if m, ok := asMethod(decl); ok {
		params = append(params, ir.NewParameter("this", g.lowerType(m.ThisType(g.interner))))
	}
	for _, p := range fn.Proto.Params {
		params = append(params, ir.NewParameter(p.Name, g.lowerType(p.Type)))
	}

	if fn.IsMain() {
		// The entry point always returns a process exit code, regardless
		// of the declared body shape.
		returnType = ir.Int
		sretParam = nil
	}

	irFn := ir.NewFunction(mangled, returnType, params)
	irFn.SRetParam = sretParam
	irFn.IsExtern = fn.IsExtern()
	irFn.IsVariadic = fn.IsVariadic()
	irFn.Location = fn.Location()

	g.funcs[mangled] = irFn
	g.module.AddFunction(irFn)

	if !fn.IsExtern() {
		g.pending = append(g.pending, pendingBody{decl: decl, fn: irFn})
	}
	return irFn
}

// emitFunctionBody lowers decl's statement list into fn's entry block,
// grounded on original_source's irgen-decl.cpp emitFunctionBody: bind
// `this` and the parameters, run the body, and patch a synthetic return
// if the final block still lacks a terminator.
func (g *Generator) emitFunctionBody(decl ast.Decl, fn *ir.Function) {
	underlying := underlyingFunctionDecl(decl)
	fg := newFuncGen(g, fn)
	fg.returnType = underlying.Proto.ReturnType
	fg.sretParam = fn.SRetParam

	entry := fn.NewBlock("entry")
	fg.setBlock(entry)
	fg.beginScope()

	pi := 0
	if fn.SRetParam != nil {
		pi++
	}
	if m, ok := asMethod(decl); ok {
		_ = m
		fg.this = fn.Params[pi]
		pi++
	}
	for _, p := range underlying.Proto.Params {
		alloca := fg.bindLocal(p, p.Type)
		fg.emit(ir.NewStore(fn.Params[pi], alloca))
		pi++
	}

	if dd, ok := decl.(*ast.DeinitDecl); ok {
		fg.emitReceiverFieldDestructors(dd)
	}

	forInCounter := 0
	body := CanonicalizeLoops(underlying.Body)
	body = DesugarForIn(body, g.interner, &forInCounter)
	fg.emitStmts(body)
	fg.endScope()

	if !fg.cur.HasTerminator() {
		if fn.ReturnType == ir.Void {
			fg.emit(ir.NewReturn(nil))
		} else {
			fg.emit(ir.NewReturn(ir.NewConstantInt(fn.ReturnType, 0)))
		}
	}
}

// emitReceiverFieldDestructors eagerly emits a destructor call for every
// field of dd's receiver whose type itself declares one, straight-line at
// the top of the lowered body, per spec.md §4.6: "destructor calls for a
// function's receiver fields are emitted first in a destructor body" — they
// run before the user's own statements, not after them at scope exit.
func (fg *funcGen) emitReceiverFieldDestructors(dd *ast.DeinitDecl) {
	for _, f := range dd.Receiver.Fields {
		if fg.typeDestructor(f.Type) == nil {
			continue
		}
		fg.emitFieldDestructorCall(f)
	}
}

// emitGlobalVarDecl lowers a module-level VarDecl, grounded on
// original_source's irgen-decl.cpp emitVarDecl's global-scaffolding path.
// Only literal initializers are constant-folded; anything else lowers to
// an undefined initial value, since general global initializer evaluation
// belongs to the runtime's startup routine rather than to this pass.
func (g *Generator) emitGlobalVarDecl(d *ast.VarDecl) *ir.GlobalVariable {
	name := d.Name
	if d.ModuleName != "" {
		name = d.ModuleName + "." + d.Name
	}
	if existing, ok := g.globals[name]; ok {
		return existing
	}

	irType := g.lowerType(d.Type)
	var initial ir.Value
	if d.Initializer != nil {
		initial = g.lowerConstExpr(d.Initializer, irType)
	}
	if initial == nil {
		initial = ir.NewUndefined(irType)
	}

	gv := ir.NewGlobalVariable(name, irType, initial)
	g.globals[name] = gv
	g.globalByDecl[d] = gv
	g.module.AddGlobal(gv)
	return gv
}

// freshLambdaName returns a fresh, module-unique name for a lowered lambda
// body, since lambdas have no user-facing declaration for Mangle to key on.
func (g *Generator) freshLambdaName() string {
	g.lambdaCounter++
	return "lambda." + itoaSimple(g.lambdaCounter)
}

// lowerConstExpr folds the literal expression kinds a global initializer
// may directly be; anything else returns nil.
func (g *Generator) lowerConstExpr(e ast.Expr, irType ir.Type) ir.Value {
	switch e := e.(type) {
	case *ast.IntLiteralExpr:
		return ir.NewConstantInt(irType, e.Value)
	case *ast.FloatLiteralExpr:
		return ir.NewConstantFP(irType, e.Value)
	case *ast.BoolLiteralExpr:
		return ir.NewConstantBool(e.Value)
	case *ast.StringLiteralExpr:
		return ir.NewConstantString(e.Value)
	case *ast.NullLiteralExpr:
		return ir.NewConstantNull(irType)
	}
	return nil
}

// callMethod emits a call to decl with receiver prepended to args,
// prototyping decl on first reference exactly like any other call site.
func (fg *funcGen) callMethod(decl ast.Decl, receiver ir.Value, args []ir.Value) ir.Value {
	fn := fg.gen.getFunctionProto(decl)
	allArgs := make([]ir.Value, 0, len(args)+1)
	allArgs = append(allArgs, receiver)
	allArgs = append(allArgs, args...)
	return fg.emit(ir.NewCall(fg.temp("call"), fn, allArgs, fn.ReturnType))
}
