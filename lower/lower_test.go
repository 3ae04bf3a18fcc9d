package lower_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/ir"
	"github.com/cxlang/cxc/lower"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

func loc() token.Position { return token.Position{Filename: "t.cx", Line: 1} }

func newInterner() (*types.Interner, types.Builtins) {
	in := types.NewInterner()
	return in, in.SeedBuiltins()
}

func varExpr(decl ast.Decl, name string, t types.Type) *ast.ExprBox {
	e := &ast.VarExpr{Name: name, Decl: decl}
	e.SetType(t)
	return ast.Box(e)
}

func intLit(n int64, t types.Type) *ast.ExprBox {
	e := &ast.IntLiteralExpr{Value: n}
	e.SetType(t)
	return ast.Box(e)
}

func TestLowerSimpleFunctionSum(t *testing.T) {
	in, b := newInterner()

	a := &ast.ParamDecl{Name: "a", Type: b.Int}
	c := &ast.ParamDecl{Name: "c", Type: b.Int}
	fn := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "add",
		Params:     []*ast.ParamDecl{a, c},
		ReturnType: b.Int,
	}, loc(), "main")
	fn.Body = []ast.Stmt{
		&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: ast.Box(&ast.BinaryExpr{
			Op:    ast.OpAdd,
			Left:  varExpr(a, "a", b.Int),
			Right: varExpr(c, "c", b.Int),
		})},
	}
	fn.Body[0].(*ast.ReturnStmt).Value.X.SetType(b.Int)

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})

	var failed []error
	gen := lower.NewGenerator(in, b, "main", func(err error) { failed = append(failed, err) })
	irMod := gen.Lower(mod)

	require.Empty(t, failed, "%v", failed)
	require.Len(t, irMod.Functions, 1)
	irFn := irMod.Functions[0]
	assert.Len(t, irFn.Params, 2)
	require.Len(t, irFn.Blocks, 1)
	entry := irFn.Blocks[0]
	require.NotEmpty(t, entry.Insts)
	ret, ok := entry.Insts[len(entry.Insts)-1].(*ir.ReturnInst)
	require.True(t, ok, "last inst should be a return, got %T", entry.Insts[len(entry.Insts)-1])
	bin, ok := ret.Value.(*ir.BinaryInst)
	require.True(t, ok, "return value should be the sum, got %T", ret.Value)
	assert.Equal(t, ir.OpAdd, bin.Op)
}

func TestLowerForLoopBreakContinueDischargesNestedScope(t *testing.T) {
	in, b := newInterner()

	i := &ast.VarDecl{Name: "i", Type: b.Int, Initializer: &ast.IntLiteralExpr{Value: 0}}
	i.Initializer.SetType(b.Int)

	fn := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "loop",
		ReturnType: b.Void,
	}, loc(), "main")
	fn.Body = []ast.Stmt{
		&ast.ForStmt{
			Node:      ast.Node{Loc: loc()},
			Init:      &ast.VarStmt{Node: ast.Node{Loc: loc()}, Decl: i},
			Condition: boolLit(true, b),
			Body: []ast.Stmt{
				&ast.IfStmt{
					Node:      ast.Node{Loc: loc()},
					Condition: boolLit(true, b),
					Then:      []ast.Stmt{&ast.BreakStmt{Node: ast.Node{Loc: loc()}}},
				},
				&ast.ContinueStmt{Node: ast.Node{Loc: loc()}},
			},
		},
		&ast.ReturnStmt{Node: ast.Node{Loc: loc()}},
	}

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})

	var failed []error
	gen := lower.NewGenerator(in, b, "main", func(err error) { failed = append(failed, err) })
	irMod := gen.Lower(mod)

	require.Empty(t, failed, "%v", failed)
	require.Len(t, irMod.Functions, 1)
	irFn := irMod.Functions[0]
	// for.cond, for.body, if.then, if.cont, for.inc, for.cont, entry: at
	// least enough blocks to cover the desugared control flow.
	assert.GreaterOrEqual(t, len(irFn.Blocks), 6)
	for _, blk := range irFn.Blocks {
		assert.True(t, blk.HasTerminator(), "block %s must end in a terminator", blk.Name())
	}
}

func boolLit(v bool, b types.Builtins) *ast.ExprBox {
	e := &ast.BoolLiteralExpr{Value: v}
	e.SetType(b.Bool)
	return ast.Box(e)
}

func TestLowerSwitchOnEnumBindsAssociatedValue(t *testing.T) {
	in, b := newInterner()

	enum := ast.NewEnumDecl("Shape", loc(), "main")
	circle := enum.AddCase("circle", b.Int, loc())
	enum.AddCase("point", types.Type{}, loc())
	enumType := enum.Type(in, types.Mutable)

	v := &ast.VarDecl{Name: "s", Type: enumType}

	circleCase := ast.SwitchCase{
		Value:          varExprForEnumCase(circle, enumType),
		AssociatedVar:  "radius",
		AssociatedType: b.Int,
		Body:           []ast.Stmt{&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: varExpr(nil, "radius", b.Int)}},
	}

	fn := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "describe",
		Params:     []*ast.ParamDecl{{Name: "s", Type: enumType}},
		ReturnType: b.Int,
	}, loc(), "main")
	_ = v
	fn.Body = []ast.Stmt{
		&ast.SwitchStmt{
			Node:      ast.Node{Loc: loc()},
			Condition: varExpr(fn.Proto.Params[0], "s", enumType),
			Cases:     []ast.SwitchCase{circleCase},
		},
		&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: intLit(0, b.Int)},
	}

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})

	var failed []error
	gen := lower.NewGenerator(in, b, "main", func(err error) { failed = append(failed, err) })
	irMod := gen.Lower(mod)

	require.Empty(t, failed, "%v", failed)
	require.Len(t, irMod.Functions, 1)
}

func varExprForEnumCase(c *ast.EnumCaseDecl, t types.Type) *ast.ExprBox {
	e := &ast.VarExpr{Name: c.Name, Decl: c}
	e.SetType(t)
	return ast.Box(e)
}

// TestLowerDeinitEmitsReceiverFieldDestructorsBeforeBody verifies
// spec.md §4.6's ordering rule: a receiver field's destructor call is
// the very first instruction sequence in a lowered deinit body, ahead
// of anything the user's own statements emit.
func TestLowerDeinitEmitsReceiverFieldDestructorsBeforeBody(t *testing.T) {
	in, b := newInterner()

	inner := ast.NewTypeDecl(ast.Struct, "Inner", loc(), "main")
	innerDeinit := ast.NewDeinitDecl(inner, loc())
	inner.AddMethod(innerDeinit)
	innerType := inner.Type(in, types.Mutable)

	outer := ast.NewTypeDecl(ast.Class, "Outer", loc(), "main")
	field := &ast.FieldDecl{Name: "inner", Type: innerType}
	outer.AddField(field)
	outerDeinit := ast.NewDeinitDecl(outer, loc())
	outerDeinit.Body = []ast.Stmt{
		&ast.ExprStmt{Node: ast.Node{Loc: loc()}, Value: intLit(1, b.Int)},
	}
	outer.AddMethod(outerDeinit)

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{outer, inner}})

	var failed []error
	gen := lower.NewGenerator(in, b, "main", func(err error) { failed = append(failed, err) })
	irMod := gen.Lower(mod)

	require.Empty(t, failed, "%v", failed)

	var deinitFn *ir.Function
	for _, f := range irMod.Functions {
		if len(f.Blocks) > 0 {
			for _, inst := range f.Blocks[0].Insts {
				if call, ok := inst.(*ir.CallInst); ok {
					if callee, ok := call.Callee.(*ir.Function); ok && callee.MangledName == lower.Mangle(innerDeinit) {
						deinitFn = f
					}
				}
			}
		}
	}
	require.NotNil(t, deinitFn, "expected to find Outer's lowered deinit calling Inner's deinit")

	entry := deinitFn.Blocks[0]
	require.NotEmpty(t, entry.Insts)
	foundDestructorCallIdx := -1
	for idx, inst := range entry.Insts {
		if call, ok := inst.(*ir.CallInst); ok {
			if callee, ok := call.Callee.(*ir.Function); ok && callee.MangledName == lower.Mangle(innerDeinit) {
				foundDestructorCallIdx = idx
				break
			}
		}
	}
	require.GreaterOrEqual(t, foundDestructorCallIdx, 0)
	// The field destructor call must precede any instruction generated
	// from the user's own body statements (the int literal ExprStmt
	// lowers to nothing observable on its own, but any instruction
	// coming from a GEP/Load/Call chain ahead of it would indicate the
	// old defer-to-scope-exit bug resurfaced).
	assert.LessOrEqual(t, foundDestructorCallIdx, 2, "field destructor call should be emitted at the very top of the body")
}

func TestLowerSRetCallingConventionForLargeReturnType(t *testing.T) {
	in, b := newInterner()

	tupleType := in.GetTuple(
		[]string{"x", "y", "z"},
		[]types.Type{b.Int64, b.Int64, b.Int64},
		types.Mutable,
		loc(),
	)

	fn := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "make3",
		ReturnType: tupleType,
	}, loc(), "main")
	fn.Body = []ast.Stmt{
		&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: ast.Box(&ast.TupleExpr{
			Names: []string{"x", "y", "z"},
			Elements: []*ast.ExprBox{
				intLit(1, b.Int64), intLit(2, b.Int64), intLit(3, b.Int64),
			},
		})},
	}
	fn.Body[0].(*ast.ReturnStmt).Value.X.SetType(tupleType)

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})

	var failed []error
	gen := lower.NewGenerator(in, b, "main", func(err error) { failed = append(failed, err) })
	irMod := gen.Lower(mod)

	require.Empty(t, failed, "%v", failed)
	require.Len(t, irMod.Functions, 1)
	irFn := irMod.Functions[0]
	require.NotNil(t, irFn.SRetParam, "a 24-byte tuple return should trigger the SRet convention")
	assert.Equal(t, ir.Void, irFn.ReturnType)
	assert.Same(t, irFn.SRetParam, irFn.Params[0])
}
