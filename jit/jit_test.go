package jit_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/ir"
	"github.com/cxlang/cxc/jit"
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

func lowerModule(t *testing.T, mod *module.Module, in *types.Interner, b types.Builtins) *ir.Module {
	t.Helper()
	var failed []error
	gen := lower.NewGenerator(in, b, "main", func(err error) { failed = append(failed, err) })
	irMod := gen.Lower(mod)
	require.Empty(t, failed, "%v", failed)
	return irMod
}

// TestEngineFactorialRecursion exercises call, comparison, arithmetic and
// conditional-return dispatch: fn fact(n: int) -> int { if (n <= 1) return
// 1; return n * fact(n - 1); } fact(5) must return 120.
func TestEngineFactorialRecursion(t *testing.T) {
	in, b := newInterner()

	n := &ast.ParamDecl{Name: "n", Type: b.Int}
	fact := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "fact",
		Params:     []*ast.ParamDecl{n},
		ReturnType: b.Int,
	}, loc(), "main")

	cond := ast.Box(&ast.BinaryExpr{Op: ast.OpLeq, Left: varExpr(n, "n", b.Int), Right: intLit(1, b.Int)})
	cond.X.SetType(b.Bool)

	arg := ast.Box(&ast.BinaryExpr{Op: ast.OpSub, Left: varExpr(n, "n", b.Int), Right: intLit(1, b.Int)})
	arg.X.SetType(b.Int)

	call := ast.Box(&ast.CallExpr{Callee: "fact", Args: []ast.Arg{{Expr: arg}}, ResolvedCallee: fact})
	call.X.SetType(b.Int)

	product := ast.Box(&ast.BinaryExpr{Op: ast.OpMul, Left: varExpr(n, "n", b.Int), Right: call})
	product.X.SetType(b.Int)

	fact.Body = []ast.Stmt{
		&ast.IfStmt{Node: ast.Node{Loc: loc()}, Condition: cond, Then: []ast.Stmt{
			&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: intLit(1, b.Int)},
		}},
		&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: product},
	}

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fact}})

	irMod := lowerModule(t, mod, in, b)

	engine := jit.NewEngine(irMod, uuid.New())
	handle, ok := engine.Lookup("main.fact")
	require.True(t, ok)

	result, err := handle.Call(jit.Value{Kind: jit.IntValue, Int: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(120), result.Int)
}

// TestEngineIterativeSumOverAlloca exercises Alloca/Load/Store and the
// branch plumbing a for-loop lowers to, independent of recursion. The loop
// variables live in allocas, so no phi is involved.
func TestEngineIterativeSumOverAlloca(t *testing.T) {
	in, b := newInterner()

	total := &ast.VarDecl{Name: "total", Type: b.Int, Initializer: &ast.IntLiteralExpr{Value: 0}}
	total.Initializer.SetType(b.Int)
	i := &ast.VarDecl{Name: "i", Type: b.Int, Initializer: &ast.IntLiteralExpr{Value: 0}}
	i.Initializer.SetType(b.Int)

	cond := ast.Box(&ast.BinaryExpr{Op: ast.OpLt, Left: varExpr(i, "i", b.Int), Right: intLit(5, b.Int)})
	cond.X.SetType(b.Bool)

	sum := ast.Box(&ast.BinaryExpr{Op: ast.OpAdd, Left: varExpr(total, "total", b.Int), Right: varExpr(i, "i", b.Int)})
	sum.X.SetType(b.Int)

	inc := ast.Box(&ast.PrefixExpr{Op: ast.OpIncrementPrefix, Operand: varExpr(i, "i", b.Int)})
	inc.X.SetType(b.Int)

	fn := ast.NewFunctionDecl(ast.FunctionProto{Name: "sumTo", ReturnType: b.Int}, loc(), "main")
	fn.Body = []ast.Stmt{
		&ast.VarStmt{Node: ast.Node{Loc: loc()}, Decl: total},
		&ast.ForStmt{
			Node:      ast.Node{Loc: loc()},
			Init:      &ast.VarStmt{Node: ast.Node{Loc: loc()}, Decl: i},
			Condition: cond,
			Increment: inc,
			Body: []ast.Stmt{
				&ast.AssignStmt{Node: ast.Node{Loc: loc()}, Target: varExpr(total, "total", b.Int), Op: ast.AssignPlain, Value: sum},
			},
		},
		&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: varExpr(total, "total", b.Int)},
	}

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})

	irMod := lowerModule(t, mod, in, b)

	engine := jit.NewEngine(irMod, uuid.New())
	handle, ok := engine.Lookup("main.sumTo")
	require.True(t, ok)

	result, err := handle.Call()
	require.NoError(t, err)
	assert.Equal(t, int64(0+1+2+3+4), result.Int)
}

// TestEngineDivisionByZeroTraps confirms an interpreted-program fault
// (as opposed to an interpreter bug) comes back as a plain error.
func TestEngineDivisionByZeroTraps(t *testing.T) {
	in, b := newInterner()

	zero := intLit(0, b.Int)
	div := ast.Box(&ast.BinaryExpr{Op: ast.OpDiv, Left: intLit(1, b.Int), Right: zero})
	div.X.SetType(b.Int)

	fn := ast.NewFunctionDecl(ast.FunctionProto{Name: "boom", ReturnType: b.Int}, loc(), "main")
	fn.Body = []ast.Stmt{&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: div}}

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})

	irMod := lowerModule(t, mod, in, b)

	engine := jit.NewEngine(irMod, uuid.New())
	handle, ok := engine.Lookup("main.boom")
	require.True(t, ok)

	_, err := handle.Call()
	assert.Error(t, err)
}

// TestEngineExternRequiresRegisteredBuiltin confirms an unregistered
// extern function reports a descriptive error rather than panicking.
func TestEngineExternRequiresRegisteredBuiltin(t *testing.T) {
	in, b := newInterner()

	puts := ast.NewFunctionDecl(ast.FunctionProto{Name: "puts", ReturnType: b.Void, Extern: true}, loc(), "")

	fn := ast.NewFunctionDecl(ast.FunctionProto{Name: "callsExtern", ReturnType: b.Void}, loc(), "main")
	call := ast.Box(&ast.CallExpr{Callee: "puts", ResolvedCallee: puts})
	call.X.SetType(b.Void)
	fn.Body = []ast.Stmt{&ast.ExprStmt{Node: ast.Node{Loc: loc()}, Value: call}, &ast.ReturnStmt{Node: ast.Node{Loc: loc()}}}

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{puts, fn}})

	irMod := lowerModule(t, mod, in, b)

	engine := jit.NewEngine(irMod, uuid.New())
	handle, ok := engine.Lookup("main.callsExtern")
	require.True(t, ok)

	_, err := handle.Call()
	assert.Error(t, err)

	engine.RegisterBuiltin("puts", func(args []jit.Value) (jit.Value, error) {
		return jit.Value{Kind: jit.VoidValue}, nil
	})
	_, err = handle.Call()
	assert.NoError(t, err)
}
