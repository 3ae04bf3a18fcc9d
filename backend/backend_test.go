package backend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/backend"
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

func boolLit(v bool, b types.Builtins) *ast.ExprBox {
	e := &ast.BoolLiteralExpr{Value: v}
	e.SetType(b.Bool)
	return ast.Box(e)
}

func TestTranslateSimpleFunctionSum(t *testing.T) {
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

	llMod, err := backend.Translate(irMod)
	require.NoError(t, err)
	require.Len(t, llMod.Funcs, 1)
	llFn := llMod.Funcs[0]
	assert.Equal(t, "main.add", llFn.Name())
	assert.Len(t, llFn.Params, 2)
	require.Len(t, llFn.Blocks, 1)
	require.NotEmpty(t, llFn.Blocks[0].Insts)
}

func TestTranslateForLoopPassesVerification(t *testing.T) {
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

	llMod, err := backend.Translate(irMod)
	require.NoError(t, err, "a well-formed loop must pass per-function verification")
	require.Len(t, llMod.Funcs, 1)

	irFn := irMod.Functions[0]
	assert.Empty(t, backend.Verify(irFn), "Verify should independently confirm the same function has no phi/predecessor mismatches")
}

func TestTranslateSRetFunctionReturnsVoidWithHiddenPointerParam(t *testing.T) {
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

	llMod, err := backend.Translate(irMod)
	require.NoError(t, err)
	llFn := llMod.Funcs[0]
	assert.Equal(t, "void", llFn.Sig.RetType.String(), "an SRet function returns void")
	require.Len(t, llFn.Params, 1, "the SRet pointer is the function's only parameter")
}

func TestTranslateNamedStructIsCachedByIdentity(t *testing.T) {
	in, b := newInterner()

	outer := ast.NewTypeDecl(ast.Struct, "Pair", loc(), "main")
	outer.AddField(&ast.FieldDecl{Name: "a", Type: b.Int})
	outer.AddField(&ast.FieldDecl{Name: "b", Type: b.Int})

	p1 := &ast.ParamDecl{Name: "p1", Type: outer.Type(in, types.Mutable)}
	p2 := &ast.ParamDecl{Name: "p2", Type: outer.Type(in, types.Mutable)}
	fn := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "identity",
		Params:     []*ast.ParamDecl{p1, p2},
		ReturnType: b.Void,
	}, loc(), "main")
	fn.Body = []ast.Stmt{&ast.ReturnStmt{Node: ast.Node{Loc: loc()}}}

	mod := module.NewModule("main")
	mod.Files = append(mod.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{outer, fn}})

	var failed []error
	gen := lower.NewGenerator(in, b, "main", func(err error) { failed = append(failed, err) })
	irMod := gen.Lower(mod)
	require.Empty(t, failed, "%v", failed)

	llMod, err := backend.Translate(irMod)
	require.NoError(t, err)
	llFn := llMod.Funcs[0]
	require.Len(t, llFn.Params, 2)
	assert.Same(t, llFn.Params[0].Type(), llFn.Params[1].Type(), "both parameters share the same Pair struct, so they must be the exact same cached *types.StructType")
}
