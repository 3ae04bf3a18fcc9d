package sema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/types"
)

// TestGenericIdentityInstantiatesAndMemoizes covers the whole generics
// path end to end: `identity<T>(x: T) -> T` called twice with the same
// concrete type must resolve to the exact same instantiation.
func TestGenericIdentityInstantiatesAndMemoizes(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	tvar := in.GetBasic("T", nil, types.Mutable, loc())
	body := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "identity",
		Params:     []*ast.ParamDecl{{Name: "x", Type: tvar}},
		ReturnType: tvar,
	}, loc(), "main")
	body.Body = []ast.Stmt{
		&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: ast.Box(&ast.VarExpr{Name: "x"})},
	}
	tmpl := ast.NewFunctionTemplate([]*ast.GenericParamDecl{{Name: "T"}}, body, loc())

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{tmpl}})
	c.TypecheckModule(m)
	require.False(t, bag.HasErrors())

	call1 := &ast.CallExpr{Callee: "identity", Args: []ast.Arg{{Expr: intLit(1, builtins.Int)}}}
	got1 := c.TypecheckExpr(ast.Box(call1), types.Type{})
	require.False(t, bag.HasErrors(), "diagnostics: %+v", bag.Diagnostics())
	assert.True(t, types.Equal(got1, builtins.Int))

	call2 := &ast.CallExpr{Callee: "identity", Args: []ast.Arg{{Expr: intLit(2, builtins.Int)}}}
	got2 := c.TypecheckExpr(ast.Box(call2), types.Type{})
	require.False(t, bag.HasErrors())
	assert.True(t, types.Equal(got2, builtins.Int))

	assert.Same(t, call1.ResolvedCallee, call2.ResolvedCallee, "same concrete type must memoize to the same instantiation")
}

// TestGenericInferenceFailsWithoutBinding covers instantiateForCall's
// could-not-infer branch when a generic parameter never appears in the
// parameter list.
func TestGenericInferenceFailsWithoutBinding(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	body := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "make",
		ReturnType: builtins.Void,
	}, loc(), "main")
	tmpl := ast.NewFunctionTemplate([]*ast.GenericParamDecl{{Name: "T"}}, body, loc())

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{tmpl}})
	c.TypecheckModule(m)
	require.False(t, bag.HasErrors())

	call := &ast.CallExpr{Callee: "make"}
	c.TypecheckExpr(ast.Box(call), types.Type{})

	var gotGenericErr bool
	for _, d := range bag.Diagnostics() {
		if d.Kind == diag.GenericError {
			gotGenericErr = true
		}
	}
	assert.True(t, gotGenericErr)
}
