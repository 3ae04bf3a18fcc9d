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

// TestOverloadResolvesExactArityMatch exercises the single-candidate path
// through resolveOverload/validateArgs.
func TestOverloadResolvesExactArityMatch(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	fn := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "add",
		Params:     []*ast.ParamDecl{{Name: "a", Type: builtins.Int}, {Name: "b", Type: builtins.Int}},
		ReturnType: builtins.Int,
	}, loc(), "main")

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})
	c.TypecheckModule(m)
	require.False(t, bag.HasErrors())

	call := &ast.CallExpr{
		Callee: "add",
		Args: []ast.Arg{
			{Expr: intLit(1, builtins.Int)},
			{Expr: intLit(2, builtins.Int)},
		},
	}
	box := ast.Box(call)
	got := c.TypecheckExpr(box, types.Type{})
	assert.True(t, got.IsValid())
	assert.Same(t, fn, call.ResolvedCallee)
}

// TestOverloadPicksFewerConversions covers score/better's conversion-count
// tiebreak: one overload matches exactly, the other needs an int-to-float
// conversion.
func TestOverloadPicksFewerConversions(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	exact := ast.NewFunctionDecl(ast.FunctionProto{
		Name: "take", Params: []*ast.ParamDecl{{Name: "v", Type: builtins.Int}}, ReturnType: builtins.Void,
	}, loc(), "main")
	converted := ast.NewFunctionDecl(ast.FunctionProto{
		Name: "take", Params: []*ast.ParamDecl{{Name: "v", Type: builtins.Float64}}, ReturnType: builtins.Void,
	}, loc(), "main")

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{exact, converted}})
	c.TypecheckModule(m)
	require.False(t, bag.HasErrors())

	call := &ast.CallExpr{Callee: "take", Args: []ast.Arg{{Expr: intLit(1, builtins.Int)}}}
	box := ast.Box(call)
	c.TypecheckExpr(box, types.Type{})
	require.False(t, bag.HasErrors())
	assert.Same(t, exact, call.ResolvedCallee)
}

// TestOverloadReportsAmbiguity covers resolveOverload's ambiguity branch:
// two distinctly-named-parameter overloads that score identically for a
// given call (module.SymbolTable.Add allows both since their signatures
// differ by parameter name, so both are visible candidates).
func TestOverloadReportsAmbiguity(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	fnA := ast.NewFunctionDecl(ast.FunctionProto{
		Name: "dup", Params: []*ast.ParamDecl{{Name: "x", Type: builtins.Int}}, ReturnType: builtins.Int,
	}, loc(), "main")
	fnB := ast.NewFunctionDecl(ast.FunctionProto{
		Name: "dup", Params: []*ast.ParamDecl{{Name: "y", Type: builtins.Int}}, ReturnType: builtins.Int,
	}, loc(), "main")

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fnA, fnB}})
	c.TypecheckModule(m)
	require.False(t, bag.HasErrors(), "two overloads with distinct param names must not collide as a redefinition")

	call := &ast.CallExpr{Callee: "dup", Args: []ast.Arg{{Expr: intLit(1, builtins.Int)}}}
	box := ast.Box(call)
	c.TypecheckExpr(box, types.Type{})

	var gotAmbiguity bool
	for _, d := range bag.Diagnostics() {
		if d.Kind == diag.OverloadError {
			gotAmbiguity = true
		}
	}
	assert.True(t, gotAmbiguity, "expected an OverloadError for the ambiguous call")
}

// TestOverloadReportsNoViableCandidate covers the no-viable-candidate
// branch when arity never matches.
func TestOverloadReportsNoViableCandidate(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	fn := ast.NewFunctionDecl(ast.FunctionProto{
		Name: "one", Params: []*ast.ParamDecl{{Name: "x", Type: builtins.Int}}, ReturnType: builtins.Void,
	}, loc(), "main")

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})
	c.TypecheckModule(m)
	require.False(t, bag.HasErrors())

	call := &ast.CallExpr{Callee: "one", Args: []ast.Arg{
		{Expr: intLit(1, builtins.Int)}, {Expr: intLit(2, builtins.Int)},
	}}
	box := ast.Box(call)
	c.TypecheckExpr(box, types.Type{})

	var gotOverloadErr bool
	for _, d := range bag.Diagnostics() {
		if d.Kind == diag.OverloadError {
			gotOverloadErr = true
		}
	}
	assert.True(t, gotOverloadErr)
}
