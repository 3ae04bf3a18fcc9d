package sema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/sema"
	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

func loc() token.Position { return token.Position{Filename: "t.cx", Line: 1} }

func newChecker() (*sema.Checker, *types.Interner, *module.Registry, *diag.Bag) {
	in := types.NewInterner()
	reg := module.NewRegistry()
	bag := diag.NewBag()
	return sema.NewChecker(in, reg, bag), in, reg, bag
}

func intLit(n int64, t types.Type) *ast.ExprBox {
	e := &ast.IntLiteralExpr{Value: n}
	e.SetType(t)
	return ast.Box(e)
}

// TestTypecheckModuleBindsTopLevelDecls exercises the binder/driver path:
// a function declared at module scope must be findable by name afterward.
func TestTypecheckModuleBindsTopLevelDecls(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	m := module.NewModule("main")
	fn := ast.NewFunctionDecl(ast.FunctionProto{
		Name:       "answer",
		ReturnType: builtins.Int,
	}, loc(), "main")
	fn.Body = []ast.Stmt{&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: intLit(42, builtins.Int)}}
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})

	c.TypecheckModule(m)

	require.False(t, bag.HasErrors(), "diagnostics: %+v", bag.Diagnostics())
	decls := m.Symbols.Lookup("answer")
	require.Len(t, decls, 1)
	assert.Same(t, fn, decls[0])
}

// TestTypecheckModuleReportsRedefinition covers the name-collision path
// through bindTopLevel, including the "previous definition here" note.
func TestTypecheckModuleReportsRedefinition(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	m := module.NewModule("main")
	first := ast.NewFunctionDecl(ast.FunctionProto{Name: "dup", ReturnType: builtins.Void}, loc(), "main")
	second := ast.NewFunctionDecl(ast.FunctionProto{Name: "dup", ReturnType: builtins.Void}, loc(), "main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{first, second}})

	c.TypecheckModule(m)

	require.True(t, bag.HasErrors())
	found := false
	for _, d := range bag.Diagnostics() {
		if d.Kind == diag.NameError {
			found = true
			require.Len(t, d.Notes, 1)
		}
	}
	assert.True(t, found, "expected a NameError diagnostic for the redefinition")
}

// TestMissingReturnOnNonVoidPath covers checkMissingReturn's main branch.
func TestMissingReturnOnNonVoidPath(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	m := module.NewModule("main")
	fn := ast.NewFunctionDecl(ast.FunctionProto{Name: "bad", ReturnType: builtins.Int}, loc(), "main")
	fn.Body = []ast.Stmt{&ast.ExprStmt{Node: ast.Node{Loc: loc()}, Value: intLit(1, builtins.Int)}}
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})

	c.TypecheckModule(m)

	require.True(t, bag.HasErrors())
	var gotSemantic bool
	for _, d := range bag.Diagnostics() {
		if d.Kind == diag.SemanticError {
			gotSemantic = true
		}
	}
	assert.True(t, gotSemantic)
}
