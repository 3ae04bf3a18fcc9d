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

// TestBreakOutsideLoopReportsDiagnostic covers typecheckBreakStmt's
// breakableBlocks guard.
func TestBreakOutsideLoopReportsDiagnostic(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	fn := ast.NewFunctionDecl(ast.FunctionProto{Name: "f", ReturnType: builtins.Void}, loc(), "main")
	fn.Body = []ast.Stmt{&ast.BreakStmt{Node: ast.Node{Loc: loc()}}}

	m := module.NewModule("main")
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

// TestBreakInsideForLoopIsAllowed is the positive counterpart: a break
// nested in a ForStmt's body must not trigger the guard.
func TestBreakInsideForLoopIsAllowed(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	loopBody := []ast.Stmt{&ast.BreakStmt{Node: ast.Node{Loc: loc()}}}
	forStmt := &ast.ForStmt{Node: ast.Node{Loc: loc()}, Body: loopBody}

	fn := ast.NewFunctionDecl(ast.FunctionProto{Name: "f", ReturnType: builtins.Void}, loc(), "main")
	fn.Body = []ast.Stmt{forStmt}

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{fn}})
	c.TypecheckModule(m)

	assert.False(t, bag.HasErrors(), "diagnostics: %+v", bag.Diagnostics())
}

// TestUseOfMovedValueReportsDiagnostic covers move tracking: passing a
// non-copyable class value by value marks it moved, and a second use
// before reassignment is a diag.TypeError, per spec.md §4.2.
func TestUseOfMovedValueReportsDiagnostic(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	class := ast.NewTypeDecl(ast.Class, "Resource", loc(), "main")
	classType := class.Type(in, types.Mutable)

	consume := ast.NewFunctionDecl(ast.FunctionProto{
		Name: "consume", Params: []*ast.ParamDecl{{Name: "r", Type: classType}}, ReturnType: builtins.Void,
	}, loc(), "main")

	res := &ast.VarDecl{Name: "res", Type: classType}

	fn := ast.NewFunctionDecl(ast.FunctionProto{Name: "f", ReturnType: builtins.Void}, loc(), "main")
	fn.Body = []ast.Stmt{
		&ast.VarStmt{Node: ast.Node{Loc: loc()}, Decl: res},
		&ast.ExprStmt{Node: ast.Node{Loc: loc()}, Value: ast.Box(&ast.CallExpr{
			Callee: "consume",
			Args:   []ast.Arg{{Expr: ast.Box(&ast.VarExpr{Name: "res"})}},
		})},
		&ast.ExprStmt{Node: ast.Node{Loc: loc()}, Value: ast.Box(&ast.VarExpr{Name: "res"})},
	}

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{class, consume, fn}})
	c.TypecheckModule(m)

	require.True(t, bag.HasErrors(), "expected a use-of-moved-value diagnostic")
	var gotMoved bool
	for _, d := range bag.Diagnostics() {
		if d.Kind == diag.TypeError {
			gotMoved = true
		}
	}
	assert.True(t, gotMoved)
}
