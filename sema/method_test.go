package sema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/types"
)

// TestMethodCallResolvesAgainstReceiverType exercises
// findCalleeCandidates' receiver branch end to end: declaring a struct
// with a method and calling it through a variable of that type must
// resolve, per spec.md §3's "methods with explicit receivers".
func TestMethodCallResolvesAgainstReceiverType(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	counter := ast.NewTypeDecl(ast.Struct, "Counter", loc(), "main")
	bump := ast.NewMethodDecl(ast.FunctionProto{Name: "bump", ReturnType: builtins.Int}, counter, loc())
	bump.Body = []ast.Stmt{&ast.ReturnStmt{Node: ast.Node{Loc: loc()}, Value: intLit(1, builtins.Int)}}
	counter.AddMethod(bump)

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{counter}})
	c.TypecheckModule(m)
	require.False(t, bag.HasErrors(), "diagnostics: %+v", bag.Diagnostics())

	recvType := counter.Type(in, types.Mutable)
	recvVar := &ast.VarDecl{Name: "c", Type: recvType}
	m.Symbols.Add("c", recvVar)

	call := &ast.CallExpr{
		Callee:   "bump",
		Receiver: ast.Box(&ast.VarExpr{Name: "c"}),
	}
	got := c.TypecheckExpr(ast.Box(call), types.Type{})

	require.False(t, bag.HasErrors(), "diagnostics: %+v", bag.Diagnostics())
	assert.True(t, types.Equal(got, builtins.Int))
	assert.Same(t, ast.Decl(bump), call.ResolvedCallee)
}

// TestMethodCallOnUnknownMemberReportsNoMatch covers the zero-candidate
// branch when the receiver type has no method with that name.
func TestMethodCallOnUnknownMemberReportsNoMatch(t *testing.T) {
	c, in, _, bag := newChecker()

	counter := ast.NewTypeDecl(ast.Struct, "Counter", loc(), "main")
	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{counter}})
	c.TypecheckModule(m)
	require.False(t, bag.HasErrors())

	recvType := counter.Type(in, types.Mutable)
	recvVar := &ast.VarDecl{Name: "c", Type: recvType}
	m.Symbols.Add("c", recvVar)

	call := &ast.CallExpr{Callee: "missing", Receiver: ast.Box(&ast.VarExpr{Name: "c"})}
	c.TypecheckExpr(ast.Box(call), types.Type{})

	assert.True(t, bag.HasErrors())
}
