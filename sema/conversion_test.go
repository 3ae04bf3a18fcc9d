package sema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/types"
)

// TestImplicitIntWideningInsertsCast covers isImplicitlyConvertible's
// integer-widening case end to end through TypecheckExpr's auto-wrap. The
// int32 operand is an explicit cast rather than a bare literal, since an
// integer literal adopts the expected integer type and needs no widening.
func TestImplicitIntWideningInsertsCast(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	box := ast.Box(&ast.CastExpr{Operand: intLit(1, builtins.Int32), TargetType: builtins.Int32})
	got := c.TypecheckExpr(box, builtins.Int64)

	require.False(t, bag.HasErrors())
	assert.True(t, types.Equal(got, builtins.Int64))
	_, ok := box.X.(*ast.ImplicitCastExpr)
	assert.True(t, ok, "expected the literal to be wrapped in an ImplicitCastExpr")
}

// TestValueToOptionalWraps covers the T -> T? implicit conversion case.
func TestValueToOptionalWraps(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()
	optInt := in.GetOptional(builtins.Int, types.Mutable, loc())

	box := intLit(1, builtins.Int)
	got := c.TypecheckExpr(box, optInt)

	require.False(t, bag.HasErrors())
	assert.True(t, types.Equal(got, optInt))
	_, ok := box.X.(*ast.ImplicitCastExpr)
	assert.True(t, ok)
}

// TestInterfaceConformanceReportsFirstMissingMethod covers
// checkImplementsInterface's diagnostic path.
func TestInterfaceConformanceReportsFirstMissingMethod(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	iface := ast.NewTypeDecl(ast.Interface, "Greeter", loc(), "main")
	greet := ast.NewMethodDecl(ast.FunctionProto{Name: "greet", ReturnType: builtins.Void}, iface, loc())
	iface.AddMethod(greet)

	impl := ast.NewTypeDecl(ast.Struct, "Robot", loc(), "main")
	impl.Conforms["Greeter"] = true

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{iface, impl}})
	c.TypecheckModule(m)

	var gotMissing bool
	for _, d := range bag.Diagnostics() {
		if strings.Contains(d.Message, "Greeter") && strings.Contains(d.Message, "greet") {
			gotMissing = true
		}
	}
	assert.True(t, gotMissing, "diagnostics: %+v", bag.Diagnostics())
}

// TestInterfaceConformanceSatisfiedProducesNoDiagnostic is the positive
// counterpart: a type that implements every method conforms cleanly.
func TestInterfaceConformanceSatisfiedProducesNoDiagnostic(t *testing.T) {
	c, in, _, bag := newChecker()
	builtins := in.SeedBuiltins()

	iface := ast.NewTypeDecl(ast.Interface, "Greeter", loc(), "main")
	ifaceGreet := ast.NewMethodDecl(ast.FunctionProto{Name: "greet", ReturnType: builtins.Void}, iface, loc())
	iface.AddMethod(ifaceGreet)

	impl := ast.NewTypeDecl(ast.Struct, "Robot", loc(), "main")
	implGreet := ast.NewMethodDecl(ast.FunctionProto{Name: "greet", ReturnType: builtins.Void}, impl, loc())
	implGreet.Body = []ast.Stmt{&ast.ReturnStmt{Node: ast.Node{Loc: loc()}}}
	impl.AddMethod(implGreet)
	impl.Conforms["Greeter"] = true

	m := module.NewModule("main")
	m.Files = append(m.Files, &ast.File{Path: "t.cx", Decls: []ast.Decl{iface, impl}})
	c.TypecheckModule(m)

	assert.False(t, bag.HasErrors(), "diagnostics: %+v", bag.Diagnostics())
}
