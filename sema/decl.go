package sema

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/types"
)

func (c *Checker) typecheckParamDecl(p *ast.ParamDecl) {
	c.typecheckType(p.Type, p.Location())
}

func (c *Checker) typecheckParams(params []*ast.ParamDecl) {
	for _, p := range params {
		c.typecheckParamDecl(p)
	}
}

// typecheckFunctionDecl typechecks a function's signature then its body,
// with functionReturnType/currentFunction scoped to the call, per
// spec.md §4.4's state machine. Nothing here memoizes the result: a
// second call on the same declaration typechecks its signature and body
// again.
func (c *Checker) typecheckFunctionDecl(decl *ast.FunctionDecl) {
	c.typecheckParams(decl.Proto.Params)
	c.typecheckType(decl.Proto.ReturnType, decl.Location())

	prevFn, prevRet := c.currentFunction, c.functionReturnType
	c.currentFunction, c.functionReturnType = decl, decl.Proto.ReturnType
	defer func() { c.currentFunction, c.functionReturnType = prevFn, prevRet }()

	c.currentModule.Symbols.PushScope()
	defer c.currentModule.Symbols.PopScope()
	for _, p := range decl.Proto.Params {
		c.currentModule.Symbols.Add(p.Name, p)
	}

	c.typecheckStmts(decl.Body)
	c.checkMissingReturn(decl)
}

// checkMissingReturn reports a diag.SemanticError when a non-void
// function's body doesn't end in a terminating statement, per spec.md
// §7 ("missing return on non-void path"). This is a shallow,
// last-statement check; a full path-sensitive analysis is out of scope.
func (c *Checker) checkMissingReturn(decl *ast.FunctionDecl) {
	if decl.Proto.ReturnType.IsVoid() || decl.IsExtern() || len(decl.Body) == 0 {
		return
	}
	last := decl.Body[len(decl.Body)-1]
	if !ast.IsTerminating(last) {
		if ifStmt, ok := last.(*ast.IfStmt); ok && len(ifStmt.Else) > 0 &&
			ast.IsTerminating(lastOf(ifStmt.Then)) && ast.IsTerminating(lastOf(ifStmt.Else)) {
			return
		}
		c.Bag.Errorf(diag.SemanticError, decl.Location(), "missing return on non-void path in function %q", decl.Name())
	}
}

func lastOf(stmts []ast.Stmt) ast.Stmt {
	if len(stmts) == 0 {
		return nil
	}
	return stmts[len(stmts)-1]
}

func (c *Checker) typecheckVarDecl(decl *ast.VarDecl, isGlobal bool) {
	var initType types.Type
	if decl.Initializer != nil {
		box := ast.Box(decl.Initializer)
		initType = c.TypecheckExpr(box, decl.Type)
		decl.Initializer = box.X
	}
	if !decl.Type.IsValid() {
		decl.Type = initType
	} else {
		c.typecheckType(decl.Type, decl.Location())
	}
}

func (c *Checker) typecheckFieldDecl(decl *ast.FieldDecl) {
	c.typecheckType(decl.Type, decl.Location())
}

// typecheckTypeDecl typechecks a struct/class/interface/union: its
// fields, its methods' signatures and bodies, and — for each interface
// named in Conforms — that the type actually provides every requirement.
func (c *Checker) typecheckTypeDecl(decl *ast.TypeDecl) {
	for _, f := range decl.Fields {
		c.typecheckFieldDecl(f)
	}
	c.currentModule.Symbols.PushScope()
	for _, m := range decl.Methods {
		c.currentModule.Symbols.Add(methodKey(m), m)
	}
	c.currentModule.Symbols.PopScope()

	for _, m := range decl.Methods {
		c.typecheckMemberDecl(m)
	}

	for ifaceName, declared := range decl.Conforms {
		if !declared {
			continue
		}
		ifaceDecls := c.currentModule.Symbols.Lookup(ifaceName)
		if len(ifaceDecls) == 0 {
			continue
		}
		if iface, ok := ifaceDecls[0].(*ast.TypeDecl); ok {
			c.checkImplementsInterface(decl, iface, decl.Location())
		}
	}
}

func methodKey(decl ast.Decl) string {
	if name, ok := declName(decl); ok {
		return name
	}
	return ""
}

func (c *Checker) typecheckMemberDecl(decl ast.Decl) {
	switch m := decl.(type) {
	case *ast.InitDecl:
		c.typecheckFunctionDecl(&m.FunctionDecl)
	case *ast.DeinitDecl:
		c.typecheckFunctionDecl(&m.FunctionDecl)
	case *ast.MethodDecl:
		c.typecheckFunctionDecl(&m.FunctionDecl)
	}
}

func (c *Checker) typecheckEnumDecl(decl *ast.EnumDecl) {
	for _, cs := range decl.Cases {
		if cs.AssociatedType.IsValid() {
			c.typecheckType(cs.AssociatedType, cs.Location())
		}
	}
}
