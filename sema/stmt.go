package sema

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/types"
)

func (c *Checker) typecheckStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		c.typecheckStmt(s)
	}
}

func (c *Checker) typecheckStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.ReturnStmt:
		c.typecheckReturnStmt(s)
	case *ast.VarStmt:
		c.typecheckVarStmt(s)
	case *ast.ExprStmt:
		c.TypecheckExpr(s.Value, types.Type{})
	case *ast.DeferStmt:
		c.TypecheckExpr(s.Value, types.Type{})
	case *ast.IfStmt:
		c.typecheckIfStmt(s)
	case *ast.SwitchStmt:
		c.typecheckSwitchStmt(s)
	case *ast.WhileStmt:
		c.typecheckWhileStmt(s)
	case *ast.ForStmt:
		c.typecheckForStmt(s)
	case *ast.ForInStmt:
		c.typecheckForInStmt(s)
	case *ast.BreakStmt:
		c.typecheckBreakStmt(s)
	case *ast.ContinueStmt:
		c.typecheckContinueStmt(s)
	case *ast.CompoundStmt:
		c.currentModule.Symbols.PushScope()
		c.typecheckStmts(s.Body)
		c.currentModule.Symbols.PopScope()
	case *ast.AssignStmt:
		c.typecheckAssignStmt(s)
	case *ast.IncrementStmt:
		c.typecheckIncrementStmt(s)
	case *ast.DecrementStmt:
		c.typecheckDecrementStmt(s)
	}
}

func (c *Checker) typecheckReturnStmt(s *ast.ReturnStmt) {
	if s.Value == nil {
		if c.functionReturnType.IsValid() && !c.functionReturnType.IsVoid() {
			c.Bag.Errorf(diag.SemanticError, s.Location(), "non-void function must return a value")
		}
		return
	}
	t := c.TypecheckExpr(s.Value, c.functionReturnType)
	if c.functionReturnType.IsValid() && t.IsValid() && !types.Equal(t, c.functionReturnType) {
		if _, _, ok := c.isImplicitlyConvertible(t, c.functionReturnType); !ok {
			c.Bag.Errorf(diag.TypeError, s.Location(), "cannot return %s from function returning %s", t.String(), c.functionReturnType.String())
		}
	}
}

func (c *Checker) typecheckVarStmt(s *ast.VarStmt) {
	c.typecheckVarDecl(s.Decl, false)
	c.currentModule.Symbols.Add(s.Decl.Name, s.Decl)
}

func (c *Checker) typecheckIfStmt(s *ast.IfStmt) {
	c.TypecheckExpr(s.Condition, c.Builtins.Bool)
	c.currentModule.Symbols.PushScope()
	c.typecheckStmts(s.Then)
	c.currentModule.Symbols.PopScope()
	c.currentModule.Symbols.PushScope()
	c.typecheckStmts(s.Else)
	c.currentModule.Symbols.PopScope()
}

func (c *Checker) typecheckSwitchStmt(s *ast.SwitchStmt) {
	condType := c.TypecheckExpr(s.Condition, types.Type{})
	for _, cs := range s.Cases {
		c.currentModule.Symbols.PushScope()
		if cs.Value != nil {
			c.TypecheckExpr(cs.Value, condType)
		}
		if cs.AssociatedVar != "" {
			varType := cs.AssociatedType
			c.currentModule.Symbols.Add(cs.AssociatedVar, &ast.VarDecl{Name: cs.AssociatedVar, Type: varType})
		}
		c.typecheckStmts(cs.Body)
		c.currentModule.Symbols.PopScope()
	}
}

// typecheckWhileStmt typechecks a WhileStmt as the parser produced it.
// Typechecking runs before lowering, so every while loop reaches the
// typechecker undesugared; lower.CanonicalizeLoops rewrites it into a
// ForStmt only afterwards.
func (c *Checker) typecheckWhileStmt(s *ast.WhileStmt) {
	c.TypecheckExpr(s.Condition, c.Builtins.Bool)
	c.breakableBlocks++
	c.currentModule.Symbols.PushScope()
	c.typecheckStmts(s.Body)
	c.currentModule.Symbols.PopScope()
	c.breakableBlocks--
}

func (c *Checker) typecheckForStmt(s *ast.ForStmt) {
	c.currentModule.Symbols.PushScope()
	if s.Init != nil {
		c.typecheckStmt(s.Init)
	}
	if s.Condition != nil {
		c.TypecheckExpr(s.Condition, c.Builtins.Bool)
	}
	if s.Increment != nil {
		c.TypecheckExpr(s.Increment, types.Type{})
	}
	c.breakableBlocks++
	c.typecheckStmts(s.Body)
	c.breakableBlocks--
	c.currentModule.Symbols.PopScope()
}

func (c *Checker) typecheckForInStmt(s *ast.ForInStmt) {
	c.TypecheckExpr(s.Range, types.Type{})
	c.currentModule.Symbols.PushScope()
	c.currentModule.Symbols.Add(s.VarName, &ast.VarDecl{Name: s.VarName, Type: s.VarType})
	c.breakableBlocks++
	c.typecheckStmts(s.Body)
	c.breakableBlocks--
	c.currentModule.Symbols.PopScope()
}

func (c *Checker) typecheckBreakStmt(s *ast.BreakStmt) {
	if c.breakableBlocks == 0 {
		c.Bag.Errorf(diag.SemanticError, s.Location(), "break outside loop")
	}
}

func (c *Checker) typecheckContinueStmt(s *ast.ContinueStmt) {
	if c.breakableBlocks == 0 {
		c.Bag.Errorf(diag.SemanticError, s.Location(), "continue outside loop")
	}
}

func (c *Checker) typecheckAssignStmt(s *ast.AssignStmt) {
	targetType := c.TypecheckExpr(s.Target, types.Type{})
	c.TypecheckExpr(s.Value, targetType)
	c.markUnmoved(s.Target)
}

func (c *Checker) typecheckIncrementStmt(s *ast.IncrementStmt) {
	c.TypecheckExpr(s.Target, types.Type{})
}

func (c *Checker) typecheckDecrementStmt(s *ast.DecrementStmt) {
	c.TypecheckExpr(s.Target, types.Type{})
}

// markUnmoved clears a variable's moved bit on reassignment, per
// spec.md §4.2 ("any subsequent use of that binding before
// reassignment is a diagnostic" implies reassignment clears it).
func (c *Checker) markUnmoved(box *ast.ExprBox) {
	if ve, ok := box.X.(*ast.VarExpr); ok {
		if vd, ok := ve.Decl.(*ast.VarDecl); ok {
			vd.SetMoved(false)
		}
	}
}
