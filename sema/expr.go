package sema

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/types"
)

// TypecheckExpr resolves box's expression, inserting implicit casts
// in-place, and returns its final type, per spec.md §4.4. expected is
// the type context for literal typing and overload steering; pass an
// invalid Type when there is none.
func (c *Checker) TypecheckExpr(box *ast.ExprBox, expected types.Type) types.Type {
	t := c.typecheckExprKind(box, expected)
	box.X.SetType(t)
	if expected.IsValid() && t.IsValid() && !types.Equal(t, expected) {
		if converted, kind, ok := c.isImplicitlyConvertible(t, expected); ok {
			box.Wrap(kind, converted)
			return converted
		}
	}
	return t
}

func (c *Checker) typecheckExprKind(box *ast.ExprBox, expected types.Type) types.Type {
	switch e := box.X.(type) {
	case *ast.VarExpr:
		return c.typecheckVarExpr(e)
	case *ast.IntLiteralExpr:
		return c.typecheckIntLiteral(e, expected)
	case *ast.FloatLiteralExpr:
		if expected.IsValid() && expected.IsFloat() {
			return expected
		}
		return c.Builtins.Float64
	case *ast.BoolLiteralExpr:
		return c.Builtins.Bool
	case *ast.StringLiteralExpr:
		return c.Builtins.StringT
	case *ast.CharLiteralExpr:
		return c.Builtins.Char
	case *ast.NullLiteralExpr:
		return c.Builtins.Null
	case *ast.UndefinedLiteralExpr:
		return c.Builtins.Undefined
	case *ast.ArrayLiteralExpr:
		return c.typecheckArrayLiteralExpr(e)
	case *ast.TupleExpr:
		return c.typecheckTupleExpr(e)
	case *ast.PrefixExpr:
		return c.typecheckPrefixExpr(e)
	case *ast.BinaryExpr:
		return c.typecheckBinaryExpr(e)
	case *ast.CallExpr:
		return c.TypecheckCallExpr(e, expected)
	case *ast.CastExpr:
		return c.typecheckCastExpr(e)
	case *ast.SizeofExpr:
		return c.Builtins.UInt64
	case *ast.AddressofExpr:
		return c.typecheckAddressofExpr(e)
	case *ast.MemberExpr:
		return c.typecheckMemberExpr(e)
	case *ast.SubscriptExpr:
		return c.typecheckSubscriptExpr(e)
	case *ast.UnwrapExpr:
		return c.typecheckUnwrapExpr(e)
	case *ast.IfExpr:
		return c.typecheckIfExpr(e)
	case *ast.ImplicitCastExpr:
		return e.Type()
	}
	c.Bag.Errorf(diag.InternalError, box.X.Location(), "unhandled expression kind")
	return types.Type{}
}

func (c *Checker) typecheckVarExpr(e *ast.VarExpr) types.Type {
	decls := c.currentModule.Symbols.Lookup(e.Name)
	if len(decls) == 0 {
		for _, imp := range c.currentModule.Imports {
			if found := imp.Symbols.Lookup(e.Name); len(found) > 0 {
				decls = found
				break
			}
		}
	}
	if len(decls) == 0 {
		c.Bag.Errorf(diag.NameError, e.Location(), "use of undeclared identifier %q", e.Name)
		return types.Type{}
	}
	e.Decl = decls[0]
	switch d := decls[0].(type) {
	case *ast.VarDecl:
		if d.IsMoved() {
			c.Bag.Errorf(diag.TypeError, e.Location(), "use of moved value %q", e.Name)
		}
		return d.Type
	case *ast.ParamDecl:
		if d.IsMoved() {
			c.Bag.Errorf(diag.TypeError, e.Location(), "use of moved value %q", e.Name)
		}
		return d.Type
	case *ast.FunctionDecl:
		return d.FunctionType(c.Interner)
	}
	return types.Type{}
}

func (c *Checker) typecheckIntLiteral(e *ast.IntLiteralExpr, expected types.Type) types.Type {
	if expected.IsValid() && expected.IsInteger() {
		return expected
	}
	if expected.IsValid() && expected.IsFloat() {
		return expected
	}
	return c.Builtins.Int
}

func (c *Checker) typecheckArrayLiteralExpr(e *ast.ArrayLiteralExpr) types.Type {
	var elemType types.Type
	for _, el := range e.Elements {
		t := c.TypecheckExpr(el, elemType)
		if !elemType.IsValid() {
			elemType = t
		}
	}
	if !elemType.IsValid() {
		elemType = c.Builtins.Void
	}
	return c.Interner.GetArray(elemType, types.ArraySize(len(e.Elements)), types.Mutable, e.Location())
}

func (c *Checker) typecheckTupleExpr(e *ast.TupleExpr) types.Type {
	elems := make([]types.Type, len(e.Elements))
	for i, el := range e.Elements {
		elems[i] = c.TypecheckExpr(el, types.Type{})
	}
	return c.Interner.GetTuple(e.Names, elems, types.Mutable, e.Location())
}

func (c *Checker) typecheckPrefixExpr(e *ast.PrefixExpr) types.Type {
	t := c.TypecheckExpr(e.Operand, types.Type{})
	switch e.Op {
	case ast.OpNot:
		return c.Builtins.Bool
	default:
		return t
	}
}

func (c *Checker) typecheckBinaryExpr(e *ast.BinaryExpr) types.Type {
	left := c.TypecheckExpr(e.Left, types.Type{})
	right := c.TypecheckExpr(e.Right, left)
	switch e.Op {
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLeq, ast.OpGt, ast.OpGeq, ast.OpLAnd, ast.OpLOr:
		return c.Builtins.Bool
	}
	if left.IsValid() {
		return left
	}
	return right
}

func (c *Checker) typecheckCastExpr(e *ast.CastExpr) types.Type {
	c.TypecheckExpr(e.Operand, types.Type{})
	c.typecheckType(e.TargetType, e.Location())
	return e.TargetType
}

func (c *Checker) typecheckAddressofExpr(e *ast.AddressofExpr) types.Type {
	t := c.TypecheckExpr(e.Operand, types.Type{})
	return c.Interner.GetPointer(t, types.Mutable, e.Location())
}

func (c *Checker) typecheckMemberExpr(e *ast.MemberExpr) types.Type {
	baseType := c.TypecheckExpr(e.Base, types.Type{})
	decl := c.resolveTypeDecl(baseType)
	if decl == nil {
		c.Bag.Errorf(diag.TypeError, e.Location(), "cannot access member %q", e.Field)
		return types.Type{}
	}
	if idx, ok := decl.FieldIndex(e.Field); ok {
		return decl.Fields[idx].Type
	}
	for _, m := range decl.Methods {
		if name, ok := declName(m); ok && name == e.Field {
			if fn, ok := m.(*ast.FunctionDecl); ok {
				return fn.FunctionType(c.Interner)
			}
		}
	}
	c.Bag.Errorf(diag.NameError, e.Location(), "type %q has no member %q", decl.Name, e.Field)
	return types.Type{}
}

func (c *Checker) resolveTypeDecl(t types.Type) *ast.TypeDecl {
	stripped := t
	for stripped.IsPointerType() {
		stripped = stripped.Pointee()
	}
	if !stripped.IsBasicType() {
		return nil
	}
	d, _ := stripped.Decl().(*ast.TypeDecl)
	return d
}

func (c *Checker) typecheckSubscriptExpr(e *ast.SubscriptExpr) types.Type {
	baseType := c.TypecheckExpr(e.Base, types.Type{})
	c.TypecheckExpr(e.Index, c.Builtins.Int)
	if baseType.IsArrayType() {
		return baseType.ElementType()
	}
	if baseType.IsPointerType() {
		return baseType.Pointee()
	}
	c.Bag.Errorf(diag.TypeError, e.Location(), "cannot subscript non-array, non-pointer type")
	return types.Type{}
}

func (c *Checker) typecheckUnwrapExpr(e *ast.UnwrapExpr) types.Type {
	t := c.TypecheckExpr(e.Operand, types.Type{})
	if !t.IsOptionalType() {
		c.Bag.Errorf(diag.TypeError, e.Location(), "cannot unwrap non-optional type %s", t.String())
		return types.Type{}
	}
	return t.WrappedType()
}

func (c *Checker) typecheckIfExpr(e *ast.IfExpr) types.Type {
	c.TypecheckExpr(e.Condition, c.Builtins.Bool)
	thenT := c.TypecheckExpr(e.Then, types.Type{})
	c.TypecheckExpr(e.Else, thenT)
	return thenT
}
