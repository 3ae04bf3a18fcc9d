package sema

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

// intRank orders integer widths for widening checks; wider integers have
// a strictly higher rank, mirroring original_source's implicit integer
// promotion table.
var intRank = map[string]int{
	"int8": 1, "int16": 2, "int32": 3, "int64": 4, "int": 4,
	"uint8": 1, "uint16": 2, "uint32": 3, "uint64": 4, "uint": 4,
}

var floatRank = map[string]int{"float32": 1, "float64": 2, "float": 2, "float80": 3}

// isImplicitlyConvertible implements spec.md §4.4's five conversion
// cases. It returns the converted type and which ImplicitCastKind
// applies, or ok=false if no implicit conversion exists (the caller must
// then require an explicit cast).
func (c *Checker) isImplicitlyConvertible(from, to types.Type) (types.Type, ast.ImplicitCastKind, bool) {
	if !from.IsValid() || !to.IsValid() {
		return types.Type{}, 0, false
	}

	// T -> T? (value to optional).
	if to.IsOptionalType() && !from.IsOptionalType() {
		wrapped := to.WrappedType()
		if types.Equal(from, wrapped) || from.EqualsIgnoreTopLevelMutable(wrapped) {
			return to, ast.CastValueToOptional, true
		}
		if from.IsPointerType() && wrapped.IsPointerType() {
			return to, ast.CastPointerToOptional, true
		}
	}

	// T* -> T?* via null-checked wrap (pointer to optional-of-pointer).
	if from.IsPointerType() && to.IsOptionalType() && to.WrappedType().IsPointerType() {
		if from.Pointee().EqualsIgnoreTopLevelMutable(to.WrappedType().Pointee()) {
			return to, ast.CastPointerToOptional, true
		}
	}

	// Numeric widening that loses no information.
	if from.IsInteger() && to.IsInteger() && from.IsSigned() == to.IsSigned() {
		if intRank[to.Name()] > intRank[from.Name()] {
			return to, ast.CastIntWiden, true
		}
	}
	if from.IsFloat() && to.IsFloat() {
		if floatRank[to.Name()] > floatRank[from.Name()] {
			return to, ast.CastFloatWiden, true
		}
	}
	if from.IsInteger() && to.IsFloat() {
		return to, ast.CastIntToFloat, true
	}

	// Array-to-pointer decay for pointer parameters.
	if from.IsArrayType() && to.IsPointerType() {
		if from.ElementType().EqualsIgnoreTopLevelMutable(to.Pointee()) {
			return to, ast.CastArrayToPointer, true
		}
	}

	// Insertion of a Copyable copy when passing a copyable value of the
	// same structural shape.
	if from.EqualsIgnoreTopLevelMutable(to) && from.IsImplicitlyCopyable() {
		return to, ast.CastCopyableCopy, true
	}

	return types.Type{}, 0, false
}

// isInterface reports whether t resolves to an interface TypeDecl.
func (c *Checker) isInterface(t types.Type) bool {
	decl := c.resolveTypeDecl(t)
	return decl != nil && decl.IsInterface()
}

// ProvidesInterfaceRequirements reports whether typeDecl conforms to
// iface: every method iface declares must exist on typeDecl with a
// matching signature (covariant return, invariant parameters, same
// mutability), per spec.md §4.4/glossary. On failure it returns the name
// of the first missing requirement.
func (c *Checker) ProvidesInterfaceRequirements(typeDecl, iface *ast.TypeDecl) (string, bool) {
	for _, m := range iface.Methods {
		ifaceMethod, ok := m.(*ast.MethodDecl)
		if !ok {
			continue
		}
		if !c.hasMatchingMethod(typeDecl, ifaceMethod) {
			return ifaceMethod.Name(), false
		}
	}
	return "", true
}

func (c *Checker) hasMatchingMethod(typeDecl *ast.TypeDecl, required *ast.MethodDecl) bool {
	for _, m := range typeDecl.Methods {
		method, ok := m.(*ast.MethodDecl)
		if !ok {
			continue
		}
		if method.Name() != required.Name() {
			continue
		}
		if method.IsMutating() != required.IsMutating() {
			continue
		}
		if !method.SignatureMatches(&required.FunctionDecl, false) {
			continue
		}
		// Covariant return: equal, or an implicit conversion exists from
		// the candidate's return type to the interface's.
		if types.Equal(method.Proto.ReturnType, required.Proto.ReturnType) {
			return true
		}
		if _, _, ok := c.isImplicitlyConvertible(method.Proto.ReturnType, required.Proto.ReturnType); ok {
			return true
		}
	}
	return false
}

// checkImplementsInterface reports a diag.SemanticError naming the first
// missing requirement, per spec.md §4.4 ("a single diagnostic naming the
// first missing requirement").
func (c *Checker) checkImplementsInterface(typeDecl, iface *ast.TypeDecl, loc token.Position) {
	if missing, ok := c.ProvidesInterfaceRequirements(typeDecl, iface); !ok {
		c.Bag.Errorf(diag.SemanticError, loc,
			"type %q does not conform to interface %q: missing %q", typeDecl.Name, iface.Name, missing)
	}
}
