package sema

import "github.com/cxlang/cxc/types"

// builtinBasicNames holds every scalar type name the interner seeds via
// SeedBuiltins, so a bare, undeclared Basic type can be told apart from an
// actual unbound generic-parameter placeholder (e.g. "T") sharing the same
// "no resolved declaration" shape.
var builtinBasicNames = map[string]bool{
	"void": true, "bool": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float": true, "float32": true, "float64": true, "float80": true,
	"char": true, "String": true, "null": true, "undefined": true,
}

// isGenericPlaceholder reports whether t is a bare, undeclared Basic type
// that isn't one of the interner's builtin scalar names — i.e. a skeleton
// use of a template's own generic-parameter name.
func isGenericPlaceholder(t types.Type) bool {
	return t.IsValid() && t.Kind() == types.Basic && t.Decl() == nil &&
		len(t.GenericArgs()) == 0 && !builtinBasicNames[t.Name()]
}

// containsGenericPlaceholder reports whether t's shape still names an
// unbound generic parameter, possibly nested under a pointer/optional/
// array. Scoring treats such a parameter as always compatible with its
// argument, deferring the real check to instantiateForCall's unify/
// checkConstraints once a candidate is chosen.
func containsGenericPlaceholder(t types.Type) bool {
	if !t.IsValid() {
		return false
	}
	switch t.Kind() {
	case types.Basic:
		return isGenericPlaceholder(t)
	case types.Pointer:
		return containsGenericPlaceholder(t.Pointee())
	case types.Optional:
		return containsGenericPlaceholder(t.WrappedType())
	case types.Array:
		return containsGenericPlaceholder(t.ElementType())
	}
	return false
}
