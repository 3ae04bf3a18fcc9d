package lower

import (
	"strings"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/types"
)

// methodLike is satisfied by *ast.MethodDecl, *ast.InitDecl, and
// *ast.DeinitDecl via method promotion. Asserting against this interface
// on the original ast.Decl value (never against an unwrapped
// *ast.FunctionDecl) is required to observe the receiver-aware overrides:
// unwrapping to &d.FunctionDecl first, as signatureOf-style helpers do
// for Proto/Body access, would silently fall back to FunctionDecl's
// nil-returning ReceiverTypeDecl, the same class of bug DESIGN.md records
// sema having hit for declName/signatureOf.
type methodLike interface {
	ReceiverTypeDecl() *ast.TypeDecl
	ThisType(*types.Interner) types.Type
}

// asMethod reports whether decl has an explicit receiver, returning the
// methodLike view of it if so.
func asMethod(decl ast.Decl) (methodLike, bool) {
	m, ok := decl.(methodLike)
	if !ok || m.ReceiverTypeDecl() == nil {
		return nil, false
	}
	return m, true
}

// underlyingFunctionDecl returns the embedded *ast.FunctionDecl carrying
// decl's Proto/Body/Name/IsExtern/IsVariadic/IsMain — none of which are
// overridden by MethodDecl/InitDecl/DeinitDecl, so unwrapping to the
// embedded value here is safe (unlike methodLike above).
func underlyingFunctionDecl(decl ast.Decl) *ast.FunctionDecl {
	switch d := decl.(type) {
	case *ast.FunctionDecl:
		return d
	case *ast.MethodDecl:
		return &d.FunctionDecl
	case *ast.InitDecl:
		return &d.FunctionDecl
	case *ast.DeinitDecl:
		return &d.FunctionDecl
	}
	return nil
}

// Mangle computes decl's link name, per spec.md §4.6: "The mangled name
// encodes the module, the receiver-type qualified name if present, the
// unqualified function name, and the ordered generic arguments. Externs
// are left unmangled." Grounded on original_source's ast/mangle.h usage
// in irgen-decl.cpp's getFunctionProto (mangleFunctionDecl(decl)).
func Mangle(decl ast.Decl) string {
	fn := underlyingFunctionDecl(decl)
	if fn == nil {
		panic("lower: Mangle called on a non-function declaration")
	}
	if fn.IsExtern() {
		return fn.Name()
	}

	var sb strings.Builder
	if fn.ModuleName != "" {
		sb.WriteString(fn.ModuleName)
		sb.WriteString(".")
	}
	if m, ok := asMethod(decl); ok {
		sb.WriteString(m.ReceiverTypeDecl().Name)
		sb.WriteString(".")
	}
	sb.WriteString(fn.Name())
	for _, arg := range fn.GenericArgs {
		sb.WriteString(".")
		sb.WriteString(mangleTypeArg(arg))
	}
	return sb.String()
}

// mangleTypeArg renders a generic argument's type as a link-safe
// fragment of a mangled name, replacing characters that would collide
// with the mangling scheme's own separators and with symbol-table
// punctuation (pointer `*`, optional `?`, array brackets, tuple
// parens/commas, generic angle brackets).
func mangleTypeArg(t types.Type) string {
	s := t.String()
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		case r == '*':
			sb.WriteString("ptr")
		case r == '?':
			sb.WriteString("opt")
		case r == '-':
			sb.WriteString("neg")
		default:
			sb.WriteString("_")
		}
	}
	return sb.String()
}
