package sema

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/types"
)

// TypecheckCallExpr collects candidate callees, resolves the overload,
// typechecks arguments against the chosen signature, and returns the
// call's result type, per spec.md §4.4.
func (c *Checker) TypecheckCallExpr(e *ast.CallExpr, expected types.Type) types.Type {
	if e.Receiver != nil {
		c.TypecheckExpr(e.Receiver, types.Type{})
	}
	candidates := c.findCalleeCandidates(e)
	if len(candidates) == 0 {
		c.Bag.Errorf(diag.OverloadError, e.Location(), "no matching function for call to %q", e.Callee)
		for _, arg := range e.Args {
			c.TypecheckExpr(arg.Expr, types.Type{})
		}
		return types.Type{}
	}

	best, ok := c.resolveOverload(candidates, e)
	if !ok {
		for _, arg := range e.Args {
			c.TypecheckExpr(arg.Expr, types.Type{})
		}
		return types.Type{}
	}
	e.ResolvedCallee = best

	fn, params, returnType := c.signatureOf(best)
	if fn != nil && len(fn.GenericArgs) == 0 {
		if tmpl := c.templateForGenericCall(e, fn); tmpl != nil {
			inst, resolvedRet := c.instantiateForCall(tmpl, e, params, returnType)
			if inst != nil {
				e.ResolvedCallee = inst
				params = inst.Proto.Params
				returnType = resolvedRet
			}
		}
	}

	c.validateArgs(e, params)
	if returnType.IsValid() {
		return returnType
	}
	return c.Builtins.Void
}

// findCalleeCandidates gathers every same-named overload visible from
// the current scope (and, for method calls, the receiver's TypeDecl),
// per spec.md §4.4.
func (c *Checker) findCalleeCandidates(e *ast.CallExpr) []ast.Decl {
	if e.Receiver != nil {
		recvType := e.Receiver.X.Type()
		decl := c.resolveTypeDecl(recvType)
		if decl == nil {
			return nil
		}
		var out []ast.Decl
		for _, m := range decl.Methods {
			if name, ok := declName(m); ok && name == e.Callee {
				out = append(out, m)
			}
		}
		return out
	}
	decls := c.currentModule.Symbols.Lookup(e.Callee)
	if len(decls) == 0 {
		for _, imp := range c.currentModule.Imports {
			if found := imp.Symbols.Lookup(e.Callee); len(found) > 0 {
				decls = found
				break
			}
		}
	}
	var out []ast.Decl
	for _, d := range decls {
		switch d.(type) {
		case *ast.FunctionDecl, *ast.FunctionTemplate:
			out = append(out, d)
		}
	}
	return out
}

// signatureOf returns the underlying *ast.FunctionDecl (unwrapping the
// FunctionDecl embedded in MethodDecl/InitDecl/DeinitDecl) plus its
// parameter list and return type, for any callable declaration kind.
func (c *Checker) signatureOf(decl ast.Decl) (fn *ast.FunctionDecl, params []*ast.ParamDecl, ret types.Type) {
	switch d := decl.(type) {
	case *ast.FunctionDecl:
		return d, d.Proto.Params, d.Proto.ReturnType
	case *ast.MethodDecl:
		return &d.FunctionDecl, d.Proto.Params, d.Proto.ReturnType
	case *ast.InitDecl:
		return &d.FunctionDecl, d.Proto.Params, d.Proto.ReturnType
	case *ast.DeinitDecl:
		return &d.FunctionDecl, d.Proto.Params, d.Proto.ReturnType
	case *ast.FunctionTemplate:
		return d.Decl, d.Decl.Proto.Params, d.Decl.Proto.ReturnType
	}
	return nil, nil, types.Type{}
}

// candidateScore ranks a candidate by the lexicographic keys from
// spec.md §4.4: (1) arity match, (2) named-argument match, (3) count of
// implicit conversions required. Lower is better; a nil score means the
// candidate doesn't match at all.
type candidateScore struct {
	arityOK      bool
	namedOK      bool
	conversions  int
}

func (c *Checker) score(decl ast.Decl, e *ast.CallExpr) (candidateScore, bool) {
	fn, params, _ := c.signatureOf(decl)
	variadic := fn != nil && fn.IsVariadic()

	if !variadic && len(e.Args) != len(params) {
		return candidateScore{}, false
	}
	if variadic && len(e.Args) < len(params) {
		return candidateScore{}, false
	}

	namedOK := true
	conversions := 0
	for i, arg := range e.Args {
		if i >= len(params) {
			break // variadic tail
		}
		if arg.Name != "" && arg.Name != params[i].Name {
			namedOK = false
		}
		argType := arg.Expr.X.Type()
		if argType.IsValid() && params[i].Type.IsValid() && !types.Equal(argType, params[i].Type) {
			if containsGenericPlaceholder(params[i].Type) {
				continue
			}
			if _, _, ok := c.isImplicitlyConvertible(argType, params[i].Type); ok {
				conversions++
			} else {
				return candidateScore{}, false
			}
		}
	}
	return candidateScore{arityOK: true, namedOK: namedOK, conversions: conversions}, true
}

// better reports whether a strictly beats b on the lexicographic key
// order spec.md §4.4 defines.
func better(a, b candidateScore) bool {
	if a.namedOK != b.namedOK {
		return a.namedOK
	}
	return a.conversions < b.conversions
}

// resolveOverload picks the single strictly-best candidate, or reports
// a diag.OverloadError (no viable candidate, or an ambiguity when no
// candidate strictly beats all others), per spec.md §4.4/§8 invariant 6.
func (c *Checker) resolveOverload(candidates []ast.Decl, e *ast.CallExpr) (ast.Decl, bool) {
	// Typecheck args once, without an expected type, so scores can compare
	// argument types against each candidate's parameters.
	for _, arg := range e.Args {
		c.TypecheckExpr(arg.Expr, types.Type{})
	}

	var viable []ast.Decl
	var scores []candidateScore
	for _, cand := range candidates {
		s, ok := c.score(cand, e)
		if ok {
			viable = append(viable, cand)
			scores = append(scores, s)
		}
	}
	if len(viable) == 0 {
		c.Bag.Errorf(diag.OverloadError, e.Location(), "no viable overload for call to %q", e.Callee)
		return nil, false
	}

	bestIdx := 0
	for i := 1; i < len(viable); i++ {
		if better(scores[i], scores[bestIdx]) {
			bestIdx = i
		}
	}
	for i := range viable {
		if i == bestIdx {
			continue
		}
		if !better(scores[bestIdx], scores[i]) {
			c.Bag.Errorf(diag.OverloadError, e.Location(), "ambiguous call to %q", e.Callee)
			return nil, false
		}
	}
	return viable[bestIdx], true
}

// validateArgs typechecks each argument against its resolved parameter
// type, inserting implicit conversions.
func (c *Checker) validateArgs(e *ast.CallExpr, params []*ast.ParamDecl) {
	for i, arg := range e.Args {
		var expected types.Type
		if i < len(params) {
			expected = params[i].Type
		}
		c.TypecheckExpr(arg.Expr, expected)
		if i < len(params) && !params[i].Type.IsImplicitlyCopyable() {
			if ve, ok := arg.Expr.X.(*ast.VarExpr); ok {
				if vd, ok := ve.Decl.(*ast.VarDecl); ok {
					vd.SetMoved(true)
				}
			}
		}
	}
}
