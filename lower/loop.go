package lower

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/types"
)

// CanonicalizeLoops rewrites every WhileStmt, recursively through every
// nested statement list, into the canonical ForStmt shape `for (; cond;)
// body`, per spec.md §4.2's "Lowering of loops". Named exactly as
// ast/stmt.go's WhileStmt doc comment references it, and run before
// statement lowering, since original_source's irgen-stmt.cpp emitStmt
// treats a surviving WhileStmt as unreachable.
func CanonicalizeLoops(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = canonicalizeLoopsStmt(s)
	}
	return out
}

func canonicalizeLoopsStmt(s ast.Stmt) ast.Stmt {
	switch s := s.(type) {
	case *ast.WhileStmt:
		return &ast.ForStmt{Node: s.Node, Condition: s.Condition, Body: CanonicalizeLoops(s.Body)}
	case *ast.ForStmt:
		var init ast.Stmt
		if s.Init != nil {
			init = canonicalizeLoopsStmt(s.Init)
		}
		return &ast.ForStmt{Node: s.Node, Init: init, Condition: s.Condition, Increment: s.Increment, Body: CanonicalizeLoops(s.Body)}
	case *ast.ForInStmt:
		return &ast.ForInStmt{Node: s.Node, VarName: s.VarName, VarType: s.VarType, Range: s.Range, Body: CanonicalizeLoops(s.Body)}
	case *ast.IfStmt:
		return &ast.IfStmt{Node: s.Node, Condition: s.Condition, Then: CanonicalizeLoops(s.Then), Else: CanonicalizeLoops(s.Else)}
	case *ast.SwitchStmt:
		clone := &ast.SwitchStmt{Node: s.Node, Condition: s.Condition}
		for _, c := range s.Cases {
			clone.Cases = append(clone.Cases, ast.SwitchCase{
				Value: c.Value, AssociatedVar: c.AssociatedVar, AssociatedType: c.AssociatedType,
				Body: CanonicalizeLoops(c.Body),
			})
		}
		return clone
	case *ast.CompoundStmt:
		return &ast.CompoundStmt{Node: s.Node, Body: CanonicalizeLoops(s.Body)}
	default:
		return s
	}
}

// DesugarForIn rewrites every ForInStmt, recursively through every nested
// statement list, into the canonical ForStmt driving a synthetic
// iterator, per spec.md §4.2:
//
//	for (var __iterN = <range or range.iterator()>;
//	     __iterN.hasValue();
//	     __iterN.increment()) {
//	  var v = __iterN.value();
//	  body
//	}
//
// interner resolves the synthetic __iterN binding's type. counter
// disambiguates the synthetic name across nested loops in one function;
// pass a fresh *int (starting at 0) per function body, per spec.md §4.2's
// "nesting counter".
func DesugarForIn(stmts []ast.Stmt, interner *types.Interner, counter *int) []ast.Stmt {
	out := make([]ast.Stmt, len(stmts))
	for i, s := range stmts {
		out[i] = desugarForInStmt(s, interner, counter)
	}
	return out
}

func desugarForInStmt(s ast.Stmt, interner *types.Interner, counter *int) ast.Stmt {
	switch s := s.(type) {
	case *ast.ForInStmt:
		return desugarOneForIn(s, interner, counter)
	case *ast.ForStmt:
		var init ast.Stmt
		if s.Init != nil {
			init = desugarForInStmt(s.Init, interner, counter)
		}
		return &ast.ForStmt{Node: s.Node, Init: init, Condition: s.Condition, Increment: s.Increment, Body: DesugarForIn(s.Body, interner, counter)}
	case *ast.WhileStmt:
		return &ast.WhileStmt{Node: s.Node, Condition: s.Condition, Body: DesugarForIn(s.Body, interner, counter)}
	case *ast.IfStmt:
		return &ast.IfStmt{Node: s.Node, Condition: s.Condition, Then: DesugarForIn(s.Then, interner, counter), Else: DesugarForIn(s.Else, interner, counter)}
	case *ast.SwitchStmt:
		clone := &ast.SwitchStmt{Node: s.Node, Condition: s.Condition}
		for _, c := range s.Cases {
			clone.Cases = append(clone.Cases, ast.SwitchCase{
				Value: c.Value, AssociatedVar: c.AssociatedVar, AssociatedType: c.AssociatedType,
				Body: DesugarForIn(c.Body, interner, counter),
			})
		}
		return clone
	case *ast.CompoundStmt:
		return &ast.CompoundStmt{Node: s.Node, Body: DesugarForIn(s.Body, interner, counter)}
	default:
		return s
	}
}

func desugarOneForIn(s *ast.ForInStmt, interner *types.Interner, counter *int) ast.Stmt {
	name := "__iter" + itoaSimple(*counter)
	*counter++

	rangeType := s.Range.X.Type()
	stripped := rangeType
	for stripped.IsPointerType() {
		stripped = stripped.Pointee()
	}

	var iterInit *ast.ExprBox
	var iterType types.Type
	if conformsToIterator(stripped) {
		iterInit = s.Range
		iterType = stripped
	} else {
		decl, retType := resolveMethodOnType(stripped, "iterator")
		call := &ast.CallExpr{Callee: "iterator", Receiver: s.Range, ResolvedCallee: decl}
		call.SetType(retType)
		iterInit = ast.Box(call)
		iterType = retType
	}

	iterDecl := &ast.VarDecl{Name: name, Type: iterType, Initializer: iterInit.X}

	hasValueDecl, hasValueType := resolveMethodOnType(iterType, "hasValue")
	hasValueCall := &ast.CallExpr{Callee: "hasValue", Receiver: ast.Box(&ast.VarExpr{Name: name, Decl: iterDecl}), ResolvedCallee: hasValueDecl}
	hasValueCall.SetType(hasValueType)

	incrementDecl, incrementType := resolveMethodOnType(iterType, "increment")
	incrementCall := &ast.CallExpr{Callee: "increment", Receiver: ast.Box(&ast.VarExpr{Name: name, Decl: iterDecl}), ResolvedCallee: incrementDecl}
	incrementCall.SetType(incrementType)

	valueDecl, valueType := resolveMethodOnType(iterType, "value")
	valueCall := &ast.CallExpr{Callee: "value", Receiver: ast.Box(&ast.VarExpr{Name: name, Decl: iterDecl}), ResolvedCallee: valueDecl}
	valueCall.SetType(valueType)

	varType := s.VarType
	if !varType.IsValid() {
		varType = valueType
	}
	bindingDecl := &ast.VarDecl{Name: s.VarName, Type: varType, Initializer: valueCall}
	bindingStmt := &ast.VarStmt{Node: s.Node, Decl: bindingDecl}

	body := DesugarForIn(s.Body, interner, counter)

	return &ast.ForStmt{
		Node:      s.Node,
		Init:      &ast.VarStmt{Node: s.Node, Decl: iterDecl},
		Condition: ast.Box(hasValueCall),
		Increment: ast.Box(incrementCall),
		Body:      append([]ast.Stmt{bindingStmt}, body...),
	}
}

// conformsToIterator reports whether t (with pointers already stripped)
// already satisfies the Iterator interface, letting desugarOneForIn omit
// the `.iterator()` call per spec.md §4.2.
func conformsToIterator(t types.Type) bool {
	return t.IsValid() && t.Kind() == types.Basic && t.Decl() != nil && t.Decl().ConformsTo("Iterator")
}

// resolveMethodOnType finds the named, unparameterized method on t's
// resolved TypeDecl — sufficient for the four fixed Iterator protocol
// calls this desugaring ever constructs, which never need full overload
// resolution.
func resolveMethodOnType(t types.Type, name string) (*ast.MethodDecl, types.Type) {
	decl, _ := t.Decl().(*ast.TypeDecl)
	if decl == nil {
		return nil, types.Type{}
	}
	for _, m := range decl.Methods {
		if md, ok := m.(*ast.MethodDecl); ok && md.Name() == name {
			return md, md.Proto.ReturnType
		}
	}
	return nil, types.Type{}
}
