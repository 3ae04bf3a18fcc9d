// Package sema implements the typechecker: name resolution, overload
// resolution, generic-argument inference, interface conformance,
// implicit conversions, move tracking, and deferred post-processing of
// forward-referenced declarations, per spec.md §4.4. Grounded on
// original_source's src/sema/typecheck.h field layout and method list.
package sema

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

// Checker is the typechecker's persistent state across one module,
// mirroring the field list of original_source's Typechecker class.
type Checker struct {
	Interner *types.Interner
	Builtins types.Builtins
	Registry *module.Registry
	Bag      *diag.Bag

	currentModule     *module.Module
	currentFunction    *ast.FunctionDecl
	functionReturnType types.Type
	breakableBlocks    int
	isPostProcessing   bool
	declsToTypecheck   []ast.Decl
}

// NewChecker returns a Checker over an already-seeded interner and
// module registry.
func NewChecker(in *types.Interner, reg *module.Registry, bag *diag.Bag) *Checker {
	return &Checker{Interner: in, Builtins: in.SeedBuiltins(), Registry: reg, Bag: bag}
}

// TypecheckModule binds every top-level declaration of m into its
// symbol table, typechecks each (queuing forward references), then
// drains the post-processing queue to a fixed point, per spec.md §4.4's
// state machine (`Declared -> NameBound -> Typed`).
func (c *Checker) TypecheckModule(m *module.Module) {
	c.currentModule = m
	for _, file := range m.Files {
		for _, decl := range file.Decls {
			c.bindTopLevel(decl)
		}
	}
	for _, file := range m.Files {
		for _, decl := range file.Decls {
			c.typecheckTopLevelDecl(decl)
		}
	}
	c.PostProcess()
}

// bindTopLevel adds decl to the module's global scope under its declared
// name, reporting a RedefinitionError as a diag.NameError with a
// previous-definition note, per spec.md §4.3.
func (c *Checker) bindTopLevel(decl ast.Decl) {
	name, ok := declName(decl)
	if !ok {
		return
	}
	if err := c.currentModule.Symbols.Add(name, decl); err != nil {
		if redef, ok := err.(*module.RedefinitionError); ok {
			c.Bag.ErrorfNotes(diag.NameError, decl.Location(),
				[]diag.Note{{Loc: redef.Prev.Location(), Message: "previous definition here"}},
				"redefinition of %q", name)
		}
	}
}

func declName(decl ast.Decl) (string, bool) {
	switch d := decl.(type) {
	case *ast.FunctionDecl:
		return d.Name(), true
	case *ast.MethodDecl:
		return d.Name(), true
	case *ast.InitDecl:
		return d.Name(), true
	case *ast.DeinitDecl:
		return d.Name(), true
	case *ast.TypeDecl:
		return d.Name, true
	case *ast.EnumDecl:
		return d.Name, true
	case *ast.VarDecl:
		return d.Name, true
	case *ast.FunctionTemplate:
		return d.Decl.Name(), true
	case *ast.TypeTemplate:
		return d.Decl.Name, true
	case *ast.ImportDecl:
		return d.Target, true
	}
	return "", false
}

// Defer queues decl for typechecking after the current pass, per
// spec.md §4.4's "forward-referenced declarations ... are queued in
// declsToTypecheck".
func (c *Checker) Defer(decl ast.Decl) {
	if c.isPostProcessing {
		return
	}
	c.declsToTypecheck = append(c.declsToTypecheck, decl)
}

// PostProcess drains declsToTypecheck to a fixed point. Cycles of mutual
// reference are allowed: each declaration's own Typed state is idempotent
// (spec.md §4.4), so re-draining a decl that's already been typechecked
// this pass is a no-op via the checked-set below.
func (c *Checker) PostProcess() {
	c.isPostProcessing = true
	defer func() { c.isPostProcessing = false }()

	checked := map[ast.Decl]bool{}
	for len(c.declsToTypecheck) > 0 {
		queue := c.declsToTypecheck
		c.declsToTypecheck = nil
		for _, decl := range queue {
			if checked[decl] {
				continue
			}
			checked[decl] = true
			c.typecheckTopLevelDecl(decl)
		}
	}
}

// typecheckTopLevelDecl dispatches a top-level declaration to its
// specific typecheck method.
func (c *Checker) typecheckTopLevelDecl(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.FunctionDecl:
		c.typecheckFunctionDecl(d)
	case *ast.FunctionTemplate:
		c.typecheckGenericParamDecls(d.GenericParams)
	case *ast.TypeDecl:
		c.typecheckTypeDecl(d)
	case *ast.TypeTemplate:
		c.typecheckGenericParamDecls(d.GenericParams)
	case *ast.EnumDecl:
		c.typecheckEnumDecl(d)
	case *ast.VarDecl:
		c.typecheckVarDecl(d, true)
	case *ast.ImportDecl:
		c.typecheckImportDecl(d)
	}
}

func (c *Checker) typecheckImportDecl(decl *ast.ImportDecl) {
	target := c.Registry.GetOrCreate(decl.Target)
	c.currentModule.AddImport(target)
}

// typecheckType validates that type is well-formed (non-invalid, and
// its element/pointee/etc. are too); reports a diag.TypeError at loc
// otherwise.
func (c *Checker) typecheckType(t types.Type, loc token.Position) {
	if !t.IsValid() {
		c.Bag.Errorf(diag.TypeError, loc, "invalid type")
	}
}

// typecheckGenericParamDecls validates a template's generic-parameter
// list. Constraint checking against actual instantiation arguments
// happens in checkConstraints at instantiation time (see generics.go);
// this is the open question from spec.md §9 resolved in favor of
// enforcement, as instructed.
func (c *Checker) typecheckGenericParamDecls(params []*ast.GenericParamDecl) {
	seen := map[string]bool{}
	for _, p := range params {
		if seen[p.Name] {
			c.Bag.Errorf(diag.NameError, p.Location(), "redefinition of generic parameter %q", p.Name)
		}
		seen[p.Name] = true
	}
}
