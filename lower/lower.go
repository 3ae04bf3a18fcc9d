// Package lower implements AST→IR lowering: per-declaration emission,
// name mangling, the `this` receiver convention, the SRet calling
// convention for large return values, the scope stack that discharges
// destructors and defers, while/for-in desugaring, and statement and
// expression lowering, per spec.md §4.6. Grounded on original_source's
// src/backend/irgen-decl.cpp and irgen-stmt.cpp.
package lower

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/ir"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/types"
)

// pendingBody is a function whose prototype has been emitted but whose
// body hasn't, queued for the drain loop the same way original_source's
// functionInstantiations list defers emitFunctionBody until after every
// top-level declaration has at least a prototype.
type pendingBody struct {
	decl ast.Decl
	fn   *ir.Function
}

// Generator is the lowering pass's persistent state for one module,
// mirroring the field list original_source's IRGenerator carries (module,
// current insertion point, name counters) but restructured around
// mangled-name memoization instead of a linear scan over
// module->functions, since Go gives us a map for free.
type Generator struct {
	eh func(error)

	interner *types.Interner
	builtins types.Builtins

	module *ir.Module

	funcs   map[string]*ir.Function // mangled name -> prototype, memoizes getFunctionProto
	globals map[string]*ir.GlobalVariable

	// globalByDecl resolves a global VarExpr by declaration identity,
	// mirroring how locals are keyed by ast.Decl in funcGen.locals instead
	// of by name.
	globalByDecl map[*ast.VarDecl]*ir.GlobalVariable

	lambdaCounter int

	// structCache/unionCache cache named aggregates by the originating
	// declaration's identity, not by name, per spec.md §4.7 ("caching
	// named structs by IR struct identity").
	structCache map[types.Decl]*ir.Struct
	unionCache  map[types.Decl]*ir.Union

	pending []pendingBody
}

// NewGenerator returns a Generator that lowers against an already-seeded
// interner, producing IR into a fresh module named moduleName. eh
// receives any internal errors discovered during lowering (mirroring the
// teacher's eh func(error) field).
func NewGenerator(interner *types.Interner, builtins types.Builtins, moduleName string, eh func(error)) *Generator {
	return &Generator{
		eh:       eh,
		interner: interner,
		builtins: builtins,
		module:   ir.NewModule(moduleName),
		funcs:        map[string]*ir.Function{},
		globals:      map[string]*ir.GlobalVariable{},
		globalByDecl: map[*ast.VarDecl]*ir.GlobalVariable{},
		structCache:  map[types.Decl]*ir.Struct{},
		unionCache:   map[types.Decl]*ir.Union{},
	}
}

// Lower walks every file of mod in order, emitting a prototype (and, for
// non-extern functions, queuing a body) for every top-level declaration,
// then drains the body queue to a fixed point — draining can grow the
// queue further, since lowering a body may be the first reference to a
// generic instantiation, which getFunctionProto lazily prototypes and
// queues exactly like original_source's getFunctionProto/
// functionInstantiations pair.
func (g *Generator) Lower(mod *module.Module) *ir.Module {
	for _, file := range mod.Files {
		for _, decl := range file.Decls {
			g.declareTopLevel(decl)
		}
	}
	g.drainBodies()
	return g.module
}

func (g *Generator) declareTopLevel(decl ast.Decl) {
	switch d := decl.(type) {
	case *ast.FunctionDecl:
		g.getFunctionProto(d)
	case *ast.TypeDecl:
		for _, m := range d.Methods {
			g.getFunctionProto(m)
		}
	case *ast.VarDecl:
		g.emitGlobalVarDecl(d)
	case *ast.EnumDecl, *ast.FunctionTemplate, *ast.TypeTemplate, *ast.ImportDecl:
		// Enum declarations carry no code of their own; the struct
		// backing an enum's cases is lowered lazily the first time a
		// value of that type is referenced. Uninstantiated templates
		// never generate code directly — only the clones reachable
		// through a CallExpr.ResolvedCallee do, and those are
		// prototyped (and queued) lazily by getFunctionProto the first
		// time a call site resolves to one.
	}
}

// drainBodies emits every queued function body, repeating until the
// queue is empty: emitting one body can append fresh generic
// instantiations that getFunctionProto queued mid-emission.
func (g *Generator) drainBodies() {
	for len(g.pending) > 0 {
		batch := g.pending
		g.pending = nil
		for _, p := range batch {
			g.emitFunctionBody(p.decl, p.fn)
		}
	}
}
