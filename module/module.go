// Package module implements the per-module scope stack, global symbol
// table, and process-wide import registry from spec.md §3/§4.3, grounded
// on original_source's ast/module.cpp.
package module

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rickypai/natsort"
	"gopkg.in/yaml.v3"

	"github.com/cxlang/cxc/ast"
)

// Module owns a list of source files and its own symbol table, per
// spec.md §3.
type Module struct {
	Name    string
	Files   []*ast.File
	Symbols *SymbolTable
	// Imports holds the modules directly imported by this one, in import
	// order, deduplicated by name (spec.md §4.3: "Imports are idempotent").
	Imports []*Module
	imported map[string]bool
}

// NewModule returns an empty module with a fresh global scope.
func NewModule(name string) *Module {
	m := &Module{Name: name, imported: map[string]bool{}}
	m.Symbols = NewSymbolTable()
	return m
}

// AddImport records target as imported by m, idempotently.
func (m *Module) AddImport(target *Module) {
	if m.imported[target.Name] {
		return
	}
	m.imported[target.Name] = true
	m.Imports = append(m.Imports, target)
}

// IsStdlib reports whether m is the standard library module, the one
// literal name spec.md §4.3 singles out.
func (m *Module) IsStdlib() bool { return m.Name == "std" }

// Scope is one level of a SymbolTable's scope stack: a name to overload-set
// mapping.
type Scope struct {
	entries map[string][]ast.Decl
}

func newScope() *Scope { return &Scope{entries: map[string][]ast.Decl{}} }

// RedefinitionError reports that name collided with prev in the current
// scope, per spec.md §4.3 — the typechecker attaches a "previous
// definition" note built from prev's location.
type RedefinitionError struct {
	Name string
	Prev ast.Decl
	New  ast.Decl
}

func (e *RedefinitionError) Error() string {
	return fmt.Sprintf("redefinition of %q (previous definition here)", e.Name)
}

// SymbolTable is a stack of scopes; the bottom scope is the module's
// globals (spec.md §4.3).
type SymbolTable struct {
	scopes []*Scope
}

func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{}
	t.PushScope() // globals
	return t
}

func (t *SymbolTable) PushScope() { t.scopes = append(t.scopes, newScope()) }

func (t *SymbolTable) PopScope() {
	if len(t.scopes) == 0 {
		panic("module: PopScope on empty symbol table")
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

func (t *SymbolTable) current() *Scope { return t.scopes[len(t.scopes)-1] }

// qualifiedKey returns the lookup key for decl: for functions/methods, the
// qualified name (receiver-type name + unqualified name); otherwise the
// plain name. Per spec.md's glossary ("Qualified name").
func qualifiedKey(name string, decl ast.Decl) string {
	if fn, ok := decl.(interface{ ReceiverTypeDecl() *ast.TypeDecl }); ok {
		if recv := fn.ReceiverTypeDecl(); recv != nil {
			return recv.Name + "." + name
		}
	}
	return name
}

// signaturesMatch reports whether two same-named declarations in an
// overload set actually collide: for functions, full signature match
// (including receiver); for anything else, any same-name entry collides.
func signaturesMatch(a, b ast.Decl) bool {
	af, aok := a.(*ast.FunctionDecl)
	bf, bok := b.(*ast.FunctionDecl)
	if aok != bok {
		return false
	}
	if !aok {
		return true
	}
	return af.SignatureMatches(bf, true)
}

// Add binds name to decl in the current scope. It fails with a
// RedefinitionError if a declaration with the same qualified name (for
// functions: same signature, including receiver) already exists in this
// scope, per spec.md §4.3.
func (t *SymbolTable) Add(name string, decl ast.Decl) error {
	key := qualifiedKey(name, decl)
	scope := t.current()
	for _, existing := range scope.entries[key] {
		if signaturesMatch(existing, decl) {
			return &RedefinitionError{Name: name, Prev: existing, New: decl}
		}
	}
	scope.entries[key] = append(scope.entries[key], decl)
	return nil
}

// Lookup walks inner-to-outer scopes and returns every overload bound to
// name, or nil if none exist in this table (callers also search imported
// modules for unqualified names).
func (t *SymbolTable) Lookup(name string) []ast.Decl {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if decls, ok := t.scopes[i].entries[name]; ok {
			return decls
		}
	}
	return nil
}

// LookupQualified looks up decls bound under the exact qualified key
// (e.g. "T.f"), used for method resolution.
func (t *SymbolTable) LookupQualified(key string) []ast.Decl {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if decls, ok := t.scopes[i].entries[key]; ok {
			return decls
		}
	}
	return nil
}

// Registry is the process-wide (or Compiler-scoped) map from module name
// to Module, deduplicating imports so repeated `import "std"` statements
// bind the same symbol-table entries (spec.md §4.3).
type Registry struct {
	modules map[string]*Module
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{modules: map[string]*Module{}}
}

// GetOrCreate returns the existing module named name, or creates and
// registers an empty one.
func (r *Registry) GetOrCreate(name string) *Module {
	if m, ok := r.modules[name]; ok {
		return m
	}
	m := NewModule(name)
	r.modules[name] = m
	r.order = append(r.order, name)
	return m
}

func (r *Registry) Lookup(name string) (*Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// dumpEntry/dumpModule are the YAML-serializable shadow of a Module,
// produced by DumpYAML for `cxc build -dump-modules` (SPEC_FULL.md §3.4).
type dumpEntry struct {
	Module  string   `yaml:"module"`
	Files   []string `yaml:"files"`
	Imports []string `yaml:"imports"`
}

// DumpYAML serializes the registry's import graph deterministically,
// sorting module names with natsort the same way the teacher's
// lower.Generator.Lower sorts typeDefs before emission, so repeated builds
// of the same sources produce byte-identical dumps.
func (r *Registry) DumpYAML(w io.Writer) error {
	names := append([]string(nil), r.order...)
	natsort.Strings(names)
	var entries []dumpEntry
	for _, name := range names {
		m := r.modules[name]
		e := dumpEntry{Module: m.Name}
		for _, f := range m.Files {
			e.Files = append(e.Files, f.Path)
		}
		for _, imp := range m.Imports {
			e.Imports = append(e.Imports, imp.Name)
		}
		entries = append(entries, e)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(entries); err != nil {
		return errors.Wrap(err, "module: failed to dump registry")
	}
	return nil
}
