// Package driver implements the core compilation pipeline — source
// discovery, parsing, typechecking, and AST→IR lowering — as one
// manifest-driven entry point, grounded structurally on cmd/toyc's
// compiler (load -> typecheck -> generate) but driven by a cx.toml
// manifest instead of go/packages.Load.
package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rickypai/natsort"

	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/internal/parser"
	"github.com/cxlang/cxc/ir"
	"github.com/cxlang/cxc/jit"
	"github.com/cxlang/cxc/lower"
	"github.com/cxlang/cxc/manifest"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/sema"
	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

// Result is everything one driver.Compile invocation produced: the
// resolved module graph, the typed IR (nil if typechecking failed), a
// ready-to-use interpreter engine (nil likewise), and the diagnostics
// accumulated along the way. ID identifies this particular compilation of
// Manifest, per SPEC_FULL.md §3.5.
type Result struct {
	ID       uuid.UUID
	Manifest *manifest.Manifest
	Registry *module.Registry
	Module   *module.Module
	IR       *ir.Module
	Engine   *jit.Engine
	Bag      *diag.Bag
}

// Compile runs the full pipeline for m: discover and parse every declared
// import, discover and parse m's own sources, typecheck, and — provided
// no diagnostic reached diag.Error — lower to IR and stand up a jit.Engine
// over it. A non-nil error here means the manifest or filesystem itself
// is unusable (a source directory doesn't exist, a file can't be read);
// compile errors in the cx source are reported through Result.Bag instead,
// per spec.md §7's "diagnostics, not exceptions" error model.
func Compile(m *manifest.Manifest) (*Result, error) {
	id := uuid.New()
	in := types.NewInterner()
	builtins := in.SeedBuiltins()
	bag := diag.NewBag()
	reg := module.NewRegistry()

	for _, name := range sortedImportNames(m) {
		path, _ := m.ResolveImport(name)
		if err := loadModule(reg.GetOrCreate(name), path, in, bag); err != nil {
			return nil, fmt.Errorf("driver: loading import %q: %w", name, err)
		}
	}

	mainModule := reg.GetOrCreate(m.Module)
	for _, entry := range m.Sources {
		if err := loadModule(mainModule, m.ResolveSource(entry), in, bag); err != nil {
			return nil, fmt.Errorf("driver: loading %q: %w", entry, err)
		}
	}

	res := &Result{ID: id, Manifest: m, Registry: reg, Module: mainModule, Bag: bag}
	if bag.HasErrors() {
		return res, nil
	}

	for _, name := range sortedImportNames(m) {
		imported, _ := reg.Lookup(name)
		sema.NewChecker(in, reg, bag).TypecheckModule(imported)
	}
	sema.NewChecker(in, reg, bag).TypecheckModule(mainModule)
	if bag.HasErrors() {
		return res, nil
	}

	var failed []error
	gen := lower.NewGenerator(in, builtins, mainModule.Name, func(err error) {
		failed = append(failed, err)
	})
	irMod := gen.Lower(mainModule)
	for _, err := range failed {
		bag.Errorf(diag.InternalError, token.Position{}, "%v", err)
	}
	if bag.HasErrors() {
		return res, nil
	}

	res.IR = irMod
	res.Engine = jit.NewEngine(irMod, id)
	return res, nil
}

// sortedImportNames returns m's declared import names in natsort order, so
// two compilations of the same manifest load (and typecheck) imports in
// the same order regardless of map iteration.
func sortedImportNames(m *manifest.Manifest) []string {
	names := make([]string, 0, len(m.Imports))
	for name := range m.Imports {
		names = append(names, name)
	}
	natsort.Strings(names)
	return names
}

// loadModule discovers every .cx file under root (a single file or a
// directory, walked recursively) and parses each into mod, in natsort
// order so repeated builds of the same sources produce byte-identical
// diagnostics and IR (spec.md's determinism requirements, carried by
// diag.Bag.Render and module.Registry.DumpYAML elsewhere).
func loadModule(mod *module.Module, root string, in *types.Interner, bag *diag.Bag) error {
	files, err := discoverSources(root)
	if err != nil {
		return err
	}
	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		mod.Files = append(mod.Files, parser.Parse(path, src, mod.Name, in, bag))
	}
	return nil
}

func discoverSources(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cx" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	natsort.Strings(files)
	return files, nil
}
