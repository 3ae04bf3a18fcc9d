package module_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/token"
)

func funcDecl(name string, params ...*ast.ParamDecl) *ast.FunctionDecl {
	d := ast.NewFunctionDecl(ast.FunctionProto{
		Name:   name,
		Params: params,
	}, token.Position{Filename: "t.cx", Line: 1}, "")
	d.AccessLevel = ast.Public
	return d
}

func TestSymbolTableAddAndLookup(t *testing.T) {
	table := module.NewSymbolTable()
	f := funcDecl("main")
	require.NoError(t, table.Add("main", f))

	found := table.Lookup("main")
	require.Len(t, found, 1)
	assert.Same(t, f, found[0])
}

func TestSymbolTableRedefinitionRejected(t *testing.T) {
	table := module.NewSymbolTable()
	require.NoError(t, table.Add("main", funcDecl("main")))

	err := table.Add("main", funcDecl("main"))
	require.Error(t, err)
	var redef *module.RedefinitionError
	require.ErrorAs(t, err, &redef)
	assert.Equal(t, "main", redef.Name)
}

func TestSymbolTableScopeShadowing(t *testing.T) {
	table := module.NewSymbolTable()
	require.NoError(t, table.Add("x", funcDecl("x")))

	table.PushScope()
	require.NoError(t, table.Add("x", funcDecl("x")))
	assert.Len(t, table.Lookup("x"), 1)
	table.PopScope()

	assert.Len(t, table.Lookup("x"), 1)
}

func TestModuleImportIsIdempotent(t *testing.T) {
	m := module.NewModule("app")
	std := module.NewModule("std")

	m.AddImport(std)
	m.AddImport(std)

	assert.Len(t, m.Imports, 1)
	assert.True(t, std.IsStdlib())
}

func TestRegistryGetOrCreateDeduplicates(t *testing.T) {
	r := module.NewRegistry()
	a := r.GetOrCreate("std")
	b := r.GetOrCreate("std")
	assert.Same(t, a, b)

	_, ok := r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistryDumpYAMLIsDeterministic(t *testing.T) {
	r := module.NewRegistry()
	zebra := r.GetOrCreate("zebra")
	apple := r.GetOrCreate("apple")
	apple.AddImport(zebra)

	var buf bytes.Buffer
	require.NoError(t, r.DumpYAML(&buf))
	assert.Contains(t, buf.String(), "module: apple")
	assert.Contains(t, buf.String(), "module: zebra")
}
