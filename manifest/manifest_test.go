package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/manifest"
)

func TestLoadMissingManifestReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	m, err := manifest.Load(filepath.Join(dir, "cx.toml"))
	require.NoError(t, err)
	assert.Equal(t, "main", m.Module)
	assert.Equal(t, []string{"."}, m.Sources)
}

func TestLoadParsesManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cx.toml")
	contents := `
module = "app"
sources = ["src"]
target = "x86_64-unknown-linux-gnu"

[imports]
collections = "../collections"

[build]
emit-ir = true
opt-level = "2"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	m, err := manifest.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "app", m.Module)
	assert.Equal(t, []string{"src"}, m.Sources)
	assert.Equal(t, "x86_64-unknown-linux-gnu", m.Target)
	assert.True(t, m.Build.EmitIR)
	assert.Equal(t, "2", m.Build.OptLevel)

	resolved, ok := m.ResolveImport("collections")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "../collections"), resolved)
}

func TestLoadRejectsInvalidOptLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cx.toml")
	require.NoError(t, os.WriteFile(path, []byte("module = \"app\"\n[build]\nopt-level = \"fast\"\n"), 0o644))

	_, err := manifest.Load(path)
	assert.Error(t, err)
}
