package driver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/driver"
	"github.com/cxlang/cxc/jit"
	"github.com/cxlang/cxc/manifest"
)

func writeSource(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestCompileFactorialEndToEnd(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "main.cx", `
		func fact(n: int) -> int {
			if (n <= 1) {
				return 1;
			}
			return n * fact(n - 1);
		}

		func main() -> int {
			return fact(5);
		}
	`)

	res, err := driver.Compile(manifest.Default(dir))
	require.NoError(t, err)
	require.False(t, res.Bag.HasErrors(), "%v", res.Bag.Diagnostics())
	require.NotNil(t, res.IR)
	require.NotNil(t, res.Engine)

	handle, ok := res.Engine.Lookup("main.main")
	require.True(t, ok)
	result, err := handle.Call()
	require.NoError(t, err)
	assert.Equal(t, int64(120), result.Int)
}

func TestCompileReportsUndeclaredIdentifier(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "main.cx", `
		func main() -> int {
			return doesNotExist;
		}
	`)

	res, err := driver.Compile(manifest.Default(dir))
	require.NoError(t, err)
	assert.True(t, res.Bag.HasErrors())
	assert.Nil(t, res.IR)
	assert.Nil(t, res.Engine)
}

func TestCompileResolvesDeclaredImport(t *testing.T) {
	root := t.TempDir()
	libDir := filepath.Join(root, "lib")
	require.NoError(t, os.Mkdir(libDir, 0o755))
	writeSource(t, libDir, "lib.cx", `
		func triple(x: int) -> int {
			return x * 3;
		}
	`)

	appDir := filepath.Join(root, "app")
	require.NoError(t, os.Mkdir(appDir, 0o755))
	writeSource(t, appDir, "main.cx", `
		import "collections";

		func main() -> int {
			return triple(7);
		}
	`)

	m := manifest.Default(appDir)
	m.Module = "app"
	m.Imports = map[string]string{"collections": libDir}

	res, err := driver.Compile(m)
	require.NoError(t, err)
	require.False(t, res.Bag.HasErrors(), "%v", res.Bag.Diagnostics())
	require.NotNil(t, res.Engine)

	handle, ok := res.Engine.Lookup("collections.triple")
	require.True(t, ok)
	result, err := handle.Call(jit.Value{Kind: jit.IntValue, Int: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(21), result.Int)
}
