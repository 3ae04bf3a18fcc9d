package driver_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/cxlang/cxc/driver"
	"github.com/cxlang/cxc/jit"
	"github.com/cxlang/cxc/manifest"
)

// scenario is the parsed comment header of one testdata/*.txtar archive:
// "key: value" lines preceding the first "-- file --" marker.
type scenario map[string]string

func parseScenario(comment []byte) scenario {
	s := scenario{}
	for _, line := range strings.Split(string(comment), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		s[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return s
}

// TestEndToEndScenarios drives every archive under testdata/ through the
// full parse-typecheck-lower-JIT pipeline and checks it against its
// declared expectation, covering the end-to-end scenarios spelled out
// alongside the compiler's testable properties: a return value ("want"),
// a diagnostic substring ("want_error"), a set of expected generic
// instantiations ("want_instantiations"), or an observed side-effect
// ordering from extern callbacks ("want_log").
func TestEndToEndScenarios(t *testing.T) {
	archives, err := filepath.Glob("../testdata/*.txtar")
	require.NoError(t, err)
	require.NotEmpty(t, archives)

	for _, path := range archives {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			ar, err := txtar.ParseFile(path)
			require.NoError(t, err)
			want := parseScenario(ar.Comment)

			dir := t.TempDir()
			for _, f := range ar.Files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, f.Name), f.Data, 0o644))
			}

			res, err := driver.Compile(manifest.Default(dir))
			require.NoError(t, err)

			if wantErr, ok := want["want_error"]; ok {
				require.True(t, res.Bag.HasErrors())
				found := false
				for _, d := range res.Bag.Diagnostics() {
					if strings.Contains(d.Message, wantErr) {
						found = true
					}
				}
				assert.True(t, found, "diagnostics %v do not contain %q", res.Bag.Diagnostics(), wantErr)
				return
			}

			require.False(t, res.Bag.HasErrors(), "%v", res.Bag.Diagnostics())

			if names, ok := want["want_instantiations"]; ok {
				for _, name := range strings.Split(names, ",") {
					name = strings.TrimSpace(name)
					count := 0
					for _, fn := range res.IR.Functions {
						if fn.Name() == name {
							count++
						}
					}
					assert.Equal(t, 1, count, "expected exactly one instantiation named %q", name)
				}
			}

			var log []string
			if order, ok := want["want_log"]; ok {
				for _, tag := range strings.Split(order, ",") {
					tag := strings.TrimSpace(tag)
					res.Engine.RegisterBuiltin("logDeinit"+tag, func(tag string) jit.Builtin {
						return func(args []jit.Value) (jit.Value, error) {
							log = append(log, tag)
							return jit.Value{}, nil
						}
					}(tag))
				}
			}

			handle, ok := res.Engine.Lookup(res.Module.Name + ".main")
			require.True(t, ok)
			result, err := handle.Call()
			require.NoError(t, err)

			if wantInt, ok := want["want"]; ok {
				n, err := strconv.ParseInt(wantInt, 10, 64)
				require.NoError(t, err)
				assert.Equal(t, n, result.Int)
			}
			if order, ok := want["want_log"]; ok {
				expected := strings.Split(order, ",")
				for i := range expected {
					expected[i] = strings.TrimSpace(expected[i])
				}
				assert.Equal(t, expected, log)
			}
		})
	}
}
