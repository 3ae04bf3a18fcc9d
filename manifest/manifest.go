// Package manifest loads a cx.toml package manifest: module name, source
// directories, import resolution table, target triple, and build options.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// BuildOptions are passed straight through to the backend as opaque
// strings; their meaning is entirely the backend's concern.
type BuildOptions struct {
	EmitIR   bool   `toml:"emit-ir"`
	OptLevel string `toml:"opt-level"`
}

// Manifest is the decoded contents of a cx.toml file.
type Manifest struct {
	Module  string            `toml:"module"`
	Sources []string          `toml:"sources"`
	Imports map[string]string `toml:"imports"`
	Target  string            `toml:"target"`
	Build   BuildOptions      `toml:"build"`

	// dir is the directory the manifest was loaded from, used to resolve
	// Sources/Imports entries given as relative paths.
	dir string
}

// Default returns a manifest suitable for a single-file or directory build
// with no cx.toml present: module name "main", no declared imports, the
// host target triple, and default build options.
func Default(dir string) *Manifest {
	return &Manifest{
		Module:  "main",
		Sources: []string{"."},
		Imports: map[string]string{},
		Target:  "native",
		dir:     dir,
	}
}

// Load reads and decodes path (a cx.toml file). If path does not exist,
// Load returns Default for path's directory rather than an error, mirroring
// a manifest-optional build the way a single cx source file can be built
// without one.
func Load(path string) (*Manifest, error) {
	dir := filepath.Dir(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(dir), nil
	}

	m := &Manifest{Imports: map[string]string{}}
	if _, err := toml.DecodeFile(path, m); err != nil {
		return nil, fmt.Errorf("manifest: parsing %s: %w", path, err)
	}
	m.dir = dir

	if m.Module == "" {
		m.Module = "main"
	}
	if len(m.Sources) == 0 {
		m.Sources = []string{"."}
	}
	if m.Target == "" {
		m.Target = "native"
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return m, nil
}

// Validate checks the decoded manifest for internally-inconsistent
// settings that toml decoding itself can't catch.
func (m *Manifest) Validate() error {
	switch m.Build.OptLevel {
	case "", "0", "1", "2", "3", "s", "z":
		// valid
	default:
		return fmt.Errorf("invalid build.opt-level %q (must be one of 0,1,2,3,s,z)", m.Build.OptLevel)
	}
	for name, path := range m.Imports {
		if name == "" {
			return fmt.Errorf("imports: empty module name for path %q", path)
		}
	}
	return nil
}

// ResolveSource returns an absolute path for a manifest-relative source
// entry.
func (m *Manifest) ResolveSource(entry string) string {
	if filepath.IsAbs(entry) {
		return entry
	}
	return filepath.Join(m.dir, entry)
}

// ResolveImport returns the absolute filesystem path the given imported
// module name resolves to, and whether it's declared in the manifest.
func (m *Manifest) ResolveImport(moduleName string) (string, bool) {
	path, ok := m.Imports[moduleName]
	if !ok {
		return "", false
	}
	return m.ResolveSource(path), true
}
