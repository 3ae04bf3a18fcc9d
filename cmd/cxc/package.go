package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cxlang/cxc/manifest"
)

// loadManifestFor resolves a build/run target — a single .cx file or a
// directory containing (or lacking) a cx.toml — into a manifest.Manifest,
// the same "file or package directory" duality cmd/toyc inherits from
// golang.org/x/tools/go/packages.Load, but driven by cx.toml instead.
func loadManifestFor(path string) (*manifest.Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cxc: %w", err)
	}
	if !info.IsDir() {
		m := manifest.Default(filepath.Dir(path))
		m.Sources = []string{filepath.Base(path)}
		return m, nil
	}

	m, err := manifest.Load(filepath.Join(path, "cx.toml"))
	if err != nil {
		return nil, fmt.Errorf("cxc: %w", err)
	}
	return m, nil
}
