package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/cxlang/cxc/backend"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/driver"
)

func buildCmd() *cobra.Command {
	var dumpAST, dumpIR, dumpModules bool

	cmd := &cobra.Command{
		Use:   "build <file.cx|package-dir>",
		Short: "Parse, typecheck, and lower a cx package to backend IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(args[0], dumpAST, dumpIR, dumpModules)
		},
	}
	cmd.Flags().BoolVar(&dumpAST, "dump-ast", false, "pretty-print the parsed AST instead of building")
	cmd.Flags().BoolVar(&dumpIR, "dump-ir", false, "pretty-print the typed IR instead of emitting backend IR")
	cmd.Flags().BoolVar(&dumpModules, "dump-modules", false, "dump the resolved import graph as YAML instead of building")
	return cmd
}

func runBuild(path string, dumpAST, dumpIR, dumpModules bool) error {
	m, err := loadManifestFor(path)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := driver.Compile(m)
	if err != nil {
		return fmt.Errorf("cxc: %w", err)
	}
	dbg.Printf("parsed %q as module %q in %s", path, m.Module, time.Since(start))

	if dumpAST {
		for _, f := range res.Module.Files {
			pretty.Println(f.Path, f)
		}
		return nil
	}
	if dumpModules {
		return res.Registry.DumpYAML(os.Stdout)
	}

	if res.Bag.Len() > 0 {
		res.Bag.Render(os.Stderr, diag.UseColorDefault())
	}
	if res.Bag.HasErrors() {
		return fmt.Errorf("cxc: build failed")
	}
	logger.Infow("typechecked module", "module", m.Module, "elapsed", time.Since(start))

	if dumpIR {
		pretty.Println("module", res.IR)
		return nil
	}

	backendMod, err := backend.Translate(res.IR)
	if err != nil {
		return fmt.Errorf("cxc: %w", err)
	}
	fmt.Println(backendMod)
	logger.Infow("compiled module", "module", m.Module, "elapsed", time.Since(start))
	return nil
}
