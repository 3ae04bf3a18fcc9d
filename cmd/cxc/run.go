package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/driver"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.cx|package-dir>",
		Short: "Build a cx package and execute its main function through the reference interpreter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args[0])
		},
	}
}

func runRun(path string) error {
	m, err := loadManifestFor(path)
	if err != nil {
		return err
	}

	res, err := driver.Compile(m)
	if err != nil {
		return fmt.Errorf("cxc: %w", err)
	}
	if res.Bag.Len() > 0 {
		res.Bag.Render(os.Stderr, diag.UseColorDefault())
	}
	if res.Bag.HasErrors() {
		return fmt.Errorf("cxc: build failed")
	}

	mainName := res.Module.Name + ".main"
	handle, ok := res.Engine.Lookup(mainName)
	if !ok {
		return fmt.Errorf("cxc: %s: no main function in module %q", path, res.Module.Name)
	}

	result, err := handle.Call()
	if err != nil {
		return fmt.Errorf("cxc: runtime error: %w", err)
	}
	logger.Infow("executed", "function", mainName)

	fmt.Println(result.Int)
	os.Exit(int(result.Int))
	return nil
}
