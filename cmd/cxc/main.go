// cxc is the command-line driver for the cx ahead-of-time compiler core:
// build, run, and repl subcommands layered over the driver package.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mewkiz/pkg/term"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// dbg logs low-level pipeline trace messages, muted unless -debug is
	// given — the same "colored prefix logger, silenced by default" shape
	// as cmd/toyc's own dbg logger, renamed for this driver.
	dbg = log.New(io.Discard, term.MagentaBold("cxc:")+" ", 0)

	debugFlag   bool
	verboseFlag bool
	logger      *zap.SugaredLogger
)

func main() {
	root := &cobra.Command{
		Use:          "cxc",
		Short:        "cxc builds and runs cx packages",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugFlag {
				dbg.SetOutput(os.Stderr)
			}
			logger = newLogger(verboseFlag)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().BoolVar(&debugFlag, "debug", false, "trace the compilation pipeline to stderr")
	root.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log pass timings")

	root.AddCommand(buildCmd(), runCmd(), replCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger builds the sugared zap logger used for CLI-level messages
// ("compiled module in Xms", pass timings under -v). The core packages
// never log themselves — only cmd/cxc does, the same split the teacher
// draws between a silent lower package and cmd/toyc's own dbg logger.
func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.TimeKey = ""
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cxc: failed to initialize logger:", err)
		os.Exit(1)
	}
	return l.Sugar()
}
