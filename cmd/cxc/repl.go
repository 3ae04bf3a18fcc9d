package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/internal/parser"
	"github.com/cxlang/cxc/jit"
	"github.com/cxlang/cxc/lower"
	"github.com/cxlang/cxc/module"
	"github.com/cxlang/cxc/sema"
	"github.com/cxlang/cxc/types"
)

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive read-eval-print loop over a persistent module",
		RunE: func(cmd *cobra.Command, args []string) error {
			newREPL().start(os.Stdin, os.Stdout)
			return nil
		},
	}
}

var (
	replOK   = color.New(color.FgGreen).SprintFunc()
	replErr  = color.New(color.FgRed).SprintFunc()
	replInfo = color.New(color.Faint).SprintFunc()
)

// declKeywords are the tokens that start a top-level declaration; a line
// that doesn't begin with one of these is treated as a bare expression
// and wrapped in a synthetic function instead.
var declKeywords = []string{"func", "struct", "class", "union", "enum", "import", "var", "const", "public", "private", "extern"}

// exprReturnCandidates are the return types tried, in order, when wrapping
// a bare expression for evaluation — the REPL has no standalone expression
// typechecking entry point to call, so it infers the type by trial
// typecheck the same way overload resolution itself tries candidates and
// keeps the first that succeeds.
var exprReturnCandidates = []string{"int", "float", "bool", "string"}

// repl JIT-evaluates one declaration or expression at a time against a
// persistent module.Module. There is no incremental lowering in this
// compiler, so every line recompiles the whole accumulated source from
// scratch: reparse, retypecheck, relower, and stand up a fresh jit.Engine.
type repl struct {
	in       *types.Interner
	builtins types.Builtins
	registry *module.Registry
	mod      *module.Module
	counter  int
}

func newREPL() *repl {
	in := types.NewInterner()
	reg := module.NewRegistry()
	return &repl{
		in:       in,
		builtins: in.SeedBuiltins(),
		registry: reg,
		mod:      reg.GetOrCreate("repl"),
	}
}

func (r *repl) start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	historyFile := filepath.Join(os.TempDir(), ".cxc_history")
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	line.SetCompleter(func(text string) (c []string) {
		for _, kw := range declKeywords {
			if strings.HasPrefix(kw, text) {
				c = append(c, kw)
			}
		}
		return
	})

	fmt.Fprintln(out, replInfo("cxc repl — one declaration or expression per line, Ctrl-D to exit"))
	for {
		input, err := line.Prompt("cx> ")
		if err == io.EOF {
			fmt.Fprintln(out, replOK("bye"))
			break
		}
		if err != nil {
			fmt.Fprintln(out, replErr(err))
			continue
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		r.eval(input, out)
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func (r *repl) eval(input string, out io.Writer) {
	if isDecl(input) {
		r.evalDecl(input, out)
		return
	}
	r.evalExpr(input, out)
}

// evalDecl commits input as a new top-level declaration of the persistent
// module, provided the accumulated source still typechecks.
func (r *repl) evalDecl(input string, out io.Writer) {
	trial, ok := r.tryExtend(input, out)
	if !ok {
		return
	}
	r.mod = trial
	fmt.Fprintln(out, replOK("ok"))
}

// evalExpr wraps input in a synthetic, uniquely-named function, tries each
// of exprReturnCandidates as its return type until one typechecks, runs it
// through a fresh jit.Engine, and prints the result — without committing
// the synthetic function to the persistent module.
func (r *repl) evalExpr(input string, out io.Writer) {
	name := fmt.Sprintf("__repl%d", r.counter)
	r.counter++

	var trial *module.Module
	for _, retType := range exprReturnCandidates {
		src := fmt.Sprintf("func %s() -> %s { return %s; }", name, retType, input)
		if m, ok := r.tryExtend(src, io.Discard); ok {
			trial = m
			break
		}
	}
	if trial == nil {
		// Report real diagnostics from the first (int) attempt, the most
		// common case, instead of staying silent.
		src := fmt.Sprintf("func %s() -> int { return %s; }", name, input)
		r.tryExtend(src, out)
		return
	}

	gen := lower.NewGenerator(r.in, r.builtins, trial.Name, func(err error) {
		fmt.Fprintln(out, replErr(err))
	})
	irMod := gen.Lower(trial)
	engine := jit.NewEngine(irMod, uuid.New())

	handle, ok := engine.Lookup(trial.Name + "." + name)
	if !ok {
		fmt.Fprintln(out, replErr("internal error: synthetic expression function not found"))
		return
	}
	result, err := handle.Call()
	if err != nil {
		fmt.Fprintln(out, replErr(err))
		return
	}
	fmt.Fprintln(out, result.String())
}

// tryExtend parses src as a new file appended to a throwaway copy of the
// persistent module and typechecks the copy. It returns the copy and true
// on success; on failure it renders diagnostics to out (unless out is
// io.Discard) and returns false.
func (r *repl) tryExtend(src string, out io.Writer) (*module.Module, bool) {
	bag := diag.NewBag()
	f := parser.Parse(fmt.Sprintf("<repl:%d>", r.counter), []byte(src), r.mod.Name, r.in, bag)
	if bag.HasErrors() {
		bag.Render(out, false)
		return nil, false
	}

	trial := module.NewModule(r.mod.Name)
	trial.Files = append(append([]*ast.File(nil), r.mod.Files...), f)
	for _, imp := range r.mod.Imports {
		trial.AddImport(imp)
	}

	sema.NewChecker(r.in, r.registry, bag).TypecheckModule(trial)
	if bag.HasErrors() {
		bag.Render(out, false)
		return nil, false
	}
	return trial, true
}

func isDecl(input string) bool {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false
	}
	for _, kw := range declKeywords {
		if fields[0] == kw {
			return true
		}
	}
	return false
}
