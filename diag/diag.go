// Package diag implements the compiler's diagnostic model: severities,
// error kinds, source-snippet rendering, and an accumulating Bag, per
// spec.md §7 ("Error Handling Design").
package diag

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rickypai/natsort"
	"golang.org/x/text/width"

	"github.com/cxlang/cxc/token"
)

// Severity ranks a Diagnostic. IR lowering refuses to run once any
// diagnostic at Error or above has been recorded (spec.md §4.4/§7).
type Severity int

const (
	Note Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// Kind is the taxonomy of error kinds from spec.md §7.
type Kind int

const (
	LexError Kind = iota
	ParseError
	NameError
	TypeError
	OverloadError
	GenericError
	SemanticError
	InternalError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lex"
	case ParseError:
		return "parse"
	case NameError:
		return "name"
	case TypeError:
		return "type"
	case OverloadError:
		return "overload"
	case GenericError:
		return "generic"
	case SemanticError:
		return "semantic"
	default:
		return "internal"
	}
}

// Note is a secondary location+message attached to a Diagnostic, used for
// "previous definition here" annotations (spec.md §4.3/§7).
type Note struct {
	Loc     token.Position
	Message string
}

// Diagnostic is one error, warning, or note surfaced by the compiler.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Loc      token.Position
	Message  string
	Notes    []Note
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Loc, d.Severity, d.Message)
}

// Bag accumulates diagnostics for one compilation unit.
type Bag struct {
	diagnostics []Diagnostic
}

func NewBag() *Bag { return &Bag{} }

func (b *Bag) add(sev Severity, kind Kind, loc token.Position, note []Note, format string, args ...any) {
	b.diagnostics = append(b.diagnostics, Diagnostic{
		Severity: sev,
		Kind:     kind,
		Loc:      loc,
		Message:  fmt.Sprintf(format, args...),
		Notes:    note,
	})
}

func (b *Bag) Errorf(kind Kind, loc token.Position, format string, args ...any) {
	b.add(Error, kind, loc, nil, format, args...)
}

func (b *Bag) ErrorfNotes(kind Kind, loc token.Position, notes []Note, format string, args ...any) {
	b.add(Error, kind, loc, notes, format, args...)
}

func (b *Bag) Warnf(kind Kind, loc token.Position, format string, args ...any) {
	b.add(Warning, kind, loc, nil, format, args...)
}

// HasErrors reports whether any Error-severity diagnostic was recorded;
// lowering must check this before running (spec.md §4.4).
func (b *Bag) HasErrors() bool {
	for _, d := range b.diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (b *Bag) Diagnostics() []Diagnostic { return b.diagnostics }

func (b *Bag) Len() int { return len(b.diagnostics) }

// sortedGroup groups diagnostics for deterministic rendering, ordered by
// (filename via natsort, line, column) so repeated compilations of the
// same sources print byte-identical diagnostic output, matching the way
// the teacher's lower.Generator.Lower sorts typeDefs before emission.
func (b *Bag) sortedGroup() []Diagnostic {
	out := append([]Diagnostic(nil), b.diagnostics...)
	names := make([]string, len(out))
	for i, d := range out {
		names[i] = d.Loc.Filename
	}
	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sortedNames := append([]string(nil), names...)
	natsort.Strings(sortedNames)
	rank := make(map[string]int, len(sortedNames))
	for i, n := range sortedNames {
		if _, ok := rank[n]; !ok {
			rank[n] = i
		}
	}
	// stable insertion sort by (rank[filename], line, column); the
	// diagnostic count per compilation unit is small enough that this
	// need not be asymptotically clever.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(out[j], out[j-1], rank); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func less(a, b Diagnostic, rank map[string]int) bool {
	if rank[a.Loc.Filename] != rank[b.Loc.Filename] {
		return rank[a.Loc.Filename] < rank[b.Loc.Filename]
	}
	if a.Loc.Line != b.Loc.Line {
		return a.Loc.Line < b.Loc.Line
	}
	return a.Loc.Column < b.Loc.Column
}

// UseColorDefault decides the default for Render's useColor argument when
// the caller hasn't forced one via a flag, grounded on ailang/dingo's use
// of go-isatty to detect an interactive terminal.
func UseColorDefault() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Render writes every diagnostic in deterministic order, with an optional
// 1-line source snippet and caret span, per spec.md §7 ("file path,
// 1-based line and column, the source snippet if available").
func (b *Bag) Render(w io.Writer, useColor bool) {
	errorColor := color.New(color.FgRed, color.Bold)
	warnColor := color.New(color.FgYellow, color.Bold)
	noteColor := color.New(color.FgCyan)
	errorColor.EnableColor()
	warnColor.EnableColor()
	noteColor.EnableColor()
	if !useColor {
		errorColor.DisableColor()
		warnColor.DisableColor()
		noteColor.DisableColor()
	}

	for _, d := range b.sortedGroup() {
		sevColor := errorColor
		if d.Severity == Warning {
			sevColor = warnColor
		} else if d.Severity == Note {
			sevColor = noteColor
		}
		fmt.Fprintf(w, "%s: %s: %s\n", d.Loc, sevColor.Sprint(d.Severity), d.Message)
		if snippet, caretCol, ok := readSnippet(d.Loc); ok {
			fmt.Fprintf(w, "  %s\n", snippet)
			fmt.Fprintf(w, "  %s^\n", strings.Repeat(" ", caretCol))
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "%s: %s: %s\n", n.Loc, noteColor.Sprint("note"), n.Message)
		}
	}
}

// readSnippet loads the source line named by loc and computes the
// display-column of loc.Column, accounting for wide runes via
// golang.org/x/text/width so the caret lines up under multi-byte source
// (CJK identifiers, emoji in string literals, etc.).
func readSnippet(loc token.Position) (line string, caretCol int, ok bool) {
	if !loc.IsValid() || loc.Filename == "" {
		return "", 0, false
	}
	f, err := os.Open(loc.Filename)
	if err != nil {
		return "", 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
		if n == loc.Line {
			line = scanner.Text()
			break
		}
	}
	if line == "" && n != loc.Line {
		return "", 0, false
	}

	col := 0
	for i, r := range line {
		if i >= loc.Column-1 {
			break
		}
		if width.LookupRune(r).Kind() == width.EastAsianWide {
			col += 2
		} else {
			col++
		}
	}
	return line, col, true
}
