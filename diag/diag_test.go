package diag_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/token"
)

func TestBagHasErrors(t *testing.T) {
	b := diag.NewBag()
	assert.False(t, b.HasErrors())

	b.Warnf(diag.TypeError, token.Position{Filename: "a.cx", Line: 1, Column: 1}, "unused variable")
	assert.False(t, b.HasErrors())

	b.Errorf(diag.NameError, token.Position{Filename: "a.cx", Line: 2, Column: 3}, "undefined identifier %q", "x")
	assert.True(t, b.HasErrors())
	assert.Equal(t, 2, b.Len())
}

func TestBagRenderDeterministicOrder(t *testing.T) {
	b := diag.NewBag()
	b.Errorf(diag.NameError, token.Position{Filename: "z.cx", Line: 5, Column: 1}, "z error")
	b.Errorf(diag.NameError, token.Position{Filename: "a.cx", Line: 1, Column: 1}, "a error")

	var buf bytes.Buffer
	b.Render(&buf, false)
	out := buf.String()
	assert.Less(t, indexOf(out, "a error"), indexOf(out, "z error"))
}

func TestErrorfNotesAttachesPreviousDefinition(t *testing.T) {
	b := diag.NewBag()
	b.ErrorfNotes(diag.NameError, token.Position{Filename: "a.cx", Line: 2, Column: 1},
		[]diag.Note{{Loc: token.Position{Filename: "a.cx", Line: 1, Column: 1}, Message: "previous definition here"}},
		"redefinition of %q", "f")

	require := b.Diagnostics()
	assert.Len(t, require, 1)
	assert.Len(t, require[0].Notes, 1)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
