package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/internal/lexer"
	"github.com/cxlang/cxc/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexFunctionSignature(t *testing.T) {
	bag := diag.NewBag()
	l := lexer.New("t.cx", []byte("public func add(a: int, b: int) -> int {"), bag)
	toks := l.Lex()
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
	require.NotEmpty(t, toks)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)
	assert.Equal(t, []token.Kind{
		token.Public, token.Ident, token.Ident, token.LParen,
		token.Ident, token.Colon, token.Ident, token.Comma,
		token.Ident, token.Colon, token.Ident, token.RParen,
		token.Arrow, token.Ident, token.LBrace, token.EOF,
	}, kinds(toks))
}

func TestLexNumericLiterals(t *testing.T) {
	bag := diag.NewBag()
	l := lexer.New("t.cx", []byte("0b1010 0o17 0x1F 1_000 3.14"), bag)
	toks := l.Lex()
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
	require.Len(t, toks, 6)
	assert.Equal(t, token.Int, toks[0].Kind)
	assert.Equal(t, token.Int, toks[1].Kind)
	assert.Equal(t, token.Int, toks[2].Kind)
	assert.Equal(t, token.Int, toks[3].Kind)
	assert.Equal(t, token.Float, toks[4].Kind)
}

func TestLexStringWithEscapes(t *testing.T) {
	bag := diag.NewBag()
	l := lexer.New("t.cx", []byte(`"hello\nworld"`), bag)
	toks := l.Lex()
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
	require.Len(t, toks, 2)
	assert.Equal(t, token.String, toks[0].Kind)
	assert.Equal(t, "hello\nworld", toks[0].Text)
}

func TestLexNestedBlockComment(t *testing.T) {
	bag := diag.NewBag()
	l := lexer.New("t.cx", []byte("/* outer /* inner */ still comment */ 1"), bag)
	toks := l.Lex()
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
	require.Len(t, toks, 2)
	assert.Equal(t, token.Int, toks[0].Kind)
}

func TestLexUnterminatedBlockCommentReportsDiagnostic(t *testing.T) {
	bag := diag.NewBag()
	l := lexer.New("t.cx", []byte("/* never closes"), bag)
	l.Lex()
	assert.True(t, bag.HasErrors())
}

func TestLexOperators(t *testing.T) {
	bag := diag.NewBag()
	l := lexer.New("t.cx", []byte("<<= >> != == && || ... -> ?"), bag)
	toks := l.Lex()
	require.False(t, bag.HasErrors(), "%v", bag.Diagnostics())
	assert.Equal(t, []token.Kind{
		token.ShlAssign, token.Shr, token.Neq, token.Eq, token.AndAnd,
		token.OrOr, token.Ellipsis, token.Arrow, token.Question, token.EOF,
	}, kinds(toks))
}
