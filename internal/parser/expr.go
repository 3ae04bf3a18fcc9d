package parser

import (
	"strconv"
	"strings"

	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/token"
)

// parseExpr parses a full expression, boxed for the caller to install into
// whichever *ast.ExprBox field it belongs in.
func (p *parser) parseExpr() *ast.ExprBox {
	return p.parseBinary(0)
}

// precedence levels, lowest to highest; unary/postfix bind tighter than any
// of these and are handled in parseUnary/parsePostfix.
var binaryPrec = map[token.Kind]int{
	token.OrOr:  1,
	token.AndAnd: 2,
	token.Pipe:  3,
	token.Caret: 4,
	token.Amp:   5,
	token.Eq:    6,
	token.Neq:   6,
	token.Lt:    7,
	token.Leq:   7,
	token.Gt:    7,
	token.Geq:   7,
	token.Shl:   8,
	token.Shr:   8,
	token.Plus:  9,
	token.Minus: 9,
	token.Star:  10,
	token.Slash: 10,
	token.Percent: 10,
	token.AmpNot: 5,
}

var binaryOps = map[token.Kind]ast.BinaryOp{
	token.OrOr: ast.OpLOr, token.AndAnd: ast.OpLAnd,
	token.Pipe: ast.OpOr, token.Caret: ast.OpXor, token.Amp: ast.OpAnd, token.AmpNot: ast.OpAndNot,
	token.Eq: ast.OpEq, token.Neq: ast.OpNeq,
	token.Lt: ast.OpLt, token.Leq: ast.OpLeq, token.Gt: ast.OpGt, token.Geq: ast.OpGeq,
	token.Shl: ast.OpShl, token.Shr: ast.OpShr,
	token.Plus: ast.OpAdd, token.Minus: ast.OpSub,
	token.Star: ast.OpMul, token.Slash: ast.OpDiv, token.Percent: ast.OpMod,
}

func (p *parser) parseBinary(minPrec int) *ast.ExprBox {
	left := p.parseUnary()
	for {
		prec, ok := binaryPrec[p.cur().Kind]
		if !ok || prec < minPrec {
			return left
		}
		op := binaryOps[p.cur().Kind]
		p.advance()
		right := p.parseBinary(prec + 1)
		left = ast.Box(&ast.BinaryExpr{Op: op, Left: left, Right: right})
	}
}

func (p *parser) parseUnary() *ast.ExprBox {
	switch p.cur().Kind {
	case token.Plus:
		p.advance()
		return ast.Box(&ast.PrefixExpr{Op: ast.OpPlus, Operand: p.parseUnary()})
	case token.Minus:
		p.advance()
		return ast.Box(&ast.PrefixExpr{Op: ast.OpMinus, Operand: p.parseUnary()})
	case token.Bang:
		p.advance()
		return ast.Box(&ast.PrefixExpr{Op: ast.OpNot, Operand: p.parseUnary()})
	case token.Caret:
		p.advance()
		return ast.Box(&ast.PrefixExpr{Op: ast.OpComplement, Operand: p.parseUnary()})
	case token.Inc:
		p.advance()
		return ast.Box(&ast.PrefixExpr{Op: ast.OpIncrementPrefix, Operand: p.parseUnary()})
	case token.Dec:
		p.advance()
		return ast.Box(&ast.PrefixExpr{Op: ast.OpDecrementPrefix, Operand: p.parseUnary()})
	case token.Amp:
		p.advance()
		return ast.Box(&ast.AddressofExpr{Operand: p.parseUnary()})
	case token.Sizeof:
		p.advance()
		p.expect(token.LParen, "'(' after sizeof")
		t := p.parseType()
		p.expect(token.RParen, "')'")
		return ast.Box(&ast.SizeofExpr{Operand: t})
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *parser) parsePostfix(e *ast.ExprBox) *ast.ExprBox {
	for {
		switch p.cur().Kind {
		case token.Dot:
			p.advance()
			field := p.expect(token.Ident, "field or method name").Text
			if p.at(token.LParen) {
				e = p.parseCallArgs(field, e)
				continue
			}
			e = ast.Box(&ast.MemberExpr{Base: e, Field: field})
		case token.LBracket:
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket, "']'")
			e = ast.Box(&ast.SubscriptExpr{Base: e, Index: idx})
		case token.Bang:
			p.advance()
			e = ast.Box(&ast.UnwrapExpr{Operand: e})
		case token.As:
			p.advance()
			target := p.parseType()
			e = ast.Box(&ast.CastExpr{Operand: e, TargetType: target})
		case token.Inc:
			// Postfix ++/-- only forms a statement (parseSimpleStmt handles
			// it there); as an expression operator it is not supported, so
			// stop here and let statement parsing claim the token.
			return e
		case token.Dec:
			return e
		default:
			return e
		}
	}
}

// parseCallArgs parses the "(args)" suffix of a call, where callee is
// already known (either a bare name or "recv.method").
func (p *parser) parseCallArgs(callee string, receiver *ast.ExprBox) *ast.ExprBox {
	p.expect(token.LParen, "'('")
	call := &ast.CallExpr{Callee: callee, Receiver: receiver}
	for !p.at(token.RParen) && !p.at(token.EOF) {
		name := ""
		if p.cur().Kind == token.Ident && p.peek(1).Kind == token.Colon {
			name = p.advance().Text
			p.advance() // ':'
		}
		call.Args = append(call.Args, ast.Arg{Name: name, Expr: p.parseExpr()})
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return ast.Box(call)
}

func (p *parser) parsePrimary() *ast.ExprBox {
	tok := p.cur()
	switch tok.Kind {
	case token.Int:
		p.advance()
		return intLiteralFromText(tok.Text)
	case token.Float:
		p.advance()
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.errorf("invalid float literal %q", tok.Text)
		}
		return ast.Box(&ast.FloatLiteralExpr{Value: v})
	case token.String:
		p.advance()
		return ast.Box(&ast.StringLiteralExpr{Value: tok.Text})
	case token.Char:
		p.advance()
		r := rune(0)
		if len(tok.Text) > 0 {
			r = []rune(tok.Text)[0]
		}
		return ast.Box(&ast.CharLiteralExpr{Value: r})
	case token.True:
		p.advance()
		return ast.Box(&ast.BoolLiteralExpr{Value: true})
	case token.False:
		p.advance()
		return ast.Box(&ast.BoolLiteralExpr{Value: false})
	case token.Null:
		p.advance()
		return ast.Box(&ast.NullLiteralExpr{})
	case token.Undefined:
		p.advance()
		return ast.Box(&ast.UndefinedLiteralExpr{})
	case token.This:
		p.advance()
		return ast.Box(&ast.VarExpr{Name: "this"})
	case token.If:
		return p.parseIfExpr()
	case token.LBracket:
		return p.parseArrayLiteral()
	case token.LParen:
		return p.parseParenExprOrTuple()
	case token.Ident:
		p.advance()
		if p.at(token.LParen) {
			return p.parseCallArgs(tok.Text, nil)
		}
		return ast.Box(&ast.VarExpr{Name: tok.Text})
	default:
		p.errorf("unexpected token %q in expression", tok.Text)
		p.advance()
		return ast.Box(&ast.UndefinedLiteralExpr{})
	}
}

func intLiteralFromText(text string) *ast.ExprBox {
	clean := strings.ReplaceAll(text, "_", "")
	base := 10
	switch {
	case strings.HasPrefix(clean, "0b") || strings.HasPrefix(clean, "0B"):
		base, clean = 2, clean[2:]
	case strings.HasPrefix(clean, "0o") || strings.HasPrefix(clean, "0O"):
		base, clean = 8, clean[2:]
	case strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X"):
		base, clean = 16, clean[2:]
	}
	v, _ := strconv.ParseInt(clean, base, 64)
	return ast.Box(&ast.IntLiteralExpr{Value: v, Text: text})
}

func (p *parser) parseIfExpr() *ast.ExprBox {
	p.advance() // if
	p.expect(token.LParen, "'(' after if")
	cond := p.parseExpr()
	p.expect(token.RParen, "')'")
	then := p.parseExpr()
	p.expect(token.Else, "'else' in if-expression")
	els := p.parseExpr()
	return ast.Box(&ast.IfExpr{Condition: cond, Then: then, Else: els})
}

func (p *parser) parseArrayLiteral() *ast.ExprBox {
	p.advance() // '['
	lit := &ast.ArrayLiteralExpr{}
	for !p.at(token.RBracket) && !p.at(token.EOF) {
		lit.Elements = append(lit.Elements, p.parseExpr())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RBracket, "']'")
	return ast.Box(lit)
}

// parseParenExprOrTuple handles "(" after which we may find a grouped
// expression "(expr)", a named tuple literal "(a: 1, b: 2)", or a
// positional tuple literal "(1, 2, 3)".
func (p *parser) parseParenExprOrTuple() *ast.ExprBox {
	p.advance() // '('
	if p.at(token.RParen) {
		p.advance()
		return ast.Box(&ast.TupleExpr{})
	}

	if p.cur().Kind == token.Ident && p.peek(1).Kind == token.Colon {
		tup := &ast.TupleExpr{}
		for !p.at(token.RParen) && !p.at(token.EOF) {
			name := p.expect(token.Ident, "tuple field name").Text
			p.expect(token.Colon, "':'")
			tup.Names = append(tup.Names, name)
			tup.Elements = append(tup.Elements, p.parseExpr())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		return ast.Box(tup)
	}

	e := p.parseExpr()
	if _, ok := p.accept(token.Comma); !ok {
		p.expect(token.RParen, "')'")
		return e
	}
	tup := &ast.TupleExpr{Elements: []*ast.ExprBox{e}, Names: []string{""}}
	for !p.at(token.RParen) && !p.at(token.EOF) {
		tup.Names = append(tup.Names, "")
		tup.Elements = append(tup.Elements, p.parseExpr())
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return ast.Box(tup)
}
