package parser

import (
	"strconv"

	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

// parseType parses a type expression, producing an interned types.Type.
// Grammar (documented in DESIGN.md as a parser-level decision, since no
// original parser source survives to ground it precisely):
//
//	type       := "const"? pointerType postfix*
//	postfix    := "?" | "[" "]" | "[" "?" "]" | "[" intLit "]"
//	pointerType:= "*" pointerType | primaryType
//	primaryType:= ident genericArgs? | "(" tupleField ("," tupleField)* ")" | "func" "(" type,... ")" "->" type
func (p *parser) parseType() types.Type {
	mut := types.Mutable
	if _, ok := p.accept(token.Const); ok {
		mut = types.Immutable
	}
	t := p.parsePointerType(mut)
	for {
		loc := p.loc()
		switch {
		case p.at(token.Question):
			p.advance()
			t = p.in.GetOptional(t, mut, loc)
		case p.at(token.LBracket):
			p.advance()
			switch {
			case p.at(token.RBracket):
				p.advance()
				t = p.in.GetArray(t, types.RuntimeSize, mut, loc)
			case p.at(token.Question):
				p.advance()
				p.expect(token.RBracket, "']'")
				t = p.in.GetArray(t, types.UnknownSize, mut, loc)
			default:
				n := p.parseArraySize()
				p.expect(token.RBracket, "']'")
				t = p.in.GetArray(t, n, mut, loc)
			}
		default:
			return t
		}
	}
}

func (p *parser) parseArraySize() types.ArraySize {
	tok := p.expect(token.Int, "array size")
	n, err := strconv.ParseInt(tok.Text, 0, 64)
	if err != nil {
		p.errorf("invalid array size %q", tok.Text)
		return 0
	}
	return types.ArraySize(n)
}

func (p *parser) parsePointerType(mut types.Mutability) types.Type {
	if _, ok := p.accept(token.Star); ok {
		loc := p.loc()
		return p.in.GetPointer(p.parsePointerType(mut), mut, loc)
	}
	return p.parsePrimaryType(mut)
}

func (p *parser) parsePrimaryType(mut types.Mutability) types.Type {
	loc := p.loc()

	if p.cur().Kind == token.Ident && p.cur().Text == "func" {
		p.advance()
		p.expect(token.LParen, "'(' in function type")
		var params []types.Type
		variadic := false
		for !p.at(token.RParen) && !p.at(token.EOF) {
			if _, ok := p.accept(token.Ellipsis); ok {
				variadic = true
				break
			}
			params = append(params, p.parseType())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		ret := types.Type(p.in.GetBasic("void", nil, types.Mutable, loc))
		if _, ok := p.accept(token.Arrow); ok {
			ret = p.parseType()
		}
		return p.in.GetFunction(ret, params, variadic, mut, loc)
	}

	if _, ok := p.accept(token.LParen); ok {
		var names []string
		var elems []types.Type
		for !p.at(token.RParen) && !p.at(token.EOF) {
			name := ""
			if p.cur().Kind == token.Ident && p.peek(1).Kind == token.Colon {
				name = p.advance().Text
				p.advance() // ':'
			}
			names = append(names, name)
			elems = append(elems, p.parseType())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.RParen, "')'")
		return p.in.GetTuple(names, elems, mut, loc)
	}

	name := p.expect(token.Ident, "type name").Text
	var genericArgs []types.Type
	if p.at(token.Lt) && p.looksLikeGenericArgList() {
		p.advance()
		for !p.at(token.Gt) && !p.at(token.EOF) {
			genericArgs = append(genericArgs, p.parseType())
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		p.expect(token.Gt, "'>' to close generic argument list")
	}
	return p.in.GetBasic(name, genericArgs, mut, loc)
}

// looksLikeGenericArgList disambiguates "Foo<Bar>" type generic arguments
// from a less-than comparison by requiring the '<' be immediately followed
// by something that can only start a type (an identifier, "*", or "(").
// Used only in type position, where a bare "<" after a type name is never
// otherwise meaningful.
func (p *parser) looksLikeGenericArgList() bool {
	switch p.peek(1).Kind {
	case token.Ident, token.Star, token.LParen:
		return true
	}
	return false
}
