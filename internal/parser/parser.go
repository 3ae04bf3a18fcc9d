// Package parser implements cx's recursive-descent parser, consuming
// the internal/lexer's token.Token stream into an ast.File. Grounded on
// the ast package's own node shapes and spec.md §6's AST contract: no
// standalone parser source survives in original_source (only
// src/parser/lex.cpp), so the grammar below is derived directly from
// what ast.Decl/ast.Stmt/ast.Expr require to construct, the same way a
// hand-written parser is always really written backwards from its AST.
package parser

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/diag"
	"github.com/cxlang/cxc/internal/lexer"
	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

// Parse lexes and parses one source file into an ast.File. moduleName tags
// every top-level declaration the way module.Registry keys modules, so
// cross-module mangling (lower.Mangle) and symbol lookup can tell two
// same-named declarations in different modules apart. Errors are recorded
// in bag as diag.ParseError diagnostics; Parse always returns a non-nil
// File; callers must check bag.HasErrors() before trusting it.
func Parse(filename string, src []byte, moduleName string, in *types.Interner, bag *diag.Bag) *ast.File {
	l := lexer.New(filename, src, bag)
	p := &parser{toks: l.Lex(), in: in, bag: bag, filename: filename, moduleName: moduleName}
	f := &ast.File{Path: filename}
	for !p.at(token.EOF) {
		if d := p.parseTopLevelDecl(); d != nil {
			f.Decls = append(f.Decls, d)
		}
	}
	return f
}

type parser struct {
	toks       []token.Token
	pos        int
	in         *types.Interner
	bag        *diag.Bag
	filename   string
	moduleName string
}

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peek(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[i]
}

func (p *parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// accept consumes and returns the current token if it matches k.
func (p *parser) accept(k token.Kind) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return token.Token{}, false
}

// expect consumes the current token, reporting a diag.ParseError if it
// doesn't match k. It always advances, so a missing token can't stall
// the parser in an infinite loop.
func (p *parser) expect(k token.Kind, what string) token.Token {
	if p.at(k) {
		return p.advance()
	}
	p.errorf("expected %s, got %q", what, p.cur().Text)
	return p.advance()
}

func (p *parser) errorf(format string, args ...any) {
	p.bag.ErrorfNotes(diag.ParseError, p.cur().Pos, nil, format, args...)
}

func (p *parser) loc() token.Position { return p.cur().Pos }

// syncToDeclBoundary skips tokens until the parser can plausibly resume
// at the next top-level declaration, so one malformed declaration
// doesn't cascade into spurious errors for the rest of the file.
func (p *parser) syncToDeclBoundary() {
	for !p.at(token.EOF) {
		switch p.cur().Kind {
		case token.Public, token.Private, token.Struct,
			token.Interface, token.Enum, token.Import, token.Var, token.Extern:
			return
		case token.Ident:
			switch p.cur().Text {
			case "func", "class", "union":
				return
			}
		}
		p.advance()
	}
}

// parseTopLevelDecl dispatches on the leading token of one top-level
// declaration. Returns nil (after reporting a diagnostic and
// resynchronizing) if the input doesn't start a recognizable decl.
func (p *parser) parseTopLevelDecl() ast.Decl {
	access := p.parseAccessLevel()

	switch {
	case p.at(token.Import):
		return p.parseImportDecl()
	case p.at(token.Extern):
		return p.parseExternFuncDecl(access)
	case p.isFuncKeyword():
		return p.parseFuncDecl(access, nil, false, false)
	case p.at(token.Struct):
		return p.parseTypeDecl(ast.Struct, access)
	case p.at(token.Interface):
		return p.parseTypeDecl(ast.Interface, access)
	case p.cur().Kind == token.Ident && p.cur().Text == "class":
		p.advance()
		return p.parseTypeDeclBody(ast.Class, access, p.expect(token.Ident, "type name").Text)
	case p.cur().Kind == token.Ident && p.cur().Text == "union":
		p.advance()
		return p.parseTypeDeclBody(ast.Union, access, p.expect(token.Ident, "type name").Text)
	case p.at(token.Enum):
		return p.parseEnumDecl(access)
	case p.at(token.Var), p.at(token.Const):
		return p.parseGlobalVarDecl(access)
	default:
		p.errorf("expected a top-level declaration, got %q", p.cur().Text)
		p.advance()
		p.syncToDeclBoundary()
		return nil
	}
}

// isFuncKeyword reports whether the current token spells "func". The
// lexer doesn't reserve "func"/"mutating"/"init"/"deinit"/"union" as
// keywords in token.Kind (they're contextual, resolved here by text),
// mirroring how spec.md §6 only calls out a fixed keyword set and treats
// the rest of the surface grammar as parser-level structure.
func (p *parser) isFuncKeyword() bool {
	return p.cur().Kind == token.Ident && p.cur().Text == "func"
}

func (p *parser) parseAccessLevel() ast.AccessLevel {
	switch {
	case p.at(token.Public):
		p.advance()
		return ast.Public
	case p.at(token.Private):
		p.advance()
		return ast.Private
	}
	return ast.Public
}

func (p *parser) parseImportDecl() ast.Decl {
	loc := p.loc()
	p.advance() // import
	target := p.expect(token.String, "import path").Text
	p.accept(token.Semicolon)
	return &ast.ImportDecl{Node: ast.Node{Loc: loc}, Target: target, ModuleName: p.moduleName}
}

func (p *parser) parseGlobalVarDecl(access ast.AccessLevel) ast.Decl {
	loc := p.loc()
	p.advance() // var/const
	name := p.expect(token.Ident, "variable name").Text
	var typ types.Type
	if _, ok := p.accept(token.Colon); ok {
		typ = p.parseType()
	}
	var init ast.Expr
	if _, ok := p.accept(token.Assign); ok {
		init = p.parseExpr().X
	}
	p.accept(token.Semicolon)
	return &ast.VarDecl{
		Node: ast.Node{Loc: loc}, AccessLevel: access, Name: name, Type: typ,
		Initializer: init, IsGlobal: true, ModuleName: p.moduleName,
	}
}

func (p *parser) parseGenericParams() []*ast.GenericParamDecl {
	if _, ok := p.accept(token.Lt); !ok {
		return nil
	}
	var params []*ast.GenericParamDecl
	for !p.at(token.Gt) && !p.at(token.EOF) {
		loc := p.loc()
		name := p.expect(token.Ident, "generic parameter name").Text
		gp := &ast.GenericParamDecl{Node: ast.Node{Loc: loc}, Name: name}
		if _, ok := p.accept(token.Colon); ok {
			gp.Constraints = append(gp.Constraints, p.expect(token.Ident, "constraint interface name").Text)
			for {
				if _, ok := p.accept(token.Amp); ok {
					gp.Constraints = append(gp.Constraints, p.expect(token.Ident, "constraint interface name").Text)
					continue
				}
				break
			}
		}
		params = append(params, gp)
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.Gt, "'>' to close generic parameter list")
	return params
}
