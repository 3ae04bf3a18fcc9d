package parser

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/token"
	"github.com/cxlang/cxc/types"
)

func (p *parser) parseExternFuncDecl(access ast.AccessLevel) ast.Decl {
	p.advance() // extern
	return p.parseFuncDecl(access, nil, false, true)
}

// parseFuncDecl parses a "func name(...)" declaration. When receiver is
// non-nil the result is a *ast.MethodDecl bound to it; otherwise it's a
// free *ast.FunctionDecl, optionally wrapped in a *ast.FunctionTemplate
// when a generic parameter list follows the name. mutating/extern mark the
// two modifiers a body-less or receiver-mutating declaration can carry.
func (p *parser) parseFuncDecl(access ast.AccessLevel, receiver *ast.TypeDecl, mutating, extern bool) ast.Decl {
	loc := p.loc()
	p.advance() // func
	name := p.expect(token.Ident, "function name").Text

	var generics []*ast.GenericParamDecl
	if receiver == nil {
		generics = p.parseGenericParams()
	}

	proto := ast.FunctionProto{Name: name, Extern: extern}
	proto.Params, proto.Variadic = p.parseParamList()
	if _, ok := p.accept(token.Arrow); ok {
		proto.ReturnType = p.parseType()
	} else {
		proto.ReturnType = p.in.GetBasic("void", nil, types.Mutable, loc)
	}

	var body []ast.Stmt
	if extern {
		p.accept(token.Semicolon)
	} else {
		body = p.parseBlock()
	}

	if receiver != nil {
		m := ast.NewMethodDecl(proto, receiver, loc)
		m.AccessLevel = access
		m.Mutating = mutating
		m.Body = body
		for _, prm := range m.Proto.Params {
			prm.Parent = &m.FunctionDecl
		}
		receiver.AddMethod(m)
		return m
	}

	fn := ast.NewFunctionDecl(proto, loc, p.moduleName)
	fn.AccessLevel = access
	fn.Body = body
	for _, prm := range fn.Proto.Params {
		prm.Parent = fn
	}
	if len(generics) > 0 {
		return ast.NewFunctionTemplate(generics, fn, loc)
	}
	return fn
}

func (p *parser) parseParamList() ([]*ast.ParamDecl, bool) {
	p.expect(token.LParen, "'(' in parameter list")
	var params []*ast.ParamDecl
	variadic := false
	for !p.at(token.RParen) && !p.at(token.EOF) {
		if _, ok := p.accept(token.Ellipsis); ok {
			variadic = true
			break
		}
		loc := p.loc()
		name := p.expect(token.Ident, "parameter name").Text
		p.expect(token.Colon, "':'")
		typ := p.parseType()
		params = append(params, &ast.ParamDecl{Node: ast.Node{Loc: loc}, Name: name, Type: typ})
		if _, ok := p.accept(token.Comma); !ok {
			break
		}
	}
	p.expect(token.RParen, "')'")
	return params, variadic
}

func (p *parser) parseTypeDecl(tag ast.TypeTag, access ast.AccessLevel) ast.Decl {
	p.advance() // struct/class/interface
	name := p.expect(token.Ident, "type name").Text
	return p.parseTypeDeclBody(tag, access, name)
}

func (p *parser) parseTypeDeclBody(tag ast.TypeTag, access ast.AccessLevel, name string) ast.Decl {
	loc := p.loc()
	decl := ast.NewTypeDecl(tag, name, loc, p.moduleName)
	decl.AccessLevel = access

	generics := p.parseGenericParams()

	if _, ok := p.accept(token.Colon); ok {
		decl.Conforms[p.expect(token.Ident, "interface name").Text] = true
		for {
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
			decl.Conforms[p.expect(token.Ident, "interface name").Text] = true
		}
	}

	p.expect(token.LBrace, "'{'")
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		p.parseMember(decl)
	}
	p.expect(token.RBrace, "'}'")

	if len(generics) > 0 {
		return ast.NewTypeTemplate(generics, decl, loc)
	}
	return decl
}

// parseMember parses one field, method, init, or deinit inside a type
// body and appends it to decl.
func (p *parser) parseMember(decl *ast.TypeDecl) {
	access := p.parseAccessLevel()

	mutating := false
	if p.cur().Kind == token.Ident && p.cur().Text == "mutating" {
		mutating = true
		p.advance()
	}

	switch {
	case p.isFuncKeyword():
		p.parseFuncDecl(access, decl, mutating, false)
	case p.cur().Kind == token.Ident && p.cur().Text == "init":
		p.parseInitDecl(decl)
	case p.cur().Kind == token.Ident && p.cur().Text == "deinit":
		p.parseDeinitDecl(decl)
	case p.cur().Kind == token.Ident:
		p.parseFieldDecl(decl, access)
	default:
		p.errorf("expected a field or method, got %q", p.cur().Text)
		p.advance()
	}
}

func (p *parser) parseFieldDecl(decl *ast.TypeDecl, access ast.AccessLevel) {
	loc := p.loc()
	name := p.advance().Text
	p.expect(token.Colon, "':'")
	typ := p.parseType()
	p.accept(token.Semicolon)
	decl.AddField(&ast.FieldDecl{Node: ast.Node{Loc: loc}, AccessLevel: access, Name: name, Type: typ})
}

func (p *parser) parseInitDecl(decl *ast.TypeDecl) {
	loc := p.loc()
	p.advance() // init
	params, _ := p.parseParamList()
	init := ast.NewInitDecl(params, decl, loc)
	init.Body = p.parseBlock()
	decl.AddMethod(init)
}

func (p *parser) parseDeinitDecl(decl *ast.TypeDecl) {
	loc := p.loc()
	p.advance() // deinit
	p.expect(token.LParen, "'(' in deinit")
	p.expect(token.RParen, "')'")
	d := ast.NewDeinitDecl(decl, loc)
	d.Body = p.parseBlock()
	decl.AddMethod(d)
}

func (p *parser) parseEnumDecl(access ast.AccessLevel) ast.Decl {
	loc := p.loc()
	p.advance() // enum
	name := p.expect(token.Ident, "enum name").Text
	decl := ast.NewEnumDecl(name, loc, p.moduleName)
	decl.AccessLevel = access

	p.expect(token.LBrace, "'{'")
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		p.expect(token.Case, "'case'")
		caseLoc := p.loc()
		caseName := p.expect(token.Ident, "case name").Text
		var associated types.Type
		if _, ok := p.accept(token.LParen); ok {
			associated = p.parseType()
			p.expect(token.RParen, "')'")
		}
		decl.AddCase(caseName, associated, caseLoc)
		p.accept(token.Comma)
		p.accept(token.Semicolon)
	}
	p.expect(token.RBrace, "'}'")
	return decl
}
