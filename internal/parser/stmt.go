package parser

import (
	"github.com/cxlang/cxc/ast"
	"github.com/cxlang/cxc/token"
)

func (p *parser) parseBlock() []ast.Stmt {
	p.expect(token.LBrace, "'{'")
	var stmts []ast.Stmt
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace, "'}'")
	return stmts
}

func (p *parser) parseStmt() ast.Stmt {
	loc := p.loc()
	switch p.cur().Kind {
	case token.Var, token.Const:
		return p.parseVarStmt()
	case token.Return:
		p.advance()
		s := &ast.ReturnStmt{Node: ast.Node{Loc: loc}}
		if !p.at(token.Semicolon) {
			s.Value = p.parseExpr()
		}
		p.accept(token.Semicolon)
		return s
	case token.Break:
		p.advance()
		p.accept(token.Semicolon)
		return &ast.BreakStmt{Node: ast.Node{Loc: loc}}
	case token.Continue:
		p.advance()
		p.accept(token.Semicolon)
		return &ast.ContinueStmt{Node: ast.Node{Loc: loc}}
	case token.Defer:
		p.advance()
		v := p.parseExpr()
		p.accept(token.Semicolon)
		return &ast.DeferStmt{Node: ast.Node{Loc: loc}, Value: v}
	case token.If:
		return p.parseIfStmt()
	case token.While:
		return p.parseWhileStmt()
	case token.For:
		return p.parseForStmt()
	case token.Switch:
		return p.parseSwitchStmt()
	case token.LBrace:
		return &ast.CompoundStmt{Node: ast.Node{Loc: loc}, Body: p.parseBlock()}
	default:
		return p.parseSimpleStmt()
	}
}

func (p *parser) parseVarStmt() ast.Stmt {
	loc := p.loc()
	p.advance() // var/const
	name := p.expect(token.Ident, "variable name").Text
	decl := &ast.VarDecl{Node: ast.Node{Loc: loc}, Name: name}
	if _, ok := p.accept(token.Colon); ok {
		decl.Type = p.parseType()
	}
	if _, ok := p.accept(token.Assign); ok {
		decl.Initializer = p.parseExpr().X
	}
	p.accept(token.Semicolon)
	return &ast.VarStmt{Node: ast.Node{Loc: loc}, Decl: decl}
}

func (p *parser) parseIfStmt() ast.Stmt {
	loc := p.loc()
	p.advance() // if
	p.expect(token.LParen, "'(' after if")
	cond := p.parseExpr()
	p.expect(token.RParen, "')'")
	then := p.parseBlock()
	stmt := &ast.IfStmt{Node: ast.Node{Loc: loc}, Condition: cond, Then: then}
	if _, ok := p.accept(token.Else); ok {
		if p.at(token.If) {
			stmt.Else = []ast.Stmt{p.parseIfStmt()}
		} else {
			stmt.Else = p.parseBlock()
		}
	}
	return stmt
}

func (p *parser) parseWhileStmt() ast.Stmt {
	loc := p.loc()
	p.advance() // while
	p.expect(token.LParen, "'(' after while")
	cond := p.parseExpr()
	p.expect(token.RParen, "')'")
	return &ast.WhileStmt{Node: ast.Node{Loc: loc}, Condition: cond, Body: p.parseBlock()}
}

// parseForStmt disambiguates "for (name in range)" from the classic
// C-style "for (init; cond; inc)" by checking whether the two tokens after
// "(" are an identifier followed by "in".
func (p *parser) parseForStmt() ast.Stmt {
	loc := p.loc()
	p.advance() // for
	p.expect(token.LParen, "'(' after for")

	if p.cur().Kind == token.Ident && p.peek(1).Kind == token.In {
		name := p.advance().Text
		p.advance() // in
		rng := p.parseExpr()
		p.expect(token.RParen, "')'")
		return &ast.ForInStmt{Node: ast.Node{Loc: loc}, VarName: name, Range: rng, Body: p.parseBlock()}
	}

	var init ast.Stmt
	if !p.at(token.Semicolon) {
		if p.at(token.Var) {
			init = p.parseVarStmt()
		} else {
			init = p.parseExprStmtNoTerminator()
			p.expect(token.Semicolon, "';'")
		}
	} else {
		p.advance()
	}

	var cond *ast.ExprBox
	if !p.at(token.Semicolon) {
		cond = p.parseExpr()
	}
	p.expect(token.Semicolon, "';'")

	var inc *ast.ExprBox
	if !p.at(token.RParen) {
		inc = p.parseExpr()
	}
	p.expect(token.RParen, "')'")

	return &ast.ForStmt{Node: ast.Node{Loc: loc}, Init: init, Condition: cond, Increment: inc, Body: p.parseBlock()}
}

// parseExprStmtNoTerminator parses one expression-led statement (plain
// expr, assignment, or increment/decrement) without consuming a trailing
// terminator, for use inside a for-loop's init clause where the
// terminator is always a explicit ';'.
func (p *parser) parseExprStmtNoTerminator() ast.Stmt {
	loc := p.loc()
	e := p.parseExpr()
	if op, ok := assignOps[p.cur().Kind]; ok {
		p.advance()
		val := p.parseExpr()
		return &ast.AssignStmt{Node: ast.Node{Loc: loc}, Target: e, Op: op, Value: val}
	}
	switch p.cur().Kind {
	case token.Inc:
		p.advance()
		return &ast.IncrementStmt{Node: ast.Node{Loc: loc}, Target: e}
	case token.Dec:
		p.advance()
		return &ast.DecrementStmt{Node: ast.Node{Loc: loc}, Target: e}
	}
	return &ast.ExprStmt{Node: ast.Node{Loc: loc}, Value: e}
}

var assignOps = map[token.Kind]ast.AssignOp{
	token.Assign:       ast.AssignPlain,
	token.PlusAssign:   ast.AssignAdd,
	token.MinusAssign:  ast.AssignSub,
	token.StarAssign:   ast.AssignMul,
	token.SlashAssign:  ast.AssignDiv,
	token.PercentAssign: ast.AssignMod,
	token.AmpAssign:    ast.AssignAnd,
	token.PipeAssign:   ast.AssignOr,
	token.CaretAssign:  ast.AssignXor,
	token.ShlAssign:    ast.AssignShl,
	token.ShrAssign:    ast.AssignShr,
}

func (p *parser) parseSimpleStmt() ast.Stmt {
	s := p.parseExprStmtNoTerminator()
	p.accept(token.Semicolon)
	return s
}

func (p *parser) parseSwitchStmt() ast.Stmt {
	loc := p.loc()
	p.advance() // switch
	p.expect(token.LParen, "'(' after switch")
	cond := p.parseExpr()
	p.expect(token.RParen, "')'")
	p.expect(token.LBrace, "'{'")

	stmt := &ast.SwitchStmt{Node: ast.Node{Loc: loc}, Condition: cond}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		var c ast.SwitchCase
		switch p.cur().Kind {
		case token.Case:
			p.advance()
			c.Value = p.parseExpr()
			if _, ok := p.accept(token.As); ok {
				c.AssociatedVar = p.expect(token.Ident, "bound name").Text
			}
		case token.Default:
			p.advance()
		default:
			p.errorf("expected 'case' or 'default', got %q", p.cur().Text)
			p.advance()
			continue
		}
		p.expect(token.Colon, "':'")
		for !p.at(token.Case) && !p.at(token.Default) && !p.at(token.RBrace) && !p.at(token.EOF) {
			c.Body = append(c.Body, p.parseStmt())
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	p.expect(token.RBrace, "'}'")
	return stmt
}
