package parser

import (
	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/diagnostics"
	"github.com/bluskript/nix-inspect/internal/token"
)

// parseBrace decides between an attribute set and a function with formals.
// curToken is '{'.
func (p *Parser) parseBrace() ast.Expression {
	if p.isFormalsAhead() {
		return p.parseFormalsLambda(nil)
	}
	set := &ast.AttrSetLiteral{Token: p.curToken}
	if !p.parseBindings(token.RBRACE, &set.Bindings, &set.Inherits) {
		return nil
	}
	return set
}

func (p *Parser) parseRecAttrSet() ast.Expression {
	set := &ast.AttrSetLiteral{Token: p.curToken, Recursive: true}
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	if !p.parseBindings(token.RBRACE, &set.Bindings, &set.Inherits) {
		return nil
	}
	return set
}

// isFormalsAhead looks past '{' for the shapes only a parameter list has:
// `{ }:`, `{ ...`, `{ a,`, `{ a ?` and `{ a }`.
func (p *Parser) isFormalsAhead() bool {
	switch p.peekToken.Type {
	case token.ELLIPSIS:
		return true
	case token.RBRACE:
		next := p.lookahead(0).Type
		return next == token.COLON || next == token.AT
	case token.IDENT:
		switch p.lookahead(0).Type {
		case token.COMMA, token.QUESTION, token.RBRACE:
			return true
		}
	}
	return false
}

// parseBindings reads `path = value;` and `inherit ...;` entries until the
// closing token, which becomes curToken.
func (p *Parser) parseBindings(end token.TokenType, bindings *[]*ast.Binding, inherits *[]*ast.Inherit) bool {
	for !p.peekTokenIs(end) {
		p.nextToken()
		switch p.curToken.Type {
		case token.EOF:
			p.addError(diagnostics.ErrP003, p.curToken, "expected %s, got end of input", end)
			return false
		case token.INHERIT:
			in := p.parseInherit()
			if in == nil {
				return false
			}
			*inherits = append(*inherits, in)
		default:
			b := p.parseBinding()
			if b == nil {
				return false
			}
			*bindings = append(*bindings, b)
		}
	}
	p.nextToken()
	return true
}

func (p *Parser) parseBinding() *ast.Binding {
	b := &ast.Binding{Token: p.curToken}
	b.Path = p.parseAttrPath()
	if b.Path == nil {
		return nil
	}
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	b.Value = p.parseExpression(LOWEST)
	if b.Value == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	return b
}

func (p *Parser) parseInherit() *ast.Inherit {
	in := &ast.Inherit{Token: p.curToken}
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		p.nextToken()
		in.From = p.parseExpression(LOWEST)
		if in.From == nil || !p.expectPeek(token.RPAREN) {
			return nil
		}
	}
	for !p.peekTokenIs(token.SEMICOLON) {
		p.nextToken()
		name := p.parseAttrName()
		if name == nil {
			return nil
		}
		in.Names = append(in.Names, name)
	}
	p.nextToken()
	return in
}
