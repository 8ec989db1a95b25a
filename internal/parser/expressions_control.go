package parser

import (
	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/token"
)

func (p *Parser) parseLetExpression() ast.Expression {
	let := &ast.LetExpression{Token: p.curToken}
	if !p.parseBindings(token.IN, &let.Bindings, &let.Inherits) {
		return nil
	}
	p.nextToken()
	let.Body = p.parseExpression(LOWEST)
	if let.Body == nil {
		return nil
	}
	return let
}

func (p *Parser) parseWithExpression() ast.Expression {
	with := &ast.WithExpression{Token: p.curToken}
	p.nextToken()
	with.Scope = p.parseExpression(LOWEST)
	if with.Scope == nil || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	p.nextToken()
	with.Body = p.parseExpression(LOWEST)
	if with.Body == nil {
		return nil
	}
	return with
}

func (p *Parser) parseAssertExpression() ast.Expression {
	as := &ast.AssertExpression{Token: p.curToken}
	p.nextToken()
	as.Condition = p.parseExpression(LOWEST)
	if as.Condition == nil || !p.expectPeek(token.SEMICOLON) {
		return nil
	}
	p.nextToken()
	as.Body = p.parseExpression(LOWEST)
	if as.Body == nil {
		return nil
	}
	return as
}

func (p *Parser) parseIfExpression() ast.Expression {
	expr := &ast.IfExpression{Token: p.curToken}
	p.nextToken()
	expr.Condition = p.parseExpression(LOWEST)
	if expr.Condition == nil || !p.expectPeek(token.THEN) {
		return nil
	}
	p.nextToken()
	expr.Consequence = p.parseExpression(LOWEST)
	if expr.Consequence == nil || !p.expectPeek(token.ELSE) {
		return nil
	}
	p.nextToken()
	expr.Alternative = p.parseExpression(LOWEST)
	if expr.Alternative == nil {
		return nil
	}
	return expr
}
