package parser

import (
	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/diagnostics"
	"github.com/bluskript/nix-inspect/internal/token"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxRecursionDepth {
		if len(p.ctx.Errors) == 0 {
			p.addError(diagnostics.ErrP006, p.curToken, "expression too complex: recursion depth limit exceeded")
		}
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()
	if leftExp == nil {
		return nil
	}

	for {
		// Application is juxtaposition: there is no operator token to look up.
		if precedence < APPLY && startsArgument(p.peekToken.Type) {
			p.nextToken()
			leftExp = p.parseCallExpression(leftExp)
			if leftExp == nil {
				return nil
			}
			continue
		}

		if precedence >= p.peekPrecedence() {
			break
		}

		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		nextExp := infix(leftExp)
		if nextExp == nil {
			return nil
		}
		leftExp = nextExp
	}

	return leftExp
}

func startsArgument(t token.TokenType) bool {
	switch t {
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.PATH,
		token.LPAREN, token.LBRACKET, token.LBRACE, token.REC:
		return true
	}
	return false
}

func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	call := &ast.CallExpression{Token: fn.GetToken(), Function: fn}
	call.Argument = p.parseExpression(APPLY)
	if call.Argument == nil {
		return nil
	}
	return call
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expression := &ast.PrefixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
	}
	precedence := NEGATE
	if p.curTokenIs(token.BANG) {
		precedence = NOT
	}
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Operator: p.curToken.Lexeme,
		Left:     left,
	}

	precedence := p.curPrecedence()
	if rightAssoc[p.curToken.Type] {
		precedence--
	}
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}
	return expression
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

// parseSelectExpression handles e.a.b and e.a.b or default. curToken is the dot.
func (p *Parser) parseSelectExpression(left ast.Expression) ast.Expression {
	sel := &ast.SelectExpression{Token: p.curToken, Left: left}
	p.nextToken()
	sel.Path = p.parseAttrPath()
	if sel.Path == nil {
		return nil
	}
	if p.peekTokenIs(token.OR) {
		p.nextToken()
		p.nextToken()
		sel.Default = p.parseExpression(APPLY)
		if sel.Default == nil {
			return nil
		}
	}
	return sel
}

// parseHasAttrExpression handles e ? a.b. curToken is the question mark.
func (p *Parser) parseHasAttrExpression(left ast.Expression) ast.Expression {
	has := &ast.HasAttrExpression{Token: p.curToken, Left: left}
	p.nextToken()
	has.Path = p.parseAttrPath()
	if has.Path == nil {
		return nil
	}
	return has
}

// parseAttrPath reads name(.name)* starting at curToken and leaves curToken
// on the last name.
func (p *Parser) parseAttrPath() []*ast.AttrName {
	var path []*ast.AttrName
	for {
		name := p.parseAttrName()
		if name == nil {
			return nil
		}
		path = append(path, name)
		if !p.peekTokenIs(token.DOT) {
			return path
		}
		p.nextToken()
		p.nextToken()
	}
}

func (p *Parser) parseAttrName() *ast.AttrName {
	tok := p.curToken
	switch tok.Type {
	case token.IDENT, token.OR:
		return &ast.AttrName{Token: tok, Name: tok.Lexeme}
	case token.STRING:
		parts, _ := tok.Literal.([]token.StringPart)
		if len(parts) == 1 && !parts[0].IsInterp {
			return &ast.AttrName{Token: tok, Name: parts[0].Text}
		}
		p.addError(diagnostics.ErrP003, tok, "interpolated attribute names are not supported")
		return nil
	}
	p.addError(diagnostics.ErrP001, tok, "expected attribute name, got %s", describe(tok))
	return nil
}
