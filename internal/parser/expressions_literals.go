package parser

import (
	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/lexer"
	"github.com/bluskript/nix-inspect/internal/token"
)

func (p *Parser) parseIdentifier() ast.Expression {
	ident := &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	switch {
	case p.peekTokenIs(token.COLON):
		return p.parseSimpleLambda(ident)
	case p.peekTokenIs(token.AT):
		p.nextToken() // @
		if !p.expectPeek(token.LBRACE) {
			return nil
		}
		return p.parseFormalsLambda(ident)
	}
	return ident
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	return &ast.IntegerLiteral{Token: p.curToken, Value: p.curToken.Literal.(int64)}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	return &ast.FloatLiteral{Token: p.curToken, Value: p.curToken.Literal.(float64)}
}

func (p *Parser) parsePathLiteral() ast.Expression {
	return &ast.PathLiteral{Token: p.curToken, Value: p.curToken.Lexeme}
}

// parseStringLiteral turns the lexer's string parts into a plain literal or
// an interpolated string whose ${...} sources are parsed as sub-expressions.
func (p *Parser) parseStringLiteral() ast.Expression {
	tok := p.curToken
	parts, _ := tok.Literal.([]token.StringPart)
	if len(parts) == 1 && !parts[0].IsInterp {
		return &ast.StringLiteral{Token: tok, Value: parts[0].Text}
	}

	str := &ast.InterpolatedString{Token: tok}
	for _, part := range parts {
		if !part.IsInterp {
			str.Parts = append(str.Parts, &ast.StringLiteral{Token: tok, Value: part.Text})
			continue
		}
		expr := p.parseEmbeddedExpression(part.Interp, tok)
		if expr == nil {
			return nil
		}
		str.Parts = append(str.Parts, expr)
	}
	return str
}

// parseEmbeddedExpression parses the source of an interpolation. Positions
// are reported relative to the enclosing string token.
func (p *Parser) parseEmbeddedExpression(src string, at token.Token) ast.Expression {
	stream := lexer.NewTokenStream(lexer.New(src))
	embedded := New(stream, p.ctx)
	embedded.depth = p.depth
	before := len(p.ctx.Errors)
	expr := embedded.parseExpression(LOWEST)
	if expr != nil && !embedded.peekTokenIs(token.EOF) {
		embedded.peekError(token.RBRACE)
		expr = nil
	}
	for _, err := range p.ctx.Errors[before:] {
		err.Token.Line += at.Line - 1
		if err.Token.Line == at.Line {
			err.Token.Column += at.Column
		}
	}
	return expr
}

func (p *Parser) parseListLiteral() ast.Expression {
	list := &ast.ListLiteral{Token: p.curToken}
	list.Elements = []ast.Expression{}
	for !p.peekTokenIs(token.RBRACKET) {
		if p.peekTokenIs(token.EOF) {
			p.peekError(token.RBRACKET)
			return nil
		}
		p.nextToken()
		// Elements are select-level: [ f x ] holds two elements.
		elem := p.parseExpression(APPLY)
		if elem == nil {
			return nil
		}
		list.Elements = append(list.Elements, elem)
	}
	p.nextToken()
	return list
}
