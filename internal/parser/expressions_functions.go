package parser

import (
	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/diagnostics"
	"github.com/bluskript/nix-inspect/internal/token"
)

// parseSimpleLambda parses `x: body`. curToken is the parameter.
func (p *Parser) parseSimpleLambda(param *ast.Identifier) ast.Expression {
	fn := &ast.FunctionLiteral{Token: param.Token, Param: param}
	p.nextToken() // :
	p.nextToken()
	fn.Body = p.parseExpression(LOWEST)
	if fn.Body == nil {
		return nil
	}
	return fn
}

// parseFormalsLambda parses `{ a, b ? d, ... }: body` with an optional
// binding on either side of '@'. curToken is '{'.
func (p *Parser) parseFormalsLambda(bind *ast.Identifier) ast.Expression {
	fn := &ast.FunctionLiteral{Token: p.curToken, Param: bind}
	if bind != nil {
		fn.Token = bind.Token
	}
	fn.Formals = p.parseFormals()
	if fn.Formals == nil {
		return nil
	}

	if p.peekTokenIs(token.AT) {
		if bind != nil {
			p.addError(diagnostics.ErrP004, p.peekToken, "duplicate '@' binding")
			return nil
		}
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		fn.Param = &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
	}

	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	fn.Body = p.parseExpression(LOWEST)
	if fn.Body == nil {
		return nil
	}
	return fn
}

func (p *Parser) parseFormals() *ast.Formals {
	formals := &ast.Formals{}
	seen := make(map[string]bool)
	for !p.peekTokenIs(token.RBRACE) {
		p.nextToken()
		switch p.curToken.Type {
		case token.ELLIPSIS:
			formals.Ellipsis = true
		case token.IDENT:
			name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Lexeme}
			if seen[name.Value] {
				p.addError(diagnostics.ErrP004, p.curToken, "duplicate formal function argument '%s'", name.Value)
				return nil
			}
			seen[name.Value] = true
			formal := &ast.Formal{Name: name}
			if p.peekTokenIs(token.QUESTION) {
				p.nextToken()
				p.nextToken()
				formal.Default = p.parseExpression(LOWEST)
				if formal.Default == nil {
					return nil
				}
			}
			formals.Entries = append(formals.Entries, formal)
		default:
			p.addError(diagnostics.ErrP004, p.curToken, "unexpected %s in function arguments", describe(p.curToken))
			return nil
		}

		if p.peekTokenIs(token.COMMA) {
			if formals.Ellipsis {
				p.addError(diagnostics.ErrP004, p.peekToken, "'...' must be the last function argument")
				return nil
			}
			p.nextToken()
			continue
		}
		if !p.peekTokenIs(token.RBRACE) {
			p.peekError(token.RBRACE)
			return nil
		}
	}
	p.nextToken()
	return formals
}
