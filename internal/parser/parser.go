package parser

import (
	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/diagnostics"
	"github.com/bluskript/nix-inspect/internal/pipeline"
	"github.com/bluskript/nix-inspect/internal/token"
)

// MaxRecursionDepth bounds nesting so hostile input cannot blow the Go stack.
const MaxRecursionDepth = 1000

const (
	_ int = iota
	LOWEST
	IMPL        // ->
	LOGIC_OR    // ||
	LOGIC_AND   // &&
	EQUALS      // == !=
	LESSGREATER // < <= > >=
	UPDATE      // //
	NOT         // !x
	SUM         // + -
	PRODUCT     // * /
	CONCAT      // ++
	HASATTR     // ?
	NEGATE      // -x
	APPLY       // f x
	SELECT      // a.b
)

var precedences = map[token.TokenType]int{
	token.IMPL:     IMPL,
	token.OR_OR:    LOGIC_OR,
	token.AND:      LOGIC_AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.LTE:      LESSGREATER,
	token.GT:       LESSGREATER,
	token.GTE:      LESSGREATER,
	token.UPDATE:   UPDATE,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.CONCAT:   CONCAT,
	token.QUESTION: HASATTR,
	token.DOT:      SELECT,
}

// Right-associative operators bind their right operand one level lower.
var rightAssoc = map[token.TokenType]bool{
	token.IMPL:   true,
	token.UPDATE: true,
	token.CONCAT: true,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	stream pipeline.TokenStream
	ctx    *pipeline.PipelineContext

	curToken  token.Token
	peekToken token.Token

	depth int

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(stream pipeline.TokenStream, ctx *pipeline.PipelineContext) *Parser {
	p := &Parser{stream: stream, ctx: ctx}

	p.prefixParseFns = map[token.TokenType]prefixParseFn{
		token.IDENT:    p.parseIdentifier,
		token.INT:      p.parseIntegerLiteral,
		token.FLOAT:    p.parseFloatLiteral,
		token.STRING:   p.parseStringLiteral,
		token.PATH:     p.parsePathLiteral,
		token.LBRACKET: p.parseListLiteral,
		token.LPAREN:   p.parseGroupedExpression,
		token.LBRACE:   p.parseBrace,
		token.REC:      p.parseRecAttrSet,
		token.LET:      p.parseLetExpression,
		token.WITH:     p.parseWithExpression,
		token.ASSERT:   p.parseAssertExpression,
		token.IF:       p.parseIfExpression,
		token.BANG:     p.parsePrefixExpression,
		token.MINUS:    p.parsePrefixExpression,
	}

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for t := range precedences {
		p.infixParseFns[t] = p.parseInfixExpression
	}
	p.infixParseFns[token.DOT] = p.parseSelectExpression
	p.infixParseFns[token.QUESTION] = p.parseHasAttrExpression

	// Read two tokens so curToken and peekToken are both set.
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a single expression that must span the whole input.
func (p *Parser) Parse() ast.Expression {
	expr := p.parseExpression(LOWEST)
	if expr == nil || len(p.ctx.Errors) > 0 {
		return expr
	}
	if !p.peekTokenIs(token.EOF) {
		p.addError(diagnostics.ErrP005, p.peekToken, "unexpected %s after end of expression", describe(p.peekToken))
	}
	return expr
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.stream.Next()
}

// lookahead returns the n-th token after peekToken (0-based), or EOF.
func (p *Parser) lookahead(n int) token.Token {
	toks := p.stream.Peek(n + 1)
	if len(toks) <= n {
		return token.Token{Type: token.EOF}
	}
	return toks[n]
}

func (p *Parser) curTokenIs(t token.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.TokenType) {
	p.addError(diagnostics.ErrP001, p.peekToken, "expected %s, got %s", t, describe(p.peekToken))
}

func (p *Parser) noPrefixParseFnError(tok token.Token) {
	p.addError(diagnostics.ErrP002, tok, "unexpected %s", describe(tok))
}

func (p *Parser) addError(code diagnostics.ErrorCode, tok token.Token, msg string, args ...interface{}) {
	p.ctx.Errors = append(p.ctx.Errors, diagnostics.NewError(code, tok, msg, args...))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func describe(tok token.Token) string {
	if tok.Type == token.EOF {
		return "end of input"
	}
	return "'" + tok.Lexeme + "'"
}
