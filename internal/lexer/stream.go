package lexer

import (
	"github.com/bluskript/nix-inspect/internal/diagnostics"
	"github.com/bluskript/nix-inspect/internal/pipeline"
	"github.com/bluskript/nix-inspect/internal/token"
)

// TokenStream buffers a lexer so the parser can look several tokens ahead.
type TokenStream struct {
	lexer  *Lexer
	buffer []token.Token
}

func NewTokenStream(l *Lexer) *TokenStream {
	return &TokenStream{lexer: l}
}

// Next consumes and returns the next token.
func (s *TokenStream) Next() token.Token {
	if len(s.buffer) > 0 {
		tok := s.buffer[0]
		s.buffer = s.buffer[1:]
		return tok
	}
	return s.lexer.NextToken()
}

// Peek returns up to n upcoming tokens without consuming them. The slice
// stops early at EOF.
func (s *TokenStream) Peek(n int) []token.Token {
	for len(s.buffer) < n {
		if len(s.buffer) > 0 && s.buffer[len(s.buffer)-1].Type == token.EOF {
			break
		}
		s.buffer = append(s.buffer, s.lexer.NextToken())
	}
	if n > len(s.buffer) {
		n = len(s.buffer)
	}
	return s.buffer[:n]
}

type LexerProcessor struct{}

func (lp *LexerProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	stream := NewTokenStream(New(ctx.SourceCode))
	ctx.TokenStream = stream
	// Surface illegal tokens early; the parser would otherwise only report
	// the first one it trips over.
	for _, tok := range stream.Peek(1 << 16) {
		if tok.Type == token.ILLEGAL {
			ctx.Errors = append(ctx.Errors, diagnostics.NewError(diagnostics.ErrL001, tok, "illegal token %q: %v", tok.Lexeme, tok.Literal))
		}
	}
	return ctx
}
