package ast

import (
	"strconv"
	"strings"

	"github.com/bluskript/nix-inspect/internal/token"
)

// TokenProvider is an interface for any AST node that can provide its primary token.
// This is useful for error reporting.
type TokenProvider interface {
	GetToken() token.Token
}

// Node is the base interface for all AST nodes.
type Node interface {
	TokenLiteral() string
	String() string
}

// Expression is a Node that represents an expression. The language has no
// statements; every construct is an expression.
type Expression interface {
	Node
	expressionNode()
	GetToken() token.Token
}

// Identifier represents a variable reference, e.g. `pkgs`.
type Identifier struct {
	Token token.Token // the token.IDENT token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) String() string       { return i.Value }
func (i *Identifier) GetToken() token.Token {
	if i == nil {
		return token.Token{}
	}
	return i.Token
}

// IntegerLiteral represents an integer literal.
type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()       {}
func (il *IntegerLiteral) TokenLiteral() string  { return il.Token.Lexeme }
func (il *IntegerLiteral) String() string        { return strconv.FormatInt(il.Value, 10) }
func (il *IntegerLiteral) GetToken() token.Token { return il.Token }

// FloatLiteral represents a floating point literal.
type FloatLiteral struct {
	Token token.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()       {}
func (fl *FloatLiteral) TokenLiteral() string  { return fl.Token.Lexeme }
func (fl *FloatLiteral) String() string        { return strconv.FormatFloat(fl.Value, 'g', -1, 64) }
func (fl *FloatLiteral) GetToken() token.Token { return fl.Token }

// StringLiteral represents a string without interpolations.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (sl *StringLiteral) expressionNode()       {}
func (sl *StringLiteral) TokenLiteral() string  { return sl.Token.Lexeme }
func (sl *StringLiteral) String() string        { return strconv.Quote(sl.Value) }
func (sl *StringLiteral) GetToken() token.Token { return sl.Token }

// InterpolatedString represents "a ${b} c". Parts are StringLiterals and
// arbitrary expressions, in source order.
type InterpolatedString struct {
	Token token.Token
	Parts []Expression
}

func (is *InterpolatedString) expressionNode()       {}
func (is *InterpolatedString) TokenLiteral() string  { return is.Token.Lexeme }
func (is *InterpolatedString) GetToken() token.Token { return is.Token }
func (is *InterpolatedString) String() string {
	var out strings.Builder
	out.WriteString(`"`)
	for _, p := range is.Parts {
		if sl, ok := p.(*StringLiteral); ok {
			q := strconv.Quote(sl.Value)
			out.WriteString(q[1 : len(q)-1])
			continue
		}
		out.WriteString("${" + p.String() + "}")
	}
	out.WriteString(`"`)
	return out.String()
}

// PathLiteral represents a filesystem path such as ./default.nix.
type PathLiteral struct {
	Token token.Token
	Value string
}

func (pl *PathLiteral) expressionNode()       {}
func (pl *PathLiteral) TokenLiteral() string  { return pl.Token.Lexeme }
func (pl *PathLiteral) String() string        { return pl.Value }
func (pl *PathLiteral) GetToken() token.Token { return pl.Token }

// ListLiteral represents [ a b c ].
type ListLiteral struct {
	Token    token.Token // [
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()       {}
func (ll *ListLiteral) TokenLiteral() string  { return ll.Token.Lexeme }
func (ll *ListLiteral) GetToken() token.Token { return ll.Token }
func (ll *ListLiteral) String() string {
	parts := make([]string, len(ll.Elements))
	for i, e := range ll.Elements {
		parts[i] = e.String()
	}
	if len(parts) == 0 {
		return "[ ]"
	}
	return "[ " + strings.Join(parts, " ") + " ]"
}
