package ast

import (
	"strconv"
	"strings"

	"github.com/bluskript/nix-inspect/internal/token"
)

// AttrName is one segment of an attribute path. Quoted names keep their
// decoded text in Name.
type AttrName struct {
	Token token.Token
	Name  string
}

func (an *AttrName) GetToken() token.Token { return an.Token }

func (an *AttrName) String() string {
	if isPlainIdent(an.Name) {
		return an.Name
	}
	return strconv.Quote(an.Name)
}

func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z'):
		case i > 0 && (('0' <= r && r <= '9') || r == '\'' || r == '-'):
		default:
			return false
		}
	}
	return token.LookupIdent(s) == token.IDENT
}

func attrPathString(path []*AttrName) string {
	parts := make([]string, len(path))
	for i, a := range path {
		parts[i] = a.String()
	}
	return strings.Join(parts, ".")
}

// Binding is `a.b.c = value;` inside an attribute set or let.
type Binding struct {
	Token token.Token // first token of the path
	Path  []*AttrName
	Value Expression
}

func (b *Binding) String() string {
	return attrPathString(b.Path) + " = " + b.Value.String() + ";"
}

// Inherit is `inherit a b;` or `inherit (from) a b;`.
type Inherit struct {
	Token token.Token // the 'inherit' token
	From  Expression  // nil for plain inherit
	Names []*AttrName
}

func (in *Inherit) String() string {
	var out strings.Builder
	out.WriteString("inherit ")
	if in.From != nil {
		out.WriteString("(" + in.From.String() + ") ")
	}
	for i, n := range in.Names {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(n.String())
	}
	out.WriteString(";")
	return out.String()
}

// AttrSetLiteral represents { ... } and rec { ... }.
type AttrSetLiteral struct {
	Token     token.Token // { or rec
	Recursive bool
	Bindings  []*Binding
	Inherits  []*Inherit
}

func (as *AttrSetLiteral) expressionNode()       {}
func (as *AttrSetLiteral) TokenLiteral() string  { return as.Token.Lexeme }
func (as *AttrSetLiteral) GetToken() token.Token { return as.Token }
func (as *AttrSetLiteral) String() string {
	var out strings.Builder
	if as.Recursive {
		out.WriteString("rec ")
	}
	out.WriteString("{")
	for _, in := range as.Inherits {
		out.WriteString(" " + in.String())
	}
	for _, b := range as.Bindings {
		out.WriteString(" " + b.String())
	}
	out.WriteString(" }")
	return out.String()
}

// LetExpression represents let bindings in body.
type LetExpression struct {
	Token    token.Token // let
	Bindings []*Binding
	Inherits []*Inherit
	Body     Expression
}

func (le *LetExpression) expressionNode()       {}
func (le *LetExpression) TokenLiteral() string  { return le.Token.Lexeme }
func (le *LetExpression) GetToken() token.Token { return le.Token }
func (le *LetExpression) String() string {
	var out strings.Builder
	out.WriteString("let")
	for _, in := range le.Inherits {
		out.WriteString(" " + in.String())
	}
	for _, b := range le.Bindings {
		out.WriteString(" " + b.String())
	}
	out.WriteString(" in " + le.Body.String())
	return out.String()
}

// WithExpression represents with scope; body.
type WithExpression struct {
	Token token.Token // with
	Scope Expression
	Body  Expression
}

func (we *WithExpression) expressionNode()       {}
func (we *WithExpression) TokenLiteral() string  { return we.Token.Lexeme }
func (we *WithExpression) GetToken() token.Token { return we.Token }
func (we *WithExpression) String() string {
	return "with " + we.Scope.String() + "; " + we.Body.String()
}

// AssertExpression represents assert cond; body.
type AssertExpression struct {
	Token     token.Token // assert
	Condition Expression
	Body      Expression
}

func (ae *AssertExpression) expressionNode()       {}
func (ae *AssertExpression) TokenLiteral() string  { return ae.Token.Lexeme }
func (ae *AssertExpression) GetToken() token.Token { return ae.Token }
func (ae *AssertExpression) String() string {
	return "assert " + ae.Condition.String() + "; " + ae.Body.String()
}

// IfExpression represents if c then a else b.
type IfExpression struct {
	Token       token.Token // if
	Condition   Expression
	Consequence Expression
	Alternative Expression
}

func (ie *IfExpression) expressionNode()       {}
func (ie *IfExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *IfExpression) GetToken() token.Token { return ie.Token }
func (ie *IfExpression) String() string {
	return "if " + ie.Condition.String() + " then " + ie.Consequence.String() + " else " + ie.Alternative.String()
}

// Formal is one entry of a destructuring parameter list.
type Formal struct {
	Name    *Identifier
	Default Expression // nil when the argument is required
}

// Formals is the { a, b ? 1, ... } part of a function.
type Formals struct {
	Entries  []*Formal
	Ellipsis bool
}

func (f *Formals) String() string {
	parts := make([]string, 0, len(f.Entries)+1)
	for _, e := range f.Entries {
		if e.Default != nil {
			parts = append(parts, e.Name.Value+" ? "+e.Default.String())
		} else {
			parts = append(parts, e.Name.Value)
		}
	}
	if f.Ellipsis {
		parts = append(parts, "...")
	}
	if len(parts) == 0 {
		return "{ }"
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// FunctionLiteral represents x: body, { a, b }: body and args@{ ... }: body.
type FunctionLiteral struct {
	Token   token.Token
	Param   *Identifier // plain parameter or the @-binding; may be nil
	Formals *Formals    // nil for a plain parameter
	Body    Expression
}

func (fl *FunctionLiteral) expressionNode()       {}
func (fl *FunctionLiteral) TokenLiteral() string  { return fl.Token.Lexeme }
func (fl *FunctionLiteral) GetToken() token.Token { return fl.Token }
func (fl *FunctionLiteral) String() string {
	var head string
	switch {
	case fl.Formals == nil:
		head = fl.Param.Value
	case fl.Param != nil:
		head = fl.Param.Value + "@" + fl.Formals.String()
	default:
		head = fl.Formals.String()
	}
	return "(" + head + ": " + fl.Body.String() + ")"
}

// CallExpression represents function application f x.
type CallExpression struct {
	Token    token.Token // first token of the function expression
	Function Expression
	Argument Expression
}

func (ce *CallExpression) expressionNode()       {}
func (ce *CallExpression) TokenLiteral() string  { return ce.Token.Lexeme }
func (ce *CallExpression) GetToken() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	return "(" + ce.Function.String() + " " + ce.Argument.String() + ")"
}

// SelectExpression represents e.a.b and e.a.b or default.
type SelectExpression struct {
	Token   token.Token // the '.' token
	Left    Expression
	Path    []*AttrName
	Default Expression // nil without `or`
}

func (se *SelectExpression) expressionNode()       {}
func (se *SelectExpression) TokenLiteral() string  { return se.Token.Lexeme }
func (se *SelectExpression) GetToken() token.Token { return se.Token }
func (se *SelectExpression) String() string {
	s := se.Left.String() + "." + attrPathString(se.Path)
	if se.Default != nil {
		s = "(" + s + " or " + se.Default.String() + ")"
	}
	return s
}

// HasAttrExpression represents e ? a.b.
type HasAttrExpression struct {
	Token token.Token // the '?' token
	Left  Expression
	Path  []*AttrName
}

func (he *HasAttrExpression) expressionNode()       {}
func (he *HasAttrExpression) TokenLiteral() string  { return he.Token.Lexeme }
func (he *HasAttrExpression) GetToken() token.Token { return he.Token }
func (he *HasAttrExpression) String() string {
	return "(" + he.Left.String() + " ? " + attrPathString(he.Path) + ")"
}

// PrefixExpression represents a prefix operation, e.g., -5 or !true.
type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. !
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()       {}
func (pe *PrefixExpression) TokenLiteral() string  { return pe.Token.Lexeme }
func (pe *PrefixExpression) GetToken() token.Token { return pe.Token }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// InfixExpression represents an infix operation, e.g., 5 + 5.
type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()       {}
func (ie *InfixExpression) TokenLiteral() string  { return ie.Token.Lexeme }
func (ie *InfixExpression) GetToken() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}
