package token

type TokenType string

const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers and literals
	IDENT  TokenType = "IDENT"
	INT    TokenType = "INT"
	FLOAT  TokenType = "FLOAT"
	STRING TokenType = "STRING"
	PATH   TokenType = "PATH"

	// Operators
	ASSIGN   TokenType = "="
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	BANG     TokenType = "!"
	CONCAT   TokenType = "++"
	UPDATE   TokenType = "//"
	EQ       TokenType = "=="
	NOT_EQ   TokenType = "!="
	LT       TokenType = "<"
	LTE      TokenType = "<="
	GT       TokenType = ">"
	GTE      TokenType = ">="
	AND      TokenType = "&&"
	OR_OR    TokenType = "||"
	IMPL     TokenType = "->"
	QUESTION TokenType = "?"

	// Delimiters
	DOT       TokenType = "."
	ELLIPSIS  TokenType = "..."
	COMMA     TokenType = ","
	COLON     TokenType = ":"
	SEMICOLON TokenType = ";"
	AT        TokenType = "@"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"

	// Keywords
	LET     TokenType = "LET"
	IN      TokenType = "IN"
	REC     TokenType = "REC"
	INHERIT TokenType = "INHERIT"
	IF      TokenType = "IF"
	THEN    TokenType = "THEN"
	ELSE    TokenType = "ELSE"
	ASSERT  TokenType = "ASSERT"
	WITH    TokenType = "WITH"
	OR      TokenType = "OR"
)

var keywords = map[string]TokenType{
	"let":     LET,
	"in":      IN,
	"rec":     REC,
	"inherit": INHERIT,
	"if":      IF,
	"then":    THEN,
	"else":    ELSE,
	"assert":  ASSERT,
	"with":    WITH,
	"or":      OR,
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// StringPart is one chunk of a string literal. Either Text holds literal
// text (escapes already resolved) or Interp holds the raw source of a ${...}
// interpolation.
type StringPart struct {
	Text     string
	Interp   string
	IsInterp bool
}

// Token is a lexical token.
//
// Literal holds the decoded value: int64 for INT, float64 for FLOAT,
// []StringPart for STRING, and the lexeme string for everything else.
type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{}
	Line    int
	Column  int
}

// EndsValue reports whether a token of type t can end an operand. The lexer
// uses it to tell an absolute path (`/etc`) from a division.
func EndsValue(t TokenType) bool {
	switch t {
	case IDENT, INT, FLOAT, STRING, PATH, RPAREN, RBRACKET, RBRACE:
		return true
	}
	return false
}
