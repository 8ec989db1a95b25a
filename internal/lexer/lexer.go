package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bluskript/nix-inspect/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number

	last token.TokenType // type of the previously emitted token
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.readPosition++
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += w
	l.column++
}

func (l *Lexer) NextToken() token.Token {
	tok := l.nextToken()
	l.last = tok.Type
	return tok
}

func (l *Lexer) nextToken() token.Token {
	var tok token.Token

	if err := l.skipWhitespace(); err != nil {
		return *err
	}

	switch l.ch {
	case '=':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(token.EQ)
		} else {
			tok = newToken(token.ASSIGN, l.ch, l.line, l.column)
		}
	case '+':
		if l.peekChar() == '+' {
			tok = l.twoCharToken(token.CONCAT)
		} else {
			tok = newToken(token.PLUS, l.ch, l.line, l.column)
		}
	case '-':
		if l.peekChar() == '>' {
			tok = l.twoCharToken(token.IMPL)
		} else {
			tok = newToken(token.MINUS, l.ch, l.line, l.column)
		}
	case '*':
		tok = newToken(token.ASTERISK, l.ch, l.line, l.column)
	case '/':
		if l.peekChar() == '/' {
			tok = l.twoCharToken(token.UPDATE)
		} else if isPathChar(l.peekChar()) && !token.EndsValue(l.last) {
			return l.readPath()
		} else {
			tok = newToken(token.SLASH, l.ch, l.line, l.column)
		}
	case '!':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(token.NOT_EQ)
		} else {
			tok = newToken(token.BANG, l.ch, l.line, l.column)
		}
	case '<':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(token.LTE)
		} else {
			tok = newToken(token.LT, l.ch, l.line, l.column)
		}
	case '>':
		if l.peekChar() == '=' {
			tok = l.twoCharToken(token.GTE)
		} else {
			tok = newToken(token.GT, l.ch, l.line, l.column)
		}
	case '&':
		if l.peekChar() == '&' {
			tok = l.twoCharToken(token.AND)
		} else {
			tok = newToken(token.ILLEGAL, l.ch, l.line, l.column)
		}
	case '|':
		if l.peekChar() == '|' {
			tok = l.twoCharToken(token.OR_OR)
		} else {
			tok = newToken(token.ILLEGAL, l.ch, l.line, l.column)
		}
	case '?':
		tok = newToken(token.QUESTION, l.ch, l.line, l.column)
	case '.':
		if l.peekChar() == '/' {
			return l.readPath()
		}
		if l.peekChar() == '.' {
			if l.peekChar2() == '/' {
				return l.readPath()
			}
			if l.peekChar2() == '.' {
				line, col := l.line, l.column
				l.readChar()
				l.readChar()
				tok = token.Token{Type: token.ELLIPSIS, Lexeme: "...", Literal: "...", Line: line, Column: col}
				break
			}
		}
		tok = newToken(token.DOT, l.ch, l.line, l.column)
	case '~':
		if l.peekChar() == '/' {
			return l.readPath()
		}
		tok = newToken(token.ILLEGAL, l.ch, l.line, l.column)
	case ',':
		tok = newToken(token.COMMA, l.ch, l.line, l.column)
	case ':':
		tok = newToken(token.COLON, l.ch, l.line, l.column)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch, l.line, l.column)
	case '@':
		tok = newToken(token.AT, l.ch, l.line, l.column)
	case '(':
		tok = newToken(token.LPAREN, l.ch, l.line, l.column)
	case ')':
		tok = newToken(token.RPAREN, l.ch, l.line, l.column)
	case '{':
		tok = newToken(token.LBRACE, l.ch, l.line, l.column)
	case '}':
		tok = newToken(token.RBRACE, l.ch, l.line, l.column)
	case '[':
		tok = newToken(token.LBRACKET, l.ch, l.line, l.column)
	case ']':
		tok = newToken(token.RBRACKET, l.ch, l.line, l.column)
	case '"':
		return l.readString()
	case 0:
		tok.Lexeme = ""
		tok.Type = token.EOF
		tok.Line = l.line
		tok.Column = l.column
		return tok
	default:
		if isLetter(l.ch) {
			startLine, startCol := l.line, l.column
			lexeme := l.readIdentifier()
			return token.Token{Type: token.LookupIdent(lexeme), Lexeme: lexeme, Literal: lexeme, Line: startLine, Column: startCol}
		} else if isDigit(l.ch) {
			return l.readNumber()
		}
		tok = newToken(token.ILLEGAL, l.ch, l.line, l.column)
	}

	l.readChar()
	return tok
}

func (l *Lexer) twoCharToken(t token.TokenType) token.Token {
	line, col := l.line, l.column
	first := l.ch
	l.readChar()
	literal := string(first) + string(l.ch)
	return token.Token{Type: t, Lexeme: literal, Literal: literal, Line: line, Column: col}
}

// readString reads a double-quoted string. Escapes are resolved in text
// parts; ${...} interpolations are kept as raw source for the parser.
func (l *Lexer) readString() token.Token {
	startLine, startCol := l.line, l.column
	start := l.position
	var parts []token.StringPart
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, token.StringPart{Text: text.String()})
			text.Reset()
		}
	}

	for {
		l.readChar()
		switch {
		case l.ch == 0:
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:], Literal: "unterminated string", Line: startLine, Column: startCol}
		case l.ch == '"':
			flush()
			lexeme := l.input[start : l.position+1]
			l.readChar()
			if len(parts) == 0 {
				parts = []token.StringPart{{Text: ""}}
			}
			return token.Token{Type: token.STRING, Lexeme: lexeme, Literal: parts, Line: startLine, Column: startCol}
		case l.ch == '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				text.WriteByte('\n')
			case 't':
				text.WriteByte('\t')
			case 'r':
				text.WriteByte('\r')
			case 0:
				return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:], Literal: "unterminated string", Line: startLine, Column: startCol}
			default:
				text.WriteRune(l.ch)
			}
		case l.ch == '$' && l.peekChar() == '{':
			flush()
			l.readChar() // consume $, now at {
			src, ok := l.readInterpolation()
			if !ok {
				return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:], Literal: "unterminated interpolation", Line: startLine, Column: startCol}
			}
			parts = append(parts, token.StringPart{Interp: src, IsInterp: true})
		default:
			text.WriteRune(l.ch)
		}
	}
}

// readInterpolation reads from the opening '{' up to its matching '}' and
// returns the source between them. Nested braces and strings are skipped.
func (l *Lexer) readInterpolation() (string, bool) {
	start := l.readPosition
	depth := 1
	inString := false
	for {
		l.readChar()
		if l.ch == 0 {
			return "", false
		}
		if inString {
			if l.ch == '\\' {
				l.readChar()
				continue
			}
			if l.ch == '"' {
				inString = false
			}
			continue
		}
		switch l.ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return l.input[start:l.position], true
			}
		}
	}
}

func (l *Lexer) readPath() token.Token {
	startLine, startCol := l.line, l.column
	position := l.position
	for isPathChar(l.ch) || l.ch == '/' || l.ch == '~' {
		l.readChar()
	}
	lexeme := l.input[position:l.position]
	if strings.HasSuffix(lexeme, "/") {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: fmt.Sprintf("path %q has a trailing slash", lexeme), Line: startLine, Column: startCol}
	}
	return token.Token{Type: token.PATH, Lexeme: lexeme, Literal: lexeme, Line: startLine, Column: startCol}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '\'' || l.ch == '-' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber() token.Token {
	startLine, startCol := l.line, l.column
	position := l.position
	isFloat := false

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar() // .
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if (l.ch == 'e' || l.ch == 'E') && (isDigit(l.peekChar()) || ((l.peekChar() == '-' || l.peekChar() == '+') && isDigit(l.peekChar2()))) {
		isFloat = true
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	lexeme := l.input[position:l.position]

	if isFloat {
		val, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: err.Error(), Line: startLine, Column: startCol}
		}
		return token.Token{Type: token.FLOAT, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
	}

	val, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "integer overflow", Line: startLine, Column: startCol}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: val, Line: startLine, Column: startCol}
}

func isPathChar(ch rune) bool {
	return isLetter(ch) || isDigit(ch) || ch == '.' || ch == '-' || ch == '+'
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_' || (ch >= 0x80 && unicode.IsLetter(ch))
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) peekChar2() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	pos2 := l.readPosition + w
	if pos2 >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[pos2:])
	return r
}

func newToken(tokenType token.TokenType, ch rune, line, col int) token.Token {
	literal := string(ch)
	return token.Token{Type: tokenType, Lexeme: literal, Literal: literal, Line: line, Column: col}
}

// skipWhitespace skips blanks, `#` line comments and `/* */` block comments.
// An unterminated block comment yields an ILLEGAL token.
func (l *Lexer) skipWhitespace() *token.Token {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n' {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			line, col := l.line, l.column
			l.readChar() // consume /
			l.readChar() // consume *
			for {
				if l.ch == 0 {
					return &token.Token{Type: token.ILLEGAL, Lexeme: "/*", Literal: "unterminated comment", Line: line, Column: col}
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar() // consume *
					l.readChar() // consume /
					break
				}
				l.readChar()
			}
			continue
		}
		return nil
	}
}
