package diagnostics

import (
	"fmt"

	"github.com/bluskript/nix-inspect/internal/token"
)

type ErrorCode string

const (
	// Lexer errors
	ErrL001 ErrorCode = "L001" // illegal token

	// Parser errors
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // no prefix parse function
	ErrP003 ErrorCode = "P003" // malformed attribute set
	ErrP004 ErrorCode = "P004" // malformed function formals
	ErrP005 ErrorCode = "P005" // trailing input
	ErrP006 ErrorCode = "P006" // recursion depth exceeded
)

// DiagnosticError is a positioned error produced before evaluation starts.
type DiagnosticError struct {
	Code    ErrorCode
	Token   token.Token
	Message string
	File    string
}

func NewError(code ErrorCode, tok token.Token, msg string, args ...interface{}) *DiagnosticError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &DiagnosticError{Code: code, Token: tok, Message: msg}
}

func (e *DiagnosticError) Error() string {
	file := e.File
	if file == "" {
		file = "<expr>"
	}
	return fmt.Sprintf("%s:%d:%d: error[%s]: %s", file, e.Token.Line, e.Token.Column, e.Code, e.Message)
}

// Join folds a slice of diagnostics into a single error, or nil.
func Join(errs []*DiagnosticError) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return &MultiError{Errors: errs}
}

type MultiError struct {
	Errors []*DiagnosticError
}

func (m *MultiError) Error() string {
	s := m.Errors[0].Error()
	return fmt.Sprintf("%s (and %d more)", s, len(m.Errors)-1)
}

func (m *MultiError) Unwrap() []error {
	out := make([]error, len(m.Errors))
	for i, e := range m.Errors {
		out[i] = e
	}
	return out
}
