package inspector

import (
	"errors"
	"fmt"

	"github.com/bluskript/nix-inspect/internal/value"
)

// ErrorKind classifies why a request failed.
type ErrorKind uint8

const (
	// EmptyPath: the request named no attribute at all.
	EmptyPath ErrorKind = iota + 1
	// MalformedPath: empty segment or unterminated quote.
	MalformedPath
	// NotAnAttrSet: a path segment descended into a non-container.
	NotAnAttrSet
	// MissingAttribute: the key is absent.
	MissingAttribute
	// EvalFailure: the engine raised while forcing a value.
	EvalFailure
	// ApplyFailure: auto-applying a function failed.
	ApplyFailure
)

var kindNames = map[ErrorKind]string{
	EmptyPath:        "EmptyPath",
	MalformedPath:    "MalformedPath",
	NotAnAttrSet:     "NotAnAttrSet",
	MissingAttribute: "MissingAttribute",
	EvalFailure:      "EvalFailure",
	ApplyFailure:     "ApplyFailure",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// Error is the request-scoped failure every inspector operation returns.
// The session stays usable after any of them.
type Error struct {
	Kind ErrorKind

	// Path is the part of the request path walked before the failure.
	Path string
	// Segment is the index of the failing path segment, or -1.
	Segment int
	// Symbol is the missing attribute name.
	Symbol string
	// Found is the kind of value met where a set was required.
	Found value.Kind
	// Pos is the position of the value the failure was detected at.
	Pos value.Pos

	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case EmptyPath:
		return "empty attribute path"
	case MalformedPath:
		return fmt.Sprintf("malformed attribute path: %s", e.Detail)
	case NotAnAttrSet:
		if e.Path == "" {
			return fmt.Sprintf("value is %s while a set was expected", e.Found)
		}
		return fmt.Sprintf("value at '%s' is %s while a set was expected", e.Path, e.Found)
	case MissingAttribute:
		if e.Path == "" {
			return fmt.Sprintf("attribute '%s' missing", e.Symbol)
		}
		return fmt.Sprintf("attribute '%s' missing in '%s'", e.Symbol, e.Path)
	case ApplyFailure:
		return fmt.Sprintf("calling function with default arguments: %v", e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err,
// &Error{Kind: MissingAttribute}) works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of an inspector error, or 0 for anything else.
func KindOf(err error) ErrorKind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return 0
}

// evalFailure wraps an engine error, keeping its position.
func evalFailure(err error, kind ErrorKind) *Error {
	var ie *Error
	if errors.As(err, &ie) {
		return ie
	}
	e := &Error{Kind: kind, Segment: -1, Err: err}
	var ve *value.Error
	if errors.As(err, &ve) {
		e.Pos = ve.Pos
	}
	return e
}
