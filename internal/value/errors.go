package value

import "fmt"

// Error is an evaluation failure raised by the engine. It carries the
// position of the expression that failed.
type Error struct {
	Message string
	Pos     Pos
}

func (e *Error) Error() string {
	if e.Pos.Valid() {
		return fmt.Sprintf("%s at %s", e.Message, e.Pos)
	}
	return e.Message
}

// Errorf builds an *Error at pos.
func Errorf(pos Pos, format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Pos: pos}
}

const (
	msgInfiniteRecursion = "infinite recursion encountered"
	msgStackOverflow     = "stack overflow; max-eval-depth exceeded"
	msgHeapExhausted     = "heap exhausted; max-nodes exceeded"
)

// IsInfiniteRecursion reports whether err is the black-hole error raised
// when a thunk depends on itself.
func IsInfiniteRecursion(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Message == msgInfiniteRecursion
}

// IsHeapExhausted reports whether err is the error raised when the heap's
// node budget is spent.
func IsHeapExhausted(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Message == msgHeapExhausted
}
