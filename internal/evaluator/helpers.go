package evaluator

import (
	"github.com/bluskript/nix-inspect/internal/value"
)

func newError(pos value.Pos, format string, a ...interface{}) *value.Error {
	return value.Errorf(pos, format, a...)
}

func isNumber(n value.Node) bool {
	return n.Kind == value.KindInt || n.Kind == value.KindFloat
}

func toFloat(n value.Node) float64 {
	if n.Kind == value.KindInt {
		return float64(n.Int)
	}
	return n.Float
}

// typeDesc renders a value's type for error messages, e.g. "an integer".
func typeDesc(n value.Node) string {
	switch n.Kind {
	case value.KindInt:
		return "an integer"
	case value.KindFloat:
		return "a float"
	case value.KindBool:
		return "a Boolean"
	case value.KindString:
		return "a string"
	case value.KindPath:
		return "a path"
	case value.KindNull:
		return "null"
	case value.KindAttrs:
		return "a set"
	case value.KindList:
		return "a list"
	case value.KindFunction:
		return "a function"
	case value.KindExternal:
		return "an external value"
	}
	return "a thunk"
}
