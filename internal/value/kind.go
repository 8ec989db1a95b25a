package value

import "strconv"

// Kind is the variant tag of a heap node. The numbering follows the wire
// tags the inspector emits, so it must not be reordered.
type Kind uint8

const (
	KindThunk Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindPath
	KindNull
	KindAttrs
	KindList
	KindFunction
	KindExternal
)

var kindNames = [...]string{
	KindThunk:    "thunk",
	KindInt:      "int",
	KindFloat:    "float",
	KindBool:     "bool",
	KindString:   "string",
	KindPath:     "path",
	KindNull:     "null",
	KindAttrs:    "set",
	KindList:     "list",
	KindFunction: "lambda",
	KindExternal: "external",
}

// String returns the name the language uses for the kind (builtins.typeOf).
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// A Pos is the source position a node was created at.
type Pos struct {
	File   string
	Line   int
	Column int
}

func (p Pos) Valid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.Valid() {
		return "«unknown»"
	}
	file := p.File
	if file == "" {
		file = "«string»"
	}
	return file + ":" + strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}
