package evaluator

import "github.com/bluskript/nix-inspect/internal/value"

// Environment is one lexical scope. A frame created by `with` has no
// variables of its own; its attribute set is consulted only after every
// lexical frame has missed.
type Environment struct {
	store map[value.Symbol]value.Handle
	outer *Environment
	with  value.Handle
	file  string
}

func NewEnvironment(file string) *Environment {
	return &Environment{store: make(map[value.Symbol]value.Handle), file: file}
}

func NewEnclosedEnvironment(outer *Environment) *Environment {
	env := NewEnvironment(outer.file)
	env.outer = outer
	return env
}

func newWithEnvironment(outer *Environment, scope value.Handle) *Environment {
	return &Environment{outer: outer, with: scope, file: outer.file}
}

func (env *Environment) Set(name value.Symbol, v value.Handle) {
	env.store[name] = v
}

// lookupLexical searches the let/function/rec frames only.
func (env *Environment) lookupLexical(name value.Symbol) (value.Handle, bool) {
	for f := env; f != nil; f = f.outer {
		if f.with != 0 {
			continue
		}
		if v, ok := f.store[name]; ok {
			return v, true
		}
	}
	return 0, false
}

// Get resolves name lexically first, then through the enclosing `with`
// scopes from innermost outwards. Forcing a with-scope may fail.
func (env *Environment) Get(h *value.Heap, name value.Symbol) (value.Handle, bool, error) {
	if v, ok := env.lookupLexical(name); ok {
		return v, true, nil
	}
	for f := env; f != nil; f = f.outer {
		if f.with == 0 {
			continue
		}
		scope, err := h.Force(f.with)
		if err != nil {
			return 0, false, err
		}
		n := h.Node(scope)
		if n.Kind != value.KindAttrs {
			return 0, false, value.Errorf(n.Pos, "value is %s while a set was expected", typeDesc(n))
		}
		if v, ok := n.Attrs.Get(name); ok {
			return v, true, nil
		}
	}
	return 0, false, nil
}
