package evaluator

import (
	"errors"

	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/value"
)

// closure is a function literal together with its defining scope.
type closure struct {
	e    *Evaluator
	node *ast.FunctionLiteral
	env  *Environment
}

// formalsClosure is a closure that destructures an attribute set argument.
type formalsClosure struct {
	*closure
}

// Formals returns the declared argument names and whether `...` was given.
func (c formalsClosure) Formals() ([]value.Symbol, bool) {
	names := make([]value.Symbol, len(c.node.Formals.Entries))
	for i, f := range c.node.Formals.Entries {
		names[i] = c.e.heap.Symbols.Intern(f.Name.Value)
	}
	return names, c.node.Formals.Ellipsis
}

func (e *Evaluator) newClosure(node *ast.FunctionLiteral, env *Environment) value.Handle {
	c := &closure{e: e, node: node, env: env}
	if node.Formals != nil {
		return e.heap.NewFunction(formalsClosure{c}, e.pos(env, node))
	}
	return e.heap.NewFunction(c, e.pos(env, node))
}

func (c *closure) Call(arg value.Handle) (value.Handle, error) {
	e := c.e
	env := NewEnclosedEnvironment(c.env)
	syms := e.heap.Symbols

	if c.node.Formals == nil {
		env.Set(syms.Intern(c.node.Param.Value), arg)
		return e.Eval(c.node.Body, env)
	}

	pos := e.pos(c.env, c.node)
	n, err := e.force(arg)
	if err != nil {
		return 0, err
	}
	if n.Kind != value.KindAttrs {
		return 0, newError(pos, "value is %s while a set was expected", typeDesc(n))
	}
	if c.node.Param != nil {
		env.Set(syms.Intern(c.node.Param.Value), arg)
	}

	declared := make(map[value.Symbol]bool, len(c.node.Formals.Entries))
	for _, f := range c.node.Formals.Entries {
		sym := syms.Intern(f.Name.Value)
		declared[sym] = true
		if v, ok := n.Attrs.Get(sym); ok {
			env.Set(sym, v)
			continue
		}
		if f.Default == nil {
			return 0, newError(pos, "function called without required argument '%s'", f.Name.Value)
		}
		// Defaults may refer to other formals, so they see the new scope.
		env.Set(sym, e.suspend(f.Default, env))
	}
	if !c.node.Formals.Ellipsis {
		for _, a := range n.Attrs.Attrs() {
			if !declared[a.Name] {
				return 0, newError(pos, "function called with unexpected argument '%s'", syms.Name(a.Name))
			}
		}
	}
	return e.Eval(c.node.Body, env)
}

func (e *Evaluator) evalCallExpression(node *ast.CallExpression, env *Environment) (value.Handle, error) {
	fn, err := e.Eval(node.Function, env)
	if err != nil {
		return 0, err
	}
	arg := e.delay(node.Argument, env)
	pos := e.pos(env, node)
	v, err := e.heap.Call(fn, arg, pos)
	if err != nil {
		return 0, withPos(err, pos)
	}
	return v, nil
}

// withPos attaches pos to an engine error raised without one, such as the
// message of a builtin.
func withPos(err error, pos value.Pos) error {
	var ve *value.Error
	if errors.As(err, &ve) && !ve.Pos.Valid() {
		ve.Pos = pos
	}
	return err
}
