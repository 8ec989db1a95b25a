package evaluator

import (
	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/value"
)

func (e *Evaluator) evalSelectExpression(node *ast.SelectExpression, env *Environment) (value.Handle, error) {
	cur, err := e.Eval(node.Left, env)
	if err != nil {
		return 0, err
	}
	for _, name := range node.Path {
		n, err := e.force(cur)
		if err != nil {
			return 0, err
		}
		if n.Kind != value.KindAttrs {
			if node.Default != nil {
				return e.Eval(node.Default, env)
			}
			return 0, newError(e.pos(env, name), "value is %s while a set was expected", typeDesc(n))
		}
		next, ok := n.Attrs.Get(e.heap.Symbols.Intern(name.Name))
		if !ok {
			if node.Default != nil {
				return e.Eval(node.Default, env)
			}
			return 0, newError(e.pos(env, name), "attribute '%s' missing", name.Name)
		}
		cur = next
	}
	return cur, nil
}

func (e *Evaluator) evalHasAttrExpression(node *ast.HasAttrExpression, env *Environment) (value.Handle, error) {
	pos := e.pos(env, node)
	cur, err := e.Eval(node.Left, env)
	if err != nil {
		return 0, err
	}
	for _, name := range node.Path {
		n, err := e.force(cur)
		if err != nil {
			return 0, err
		}
		if n.Kind != value.KindAttrs {
			return e.heap.NewBool(false, pos), nil
		}
		next, ok := n.Attrs.Get(e.heap.Symbols.Intern(name.Name))
		if !ok {
			return e.heap.NewBool(false, pos), nil
		}
		cur = next
	}
	return e.heap.NewBool(true, pos), nil
}
