package evaluator

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/value"
)

func (e *Evaluator) evalPathLiteral(node *ast.PathLiteral, env *Environment) (value.Handle, error) {
	p := node.Value
	switch {
	case strings.HasPrefix(p, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return 0, newError(e.pos(env, node), "cannot resolve '%s': %v", p, err)
		}
		p = filepath.Join(home, p[2:])
	case !filepath.IsAbs(p):
		base := e.BaseDir
		if env.file != "" {
			base = filepath.Dir(env.file)
		}
		p = filepath.Join(base, p)
	default:
		p = filepath.Clean(p)
	}
	return e.heap.NewPath(p, e.pos(env, node)), nil
}

func (e *Evaluator) evalInterpolatedString(node *ast.InterpolatedString, env *Environment) (value.Handle, error) {
	var out strings.Builder
	for _, part := range node.Parts {
		if sl, ok := part.(*ast.StringLiteral); ok {
			out.WriteString(sl.Value)
			continue
		}
		n, err := e.evalForce(part, env)
		if err != nil {
			return 0, err
		}
		switch n.Kind {
		case value.KindString, value.KindPath:
			out.WriteString(n.Str)
		default:
			return 0, newError(e.pos(env, part), "cannot coerce %s to a string", typeDesc(n))
		}
	}
	return e.heap.NewString(out.String(), e.pos(env, node)), nil
}

func (e *Evaluator) evalListLiteral(node *ast.ListLiteral, env *Environment) value.Handle {
	elems := make([]value.Handle, len(node.Elements))
	for i, el := range node.Elements {
		elems[i] = e.delay(el, env)
	}
	return e.heap.NewList(elems, e.pos(env, node))
}

// attrDef is one top-level name of a set or let under construction.
type attrDef struct {
	name    value.Symbol
	tok     *ast.AttrName
	expr    ast.Expression // name = expr;
	nested  *attrTree      // name.x = ...;
	from    *inheritSource // inherit (from) name;
	inherit bool           // inherit name;
}

type inheritSource struct {
	expr   ast.Expression
	handle value.Handle
}

type attrTree struct {
	order []*attrDef
	defs  map[value.Symbol]*attrDef
}

func newAttrTree() *attrTree {
	return &attrTree{defs: make(map[value.Symbol]*attrDef)}
}

func (t *attrTree) add(d *attrDef) {
	t.defs[d.name] = d
	t.order = append(t.order, d)
}

func (e *Evaluator) alreadyDefined(env *Environment, name *ast.AttrName, prev *attrDef) error {
	return newError(e.pos(env, name), "attribute '%s' already defined at %s", name.Name,
		value.Pos{File: env.file, Line: prev.tok.Token.Line, Column: prev.tok.Token.Column})
}

// collectAttrs merges bindings like `a.b = 1; a.c = 2;` into a tree and
// rejects duplicate definitions.
func (e *Evaluator) collectAttrs(bindings []*ast.Binding, inherits []*ast.Inherit, env *Environment) (*attrTree, error) {
	syms := e.heap.Symbols
	root := newAttrTree()

	for _, in := range inherits {
		var src *inheritSource
		if in.From != nil {
			src = &inheritSource{expr: in.From}
		}
		for _, name := range in.Names {
			sym := syms.Intern(name.Name)
			if prev, ok := root.defs[sym]; ok {
				return nil, e.alreadyDefined(env, name, prev)
			}
			root.add(&attrDef{name: sym, tok: name, from: src, inherit: src == nil})
		}
	}

	for _, b := range bindings {
		tree := root
		for i, name := range b.Path {
			sym := syms.Intern(name.Name)
			prev, exists := tree.defs[sym]
			if i == len(b.Path)-1 {
				if exists {
					return nil, e.alreadyDefined(env, name, prev)
				}
				tree.add(&attrDef{name: sym, tok: name, expr: b.Value})
				break
			}
			if !exists {
				prev = &attrDef{name: sym, tok: name, nested: newAttrTree()}
				tree.add(prev)
			} else if prev.nested == nil {
				return nil, e.alreadyDefined(env, name, prev)
			}
			tree = prev.nested
		}
	}
	return root, nil
}

// materialize allocates the values of a tree. Binding values are evaluated
// in valueEnv and plain inherits read from inheritEnv. When the scope is
// recursive, valueEnv is not filled yet, so every value is suspended.
func (e *Evaluator) materialize(t *attrTree, valueEnv, inheritEnv *Environment, recursive bool) []value.Attr {
	attrs := make([]value.Attr, 0, len(t.order))
	for _, d := range t.order {
		var v value.Handle
		switch {
		case d.expr != nil && recursive:
			v = e.suspend(d.expr, valueEnv)
		case d.expr != nil:
			v = e.delay(d.expr, valueEnv)
		case d.nested != nil:
			inner := e.materialize(d.nested, valueEnv, inheritEnv, recursive)
			v = e.heap.NewAttrs(e.heap.Symbols.NewBindings(inner), e.pos(valueEnv, d.tok))
		case d.inherit:
			v = e.delay(&ast.Identifier{Token: d.tok.Token, Value: d.tok.Name}, inheritEnv)
		case d.from != nil:
			v = e.inheritFrom(d, inheritEnv)
		}
		attrs = append(attrs, value.Attr{Name: d.name, Value: v})
	}
	return attrs
}

func (e *Evaluator) inheritFrom(d *attrDef, env *Environment) value.Handle {
	src := d.from
	if src.handle == 0 {
		src.handle = e.delay(src.expr, env)
	}
	pos := e.pos(env, d.tok)
	from, name, sym := src.handle, d.tok.Name, d.name
	return e.heap.NewThunk(value.SuspensionFunc(func() (value.Handle, error) {
		n, err := e.force(from)
		if err != nil {
			return 0, err
		}
		if n.Kind != value.KindAttrs {
			return 0, newError(pos, "value is %s while a set was expected", typeDesc(n))
		}
		v, ok := n.Attrs.Get(sym)
		if !ok {
			return 0, newError(pos, "attribute '%s' missing", name)
		}
		return v, nil
	}), pos)
}

func (e *Evaluator) evalAttrSetLiteral(node *ast.AttrSetLiteral, env *Environment) (value.Handle, error) {
	tree, err := e.collectAttrs(node.Bindings, node.Inherits, env)
	if err != nil {
		return 0, err
	}
	if !node.Recursive {
		attrs := e.materialize(tree, env, env, false)
		return e.heap.NewAttrs(e.heap.Symbols.NewBindings(attrs), e.pos(env, node)), nil
	}
	recEnv := NewEnclosedEnvironment(env)
	attrs := e.materialize(tree, recEnv, env, true)
	for _, a := range attrs {
		recEnv.Set(a.Name, a.Value)
	}
	return e.heap.NewAttrs(e.heap.Symbols.NewBindings(attrs), e.pos(env, node)), nil
}

func (e *Evaluator) evalLetExpression(node *ast.LetExpression, env *Environment) (value.Handle, error) {
	tree, err := e.collectAttrs(node.Bindings, node.Inherits, env)
	if err != nil {
		return 0, err
	}
	letEnv := NewEnclosedEnvironment(env)
	for _, a := range e.materialize(tree, letEnv, env, true) {
		letEnv.Set(a.Name, a.Value)
	}
	return e.Eval(node.Body, letEnv)
}
