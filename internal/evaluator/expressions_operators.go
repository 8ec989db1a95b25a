package evaluator

import (
	"github.com/bluskript/nix-inspect/internal/ast"
	"github.com/bluskript/nix-inspect/internal/value"
)

func (e *Evaluator) evalPrefixExpression(node *ast.PrefixExpression, env *Environment) (value.Handle, error) {
	right, err := e.evalForce(node.Right, env)
	if err != nil {
		return 0, err
	}
	pos := e.pos(env, node)
	switch node.Operator {
	case "!":
		if right.Kind != value.KindBool {
			return 0, newError(pos, "value is %s while a Boolean was expected", typeDesc(right))
		}
		return e.heap.NewBool(!right.Bool, pos), nil
	case "-":
		switch right.Kind {
		case value.KindInt:
			return e.heap.NewInt(-right.Int, pos), nil
		case value.KindFloat:
			return e.heap.NewFloat(-right.Float, pos), nil
		}
		return 0, newError(pos, "cannot negate %s", typeDesc(right))
	}
	return 0, newError(pos, "unknown operator: %s", node.Operator)
}

func (e *Evaluator) evalInfixExpression(node *ast.InfixExpression, env *Environment) (value.Handle, error) {
	pos := e.pos(env, node)

	switch node.Operator {
	case "&&", "||", "->":
		return e.evalLogical(node, env, pos)
	}

	left, err := e.Eval(node.Left, env)
	if err != nil {
		return 0, err
	}
	right, err := e.Eval(node.Right, env)
	if err != nil {
		return 0, err
	}

	switch node.Operator {
	case "==", "!=":
		eq, err := e.equal(left, right)
		if err != nil {
			return 0, err
		}
		return e.heap.NewBool(eq == (node.Operator == "=="), pos), nil
	case "<", "<=", ">", ">=":
		return e.evalComparison(node.Operator, left, right, pos)
	case "++":
		return e.concatLists(left, right, pos)
	case "//":
		return e.updateAttrs(left, right, pos)
	}

	l, err := e.force(left)
	if err != nil {
		return 0, err
	}
	r, err := e.force(right)
	if err != nil {
		return 0, err
	}
	if node.Operator == "+" {
		switch {
		case l.Kind == value.KindString && (r.Kind == value.KindString || r.Kind == value.KindPath):
			return e.heap.NewString(l.Str+r.Str, pos), nil
		case l.Kind == value.KindPath && r.Kind == value.KindString:
			return e.heap.NewPath(l.Str+r.Str, pos), nil
		case l.Kind == value.KindPath && r.Kind == value.KindPath:
			return e.heap.NewPath(l.Str+r.Str, pos), nil
		}
	}
	return e.arith(node.Operator, l, r, pos)
}

func (e *Evaluator) evalLogical(node *ast.InfixExpression, env *Environment, pos value.Pos) (value.Handle, error) {
	l, err := e.evalForce(node.Left, env)
	if err != nil {
		return 0, err
	}
	if l.Kind != value.KindBool {
		return 0, newError(e.pos(env, node.Left), "value is %s while a Boolean was expected", typeDesc(l))
	}
	switch {
	case node.Operator == "&&" && !l.Bool:
		return e.heap.NewBool(false, pos), nil
	case node.Operator == "||" && l.Bool:
		return e.heap.NewBool(true, pos), nil
	case node.Operator == "->" && !l.Bool:
		return e.heap.NewBool(true, pos), nil
	}
	r, err := e.evalForce(node.Right, env)
	if err != nil {
		return 0, err
	}
	if r.Kind != value.KindBool {
		return 0, newError(e.pos(env, node.Right), "value is %s while a Boolean was expected", typeDesc(r))
	}
	return e.heap.NewBool(r.Bool, pos), nil
}

// arith implements + - * / on numbers. Mixing an int and a float yields a
// float; integer division truncates.
func (e *Evaluator) arith(op string, l, r value.Node, pos value.Pos) (value.Handle, error) {
	if !isNumber(l) {
		return 0, newError(pos, "cannot apply '%s' to %s", op, typeDesc(l))
	}
	if !isNumber(r) {
		return 0, newError(pos, "cannot apply '%s' to %s", op, typeDesc(r))
	}

	if l.Kind == value.KindInt && r.Kind == value.KindInt {
		a, b := l.Int, r.Int
		switch op {
		case "+":
			return e.heap.NewInt(a+b, pos), nil
		case "-":
			return e.heap.NewInt(a-b, pos), nil
		case "*":
			return e.heap.NewInt(a*b, pos), nil
		case "/":
			if b == 0 {
				return 0, newError(pos, "division by zero")
			}
			return e.heap.NewInt(a/b, pos), nil
		}
		return 0, newError(pos, "unknown operator: %s", op)
	}

	a, b := toFloat(l), toFloat(r)
	switch op {
	case "+":
		return e.heap.NewFloat(a+b, pos), nil
	case "-":
		return e.heap.NewFloat(a-b, pos), nil
	case "*":
		return e.heap.NewFloat(a*b, pos), nil
	case "/":
		if b == 0 {
			return 0, newError(pos, "division by zero")
		}
		return e.heap.NewFloat(a/b, pos), nil
	}
	return 0, newError(pos, "unknown operator: %s", op)
}

func (e *Evaluator) evalComparison(op string, left, right value.Handle, pos value.Pos) (value.Handle, error) {
	c, err := e.compare(left, right, pos)
	if err != nil {
		return 0, err
	}
	var res bool
	switch op {
	case "<":
		res = c < 0
	case "<=":
		res = c <= 0
	case ">":
		res = c > 0
	case ">=":
		res = c >= 0
	}
	return e.heap.NewBool(res, pos), nil
}

// compare orders numbers, strings, paths and lists (lexicographically).
func (e *Evaluator) compare(left, right value.Handle, pos value.Pos) (int, error) {
	l, err := e.force(left)
	if err != nil {
		return 0, err
	}
	r, err := e.force(right)
	if err != nil {
		return 0, err
	}
	switch {
	case isNumber(l) && isNumber(r):
		if l.Kind == value.KindInt && r.Kind == value.KindInt {
			return cmpOrdered(l.Int, r.Int), nil
		}
		return cmpOrdered(toFloat(l), toFloat(r)), nil
	case l.Kind == value.KindString && r.Kind == value.KindString,
		l.Kind == value.KindPath && r.Kind == value.KindPath:
		return cmpOrdered(l.Str, r.Str), nil
	case l.Kind == value.KindList && r.Kind == value.KindList:
		for i := 0; i < len(l.List) && i < len(r.List); i++ {
			c, err := e.compare(l.List[i], r.List[i], pos)
			if err != nil || c != 0 {
				return c, err
			}
		}
		return cmpOrdered(len(l.List), len(r.List)), nil
	}
	return 0, newError(pos, "cannot compare %s with %s", typeDesc(l), typeDesc(r))
}

func cmpOrdered[T int | int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// equal is structural equality. Functions never compare equal.
func (e *Evaluator) equal(left, right value.Handle) (bool, error) {
	if left == right {
		n, err := e.force(left)
		if err != nil {
			return false, err
		}
		return n.Kind != value.KindFunction, nil
	}
	l, err := e.force(left)
	if err != nil {
		return false, err
	}
	r, err := e.force(right)
	if err != nil {
		return false, err
	}
	if isNumber(l) && isNumber(r) {
		if l.Kind == value.KindInt && r.Kind == value.KindInt {
			return l.Int == r.Int, nil
		}
		return toFloat(l) == toFloat(r), nil
	}
	if l.Kind != r.Kind {
		return false, nil
	}
	switch l.Kind {
	case value.KindBool:
		return l.Bool == r.Bool, nil
	case value.KindString, value.KindPath:
		return l.Str == r.Str, nil
	case value.KindNull:
		return true, nil
	case value.KindList:
		if len(l.List) != len(r.List) {
			return false, nil
		}
		for i := range l.List {
			eq, err := e.equal(l.List[i], r.List[i])
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case value.KindAttrs:
		la, ra := l.Attrs.Attrs(), r.Attrs.Attrs()
		if len(la) != len(ra) {
			return false, nil
		}
		for i := range la {
			if la[i].Name != ra[i].Name {
				return false, nil
			}
			eq, err := e.equal(la[i].Value, ra[i].Value)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case value.KindExternal:
		return l.Ext == r.Ext, nil
	}
	return false, nil
}

func (e *Evaluator) concatLists(left, right value.Handle, pos value.Pos) (value.Handle, error) {
	l, err := e.force(left)
	if err != nil {
		return 0, err
	}
	if l.Kind != value.KindList {
		return 0, newError(pos, "value is %s while a list was expected", typeDesc(l))
	}
	r, err := e.force(right)
	if err != nil {
		return 0, err
	}
	if r.Kind != value.KindList {
		return 0, newError(pos, "value is %s while a list was expected", typeDesc(r))
	}
	elems := make([]value.Handle, 0, len(l.List)+len(r.List))
	elems = append(elems, l.List...)
	elems = append(elems, r.List...)
	return e.heap.NewList(elems, pos), nil
}

// updateAttrs implements `//`: attributes of the right operand win.
func (e *Evaluator) updateAttrs(left, right value.Handle, pos value.Pos) (value.Handle, error) {
	l, err := e.force(left)
	if err != nil {
		return 0, err
	}
	if l.Kind != value.KindAttrs {
		return 0, newError(pos, "value is %s while a set was expected", typeDesc(l))
	}
	r, err := e.force(right)
	if err != nil {
		return 0, err
	}
	if r.Kind != value.KindAttrs {
		return 0, newError(pos, "value is %s while a set was expected", typeDesc(r))
	}
	merged := make([]value.Attr, 0, l.Attrs.Len()+r.Attrs.Len())
	merged = append(merged, l.Attrs.Attrs()...)
	merged = append(merged, r.Attrs.Attrs()...)
	return e.heap.NewAttrs(e.heap.Symbols.NewBindings(merged), pos), nil
}

func (e *Evaluator) evalAssertExpression(node *ast.AssertExpression, env *Environment) (value.Handle, error) {
	cond, err := e.evalForce(node.Condition, env)
	if err != nil {
		return 0, err
	}
	if cond.Kind != value.KindBool {
		return 0, newError(e.pos(env, node.Condition), "value is %s while a Boolean was expected", typeDesc(cond))
	}
	if !cond.Bool {
		return 0, newError(e.pos(env, node), "assertion '%s' failed", node.Condition.String())
	}
	return e.Eval(node.Body, env)
}

func (e *Evaluator) evalIfExpression(node *ast.IfExpression, env *Environment) (value.Handle, error) {
	cond, err := e.evalForce(node.Condition, env)
	if err != nil {
		return 0, err
	}
	if cond.Kind != value.KindBool {
		return 0, newError(e.pos(env, node.Condition), "value is %s while a Boolean was expected", typeDesc(cond))
	}
	if cond.Bool {
		return e.Eval(node.Consequence, env)
	}
	return e.Eval(node.Alternative, env)
}
