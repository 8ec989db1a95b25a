package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluskript/nix-inspect/internal/value"
)

type builtinFn func(e *Evaluator, args []value.Handle) (value.Handle, error)

type builtinDef struct {
	name  string
	arity int
	fn    builtinFn
}

// primop is a builtin, possibly partially applied.
type primop struct {
	e    *Evaluator
	def  *builtinDef
	args []value.Handle
}

func (p *primop) Call(arg value.Handle) (value.Handle, error) {
	args := make([]value.Handle, len(p.args), len(p.args)+1)
	copy(args, p.args)
	args = append(args, arg)
	if len(args) < p.def.arity {
		return p.e.heap.NewFunction(&primop{e: p.e, def: p.def, args: args}, value.Pos{}), nil
	}
	return p.def.fn(p.e, args)
}

var builtinDefs = []*builtinDef{
	{"throw", 1, builtinThrow},
	{"abort", 1, builtinAbort},
	{"toString", 1, builtinToString},
	{"import", 1, builtinImport},
	{"length", 1, builtinLength},
	{"attrNames", 1, builtinAttrNames},
	{"attrValues", 1, builtinAttrValues},
	{"head", 1, builtinHead},
	{"tail", 1, builtinTail},
	{"elemAt", 2, builtinElemAt},
	{"map", 2, builtinMap},
	{"filter", 2, builtinFilter},
	{"hasAttr", 2, builtinHasAttr},
	{"getAttr", 2, builtinGetAttr},
	{"isAttrs", 1, isKind(value.KindAttrs)},
	{"isList", 1, isKind(value.KindList)},
	{"isFunction", 1, isKind(value.KindFunction)},
	{"isInt", 1, isKind(value.KindInt)},
	{"isFloat", 1, isKind(value.KindFloat)},
	{"isBool", 1, isKind(value.KindBool)},
	{"isString", 1, isKind(value.KindString)},
	{"isNull", 1, isKind(value.KindNull)},
	{"isPath", 1, isKind(value.KindPath)},
	{"typeOf", 1, builtinTypeOf},
	{"genList", 2, builtinGenList},
	{"seq", 2, builtinSeq},
	{"add", 2, arithBuiltin("+")},
	{"sub", 2, arithBuiltin("-")},
	{"mul", 2, arithBuiltin("*")},
	{"div", 2, arithBuiltin("/")},
	{"lessThan", 2, builtinLessThan},
	{"concatStringsSep", 2, builtinConcatStringsSep},
	{"listToAttrs", 1, builtinListToAttrs},
	{"removeAttrs", 2, builtinRemoveAttrs},
	{"foldl'", 3, builtinFoldl},
	{"trace", 2, builtinTrace},
}

// Builtins that are also reachable without the `builtins.` prefix.
var globalBuiltins = []string{"throw", "abort", "toString", "import", "map", "isNull", "removeAttrs"}

func (e *Evaluator) newBaseScope() map[value.Symbol]value.Handle {
	h := e.heap
	fns := make(map[string]value.Handle, len(builtinDefs))
	for _, def := range builtinDefs {
		fns[def.name] = h.NewFunction(&primop{e: e, def: def}, value.Pos{})
	}
	fns["true"] = h.NewBool(true, value.Pos{})
	fns["false"] = h.NewBool(false, value.Pos{})
	fns["null"] = h.NewNull(value.Pos{})

	scope := map[value.Symbol]value.Handle{
		h.Symbols.Intern("builtins"): h.NewAttrsFrom(fns, value.Pos{}),
		h.Symbols.Intern("true"):     fns["true"],
		h.Symbols.Intern("false"):    fns["false"],
		h.Symbols.Intern("null"):     fns["null"],
	}
	for _, name := range globalBuiltins {
		scope[h.Symbols.Intern(name)] = fns[name]
	}
	return scope
}

func (e *Evaluator) expect(v value.Handle, kind value.Kind, what string) (value.Node, error) {
	n, err := e.force(v)
	if err != nil {
		return n, err
	}
	if n.Kind != kind {
		return n, newError(value.Pos{}, "value is %s while %s was expected", typeDesc(n), what)
	}
	return n, nil
}

func (e *Evaluator) call2(f, a, b value.Handle) (value.Handle, error) {
	g, err := e.heap.Call(f, a, value.Pos{})
	if err != nil {
		return 0, err
	}
	return e.heap.Call(g, b, value.Pos{})
}

func builtinThrow(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.expect(args[0], value.KindString, "a string")
	if err != nil {
		return 0, err
	}
	return 0, newError(value.Pos{}, "%s", n.Str)
}

func builtinAbort(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.expect(args[0], value.KindString, "a string")
	if err != nil {
		return 0, err
	}
	return 0, newError(value.Pos{}, "evaluation aborted with the following error message: '%s'", n.Str)
}

func builtinToString(e *Evaluator, args []value.Handle) (value.Handle, error) {
	s, err := e.coerceToString(args[0])
	if err != nil {
		return 0, err
	}
	return e.heap.NewString(s, value.Pos{}), nil
}

// coerceToString follows toString: numbers render in decimal, true is "1",
// false and null are empty, lists join their elements with spaces.
func (e *Evaluator) coerceToString(v value.Handle) (string, error) {
	n, err := e.force(v)
	if err != nil {
		return "", err
	}
	switch n.Kind {
	case value.KindString, value.KindPath:
		return n.Str, nil
	case value.KindInt:
		return strconv.FormatInt(n.Int, 10), nil
	case value.KindFloat:
		return fmt.Sprintf("%f", n.Float), nil
	case value.KindBool:
		if n.Bool {
			return "1", nil
		}
		return "", nil
	case value.KindNull:
		return "", nil
	case value.KindList:
		parts := make([]string, len(n.List))
		for i, el := range n.List {
			if parts[i], err = e.coerceToString(el); err != nil {
				return "", err
			}
		}
		return strings.Join(parts, " "), nil
	}
	return "", newError(n.Pos, "cannot coerce %s to a string", typeDesc(n))
}

func builtinImport(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.force(args[0])
	if err != nil {
		return 0, err
	}
	if n.Kind != value.KindPath && n.Kind != value.KindString {
		return 0, newError(value.Pos{}, "value is %s while a path was expected", typeDesc(n))
	}
	return e.ParseFile(n.Str)
}

func builtinLength(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.expect(args[0], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	return e.heap.NewInt(int64(len(n.List)), value.Pos{}), nil
}

func builtinAttrNames(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.expect(args[0], value.KindAttrs, "a set")
	if err != nil {
		return 0, err
	}
	keys := n.Attrs.Keys()
	elems := make([]value.Handle, len(keys))
	for i, k := range keys {
		elems[i] = e.heap.NewString(k, value.Pos{})
	}
	return e.heap.NewList(elems, value.Pos{}), nil
}

func builtinAttrValues(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.expect(args[0], value.KindAttrs, "a set")
	if err != nil {
		return 0, err
	}
	attrs := n.Attrs.Attrs()
	elems := make([]value.Handle, len(attrs))
	for i, a := range attrs {
		elems[i] = a.Value
	}
	return e.heap.NewList(elems, value.Pos{}), nil
}

func builtinHead(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.expect(args[0], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	if len(n.List) == 0 {
		return 0, newError(value.Pos{}, "'builtins.head' called on an empty list")
	}
	return n.List[0], nil
}

func builtinTail(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.expect(args[0], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	if len(n.List) == 0 {
		return 0, newError(value.Pos{}, "'builtins.tail' called on an empty list")
	}
	return e.heap.NewList(n.List[1:], value.Pos{}), nil
}

func builtinElemAt(e *Evaluator, args []value.Handle) (value.Handle, error) {
	list, err := e.expect(args[0], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	idx, err := e.expect(args[1], value.KindInt, "an integer")
	if err != nil {
		return 0, err
	}
	if idx.Int < 0 || idx.Int >= int64(len(list.List)) {
		return 0, newError(value.Pos{}, "list index %d is out of bounds", idx.Int)
	}
	return list.List[idx.Int], nil
}

func builtinMap(e *Evaluator, args []value.Handle) (value.Handle, error) {
	f := args[0]
	list, err := e.expect(args[1], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	elems := make([]value.Handle, len(list.List))
	for i, el := range list.List {
		el := el
		elems[i] = e.heap.NewThunk(value.SuspensionFunc(func() (value.Handle, error) {
			return e.heap.Call(f, el, value.Pos{})
		}), value.Pos{})
	}
	return e.heap.NewList(elems, value.Pos{}), nil
}

func builtinFilter(e *Evaluator, args []value.Handle) (value.Handle, error) {
	f := args[0]
	list, err := e.expect(args[1], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	var kept []value.Handle
	for _, el := range list.List {
		r, err := e.heap.Call(f, el, value.Pos{})
		if err != nil {
			return 0, err
		}
		b, err := e.expect(r, value.KindBool, "a Boolean")
		if err != nil {
			return 0, err
		}
		if b.Bool {
			kept = append(kept, el)
		}
	}
	return e.heap.NewList(kept, value.Pos{}), nil
}

func builtinHasAttr(e *Evaluator, args []value.Handle) (value.Handle, error) {
	name, err := e.expect(args[0], value.KindString, "a string")
	if err != nil {
		return 0, err
	}
	set, err := e.expect(args[1], value.KindAttrs, "a set")
	if err != nil {
		return 0, err
	}
	_, ok := set.Attrs.Get(e.heap.Symbols.Intern(name.Str))
	return e.heap.NewBool(ok, value.Pos{}), nil
}

func builtinGetAttr(e *Evaluator, args []value.Handle) (value.Handle, error) {
	name, err := e.expect(args[0], value.KindString, "a string")
	if err != nil {
		return 0, err
	}
	set, err := e.expect(args[1], value.KindAttrs, "a set")
	if err != nil {
		return 0, err
	}
	v, ok := set.Attrs.Get(e.heap.Symbols.Intern(name.Str))
	if !ok {
		return 0, newError(value.Pos{}, "attribute '%s' missing", name.Str)
	}
	return v, nil
}

func isKind(k value.Kind) builtinFn {
	return func(e *Evaluator, args []value.Handle) (value.Handle, error) {
		n, err := e.force(args[0])
		if err != nil {
			return 0, err
		}
		return e.heap.NewBool(n.Kind == k, value.Pos{}), nil
	}
}

func builtinTypeOf(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.force(args[0])
	if err != nil {
		return 0, err
	}
	return e.heap.NewString(n.Kind.String(), value.Pos{}), nil
}

func builtinGenList(e *Evaluator, args []value.Handle) (value.Handle, error) {
	f := args[0]
	n, err := e.expect(args[1], value.KindInt, "an integer")
	if err != nil {
		return 0, err
	}
	if n.Int < 0 {
		return 0, newError(value.Pos{}, "cannot create list of size %d", n.Int)
	}
	// Each element costs an index node and a thunk.
	if err := e.heap.Reserve(n.Int, n.Pos); err != nil {
		return 0, err
	}
	if err := e.heap.Reserve(2*n.Int+1, n.Pos); err != nil {
		return 0, err
	}
	elems := make([]value.Handle, n.Int)
	for i := range elems {
		idx := e.heap.NewInt(int64(i), value.Pos{})
		elems[i] = e.heap.NewThunk(value.SuspensionFunc(func() (value.Handle, error) {
			return e.heap.Call(f, idx, value.Pos{})
		}), value.Pos{})
	}
	return e.heap.NewList(elems, value.Pos{}), nil
}

func builtinSeq(e *Evaluator, args []value.Handle) (value.Handle, error) {
	if _, err := e.force(args[0]); err != nil {
		return 0, err
	}
	return args[1], nil
}

func arithBuiltin(op string) builtinFn {
	return func(e *Evaluator, args []value.Handle) (value.Handle, error) {
		l, err := e.force(args[0])
		if err != nil {
			return 0, err
		}
		r, err := e.force(args[1])
		if err != nil {
			return 0, err
		}
		return e.arith(op, l, r, value.Pos{})
	}
}

func builtinLessThan(e *Evaluator, args []value.Handle) (value.Handle, error) {
	c, err := e.compare(args[0], args[1], value.Pos{})
	if err != nil {
		return 0, err
	}
	return e.heap.NewBool(c < 0, value.Pos{}), nil
}

func builtinConcatStringsSep(e *Evaluator, args []value.Handle) (value.Handle, error) {
	sep, err := e.expect(args[0], value.KindString, "a string")
	if err != nil {
		return 0, err
	}
	list, err := e.expect(args[1], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	parts := make([]string, len(list.List))
	for i, el := range list.List {
		n, err := e.force(el)
		if err != nil {
			return 0, err
		}
		if n.Kind != value.KindString && n.Kind != value.KindPath {
			return 0, newError(value.Pos{}, "cannot coerce %s to a string", typeDesc(n))
		}
		parts[i] = n.Str
	}
	return e.heap.NewString(strings.Join(parts, sep.Str), value.Pos{}), nil
}

func builtinListToAttrs(e *Evaluator, args []value.Handle) (value.Handle, error) {
	list, err := e.expect(args[0], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	syms := e.heap.Symbols
	nameSym, valueSym := syms.Intern("name"), syms.Intern("value")
	attrs := make([]value.Attr, 0, len(list.List))
	seen := make(map[value.Symbol]bool, len(list.List))
	for _, el := range list.List {
		entry, err := e.expect(el, value.KindAttrs, "a set")
		if err != nil {
			return 0, err
		}
		nameH, ok := entry.Attrs.Get(nameSym)
		if !ok {
			return 0, newError(entry.Pos, "attribute 'name' missing")
		}
		name, err := e.expect(nameH, value.KindString, "a string")
		if err != nil {
			return 0, err
		}
		v, ok := entry.Attrs.Get(valueSym)
		if !ok {
			return 0, newError(entry.Pos, "attribute 'value' missing")
		}
		sym := syms.Intern(name.Str)
		// The first occurrence of a name wins.
		if seen[sym] {
			continue
		}
		seen[sym] = true
		attrs = append(attrs, value.Attr{Name: sym, Value: v})
	}
	return e.heap.NewAttrs(syms.NewBindings(attrs), value.Pos{}), nil
}

func builtinRemoveAttrs(e *Evaluator, args []value.Handle) (value.Handle, error) {
	set, err := e.expect(args[0], value.KindAttrs, "a set")
	if err != nil {
		return 0, err
	}
	names, err := e.expect(args[1], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	drop := make(map[value.Symbol]bool, len(names.List))
	for _, el := range names.List {
		n, err := e.expect(el, value.KindString, "a string")
		if err != nil {
			return 0, err
		}
		drop[e.heap.Symbols.Intern(n.Str)] = true
	}
	kept := make([]value.Attr, 0, set.Attrs.Len())
	for _, a := range set.Attrs.Attrs() {
		if !drop[a.Name] {
			kept = append(kept, a)
		}
	}
	return e.heap.NewAttrs(e.heap.Symbols.NewBindings(kept), value.Pos{}), nil
}

func builtinFoldl(e *Evaluator, args []value.Handle) (value.Handle, error) {
	op, acc := args[0], args[1]
	list, err := e.expect(args[2], value.KindList, "a list")
	if err != nil {
		return 0, err
	}
	for _, el := range list.List {
		next, err := e.call2(op, acc, el)
		if err != nil {
			return 0, err
		}
		if acc, err = e.heap.Force(next); err != nil {
			return 0, err
		}
	}
	return acc, nil
}

func builtinTrace(e *Evaluator, args []value.Handle) (value.Handle, error) {
	n, err := e.force(args[0])
	if err != nil {
		return 0, err
	}
	msg := typeDesc(n)
	if n.Kind == value.KindString {
		msg = n.Str
	}
	e.Logger.Info("trace", "message", msg)
	return args[1], nil
}
