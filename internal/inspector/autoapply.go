package inspector

import (
	"github.com/bluskript/nix-inspect/internal/value"
)

// AutoApplier calls functions with the session's default arguments.
type AutoApplier struct {
	heap     *value.Heap
	forcer   *Forcer
	defaults value.Handle
}

// NewAutoApplier binds the defaults record. A zero defaults handle means an
// empty record.
func NewAutoApplier(heap *value.Heap, forcer *Forcer, defaults value.Handle) *AutoApplier {
	if defaults == 0 {
		defaults = heap.NewAttrs(nil, value.Pos{})
	}
	return &AutoApplier{heap: heap, forcer: forcer, defaults: defaults}
}

// Defaults returns the record passed to every call.
func (a *AutoApplier) Defaults() value.Handle { return a.defaults }

// Apply forces v and, if it is a function, calls it with the defaults and
// returns the forced result. Any other value is returned as is.
//
// A function that destructures its argument without `...` only receives the
// defaults it declares, so unrelated session arguments never trip the
// "unexpected argument" check.
func (a *AutoApplier) Apply(v value.Handle) (value.Handle, error) {
	v, err := a.forcer.Force(v)
	if err != nil {
		return 0, err
	}
	n := a.heap.Node(v)
	if n.Kind != value.KindFunction {
		return v, nil
	}

	arg := a.defaults
	if p, ok := n.Fn.(value.Parameterized); ok {
		if arg, err = a.restrict(p); err != nil {
			return 0, err
		}
	}

	res, err := a.forcer.call(v, arg)
	if err != nil {
		return 0, err
	}
	return a.forcer.Force(res)
}

func (a *AutoApplier) restrict(p value.Parameterized) (value.Handle, error) {
	names, ellipsis := p.Formals()
	if ellipsis {
		return a.defaults, nil
	}
	defaults, err := a.forcer.Force(a.defaults)
	if err != nil {
		return 0, err
	}
	all := a.heap.Node(defaults).Attrs
	if all.Len() == 0 {
		return defaults, nil
	}
	attrs := make([]value.Attr, 0, len(names))
	for _, name := range names {
		if v, ok := all.Get(name); ok {
			attrs = append(attrs, value.Attr{Name: name, Value: v})
		}
	}
	return a.heap.NewAttrs(a.heap.Symbols.NewBindings(attrs), a.heap.Pos(defaults)), nil
}
