package inspector

import (
	"strconv"

	"github.com/bluskript/nix-inspect/internal/value"
)

// Child steps one level below an already resolved container and forces the
// result. Lists accept decimal indices as keys.
func (r *Resolver) Child(parent value.Handle, key string) (value.Handle, error) {
	n := r.heap.Node(parent)
	var (
		child value.Handle
		found bool
	)
	switch n.Kind {
	case value.KindAttrs:
		if sym, ok := r.heap.Symbols.Lookup(key); ok {
			child, found = n.Attrs.Get(sym)
		}
	case value.KindList:
		if idx, ok := listIndex(key); ok && idx < len(n.List) {
			child, found = n.List[idx], true
		}
	default:
		return 0, &Error{Kind: NotAnAttrSet, Segment: 0, Found: n.Kind, Pos: n.Pos}
	}
	if !found {
		return 0, &Error{Kind: MissingAttribute, Segment: 0, Symbol: key, Pos: n.Pos}
	}
	return r.forcer.Force(child)
}

// Keys lists the child keys of a forced container: attribute names in
// order, or indices for a list. Other values have none.
func (r *Resolver) Keys(v value.Handle) []string {
	n := r.heap.Node(v)
	switch n.Kind {
	case value.KindAttrs:
		return n.Attrs.Keys()
	case value.KindList:
		keys := make([]string, len(n.List))
		for i := range n.List {
			keys[i] = strconv.Itoa(i)
		}
		return keys
	}
	return nil
}
