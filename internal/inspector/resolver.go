package inspector

import (
	"github.com/bluskript/nix-inspect/internal/value"
)

// Resolver walks attribute paths through the value graph. Only nodes on the
// requested path are forced.
type Resolver struct {
	heap   *value.Heap
	forcer *Forcer

	// Applier, when set, instantiates functions met in the middle of a path
	// so that `pkgs.hello` works when pkgs is a function of defaults.
	Applier *AutoApplier
}

func NewResolver(heap *value.Heap, forcer *Forcer) *Resolver {
	return &Resolver{heap: heap, forcer: forcer}
}

// Resolve returns the forced value at path below root together with its
// position. A non-empty path is required.
func (r *Resolver) Resolve(root value.Handle, path AttrPath) (value.Handle, value.Pos, error) {
	if len(path) == 0 {
		return 0, value.Pos{}, &Error{Kind: EmptyPath, Segment: -1}
	}

	cur := root
	for i, seg := range path {
		next, err := r.step(cur, path[:i], i, seg)
		if err != nil {
			return 0, value.Pos{}, err
		}
		cur = next
	}

	leaf, err := r.forcer.Force(cur)
	if err != nil {
		return 0, value.Pos{}, annotate(err, path, len(path)-1)
	}
	return leaf, r.heap.Pos(leaf), nil
}

// step descends from cur by one segment.
func (r *Resolver) step(cur value.Handle, walked AttrPath, i int, seg string) (value.Handle, error) {
	cur, err := r.forcer.Force(cur)
	if err != nil {
		return 0, annotate(err, walked, i)
	}
	if r.Applier != nil && r.heap.Kind(cur) == value.KindFunction {
		if cur, err = r.Applier.Apply(cur); err != nil {
			return 0, annotate(err, walked, i)
		}
	}

	n := r.heap.Node(cur)
	switch n.Kind {
	case value.KindAttrs:
		sym, ok := r.heap.Symbols.Lookup(seg)
		if ok {
			if child, ok := n.Attrs.Get(sym); ok {
				return child, nil
			}
		}
	case value.KindList:
		if idx, ok := listIndex(seg); ok {
			if idx < len(n.List) {
				return n.List[idx], nil
			}
		} else {
			return 0, &Error{Kind: NotAnAttrSet, Path: walked.String(), Segment: i, Found: n.Kind, Pos: n.Pos}
		}
	default:
		return 0, &Error{Kind: NotAnAttrSet, Path: walked.String(), Segment: i, Found: n.Kind, Pos: n.Pos}
	}
	return 0, &Error{Kind: MissingAttribute, Path: walked.String(), Segment: i, Symbol: seg, Pos: n.Pos}
}

// annotate records where along the path an engine failure happened.
func annotate(err error, walked AttrPath, i int) error {
	ie, ok := err.(*Error)
	if !ok {
		return err
	}
	if ie.Segment < 0 {
		ie.Segment = i
		ie.Path = walked.String()
	}
	return ie
}
