// Package value implements the lazy value graph: an arena of nodes addressed
// by Handle. Nodes may be shared and may form cycles; a thunk node is
// overwritten in place with its result the first time it is forced.
package value

import "math"

// Handle addresses a node in a Heap. The zero Handle is never a valid node.
type Handle uint32

const (
	// DefaultMaxDepth bounds nested forcing and calling.
	DefaultMaxDepth = 10000
	// DefaultMaxNodes bounds the number of nodes one heap may allocate.
	DefaultMaxNodes = 1 << 22
)

// Suspension is a deferred computation together with whatever environment it
// needs. Resume is called at most once per successful force.
type Suspension interface {
	Resume() (Handle, error)
}

// SuspensionFunc adapts a function to Suspension.
type SuspensionFunc func() (Handle, error)

func (f SuspensionFunc) Resume() (Handle, error) { return f() }

// Callable is the payload of a function node.
type Callable interface {
	Call(arg Handle) (Handle, error)
}

// CallableFunc adapts a function to Callable.
type CallableFunc func(arg Handle) (Handle, error)

func (f CallableFunc) Call(arg Handle) (Handle, error) { return f(arg) }

// Parameterized is implemented by functions that destructure an attribute
// set argument. Formals returns the declared names and whether extra
// attributes are accepted.
type Parameterized interface {
	Formals() ([]Symbol, bool)
}

// External is an opaque embedder-provided value.
type External interface {
	TypeName() string
	String() string
}

// Node is one slot of the heap. Which payload field is meaningful depends on
// Kind.
type Node struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Str   string // KindString and KindPath
	List  []Handle
	Attrs *Bindings
	Fn    Callable
	Susp  Suspension
	Ext   External
	Pos   Pos

	forcing bool

	// inherited marks a Pos taken from the thunk rather than the result.
	inherited bool
}

// Heap owns every node of one evaluation session.
type Heap struct {
	nodes    []Node
	Symbols  *SymbolTable
	MaxDepth int
	// MaxNodes caps allocation. Zero or less means only the Handle range.
	MaxNodes int

	depth int
}

func NewHeap() *Heap {
	return &Heap{
		nodes:    make([]Node, 1, 1024),
		Symbols:  NewSymbolTable(),
		MaxDepth: DefaultMaxDepth,
		MaxNodes: DefaultMaxNodes,
	}
}

func (h *Heap) limit() int {
	if h.MaxNodes <= 0 || h.MaxNodes > math.MaxInt32 {
		return math.MaxInt32
	}
	return h.MaxNodes
}

// Reserve reports an error when n more nodes would exceed the node budget.
// Builtins that allocate in proportion to an argument call it first.
func (h *Heap) Reserve(n int64, pos Pos) error {
	if n < 0 || n > int64(h.limit()-h.Len()) {
		return &Error{Message: msgHeapExhausted, Pos: pos}
	}
	return nil
}

// alloc panics with a heap exhaustion *Error past the budget. Force and Call
// turn that panic back into an ordinary error.
func (h *Heap) alloc(n Node) Handle {
	if h.Len() >= h.limit() {
		panic(&Error{Message: msgHeapExhausted, Pos: n.Pos})
	}
	h.nodes = append(h.nodes, n)
	return Handle(len(h.nodes) - 1)
}

// recoverExhausted converts a heap exhaustion panic into *err.
func recoverExhausted(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok && e.Message == msgHeapExhausted {
		*err = e
		return
	}
	panic(r)
}

func (h *Heap) NewInt(v int64, pos Pos) Handle {
	return h.alloc(Node{Kind: KindInt, Int: v, Pos: pos})
}

func (h *Heap) NewFloat(v float64, pos Pos) Handle {
	return h.alloc(Node{Kind: KindFloat, Float: v, Pos: pos})
}

func (h *Heap) NewBool(v bool, pos Pos) Handle {
	return h.alloc(Node{Kind: KindBool, Bool: v, Pos: pos})
}

func (h *Heap) NewString(s string, pos Pos) Handle {
	return h.alloc(Node{Kind: KindString, Str: s, Pos: pos})
}

func (h *Heap) NewPath(p string, pos Pos) Handle {
	return h.alloc(Node{Kind: KindPath, Str: p, Pos: pos})
}

func (h *Heap) NewNull(pos Pos) Handle {
	return h.alloc(Node{Kind: KindNull, Pos: pos})
}

func (h *Heap) NewList(elems []Handle, pos Pos) Handle {
	return h.alloc(Node{Kind: KindList, List: elems, Pos: pos})
}

func (h *Heap) NewAttrs(b *Bindings, pos Pos) Handle {
	return h.alloc(Node{Kind: KindAttrs, Attrs: b, Pos: pos})
}

// NewAttrsFrom interns names and builds an attribute set in one step.
func (h *Heap) NewAttrsFrom(attrs map[string]Handle, pos Pos) Handle {
	list := make([]Attr, 0, len(attrs))
	for name, v := range attrs {
		list = append(list, Attr{Name: h.Symbols.Intern(name), Value: v})
	}
	return h.NewAttrs(h.Symbols.NewBindings(list), pos)
}

func (h *Heap) NewFunction(fn Callable, pos Pos) Handle {
	return h.alloc(Node{Kind: KindFunction, Fn: fn, Pos: pos})
}

func (h *Heap) NewExternal(ext External, pos Pos) Handle {
	return h.alloc(Node{Kind: KindExternal, Ext: ext, Pos: pos})
}

func (h *Heap) NewThunk(s Suspension, pos Pos) Handle {
	return h.alloc(Node{Kind: KindThunk, Susp: s, Pos: pos})
}

// Node returns a copy of the node at v.
func (h *Heap) Node(v Handle) Node { return h.nodes[v] }

func (h *Heap) Kind(v Handle) Kind { return h.nodes[v].Kind }
func (h *Heap) Pos(v Handle) Pos   { return h.nodes[v].Pos }

// Valid reports whether v addresses an allocated node.
func (h *Heap) Valid(v Handle) bool { return v != 0 && int(v) < len(h.nodes) }

// Len returns the number of allocated nodes.
func (h *Heap) Len() int { return len(h.nodes) - 1 }

// Depth returns the current nesting of Force and Call.
func (h *Heap) Depth() int { return h.depth }

func (h *Heap) enter(pos Pos) error {
	if h.depth >= h.MaxDepth {
		return &Error{Message: msgStackOverflow, Pos: pos}
	}
	h.depth++
	return nil
}

func (h *Heap) leave() { h.depth-- }

// Force evaluates v to weak-head normal form and returns v. A thunk is
// overwritten with its result, so forcing again is a plain read. When
// evaluation fails the thunk is left unevaluated and a later Force retries
// it. Forcing a thunk from within its own evaluation fails with
// "infinite recursion encountered". The forced node takes the result's
// position when the result has its own; a position a result inherited from
// another thunk does not replace the thunk's.
func (h *Heap) Force(v Handle) (_ Handle, err error) {
	if h.nodes[v].Kind != KindThunk {
		return v, nil
	}
	if h.nodes[v].forcing {
		return v, &Error{Message: msgInfiniteRecursion, Pos: h.nodes[v].Pos}
	}
	if err := h.enter(h.nodes[v].Pos); err != nil {
		return v, err
	}
	h.nodes[v].forcing = true
	done := false
	defer func() {
		h.leave()
		if !done {
			h.nodes[v].forcing = false
		}
	}()
	defer recoverExhausted(&err)

	r, err := h.nodes[v].Susp.Resume()
	if err != nil {
		return v, err
	}
	if r, err = h.Force(r); err != nil {
		return v, err
	}

	// h.nodes may have grown during Resume; index, don't hold pointers.
	pos := h.nodes[v].Pos
	res := h.nodes[r]
	if (!res.Pos.Valid() || res.inherited) && pos.Valid() {
		res.Pos = pos
		res.inherited = true
	}
	h.nodes[v] = res
	done = true
	return v, nil
}

// Call forces fn and applies it to arg.
func (h *Heap) Call(fn, arg Handle, pos Pos) (_ Handle, err error) {
	defer recoverExhausted(&err)
	fn, err = h.Force(fn)
	if err != nil {
		return 0, err
	}
	n := h.nodes[fn]
	if n.Kind != KindFunction {
		return 0, Errorf(pos, "attempt to call something which is not a function but %s", describeKind(n))
	}
	if err := h.enter(pos); err != nil {
		return 0, err
	}
	defer h.leave()
	return n.Fn.Call(arg)
}

func describeKind(n Node) string {
	switch n.Kind {
	case KindInt:
		return "an integer"
	case KindExternal:
		return "an external value"
	}
	return "a " + n.Kind.String()
}
