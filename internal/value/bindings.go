package value

import "sort"

// Attr is one entry of an attribute set.
type Attr struct {
	Name  Symbol
	Value Handle
}

// Bindings is the immutable contents of an attribute set, kept sorted by
// key text.
type Bindings struct {
	attrs []Attr
	keys  []string
	index map[Symbol]int
}

// NewBindings builds a set from attrs. When a symbol appears more than once
// the last entry wins.
func (t *SymbolTable) NewBindings(attrs []Attr) *Bindings {
	last := make(map[Symbol]int, len(attrs))
	for i, a := range attrs {
		last[a.Name] = i
	}
	b := &Bindings{
		attrs: make([]Attr, 0, len(last)),
		keys:  make([]string, 0, len(last)),
		index: make(map[Symbol]int, len(last)),
	}
	for i, a := range attrs {
		if last[a.Name] == i {
			b.attrs = append(b.attrs, a)
		}
	}
	sort.Slice(b.attrs, func(i, j int) bool {
		return t.Name(b.attrs[i].Name) < t.Name(b.attrs[j].Name)
	})
	for i, a := range b.attrs {
		b.keys = append(b.keys, t.Name(a.Name))
		b.index[a.Name] = i
	}
	return b
}

func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	return len(b.attrs)
}

// Get looks a symbol up by identity.
func (b *Bindings) Get(s Symbol) (Handle, bool) {
	if b == nil {
		return 0, false
	}
	i, ok := b.index[s]
	if !ok {
		return 0, false
	}
	return b.attrs[i].Value, true
}

// Attrs returns the entries in key order. The slice must not be modified.
func (b *Bindings) Attrs() []Attr {
	if b == nil {
		return nil
	}
	return b.attrs
}

// Keys returns the key names in sorted order. The slice must not be modified.
func (b *Bindings) Keys() []string {
	if b == nil {
		return nil
	}
	return b.keys
}
