package value

// Symbol is an interned identifier. Two symbols are equal exactly when they
// name the same string in the same table.
type Symbol uint32

// SymbolTable interns attribute and variable names.
type SymbolTable struct {
	names []string
	ids   map[string]Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{ids: make(map[string]Symbol)}
}

// Intern returns the symbol for name, creating it on first use.
func (t *SymbolTable) Intern(name string) Symbol {
	if s, ok := t.ids[name]; ok {
		return s
	}
	s := Symbol(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = s
	return s
}

// Lookup returns the symbol for name without interning it. A name that was
// never interned cannot be a key of any attribute set.
func (t *SymbolTable) Lookup(name string) (Symbol, bool) {
	s, ok := t.ids[name]
	return s, ok
}

func (t *SymbolTable) Name(s Symbol) string {
	if int(s) < len(t.names) {
		return t.names[s]
	}
	return ""
}

func (t *SymbolTable) Len() int { return len(t.names) }
