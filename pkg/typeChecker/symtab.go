package typeChecker

import (
	"github.com/xplshn/ucc/pkg/ast"
	"github.com/xplshn/ucc/pkg/types"
)

// Symbol is one declared name. Node is the Decl that introduced it
type Symbol struct {
	Name   string
	Type   types.Type
	Scope  int
	Global bool
	Node   *ast.Node

	// Functions only
	ParamNames []string
	Defined    bool
}

type scopeKey struct {
	name  string
	scope int
}

// SymbolTable maps (name, scope id) pairs to symbols. Scope ids are handed
// out by the checker; the table only stores and looks up
type SymbolTable struct {
	entries map[scopeKey]*Symbol
	order   []*Symbol
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{entries: make(map[scopeKey]*Symbol)}
}

// Declare adds sym under (sym.Name, sym.Scope). It returns the symbol
// already occupying that slot and false when there is one
func (st *SymbolTable) Declare(sym *Symbol) (*Symbol, bool) {
	key := scopeKey{sym.Name, sym.Scope}
	if existing, ok := st.entries[key]; ok {
		return existing, false
	}
	st.entries[key] = sym
	st.order = append(st.order, sym)
	return sym, true
}

func (st *SymbolTable) Lookup(name string, scope int) *Symbol {
	return st.entries[scopeKey{name, scope}]
}

// Resolve tries each scope of chain in turn, first hit wins
func (st *SymbolTable) Resolve(name string, chain []int) *Symbol {
	for _, scope := range chain {
		if sym := st.Lookup(name, scope); sym != nil {
			return sym
		}
	}
	return nil
}

// Symbols lists every symbol in declaration order
func (st *SymbolTable) Symbols() []*Symbol { return st.order }
