package typeChecker

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/ucc/pkg/types"
)

func TestSymbolTable(t *testing.T) {
	st := NewSymbolTable()
	global := &Symbol{Name: "x", Type: types.Int, Scope: 0, Global: true}
	local := &Symbol{Name: "x", Type: types.Float, Scope: 2}

	_, ok := st.Declare(global)
	be.True(t, ok)
	_, ok = st.Declare(local)
	be.True(t, ok)

	existing, ok := st.Declare(&Symbol{Name: "x", Type: types.Char, Scope: 2})
	be.True(t, !ok)
	be.Equal(t, existing, local)

	be.Equal(t, st.Resolve("x", []int{2, 1, 0}), local)
	be.Equal(t, st.Resolve("x", []int{1, 0}), global)
	be.Equal(t, st.Resolve("y", []int{2, 1, 0}), (*Symbol)(nil))
	be.Equal(t, st.Symbols(), []*Symbol{global, local})
}

func TestLexicalScopes(t *testing.T) {
	s := newLexicalScopes()
	be.Equal(t, s.chain(), []int{0})

	s.enterFunction()
	fn := s.current()
	s.enterLoop()
	be.True(t, s.inLoop())
	s.enterBlock()
	be.True(t, s.inLoop())
	be.Equal(t, len(s.chain()), 4)
	s.exitBlock()
	s.exitLoop()
	be.True(t, !s.inLoop())
	be.Equal(t, s.current(), fn)
	s.exitFunction()

	s.enterFunction()
	be.True(t, s.current() != fn)
	be.Equal(t, s.chain()[1:], []int{0})
}

func TestLegacyScopeNumbering(t *testing.T) {
	s := &legacyScopes{}
	be.Equal(t, s.chain(), []int{0})

	s.enterFunction()
	be.Equal(t, s.current(), 1)
	s.enterLoop()
	be.Equal(t, s.current(), 2)
	be.Equal(t, s.chain(), []int{2, 1, 0})
	s.exitLoop()
	be.Equal(t, s.current(), 1)
	s.exitFunction()

	s.enterFunction()
	be.Equal(t, s.current(), 2)
	be.Equal(t, s.chain(), []int{2, 0})
}
