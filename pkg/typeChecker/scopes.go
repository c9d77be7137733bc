package typeChecker

// scoper hands out scope ids and decides the lookup order
type scoper interface {
	enterFunction()
	exitFunction()
	enterLoop()
	exitLoop()
	enterBlock()
	exitBlock()
	current() int
	chain() []int
	inLoop() bool
}

type frame struct {
	id   int
	loop bool
}

// lexicalScopes keeps a stack of open regions. Every function, loop body
// and nested block gets a fresh id
type lexicalScopes struct {
	stack []frame
	next  int
	loops int
}

func newLexicalScopes() *lexicalScopes {
	return &lexicalScopes{stack: []frame{{id: 0}}, next: 1}
}

func (s *lexicalScopes) push(loop bool) {
	s.stack = append(s.stack, frame{id: s.next, loop: loop})
	s.next++
	if loop {
		s.loops++
	}
}

func (s *lexicalScopes) pop() {
	top := s.stack[len(s.stack)-1]
	if top.loop {
		s.loops--
	}
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *lexicalScopes) enterFunction() { s.push(false) }
func (s *lexicalScopes) exitFunction()  { s.pop() }
func (s *lexicalScopes) enterLoop()     { s.push(true) }
func (s *lexicalScopes) exitLoop()      { s.pop() }
func (s *lexicalScopes) enterBlock()    { s.push(false) }
func (s *lexicalScopes) exitBlock()     { s.pop() }
func (s *lexicalScopes) current() int   { return s.stack[len(s.stack)-1].id }
func (s *lexicalScopes) inLoop() bool   { return s.loops > 0 }

func (s *lexicalScopes) chain() []int {
	ids := make([]int, len(s.stack))
	for i := range s.stack {
		ids[i] = s.stack[len(s.stack)-1-i].id
	}
	return ids
}

// legacyScopes numbers functions with a counter that never goes down. A
// loop borrows counter+1 while it runs and leaves the local scope at 0
// afterwards, nested or not. Blocks open nothing
type legacyScopes struct {
	counter int
	local   int
}

func (s *legacyScopes) enterFunction() { s.counter++ }
func (s *legacyScopes) exitFunction()  {}
func (s *legacyScopes) enterLoop()     { s.local = s.counter + 1 }
func (s *legacyScopes) exitLoop()      { s.local = 0 }
func (s *legacyScopes) enterBlock()    {}
func (s *legacyScopes) exitBlock()     {}
func (s *legacyScopes) inLoop() bool   { return s.local > 0 }

func (s *legacyScopes) current() int {
	if s.local > 0 {
		return s.local
	}
	return s.counter
}

func (s *legacyScopes) chain() []int {
	var ids []int
	if s.local > 0 {
		ids = append(ids, s.local)
	}
	if s.counter > 0 {
		ids = append(ids, s.counter)
	}
	return append(ids, 0)
}
