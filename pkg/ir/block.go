package ir

import "fmt"

// Block is a basic block. Next fixes the emission order only; control
// successors are Branch for plain blocks and Taken/FallThrough for
// conditional ones
type Block struct {
	ID           int
	Label        string
	Cond         bool
	Instructions []*Instruction
	Next         *Block
	Preds        []*Block
	Branch       *Block
	Taken        *Block
	FallThrough  *Block
}

func (b *Block) Append(in *Instruction) { b.Instructions = append(b.Instructions, in) }

// Terminated reports whether the block already ends in a control transfer
func (b *Block) Terminated() bool {
	n := len(b.Instructions)
	return n > 0 && b.Instructions[n-1].Op.IsTerminator()
}

// Successors lists the control successors, taken edge first
func (b *Block) Successors() []*Block {
	var succ []*Block
	for _, s := range []*Block{b.Taken, b.FallThrough, b.Branch} {
		if s != nil {
			succ = append(succ, s)
		}
	}
	return succ
}

func (b *Block) addPred(p *Block) {
	for _, q := range b.Preds {
		if q == p {
			return
		}
	}
	b.Preds = append(b.Preds, p)
}

// Link records an unconditional edge from -> to
func Link(from, to *Block) {
	from.Branch = to
	to.addPred(from)
}

// LinkCond records both edges of a conditional block
func LinkCond(from, taken, fallThrough *Block) {
	from.Taken, from.FallThrough = taken, fallThrough
	taken.addPred(from)
	fallThrough.addPred(from)
}

// Func owns the blocks of one function. Blocks is the arena in creation
// order; Entry starts the Next chain
type Func struct {
	Name   string
	Blocks []*Block
	Entry  *Block
	Exit   *Block
}

func NewFunc(name string) *Func { return &Func{Name: name} }

// NewBlock allocates a block in the arena without placing it in the chain
func (f *Func) NewBlock(label string, cond bool) *Block {
	b := &Block{ID: len(f.Blocks), Label: label, Cond: cond}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Chain returns the blocks in emission order
func (f *Func) Chain() []*Block {
	var blocks []*Block
	for b := f.Entry; b != nil; b = b.Next {
		blocks = append(blocks, b)
	}
	return blocks
}

// Linearize concatenates the instruction lists of the chain, unchanged
func (f *Func) Linearize() []*Instruction {
	var code []*Instruction
	for _, b := range f.Chain() {
		code = append(code, b.Instructions...)
	}
	return code
}

// Verify checks that every block but the last one in the chain ends in a
// control transfer and that predecessor lists mirror the successor edges
func (f *Func) Verify() error {
	chain := f.Chain()
	for i, b := range chain {
		if i < len(chain)-1 && !b.Terminated() {
			return fmt.Errorf("%s: block %%%s does not end in a control transfer", f.Name, b.Label)
		}
		if b.Cond && (b.Taken == nil || b.FallThrough == nil) {
			return fmt.Errorf("%s: conditional block %%%s is missing a successor", f.Name, b.Label)
		}
		for _, s := range b.Successors() {
			if !contains(s.Preds, b) {
				return fmt.Errorf("%s: %%%s -> %%%s is not mirrored in the predecessors", f.Name, b.Label, s.Label)
			}
		}
		for _, p := range b.Preds {
			if !contains(p.Successors(), b) {
				return fmt.Errorf("%s: %%%s lists %%%s as predecessor without an edge", f.Name, b.Label, p.Label)
			}
		}
	}
	return nil
}

func contains(blocks []*Block, b *Block) bool {
	for _, x := range blocks {
		if x == b {
			return true
		}
	}
	return false
}
