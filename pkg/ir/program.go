package ir

import (
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Program is the generator's output: the text section followed by one
// CFG per function definition, in source order
type Program struct {
	Text  []*Instruction
	Funcs []*Func
}

// Code flattens the program into the stream handed to backends
func (p *Program) Code() []*Instruction {
	code := append([]*Instruction(nil), p.Text...)
	for _, f := range p.Funcs {
		code = append(code, f.Linearize()...)
	}
	return code
}

func (p *Program) FindFunc(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// WriteCode writes one instruction per line, with a blank line before
// every function definition
func WriteCode(w io.Writer, code []*Instruction) error {
	var sb strings.Builder
	for _, in := range code {
		if in.Op == OpDefine {
			sb.WriteString("\n")
		}
		sb.WriteString(in.String())
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// Fingerprint hashes the textual form of a stream. Equal streams always
// produce equal fingerprints
func Fingerprint(code []*Instruction) uint64 {
	h := xxhash.New()
	for _, in := range code {
		h.WriteString(in.String())
		h.WriteString("\n")
	}
	return h.Sum64()
}
