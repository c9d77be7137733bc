package codegen

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xplshn/ucc/pkg/config"
	"github.com/xplshn/ucc/pkg/ir"
)

// Backend is the interface that all output backends must implement.
type Backend interface {
	// Generate takes an IR program and a configuration, and renders it
	// into a byte buffer.
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
}

var backends = map[string]func() Backend{
	"ir":  NewIRBackend,
	"dot": NewDotBackend,
}

// SelectBackend returns the backend registered under name
func SelectBackend(name string) (Backend, error) {
	newBackend, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unsupported backend '%s' (available: %s)", name, strings.Join(BackendNames(), ", "))
	}
	return newBackend(), nil
}

func BackendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type irBackend struct{}

func NewIRBackend() Backend { return irBackend{} }

// Generate dumps the linearized stream. With cfg-comments each block label
// is followed by its predecessors and successors
func (irBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if !cfg.IsFeatureEnabled(config.FeatCFGComments) {
		if err := ir.WriteCode(&buf, prog.Code()); err != nil {
			return nil, err
		}
		return &buf, nil
	}

	if err := ir.WriteCode(&buf, prog.Text); err != nil {
		return nil, err
	}
	for _, fn := range prog.Funcs {
		for _, b := range fn.Chain() {
			for _, in := range b.Instructions {
				if in.Op == ir.OpDefine {
					buf.WriteString("\n")
				}
				buf.WriteString(in.String() + "\n")
				if in.Op == ir.OpLabel {
					buf.WriteString(blockComment(b))
				}
			}
		}
	}
	return &buf, nil
}

func blockLabels(blocks []*ir.Block) string {
	if len(blocks) == 0 {
		return "-"
	}
	labels := make([]string, len(blocks))
	for i, b := range blocks {
		labels[i] = "%" + b.Label
	}
	return strings.Join(labels, " ")
}

func blockComment(b *ir.Block) string {
	return fmt.Sprintf("  ; preds: %s  succs: %s\n", blockLabels(b.Preds), blockLabels(b.Successors()))
}

type dotBackend struct{}

func NewDotBackend() Backend { return dotBackend{} }

// Generate writes one Graphviz digraph per function
func (dotBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	for _, fn := range prog.Funcs {
		fmt.Fprintf(&buf, "digraph %q {\n", fn.Name)
		buf.WriteString("  node [shape=record, fontname=\"monospace\"];\n")
		for _, b := range fn.Chain() {
			lines := make([]string, 0, len(b.Instructions))
			for _, in := range b.Instructions {
				if in.Op == ir.OpLabel {
					continue
				}
				lines = append(lines, dotEscape(strings.TrimSpace(in.String())))
			}
			fmt.Fprintf(&buf, "  %q [label=\"{%s:|%s\\l}\"];\n", b.Label, dotEscape(b.Label), strings.Join(lines, "\\l"))
		}
		for _, b := range fn.Chain() {
			switch {
			case b.Cond:
				fmt.Fprintf(&buf, "  %q -> %q [label=\"T\"];\n", b.Label, b.Taken.Label)
				fmt.Fprintf(&buf, "  %q -> %q [label=\"F\"];\n", b.Label, b.FallThrough.Label)
			case b.Branch != nil:
				fmt.Fprintf(&buf, "  %q -> %q;\n", b.Label, b.Branch.Label)
			}
		}
		buf.WriteString("}\n")
	}
	return &buf, nil
}

var dotReplacer = strings.NewReplacer(
	`\`, `\\`, `"`, `\"`, `{`, `\{`, `}`, `\}`, `<`, `\<`, `>`, `\>`, `|`, `\|`,
)

func dotEscape(s string) string { return dotReplacer.Replace(s) }
