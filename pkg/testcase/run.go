package testcase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/ucc/pkg/codegen"
	"github.com/xplshn/ucc/pkg/config"
	"github.com/xplshn/ucc/pkg/ir"
	"github.com/xplshn/ucc/pkg/parser"
	"github.com/xplshn/ucc/pkg/typeChecker"
)

// Outcome is what compiling a case produced. Error is set instead of IR
// when the type checker rejected the tree
type Outcome struct {
	IR       string
	Error    string
	Warnings []string
	Program  *ir.Program
}

// FormatDiagnostic renders a semantic error the way error fences spell it:
// "E14 3:5: List & variable have different sizes"
func FormatDiagnostic(d *typeChecker.Diagnostic) string {
	return fmt.Sprintf("%s %d:%d: %s", d.Code, d.Tok.Line, d.Tok.Column, d.Msg)
}

// Run compiles the case input with the flags of the case. The returned
// error is reserved for broken cases (unreadable tree, unknown flag)
func Run(tc TestCase) (*Outcome, error) {
	cfg := config.NewConfig()
	if err := cfg.ProcessFlagString(tc.Flags); err != nil {
		return nil, fmt.Errorf("test '%s': %w", tc.Name, err)
	}
	root, err := parser.ParseString(tc.Input, 0)
	if err != nil {
		return nil, fmt.Errorf("test '%s': %w", tc.Name, err)
	}

	out := &Outcome{}
	checker := typeChecker.NewTypeChecker(cfg)
	info, err := checker.Check(root)
	for _, w := range checker.Warnings() {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%s %d:%d: %s", cfg.Warnings[w.Kind].Name, w.Tok.Line, w.Tok.Column, w.Msg))
	}
	if err != nil {
		var diag *typeChecker.Diagnostic
		if !errors.As(err, &diag) {
			return nil, err
		}
		out.Error = FormatDiagnostic(diag)
		return out, nil
	}

	prog, err := codegen.NewContext(cfg, info).GenerateIR(root)
	if err != nil {
		return nil, err
	}
	backend, err := codegen.SelectBackend("ir")
	if err != nil {
		return nil, err
	}
	buf, err := backend.Generate(prog, cfg)
	if err != nil {
		return nil, err
	}
	out.IR = strings.TrimSpace(buf.String())
	out.Program = prog
	return out, nil
}

// Verify compares an outcome against every assertion of the case and
// returns one message per mismatch
func (tc TestCase) Verify(out *Outcome) []string {
	var failures []string
	for _, a := range tc.Assertions {
		var diff string
		switch a.Type {
		case AssertIR:
			if out.Error != "" {
				diff = "unexpected error: " + out.Error
				break
			}
			diff = cmp.Diff(splitLines(a.Content), splitLines(out.IR))
		case AssertError:
			diff = cmp.Diff(strings.TrimSpace(a.Content), out.Error)
		case AssertWarnings:
			diff = cmp.Diff(splitLines(a.Content), out.Warnings)
		}
		if diff != "" {
			failures = append(failures, fmt.Sprintf("%s assertion at line %d (-want +got):\n%s", a.Type, a.Line, diff))
		}
	}
	return failures
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line = strings.TrimRight(line, " \t"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
