package codegen_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/ucc/pkg/codegen"
	"github.com/xplshn/ucc/pkg/config"
	"github.com/xplshn/ucc/pkg/ir"
	"github.com/xplshn/ucc/pkg/parser"
	"github.com/xplshn/ucc/pkg/testcase"
	"github.com/xplshn/ucc/pkg/typeChecker"
)

func TestMarkdownCases(t *testing.T) {
	files, err := filepath.Glob("../../testdata/*.md")
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".md"), func(t *testing.T) {
			cases, err := testcase.Load(file)
			be.Err(t, err, nil)
			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) {
					out, err := testcase.Run(tc)
					be.Err(t, err, nil)
					for _, failure := range tc.Verify(out) {
						t.Error(failure)
					}
					if out.Program != nil {
						for _, fn := range out.Program.Funcs {
							be.Err(t, fn.Verify(), nil)
						}
					}
				})
			}
		})
	}
}

const loops = `
(Program
  (GlobalDecl (Decl limit (VarDecl int) (Constant int 10)))
  (FuncDef (Decl main (FuncDecl (VarDecl int))) (Compound
    (Decl total (VarDecl int) (Constant int 0))
    (For (DeclList (Decl i (VarDecl int) (Constant int 0))) _ (UnaryOp ++ (ID i))
      (Compound
        (While (BinaryOp < (ID total) (ID limit)) (Compound
          (Assignment += (ID total) (ID i))
          (If (BinaryOp > (ID total) (Constant int 5)) (Break) (Print (ID total)))))
        (If (BinaryOp >= (ID i) (Constant int 3)) (Break))))
    (Assert (BinaryOp == (ID total) (ID limit)))
    (Return (ID total)))))
`

func generate(t *testing.T, cfg *config.Config, src string) *ir.Program {
	t.Helper()
	root, err := parser.ParseString(src, 0)
	be.Err(t, err, nil)
	info, err := typeChecker.NewTypeChecker(cfg).Check(root)
	be.Err(t, err, nil)
	prog, err := codegen.NewContext(cfg, info).GenerateIR(root)
	be.Err(t, err, nil)
	return prog
}

func TestCFGWellFormed(t *testing.T) {
	prog := generate(t, config.NewConfig(), loops)
	fn := prog.FindFunc("main")
	be.Err(t, fn.Verify(), nil)

	chain := fn.Chain()
	be.Equal(t, chain[0], fn.Entry)
	be.Equal(t, chain[len(chain)-1], fn.Exit)

	labels := map[string]bool{}
	for _, b := range chain {
		be.True(t, !labels[b.Label])
		labels[b.Label] = true
	}
	for _, want := range []string{"for.cond", "for.body", "for.inc", "for.end", "while.cond", "while.end", "if", "if.1", "if.end.1", "else", "assert.false"} {
		be.True(t, labels[want])
	}

	// for(;;) gets a constant condition
	cond := chain[0]
	for _, b := range chain {
		if b.Label == "for.cond" {
			cond = b
		}
	}
	be.Equal(t, cond.Instructions[1].Opcode(), "literal_bool")
	be.Equal(t, len(cond.Preds), 2)
}

func TestBreakTargetsInnermostLoop(t *testing.T) {
	prog := generate(t, config.NewConfig(), loops)
	for _, b := range prog.FindFunc("main").Chain() {
		switch b.Label {
		case "if.then":
			be.Equal(t, b.Branch.Label, "while.end")
		case "if.then.1":
			be.Equal(t, b.Branch.Label, "for.end")
		}
	}
}

func TestLinearizationIsDeterministic(t *testing.T) {
	cfg := config.NewConfig()
	prog := generate(t, cfg, loops)
	first := ir.Fingerprint(prog.Code())
	be.Equal(t, ir.Fingerprint(prog.Code()), first)
	be.Equal(t, ir.Fingerprint(generate(t, cfg, loops).Code()), first)
}

func TestShadowedLocalsGetDistinctSlots(t *testing.T) {
	prog := generate(t, config.NewConfig(), `
(Program (FuncDef (Decl main (FuncDecl (VarDecl void))) (Compound
  (Decl x (VarDecl int) (Constant int 1))
  (Compound (Decl x (VarDecl float) (Constant float 2.5)) (Print (ID x)))
  (Print (ID x)))))`)
	var buf strings.Builder
	be.Err(t, ir.WriteCode(&buf, prog.Code()), nil)
	out := buf.String()
	be.True(t, strings.Contains(out, "alloc_float %x.1"))
	be.True(t, strings.Contains(out, "load_float %x.1"))
	be.True(t, strings.Contains(out, "load_int %x\n"))
}

func TestGenerateWithoutInfo(t *testing.T) {
	root, err := parser.ParseString(`(Program)`, 0)
	be.Err(t, err, nil)
	_, err = codegen.NewContext(config.NewConfig(), nil).GenerateIR(root)
	be.Err(t, err, "run the type checker first")
}

func TestBackends(t *testing.T) {
	cfg := config.NewConfig()
	prog := generate(t, cfg, loops)

	_, err := codegen.SelectBackend("qbe")
	be.Err(t, err, "unsupported backend 'qbe'")
	be.Equal(t, codegen.BackendNames(), []string{"dot", "ir"})

	dot, err := codegen.SelectBackend("dot")
	be.Err(t, err, nil)
	buf, err := dot.Generate(prog, cfg)
	be.Err(t, err, nil)
	graph := buf.String()
	be.True(t, strings.HasPrefix(graph, `digraph "main" {`))
	be.True(t, strings.Contains(graph, `"for.cond" -> "for.body" [label="T"];`))
	be.True(t, strings.Contains(graph, `"for.cond" -> "for.end" [label="F"];`))

	cfg.SetFeature(config.FeatCFGComments, true)
	irb, err := codegen.SelectBackend("ir")
	be.Err(t, err, nil)
	buf, err = irb.Generate(prog, cfg)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(buf.String(), "for.end:\n  ; preds: %for.cond"))
}

func dump(t *testing.T, prog *ir.Program) string {
	t.Helper()
	var buf strings.Builder
	be.Err(t, ir.WriteCode(&buf, prog.Code()), nil)
	return buf.String()
}

func TestLocalsNeverShareLabelNames(t *testing.T) {
	prog := generate(t, config.NewConfig(), `
(Program (FuncDef (Decl main (FuncDecl (VarDecl void))) (Compound
  (Decl exit (VarDecl int) (Constant int 1))
  (Decl unreachable (VarDecl int) (Constant int 2))
  (Decl if (VarDecl int) (Constant int 3))
  (If (BinaryOp == (ID if) (ID exit)) (Return))
  (Return)
  (Print (ID unreachable)))))`)
	out := dump(t, prog)
	be.True(t, strings.Contains(out, "alloc_int %exit.1\n"))
	be.True(t, !strings.Contains(out, "alloc_int %exit\n"))
	be.True(t, strings.Contains(out, "alloc_int %unreachable\n"))
	be.True(t, strings.Contains(out, "alloc_int %if\n"))
	be.True(t, strings.Contains(out, "load_int %unreachable\n"))

	fn := prog.FindFunc("main")
	be.Err(t, fn.Verify(), nil)
	labels := map[string]bool{}
	for _, b := range fn.Chain() {
		labels[b.Label] = true
	}
	be.True(t, labels["if.1"] && labels["if.then.1"] && labels["unreachable.1"])
	be.True(t, !labels["if"] && !labels["unreachable"])
}

func TestArrayComparisonUsesPointerShape(t *testing.T) {
	prog := generate(t, config.NewConfig(), `
(Program (FuncDef (Decl main (FuncDecl (VarDecl void))) (Compound
  (Decl p (ArrayDecl (VarDecl int) (Constant int 2)))
  (Decl q (ArrayDecl (VarDecl int) (Constant int 2)))
  (Print (BinaryOp != (ID p) (ID q))))))`)
	out := dump(t, prog)
	be.True(t, strings.Contains(out, "  %1 = ne_int_* %p %q\n"))
	be.True(t, strings.Contains(out, "  print_bool %1\n"))
}

func TestCastsEmitTypedConversions(t *testing.T) {
	tests := []struct {
		from, to string
		value    string
		want     string
	}{
		{"int", "float", "3", "sitofp_float"},
		{"int", "char", "65", "trunc_char"},
		{"char", "int", "'a'", "sext_int"},
		{"char", "float", "'a'", "sitofp_float"},
		{"float", "int", "2.5", "fptosi_int"},
		{"float", "char", "2.5", "fptosi_char"},
		{"bool", "char", "true", "zext_char"},
		{"bool", "float", "true", "sitofp_float"},
		{"int", "bool", "3", "ne_int"},
		{"float", "bool", "2.5", "ne_float"},
	}
	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			src := "(Program (FuncDef (Decl main (FuncDecl (VarDecl void))) (Compound " +
				"(Decl v (VarDecl " + tt.from + ") (Constant " + tt.from + " " + tt.value + ")) " +
				"(Print (Cast " + tt.to + " (ID v))))))"
			prog := generate(t, config.NewConfig(), src)
			code := prog.Code()
			var conv, printed *ir.Instruction
			for i, in := range code {
				if in.Op == ir.OpPrint {
					printed, conv = in, code[i-1]
				}
			}
			be.Equal(t, conv.Opcode(), tt.want)
			be.Equal(t, printed.Opcode(), "print_"+tt.to)
			be.Equal(t, printed.Args[0], conv.Result)
		})
	}

	prog := generate(t, config.NewConfig(), `
(Program (FuncDef (Decl main (FuncDecl (VarDecl void))) (Compound
  (Decl v (VarDecl int) (Constant int 3))
  (Print (Cast int (ID v))))))`)
	be.True(t, strings.Contains(dump(t, prog), "  %2 = load_int %v\n  print_int %2\n"))
}
