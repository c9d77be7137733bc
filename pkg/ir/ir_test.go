package ir

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/ucc/pkg/types"
)

func TestInstructionString(t *testing.T) {
	tests := []struct {
		name string
		in   *Instruction
		want string
	}{
		{"label", &Instruction{Op: OpLabel, Args: []Value{Label("for.cond.1")}}, "for.cond.1:"},
		{"define", &Instruction{Op: OpDefine, Typ: types.Int, Args: []Value{
			Global("f"), Param{Typ: types.Int, Temp: 1}, Param{Typ: types.Float, Ptr: true, Temp: 2},
		}}, "define_int @f (int %1, float* %2)"},
		{"define without params", &Instruction{Op: OpDefine, Typ: types.Void, Args: []Value{Global("main")}}, "define_void @main ()"},
		{"global array", &Instruction{Op: OpGlobal, Typ: types.Int, Dims: []int{2, 3}, Result: Global("m"),
			Args: []Value{ListConst{ListConst{IntConst(1), IntConst(2), IntConst(3)}, ListConst{IntConst(4), IntConst(5), IntConst(6)}}},
		}, "@m = global_int_2_3 [[1, 2, 3], [4, 5, 6]]"},
		{"global without init", &Instruction{Op: OpGlobal, Typ: types.Float, Result: Global("x")}, "@x = global_float"},
		{"string text", &Instruction{Op: OpGlobal, Typ: types.String, Result: Global(".str.0"), Args: []Value{StringConst("a\tb")}}, `@.str.0 = global_string "a\tb"`},
		{"literal float", &Instruction{Op: OpLiteral, Typ: types.Float, Result: Temp(3), Args: []Value{FloatConst(2)}}, "  %3 = literal_float 2.0"},
		{"literal char", &Instruction{Op: OpLiteral, Typ: types.Char, Result: Temp(1), Args: []Value{CharConst('\n')}}, `  %1 = literal_char '\n'`},
		{"pointer load", &Instruction{Op: OpLoad, Typ: types.Char, Ptr: true, Result: Temp(7), Args: []Value{Temp(6)}}, "  %7 = load_char_* %6"},
		{"store array", &Instruction{Op: OpStore, Typ: types.Int, Dims: []int{3}, Args: []Value{Global(".const_v.1"), Local("v")}}, "  store_int_3 @.const_v.1 %v"},
		{"cbranch", &Instruction{Op: OpCBranch, Args: []Value{Temp(2), Label("if.then"), Label("if.end")}}, "  cbranch %2 %if.then %if.end"},
		{"void call", &Instruction{Op: OpCall, Typ: types.Void, Args: []Value{Global("f")}}, "  call_void @f"},
		{"conversion", &Instruction{Op: OpFToSI, Typ: types.Char, Result: Temp(4), Args: []Value{Temp(3)}}, "  %4 = fptosi_char %3"},
		{"print void", &Instruction{Op: OpPrint, Typ: types.Void}, "  print_void"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, tt.in.String(), tt.want)
		})
	}
}

func TestTerminators(t *testing.T) {
	for op := OpLabel; op <= OpRead; op++ {
		want := op == OpJump || op == OpCBranch || op == OpReturn
		be.Equal(t, op.IsTerminator(), want)
	}
}

func TestFloatConstForms(t *testing.T) {
	be.Equal(t, FloatConst(0.5).String(), "0.5")
	be.Equal(t, FloatConst(-3).String(), "-3.0")
	be.Equal(t, FloatConst(1e21).String(), "1e+21")
}

func buildDiamond() *Func {
	f := NewFunc("f")
	entry := f.NewBlock("entry", true)
	then := f.NewBlock("if.then", false)
	end := f.NewBlock("if.end", false)
	f.Entry, f.Exit = entry, end
	entry.Next, then.Next = then, end

	entry.Append(&Instruction{Op: OpLabel, Args: []Value{Label("entry")}})
	entry.Append(&Instruction{Op: OpCBranch, Args: []Value{Temp(1), Label("if.then"), Label("if.end")}})
	LinkCond(entry, then, end)
	then.Append(&Instruction{Op: OpLabel, Args: []Value{Label("if.then")}})
	then.Append(&Instruction{Op: OpJump, Args: []Value{Label("if.end")}})
	Link(then, end)
	end.Append(&Instruction{Op: OpLabel, Args: []Value{Label("if.end")}})
	end.Append(&Instruction{Op: OpReturn, Typ: types.Void})
	return f
}

func TestLinkMirrorsEdges(t *testing.T) {
	f := buildDiamond()
	entry, then, end := f.Blocks[0], f.Blocks[1], f.Blocks[2]

	be.Equal(t, entry.Successors(), []*Block{then, end})
	be.Equal(t, end.Preds, []*Block{entry, then})

	Link(then, end)
	be.Equal(t, len(end.Preds), 2)
	be.Err(t, f.Verify(), nil)
	be.Equal(t, len(f.Linearize()), 6)
}

func TestVerifyRejectsBrokenGraphs(t *testing.T) {
	f := buildDiamond()
	f.Blocks[1].Instructions = f.Blocks[1].Instructions[:1]
	be.Err(t, f.Verify(), "block %if.then does not end in a control transfer")

	f = buildDiamond()
	f.Blocks[2].Preds = f.Blocks[2].Preds[:1]
	be.Err(t, f.Verify(), "%if.then -> %if.end is not mirrored")

	f = buildDiamond()
	f.Blocks[0].FallThrough = nil
	be.Err(t, f.Verify(), "conditional block %entry is missing a successor")
}

func TestWriteCodeAndFingerprint(t *testing.T) {
	f := buildDiamond()
	prog := &Program{
		Text:  []*Instruction{{Op: OpGlobal, Typ: types.Int, Result: Global("g"), Args: []Value{IntConst(1)}}},
		Funcs: []*Func{f},
	}
	define := &Instruction{Op: OpDefine, Typ: types.Void, Args: []Value{Global("f")}}
	f.Entry.Instructions = append([]*Instruction{define}, f.Entry.Instructions...)

	var sb strings.Builder
	be.Err(t, WriteCode(&sb, prog.Code()), nil)
	want := "@g = global_int 1\n\ndefine_void @f ()\nentry:\n  cbranch %1 %if.then %if.end\n" +
		"if.then:\n  jump %if.end\nif.end:\n  return_void\n"
	be.Equal(t, sb.String(), want)

	be.Equal(t, Fingerprint(prog.Code()), Fingerprint(prog.Code()))
	before := Fingerprint(prog.Code())
	prog.Text[0].Args[0] = IntConst(2)
	be.True(t, Fingerprint(prog.Code()) != before)
	be.Equal(t, prog.FindFunc("f"), f)
	be.Equal(t, prog.FindFunc("g"), (*Func)(nil))
}
