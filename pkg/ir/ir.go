package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/ucc/pkg/types"
)

type Op int

const (
	OpLabel Op = iota
	OpDefine
	OpGlobal
	OpAlloc
	OpLoad
	OpStore
	OpLiteral
	OpElem
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
	OpNot
	OpFToSI
	OpSIToF
	OpSExt
	OpZExt
	OpTrunc
	OpParam
	OpCall
	OpReturn
	OpJump
	OpCBranch
	OpPrint
	OpRead
)

var opNames = [...]string{
	OpLabel:   "label",
	OpDefine:  "define",
	OpGlobal:  "global",
	OpAlloc:   "alloc",
	OpLoad:    "load",
	OpStore:   "store",
	OpLiteral: "literal",
	OpElem:    "elem",
	OpAdd:     "add",
	OpSub:     "sub",
	OpMul:     "mul",
	OpDiv:     "div",
	OpMod:     "mod",
	OpLt:      "lt",
	OpLe:      "le",
	OpGt:      "gt",
	OpGe:      "ge",
	OpEq:      "eq",
	OpNe:      "ne",
	OpAnd:     "and",
	OpOr:      "or",
	OpNot:     "not",
	OpFToSI:   "fptosi",
	OpSIToF:   "sitofp",
	OpSExt:    "sext",
	OpZExt:    "zext",
	OpTrunc:   "trunc",
	OpParam:   "param",
	OpCall:    "call",
	OpReturn:  "return",
	OpJump:    "jump",
	OpCBranch: "cbranch",
	OpPrint:   "print",
	OpRead:    "read",
}

func (op Op) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// IsTerminator reports whether op transfers control out of its block
func (op Op) IsTerminator() bool {
	return op == OpJump || op == OpCBranch || op == OpReturn
}

// Value is an instruction operand
type Value interface {
	isValue()
	String() string
}

type (
	Temp        int     // function-local temporary, %N
	Local       string  // stack slot of a named local, %name
	Global      string  // text-section symbol, @name
	Label       string  // block reference, %label
	IntConst    int64
	FloatConst  float64
	CharConst   rune
	BoolConst   bool
	StringConst string
	ListConst   []Value
)

// Param is one formal of a define instruction
type Param struct {
	Typ  *types.Basic
	Ptr  bool
	Temp Temp
}

func (Temp) isValue()        {}
func (Local) isValue()       {}
func (Global) isValue()      {}
func (Label) isValue()       {}
func (IntConst) isValue()    {}
func (FloatConst) isValue()  {}
func (CharConst) isValue()   {}
func (BoolConst) isValue()   {}
func (StringConst) isValue() {}
func (ListConst) isValue()   {}
func (Param) isValue()       {}

func (t Temp) String() string        { return "%" + strconv.Itoa(int(t)) }
func (l Local) String() string       { return "%" + string(l) }
func (g Global) String() string      { return "@" + string(g) }
func (l Label) String() string       { return "%" + string(l) }
func (c IntConst) String() string    { return strconv.FormatInt(int64(c), 10) }
func (c CharConst) String() string   { return strconv.QuoteRune(rune(c)) }
func (c BoolConst) String() string   { return strconv.FormatBool(bool(c)) }
func (c StringConst) String() string { return strconv.Quote(string(c)) }

func (c FloatConst) String() string {
	s := strconv.FormatFloat(float64(c), 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnI") {
		s += ".0"
	}
	return s
}

func (l ListConst) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (p Param) String() string {
	name := p.Typ.Name()
	if p.Ptr {
		name += "*"
	}
	return name + " " + p.Temp.String()
}

// Instruction is one three-address operation. Typ, Dims and Ptr make up
// the opcode suffix: store_int_2_3 has Dims [2 3], load_float_* has Ptr
type Instruction struct {
	Op     Op
	Typ    *types.Basic
	Dims   []int
	Ptr    bool
	Result Value
	Args   []Value
}

// Opcode renders the suffixed operation name, e.g. "elem_int" or "load_char_*"
func (in *Instruction) Opcode() string {
	var sb strings.Builder
	sb.WriteString(in.Op.String())
	if in.Typ != nil {
		sb.WriteString("_" + in.Typ.Name())
	}
	for _, d := range in.Dims {
		sb.WriteString("_" + strconv.Itoa(d))
	}
	if in.Ptr {
		sb.WriteString("_*")
	}
	return sb.String()
}

func (in *Instruction) String() string {
	switch in.Op {
	case OpLabel:
		return string(in.Args[0].(Label)) + ":"
	case OpDefine:
		params := make([]string, len(in.Args)-1)
		for i, p := range in.Args[1:] {
			params[i] = p.String()
		}
		return fmt.Sprintf("%s %s (%s)", in.Opcode(), in.Args[0], strings.Join(params, ", "))
	case OpGlobal:
		s := in.Result.String() + " = " + in.Opcode()
		for _, a := range in.Args {
			s += " " + a.String()
		}
		return s
	}

	var sb strings.Builder
	sb.WriteString("  ")
	if in.Result != nil {
		sb.WriteString(in.Result.String() + " = ")
	}
	sb.WriteString(in.Opcode())
	for _, a := range in.Args {
		sb.WriteString(" " + a.String())
	}
	return sb.String()
}
