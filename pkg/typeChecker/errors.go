package typeChecker

import (
	"fmt"
	"strings"

	"github.com/xplshn/ucc/pkg/token"
)

// Code numbers the semantic error categories
type Code int

const (
	ErrUndefinedName Code = iota + 1
	ErrSubscriptNotInt
	ErrAssertNotBool
	ErrAssignTypeMismatch
	ErrAssignOpUnsupported
	ErrBinaryTypeMismatch
	ErrBinaryOpUnsupported
	ErrBreakOutsideLoop
	ErrArrayDimMismatch
	ErrInitSizeMismatch
	ErrInitTypeMismatch
	ErrInitNotSingle
	ErrListSizeMismatch
	ErrListVarSizeMismatch
	ErrLoopCondNotBool
	ErrNotAFunction
	ErrArgCountMismatch
	ErrParamTypeMismatch
	ErrCondNotBool
	ErrNotConstant
	ErrPrintNotBasic
	ErrPrintNotBasicVar
	ErrNotAVariable
	ErrReturnTypeMismatch
	ErrRedeclared
	ErrUnaryOpUnsupported
	ErrUndefined
)

var messages = map[Code]string{
	ErrUndefinedName:       "{name} is not defined",
	ErrSubscriptNotInt:     "{ltype} must be of type(int)",
	ErrAssertNotBool:       "Expression must be of type(bool)",
	ErrAssignTypeMismatch:  "Cannot assign {rtype} to {ltype}",
	ErrAssignOpUnsupported: "Assignment operator {name} is not supported by {ltype}",
	ErrBinaryTypeMismatch:  "Binary operator {name} does not have matching LHS/RHS types",
	ErrBinaryOpUnsupported: "Binary operator {name} is not supported by {ltype}",
	ErrBreakOutsideLoop:    "Break statement must be inside a loop",
	ErrArrayDimMismatch:    "Array dimension mismatch",
	ErrInitSizeMismatch:    "Size mismatch on {name} initialization",
	ErrInitTypeMismatch:    "{name} initialization type mismatch",
	ErrInitNotSingle:       "{name} initialization must be a single element",
	ErrListSizeMismatch:    "Lists have different sizes",
	ErrListVarSizeMismatch: "List & variable have different sizes",
	ErrLoopCondNotBool:     "conditional expression is {ltype}, not type(bool)",
	ErrNotAFunction:        "{name} is not a function",
	ErrArgCountMismatch:    "no. arguments to call {name} function mismatch",
	ErrParamTypeMismatch:   "Type mismatch with parameter {name}",
	ErrCondNotBool:         "The condition expression must be of type(bool)",
	ErrNotConstant:         "Expression must be a constant",
	ErrPrintNotBasic:       "Expression is not of basic type",
	ErrPrintNotBasicVar:    "{name} does not reference a variable of basic type",
	ErrNotAVariable:        "{name} Is not a variable",
	ErrReturnTypeMismatch:  "Return of {ltype} is incompatible with {rtype} function definition",
	ErrRedeclared:          "Name {name} is already defined in this scope",
	ErrUnaryOpUnsupported:  "Unary operator {name} is not supported",
	ErrUndefined:           "Undefined error",
}

func (c Code) String() string { return fmt.Sprintf("E%02d", int(c)) }

// Message renders the text of c with its placeholders filled in
func (c Code) Message(name, ltype, rtype string) string {
	format, ok := messages[c]
	if !ok {
		format = messages[ErrUndefined]
	}
	return strings.NewReplacer("{name}", name, "{ltype}", ltype, "{rtype}", rtype).Replace(format)
}

// Diagnostic is the error returned by Check on the first violation
type Diagnostic struct {
	Code Code
	Msg  string
	Tok  token.Token
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%d:%d: %s", d.Tok.Line, d.Tok.Column, d.Msg)
}

type bailout struct{ diag *Diagnostic }
