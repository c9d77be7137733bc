package typeChecker

import (
	"errors"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/ucc/pkg/ast"
	"github.com/xplshn/ucc/pkg/config"
	"github.com/xplshn/ucc/pkg/parser"
	"github.com/xplshn/ucc/pkg/types"
)

func check(t *testing.T, cfg *config.Config, src string) (*TypeChecker, *Info, error) {
	t.Helper()
	root, err := parser.ParseString(src, 0)
	be.Err(t, err, nil)
	if cfg == nil {
		cfg = config.NewConfig()
	}
	tc := NewTypeChecker(cfg)
	info, err := tc.Check(root)
	return tc, info, err
}

func wantCode(t *testing.T, err error, code Code) *Diagnostic {
	t.Helper()
	var diag *Diagnostic
	be.True(t, errors.As(err, &diag))
	be.Equal(t, diag.Code, code)
	return diag
}

// fn wraps body items in `int main() { ... }`
func fn(items string) string {
	return `(Program (FuncDef (Decl main (FuncDecl (VarDecl int))) (Compound ` + items + `)))`
}

func voidFn(items string) string {
	return `(Program (FuncDef (Decl main (FuncDecl (VarDecl void))) (Compound ` + items + `)))`
}

func TestGlobalInitMustBeConstant(t *testing.T) {
	_, _, err := check(t, nil, `(Program (GlobalDecl
		(Decl @1:5 x (VarDecl int) (BinaryOp @1:11 + (Constant int 2) (Constant int 3)))))`)
	diag := wantCode(t, err, ErrNotConstant)
	be.Equal(t, diag.Tok.Line, 1)
	be.Equal(t, diag.Tok.Column, 11)
	be.Equal(t, diag.Msg, "Expression must be a constant")

	_, info, err := check(t, nil, `(Program (GlobalDecl (Decl x (VarDecl int) (Constant int 5))))`)
	be.Err(t, err, nil)
	syms := info.Symbols.Symbols()
	be.Equal(t, len(syms), 1)
	be.True(t, syms[0].Global)
	be.Equal(t, syms[0].Type, types.Type(types.Int))
}

func TestArrayInitSizeMismatch(t *testing.T) {
	_, _, err := check(t, nil, `(Program (GlobalDecl
		(Decl @3:5 a (ArrayDecl (VarDecl int) (Constant int 3))
			(InitList (Constant int 1) (Constant int 2)))))`)
	diag := wantCode(t, err, ErrListVarSizeMismatch)
	be.Equal(t, diag.Tok.Line, 3)
	be.Equal(t, diag.Tok.Column, 5)
}

func TestBreakOutsideLoop(t *testing.T) {
	_, _, err := check(t, nil, voidFn(`(Break @2:3)`))
	diag := wantCode(t, err, ErrBreakOutsideLoop)
	be.Equal(t, diag.Msg, "Break statement must be inside a loop")

	_, _, err = check(t, nil, voidFn(`(While (Constant bool true) (Compound (Break)))`))
	be.Err(t, err, nil)
}

func TestArgCountMismatch(t *testing.T) {
	_, _, err := check(t, nil, `(Program
		(GlobalDecl (Decl f (FuncDecl (VarDecl void) (Decl a (VarDecl int)) (Decl b (VarDecl int)))))
		(FuncDef (Decl main (FuncDecl (VarDecl void)))
			(Compound (FuncCall @4:3 f (Constant int 1)))))`)
	diag := wantCode(t, err, ErrArgCountMismatch)
	be.Equal(t, diag.Msg, "no. arguments to call f function mismatch")
	be.Equal(t, diag.Tok.Line, 4)
}

func TestBareReturnInIntFunction(t *testing.T) {
	_, _, err := check(t, nil, fn(`(Return @2:3)`))
	diag := wantCode(t, err, ErrReturnTypeMismatch)
	be.Equal(t, diag.Msg, "Return of type(void) is incompatible with type(int) function definition")
}

func TestEmptyNonVoidBody(t *testing.T) {
	_, _, err := check(t, nil, fn(``))
	wantCode(t, err, ErrReturnTypeMismatch)
}

func TestRedeclaration(t *testing.T) {
	_, _, err := check(t, nil, fn(`
		(Decl x (VarDecl int))
		(Decl @3:7 x (VarDecl float))
		(Return (Constant int 0))`))
	diag := wantCode(t, err, ErrRedeclared)
	be.Equal(t, diag.Msg, "Name x is already defined in this scope")
	be.Equal(t, diag.Tok.Line, 3)

	// A nested block may reuse the name.
	_, _, err = check(t, nil, fn(`
		(Decl x (VarDecl int))
		(Compound (Decl x (VarDecl float)))
		(Return (Constant int 0))`))
	be.Err(t, err, nil)
}

func TestPrototypeThenDefinition(t *testing.T) {
	proto := `(GlobalDecl (Decl f (FuncDecl (VarDecl int) (Decl a (VarDecl int)))))`
	def := `(FuncDef (Decl f (FuncDecl (VarDecl int) (Decl a (VarDecl int)))) (Compound (Return (ID a))))`

	_, info, err := check(t, nil, `(Program `+proto+def+`)`)
	be.Err(t, err, nil)
	f := info.Symbols.Lookup("f", 0)
	be.True(t, f.Defined)

	_, _, err = check(t, nil, `(Program `+def+def+`)`)
	wantCode(t, err, ErrRedeclared)

	other := `(FuncDef (Decl f (FuncDecl (VarDecl int) (Decl a (VarDecl float)))) (Compound (Return (Constant int 1))))`
	_, _, err = check(t, nil, `(Program `+proto+other+`)`)
	wantCode(t, err, ErrRedeclared)
}

func TestExpressionErrors(t *testing.T) {
	tests := []struct {
		name  string
		items string
		code  Code
		msg   string
	}{
		{"undefined", `(Print (ID y))`, ErrUndefinedName, "y is not defined"},
		{"binary mismatch", `(Print (BinaryOp + (Constant int 1) (Constant float 1.0)))`,
			ErrBinaryTypeMismatch, "Binary operator + does not have matching LHS/RHS types"},
		{"binary unsupported", `(Print (BinaryOp - (Constant string "a") (Constant string "b")))`,
			ErrBinaryOpUnsupported, "Binary operator - is not supported by type(string)"},
		{"unary unsupported", `(Print (UnaryOp ! (Constant int 1)))`,
			ErrUnaryOpUnsupported, "Unary operator ! is not supported"},
		{"assign mismatch", `(Decl x (VarDecl int)) (Assignment = (ID x) (Constant char 'a'))`,
			ErrAssignTypeMismatch, "Cannot assign type(char) to type(int)"},
		{"assign op unsupported", `(Decl c (VarDecl char)) (Assignment += (ID c) (Constant char 'a'))`,
			ErrAssignOpUnsupported, "Assignment operator += is not supported by type(char)"},
		{"assign to constant", `(Assignment = (Constant int 1) (Constant int 2))`,
			ErrNotAVariable, "(Constant int 1) Is not a variable"},
		{"subscript not int", `(Decl v (ArrayDecl (VarDecl int) (Constant int 2))) (Print (ArrayRef (ID v) (Constant char 'a')))`,
			ErrSubscriptNotInt, "type(char) must be of type(int)"},
		{"subscript scalar", `(Decl v (VarDecl int)) (Print (ArrayRef (ID v) (Constant int 0)))`,
			ErrArrayDimMismatch, "Array dimension mismatch"},
		{"if not bool", `(If (Constant int 1) (Print))`, ErrCondNotBool, "The condition expression must be of type(bool)"},
		{"while not bool", `(While (Constant int 1) (Break))`, ErrLoopCondNotBool, "conditional expression is type(int), not type(bool)"},
		{"assert not bool", `(Assert (Constant int 1))`, ErrAssertNotBool, "Expression must be of type(bool)"},
		{"read constant", `(Read (Constant int 1))`, ErrNotAVariable, "(Constant int 1) Is not a variable"},
		{"print function", `(Print (ID main))`, ErrPrintNotBasicVar, "main does not reference a variable of basic type"},
		{"not a function", `(Decl g (VarDecl int)) (FuncCall g)`, ErrNotAFunction, "g is not a function"},
		{"scalar init list", `(Decl x (VarDecl int) (InitList (Constant int 1)))`,
			ErrInitNotSingle, "x initialization must be a single element"},
		{"scalar init type", `(Decl x (VarDecl int) (Constant float 1.0))`,
			ErrInitTypeMismatch, "x initialization type mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := check(t, nil, voidFn(tt.items))
			diag := wantCode(t, err, tt.code)
			be.Equal(t, diag.Msg, tt.msg)
		})
	}
}

func TestArrayDeclarations(t *testing.T) {
	tests := []struct {
		name string
		decl string
		code Code // 0 means accepted
		dims []int
	}{
		{"sized", `(Decl a (ArrayDecl (VarDecl int) (Constant int 3)))`, 0, []int{3}},
		{"inferred from list", `(Decl a (ArrayDecl (VarDecl int)) (InitList (Constant int 1) (Constant int 2)))`, 0, []int{2}},
		{"inferred from string", `(Decl s (ArrayDecl (VarDecl char)) (Constant string "hey"))`, 0, []int{3}},
		{"two dims", `(Decl m (ArrayDecl (ArrayDecl (VarDecl int) (Constant int 2)) (Constant int 2))
			(InitList (InitList (Constant int 1) (Constant int 2)) (InitList (Constant int 3) (Constant int 4))))`, 0, []int{2, 2}},
		{"no size no init", `(Decl a (ArrayDecl (VarDecl int)))`, ErrArrayDimMismatch, nil},
		{"size not constant", `(Decl a (ArrayDecl (VarDecl int) (ID n)))`, ErrNotConstant, nil},
		{"size not int", `(Decl a (ArrayDecl (VarDecl int) (Constant char 'a')))`, ErrSubscriptNotInt, nil},
		{"string too long", `(Decl s (ArrayDecl (VarDecl char) (Constant int 2)) (Constant string "hey"))`, ErrInitSizeMismatch, nil},
		{"string into int", `(Decl s (ArrayDecl (VarDecl int)) (Constant string "hey"))`, ErrInitTypeMismatch, nil},
		{"ragged lists", `(Decl m (ArrayDecl (ArrayDecl (VarDecl int))) (InitList
			(InitList (Constant int 1) (Constant int 2)) (InitList (Constant int 3))))`, ErrListSizeMismatch, nil},
		{"too shallow", `(Decl m (ArrayDecl (ArrayDecl (VarDecl int) (Constant int 1)) (Constant int 1))
			(InitList (Constant int 1)))`, ErrArrayDimMismatch, nil},
		{"leaf not constant", `(Decl a (ArrayDecl (VarDecl int)) (InitList (ID n)))`, ErrNotConstant, nil},
		{"leaf wrong type", `(Decl a (ArrayDecl (VarDecl int)) (InitList (Constant float 1.0)))`, ErrInitTypeMismatch, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `(Program (GlobalDecl (Decl n (VarDecl int) (Constant int 1)) ` + tt.decl + `))`
			_, info, err := check(t, nil, src)
			if tt.code != 0 {
				wantCode(t, err, tt.code)
				return
			}
			be.Err(t, err, nil)
			syms := info.Symbols.Symbols()
			arr := syms[len(syms)-1].Type.(*types.Array)
			be.Equal(t, arr.Dims, tt.dims)
		})
	}
}

func TestArrayRefPeelsOneDimension(t *testing.T) {
	src := voidFn(`
		(Decl m (ArrayDecl (ArrayDecl (VarDecl float) (Constant int 3)) (Constant int 2)))
		(Print (ArrayRef (ArrayRef (ID m) (Constant int 1)) (Constant int 2)))`)
	root, err := parser.ParseString(src, 0)
	be.Err(t, err, nil)
	info, err := NewTypeChecker(config.NewConfig()).Check(root)
	be.Err(t, err, nil)

	var refs []*ast.Node
	ast.Inspect(root, func(n *ast.Node) bool {
		if n.Type == ast.ArrayRef {
			refs = append(refs, n)
		}
		return true
	})
	be.Equal(t, len(refs), 2)
	be.Equal(t, info.TypeOf(refs[0]), types.Type(types.Float))
	inner := info.TypeOf(refs[1]).(*types.Array)
	be.Equal(t, inner.Dims, []int{3})
}

func TestCallParamMismatch(t *testing.T) {
	_, _, err := check(t, nil, `(Program
		(FuncDef (Decl f (FuncDecl (VarDecl void) (Decl count (VarDecl int)))) (Compound))
		(FuncDef (Decl main (FuncDecl (VarDecl void)))
			(Compound (FuncCall f (Constant @5:9 float 1.0)))))`)
	diag := wantCode(t, err, ErrParamTypeMismatch)
	be.Equal(t, diag.Msg, "Type mismatch with parameter count")
	be.Equal(t, diag.Tok.Column, 9)
}

func TestUsesResolveToInnermost(t *testing.T) {
	src := fn(`
		(Decl x (VarDecl int) (Constant int 1))
		(While (Constant bool true) (Compound
			(Decl x (VarDecl float) (Constant float 2.0))
			(Print (ID x))
			(Break)))
		(Return (ID x))`)
	root, err := parser.ParseString(src, 0)
	be.Err(t, err, nil)
	info, err := NewTypeChecker(config.NewConfig()).Check(root)
	be.Err(t, err, nil)

	var ids []*ast.Node
	ast.Inspect(root, func(n *ast.Node) bool {
		if n.Type == ast.ID {
			ids = append(ids, n)
		}
		return true
	})
	be.Equal(t, len(ids), 2)
	be.Equal(t, info.Uses[ids[0]].Type, types.Type(types.Float))
	be.Equal(t, info.Uses[ids[1]].Type, types.Type(types.Int))
	be.True(t, info.Uses[ids[0]] != info.Uses[ids[1]])
}

func TestLegacyScopes(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatLexicalScopes, false)

	// Nested blocks share the function scope.
	_, _, err := check(t, cfg, fn(`
		(Decl x (VarDecl int))
		(Compound (Decl x (VarDecl float)))
		(Return (Constant int 0))`))
	wantCode(t, err, ErrRedeclared)

	// Leaving an inner loop forgets the outer one.
	_, _, err = check(t, cfg, voidFn(`
		(While (Constant bool true) (Compound
			(While (Constant bool true) (Break))
			(Break)))`))
	wantCode(t, err, ErrBreakOutsideLoop)

	_, _, err = check(t, nil, voidFn(`
		(While (Constant bool true) (Compound
			(While (Constant bool true) (Break))
			(Break)))`))
	be.Err(t, err, nil)
}

func TestWarnings(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnShadow, true)
	tc, _, err := check(t, cfg, `(Program
		(GlobalDecl (Decl x (VarDecl int)) (Decl g (FuncDecl (VarDecl void))))
		(FuncDef (Decl main (FuncDecl (VarDecl int))) (Compound
			(Decl @3:7 x (VarDecl int))
			(Return (Constant int 0))
			(Print @5:3 (ID x))))
		(FuncDef (Decl h (FuncDecl (VarDecl int))) (Compound
			(Print (Constant int 1)))))`)
	be.Err(t, err, nil)

	var kinds []config.Warning
	for _, w := range tc.Warnings() {
		kinds = append(kinds, w.Kind)
	}
	be.Equal(t, kinds, []config.Warning{
		config.WarnShadow,
		config.WarnUnreachableCode,
		config.WarnMissingReturn, // main ends with a print
		config.WarnMissingReturn,
		config.WarnExtra,
	})
	be.Equal(t, tc.Warnings()[1].Tok.Line, 5)
}

func TestPedanticEnablesEverything(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetWarning(config.WarnPedantic, true)
	tc, _, err := check(t, cfg, fn(`
		(Decl x (VarDecl int))
		(Compound (Decl x (VarDecl int)))
		(Return (ID x))`))
	be.Err(t, err, nil)
	be.Equal(t, len(tc.Warnings()), 1)
	be.Equal(t, tc.Warnings()[0].Kind, config.WarnShadow)
}

func TestTypesRecordedForEveryExpression(t *testing.T) {
	root, err := parser.ParseString(fn(`
		(Decl v (ArrayDecl (VarDecl int)) (InitList (Constant int 1) (Constant int 2)))
		(Decl s (VarDecl string) (Constant string "x"))
		(Print (ExprList (ArrayRef (ID v) (Constant int 0)) (ID s) (Cast float (ID v))))
		(Return (BinaryOp + (UnaryOp - (ArrayRef (ID v) (Constant int 1))) (Constant int 3)))`), 0)
	be.Err(t, err, nil)
	info, err := NewTypeChecker(config.NewConfig()).Check(root)
	be.Err(t, err, nil)
	ast.Inspect(root, func(n *ast.Node) bool {
		if ast.IsExpr(n) {
			be.True(t, info.TypeOf(n) != nil)
		}
		return true
	})
}
