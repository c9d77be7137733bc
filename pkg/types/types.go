// Package types describes the uC type system: six basic types with fixed
// operator sets plus array and function wrappers around them
package types

import (
	"fmt"
	"strings"

	"github.com/xplshn/ucc/pkg/token"
)

// Kind identifies the shape of a Type
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindChar
	KindString
	KindBool
	KindVoid
	KindArray
	KindFunction
)

// Category selects one of the operator sets a type carries
type Category int

const (
	Unary Category = iota
	Binary
	Relational
	Assignment
)

func (c Category) String() string {
	switch c {
	case Unary:
		return "unary"
	case Binary:
		return "binary"
	case Relational:
		return "relational"
	case Assignment:
		return "assignment"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// Type is implemented by *Basic, *Array and *Function
type Type interface {
	Kind() Kind
	String() string
	Name() string
	ops(c Category) opSet
}

type opSet map[token.Type]bool

func newOpSet(ops ...token.Type) opSet {
	s := make(opSet, len(ops))
	for _, op := range ops {
		s[op] = true
	}
	return s
}

// Basic is one of the predefined scalar types. Values are singletons
// and compared by identity
type Basic struct {
	kind Kind
	name string
	sets [4]opSet
}

func (b *Basic) Kind() Kind           { return b.kind }
func (b *Basic) Name() string         { return b.name }
func (b *Basic) String() string       { return "type(" + b.name + ")" }
func (b *Basic) ops(c Category) opSet { return b.sets[c] }

var numericUnary = []token.Type{token.Minus, token.Plus, token.Dec, token.Inc, token.PostDec, token.PostInc, token.Star, token.And}

// Pre-defined types
var (
	Int = &Basic{kind: KindInt, name: "int", sets: [4]opSet{
		newOpSet(numericUnary...),
		newOpSet(token.Plus, token.Minus, token.Star, token.Slash, token.Rem),
		newOpSet(token.EqEq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte),
		newOpSet(token.Eq, token.PlusEq, token.MinusEq, token.StarEq, token.SlashEq, token.RemEq),
	}}
	Float = &Basic{kind: KindFloat, name: "float", sets: [4]opSet{
		newOpSet(numericUnary...),
		newOpSet(token.Plus, token.Minus, token.Star, token.Slash, token.Rem),
		newOpSet(token.EqEq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte),
		newOpSet(token.Eq, token.PlusEq, token.MinusEq, token.StarEq, token.SlashEq, token.RemEq),
	}}
	Char = &Basic{kind: KindChar, name: "char", sets: [4]opSet{
		newOpSet(numericUnary...),
		newOpSet(),
		newOpSet(token.EqEq, token.Neq),
		newOpSet(token.Eq),
	}}
	String = &Basic{kind: KindString, name: "string", sets: [4]opSet{
		newOpSet(),
		newOpSet(token.Plus),
		newOpSet(token.EqEq, token.Neq),
		newOpSet(token.Eq, token.PlusEq),
	}}
	Bool = &Basic{kind: KindBool, name: "bool", sets: [4]opSet{
		newOpSet(token.Not, token.And, token.Star),
		newOpSet(token.AndAnd, token.OrOr),
		newOpSet(token.EqEq, token.Neq),
		newOpSet(token.Eq),
	}}
	Void = &Basic{kind: KindVoid, name: "void", sets: [4]opSet{
		newOpSet(), newOpSet(), newOpSet(), newOpSet(),
	}}
)

// Basics maps a type keyword to its singleton
var Basics = map[token.Type]*Basic{
	token.Int:           Int,
	token.Float:         Float,
	token.CharKeyword:   Char,
	token.StringKeyword: String,
	token.Bool:          Bool,
	token.Void:          Void,
}

// LookupBasic returns the singleton named name, or nil
func LookupBasic(name string) *Basic {
	if tt, ok := token.KeywordMap[name]; ok {
		return Basics[tt]
	}
	return nil
}

var arrayOps = [4]opSet{
	newOpSet(token.Star, token.And),
	newOpSet(),
	newOpSet(token.EqEq, token.Neq),
	newOpSet(),
}

// Array wraps an element type. Dims holds one entry per dimension; an
// entry of 0 means the size was left to the initializer
type Array struct {
	Elem Type
	Dims []int
}

func NewArray(elem Type, dims ...int) *Array {
	return &Array{Elem: elem, Dims: append([]int(nil), dims...)}
}

func (a *Array) Kind() Kind           { return KindArray }
func (a *Array) Name() string         { return a.Elem.Name() }
func (a *Array) String() string       { return a.Elem.String() }
func (a *Array) ops(c Category) opSet { return arrayOps[c] }

// Size returns the number of scalar elements, or 0 when any dimension is unknown
func (a *Array) Size() int {
	if len(a.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// Peel returns the type produced by one subscript
func (a *Array) Peel() Type {
	if len(a.Dims) <= 1 {
		return a.Elem
	}
	return &Array{Elem: a.Elem, Dims: a.Dims[1:]}
}

// Function wraps a return type and the ordered parameter types
type Function struct {
	Ret    Type
	Params []Type
}

func NewFunction(ret Type, params ...Type) *Function {
	return &Function{Ret: ret, Params: params}
}

var noOps = [4]opSet{newOpSet(), newOpSet(), newOpSet(), newOpSet()}

func (f *Function) Kind() Kind           { return KindFunction }
func (f *Function) Name() string         { return f.Ret.Name() }
func (f *Function) String() string       { return f.Ret.String() }
func (f *Function) ops(c Category) opSet { return noOps[c] }

// Signature renders the full function type, e.g. "int(float, char)"
func (f *Function) Signature() string {
	parts := make([]string, len(f.Params))
	for i, p := range f.Params {
		parts[i] = Describe(p)
	}
	return fmt.Sprintf("%s(%s)", Describe(f.Ret), strings.Join(parts, ", "))
}

// Describe renders t with array dimensions spelled out, for messages
// that need more than the display name
func Describe(t Type) string {
	switch t := t.(type) {
	case *Array:
		var sb strings.Builder
		sb.WriteString(Describe(t.Elem))
		for _, d := range t.Dims {
			if d == 0 {
				sb.WriteString("[]")
			} else {
				fmt.Fprintf(&sb, "[%d]", d)
			}
		}
		return sb.String()
	case *Function:
		return t.Signature()
	case nil:
		return "<nil>"
	}
	return t.Name()
}

// OperatorAllowed reports whether op belongs to t's set for category c
func OperatorAllowed(t Type, c Category, op token.Type) bool {
	if t == nil {
		return false
	}
	return t.ops(c)[op]
}

// Equal compares basic types by identity and array or function types by
// their wrapped element or return type. Dimensions and parameter lists
// are not part of the comparison
func Equal(a, b Type) bool {
	switch a := a.(type) {
	case *Basic:
		bb, ok := b.(*Basic)
		return ok && a == bb
	case *Array:
		ba, ok := b.(*Array)
		return ok && Equal(a.Elem, ba.Elem)
	case *Function:
		bf, ok := b.(*Function)
		return ok && Equal(a.Ret, bf.Ret)
	}
	return false
}

// SameSignature reports whether two function types agree on the return
// type and on every parameter, position by position
func SameSignature(a, b *Function) bool {
	if !Equal(a.Ret, b.Ret) || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !Equal(a.Params[i], b.Params[i]) {
			return false
		}
	}
	return true
}

// IsBasic reports whether t is a scalar value type that can be printed
func IsBasic(t Type) bool {
	b, ok := t.(*Basic)
	return ok && b != Void
}
