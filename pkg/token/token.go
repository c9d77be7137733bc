package token

import "fmt"

type Type int

const (
	EOF Type = iota
	LParen
	RParen
	Ident
	Number
	FloatNumber
	String
	Char
	Coord
	Blank

	// Type keywords
	Int
	Float
	CharKeyword
	StringKeyword
	Bool
	Void

	// Operators
	Plus
	Minus
	Star
	Slash
	Rem
	Lt
	Lte
	Gt
	Gte
	EqEq
	Neq
	AndAnd
	OrOr
	Not
	And
	Inc
	Dec
	PostInc
	PostDec
	Eq
	PlusEq
	MinusEq
	StarEq
	SlashEq
	RemEq
)

var KeywordMap = map[string]Type{
	"int":    Int,
	"float":  Float,
	"char":   CharKeyword,
	"string": StringKeyword,
	"bool":   Bool,
	"void":   Void,
}

// OperatorMap holds the spelling of every operator the tree may carry.
// A leading 'p' marks the postfix form of ++ and --
var OperatorMap = map[string]Type{
	"+":   Plus,
	"-":   Minus,
	"*":   Star,
	"/":   Slash,
	"%":   Rem,
	"<":   Lt,
	"<=":  Lte,
	">":   Gt,
	">=":  Gte,
	"==":  EqEq,
	"!=":  Neq,
	"&&":  AndAnd,
	"||":  OrOr,
	"!":   Not,
	"&":   And,
	"++":  Inc,
	"--":  Dec,
	"p++": PostInc,
	"p--": PostDec,
	"=":   Eq,
	"+=":  PlusEq,
	"-=":  MinusEq,
	"*=":  StarEq,
	"/=":  SlashEq,
	"%=":  RemEq,
}

// Reverse mapping from Type to its keyword or operator spelling
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for str, typ := range OperatorMap {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	switch t {
	case EOF:
		return "end of input"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case Ident:
		return "identifier"
	case Number:
		return "number"
	case FloatNumber:
		return "float number"
	case String:
		return "string"
	case Char:
		return "char"
	case Coord:
		return "coordinate"
	case Blank:
		return "'_'"
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsOperator reports whether t is one of the operator kinds
func (t Type) IsOperator() bool { return t >= Plus && t <= RemEq }

// IsRelational reports whether t always yields a boolean result
func (t Type) IsRelational() bool {
	switch t {
	case Lt, Lte, Gt, Gte, EqEq, Neq:
		return true
	}
	return false
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}

// Pos renders the token's coordinate as "line:column"
func (t Token) Pos() string { return fmt.Sprintf("%d:%d", t.Line, t.Column) }
