// Package ast defines the types used to represent the uC syntax tree
package ast

import (
	"github.com/xplshn/ucc/pkg/token"
	"github.com/xplshn/ucc/pkg/types"
)

// NodeType defines the kind of a node in the tree
type NodeType int

// Node types enum
const (
	// Expressions
	Constant NodeType = iota
	ID
	BinaryOp
	UnaryOp
	Assignment
	Cast
	ArrayRef
	FuncCall
	ExprList
	InitList

	// Declarations
	Program
	GlobalDecl
	Decl
	DeclList
	VarDecl
	ArrayDecl
	FuncDecl
	FuncDef

	// Statements
	Compound
	If
	While
	For
	Break
	Return
	Assert
	Print
	Read
	EmptyStatement
)

var nodeTypeNames = [...]string{
	Constant: "Constant", ID: "ID", BinaryOp: "BinaryOp", UnaryOp: "UnaryOp",
	Assignment: "Assignment", Cast: "Cast", ArrayRef: "ArrayRef", FuncCall: "FuncCall",
	ExprList: "ExprList", InitList: "InitList", Program: "Program", GlobalDecl: "GlobalDecl",
	Decl: "Decl", DeclList: "DeclList", VarDecl: "VarDecl", ArrayDecl: "ArrayDecl",
	FuncDecl: "FuncDecl", FuncDef: "FuncDef", Compound: "Compound", If: "If", While: "While",
	For: "For", Break: "Break", Return: "Return", Assert: "Assert", Print: "Print", Read: "Read",
	EmptyStatement: "EmptyStatement",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "Unknown"
}

// NodeTypeByName maps the spelling used in tree documents to the kind
var NodeTypeByName = make(map[string]NodeType)

func init() {
	for t, name := range nodeTypeNames {
		NodeTypeByName[name] = NodeType(t)
	}
}

// Node represents a node in the syntax tree. Nodes are never annotated in
// place; analysis results live in side tables keyed by *Node
type Node struct {
	Type   NodeType
	Tok    token.Token
	Parent *Node
	Data   interface{}
}

// --- Node Data Structs ---

// ConstantNode holds int64, float64, rune, string or bool in Value
type ConstantNode struct {
	Typ   *types.Basic
	Value interface{}
}
type IDNode struct{ Name string }
type BinaryOpNode struct{ Op token.Type; Left, Right *Node }
type UnaryOpNode struct{ Op token.Type; Expr *Node }
type AssignmentNode struct{ Op token.Type; Lhs, Rhs *Node }
type CastNode struct{ Target *types.Basic; Expr *Node }
type ArrayRefNode struct{ Array, Index *Node }
type FuncCallNode struct{ Callee *Node; Args []*Node }
type ExprListNode struct{ Exprs []*Node }
type InitListNode struct{ Exprs []*Node }

type ProgramNode struct{ Decls []*Node }
type GlobalDeclNode struct{ Decls []*Node }

// DeclNode binds Name to the type described by TypeSpec, a VarDecl,
// ArrayDecl or FuncDecl node
type DeclNode struct {
	Name     string
	TypeSpec *Node
	Init     *Node
}
type DeclListNode struct{ Decls []*Node }
type VarDeclNode struct{ Typ *types.Basic }

// ArrayDeclNode describes Size elements of Elem. Nesting gives the
// dimensions outermost first; Size is nil when left to the initializer
type ArrayDeclNode struct{ Elem, Size *Node }
type FuncDeclNode struct{ Ret *Node; Params []*Node }
type FuncDefNode struct{ Decl, Body *Node }

type CompoundNode struct{ Items []*Node }
type IfNode struct{ Cond, ThenBody, ElseBody *Node }
type WhileNode struct{ Cond, Body *Node }
type ForNode struct{ Init, Cond, Next, Body *Node }
type BreakNode struct{}
type ReturnNode struct{ Expr *Node }
type AssertNode struct{ Expr *Node }
type PrintNode struct{ Expr *Node }
type ReadNode struct{ Expr *Node }
type EmptyStatementNode struct{}

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}, children ...*Node) *Node {
	node := &Node{Type: nodeType, Tok: tok, Data: data}
	adopt(node, children...)
	return node
}

func adopt(parent *Node, children ...*Node) {
	for _, child := range children {
		if child != nil {
			child.Parent = parent
		}
	}
}

func NewConstant(tok token.Token, typ *types.Basic, value interface{}) *Node {
	return newNode(tok, Constant, ConstantNode{Typ: typ, Value: value})
}
func NewID(tok token.Token, name string) *Node {
	return newNode(tok, ID, IDNode{Name: name})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right}, left, right)
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr}, expr)
}
func NewAssignment(tok token.Token, op token.Type, lhs, rhs *Node) *Node {
	return newNode(tok, Assignment, AssignmentNode{Op: op, Lhs: lhs, Rhs: rhs}, lhs, rhs)
}
func NewCast(tok token.Token, target *types.Basic, expr *Node) *Node {
	return newNode(tok, Cast, CastNode{Target: target, Expr: expr}, expr)
}
func NewArrayRef(tok token.Token, array, index *Node) *Node {
	return newNode(tok, ArrayRef, ArrayRefNode{Array: array, Index: index}, array, index)
}
func NewFuncCall(tok token.Token, callee *Node, args []*Node) *Node {
	node := newNode(tok, FuncCall, FuncCallNode{Callee: callee, Args: args}, callee)
	adopt(node, args...)
	return node
}
func NewExprList(tok token.Token, exprs []*Node) *Node {
	node := newNode(tok, ExprList, ExprListNode{Exprs: exprs})
	adopt(node, exprs...)
	return node
}
func NewInitList(tok token.Token, exprs []*Node) *Node {
	node := newNode(tok, InitList, InitListNode{Exprs: exprs})
	adopt(node, exprs...)
	return node
}
func NewProgram(tok token.Token, decls []*Node) *Node {
	node := newNode(tok, Program, ProgramNode{Decls: decls})
	adopt(node, decls...)
	return node
}
func NewGlobalDecl(tok token.Token, decls []*Node) *Node {
	node := newNode(tok, GlobalDecl, GlobalDeclNode{Decls: decls})
	adopt(node, decls...)
	return node
}
func NewDecl(tok token.Token, name string, typeSpec, init *Node) *Node {
	return newNode(tok, Decl, DeclNode{Name: name, TypeSpec: typeSpec, Init: init}, typeSpec, init)
}
func NewDeclList(tok token.Token, decls []*Node) *Node {
	node := newNode(tok, DeclList, DeclListNode{Decls: decls})
	adopt(node, decls...)
	return node
}
func NewVarDecl(tok token.Token, typ *types.Basic) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Typ: typ})
}
func NewArrayDecl(tok token.Token, elem, size *Node) *Node {
	return newNode(tok, ArrayDecl, ArrayDeclNode{Elem: elem, Size: size}, elem, size)
}
func NewFuncDecl(tok token.Token, ret *Node, params []*Node) *Node {
	node := newNode(tok, FuncDecl, FuncDeclNode{Ret: ret, Params: params}, ret)
	adopt(node, params...)
	return node
}
func NewFuncDef(tok token.Token, decl, body *Node) *Node {
	return newNode(tok, FuncDef, FuncDefNode{Decl: decl, Body: body}, decl, body)
}
func NewCompound(tok token.Token, items []*Node) *Node {
	node := newNode(tok, Compound, CompoundNode{Items: items})
	adopt(node, items...)
	return node
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody}, cond, thenBody, elseBody)
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body}, cond, body)
}
func NewFor(tok token.Token, init, cond, next, body *Node) *Node {
	return newNode(tok, For, ForNode{Init: init, Cond: cond, Next: next, Body: body}, init, cond, next, body)
}
func NewBreak(tok token.Token) *Node {
	return newNode(tok, Break, BreakNode{})
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr}, expr)
}
func NewAssert(tok token.Token, expr *Node) *Node {
	return newNode(tok, Assert, AssertNode{Expr: expr}, expr)
}
func NewPrint(tok token.Token, expr *Node) *Node {
	return newNode(tok, Print, PrintNode{Expr: expr}, expr)
}
func NewRead(tok token.Token, expr *Node) *Node {
	return newNode(tok, Read, ReadNode{Expr: expr}, expr)
}
func NewEmptyStatement(tok token.Token) *Node {
	return newNode(tok, EmptyStatement, EmptyStatementNode{})
}

// Children returns the direct children of n in source order, skipping
// absent optional parts
func Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	add := func(nodes ...*Node) {
		for _, c := range nodes {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	switch d := n.Data.(type) {
	case BinaryOpNode:
		add(d.Left, d.Right)
	case UnaryOpNode:
		add(d.Expr)
	case AssignmentNode:
		add(d.Lhs, d.Rhs)
	case CastNode:
		add(d.Expr)
	case ArrayRefNode:
		add(d.Array, d.Index)
	case FuncCallNode:
		add(d.Callee)
		add(d.Args...)
	case ExprListNode:
		add(d.Exprs...)
	case InitListNode:
		add(d.Exprs...)
	case ProgramNode:
		add(d.Decls...)
	case GlobalDeclNode:
		add(d.Decls...)
	case DeclNode:
		add(d.TypeSpec, d.Init)
	case DeclListNode:
		add(d.Decls...)
	case ArrayDeclNode:
		add(d.Elem, d.Size)
	case FuncDeclNode:
		add(d.Ret)
		add(d.Params...)
	case FuncDefNode:
		add(d.Decl, d.Body)
	case CompoundNode:
		add(d.Items...)
	case IfNode:
		add(d.Cond, d.ThenBody, d.ElseBody)
	case WhileNode:
		add(d.Cond, d.Body)
	case ForNode:
		add(d.Init, d.Cond, d.Next, d.Body)
	case ReturnNode:
		add(d.Expr)
	case AssertNode:
		add(d.Expr)
	case PrintNode:
		add(d.Expr)
	case ReadNode:
		add(d.Expr)
	}
	return out
}

// Inspect traverses the tree depth-first, calling f before visiting the
// children of each node. Returning false skips the children
func Inspect(n *Node, f func(*Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// IsExpr reports whether the node kind produces a value
func IsExpr(n *Node) bool {
	return n != nil && n.Type <= InitList
}
