package codegen

import (
	"fmt"

	"github.com/xplshn/ucc/pkg/ast"
	"github.com/xplshn/ucc/pkg/config"
	"github.com/xplshn/ucc/pkg/ir"
	"github.com/xplshn/ucc/pkg/token"
	"github.com/xplshn/ucc/pkg/types"
)

func (ctx *Context) codegenIf(d ast.IfNode) {
	s := ctx.labelSuffix("if", "if.then", "if.end", "else")
	condBlock := ctx.newBlock("if"+s, true)
	thenBlock := ctx.newBlock("if.then"+s, false)
	endBlock := ctx.newBlock("if.end"+s, false)
	falseBlock := endBlock
	var elseBlock *ir.Block
	if d.ElseBody != nil {
		elseBlock = ctx.newBlock("else"+s, false)
		falseBlock = elseBlock
	}

	ctx.jumpTo(condBlock)
	ctx.startBlock(condBlock)
	ctx.branch(ctx.codegenExpr(d.Cond), thenBlock, falseBlock)

	ctx.startBlock(thenBlock)
	ctx.codegenStmt(d.ThenBody)
	ctx.jumpTo(endBlock)

	if elseBlock != nil {
		ctx.startBlock(elseBlock)
		ctx.codegenStmt(d.ElseBody)
		ctx.jumpTo(endBlock)
	}
	ctx.startBlock(endBlock)
}

func (ctx *Context) codegenWhile(d ast.WhileNode) {
	s := ctx.labelSuffix("while.cond", "while.body", "while.end")
	condBlock := ctx.newBlock("while.cond"+s, true)
	bodyBlock := ctx.newBlock("while.body"+s, false)
	endBlock := ctx.newBlock("while.end"+s, false)

	ctx.jumpTo(condBlock)
	ctx.startBlock(condBlock)
	ctx.branch(ctx.codegenExpr(d.Cond), bodyBlock, endBlock)

	ctx.breakStack = append(ctx.breakStack, endBlock)
	ctx.startBlock(bodyBlock)
	ctx.codegenStmt(d.Body)
	ctx.jumpTo(condBlock)
	ctx.breakStack = ctx.breakStack[:len(ctx.breakStack)-1]

	ctx.startBlock(endBlock)
}

func (ctx *Context) codegenFor(d ast.ForNode) {
	ctx.codegenStmt(d.Init)

	s := ctx.labelSuffix("for.cond", "for.body", "for.inc", "for.end")
	condBlock := ctx.newBlock("for.cond"+s, true)
	bodyBlock := ctx.newBlock("for.body"+s, false)
	incBlock := ctx.newBlock("for.inc"+s, false)
	endBlock := ctx.newBlock("for.end"+s, false)

	ctx.jumpTo(condBlock)
	ctx.startBlock(condBlock)
	var cond ir.Value
	if d.Cond != nil {
		cond = ctx.codegenExpr(d.Cond)
	} else {
		cond = ctx.literal(types.Bool, ir.BoolConst(true))
	}
	ctx.branch(cond, bodyBlock, endBlock)

	ctx.breakStack = append(ctx.breakStack, endBlock)
	ctx.startBlock(bodyBlock)
	ctx.codegenStmt(d.Body)
	ctx.jumpTo(incBlock)
	ctx.breakStack = ctx.breakStack[:len(ctx.breakStack)-1]

	ctx.startBlock(incBlock)
	if d.Next != nil {
		ctx.codegenExpr(d.Next)
	}
	ctx.jumpTo(condBlock)
	ctx.startBlock(endBlock)
}

func (ctx *Context) codegenReturn(d ast.ReturnNode) {
	if d.Expr != nil {
		v := ctx.codegenExpr(d.Expr)
		if ctx.retSlot != nil {
			ctx.addInstr(&ir.Instruction{Op: ir.OpStore, Typ: ctx.retType, Args: []ir.Value{v, ctx.retSlot}})
		}
	}
	ctx.jumpTo(ctx.currentFunc.Exit)
}

// codegenAssert branches on the condition; the false side optionally
// prints where the assertion was and leaves through %exit
func (ctx *Context) codegenAssert(d ast.AssertNode) {
	s := ctx.labelSuffix("assert", "assert.false", "assert.true")
	condBlock := ctx.newBlock("assert"+s, true)
	falseBlock := ctx.newBlock("assert.false"+s, false)
	trueBlock := ctx.newBlock("assert.true"+s, false)

	ctx.jumpTo(condBlock)
	ctx.startBlock(condBlock)
	ctx.branch(ctx.codegenExpr(d.Expr), trueBlock, falseBlock)

	ctx.startBlock(falseBlock)
	if ctx.cfg.IsFeatureEnabled(config.FeatAssertMessages) {
		msg := ctx.newText("str")
		text := fmt.Sprintf("assertion_fail on %d:%d", d.Expr.Tok.Line, d.Expr.Tok.Column)
		ctx.addText(&ir.Instruction{Op: ir.OpGlobal, Typ: types.String, Result: msg, Args: []ir.Value{ir.StringConst(text)}})
		ctx.addInstr(&ir.Instruction{Op: ir.OpPrint, Typ: types.String, Args: []ir.Value{msg}})
	}
	ctx.jumpTo(ctx.currentFunc.Exit)

	ctx.startBlock(trueBlock)
}

func exprList(n *ast.Node) []*ast.Node {
	if list, ok := n.Data.(ast.ExprListNode); ok {
		return list.Exprs
	}
	return []*ast.Node{n}
}

func (ctx *Context) codegenPrint(d ast.PrintNode) {
	if d.Expr == nil {
		ctx.addInstr(&ir.Instruction{Op: ir.OpPrint, Typ: types.Void})
		return
	}
	for _, e := range exprList(d.Expr) {
		v := ctx.codegenExpr(e)
		ctx.addInstr(&ir.Instruction{Op: ir.OpPrint, Typ: ctx.basicOf(e), Args: []ir.Value{v}})
	}
}

func (ctx *Context) codegenRead(d ast.ReadNode) {
	for _, e := range exprList(d.Expr) {
		addr, ptr := ctx.codegenLvalue(e)
		ctx.addInstr(&ir.Instruction{Op: ir.OpRead, Typ: ctx.basicOf(e), Ptr: ptr, Args: []ir.Value{addr}})
	}
}

// --- Expressions ---

var binaryOps = map[token.Type]ir.Op{
	token.Plus:   ir.OpAdd,
	token.Minus:  ir.OpSub,
	token.Star:   ir.OpMul,
	token.Slash:  ir.OpDiv,
	token.Rem:    ir.OpMod,
	token.Lt:     ir.OpLt,
	token.Lte:    ir.OpLe,
	token.Gt:     ir.OpGt,
	token.Gte:    ir.OpGe,
	token.EqEq:   ir.OpEq,
	token.Neq:    ir.OpNe,
	token.AndAnd: ir.OpAnd,
	token.OrOr:   ir.OpOr,
}

var compoundOps = map[token.Type]ir.Op{
	token.PlusEq:  ir.OpAdd,
	token.MinusEq: ir.OpSub,
	token.StarEq:  ir.OpMul,
	token.SlashEq: ir.OpDiv,
	token.RemEq:   ir.OpMod,
}

// codegenExpr lowers an expression and returns where its value lives.
// Array-typed expressions yield an address instead of a loaded value
func (ctx *Context) codegenExpr(node *ast.Node) ir.Value {
	switch d := node.Data.(type) {
	case ast.ConstantNode:
		if d.Typ == types.String {
			name := ctx.newText("str")
			ctx.addText(&ir.Instruction{Op: ir.OpGlobal, Typ: types.String, Result: name, Args: []ir.Value{constValue(d)}})
			return name
		}
		return ctx.literal(d.Typ, constValue(d))

	case ast.IDNode:
		sym := ctx.symbolOf(node)
		addr := ctx.symbolAddr(sym)
		if _, isArray := sym.Type.(*types.Array); isArray {
			return addr
		}
		return ctx.emit(ir.OpLoad, basic(sym.Type), addr)

	case ast.BinaryOpNode:
		op, ok := binaryOps[d.Op]
		if !ok {
			internalError("binary operator %s has no lowering", d.Op)
		}
		left := ctx.codegenExpr(d.Left)
		right := ctx.codegenExpr(d.Right)
		if _, isArray := ctx.typeOf(d.Left).(*types.Array); isArray {
			res := ctx.newTemp()
			ctx.addInstr(&ir.Instruction{Op: op, Typ: ctx.basicOf(d.Left), Ptr: true, Result: res, Args: []ir.Value{left, right}})
			return res
		}
		return ctx.emit(op, ctx.basicOf(d.Left), left, right)

	case ast.UnaryOpNode:
		return ctx.codegenUnaryOp(d)

	case ast.AssignmentNode:
		return ctx.codegenAssign(d)

	case ast.CastNode:
		return ctx.codegenCast(d)

	case ast.ArrayRefNode:
		addr := ctx.codegenElemAddr(node)
		if _, partial := ctx.typeOf(node).(*types.Array); partial {
			return addr
		}
		res := ctx.newTemp()
		ctx.addInstr(&ir.Instruction{Op: ir.OpLoad, Typ: ctx.basicOf(node), Ptr: true, Result: res, Args: []ir.Value{addr}})
		return res

	case ast.FuncCallNode:
		return ctx.codegenFuncCall(d)

	case ast.ExprListNode:
		var last ir.Value
		for _, e := range d.Exprs {
			last = ctx.codegenExpr(e)
		}
		return last
	}
	internalError("unexpected %s in expression position", node.Type)
	return nil
}

// codegenLvalue returns the storage of an ID or the element address of
// an ArrayRef; ptr tells which
func (ctx *Context) codegenLvalue(node *ast.Node) (addr ir.Value, ptr bool) {
	switch node.Type {
	case ast.ID:
		return ctx.symbolAddr(ctx.symbolOf(node)), false
	case ast.ArrayRef:
		return ctx.codegenElemAddr(node), true
	}
	internalError("%s is not assignable", node.Type)
	return nil, false
}

// codegenElemAddr flattens a chain of subscripts a[i][j]... into one
// row-major index and emits a single elem instruction
func (ctx *Context) codegenElemAddr(node *ast.Node) ir.Value {
	var indices []*ast.Node
	base := node
	for base.Type == ast.ArrayRef {
		ref := base.Data.(ast.ArrayRefNode)
		indices = append([]*ast.Node{ref.Index}, indices...)
		base = ref.Array
	}
	arr, ok := ctx.typeOf(base).(*types.Array)
	if !ok {
		internalError("subscript of non-array %s", base.Type)
	}
	baseAddr := ctx.codegenExpr(base)

	var flat ir.Value
	for k, idx := range indices {
		v := ctx.codegenExpr(idx)
		if flat == nil {
			flat = v
			continue
		}
		stride := ctx.literal(types.Int, ir.IntConst(arr.Dims[k]))
		flat = ctx.emit(ir.OpAdd, types.Int, ctx.emit(ir.OpMul, types.Int, flat, stride), v)
	}
	if rest := types.NewArray(arr.Elem, arr.Dims[len(indices):]...).Size(); rest > 1 {
		stride := ctx.literal(types.Int, ir.IntConst(rest))
		flat = ctx.emit(ir.OpMul, types.Int, flat, stride)
	}
	return ctx.emit(ir.OpElem, basic(arr), baseAddr, flat)
}

func (ctx *Context) codegenUnaryOp(d ast.UnaryOpNode) ir.Value {
	typ := ctx.basicOf(d.Expr)
	switch d.Op {
	case token.Not:
		return ctx.emit(ir.OpNot, types.Bool, ctx.codegenExpr(d.Expr))
	case token.Minus:
		v := ctx.codegenExpr(d.Expr)
		zero := ctx.literal(typ, zeroOf(typ))
		return ctx.emit(ir.OpSub, typ, zero, v)
	case token.Inc, token.Dec, token.PostInc, token.PostDec:
		addr, ptr := ctx.codegenLvalue(d.Expr)
		old := ctx.newTemp()
		ctx.addInstr(&ir.Instruction{Op: ir.OpLoad, Typ: typ, Ptr: ptr, Result: old, Args: []ir.Value{addr}})
		one := ctx.literal(typ, oneOf(typ))
		op := ir.OpAdd
		if d.Op == token.Dec || d.Op == token.PostDec {
			op = ir.OpSub
		}
		updated := ctx.emit(op, typ, old, one)
		ctx.addInstr(&ir.Instruction{Op: ir.OpStore, Typ: typ, Ptr: ptr, Args: []ir.Value{updated, addr}})
		if d.Op == token.PostInc || d.Op == token.PostDec {
			return old
		}
		return updated
	}
	// unary plus, and * & on arrays, leave the value alone
	return ctx.codegenExpr(d.Expr)
}

func zeroOf(t *types.Basic) ir.Value {
	switch t {
	case types.Float:
		return ir.FloatConst(0)
	case types.Char:
		return ir.CharConst(0)
	}
	return ir.IntConst(0)
}

func oneOf(t *types.Basic) ir.Value {
	switch t {
	case types.Float:
		return ir.FloatConst(1)
	case types.Char:
		return ir.CharConst(1)
	}
	return ir.IntConst(1)
}

func isScalar(t *types.Basic) bool {
	return t == types.Int || t == types.Float || t == types.Char || t == types.Bool
}

// codegenCast converts between the scalar types. Conversion opcodes carry
// the target type; a cast to bool compares against zero. Casts involving
// strings or arrays have no runtime form and pass the value through
func (ctx *Context) codegenCast(d ast.CastNode) ir.Value {
	v := ctx.codegenExpr(d.Expr)
	from, ok := ctx.typeOf(d.Expr).(*types.Basic)
	to := d.Target
	if !ok || from == to || !isScalar(from) || !isScalar(to) {
		return v
	}
	switch {
	case to == types.Bool:
		zero := ctx.literal(from, zeroOf(from))
		return ctx.emit(ir.OpNe, from, v, zero)
	case from == types.Bool && to == types.Float:
		return ctx.emit(ir.OpSIToF, types.Float, ctx.emit(ir.OpZExt, types.Int, v))
	case from == types.Bool:
		return ctx.emit(ir.OpZExt, to, v)
	case from == types.Float:
		return ctx.emit(ir.OpFToSI, to, v)
	case to == types.Float:
		return ctx.emit(ir.OpSIToF, to, v)
	case to == types.Char:
		return ctx.emit(ir.OpTrunc, to, v)
	}
	return ctx.emit(ir.OpSExt, to, v)
}

func (ctx *Context) codegenAssign(d ast.AssignmentNode) ir.Value {
	v := ctx.codegenExpr(d.Rhs)
	typ := ctx.basicOf(d.Lhs)
	addr, ptr := ctx.codegenLvalue(d.Lhs)
	if op, ok := compoundOps[d.Op]; ok {
		cur := ctx.newTemp()
		ctx.addInstr(&ir.Instruction{Op: ir.OpLoad, Typ: typ, Ptr: ptr, Result: cur, Args: []ir.Value{addr}})
		v = ctx.emit(op, typ, cur, v)
	}
	ctx.addInstr(&ir.Instruction{Op: ir.OpStore, Typ: typ, Ptr: ptr, Args: []ir.Value{v, addr}})
	return v
}

// codegenFuncCall evaluates every argument left to right, then passes
// them with param instructions right before the call
func (ctx *Context) codegenFuncCall(d ast.FuncCallNode) ir.Value {
	args := make([]ir.Value, len(d.Args))
	for i, arg := range d.Args {
		args[i] = ctx.codegenExpr(arg)
	}
	for i, arg := range d.Args {
		_, isArray := ctx.typeOf(arg).(*types.Array)
		ctx.addInstr(&ir.Instruction{Op: ir.OpParam, Typ: ctx.basicOf(arg), Ptr: isArray, Args: []ir.Value{args[i]}})
	}

	sym := ctx.symbolOf(d.Callee)
	ret := basic(sym.Type)
	callee := ir.Global(sym.Name)
	if ret == types.Void {
		ctx.addInstr(&ir.Instruction{Op: ir.OpCall, Typ: ret, Args: []ir.Value{callee}})
		return nil
	}
	return ctx.emit(ir.OpCall, ret, callee)
}
