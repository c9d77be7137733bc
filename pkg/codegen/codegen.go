package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/ucc/pkg/ast"
	"github.com/xplshn/ucc/pkg/config"
	"github.com/xplshn/ucc/pkg/ir"
	"github.com/xplshn/ucc/pkg/typeChecker"
	"github.com/xplshn/ucc/pkg/types"
)

// Context carries the state of one lowering run. Temporaries, label
// counters and local names are reset for every function; the text
// counter runs across the whole program
type Context struct {
	prog      *ir.Program
	info      *typeChecker.Info
	cfg       *config.Config
	textCount int

	currentFunc  *ir.Func
	currentBlock *ir.Block
	tempCount    int
	labelCounts  map[string]int
	breakStack   []*ir.Block
	retSlot      ir.Value
	retType      *types.Basic
	locals       map[*typeChecker.Symbol]ir.Value
	localNames   map[string]int
	taken        map[string]bool
}

func NewContext(cfg *config.Config, info *typeChecker.Info) *Context {
	return &Context{
		prog: &ir.Program{},
		info: info,
		cfg:  cfg,
	}
}

// GenerateIR lowers a checked tree. info must come from a successful
// typeChecker.Check of the same tree
func (ctx *Context) GenerateIR(root *ast.Node) (*ir.Program, error) {
	if ctx.info == nil {
		return nil, errors.New("codegen: no type information, run the type checker first")
	}
	prog, ok := root.Data.(ast.ProgramNode)
	if !ok {
		return nil, fmt.Errorf("codegen: expected a Program node, got %s", root.Type)
	}
	for _, decl := range prog.Decls {
		switch d := decl.Data.(type) {
		case ast.GlobalDeclNode:
			for _, g := range d.Decls {
				ctx.codegenGlobalDecl(g)
			}
		case ast.FuncDefNode:
			ctx.codegenFuncDef(decl, d)
		}
	}
	return ctx.prog, nil
}

func internalError(format string, args ...interface{}) {
	panic(fmt.Sprintf("internal compiler error: "+format, args...))
}

// --- Naming ---

func (ctx *Context) newTemp() ir.Temp {
	ctx.tempCount++
	return ir.Temp(ctx.tempCount)
}

// newText names a text-section entry: @.str.0, @.const_v.1, ...
func (ctx *Context) newText(kind string) ir.Global {
	name := fmt.Sprintf(".%s.%d", kind, ctx.textCount)
	ctx.textCount++
	return ir.Global(name)
}

// labelSuffix numbers repeated constructs within a function: "", ".1",
// ".2". The suffix is chosen so that none of the construct's block names
// is already used by a label or a local slot
func (ctx *Context) labelSuffix(names ...string) string {
	for {
		n := ctx.labelCounts[names[0]]
		ctx.labelCounts[names[0]]++
		s := ""
		if n > 0 {
			s = fmt.Sprintf(".%d", n)
		}
		if !ctx.anyTaken(names, s) {
			for _, name := range names {
				ctx.taken[name+s] = true
			}
			return s
		}
	}
}

func (ctx *Context) anyTaken(names []string, suffix string) bool {
	for _, name := range names {
		if ctx.taken[name+suffix] {
			return true
		}
	}
	return false
}

// localSlot gives every local symbol its own %name. A local whose name is
// already used in the function, by another local or by a block label,
// becomes %name.1, %name.2, ...
func (ctx *Context) localSlot(sym *typeChecker.Symbol) ir.Local {
	for {
		n := ctx.localNames[sym.Name]
		ctx.localNames[sym.Name]++
		name := sym.Name
		if n > 0 {
			name = fmt.Sprintf("%s.%d", sym.Name, n)
		}
		if !ctx.taken[name] {
			ctx.taken[name] = true
			return ir.Local(name)
		}
	}
}

func (ctx *Context) symbolAddr(sym *typeChecker.Symbol) ir.Value {
	if sym.Global {
		return ir.Global(sym.Name)
	}
	addr, ok := ctx.locals[sym]
	if !ok {
		internalError("no storage for local '%s'", sym.Name)
	}
	return addr
}

// --- Types ---

func (ctx *Context) typeOf(n *ast.Node) types.Type {
	t := ctx.info.TypeOf(n)
	if t == nil {
		internalError("%s at %d:%d has no resolved type", n.Type, n.Tok.Line, n.Tok.Column)
	}
	return t
}

// basic strips array and function wrappers down to the scalar type
func basic(t types.Type) *types.Basic {
	switch t := t.(type) {
	case *types.Basic:
		return t
	case *types.Array:
		return basic(t.Elem)
	case *types.Function:
		return basic(t.Ret)
	}
	internalError("unexpected type %v", t)
	return nil
}

func (ctx *Context) basicOf(n *ast.Node) *types.Basic { return basic(ctx.typeOf(n)) }

func (ctx *Context) symbolOf(n *ast.Node) *typeChecker.Symbol {
	sym := ctx.info.Uses[n]
	if sym == nil {
		sym = ctx.info.Defs[n]
	}
	if sym == nil {
		internalError("%s at %d:%d was never resolved", n.Type, n.Tok.Line, n.Tok.Column)
	}
	return sym
}

// --- Blocks ---

func (ctx *Context) newBlock(kind string, cond bool) *ir.Block {
	return ctx.currentFunc.NewBlock(kind, cond)
}

// startBlock places b after the current block and opens it with its label
func (ctx *Context) startBlock(b *ir.Block) {
	if ctx.currentBlock != nil {
		ctx.currentBlock.Next = b
	}
	ctx.currentBlock = b
	b.Append(&ir.Instruction{Op: ir.OpLabel, Args: []ir.Value{ir.Label(b.Label)}})
}

// addInstr appends to the current block. Code following a control
// transfer lands in a fresh block nothing branches to
func (ctx *Context) addInstr(in *ir.Instruction) {
	if ctx.currentBlock.Terminated() {
		ctx.startBlock(ctx.newBlock("unreachable"+ctx.labelSuffix("unreachable"), false))
	}
	ctx.currentBlock.Append(in)
}

// jumpTo ends the current block with a jump unless it already ended
func (ctx *Context) jumpTo(target *ir.Block) {
	if ctx.currentBlock.Terminated() {
		return
	}
	ctx.currentBlock.Append(&ir.Instruction{Op: ir.OpJump, Args: []ir.Value{ir.Label(target.Label)}})
	ir.Link(ctx.currentBlock, target)
}

func (ctx *Context) branch(cond ir.Value, taken, fallThrough *ir.Block) {
	ctx.addInstr(&ir.Instruction{
		Op:   ir.OpCBranch,
		Args: []ir.Value{cond, ir.Label(taken.Label), ir.Label(fallThrough.Label)},
	})
	ir.LinkCond(ctx.currentBlock, taken, fallThrough)
}

// emit appends a typed instruction that produces a new temporary
func (ctx *Context) emit(op ir.Op, typ *types.Basic, args ...ir.Value) ir.Temp {
	res := ctx.newTemp()
	ctx.addInstr(&ir.Instruction{Op: op, Typ: typ, Result: res, Args: args})
	return res
}

func (ctx *Context) literal(typ *types.Basic, v ir.Value) ir.Temp {
	return ctx.emit(ir.OpLiteral, typ, v)
}

// --- Declarations ---

func constValue(c ast.ConstantNode) ir.Value {
	switch v := c.Value.(type) {
	case int64:
		return ir.IntConst(v)
	case float64:
		return ir.FloatConst(v)
	case rune:
		return ir.CharConst(v)
	case bool:
		return ir.BoolConst(v)
	case string:
		return ir.StringConst(v)
	}
	internalError("constant of unknown kind %T", c.Value)
	return nil
}

// initValue renders a constant initializer, nesting lists as they nest
func initValue(n *ast.Node) ir.Value {
	switch d := n.Data.(type) {
	case ast.ConstantNode:
		return constValue(d)
	case ast.InitListNode:
		list := make(ir.ListConst, len(d.Exprs))
		for i, e := range d.Exprs {
			list[i] = initValue(e)
		}
		return list
	}
	internalError("%s is not a constant initializer", n.Type)
	return nil
}

func (ctx *Context) addText(in *ir.Instruction) { ctx.prog.Text = append(ctx.prog.Text, in) }

func (ctx *Context) codegenGlobalDecl(node *ast.Node) {
	d := node.Data.(ast.DeclNode)
	sym := ctx.symbolOf(node)
	in := &ir.Instruction{Op: ir.OpGlobal, Result: ir.Global(d.Name)}
	switch t := sym.Type.(type) {
	case *types.Function:
		return
	case *types.Array:
		in.Typ, in.Dims = basic(t), t.Dims
	case *types.Basic:
		in.Typ = t
	}
	if d.Init != nil {
		in.Args = []ir.Value{initValue(d.Init)}
	}
	ctx.addText(in)
}

func (ctx *Context) codegenLocalDecl(node *ast.Node) {
	d := node.Data.(ast.DeclNode)
	sym := ctx.symbolOf(node)
	if _, ok := sym.Type.(*types.Function); ok {
		return
	}
	slot := ctx.localSlot(sym)
	ctx.locals[sym] = slot

	switch t := sym.Type.(type) {
	case *types.Basic:
		ctx.addInstr(&ir.Instruction{Op: ir.OpAlloc, Typ: t, Args: []ir.Value{slot}})
		if d.Init != nil {
			v := ctx.codegenExpr(d.Init)
			ctx.addInstr(&ir.Instruction{Op: ir.OpStore, Typ: t, Args: []ir.Value{v, slot}})
		}
	case *types.Array:
		elem := basic(t)
		ctx.addInstr(&ir.Instruction{Op: ir.OpAlloc, Typ: elem, Dims: t.Dims, Args: []ir.Value{slot}})
		if d.Init == nil {
			return
		}
		var src ir.Value
		if d.Init.Type == ast.ID {
			src = ctx.symbolAddr(ctx.symbolOf(d.Init))
		} else {
			name := ctx.newText("const_" + d.Name)
			ctx.addText(&ir.Instruction{Op: ir.OpGlobal, Typ: elem, Dims: t.Dims, Result: name, Args: []ir.Value{initValue(d.Init)}})
			src = name
		}
		ctx.addInstr(&ir.Instruction{Op: ir.OpStore, Typ: elem, Dims: t.Dims, Args: []ir.Value{src, slot}})
	}
}

// codegenFuncDef builds one CFG: a prologue block with the definition,
// the body blocks, and the %exit block that returns
func (ctx *Context) codegenFuncDef(node *ast.Node, d ast.FuncDefNode) {
	sym := ctx.symbolOf(d.Decl)
	fnType := sym.Type.(*types.Function)
	name := d.Decl.Data.(ast.DeclNode).Name

	fn := ir.NewFunc(name)
	ctx.prog.Funcs = append(ctx.prog.Funcs, fn)
	ctx.currentFunc, ctx.currentBlock = fn, nil
	ctx.tempCount = 0
	ctx.labelCounts = make(map[string]int)
	ctx.localNames = make(map[string]int)
	ctx.taken = map[string]bool{"entry": true, "exit": true}
	ctx.locals = make(map[*typeChecker.Symbol]ir.Value)
	ctx.breakStack = nil
	ctx.retType = basic(fnType.Ret)

	fn.Entry = ctx.newBlock("entry", false)
	fn.Exit = ctx.newBlock("exit", false)
	ctx.currentBlock = fn.Entry

	params := d.Decl.Data.(ast.DeclNode).TypeSpec.Data.(ast.FuncDeclNode).Params
	define := &ir.Instruction{Op: ir.OpDefine, Typ: ctx.retType, Args: []ir.Value{ir.Global(name)}}
	temps := make([]ir.Temp, len(params))
	for i, p := range params {
		temps[i] = ctx.newTemp()
		_, isArray := ctx.symbolOf(p).Type.(*types.Array)
		define.Args = append(define.Args, ir.Param{Typ: ctx.basicOf(p), Ptr: isArray, Temp: temps[i]})
	}
	fn.Entry.Append(define)
	fn.Entry.Append(&ir.Instruction{Op: ir.OpLabel, Args: []ir.Value{ir.Label("entry")}})

	ctx.retSlot = nil
	if ctx.retType != types.Void {
		slot := ctx.newTemp()
		ctx.addInstr(&ir.Instruction{Op: ir.OpAlloc, Typ: ctx.retType, Args: []ir.Value{slot}})
		ctx.retSlot = slot
	}
	for i, p := range params {
		psym := ctx.symbolOf(p)
		if _, isArray := psym.Type.(*types.Array); isArray {
			ctx.locals[psym] = temps[i]
			continue
		}
		slot := ctx.localSlot(psym)
		ctx.locals[psym] = slot
		typ := ctx.basicOf(p)
		ctx.addInstr(&ir.Instruction{Op: ir.OpAlloc, Typ: typ, Args: []ir.Value{slot}})
		ctx.addInstr(&ir.Instruction{Op: ir.OpStore, Typ: typ, Args: []ir.Value{temps[i], slot}})
	}

	for _, item := range d.Body.Data.(ast.CompoundNode).Items {
		ctx.codegenStmt(item)
	}

	ctx.jumpTo(fn.Exit)
	ctx.startBlock(fn.Exit)
	if ctx.retSlot != nil {
		v := ctx.emit(ir.OpLoad, ctx.retType, ctx.retSlot)
		ctx.addInstr(&ir.Instruction{Op: ir.OpReturn, Typ: ctx.retType, Args: []ir.Value{v}})
	} else {
		ctx.addInstr(&ir.Instruction{Op: ir.OpReturn, Typ: types.Void})
	}
	ctx.currentFunc, ctx.currentBlock = nil, nil
}

// --- Statements ---

func (ctx *Context) codegenStmt(node *ast.Node) {
	if node == nil {
		return
	}
	switch d := node.Data.(type) {
	case ast.DeclNode:
		ctx.codegenLocalDecl(node)
	case ast.DeclListNode:
		for _, decl := range d.Decls {
			ctx.codegenLocalDecl(decl)
		}
	case ast.CompoundNode:
		for _, item := range d.Items {
			ctx.codegenStmt(item)
		}
	case ast.IfNode:
		ctx.codegenIf(d)
	case ast.WhileNode:
		ctx.codegenWhile(d)
	case ast.ForNode:
		ctx.codegenFor(d)
	case ast.BreakNode:
		if len(ctx.breakStack) == 0 {
			internalError("break at %d:%d outside of a loop", node.Tok.Line, node.Tok.Column)
		}
		ctx.jumpTo(ctx.breakStack[len(ctx.breakStack)-1])
	case ast.ReturnNode:
		ctx.codegenReturn(d)
	case ast.AssertNode:
		ctx.codegenAssert(d)
	case ast.PrintNode:
		ctx.codegenPrint(d)
	case ast.ReadNode:
		ctx.codegenRead(d)
	case ast.EmptyStatementNode:
	default:
		if !ast.IsExpr(node) {
			internalError("unexpected %s in statement position", node.Type)
		}
		ctx.codegenExpr(node)
	}
}
