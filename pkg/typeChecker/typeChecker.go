package typeChecker

import (
	"fmt"

	"github.com/xplshn/ucc/pkg/ast"
	"github.com/xplshn/ucc/pkg/config"
	"github.com/xplshn/ucc/pkg/token"
	"github.com/xplshn/ucc/pkg/types"
)

// Info holds everything the checker learned about a tree. Nodes are
// never modified; Types has an entry for every expression and declaration
type Info struct {
	Types   map[*ast.Node]types.Type
	Uses    map[*ast.Node]*Symbol // ID node -> symbol it resolved to
	Defs    map[*ast.Node]*Symbol // Decl node -> symbol it introduced
	Symbols *SymbolTable
}

// TypeOf returns the resolved type of n, or nil when n was never checked
func (info *Info) TypeOf(n *ast.Node) types.Type { return info.Types[n] }

// Warning is a non-fatal finding, reported after a successful check
type Warning struct {
	Kind config.Warning
	Tok  token.Token
	Msg  string
}

type TypeChecker struct {
	cfg         *config.Config
	symtab      *SymbolTable
	scopes      scoper
	info        *Info
	currentFunc *Symbol
	warnings    []Warning
}

func NewTypeChecker(cfg *config.Config) *TypeChecker {
	symtab := NewSymbolTable()
	tc := &TypeChecker{
		cfg:    cfg,
		symtab: symtab,
		info: &Info{
			Types:   make(map[*ast.Node]types.Type),
			Uses:    make(map[*ast.Node]*Symbol),
			Defs:    make(map[*ast.Node]*Symbol),
			Symbols: symtab,
		},
	}
	if cfg.IsFeatureEnabled(config.FeatLexicalScopes) {
		tc.scopes = newLexicalScopes()
	} else {
		tc.scopes = &legacyScopes{}
	}
	return tc
}

// Check validates root, a Program node. It stops at the first violation
// and returns it as a *Diagnostic
func (tc *TypeChecker) Check(root *ast.Node) (info *Info, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			info, err = nil, b.diag
		}
	}()
	prog, ok := root.Data.(ast.ProgramNode)
	if !ok {
		tc.fail(ErrUndefined, root.Tok, "", nil, nil)
	}
	for _, decl := range prog.Decls {
		switch d := decl.Data.(type) {
		case ast.GlobalDeclNode:
			for _, g := range d.Decls {
				tc.checkDecl(g, true)
			}
		case ast.FuncDefNode:
			tc.checkFuncDef(decl)
		default:
			tc.fail(ErrUndefined, decl.Tok, "", nil, nil)
		}
	}
	for _, sym := range tc.symtab.Symbols() {
		if _, ok := sym.Type.(*types.Function); ok && !sym.Defined {
			tc.warn(config.WarnExtra, sym.Node.Tok, "function '%s' is declared but never defined", sym.Name)
		}
	}
	return tc.info, nil
}

// Warnings returns the warnings gathered so far, in source order
func (tc *TypeChecker) Warnings() []Warning { return tc.warnings }

func typeName(t types.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func (tc *TypeChecker) fail(code Code, tok token.Token, name string, ltype, rtype types.Type) {
	panic(bailout{&Diagnostic{
		Code: code,
		Msg:  code.Message(name, typeName(ltype), typeName(rtype)),
		Tok:  tok,
	}})
}

func (tc *TypeChecker) warn(w config.Warning, tok token.Token, format string, args ...interface{}) {
	if !tc.cfg.IsWarningEnabled(w) {
		return
	}
	tc.warnings = append(tc.warnings, Warning{Kind: w, Tok: tok, Msg: fmt.Sprintf(format, args...)})
}

func (tc *TypeChecker) record(n *ast.Node, t types.Type) types.Type {
	tc.info.Types[n] = t
	return t
}

func (tc *TypeChecker) resolve(name string) *Symbol {
	return tc.symtab.Resolve(name, tc.scopes.chain())
}

// declare adds a variable or parameter introduced by node
func (tc *TypeChecker) declare(node *ast.Node, name string, typ types.Type, global bool) *Symbol {
	scope := tc.scopes.current()
	if global {
		scope = 0
	}
	if prev := tc.resolve(name); prev != nil && prev.Scope != scope {
		tc.warn(config.WarnShadow, node.Tok, "declaration of '%s' shadows a previous declaration", name)
	}
	sym := &Symbol{Name: name, Type: typ, Scope: scope, Global: global, Node: node}
	if _, ok := tc.symtab.Declare(sym); !ok {
		tc.fail(ErrRedeclared, node.Tok, name, nil, nil)
	}
	tc.info.Defs[node] = sym
	tc.record(node, typ)
	return sym
}

// declareFunc binds a function name in the global scope. A prototype may
// be completed once by a definition with the same signature
func (tc *TypeChecker) declareFunc(node *ast.Node, name string, fn *types.Function, paramNames []string, defining bool) *Symbol {
	if existing := tc.symtab.Lookup(name, 0); existing != nil {
		ef, ok := existing.Type.(*types.Function)
		if !ok || !types.SameSignature(ef, fn) || (existing.Defined && defining) {
			tc.fail(ErrRedeclared, node.Tok, name, nil, nil)
		}
		if defining {
			existing.Defined, existing.Node, existing.ParamNames = true, node, paramNames
		}
		tc.info.Defs[node] = existing
		tc.record(node, existing.Type)
		return existing
	}
	sym := &Symbol{Name: name, Type: fn, Scope: 0, Global: true, Node: node, ParamNames: paramNames, Defined: defining}
	tc.symtab.Declare(sym)
	tc.info.Defs[node] = sym
	tc.record(node, fn)
	return sym
}

// --- Declarations ---

func (tc *TypeChecker) checkDecl(node *ast.Node, global bool) {
	d := node.Data.(ast.DeclNode)
	switch spec := d.TypeSpec.Data.(type) {
	case ast.VarDeclNode:
		tc.checkScalarDecl(node, d, spec.Typ, global)
	case ast.ArrayDeclNode:
		tc.checkArrayDecl(node, d, global)
	case ast.FuncDeclNode:
		fn, names := tc.funcType(d.TypeSpec)
		tc.declareFunc(node, d.Name, fn, names, false)
		tc.scopes.enterFunction()
		tc.declareParams(d.TypeSpec)
		tc.scopes.exitFunction()
	default:
		tc.fail(ErrUndefined, node.Tok, "", nil, nil)
	}
}

func (tc *TypeChecker) checkScalarDecl(node *ast.Node, d ast.DeclNode, typ *types.Basic, global bool) {
	scope := tc.scopes.current()
	if global {
		scope = 0
	}
	if tc.symtab.Lookup(d.Name, scope) != nil {
		tc.fail(ErrRedeclared, node.Tok, d.Name, nil, nil)
	}
	if d.Init != nil {
		if d.Init.Type == ast.InitList {
			tc.fail(ErrInitNotSingle, node.Tok, d.Name, nil, nil)
		}
		if global && d.Init.Type != ast.Constant {
			tc.fail(ErrNotConstant, d.Init.Tok, "", nil, nil)
		}
		if t := tc.checkExpr(d.Init); !types.Equal(t, typ) {
			tc.fail(ErrInitTypeMismatch, node.Tok, d.Name, nil, nil)
		}
	}
	tc.declare(node, d.Name, typ, global)
}

// arrayShape flattens nested ArrayDecl nodes into an element type and
// dimensions, outermost first. Unsized dimensions are 0
func (tc *TypeChecker) arrayShape(spec *ast.Node) (*types.Basic, []int) {
	var dims []int
	for spec.Type == ast.ArrayDecl {
		d := spec.Data.(ast.ArrayDeclNode)
		size := 0
		if d.Size != nil {
			size = tc.constSize(d.Size)
		}
		dims = append(dims, size)
		spec = d.Elem
	}
	return spec.Data.(ast.VarDeclNode).Typ, dims
}

func (tc *TypeChecker) constSize(n *ast.Node) int {
	c, ok := n.Data.(ast.ConstantNode)
	if !ok {
		tc.fail(ErrNotConstant, n.Tok, "", nil, nil)
	}
	if c.Typ != types.Int {
		tc.fail(ErrSubscriptNotInt, n.Tok, "", c.Typ, nil)
	}
	tc.record(n, types.Int)
	size := c.Value.(int64)
	if size <= 0 {
		tc.fail(ErrArrayDimMismatch, n.Tok, "", nil, nil)
	}
	return int(size)
}

func (tc *TypeChecker) checkArrayDecl(node *ast.Node, d ast.DeclNode, global bool) {
	elem, dims := tc.arrayShape(d.TypeSpec)
	scope := tc.scopes.current()
	if global {
		scope = 0
	}
	if tc.symtab.Lookup(d.Name, scope) != nil {
		tc.fail(ErrRedeclared, node.Tok, d.Name, nil, nil)
	}

	switch init := d.Init; {
	case init == nil:
		for _, dim := range dims {
			if dim == 0 {
				tc.fail(ErrArrayDimMismatch, node.Tok, "", nil, nil)
			}
		}
	case init.Type == ast.Constant && init.Data.(ast.ConstantNode).Typ == types.String:
		str := []rune(init.Data.(ast.ConstantNode).Value.(string))
		if len(dims) > 1 {
			tc.fail(ErrArrayDimMismatch, node.Tok, "", nil, nil)
		}
		if dims[0] == 0 {
			dims[0] = len(str)
		}
		if dims[0] != len(str) {
			tc.fail(ErrInitSizeMismatch, node.Tok, d.Name, nil, nil)
		}
		if elem != types.Char {
			tc.fail(ErrInitTypeMismatch, node.Tok, d.Name, nil, nil)
		}
		tc.record(init, types.NewArray(types.Char, len(str)))
	case init.Type == ast.InitList:
		tc.checkInitList(node, d.Name, init, elem, dims, 0)
	case init.Type == ast.ID && !global:
		src, ok := tc.checkExpr(init).(*types.Array)
		if !ok || !types.Equal(src, types.NewArray(elem)) || len(src.Dims) != len(dims) {
			tc.fail(ErrInitTypeMismatch, node.Tok, d.Name, nil, nil)
		}
		for i := range dims {
			if dims[i] == 0 {
				dims[i] = src.Dims[i]
			}
			if dims[i] != src.Dims[i] {
				tc.fail(ErrInitSizeMismatch, node.Tok, d.Name, nil, nil)
			}
		}
	case global:
		tc.fail(ErrNotConstant, init.Tok, "", nil, nil)
	default:
		tc.fail(ErrInitTypeMismatch, node.Tok, d.Name, nil, nil)
	}
	tc.declare(node, d.Name, types.NewArray(elem, dims...), global)
}

// checkInitList matches one nesting level of an initializer against
// dims[level], filling it in when it was left unsized
func (tc *TypeChecker) checkInitList(decl *ast.Node, name string, list *ast.Node, elem *types.Basic, dims []int, level int) {
	exprs := list.Data.(ast.InitListNode).Exprs
	switch {
	case dims[level] == 0:
		dims[level] = len(exprs)
	case len(exprs) != dims[level] && level == 0:
		tc.fail(ErrListVarSizeMismatch, decl.Tok, name, nil, nil)
	case len(exprs) != dims[level]:
		tc.fail(ErrListSizeMismatch, list.Tok, name, nil, nil)
	}

	last := level == len(dims)-1
	for _, e := range exprs {
		if !last {
			if e.Type != ast.InitList {
				tc.fail(ErrArrayDimMismatch, e.Tok, "", nil, nil)
			}
			tc.checkInitList(decl, name, e, elem, dims, level+1)
			continue
		}
		if e.Type == ast.InitList {
			tc.fail(ErrArrayDimMismatch, e.Tok, "", nil, nil)
		}
		if e.Type != ast.Constant {
			tc.fail(ErrNotConstant, e.Tok, "", nil, nil)
		}
		if !types.Equal(tc.checkExpr(e), elem) {
			tc.fail(ErrInitTypeMismatch, decl.Tok, name, nil, nil)
		}
	}
	tc.record(list, types.NewArray(elem, dims[level:]...))
}

func (tc *TypeChecker) paramType(p *ast.Node) types.Type {
	spec := p.Data.(ast.DeclNode).TypeSpec
	switch s := spec.Data.(type) {
	case ast.VarDeclNode:
		return s.Typ
	case ast.ArrayDeclNode:
		elem, dims := tc.arrayShape(spec)
		return types.NewArray(elem, dims...)
	}
	tc.fail(ErrUndefined, p.Tok, "", nil, nil)
	return nil
}

func (tc *TypeChecker) funcType(spec *ast.Node) (*types.Function, []string) {
	fd := spec.Data.(ast.FuncDeclNode)
	ret := fd.Ret.Data.(ast.VarDeclNode).Typ
	params := make([]types.Type, len(fd.Params))
	names := make([]string, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = tc.paramType(p)
		names[i] = p.Data.(ast.DeclNode).Name
	}
	return types.NewFunction(ret, params...), names
}

func (tc *TypeChecker) declareParams(spec *ast.Node) {
	for _, p := range spec.Data.(ast.FuncDeclNode).Params {
		tc.declare(p, p.Data.(ast.DeclNode).Name, tc.paramType(p), false)
	}
}

func (tc *TypeChecker) checkFuncDef(node *ast.Node) {
	d := node.Data.(ast.FuncDefNode)
	decl := d.Decl.Data.(ast.DeclNode)
	fn, names := tc.funcType(decl.TypeSpec)
	sym := tc.declareFunc(d.Decl, decl.Name, fn, names, true)
	tc.record(node, fn)

	tc.scopes.enterFunction()
	defer tc.scopes.exitFunction()
	tc.declareParams(decl.TypeSpec)

	prev := tc.currentFunc
	tc.currentFunc = sym
	defer func() { tc.currentFunc = prev }()

	items := d.Body.Data.(ast.CompoundNode).Items
	if len(items) == 0 && fn.Ret != types.Void {
		tc.fail(ErrReturnTypeMismatch, d.Body.Tok, "", types.Void, fn.Ret)
	}
	tc.checkItems(items)
	if len(items) > 0 && fn.Ret != types.Void && items[len(items)-1].Type != ast.Return {
		tc.warn(config.WarnMissingReturn, d.Body.Tok, "control may reach the end of non-void function '%s'", decl.Name)
	}
}

// --- Statements ---

func (tc *TypeChecker) checkItems(items []*ast.Node) {
	ended, warned := false, false
	for _, item := range items {
		if ended && !warned {
			tc.warn(config.WarnUnreachableCode, item.Tok, "unreachable code")
			warned = true
		}
		tc.checkStmt(item)
		if item.Type == ast.Return || item.Type == ast.Break {
			ended = true
		}
	}
}

// checkLoopBody checks a loop body in the scope the loop already opened
func (tc *TypeChecker) checkLoopBody(body *ast.Node) {
	if body == nil {
		return
	}
	if c, ok := body.Data.(ast.CompoundNode); ok {
		tc.checkItems(c.Items)
		return
	}
	tc.checkStmt(body)
}

func (tc *TypeChecker) checkStmt(node *ast.Node) {
	if node == nil {
		return
	}
	switch d := node.Data.(type) {
	case ast.DeclNode:
		tc.checkDecl(node, false)
	case ast.DeclListNode:
		for _, decl := range d.Decls {
			tc.checkDecl(decl, false)
		}
	case ast.CompoundNode:
		tc.scopes.enterBlock()
		tc.checkItems(d.Items)
		tc.scopes.exitBlock()
	case ast.IfNode:
		if t := tc.checkExpr(d.Cond); t != types.Bool {
			tc.fail(ErrCondNotBool, d.Cond.Tok, "", t, nil)
		}
		tc.checkStmt(d.ThenBody)
		tc.checkStmt(d.ElseBody)
	case ast.WhileNode:
		if t := tc.checkExpr(d.Cond); t != types.Bool {
			tc.fail(ErrLoopCondNotBool, node.Tok, "", t, nil)
		}
		tc.scopes.enterLoop()
		tc.checkLoopBody(d.Body)
		tc.scopes.exitLoop()
	case ast.ForNode:
		tc.scopes.enterLoop()
		tc.checkStmt(d.Init)
		if d.Cond != nil {
			if t := tc.checkExpr(d.Cond); t != types.Bool {
				tc.fail(ErrLoopCondNotBool, node.Tok, "", t, nil)
			}
		}
		if d.Next != nil {
			tc.checkExpr(d.Next)
		}
		tc.checkLoopBody(d.Body)
		tc.scopes.exitLoop()
	case ast.BreakNode:
		if !tc.scopes.inLoop() {
			tc.fail(ErrBreakOutsideLoop, node.Tok, "", nil, nil)
		}
	case ast.ReturnNode:
		tc.checkReturn(node, d)
	case ast.AssertNode:
		if tc.checkExpr(d.Expr) != types.Bool {
			tc.fail(ErrAssertNotBool, d.Expr.Tok, "", nil, nil)
		}
	case ast.PrintNode:
		if d.Expr == nil {
			return
		}
		for _, e := range tc.listExprs(d.Expr) {
			t := tc.checkExpr(e)
			if types.IsBasic(t) {
				continue
			}
			if id, ok := e.Data.(ast.IDNode); ok {
				tc.fail(ErrPrintNotBasicVar, e.Tok, id.Name, nil, nil)
			}
			tc.fail(ErrPrintNotBasic, e.Tok, "", nil, nil)
		}
	case ast.ReadNode:
		for _, e := range tc.listExprs(d.Expr) {
			t := tc.checkExpr(e)
			if !isLValue(e) || !types.IsBasic(t) {
				tc.fail(ErrNotAVariable, e.Tok, describe(e), nil, nil)
			}
		}
	case ast.EmptyStatementNode:
	default:
		if !ast.IsExpr(node) {
			tc.fail(ErrUndefined, node.Tok, "", nil, nil)
		}
		tc.checkExpr(node)
	}
}

func (tc *TypeChecker) checkReturn(node *ast.Node, d ast.ReturnNode) {
	t := types.Type(types.Void)
	if d.Expr != nil {
		t = tc.checkExpr(d.Expr)
	}
	if tc.currentFunc == nil {
		tc.fail(ErrUndefined, node.Tok, "", nil, nil)
	}
	ret := tc.currentFunc.Type.(*types.Function).Ret
	if !types.Equal(t, ret) {
		tc.fail(ErrReturnTypeMismatch, node.Tok, "", t, ret)
	}
	tc.record(node, t)
}

// listExprs spreads an ExprList into its elements
func (tc *TypeChecker) listExprs(n *ast.Node) []*ast.Node {
	list, ok := n.Data.(ast.ExprListNode)
	if !ok {
		return []*ast.Node{n}
	}
	tc.record(n, types.Void)
	return list.Exprs
}

func isLValue(n *ast.Node) bool {
	return n.Type == ast.ID || n.Type == ast.ArrayRef
}

func describe(n *ast.Node) string {
	if id, ok := n.Data.(ast.IDNode); ok {
		return id.Name
	}
	return ast.Format(n)
}

// --- Expressions ---

func (tc *TypeChecker) checkExpr(node *ast.Node) types.Type {
	return tc.record(node, tc.exprType(node))
}

func (tc *TypeChecker) exprType(node *ast.Node) types.Type {
	switch d := node.Data.(type) {
	case ast.ConstantNode:
		return d.Typ

	case ast.IDNode:
		sym := tc.resolve(d.Name)
		if sym == nil {
			tc.fail(ErrUndefinedName, node.Tok, d.Name, nil, nil)
		}
		tc.info.Uses[node] = sym
		return sym.Type

	case ast.BinaryOpNode:
		ltype := tc.checkExpr(d.Left)
		rtype := tc.checkExpr(d.Right)
		op := token.TypeStrings[d.Op]
		if !types.Equal(ltype, rtype) {
			tc.fail(ErrBinaryTypeMismatch, node.Tok, op, nil, nil)
		}
		if types.OperatorAllowed(ltype, types.Relational, d.Op) {
			return types.Bool
		}
		if !types.OperatorAllowed(ltype, types.Binary, d.Op) {
			tc.fail(ErrBinaryOpUnsupported, node.Tok, op, ltype, nil)
		}
		return ltype

	case ast.UnaryOpNode:
		t := tc.checkExpr(d.Expr)
		if !types.OperatorAllowed(t, types.Unary, d.Op) {
			tc.fail(ErrUnaryOpUnsupported, node.Tok, token.TypeStrings[d.Op], nil, nil)
		}
		switch d.Op {
		case token.Inc, token.Dec, token.PostInc, token.PostDec:
			if !isLValue(d.Expr) {
				tc.fail(ErrNotAVariable, d.Expr.Tok, describe(d.Expr), nil, nil)
			}
		case token.Not:
			return types.Bool
		}
		return t

	case ast.AssignmentNode:
		rtype := tc.checkExpr(d.Rhs)
		ltype := tc.checkExpr(d.Lhs)
		if !isLValue(d.Lhs) {
			tc.fail(ErrNotAVariable, d.Lhs.Tok, describe(d.Lhs), nil, nil)
		}
		if !types.Equal(ltype, rtype) {
			tc.fail(ErrAssignTypeMismatch, node.Tok, "", ltype, rtype)
		}
		if !types.OperatorAllowed(ltype, types.Assignment, d.Op) {
			tc.fail(ErrAssignOpUnsupported, node.Tok, token.TypeStrings[d.Op], ltype, nil)
		}
		return ltype

	case ast.CastNode:
		tc.checkExpr(d.Expr)
		return d.Target

	case ast.ArrayRefNode:
		if t := tc.checkExpr(d.Index); t != types.Int {
			tc.fail(ErrSubscriptNotInt, d.Index.Tok, "", t, nil)
		}
		arr, ok := tc.checkExpr(d.Array).(*types.Array)
		if !ok {
			tc.fail(ErrArrayDimMismatch, node.Tok, "", nil, nil)
		}
		return arr.Peel()

	case ast.FuncCallNode:
		return tc.checkCall(node, d)

	case ast.ExprListNode:
		var last types.Type = types.Void
		for _, e := range d.Exprs {
			last = tc.checkExpr(e)
		}
		return last
	}
	tc.fail(ErrUndefined, node.Tok, "", nil, nil)
	return nil
}

func (tc *TypeChecker) checkCall(node *ast.Node, d ast.FuncCallNode) types.Type {
	name := d.Callee.Data.(ast.IDNode).Name
	sym := tc.resolve(name)
	if sym == nil {
		tc.fail(ErrUndefinedName, d.Callee.Tok, name, nil, nil)
	}
	fn, ok := sym.Type.(*types.Function)
	if !ok {
		tc.fail(ErrNotAFunction, node.Tok, name, nil, nil)
	}
	tc.info.Uses[d.Callee] = sym
	tc.record(d.Callee, fn)

	if len(d.Args) != len(fn.Params) {
		tc.fail(ErrArgCountMismatch, node.Tok, name, nil, nil)
	}
	for i, arg := range d.Args {
		if !types.Equal(tc.checkExpr(arg), fn.Params[i]) {
			tc.fail(ErrParamTypeMismatch, arg.Tok, sym.ParamNames[i], nil, nil)
		}
	}
	return fn.Ret
}
