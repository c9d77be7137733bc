// Package parser reads the S-expression form of a uC syntax tree
package parser

import (
	"strconv"
	"strings"

	"github.com/xplshn/ucc/pkg/ast"
	"github.com/xplshn/ucc/pkg/lexer"
	"github.com/xplshn/ucc/pkg/token"
	"github.com/xplshn/ucc/pkg/types"
	"github.com/xplshn/ucc/pkg/util"
)

// Parser holds the state for reading one tree document
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
}

type bailout struct{ err *util.PosError }

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens, pos: 0}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	return p
}

// ParseString lexes and reads src, which must hold a single Program node
func ParseString(src string, fileIndex int) (*ast.Node, error) {
	toks, err := lexer.NewLexer([]rune(src), fileIndex).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(toks).Parse()
}

// Parse reads a Program node and requires the input to end after it
func (p *Parser) Parse() (root *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			root, err = nil, b.err
		}
	}()
	if len(p.tokens) == 0 {
		return nil, util.Errorf(token.Token{}, "Empty syntax tree")
	}
	root = p.parseNode()
	if root.Type != ast.Program {
		p.fail(root.Tok, "Expected a Program node at the top level, got %s", root.Type)
	}
	if !p.check(token.EOF) {
		p.fail(p.current, "Unexpected %s after the Program node", p.current.Type)
	}
	return root, nil
}

// ParseNode reads exactly one node of any kind
func (p *Parser) ParseNode() (node *ast.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			node, err = nil, b.err
		}
	}()
	return p.parseNode(), nil
}

// Parser helpers
func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	panic(bailout{util.Errorf(tok, format, args...)})
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.previous = p.current
		p.pos++
		if p.pos < len(p.tokens) {
			p.current = p.tokens[p.pos]
		}
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.fail(p.current, "%s, got %s", message, p.current.Type)
	return token.Token{}
}

func (p *Parser) parseNode() *ast.Node {
	open := p.expect(token.LParen, "Expected '('")
	kindTok := p.expect(token.Ident, "Expected a node kind")
	kind, ok := ast.NodeTypeByName[kindTok.Value]
	if !ok {
		p.fail(kindTok, "Unknown node kind '%s'", kindTok.Value)
	}

	tok := open
	tok.Type, tok.Value, tok.Len = token.Ident, kindTok.Value, 1
	if p.match(token.Coord) {
		line, col, _ := strings.Cut(p.previous.Value, ":")
		tok.Line, _ = strconv.Atoi(line)
		tok.Column, _ = strconv.Atoi(col)
	}

	node := p.parseBody(kind, tok)
	p.expect(token.RParen, "Expected ')' to close "+kind.String())
	return node
}

// optional reads a node, or nothing when the next token is '_' or ')'
func (p *Parser) optional() *ast.Node {
	if p.match(token.Blank) || p.check(token.RParen) {
		return nil
	}
	return p.parseNode()
}

func (p *Parser) list() []*ast.Node {
	var nodes []*ast.Node
	for p.check(token.LParen) {
		nodes = append(nodes, p.parseNode())
	}
	return nodes
}

func (p *Parser) nodeOf(kinds ...ast.NodeType) *ast.Node {
	n := p.parseNode()
	for _, k := range kinds {
		if n.Type == k {
			return n
		}
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	p.fail(n.Tok, "Expected %s, got %s", strings.Join(names, " or "), n.Type)
	return nil
}

func (p *Parser) expr() *ast.Node {
	n := p.parseNode()
	if !ast.IsExpr(n) {
		p.fail(n.Tok, "Expected an expression, got %s", n.Type)
	}
	return n
}

func (p *Parser) optionalExpr() *ast.Node {
	n := p.optional()
	if n != nil && !ast.IsExpr(n) {
		p.fail(n.Tok, "Expected an expression, got %s", n.Type)
	}
	return n
}

func (p *Parser) basicType() *types.Basic {
	tok := p.current
	p.advance()
	if t, ok := types.Basics[tok.Type]; ok {
		return t
	}
	p.fail(tok, "Expected a type name, got %s", tok.Type)
	return nil
}

func (p *Parser) operator(ok func(token.Type) bool) token.Type {
	tok := p.current
	if !tok.Type.IsOperator() || !ok(tok.Type) {
		p.fail(tok, "Unexpected operator %s", tok.Type)
	}
	p.advance()
	return tok.Type
}

func isBinaryOp(t token.Type) bool { return t >= token.Plus && t <= token.OrOr }
func isAssignOp(t token.Type) bool { return t >= token.Eq && t <= token.RemEq }

func isUnaryOp(t token.Type) bool {
	switch t {
	case token.Plus, token.Minus, token.Star:
		return true
	}
	return t >= token.Not && t <= token.PostDec
}

func (p *Parser) parseBody(kind ast.NodeType, tok token.Token) *ast.Node {
	switch kind {
	case ast.Program:
		return ast.NewProgram(tok, p.list())
	case ast.GlobalDecl:
		return ast.NewGlobalDecl(tok, p.declList())
	case ast.DeclList:
		return ast.NewDeclList(tok, p.declList())
	case ast.Decl:
		name := p.expect(token.Ident, "Expected a declaration name")
		tok.Value, tok.Len = name.Value, name.Len
		spec := p.nodeOf(ast.VarDecl, ast.ArrayDecl, ast.FuncDecl)
		return ast.NewDecl(tok, name.Value, spec, p.optional())
	case ast.VarDecl:
		return ast.NewVarDecl(tok, p.basicType())
	case ast.ArrayDecl:
		elem := p.nodeOf(ast.VarDecl, ast.ArrayDecl)
		return ast.NewArrayDecl(tok, elem, p.optionalExpr())
	case ast.FuncDecl:
		ret := p.nodeOf(ast.VarDecl)
		return ast.NewFuncDecl(tok, ret, p.declList())
	case ast.FuncDef:
		decl := p.nodeOf(ast.Decl)
		if decl.Data.(ast.DeclNode).TypeSpec.Type != ast.FuncDecl {
			p.fail(decl.Tok, "FuncDef requires a function declaration")
		}
		return ast.NewFuncDef(tok, decl, p.nodeOf(ast.Compound))

	case ast.Compound:
		return ast.NewCompound(tok, p.list())
	case ast.If:
		cond := p.expr()
		then := p.optional()
		return ast.NewIf(tok, cond, then, p.optional())
	case ast.While:
		cond := p.expr()
		return ast.NewWhile(tok, cond, p.optional())
	case ast.For:
		init := p.optional()
		cond := p.optionalExpr()
		next := p.optionalExpr()
		return ast.NewFor(tok, init, cond, next, p.optional())
	case ast.Break:
		return ast.NewBreak(tok)
	case ast.Return:
		return ast.NewReturn(tok, p.optionalExpr())
	case ast.Assert:
		return ast.NewAssert(tok, p.expr())
	case ast.Print:
		return ast.NewPrint(tok, p.optionalExpr())
	case ast.Read:
		return ast.NewRead(tok, p.expr())
	case ast.EmptyStatement:
		return ast.NewEmptyStatement(tok)

	case ast.Constant:
		return p.constant(tok)
	case ast.ID:
		name := p.expect(token.Ident, "Expected an identifier")
		tok.Value, tok.Len = name.Value, name.Len
		return ast.NewID(tok, name.Value)
	case ast.BinaryOp:
		op := p.operator(isBinaryOp)
		left := p.expr()
		return ast.NewBinaryOp(tok, op, left, p.expr())
	case ast.UnaryOp:
		op := p.operator(isUnaryOp)
		return ast.NewUnaryOp(tok, op, p.expr())
	case ast.Assignment:
		op := p.operator(isAssignOp)
		lhs := p.expr()
		return ast.NewAssignment(tok, op, lhs, p.expr())
	case ast.Cast:
		target := p.basicType()
		return ast.NewCast(tok, target, p.expr())
	case ast.ArrayRef:
		arr := p.expr()
		return ast.NewArrayRef(tok, arr, p.expr())
	case ast.FuncCall:
		var callee *ast.Node
		if p.match(token.Ident) {
			calleeTok := tok
			calleeTok.Value = p.previous.Value
			callee = ast.NewID(calleeTok, p.previous.Value)
		} else {
			callee = p.nodeOf(ast.ID)
		}
		var args []*ast.Node
		for p.check(token.LParen) {
			args = append(args, p.expr())
		}
		return ast.NewFuncCall(tok, callee, args)
	case ast.ExprList:
		return ast.NewExprList(tok, p.exprs())
	case ast.InitList:
		return ast.NewInitList(tok, p.exprs())
	}
	p.fail(tok, "Unhandled node kind %s", kind)
	return nil
}

func (p *Parser) declList() []*ast.Node {
	var decls []*ast.Node
	for p.check(token.LParen) {
		decls = append(decls, p.nodeOf(ast.Decl))
	}
	return decls
}

func (p *Parser) exprs() []*ast.Node {
	var exprs []*ast.Node
	for p.check(token.LParen) {
		exprs = append(exprs, p.expr())
	}
	return exprs
}

func (p *Parser) constant(tok token.Token) *ast.Node {
	typ := p.basicType()
	lit := p.current
	p.advance()
	tok.Value = lit.Value

	var value interface{}
	switch {
	case typ == types.Int && lit.Type == token.Number:
		value, _ = strconv.ParseInt(lit.Value, 10, 64)
	case typ == types.Float && (lit.Type == token.FloatNumber || lit.Type == token.Number):
		value, _ = strconv.ParseFloat(lit.Value, 64)
	case typ == types.Char && lit.Type == token.Char:
		value = []rune(lit.Value)[0]
	case typ == types.String && lit.Type == token.String:
		value = lit.Value
	case typ == types.Bool && lit.Type == token.Ident && (lit.Value == "true" || lit.Value == "false"):
		value = lit.Value == "true"
	default:
		p.fail(lit, "Literal %s does not match constant type %s", lit.Type, typ.Name())
	}
	return ast.NewConstant(tok, typ, value)
}
