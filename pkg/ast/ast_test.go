package ast

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/ucc/pkg/token"
	"github.com/xplshn/ucc/pkg/types"
)

func at(line, col int) token.Token { return token.Token{Line: line, Column: col} }

// while (i < 3) i++;
func sampleLoop() *Node {
	cond := NewBinaryOp(at(1, 8), token.Lt, NewID(at(1, 8), "i"), NewConstant(at(1, 12), types.Int, int64(3)))
	body := NewUnaryOp(at(1, 15), token.PostInc, NewID(at(1, 15), "i"))
	return NewWhile(at(1, 1), cond, body)
}

func TestChildrenSkipsAbsentParts(t *testing.T) {
	loop := sampleLoop()
	d := loop.Data.(WhileNode)
	be.Equal(t, Children(loop), []*Node{d.Cond, d.Body})

	ret := NewReturn(at(2, 1), nil)
	be.Equal(t, len(Children(ret)), 0)
	be.Equal(t, len(Children(nil)), 0)

	forNode := NewFor(at(3, 1), nil, nil, nil, NewBreak(at(3, 10)))
	be.Equal(t, len(Children(forNode)), 1)
}

func TestConstructorsSetParents(t *testing.T) {
	loop := sampleLoop()
	d := loop.Data.(WhileNode)
	be.Equal(t, d.Cond.Parent, loop)
	be.Equal(t, d.Cond.Data.(BinaryOpNode).Left.Parent, d.Cond)
}

func TestInspectPreorder(t *testing.T) {
	var kinds []NodeType
	Inspect(sampleLoop(), func(n *Node) bool {
		kinds = append(kinds, n.Type)
		return n.Type != UnaryOp
	})
	be.Equal(t, kinds, []NodeType{While, BinaryOp, ID, Constant, UnaryOp})
}

func TestIsExpr(t *testing.T) {
	loop := sampleLoop()
	be.True(t, !IsExpr(loop))
	be.True(t, IsExpr(loop.Data.(WhileNode).Cond))
	be.True(t, IsExpr(NewInitList(at(1, 1), nil)))
	be.True(t, !IsExpr(NewEmptyStatement(at(1, 1))))
	be.True(t, !IsExpr(nil))
}

func TestFormat(t *testing.T) {
	be.Equal(t, Format(sampleLoop()), "(While (BinaryOp < (ID i) (Constant int 3)) (UnaryOp p++ (ID i)))")
	be.Equal(t, Format(NewConstant(at(1, 1), types.Float, 2.0)), "(Constant float 2.0)")
	be.Equal(t, Format(NewReturn(at(1, 1), nil)), "(Return)")
}
