package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/ucc/pkg/token"
)

// Format renders n back into the tree document form, without coordinates
func Format(n *Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func formatLiteral(v interface{}) string {
	switch v := v.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case rune:
		return strconv.QuoteRune(v)
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprint(v)
}

func format(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("_")
		return
	}
	sb.WriteString("(")
	sb.WriteString(n.Type.String())
	atom := func(s string) {
		sb.WriteString(" ")
		sb.WriteString(s)
	}
	sub := func(nodes ...*Node) {
		for _, c := range nodes {
			sb.WriteString(" ")
			format(sb, c)
		}
	}
	switch d := n.Data.(type) {
	case ConstantNode:
		atom(d.Typ.Name())
		atom(formatLiteral(d.Value))
	case IDNode:
		atom(d.Name)
	case BinaryOpNode:
		atom(token.TypeStrings[d.Op])
		sub(d.Left, d.Right)
	case UnaryOpNode:
		atom(token.TypeStrings[d.Op])
		sub(d.Expr)
	case AssignmentNode:
		atom(token.TypeStrings[d.Op])
		sub(d.Lhs, d.Rhs)
	case CastNode:
		atom(d.Target.Name())
		sub(d.Expr)
	case FuncCallNode:
		atom(d.Callee.Data.(IDNode).Name)
		sub(d.Args...)
	case DeclNode:
		atom(d.Name)
		sub(d.TypeSpec)
		if d.Init != nil {
			sub(d.Init)
		}
	case VarDeclNode:
		atom(d.Typ.Name())
	case ArrayDeclNode:
		sub(d.Elem)
		if d.Size != nil {
			sub(d.Size)
		}
	case IfNode:
		sub(d.Cond, d.ThenBody)
		if d.ElseBody != nil {
			sub(d.ElseBody)
		}
	case ForNode:
		sub(d.Init, d.Cond, d.Next, d.Body)
	case WhileNode:
		sub(d.Cond, d.Body)
	default:
		sub(Children(n)...)
	}
	sb.WriteString(")")
}
