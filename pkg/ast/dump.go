package ast

import (
	"fmt"
	"strings"

	"github.com/xplshn/nsc/pkg/token"
)

// String renders n as a compact prefix form, e.g. (- (- a b) c).
func (n *Node) String() string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("<nil>")
		return
	}
	switch d := n.Data.(type) {
	case NumberNode:
		fmt.Fprintf(sb, "%d", d.Value)
	case BoolNode:
		fmt.Fprintf(sb, "%t", d.Value)
	case IdentNode:
		sb.WriteString(d.Name)
	case BinaryOpNode:
		fmt.Fprintf(sb, "(%s ", token.TypeStrings[d.Op])
		writeNode(sb, d.Left)
		sb.WriteByte(' ')
		writeNode(sb, d.Right)
		sb.WriteByte(')')
	case UnaryOpNode:
		fmt.Fprintf(sb, "(%s ", token.TypeStrings[d.Op])
		writeNode(sb, d.Expr)
		sb.WriteByte(')')
	case FuncCallNode:
		sb.WriteString("(call " + d.Name)
		for _, a := range d.Args {
			sb.WriteByte(' ')
			writeNode(sb, a)
		}
		sb.WriteByte(')')
	case NamespaceNode:
		sb.WriteString("(namespace " + d.Name + " ")
		writeNode(sb, d.Body)
		sb.WriteByte(')')
	case FuncDeclNode:
		sb.WriteString("(func " + d.Name + " (")
		for i, p := range d.Params {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeNode(sb, p)
		}
		sb.WriteString(") " + d.ReturnType + " ")
		writeNode(sb, d.Body)
		sb.WriteByte(')')
	case ParamNode:
		sb.WriteString(d.Name + ":" + d.Type)
	case VarDeclNode:
		sb.WriteString("(let " + d.Name + ":" + d.Type + " ")
		writeNode(sb, d.Init)
		sb.WriteByte(')')
	case BlockNode:
		sb.WriteString("{")
		for _, s := range d.Stmts {
			sb.WriteByte(' ')
			writeNode(sb, s)
		}
		sb.WriteString(" }")
	case WhileNode:
		sb.WriteString("(while ")
		writeNode(sb, d.Cond)
		sb.WriteByte(' ')
		writeNode(sb, d.Body)
		sb.WriteByte(')')
	case AssignNode:
		sb.WriteString("(= " + d.Name + " ")
		writeNode(sb, d.Value)
		sb.WriteByte(')')
	case EmptyNode:
		sb.WriteString(";")
	default:
		fmt.Fprintf(sb, "<%v>", n.Type)
	}
}
