package ast

import (
	"strconv"

	"github.com/xplshn/nsc/pkg/cst"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/token"
)

// FromCST reduces a concrete tree to a fresh AST with pre-order node IDs.
// Keywords, punctuation and operator tokens are dropped; the CST is not
// modified.
func FromCST(root *cst.Node) (n *Node, err error) {
	defer diag.Recover(&err)
	if root == nil {
		return nil, nil
	}
	if root.Kind != cst.Namespace {
		panic(diag.Contract(root.TokenSpan(), "root must be a namespace, got %v", root.Kind))
	}
	out := reduceNamespace(root)
	NumberIDs(out)
	return out, nil
}

func mismatch(c *cst.Node, want string) *diag.FatalError {
	return diag.Contract(c.TokenSpan(), "malformed CST: expected %s, got %v", want, c.Kind)
}

func leafText(c *cst.Node, t token.Type) string {
	if !c.Is(t) {
		panic(mismatch(c, t.String()))
	}
	return c.Tok.Value
}

func reduceNamespace(c *cst.Node) *Node {
	qn := c.Child(1)
	var parts []string
	for _, part := range qn.Children {
		if part.Is(token.Ident) {
			parts = append(parts, part.Tok.Value)
		}
	}
	return NewNamespace(c.TokenSpan(), parts, reduceBlock(c.Child(2), NamespaceLevel))
}

// reduceBlock drops the braces and reduces each statement.
func reduceBlock(c *cst.Node, flavor BlockFlavor) *Node {
	inner := c.Children[1 : len(c.Children)-1]
	stmts := make([]*Node, 0, len(inner))
	for _, s := range inner {
		stmts = append(stmts, reduceStmt(s))
	}
	return NewBlock(c.TokenSpan(), flavor, stmts)
}

func reduceStmt(c *cst.Node) *Node {
	switch c.Kind {
	case cst.VarDef:
		name, typ := reduceNameType(c.Child(1))
		return NewVarDecl(c.TokenSpan(), name, typ, reduceExpr(c.Child(3)))
	case cst.FuncDef:
		return reduceFuncDef(c)
	case cst.While:
		return NewWhile(c.TokenSpan(), reduceExpr(c.Child(1)), reduceBlock(c.Child(2), Local))
	case cst.NestedBlock:
		return reduceBlock(c.Child(0), Local)
	case cst.Assign:
		name := c.Child(0)
		return NewAssign(c.TokenSpan(), name.Tok.Span, leafText(name, token.Ident), reduceExpr(c.Child(2)))
	case cst.CallStmt:
		call := reduceCall(c.Child(0), true)
		call.Span = c.TokenSpan()
		return call
	case cst.Empty:
		return NewEmpty(c.TokenSpan())
	}
	panic(mismatch(c, "statement"))
}

func reduceNameType(c *cst.Node) (string, string) {
	if c.Kind != cst.VarNameType {
		panic(mismatch(c, "name with type"))
	}
	return leafText(c.Child(0), token.Ident), typeName(c.Child(2))
}

func typeName(c *cst.Node) string {
	if !c.IsLeaf() || !(c.Tok.Type.IsPrimitiveType() || c.Tok.Type == token.Void) {
		panic(mismatch(c, "type"))
	}
	return token.TypeStrings[c.Tok.Type]
}

func reduceFuncDef(c *cst.Node) *Node {
	name := leafText(c.Child(1), token.Ident)
	var params []*Node
	for _, p := range c.Child(2).Children {
		if p.Kind == cst.VarNameType {
			pname, ptype := reduceNameType(p)
			params = append(params, NewParam(p.TokenSpan(), pname, ptype))
		}
	}
	ret := c.Child(4)
	body := reduceBlock(c.Child(5), FuncBody)
	return NewFuncDecl(c.TokenSpan(), name, params, typeName(ret), ret.Tok.Synthetic(), body)
}

func reduceCall(c *cst.Node, isStmt bool) *Node {
	name := c.Child(0)
	var args []*Node
	for _, a := range c.Child(1).Children {
		if a.IsLeaf() && (a.Tok.Type == token.LParen || a.Tok.Type == token.RParen || a.Tok.Type == token.Comma) {
			continue
		}
		args = append(args, reduceExpr(a))
	}
	return NewFuncCall(c.TokenSpan(), name.Tok.Span, leafText(name, token.Ident), args, isStmt)
}

func reduceExpr(c *cst.Node) *Node {
	switch c.Kind {
	case cst.Leaf:
		switch c.Tok.Type {
		case token.Ident:
			return NewIdent(c.Tok.Span, c.Tok.Value)
		case token.Number:
			v, err := strconv.ParseInt(c.Tok.Value, 10, 64)
			if err != nil {
				panic(diag.Unsupported(c.Tok.Span, "integer literal %s does not fit in int64", c.Tok.Value))
			}
			return NewNumber(c.Tok.Span, v)
		case token.True, token.False:
			return NewBool(c.Tok.Span, c.Tok.Type == token.True)
		}
	case cst.BinaryOp:
		return NewBinaryOp(c.TokenSpan(), c.Child(1).Tok.Type, reduceExpr(c.Child(0)), reduceExpr(c.Child(2)))
	case cst.UnaryOp:
		return NewUnaryOp(c.TokenSpan(), c.Child(0).Tok.Type, reduceExpr(c.Child(1)))
	case cst.ParenExpr:
		return reduceExpr(c.Child(1))
	case cst.CallExpr:
		return reduceCall(c, false)
	}
	panic(mismatch(c, "expression"))
}
