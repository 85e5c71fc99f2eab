// Package cst defines the concrete syntax tree. Every source token, trivia
// included, is reachable from the root, so the tree flattens back into the
// exact text it was parsed from.
package cst

import (
	"io"
	"strings"

	"github.com/xplshn/nsc/pkg/token"
)

// Kind defines the kind of a node in the CST
type Kind int

const (
	// Leaf wraps a single token: keyword, identifier, literal, operator,
	// punctuation or primitive type.
	Leaf Kind = iota

	Namespace
	QualifiedName
	NamespaceBlock
	FunctionBlock
	LocalBlock
	NestedBlock
	FuncDef
	ParamList
	ArgList
	VarDef
	VarNameType
	While
	Assign
	CallExpr
	CallStmt
	BinaryOp
	UnaryOp
	ParenExpr
	Empty
)

var kindNames = [...]string{
	Leaf:           "Leaf",
	Namespace:      "Namespace",
	QualifiedName:  "QualifiedName",
	NamespaceBlock: "NamespaceBlock",
	FunctionBlock:  "FunctionBlock",
	LocalBlock:     "LocalBlock",
	NestedBlock:    "NestedBlock",
	FuncDef:        "FuncDef",
	ParamList:      "ParamList",
	ArgList:        "ArgList",
	VarDef:         "VarDef",
	VarNameType:    "VarNameType",
	While:          "While",
	Assign:         "Assign",
	CallExpr:       "CallExpr",
	CallStmt:       "CallStmt",
	BinaryOp:       "BinaryOp",
	UnaryOp:        "UnaryOp",
	ParenExpr:      "ParenExpr",
	Empty:          "Empty",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(?)"
}

// Node is either a leaf carrying Tok or a parent composed of Children.
type Node struct {
	Kind     Kind
	Tok      *token.Token
	Children []*Node
}

func NewLeaf(tok *token.Token) *Node { return &Node{Kind: Leaf, Tok: tok} }

func New(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

func (n *Node) IsLeaf() bool { return n.Kind == Leaf }

// Is reports whether n is a leaf holding a token of type t.
func (n *Node) Is(t token.Type) bool { return n.IsLeaf() && n.Tok.Type == t }

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Span covers the node and, for leaves, the trivia hung on the token.
func (n *Node) Span() token.Span {
	if n.IsLeaf() {
		return n.Tok.FullSpan()
	}
	if len(n.Children) == 0 {
		return token.Span{}
	}
	return n.Children[0].Span().Union(n.Children[len(n.Children)-1].Span())
}

// TokenSpan is Span without the outermost trivia.
func (n *Node) TokenSpan() token.Span {
	if n.IsLeaf() {
		return n.Tok.Span
	}
	if len(n.Children) == 0 {
		return token.Span{}
	}
	return n.Children[0].TokenSpan().Union(n.Children[len(n.Children)-1].TokenSpan())
}

// Leaves calls fn for every leaf in source order.
func (n *Node) Leaves(fn func(*Node)) {
	if n.IsLeaf() {
		fn(n)
		return
	}
	for _, c := range n.Children {
		c.Leaves(fn)
	}
}

// WriteTo writes the source text of n, trivia included.
func (n *Node) WriteTo(w io.Writer) (int64, error) {
	var total int64
	var err error
	write := func(s string) {
		if err != nil || s == "" {
			return
		}
		var k int
		k, err = io.WriteString(w, s)
		total += int64(k)
	}
	n.Leaves(func(l *Node) {
		for _, tr := range l.Tok.Leading {
			write(tr.Value)
		}
		write(l.Tok.Value)
		for _, tr := range l.Tok.Trailing {
			write(tr.Value)
		}
	})
	return total, err
}

func (n *Node) Text() string {
	var sb strings.Builder
	n.WriteTo(&sb)
	return sb.String()
}
