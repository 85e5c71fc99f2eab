// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"strings"

	"github.com/xplshn/nsc/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Number NodeType = iota
	Bool
	Ident
	BinaryOp
	UnaryOp
	FuncCall

	// Statements
	Namespace
	FuncDecl
	Param
	VarDecl
	Block
	While
	Assign
	Empty
)

var nodeTypeNames = [...]string{
	Number: "Number", Bool: "Bool", Ident: "Ident", BinaryOp: "BinaryOp",
	UnaryOp: "UnaryOp", FuncCall: "FuncCall", Namespace: "Namespace",
	FuncDecl: "FuncDecl", Param: "Param", VarDecl: "VarDecl", Block: "Block",
	While: "While", Assign: "Assign", Empty: "Empty",
}

func (t NodeType) String() string {
	if int(t) < len(nodeTypeNames) {
		return nodeTypeNames[t]
	}
	return "NodeType(?)"
}

// NodeID identifies a node within one tree. IDs are assigned in pre-order
// starting at 1, so zero never names a node.
type NodeID int

// Node represents a node in the Abstract Syntax Tree
type Node struct {
	Type NodeType
	ID   NodeID
	Span token.Span
	Data interface{}
}

// BlockFlavor tells the three kinds of block apart.
type BlockFlavor int

const (
	NamespaceLevel BlockFlavor = iota
	FuncBody
	Local
)

func (f BlockFlavor) String() string {
	switch f {
	case NamespaceLevel:
		return "namespace"
	case FuncBody:
		return "function"
	case Local:
		return "local"
	}
	return "block"
}

// --- Node Data Structs ---
type NumberNode struct{ Value int64 }
type BoolNode struct{ Value bool }
type IdentNode struct{ Name string }
type BinaryOpNode struct {
	Op          token.Type
	Left, Right *Node
}
type UnaryOpNode struct {
	Op   token.Type
	Expr *Node
}
type FuncCallNode struct {
	Name     string
	NameSpan token.Span
	Args     []*Node
	// IsStmt marks a call used as a statement; its result is discarded.
	IsStmt bool
}
type NamespaceNode struct {
	Name  string
	Parts []string
	Body  *Node
}
type FuncDeclNode struct {
	Name         string
	Params       []*Node
	ReturnType   string
	ImplicitVoid bool
	Body         *Node
}
type ParamNode struct{ Name, Type string }
type VarDeclNode struct {
	Name string
	Type string
	Init *Node
}
type BlockNode struct {
	Flavor BlockFlavor
	Stmts  []*Node
}
type WhileNode struct{ Cond, Body *Node }
type AssignNode struct {
	Name     string
	NameSpan token.Span
	Value    *Node
}
type EmptyNode struct{}

// --- Constructors ---
func newNode(typ NodeType, span token.Span, data interface{}) *Node {
	return &Node{Type: typ, Span: span, Data: data}
}

func NewNumber(span token.Span, value int64) *Node {
	return newNode(Number, span, NumberNode{Value: value})
}

func NewBool(span token.Span, value bool) *Node {
	return newNode(Bool, span, BoolNode{Value: value})
}

func NewIdent(span token.Span, name string) *Node {
	return newNode(Ident, span, IdentNode{Name: name})
}

func NewBinaryOp(span token.Span, op token.Type, left, right *Node) *Node {
	return newNode(BinaryOp, span, BinaryOpNode{Op: op, Left: left, Right: right})
}

func NewUnaryOp(span token.Span, op token.Type, expr *Node) *Node {
	return newNode(UnaryOp, span, UnaryOpNode{Op: op, Expr: expr})
}

func NewFuncCall(span, nameSpan token.Span, name string, args []*Node, isStmt bool) *Node {
	return newNode(FuncCall, span, FuncCallNode{Name: name, NameSpan: nameSpan, Args: args, IsStmt: isStmt})
}

func NewNamespace(span token.Span, parts []string, body *Node) *Node {
	return newNode(Namespace, span, NamespaceNode{Name: strings.Join(parts, "."), Parts: parts, Body: body})
}

func NewFuncDecl(span token.Span, name string, params []*Node, retType string, implicitVoid bool, body *Node) *Node {
	return newNode(FuncDecl, span, FuncDeclNode{
		Name: name, Params: params, ReturnType: retType, ImplicitVoid: implicitVoid, Body: body,
	})
}

func NewParam(span token.Span, name, typ string) *Node {
	return newNode(Param, span, ParamNode{Name: name, Type: typ})
}

func NewVarDecl(span token.Span, name, typ string, init *Node) *Node {
	return newNode(VarDecl, span, VarDeclNode{Name: name, Type: typ, Init: init})
}

func NewBlock(span token.Span, flavor BlockFlavor, stmts []*Node) *Node {
	return newNode(Block, span, BlockNode{Flavor: flavor, Stmts: stmts})
}

func NewWhile(span token.Span, cond, body *Node) *Node {
	return newNode(While, span, WhileNode{Cond: cond, Body: body})
}

func NewAssign(span, nameSpan token.Span, name string, value *Node) *Node {
	return newNode(Assign, span, AssignNode{Name: name, NameSpan: nameSpan, Value: value})
}

func NewEmpty(span token.Span) *Node { return newNode(Empty, span, EmptyNode{}) }

// Children returns the direct sub-nodes of n in source order.
func Children(n *Node) []*Node {
	switch d := n.Data.(type) {
	case BinaryOpNode:
		return []*Node{d.Left, d.Right}
	case UnaryOpNode:
		return []*Node{d.Expr}
	case FuncCallNode:
		return d.Args
	case NamespaceNode:
		return []*Node{d.Body}
	case FuncDeclNode:
		out := make([]*Node, 0, len(d.Params)+1)
		out = append(out, d.Params...)
		return append(out, d.Body)
	case VarDeclNode:
		return []*Node{d.Init}
	case BlockNode:
		return d.Stmts
	case WhileNode:
		return []*Node{d.Cond, d.Body}
	case AssignNode:
		return []*Node{d.Value}
	}
	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the children of that node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range Children(n) {
		Walk(c, fn)
	}
}

// NumberIDs assigns pre-order IDs starting at 1 and returns the count.
func NumberIDs(root *Node) int {
	next := 0
	Walk(root, func(n *Node) bool {
		next++
		n.ID = NodeID(next)
		return true
	})
	return next
}
