package parser

import (
	"github.com/xplshn/nsc/pkg/cst"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/token"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  *token.Token
	previous *token.Token
}

// HangTrivia attaches whitespace and comments to their neighbours and returns
// the significant tokens. Trivia at the very start leads the first token;
// every other run trails the token before it.
func HangTrivia(raw []token.Token) []token.Token {
	out := make([]token.Token, 0, len(raw))
	var pending []token.Token
	for _, tok := range raw {
		if tok.Type.IsTrivia() {
			if len(out) == 0 {
				pending = append(pending, tok)
			} else {
				last := &out[len(out)-1]
				last.Trailing = append(last.Trailing, tok)
			}
			continue
		}
		if len(out) == 0 && len(pending) > 0 {
			tok.Leading = append(pending, tok.Leading...)
			pending = nil
		}
		out = append(out, tok)
	}
	if len(out) == 0 || out[len(out)-1].Type != token.EOF {
		eof := token.Token{Type: token.EOF, Leading: pending}
		if n := len(out); n > 0 {
			eof.FileIndex = out[n-1].FileIndex
			eof.Span = token.Span{Start: out[n-1].FullSpan().End, End: out[n-1].FullSpan().End}
		}
		out = append(out, eof)
	}
	return out
}

// NewParser creates a parser over a raw token stream. Trivia is hung before
// parsing, so the stream may come straight from the lexer.
func NewParser(tokens []token.Token) *Parser {
	p := &Parser{tokens: HangTrivia(tokens)}
	p.current = &p.tokens[0]
	return p
}

// Parse builds the CST of one namespace. Empty input yields a nil root and no
// error. Any structural mismatch aborts with a syntax *diag.FatalError.
func (p *Parser) Parse() (root *cst.Node, err error) {
	defer diag.Recover(&err)
	if p.check(token.EOF) {
		return nil, nil
	}
	ns := p.parseNamespace()
	if !p.check(token.EOF) {
		p.fail("end of input after namespace")
	}
	return ns, nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = &p.tokens[p.pos]
	}
}

func (p *Parser) peek() *token.Token {
	if p.pos+1 < len(p.tokens) {
		return &p.tokens[p.pos+1]
	}
	return &p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) fail(expected string) {
	found := p.current.Type.String()
	if p.current.Type == token.Ident || p.current.Type == token.Number {
		found += " '" + p.current.Value + "'"
	}
	panic(diag.Syntax(p.current.Span, "expected %s, found %s", expected, found))
}

// expect consumes a token of the given type as a leaf.
func (p *Parser) expect(tokType token.Type, expected string) *cst.Node {
	if !p.check(tokType) {
		p.fail(expected)
	}
	leaf := cst.NewLeaf(p.current)
	p.advance()
	return leaf
}

func (p *Parser) leaf() *cst.Node {
	leaf := cst.NewLeaf(p.current)
	p.advance()
	return leaf
}

func (p *Parser) parseNamespace() *cst.Node {
	kw := p.expect(token.Namespace, "'namespace'")
	name := p.parseQualifiedName()
	body := p.parseNamespaceBlock()
	return cst.New(cst.Namespace, kw, name, body)
}

func (p *Parser) parseQualifiedName() *cst.Node {
	n := cst.New(cst.QualifiedName, p.expect(token.Ident, "namespace name"))
	for p.check(token.Dot) {
		n.Children = append(n.Children, p.leaf())
		n.Children = append(n.Children, p.expect(token.Ident, "identifier after '.'"))
	}
	return n
}

func (p *Parser) parseNamespaceBlock() *cst.Node {
	n := cst.New(cst.NamespaceBlock, p.expect(token.LBrace, "'{' to open namespace body"))
	for !p.check(token.RBrace) {
		switch p.current.Type {
		case token.Let:
			n.Children = append(n.Children, p.parseVarDef())
		case token.Func:
			n.Children = append(n.Children, p.parseFuncDef())
		case token.Semi:
			n.Children = append(n.Children, cst.New(cst.Empty, p.leaf()))
		default:
			p.fail("'let', 'func' or '}' in namespace body")
		}
	}
	n.Children = append(n.Children, p.leaf())
	return n
}

func (p *Parser) parseFuncDef() *cst.Node {
	kw := p.expect(token.Func, "'func'")
	name := p.expect(token.Ident, "function name")
	params := p.parseParamList()
	n := cst.New(cst.FuncDef, kw, name, params)
	if p.check(token.Arrow) {
		n.Children = append(n.Children, p.leaf(), p.parseType())
	} else if p.check(token.LBrace) {
		arrow, void := p.implicitVoid()
		n.Children = append(n.Children, arrow, void)
	} else {
		p.fail("'->' or '{' after parameter list")
	}
	n.Children = append(n.Children, p.parseBlock(cst.FunctionBlock))
	return n
}

// implicitVoid synthesizes a zero-width "-> void" at the opening brace.
func (p *Parser) implicitVoid() (*cst.Node, *cst.Node) {
	at := token.Span{Start: p.current.Span.Start, End: p.current.Span.Start}
	arrow := &token.Token{Type: token.Arrow, FileIndex: p.current.FileIndex, Span: at}
	void := &token.Token{Type: token.Void, FileIndex: p.current.FileIndex, Span: at}
	return cst.NewLeaf(arrow), cst.NewLeaf(void)
}

func (p *Parser) parseParamList() *cst.Node {
	n := cst.New(cst.ParamList, p.expect(token.LParen, "'(' to open parameter list"))
	if !p.check(token.RParen) {
		n.Children = append(n.Children, p.parseVarNameType())
		for p.check(token.Comma) {
			n.Children = append(n.Children, p.leaf(), p.parseVarNameType())
		}
	}
	n.Children = append(n.Children, p.expect(token.RParen, "',' or ')' in parameter list"))
	return n
}

func (p *Parser) parseVarNameType() *cst.Node {
	name := p.expect(token.Ident, "identifier")
	colon := p.expect(token.Colon, "':' after name")
	return cst.New(cst.VarNameType, name, colon, p.parseType())
}

func (p *Parser) parseType() *cst.Node {
	if p.current.Type.IsPrimitiveType() || p.check(token.Void) {
		return p.leaf()
	}
	p.fail("type name")
	return nil
}

func (p *Parser) parseVarDef() *cst.Node {
	kw := p.expect(token.Let, "'let'")
	decl := p.parseVarNameType()
	eq := p.expect(token.Eq, "'=' in variable definition")
	value := p.parseExpr()
	semi := p.expect(token.Semi, "';' after variable definition")
	return cst.New(cst.VarDef, kw, decl, eq, value, semi)
}

// parseBlock parses a function body or a nested local block. Both accept the
// same statements.
func (p *Parser) parseBlock(kind cst.Kind) *cst.Node {
	n := cst.New(kind, p.expect(token.LBrace, "'{' to open block"))
	for !p.check(token.RBrace) {
		if p.check(token.EOF) {
			p.fail("'}' to close block")
		}
		n.Children = append(n.Children, p.parseStmt())
	}
	n.Children = append(n.Children, p.leaf())
	return n
}

func (p *Parser) parseStmt() *cst.Node {
	switch p.current.Type {
	case token.Let:
		return p.parseVarDef()
	case token.While:
		return p.parseWhile()
	case token.LBrace:
		return cst.New(cst.NestedBlock, p.parseBlock(cst.LocalBlock))
	case token.Semi:
		return cst.New(cst.Empty, p.leaf())
	case token.Ident:
		switch p.peek().Type {
		case token.Eq:
			name := p.leaf()
			eq := p.leaf()
			value := p.parseExpr()
			return cst.New(cst.Assign, name, eq, value, p.expect(token.Semi, "';' after assignment"))
		case token.LParen:
			call := p.parseCall()
			return cst.New(cst.CallStmt, call, p.expect(token.Semi, "';' after call"))
		}
		p.advance()
		p.fail("'=' or '(' after identifier")
	}
	p.fail("statement")
	return nil
}

func (p *Parser) parseWhile() *cst.Node {
	kw := p.expect(token.While, "'while'")
	cond := p.parseExpr()
	return cst.New(cst.While, kw, cond, p.parseBlock(cst.LocalBlock))
}

func (p *Parser) parseCall() *cst.Node {
	name := p.expect(token.Ident, "function name")
	return cst.New(cst.CallExpr, name, p.parseArgList())
}

func (p *Parser) parseArgList() *cst.Node {
	n := cst.New(cst.ArgList, p.expect(token.LParen, "'(' to open argument list"))
	if !p.check(token.RParen) {
		n.Children = append(n.Children, p.parseExpr())
		for p.check(token.Comma) {
			n.Children = append(n.Children, p.leaf(), p.parseExpr())
		}
	}
	n.Children = append(n.Children, p.expect(token.RParen, "',' or ')' in argument list"))
	return n
}

// Expression Parsing

type tier int

const (
	tierNone tier = iota
	tierLow
	tierHigh
)

func opTier(t token.Type) tier {
	switch t {
	case token.Plus, token.Minus, token.Or, token.And, token.EqEq:
		return tierLow
	case token.Star, token.Slash, token.Rem:
		return tierHigh
	}
	return tierNone
}

// nodeTier is the tier of a binary operation node, tierNone for anything else.
func nodeTier(n *cst.Node) tier {
	if n == nil || n.Kind != cst.BinaryOp {
		return tierNone
	}
	return opTier(n.Children[1].Tok.Type)
}

func (p *Parser) parseExpr() *cst.Node {
	return p.parseTier(tierLow)
}

// parseTier parses "operand [op rest]" where rest recurses into the same
// tier, then rotates the right-nested result into left-associative form.
func (p *Parser) parseTier(t tier) *cst.Node {
	var left *cst.Node
	if t == tierLow {
		left = p.parseTier(tierHigh)
	} else {
		left = p.parseTerm()
	}
	if opTier(p.current.Type) != t {
		return left
	}
	op := p.leaf()
	right := p.parseTier(t)
	return rotate(cst.New(cst.BinaryOp, left, op, right))
}

// rotate turns op(a, op(b, c)) into op(op(a, b), c) while the right child is
// of the same tier, then repairs the new left spine the same way.
func rotate(n *cst.Node) *cst.Node {
	t := nodeTier(n)
	if t == tierNone {
		return n
	}
	for nodeTier(n.Children[2]) == t {
		r := n.Children[2]
		n.Children[2] = r.Children[0]
		r.Children[0] = n
		n = r
	}
	n.Children[0] = rotate(n.Children[0])
	return n
}

func (p *Parser) parseTerm() *cst.Node {
	switch p.current.Type {
	case token.Ident:
		if p.peek().Type == token.LParen {
			return p.parseCall()
		}
		return p.leaf()
	case token.Number, token.True, token.False:
		return p.leaf()
	case token.LParen:
		open := p.leaf()
		inner := p.parseExpr()
		return cst.New(cst.ParenExpr, open, inner, p.expect(token.RParen, "')' after expression"))
	case token.Not:
		op := p.leaf()
		return cst.New(cst.UnaryOp, op, p.parseTerm())
	}
	p.fail("expression")
	return nil
}
