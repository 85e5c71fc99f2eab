package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/xplshn/nsc/pkg/cst"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/lexer"
	"github.com/xplshn/nsc/pkg/token"
)

func parse(t *testing.T, src string) (*cst.Node, error) {
	t.Helper()
	toks, err := lexer.Tokenize([]rune(src), 0)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	return NewParser(toks).Parse()
}

func mustParse(t *testing.T, src string) *cst.Node {
	t.Helper()
	root, err := parse(t, src)
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	return root
}

// shape renders expressions as prefix forms, ignoring trivia.
func shape(n *cst.Node) string {
	switch n.Kind {
	case cst.Leaf:
		return n.Tok.Value
	case cst.BinaryOp:
		return "(" + n.Children[1].Tok.Value + " " + shape(n.Children[0]) + " " + shape(n.Children[2]) + ")"
	case cst.UnaryOp:
		return "(! " + shape(n.Children[1]) + ")"
	case cst.ParenExpr:
		return shape(n.Children[1])
	case cst.CallExpr:
		var args []string
		for _, c := range n.Children[1].Children {
			if !c.IsLeaf() || (c.Tok.Type != token.LParen && c.Tok.Type != token.RParen && c.Tok.Type != token.Comma) {
				args = append(args, shape(c))
			}
		}
		return n.Children[0].Tok.Value + "(" + strings.Join(args, ",") + ")"
	}
	return n.Kind.String()
}

// initExpr returns the initializer of the first namespace-level let.
func initExpr(t *testing.T, expr string) *cst.Node {
	t.Helper()
	root := mustParse(t, "namespace N { let v: int32 = "+expr+"; }")
	block := root.Children[2]
	def := block.Children[1]
	if def.Kind != cst.VarDef {
		t.Fatalf("expected VarDef, got %v", def.Kind)
	}
	return def.Children[3]
}

func TestAssociativity(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"a - b - c", "(- (- a b) c)"},
		{"a * b * c", "(* (* a b) c)"},
		{"a + b * c", "(+ a (* b c))"},
		{"a * b + c", "(+ (* a b) c)"},
		{"a - b + c - d", "(- (+ (- a b) c) d)"},
		{"a / b % c * d", "(* (% (/ a b) c) d)"},
		{"a - (b - c)", "(- a (- b c))"},
		{"a == b + c", "(+ (== a b) c)"},
		{"!a & b | c", "(| (& (! a) b) c)"},
		{"f(a - b - c, 1) * 2", "(* f((- (- a b) c),1) 2)"},
		{"a * b - c * d - e", "(- (- (* a b) (* c d)) e)"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := shape(initExpr(t, tt.expr)); got != tt.want {
				t.Errorf("shape = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	sources := []string{
		"namespace N { }",
		"  // header\nnamespace A.B.C {\n\tlet g: int64 = 1;\n\n\tfunc f(a: int32, b: int32) -> int32 {\n\t\tlet s: int32 = a - b - 1; // diff\n\t\twhile s == 0 { s = s * 2; }\n\t\t{ ; }\n\t\tg2(s, (a+b)*3);\n\t}\n\tfunc g2(x: int32, y: int32) { }\n}\n// trailer\n",
		"namespace X{func main(){let b:bool=!true|false;}}",
	}
	for _, src := range sources {
		root := mustParse(t, src)
		if got := root.Text(); got != src {
			t.Errorf("round trip mismatch:\n got %q\nwant %q", got, src)
		}
		var sb strings.Builder
		n, err := root.WriteTo(&sb)
		if err != nil || n != int64(len(src)) {
			t.Errorf("WriteTo = %d, %v; want %d, nil", n, err, len(src))
		}
	}
}

func TestImplicitVoid(t *testing.T) {
	root := mustParse(t, "namespace N {\n  func f() {}\n}")
	fn := root.Children[2].Children[1]
	if fn.Kind != cst.FuncDef || len(fn.Children) != 6 {
		t.Fatalf("unexpected FuncDef shape: %v with %d children", fn.Kind, len(fn.Children))
	}
	arrow, void, body := fn.Children[3], fn.Children[4], fn.Children[5]
	if !arrow.Is(token.Arrow) || !void.Is(token.Void) {
		t.Fatalf("expected synthesized '->' and void, got %v %v", arrow.Tok.Type, void.Tok.Type)
	}
	brace := body.Children[0].Tok.Span.Start
	for _, leaf := range []*cst.Node{arrow, void} {
		if !leaf.Tok.Synthetic() {
			t.Errorf("%v should be synthetic", leaf.Tok.Type)
		}
		if leaf.Tok.Span.Start != brace || leaf.Tok.Span.End != brace {
			t.Errorf("%v span = %v, want zero width at %v", leaf.Tok.Type, leaf.Tok.Span, brace)
		}
	}
	if root.Text() != "namespace N {\n  func f() {}\n}" {
		t.Error("synthesized tokens must not change the text")
	}
}

func TestExplicitReturnType(t *testing.T) {
	root := mustParse(t, "namespace N { func f() -> int64 {} }")
	fn := root.Children[2].Children[1]
	if fn.Children[4].Tok.Type != token.Int64 || fn.Children[4].Tok.Synthetic() {
		t.Errorf("return type = %v", fn.Children[4].Tok.Type)
	}
}

func TestNestedBlocksAndEmpty(t *testing.T) {
	root := mustParse(t, "namespace N { ; func f() { { let x: int32 = 1; } ; while true { } } }")
	ns := root.Children[2]
	if ns.Children[1].Kind != cst.Empty {
		t.Errorf("namespace-level ';' = %v, want Empty", ns.Children[1].Kind)
	}
	body := ns.Children[2].Children[5]
	kinds := []cst.Kind{body.Children[1].Kind, body.Children[2].Kind, body.Children[3].Kind}
	want := []cst.Kind{cst.NestedBlock, cst.Empty, cst.While}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("statement %d = %v, want %v", i, kinds[i], want[i])
		}
	}
	if body.Children[1].Children[0].Kind != cst.LocalBlock {
		t.Error("nested block should wrap a LocalBlock")
	}
}

func TestEmptyInput(t *testing.T) {
	for _, src := range []string{"", "   \n", "// only a comment\n"} {
		root, err := parse(t, src)
		if root != nil || err != nil {
			t.Errorf("parse(%q) = %v, %v; want nil, nil", src, root, err)
		}
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
		at   token.Pos
	}{
		{"missing namespace", "func f() {}", "expected 'namespace', found 'func'", token.Pos{Line: 1, Column: 1}},
		{"trailing dot", "namespace A. { }", "expected identifier after '.', found '{'", token.Pos{Line: 1, Column: 14}},
		{"missing semicolon", "namespace N { let x: int32 = 1 }", "expected ';' after variable definition, found '}'", token.Pos{Line: 1, Column: 32}},
		{"missing initializer", "namespace N { let x: int32; }", "expected '=' in variable definition, found ';'", token.Pos{Line: 1, Column: 27}},
		{"bad type", "namespace N { let x: foo = 1; }", "expected type name, found identifier 'foo'", token.Pos{Line: 1, Column: 22}},
		{"statement in namespace", "namespace N { x = 1; }", "expected 'let', 'func' or '}' in namespace body, found identifier 'x'", token.Pos{Line: 1, Column: 15}},
		{"bare identifier", "namespace N { func f() { x; } }", "expected '=' or '(' after identifier, found ';'", token.Pos{Line: 1, Column: 27}},
		{"unclosed block", "namespace N { func f() { ", "expected '}' to close block, found end of input", token.Pos{Line: 1, Column: 26}},
		{"trailing tokens", "namespace N { } let", "expected end of input after namespace, found 'let'", token.Pos{Line: 1, Column: 17}},
		{"bad expression", "namespace N { let x: int32 = *; }", "expected expression, found '*'", token.Pos{Line: 1, Column: 30}},
		{"missing arrow", "namespace N { func f() int32 {} }", "expected '->' or '{' after parameter list, found 'int32'", token.Pos{Line: 1, Column: 24}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := parse(t, tt.src)
			if root != nil {
				t.Error("a failed parse must not return a partial tree")
			}
			var fe *diag.FatalError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *diag.FatalError, got %v", err)
			}
			if fe.Kind != diag.FatalSyntax {
				t.Errorf("kind = %v, want syntax error", fe.Kind)
			}
			if fe.Message != tt.want {
				t.Errorf("message = %q, want %q", fe.Message, tt.want)
			}
			if fe.Span.Start != tt.at {
				t.Errorf("position = %v, want %v", fe.Span.Start, tt.at)
			}
		})
	}
}

func TestHangTrivia(t *testing.T) {
	toks, err := lexer.Tokenize([]rune("  a // c\n b"), 0)
	if err != nil {
		t.Fatal(err)
	}
	hung := HangTrivia(toks)
	if len(hung) != 3 {
		t.Fatalf("got %d significant tokens, want 3 (a, b, EOF)", len(hung))
	}
	a, b := hung[0], hung[1]
	if len(a.Leading) != 1 || a.Leading[0].Value != "  " {
		t.Errorf("a.Leading = %v", a.Leading)
	}
	if len(a.Trailing) != 3 {
		t.Errorf("a.Trailing has %d tokens, want 3", len(a.Trailing))
	}
	if len(b.Leading) != 0 || len(b.Trailing) != 0 {
		t.Errorf("b should carry no trivia")
	}
}
