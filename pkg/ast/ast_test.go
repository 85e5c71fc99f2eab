package ast

import (
	"errors"
	"testing"

	"github.com/xplshn/nsc/pkg/cst"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/lexer"
	"github.com/xplshn/nsc/pkg/parser"
)

func parseCST(t *testing.T, src string) *cst.Node {
	t.Helper()
	toks, err := lexer.Tokenize([]rune(src), 0)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	root, err := parser.NewParser(toks).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return root
}

func reduce(t *testing.T, src string) *Node {
	t.Helper()
	n, err := FromCST(parseCST(t, src))
	if err != nil {
		t.Fatalf("FromCST: %v", err)
	}
	return n
}

func TestReduceProgram(t *testing.T) {
	src := `namespace App.Core {
	let limit: int64 = 5000000000;
	func add(a: int32, b: int32) -> int32 {
		let s: int32 = (a + b) * 2; // paren disappears
		{ s = s - 1; }
		while !(s == 0) { s = s - 1; }
		;
		log(s);
	}
	func log(v: int32) {}
}`
	want := "(namespace App.Core { (let limit:int64 5000000000) " +
		"(func add (a:int32 b:int32) int32 { (let s:int32 (* (+ a b) 2)) { (= s (- s 1)) } " +
		"(while (! (== s 0)) { (= s (- s 1)) }) ; (call log s) }) " +
		"(func log (v:int32) void { }) })"
	if got := reduce(t, src).String(); got != want {
		t.Errorf("AST mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestLeftAssociativeReduction(t *testing.T) {
	tests := map[string]string{
		"a - b - c": "(- (- a b) c)",
		"a * b * c": "(* (* a b) c)",
		"a + b * c": "(+ a (* b c))",
		"f(1, g())": "(call f 1 (call g))",
		"true & !x": "(& true (! x))",
	}
	for expr, want := range tests {
		root := reduce(t, "namespace N { let v: int32 = "+expr+"; }")
		decl := root.Data.(NamespaceNode).Body.Data.(BlockNode).Stmts[0]
		if got := decl.Data.(VarDeclNode).Init.String(); got != want {
			t.Errorf("%s: got %s, want %s", expr, got, want)
		}
	}
}

func TestReductionLeavesCSTUntouched(t *testing.T) {
	src := "namespace N { func f(a: int32) { let x: int32 = a - 1 - 2; { x = x; } } }"
	tree := parseCST(t, src)
	first, err := FromCST(tree)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Text() != src {
		t.Fatalf("CST text changed after reduction: %q", tree.Text())
	}
	second, err := FromCST(tree)
	if err != nil {
		t.Fatal(err)
	}
	if first.String() != second.String() {
		t.Errorf("reducing twice gave different trees:\n%s\n%s", first, second)
	}
}

func TestNodeIDsArePreOrderAndUnique(t *testing.T) {
	root := reduce(t, "namespace N { let a: int32 = 1 + 2; func f() { g(a); } }")
	seen := map[NodeID]bool{}
	last := NodeID(0)
	Walk(root, func(n *Node) bool {
		if n.ID <= last {
			t.Errorf("%v has ID %d after %d", n.Type, n.ID, last)
		}
		if seen[n.ID] {
			t.Errorf("duplicate ID %d", n.ID)
		}
		seen[n.ID], last = true, n.ID
		return true
	})
	if root.ID != 1 {
		t.Errorf("root ID = %d, want 1", root.ID)
	}
}

func TestImplicitVoidFlag(t *testing.T) {
	root := reduce(t, "namespace N { func a() {} func b() -> void {} func c() -> bool {} }")
	stmts := root.Data.(NamespaceNode).Body.Data.(BlockNode).Stmts
	tests := []struct {
		ret      string
		implicit bool
	}{{"void", true}, {"void", false}, {"bool", false}}
	for i, tt := range tests {
		fn := stmts[i].Data.(FuncDeclNode)
		if fn.ReturnType != tt.ret || fn.ImplicitVoid != tt.implicit {
			t.Errorf("%s: ret=%s implicit=%v, want %s %v", fn.Name, fn.ReturnType, fn.ImplicitVoid, tt.ret, tt.implicit)
		}
	}
}

func TestNestedBlockCollapses(t *testing.T) {
	root := reduce(t, "namespace N { func f() { { { ; } } } }")
	body := root.Data.(NamespaceNode).Body.Data.(BlockNode).Stmts[0].Data.(FuncDeclNode).Body
	outer := body.Data.(BlockNode).Stmts[0]
	if outer.Type != Block || outer.Data.(BlockNode).Flavor != Local {
		t.Fatalf("nested block reduced to %v", outer.Type)
	}
	inner := outer.Data.(BlockNode).Stmts[0]
	if inner.Type != Block || inner.Data.(BlockNode).Stmts[0].Type != Empty {
		t.Errorf("inner block = %s", inner)
	}
}

func TestLiteralOutOfRange(t *testing.T) {
	_, err := FromCST(parseCST(t, "namespace N { let v: int64 = 99999999999999999999; }"))
	var fe *diag.FatalError
	if !errors.As(err, &fe) || fe.Kind != diag.FatalUnsupported {
		t.Fatalf("expected unsupported FatalError, got %v", err)
	}
}

func TestNilRoot(t *testing.T) {
	n, err := FromCST(nil)
	if n != nil || err != nil {
		t.Errorf("FromCST(nil) = %v, %v", n, err)
	}
}
