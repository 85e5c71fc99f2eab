package sema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/nsc/pkg/ast"
	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/lexer"
	"github.com/xplshn/nsc/pkg/parser"
)

type result struct {
	a    *Analyzer
	log  *diag.Log
	ok   bool
	root *ast.Node
}

func analyze(t *testing.T, body string, opts ...func(*config.Config)) result {
	t.Helper()
	src := "namespace N { " + body + " }"
	toks, err := lexer.Tokenize([]rune(src), 0)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	tree, err := parser.NewParser(toks).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	root, err := ast.FromCST(tree)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	cfg := config.NewConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	log := diag.NewLog()
	a := NewAnalyzer(cfg, log)
	ok, err := a.Analyze(root)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return result{a: a, log: log, ok: ok, root: root}
}

func messages(log *diag.Log, sev diag.Severity) []string {
	var out []string
	for _, d := range log.Items() {
		if d.Severity == sev {
			out = append(out, d.Message)
		}
	}
	return out
}

// funcScopes maps function declarations to their scope IDs.
func funcScopes(r result) map[string]int {
	out := map[string]int{}
	for _, stmt := range r.root.Data.(ast.NamespaceNode).Body.Data.(ast.BlockNode).Stmts {
		if fn, ok := r.a.Info().Funcs[stmt.ID]; ok {
			out[fn.Key] = fn.Scope.ID
		}
	}
	return out
}

func TestSiblingScopesGetConsecutiveIDs(t *testing.T) {
	r := analyze(t, "func A() { while true { } { } } func B() { { } }")
	if !r.ok {
		t.Fatalf("unexpected errors: %v", r.log.Items())
	}
	if diff := cmp.Diff(map[string]int{"A()": 2, "B()": 3}, funcScopes(r)); diff != "" {
		t.Errorf("function scopes (-want +got):\n%s", diff)
	}
	tab := r.a.Table()
	tests := []struct {
		id     int
		name   string
		parent int
	}{{1, "N", 0}, {4, "while", 2}, {5, "block", 2}, {6, "block", 3}}
	for _, tt := range tests {
		s := tab.Scope(tt.id)
		if s == nil || s.Name != tt.name || s.Parent.ID != tt.parent {
			t.Errorf("scope %d = %+v, want %s under %d", tt.id, s, tt.name, tt.parent)
		}
	}
	if tab.Scope(1).Local || !tab.Scope(2).Local || !tab.Scope(4).Local {
		t.Error("namespace scope must be non-local, function and nested scopes local")
	}
}

func TestRedeclaration(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		errors   int
		warnings int
		contains string
	}{
		{"same local scope", "func f() { let x: int32 = 0; let x: int32 = 0; }", 1, 0, "Redefinition of 'x'"},
		{"nested block shadows", "func f() { let x: int32 = 0; { let x: int32 = 0; } }", 0, 1, "shadows"},
		{"while body shadows", "func f() { let x: bool = true; while x { let x: int32 = 1; } }", 0, 1, "shadows"},
		{"namespace duplicate", "let x: int32 = 0; let x: int32 = 1;", 1, 0, "Redefinition of 'x'"},
		{"local shadows namespace", "let x: int32 = 0; func f() { let x: int32 = 1; }", 0, 1, "shadows"},
		{"param shadows namespace", "let x: int32 = 0; func f(x: int32) { }", 0, 1, "shadows"},
		{"duplicate parameter", "func f(a: int32, a: bool) { }", 1, 0, "Duplicate parameter 'a'"},
		{"duplicate function", "func f() { } func f() -> int32 { }", 1, 0, "Redefinition of function 'f()'"},
		{"overloads", "func f() { } func f(a: bool) { } func f(a: bool, b: int32) { }", 0, 0, ""},
		{"function and variable", "let f: int32 = 1; func f() { }", 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analyze(t, tt.body)
			errs, warns := messages(r.log, diag.SevError), messages(r.log, diag.SevWarning)
			if len(errs) != tt.errors || len(warns) != tt.warnings {
				t.Fatalf("got errors %q warnings %q, want %d/%d", errs, warns, tt.errors, tt.warnings)
			}
			if r.ok != (tt.errors == 0) {
				t.Errorf("ok = %v", r.ok)
			}
			all := strings.Join(append(errs, warns...), "\n")
			if !strings.Contains(all, tt.contains) {
				t.Errorf("diagnostics %q do not mention %q", all, tt.contains)
			}
		})
	}
}

func TestShadowWarningCanBeDisabled(t *testing.T) {
	noShadow := func(c *config.Config) { c.SetWarning(config.WarnShadow, false) }
	r := analyze(t, "func f() { let x: int32 = 0; { let x: int32 = 0; } }", noShadow)
	if r.log.Len() != 0 || !r.ok {
		t.Errorf("expected a clean log, got %v", r.log.Items())
	}
	r = analyze(t, "func f() { let x: int32 = 0; { let x: bool = true; } }")
	if w := r.log.Items(); len(w) != 1 || w[0].Flag != "shadow" {
		t.Errorf("warning should carry its flag, got %+v", w)
	}
}

func TestUseBeforeDeclaration(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"initializer", "func f() { let y: int32 = x; let x: int32 = 1; }"},
		{"self reference", "func f() { let x: int32 = x; }"},
		{"assignment", "func f() { x = 1; let x: int32 = 0; }"},
		{"call argument", "func g(a: int32) { } func f() { g(x); let x: int32 = 0; }"},
		{"nested block", "func f() { { let y: int32 = x; } let x: int32 = 1; }"},
		{"while condition", "func f() { while c { } let c: bool = true; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analyze(t, tt.body)
			errs := messages(r.log, diag.SevError)
			if r.ok || len(errs) != 1 || !strings.Contains(errs[0], "used before its declaration") {
				t.Errorf("got %q, want one use-before-declaration error", errs)
			}
		})
	}
}

func TestDeclaredBeforeIsAccepted(t *testing.T) {
	r := analyze(t, `func f(a: int32) {
		let b: int32 = a;
		let c: int32 = a + b;
		{ let d: int32 = c; c = d; }
		while b == c { b = b - 1; }
	}`)
	if !r.ok {
		t.Errorf("unexpected errors: %v", r.log.Items())
	}
}

func TestNamespaceVariablesCannotBeReferenced(t *testing.T) {
	tests := []string{
		"let g: int32 = 1; let h: int32 = g;",
		"let g: int32 = 1; func f() { let v: int32 = g; }",
		"let g: int32 = 1; func f() { g = 2; }",
	}
	for _, body := range tests {
		r := analyze(t, body)
		errs := messages(r.log, diag.SevError)
		if len(errs) != 1 || !strings.Contains(errs[0], "Namespace-level variable 'g'") {
			t.Errorf("%s: got %q", body, errs)
		}
	}
}

func TestTypeMismatchesAreAllReported(t *testing.T) {
	r := analyze(t, "func f() { let x: bool = 1; let y: int32 = true; let z: int8 = 1; let w: int64 = 5000000000; }")
	want := []string{
		"Type mismatch in definition of 'x': declared bool, found int32",
		"Type mismatch in definition of 'y': declared int32, found bool",
		"Type mismatch in definition of 'z': declared int8, found int32",
	}
	if diff := cmp.Diff(want, messages(r.log, diag.SevError)); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestOperators(t *testing.T) {
	r := analyze(t, `func f(a: int32, b: bool) {
		let c: int32 = a + b;
		let d: bool = !a;
		let e: bool = a | b;
		let q: bool = a == b;
	}`)
	want := []string{
		"Operator '+' requires integer operands, found int32 and bool",
		"Operator '!' requires a bool operand, found int32",
		"Operator '|' requires bool operands, found int32 and bool",
	}
	if diff := cmp.Diff(want, messages(r.log, diag.SevError)); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestMixedWidthArithmeticTakesLeftType(t *testing.T) {
	r := analyze(t, "func f(a: int64, b: int32) { let c: int64 = a + b; let d: int32 = b * a; let e: int64 = b - a; }")
	errs := messages(r.log, diag.SevError)
	if diff := cmp.Diff([]string{"Type mismatch in definition of 'e': declared int64, found int32"}, errs); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestWhileConditionMustBeBool(t *testing.T) {
	r := analyze(t, "func f(n: int32) { while n { } while n == 0 { } }")
	if diff := cmp.Diff([]string{"While condition must be bool, found int32"}, messages(r.log, diag.SevError)); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestCalls(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"undefined", "func f() { g(); }", []string{"Call to undefined function 'g'"}},
		{"no overload", "func g(a: int32) { } func f() { g(true); }",
			[]string{"No matching overload for g(bool), candidates are: g(int32)"}},
		{"void result", "func g() { } func f() { let x: int32 = g(); }",
			[]string{"Type mismatch in definition of 'x': declared int32, found void"}},
		{"overloads resolve", "func g(a: int32) -> int32 { } func g(a: bool) -> bool { } func f() { let x: int32 = g(1); let y: bool = g(true); }", nil},
		{"forward call", "func f() { g(); } func g() { }", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := analyze(t, tt.body)
			if diff := cmp.Diff(tt.want, messages(r.log, diag.SevError)); diff != "" {
				t.Errorf("errors (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCallAnnotations(t *testing.T) {
	r := analyze(t, "func g(a: int32) -> int32 { } func g(a: bool) -> bool { } func f() { let x: int32 = g(1); g(true); }")
	if !r.ok {
		t.Fatalf("unexpected errors: %v", r.log.Items())
	}
	var keys []string
	ast.Walk(r.root, func(n *ast.Node) bool {
		if n.Type == ast.FuncCall {
			keys = append(keys, r.a.Info().Calls[n.ID].Key+" -> "+r.a.Info().Types[n.ID])
		}
		return true
	})
	if diff := cmp.Diff([]string{"g(int32) -> int32", "g(bool) -> bool"}, keys); diff != "" {
		t.Errorf("calls (-want +got):\n%s", diff)
	}
}

func TestAssignments(t *testing.T) {
	r := analyze(t, "func f() { let x: int32 = 0; x = true; y = 1; }")
	want := []string{"Cannot assign bool to 'x' of type int32", "Undefined identifier 'y'"}
	if diff := cmp.Diff(want, messages(r.log, diag.SevError)); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestVoidVariables(t *testing.T) {
	r := analyze(t, "func f(p: void) { let v: void = 1; }")
	want := []string{"Parameter 'p' declared void", "Variable 'v' declared void"}
	if diff := cmp.Diff(want, messages(r.log, diag.SevError)); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestFailedStageStopsPipeline(t *testing.T) {
	r := analyze(t, "func f() { let x: int32 = 0; let x: bool = 1; let y: bool = 2; }")
	errs := messages(r.log, diag.SevError)
	if r.ok || len(errs) != 1 {
		t.Errorf("validation must not run after a failed build stage, got %q", errs)
	}
	if len(r.a.Info().Types) != 0 {
		t.Error("validate-stage annotations written after a failed build stage")
	}
}

func TestUnusedWarning(t *testing.T) {
	unused := func(c *config.Config) { c.SetWarning(config.WarnUnused, true) }
	r := analyze(t, "func f(p: int32) { let a: int32 = 1; let b: int32 = a; }", unused)
	if diff := cmp.Diff([]string{"Unused variable 'b'"}, messages(r.log, diag.SevWarning)); diff != "" {
		t.Errorf("warnings (-want +got):\n%s", diff)
	}
	if !r.ok {
		t.Error("warnings must not fail the analysis")
	}
	r = analyze(t, "func f() { let a: int32 = 1; }")
	if r.log.Len() != 0 {
		t.Errorf("-Wunused is off by default, got %v", r.log.Items())
	}
}

func TestPrimitivesAreRegistered(t *testing.T) {
	r := analyze(t, "")
	global := r.a.Table().Global()
	var names []string
	for _, s := range global.Symbols() {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff(Primitives, names); diff != "" {
		t.Errorf("global symbols (-want +got):\n%s", diff)
	}
}

func TestAnalyzeRejectsNonNamespaceRoot(t *testing.T) {
	a := NewAnalyzer(config.NewConfig(), diag.NewLog())
	if _, err := a.Analyze(nil); err == nil {
		t.Error("expected a contract error for a nil root")
	}
}
