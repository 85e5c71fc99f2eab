package symtab

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/nsc/pkg/diag"
)

func isContract(err error) bool {
	var fe *diag.FatalError
	return errors.As(err, &fe) && fe.Kind == diag.FatalContract
}

func TestAddScopeContract(t *testing.T) {
	tab := New()
	if _, err := tab.AddScope(1, "N", false, GlobalID); err != nil {
		t.Fatal(err)
	}
	if _, err := tab.AddScope(1, "again", false, GlobalID); !isContract(err) {
		t.Errorf("duplicate scope ID: got %v, want contract error", err)
	}
	if _, err := tab.AddScope(2, "orphan", true, 7); !isContract(err) {
		t.Errorf("missing parent: got %v, want contract error", err)
	}
	if tab.Scope(2) != nil {
		t.Error("failed AddScope must not register the scope")
	}
}

func TestAddSymbolDuplicate(t *testing.T) {
	tab := New()
	if _, err := tab.AddSymbol(GlobalID, 0, "x", "int32"); err != nil {
		t.Fatal(err)
	}
	if _, err := tab.AddSymbol(GlobalID, 1, "x", "bool"); !isContract(err) {
		t.Errorf("duplicate symbol: got %v, want contract error", err)
	}
	if _, err := tab.AddSymbol(9, 0, "y", "bool"); !isContract(err) {
		t.Errorf("missing scope: got %v, want contract error", err)
	}
}

func TestLookupInnermostWins(t *testing.T) {
	tab := New()
	tab.AddScope(1, "N", false, GlobalID)
	tab.AddScope(2, "f", true, 1)
	tab.AddScope(3, "block", true, 2)
	tab.AddSymbol(1, 0, "x", "int64")
	tab.AddSymbol(3, 0, "x", "bool")

	tests := []struct {
		scope int
		want  string
	}{{3, "bool"}, {2, "int64"}, {1, "int64"}}
	for _, tt := range tests {
		sym, err := tab.LookupSymbol(tt.scope, "x")
		if err != nil || sym == nil || sym.Type != tt.want {
			t.Errorf("lookup from %d = %+v, %v; want type %s", tt.scope, sym, err, tt.want)
		}
	}
	if sym, err := tab.LookupSymbol(3, "nope"); sym != nil || err != nil {
		t.Errorf("missing name should be a plain miss, got %v, %v", sym, err)
	}
	if _, err := tab.LookupSymbol(42, "x"); !isContract(err) {
		t.Errorf("lookup in missing scope: got %v", err)
	}
}

func TestAddFunction(t *testing.T) {
	tab := New()
	tab.AddScope(1, "N", false, GlobalID)
	def := FuncDef{Name: "add", Params: []Param{{"a", "int32"}, {"b", "int64"}}, ReturnType: "int32"}
	fn, err := tab.AddFunction(2, 1, def)
	if err != nil {
		t.Fatal(err)
	}
	if fn.Key != "add(int32,int64)" {
		t.Errorf("key = %s", fn.Key)
	}
	if fn.Scope.ID != 2 || fn.Scope.Parent.ID != 1 || !fn.Scope.Local {
		t.Errorf("function scope = %+v", fn.Scope)
	}
	var got []string
	for _, s := range fn.Scope.Symbols() {
		got = append(got, s.Name+":"+s.Type)
		if s.Position != len(got)-1 {
			t.Errorf("%s at position %d", s.Name, s.Position)
		}
	}
	if diff := cmp.Diff([]string{"a:int32", "b:int64"}, got); diff != "" {
		t.Errorf("params (-want +got):\n%s", diff)
	}

	// Order matters: a swapped overload is distinct.
	swapped := FuncDef{Name: "add", Params: []Param{{"a", "int64"}, {"b", "int32"}}, ReturnType: "int64"}
	if _, err := tab.AddFunction(3, 1, swapped); err != nil {
		t.Errorf("distinct overload rejected: %v", err)
	}
	if _, err := tab.AddFunction(4, 1, def); !isContract(err) {
		t.Errorf("duplicate signature: got %v", err)
	}
	if tab.Scope(4) != nil {
		t.Error("failed AddFunction must not create its scope")
	}
	dupParam := FuncDef{Name: "g", Params: []Param{{"a", "int32"}, {"a", "bool"}}, ReturnType: "void"}
	if _, err := tab.AddFunction(5, 1, dupParam); !isContract(err) || tab.Scope(5) != nil {
		t.Errorf("duplicate parameter: got %v", err)
	}

	// Functions and variables do not collide.
	if _, err := tab.AddSymbol(1, 0, "add", "int32"); err != nil {
		t.Errorf("variable named like a function: %v", err)
	}
}

func TestLookupFunction(t *testing.T) {
	tab := New()
	tab.AddScope(1, "N", false, GlobalID)
	tab.AddFunction(2, 1, FuncDef{Name: "f", Params: []Param{{"x", "bool"}}, ReturnType: "void"})
	tab.AddFunction(3, 1, FuncDef{Name: "f", ReturnType: "int32"})
	tab.AddScope(4, "while", true, 2)

	fn, err := tab.LookupFunction(4, Signature("f", []string{"bool"}))
	if err != nil || fn == nil || fn.Scope.ID != 2 {
		t.Fatalf("LookupFunction = %v, %v", fn, err)
	}
	if fn, _ := tab.LookupFunction(4, "f(int32)"); fn != nil {
		t.Errorf("f(int32) should not resolve, got %v", fn.Key)
	}
	all, err := tab.LookupFunctionsByName(4, "f")
	if err != nil || len(all) != 2 || all[0].Key != "f(bool)" || all[1].Key != "f()" {
		t.Errorf("LookupFunctionsByName = %v, %v", all, err)
	}
}

func TestDescendantsOrderedByID(t *testing.T) {
	tab := New()
	tab.AddScope(1, "N", false, GlobalID)
	tab.AddScope(2, "f", true, 1)
	tab.AddScope(3, "g", true, 1)
	tab.AddScope(5, "inner", true, 2)
	tab.AddScope(4, "while", true, 2)

	scopes, err := tab.Descendants(2)
	if err != nil {
		t.Fatal(err)
	}
	var ids []int
	for _, s := range scopes {
		ids = append(ids, s.ID)
	}
	if diff := cmp.Diff([]int{4, 5}, ids); diff != "" {
		t.Errorf("descendants (-want +got):\n%s", diff)
	}
	if !tab.Scope(1).IsAncestorOf(tab.Scope(5)) || tab.Scope(3).IsAncestorOf(tab.Scope(5)) {
		t.Error("IsAncestorOf mismatch")
	}
}
