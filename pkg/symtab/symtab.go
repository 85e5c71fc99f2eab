// Package symtab holds the scope tree and the per-scope symbol and function
// registries. Declaration order is kept in explicit slices; the maps only
// index them.
package symtab

import (
	"sort"
	"strings"

	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/token"
)

// GlobalID is the ID of the root scope.
const GlobalID = 0

type Symbol struct {
	Name string
	Type string
	// Position orders the symbol among the declarations of its scope.
	Position int
	Scope    *Scope
}

type Param struct {
	Name string
	Type string
}

// FuncDef is what AddFunction needs to know about a function.
type FuncDef struct {
	Name       string
	Params     []Param
	ReturnType string
}

type Function struct {
	Name       string
	Params     []Param
	ReturnType string
	Key        string
	// Scope is the function's own scope, holding its parameters.
	Scope  *Scope
	Parent *Scope
}

// ParamTypes returns the parameter types in declaration order.
func (f *Function) ParamTypes() []string {
	out := make([]string, len(f.Params))
	for i, p := range f.Params {
		out[i] = p.Type
	}
	return out
}

// Signature builds the lookup key of a function: name(t1,t2,...).
func Signature(name string, types []string) string {
	return name + "(" + strings.Join(types, ",") + ")"
}

type Scope struct {
	ID       int
	Name     string
	Local    bool
	Parent   *Scope
	Children []*Scope

	symbols   map[string]*Symbol
	order     []*Symbol
	functions map[string]*Function
	funcOrder []*Function
}

// Symbols returns the scope's symbols in insertion order.
func (s *Scope) Symbols() []*Symbol { return s.order }

// Functions returns the functions registered in the scope in insertion order.
func (s *Scope) Functions() []*Function { return s.funcOrder }

// Symbol looks name up in this scope only.
func (s *Scope) Symbol(name string) *Symbol { return s.symbols[name] }

// Function looks a signature key up in this scope only.
func (s *Scope) Function(key string) *Function { return s.functions[key] }

// HasFunctionNamed reports whether any overload of name lives in this scope.
func (s *Scope) HasFunctionNamed(name string) bool {
	for _, f := range s.funcOrder {
		if f.Name == name {
			return true
		}
	}
	return false
}

// IsAncestorOf reports whether s is o or one of o's parents.
func (s *Scope) IsAncestorOf(o *Scope) bool {
	for c := o; c != nil; c = c.Parent {
		if c == s {
			return true
		}
	}
	return false
}

type Table struct {
	scopes map[int]*Scope
}

// New creates a table holding only the global scope.
func New() *Table {
	t := &Table{scopes: make(map[int]*Scope)}
	t.scopes[GlobalID] = newScope(GlobalID, "global", false, nil)
	return t
}

func newScope(id int, name string, local bool, parent *Scope) *Scope {
	return &Scope{
		ID:        id,
		Name:      name,
		Local:     local,
		Parent:    parent,
		symbols:   make(map[string]*Symbol),
		functions: make(map[string]*Function),
	}
}

func (t *Table) Global() *Scope { return t.scopes[GlobalID] }

// Scope returns the scope with the given ID or nil.
func (t *Table) Scope(id int) *Scope { return t.scopes[id] }

// Len is the number of scopes, the global one included.
func (t *Table) Len() int { return len(t.scopes) }

func (t *Table) mustScope(id int) (*Scope, error) {
	s, ok := t.scopes[id]
	if !ok {
		return nil, diag.Contract(token.Span{}, "scope %d does not exist", id)
	}
	return s, nil
}

func (t *Table) AddScope(id int, name string, local bool, parentID int) (*Scope, error) {
	if _, exists := t.scopes[id]; exists {
		return nil, diag.Contract(token.Span{}, "scope %d already exists", id)
	}
	parent, err := t.mustScope(parentID)
	if err != nil {
		return nil, err
	}
	s := newScope(id, name, local, parent)
	parent.Children = append(parent.Children, s)
	t.scopes[id] = s
	return s, nil
}

func (t *Table) AddSymbol(scopeID, position int, name, typ string) (*Symbol, error) {
	s, err := t.mustScope(scopeID)
	if err != nil {
		return nil, err
	}
	if _, dup := s.symbols[name]; dup {
		return nil, diag.Contract(token.Span{}, "symbol %q already declared in scope %d", name, scopeID)
	}
	sym := &Symbol{Name: name, Type: typ, Position: position, Scope: s}
	s.symbols[name] = sym
	s.order = append(s.order, sym)
	return sym, nil
}

// AddFunction creates the function's scope childID under parentID, inserts
// its parameters at positions 0..n-1 and registers the signature in the
// parent. Nothing is modified when it fails.
func (t *Table) AddFunction(childID, parentID int, def FuncDef) (*Function, error) {
	parent, err := t.mustScope(parentID)
	if err != nil {
		return nil, err
	}
	if _, exists := t.scopes[childID]; exists {
		return nil, diag.Contract(token.Span{}, "scope %d already exists", childID)
	}
	types := make([]string, len(def.Params))
	seen := make(map[string]bool, len(def.Params))
	for i, p := range def.Params {
		if seen[p.Name] {
			return nil, diag.Contract(token.Span{}, "duplicate parameter %q in %s", p.Name, def.Name)
		}
		seen[p.Name] = true
		types[i] = p.Type
	}
	key := Signature(def.Name, types)
	if _, dup := parent.functions[key]; dup {
		return nil, diag.Contract(token.Span{}, "function %s already registered in scope %d", key, parentID)
	}

	s, err := t.AddScope(childID, def.Name, true, parentID)
	if err != nil {
		return nil, err
	}
	for i, p := range def.Params {
		if _, err := t.AddSymbol(childID, i, p.Name, p.Type); err != nil {
			return nil, err
		}
	}
	fn := &Function{
		Name:       def.Name,
		Params:     append([]Param(nil), def.Params...),
		ReturnType: def.ReturnType,
		Key:        key,
		Scope:      s,
		Parent:     parent,
	}
	parent.functions[key] = fn
	parent.funcOrder = append(parent.funcOrder, fn)
	return fn, nil
}

// LookupSymbol walks from scopeID up to the root and returns the innermost
// symbol called name, or nil.
func (t *Table) LookupSymbol(scopeID int, name string) (*Symbol, error) {
	s, err := t.mustScope(scopeID)
	if err != nil {
		return nil, err
	}
	for ; s != nil; s = s.Parent {
		if sym, ok := s.symbols[name]; ok {
			return sym, nil
		}
	}
	return nil, nil
}

// LookupFunction resolves a signature key the same way LookupSymbol does.
func (t *Table) LookupFunction(scopeID int, key string) (*Function, error) {
	s, err := t.mustScope(scopeID)
	if err != nil {
		return nil, err
	}
	for ; s != nil; s = s.Parent {
		if fn, ok := s.functions[key]; ok {
			return fn, nil
		}
	}
	return nil, nil
}

// LookupFunctionsByName returns every overload of name in the innermost scope
// that declares one.
func (t *Table) LookupFunctionsByName(scopeID int, name string) ([]*Function, error) {
	s, err := t.mustScope(scopeID)
	if err != nil {
		return nil, err
	}
	for ; s != nil; s = s.Parent {
		var out []*Function
		for _, fn := range s.funcOrder {
			if fn.Name == name {
				out = append(out, fn)
			}
		}
		if len(out) > 0 {
			return out, nil
		}
	}
	return nil, nil
}

// Descendants returns every scope below id, ordered by scope ID.
func (t *Table) Descendants(id int) ([]*Scope, error) {
	s, err := t.mustScope(id)
	if err != nil {
		return nil, err
	}
	var out []*Scope
	var collect func(*Scope)
	collect = func(s *Scope) {
		for _, c := range s.Children {
			out = append(out, c)
			collect(c)
		}
	}
	collect(s)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
