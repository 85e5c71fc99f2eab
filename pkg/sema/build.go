package sema

import (
	"github.com/xplshn/nsc/pkg/ast"
	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/symtab"
	"github.com/xplshn/nsc/pkg/token"
)

// container is a scope-introducing node waiting for its scope ID.
type container struct {
	block  *ast.Node
	fn     *ast.Node
	name   string
	parent *symtab.Scope
	local  bool
}

func (a *Analyzer) newScopeID() int {
	id := a.nextScope
	a.nextScope++
	return id
}

// buildSymbolTable walks the tree breadth first. Declarations of a level are
// registered as they are met; containers are queued and get sequential scope
// IDs in discovery order before any of their bodies is scanned.
func (a *Analyzer) buildSymbolTable(root *ast.Node) {
	ns := root.Data.(ast.NamespaceNode)
	nsScope := must(a.table.AddScope(a.newScopeID(), ns.Name, false, symtab.GlobalID))
	a.info.Scopes[ns.Body.ID] = nsScope

	queue := a.scanLevel(ns.Body, nsScope, 0)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		var scope *symtab.Scope
		offset := 0
		if c.fn != nil {
			fn := a.declareFunction(c)
			if fn == nil {
				continue
			}
			scope, offset = fn.Scope, len(fn.Params)
		} else {
			scope = must(a.table.AddScope(a.newScopeID(), c.name, c.local, c.parent.ID))
		}
		a.info.Scopes[c.block.ID] = scope
		queue = append(queue, a.scanLevel(c.block, scope, offset)...)
	}
}

// scanLevel registers the variables of one block and returns its containers.
// Positions start at offset, which skips a function's parameters.
func (a *Analyzer) scanLevel(block *ast.Node, scope *symtab.Scope, offset int) []container {
	var queued []container
	for i, stmt := range block.Data.(ast.BlockNode).Stmts {
		switch d := stmt.Data.(type) {
		case ast.VarDeclNode:
			a.declareVar(scope, offset+i, stmt, d)
		case ast.FuncDeclNode:
			queued = append(queued, container{block: d.Body, fn: stmt, name: d.Name, parent: scope, local: true})
		case ast.WhileNode:
			queued = append(queued, container{block: d.Body, name: "while", parent: scope, local: scope.Local})
		case ast.BlockNode:
			queued = append(queued, container{block: stmt, name: "block", parent: scope, local: scope.Local})
		}
	}
	return queued
}

// outerSymbol finds name in from or any of its parents, skipping the
// primitive pseudo-symbols of the global scope.
func outerSymbol(from *symtab.Scope, name string) *symtab.Symbol {
	for s := from; s != nil && s.ID != symtab.GlobalID; s = s.Parent {
		if sym := s.Symbol(name); sym != nil {
			return sym
		}
	}
	return nil
}

func (a *Analyzer) declareVar(scope *symtab.Scope, pos int, node *ast.Node, d ast.VarDeclNode) {
	if prev := scope.Symbol(d.Name); prev != nil {
		a.errorf(node.Span, "Redefinition of '%s' (previous definition at %s)", d.Name, a.declSpans[prev].Start)
		return
	}
	if !a.checkShadow(scope.Parent, scope.Local, d.Name, node.Span) {
		return
	}
	sym := must(a.table.AddSymbol(scope.ID, pos, d.Name, d.Type))
	a.info.Decls[node.ID] = sym
	a.declSpans[sym] = node.Span
}

// checkShadow applies the redeclaration rule against the enclosing chain: a
// non-local redeclaration is an error, a local one only shadows.
func (a *Analyzer) checkShadow(outer *symtab.Scope, local bool, name string, span token.Span) bool {
	prev := outerSymbol(outer, name)
	if prev == nil {
		return true
	}
	if !local {
		a.errorf(span, "Redefinition of '%s' (previous definition at %s)", name, a.declSpans[prev].Start)
		return false
	}
	a.warnf(config.WarnShadow, span, "Declaration of '%s' shadows the one at %s", name, a.declSpans[prev].Start)
	return true
}

func (a *Analyzer) declareFunction(c container) *symtab.Function {
	d := c.fn.Data.(ast.FuncDeclNode)
	def := symtab.FuncDef{Name: d.Name, ReturnType: d.ReturnType}
	ok := true
	seen := make(map[string]bool, len(d.Params))
	for _, p := range d.Params {
		pd := p.Data.(ast.ParamNode)
		if seen[pd.Name] {
			a.errorf(p.Span, "Duplicate parameter '%s' in function '%s'", pd.Name, d.Name)
			ok = false
		}
		seen[pd.Name] = true
		def.Params = append(def.Params, symtab.Param{Name: pd.Name, Type: pd.Type})
	}
	key := symtab.Signature(def.Name, paramTypes(def.Params))
	if c.parent.Function(key) != nil {
		a.errorf(c.fn.Span, "Redefinition of function '%s'", key)
		ok = false
	}
	if !ok {
		return nil
	}

	fn := must(a.table.AddFunction(a.newScopeID(), c.parent.ID, def))
	a.info.Funcs[c.fn.ID] = fn
	for i, p := range d.Params {
		sym := fn.Scope.Symbols()[i]
		a.info.Decls[p.ID] = sym
		a.declSpans[sym] = p.Span
		a.params[sym] = true
		a.checkShadow(c.parent, true, sym.Name, p.Span)
	}
	return fn
}

func paramTypes(params []symtab.Param) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.Type
	}
	return out
}
