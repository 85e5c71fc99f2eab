package sema

import (
	"strings"

	"fortio.org/safecast"

	"github.com/xplshn/nsc/pkg/ast"
	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/symtab"
	"github.com/xplshn/nsc/pkg/token"
)

func (a *Analyzer) validate(root *ast.Node) {
	a.validateBlock(root.Data.(ast.NamespaceNode).Body, 0)
	if a.cfg.IsWarningEnabled(config.WarnUnused) {
		a.reportUnused()
	}
}

func (a *Analyzer) scopeOf(block *ast.Node) *symtab.Scope {
	scope, ok := a.info.Scopes[block.ID]
	if !ok {
		panic(diag.Contract(block.Span, "block %d has no scope", block.ID))
	}
	return scope
}

// validateBlock checks each statement with the position counter of the
// block's scope pointing at it.
func (a *Analyzer) validateBlock(block *ast.Node, offset int) {
	scope := a.scopeOf(block)
	for i, stmt := range block.Data.(ast.BlockNode).Stmts {
		a.pos[scope.ID] = offset + i
		a.validateStmt(scope, stmt)
	}
}

func (a *Analyzer) validateStmt(scope *symtab.Scope, stmt *ast.Node) {
	switch d := stmt.Data.(type) {
	case ast.VarDeclNode:
		if d.Type == "void" {
			a.errorf(stmt.Span, "Variable '%s' declared void", d.Name)
		}
		t := a.exprType(scope, d.Init)
		if t != "" && d.Type != "void" && t != d.Type {
			a.errorf(d.Init.Span, "Type mismatch in definition of '%s': declared %s, found %s", d.Name, d.Type, t)
		}

	case ast.FuncDeclNode:
		fn, ok := a.info.Funcs[stmt.ID]
		if !ok {
			panic(diag.Contract(stmt.Span, "function '%s' was not registered", d.Name))
		}
		for _, p := range d.Params {
			if pd := p.Data.(ast.ParamNode); pd.Type == "void" {
				a.errorf(p.Span, "Parameter '%s' declared void", pd.Name)
			}
		}
		a.validateBlock(d.Body, len(fn.Params))

	case ast.WhileNode:
		if t := a.exprType(scope, d.Cond); t != "" && t != "bool" {
			a.errorf(d.Cond.Span, "While condition must be bool, found %s", t)
		}
		a.validateBlock(d.Body, 0)

	case ast.BlockNode:
		a.validateBlock(stmt, 0)

	case ast.AssignNode:
		sym := a.resolve(scope, d.Name, d.NameSpan)
		t := a.exprType(scope, d.Value)
		if sym == nil {
			return
		}
		a.info.Refs[stmt.ID] = sym
		if t != "" && t != sym.Type {
			a.errorf(d.Value.Span, "Cannot assign %s to '%s' of type %s", t, d.Name, sym.Type)
		}

	case ast.FuncCallNode:
		a.exprType(scope, stmt)

	case ast.EmptyNode:

	default:
		panic(diag.Unsupported(stmt.Span, "statement kind %v", stmt.Type))
	}
}

// resolve looks up an identifier reference. Only local symbols declared
// before the enclosing statement may be referenced.
func (a *Analyzer) resolve(scope *symtab.Scope, name string, span token.Span) *symtab.Symbol {
	sym := must(a.table.LookupSymbol(scope.ID, name))
	if sym == nil || sym.Scope.ID == symtab.GlobalID {
		a.errorf(span, "Undefined identifier '%s'", name)
		return nil
	}
	if !sym.Scope.Local {
		a.errorf(span, "Namespace-level variable '%s' cannot be referenced here", name)
		return nil
	}
	if sym.Position >= a.pos[sym.Scope.ID] {
		a.errorf(span, "'%s' used before its declaration at %s", name, a.declSpans[sym].Start)
		return nil
	}
	a.used[sym] = true
	return sym
}

// exprType resolves the type of e and records it. It returns "" when an error
// was already reported for e or one of its operands.
func (a *Analyzer) exprType(scope *symtab.Scope, e *ast.Node) string {
	var t string
	switch d := e.Data.(type) {
	case ast.NumberNode:
		t = "int32"
		if _, err := safecast.Conv[int32](d.Value); err != nil {
			t = "int64"
		}

	case ast.BoolNode:
		t = "bool"

	case ast.IdentNode:
		sym := a.resolve(scope, d.Name, e.Span)
		if sym == nil {
			return ""
		}
		a.info.Refs[e.ID] = sym
		t = sym.Type

	case ast.UnaryOpNode:
		operand := a.exprType(scope, d.Expr)
		if operand == "" {
			return ""
		}
		if operand != "bool" {
			a.errorf(e.Span, "Operator '!' requires a bool operand, found %s", operand)
			return ""
		}
		t = operand

	case ast.BinaryOpNode:
		left, right := a.exprType(scope, d.Left), a.exprType(scope, d.Right)
		op := token.TypeStrings[d.Op]
		switch d.Op {
		case token.Plus, token.Minus, token.Star, token.Slash, token.Rem:
			if left == "" || right == "" {
				return ""
			}
			if !isInteger(left) || !isInteger(right) {
				a.errorf(e.Span, "Operator '%s' requires integer operands, found %s and %s", op, left, right)
				return ""
			}
			t = left
		case token.Or, token.And:
			if left == "" || right == "" {
				return ""
			}
			if left != "bool" || right != "bool" {
				a.errorf(e.Span, "Operator '%s' requires bool operands, found %s and %s", op, left, right)
				return ""
			}
			t = left
		case token.EqEq:
			t = "bool"
		default:
			panic(diag.Unsupported(e.Span, "binary operator %s", d.Op))
		}

	case ast.FuncCallNode:
		t = a.callType(scope, e, d)
		if t == "" {
			return ""
		}

	default:
		panic(diag.Unsupported(e.Span, "expression kind %v", e.Type))
	}
	a.info.Types[e.ID] = t
	return t
}

// callType resolves a call by the exact signature its argument types spell.
func (a *Analyzer) callType(scope *symtab.Scope, e *ast.Node, d ast.FuncCallNode) string {
	types := make([]string, len(d.Args))
	complete := true
	for i, arg := range d.Args {
		types[i] = a.exprType(scope, arg)
		complete = complete && types[i] != ""
	}

	candidates := must(a.table.LookupFunctionsByName(scope.ID, d.Name))
	if len(candidates) == 0 {
		a.errorf(d.NameSpan, "Call to undefined function '%s'", d.Name)
		return ""
	}
	if !complete {
		return ""
	}
	key := symtab.Signature(d.Name, types)
	fn := must(a.table.LookupFunction(scope.ID, key))
	if fn == nil {
		keys := make([]string, len(candidates))
		for i, c := range candidates {
			keys[i] = c.Key
		}
		a.errorf(d.NameSpan, "No matching overload for %s, candidates are: %s", key, strings.Join(keys, ", "))
		return ""
	}
	a.info.Calls[e.ID] = fn
	return fn.ReturnType
}

func (a *Analyzer) reportUnused() {
	for id := symtab.GlobalID + 1; id < a.nextScope; id++ {
		scope := a.table.Scope(id)
		if scope == nil || !scope.Local {
			continue
		}
		for _, sym := range scope.Symbols() {
			if !a.used[sym] && !a.params[sym] {
				a.warnf(config.WarnUnused, a.declSpans[sym], "Unused variable '%s'", sym.Name)
			}
		}
	}
}
