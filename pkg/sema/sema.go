// Package sema runs the three analysis stages over an AST: primitive
// registration, symbol table construction and scope/type validation.
package sema

import (
	"github.com/xplshn/nsc/pkg/ast"
	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/symtab"
	"github.com/xplshn/nsc/pkg/token"
)

// Primitives are the type names seeded into the global scope.
var Primitives = []string{"int8", "int16", "int32", "int64", "bool"}

func isInteger(t string) bool {
	switch t {
	case "int8", "int16", "int32", "int64":
		return true
	}
	return false
}

// Info holds the annotations the analyzer attaches to AST nodes. Each map is
// written by exactly one stage and only read afterwards.
type Info struct {
	// Scopes maps every Block to the scope it opens (build stage).
	Scopes map[ast.NodeID]*symtab.Scope
	// Funcs maps every registered FuncDecl to its function (build stage).
	Funcs map[ast.NodeID]*symtab.Function
	// Decls maps VarDecl and Param nodes to the symbols they declare (build stage).
	Decls map[ast.NodeID]*symtab.Symbol
	// Refs maps Ident and Assign nodes to the symbols they name (validate stage).
	Refs map[ast.NodeID]*symtab.Symbol
	// Calls maps FuncCall nodes to their callee (validate stage).
	Calls map[ast.NodeID]*symtab.Function
	// Types maps expressions to their resolved type name (validate stage).
	Types map[ast.NodeID]string
}

func newInfo() *Info {
	return &Info{
		Scopes: make(map[ast.NodeID]*symtab.Scope),
		Funcs:  make(map[ast.NodeID]*symtab.Function),
		Decls:  make(map[ast.NodeID]*symtab.Symbol),
		Refs:   make(map[ast.NodeID]*symtab.Symbol),
		Calls:  make(map[ast.NodeID]*symtab.Function),
		Types:  make(map[ast.NodeID]string),
	}
}

type Analyzer struct {
	cfg   *config.Config
	log   *diag.Log
	table *symtab.Table
	info  *Info

	nextScope int
	declSpans map[*symtab.Symbol]token.Span
	params    map[*symtab.Symbol]bool
	used      map[*symtab.Symbol]bool
	// pos holds, per scope ID, the position of the statement being validated.
	pos map[int]int
}

func NewAnalyzer(cfg *config.Config, log *diag.Log) *Analyzer {
	return &Analyzer{
		cfg:       cfg,
		log:       log,
		table:     symtab.New(),
		info:      newInfo(),
		nextScope: symtab.GlobalID + 1,
		declSpans: make(map[*symtab.Symbol]token.Span),
		params:    make(map[*symtab.Symbol]bool),
		used:      make(map[*symtab.Symbol]bool),
		pos:       make(map[int]int),
	}
}

func (a *Analyzer) Table() *symtab.Table { return a.table }
func (a *Analyzer) Info() *Info          { return a.info }

// Analyze runs the stages in order and stops after the first one that
// reports an error. Diagnostics go to the analyzer's log; a non-nil error is
// always a *diag.FatalError.
func (a *Analyzer) Analyze(root *ast.Node) (ok bool, err error) {
	defer diag.Recover(&err)
	if root == nil || root.Type != ast.Namespace {
		return false, diag.Contract(token.Span{}, "analysis needs a namespace root")
	}
	stages := []func(*ast.Node){a.registerPrimitives, a.buildSymbolTable, a.validate}
	for _, stage := range stages {
		mark := a.log.Mark()
		stage(root)
		if a.log.ErrorsSince(mark) > 0 {
			return false, nil
		}
	}
	return true, nil
}

func (a *Analyzer) registerPrimitives(*ast.Node) {
	for i, name := range Primitives {
		must(a.table.AddSymbol(symtab.GlobalID, i, name, name))
	}
}

func (a *Analyzer) errorf(span token.Span, format string, args ...interface{}) {
	a.log.Errorf(span, format, args...)
}

func (a *Analyzer) warnf(w config.Warning, span token.Span, format string, args ...interface{}) {
	if a.cfg.IsWarningEnabled(w) {
		a.log.Warnf(a.cfg.WarningName(w), span, format, args...)
	}
}

// must unwraps symbol table results; contract failures abort the analysis.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
