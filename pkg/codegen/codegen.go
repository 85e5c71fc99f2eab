package codegen

import (
	"github.com/xplshn/nsc/pkg/ast"
	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/ir"
	"github.com/xplshn/nsc/pkg/sema"
	"github.com/xplshn/nsc/pkg/symtab"
	"github.com/xplshn/nsc/pkg/token"
)

// EntryMethod is the name of the generated entry point.
const EntryMethod = "<Main>$"

// Context walks a validated AST and emits one stack-machine method per
// function, tracking the evaluation stack depth as it goes.
type Context struct {
	cfg   *config.Config
	table *symtab.Table
	info  *sema.Info

	prog       *ir.Program
	method     *ir.Method
	slots      map[*symtab.Symbol]int
	depth      int
	labelCount int
}

func NewContext(cfg *config.Config, table *symtab.Table, info *sema.Info) *Context {
	return &Context{cfg: cfg, table: table, info: info}
}

// Generate produces the program for the namespace at root. A non-nil error is
// always a *diag.FatalError.
func (ctx *Context) Generate(root *ast.Node) (prog *ir.Program, err error) {
	defer diag.Recover(&err)
	if root == nil || root.Type != ast.Namespace {
		return nil, diag.Contract(token.Span{}, "code generation needs a namespace root")
	}
	ns := root.Data.(ast.NamespaceNode)
	class := ns.Name
	if ctx.cfg.ClassName != "" {
		class = ctx.cfg.ClassName
	}
	ctx.prog = &ir.Program{Namespace: ns.Name, Class: class}

	stmts := ns.Body.Data.(ast.BlockNode).Stmts
	for _, stmt := range stmts {
		if d, ok := stmt.Data.(ast.VarDeclNode); ok {
			ctx.prog.Fields = append(ctx.prog.Fields, ir.Field{Name: d.Name, Type: d.Type})
		}
	}
	for _, stmt := range stmts {
		if stmt.Type == ast.FuncDecl {
			ctx.genFunc(stmt)
		}
	}
	ctx.genEntry(ns.Body)
	return ctx.prog, nil
}

func (ctx *Context) genFunc(node *ast.Node) {
	d := node.Data.(ast.FuncDeclNode)
	fn, ok := ctx.info.Funcs[node.ID]
	if !ok {
		panic(diag.Contract(node.Span, "function '%s' has no symbol table entry", d.Name))
	}
	m := &ir.Method{Name: fn.Name, ReturnType: fn.ReturnType}
	for _, p := range fn.Params {
		m.Params = append(m.Params, ir.Param{Name: p.Name, Type: p.Type})
	}
	ctx.beginMethod(m)
	ctx.assignSlots(fn.Scope)

	for i, sym := range fn.Scope.Symbols()[:len(fn.Params)] {
		ctx.emit(ir.Instruction{Op: ir.OpLdarg, Int: int64(i)})
		ctx.emit(ir.Instruction{Op: ir.OpStloc, Int: ctx.slot(sym, node.Span)})
	}
	ctx.genBlock(d.Body)
	if fn.ReturnType == "void" {
		ctx.emit(ir.Instruction{Op: ir.OpRet})
	} else {
		ctx.emitZero(fn.ReturnType)
		ctx.emit(ir.Instruction{Op: ir.OpRet, Int: 1})
	}
	ctx.prog.Methods = append(ctx.prog.Methods, m)
}

func (ctx *Context) genEntry(body *ast.Node) {
	m := &ir.Method{Name: EntryMethod, ReturnType: "void", IsEntry: true}
	ctx.beginMethod(m)

	if ctx.cfg.IsFeatureEnabled(config.FeatInitFields) {
		for _, stmt := range body.Data.(ast.BlockNode).Stmts {
			d, ok := stmt.Data.(ast.VarDeclNode)
			if !ok {
				continue
			}
			ctx.genExpr(d.Init)
			ctx.emit(ir.Instruction{Op: ir.OpStsfld, Field: &ir.FieldRef{Class: ctx.prog.Class, Name: d.Name, Type: d.Type}})
		}
	}
	if ctx.cfg.IsFeatureEnabled(config.FeatEntryCall) {
		scope := ctx.info.Scopes[body.ID]
		if scope == nil {
			panic(diag.Contract(body.Span, "namespace body has no scope"))
		}
		fn, err := ctx.table.LookupFunction(scope.ID, symtab.Signature(ctx.cfg.EntryName, nil))
		if err != nil {
			panic(err)
		}
		if fn != nil {
			ctx.emitCall(fn)
			if fn.ReturnType != "void" {
				ctx.emit(ir.Instruction{Op: ir.OpPop})
			}
		}
	}
	ctx.emit(ir.Instruction{Op: ir.OpRet})
	ctx.prog.Entry = m
}

func (ctx *Context) genBlock(block *ast.Node) {
	for _, stmt := range block.Data.(ast.BlockNode).Stmts {
		ctx.genStmt(stmt)
	}
}

func (ctx *Context) genStmt(stmt *ast.Node) {
	switch d := stmt.Data.(type) {
	case ast.VarDeclNode:
		ctx.genExpr(d.Init)
		ctx.emit(ir.Instruction{Op: ir.OpStloc, Int: ctx.slot(ctx.info.Decls[stmt.ID], stmt.Span)})

	case ast.AssignNode:
		ctx.genExpr(d.Value)
		ctx.emit(ir.Instruction{Op: ir.OpStloc, Int: ctx.slot(ctx.info.Refs[stmt.ID], d.NameSpan)})

	case ast.FuncCallNode:
		fn := ctx.genCall(stmt, d)
		if fn.ReturnType != "void" {
			ctx.emit(ir.Instruction{Op: ir.OpPop})
		}

	case ast.WhileNode:
		cond, end := ctx.newLabel(), ctx.newLabel()
		ctx.emit(ir.Instruction{Op: ir.OpLabel, Label: cond})
		ctx.genExpr(d.Cond)
		ctx.emit(ir.Instruction{Op: ir.OpBrfalse, Label: end})
		ctx.genBlock(d.Body)
		ctx.emit(ir.Instruction{Op: ir.OpBr, Label: cond})
		ctx.emit(ir.Instruction{Op: ir.OpLabel, Label: end})

	case ast.BlockNode:
		ctx.genBlock(stmt)

	case ast.EmptyNode:
		ctx.emit(ir.Instruction{Op: ir.OpNop})

	default:
		panic(diag.Unsupported(stmt.Span, "cannot generate code for %v statement", stmt.Type))
	}
}

var binaryOps = map[token.Type]ir.Op{
	token.Plus:  ir.OpAdd,
	token.Minus: ir.OpSub,
	token.Star:  ir.OpMul,
	token.Slash: ir.OpDiv,
	token.Rem:   ir.OpRem,
	token.Or:    ir.OpOr,
	token.And:   ir.OpAnd,
	token.EqEq:  ir.OpCeq,
}

func (ctx *Context) genExpr(e *ast.Node) {
	switch d := e.Data.(type) {
	case ast.NumberNode:
		if ctx.info.Types[e.ID] == "int64" {
			ctx.emit(ir.Instruction{Op: ir.OpLdcI8, Int: d.Value})
		} else {
			ctx.emit(ir.Instruction{Op: ir.OpLdcI4, Int: d.Value})
		}

	case ast.BoolNode:
		var v int64
		if d.Value {
			v = 1
		}
		ctx.emit(ir.Instruction{Op: ir.OpLdcI4, Int: v})

	case ast.IdentNode:
		sym := ctx.info.Refs[e.ID]
		if sym == nil || !sym.Scope.Local {
			panic(diag.Unsupported(e.Span, "operand '%s' is not a local variable", d.Name))
		}
		ctx.emit(ir.Instruction{Op: ir.OpLdloc, Int: ctx.slot(sym, e.Span)})

	case ast.BinaryOpNode:
		op, ok := binaryOps[d.Op]
		if !ok {
			panic(diag.Unsupported(e.Span, "binary operator %s", d.Op))
		}
		ctx.genExpr(d.Left)
		ctx.genExpr(d.Right)
		ctx.emit(ir.Instruction{Op: op})

	case ast.UnaryOpNode:
		if d.Op != token.Not {
			panic(diag.Unsupported(e.Span, "unary operator %s", d.Op))
		}
		ctx.genExpr(d.Expr)
		ctx.emit(ir.Instruction{Op: ir.OpLdcI4, Int: 0})
		ctx.emit(ir.Instruction{Op: ir.OpCeq})

	case ast.FuncCallNode:
		ctx.genCall(e, d)

	default:
		panic(diag.Unsupported(e.Span, "cannot generate code for %v expression", e.Type))
	}
}

// genCall pushes the arguments left to right and calls the callee by its
// registered signature.
func (ctx *Context) genCall(e *ast.Node, d ast.FuncCallNode) *symtab.Function {
	fn := ctx.info.Calls[e.ID]
	if fn == nil {
		panic(diag.Contract(e.Span, "call to '%s' was not resolved", d.Name))
	}
	for _, arg := range d.Args {
		ctx.genExpr(arg)
	}
	ctx.emitCall(fn)
	return fn
}
