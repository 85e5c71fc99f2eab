package codegen

import (
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/ir"
	"github.com/xplshn/nsc/pkg/symtab"
	"github.com/xplshn/nsc/pkg/token"
)

func (ctx *Context) beginMethod(m *ir.Method) {
	ctx.method = m
	ctx.slots = make(map[*symtab.Symbol]int)
	ctx.depth = 0
}

// assignSlots numbers the symbols of a function scope in insertion order,
// then those of its nested scopes in scope ID order.
func (ctx *Context) assignSlots(scope *symtab.Scope) {
	nested, err := ctx.table.Descendants(scope.ID)
	if err != nil {
		panic(err)
	}
	for _, s := range append([]*symtab.Scope{scope}, nested...) {
		for _, sym := range s.Symbols() {
			idx := len(ctx.method.Locals)
			ctx.slots[sym] = idx
			ctx.method.Locals = append(ctx.method.Locals, ir.Local{Index: idx, Type: sym.Type, Name: sym.Name})
		}
	}
}

func (ctx *Context) slot(sym *symtab.Symbol, span token.Span) int64 {
	if sym == nil {
		panic(diag.Contract(span, "reference was not resolved"))
	}
	idx, ok := ctx.slots[sym]
	if !ok {
		panic(diag.Contract(span, "no slot for '%s' in %s", sym.Name, ctx.method.Name))
	}
	return int64(idx)
}

func (ctx *Context) emit(ins ir.Instruction) {
	ctx.method.Code = append(ctx.method.Code, ins)
	ctx.depth += ir.StackEffect(ins)
	if ctx.depth < 0 {
		panic(diag.Contract(token.Span{}, "stack underflow after %s in %s", ins.Op, ctx.method.Name))
	}
	if ctx.depth > ctx.method.MaxStack {
		ctx.method.MaxStack = ctx.depth
	}
}

func (ctx *Context) emitCall(fn *symtab.Function) {
	ctx.emit(ir.Instruction{Op: ir.OpCall, Method: &ir.MethodRef{
		Class:      ctx.prog.Class,
		Name:       fn.Name,
		ReturnType: fn.ReturnType,
		ParamTypes: fn.ParamTypes(),
	}})
}

// emitZero pushes the zero value of typ.
func (ctx *Context) emitZero(typ string) {
	if typ == "int64" {
		ctx.emit(ir.Instruction{Op: ir.OpLdcI8})
		return
	}
	ctx.emit(ir.Instruction{Op: ir.OpLdcI4})
}

func (ctx *Context) newLabel() int {
	ctx.labelCount++
	return ctx.labelCount
}
