package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/ir"
	"github.com/xplshn/nsc/pkg/token"
)

// qbeValue is an operand on the simulated evaluation stack.
type qbeValue struct {
	text  string
	class byte
	// isConst marks integer literals, which QBE accepts in either class.
	isConst bool
}

// qbeBackend lowers the stack program to QBE IL by simulating the stack with
// temporaries. Locals live in stack slots so loops need no phi nodes.
type qbeBackend struct {
	out       *strings.Builder
	prog      *ir.Program
	method    *ir.Method
	stack     []qbeValue
	tempCount int
	blockNum  int
	// terminated is set after a jump or return until the next label.
	terminated bool
}

func NewQBEBackend() Backend { return &qbeBackend{} }

func qbeClass(typ string) byte {
	if typ == "int64" {
		return 'l'
	}
	return 'w'
}

func (b *qbeBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (text string, err error) {
	defer diag.Recover(&err)
	b.out = &strings.Builder{}
	b.prog = prog
	b.tempCount, b.blockNum = 0, 0

	for _, f := range prog.Fields {
		fmt.Fprintf(b.out, "data $%s = { %c 0 }\n", b.fieldSymbol(f.Name), qbeClass(f.Type))
	}
	for _, m := range prog.AllMethods() {
		b.out.WriteString("\n")
		b.genMethod(m)
	}
	return b.out.String(), nil
}

func (b *qbeBackend) prefix(class string) string { return strings.ReplaceAll(class, ".", "_") }

func (b *qbeBackend) fieldSymbol(name string) string {
	return b.prefix(b.prog.Class) + ".field." + name
}

// methodSymbol mangles the parameter types into the name so overloads get
// distinct symbols. The entry method becomes the C entry point.
func (b *qbeBackend) methodSymbol(class, name string, paramTypes []string, entry bool) string {
	if entry {
		return "main"
	}
	parts := append([]string{b.prefix(class), name}, paramTypes...)
	return strings.Join(parts, ".")
}

func (b *qbeBackend) genMethod(m *ir.Method) {
	b.method, b.stack, b.terminated = m, nil, false

	params := make([]string, len(m.Params))
	paramTypes := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = fmt.Sprintf("%c %%p%d", qbeClass(p.Type), i)
		paramTypes[i] = p.Type
	}
	ret := ""
	switch {
	case m.IsEntry:
		b.out.WriteString("export ")
		ret = "w "
	case m.ReturnType != "void":
		ret = string(qbeClass(m.ReturnType)) + " "
	}
	fmt.Fprintf(b.out, "function %s$%s(%s) {\n@start\n", ret, b.methodSymbol(b.prog.Class, m.Name, paramTypes, m.IsEntry), strings.Join(params, ", "))
	for _, l := range m.Locals {
		if qbeClass(l.Type) == 'l' {
			fmt.Fprintf(b.out, "\t%%s%d =l alloc8 8\n", l.Index)
		} else {
			fmt.Fprintf(b.out, "\t%%s%d =l alloc4 4\n", l.Index)
		}
	}
	for _, ins := range m.Code {
		b.genInstruction(ins)
	}
	b.out.WriteString("}\n")
}

func (b *qbeBackend) newTemp() string {
	b.tempCount++
	return fmt.Sprintf("%%t%d", b.tempCount)
}

func (b *qbeBackend) push(v qbeValue) { b.stack = append(b.stack, v) }

func (b *qbeBackend) pop() qbeValue {
	if len(b.stack) == 0 {
		panic(diag.Contract(token.Span{}, "QBE lowering: stack underflow in %s", b.method.Name))
	}
	v := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return v
}

// coerce widens a word to a long with sign extension. Longs are accepted
// where words are expected, so narrowing needs no instruction.
func (b *qbeBackend) coerce(v qbeValue, class byte) qbeValue {
	if v.class == class || class == 'w' {
		v.class = class
		return v
	}
	if v.isConst {
		return qbeValue{text: v.text, class: class, isConst: true}
	}
	t := b.newTemp()
	b.line("%s =l extsw %s", t, v.text)
	return qbeValue{text: t, class: 'l'}
}

func (b *qbeBackend) line(format string, args ...interface{}) {
	if b.terminated {
		b.blockNum++
		fmt.Fprintf(b.out, "@dead.%d\n", b.blockNum)
		b.terminated = false
	}
	fmt.Fprintf(b.out, "\t"+format+"\n", args...)
}

func (b *qbeBackend) label(name string) {
	fmt.Fprintf(b.out, "@%s\n", name)
	b.terminated = false
}

var qbeArith = map[ir.Op]string{
	ir.OpAdd: "add", ir.OpSub: "sub", ir.OpMul: "mul", ir.OpDiv: "div",
	ir.OpRem: "rem", ir.OpOr: "or", ir.OpAnd: "and",
}

func (b *qbeBackend) genInstruction(ins ir.Instruction) {
	switch ins.Op {
	case ir.OpNop:

	case ir.OpLdcI4:
		b.push(qbeValue{text: strconv.FormatInt(ins.Int, 10), class: 'w', isConst: true})
	case ir.OpLdcI8:
		b.push(qbeValue{text: strconv.FormatInt(ins.Int, 10), class: 'l', isConst: true})

	case ir.OpLdloc:
		class := b.localClass(ins.Int)
		t := b.newTemp()
		b.line("%s =%c load%c %%s%d", t, class, class, ins.Int)
		b.push(qbeValue{text: t, class: class})
	case ir.OpStloc:
		class := b.localClass(ins.Int)
		v := b.coerce(b.pop(), class)
		b.line("store%c %s, %%s%d", class, v.text, ins.Int)

	case ir.OpLdarg:
		if ins.Int < 0 || ins.Int >= int64(len(b.method.Params)) {
			panic(diag.Contract(token.Span{}, "QBE lowering: no argument %d in %s", ins.Int, b.method.Name))
		}
		b.push(qbeValue{text: fmt.Sprintf("%%p%d", ins.Int), class: qbeClass(b.method.Params[ins.Int].Type)})

	case ir.OpLdsfld:
		class := qbeClass(ins.Field.Type)
		t := b.newTemp()
		b.line("%s =%c load%c $%s", t, class, class, b.fieldSymbol(ins.Field.Name))
		b.push(qbeValue{text: t, class: class})
	case ir.OpStsfld:
		class := qbeClass(ins.Field.Type)
		v := b.coerce(b.pop(), class)
		b.line("store%c %s, $%s", class, v.text, b.fieldSymbol(ins.Field.Name))

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem, ir.OpOr, ir.OpAnd:
		r, l := b.pop(), b.pop()
		r = b.coerce(r, l.class)
		t := b.newTemp()
		b.line("%s =%c %s %s, %s", t, l.class, qbeArith[ins.Op], l.text, r.text)
		b.push(qbeValue{text: t, class: l.class})

	case ir.OpCeq:
		r, l := b.pop(), b.pop()
		class := byte('w')
		if (l.class == 'l' && !l.isConst) || (r.class == 'l' && !r.isConst) {
			class = 'l'
		}
		l, r = b.coerce(l, class), b.coerce(r, class)
		t := b.newTemp()
		b.line("%s =w ceq%c %s, %s", t, class, l.text, r.text)
		b.push(qbeValue{text: t, class: 'w'})

	case ir.OpCall:
		ref := ins.Method
		args := make([]string, len(ref.ParamTypes))
		for i := len(ref.ParamTypes) - 1; i >= 0; i-- {
			class := qbeClass(ref.ParamTypes[i])
			args[i] = fmt.Sprintf("%c %s", class, b.coerce(b.pop(), class).text)
		}
		target := b.methodSymbol(ref.Class, ref.Name, ref.ParamTypes, false)
		if ref.ReturnType == "void" {
			b.line("call $%s(%s)", target, strings.Join(args, ", "))
			return
		}
		class := qbeClass(ref.ReturnType)
		t := b.newTemp()
		b.line("%s =%c call $%s(%s)", t, class, target, strings.Join(args, ", "))
		b.push(qbeValue{text: t, class: class})

	case ir.OpPop:
		b.pop()

	case ir.OpBr:
		b.line("jmp @L%d", ins.Label)
		b.terminated = true
	case ir.OpBrfalse:
		v := b.pop()
		b.blockNum++
		next := fmt.Sprintf("b%d", b.blockNum)
		b.line("jnz %s, @%s, @L%d", v.text, next, ins.Label)
		b.label(next)
	case ir.OpLabel:
		b.label(fmt.Sprintf("L%d", ins.Label))

	case ir.OpRet:
		switch {
		case b.method.IsEntry:
			b.line("ret 0")
		case ins.Int == 1:
			v := b.coerce(b.pop(), qbeClass(b.method.ReturnType))
			b.line("ret %s", v.text)
		default:
			b.line("ret")
		}
		b.terminated = true

	default:
		panic(diag.Unsupported(token.Span{}, "QBE lowering of %s", ins.Op))
	}
}

func (b *qbeBackend) localClass(idx int64) byte {
	if idx < 0 || idx >= int64(len(b.method.Locals)) {
		panic(diag.Contract(token.Span{}, "QBE lowering: no local %d in %s", idx, b.method.Name))
	}
	return qbeClass(b.method.Locals[idx].Type)
}
