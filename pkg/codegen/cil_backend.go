package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"github.com/xplshn/nsc/pkg/config"
	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/ir"
	"github.com/xplshn/nsc/pkg/token"
)

// cilBackend renders the program as ilasm-style assembly text.
type cilBackend struct {
	out  *strings.Builder
	prog *ir.Program
}

func NewCILBackend() Backend { return &cilBackend{} }

func (b *cilBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	text, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}
	return bytes.NewBufferString(text), nil
}

func (b *cilBackend) GenerateIR(prog *ir.Program, cfg *config.Config) (text string, err error) {
	defer diag.Recover(&err)
	b.out = &strings.Builder{}
	b.prog = prog

	fmt.Fprintf(b.out, ".assembly extern mscorlib {}\n.assembly '%s' {}\n\n", prog.Namespace)
	fmt.Fprintf(b.out, ".class public abstract sealed auto ansi beforefieldinit %s\n", prog.Class)
	b.out.WriteString("\textends [mscorlib]System.Object\n{\n")
	for _, f := range prog.Fields {
		fmt.Fprintf(b.out, "\t.field public static %s %s\n", f.Type, quoteName(f.Name))
	}
	for _, m := range prog.AllMethods() {
		b.out.WriteString("\n")
		b.genMethod(m)
	}
	b.out.WriteString("}\n")
	return b.out.String(), nil
}

// quoteName single-quotes names ilasm would read as keywords or symbols.
func quoteName(name string) string {
	if strings.ContainsAny(name, "<>$") || cilKeywords[name] {
		return "'" + name + "'"
	}
	return name
}

var cilKeywords = map[string]bool{
	"value": true, "method": true, "field": true, "class": true,
	"static": true, "public": true, "private": true, "int": true, "char": true, "void": true,
	"bool": true, "string": true, "object": true, "default": true, "init": true, "true": true,
	"false": true, "null": true, "with": true, "at": true, "in": true, "out": true,
}

func (b *cilBackend) genMethod(m *ir.Method) {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.Type + " " + quoteName(p.Name)
	}
	fmt.Fprintf(b.out, "\t.method public hidebysig static %s %s(%s) cil managed\n\t{\n",
		m.ReturnType, quoteName(m.Name), strings.Join(params, ", "))
	if m.IsEntry {
		b.out.WriteString("\t\t.entrypoint\n")
	}
	fmt.Fprintf(b.out, "\t\t.maxstack %d\n", m.MaxStack)
	if len(m.Locals) > 0 {
		b.out.WriteString("\t\t.locals init (\n")
		for i, l := range m.Locals {
			sep := ","
			if i == len(m.Locals)-1 {
				sep = ""
			}
			fmt.Fprintf(b.out, "\t\t\t[%d] %s V_%d%s // %s\n", l.Index, l.Type, l.Index, sep, l.Name)
		}
		b.out.WriteString("\t\t)\n")
	}
	for _, ins := range m.Code {
		if ins.Op == ir.OpLabel {
			fmt.Fprintf(b.out, "\tL%d:\n", ins.Label)
			continue
		}
		fmt.Fprintf(b.out, "\t\t%s\n", b.instruction(ins))
	}
	b.out.WriteString("\t}\n")
}

func (b *cilBackend) instruction(ins ir.Instruction) string {
	switch ins.Op {
	case ir.OpLdcI4:
		v, err := safecast.Conv[int32](ins.Int)
		if err != nil {
			panic(diag.Contract(token.Span{}, "ldc.i4 operand %d out of range", ins.Int))
		}
		if v >= 0 && v <= 8 {
			return fmt.Sprintf("ldc.i4.%d", v)
		}
		return fmt.Sprintf("ldc.i4 %d", v)
	case ir.OpLdcI8:
		return fmt.Sprintf("ldc.i8 %d", ins.Int)
	case ir.OpLdloc, ir.OpStloc, ir.OpLdarg:
		return indexed(ins.Op.String(), ins.Int)
	case ir.OpLdsfld, ir.OpStsfld:
		f := ins.Field
		return fmt.Sprintf("%s %s %s::%s", ins.Op, f.Type, f.Class, quoteName(f.Name))
	case ir.OpCall:
		r := ins.Method
		return fmt.Sprintf("call %s %s::%s(%s)", r.ReturnType, r.Class, quoteName(r.Name), strings.Join(r.ParamTypes, ", "))
	case ir.OpBr, ir.OpBrfalse:
		return fmt.Sprintf("%s L%d", ins.Op, ins.Label)
	}
	return ins.Op.String()
}

// indexed picks the short encodings ilasm offers for slot operands.
func indexed(op string, idx int64) string {
	switch {
	case idx <= 3:
		return fmt.Sprintf("%s.%d", op, idx)
	case idx <= 255:
		return fmt.Sprintf("%s.s %d", op, idx)
	}
	return fmt.Sprintf("%s %d", op, idx)
}
