// Package ir is the stack-machine program produced by codegen and rendered by
// the backends.
package ir

import "fmt"

type Op int

const (
	OpNop Op = iota
	OpLdcI4
	OpLdcI8
	OpLdloc
	OpStloc
	OpLdarg
	OpLdsfld
	OpStsfld
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpOr
	OpAnd
	OpCeq
	OpCall
	OpPop
	OpBr
	OpBrfalse
	OpLabel
	OpRet
)

var opNames = [...]string{
	OpNop: "nop", OpLdcI4: "ldc.i4", OpLdcI8: "ldc.i8", OpLdloc: "ldloc", OpStloc: "stloc",
	OpLdarg: "ldarg", OpLdsfld: "ldsfld", OpStsfld: "stsfld", OpAdd: "add", OpSub: "sub",
	OpMul: "mul", OpDiv: "div", OpRem: "rem", OpOr: "or", OpAnd: "and", OpCeq: "ceq",
	OpCall: "call", OpPop: "pop", OpBr: "br", OpBrfalse: "brfalse", OpLabel: "label", OpRet: "ret",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// MethodRef names a callee by its registered signature.
type MethodRef struct {
	Class      string
	Name       string
	ReturnType string
	ParamTypes []string
}

type FieldRef struct{ Class, Name, Type string }

// Instruction is one stack-machine operation. Int carries the constant of
// ldc, the slot of ldloc/stloc/ldarg and, for ret, how many values it pops.
type Instruction struct {
	Op     Op
	Int    int64
	Label  int
	Method *MethodRef
	Field  *FieldRef
}

// StackEffect is the net change of the evaluation stack depth.
func StackEffect(ins Instruction) int {
	switch ins.Op {
	case OpLdcI4, OpLdcI8, OpLdloc, OpLdarg, OpLdsfld:
		return 1
	case OpStloc, OpStsfld, OpPop, OpBrfalse:
		return -1
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpOr, OpAnd, OpCeq:
		return -1
	case OpCall:
		n := -len(ins.Method.ParamTypes)
		if ins.Method.ReturnType != "void" {
			n++
		}
		return n
	case OpRet:
		return -int(ins.Int)
	}
	return 0
}

// Local is a method slot.
type Local struct {
	Index int
	Type  string
	Name  string
}

type Param struct{ Name, Type string }

type Method struct {
	Name       string
	Params     []Param
	ReturnType string
	Locals     []Local
	Code       []Instruction
	MaxStack   int
	IsEntry    bool
}

// Ref returns the reference a call instruction uses for m.
func (m *Method) Ref(class string) *MethodRef {
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	return &MethodRef{Class: class, Name: m.Name, ReturnType: m.ReturnType, ParamTypes: types}
}

type Field struct{ Name, Type string }

// Program is one output unit: a class holding the namespace's fields, one
// method per function and the entry method.
type Program struct {
	Namespace string
	Class     string
	Fields    []Field
	Methods   []*Method
	Entry     *Method
}

// AllMethods returns the user methods followed by the entry method.
func (p *Program) AllMethods() []*Method {
	out := append([]*Method(nil), p.Methods...)
	if p.Entry != nil {
		out = append(out, p.Entry)
	}
	return out
}

func (p *Program) FindMethod(name string, paramTypes []string) *Method {
	for _, m := range p.Methods {
		if m.Name != name || len(m.Params) != len(paramTypes) {
			continue
		}
		match := true
		for i, pt := range paramTypes {
			match = match && m.Params[i].Type == pt
		}
		if match {
			return m
		}
	}
	return nil
}
