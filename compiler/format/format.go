package format

import (
	"github.com/nikandfor/hacked/hfmt"

	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/tp"
)

// Module appends the text form of all functions in name order.
func Module(b []byte, m *ir.Module) []byte {
	for i, name := range m.Names() {
		if i != 0 {
			b = append(b, '\n')
		}

		b = Func(b, m.Funcs[name])
	}

	return b
}

// Func appends the text form of f:
// a header line, local declarations, and each block in id order.
func Func(b []byte, f *ir.Func) []byte {
	b = app(b, 0, "func %s(", f.Name)

	for i, p := range f.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%s %v", p.Name, p.Type)
	}

	b = append(b, ')')

	if !tp.IsVoid(f.Ret) {
		b = app(b, 0, " %v", f.Ret)
	}

	b = append(b, '\n')

	for _, l := range f.Locals {
		b = app(b, 1, "decl %s %v\n", l.Name, l.Type)
	}

	for _, id := range f.BlockIDs() {
		b = Block(b, f.Blocks[id])
	}

	return b
}

func Block(b []byte, blk *ir.Block) []byte {
	b = app(b, 0, "b%d:\n", blk.ID)

	for i, x := range blk.Code {
		b = Instr(b, 1, ir.TempKey{Block: blk.ID, Index: i}, x)
	}

	b = Jump(b, 1, blk.Term)

	return b
}

// Instr appends one instruction line: result type, temp key, opcode, operands.
func Instr(b []byte, d int, k ir.TempKey, x ir.Instr) []byte {
	b = app(b, d, "%v %v: %s", x.ResultType(), k, x.Opcode())

	if c, ok := x.(ir.Call); ok {
		b = app(b, 0, " %s", c.Name)
	}

	for i, v := range x.Operands() {
		if i == 0 {
			b = append(b, ' ')
		} else {
			b = append(b, ", "...)
		}

		b = append(b, v.String()...)
	}

	b = append(b, '\n')

	return b
}

func Jump(b []byte, d int, j ir.Jump) []byte {
	switch j.Kind {
	case ir.Direct:
		b = app(b, d, "jump b%d\n", j.Target)
	case ir.Conditional:
		b = app(b, d, "cond %v b%d b%d\n", j.Cond, j.True, j.False)
	case ir.Return:
		if j.HasValue {
			b = app(b, d, "ret %v\n", j.Value)
		} else {
			b = app(b, d, "ret\n")
		}
	default:
		b = app(b, d, "%v\n", j.Kind)
	}

	return b
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
