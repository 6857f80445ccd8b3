package ir

import (
	"strconv"

	"github.com/slowlang/semic/compiler/tp"
)

type (
	Op int

	// Instr is one of Binary, Unary, Call, Printf, Index, Load, Store, Cast.
	Instr interface {
		ResultType() tp.Type
		Operands() []Value
		Opcode() string

		instr()
	}

	Binary struct {
		Op   Op
		L, R Value
	}

	Unary struct {
		Op Op
		X  Value
	}

	Call struct {
		Name string
		Ret  tp.Type
		Args []Value
	}

	Printf struct {
		Args []Value
	}

	// Index computes the address of Array[Index].
	// Its result is a place typed as the element.
	Index struct {
		Array Value
		Index Value
	}

	// Load reads the value at Ptr.
	// T is the loaded type, it is required when Ptr is an Index place of pointer type.
	Load struct {
		Ptr Value
		T   tp.Type
	}

	Store struct {
		Ptr Value
		Val Value
	}

	Cast struct {
		X  Value
		To tp.Type
	}
)

const (
	Add Op = iota
	Sub
	Mul
	Div
	Mod

	And
	Or

	Less
	Greater
	LessEq
	GreaterEq
	Equal
	NotEqual

	Assign

	Inc
	Dec
	Neg
	Not
)

// PrintfName is the reserved builtin lowered to Printf.
const PrintfName = "printf"

var opcodes = []string{
	Add: "ADD",
	Sub: "SUB",
	Mul: "MUL",
	Div: "DIV",
	Mod: "MOD",

	And: "AND",
	Or:  "OR",

	Less:      "LT",
	Greater:   "GT",
	LessEq:    "LE",
	GreaterEq: "GE",
	Equal:     "EQ",
	NotEqual:  "NE",

	Assign: "ASSIGN",

	Inc: "INC",
	Dec: "DEC",
	Neg: "NEG",
	Not: "NOT",
}

func (op Op) String() string {
	if op >= 0 && int(op) < len(opcodes) {
		return opcodes[op]
	}

	return "OP(" + strconv.Itoa(int(op)) + ")"
}

// IsPredicate reports whether op yields an i32 0/1 regardless of operand type.
func (op Op) IsPredicate() bool {
	switch op {
	case And, Or, Less, Greater, LessEq, GreaterEq, Equal, NotEqual, Not:
		return true
	}

	return false
}

func (op Op) IsUnary() bool {
	return op >= Inc && op <= Not
}

func (x Binary) ResultType() tp.Type {
	if x.Op.IsPredicate() {
		return tp.I32
	}

	return x.L.Type
}

func (x Unary) ResultType() tp.Type {
	if x.Op.IsPredicate() {
		return tp.I32
	}

	return x.X.Type
}

func (x Call) ResultType() tp.Type {
	if x.Ret == nil {
		return tp.Void{}
	}

	return x.Ret
}

func (x Printf) ResultType() tp.Type { return tp.Void{} }

func (x Index) ResultType() tp.Type { return x.Array.Type.Elem() }

// ResultType of Load is T if set, otherwise the pointee of a pointer operand.
// An Index result is already a place of the element type and loads as that type.
func (x Load) ResultType() tp.Type {
	if x.T != nil {
		return x.T
	}

	if p, ok := x.Ptr.Type.(tp.Ptr); ok {
		return p.X
	}

	return x.Ptr.Type
}

func (x Store) ResultType() tp.Type { return tp.Void{} }

func (x Cast) ResultType() tp.Type { return x.To }

func (x Binary) Operands() []Value { return []Value{x.L, x.R} }
func (x Unary) Operands() []Value  { return []Value{x.X} }
func (x Call) Operands() []Value   { return x.Args }
func (x Printf) Operands() []Value { return x.Args }
func (x Index) Operands() []Value  { return []Value{x.Array, x.Index} }
func (x Load) Operands() []Value   { return []Value{x.Ptr} }
func (x Store) Operands() []Value  { return []Value{x.Ptr, x.Val} }
func (x Cast) Operands() []Value   { return []Value{x.X} }

func (x Binary) Opcode() string { return x.Op.String() }
func (x Unary) Opcode() string  { return x.Op.String() }
func (x Call) Opcode() string   { return "CALL" }
func (x Printf) Opcode() string { return "PRINTF" }
func (x Index) Opcode() string  { return "INDEX" }
func (x Load) Opcode() string   { return "LOAD" }
func (x Store) Opcode() string  { return "STORE" }
func (x Cast) Opcode() string   { return "CAST" }

func (Binary) instr() {}
func (Unary) instr()  {}
func (Call) instr()   {}
func (Printf) instr() {}
func (Index) instr()  {}
func (Load) instr()   {}
func (Store) instr()  {}
func (Cast) instr()   {}
