package ir

import (
	"strconv"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/semic/compiler/tp"
)

type (
	Kind int

	// Value is an operand: a named variable, an instruction result, or a literal.
	// Only the field selected by Kind is meaningful.
	Value struct {
		Kind Kind
		Type tp.Type

		Name  string
		Temp  TempKey
		Int   uint64
		Float float64
		Str   string
	}

	// TempKey addresses an instruction result within a function.
	TempKey struct {
		Block int
		Index int
	}
)

const (
	Ident Kind = iota
	Temp
	LitInt
	LitFloat
	LitString
)

func IdentValue(name string, t tp.Type) Value {
	return Value{Kind: Ident, Type: t, Name: name}
}

func TempValue(k TempKey, t tp.Type) Value {
	return Value{Kind: Temp, Type: t, Temp: k}
}

func IntValue(x uint64) Value {
	return Value{Kind: LitInt, Type: tp.I64, Int: x}
}

func FloatValue(x float64) Value {
	return Value{Kind: LitFloat, Type: tp.F64, Float: x}
}

func StringValue(s string) Value {
	return Value{Kind: LitString, Type: tp.String{}, Str: s}
}

// Key is the type table and symbol table key of v.
// Literals have no key.
func (v Value) Key() string {
	switch v.Kind {
	case Ident:
		return v.Name
	case Temp:
		return v.Temp.String()
	}

	return ""
}

func (v Value) IsLiteral() bool {
	return v.Kind == LitInt || v.Kind == LitFloat || v.Kind == LitString
}

// Operand is the textual form of the value without its type.
func (v Value) Operand() string {
	switch v.Kind {
	case Ident:
		return v.Name
	case Temp:
		return v.Temp.String()
	case LitInt:
		return strconv.FormatUint(v.Int, 10)
	case LitFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case LitString:
		return strconv.Quote(v.Str)
	default:
		return "<kind " + strconv.Itoa(int(v.Kind)) + ">"
	}
}

func (v Value) String() string {
	if v.Type == nil {
		return "? " + v.Operand()
	}

	return v.Type.String() + " " + v.Operand()
}

func (k Kind) String() string {
	switch k {
	case Ident:
		return "ident"
	case Temp:
		return "temp"
	case LitInt:
		return "int"
	case LitFloat:
		return "float"
	case LitString:
		return "string"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

func (k TempKey) String() string {
	return strconv.Itoa(k.Block) + ":" + strconv.Itoa(k.Index)
}

func (k TempKey) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendFormat(b, "%d:%d", k.Block, k.Index)
}
