package front

import (
	"strconv"
	"strings"
)

type (
	StaticKind int

	// StaticError is a build time failure. Nothing is executed once it is returned.
	StaticError struct {
		Kind StaticKind
		Func string
		Name string
		Line int
		Msg  string
	}
)

const (
	UnresolvedName StaticKind = iota + 1
	UnresolvedCallee
	InvalidControlFlow
	InvalidOperand
	Redeclared
	ArityMismatch
	MissingReturn
	UnknownType
	Unsupported
)

func (k StaticKind) String() string {
	switch k {
	case UnresolvedName:
		return "unresolved name"
	case UnresolvedCallee:
		return "unresolved callee"
	case InvalidControlFlow:
		return "invalid control flow"
	case InvalidOperand:
		return "invalid operand"
	case Redeclared:
		return "redeclared"
	case ArityMismatch:
		return "arity mismatch"
	case MissingReturn:
		return "missing return"
	case UnknownType:
		return "unknown type"
	case Unsupported:
		return "unsupported"
	default:
		return "static error " + strconv.Itoa(int(k))
	}
}

func (e *StaticError) Error() string {
	var b strings.Builder

	if e.Func != "" {
		b.WriteString("func ")
		b.WriteString(e.Func)
		b.WriteString(": ")
	}

	if e.Line != 0 {
		b.WriteString("line ")
		b.WriteString(strconv.Itoa(e.Line))
		b.WriteString(": ")
	}

	b.WriteString(e.Kind.String())

	if e.Name != "" {
		b.WriteString(": ")
		b.WriteString(e.Name)
	}

	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}

	return b.String()
}
