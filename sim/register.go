package sim

import (
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/tp"
)

type (
	RegKind int

	// Register is a run time value.
	// Kind selects the meaningful field: U for Address and UInt64,
	// F for Float32 and Float64 (a Float32 is kept exactly representable), S for Text.
	Register struct {
		Kind RegKind
		Type tp.Type

		U uint64
		F float64
		S string
	}
)

const (
	None RegKind = iota
	Address
	UInt64
	Float32
	Float64
	Text
)

var (
	ErrOperandMismatch = errors.New("operand mismatch")
	ErrUnsupported     = errors.New("unsupported operation")
	ErrDivByZero       = errors.New("integer division by zero")
	ErrInvalidCast     = errors.New("invalid cast")
)

// Zero is the initial value of a variable of type t.
// Arrays get their storage from the frame, not from here.
func Zero(t tp.Type) Register {
	switch t := t.(type) {
	case tp.Int:
		return Register{Kind: UInt64, Type: t}
	case tp.Float:
		if t.Bits == 32 {
			return Register{Kind: Float32, Type: t}
		}

		return Register{Kind: Float64, Type: t}
	case tp.String:
		return Register{Kind: Text, Type: t}
	case tp.Ptr, tp.Array:
		return Register{Kind: Address, Type: t}
	default:
		return Register{Type: tp.Void{}}
	}
}

func Int(t tp.Type, v uint64) Register {
	return Register{Kind: UInt64, Type: t, U: v}
}

func Float(t tp.Float, v float64) Register {
	if t.Bits == 32 {
		return Register{Kind: Float32, Type: t, F: float64(float32(v))}
	}

	return Register{Kind: Float64, Type: t, F: v}
}

func Addr(t tp.Type, a uint64) Register {
	return Register{Kind: Address, Type: t, U: a}
}

func Str(s string) Register {
	return Register{Kind: Text, Type: tp.String{}, S: s}
}

// literal converts a literal operand into a register of its static type.
func literal(v ir.Value) (Register, error) {
	switch v.Kind {
	case ir.LitInt:
		switch t := v.Type.(type) {
		case tp.Int:
			return Int(t, v.Int), nil
		case tp.Float:
			return Float(t, float64(v.Int)), nil
		}
	case ir.LitFloat:
		if t, ok := v.Type.(tp.Float); ok {
			return Float(t, v.Float), nil
		}
	case ir.LitString:
		return Str(v.Str), nil
	}

	return Register{}, errors.Wrap(ErrOperandMismatch, "literal %v", v)
}

// Truthy reports whether r selects the true branch.
func (r Register) Truthy() (bool, error) {
	switch r.Kind {
	case UInt64, Address:
		return r.U != 0, nil
	case Float32, Float64:
		return r.F != 0, nil
	}

	return false, errors.Wrap(ErrUnsupported, "condition of kind %v", r.Kind)
}

// String is the text form used by printf and call tracing.
func (r Register) String() string {
	return string(r.AppendText(nil))
}

func (r Register) AppendText(b []byte) []byte {
	switch r.Kind {
	case UInt64:
		return strconv.AppendUint(b, r.U, 10)
	case Float32:
		return strconv.AppendFloat(b, r.F, 'g', -1, 32)
	case Float64:
		return strconv.AppendFloat(b, r.F, 'g', -1, 64)
	case Address:
		b = append(b, "0x"...)
		return strconv.AppendUint(b, r.U, 16)
	case Text:
		return append(b, r.S...)
	}

	return b
}

func (r Register) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendFormat(b, "%v:%v", r.Kind, r)
}

func (k RegKind) String() string {
	switch k {
	case None:
		return "none"
	case Address:
		return "address"
	case UInt64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Text:
		return "text"
	default:
		return "regkind(" + strconv.Itoa(int(k)) + ")"
	}
}

// binaryOp applies op dispatching on the kind of l.
// r must be of the same kind, the result is typed t.
func binaryOp(op ir.Op, l, r Register, t tp.Type) (Register, error) {
	if l.Kind != r.Kind {
		return Register{}, errors.Wrap(ErrOperandMismatch, "%v %v, %v", op, l.Kind, r.Kind)
	}

	if op == ir.And || op == ir.Or {
		lt, err := l.Truthy()
		if err != nil {
			return Register{}, err
		}

		rt, err := r.Truthy()
		if err != nil {
			return Register{}, err
		}

		if op == ir.And {
			return flag(lt && rt), nil
		}

		return flag(lt || rt), nil
	}

	switch l.Kind {
	case UInt64:
		return binaryInt(op, l.U, r.U, t)
	case Float32:
		return binaryFloat(op, float64(float32(l.F)), float64(float32(r.F)), tp.F32, t)
	case Float64:
		return binaryFloat(op, l.F, r.F, tp.F64, t)
	case Address:
		if op.IsPredicate() {
			return compare(op, l.U < r.U, l.U == r.U), nil
		}
	case Text:
		switch op {
		case ir.Equal, ir.NotEqual:
			return compare(op, l.S < r.S, l.S == r.S), nil
		}
	}

	return Register{}, errors.Wrap(ErrUnsupported, "%v on %v", op, l.Kind)
}

func binaryInt(op ir.Op, l, r uint64, t tp.Type) (Register, error) {
	var v uint64

	switch op {
	case ir.Add:
		v = l + r
	case ir.Sub:
		v = l - r
	case ir.Mul:
		v = l * r
	case ir.Div, ir.Mod:
		if r == 0 {
			return Register{}, ErrDivByZero
		}

		if op == ir.Div {
			v = l / r
		} else {
			v = l % r
		}
	default:
		if op.IsPredicate() {
			return compare(op, l < r, l == r), nil
		}

		return Register{}, errors.Wrap(ErrUnsupported, "%v on integers", op)
	}

	return Int(t, v), nil
}

func binaryFloat(op ir.Op, l, r float64, ft tp.Float, t tp.Type) (Register, error) {
	var v float64

	switch op {
	case ir.Add:
		v = l + r
	case ir.Sub:
		v = l - r
	case ir.Mul:
		v = l * r
	case ir.Div:
		v = l / r
	default:
		if op.IsPredicate() {
			return compare(op, l < r, l == r), nil
		}

		return Register{}, errors.Wrap(ErrUnsupported, "%v on %v", op, ft)
	}

	if x, ok := t.(tp.Float); ok {
		ft = x
	}

	return Float(ft, v), nil
}

func compare(op ir.Op, less, eq bool) Register {
	switch op {
	case ir.Less:
		return flag(less)
	case ir.Greater:
		return flag(!less && !eq)
	case ir.LessEq:
		return flag(less || eq)
	case ir.GreaterEq:
		return flag(!less)
	case ir.Equal:
		return flag(eq)
	case ir.NotEqual:
		return flag(!eq)
	}

	panic(op)
}

func flag(x bool) Register {
	if x {
		return Int(tp.I32, 1)
	}

	return Int(tp.I32, 0)
}

// unary applies Neg, Not, Inc, or Dec in the operand's own domain.
func unary(op ir.Op, x Register) (Register, error) {
	if op == ir.Not {
		t, err := x.Truthy()
		if err != nil {
			return Register{}, err
		}

		return flag(!t), nil
	}

	var d int

	switch op {
	case ir.Neg:
	case ir.Inc:
		d = 1
	case ir.Dec:
		d = -1
	default:
		return Register{}, errors.Wrap(ErrUnsupported, "unary %v", op)
	}

	switch x.Kind {
	case UInt64:
		if op == ir.Neg {
			x.U = -x.U
		} else {
			x.U += uint64(d)
		}
	case Float32, Float64:
		if op == ir.Neg {
			x.F = -x.F
		} else {
			x.F += float64(d)
		}

		if x.Kind == Float32 {
			x.F = float64(float32(x.F))
		}
	default:
		return Register{}, errors.Wrap(ErrUnsupported, "%v on %v", op, x.Kind)
	}

	return x, nil
}

// cast converts among integers and floats.
// Integers are truncated to the target width, converting to a float
// reads them as two's complement.
func cast(x Register, to tp.Type) (Register, error) {
	switch x.Kind {
	case UInt64, Float32, Float64:
	default:
		return Register{}, errors.Wrap(ErrInvalidCast, "from %v", x.Kind)
	}

	switch to := to.(type) {
	case tp.Int:
		u := x.U
		if x.Kind != UInt64 {
			u = uint64(int64(x.F))
		}

		if to.Bits < 64 {
			u &= 1<<uint(to.Bits) - 1
		}

		return Int(to, u), nil
	case tp.Float:
		f := x.F
		if x.Kind == UInt64 {
			f = float64(int64(x.U))
		}

		return Float(to, f), nil
	}

	return Register{}, errors.Wrap(ErrInvalidCast, "to %v", to)
}
