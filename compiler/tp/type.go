package tp

import "strconv"

type (
	Type interface {
		Size() int
		Elem() Type
		String() string
	}

	Void struct{}

	Int struct {
		Bits int16
	}

	Float struct {
		Bits int16
	}

	Ptr struct {
		X Type
	}

	Array struct {
		X   Type
		Len int
	}

	String struct{}
)

var (
	I8  = Int{Bits: 8}
	I16 = Int{Bits: 16}
	I32 = Int{Bits: 32}
	I64 = Int{Bits: 64}

	F32 = Float{Bits: 32}
	F64 = Float{Bits: 64}
)

func (Void) Size() int      { return 0 }
func (Void) Elem() Type     { return Void{} }
func (Void) String() string { return "void" }

func (x Int) Size() int      { return int(x.Bits) / 8 }
func (Int) Elem() Type       { return Void{} }
func (x Int) String() string { return "i" + strconv.Itoa(int(x.Bits)) }

func (x Float) Size() int      { return int(x.Bits) / 8 }
func (Float) Elem() Type       { return Void{} }
func (x Float) String() string { return "f" + strconv.Itoa(int(x.Bits)) }

func (Ptr) Size() int          { return 8 }
func (x Ptr) Elem() Type       { return x.X }
func (x Ptr) String() string   { return x.X.String() + "*" }
func (x Array) Size() int      { return x.Len * x.X.Size() }
func (x Array) Elem() Type     { return x.X }
func (x Array) String() string { return x.X.String() + "[" + strconv.Itoa(x.Len) + "]" }

func (String) Size() int      { return 8 }
func (String) Elem() Type     { return Void{} }
func (String) String() string { return "str" }

// IsVoid reports whether t is nil or Void.
func IsVoid(t Type) bool {
	switch t.(type) {
	case nil, Void:
		return true
	}

	return false
}

// IsNumeric reports whether t is an Int or a Float.
func IsNumeric(t Type) bool {
	switch t.(type) {
	case Int, Float:
		return true
	}

	return false
}

// IsAddress reports whether values of t are held as addresses at run time.
func IsAddress(t Type) bool {
	switch t.(type) {
	case Ptr, Array:
		return true
	}

	return false
}
