package tp

import (
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

var names = map[string]Type{
	"void":   Void{},
	"char":   I8,
	"short":  I16,
	"int":    I32,
	"long":   I64,
	"float":  F32,
	"double": F64,
	"str":    String{},
	"string": String{},

	"i8":  I8,
	"i16": I16,
	"i32": I32,
	"i64": I64,
	"f32": F32,
	"f64": F64,
}

// Parse resolves a type name.
// Base names are C spellings (int, double, ...) or display names (i32, f64, ...).
// Any number of `*` and `[N]` suffixes may follow, applied left to right:
// "int*[4]" is an array of 4 pointers to i32.
func Parse(name string) (Type, error) {
	s := strings.TrimSpace(name)

	end := strings.IndexAny(s, "*[")
	if end < 0 {
		end = len(s)
	}

	base := strings.TrimSpace(s[:end])

	t, ok := names[base]
	if !ok {
		return nil, errors.New("unknown type name: %q", base)
	}

	for i := end; i < len(s); {
		switch s[i] {
		case ' ', '\t':
			i++
		case '*':
			if IsVoid(t) {
				return nil, errors.New("pointer to void: %q", name)
			}

			t = Ptr{X: t}
			i++
		case '[':
			e := strings.IndexByte(s[i:], ']')
			if e < 0 {
				return nil, errors.New("unclosed array length: %q", name)
			}

			n, err := strconv.Atoi(strings.TrimSpace(s[i+1 : i+e]))
			if err != nil || n < 0 {
				return nil, errors.New("bad array length in %q", name)
			}

			if IsVoid(t) {
				return nil, errors.New("array of void: %q", name)
			}

			t = Array{X: t, Len: n}
			i += e + 1
		default:
			return nil, errors.New("unexpected %q in type name %q", s[i], name)
		}
	}

	return t, nil
}

// MustParse is Parse for names known to be valid.
func MustParse(name string) Type {
	t, err := Parse(name)
	if err != nil {
		panic(err)
	}

	return t
}
