package sim

import (
	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/tp"
)

var ErrFormat = errors.New("printf arguments mismatch")

// printf writes one line.
// A string first argument is a template: each % takes the next argument, %% is a literal %.
// Otherwise all the arguments are printed separated by commas.
func (s *Simulator) printf(vals []ir.Value, args []Register) (err error) {
	if len(args) == 0 {
		return s.out.WriteLine("")
	}

	var b []byte

	if _, ok := vals[0].Type.(tp.String); !ok || args[0].Kind != Text {
		b = s.appendList(b, args)

		return s.out.WriteLine(string(b))
	}

	tmpl := args[0].S
	rest := args[1:]

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]

		if c != '%' {
			b = append(b, c)
			continue
		}

		if i+1 < len(tmpl) && tmpl[i+1] == '%' {
			b = append(b, '%')
			i++

			continue
		}

		if len(rest) == 0 {
			return errors.Wrap(ErrFormat, "%q: not enough arguments", tmpl)
		}

		b, err = s.appendValue(b, rest[0])
		if err != nil {
			return err
		}

		rest = rest[1:]
	}

	if len(rest) != 0 {
		return errors.Wrap(ErrFormat, "%q: %d extra arguments", tmpl, len(rest))
	}

	return s.out.WriteLine(string(b))
}

func (s *Simulator) appendList(b []byte, args []Register) []byte {
	for i, a := range args {
		if i != 0 {
			b = append(b, ", "...)
		}

		var err error

		b, err = s.appendValue(b, a)
		if err != nil {
			b = hfmt.Appendf(b, "<%v>", err)
		}
	}

	return b
}

// appendValue appends the text form of r.
// Arrays are walked in memory and printed as [e0, e1, ...].
func (s *Simulator) appendValue(b []byte, r Register) (_ []byte, err error) {
	a, ok := r.Type.(tp.Array)
	if !ok || r.Kind != Address {
		return r.AppendText(b), nil
	}

	size := a.X.Size()

	b = append(b, '[')

	for i := 0; i < a.Len; i++ {
		if i != 0 {
			b = append(b, ", "...)
		}

		e, err := s.mem.Load(r.U+uint64(i*size), a.X)
		if err != nil {
			return b, errors.Wrap(err, "element %d", i)
		}

		b, err = s.appendValue(b, e)
		if err != nil {
			return b, err
		}
	}

	b = append(b, ']')

	return b, nil
}
