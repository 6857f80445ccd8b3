package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

// Bitmap is a set of block ids.
// The zero value is an empty set ready to use.
type Bitmap struct {
	w []uint64
}

// Blocks returns a set with room for n ids.
func Blocks(n int) Bitmap {
	return Bitmap{w: make([]uint64, 0, (n+63)/64)}
}

func (s *Bitmap) Add(id int) {
	k := id >> 6

	for k >= len(s.w) {
		s.w = append(s.w, 0)
	}

	s.w[k] |= 1 << uint(id&63)
}

func (s Bitmap) Has(id int) bool {
	k := id >> 6

	return id >= 0 && k < len(s.w) && s.w[k]&(1<<uint(id&63)) != 0
}

// Count is the number of ids in the set.
func (s Bitmap) Count() (n int) {
	for _, x := range s.w {
		n += bits.OnesCount64(x)
	}

	return n
}

// Each calls f for ids in ascending order.
func (s Bitmap) Each(f func(id int)) {
	for k, x := range s.w {
		for ; x != 0; x &= x - 1 {
			f(k<<6 + bits.TrailingZeros64(x))
		}
	}
}

func (s Bitmap) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Array, s.Count())

	s.Each(func(id int) {
		b = e.AppendInt(b, id)
	})

	return b
}
