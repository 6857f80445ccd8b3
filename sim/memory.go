package sim

import (
	"encoding/binary"
	"math"
	"sort"

	"tlog.app/go/errors"

	"github.com/slowlang/semic/compiler/tp"
)

type (
	// Memory is a flat little-endian byte arena.
	// Addresses below nullSize are never allocated so 0 is the null pointer.
	// Strings live outside the arena, the arena keeps 8 byte handles to them.
	Memory struct {
		buf    []byte
		allocs []span

		texts []string
	}

	span struct {
		base uint64
		size uint64
	}
)

const nullSize = 8

var (
	ErrNullPointer = errors.New("null pointer access")
	ErrOutOfBounds = errors.New("out of bounds access")
)

func NewMemory() *Memory {
	return &Memory{
		buf: make([]byte, nullSize),
	}
}

// Alloc reserves size zeroed bytes and returns their base address.
func (m *Memory) Alloc(size int) uint64 {
	base := uint64(len(m.buf))

	n := (size + 7) &^ 7
	if n == 0 {
		n = 8
	}

	m.buf = append(m.buf, make([]byte, n)...)
	m.allocs = append(m.allocs, span{base: base, size: uint64(size)})

	return base
}

// Len is the arena size including the null page.
func (m *Memory) Len() int { return len(m.buf) }

func (m *Memory) check(addr uint64, n int) error {
	if addr < nullSize {
		return errors.Wrap(ErrNullPointer, "address %#x", addr)
	}

	a, ok := m.allocation(addr)
	if !ok {
		return errors.Wrap(ErrOutOfBounds, "address %#x size %d", addr, n)
	}

	return a.contains(addr, n)
}

// checkFrom checks an access computed from base.
// The access must stay inside the allocation base points into.
func (m *Memory) checkFrom(base, addr uint64, n int) error {
	if base < nullSize {
		return errors.Wrap(ErrNullPointer, "base %#x", base)
	}

	a, ok := m.allocation(base)
	if !ok {
		return errors.Wrap(ErrOutOfBounds, "base %#x", base)
	}

	return a.contains(addr, n)
}

func (m *Memory) allocation(addr uint64) (span, bool) {
	i := sort.Search(len(m.allocs), func(i int) bool {
		a := m.allocs[i]
		return a.base+a.size > addr
	})

	if i == len(m.allocs) || addr < m.allocs[i].base {
		return span{}, false
	}

	return m.allocs[i], true
}

func (a span) contains(addr uint64, n int) error {
	end := addr + uint64(n)

	if addr < a.base || end < addr || end > a.base+a.size {
		return errors.Wrap(ErrOutOfBounds, "address %#x size %d: allocation %#x size %d", addr, n, a.base, a.size)
	}

	return nil
}

// Load reads a value of type t at addr.
// An array is not read, the result is its address.
func (m *Memory) Load(addr uint64, t tp.Type) (r Register, err error) {
	err = m.check(addr, t.Size())
	if err != nil {
		return r, err
	}

	p := m.buf[addr:]

	switch t := t.(type) {
	case tp.Int:
		var v uint64

		switch t.Bits {
		case 8:
			v = uint64(p[0])
		case 16:
			v = uint64(binary.LittleEndian.Uint16(p))
		case 32:
			v = uint64(binary.LittleEndian.Uint32(p))
		case 64:
			v = binary.LittleEndian.Uint64(p)
		default:
			return r, errors.Wrap(ErrUnsupported, "load %v", t)
		}

		return Int(t, v), nil
	case tp.Float:
		if t.Bits == 32 {
			return Float(t, float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))), nil
		}

		return Float(t, math.Float64frombits(binary.LittleEndian.Uint64(p))), nil
	case tp.String:
		return Str(m.text(binary.LittleEndian.Uint64(p))), nil
	case tp.Ptr:
		return Addr(t, binary.LittleEndian.Uint64(p)), nil
	case tp.Array:
		return Addr(t, addr), nil
	}

	return r, errors.Wrap(ErrUnsupported, "load %v", t)
}

// Store writes r at addr as a value of type t.
// An array typed value is stored as its 8 byte address.
func (m *Memory) Store(addr uint64, r Register, t tp.Type) (err error) {
	size := t.Size()
	if _, ok := t.(tp.Array); ok {
		size = 8
	}

	err = m.check(addr, size)
	if err != nil {
		return err
	}

	p := m.buf[addr:]

	want := Zero(t).Kind
	if r.Kind != want {
		return errors.Wrap(ErrOperandMismatch, "store %v as %v", r.Kind, t)
	}

	switch t := t.(type) {
	case tp.Int:
		switch t.Bits {
		case 8:
			p[0] = byte(r.U)
		case 16:
			binary.LittleEndian.PutUint16(p, uint16(r.U))
		case 32:
			binary.LittleEndian.PutUint32(p, uint32(r.U))
		case 64:
			binary.LittleEndian.PutUint64(p, r.U)
		default:
			return errors.Wrap(ErrUnsupported, "store %v", t)
		}
	case tp.Float:
		if t.Bits == 32 {
			binary.LittleEndian.PutUint32(p, math.Float32bits(float32(r.F)))
		} else {
			binary.LittleEndian.PutUint64(p, math.Float64bits(r.F))
		}
	case tp.String:
		binary.LittleEndian.PutUint64(p, m.intern(r.S))
	case tp.Ptr, tp.Array:
		binary.LittleEndian.PutUint64(p, r.U)
	default:
		return errors.Wrap(ErrUnsupported, "store %v", t)
	}

	return nil
}

func (m *Memory) intern(s string) uint64 {
	if s == "" {
		return 0
	}

	m.texts = append(m.texts, s)

	return uint64(len(m.texts))
}

func (m *Memory) text(h uint64) string {
	if h == 0 || h > uint64(len(m.texts)) {
		return ""
	}

	return m.texts[h-1]
}
