package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/tp"
)

var _ = Describe("Register", func() {
	It("should zero by type", func() {
		Expect(Zero(tp.I32).Kind).To(Equal(UInt64))
		Expect(Zero(tp.F32).Kind).To(Equal(Float32))
		Expect(Zero(tp.F64).Kind).To(Equal(Float64))
		Expect(Zero(tp.String{}).Kind).To(Equal(Text))
		Expect(Zero(tp.Ptr{X: tp.I32}).Kind).To(Equal(Address))
		Expect(Zero(tp.Void{}).Kind).To(Equal(None))
	})

	It("should keep integers unbounded until cast", func() {
		r, err := binaryOp(ir.Add, Int(tp.I8, 200), Int(tp.I8, 100), tp.I8)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.U).To(Equal(uint64(300)))

		r, err = cast(r, tp.I8)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.U).To(Equal(uint64(44)))
	})

	It("should yield i32 flags from predicates", func() {
		r, err := binaryOp(ir.LessEq, Float(tp.F64, 1), Float(tp.F64, 1), tp.I32)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(Int(tp.I32, 1)))

		r, err = binaryOp(ir.NotEqual, Str("a"), Str("a"), tp.I32)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(Int(tp.I32, 0)))

		_, err = binaryOp(ir.And, Int(tp.I32, 5), Float(tp.F64, 0.5), tp.I32)
		Expect(err).To(MatchError(ErrOperandMismatch))

		r, err = binaryOp(ir.Or, Int(tp.I32, 0), Int(tp.I32, 7), tp.I32)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.U).To(Equal(uint64(1)))
	})

	It("should reject arithmetic on strings and addresses", func() {
		_, err := binaryOp(ir.Add, Str("a"), Str("b"), tp.String{})
		Expect(err).To(MatchError(ErrUnsupported))

		_, err = binaryOp(ir.Add, Addr(tp.Ptr{X: tp.I32}, 8), Addr(tp.Ptr{X: tp.I32}, 16), tp.I32)
		Expect(err).To(MatchError(ErrUnsupported))
	})

	It("should round float32 results", func() {
		r, err := binaryOp(ir.Div, Float(tp.F32, 1), Float(tp.F32, 3), tp.F32)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Kind).To(Equal(Float32))
		Expect(r.F).To(Equal(float64(float32(1) / 3)))
		Expect(r.String()).To(Equal("0.33333334"))
	})

	It("should report integer division by zero", func() {
		_, err := binaryOp(ir.Mod, Int(tp.I32, 1), Int(tp.I32, 0), tp.I32)
		Expect(err).To(MatchError(ErrDivByZero))

		r, err := binaryOp(ir.Div, Float(tp.F64, 1), Float(tp.F64, 0), tp.F64)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.String()).To(Equal("+Inf"))
	})

	It("should apply unary operators", func() {
		r, err := unary(ir.Not, Int(tp.I32, 0))
		Expect(err).NotTo(HaveOccurred())
		Expect(r.U).To(Equal(uint64(1)))

		r, err = unary(ir.Neg, Float(tp.F64, 2))
		Expect(err).NotTo(HaveOccurred())
		Expect(r.F).To(Equal(-2.0))

		r, err = unary(ir.Dec, Int(tp.I32, 0))
		Expect(err).NotTo(HaveOccurred())
		Expect(r.U).To(Equal(^uint64(0)))

		_, err = unary(ir.Inc, Str("x"))
		Expect(err).To(MatchError(ErrUnsupported))
	})

	It("should cast between numbers", func() {
		r, err := cast(Int(tp.I32, ^uint64(0)), tp.F64)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(Float(tp.F64, -1)))

		r, err = cast(Float(tp.F64, -2.9), tp.I16)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.U).To(Equal(uint64(0xfffe)))

		_, err = cast(Int(tp.I32, 1), tp.String{})
		Expect(err).To(MatchError(ErrInvalidCast))

		_, err = cast(Addr(tp.Ptr{X: tp.I32}, 8), tp.I64)
		Expect(err).To(MatchError(ErrInvalidCast))
	})

	It("should format values", func() {
		Expect(Int(tp.I32, 42).String()).To(Equal("42"))
		Expect(Float(tp.F64, 2.5).String()).To(Equal("2.5"))
		Expect(Addr(tp.Ptr{X: tp.I32}, 16).String()).To(Equal("0x10"))
		Expect(Str("hi").String()).To(Equal("hi"))
		Expect(Register{}.String()).To(Equal(""))
	})

	It("should evaluate truthiness", func() {
		t, err := Float(tp.F32, 0).Truthy()
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(BeFalse())

		t, err = Addr(tp.Ptr{X: tp.I8}, 8).Truthy()
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(BeTrue())

		_, err = Str("").Truthy()
		Expect(err).To(MatchError(ErrUnsupported))
	})
})

var _ = Describe("Memory", func() {
	var m *Memory

	BeforeEach(func() {
		m = NewMemory()
	})

	It("should keep the null page unallocated", func() {
		a := m.Alloc(4)
		Expect(a).To(BeNumerically(">=", nullSize))

		_, err := m.Load(0, tp.I32)
		Expect(err).To(MatchError(ErrNullPointer))
	})

	It("should round trip values", func() {
		a := m.Alloc(tp.Array{X: tp.I64, Len: 4}.Size())

		Expect(m.Store(a, Int(tp.I64, 1<<40), tp.I64)).To(Succeed())
		Expect(m.Store(a+8, Float(tp.F64, 0.25), tp.F64)).To(Succeed())
		Expect(m.Store(a+16, Str("text"), tp.String{})).To(Succeed())
		Expect(m.Store(a+24, Float(tp.F32, 1.5), tp.F32)).To(Succeed())

		r, err := m.Load(a, tp.I64)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.U).To(Equal(uint64(1 << 40)))

		r, err = m.Load(a+8, tp.F64)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.F).To(Equal(0.25))

		r, err = m.Load(a+16, tp.String{})
		Expect(err).NotTo(HaveOccurred())
		Expect(r.S).To(Equal("text"))

		r, err = m.Load(a+24, tp.F32)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(Float(tp.F32, 1.5)))
	})

	It("should truncate narrow integers on store", func() {
		a := m.Alloc(2)

		Expect(m.Store(a, Int(tp.I16, 0x12345), tp.I16)).To(Succeed())

		r, err := m.Load(a, tp.I16)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.U).To(Equal(uint64(0x2345)))
	})

	It("should check allocation bounds", func() {
		a := m.Alloc(6)
		b := m.Alloc(8)

		Expect(m.Store(a+4, Int(tp.I16, 1), tp.I16)).To(Succeed())
		Expect(m.Store(a+4, Int(tp.I32, 1), tp.I32)).To(MatchError(ErrOutOfBounds))

		_, err := m.Load(b+8, tp.I8)
		Expect(err).To(MatchError(ErrOutOfBounds))

		_, err = m.Load(b, tp.I64)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should bound derived accesses by the base allocation", func() {
		a := m.Alloc(8)
		b := m.Alloc(8)

		Expect(m.check(a+8, 4)).To(Succeed())
		Expect(m.checkFrom(a, a+4, 4)).To(Succeed())
		Expect(m.checkFrom(a, a+8, 4)).To(MatchError(ErrOutOfBounds))
		Expect(m.checkFrom(b, b-4, 4)).To(MatchError(ErrOutOfBounds))
		Expect(m.checkFrom(0, 8, 4)).To(MatchError(ErrNullPointer))
	})

	It("should reject stores of the wrong kind", func() {
		a := m.Alloc(8)

		Expect(m.Store(a, Float(tp.F64, 1), tp.I64)).To(MatchError(ErrOperandMismatch))
	})

	It("should load arrays as their address", func() {
		at := tp.Array{X: tp.I32, Len: 2}
		a := m.Alloc(at.Size())

		r, err := m.Load(a, at)
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(Addr(at, a)))
	})
})
