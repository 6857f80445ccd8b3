package sim

import (
	"context"
	"errors"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/slowlang/semic/compiler"
	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/tp"
)

var _ = Describe("Simulator", func() {
	var (
		mockCtrl *gomock.Controller
		out      *MockOutput
		ctx      context.Context
		cfg      Config
	)

	build := func(src string) *ir.Module {
		m, err := compiler.Compile(ctx, "test", []byte(src))
		Expect(err).NotTo(HaveOccurred())

		return m
	}

	run := func(src string) (*Simulator, Register, error) {
		s := New(build(src), out, cfg)
		res, err := s.Run(ctx)

		return s, res, err
	}

	runtimeError := func(err error) *RuntimeError {
		var re *RuntimeError
		Expect(errors.As(err, &re)).To(BeTrue(), "%v", err)

		return re
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		out = NewMockOutput(mockCtrl)
		ctx = context.Background()
		cfg = Config{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when running loops", func() {
		It("should execute the body three times", func() {
			s, res, err := run(`
funcs:
  - name: main
    type: int
    body:
      - decl: {name: sum, type: int}
      - for:
          init: [{decl: {name: i, type: int, init: 0}}]
          cond: {op: "<", l: i, r: 3}
          body: [{assign: [sum, {op: "+", l: sum, r: i}]}]
          incr: [{assign: [i, {op: "+", l: i, r: 1}]}]
      - return: sum
`)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Kind).To(Equal(UInt64))
			Expect(res.U).To(Equal(uint64(3)))

			sum, ok := s.Entry().Lookup("sum")
			Expect(ok).To(BeTrue())
			Expect(sum.U).To(Equal(uint64(3)))

			i, _ := s.Entry().Lookup("i")
			Expect(i.U).To(Equal(uint64(3)))
		})

		It("should stop at the step limit", func() {
			cfg.MaxSteps = 100

			_, _, err := run(`
funcs:
  - name: main
    body:
      - for: {body: []}
`)
			Expect(err).To(MatchError(ErrStepLimit))
			runtimeError(err)
		})
	})

	Context("when calling functions", func() {
		It("should bind the call result in the caller", func() {
			s, _, err := run(`
funcs:
  - name: f
    type: int
    params: [{name: x, type: int}]
    body:
      - return: {op: "+", l: x, r: 1}
  - name: main
    body:
      - decl: {name: y, type: int}
      - assign: [y, {call: f, args: [2]}]
`)
			Expect(err).NotTo(HaveOccurred())

			y, ok := s.Entry().Lookup("y")
			Expect(ok).To(BeTrue())
			Expect(y).To(Equal(Int(tp.I32, 3)))

			c, ok := s.Entry().Temp(ir.TempKey{Block: 0, Index: 0})
			Expect(ok).To(BeTrue())
			Expect(c.U).To(Equal(uint64(3)))
			Expect(s.Entry().Terminated()).To(BeTrue())
		})

		It("should trace calls and returns in order", func() {
			cfg.Trace = true

			gomock.InOrder(
				out.EXPECT().WriteLine("f(2)"),
				out.EXPECT().WriteLine("return(3)"),
				out.EXPECT().WriteLine("3"),
				out.EXPECT().WriteLine("return()"),
			)

			_, _, err := run(`
funcs:
  - name: f
    type: int
    params: [{name: x, type: int}]
    body:
      - return: {op: "+", l: x, r: 1}
  - name: main
    body:
      - decl: {name: y, type: int, init: {call: f, args: [2]}}
      - call: printf
        args: [{str: "%"}, y]
`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should recurse without the host stack", func() {
			_, res, err := run(`
funcs:
  - name: down
    type: int
    params: [{name: n, type: int}]
    body:
      - if:
          cond: {op: "==", l: n, r: 0}
          then: [{return: 0}]
      - return: {op: "+", l: {call: down, args: [{op: "-", l: n, r: 1}]}, r: 1}
  - name: main
    type: int
    body:
      - return: {call: down, args: [20000]}
`)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.U).To(Equal(uint64(20000)))
		})

		It("should pass arrays by address", func() {
			out.EXPECT().WriteLine("total 6 of [1, 2, 3]")

			_, _, err := run(`
funcs:
  - name: total
    type: int
    params: [{name: p, type: "int*"}, {name: n, type: int}]
    body:
      - decl: {name: s, type: int, init: 0}
      - for:
          init: [{decl: {name: i, type: int, init: 0}}]
          cond: {op: "<", l: i, r: n}
          body: [{assign: [s, {op: "+", l: s, r: {index: [p, i]}}]}]
          incr: [{op: "++", x: i}]
      - return: s
  - name: main
    body:
      - decl: {name: a, type: "int[3]"}
      - for:
          init: [{decl: {name: i, type: int, init: 0}}]
          cond: {op: "<", l: i, r: 3}
          body: [{assign: [{index: [a, i]}, {op: "+", l: i, r: 1}]}]
          incr: [{op: "++", x: i}]
      - call: printf
        args: [{str: "total % of %"}, {call: total, args: [a, 3]}, a]
`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should fail without main", func() {
			s := New(ir.NewModule(), out, cfg)

			_, err := s.Run(ctx)
			Expect(err).To(MatchError(ErrNoFunction))
			Expect(runtimeError(err).Func).To(Equal("main"))
		})
	})

	Context("when printing", func() {
		It("should substitute markers left to right", func() {
			gomock.InOrder(
				out.EXPECT().WriteLine("42"),
				out.EXPECT().WriteLine("1-2"),
				out.EXPECT().WriteLine("100%"),
				out.EXPECT().WriteLine("1, 2.5"),
				out.EXPECT().WriteLine("x=1.5 s=abc"),
			)

			_, _, err := run(`
funcs:
  - name: main
    body:
      - call: printf
        args: [{str: "%"}, 42]
      - call: printf
        args: [{str: "%-%"}, 1, 2]
      - call: printf
        args: [{str: "100%%"}]
      - call: printf
        args: [1, 2.5]
      - decl: {name: x, type: float, init: 1.5}
      - call: printf
        args: [{str: "x=% s=%"}, x, {str: abc}]
`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should print arrays of strings", func() {
			out.EXPECT().WriteLine("[a, , c]")

			_, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: s, type: "str[3]"}
      - assign: [{index: [s, 0]}, {str: a}]
      - assign: [{index: [s, 2]}, {str: c}]
      - call: printf
        args: [{str: "%"}, s]
`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should fail on missing arguments after earlier output", func() {
			out.EXPECT().WriteLine("ok")

			_, _, err := run(`
funcs:
  - name: main
    body:
      - call: printf
        args: [{str: "ok"}]
      - call: printf
        args: [{str: "% %"}, 1]
`)
			Expect(err).To(MatchError(ErrFormat))

			re := runtimeError(err)
			Expect(re.Block).To(Equal(0))
			Expect(re.Index).To(Equal(1))
		})
	})

	Context("when accessing memory", func() {
		It("should write through pointers into arrays", func() {
			out.EXPECT().WriteLine("[5, 0, 7]")

			_, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: a, type: "int[3]"}
      - decl: {name: p, type: "int*"}
      - assign: [p, a]
      - assign: [{deref: p}, 5]
      - assign: [{index: [p, 2]}, {op: "+", l: {deref: p}, r: 2}]
      - call: printf
        args: [{str: "%"}, a]
`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should report out of bounds indexing", func() {
			_, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: a, type: "int[2]"}
      - assign: [{index: [a, 5]}, 1]
`)
			Expect(err).To(MatchError(ErrOutOfBounds))

			re := runtimeError(err)
			Expect(re.Func).To(Equal("main"))
			Expect(re.Block).To(Equal(0))
			Expect(re.Index).To(Equal(0))
		})

		It("should not write past an array into its neighbour", func() {
			_, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: a, type: "int[2]"}
      - decl: {name: b, type: "int[2]"}
      - assign: [{index: [a, 2]}, 99]
      - call: printf
        args: [{str: "%"}, b]
`)
			Expect(err).To(MatchError(ErrOutOfBounds))
			Expect(runtimeError(err).Index).To(Equal(0))
		})

		It("should not write before an array into its neighbour", func() {
			_, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: a, type: "int[2]"}
      - decl: {name: b, type: "int[2]"}
      - assign: [{index: [b, {op: "-", l: 0, r: 1}]}, 7]
      - call: printf
        args: [{str: "%"}, a]
`)
			Expect(err).To(MatchError(ErrOutOfBounds))
			Expect(runtimeError(err).Index).To(Equal(1))
		})

		It("should load and store pointers kept in arrays", func() {
			gomock.InOrder(
				out.EXPECT().WriteLine("0x0"),
				out.EXPECT().WriteLine("5"),
			)

			_, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: ps, type: "int*[2]"}
      - decl: {name: x, type: "int[1]"}
      - decl: {name: q, type: "int*"}
      - assign: [q, {index: [ps, 0]}]
      - call: printf
        args: [{str: "%"}, q]
      - assign: [{index: [x, 0]}, 5]
      - assign: [{index: [ps, 1]}, x]
      - assign: [q, {index: [ps, 1]}]
      - call: printf
        args: [{str: "%"}, {deref: q}]
`)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should report null pointer stores", func() {
			_, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: p, type: "int*"}
      - assign: [{deref: p}, 1]
`)
			Expect(err).To(MatchError(ErrNullPointer))
		})
	})

	Context("when computing", func() {
		It("should fail on division by zero with the failing location", func() {
			_, _, err := run(`
funcs:
  - name: f
    type: int
    params: [{name: z, type: int}]
    body:
      - decl: {name: x, type: int}
      - if:
          cond: 1
          then:
            - assign: [x, {op: "/", l: 1, r: z}]
      - return: x
  - name: main
    type: int
    body:
      - return: {call: f, args: [0]}
`)
			Expect(err).To(MatchError(ErrDivByZero))

			re := runtimeError(err)
			Expect(re.Func).To(Equal("f"))
			Expect(re.Block).To(Equal(1))
			Expect(re.Index).To(Equal(0))
		})

		It("should not convert mismatched operands", func() {
			_, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: d, type: double, init: 1.5}
      - decl: {name: i, type: int, init: 2}
      - expr: {op: "+", l: d, r: i}
`)
			Expect(err).To(MatchError(ErrOperandMismatch))
			Expect(runtimeError(err).Index).To(Equal(2))
		})

		It("should cast numbers and reject strings", func() {
			out.EXPECT().WriteLine("2 -1 255")

			_, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: x, type: int, init: {cast: int, x: 2.7}}
      - decl: {name: d, type: double, init: {cast: double, x: {op: "-", l: 0, r: 1}}}
      - decl: {name: c, type: char, init: {cast: char, x: {op: "-", l: 0, r: 1}}}
      - call: printf
        args: [{str: "% % %"}, x, d, c]
      - expr: {cast: int, x: {str: a}}
`)
			Expect(err).To(MatchError(ErrInvalidCast))
		})

		It("should update variables on increment", func() {
			s, _, err := run(`
funcs:
  - name: main
    body:
      - decl: {name: i, type: int, init: 41}
      - expr: {op: "++", x: i}
      - decl: {name: f, type: double}
      - expr: {op: "--", x: f}
`)
			Expect(err).NotTo(HaveOccurred())

			i, _ := s.Entry().Lookup("i")
			Expect(i.U).To(Equal(uint64(42)))

			t, _ := s.Entry().Temp(ir.TempKey{Block: 0, Index: 1})
			Expect(t.U).To(Equal(uint64(42)))

			f, _ := s.Entry().Lookup("f")
			Expect(f.F).To(Equal(-1.0))
		})
	})
})
