package sim

import (
	"tlog.app/go/errors"

	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/tp"
)

type (
	// FunctionContext is one activation of a function:
	// a cursor into its CFG and a private symbol table.
	FunctionContext struct {
		Func *ir.Func

		Block int
		Index int

		vars  map[string]Register
		temps map[ir.TempKey]Register

		ret  Register
		done bool
	}
)

var ErrUnbound = errors.New("unbound operand")

func newFrame(s *Simulator, f *ir.Func, args []Register) (*FunctionContext, error) {
	if len(args) != len(f.Params) {
		return nil, errors.Wrap(ErrOperandMismatch, "%v: want %d args, got %d", f.Name, len(f.Params), len(args))
	}

	fc := &FunctionContext{
		Func:  f,
		vars:  make(map[string]Register, len(f.Params)+len(f.Locals)),
		temps: make(map[ir.TempKey]Register),
	}

	for i, p := range f.Params {
		a := args[i]

		if a.Kind != Zero(p.Type).Kind {
			return nil, errors.Wrap(ErrOperandMismatch, "%v: arg %v: %v passed as %v", f.Name, p.Name, a.Kind, p.Type)
		}

		if a.Kind == Address {
			a.Type = p.Type
		}

		fc.vars[p.Name] = a
	}

	for _, l := range f.Locals {
		if a, ok := l.Type.(tp.Array); ok {
			fc.vars[l.Name] = Addr(a, s.mem.Alloc(a.Size()))
			continue
		}

		fc.vars[l.Name] = Zero(l.Type)
	}

	return fc, nil
}

// Lookup returns the current value of a variable.
func (fc *FunctionContext) Lookup(name string) (Register, bool) {
	r, ok := fc.vars[name]
	return r, ok
}

// Temp returns the value an instruction produced in this activation.
func (fc *FunctionContext) Temp(k ir.TempKey) (Register, bool) {
	r, ok := fc.temps[k]
	return r, ok
}

// Terminated reports whether the function has returned.
func (fc *FunctionContext) Terminated() bool { return fc.done }

// Result is the returned value, valid once terminated.
func (fc *FunctionContext) Result() Register { return fc.ret }

func (fc *FunctionContext) value(v ir.Value) (Register, error) {
	switch v.Kind {
	case ir.Ident:
		r, ok := fc.vars[v.Name]
		if !ok {
			return r, errors.Wrap(ErrUnbound, "%v", v.Name)
		}

		return r, nil
	case ir.Temp:
		r, ok := fc.temps[v.Temp]
		if !ok {
			return r, errors.Wrap(ErrUnbound, "%v", v.Temp)
		}

		return r, nil
	}

	return literal(v)
}

func (fc *FunctionContext) values(l []ir.Value) (_ []Register, err error) {
	regs := make([]Register, len(l))

	for i, v := range l {
		regs[i], err = fc.value(v)
		if err != nil {
			return nil, err
		}
	}

	return regs, nil
}

// step runs the current block from the cursor.
// It stops before a Call, leaving the cursor on it, or after the terminator.
func (fc *FunctionContext) step(s *Simulator) (call *ir.Call, err error) {
	b, ok := fc.Func.Blocks[fc.Block]
	if !ok {
		return nil, errors.New("no block b%d", fc.Block)
	}

	for fc.Index < len(b.Code) {
		err = s.tick()
		if err != nil {
			return nil, err
		}

		x := b.Code[fc.Index]

		if c, ok := x.(ir.Call); ok {
			return &c, nil
		}

		k := ir.TempKey{Block: fc.Block, Index: fc.Index}

		r, err := fc.exec(s, x)
		if err != nil {
			return nil, errors.Wrap(err, "%v", x.Opcode())
		}

		if s.tr.If("sim_step") {
			s.tr.Printw("exec", "func", fc.Func.Name, "temp", k, "op", x.Opcode(), "res", r)
		}

		fc.temps[k] = r
		fc.Index++
	}

	err = s.tick()
	if err != nil {
		return nil, err
	}

	err = fc.jump(s, b.Term)
	if err != nil {
		return nil, errors.Wrap(err, "%v", b.Term.Kind)
	}

	return nil, nil
}

func (fc *FunctionContext) jump(s *Simulator, j ir.Jump) error {
	switch j.Kind {
	case ir.Direct:
		fc.Block, fc.Index = j.Target, 0
	case ir.Conditional:
		c, err := fc.value(j.Cond)
		if err != nil {
			return err
		}

		t, err := c.Truthy()
		if err != nil {
			return err
		}

		fc.Block = j.False
		if t {
			fc.Block = j.True
		}

		fc.Index = 0
	case ir.Return:
		fc.ret = Register{Type: tp.Void{}}

		if j.HasValue {
			r, err := fc.value(j.Value)
			if err != nil {
				return err
			}

			fc.ret = r
		}

		fc.done = true
	default:
		return errors.New("unterminated block b%d", fc.Block)
	}

	return nil
}

func (fc *FunctionContext) exec(s *Simulator, x ir.Instr) (r Register, err error) {
	switch x := x.(type) {
	case ir.Binary:
		if x.Op == ir.Assign {
			return fc.assign(x)
		}

		l, err := fc.value(x.L)
		if err != nil {
			return r, err
		}

		rr, err := fc.value(x.R)
		if err != nil {
			return r, err
		}

		return binaryOp(x.Op, l, rr, x.ResultType())
	case ir.Unary:
		v, err := fc.value(x.X)
		if err != nil {
			return r, err
		}

		r, err = unary(x.Op, v)
		if err != nil {
			return r, err
		}

		if (x.Op == ir.Inc || x.Op == ir.Dec) && x.X.Kind == ir.Ident {
			fc.vars[x.X.Name] = r
		}

		return r, nil
	case ir.Printf:
		args, err := fc.values(x.Args)
		if err != nil {
			return r, err
		}

		err = s.printf(x.Args, args)
		if err != nil {
			return r, err
		}

		return Register{Type: tp.Void{}}, nil
	case ir.Index:
		return fc.index(s, x)
	case ir.Load:
		p, err := fc.value(x.Ptr)
		if err != nil {
			return r, err
		}

		if p.Kind != Address {
			return r, errors.Wrap(ErrOperandMismatch, "load through %v", p.Kind)
		}

		return s.mem.Load(p.U, x.ResultType())
	case ir.Store:
		p, err := fc.value(x.Ptr)
		if err != nil {
			return r, err
		}

		if p.Kind != Address {
			return r, errors.Wrap(ErrOperandMismatch, "store through %v", p.Kind)
		}

		v, err := fc.value(x.Val)
		if err != nil {
			return r, err
		}

		err = s.mem.Store(p.U, v, x.Val.Type)
		if err != nil {
			return r, err
		}

		return Register{Type: tp.Void{}}, nil
	case ir.Cast:
		v, err := fc.value(x.X)
		if err != nil {
			return r, err
		}

		return cast(v, x.To)
	}

	return r, errors.Wrap(ErrUnsupported, "instruction %T", x)
}

// assign overwrites the named slot of the left operand.
func (fc *FunctionContext) assign(x ir.Binary) (r Register, err error) {
	if x.L.Kind != ir.Ident {
		return r, errors.Wrap(ErrOperandMismatch, "assign to %v", x.L.Kind)
	}

	r, err = fc.value(x.R)
	if err != nil {
		return r, err
	}

	if r.Kind == Address {
		r.Type = x.L.Type
	}

	fc.vars[x.L.Name] = r

	return r, nil
}

// index computes base + i*elemSize and checks the element lies in the allocation of base.
func (fc *FunctionContext) index(s *Simulator, x ir.Index) (r Register, err error) {
	base, err := fc.value(x.Array)
	if err != nil {
		return r, err
	}

	i, err := fc.value(x.Index)
	if err != nil {
		return r, err
	}

	if base.Kind != Address || i.Kind != UInt64 {
		return r, errors.Wrap(ErrOperandMismatch, "index %v by %v", base.Kind, i.Kind)
	}

	elem := x.ResultType()
	size := uint64(elem.Size())

	addr := base.U + i.U*size

	err = s.mem.checkFrom(base.U, addr, int(size))
	if err != nil {
		return r, errors.Wrap(err, "index %d", i.U)
	}

	if _, ok := elem.(tp.Array); ok {
		return Addr(elem, addr), nil
	}

	return Addr(tp.Ptr{X: elem}, addr), nil
}
