package sim

import (
	"context"
	"io"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/tp"
)

type (
	Config struct {
		// Trace prints a line per call and per return.
		Trace bool

		// MaxSteps aborts the run after that many executed instructions and terminators.
		// Zero means no limit.
		MaxSteps int
	}

	// Output receives printed lines in execution order.
	Output interface {
		WriteLine(line string) error
	}

	WriterOutput struct {
		w io.Writer
	}

	// Simulator runs a module with an explicit stack of FunctionContexts.
	Simulator struct {
		Config

		m   *ir.Module
		out Output
		mem *Memory

		stack []*FunctionContext
		entry *FunctionContext

		steps int

		tr tlog.Span
	}

	// RuntimeError aborts a run. Index equal to the block length means the terminator.
	RuntimeError struct {
		Func  string
		Block int
		Index int
		Err   error
	}
)

const EntryName = "main"

var (
	ErrNoFunction = errors.New("no such function")
	ErrStackEmpty = errors.New("call stack is empty")
	ErrStepLimit  = errors.New("step limit exceeded")
)

func NewWriterOutput(w io.Writer) *WriterOutput {
	return &WriterOutput{w: w}
}

func (o *WriterOutput) WriteLine(l string) error {
	_, err := io.WriteString(o.w, l+"\n")
	return err
}

func New(m *ir.Module, out Output, cfg Config) *Simulator {
	if out == nil {
		out = NewWriterOutput(io.Discard)
	}

	return &Simulator{
		Config: cfg,
		m:      m,
		out:    out,
		mem:    NewMemory(),
	}
}

// Run executes main until the call stack is empty and returns its result.
// A void main results in a register of kind None.
func (s *Simulator) Run(ctx context.Context) (res Register, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "sim: run", "funcs", len(s.m.Funcs), "trace", s.Trace, "max_steps", s.MaxSteps)
	defer func() {
		tr.Finish("err", err, "steps", s.steps)
	}()

	s.tr = tr
	s.stack = s.stack[:0]
	s.steps = 0

	f, ok := s.m.Funcs[EntryName]
	if !ok {
		return res, &RuntimeError{Func: EntryName, Err: ErrNoFunction}
	}

	fc, err := newFrame(s, f, nil)
	if err != nil {
		return res, &RuntimeError{Func: EntryName, Err: err}
	}

	s.entry = fc
	s.push(fc)

	for len(s.stack) != 0 {
		fc = s.stack[len(s.stack)-1]

		call, err := fc.step(s)
		if err != nil {
			return res, s.fail(fc, err)
		}

		if call != nil {
			err = s.call(fc, call)
			if err != nil {
				return res, s.fail(fc, err)
			}

			continue
		}

		if !fc.done {
			continue
		}

		err = s.ret(fc)
		if err != nil {
			return res, s.fail(fc, err)
		}
	}

	return s.entry.ret, nil
}

// Entry is the activation of main of the last run.
func (s *Simulator) Entry() *FunctionContext { return s.entry }

// Memory is the simulated memory shared by all activations.
func (s *Simulator) Memory() *Memory { return s.mem }

func (s *Simulator) call(caller *FunctionContext, c *ir.Call) (err error) {
	f, ok := s.m.Funcs[c.Name]
	if !ok {
		return errors.Wrap(ErrNoFunction, "%v", c.Name)
	}

	args, err := caller.values(c.Args)
	if err != nil {
		return errors.Wrap(err, "CALL %v", c.Name)
	}

	fc, err := newFrame(s, f, args)
	if err != nil {
		return errors.Wrap(err, "CALL %v", c.Name)
	}

	if s.Trace {
		b := append([]byte(c.Name), '(')
		b = s.appendList(b, args)
		b = append(b, ')')

		err = s.out.WriteLine(string(b))
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	tlog.V("sim_call").Printw("call", "func", c.Name, "depth", len(s.stack), "args", args)

	s.push(fc)

	return nil
}

// ret pops a terminated activation and resumes its caller after the call site.
func (s *Simulator) ret(fc *FunctionContext) (err error) {
	if s.Trace {
		b := append([]byte("return("), fc.ret.AppendText(nil)...)
		b = append(b, ')')

		err = s.out.WriteLine(string(b))
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	_, err = s.pop()
	if err != nil {
		return err
	}

	tlog.V("sim_call").Printw("return", "func", fc.Func.Name, "depth", len(s.stack), "value", fc.ret)

	if len(s.stack) == 0 {
		return nil
	}

	caller := s.stack[len(s.stack)-1]

	if !tp.IsVoid(fc.Func.Ret) {
		k := ir.TempKey{Block: caller.Block, Index: caller.Index}
		caller.temps[k] = fc.ret
	}

	caller.Index++

	return nil
}

func (s *Simulator) push(fc *FunctionContext) {
	s.stack = append(s.stack, fc)
}

func (s *Simulator) pop() (*FunctionContext, error) {
	if len(s.stack) == 0 {
		return nil, ErrStackEmpty
	}

	fc := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]

	return fc, nil
}

func (s *Simulator) tick() error {
	s.steps++

	if s.MaxSteps > 0 && s.steps > s.MaxSteps {
		return errors.Wrap(ErrStepLimit, "%d", s.MaxSteps)
	}

	return nil
}

// fail discards the call stack and reports where fc stopped.
func (s *Simulator) fail(fc *FunctionContext, err error) error {
	s.stack = s.stack[:0]

	return &RuntimeError{
		Func:  fc.Func.Name,
		Block: fc.Block,
		Index: fc.Index,
		Err:   err,
	}
}

func (e *RuntimeError) Error() string {
	return "func " + e.Func + ": b" + strconv.Itoa(e.Block) + ":" + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *RuntimeError) Unwrap() error { return e.Err }
