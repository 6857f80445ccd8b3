package ir

import (
	"sort"

	"github.com/slowlang/semic/compiler/tp"
)

type (
	JumpKind int

	// Jump terminates a block.
	Jump struct {
		Kind JumpKind

		Target int // Direct

		Cond        Value // Conditional
		True, False int

		Value    Value // Return
		HasValue bool
	}

	Block struct {
		ID   int
		Code []Instr
		Term Jump
	}

	Func struct {
		Name string
		Ret  tp.Type

		Params []Value
		Locals []Value

		Blocks map[int]*Block

		// Types maps identifier names and temp keys to their types.
		Types map[string]tp.Type
	}

	Module struct {
		Funcs map[string]*Func
	}
)

const (
	Unterminated JumpKind = iota
	Direct
	Conditional
	Return
)

func Goto(bid int) Jump {
	return Jump{Kind: Direct, Target: bid}
}

func Branch(cond Value, t, f int) Jump {
	return Jump{Kind: Conditional, Cond: cond, True: t, False: f}
}

func Ret(v Value) Jump {
	return Jump{Kind: Return, Value: v, HasValue: true}
}

func RetVoid() Jump {
	return Jump{Kind: Return}
}

// Succs lists the blocks control may transfer to.
func (j Jump) Succs() []int {
	switch j.Kind {
	case Direct:
		return []int{j.Target}
	case Conditional:
		return []int{j.True, j.False}
	}

	return nil
}

func (k JumpKind) String() string {
	switch k {
	case Unterminated:
		return "unterminated"
	case Direct:
		return "jump"
	case Conditional:
		return "cond"
	case Return:
		return "ret"
	default:
		return "jumpkind?"
	}
}

func NewModule() *Module {
	return &Module{
		Funcs: make(map[string]*Func),
	}
}

func NewFunc(name string, ret tp.Type) *Func {
	if ret == nil {
		ret = tp.Void{}
	}

	return &Func{
		Name:   name,
		Ret:    ret,
		Blocks: map[int]*Block{0: {ID: 0}},
		Types:  make(map[string]tp.Type),
	}
}

// Names returns function names in a stable order.
func (m *Module) Names() []string {
	l := make([]string, 0, len(m.Funcs))

	for name := range m.Funcs {
		l = append(l, name)
	}

	sort.Strings(l)

	return l
}

// BlockIDs returns block ids in ascending order.
func (f *Func) BlockIDs() []int {
	l := make([]int, 0, len(f.Blocks))

	for id := range f.Blocks {
		l = append(l, id)
	}

	sort.Ints(l)

	return l
}

// Instr returns the instruction at k or nil.
func (f *Func) Instr(k TempKey) Instr {
	b := f.Blocks[k.Block]
	if b == nil || k.Index < 0 || k.Index >= len(b.Code) {
		return nil
	}

	return b.Code[k.Index]
}
