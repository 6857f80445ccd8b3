package front

import (
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/tp"
)

// Builder appends instructions and blocks to the function being built.
// The current function and block are its only mutable state.
type Builder struct {
	*ir.Module

	fn  *ir.Func
	cur *ir.Block
}

func NewBuilder(m *ir.Module) *Builder {
	if m == nil {
		m = ir.NewModule()
	}

	return &Builder{Module: m}
}

// StartFunction creates a function with an empty entry block 0 and makes it current.
func (b *Builder) StartFunction(name string, ret tp.Type) *ir.Func {
	f := ir.NewFunc(name, ret)

	b.Funcs[name] = f
	b.fn = f
	b.cur = f.Blocks[0]

	return f
}

func (b *Builder) Func() *ir.Func { return b.fn }

// Current is the id of the block instructions are appended to.
func (b *Builder) Current() int { return b.cur.ID }

// Append adds x to the current block and returns its result as a temporary.
func (b *Builder) Append(x ir.Instr) ir.Value {
	k := ir.TempKey{
		Block: b.cur.ID,
		Index: len(b.cur.Code),
	}

	b.cur.Code = append(b.cur.Code, x)

	t := x.ResultType()
	b.fn.Types[k.String()] = t

	return ir.TempValue(k, t)
}

// NewBlock allocates the next block id and makes the block current.
// Setting the terminator of the previous block is up to the caller.
func (b *Builder) NewBlock() int {
	id := len(b.fn.Blocks)

	b.cur = &ir.Block{ID: id}
	b.fn.Blocks[id] = b.cur

	tlog.V("new_block").Printw("new block", "func", b.fn.Name, "bid", id, "from", loc.Caller(1))

	return id
}

// SetTerminator sets the terminator of the current block.
func (b *Builder) SetTerminator(j ir.Jump) {
	b.cur.Term = j
}

// Terminate sets the terminator of block bid unless it already has one.
func (b *Builder) Terminate(bid int, j ir.Jump) {
	blk := b.fn.Blocks[bid]

	if blk.Term.Kind != ir.Unterminated {
		return
	}

	blk.Term = j
}

func (b *Builder) AddParam(name string, t tp.Type) ir.Value {
	v := ir.IdentValue(name, t)

	b.fn.Params = append(b.fn.Params, v)
	b.RecordType(name, t)

	return v
}

func (b *Builder) AddLocal(name string, t tp.Type) ir.Value {
	v := ir.IdentValue(name, t)

	b.fn.Locals = append(b.fn.Locals, v)
	b.RecordType(name, t)

	return v
}

func (b *Builder) RecordType(name string, t tp.Type) {
	b.fn.Types[name] = t
}

// Declared reports whether name is a parameter or a local of the current function.
func (b *Builder) Declared(name string) bool {
	if !isIdent(name) {
		return false
	}

	_, ok := b.fn.Types[name]

	return ok
}

// Lookup resolves an identifier of the current function.
func (b *Builder) Lookup(name string) (ir.Value, error) {
	if !b.Declared(name) {
		return ir.Value{}, &StaticError{Kind: UnresolvedName, Func: b.fn.Name, Name: name}
	}

	return ir.IdentValue(name, b.fn.Types[name]), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i != 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}

	return true
}
