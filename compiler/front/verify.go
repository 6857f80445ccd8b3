package front

import (
	"fmt"

	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/set"
)

// Reachable returns the set of blocks reachable from the entry block.
// Unterminated blocks have no successors.
// A branch on an integer literal only follows the taken edge.
func Reachable(f *ir.Func) set.Bitmap {
	vis := set.Blocks(len(f.Blocks))

	q := heap.Heap[int]{Less: idLess}
	q.Push(0)

	for q.Len() != 0 {
		id := q.Pop()

		if vis.Has(id) {
			continue
		}

		b, ok := f.Blocks[id]
		if !ok {
			continue
		}

		vis.Add(id)

		for _, s := range taken(b.Term) {
			if !vis.Has(s) {
				q.Push(s)
			}
		}
	}

	tlog.V("reachable").Printw("reachable blocks", "func", f.Name, "blocks", vis)

	return vis
}

// Verify checks the structure of a finished function:
// every block is terminated, jumps target existing blocks,
// and temporaries refer to instructions defined in the function.
func Verify(f *ir.Func) error {
	bad := func(f0 string, args ...any) error {
		return &StaticError{Kind: InvalidControlFlow, Func: f.Name, Msg: fmt.Sprintf(f0, args...)}
	}

	if _, ok := f.Blocks[0]; !ok {
		return bad("no entry block")
	}

	for _, id := range f.BlockIDs() {
		b := f.Blocks[id]

		if b.ID != id {
			return bad("block b%d registered as b%d", b.ID, id)
		}

		switch b.Term.Kind {
		case ir.Unterminated:
			return bad("block b%d is not terminated", id)
		case ir.Conditional:
			if err := checkOperand(f, b.Term.Cond); err != nil {
				return bad("b%d: cond: %v", id, err)
			}
		case ir.Return:
			if b.Term.HasValue {
				if err := checkOperand(f, b.Term.Value); err != nil {
					return bad("b%d: ret: %v", id, err)
				}
			}
		}

		for _, s := range b.Term.Succs() {
			if _, ok := f.Blocks[s]; !ok {
				return bad("b%d jumps to missing block b%d", id, s)
			}
		}

		for i, x := range b.Code {
			for _, v := range x.Operands() {
				if err := checkOperand(f, v); err != nil {
					return bad("%d:%d: %v", id, i, err)
				}
			}
		}
	}

	return nil
}

func checkOperand(f *ir.Func, v ir.Value) error {
	if v.Type == nil {
		return errors.New("untyped operand %v", v.Operand())
	}

	switch v.Kind {
	case ir.Ident:
		if _, ok := f.Types[v.Name]; !ok {
			return errors.New("undeclared %v", v.Name)
		}
	case ir.Temp:
		if f.Instr(v.Temp) == nil {
			return errors.New("undefined temporary %v", v.Temp)
		}
	}

	return nil
}

func taken(j ir.Jump) []int {
	if j.Kind != ir.Conditional || j.Cond.Kind != ir.LitInt {
		return j.Succs()
	}

	if j.Cond.Int != 0 {
		return []int{j.True}
	}

	return []int{j.False}
}

func idLess(d []int, i, j int) bool {
	return d[i] < d[j]
}
