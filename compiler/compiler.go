package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/semic/compiler/ast"
	"github.com/slowlang/semic/compiler/front"
	"github.com/slowlang/semic/compiler/ir"
)

func CompileFile(ctx context.Context, name string) (m *ir.Module, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text)
}

// Compile decodes an AST document and lowers it to IR.
func Compile(ctx context.Context, name string, text []byte) (m *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name)
	defer tr.Finish("err", &err)

	f, err := ast.Decode(ctx, text)
	if err != nil {
		return nil, errors.Wrap(err, "decode %v", name)
	}

	st := front.New()

	st.Add(f)

	m, err = st.Compile(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	tr.Printw("compiled", "funcs", len(m.Funcs))

	return m, nil
}
