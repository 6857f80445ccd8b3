package front

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/semic/compiler/ast"
	"github.com/slowlang/semic/compiler/format"
	"github.com/slowlang/semic/compiler/ir"
	"github.com/slowlang/semic/compiler/tp"
)

type (
	// Front lowers a parsed file into an IR module.
	Front struct {
		files []*ast.File
	}

	signature struct {
		ret    tp.Type
		params []tp.Type
	}

	funContext struct {
		*Builder

		sigs map[string]signature
	}
)

var binaryOps = map[string]ir.Op{
	"+":  ir.Add,
	"-":  ir.Sub,
	"*":  ir.Mul,
	"/":  ir.Div,
	"%":  ir.Mod,
	"&&": ir.And,
	"||": ir.Or,
	"<":  ir.Less,
	">":  ir.Greater,
	"<=": ir.LessEq,
	">=": ir.GreaterEq,
	"==": ir.Equal,
	"!=": ir.NotEqual,
}

var unaryOps = map[string]ir.Op{
	"-":  ir.Neg,
	"!":  ir.Not,
	"++": ir.Inc,
	"--": ir.Dec,
}

func New() *Front {
	return &Front{}
}

// Add queues a file for the next Compile.
func (c *Front) Add(f *ast.File) {
	c.files = append(c.files, f)
}

// Compile lowers all added files into a single module.
// Any StaticError aborts the whole module.
func (c *Front) Compile(ctx context.Context) (_ *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: lower module", "files", len(c.files))
	defer tr.Finish("err", &err)

	s := &funContext{
		Builder: NewBuilder(nil),
		sigs:    make(map[string]signature),
	}

	for _, f := range c.files {
		for _, fn := range f.Funcs {
			err = c.addSignature(s, fn)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, f := range c.files {
		for _, fn := range f.Funcs {
			err = c.compileFunc(ctx, s, fn)
			if err != nil {
				return nil, err
			}
		}
	}

	return s.Module, nil
}

func (c *Front) addSignature(s *funContext, fn *ast.Func) error {
	if fn.Name == ir.PrintfName {
		return &StaticError{Kind: Redeclared, Func: fn.Name, Line: fn.Line, Msg: "reserved builtin"}
	}

	if !isIdent(fn.Name) {
		return &StaticError{Kind: InvalidOperand, Func: fn.Name, Line: fn.Line, Msg: "bad function name"}
	}

	if _, ok := s.sigs[fn.Name]; ok {
		return &StaticError{Kind: Redeclared, Func: fn.Name, Line: fn.Line}
	}

	ret, err := parseType(fn.Name, fn.Line, fn.Type)
	if err != nil {
		return err
	}

	sig := signature{ret: ret}

	for _, p := range fn.Params {
		t, err := parseType(fn.Name, p.Line, p.Type)
		if err != nil {
			return err
		}

		if tp.IsVoid(t) {
			return &StaticError{Kind: InvalidOperand, Func: fn.Name, Name: p.Name, Line: p.Line, Msg: "void parameter"}
		}

		sig.params = append(sig.params, t)
	}

	s.sigs[fn.Name] = sig

	return nil
}

func (c *Front) compileFunc(ctx context.Context, s *funContext, fn *ast.Func) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "front: lower func", "name", fn.Name, "line", fn.Line)
	defer tr.Finish("err", &err)

	sig := s.sigs[fn.Name]

	f := s.StartFunction(fn.Name, sig.ret)

	for i, p := range fn.Params {
		if s.Declared(p.Name) {
			return &StaticError{Kind: Redeclared, Func: fn.Name, Name: p.Name, Line: p.Line}
		}

		if !isIdent(p.Name) {
			return &StaticError{Kind: InvalidOperand, Func: fn.Name, Name: p.Name, Line: p.Line, Msg: "bad parameter name"}
		}

		s.AddParam(p.Name, sig.params[i])
	}

	err = c.compileBlock(ctx, s, fn.Body)
	if err != nil {
		return err
	}

	if s.cur.Term.Kind == ir.Unterminated {
		reach := Reachable(f)

		if reach.Has(s.Current()) && !tp.IsVoid(f.Ret) {
			return &StaticError{Kind: MissingReturn, Func: fn.Name, Line: fn.Line, Msg: "control reaches end of non-void function"}
		}

		s.SetTerminator(ir.RetVoid())
	}

	if tr.If("dump_func") {
		tr.Printw("lowered", "func", fn.Name, "ir", string(format.Func(nil, f)))
	}

	err = Verify(f)
	if err != nil {
		return err
	}

	return nil
}

func (c *Front) compileBlock(ctx context.Context, s *funContext, l []ast.Stmt) (err error) {
	for _, x := range l {
		err = c.compileStmt(ctx, s, x)
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Front) compileStmt(ctx context.Context, s *funContext, x ast.Stmt) (err error) {
	switch x := x.(type) {
	case *ast.ExprStmt:
		_, err = c.compileExpr(ctx, s, x.X)
		if err != nil {
			return errors.Wrap(err, "expr")
		}
	case *ast.Decl:
		err = c.compileDecl(ctx, s, x)
		if err != nil {
			return errors.Wrap(err, "decl %v", x.Name)
		}
	case *ast.If:
		err = c.compileIf(ctx, s, x)
		if err != nil {
			return errors.Wrap(err, "if")
		}
	case *ast.For:
		err = c.compileFor(ctx, s, x)
		if err != nil {
			return errors.Wrap(err, "for")
		}
	case *ast.Return:
		err = c.compileReturn(ctx, s, x)
		if err != nil {
			return errors.Wrap(err, "return")
		}
	case *ast.Block:
		err = c.compileBlock(ctx, s, x.Stmts)
		if err != nil {
			return err
		}
	default:
		return s.errorf(Unsupported, x, "", "statement %T", x)
	}

	return nil
}

func (c *Front) compileDecl(ctx context.Context, s *funContext, x *ast.Decl) (err error) {
	t, err := parseType(s.fn.Name, x.Line, x.Type)
	if err != nil {
		return err
	}

	if tp.IsVoid(t) {
		return s.errorf(InvalidOperand, x, x.Name, "void variable")
	}

	if !isIdent(x.Name) {
		return s.errorf(InvalidOperand, x, x.Name, "bad variable name")
	}

	switch {
	case !s.Declared(x.Name):
		s.AddLocal(x.Name, t)
	case s.isLocal(x.Name) && s.fn.Types[x.Name] == t:
		// same slot, functions have a flat namespace
	default:
		return s.errorf(Redeclared, x, x.Name, "previous type %v", s.fn.Types[x.Name])
	}

	if x.Init == nil {
		return nil
	}

	if _, ok := t.(tp.Array); ok {
		return s.errorf(Unsupported, x, x.Name, "initializer for %v", t)
	}

	v, err := c.compileExpr(ctx, s, x.Init)
	if err != nil {
		return errors.Wrap(err, "init")
	}

	v, err = s.convert(x, v, t)
	if err != nil {
		return err
	}

	s.Append(ir.Binary{Op: ir.Assign, L: ir.IdentValue(x.Name, t), R: v})

	return nil
}

func (c *Front) compileIf(ctx context.Context, s *funContext, x *ast.If) (err error) {
	cond, err := c.compileCond(ctx, s, x.Cond)
	if err != nil {
		return err
	}

	pre := s.Current()

	then := s.NewBlock()

	err = c.compileBlock(ctx, s, x.Then)
	if err != nil {
		return errors.Wrap(err, "then")
	}

	thenTail := s.Current()

	els, elseTail := -1, -1

	if x.Else != nil {
		els = s.NewBlock()

		err = c.compileBlock(ctx, s, x.Else)
		if err != nil {
			return errors.Wrap(err, "else")
		}

		elseTail = s.Current()
	}

	merge := s.NewBlock()

	f := merge
	if els >= 0 {
		f = els
	}

	s.Terminate(pre, ir.Branch(cond, then, f))
	s.Terminate(thenTail, ir.Goto(merge))

	if els >= 0 {
		s.Terminate(elseTail, ir.Goto(merge))
	}

	tlog.SpanFromContext(ctx).V("lower_if").Printw("if", "pre", pre, "then", then, "else", els, "merge", merge, "line", x.Line)

	return nil
}

func (c *Front) compileFor(ctx context.Context, s *funContext, x *ast.For) (err error) {
	pre := s.Current()

	start := s.NewBlock()
	s.Terminate(pre, ir.Goto(start))

	err = c.compileBlock(ctx, s, x.Init)
	if err != nil {
		return errors.Wrap(err, "init")
	}

	initTail := s.Current()

	cond := s.NewBlock()
	s.Terminate(initTail, ir.Goto(cond))

	cv := ir.Value{Kind: ir.LitInt, Type: tp.I32, Int: 1}

	if x.Cond != nil {
		cv, err = c.compileCond(ctx, s, x.Cond)
		if err != nil {
			return err
		}
	}

	condTail := s.Current()

	body := s.NewBlock()

	err = c.compileBlock(ctx, s, x.Body)
	if err != nil {
		return errors.Wrap(err, "body")
	}

	bodyTail := s.Current()

	incr := -1

	if len(x.Incr) != 0 {
		incr = s.NewBlock()
		s.Terminate(bodyTail, ir.Goto(incr))

		err = c.compileBlock(ctx, s, x.Incr)
		if err != nil {
			return errors.Wrap(err, "incr")
		}

		s.Terminate(s.Current(), ir.Goto(cond))
	} else {
		s.Terminate(bodyTail, ir.Goto(cond))
	}

	after := s.NewBlock()

	s.Terminate(condTail, ir.Branch(cv, body, after))

	tlog.SpanFromContext(ctx).V("lower_for").Printw("for", "init", start, "cond", cond, "body", body, "incr", incr, "after", after, "line", x.Line)

	return nil
}

func (c *Front) compileReturn(ctx context.Context, s *funContext, x *ast.Return) (err error) {
	ret := s.fn.Ret

	switch {
	case x.Value == nil && !tp.IsVoid(ret):
		return s.errorf(MissingReturn, x, "", "return without value in function returning %v", ret)
	case x.Value == nil:
		s.SetTerminator(ir.RetVoid())
	case tp.IsVoid(ret):
		return s.errorf(InvalidOperand, x, "", "return value in void function")
	default:
		v, err := c.compileExpr(ctx, s, x.Value)
		if err != nil {
			return err
		}

		v, err = s.convert(x, v, ret)
		if err != nil {
			return err
		}

		s.SetTerminator(ir.Ret(v))
	}

	s.NewBlock()

	return nil
}

func (c *Front) compileCond(ctx context.Context, s *funContext, e ast.Expr) (v ir.Value, err error) {
	v, err = c.compileExpr(ctx, s, e)
	if err != nil {
		return v, errors.Wrap(err, "cond")
	}

	if !tp.IsNumeric(v.Type) && !tp.IsAddress(v.Type) {
		return v, s.errorf(InvalidOperand, e, v.Operand(), "condition of type %v", v.Type)
	}

	return v, nil
}

func (c *Front) compileExpr(ctx context.Context, s *funContext, e ast.Expr) (v ir.Value, err error) {
	switch e := e.(type) {
	case *ast.Ident:
		v, err = s.Lookup(e.Name)
		if err != nil {
			return v, atLine(err, e.Line)
		}

		return v, nil
	case *ast.IntLit:
		return ir.IntValue(e.Value), nil
	case *ast.FloatLit:
		return ir.FloatValue(e.Value), nil
	case *ast.StrLit:
		return ir.StringValue(e.Value), nil
	case *ast.Binary:
		op, ok := binaryOps[e.Op]
		if !ok {
			return v, s.errorf(Unsupported, e, e.Op, "binary operator")
		}

		l, err := c.compileExpr(ctx, s, e.Left)
		if err != nil {
			return v, err
		}

		r, err := c.compileExpr(ctx, s, e.Right)
		if err != nil {
			return v, err
		}

		if tp.IsVoid(l.Type) || tp.IsVoid(r.Type) {
			return v, s.errorf(InvalidOperand, e, e.Op, "void operand")
		}

		l, r = literalAs(l, r.Type), literalAs(r, l.Type)

		return s.Append(ir.Binary{Op: op, L: l, R: r}), nil
	case *ast.Unary:
		op, ok := unaryOps[e.Op]
		if !ok {
			return v, s.errorf(Unsupported, e, e.Op, "unary operator")
		}

		x, err := c.compileExpr(ctx, s, e.X)
		if err != nil {
			return v, err
		}

		if (op == ir.Inc || op == ir.Dec) && x.Kind != ir.Ident {
			return v, s.errorf(InvalidOperand, e, e.Op, "operand is not a variable")
		}

		if !tp.IsNumeric(x.Type) {
			return v, s.errorf(InvalidOperand, e, e.Op, "operand of type %v", x.Type)
		}

		return s.Append(ir.Unary{Op: op, X: x}), nil
	case *ast.Assign:
		return c.compileAssign(ctx, s, e)
	case *ast.Call:
		return c.compileCall(ctx, s, e)
	case *ast.Index:
		p, err := c.compilePlace(ctx, s, e)
		if err != nil {
			return v, err
		}

		// a nested array is its own place
		if _, ok := p.Type.(tp.Array); ok {
			return p, nil
		}

		return s.Append(ir.Load{Ptr: p, T: p.Type}), nil
	case *ast.Deref:
		p, err := c.compileExpr(ctx, s, e.X)
		if err != nil {
			return v, err
		}

		pt, ok := p.Type.(tp.Ptr)
		if !ok {
			return v, s.errorf(InvalidOperand, e, p.Operand(), "dereference of %v", p.Type)
		}

		if _, ok := pt.X.(tp.Array); ok {
			return v, s.errorf(Unsupported, e, p.Operand(), "dereference to %v", pt.X)
		}

		return s.Append(ir.Load{Ptr: p, T: pt.X}), nil
	case *ast.Cast:
		t, err := parseType(s.fn.Name, e.Line, e.Type)
		if err != nil {
			return v, err
		}

		x, err := c.compileExpr(ctx, s, e.X)
		if err != nil {
			return v, err
		}

		if tp.IsVoid(t) || tp.IsVoid(x.Type) {
			return v, s.errorf(InvalidOperand, e, x.Operand(), "cast %v to %v", x.Type, t)
		}

		return s.Append(ir.Cast{X: x, To: t}), nil
	default:
		return v, s.errorf(Unsupported, e, "", "expression %T", e)
	}
}

func (c *Front) compileAssign(ctx context.Context, s *funContext, e *ast.Assign) (v ir.Value, err error) {
	switch lhs := e.Lhs.(type) {
	case *ast.Ident:
		l, err := s.Lookup(lhs.Name)
		if err != nil {
			return v, atLine(err, lhs.Line)
		}

		if _, ok := l.Type.(tp.Array); ok {
			return v, s.errorf(InvalidOperand, e, lhs.Name, "assignment to array")
		}

		r, err := c.compileExpr(ctx, s, e.Rhs)
		if err != nil {
			return v, errors.Wrap(err, "rhs")
		}

		r, err = s.convert(e, r, l.Type)
		if err != nil {
			return v, err
		}

		return s.Append(ir.Binary{Op: ir.Assign, L: l, R: r}), nil
	case *ast.Index, *ast.Deref:
	default:
		return v, s.errorf(InvalidOperand, e, "", "assignment to %T", lhs)
	}

	var p ir.Value
	var t tp.Type

	if d, ok := e.Lhs.(*ast.Deref); ok {
		p, err = c.compileExpr(ctx, s, d.X)
		if err != nil {
			return v, errors.Wrap(err, "lhs")
		}

		pt, ok := p.Type.(tp.Ptr)
		if !ok {
			return v, s.errorf(InvalidOperand, e, p.Operand(), "store through %v", p.Type)
		}

		t = pt.X
	} else {
		p, err = c.compilePlace(ctx, s, e.Lhs.(*ast.Index))
		if err != nil {
			return v, errors.Wrap(err, "lhs")
		}

		t = p.Type
	}

	if _, ok := t.(tp.Array); ok {
		return v, s.errorf(InvalidOperand, e, p.Operand(), "store of %v", t)
	}

	r, err := c.compileExpr(ctx, s, e.Rhs)
	if err != nil {
		return v, errors.Wrap(err, "rhs")
	}

	r, err = s.convert(e, r, t)
	if err != nil {
		return v, err
	}

	s.Append(ir.Store{Ptr: p, Val: r})

	return r, nil
}

// compilePlace lowers a[i] to the element address without loading it.
func (c *Front) compilePlace(ctx context.Context, s *funContext, e *ast.Index) (v ir.Value, err error) {
	a, err := c.compileExpr(ctx, s, e.Array)
	if err != nil {
		return v, err
	}

	if !tp.IsAddress(a.Type) {
		return v, s.errorf(InvalidOperand, e, a.Operand(), "index of %v", a.Type)
	}

	i, err := c.compileExpr(ctx, s, e.Index)
	if err != nil {
		return v, errors.Wrap(err, "index")
	}

	if _, ok := i.Type.(tp.Int); !ok {
		return v, s.errorf(InvalidOperand, e, i.Operand(), "index of type %v", i.Type)
	}

	return s.Append(ir.Index{Array: a, Index: i}), nil
}

func (c *Front) compileCall(ctx context.Context, s *funContext, e *ast.Call) (v ir.Value, err error) {
	var sig signature

	if e.Name != ir.PrintfName {
		var ok bool

		sig, ok = s.sigs[e.Name]
		if !ok {
			return v, s.errorf(UnresolvedCallee, e, e.Name, "")
		}

		if len(e.Args) != len(sig.params) {
			return v, s.errorf(ArityMismatch, e, e.Name, "want %d args, got %d", len(sig.params), len(e.Args))
		}
	}

	args := make([]ir.Value, len(e.Args))

	for i, a := range e.Args {
		args[i], err = c.compileExpr(ctx, s, a)
		if err != nil {
			return v, errors.Wrap(err, "arg %d", i)
		}

		if tp.IsVoid(args[i].Type) {
			return v, s.errorf(InvalidOperand, a, e.Name, "void argument %d", i)
		}

		if e.Name == ir.PrintfName {
			continue
		}

		args[i], err = s.convert(a, args[i], sig.params[i])
		if err != nil {
			return v, err
		}
	}

	if e.Name == ir.PrintfName {
		return s.Append(ir.Printf{Args: args}), nil
	}

	return s.Append(ir.Call{Name: e.Name, Ret: sig.ret, Args: args}), nil
}

// convert makes v usable where a value of type t is expected.
// Literals are retyped, other numeric values get a Cast.
func (s *funContext) convert(n ast.Node, v ir.Value, t tp.Type) (ir.Value, error) {
	if v.Type == t {
		return v, nil
	}

	if tp.IsVoid(v.Type) {
		return v, s.errorf(InvalidOperand, n, v.Operand(), "void value used as %v", t)
	}

	if tp.IsAddress(t) && tp.IsAddress(v.Type) && v.Type.Elem() == t.Elem() {
		return v, nil
	}

	if !tp.IsNumeric(v.Type) || !tp.IsNumeric(t) {
		return v, s.errorf(InvalidOperand, n, v.Operand(), "%v used as %v", v.Type, t)
	}

	if v.IsLiteral() {
		if x := literalAs(v, t); x.Type == t {
			return x, nil
		}
	}

	return s.Append(ir.Cast{X: v, To: t}), nil
}

func (s *funContext) isLocal(name string) bool {
	for _, p := range s.fn.Params {
		if p.Name == name {
			return false
		}
	}

	return true
}

func (s *funContext) errorf(kind StaticKind, n ast.Node, name, f string, args ...any) error {
	e := &StaticError{
		Kind: kind,
		Func: s.fn.Name,
		Name: name,
	}

	if n != nil {
		e.Line = n.Pos().Line
	}

	if f != "" {
		e.Msg = fmt.Sprintf(f, args...)
	}

	return e
}

// literalAs retypes a numeric literal to the numeric type t.
// Anything else is returned unchanged.
func literalAs(v ir.Value, t tp.Type) ir.Value {
	switch t.(type) {
	case tp.Int:
		if v.Kind == ir.LitInt {
			v.Type = t
		}
	case tp.Float:
		switch v.Kind {
		case ir.LitInt:
			return ir.Value{Kind: ir.LitFloat, Type: t, Float: float64(v.Int)}
		case ir.LitFloat:
			v.Type = t
		}
	}

	return v
}

func parseType(fn string, line int, name string) (tp.Type, error) {
	if name == "" {
		return tp.Void{}, nil
	}

	t, err := tp.Parse(name)
	if err != nil {
		return nil, &StaticError{Kind: UnknownType, Func: fn, Name: name, Line: line, Msg: err.Error()}
	}

	return t, nil
}

func atLine(err error, line int) error {
	if se, ok := err.(*StaticError); ok && se.Line == 0 {
		se.Line = line
	}

	return err
}
