package ast

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	// SyntaxError is a malformed AST document.
	SyntaxError struct {
		Line int
		Msg  string
	}

	fields struct {
		n    *yaml.Node
		keys []string
		vals map[string]*yaml.Node
	}
)

func DecodeFile(ctx context.Context, name string) (*File, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", name)

	return Decode(ctx, data)
}

// Decode reads a YAML AST document.
//
//	funcs:
//	  - name: main
//	    type: int
//	    body:
//	      - decl: {name: x, type: int, init: 1}
//	      - call: printf
//	        args: [{str: "%"}, x]
//	      - return: 0
func Decode(ctx context.Context, data []byte) (f *File, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "ast: decode", "size", len(data))
	defer tr.Finish("err", &err)

	var doc yaml.Node

	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, errors.Wrap(err, "yaml")
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return &File{}, nil
	}

	root, err := mapping(doc.Content[0], "funcs")
	if err != nil {
		return nil, err
	}

	f = &File{}

	funcs := root.get("funcs")
	if funcs == nil {
		return f, nil
	}

	if funcs.Kind != yaml.SequenceNode {
		return nil, syntaxErr(funcs, "funcs: sequence expected")
	}

	for _, n := range funcs.Content {
		fn, err := decodeFunc(n)
		if err != nil {
			return nil, errors.Wrap(err, "func")
		}

		f.Funcs = append(f.Funcs, fn)
	}

	tr.Printw("decoded", "funcs", len(f.Funcs))

	return f, nil
}

func decodeFunc(n *yaml.Node) (*Func, error) {
	m, err := mapping(n, "name", "type", "params", "body")
	if err != nil {
		return nil, err
	}

	fn := &Func{
		Base: base(n),
		Type: "void",
	}

	fn.Name, err = m.str("name", true)
	if err != nil {
		return nil, err
	}

	if t, err := m.str("type", false); err != nil {
		return nil, errors.Wrap(err, "%v", fn.Name)
	} else if t != "" {
		fn.Type = t
	}

	if ps := m.get("params"); ps != nil {
		if ps.Kind != yaml.SequenceNode {
			return nil, syntaxErr(ps, "params: sequence expected")
		}

		for _, p := range ps.Content {
			pm, err := mapping(p, "name", "type")
			if err != nil {
				return nil, errors.Wrap(err, "%v: param", fn.Name)
			}

			var par Param

			par.Base = base(p)

			par.Name, err = pm.str("name", true)
			if err != nil {
				return nil, errors.Wrap(err, "%v: param", fn.Name)
			}

			par.Type, err = pm.str("type", true)
			if err != nil {
				return nil, errors.Wrap(err, "%v: param %v", fn.Name, par.Name)
			}

			fn.Params = append(fn.Params, par)
		}
	}

	fn.Body, err = decodeStmts(m.get("body"))
	if err != nil {
		return nil, errors.Wrap(err, "%v: body", fn.Name)
	}

	return fn, nil
}

func decodeStmts(n *yaml.Node) (l []Stmt, err error) {
	if n == nil || isNull(n) {
		return nil, nil
	}

	if n.Kind != yaml.SequenceNode {
		s, err := decodeStmt(n)
		if err != nil {
			return nil, err
		}

		return []Stmt{s}, nil
	}

	for _, c := range n.Content {
		s, err := decodeStmt(c)
		if err != nil {
			return nil, err
		}

		l = append(l, s)
	}

	return l, nil
}

func decodeStmt(n *yaml.Node) (Stmt, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) == 0 {
		return nil, syntaxErr(n, "statement expected")
	}

	key := n.Content[0].Value
	val := n.Content[1]

	switch key {
	case "decl", "expr", "if", "for", "while", "return", "block":
		if len(n.Content) != 2 {
			return nil, syntaxErr(n, "%v: single key statement expected", key)
		}
	}

	switch key {
	case "decl":
		m, err := mapping(val, "name", "type", "init")
		if err != nil {
			return nil, errors.Wrap(err, "decl")
		}

		d := &Decl{Base: base(n)}

		d.Name, err = m.str("name", true)
		if err != nil {
			return nil, errors.Wrap(err, "decl")
		}

		d.Type, err = m.str("type", true)
		if err != nil {
			return nil, errors.Wrap(err, "decl %v", d.Name)
		}

		if init := m.get("init"); init != nil {
			d.Init, err = decodeExpr(init)
			if err != nil {
				return nil, errors.Wrap(err, "decl %v: init", d.Name)
			}
		}

		return d, nil
	case "expr":
		x, err := decodeExpr(val)
		if err != nil {
			return nil, errors.Wrap(err, "expr")
		}

		return &ExprStmt{Base: base(n), X: x}, nil
	case "if":
		m, err := mapping(val, "cond", "then", "else")
		if err != nil {
			return nil, errors.Wrap(err, "if")
		}

		s := &If{Base: base(n)}

		s.Cond, err = m.expr("cond", true)
		if err != nil {
			return nil, errors.Wrap(err, "if")
		}

		s.Then, err = decodeStmts(m.get("then"))
		if err != nil {
			return nil, errors.Wrap(err, "if: then")
		}

		s.Else, err = decodeStmts(m.get("else"))
		if err != nil {
			return nil, errors.Wrap(err, "if: else")
		}

		return s, nil
	case "for", "while":
		m, err := mapping(val, "init", "cond", "body", "incr")
		if err != nil {
			return nil, errors.Wrap(err, "%v", key)
		}

		s := &For{Base: base(n)}

		s.Cond, err = m.expr("cond", key == "while")
		if err != nil {
			return nil, errors.Wrap(err, "%v", key)
		}

		s.Body, err = decodeStmts(m.get("body"))
		if err != nil {
			return nil, errors.Wrap(err, "%v: body", key)
		}

		if key == "while" {
			if m.get("init") != nil || m.get("incr") != nil {
				return nil, syntaxErr(val, "while: init and incr are not allowed")
			}

			return s, nil
		}

		s.Init, err = decodeStmts(m.get("init"))
		if err != nil {
			return nil, errors.Wrap(err, "for: init")
		}

		s.Incr, err = decodeStmts(m.get("incr"))
		if err != nil {
			return nil, errors.Wrap(err, "for: incr")
		}

		return s, nil
	case "return":
		s := &Return{Base: base(n)}

		if !isNull(val) {
			x, err := decodeExpr(val)
			if err != nil {
				return nil, errors.Wrap(err, "return")
			}

			s.Value = x
		}

		return s, nil
	case "block":
		l, err := decodeStmts(val)
		if err != nil {
			return nil, errors.Wrap(err, "block")
		}

		return &Block{Base: base(n), Stmts: l}, nil
	}

	// bare expression: {call: f, args: [...]}, {assign: [x, 1]}, ...
	x, err := decodeExpr(n)
	if err != nil {
		return nil, err
	}

	return &ExprStmt{Base: base(n), X: x}, nil
}

func decodeExpr(n *yaml.Node) (Expr, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.MappingNode:
	default:
		return nil, syntaxErr(n, "expression expected")
	}

	m, err := mapping(n, "op", "l", "r", "x", "assign", "call", "args", "index", "deref", "cast", "str")
	if err != nil {
		return nil, err
	}

	switch {
	case m.get("op") != nil:
		op, err := m.str("op", true)
		if err != nil {
			return nil, err
		}

		if m.get("x") != nil {
			x, err := m.expr("x", true)
			if err != nil {
				return nil, errors.Wrap(err, "%v", op)
			}

			return &Unary{Base: base(n), Op: op, X: x}, nil
		}

		l, err := m.expr("l", true)
		if err != nil {
			return nil, errors.Wrap(err, "%v: l", op)
		}

		r, err := m.expr("r", true)
		if err != nil {
			return nil, errors.Wrap(err, "%v: r", op)
		}

		return &Binary{Base: base(n), Op: op, Left: l, Right: r}, nil
	case m.get("assign") != nil:
		l, err := pair(m.get("assign"))
		if err != nil {
			return nil, errors.Wrap(err, "assign")
		}

		return &Assign{Base: base(n), Lhs: l[0], Rhs: l[1]}, nil
	case m.get("call") != nil:
		name, err := m.str("call", true)
		if err != nil {
			return nil, err
		}

		c := &Call{Base: base(n), Name: name}

		if args := m.get("args"); args != nil {
			if args.Kind != yaml.SequenceNode {
				return nil, syntaxErr(args, "call %v: args: sequence expected", name)
			}

			for i, a := range args.Content {
				x, err := decodeExpr(a)
				if err != nil {
					return nil, errors.Wrap(err, "call %v: arg %d", name, i)
				}

				c.Args = append(c.Args, x)
			}
		}

		return c, nil
	case m.get("index") != nil:
		l, err := pair(m.get("index"))
		if err != nil {
			return nil, errors.Wrap(err, "index")
		}

		return &Index{Base: base(n), Array: l[0], Index: l[1]}, nil
	case m.get("deref") != nil:
		x, err := m.expr("deref", true)
		if err != nil {
			return nil, errors.Wrap(err, "deref")
		}

		return &Deref{Base: base(n), X: x}, nil
	case m.get("cast") != nil:
		t, err := m.str("cast", true)
		if err != nil {
			return nil, err
		}

		x, err := m.expr("x", true)
		if err != nil {
			return nil, errors.Wrap(err, "cast")
		}

		return &Cast{Base: base(n), Type: t, X: x}, nil
	case m.get("str") != nil:
		s := m.get("str")
		if s.Kind != yaml.ScalarNode {
			return nil, syntaxErr(s, "str: scalar expected")
		}

		return &StrLit{Base: base(n), Value: s.Value}, nil
	}

	return nil, syntaxErr(n, "unsupported expression")
}

func decodeScalar(n *yaml.Node) (Expr, error) {
	switch n.ShortTag() {
	case "!!int":
		if v, err := strconv.ParseUint(n.Value, 0, 64); err == nil {
			return &IntLit{Base: base(n), Value: v}, nil
		}

		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return nil, syntaxErr(n, "bad integer %q", n.Value)
		}

		return &IntLit{Base: base(n), Value: uint64(v)}, nil
	case "!!float":
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, syntaxErr(n, "bad float %q", n.Value)
		}

		return &FloatLit{Base: base(n), Value: v}, nil
	case "!!str":
		if n.Value == "" {
			return nil, syntaxErr(n, "empty identifier")
		}

		return &Ident{Base: base(n), Name: n.Value}, nil
	}

	return nil, syntaxErr(n, "unexpected %v scalar %q", n.ShortTag(), n.Value)
}

func pair(n *yaml.Node) (l [2]Expr, err error) {
	if n.Kind != yaml.SequenceNode || len(n.Content) != 2 {
		return l, syntaxErr(n, "two element sequence expected")
	}

	for i, c := range n.Content {
		l[i], err = decodeExpr(c)
		if err != nil {
			return l, err
		}
	}

	return l, nil
}

func mapping(n *yaml.Node, allowed ...string) (*fields, error) {
	if n.Kind != yaml.MappingNode {
		return nil, syntaxErr(n, "mapping expected")
	}

	m := &fields{
		n:    n,
		vals: make(map[string]*yaml.Node, len(n.Content)/2),
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i].Value

		if !contains(allowed, k) {
			return nil, syntaxErr(n.Content[i], "unexpected key %q", k)
		}

		if _, ok := m.vals[k]; ok {
			return nil, syntaxErr(n.Content[i], "duplicate key %q", k)
		}

		m.keys = append(m.keys, k)
		m.vals[k] = n.Content[i+1]
	}

	return m, nil
}

func (m *fields) get(k string) *yaml.Node {
	return m.vals[k]
}

func (m *fields) str(k string, required bool) (string, error) {
	v := m.vals[k]
	if v == nil || isNull(v) {
		if required {
			return "", syntaxErr(m.n, "%v: required", k)
		}

		return "", nil
	}

	if v.Kind != yaml.ScalarNode {
		return "", syntaxErr(v, "%v: scalar expected", k)
	}

	return v.Value, nil
}

func (m *fields) expr(k string, required bool) (Expr, error) {
	v := m.vals[k]
	if v == nil || isNull(v) {
		if required {
			return nil, syntaxErr(m.n, "%v: required", k)
		}

		return nil, nil
	}

	return decodeExpr(v)
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func base(n *yaml.Node) Base {
	return Base{Line: n.Line}
}

func contains(l []string, s string) bool {
	for _, x := range l {
		if x == s {
			return true
		}
	}

	return false
}

func syntaxErr(n *yaml.Node, f string, args ...any) error {
	return &SyntaxError{Line: n.Line, Msg: fmt.Sprintf(f, args...)}
}

func (e *SyntaxError) Error() string {
	return "line " + strconv.Itoa(e.Line) + ": " + e.Msg
}
