package ast

type (
	// Node is any of the Expr or Stmt types below.
	Node interface {
		Pos() Base
	}

	Expr interface {
		Node
		expr()
	}

	Stmt interface {
		Node
		stmt()
	}

	Base struct {
		Line int
	}

	File struct {
		Funcs []*Func
	}

	Param struct {
		Base `tlog:",embed"`

		Name string
		Type string
	}

	Func struct {
		Base `tlog:",embed"`

		Name   string
		Type   string
		Params []Param
		Body   []Stmt
	}

	// Exprs

	Ident struct {
		Base `tlog:",embed"`

		Name string
	}

	IntLit struct {
		Base `tlog:",embed"`

		Value uint64
	}

	FloatLit struct {
		Base `tlog:",embed"`

		Value float64
	}

	StrLit struct {
		Base `tlog:",embed"`

		Value string
	}

	Binary struct {
		Base `tlog:",embed"`

		Op    string
		Left  Expr
		Right Expr
	}

	Unary struct {
		Base `tlog:",embed"`

		Op string
		X  Expr
	}

	Assign struct {
		Base `tlog:",embed"`

		Lhs Expr
		Rhs Expr
	}

	Call struct {
		Base `tlog:",embed"`

		Name string
		Args []Expr
	}

	Index struct {
		Base `tlog:",embed"`

		Array Expr
		Index Expr
	}

	Deref struct {
		Base `tlog:",embed"`

		X Expr
	}

	Cast struct {
		Base `tlog:",embed"`

		Type string
		X    Expr
	}

	// Stmts

	ExprStmt struct {
		Base `tlog:",embed"`

		X Expr
	}

	Decl struct {
		Base `tlog:",embed"`

		Name string
		Type string
		Init Expr
	}

	If struct {
		Base `tlog:",embed"`

		Cond Expr
		Then []Stmt
		Else []Stmt
	}

	For struct {
		Base `tlog:",embed"`

		Init []Stmt
		Cond Expr
		Body []Stmt
		Incr []Stmt
	}

	Return struct {
		Base `tlog:",embed"`

		Value Expr
	}

	Block struct {
		Base `tlog:",embed"`

		Stmts []Stmt
	}
)

func (b Base) Pos() Base { return b }

func (*Ident) expr()    {}
func (*IntLit) expr()   {}
func (*FloatLit) expr() {}
func (*StrLit) expr()   {}
func (*Binary) expr()   {}
func (*Unary) expr()    {}
func (*Assign) expr()   {}
func (*Call) expr()     {}
func (*Index) expr()    {}
func (*Deref) expr()    {}
func (*Cast) expr()     {}

func (*ExprStmt) stmt() {}
func (*Decl) stmt()     {}
func (*If) stmt()       {}
func (*For) stmt()      {}
func (*Return) stmt()   {}
func (*Block) stmt()    {}
