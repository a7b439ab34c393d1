package query

import "github.com/tissdb/tissdb/internal/document"

// Statement is the top-level AST variant: SelectStatement | InsertStatement |
// UpdateStatement | DeleteStatement (spec §4.11).
type Statement interface{ isStatement() }

// Expr is any scalar or boolean expression node.
type Expr interface{ isExpr() }

// Identifier references a field name, optionally qualified ("t.field" from a
// joined table) — the qualifier is kept only for readability in error
// messages; resolution against a combined row is unqualified-name based.
type Identifier struct {
	Qualifier string
	Name      string
}

func (Identifier) isExpr() {}

// Literal is a constant value already resolved to a document.Value.
type Literal struct{ Value document.Value }

func (Literal) isExpr() {}

// ParamPlaceholder is a '?' bound positionally from the caller's parameter
// vector (spec §4.12: "substitutes placeholders in literal positions").
type ParamPlaceholder struct{ Index int }

func (ParamPlaceholder) isExpr() {}

// BinaryOp enumerates comparison and arithmetic operators.
type BinaryOp int

const (
	OpEq BinaryOp = iota
	OpNotEq
	OpLt
	OpGt
	OpLtEq
	OpGtEq
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpLike
)

// BinaryExpr is a comparison or arithmetic expression.
type BinaryExpr struct {
	Left  Expr
	Op    BinaryOp
	Right Expr
}

func (BinaryExpr) isExpr() {}

// LogicalOp is AND/OR.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

// LogicalExpr is a short-circuiting AND/OR.
type LogicalExpr struct {
	Left  Expr
	Op    LogicalOp
	Right Expr
}

func (LogicalExpr) isExpr() {}

// NotExpr negates its operand.
type NotExpr struct{ Operand Expr }

func (NotExpr) isExpr() {}

// AggregateKind enumerates the supported aggregate functions (spec §4.12).
type AggregateKind int

const (
	AggSum AggregateKind = iota
	AggAvg
	AggCount
	AggMin
	AggMax
	AggStddev
)

// AggregateCall is an aggregate function applied to a field, or to "*" for
// COUNT(*).
type AggregateCall struct {
	Kind  AggregateKind
	Field string // "" / "*" means COUNT(*)
	Star  bool
}

func (AggregateCall) isExpr() {}

// SelectColumn is one projected output column: either a plain expression or
// an aggregate call, with an optional alias.
type SelectColumn struct {
	Expr  Expr
	Alias string
	Star  bool // SELECT *
}

// JoinKind enumerates join types (spec §4.12).
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

// JoinClause is one joined source.
type JoinClause struct {
	Kind       JoinKind
	Collection string
	Alias      string
	On         Expr // nil for CROSS
}

// OrderTerm is one ORDER BY column.
type OrderTerm struct {
	Expr Expr
	Desc bool
}

// UnionClause combines this SELECT with another (spec §4.12: UNION/UNION ALL).
type UnionClause struct {
	Right *SelectStatement
	All   bool
}

// SelectStatement is a full SELECT (spec §4.11/§4.12).
type SelectStatement struct {
	Distinct   bool
	Columns    []SelectColumn
	Collection string
	Alias      string
	Joins      []JoinClause
	Where      Expr
	GroupBy    []string
	Having     Expr
	OrderBy    []OrderTerm
	Limit      *int
	Union      *UnionClause
}

func (*SelectStatement) isStatement() {}

// InsertStatement is INSERT INTO collection (cols) VALUES (exprs) (spec §4.12).
type InsertStatement struct {
	Collection string
	Columns    []string
	Values     []Expr
}

func (*InsertStatement) isStatement() {}

// SetClause is one SET field = expr in an UPDATE.
type SetClause struct {
	Field string
	Value Expr
}

// UpdateStatement is UPDATE collection SET ... WHERE ... (spec §4.12).
type UpdateStatement struct {
	Collection string
	Sets       []SetClause
	Where      Expr
}

func (*UpdateStatement) isStatement() {}

// DeleteStatement is DELETE FROM collection WHERE ... (spec §4.12).
type DeleteStatement struct {
	Collection string
	Where      Expr
}

func (*DeleteStatement) isStatement() {}
