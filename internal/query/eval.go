package query

import (
	"strconv"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/tisserr"
)

// countParams returns how many positional parameters the expressions need
// (the highest ParamPlaceholder index plus one); checkParamCount fails with
// ParameterCount when params provides fewer (spec §4.12). Walking the whole
// AST up front (rather than lazily at eval time) means a malformed
// parameter reference is caught before any document is touched.
func countParams(stmts ...Expr) int {
	max := 0
	var walk func(e Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case ParamPlaceholder:
			if v.Index+1 > max {
				max = v.Index + 1
			}
		case BinaryExpr:
			walk(v.Left)
			walk(v.Right)
		case LogicalExpr:
			walk(v.Left)
			walk(v.Right)
		case NotExpr:
			walk(v.Operand)
		}
	}
	for _, e := range stmts {
		if e != nil {
			walk(e)
		}
	}
	return max
}

func checkParamCount(params []document.Value, exprs ...Expr) error {
	need := countParams(exprs...)
	if need > len(params) {
		return tisserr.NewParameterCount(need, len(params))
	}
	return nil
}

// evalExpr evaluates expr against row (a merged document for join sources)
// and the bound parameter vector.
func evalExpr(expr Expr, row document.Document, params []document.Value) (document.Value, error) {
	switch e := expr.(type) {
	case Literal:
		return e.Value, nil
	case ParamPlaceholder:
		if e.Index >= len(params) {
			return document.Value{}, tisserr.NewParameterCount(e.Index+1, len(params))
		}
		return params[e.Index], nil
	case Identifier:
		v, ok := row.Get(e.Name)
		if !ok {
			return document.Null(), nil
		}
		return v, nil
	case NotExpr:
		v, err := evalExpr(e.Operand, row, params)
		if err != nil {
			return document.Value{}, err
		}
		return document.NewBool(!truthy(v)), nil
	case LogicalExpr:
		return evalLogical(e, row, params)
	case BinaryExpr:
		return evalBinary(e, row, params)
	case AggregateCall:
		// Aggregates are computed by the aggregation stage, not per-row eval.
		// In HAVING the row is an aggregated output row, so the call resolves
		// to that row's column of the same name (e.g. count_star); where no
		// such column exists it evaluates to null.
		if v, ok := row.Get(aggregateColumnName(e)); ok {
			return v, nil
		}
		return document.Null(), nil
	default:
		return document.Value{}, tisserr.NewQuery("cannot evaluate expression of type %T", expr)
	}
}

func truthy(v document.Value) bool {
	switch v.Kind {
	case document.KindBool:
		return v.Bool
	case document.KindNull:
		return false
	default:
		return true
	}
}

func evalLogical(e LogicalExpr, row document.Document, params []document.Value) (document.Value, error) {
	left, err := evalExpr(e.Left, row, params)
	if err != nil {
		return document.Value{}, err
	}
	if e.Op == OpAnd && !truthy(left) {
		return document.NewBool(false), nil
	}
	if e.Op == OpOr && truthy(left) {
		return document.NewBool(true), nil
	}
	right, err := evalExpr(e.Right, row, params)
	if err != nil {
		return document.Value{}, err
	}
	return document.NewBool(truthy(right)), nil
}

func evalBinary(e BinaryExpr, row document.Document, params []document.Value) (document.Value, error) {
	left, err := evalExpr(e.Left, row, params)
	if err != nil {
		return document.Value{}, err
	}
	right, err := evalExpr(e.Right, row, params)
	if err != nil {
		return document.Value{}, err
	}

	switch e.Op {
	case OpAdd, OpSub, OpMul, OpDiv:
		lf, lok := left.AsFloat64()
		rf, rok := right.AsFloat64()
		if !lok || !rok {
			return document.Value{}, tisserr.NewQuery("arithmetic operands must be numeric")
		}
		switch e.Op {
		case OpAdd:
			return document.NewFloat64(lf + rf), nil
		case OpSub:
			return document.NewFloat64(lf - rf), nil
		case OpMul:
			return document.NewFloat64(lf * rf), nil
		case OpDiv:
			if rf == 0 {
				return document.Value{}, tisserr.NewQuery("division by zero")
			}
			return document.NewFloat64(lf / rf), nil
		}
	case OpLike:
		re, err := likeToRegex(right.Comparable())
		if err != nil {
			return document.Value{}, tisserr.NewQuery("invalid LIKE pattern: %s", err)
		}
		return document.NewBool(re.MatchString(left.Comparable())), nil
	}
	return document.NewBool(compare(left, right, e.Op)), nil
}

// compare implements spec §4.12's predicate evaluation: numeric comparison
// first (coercing strings that parse as a valid double), falling back to
// lexicographic comparison of each value's derived string form.
func compare(left, right document.Value, op BinaryOp) bool {
	lf, lok := numericOf(left)
	rf, rok := numericOf(right)
	if lok && rok {
		return compareOrdered(lf, rf, op)
	}
	ls, rs := left.Comparable(), right.Comparable()
	return compareOrdered(ls, rs, op)
}

func numericOf(v document.Value) (float64, bool) {
	if v.Kind == document.KindFloat64 {
		return v.Num, true
	}
	if v.Kind == document.KindString {
		f, err := strconv.ParseFloat(v.Str, 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

type ordered interface{ ~float64 | ~string }

func compareOrdered[T ordered](l, r T, op BinaryOp) bool {
	switch op {
	case OpEq:
		return l == r
	case OpNotEq:
		return l != r
	case OpLt:
		return l < r
	case OpGt:
		return l > r
	case OpLtEq:
		return l <= r
	case OpGtEq:
		return l >= r
	}
	return false
}
