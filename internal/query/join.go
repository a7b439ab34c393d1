package query

import "github.com/tissdb/tissdb/internal/document"

// applyJoin nested-loop-joins left against the right collection's rows per
// spec §4.12: CROSS yields the full cartesian product; INNER/LEFT/RIGHT/FULL
// test ON against the row formed by merging left and right, with the
// unmatched side's fields left absent (read back as null by evalExpr /
// Document.Get) for outer joins.
func applyJoin(left []document.Document, right []document.Document, join JoinClause, params []document.Value) ([]document.Document, error) {
	var out []document.Document
	rightMatched := make([]bool, len(right))

	for _, l := range left {
		matchedAny := false
		for ri, r := range right {
			if join.Kind == JoinCross {
				out = append(out, merge(l, r))
				matchedAny = true
				continue
			}
			combined := merge(l, r)
			ok, err := evalPredicate(join.On, combined, params)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, combined)
				matchedAny = true
				rightMatched[ri] = true
			}
		}
		if !matchedAny && (join.Kind == JoinLeft || join.Kind == JoinFull) {
			out = append(out, l)
		}
	}

	if join.Kind == JoinRight || join.Kind == JoinFull {
		for ri, r := range right {
			if !rightMatched[ri] {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// merge combines two documents' fields into one row for predicate
// evaluation; the right side's fields take precedence on a name collision
// since it is evaluated as "the newly joined source".
func merge(l, r document.Document) document.Document {
	out := l.Clone()
	for _, e := range r.Elements {
		out = out.Set(e.Key, e.Value)
	}
	return out
}

func evalPredicate(expr Expr, row document.Document, params []document.Value) (bool, error) {
	if expr == nil {
		return true, nil
	}
	v, err := evalExpr(expr, row, params)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}
