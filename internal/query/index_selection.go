package query

import (
	"sort"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/indexer"
)

// scanWithIndex implements spec §4.12's index selection: collect the
// AND-connected equality conditions from where, pick the covering index with
// the most matched fields (ties broken by name for determinism — the spec's
// "declaration order" tiebreak assumes a single serial index registry, which
// this executor approximates since collection.AvailableIndexes doesn't
// preserve creation order), and fall back to a full scan when none qualifies.
func (ex *Executor) scanWithIndex(collection string, where Expr, params []document.Value) ([]document.Document, error) {
	conditions := collectEqualityConditions(where, params)
	if len(conditions) == 0 {
		return ex.ds.Scan(collection)
	}

	indexes, err := ex.ds.AvailableIndexes(collection)
	if err != nil {
		return nil, err
	}
	best, ok := pickIndex(indexes, conditions)
	if !ok {
		return ex.ds.Scan(collection)
	}

	values := make([]string, len(best.Fields))
	for i, f := range best.Fields {
		values[i] = conditions[f]
	}
	ids, err := ex.ds.FindByIndex(collection, best.Name, values...)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := ex.ds.GetMany(collection, ids)
	if err != nil {
		return nil, err
	}
	out := make([]document.Document, 0, len(docs))
	for _, id := range ids {
		if d, ok := docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func pickIndex(indexes []indexer.Def, conditions map[string]string) (indexer.Def, bool) {
	sort.Slice(indexes, func(i, j int) bool { return indexes[i].Name < indexes[j].Name })
	var best indexer.Def
	found := false
	for _, def := range indexes {
		if def.Type != indexer.TypeString {
			continue
		}
		if !coveredBy(def.Fields, conditions) {
			continue
		}
		if !found || len(def.Fields) > len(best.Fields) {
			best, found = def, true
		}
	}
	return best, found
}

func coveredBy(fields []string, conditions map[string]string) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if _, ok := conditions[f]; !ok {
			return false
		}
	}
	return true
}

// collectEqualityConditions walks top-level AND nodes, collecting every
// `field = literal-or-param` condition into a map keyed by field name. A
// field appearing under an OR, or compared with anything but '=', is not
// collected — those WHERE clauses aren't expressible as an index lookup.
func collectEqualityConditions(where Expr, params []document.Value) map[string]string {
	out := make(map[string]string)
	var walk func(e Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case LogicalExpr:
			if v.Op == OpAnd {
				walk(v.Left)
				walk(v.Right)
			}
		case BinaryExpr:
			if v.Op != OpEq {
				return
			}
			if id, ok := v.Left.(Identifier); ok {
				if val, ok := literalValue(v.Right, params); ok {
					out[id.Name] = val.Comparable()
				}
			} else if id, ok := v.Right.(Identifier); ok {
				if val, ok := literalValue(v.Left, params); ok {
					out[id.Name] = val.Comparable()
				}
			}
		}
	}
	if where != nil {
		walk(where)
	}
	return out
}

func literalValue(e Expr, params []document.Value) (document.Value, bool) {
	switch v := e.(type) {
	case Literal:
		return v.Value, true
	case ParamPlaceholder:
		if v.Index < len(params) {
			return params[v.Index], true
		}
	}
	return document.Value{}, false
}
