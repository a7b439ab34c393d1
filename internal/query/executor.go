// Package query's executor evaluates a parsed Statement against a
// DataSource (spec §4.12), grounded on original_source/query/executor.h/.cpp
// (executor_select/update/delete split) and join_algorithms.cpp (nested-loop
// join). The teacher's pkg/query/scan.go contributes the index-vs-scan
// framing (ScanCondition operators) generalized here to full WHERE clauses.
package query

import (
	"sort"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/tisserr"
)

// Result is whichever of these applies to the executed statement.
type Result struct {
	Rows         []document.Document // SELECT
	UpdatedCount int                 // UPDATE
	DeletedCount int                 // DELETE
	Inserted     bool                // INSERT
}

// Executor runs parsed TissQL statements against a DataSource.
type Executor struct {
	ds DataSource
}

func NewExecutor(ds DataSource) *Executor { return &Executor{ds: ds} }

// Execute dispatches stmt by concrete type and substitutes params positionally.
func (ex *Executor) Execute(stmt Statement, params []document.Value) (Result, error) {
	switch s := stmt.(type) {
	case *SelectStatement:
		rows, err := ex.executeSelect(s, params)
		return Result{Rows: rows}, err
	case *InsertStatement:
		return ex.executeInsert(s, params)
	case *UpdateStatement:
		return ex.executeUpdate(s, params)
	case *DeleteStatement:
		return ex.executeDelete(s, params)
	default:
		return Result{}, tisserr.NewQuery("unsupported statement type %T", stmt)
	}
}

func (ex *Executor) executeSelect(s *SelectStatement, params []document.Value) ([]document.Document, error) {
	exprs := []Expr{s.Where, s.Having}
	for _, c := range s.Columns {
		if c.Expr != nil {
			exprs = append(exprs, c.Expr)
		}
	}
	for _, j := range s.Joins {
		if j.On != nil {
			exprs = append(exprs, j.On)
		}
	}
	for _, o := range s.OrderBy {
		exprs = append(exprs, o.Expr)
	}
	if err := checkParamCount(params, exprs...); err != nil {
		return nil, err
	}

	rows, err := ex.scanWithIndex(s.Collection, s.Where, params)
	if err != nil {
		return nil, err
	}

	for _, j := range s.Joins {
		rightRows, err := ex.ds.Scan(j.Collection)
		if err != nil {
			return nil, err
		}
		rows, err = applyJoin(rows, rightRows, j, params)
		if err != nil {
			return nil, err
		}
	}

	if s.Where != nil {
		filtered := rows[:0:0]
		for _, r := range rows {
			ok, err := evalPredicate(s.Where, r, params)
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	var result []document.Document
	if hasAggregate(s.Columns) || len(s.GroupBy) > 0 {
		result = aggregateRows(rows, s.Columns, s.GroupBy)
		if s.Having != nil {
			filtered := result[:0:0]
			for _, r := range result {
				ok, err := evalPredicate(s.Having, r, params)
				if err != nil {
					return nil, err
				}
				if ok {
					filtered = append(filtered, r)
				}
			}
			result = filtered
		}
	} else {
		result = make([]document.Document, 0, len(rows))
		for _, r := range rows {
			result = append(result, project(s.Columns, r, params))
		}
	}

	if len(s.OrderBy) > 0 {
		sortRows(result, s.OrderBy, params)
	}
	if s.Distinct {
		result = dedupe(result)
	}
	if s.Limit != nil && len(result) > *s.Limit {
		result = result[:*s.Limit]
	}

	if s.Union != nil {
		rightRows, err := ex.executeSelect(s.Union.Right, params)
		if err != nil {
			return nil, err
		}
		result = append(result, rightRows...)
		if !s.Union.All {
			result = dedupe(result)
			sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
		}
	}
	return result, nil
}

// project builds one output row for a non-aggregate SELECT.
func project(cols []SelectColumn, row document.Document, params []document.Value) document.Document {
	if len(cols) == 1 && cols[0].Star {
		return row
	}
	out := document.New(row.ID)
	for _, c := range cols {
		if c.Star {
			for _, e := range row.Elements {
				out = out.Set(e.Key, e.Value)
			}
			continue
		}
		name := c.Alias
		if id, ok := c.Expr.(Identifier); ok && name == "" {
			name = id.Name
		}
		v, err := evalExpr(c.Expr, row, params)
		if err != nil || name == "" {
			continue
		}
		out = out.Set(name, v)
	}
	return out
}

func dedupe(rows []document.Document) []document.Document {
	var out []document.Document
	for _, r := range rows {
		dup := false
		for _, o := range out {
			if r.Equal(o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

func sortRows(rows []document.Document, order []OrderTerm, params []document.Value) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, term := range order {
			vi, _ := evalExpr(term.Expr, rows[i], params)
			vj, _ := evalExpr(term.Expr, rows[j], params)
			if vi.Equal(vj) {
				continue
			}
			less := compare(vi, vj, OpLt)
			if term.Desc {
				return !less && !vi.Equal(vj)
			}
			return less
		}
		return false
	})
}

func (ex *Executor) executeInsert(s *InsertStatement, params []document.Value) (Result, error) {
	if err := checkParamCount(params, s.Values...); err != nil {
		return Result{}, err
	}
	if len(s.Columns) != len(s.Values) {
		return Result{}, tisserr.NewQuery("column count %d does not match value count %d", len(s.Columns), len(s.Values))
	}
	doc := document.Document{}
	for i, col := range s.Columns {
		v, err := evalExpr(s.Values[i], document.Document{}, params)
		if err != nil {
			return Result{}, err
		}
		doc = doc.Set(col, v)
	}

	key, err := ex.documentKey(s.Collection, doc)
	if err != nil {
		return Result{}, err
	}
	doc.ID = key
	if err := ex.ds.Put(s.Collection, key, doc); err != nil {
		return Result{}, err
	}
	return Result{Inserted: true}, nil
}

// documentKey computes the storage key for a new document: its schema's
// primary key if one is declared, or an "id" column the statement supplied.
func (ex *Executor) documentKey(collection string, doc document.Document) (string, error) {
	schema, ok, err := ex.ds.Schema(collection)
	if err != nil {
		return "", err
	}
	if ok {
		if key, has := document.PrimaryKeyValue(schema, doc); has {
			return key, nil
		}
	}
	if v, ok := doc.Get("id"); ok {
		return v.Comparable(), nil
	}
	return "", tisserr.NewQuery("insert into %q requires an id field or a declared primary key", collection)
}

func (ex *Executor) executeUpdate(s *UpdateStatement, params []document.Value) (Result, error) {
	exprs := append([]Expr{s.Where}, setExprs(s.Sets)...)
	if err := checkParamCount(params, exprs...); err != nil {
		return Result{}, err
	}
	rows, err := ex.scanWithIndex(s.Collection, s.Where, params)
	if err != nil {
		return Result{}, err
	}

	count := 0
	for _, original := range rows {
		if s.Where != nil {
			ok, err := evalPredicate(s.Where, original, params)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				continue
			}
		}
		// Each SET expression evaluates against the original, pre-write row
		// (spec §4.12), so a later SET referencing an earlier SET's target
		// field still sees its old value.
		updated := original.Clone()
		for _, set := range s.Sets {
			v, err := evalExpr(set.Value, original, params)
			if err != nil {
				return Result{}, err
			}
			updated = updated.Set(set.Field, v)
		}
		if err := ex.ds.Put(s.Collection, updated.ID, updated); err != nil {
			return Result{}, err
		}
		count++
	}
	return Result{UpdatedCount: count}, nil
}

func setExprs(sets []SetClause) []Expr {
	out := make([]Expr, len(sets))
	for i, s := range sets {
		out[i] = s.Value
	}
	return out
}

func (ex *Executor) executeDelete(s *DeleteStatement, params []document.Value) (Result, error) {
	if err := checkParamCount(params, s.Where); err != nil {
		return Result{}, err
	}
	rows, err := ex.scanWithIndex(s.Collection, s.Where, params)
	if err != nil {
		return Result{}, err
	}
	count := 0
	for _, row := range rows {
		if s.Where != nil {
			ok, err := evalPredicate(s.Where, row, params)
			if err != nil {
				return Result{}, err
			}
			if !ok {
				continue
			}
		}
		if err := ex.ds.Del(s.Collection, row.ID); err != nil {
			return Result{}, err
		}
		count++
	}
	return Result{DeletedCount: count}, nil
}
