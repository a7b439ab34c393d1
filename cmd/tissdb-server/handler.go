package main

import (
	"encoding/json"
	"fmt"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/query"
)

// newQueryHandler adapts an *query.Executor to a sinew.Handler: parse, run,
// render the result as the free-form response string spec §4.13 describes
// ("serialised rows or OK").
func newQueryHandler(executor *query.Executor) func(string, []document.Value) (string, error) {
	return func(q string, params []document.Value) (string, error) {
		stmt, err := query.Parse(q)
		if err != nil {
			return "", err
		}
		result, err := executor.Execute(stmt, params)
		if err != nil {
			return "", err
		}
		switch stmt.(type) {
		case *query.UpdateStatement, *query.DeleteStatement:
			return fmt.Sprintf("OK %d", result.UpdatedCount+result.DeletedCount), nil
		}
		return renderResult(result), nil
	}
}

// renderResult turns a query.Result into the string body a Sinew client
// gets back. Rows are JSON since that's the one self-describing text format
// every driver can parse without a schema; mutation statements get a short
// status line instead of an empty array, mirroring the original client's
// "OK"-style acknowledgements (original_source/quanta_tissu/tissu_sinew.cpp).
// newQueryHandler answers UPDATE/DELETE with "OK <count>" itself, so a
// mutation that matched no rows still gets "OK 0".
func renderResult(r query.Result) string {
	switch {
	case r.Inserted:
		return "OK"
	case r.UpdatedCount > 0 || r.DeletedCount > 0:
		return fmt.Sprintf("OK %d", r.UpdatedCount+r.DeletedCount)
	default:
		rows := make([]map[string]any, len(r.Rows))
		for i, doc := range r.Rows {
			rows[i] = documentToJSON(doc)
		}
		b, err := json.Marshal(rows)
		if err != nil {
			return "[]"
		}
		return string(b)
	}
}

func documentToJSON(d document.Document) map[string]any {
	m := make(map[string]any, len(d.Elements)+1)
	m["_id"] = d.ID
	for _, e := range d.Elements {
		m[e.Key] = valueToJSON(e.Value)
	}
	return m
}

func valueToJSON(v document.Value) any {
	switch v.Kind {
	case document.KindNull:
		return nil
	case document.KindString:
		return v.Str
	case document.KindFloat64:
		return v.Num
	case document.KindBool:
		return v.Bool
	case document.KindTimestamp:
		return v.TS
	case document.KindBytes:
		return v.Bytes
	case document.KindObject:
		m := make(map[string]any, len(v.Obj))
		for _, e := range v.Obj {
			m[e.Key] = valueToJSON(e.Value)
		}
		return m
	default:
		return nil
	}
}
