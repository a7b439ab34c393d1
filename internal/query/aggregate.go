package query

import (
	"math"
	"strings"

	"github.com/tissdb/tissdb/internal/document"
)

// hasAggregate reports whether any projected column is an aggregate call
// (spec §4.12: presence of one triggers bucketed aggregation for the whole
// SELECT).
func hasAggregate(cols []SelectColumn) bool {
	for _, c := range cols {
		if _, ok := c.Expr.(AggregateCall); ok {
			return true
		}
	}
	return false
}

// accumulator tracks one aggregate column's running state across a bucket's
// rows (spec §4.12: incremental SUM/COUNT/AVG/MIN/MAX/STDDEV).
type accumulator struct {
	sum, sumSq float64
	numCount   int // count of numeric, non-null values (for AVG/STDDEV)
	allCount   int // count of all non-null values (for COUNT)
	hasMinNum  bool
	minNum     float64
	hasMaxNum  bool
	maxNum     float64
	hasMinStr  bool
	minStr     string
	hasMaxStr  bool
	maxStr     string
}

func (a *accumulator) add(v document.Value) {
	if v.Kind == document.KindNull {
		return
	}
	a.allCount++
	if f, ok := v.AsFloat64(); ok {
		a.sum += f
		a.sumSq += f * f
		a.numCount++
		if !a.hasMinNum || f < a.minNum {
			a.hasMinNum, a.minNum = true, f
		}
		if !a.hasMaxNum || f > a.maxNum {
			a.hasMaxNum, a.maxNum = true, f
		}
		return
	}
	s := v.Comparable()
	if !a.hasMinStr || s < a.minStr {
		a.hasMinStr, a.minStr = true, s
	}
	if !a.hasMaxStr || s > a.maxStr {
		a.hasMaxStr, a.maxStr = true, s
	}
}

func (a *accumulator) finalize(kind AggregateKind) document.Value {
	switch kind {
	case AggSum:
		return document.NewFloat64(a.sum)
	case AggCount:
		return document.NewFloat64(float64(a.allCount))
	case AggAvg:
		if a.numCount == 0 {
			return document.Null()
		}
		return document.NewFloat64(a.sum / float64(a.numCount))
	case AggMin:
		if a.hasMinNum {
			return document.NewFloat64(a.minNum)
		}
		if a.hasMinStr {
			return document.NewString(a.minStr)
		}
		return document.Null()
	case AggMax:
		if a.hasMaxNum {
			return document.NewFloat64(a.maxNum)
		}
		if a.hasMaxStr {
			return document.NewString(a.maxStr)
		}
		return document.Null()
	case AggStddev:
		if a.numCount == 0 {
			return document.Null()
		}
		n := float64(a.numCount)
		mean := a.sum / n
		variance := a.sumSq/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		return document.NewFloat64(math.Sqrt(variance))
	default:
		return document.Null()
	}
}

// bucket holds one GROUP BY group's accumulators plus a representative row
// (the first one seen) for evaluating any non-aggregate projected columns.
type bucket struct {
	groupValues  document.Document
	accumulators map[int]*accumulator // column index -> accumulator
	sample       document.Document
}

// aggregateRows buckets rows by groupBy (spec §4.12: concatenation with "::"
// separator, or a single "aggregate" bucket with no GROUP BY), accumulates
// every aggregate column, and returns one output row per bucket.
func aggregateRows(rows []document.Document, cols []SelectColumn, groupBy []string) []document.Document {
	buckets := make(map[string]*bucket)
	var order []string

	for _, row := range rows {
		key := bucketKey(row, groupBy)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{accumulators: make(map[int]*accumulator), sample: row}
			for _, f := range groupBy {
				if v, ok := row.Get(f); ok {
					b.groupValues = b.groupValues.Set(f, v)
				}
			}
			buckets[key] = b
			order = append(order, key)
		}
		for i, c := range cols {
			if agg, ok := c.Expr.(AggregateCall); ok {
				acc, ok := b.accumulators[i]
				if !ok {
					acc = &accumulator{}
					b.accumulators[i] = acc
				}
				if agg.Star {
					acc.allCount++
					continue
				}
				v, _ := row.Get(agg.Field)
				acc.add(v)
			}
		}
	}

	out := make([]document.Document, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		result := b.groupValues
		for i, c := range cols {
			if agg, ok := c.Expr.(AggregateCall); ok {
				name := c.Alias
				if name == "" {
					name = aggregateColumnName(agg)
				}
				acc := b.accumulators[i]
				if acc == nil {
					acc = &accumulator{}
				}
				result = result.Set(name, acc.finalize(agg.Kind))
			} else if c.Expr != nil {
				name := c.Alias
				if id, ok := c.Expr.(Identifier); ok && name == "" {
					name = id.Name
				}
				if v, err := evalExpr(c.Expr, b.sample, nil); err == nil && name != "" {
					result = result.Set(name, v)
				}
			}
		}
		out = append(out, result)
	}
	return out
}

func bucketKey(row document.Document, groupBy []string) string {
	if len(groupBy) == 0 {
		return "aggregate"
	}
	parts := make([]string, len(groupBy))
	for i, f := range groupBy {
		if v, ok := row.Get(f); ok {
			parts[i] = v.Comparable()
		}
	}
	return strings.Join(parts, "::")
}

func aggregateColumnName(agg AggregateCall) string {
	names := map[AggregateKind]string{
		AggSum: "sum", AggAvg: "avg", AggCount: "count", AggMin: "min", AggMax: "max", AggStddev: "stddev",
	}
	if agg.Star {
		return names[agg.Kind] + "_star"
	}
	return names[agg.Kind] + "_" + agg.Field
}
