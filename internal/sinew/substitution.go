package sinew

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tissdb/tissdb/internal/document"
)

// substituteNamedParams replaces every "$name" placeholder in query with its
// literal-formatted value, longest key first so "$id2" isn't clobbered by a
// "$id" replacement (original_source/quanta_tissu/tissu_sinew.cpp's
// run_with_client_side_substitution).
func substituteNamedParams(query string, named map[string]document.Value) string {
	keys := make([]string, 0, len(named))
	for k := range named {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	out := query
	for _, k := range keys {
		out = strings.ReplaceAll(out, "$"+k, toQueryLiteral(named[k]))
	}
	return out
}

// toQueryLiteral formats v for inline substitution into a query string,
// quoting and escaping strings the way original_source's TissValue::
// toQueryString does.
func toQueryLiteral(v document.Value) string {
	switch v.Kind {
	case document.KindNull:
		return "null"
	case document.KindString:
		return `"` + strings.ReplaceAll(v.Str, `"`, `\"`) + `"`
	case document.KindFloat64:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case document.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case document.KindTimestamp:
		return strconv.FormatInt(v.TS, 10)
	default:
		return ""
	}
}
