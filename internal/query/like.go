package query

import (
	"regexp"
	"strings"
)

// likeToRegex converts a SQL LIKE pattern to an anchored regex: '%' becomes
// '.*', '_' becomes '.', and every other regex metacharacter is escaped
// (spec §4.12).
func likeToRegex(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteByte('^')
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteByte('.')
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteByte('$')
	return regexp.Compile(sb.String())
}
