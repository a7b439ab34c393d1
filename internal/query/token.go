// Package query implements TissQL: a lexer, recursive-descent Pratt parser,
// AST, and executor (spec §4.11/§4.12). Grounded on original_source/query/
// parser.h/.cpp and executor.h/.cpp for grammar and evaluation semantics;
// the teacher contributes the surrounding idiom (typed token kinds, explicit
// offset tracking for error messages) rather than any query code of its own,
// since pkg/query/scan.go only expresses single-field scan predicates.
package query

import "fmt"

// Kind enumerates every lexical token TissQL recognizes.
type Kind int

const (
	EOF Kind = iota
	Ident
	Keyword
	Number
	String
	Param // '?'

	// Operators
	Eq
	NotEq
	Lt
	Gt
	LtEq
	GtEq
	Plus
	Minus
	Star
	Slash

	// Punctuation
	LParen
	RParen
	Comma
	Dot
	Semicolon
)

var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true, "NOT": true,
	"INSERT": true, "INTO": true, "VALUES": true, "UPDATE": true, "SET": true, "DELETE": true,
	"GROUP": true, "BY": true, "HAVING": true, "ORDER": true, "ASC": true, "DESC": true,
	"LIMIT": true, "JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"CROSS": true, "ON": true, "UNION": true, "ALL": true, "DISTINCT": true, "LIKE": true,
	"NULL": true, "TRUE": true, "FALSE": true, "AS": true,
}

// Token is one lexeme plus its byte offset for error reporting.
type Token struct {
	Kind   Kind
	Text   string // original text (keywords preserve case for diagnostics, compared upper)
	Num    float64
	Offset int
}

func (t Token) String() string {
	return fmt.Sprintf("%v(%q)@%d", t.Kind, t.Text, t.Offset)
}

// IsKeyword reports whether t is a Keyword token whose uppercased text equals kw.
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == Keyword && upper(t.Text) == kw
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
