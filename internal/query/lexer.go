package query

import (
	"strconv"
	"strings"

	"github.com/tissdb/tissdb/internal/tisserr"
)

// Lexer tokenizes a TissQL statement (spec §4.11: identifiers, case-insensitive
// keywords, double literals, single-quoted strings with \' escape, operators,
// punctuation, and the positional placeholder '?').
type Lexer struct {
	src string
	pos int
}

func NewLexer(src string) *Lexer { return &Lexer{src: src} }

func (l *Lexer) Tokenize() ([]Token, error) {
	var toks []Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()
	start := l.pos
	if l.pos >= len(l.src) {
		return Token{Kind: EOF, Offset: start}, nil
	}
	c := l.src[l.pos]

	switch {
	case c == '\'':
		return l.readString()
	case isDigit(c):
		return l.readNumber()
	case isIdentStart(c):
		return l.readIdentOrKeyword()
	case c == '?':
		l.pos++
		return Token{Kind: Param, Text: "?", Offset: start}, nil
	case c == '(':
		l.pos++
		return Token{Kind: LParen, Text: "(", Offset: start}, nil
	case c == ')':
		l.pos++
		return Token{Kind: RParen, Text: ")", Offset: start}, nil
	case c == ',':
		l.pos++
		return Token{Kind: Comma, Text: ",", Offset: start}, nil
	case c == '.':
		l.pos++
		return Token{Kind: Dot, Text: ".", Offset: start}, nil
	case c == ';':
		l.pos++
		return Token{Kind: Semicolon, Text: ";", Offset: start}, nil
	case c == '=':
		l.pos++
		return Token{Kind: Eq, Text: "=", Offset: start}, nil
	case c == '!':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return Token{Kind: NotEq, Text: "!=", Offset: start}, nil
		}
		return Token{}, tisserr.NewParseError(start, "unexpected character '!'")
	case c == '<':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return Token{Kind: LtEq, Text: "<=", Offset: start}, nil
		}
		l.pos++
		return Token{Kind: Lt, Text: "<", Offset: start}, nil
	case c == '>':
		if l.peekAt(1) == '=' {
			l.pos += 2
			return Token{Kind: GtEq, Text: ">=", Offset: start}, nil
		}
		l.pos++
		return Token{Kind: Gt, Text: ">", Offset: start}, nil
	case c == '+':
		l.pos++
		return Token{Kind: Plus, Text: "+", Offset: start}, nil
	case c == '-':
		l.pos++
		return Token{Kind: Minus, Text: "-", Offset: start}, nil
	case c == '*':
		l.pos++
		return Token{Kind: Star, Text: "*", Offset: start}, nil
	case c == '/':
		l.pos++
		return Token{Kind: Slash, Text: "/", Offset: start}, nil
	default:
		return Token{}, tisserr.NewParseError(start, "unexpected character %q", c)
	}
}

func (l *Lexer) peekAt(delta int) byte {
	if l.pos+delta >= len(l.src) {
		return 0
	}
	return l.src[l.pos+delta]
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func (l *Lexer) readString() (Token, error) {
	start := l.pos
	l.pos++ // consume opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return Token{}, tisserr.NewParseError(start, "unterminated string literal")
		}
		c := l.src[l.pos]
		if c == '\\' && l.peekAt(1) == '\'' {
			sb.WriteByte('\'')
			l.pos += 2
			continue
		}
		if c == '\'' {
			l.pos++
			return Token{Kind: String, Text: sb.String(), Offset: start}, nil
		}
		sb.WriteByte(c)
		l.pos++
	}
}

func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' && isDigit(l.peekAt(1)) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	text := l.src[start:l.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, tisserr.NewParseError(start, "invalid numeric literal %q", text)
	}
	return Token{Kind: Number, Text: text, Num: n, Offset: start}, nil
}

func (l *Lexer) readIdentOrKeyword() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	text := l.src[start:l.pos]
	if keywords[upper(text)] {
		return Token{Kind: Keyword, Text: text, Offset: start}, nil
	}
	return Token{Kind: Ident, Text: text, Offset: start}, nil
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }
