package query

import (
	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/tisserr"
)

// Parser is a recursive-descent, Pratt-precedence parser over a token stream
// (spec §4.11: "OR < AND < NOT < comparison < additive < multiplicative <
// primary"). Grounded on original_source/query/parser.h/.cpp's grammar.
type Parser struct {
	toks     []Token
	pos      int
	paramSeq int
}

// Parse tokenizes and parses one statement.
func Parse(src string) (Statement, error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == Semicolon {
		p.pos++
	}
	if !p.atEOF() {
		return nil, tisserr.NewParseError(p.cur().Offset, "unexpected trailing input %q", p.cur().Text)
	}
	return stmt, nil
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) atEOF() bool { return p.cur().Kind == EOF }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.cur().IsKeyword(kw) {
		return tisserr.NewParseError(p.cur().Offset, "expected %s, got %q", kw, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) expectKind(k Kind, what string) (Token, error) {
	if p.cur().Kind != k {
		return Token{}, tisserr.NewParseError(p.cur().Offset, "expected %s, got %q", what, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *Parser) parseStatement() (Statement, error) {
	switch {
	case p.cur().IsKeyword("SELECT"):
		return p.parseSelect()
	case p.cur().IsKeyword("INSERT"):
		return p.parseInsert()
	case p.cur().IsKeyword("UPDATE"):
		return p.parseUpdate()
	case p.cur().IsKeyword("DELETE"):
		return p.parseDelete()
	default:
		return nil, tisserr.NewParseError(p.cur().Offset, "expected a statement, got %q", p.cur().Text)
	}
}

// --- SELECT ---

func (p *Parser) parseSelect() (*SelectStatement, error) {
	if err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	stmt := &SelectStatement{}
	if p.cur().IsKeyword("DISTINCT") {
		stmt.Distinct = true
		p.advance()
	}
	cols, err := p.parseSelectColumns()
	if err != nil {
		return nil, err
	}
	stmt.Columns = cols

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	coll, err := p.expectKind(Ident, "collection name")
	if err != nil {
		return nil, err
	}
	stmt.Collection = coll.Text
	stmt.Alias = p.parseOptionalAlias()

	for p.isJoinStart() {
		j, err := p.parseJoin()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, j)
	}

	if p.cur().IsKeyword("WHERE") {
		p.advance()
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = w
	}

	if p.cur().IsKeyword("GROUP") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			id, err := p.expectKind(Ident, "column name")
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, id.Text)
			if p.cur().Kind != Comma {
				break
			}
			p.advance()
		}
	}

	if p.cur().IsKeyword("HAVING") {
		p.advance()
		h, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Having = h
	}

	if p.cur().IsKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			term := OrderTerm{Expr: e}
			if p.cur().IsKeyword("DESC") {
				term.Desc = true
				p.advance()
			} else if p.cur().IsKeyword("ASC") {
				p.advance()
			}
			stmt.OrderBy = append(stmt.OrderBy, term)
			if p.cur().Kind != Comma {
				break
			}
			p.advance()
		}
	}

	if p.cur().IsKeyword("LIMIT") {
		p.advance()
		n, err := p.expectKind(Number, "limit value")
		if err != nil {
			return nil, err
		}
		lim := int(n.Num)
		stmt.Limit = &lim
	}

	if p.cur().IsKeyword("UNION") {
		p.advance()
		all := false
		if p.cur().IsKeyword("ALL") {
			all = true
			p.advance()
		}
		right, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		stmt.Union = &UnionClause{Right: right, All: all}
	}

	return stmt, nil
}

func (p *Parser) parseSelectColumns() ([]SelectColumn, error) {
	var cols []SelectColumn
	for {
		if p.cur().Kind == Star {
			p.advance()
			cols = append(cols, SelectColumn{Star: true})
		} else if agg, ok, err := p.tryParseAggregate(); err != nil {
			return nil, err
		} else if ok {
			col := SelectColumn{Expr: agg}
			col.Alias = p.parseOptionalAlias()
			cols = append(cols, col)
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			col := SelectColumn{Expr: e}
			col.Alias = p.parseOptionalAlias()
			cols = append(cols, col)
		}
		if p.cur().Kind != Comma {
			break
		}
		p.advance()
	}
	return cols, nil
}

var aggregateNames = map[string]AggregateKind{
	"SUM": AggSum, "AVG": AggAvg, "COUNT": AggCount, "MIN": AggMin, "MAX": AggMax, "STDDEV": AggStddev,
}

func (p *Parser) tryParseAggregate() (Expr, bool, error) {
	if p.cur().Kind != Ident {
		return nil, false, nil
	}
	kind, ok := aggregateNames[upper(p.cur().Text)]
	if !ok {
		return nil, false, nil
	}
	if p.peekKind(1) != LParen {
		return nil, false, nil
	}
	p.advance() // function name
	p.advance() // (
	call := AggregateCall{Kind: kind}
	if p.cur().Kind == Star {
		call.Star = true
		p.advance()
	} else {
		id, err := p.expectKind(Ident, "field name")
		if err != nil {
			return nil, false, err
		}
		call.Field = id.Text
	}
	if _, err := p.expectKind(RParen, ")"); err != nil {
		return nil, false, err
	}
	return call, true, nil
}

func (p *Parser) peekKind(delta int) Kind {
	idx := p.pos + delta
	if idx >= len(p.toks) {
		return EOF
	}
	return p.toks[idx].Kind
}

func (p *Parser) parseOptionalAlias() string {
	if p.cur().IsKeyword("AS") {
		p.advance()
		if p.cur().Kind == Ident {
			t := p.advance()
			return t.Text
		}
		return ""
	}
	if p.cur().Kind == Ident {
		t := p.advance()
		return t.Text
	}
	return ""
}

func (p *Parser) isJoinStart() bool {
	return p.cur().IsKeyword("JOIN") || p.cur().IsKeyword("INNER") || p.cur().IsKeyword("LEFT") ||
		p.cur().IsKeyword("RIGHT") || p.cur().IsKeyword("FULL") || p.cur().IsKeyword("CROSS")
}

func (p *Parser) parseJoin() (JoinClause, error) {
	kind := JoinInner
	switch {
	case p.cur().IsKeyword("INNER"):
		p.advance()
	case p.cur().IsKeyword("LEFT"):
		kind = JoinLeft
		p.advance()
	case p.cur().IsKeyword("RIGHT"):
		kind = JoinRight
		p.advance()
	case p.cur().IsKeyword("FULL"):
		kind = JoinFull
		p.advance()
	case p.cur().IsKeyword("CROSS"):
		kind = JoinCross
		p.advance()
	}
	if err := p.expectKeyword("JOIN"); err != nil {
		return JoinClause{}, err
	}
	coll, err := p.expectKind(Ident, "collection name")
	if err != nil {
		return JoinClause{}, err
	}
	j := JoinClause{Kind: kind, Collection: coll.Text}
	j.Alias = p.parseOptionalAlias()
	if kind != JoinCross {
		if err := p.expectKeyword("ON"); err != nil {
			return JoinClause{}, err
		}
		on, err := p.parseExpr()
		if err != nil {
			return JoinClause{}, err
		}
		j.On = on
	}
	return j, nil
}

// --- INSERT / UPDATE / DELETE ---

func (p *Parser) parseInsert() (*InsertStatement, error) {
	if err := p.expectKeyword("INSERT"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	coll, err := p.expectKind(Ident, "collection name")
	if err != nil {
		return nil, err
	}
	stmt := &InsertStatement{Collection: coll.Text}

	if _, err := p.expectKind(LParen, "("); err != nil {
		return nil, err
	}
	for {
		id, err := p.expectKind(Ident, "column name")
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, id.Text)
		if p.cur().Kind != Comma {
			break
		}
		p.advance()
	}
	if _, err := p.expectKind(RParen, ")"); err != nil {
		return nil, err
	}

	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	if _, err := p.expectKind(LParen, "("); err != nil {
		return nil, err
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Values = append(stmt.Values, e)
		if p.cur().Kind != Comma {
			break
		}
		p.advance()
	}
	if _, err := p.expectKind(RParen, ")"); err != nil {
		return nil, err
	}
	if len(stmt.Columns) != len(stmt.Values) {
		return nil, tisserr.NewParseError(p.cur().Offset, "column count %d does not match value count %d", len(stmt.Columns), len(stmt.Values))
	}
	return stmt, nil
}

func (p *Parser) parseUpdate() (*UpdateStatement, error) {
	if err := p.expectKeyword("UPDATE"); err != nil {
		return nil, err
	}
	coll, err := p.expectKind(Ident, "collection name")
	if err != nil {
		return nil, err
	}
	stmt := &UpdateStatement{Collection: coll.Text}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	for {
		id, err := p.expectKind(Ident, "field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(Eq, "="); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Sets = append(stmt.Sets, SetClause{Field: id.Text, Value: v})
		if p.cur().Kind != Comma {
			break
		}
		p.advance()
	}
	if p.cur().IsKeyword("WHERE") {
		p.advance()
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = w
	}
	return stmt, nil
}

func (p *Parser) parseDelete() (*DeleteStatement, error) {
	if err := p.expectKeyword("DELETE"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	coll, err := p.expectKind(Ident, "collection name")
	if err != nil {
		return nil, err
	}
	stmt := &DeleteStatement{Collection: coll.Text}
	if p.cur().IsKeyword("WHERE") {
		p.advance()
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = w
	}
	return stmt, nil
}

// --- Expressions (Pratt precedence: OR < AND < NOT < comparison < additive < multiplicative < primary) ---

func (p *Parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().IsKeyword("OR") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = LogicalExpr{Left: left, Op: OpOr, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().IsKeyword("AND") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = LogicalExpr{Left: left, Op: OpAnd, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.cur().IsKeyword("NOT") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return NotExpr{Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	op, ok := comparisonOp(p.cur())
	if !ok {
		return left, nil
	}
	p.advance()
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return BinaryExpr{Left: left, Op: op, Right: right}, nil
}

func comparisonOp(t Token) (BinaryOp, bool) {
	switch t.Kind {
	case Eq:
		return OpEq, true
	case NotEq:
		return OpNotEq, true
	case Lt:
		return OpLt, true
	case Gt:
		return OpGt, true
	case LtEq:
		return OpLtEq, true
	case GtEq:
		return OpGtEq, true
	}
	if t.IsKeyword("LIKE") {
		return OpLike, true
	}
	return 0, false
}

func (p *Parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == Plus || p.cur().Kind == Minus {
		op := OpAdd
		if p.cur().Kind == Minus {
			op = OpSub
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == Star || p.cur().Kind == Slash {
		op := OpMul
		if p.cur().Kind == Slash {
			op = OpDiv
		}
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.Kind {
	case LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(RParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case Number:
		p.advance()
		return Literal{Value: document.NewFloat64(t.Num)}, nil
	case String:
		p.advance()
		return Literal{Value: document.NewString(t.Text)}, nil
	case Param:
		p.advance()
		idx := paramCounter(p)
		return ParamPlaceholder{Index: idx}, nil
	case Keyword:
		switch upper(t.Text) {
		case "NULL":
			p.advance()
			return Literal{Value: document.Null()}, nil
		case "TRUE":
			p.advance()
			return Literal{Value: document.NewBool(true)}, nil
		case "FALSE":
			p.advance()
			return Literal{Value: document.NewBool(false)}, nil
		}
		return nil, tisserr.NewParseError(t.Offset, "unexpected keyword %q in expression", t.Text)
	case Ident:
		if agg, ok, err := p.tryParseAggregate(); err != nil {
			return nil, err
		} else if ok {
			return agg, nil
		}
		p.advance()
		id := Identifier{Name: t.Text}
		if p.cur().Kind == Dot {
			p.advance()
			field, err := p.expectKind(Ident, "field name")
			if err != nil {
				return nil, err
			}
			id = Identifier{Qualifier: t.Text, Name: field.Text}
		}
		return id, nil
	default:
		return nil, tisserr.NewParseError(t.Offset, "unexpected token %q", t.Text)
	}
}

// paramCounter assigns each '?' the next positional index in source order.
// Parsing is single-pass and left-to-right, so a running count on the parser
// itself is all that is needed.
func paramCounter(p *Parser) int {
	n := p.paramSeq
	p.paramSeq++
	return n
}
