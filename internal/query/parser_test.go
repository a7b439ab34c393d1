package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleSelect(t *testing.T) {
	stmt, err := Parse(`SELECT name, age FROM users WHERE age > 18 ORDER BY name LIMIT 10`)
	require.NoError(t, err)

	sel, ok := stmt.(*SelectStatement)
	require.True(t, ok)
	assert.Equal(t, "users", sel.Collection)
	require.Len(t, sel.Columns, 2)
	assert.Equal(t, "name", sel.Columns[0].Expr.(Identifier).Name)
	require.NotNil(t, sel.Limit)
	assert.Equal(t, 10, *sel.Limit)

	where, ok := sel.Where.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, OpGt, where.Op)
}

func TestParseSelectStar(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users`)
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)
	require.Len(t, sel.Columns, 1)
	assert.True(t, sel.Columns[0].Star)
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse(`INSERT INTO users (id, name) VALUES ('u1', 'alice')`)
	require.NoError(t, err)
	ins := stmt.(*InsertStatement)
	assert.Equal(t, "users", ins.Collection)
	assert.Equal(t, []string{"id", "name"}, ins.Columns)
	require.Len(t, ins.Values, 2)
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse(`UPDATE users SET age = 31 WHERE id = 'u1'`)
	require.NoError(t, err)
	upd := stmt.(*UpdateStatement)
	assert.Equal(t, "users", upd.Collection)
	require.Len(t, upd.Sets, 1)
	assert.Equal(t, "age", upd.Sets[0].Field)
}

func TestParseDelete(t *testing.T) {
	stmt, err := Parse(`DELETE FROM users WHERE id = 'u1'`)
	require.NoError(t, err)
	del := stmt.(*DeleteStatement)
	assert.Equal(t, "users", del.Collection)
	assert.NotNil(t, del.Where)
}

func TestParseParamPlaceholder(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users WHERE id = ?`)
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)
	where := sel.Where.(BinaryExpr)
	ph, ok := where.Right.(ParamPlaceholder)
	require.True(t, ok)
	assert.Equal(t, 0, ph.Index)
}

func TestParseGroupByHavingAggregate(t *testing.T) {
	stmt, err := Parse(`SELECT dept, COUNT(*) FROM employees GROUP BY dept HAVING COUNT(*) > 1`)
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)
	assert.Equal(t, []string{"dept"}, sel.GroupBy)
	assert.NotNil(t, sel.Having)
}

func TestParseJoin(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM orders o JOIN users u ON o.user_id = u.id`)
	require.NoError(t, err)
	sel := stmt.(*SelectStatement)
	require.Len(t, sel.Joins, 1)
	assert.Equal(t, JoinInner, sel.Joins[0].Kind)
	assert.Equal(t, "users", sel.Joins[0].Collection)
}

func TestParseRejectsTrailingGarbage(t *testing.T) {
	_, err := Parse(`SELECT * FROM users u GARBAGE`)
	assert.Error(t, err)
}

func TestParseRejectsUnterminatedExpression(t *testing.T) {
	_, err := Parse(`SELECT * FROM users WHERE id =`)
	assert.Error(t, err)
}
