package sinew

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tissdb/tissdb/internal/document"
)

func TestSubstituteNamedParamsLongestKeyFirst(t *testing.T) {
	query := "SELECT * FROM users WHERE id = $id OR parent_id = $id2"
	named := map[string]document.Value{
		"id":  document.NewString("a"),
		"id2": document.NewString("b"),
	}
	got := substituteNamedParams(query, named)
	assert.Equal(t, `SELECT * FROM users WHERE id = "a" OR parent_id = "b"`, got)
}

func TestToQueryLiteral(t *testing.T) {
	assert.Equal(t, "null", toQueryLiteral(document.Null()))
	assert.Equal(t, `"a\"b"`, toQueryLiteral(document.NewString(`a"b`)))
	assert.Equal(t, "3.5", toQueryLiteral(document.NewFloat64(3.5)))
	assert.Equal(t, "true", toQueryLiteral(document.NewBool(true)))
	assert.Equal(t, "false", toQueryLiteral(document.NewBool(false)))
	assert.Equal(t, "100", toQueryLiteral(document.NewTimestamp(100)))
}
