package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/indexer"
)

// memoryDataSource is a bare-bones DataSource over an in-memory map, enough
// to exercise the executor's dispatch and row-processing logic without a
// real lsmtree.Tree.
type memoryDataSource struct {
	docs   map[string]map[string]document.Document // collection -> key -> doc
	schema map[string]document.Schema
}

func newMemoryDataSource() *memoryDataSource {
	return &memoryDataSource{
		docs:   make(map[string]map[string]document.Document),
		schema: make(map[string]document.Schema),
	}
}

func (m *memoryDataSource) Put(collection, key string, doc document.Document) error {
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]document.Document)
	}
	m.docs[collection][key] = doc
	return nil
}

func (m *memoryDataSource) Get(collection, key string) (document.Document, bool, error) {
	d, ok := m.docs[collection][key]
	return d, ok, nil
}

func (m *memoryDataSource) GetMany(collection string, keys []string) (map[string]document.Document, error) {
	out := make(map[string]document.Document)
	for _, k := range keys {
		if d, ok := m.docs[collection][k]; ok {
			out[k] = d
		}
	}
	return out, nil
}

func (m *memoryDataSource) Del(collection, key string) error {
	delete(m.docs[collection], key)
	return nil
}

func (m *memoryDataSource) Scan(collection string) ([]document.Document, error) {
	var out []document.Document
	for _, d := range m.docs[collection] {
		out = append(out, d)
	}
	return out, nil
}

func (m *memoryDataSource) Schema(collection string) (document.Schema, bool, error) {
	s, ok := m.schema[collection]
	return s, ok, nil
}

func (m *memoryDataSource) AvailableIndexes(collection string) ([]indexer.Def, error) {
	return nil, nil
}

func (m *memoryDataSource) FindByIndex(collection, index string, keyValues ...string) ([]string, error) {
	return nil, nil
}

func (m *memoryDataSource) FindByIndexPrefix(collection, index string, prefixValues ...string) ([]string, error) {
	return nil, nil
}

func TestExecuteInsertThenSelect(t *testing.T) {
	ds := newMemoryDataSource()
	ds.schema["users"] = document.Schema{PrimaryKey: []string{"id"}}
	ex := NewExecutor(ds)

	insStmt, err := Parse(`INSERT INTO users (id, name, age) VALUES ('u1', 'alice', 30)`)
	require.NoError(t, err)
	res, err := ex.Execute(insStmt, nil)
	require.NoError(t, err)
	assert.True(t, res.Inserted)

	selStmt, err := Parse(`SELECT * FROM users WHERE age > 18`)
	require.NoError(t, err)
	res, err = ex.Execute(selStmt, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	name, _ := res.Rows[0].Get("name")
	assert.Equal(t, "alice", name.Str)
}

func TestExecuteInsertRequiresKey(t *testing.T) {
	ds := newMemoryDataSource()
	ex := NewExecutor(ds)
	stmt, err := Parse(`INSERT INTO users (name) VALUES ('alice')`)
	require.NoError(t, err)
	_, err = ex.Execute(stmt, nil)
	assert.Error(t, err)
}

func TestExecuteUpdateAndDelete(t *testing.T) {
	ds := newMemoryDataSource()
	ds.schema["users"] = document.Schema{PrimaryKey: []string{"id"}}
	ex := NewExecutor(ds)

	insStmt, _ := Parse(`INSERT INTO users (id, age) VALUES ('u1', 30)`)
	_, err := ex.Execute(insStmt, nil)
	require.NoError(t, err)

	updStmt, _ := Parse(`UPDATE users SET age = 31 WHERE id = 'u1'`)
	res, err := ex.Execute(updStmt, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UpdatedCount)

	got, ok, _ := ds.Get("users", "u1")
	require.True(t, ok)
	age, _ := got.Get("age")
	assert.Equal(t, 31.0, age.Num)

	delStmt, _ := Parse(`DELETE FROM users WHERE id = 'u1'`)
	res, err = ex.Execute(delStmt, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DeletedCount)

	_, ok, _ = ds.Get("users", "u1")
	assert.False(t, ok)
}

func TestExecuteSelectWithParams(t *testing.T) {
	ds := newMemoryDataSource()
	ds.schema["users"] = document.Schema{PrimaryKey: []string{"id"}}
	ex := NewExecutor(ds)

	insStmt, _ := Parse(`INSERT INTO users (id, name) VALUES ('u1', 'alice')`)
	_, err := ex.Execute(insStmt, nil)
	require.NoError(t, err)

	selStmt, err := Parse(`SELECT * FROM users WHERE name = ?`)
	require.NoError(t, err)
	res, err := ex.Execute(selStmt, []document.Value{document.NewString("alice")})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

func TestExecuteSelectWrongParamCount(t *testing.T) {
	ds := newMemoryDataSource()
	ex := NewExecutor(ds)
	selStmt, err := Parse(`SELECT * FROM users WHERE name = ?`)
	require.NoError(t, err)
	_, err = ex.Execute(selStmt, nil)
	assert.Error(t, err)
}

func TestExecuteGroupByCount(t *testing.T) {
	ds := newMemoryDataSource()
	ds.schema["employees"] = document.Schema{PrimaryKey: []string{"id"}}
	ex := NewExecutor(ds)

	for _, row := range []struct {
		id, dept string
	}{
		{"e1", "eng"}, {"e2", "eng"}, {"e3", "sales"},
	} {
		stmt, _ := Parse(`INSERT INTO employees (id, dept) VALUES (?, ?)`)
		_, err := ex.Execute(stmt, []document.Value{document.NewString(row.id), document.NewString(row.dept)})
		require.NoError(t, err)
	}

	selStmt, err := Parse(`SELECT dept, COUNT(*) FROM employees GROUP BY dept HAVING COUNT(*) > 1`)
	require.NoError(t, err)
	res, err := ex.Execute(selStmt, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	dept, _ := res.Rows[0].Get("dept")
	assert.Equal(t, "eng", dept.Str)
}
