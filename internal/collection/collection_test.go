package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/indexer"
	"github.com/tissdb/tissdb/internal/wal"
)

func open(t *testing.T) *Collection {
	t.Helper()
	c, err := Open(t.TempDir(), "docs", DefaultOptions(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func doc(id, name string) document.Document {
	return document.New(id, document.Element{Key: "name", Value: document.NewString(name)})
}

func TestPutThenGetRoundTrip(t *testing.T) {
	c := open(t)
	require.NoError(t, c.Put("d1", doc("d1", "alice")))

	got, found, err := c.Get("d1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.Equal(doc("d1", "alice")))
}

func TestDelShadowsPriorPut(t *testing.T) {
	c := open(t)
	require.NoError(t, c.Put("d1", doc("d1", "alice")))
	require.NoError(t, c.Del("d1"))

	_, found, err := c.Get("d1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFlushThenGetStillResolves(t *testing.T) {
	c := open(t)
	require.NoError(t, c.Put("d1", doc("d1", "alice")))
	require.NoError(t, c.Flush())

	got, found, err := c.Get("d1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", mustName(got))
}

func TestTombstoneSurvivesFlushAndCompact(t *testing.T) {
	c := open(t)
	require.NoError(t, c.Put("d1", doc("d1", "alice")))
	require.NoError(t, c.Flush())
	require.NoError(t, c.Del("d1"))
	require.NoError(t, c.Flush())
	require.NoError(t, c.Compact())

	_, found, err := c.Get("d1")
	require.NoError(t, err)
	assert.False(t, found, "a compacted, fully-merged table must drop the deleted key entirely")
}

func TestScanMergesMemtableAndSSTablesNewestWins(t *testing.T) {
	c := open(t)
	require.NoError(t, c.Put("d1", doc("d1", "alice")))
	require.NoError(t, c.Flush())
	require.NoError(t, c.Put("d1", doc("d1", "alice2")))
	require.NoError(t, c.Put("d2", doc("d2", "bob")))

	docs, err := c.Scan()
	require.NoError(t, err)
	require.Len(t, docs, 2)

	byID := map[string]document.Document{}
	for _, d := range docs {
		byID[d.ID] = d
	}
	assert.Equal(t, "alice2", mustName(byID["d1"]))
	assert.Equal(t, "bob", mustName(byID["d2"]))
}

func TestRecoverWALReplaysUncommittedWrites(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, "docs", DefaultOptions(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, c.Put("d1", doc("d1", "alice")))
	require.NoError(t, c.Put("d2", doc("d2", "bob")))
	require.NoError(t, c.Del("d2"))
	require.NoError(t, c.Close())

	reopened, err := Open(dir, "docs", DefaultOptions(), nil, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, found, err := reopened.Get("d1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "alice", mustName(got))

	_, found, err = reopened.Get("d2")
	require.NoError(t, err)
	assert.False(t, found, "tombstone for d2 must replay from the WAL")
}

func TestSchemaValidationRejectsMissingRequiredField(t *testing.T) {
	c := open(t)
	c.SetSchema(document.Schema{
		Fields: []document.FieldSchema{{Name: "name", Type: document.FieldString, Required: true}},
	})
	err := c.Put("d1", document.New("d1"))
	assert.Error(t, err)
}

func TestSchemaValidationRejectsWrongType(t *testing.T) {
	c := open(t)
	c.SetSchema(document.Schema{
		Fields: []document.FieldSchema{{Name: "name", Type: document.FieldString}},
	})
	bad := document.New("d1", document.Element{Key: "name", Value: document.NewFloat64(1)})
	assert.Error(t, c.Put("d1", bad))
}

func TestPrimaryKeyMismatchIsRejected(t *testing.T) {
	c := open(t)
	c.SetSchema(document.Schema{PrimaryKey: []string{"name"}})
	err := c.Put("wrong-key", doc("wrong-key", "alice"))
	assert.Error(t, err)
}

func TestSchemaUniqueFieldRejectsDuplicate(t *testing.T) {
	c := open(t)
	c.SetSchema(document.Schema{
		Fields: []document.FieldSchema{{Name: "name", Type: document.FieldString, Unique: true}},
	})
	require.NoError(t, c.Put("d1", doc("d1", "alice")))
	err := c.Put("d2", doc("d2", "alice"))
	assert.Error(t, err)
}

type fakeResolver struct {
	docs map[string]document.Document
}

func (f *fakeResolver) GetDocument(_, docID string) (document.Document, bool, error) {
	d, ok := f.docs[docID]
	return d, ok, nil
}

func TestForeignKeyViolationIsRejectedWhenResolverMisses(t *testing.T) {
	c := open(t)
	c.SetResolver(&fakeResolver{docs: map[string]document.Document{}})
	c.SetSchema(document.Schema{
		ForeignKeys: []document.ForeignKey{{LocalField: "owner_id", RefCollection: "users", RefField: "_id"}},
	})
	bad := document.New("d1", document.Element{Key: "owner_id", Value: document.NewString("missing-user")})
	assert.Error(t, c.Put("d1", bad))
}

func TestForeignKeyIsAcceptedWhenResolverHits(t *testing.T) {
	c := open(t)
	c.SetResolver(&fakeResolver{docs: map[string]document.Document{"u1": doc("u1", "alice")}})
	c.SetSchema(document.Schema{
		ForeignKeys: []document.ForeignKey{{LocalField: "owner_id", RefCollection: "users", RefField: "_id"}},
	})
	ok := document.New("d1", document.Element{Key: "owner_id", Value: document.NewString("u1")})
	assert.NoError(t, c.Put("d1", ok))
}

func TestCreateIndexBackfillsExistingDocuments(t *testing.T) {
	c := open(t)
	require.NoError(t, c.Put("d1", doc("d1", "alice")))
	require.NoError(t, c.Put("d2", doc("d2", "bob")))

	require.NoError(t, c.CreateIndex("by_name", []string{"name"}, false, indexer.TypeString))
	assert.True(t, c.HasIndex("by_name"))

	ids, err := c.Indexer().FindByIndex("by_name", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)
}

func TestValidateOpsRejectsWithoutMutatingState(t *testing.T) {
	c := open(t)
	c.SetSchema(document.Schema{
		Fields: []document.FieldSchema{{Name: "name", Type: document.FieldString, Required: true}},
	})

	valid := wal.Op{Type: wal.EntryPut, Collection: c.Name, DocID: "d1", Doc: document.MustSerialize(doc("d1", "alice"))}
	assert.NoError(t, c.ValidateOps([]wal.Op{valid}))

	invalid := wal.Op{Type: wal.EntryPut, Collection: c.Name, DocID: "d2", Doc: document.MustSerialize(document.New("d2"))}
	assert.Error(t, c.ValidateOps([]wal.Op{invalid}))

	// ValidateOps is a pure pre-check: neither call should have touched the
	// memtable.
	docs, err := c.Scan()
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func mustName(d document.Document) string {
	v, _ := d.Get("name")
	return v.Str
}
