package memtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tissdb/tissdb/internal/document"
)

func doc(id, field, value string) document.Document {
	return document.New(id, document.Element{Key: field, Value: document.NewString(value)})
}

func TestPutThenGet(t *testing.T) {
	m := New(0)
	m.Put("k1", doc("k1", "name", "alice"))

	e, ok := m.Get("k1")
	require.True(t, ok)
	require.False(t, e.IsTombstone())
	v, _ := e.Doc.Get("name")
	assert.Equal(t, "alice", v.Str)
}

func TestGetMissingKeyNotFound(t *testing.T) {
	m := New(0)
	_, ok := m.Get("missing")
	assert.False(t, ok)
}

func TestDelWritesTombstone(t *testing.T) {
	m := New(0)
	m.Put("k1", doc("k1", "name", "alice"))
	m.Del("k1")

	e, ok := m.Get("k1")
	require.True(t, ok)
	assert.True(t, e.IsTombstone())
}

func TestScanOrdersByKeyAndIncludesTombstones(t *testing.T) {
	m := New(0)
	m.Put("b", doc("b", "name", "bob"))
	m.Put("a", doc("a", "name", "alice"))
	m.Del("c")

	entries := m.Scan()
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "b", entries[1].Key)
	assert.Equal(t, "c", entries[2].Key)
	assert.True(t, entries[2].Entry.IsTombstone())
}

func TestApproximateSizeTracksPutAndDel(t *testing.T) {
	m := New(0)
	m.Put("k1", doc("k1", "name", "alice"))
	afterPut := m.ApproximateSize()
	assert.Positive(t, afterPut)

	// Overwriting with a shorter value should adjust, not double-count.
	m.Put("k1", doc("k1", "name", "al"))
	afterOverwrite := m.ApproximateSize()
	assert.Less(t, afterOverwrite, afterPut)

	m.Del("k1")
	afterDel := m.ApproximateSize()
	assert.NotEqual(t, afterOverwrite, afterDel)
}

func TestIsFullRespectsThreshold(t *testing.T) {
	m := New(10)
	assert.False(t, m.IsFull())
	m.Put("k1", doc("k1", "name", "a-very-long-value-to-exceed-threshold"))
	assert.True(t, m.IsFull())
}

func TestClearResetsState(t *testing.T) {
	m := New(0)
	m.Put("k1", doc("k1", "name", "alice"))
	m.Clear()

	assert.Equal(t, 0, m.Len())
	assert.Equal(t, int64(0), m.ApproximateSize())
	_, ok := m.Get("k1")
	assert.False(t, ok)
}

func TestLenCountsLiveAndTombstoned(t *testing.T) {
	m := New(0)
	m.Put("k1", doc("k1", "name", "a"))
	m.Del("k2")
	assert.Equal(t, 2, m.Len())
}

func TestPutClonesDocument(t *testing.T) {
	d := doc("k1", "name", "alice")
	m := New(0)
	m.Put("k1", d)
	d = d.Set("name", document.NewString("mutated"))

	e, _ := m.Get("k1")
	v, _ := e.Doc.Get("name")
	assert.Equal(t, "alice", v.Str, "memtable entry must not alias the caller's document")
}
