package sstable

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTable(t *testing.T, name string, entries []Entry, stride int) *SSTable {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, Write(path, entries, stride))
	tbl, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func TestWriteOpenFindRoundTrip(t *testing.T) {
	entries := []Entry{
		{Key: "a", Value: []byte("alpha")},
		{Key: "b", Value: []byte("beta")},
		{Key: "c", Tombstone: true},
	}
	tbl := writeTable(t, "t1.db", entries, 16)

	v, tomb, found := tbl.Find("a")
	require.True(t, found)
	assert.False(t, tomb)
	assert.Equal(t, []byte("alpha"), v)

	_, tomb, found = tbl.Find("c")
	require.True(t, found)
	assert.True(t, tomb)

	_, _, found = tbl.Find("missing")
	assert.False(t, found)
}

func TestScanReturnsEntriesInKeyOrder(t *testing.T) {
	entries := []Entry{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
		{Key: "c", Tombstone: true},
	}
	tbl := writeTable(t, "t1.db", entries, 16)
	scanned := tbl.Scan()
	require.Len(t, scanned, 3)
	assert.Equal(t, "a", scanned[0].Key)
	assert.Equal(t, "b", scanned[1].Key)
	assert.True(t, scanned[2].Tombstone)
}

func TestSparseIndexStrideDoesNotAffectFindCorrectness(t *testing.T) {
	var entries []Entry
	for i := 0; i < 100; i++ {
		entries = append(entries, Entry{Key: fmt.Sprintf("key%03d", i), Value: []byte{byte(i)}})
	}
	tbl := writeTable(t, "t1.db", entries, 8)
	for _, e := range entries {
		v, tomb, found := tbl.Find(e.Key)
		require.True(t, found, e.Key)
		assert.False(t, tomb)
		assert.Equal(t, e.Value, v)
	}
}

func TestOpenDetectsCorruptedDataCRC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.db")
	require.NoError(t, Write(path, []Entry{{Key: "a", Value: []byte("alpha")}}, 16))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	b[0] ^= 0xFF // flip a byte inside the data section
	require.NoError(t, os.WriteFile(path, b, 0644))

	tbl, err := Open(path)
	require.NoError(t, err)
	defer tbl.Close()

	_, _, found := tbl.Find("a")
	assert.False(t, found, "a corrupted table must behave as empty, not error")
	assert.Empty(t, tbl.Scan())
}

func TestMergeNewestWinsOnDuplicateKeys(t *testing.T) {
	newer := writeTable(t, "newer.db", []Entry{{Key: "a", Value: []byte("v2")}}, 16)
	older := writeTable(t, "older.db", []Entry{{Key: "a", Value: []byte("v1")}, {Key: "b", Value: []byte("b1")}}, 16)

	outPath := filepath.Join(t.TempDir(), "merged.db")
	require.NoError(t, Merge([]*SSTable{newer, older}, outPath, 16, true))

	merged, err := Open(outPath)
	require.NoError(t, err)
	defer merged.Close()

	v, _, found := merged.Find("a")
	require.True(t, found)
	assert.Equal(t, []byte("v2"), v)
	v, _, found = merged.Find("b")
	require.True(t, found)
	assert.Equal(t, []byte("b1"), v)
}

func TestMergeDropsTombstonesOnlyWhenFull(t *testing.T) {
	withTombstone := writeTable(t, "a.db", []Entry{{Key: "a", Tombstone: true}}, 16)

	fullOut := filepath.Join(t.TempDir(), "full.db")
	require.NoError(t, Merge([]*SSTable{withTombstone}, fullOut, 16, true))
	fullTbl, err := Open(fullOut)
	require.NoError(t, err)
	defer fullTbl.Close()
	assert.Empty(t, fullTbl.Scan(), "a full compaction must drop the tombstone entirely")

	partialOut := filepath.Join(t.TempDir(), "partial.db")
	require.NoError(t, Merge([]*SSTable{withTombstone}, partialOut, 16, false))
	partialTbl, err := Open(partialOut)
	require.NoError(t, err)
	defer partialTbl.Close()
	_, tomb, found := partialTbl.Find("a")
	require.True(t, found, "a partial compaction must keep the tombstone so older values stay shadowed")
	assert.True(t, tomb)
}
