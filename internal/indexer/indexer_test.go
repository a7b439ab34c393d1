package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tissdb/tissdb/internal/document"
)

func doc(id, name string) document.Document {
	return document.New(id, document.Element{Key: "name", Value: document.NewString(name)})
}

func TestCreateIndexIsIdempotent(t *testing.T) {
	ix := New()
	require.NoError(t, ix.CreateIndex("by_name", []string{"name"}, false, TypeString))
	require.NoError(t, ix.CreateIndex("by_name", []string{"name"}, true, TypeString))
	assert.True(t, ix.HasIndex("by_name"))
	assert.Len(t, ix.AvailableIndexes(), 1)
}

func TestUpdateIndexesThenFindByIndex(t *testing.T) {
	ix := New()
	require.NoError(t, ix.CreateIndex("by_name", []string{"name"}, false, TypeString))

	require.NoError(t, ix.UpdateIndexes("d1", doc("d1", "alice")))
	require.NoError(t, ix.UpdateIndexes("d2", doc("d2", "bob")))

	ids, err := ix.FindByIndex("by_name", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)

	ids, err = ix.FindByIndex("by_name", "missing")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUpdateIndexesRejectsUniqueViolation(t *testing.T) {
	ix := New()
	require.NoError(t, ix.CreateIndex("by_name", []string{"name"}, true, TypeString))

	require.NoError(t, ix.UpdateIndexes("d1", doc("d1", "alice")))
	err := ix.UpdateIndexes("d2", doc("d2", "alice"))
	assert.Error(t, err)

	// Re-indexing the same doc id under its own existing key is not a
	// violation (re-put of an unchanged field).
	assert.NoError(t, ix.UpdateIndexes("d1", doc("d1", "alice")))
}

func TestRemoveFromIndexesDropsEmptyEntry(t *testing.T) {
	ix := New()
	require.NoError(t, ix.CreateIndex("by_name", []string{"name"}, false, TypeString))
	require.NoError(t, ix.UpdateIndexes("d1", doc("d1", "alice")))

	ix.RemoveFromIndexes("d1", doc("d1", "alice"))
	ids, err := ix.FindByIndex("by_name", "alice")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRemoveFromIndexesKeepsEntryWithOtherMembers(t *testing.T) {
	ix := New()
	require.NoError(t, ix.CreateIndex("by_name", []string{"name"}, false, TypeString))
	require.NoError(t, ix.UpdateIndexes("d1", doc("d1", "alice")))
	require.NoError(t, ix.UpdateIndexes("d2", doc("d2", "alice")))

	ix.RemoveFromIndexes("d1", doc("d1", "alice"))
	ids, err := ix.FindByIndex("by_name", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, ids)
}

func TestFindByIndexPrefixUnionsMatchingEntries(t *testing.T) {
	ix := New()
	require.NoError(t, ix.CreateIndex("by_country_city", []string{"country", "city"}, false, TypeString))

	mk := func(id, country, city string) document.Document {
		return document.New(id,
			document.Element{Key: "country", Value: document.NewString(country)},
			document.Element{Key: "city", Value: document.NewString(city)},
		)
	}
	require.NoError(t, ix.UpdateIndexes("d1", mk("d1", "us", "nyc")))
	require.NoError(t, ix.UpdateIndexes("d2", mk("d2", "us", "sf")))
	require.NoError(t, ix.UpdateIndexes("d3", mk("d3", "uk", "london")))

	ids, err := ix.FindByIndexPrefix("by_country_city", "us")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d1", "d2"}, ids)
}

func TestFindByTimestampRangeUnionsAndDedups(t *testing.T) {
	ix := New()
	require.NoError(t, ix.CreateIndex("by_created", []string{"created_at"}, false, TypeTimestamp))

	mk := func(id string, ts int64) document.Document {
		return document.New(id, document.Element{Key: "created_at", Value: document.NewTimestamp(ts)})
	}
	require.NoError(t, ix.UpdateIndexes("d1", mk("d1", 100)))
	require.NoError(t, ix.UpdateIndexes("d2", mk("d2", 200)))
	require.NoError(t, ix.UpdateIndexes("d3", mk("d3", 300)))

	ids, err := ix.FindByTimestampRange("by_created", 100, 200)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"d1", "d2"}, ids)
}

func TestFindByIndexOnUnknownIndexErrors(t *testing.T) {
	ix := New()
	_, err := ix.FindByIndex("nope", "x")
	assert.Error(t, err)
}

func TestSaveIndexesLoadIndexesRoundTrip(t *testing.T) {
	ix := New()
	require.NoError(t, ix.CreateIndex("by_name", []string{"name"}, true, TypeString))
	require.NoError(t, ix.CreateIndex("by_created", []string{"created_at"}, false, TypeTimestamp))

	require.NoError(t, ix.UpdateIndexes("d1", doc("d1", "alice")))
	require.NoError(t, ix.UpdateIndexes("d2", document.New("d2",
		document.Element{Key: "created_at", Value: document.NewTimestamp(42)})))

	dir := t.TempDir()
	require.NoError(t, ix.SaveIndexes(dir))

	loaded, err := LoadIndexes(dir)
	require.NoError(t, err)
	assert.True(t, loaded.HasIndex("by_name"))
	assert.True(t, loaded.HasIndex("by_created"))

	ids, err := loaded.FindByIndex("by_name", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids)

	ids, err = loaded.FindByTimestampRange("by_created", 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, ids)
}

func TestLoadIndexesOnMissingMetaReturnsEmptyIndexer(t *testing.T) {
	ix, err := LoadIndexes(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, ix.AvailableIndexes())
}
