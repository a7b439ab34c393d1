package dbmanager

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tissdb/tissdb/internal/collection"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	log := zerolog.Nop()
	reg := prometheus.NewRegistry()
	mgr, err := New(t.TempDir(), collection.DefaultOptions(), &log, reg)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Shutdown() })
	return mgr
}

func TestCreateAndGetDatabase(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.CreateDatabase("shop"))
	assert.True(t, mgr.DatabaseExists("shop"))

	tree, err := mgr.GetDatabase("shop")
	require.NoError(t, err)
	assert.NotNil(t, tree)
}

func TestCreateDatabaseIsIdempotent(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.CreateDatabase("shop"))
	require.NoError(t, mgr.CreateDatabase("shop"))
	assert.Equal(t, []string{"shop"}, mgr.ListDatabases())
}

func TestGetDatabaseNotFound(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.GetDatabase("missing")
	assert.Error(t, err)
}

func TestDeleteDatabaseRemovesIt(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.CreateDatabase("shop"))
	require.NoError(t, mgr.DeleteDatabase("shop"))
	assert.False(t, mgr.DatabaseExists("shop"))

	_, err := mgr.GetDatabase("shop")
	assert.Error(t, err)
}

func TestDeleteDatabaseNotFound(t *testing.T) {
	mgr := newTestManager(t)
	err := mgr.DeleteDatabase("missing")
	assert.Error(t, err)
}

func TestListDatabasesSorted(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.CreateDatabase("zebra"))
	require.NoError(t, mgr.CreateDatabase("apple"))
	assert.Equal(t, []string{"apple", "zebra"}, mgr.ListDatabases())
}

func TestBasePath(t *testing.T) {
	mgr := newTestManager(t)
	assert.NotEmpty(t, mgr.BasePath())
}
