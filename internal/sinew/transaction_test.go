package sinew

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionCommitRollbackLifecycle(t *testing.T) {
	sess := newTestSession(t, func(Request) string { return "OK" })
	txn, err := sess.BeginTransaction()
	require.NoError(t, err)

	require.NoError(t, txn.Commit())
	assert.Error(t, txn.Commit(), "committing twice must fail")
	assert.Error(t, txn.Rollback(), "rolling back a terminal transaction must fail")
}

func TestTransactionCloseRollsBackIfStillActive(t *testing.T) {
	var seen []string
	sess := newTestSession(t, func(req Request) string {
		seen = append(seen, req.Query)
		return "OK"
	})
	txn, err := sess.BeginTransaction()
	require.NoError(t, err)

	require.NoError(t, txn.Close())
	assert.Equal(t, []string{"BEGIN", "ROLLBACK"}, seen)

	// closing an already-terminal transaction is a no-op
	require.NoError(t, txn.Close())
}
