package sinew

import "github.com/tissdb/tissdb/internal/tisserr"

// Transaction is a handle over a session's in-progress BEGIN (spec §4.14),
// grounded on original_source/quanta_tissu/tissu_sinew.h/.cpp's
// TissuTransaction: commit/rollback transition it to terminal, and an active
// transaction that is never explicitly resolved rolls back instead.
type Transaction struct {
	session *Session
	active  bool
}

// Commit sends COMMIT and marks the transaction terminal.
func (t *Transaction) Commit() error {
	if !t.active {
		return tisserr.NewQuery("transaction is not active")
	}
	if _, err := t.session.Run("COMMIT"); err != nil {
		return err
	}
	t.active = false
	return nil
}

// Rollback sends ROLLBACK and marks the transaction terminal.
func (t *Transaction) Rollback() error {
	if !t.active {
		return tisserr.NewQuery("transaction is not active")
	}
	if _, err := t.session.Run("ROLLBACK"); err != nil {
		return err
	}
	t.active = false
	return nil
}

// Close rolls back the transaction if it is still active. Callers that hold
// a Transaction in a defer should defer Close immediately after
// BeginTransaction succeeds, mirroring the destructor-rollback guarantee
// original_source's ~TissuTransaction provides in C++.
func (t *Transaction) Close() error {
	if !t.active {
		return nil
	}
	return t.Rollback()
}
