// Package txn implements spec §4.9's cross-collection transaction manager:
// Begin/Stage/Commit/Rollback, with WAL-backed atomic commit and crash
// recovery via a single shared TXN_COMMIT record covering every participant
// (spec §4.10). Grounded on the teacher's pkg/storage/transaction_write.go
// (WriteTransaction: buffer writeOps, validate at Stage time, WAL-then-apply
// at Commit) and spec §5's single-writer, fixed-lock-order concurrency model
// (no MVCC).
package txn

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/tisserr"
	"github.com/tissdb/tissdb/internal/wal"
)

// CollectionHandle is the subset of *collection.Collection the transaction
// manager needs; defined here (rather than importing internal/collection
// directly) so internal/collection never has to import internal/txn back.
type CollectionHandle interface {
	Lock()
	Unlock()
	Put(key string, doc document.Document) error
	Del(key string) error
	Get(key string) (document.Document, bool, error)
	ValidateOps(ops []wal.Op) error
	ApplyCommittedOps(ops []wal.Op) error
}

// CollectionProvider resolves a collection by name and owns the Tree-level
// shared WAL a commit's single TXN_COMMIT record is written to (spec
// §4.10), implemented by internal/lsmtree.
type CollectionProvider interface {
	Collection(name string) (CollectionHandle, error)
	AppendSharedCommit(txnID int64, ops []wal.Op) error
}

// state enumerates a Transaction's lifecycle (spec §4.9).
type state uint8

const (
	stateActive state = iota
	stateCommitted
	stateRolledBack
)

// Manager allocates and tracks in-flight transactions.
type Manager struct {
	provider CollectionProvider
	nextID   int64

	mu    sync.Mutex
	txns  map[int64]*Transaction
}

func NewManager(provider CollectionProvider) *Manager {
	return &Manager{provider: provider, txns: make(map[int64]*Transaction)}
}

// Begin allocates a new transaction id and returns a handle to stage ops
// against (spec §4.9: "begin: allocate a transaction id").
func (m *Manager) Begin() *Transaction {
	id := atomic.AddInt64(&m.nextID, 1)
	t := &Transaction{id: id, mgr: m, state: stateActive}
	m.mu.Lock()
	m.txns[id] = t
	m.mu.Unlock()
	return t
}

func (m *Manager) forget(id int64) {
	m.mu.Lock()
	delete(m.txns, id)
	m.mu.Unlock()
}

// Transaction buffers staged Put/Del operations until Commit or Rollback
// (spec §4.9: "stage: buffer a put or delete without touching storage").
type Transaction struct {
	id    int64
	mgr   *Manager
	mu    sync.Mutex
	ops   []wal.Op
	state state
}

func (t *Transaction) ID() int64 { return t.id }

// Stage buffers a put; it is not durable or visible until Commit.
func (t *Transaction) Stage(collection, key string, doc document.Document) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateActive {
		return tisserr.NewTransactionNotActive(t.id)
	}
	raw := document.MustSerialize(doc)
	t.ops = append(t.ops, wal.Op{Type: wal.EntryPut, Collection: collection, DocID: key, Doc: raw})
	return nil
}

// StageDelete buffers a delete.
func (t *Transaction) StageDelete(collection, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateActive {
		return tisserr.NewTransactionNotActive(t.id)
	}
	t.ops = append(t.ops, wal.Op{Type: wal.EntryDelete, Collection: collection, DocID: key})
	return nil
}

// Rollback discards every staged op without ever touching the WAL or any
// collection's state (spec §4.9: staged ops have no effect until commit).
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateActive {
		return tisserr.NewTransactionAlreadyTerminal(t.id)
	}
	t.state = stateRolledBack
	t.ops = nil
	t.mgr.forget(t.id)
	return nil
}

// Commit durably applies every staged op (spec §4.9 step 1/§4.10: "acquire
// the collection write locks it needs in name order, validate every staged
// op against every participant, write one fsync'd TXN_COMMIT record covering
// all participants to the Tree's shared WAL, then apply"). Locks are
// acquired in sorted collection-name order so two transactions touching the
// same set of collections can never deadlock against each other (spec §5).
func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != stateActive {
		return tisserr.NewTransactionAlreadyTerminal(t.id)
	}
	if len(t.ops) == 0 {
		t.state = stateCommitted
		t.mgr.forget(t.id)
		return nil
	}

	byCollection := make(map[string][]wal.Op)
	var names []string
	for _, op := range t.ops {
		if _, seen := byCollection[op.Collection]; !seen {
			names = append(names, op.Collection)
		}
		byCollection[op.Collection] = append(byCollection[op.Collection], op)
	}
	sort.Strings(names)

	handles := make([]CollectionHandle, len(names))
	for i, name := range names {
		h, err := t.mgr.provider.Collection(name)
		if err != nil {
			return err
		}
		handles[i] = h
	}

	for _, h := range handles {
		h.Lock()
	}
	defer func() {
		for i := len(handles) - 1; i >= 0; i-- {
			handles[i].Unlock()
		}
	}()

	// Phase 0: validation. Every participant's share of ops must pass
	// schema/PK/FK/UNIQUE validation before anything is written to any WAL,
	// so a validation failure on one collection never leaves another
	// collection's commit record durable for a transaction the caller was
	// told failed.
	for i, name := range names {
		if err := handles[i].ValidateOps(byCollection[name]); err != nil {
			return err
		}
	}

	// Phase 1: durability. The whole transaction's ops, across every
	// participant, are fsynced as a single TXN_COMMIT record in the Tree's
	// shared WAL (spec §4.10) — one record, one fsync, all-or-nothing on
	// replay.
	if err := t.mgr.provider.AppendSharedCommit(t.id, t.ops); err != nil {
		return err
	}

	// Phase 2: visibility. Apply to memtable/indexer now that the commit
	// record is durable.
	for i, name := range names {
		if err := handles[i].ApplyCommittedOps(byCollection[name]); err != nil {
			return err
		}
	}

	t.state = stateCommitted
	t.mgr.forget(t.id)
	return nil
}
