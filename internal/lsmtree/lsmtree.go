// Package lsmtree is the per-database root: it owns every collection,
// routes document operations to the right one, and wires cross-collection
// concerns (foreign key resolution, transaction commit) that a single
// Collection cannot see on its own. Grounded on original_source/storage/
// lsm_tree.h/.cpp's LSMTree (collections_ map, create_collection/put/get/
// del/scan/create_index/find_by_index/begin_transaction dispatch table).
package lsmtree

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tissdb/tissdb/internal/collection"
	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/indexer"
	"github.com/tissdb/tissdb/internal/metrics"
	"github.com/tissdb/tissdb/internal/tisserr"
	"github.com/tissdb/tissdb/internal/txn"
	"github.com/tissdb/tissdb/internal/wal"
)

// sharedWALFile is the Tree-level shared WAL spec §4.10 requires for
// cross-collection commit records — distinct from each collection's own
// wal.log, which only ever carries that collection's non-transactional
// Put/Delete entries.
const sharedWALFile = "txn_wal.log"

// Tree is one open database: a directory of collection subdirectories plus
// a shared transaction manager and the shared WAL backing it.
type Tree struct {
	dir  string
	opts collection.Options
	log  *zerolog.Logger
	met  *metrics.Collector

	mu          sync.RWMutex
	collections map[string]*collection.Collection

	txnMgr *txn.Manager

	// txnWALGate serializes shared-WAL appends (RLock, many concurrent
	// commits) against checkpoint truncation (Lock, exclusive): a
	// checkpoint must never truncate a commit record a concurrent Commit
	// just appended.
	txnWALGate sync.RWMutex
	txnWAL     *wal.Writer

	stopCheckpoint chan struct{}
	checkpointDone chan struct{}
}

// Open opens every collection subdirectory under dir, replays each
// collection's own WAL (each collection.Open does this for itself), then
// replays the Tree-level shared WAL so cross-collection commits are
// recovered last, on top of single-collection state (spec §4.9/§4.10: "on
// startup, every WAL is replayed before the database is considered open").
func Open(dir string, opts collection.Options, log *zerolog.Logger, reg prometheus.Registerer) (*Tree, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, tisserr.NewDurability("lsmtree.Open.mkdir", err)
	}
	var met *metrics.Collector
	if reg != nil {
		met = metrics.New(reg)
	}
	t := &Tree{
		dir:            dir,
		opts:           opts,
		log:            log,
		met:            met,
		collections:    make(map[string]*collection.Collection),
		stopCheckpoint: make(chan struct{}),
		checkpointDone: make(chan struct{}),
	}
	t.txnMgr = txn.NewManager(t)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, tisserr.NewDurability("lsmtree.Open.readdir", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		c, err := collection.Open(dir, e.Name(), opts, log, met)
		if err != nil {
			return nil, err
		}
		c.SetResolver(t)
		t.collections[e.Name()] = c
	}

	w, err := wal.NewWriter(filepath.Join(dir, sharedWALFile), wal.DefaultOptions(), log)
	if err != nil {
		return nil, err
	}
	t.txnWAL = w
	if err := t.recoverSharedWAL(); err != nil {
		return nil, err
	}

	go t.checkpointLoop()
	return t, nil
}

// recoverSharedWAL replays txn_wal.log's TXN_COMMIT records into each
// participating collection's memtable/indexer (spec §4.10). Each record may
// span several collections; ops are regrouped by collection name before
// ApplyCommittedOps is called so each collection only sees its own share. A
// collection named in an old record that no longer exists (since deleted)
// is silently skipped — there is nothing left to apply it to.
func (t *Tree) recoverSharedWAL() error {
	path := filepath.Join(t.dir, sharedWALFile)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return tisserr.NewDurability("lsmtree.recoverSharedWAL.open", err)
	}
	defer f.Close()

	records, err := wal.ReadAll(f)
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.Type != wal.EntryTxnCommit {
			continue
		}
		ops, err := wal.DecodeOps(r.Payload)
		if err != nil {
			return err
		}
		byCollection := make(map[string][]wal.Op)
		for _, op := range ops {
			byCollection[op.Collection] = append(byCollection[op.Collection], op)
		}
		for name, collOps := range byCollection {
			c, ok := t.collections[name]
			if !ok {
				continue
			}
			if err := c.ApplyCommittedOps(collOps); err != nil {
				return err
			}
		}
	}
	return nil
}

// AppendSharedCommit implements txn.CollectionProvider: it writes a single
// fsync'd TXN_COMMIT record to the Tree-level shared WAL covering every op
// of a cross-collection transaction, regardless of how many collections it
// touches (spec §4.10). internal/txn calls this once per commit, after every
// participant has validated its share and before any in-memory state
// changes.
func (t *Tree) AppendSharedCommit(txnID int64, ops []wal.Op) error {
	payload, err := wal.EncodeOps(ops)
	if err != nil {
		return err
	}
	t.txnWALGate.RLock()
	defer t.txnWALGate.RUnlock()
	return t.txnWAL.Append(wal.Record{Type: wal.EntryTxnCommit, TxnID: txnID, Payload: payload})
}

// checkpointLoop periodically reclaims the shared WAL once every
// collection's memtable has absorbed and flushed its share of committed ops,
// mirroring internal/collection/compact.go's ticker-driven background loop.
func (t *Tree) checkpointLoop() {
	defer close(t.checkpointDone)
	ticker := time.NewTicker(t.opts.CompactionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCheckpoint:
			return
		case <-ticker.C:
			t.checkpointTxnWAL()
		}
	}
}

// checkpointTxnWAL forces every collection to flush its memtable, then
// truncates the shared WAL: once every collection has flushed, every commit
// record previously appended to it is now also durable in some SSTable, so
// the shared WAL no longer needs to carry them for recovery. Holding
// txnWALGate's write side excludes any commit from appending a new record
// mid-checkpoint, so nothing written after the flush pass is ever dropped.
func (t *Tree) checkpointTxnWAL() {
	t.mu.RLock()
	colls := make([]*collection.Collection, 0, len(t.collections))
	for _, c := range t.collections {
		colls = append(colls, c)
	}
	t.mu.RUnlock()

	t.txnWALGate.Lock()
	defer t.txnWALGate.Unlock()
	for _, c := range colls {
		if err := c.Flush(); err != nil {
			if t.log != nil {
				t.log.Error().Err(err).Str("collection", c.Name).Msg("txn wal checkpoint flush failed")
			}
			return
		}
	}
	if err := t.txnWAL.Truncate(); err != nil && t.log != nil {
		t.log.Error().Err(err).Msg("txn wal checkpoint truncate failed")
	}
}

// CreateCollection creates a new (or reopens an existing) collection with
// the given schema (spec §4.9: create_collection).
func (t *Tree) CreateCollection(name string, schema document.Schema) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.collections[name]; exists {
		return nil
	}
	c, err := collection.Open(t.dir, name, t.opts, t.log, t.met)
	if err != nil {
		return err
	}
	c.SetSchema(schema)
	c.SetResolver(t)
	t.collections[name] = c
	return nil
}

// DeleteCollection closes and removes a collection's on-disk state entirely.
func (t *Tree) DeleteCollection(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.collections[name]
	if !ok {
		return tisserr.NewCollectionNotFound(name)
	}
	if err := c.Close(); err != nil {
		return err
	}
	delete(t.collections, name)
	if err := os.RemoveAll(filepath.Join(t.dir, name)); err != nil {
		return tisserr.NewDurability("lsmtree.DeleteCollection", err)
	}
	return nil
}

// ListCollections returns every known collection name, sorted.
func (t *Tree) ListCollections() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.collections))
	for name := range t.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *Tree) lookup(name string) (*collection.Collection, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.collections[name]
	if !ok {
		return nil, tisserr.NewCollectionNotFound(name)
	}
	return c, nil
}

// Collection implements txn.CollectionProvider.
func (t *Tree) Collection(name string) (txn.CollectionHandle, error) { return t.lookup(name) }

// GetDocument implements collection.ForeignKeyResolver.
func (t *Tree) GetDocument(collectionName, docID string) (document.Document, bool, error) {
	c, err := t.lookup(collectionName)
	if err != nil {
		return document.Document{}, false, err
	}
	return c.Get(docID)
}

func (t *Tree) Put(collectionName, key string, doc document.Document) error {
	c, err := t.lookup(collectionName)
	if err != nil {
		return err
	}
	return c.Put(key, doc)
}

func (t *Tree) Get(collectionName, key string) (document.Document, bool, error) {
	c, err := t.lookup(collectionName)
	if err != nil {
		return document.Document{}, false, err
	}
	return c.Get(key)
}

func (t *Tree) GetMany(collectionName string, keys []string) (map[string]document.Document, error) {
	c, err := t.lookup(collectionName)
	if err != nil {
		return nil, err
	}
	return c.GetMany(keys), nil
}

func (t *Tree) Del(collectionName, key string) error {
	c, err := t.lookup(collectionName)
	if err != nil {
		return err
	}
	return c.Del(key)
}

func (t *Tree) Scan(collectionName string) ([]document.Document, error) {
	c, err := t.lookup(collectionName)
	if err != nil {
		return nil, err
	}
	return c.Scan()
}

func (t *Tree) CreateIndex(collectionName, indexName string, fields []string, unique bool, typ indexer.Type) error {
	c, err := t.lookup(collectionName)
	if err != nil {
		return err
	}
	return c.CreateIndex(indexName, fields, unique, typ)
}

func (t *Tree) HasIndex(collectionName, indexName string) bool {
	c, err := t.lookup(collectionName)
	if err != nil {
		return false
	}
	return c.HasIndex(indexName)
}

// Flush forces the named collection's memtable to disk, used by the backup
// tool (spec §6) to bring a collection to a consistent, fully-flushed state
// before its directory is archived.
func (t *Tree) Flush(collectionName string) error {
	c, err := t.lookup(collectionName)
	if err != nil {
		return err
	}
	return c.Flush()
}

// Compact forces a full merge of the named collection's SSTables, used by
// the backup tool to minimize the number of files an archive needs to carry.
func (t *Tree) Compact(collectionName string) error {
	c, err := t.lookup(collectionName)
	if err != nil {
		return err
	}
	return c.Compact()
}

// Schema returns the collection's registered schema, if any (spec §4.12's
// INSERT path needs it to compute a primary-key-derived document id).
func (t *Tree) Schema(collectionName string) (document.Schema, bool, error) {
	c, err := t.lookup(collectionName)
	if err != nil {
		return document.Schema{}, false, err
	}
	s, ok := c.Schema()
	return s, ok, nil
}

func (t *Tree) AvailableIndexes(collectionName string) ([]indexer.Def, error) {
	c, err := t.lookup(collectionName)
	if err != nil {
		return nil, err
	}
	return c.AvailableIndexes(), nil
}

func (t *Tree) FindByIndex(collectionName, indexName string, keyValues ...string) ([]string, error) {
	c, err := t.lookup(collectionName)
	if err != nil {
		return nil, err
	}
	return c.Indexer().FindByIndex(indexName, keyValues...)
}

func (t *Tree) FindByIndexPrefix(collectionName, indexName string, prefixValues ...string) ([]string, error) {
	c, err := t.lookup(collectionName)
	if err != nil {
		return nil, err
	}
	return c.Indexer().FindByIndexPrefix(indexName, prefixValues...)
}

func (t *Tree) FindByTimestampRange(collectionName, indexName string, lo, hi int64) ([]string, error) {
	c, err := t.lookup(collectionName)
	if err != nil {
		return nil, err
	}
	return c.Indexer().FindByTimestampRange(indexName, lo, hi)
}

// BeginTransaction allocates a new cross-collection transaction.
func (t *Tree) BeginTransaction() *txn.Transaction { return t.txnMgr.Begin() }

// Shutdown stops the checkpoint loop, closes the shared WAL, and closes
// every collection (spec §4.9: shutdown).
func (t *Tree) Shutdown() error {
	close(t.stopCheckpoint)
	<-t.checkpointDone

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.collections {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return t.txnWAL.Close()
}
