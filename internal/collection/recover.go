package collection

import (
	"io"
	"os"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/tisserr"
	"github.com/tissdb/tissdb/internal/wal"
)

// recoverWAL replays wal.log into the memtable and indexer at startup (spec
// §4.3/§4.9: "a TXN_COMMIT record only produces visible mutations on
// replay"; a record with no matching commit — e.g. a torn tail from a crash
// mid-append — is simply absent from the stream WAL.ReadAll returns, since
// its reader already treats a torn tail as io.EOF). Runs before the
// compaction goroutine starts, so no locking is needed here.
func (c *Collection) recoverWAL() error {
	path := c.walPath()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return tisserr.NewDurability("collection.recoverWAL.open", err)
	}
	defer f.Close()

	records, err := wal.ReadAll(f)
	if err != nil && err != io.EOF {
		return err
	}

	for _, r := range records {
		switch r.Type {
		case wal.EntryPut:
			doc, err := document.Deserialize(r.Payload)
			if err != nil {
				return err
			}
			if err := c.putLocked(r.DocID, doc, false); err != nil {
				return err
			}
		case wal.EntryDelete:
			if err := c.delLocked(r.DocID, false); err != nil {
				return err
			}
		case wal.EntryTxnCommit:
			ops, err := wal.DecodeOps(r.Payload)
			if err != nil {
				return err
			}
			if err := c.applyOps(ops); err != nil {
				return err
			}
		case wal.EntryTxnAbort:
			// Staged-but-never-committed ops were never applied in memory;
			// nothing to undo.
		}
	}
	return nil
}

// applyOps replays a transaction's staged operations during recovery or
// during commit itself (internal/txn reaches it through ApplyCommittedOps on
// each participant collection once the Tree's shared-WAL commit record is
// durable).
func (c *Collection) applyOps(ops []wal.Op) error {
	for _, op := range ops {
		if op.Collection != c.Name {
			continue
		}
		switch op.Type {
		case wal.EntryPut:
			doc, err := document.Deserialize(op.Doc)
			if err != nil {
				return err
			}
			if err := c.putLocked(op.DocID, doc, false); err != nil {
				return err
			}
		case wal.EntryDelete:
			if err := c.delLocked(op.DocID, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Collection) walPath() string {
	return c.dir + "/wal.log"
}

// ApplyCommittedOps is the exported entry point internal/txn and
// internal/lsmtree's shared-WAL recovery use once a transaction's commit
// record is durable: it applies this collection's share of ops to
// memtable/indexer without appending another WAL record (the Tree-level
// shared commit record already covers them, spec §4.10).
func (c *Collection) ApplyCommittedOps(ops []wal.Op) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.applyOps(ops); err != nil {
		return err
	}
	if c.mem.IsFull() {
		return c.flushLocked()
	}
	return nil
}
