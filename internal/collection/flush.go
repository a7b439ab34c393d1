package collection

import (
	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/metrics"
	"github.com/tissdb/tissdb/internal/sstable"
)

// flushLocked writes the current memtable out as a new SSTable (newest-first
// in c.sstables), truncates the WAL, and resets the memtable. Caller must
// hold writeMu (spec §4.8: "flush: serialize memtable to SSTable, clear WAL").
func (c *Collection) flushLocked() error {
	if c.met != nil {
		defer metrics.Timer(c.met.FlushDuration)()
	}
	scanned := c.mem.Scan()
	if len(scanned) == 0 {
		return nil
	}
	entries := make([]sstable.Entry, 0, len(scanned))
	for _, e := range scanned {
		if e.Entry.IsTombstone() {
			entries = append(entries, sstable.Entry{Key: e.Key, Tombstone: true})
			continue
		}
		raw := document.MustSerialize(*e.Entry.Doc)
		entries = append(entries, sstable.Entry{Key: e.Key, Value: raw})
	}
	path := c.nextSSTablePath()
	if err := sstable.Write(path, entries, c.opts.SparseIndexStride); err != nil {
		return err
	}
	table, err := sstable.Open(path)
	if err != nil {
		return err
	}

	c.sstMu.Lock()
	c.sstables = append([]*sstable.SSTable{table}, c.sstables...)
	c.sstMu.Unlock()

	c.mem.Clear()
	if err := c.walw.Truncate(); err != nil {
		return err
	}
	if c.met != nil {
		c.met.FlushCount.Inc()
	}
	return nil
}

// Flush forces an out-of-band flush regardless of the memtable's fill level,
// used by the backup CLI to guarantee SSTables reflect all acknowledged
// writes before a snapshot copy.
func (c *Collection) Flush() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.flushLocked()
}
