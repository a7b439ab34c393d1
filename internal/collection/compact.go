package collection

import (
	"os"
	"time"

	"github.com/tissdb/tissdb/internal/metrics"
	"github.com/tissdb/tissdb/internal/sstable"
)

// compactionLoop runs until stopCompaction is closed, periodically merging
// the SSTable set when it grows past CompactionTrigger (spec §4.5/§4.8,
// grounded on original_source/storage/collection.h's background compaction
// thread — here a goroutine plus a ticker rather than a pthread).
func (c *Collection) compactionLoop() {
	defer close(c.compactionDone)
	ticker := time.NewTicker(c.opts.CompactionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCompaction:
			return
		case <-ticker.C:
			c.maybeCompact()
		}
	}
}

func (c *Collection) maybeCompact() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.sstMu.RLock()
	count := len(c.sstables)
	c.sstMu.RUnlock()
	if count < c.opts.CompactionTrigger {
		return
	}
	// compactLocked always snapshots and merges the entire current sstables
	// list, so every compaction it runs is a full one regardless of how far
	// count has grown past the trigger (matches Compact() below).
	if err := c.compactLocked(true); err != nil && c.log != nil {
		c.log.Error().Err(err).Str("collection", c.Name).Msg("compaction failed")
	}
}

// compactLocked merges every current SSTable into one and replaces the list
// in place. dropTombstones is only safe when the merge covers every table
// (a "complete" compaction, spec §4.5); a partial compaction retains them so
// an older, not-yet-merged table's live value isn't resurrected.
func (c *Collection) compactLocked(full bool) error {
	if c.met != nil {
		defer metrics.Timer(c.met.CompactDuration)()
	}
	c.sstMu.Lock()
	tables := append([]*sstable.SSTable(nil), c.sstables...)
	c.sstMu.Unlock()
	if len(tables) < 2 {
		return nil
	}

	outPath := c.nextSSTablePath()
	if err := sstable.Merge(tables, outPath, c.opts.SparseIndexStride, full); err != nil {
		return err
	}
	merged, err := sstable.Open(outPath)
	if err != nil {
		return err
	}

	c.sstMu.Lock()
	oldPaths := make([]string, 0, len(c.sstables))
	for _, t := range c.sstables {
		oldPaths = append(oldPaths, t.Path)
		t.Close()
	}
	c.sstables = []*sstable.SSTable{merged}
	c.sstMu.Unlock()

	for _, p := range oldPaths {
		_ = os.Remove(p)
	}
	if c.met != nil {
		c.met.CompactCount.Inc()
	}
	return nil
}

// Compact forces an immediate full compaction, used by the backup CLI's
// backup command before it archives the data directory, and by tests.
func (c *Collection) Compact() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.compactLocked(true)
}
