// Package memtable implements the in-memory ordered key->(doc|tombstone) map
// (spec §4.4), grounded on original_source/storage/memtable.h's
// put/del/get/get_all/clear/approximate_size/scan contract.
package memtable

import (
	"sort"
	"sync"

	"github.com/tissdb/tissdb/internal/document"
)

// Entry is one memtable slot: Doc is nil for a tombstone (spec §3: "a null
// map-value represents a tombstone").
type Entry struct {
	Doc *document.Document
}

func (e Entry) IsTombstone() bool { return e.Doc == nil }

// Memtable is an ordered key->Entry map with byte-size accounting.
type Memtable struct {
	mu        sync.RWMutex
	data      map[string]Entry
	sizeBytes int64
	threshold int64
}

// DefaultFlushThreshold matches spec §4.4's default (4 MiB).
const DefaultFlushThreshold = 4 * 1024 * 1024

func New(threshold int64) *Memtable {
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	return &Memtable{data: make(map[string]Entry), threshold: threshold}
}

func entrySize(key string, doc *document.Document) int64 {
	n := int64(len(key))
	if doc != nil {
		n += int64(len(document.MustSerialize(*doc)))
	}
	return n
}

// Put inserts or overwrites doc for key, adjusting the size accounting by
// subtracting the prior entry's size and adding the new one's.
func (m *Memtable) Put(key string, doc document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.sizeBytes -= entrySize(key, old.Doc)
	}
	d := doc.Clone()
	m.data[key] = Entry{Doc: &d}
	m.sizeBytes += entrySize(key, &d)
}

// Del inserts a tombstone for key.
func (m *Memtable) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.data[key]; ok {
		m.sizeBytes -= entrySize(key, old.Doc)
	}
	m.data[key] = Entry{Doc: nil}
	m.sizeBytes += entrySize(key, nil)
}

// Get returns (entry, found). found is false only if key has never been
// written in this memtable; a tombstone is found=true with an empty Entry.
func (m *Memtable) Get(key string) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[key]
	return e, ok
}

// Scan yields all entries in key order, including tombstones.
func (m *Memtable) Scan() []struct {
	Key   string
	Entry Entry
} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]struct {
		Key   string
		Entry Entry
	}, len(keys))
	for i, k := range keys {
		out[i] = struct {
			Key   string
			Entry Entry
		}{Key: k, Entry: m.data[k]}
	}
	return out
}

// ApproximateSize returns the tracked byte-size accounting.
func (m *Memtable) ApproximateSize() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sizeBytes
}

// IsFull reports whether ApproximateSize has crossed the configured threshold.
func (m *Memtable) IsFull() bool {
	return m.ApproximateSize() >= m.threshold
}

// Clear empties the memtable (called after a successful flush to SSTable).
func (m *Memtable) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]Entry)
	m.sizeBytes = 0
}

// Len reports the number of distinct keys currently held (live + tombstoned).
func (m *Memtable) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
