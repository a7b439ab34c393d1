package indexer

import (
	"strings"
	"sync"

	"github.com/tissdb/tissdb/internal/btree"
	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/tisserr"
)

// Type distinguishes a composite-string index from a timestamp-range index
// (spec §3/§4.7).
type Type uint8

const (
	TypeString Type = iota
	TypeTimestamp
)

// Def describes one registered index.
type Def struct {
	Name   string
	Fields []string
	Unique bool
	Type   Type
}

// Indexer owns one B-tree per registered index and enforces uniqueness on
// write (spec §4.7).
type Indexer struct {
	mu          sync.RWMutex
	defs        map[string]Def
	stringTrees map[string]*btree.Tree[string]
	tsTrees     map[string]*btree.Tree[int64]
}

func New() *Indexer {
	return &Indexer{
		defs:        make(map[string]Def),
		stringTrees: make(map[string]*btree.Tree[string]),
		tsTrees:     make(map[string]*btree.Tree[int64]),
	}
}

// CreateIndex registers a new index and backfills it by scanning docs
// (spec §4.8 "create_index: register and backfill by scanning current docs";
// the scan itself is driven by the caller — Collection — which has the doc set).
func (ix *Indexer) CreateIndex(name string, fields []string, unique bool, typ Type) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, exists := ix.defs[name]; exists {
		return nil
	}
	ix.defs[name] = Def{Name: name, Fields: fields, Unique: unique, Type: typ}
	switch typ {
	case TypeString:
		ix.stringTrees[name] = btree.New[string](btree.DefaultOrder)
	case TypeTimestamp:
		ix.tsTrees[name] = btree.New[int64](btree.DefaultOrder)
	}
	return nil
}

func (ix *Indexer) HasIndex(name string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.defs[name]
	return ok
}

// AvailableIndexes returns every registered index definition, for the query
// planner's index-selection step (spec §4.12).
func (ix *Indexer) AvailableIndexes() []Def {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Def, 0, len(ix.defs))
	for _, d := range ix.defs {
		out = append(out, d)
	}
	return out
}

// compositeKey joins the index's field values with NUL (spec §3).
func compositeKey(fields []string, doc document.Document) (string, bool) {
	parts := make([]string, len(fields))
	for i, f := range fields {
		v, ok := doc.Get(f)
		if !ok {
			return "", false
		}
		parts[i] = v.Comparable()
	}
	return strings.Join(parts, "\x00"), true
}

// UpdateIndexes adds docID to every applicable index's composite-key entry,
// enforcing UNIQUE (spec §4.7).
func (ix *Indexer) UpdateIndexes(docID string, doc document.Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, def := range ix.defs {
		switch def.Type {
		case TypeString:
			key, ok := compositeKey(def.Fields, doc)
			if !ok {
				continue
			}
			tree := ix.stringTrees[def.Name]
			existing, found := tree.Get(key)
			if def.Unique && found {
				ids := decodeDocIDs(existing)
				for _, id := range ids {
					if id != docID {
						return tisserr.NewUniqueViolation(def.Name, key)
					}
				}
			}
			tree.Put(key, addDocID(existing, docID))
		case TypeTimestamp:
			if len(def.Fields) != 1 {
				continue
			}
			v, ok := doc.Get(def.Fields[0])
			if !ok || v.Kind != document.KindTimestamp {
				continue
			}
			tree := ix.tsTrees[def.Name]
			existing, found := tree.Get(v.TS)
			if def.Unique && found {
				ids := decodeDocIDs(existing)
				for _, id := range ids {
					if id != docID {
						return tisserr.NewUniqueViolation(def.Name, v.Comparable())
					}
				}
			}
			tree.Put(v.TS, addDocID(existing, docID))
		}
	}
	return nil
}

// RemoveFromIndexes removes docID from every index entry computed from doc,
// erasing the entry entirely once its set becomes empty (spec §4.7).
func (ix *Indexer) RemoveFromIndexes(docID string, doc document.Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, def := range ix.defs {
		switch def.Type {
		case TypeString:
			key, ok := compositeKey(def.Fields, doc)
			if !ok {
				continue
			}
			tree := ix.stringTrees[def.Name]
			existing, found := tree.Get(key)
			if !found {
				continue
			}
			updated, empty := removeDocID(existing, docID)
			if empty {
				tree.Delete(key)
			} else {
				tree.Put(key, updated)
			}
		case TypeTimestamp:
			if len(def.Fields) != 1 {
				continue
			}
			v, ok := doc.Get(def.Fields[0])
			if !ok || v.Kind != document.KindTimestamp {
				continue
			}
			tree := ix.tsTrees[def.Name]
			existing, found := tree.Get(v.TS)
			if !found {
				continue
			}
			updated, empty := removeDocID(existing, docID)
			if empty {
				tree.Delete(v.TS)
			} else {
				tree.Put(v.TS, updated)
			}
		}
	}
}

// FindByIndex returns the doc-id list for an exact composite-key match.
func (ix *Indexer) FindByIndex(name string, keyValues ...string) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	def, ok := ix.defs[name]
	if !ok {
		return nil, tisserr.NewCollectionNotFound(name)
	}
	if def.Type != TypeString {
		return nil, tisserr.NewQuery("index %q is not a string index", name)
	}
	key := strings.Join(keyValues, "\x00")
	existing, found := ix.stringTrees[name].Get(key)
	if !found {
		return nil, nil
	}
	return decodeDocIDs(existing), nil
}

// FindByIndexPrefix returns the union of every entry whose composite key
// starts with the given leading field values (original_source/storage/
// indexer.h's multiple find_by_index overloads). The query executor's index
// selection does not call it; it only uses indexes whose every field is bound.
func (ix *Indexer) FindByIndexPrefix(name string, prefixValues ...string) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	def, ok := ix.defs[name]
	if !ok {
		return nil, tisserr.NewCollectionNotFound(name)
	}
	if def.Type != TypeString {
		return nil, tisserr.NewQuery("index %q is not a string index", name)
	}
	prefix := strings.Join(prefixValues, "\x00") + "\x00"
	seen := make(map[string]struct{})
	var out []string
	ix.stringTrees[name].ForEach(func(key string, value []byte) {
		if key == strings.TrimSuffix(prefix, "\x00") || strings.HasPrefix(key, prefix) {
			for _, id := range decodeDocIDs(value) {
				if _, dup := seen[id]; !dup {
					seen[id] = struct{}{}
					out = append(out, id)
				}
			}
		}
	})
	return out, nil
}

// FindByTimestampRange unions all entries whose key falls in [lo, hi],
// deduplicated (spec §4.7, scenario S10).
func (ix *Indexer) FindByTimestampRange(name string, lo, hi int64) ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	def, ok := ix.defs[name]
	if !ok {
		return nil, tisserr.NewCollectionNotFound(name)
	}
	if def.Type != TypeTimestamp {
		return nil, tisserr.NewQuery("index %q is not a timestamp index", name)
	}
	blobs := ix.tsTrees[name].FindRange(lo, hi)
	seen := make(map[string]struct{})
	var out []string
	for _, b := range blobs {
		for _, id := range decodeDocIDs(b) {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out, nil
}
