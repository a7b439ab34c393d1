package collection

import (
	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/tisserr"
	"github.com/tissdb/tissdb/internal/wal"
)

// validateWrite enforces schema type/required checks, primary key agreement,
// UNIQUE schema fields, and foreign key references before a document is
// admitted to the write path (spec §4.8, grounded on original_source/storage/
// collection.cpp's put() validation sequence: schema, then PK, then FK).
func (c *Collection) validateWrite(key string, doc document.Document) error {
	schema, ok := c.Schema()
	if !ok {
		return nil
	}
	if err := document.Validate(schema, doc); err != nil {
		return err
	}
	if pk, has := document.PrimaryKeyValue(schema, doc); has && pk != key {
		return tisserr.NewPrimaryKeyViolation(c.Name, key)
	}
	if err := c.checkUniqueFields(key, doc, schema); err != nil {
		return err
	}
	if err := c.checkForeignKeys(doc, schema); err != nil {
		return err
	}
	return nil
}

// checkUniqueFields enforces FieldSchema.Unique by scanning existing
// documents; it does not consult any index. Indexes created as unique are
// enforced separately by the indexer in UpdateIndexes.
func (c *Collection) checkUniqueFields(key string, doc document.Document, schema document.Schema) error {
	var uniqueFields []string
	for _, f := range schema.Fields {
		if f.Unique {
			uniqueFields = append(uniqueFields, f.Name)
		}
	}
	if len(uniqueFields) == 0 {
		return nil
	}
	docs, err := c.scanLocked()
	if err != nil {
		return err
	}
	for _, f := range uniqueFields {
		v, ok := doc.Get(f)
		if !ok {
			continue
		}
		for _, existing := range docs {
			if existing.ID == key {
				continue
			}
			ev, ok := existing.Get(f)
			if ok && ev.Equal(v) {
				return tisserr.NewUniqueViolation(f, v.Comparable())
			}
		}
	}
	return nil
}

// checkForeignKeys verifies every declared FK resolves to an existing
// document via the resolver (set by lsmtree, which owns every collection in
// a database). No resolver (standalone collection, tests) skips FK checks.
func (c *Collection) checkForeignKeys(doc document.Document, schema document.Schema) error {
	if c.resolver == nil || len(schema.ForeignKeys) == 0 {
		return nil
	}
	for _, fk := range schema.ForeignKeys {
		v, ok := doc.Get(fk.LocalField)
		if !ok || v.Kind == document.KindNull {
			continue
		}
		refValue := v.Comparable()
		_, found, err := c.resolver.GetDocument(fk.RefCollection, refValue)
		if err != nil {
			return err
		}
		if !found {
			return tisserr.NewForeignKeyViolation(fk.LocalField, fk.RefCollection, refValue)
		}
	}
	return nil
}

// ValidateOps runs this collection's full write validation (schema, PK, FK,
// UNIQUE) over its share of a transaction's staged ops without mutating any
// state — a pure pre-check. internal/txn calls this on every participant,
// while every participant's write lock is held, before the transaction
// writes its single shared-WAL commit record (spec §4.9 step 1: "validate
// every staged op before the WAL write, not after"). Caller must hold
// writeMu.
func (c *Collection) ValidateOps(ops []wal.Op) error {
	for _, op := range ops {
		if op.Type != wal.EntryPut {
			continue
		}
		doc, err := document.Deserialize(op.Doc)
		if err != nil {
			return err
		}
		if err := c.validateWrite(op.DocID, doc); err != nil {
			return err
		}
	}
	return nil
}

// scanLocked is Scan's body factored out so validate.go can call it while
// writeMu is already held (Scan itself re-acquires the lock).
func (c *Collection) scanLocked() ([]document.Document, error) {
	seen := make(map[string]bool)
	var out []document.Document
	for _, e := range c.mem.Scan() {
		seen[e.Key] = true
		if e.Entry.IsTombstone() {
			continue
		}
		out = append(out, *e.Entry.Doc)
	}
	c.sstMu.RLock()
	defer c.sstMu.RUnlock()
	for _, t := range c.sstables {
		for _, entry := range t.Scan() {
			if seen[entry.Key] {
				continue
			}
			seen[entry.Key] = true
			if entry.Tombstone {
				continue
			}
			doc, err := document.Deserialize(entry.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
	}
	return out, nil
}
