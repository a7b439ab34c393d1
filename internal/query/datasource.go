package query

import (
	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/indexer"
)

// DataSource is the storage-layer surface the executor needs; satisfied by
// *internal/lsmtree.Tree. Defined here (rather than imported as a concrete
// type) so internal/query never has to import internal/lsmtree's full
// transitive dependency graph just to type its Executor field.
type DataSource interface {
	Put(collection, key string, doc document.Document) error
	Get(collection, key string) (document.Document, bool, error)
	GetMany(collection string, keys []string) (map[string]document.Document, error)
	Del(collection, key string) error
	Scan(collection string) ([]document.Document, error)
	Schema(collection string) (document.Schema, bool, error)
	AvailableIndexes(collection string) ([]indexer.Def, error)
	FindByIndex(collection, index string, keyValues ...string) ([]string, error)
	FindByIndexPrefix(collection, index string, prefixValues ...string) ([]string, error)
}
