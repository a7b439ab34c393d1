package indexer

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tissdb/tissdb/internal/btree"
	"github.com/tissdb/tissdb/internal/tisserr"
)

// metaFile is the JSON shape of indexes.meta:
// {"fields":{idx_name:[field,...]},"unique":{idx_name:bool}} as spec §6 lays
// out, plus "types":{idx_name:"string"|"timestamp"} so LoadIndexes restores
// each index's key type. This is an
// external on-disk interface the spec pins to JSON, unlike the internal
// per-entry doc-id-set encoding (docset.go), which spec §9 explicitly frees
// from any particular representation.
type metaFile struct {
	Fields map[string][]string `json:"fields"`
	Unique map[string]bool     `json:"unique"`
	Types  map[string]string   `json:"types"`
}

// SaveIndexes writes indexes.meta and one <name>.bpt dump per index under dir.
func (ix *Indexer) SaveIndexes(dir string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	meta := metaFile{Fields: map[string][]string{}, Unique: map[string]bool{}, Types: map[string]string{}}
	for name, def := range ix.defs {
		meta.Fields[name] = def.Fields
		meta.Unique[name] = def.Unique
		if def.Type == TypeTimestamp {
			meta.Types[name] = "timestamp"
		} else {
			meta.Types[name] = "string"
		}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return tisserr.NewDurability("indexer.SaveIndexes.meta", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "indexes.meta"), b, 0644); err != nil {
		return tisserr.NewDurability("indexer.SaveIndexes.meta", err)
	}

	for name, def := range ix.defs {
		path := filepath.Join(dir, name+".bpt")
		f, err := os.Create(path)
		if err != nil {
			return tisserr.NewDurability("indexer.SaveIndexes.bpt", err)
		}
		var dumpErr error
		if def.Type == TypeTimestamp {
			dumpErr = btree.Dump(ix.tsTrees[name], f, btree.Int64Codec())
		} else {
			dumpErr = btree.Dump(ix.stringTrees[name], f, btree.StringCodec())
		}
		f.Close()
		if dumpErr != nil {
			return dumpErr
		}
	}
	return nil
}

// LoadIndexes reconstructs an Indexer from indexes.meta and its *.bpt dumps
// under dir. A missing indexes.meta means no indexes yet (fresh collection).
func LoadIndexes(dir string) (*Indexer, error) {
	ix := New()
	metaPath := filepath.Join(dir, "indexes.meta")
	b, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return ix, nil
	}
	if err != nil {
		return nil, tisserr.NewDurability("indexer.LoadIndexes.meta", err)
	}
	var meta metaFile
	if err := json.Unmarshal(b, &meta); err != nil {
		return nil, tisserr.NewCorruptData("indexer.LoadIndexes.meta", 0)
	}
	for name, fields := range meta.Fields {
		typ := TypeString
		if meta.Types[name] == "timestamp" {
			typ = TypeTimestamp
		}
		ix.defs[name] = Def{Name: name, Fields: fields, Unique: meta.Unique[name], Type: typ}
		path := filepath.Join(dir, name+".bpt")
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			if typ == TypeTimestamp {
				ix.tsTrees[name] = btree.New[int64](btree.DefaultOrder)
			} else {
				ix.stringTrees[name] = btree.New[string](btree.DefaultOrder)
			}
			continue
		}
		if err != nil {
			return nil, tisserr.NewDurability("indexer.LoadIndexes.bpt", err)
		}
		if typ == TypeTimestamp {
			tree, err := btree.Load[int64](f, btree.Int64Codec())
			f.Close()
			if err != nil {
				return nil, err
			}
			ix.tsTrees[name] = tree
		} else {
			tree, err := btree.Load[string](f, btree.StringCodec())
			f.Close()
			if err != nil {
				return nil, err
			}
			ix.stringTrees[name] = tree
		}
	}
	return ix, nil
}
