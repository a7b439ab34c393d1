// Package indexer implements named composite-key and timestamp-range
// indexes over B-trees (spec §4.7), grounded on
// original_source/storage/indexer.h/.cpp's get_composite_key/update_indexes/
// remove_from_indexes/find_by_index/find_by_timestamp_range contract.
package indexer

import (
	"encoding/binary"
	"sort"
)

// encodeDocIDs/decodeDocIDs give each B-tree entry a sorted, deduplicated set
// of document ids (spec §3: "set semantics: no duplicates"). Spec §9
// explicitly allows dropping the source's JSON-array representation for an
// equivalent one; this uses a flat length-prefixed list instead.
func encodeDocIDs(ids []string) []byte {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make([]byte, 0, len(sorted)*8)
	var lenBuf [4]byte
	for _, id := range sorted {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(id)))
		out = append(out, lenBuf[:]...)
		out = append(out, id...)
	}
	return out
}

func decodeDocIDs(b []byte) []string {
	var out []string
	pos := 0
	for pos+4 <= len(b) {
		n := binary.BigEndian.Uint32(b[pos : pos+4])
		pos += 4
		if pos+int(n) > len(b) {
			break
		}
		out = append(out, string(b[pos:pos+int(n)]))
		pos += int(n)
	}
	return out
}

func addDocID(existing []byte, id string) []byte {
	ids := decodeDocIDs(existing)
	for _, x := range ids {
		if x == id {
			return existing
		}
	}
	ids = append(ids, id)
	return encodeDocIDs(ids)
}

func removeDocID(existing []byte, id string) ([]byte, bool) {
	ids := decodeDocIDs(existing)
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	if len(out) == len(ids) {
		return existing, false
	}
	return encodeDocIDs(out), len(out) == 0
}
