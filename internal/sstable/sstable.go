// Package sstable implements the immutable sorted key/value run file (spec
// §4.5), grounded on original_source/storage/sstable.h's sparse_index_ +
// find/scan/write_from_memtable/merge contract. Values are individually
// zstd-compressed (github.com/klauspost/compress/zstd, adopted from the
// teacher's pebble-lineage indirect dependency) so the sparse index's byte
// offsets still address whole entries directly.
package sstable

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/tissdb/tissdb/internal/tisserr"
)

var sstableCRCTable = crc32.MakeTable(crc32.Castagnoli)

func newRollingCRC() hashWriter { return crc32.New(sstableCRCTable) }

type hashWriter interface {
	io.Writer
	Sum32() uint32
}

// TombstoneMarker is the val_len sentinel spec §4.5 specifies for a deleted key.
const TombstoneMarker uint64 = 0xFFFFFFFFFFFFFFFF

// footerMagic identifies a well-formed trailer; Open refuses to trust a file
// without it (treated as empty, like a CRC mismatch).
const footerMagic uint32 = 0x53535442 // "SSTB"

const footerSize = 8 + 8 + 4 + 4 // sparseIndexOffset, sparseIndexLen, crc32, magic

// Entry is one logical row for writing: Tombstone entries carry no value.
type Entry struct {
	Key       string
	Value     []byte
	Tombstone bool
}

type sparseSlot struct {
	Key    string
	Offset int64
}

// Write creates a new SSTable file at path from entries, which must already
// be in ascending key order (the memtable snapshot spec §4.5 describes).
// stride controls the sparse-index granularity (spec §9: "tunable, e.g.
// every 16 keys").
func Write(path string, entries []Entry, stride int) error {
	if stride <= 0 {
		stride = 16
	}
	f, err := os.Create(path)
	if err != nil {
		return tisserr.NewDurability("sstable.Write.create", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return tisserr.NewDurability("sstable.Write.zstd", err)
	}
	defer enc.Close()

	var sparse []sparseSlot
	var offset int64
	crc := newRollingCRC()

	writeU64 := func(v uint64) error {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v)
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
		crc.Write(buf[:])
		offset += 8
		return nil
	}
	writeBytes := func(b []byte) error {
		if _, err := bw.Write(b); err != nil {
			return err
		}
		crc.Write(b)
		offset += int64(len(b))
		return nil
	}

	for i, e := range entries {
		if i%stride == 0 {
			sparse = append(sparse, sparseSlot{Key: e.Key, Offset: offset})
		}
		if err := writeU64(uint64(len(e.Key))); err != nil {
			return tisserr.NewDurability("sstable.Write", err)
		}
		if err := writeBytes([]byte(e.Key)); err != nil {
			return tisserr.NewDurability("sstable.Write", err)
		}
		if e.Tombstone {
			if err := writeU64(TombstoneMarker); err != nil {
				return tisserr.NewDurability("sstable.Write", err)
			}
			continue
		}
		compressed := enc.EncodeAll(e.Value, nil)
		if err := writeU64(uint64(len(compressed))); err != nil {
			return tisserr.NewDurability("sstable.Write", err)
		}
		if err := writeBytes(compressed); err != nil {
			return tisserr.NewDurability("sstable.Write", err)
		}
	}

	dataCRC := crc.Sum32()
	sparseOffset := offset
	for _, s := range sparse {
		if err := writeU64(uint64(len(s.Key))); err != nil {
			return tisserr.NewDurability("sstable.Write", err)
		}
		if err := writeBytes([]byte(s.Key)); err != nil {
			return tisserr.NewDurability("sstable.Write", err)
		}
		if err := writeU64(uint64(s.Offset)); err != nil {
			return tisserr.NewDurability("sstable.Write", err)
		}
	}
	sparseLen := offset - sparseOffset

	var footer [footerSize]byte
	binary.BigEndian.PutUint64(footer[0:8], uint64(sparseOffset))
	binary.BigEndian.PutUint64(footer[8:16], uint64(sparseLen))
	binary.BigEndian.PutUint32(footer[16:20], dataCRC)
	binary.BigEndian.PutUint32(footer[20:24], footerMagic)
	if _, err := bw.Write(footer[:]); err != nil {
		return tisserr.NewDurability("sstable.Write.footer", err)
	}
	if err := bw.Flush(); err != nil {
		return tisserr.NewDurability("sstable.Write.flush", err)
	}
	return f.Sync()
}
