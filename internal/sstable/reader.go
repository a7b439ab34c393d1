package sstable

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/tissdb/tissdb/internal/tisserr"
)

// SSTable is an opened, read-only run file. Corrupted (CRC-mismatched) files
// are opened successfully but behave as empty: Find always misses and Scan
// yields nothing, per spec §4.5 ("opening an SSTable with a mismatched CRC
// leaves find returning None").
type SSTable struct {
	Path      string
	file      *os.File
	sparse    []sparseSlot
	dataEnd   int64
	corrupted bool
	dec       *zstd.Decoder
}

// Open reads the footer and sparse index, validating the data-section CRC.
func Open(path string) (*SSTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tisserr.NewDurability("sstable.Open", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, tisserr.NewDurability("sstable.Open.stat", err)
	}
	if info.Size() < footerSize {
		f.Close()
		return &SSTable{Path: path, file: nil, corrupted: true}, nil
	}
	var footer [footerSize]byte
	if _, err := f.ReadAt(footer[:], info.Size()-footerSize); err != nil {
		f.Close()
		return nil, tisserr.NewDurability("sstable.Open.footer", err)
	}
	sparseOffset := int64(binary.BigEndian.Uint64(footer[0:8]))
	sparseLen := int64(binary.BigEndian.Uint64(footer[8:16]))
	wantCRC := binary.BigEndian.Uint32(footer[16:20])
	magic := binary.BigEndian.Uint32(footer[20:24])
	if magic != footerMagic {
		f.Close()
		return &SSTable{Path: path, corrupted: true}, nil
	}

	dataBuf := make([]byte, sparseOffset)
	if _, err := f.ReadAt(dataBuf, 0); err != nil {
		f.Close()
		return nil, tisserr.NewDurability("sstable.Open.data", err)
	}
	gotCRC := crc32.Checksum(dataBuf, crc32.MakeTable(crc32.Castagnoli))
	if gotCRC != wantCRC {
		f.Close()
		return &SSTable{Path: path, corrupted: true}, nil
	}

	sparseBuf := make([]byte, sparseLen)
	if _, err := f.ReadAt(sparseBuf, sparseOffset); err != nil {
		f.Close()
		return nil, tisserr.NewDurability("sstable.Open.sparse", err)
	}
	sparse, err := decodeSparse(sparseBuf)
	if err != nil {
		f.Close()
		return &SSTable{Path: path, corrupted: true}, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		f.Close()
		return nil, tisserr.NewDurability("sstable.Open.zstd", err)
	}
	return &SSTable{Path: path, file: f, sparse: sparse, dataEnd: sparseOffset, dec: dec}, nil
}

func decodeSparse(buf []byte) ([]sparseSlot, error) {
	var out []sparseSlot
	pos := 0
	for pos < len(buf) {
		if pos+8 > len(buf) {
			return nil, io.ErrUnexpectedEOF
		}
		klen := binary.BigEndian.Uint64(buf[pos : pos+8])
		pos += 8
		if pos+int(klen) > len(buf) {
			return nil, io.ErrUnexpectedEOF
		}
		key := string(buf[pos : pos+int(klen)])
		pos += int(klen)
		if pos+8 > len(buf) {
			return nil, io.ErrUnexpectedEOF
		}
		offset := int64(binary.BigEndian.Uint64(buf[pos : pos+8]))
		pos += 8
		out = append(out, sparseSlot{Key: key, Offset: offset})
	}
	return out, nil
}

func (s *SSTable) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// bracket returns the byte range [lo, dataEnd) to linear-scan for key,
// binary-searching the sparse index to find the segment that could contain it.
func (s *SSTable) bracket(key string) int64 {
	idx := sort.Search(len(s.sparse), func(i int) bool { return s.sparse[i].Key > key })
	if idx == 0 {
		return 0
	}
	return s.sparse[idx-1].Offset
}

// Find looks up key, returning (value, tombstone, found). A corrupted table
// always returns found=false.
func (s *SSTable) Find(key string) ([]byte, bool, bool) {
	if s.corrupted || s.file == nil {
		return nil, false, false
	}
	start := s.bracket(key)
	pos := start
	for pos < s.dataEnd {
		k, val, tomb, next, ok := s.readEntryAt(pos)
		if !ok {
			return nil, false, false
		}
		if k == key {
			return val, tomb, true
		}
		if k > key {
			return nil, false, false
		}
		pos = next
	}
	return nil, false, false
}

// readEntryAt decodes one entry starting at pos, returning the next entry's
// offset. Value bytes are decompressed for non-tombstone entries.
func (s *SSTable) readEntryAt(pos int64) (key string, value []byte, tombstone bool, next int64, ok bool) {
	var lenBuf [8]byte
	if _, err := s.file.ReadAt(lenBuf[:], pos); err != nil {
		return "", nil, false, 0, false
	}
	klen := binary.BigEndian.Uint64(lenBuf[:])
	pos += 8
	keyBuf := make([]byte, klen)
	if _, err := s.file.ReadAt(keyBuf, pos); err != nil {
		return "", nil, false, 0, false
	}
	pos += int64(klen)
	if _, err := s.file.ReadAt(lenBuf[:], pos); err != nil {
		return "", nil, false, 0, false
	}
	vlen := binary.BigEndian.Uint64(lenBuf[:])
	pos += 8
	if vlen == TombstoneMarker {
		return string(keyBuf), nil, true, pos, true
	}
	valBuf := make([]byte, vlen)
	if vlen > 0 {
		if _, err := s.file.ReadAt(valBuf, pos); err != nil {
			return "", nil, false, 0, false
		}
	}
	pos += int64(vlen)
	decoded, err := s.dec.DecodeAll(valBuf, nil)
	if err != nil {
		return "", nil, false, 0, false
	}
	return string(keyBuf), decoded, false, pos, true
}

// Scan streams every entry in key order, including tombstones.
func (s *SSTable) Scan() []Entry {
	if s.corrupted || s.file == nil {
		return nil
	}
	var out []Entry
	pos := int64(0)
	for pos < s.dataEnd {
		k, v, tomb, next, ok := s.readEntryAt(pos)
		if !ok {
			break
		}
		out = append(out, Entry{Key: k, Value: v, Tombstone: tomb})
		pos = next
	}
	return out
}
