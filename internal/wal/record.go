// Package wal implements the write-ahead log (spec §4.3): a single
// append-only file of CRC-checksummed records, recovered by replay until the
// first bad checksum (a torn tail is tolerated, not propagated). Grounded on
// the teacher's pkg/wal package (entry.go/writer.go/reader.go/checksum.go/
// options.go/pool.go) adapted to spec §6's record layout instead of the
// teacher's protobuf-oriented one.
package wal

import (
	"bytes"
	"hash/crc32"

	"github.com/tissdb/tissdb/internal/binstream"
	"github.com/tissdb/tissdb/internal/tisserr"
)

// EntryType enumerates the WAL record kinds spec §6 defines.
type EntryType uint8

const (
	EntryPut              EntryType = 1
	EntryDelete           EntryType = 2
	EntryCreateCollection EntryType = 3
	EntryDeleteCollection EntryType = 4
	EntryTxnCommit        EntryType = 5
	EntryTxnAbort         EntryType = 6
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Record is one WAL entry: `type:u8 txn_id:i64 collection_len:u32 collection
// doc_id_len:u32 doc_id payload_len:u32 payload crc32:u32` (spec §6).
// Payload carries the serialized document for Put, and for TxnCommit/TxnAbort
// carries a concatenated sequence of sub-records (see EncodeOps/DecodeOps).
type Record struct {
	Type       EntryType
	TxnID      int64
	Collection string
	DocID      string
	Payload    []byte
}

// Encode serializes r into the on-disk byte layout including its trailing
// CRC32 (Castagnoli), matching the teacher's checksum.go table choice.
func Encode(r Record) ([]byte, error) {
	var body bytes.Buffer
	bw := binstream.NewWriter(&body)
	if err := bw.WriteUint8(uint8(r.Type)); err != nil {
		return nil, err
	}
	if err := bw.WriteUint64(uint64(r.TxnID)); err != nil {
		return nil, err
	}
	if err := writeShortString(bw, r.Collection); err != nil {
		return nil, err
	}
	if err := writeShortString(bw, r.DocID); err != nil {
		return nil, err
	}
	if err := bw.WriteUint32(uint32(len(r.Payload))); err != nil {
		return nil, err
	}
	if _, err := body.Write(r.Payload); err != nil {
		return nil, err
	}
	sum := crc32.Checksum(body.Bytes(), castagnoli)
	out := body.Bytes()
	var crcBuf [4]byte
	crcBuf[0] = byte(sum >> 24)
	crcBuf[1] = byte(sum >> 16)
	crcBuf[2] = byte(sum >> 8)
	crcBuf[3] = byte(sum)
	out = append(out, crcBuf[:]...)
	return out, nil
}

// writeShortString writes a u32-length-prefixed string, matching spec §6's
// `collection_len:u32 collection` / `doc_id_len:u32 doc_id` fields (the WAL
// record header uses u32 lengths, distinct from binstream's u64-prefixed
// string convention used elsewhere).
func writeShortString(bw *binstream.Writer, s string) error {
	if err := bw.WriteUint32(uint32(len(s))); err != nil {
		return err
	}
	return bw.WriteUint8Slice([]byte(s))
}

// Decode parses one record from raw bytes (header through payload, without
// the trailing CRC, which the caller validates separately against the bytes
// it already read). Returns tisserr.CorruptData on malformed framing.
func Decode(raw []byte) (Record, error) {
	br := binstream.NewReader(bytes.NewReader(raw), "wal.Decode")
	typeByte, err := br.ReadUint8()
	if err != nil {
		return Record{}, tisserr.NewCorruptData("wal.Decode", -1)
	}
	txnID, err := br.ReadUint64()
	if err != nil {
		return Record{}, tisserr.NewCorruptData("wal.Decode", -1)
	}
	collLen, err := br.ReadUint32()
	if err != nil {
		return Record{}, tisserr.NewCorruptData("wal.Decode", -1)
	}
	collBuf := make([]byte, collLen)
	if err := readExact(br, collBuf); err != nil {
		return Record{}, err
	}
	docLen, err := br.ReadUint32()
	if err != nil {
		return Record{}, tisserr.NewCorruptData("wal.Decode", -1)
	}
	docBuf := make([]byte, docLen)
	if err := readExact(br, docBuf); err != nil {
		return Record{}, err
	}
	payloadLen, err := br.ReadUint32()
	if err != nil {
		return Record{}, tisserr.NewCorruptData("wal.Decode", -1)
	}
	payload := make([]byte, payloadLen)
	if err := readExact(br, payload); err != nil {
		return Record{}, err
	}
	return Record{
		Type:       EntryType(typeByte),
		TxnID:      int64(txnID),
		Collection: string(collBuf),
		DocID:      string(docBuf),
		Payload:    payload,
	}, nil
}

func readExact(br *binstream.Reader, buf []byte) error {
	if err := br.ReadUint8Slice(buf); err != nil {
		return tisserr.NewCorruptData("wal.Decode", -1)
	}
	return nil
}

// Checksum computes the Castagnoli CRC32 of data, matching the teacher's
// pkg/wal/checksum.go table choice.
func Checksum(data []byte) uint32 { return crc32.Checksum(data, castagnoli) }
