package wal

import (
	"bytes"

	"github.com/tissdb/tissdb/internal/binstream"
	"github.com/tissdb/tissdb/internal/tisserr"
)

// Op is one staged operation inside a transaction (spec §3: `PUT(collection,
// key, doc) | DELETE(collection, key)`). A TxnCommit record's Payload is the
// encoding of a []Op, so the whole transaction lands in one WAL record and
// recovery sees all-or-nothing (spec §4.9).
type Op struct {
	Type       EntryType // EntryPut or EntryDelete
	Collection string
	DocID      string
	Doc        []byte // serialized document; empty for Delete
}

// EncodeOps packs a slice of Ops into a TxnCommit/TxnAbort record payload.
func EncodeOps(ops []Op) ([]byte, error) {
	var buf bytes.Buffer
	bw := binstream.NewWriter(&buf)
	if err := bw.WriteUint32(uint32(len(ops))); err != nil {
		return nil, err
	}
	for _, op := range ops {
		if err := bw.WriteUint8(uint8(op.Type)); err != nil {
			return nil, err
		}
		if err := writeShortString(bw, op.Collection); err != nil {
			return nil, err
		}
		if err := writeShortString(bw, op.DocID); err != nil {
			return nil, err
		}
		if err := bw.WriteUint32(uint32(len(op.Doc))); err != nil {
			return nil, err
		}
		if err := bw.WriteUint8Slice(op.Doc); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeOps unpacks a TxnCommit/TxnAbort record payload back into Ops.
func DecodeOps(payload []byte) ([]Op, error) {
	br := binstream.NewReader(bytes.NewReader(payload), "wal.DecodeOps")
	count, err := br.ReadUint32()
	if err != nil {
		return nil, tisserr.NewCorruptData("wal.DecodeOps", -1)
	}
	ops := make([]Op, 0, count)
	for i := uint32(0); i < count; i++ {
		typeByte, err := br.ReadUint8()
		if err != nil {
			return nil, tisserr.NewCorruptData("wal.DecodeOps", -1)
		}
		coll, err := readShortString(br)
		if err != nil {
			return nil, err
		}
		docID, err := readShortString(br)
		if err != nil {
			return nil, err
		}
		docLen, err := br.ReadUint32()
		if err != nil {
			return nil, tisserr.NewCorruptData("wal.DecodeOps", -1)
		}
		var doc []byte // stays nil for a Delete, matching what was encoded
		if docLen > 0 {
			doc = make([]byte, docLen)
			if err := br.ReadUint8Slice(doc); err != nil {
				return nil, tisserr.NewCorruptData("wal.DecodeOps", -1)
			}
		}
		ops = append(ops, Op{Type: EntryType(typeByte), Collection: coll, DocID: docID, Doc: doc})
	}
	return ops, nil
}

func readShortString(br *binstream.Reader) (string, error) {
	n, err := br.ReadUint32()
	if err != nil {
		return "", tisserr.NewCorruptData("wal.readShortString", -1)
	}
	buf := make([]byte, n)
	if err := br.ReadUint8Slice(buf); err != nil {
		return "", tisserr.NewCorruptData("wal.readShortString", -1)
	}
	return string(buf), nil
}
