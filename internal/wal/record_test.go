package wal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := Record{Type: EntryPut, TxnID: 7, Collection: "users", DocID: "u1", Payload: []byte("hello")}
	raw, err := Encode(r)
	require.NoError(t, err)

	// Decode works on the header+payload portion, without the trailing CRC.
	got, err := Decode(raw[:len(raw)-4])
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestEncodeAppendsValidCRC(t *testing.T) {
	r := Record{Type: EntryDelete, Collection: "users", DocID: "u1"}
	raw, err := Encode(r)
	require.NoError(t, err)

	body := raw[:len(raw)-4]
	wantCRC := Checksum(body)
	gotCRC := uint32(raw[len(raw)-4])<<24 | uint32(raw[len(raw)-3])<<16 | uint32(raw[len(raw)-2])<<8 | uint32(raw[len(raw)-1])
	assert.Equal(t, wantCRC, gotCRC)
}

func TestDecodeCorruptHeaderReturnsError(t *testing.T) {
	_, err := Decode([]byte{1})
	require.Error(t, err)
}

func TestEncodeOpsDecodeOpsRoundTrip(t *testing.T) {
	ops := []Op{
		{Type: EntryPut, Collection: "users", DocID: "u1", Doc: []byte("doc1")},
		{Type: EntryDelete, Collection: "orders", DocID: "o1"},
	}
	payload, err := EncodeOps(ops)
	require.NoError(t, err)

	got, err := DecodeOps(payload)
	require.NoError(t, err)
	assert.Equal(t, ops, got)
}

func TestDecodeOpsRejectsTruncatedPayload(t *testing.T) {
	ops := []Op{{Type: EntryPut, Collection: "users", DocID: "u1", Doc: []byte("doc1")}}
	payload, err := EncodeOps(ops)
	require.NoError(t, err)

	_, err = DecodeOps(payload[:len(payload)-2])
	assert.Error(t, err)
}

func TestReaderReadAllStopsAtTornTail(t *testing.T) {
	r1 := Record{Type: EntryPut, Collection: "c", DocID: "a", Payload: []byte("x")}
	r2 := Record{Type: EntryPut, Collection: "c", DocID: "b", Payload: []byte("y")}
	raw1, err := Encode(r1)
	require.NoError(t, err)
	raw2, err := Encode(r2)
	require.NoError(t, err)

	// A torn tail: the first record is complete, the second is cut mid-write.
	var buf bytes.Buffer
	buf.Write(raw1)
	buf.Write(raw2[:len(raw2)-3])

	records, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].DocID)
}

func TestReaderReadAllStopsAtBadChecksum(t *testing.T) {
	r := Record{Type: EntryPut, Collection: "c", DocID: "a", Payload: []byte("x")}
	raw, err := Encode(r)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF // corrupt the trailing CRC byte

	records, err := ReadAll(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Empty(t, records)
}
