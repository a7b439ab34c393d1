package btree

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"io"

	"github.com/tissdb/tissdb/internal/tisserr"
)

// Signature is the fixed 5-byte header spec §4.1/§4.6 requires for a B-tree
// dump ("LYCBP"), distinct from the teacher's own "CHKP" checkpoint magic
// (pkg/storage/checkpoint_serializer.go) — grounded on the same recursive
// node-serialization approach, with spec's required signature instead.
var Signature = [5]byte{'L', 'Y', 'C', 'B', 'P'}

// Codec tells Dump/Load how to turn a key into bytes and back, since Tree is
// generic over string and int64 (timestamp) keys (spec §4.6).
type Codec[K cmp.Ordered] struct {
	Encode func(K) []byte
	Decode func([]byte) K
}

func StringCodec() Codec[string] {
	return Codec[string]{
		Encode: func(s string) []byte { return []byte(s) },
		Decode: func(b []byte) string { return string(b) },
	}
}

func Int64Codec() Codec[int64] {
	return Codec[int64]{
		Encode: func(v int64) []byte {
			var buf [8]byte
			binary.BigEndian.PutUint64(buf[:], uint64(v))
			return buf[:]
		},
		Decode: func(b []byte) int64 { return int64(binary.BigEndian.Uint64(b)) },
	}
}

// Dump writes the header (signature, order, total key count) followed by the
// recursively serialized root node (spec §4.6: "is_leaf|key_count|keys|
// (values if leaf)|child_offset_table|recursive_children").
func Dump[K cmp.Ordered](t *Tree[K], w io.Writer, codec Codec[K]) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, err := w.Write(Signature[:]); err != nil {
		return tisserr.NewDurability("btree.Dump", err)
	}
	var hdr [12]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(t.order))
	binary.BigEndian.PutUint64(hdr[4:12], uint64(t.Len()))
	if _, err := w.Write(hdr[:]); err != nil {
		return tisserr.NewDurability("btree.Dump", err)
	}
	return dumpNode(t.root, w, codec)
}

func dumpNode[K cmp.Ordered](n *node[K], w io.Writer, codec Codec[K]) error {
	var leafByte [1]byte
	if n.leaf {
		leafByte[0] = 1
	}
	if _, err := w.Write(leafByte[:]); err != nil {
		return err
	}
	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(n.keys)))
	if _, err := w.Write(countBuf[:]); err != nil {
		return err
	}
	for _, k := range n.keys {
		if err := writeLenPrefixed(w, codec.Encode(k)); err != nil {
			return err
		}
	}
	if n.leaf {
		for _, v := range n.values {
			if err := writeLenPrefixed(w, v); err != nil {
				return err
			}
		}
		return nil
	}
	// Child offset table: each child is serialized into its own buffer
	// first so its length is known up front, then written as
	// length-prefixed block. This is functionally equivalent to an
	// absolute-offset table (the length prefix lets Load seek past a
	// child without decoding it) while staying a single sequential stream.
	for _, child := range n.children {
		var buf bytes.Buffer
		if err := dumpNode(child, &buf, codec); err != nil {
			return err
		}
		if err := writeLenPrefixed64(w, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func writeLenPrefixed64(w io.Writer, b []byte) error {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(b)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// Load reconstructs a Tree from bytes produced by Dump.
func Load[K cmp.Ordered](r io.Reader, codec Codec[K]) (*Tree[K], error) {
	var sig [5]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return nil, tisserr.NewCorruptData("btree.Load", -1)
	}
	if sig != Signature {
		return nil, tisserr.NewCorruptData("btree.Load", 0)
	}
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, tisserr.NewCorruptData("btree.Load", 5)
	}
	order := int(binary.BigEndian.Uint32(hdr[0:4]))
	root, err := loadNode(r, codec)
	if err != nil {
		return nil, err
	}
	t := &Tree[K]{order: order, root: root}
	linkLeaves(t)
	return t, nil
}

func loadNode[K cmp.Ordered](r io.Reader, codec Codec[K]) (*node[K], error) {
	var leafByte [1]byte
	if _, err := io.ReadFull(r, leafByte[:]); err != nil {
		return nil, tisserr.NewCorruptData("btree.Load.node", -1)
	}
	leaf := leafByte[0] == 1
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, tisserr.NewCorruptData("btree.Load.node", -1)
	}
	count := binary.BigEndian.Uint32(countBuf[:])
	n := &node[K]{leaf: leaf}
	for i := uint32(0); i < count; i++ {
		kb, err := readLenPrefixed(r)
		if err != nil {
			return nil, err
		}
		n.keys = append(n.keys, codec.Decode(kb))
	}
	if leaf {
		for i := uint32(0); i < count; i++ {
			vb, err := readLenPrefixed(r)
			if err != nil {
				return nil, err
			}
			n.values = append(n.values, vb)
		}
		return n, nil
	}
	for i := uint32(0); i <= count; i++ {
		blockLen, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		block := make([]byte, blockLen)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, tisserr.NewCorruptData("btree.Load.child", -1)
		}
		child, err := loadNode(bytes.NewReader(block), codec)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, child)
	}
	return n, nil
}

func readLenPrefixed(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, tisserr.NewCorruptData("btree.Load", -1)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, tisserr.NewCorruptData("btree.Load", -1)
	}
	return buf, nil
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, tisserr.NewCorruptData("btree.Load", -1)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// linkLeaves rebuilds the leaf-level `next` linked list after Load, which
// decodes a pure tree shape with no next pointers.
func linkLeaves[K cmp.Ordered](t *Tree[K]) {
	var leaves []*node[K]
	var walk func(n *node[K])
	walk = func(n *node[K]) {
		if n.leaf {
			leaves = append(leaves, n)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	for i := 0; i+1 < len(leaves); i++ {
		leaves[i].next = leaves[i+1]
	}
}
