// Package binstream implements the length-prefixed binary stream codec spec
// §4.1 describes, grounded on original_source/common/binary_stream_buffer.h:
// fixed big-endian network order, string/byte-length ceilings, and
// CorruptData on overrun.
package binstream

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/tissdb/tissdb/internal/tisserr"
)

// MaxStringLen and MaxBytesLen mirror
// original_source/common/binary_stream_buffer.h's MAX_STRING_LEN (10MiB) and
// MAX_BYTES_LEN (100MiB).
const (
	MaxStringLen = 10 * 1024 * 1024
	MaxBytesLen  = 100 * 1024 * 1024
)

// Writer writes primitives in fixed big-endian network order.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

func (w *Writer) WriteUint8(v uint8) error {
	_, err := w.w.Write([]byte{v})
	return err
}

// WriteUint8Slice writes raw bytes with no length prefix; callers that need
// a length prefix write it themselves first (e.g. WAL's u32-length fields).
func (w *Writer) WriteUint8Slice(b []byte) error {
	_, err := w.w.Write(b)
	return err
}

func (w *Writer) WriteUint32(v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.w.Write(buf[:])
	return err
}

func (w *Writer) WriteUint64(v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.w.Write(buf[:])
	return err
}

func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteUint64(bitsFromFloat(v))
}

// WriteString writes a u64-length-prefixed UTF-8 string (spec §4.1).
func (w *Writer) WriteString(s string) error {
	if len(s) > MaxStringLen {
		return tisserr.NewCorruptData("binstream.WriteString", -1)
	}
	if err := w.WriteUint64(uint64(len(s))); err != nil {
		return err
	}
	_, err := w.w.Write([]byte(s))
	return err
}

// WriteBytesWithLength writes a u64-length-prefixed byte slice.
func (w *Writer) WriteBytesWithLength(b []byte) error {
	if len(b) > MaxBytesLen {
		return tisserr.NewCorruptData("binstream.WriteBytesWithLength", -1)
	}
	if err := w.WriteUint64(uint64(len(b))); err != nil {
		return err
	}
	_, err := w.w.Write(b)
	return err
}

// Reader reads primitives in fixed big-endian network order, validating
// length-prefixed reads against MaxStringLen/MaxBytesLen.
type Reader struct {
	r      io.Reader
	source string
	offset int64
}

func NewReader(r io.Reader, source string) *Reader {
	if _, ok := r.(io.ByteReader); !ok {
		r = bufio.NewReader(r)
	}
	return &Reader{r: r, source: source}
}

func (r *Reader) fail() error {
	return tisserr.NewCorruptData(r.source, r.offset)
}

func (r *Reader) readFull(buf []byte) error {
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return err
		}
		return r.fail()
	}
	r.offset += int64(len(buf))
	return nil
}

// ReadUint8Slice reads exactly len(buf) raw bytes with no length prefix.
func (r *Reader) ReadUint8Slice(buf []byte) error {
	return r.readFull(buf)
}

func (r *Reader) ReadUint8() (uint8, error) {
	var buf [1]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	u, err := r.ReadUint64()
	if err != nil {
		return 0, err
	}
	return floatFromBits(u), nil
}

// ReadString reads a u64-length-prefixed string, failing with CorruptData if
// the declared length exceeds MaxStringLen.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUint64()
	if err != nil {
		return "", err
	}
	if n > MaxStringLen {
		return "", r.fail()
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ReadBytesWithLength reads a u64-length-prefixed byte slice, failing with
// CorruptData if the declared length exceeds MaxBytesLen.
func (r *Reader) ReadBytesWithLength() ([]byte, error) {
	n, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	if n > MaxBytesLen {
		return nil, r.fail()
	}
	buf := make([]byte, n)
	if err := r.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
