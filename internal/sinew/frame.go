// Package sinew implements the Sinew wire protocol, client pool, and session/
// transaction handles (spec §3, §4.13, §4.14), grounded on
// original_source/quanta_tissu/tissu_sinew.h/.cpp: a single binary frame per
// request (u32 total_len | u32 query_len | query_bytes | u8 param_count |
// params), length-prefixed response, and a pool.size TCP connection pool
// with connect-timeout semantics.
package sinew

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/golang/snappy"

	"github.com/tissdb/tissdb/internal/document"
	"github.com/tissdb/tissdb/internal/tisserr"
)

// compressedFlag is a reserved high bit of the frame's u32 total_len field
// (SPEC_FULL's Sinew frame payload compression extension): when set, the
// remaining 31 bits give the length of a snappy-compressed body rather than
// the plain body itself. Bodies never approach 2^31 bytes in practice
// (MaxResponseSize is 10MiB), so the bit is free to repurpose without
// disturbing the uncompressed wire format spec §3 defines.
const compressedFlag = uint32(1) << 31

// compressionThreshold is the body size above which EncodeParamRequest's
// compressing counterpart bothers to snappy-compress; small frames aren't
// worth the header overhead.
const compressionThreshold = 256

// ParamType tags a parameter's wire representation, mirroring
// original_source's TissParamType enum.
type ParamType uint8

const (
	ParamNull ParamType = iota
	ParamString
	ParamInt64
	ParamFloat64
	ParamBool
)

// MaxResponseSize is the Sinew client's response ceiling (spec §4.13):
// framing that declares a larger body aborts the connection.
const MaxResponseSize = 10 * 1024 * 1024

// MaxParams is the wire format's u8 param_count ceiling.
const MaxParams = 255

// Param is one positional query parameter in its wire-ready form.
type Param struct {
	Type ParamType
	Str  string
	I64  int64
	F64  float64
	Bool bool
}

// ParamFromValue converts a document.Value into its Sinew wire parameter,
// collapsing the richer server-side Value union onto the client protocol's
// five parameter kinds (Timestamp travels as its microsecond int64; Bytes and
// Object have no parameter encoding and are rejected).
func ParamFromValue(v document.Value) (Param, error) {
	switch v.Kind {
	case document.KindNull:
		return Param{Type: ParamNull}, nil
	case document.KindString:
		return Param{Type: ParamString, Str: v.Str}, nil
	case document.KindFloat64:
		return Param{Type: ParamFloat64, F64: v.Num}, nil
	case document.KindBool:
		return Param{Type: ParamBool, Bool: v.Bool}, nil
	case document.KindTimestamp:
		return Param{Type: ParamInt64, I64: v.TS}, nil
	default:
		return Param{}, tisserr.NewQuery("value kind %s has no Sinew parameter encoding", v.Kind)
	}
}

// EncodeSimpleRequest frames a plain query string with no bound parameters.
// The spec §3 wire message is a single format (total_len | query_len |
// query_bytes | param_count | params); run(query)'s "simple framing" is just
// that format with param_count=0, unlike original_source's older client which
// sent queries with a bespoke length-prefix-only frame before parameter
// binding existed.
func EncodeSimpleRequest(query string) ([]byte, error) {
	return EncodeParamRequest(query, nil)
}

// EncodeParamRequest frames a parameterized query as the spec §3 binary
// message: u32 total_len | u32 query_len | query_bytes | u8 param_count |
// params, where each param is u8 type | u32 val_len | val_bytes.
func EncodeParamRequest(query string, params []Param) ([]byte, error) {
	if len(params) > MaxParams {
		return nil, tisserr.NewQuery("cannot bind more than %d parameters", MaxParams)
	}
	body := make([]byte, 0, 4+len(query)+1+len(params)*9)
	body = appendUint32(body, uint32(len(query)))
	body = append(body, query...)
	body = append(body, byte(len(params)))
	for _, p := range params {
		var err error
		body, err = appendParam(body, p)
		if err != nil {
			return nil, err
		}
	}
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(body)))
	copy(out[4:], body)
	return out, nil
}

// EncodeParamRequestCompressed builds the same frame as EncodeParamRequest,
// snappy-compressing the body and setting compressedFlag when that saves
// space worth the header's reserved bit.
func EncodeParamRequestCompressed(query string, params []Param) ([]byte, error) {
	plain, err := EncodeParamRequest(query, params)
	if err != nil {
		return nil, err
	}
	body := plain[4:]
	if len(body) < compressionThreshold {
		return plain, nil
	}
	compressed := snappy.Encode(nil, body)
	if len(compressed) >= len(body) {
		return plain, nil
	}
	out := make([]byte, 4+len(compressed))
	binary.BigEndian.PutUint32(out[0:4], compressedFlag|uint32(len(compressed)))
	copy(out[4:], compressed)
	return out, nil
}

func appendParam(body []byte, p Param) ([]byte, error) {
	body = append(body, byte(p.Type))
	switch p.Type {
	case ParamNull:
		body = appendUint32(body, 0)
	case ParamString:
		body = appendUint32(body, uint32(len(p.Str)))
		body = append(body, p.Str...)
	case ParamInt64:
		body = appendUint32(body, 8)
		body = appendUint64(body, uint64(p.I64))
	case ParamFloat64:
		body = appendUint32(body, 8)
		body = appendUint64(body, math.Float64bits(p.F64))
	case ParamBool:
		body = appendUint32(body, 1)
		if p.Bool {
			body = append(body, 1)
		} else {
			body = append(body, 0)
		}
	default:
		return nil, tisserr.NewQuery("unknown parameter type %d", p.Type)
	}
	return body, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// Request is a server-decoded Sinew request: a query string plus its bound
// parameters (empty for the simple request framing).
type Request struct {
	Query  string
	Params []document.Value
}

// DecodeRequest reads one framed request from r (server side): first the u32
// total body length, then the body itself split into query_len|query_bytes
// followed by param_count params. total_len == 0 with nothing further to
// read signals EOF propagated from r.
func DecodeRequest(r io.Reader) (Request, error) {
	header, err := readUint32(r)
	if err != nil {
		return Request{}, err
	}
	compressed := header&compressedFlag != 0
	totalLen := header &^ compressedFlag
	if totalLen > MaxResponseSize {
		return Request{}, tisserr.NewCorruptData("sinew.DecodeRequest", -1)
	}
	body := make([]byte, totalLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Request{}, tisserr.NewCorruptData("sinew.DecodeRequest", -1)
	}
	if compressed {
		decoded, err := snappy.Decode(nil, body)
		if err != nil {
			return Request{}, tisserr.NewCorruptData("sinew.DecodeRequest", -1)
		}
		body = decoded
	}
	return decodeBody(body)
}

func decodeBody(body []byte) (Request, error) {
	if len(body) < 4 {
		return Request{}, tisserr.NewCorruptData("sinew.decodeBody", 0)
	}
	queryLen := binary.BigEndian.Uint32(body[0:4])
	off := 4
	if uint64(off)+uint64(queryLen) > uint64(len(body)) {
		return Request{}, tisserr.NewCorruptData("sinew.decodeBody", int64(off))
	}
	query := string(body[off : off+int(queryLen)])
	off += int(queryLen)

	if off >= len(body) {
		return Request{Query: query}, nil
	}
	paramCount := int(body[off])
	off++

	params := make([]document.Value, 0, paramCount)
	for i := 0; i < paramCount; i++ {
		if off >= len(body) {
			return Request{}, tisserr.NewCorruptData("sinew.decodeBody", int64(off))
		}
		typ := ParamType(body[off])
		off++
		if off+4 > len(body) {
			return Request{}, tisserr.NewCorruptData("sinew.decodeBody", int64(off))
		}
		valLen := binary.BigEndian.Uint32(body[off : off+4])
		off += 4
		if uint64(off)+uint64(valLen) > uint64(len(body)) {
			return Request{}, tisserr.NewCorruptData("sinew.decodeBody", int64(off))
		}
		val := body[off : off+int(valLen)]
		off += int(valLen)

		v, err := decodeParamValue(typ, val)
		if err != nil {
			return Request{}, err
		}
		params = append(params, v)
	}
	return Request{Query: query, Params: params}, nil
}

func decodeParamValue(typ ParamType, val []byte) (document.Value, error) {
	switch typ {
	case ParamNull:
		return document.Null(), nil
	case ParamString:
		return document.NewString(string(val)), nil
	case ParamInt64:
		if len(val) != 8 {
			return document.Value{}, tisserr.NewCorruptData("sinew.decodeParamValue", -1)
		}
		return document.NewTimestamp(int64(binary.BigEndian.Uint64(val))), nil
	case ParamFloat64:
		if len(val) != 8 {
			return document.Value{}, tisserr.NewCorruptData("sinew.decodeParamValue", -1)
		}
		return document.NewFloat64(math.Float64frombits(binary.BigEndian.Uint64(val))), nil
	case ParamBool:
		if len(val) != 1 {
			return document.Value{}, tisserr.NewCorruptData("sinew.decodeParamValue", -1)
		}
		return document.NewBool(val[0] != 0), nil
	default:
		return document.Value{}, tisserr.NewCorruptData("sinew.decodeParamValue", -1)
	}
}

// EncodeResponse frames a response body: u32 body_len | body_bytes.
func EncodeResponse(body string) []byte {
	buf := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(body)))
	copy(buf[4:], body)
	return buf
}

// DecodeResponse reads one length-prefixed response (client side), rejecting
// any declared length over MaxResponseSize.
func DecodeResponse(r io.Reader) (string, error) {
	n, err := readUint32(r)
	if err != nil {
		return "", err
	}
	if n > MaxResponseSize {
		return "", tisserr.NewQuery("response size %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}
