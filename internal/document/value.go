// Package document implements the tagged-union Value/Element/Document model
// (spec §3, §4.2) and its schema validation (spec §4.8, supplemented per
// original_source/common/schema.h with the Object/Array field-type
// distinction).
package document

import (
	"fmt"
	"strconv"
)

// Kind tags which variant of the Value union is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindFloat64
	KindBool
	KindTimestamp // microseconds since Unix epoch
	KindBytes
	KindObject // ordered nested Elements
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindFloat64:
		return "f64"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindBytes:
		return "bytes"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is the tagged union spec §3 describes: null, string, f64, bool,
// i64-microsecond timestamp, bytes, or a nested ordered object.
type Value struct {
	Kind  Kind
	Str   string
	Num   float64
	Bool  bool
	TS    int64
	Bytes []byte
	Obj   []Element
}

func Null() Value                  { return Value{Kind: KindNull} }
func NewString(s string) Value     { return Value{Kind: KindString, Str: s} }
func NewFloat64(n float64) Value    { return Value{Kind: KindFloat64, Num: n} }
func NewBool(b bool) Value         { return Value{Kind: KindBool, Bool: b} }
func NewTimestamp(us int64) Value  { return Value{Kind: KindTimestamp, TS: us} }
func NewBytes(b []byte) Value      { return Value{Kind: KindBytes, Bytes: append([]byte(nil), b...)} }
func NewObject(elems []Element) Value { return Value{Kind: KindObject, Obj: elems} }

// Element is a (key, Value) pair; Documents are ordered sequences of them.
type Element struct {
	Key   string
	Value Value
}

// Comparable renders a Value into the lexicographic/string comparison form
// spec §4.12 specifies for predicate evaluation: booleans as "true"/"false",
// null as "null", everything else via its natural string form.
func (v Value) Comparable() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindString:
		return v.Str
	case KindFloat64:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindTimestamp:
		return strconv.FormatInt(v.TS, 10)
	case KindBytes:
		return string(v.Bytes)
	case KindObject:
		return ""
	default:
		return ""
	}
}

// AsFloat64 attempts numeric coercion: direct for KindFloat64/KindTimestamp,
// parsed for KindString containing a valid double. Used by the executor's
// "numeric comparison first" rule (spec §4.12).
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindFloat64:
		return v.Num, true
	case KindTimestamp:
		return float64(v.TS), true
	case KindString:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Equal is structural equality: same kind, same scalar payload, and for
// objects, same elements in the same order compared recursively. Used by
// DISTINCT and UNION (spec §4.12) and equality invariants (spec §8 #1).
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindString:
		return v.Str == o.Str
	case KindFloat64:
		return v.Num == o.Num
	case KindBool:
		return v.Bool == o.Bool
	case KindTimestamp:
		return v.TS == o.TS
	case KindBytes:
		if len(v.Bytes) != len(o.Bytes) {
			return false
		}
		for i := range v.Bytes {
			if v.Bytes[i] != o.Bytes[i] {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Obj) != len(o.Obj) {
			return false
		}
		for i := range v.Obj {
			if v.Obj[i].Key != o.Obj[i].Key || !v.Obj[i].Value.Equal(o.Obj[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
