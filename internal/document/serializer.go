package document

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// elementWire and valueWire are the on-the-wire BSON shapes for Element and
// Value. Each Value is wrapped with an explicit kind tag rather than relying
// on BSON's own dynamic typing, so that serialize/deserialize round-trips
// losslessly distinguish e.g. a timestamp from a plain float (spec §8 #1),
// matching the teacher's MarshalBson/UnmarshalBson pair (pkg/storage/bson.go)
// but layered with our own tagged envelope.
type valueWire struct {
	K  byte        `bson:"k"`
	S  string      `bson:"s,omitempty"`
	N  float64     `bson:"n,omitempty"`
	B  bool        `bson:"b,omitempty"`
	T  int64       `bson:"t,omitempty"`
	By []byte      `bson:"by,omitempty"`
	O  []elementWire `bson:"o,omitempty"`
}

type elementWire struct {
	Key string    `bson:"k"`
	Val valueWire `bson:"v"`
}

type documentWire struct {
	ID       string        `bson:"id"`
	Elements []elementWire `bson:"elements"`
}

func toWireValue(v Value) valueWire {
	w := valueWire{K: byte(v.Kind)}
	switch v.Kind {
	case KindString:
		w.S = v.Str
	case KindFloat64:
		w.N = v.Num
	case KindBool:
		w.B = v.Bool
	case KindTimestamp:
		w.T = v.TS
	case KindBytes:
		w.By = v.Bytes
	case KindObject:
		w.O = toWireElements(v.Obj)
	}
	return w
}

func fromWireValue(w valueWire) Value {
	switch Kind(w.K) {
	case KindString:
		return NewString(w.S)
	case KindFloat64:
		return NewFloat64(w.N)
	case KindBool:
		return NewBool(w.B)
	case KindTimestamp:
		return NewTimestamp(w.T)
	case KindBytes:
		return NewBytes(w.By)
	case KindObject:
		return NewObject(fromWireElements(w.O))
	default:
		return Null()
	}
}

func toWireElements(elems []Element) []elementWire {
	out := make([]elementWire, len(elems))
	for i, e := range elems {
		out[i] = elementWire{Key: e.Key, Val: toWireValue(e.Value)}
	}
	return out
}

func fromWireElements(wires []elementWire) []Element {
	out := make([]Element, len(wires))
	for i, w := range wires {
		out[i] = Element{Key: w.Key, Value: fromWireValue(w.Val)}
	}
	return out
}

// Serialize encodes a Document to bytes via BSON. Round-trip law:
// Deserialize(Serialize(d)) == d for every well-formed d (spec §8 #1).
func Serialize(d Document) ([]byte, error) {
	wire := documentWire{ID: d.ID, Elements: toWireElements(d.Elements)}
	b, err := bson.Marshal(wire)
	if err != nil {
		return nil, errors.Wrap(err, "document: bson marshal")
	}
	return b, nil
}

// Deserialize reconstructs a Document from bytes produced by Serialize.
func Deserialize(b []byte) (Document, error) {
	var wire documentWire
	if err := bson.Unmarshal(b, &wire); err != nil {
		return Document{}, errors.Wrap(err, "document: bson unmarshal")
	}
	return Document{ID: wire.ID, Elements: fromWireElements(wire.Elements)}, nil
}

// MustSerialize is a helper for call sites that have already validated the
// document and want to treat a marshal failure as a programming error.
func MustSerialize(d Document) []byte {
	b, err := Serialize(d)
	if err != nil {
		panic(fmt.Sprintf("document: serialize invariant violated: %v", err))
	}
	return b
}
