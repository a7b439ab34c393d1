package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueComparable(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), "null"},
		{"string", NewString("abc"), "abc"},
		{"float", NewFloat64(3.5), "3.5"},
		{"bool true", NewBool(true), "true"},
		{"bool false", NewBool(false), "false"},
		{"timestamp", NewTimestamp(1700000000000000), "1700000000000000"},
		{"bytes", NewBytes([]byte("hi")), "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Comparable())
		})
	}
}

func TestValueAsFloat64(t *testing.T) {
	f, ok := NewFloat64(2).AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 2.0, f)

	f, ok = NewTimestamp(5).AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 5.0, f)

	f, ok = NewString("4.5").AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 4.5, f)

	_, ok = NewString("not-a-number").AsFloat64()
	assert.False(t, ok)

	_, ok = NewBool(true).AsFloat64()
	assert.False(t, ok)
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Null().Equal(Null()))
	assert.True(t, NewString("a").Equal(NewString("a")))
	assert.False(t, NewString("a").Equal(NewString("b")))
	assert.False(t, NewFloat64(1).Equal(NewString("1")))

	obj1 := NewObject([]Element{{Key: "a", Value: NewFloat64(1)}})
	obj2 := NewObject([]Element{{Key: "a", Value: NewFloat64(1)}})
	obj3 := NewObject([]Element{{Key: "a", Value: NewFloat64(2)}})
	assert.True(t, obj1.Equal(obj2))
	assert.False(t, obj1.Equal(obj3))
}

func TestDocumentGetSetClone(t *testing.T) {
	d := New("doc-1", Element{Key: "name", Value: NewString("alice")})

	v, ok := d.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "alice", v.Str)

	_, ok = d.Get("missing")
	assert.False(t, ok)

	d2 := d.Set("name", NewString("bob"))
	v2, _ := d2.Get("name")
	assert.Equal(t, "bob", v2.Str)

	d3 := d2.Set("age", NewFloat64(30))
	assert.Len(t, d3.Elements, 2)

	clone := d3.Clone()
	assert.True(t, d3.Equal(clone))
	clone.Elements[0].Value = NewString("carol")
	assert.False(t, d3.Equal(clone))
}

func TestDocumentEqualIgnoresOrder(t *testing.T) {
	a := New("doc-1",
		Element{Key: "x", Value: NewFloat64(1)},
		Element{Key: "y", Value: NewFloat64(2)},
	)
	b := New("doc-1",
		Element{Key: "y", Value: NewFloat64(2)},
		Element{Key: "x", Value: NewFloat64(1)},
	)
	assert.True(t, a.Equal(b))
}
