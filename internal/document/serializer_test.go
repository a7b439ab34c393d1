package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	doc := New("doc-1",
		Element{Key: "name", Value: NewString("alice")},
		Element{Key: "age", Value: NewFloat64(30)},
		Element{Key: "active", Value: NewBool(true)},
		Element{Key: "joined", Value: NewTimestamp(1700000000000000)},
		Element{Key: "avatar", Value: NewBytes([]byte{1, 2, 3})},
		Element{Key: "address", Value: NewObject([]Element{
			{Key: "city", Value: NewString("nyc")},
		})},
		Element{Key: "missing", Value: Null()},
	)

	b, err := Serialize(doc)
	require.NoError(t, err)

	got, err := Deserialize(b)
	require.NoError(t, err)

	assert.True(t, doc.Equal(got))
}

func TestMustSerializeDoesNotPanicOnValidDocument(t *testing.T) {
	doc := New("doc-1", Element{Key: "x", Value: NewFloat64(1)})
	assert.NotPanics(t, func() {
		MustSerialize(doc)
	})
}
