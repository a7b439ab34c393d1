package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func userSchema() Schema {
	return Schema{
		Fields: []FieldSchema{
			{Name: "id", Type: FieldString, Required: true},
			{Name: "age", Type: FieldNumber, Required: false},
		},
		PrimaryKey: []string{"id"},
	}
}

func TestValidateRequiredFieldMissing(t *testing.T) {
	s := userSchema()
	doc := New("d1", Element{Key: "age", Value: NewFloat64(30)})
	err := Validate(s, doc)
	assert.Error(t, err)
}

func TestValidateTypeMismatch(t *testing.T) {
	s := userSchema()
	doc := New("d1",
		Element{Key: "id", Value: NewString("u1")},
		Element{Key: "age", Value: NewString("thirty")},
	)
	err := Validate(s, doc)
	assert.Error(t, err)
}

func TestValidateOK(t *testing.T) {
	s := userSchema()
	doc := New("d1",
		Element{Key: "id", Value: NewString("u1")},
		Element{Key: "age", Value: NewFloat64(30)},
	)
	assert.NoError(t, Validate(s, doc))
}

func TestPrimaryKeyValueComposite(t *testing.T) {
	s := Schema{PrimaryKey: []string{"tenant", "id"}}
	doc := New("d1",
		Element{Key: "tenant", Value: NewString("acme")},
		Element{Key: "id", Value: NewString("42")},
	)
	key, ok := PrimaryKeyValue(s, doc)
	assert.True(t, ok)
	assert.Equal(t, "acme\x0042", key)
}

func TestPrimaryKeyValueMissingField(t *testing.T) {
	s := Schema{PrimaryKey: []string{"id"}}
	doc := New("d1", Element{Key: "other", Value: NewString("x")})
	_, ok := PrimaryKeyValue(s, doc)
	assert.False(t, ok)
}

func TestArrayShapeDetection(t *testing.T) {
	arr := NewObject([]Element{
		{Key: "_", Value: NewFloat64(1)},
		{Key: "_", Value: NewFloat64(2)},
	})
	assert.True(t, FieldArray.matches(arr))
	assert.False(t, FieldObject.matches(arr))

	obj := NewObject([]Element{{Key: "name", Value: NewString("x")}})
	assert.True(t, FieldObject.matches(obj))
	assert.False(t, FieldArray.matches(obj))
}
