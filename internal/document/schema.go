package document

import (
	"github.com/tissdb/tissdb/internal/tisserr"
)

// FieldType is the schema-level type a field is declared with. It is
// distinguished from the storage-level Kind: Object and Array both store as
// KindObject, but validation error messages and type checks need the finer
// distinction original_source/common/schema.h carries.
type FieldType uint8

const (
	FieldString FieldType = iota
	FieldNumber
	FieldBoolean
	FieldDateTime
	FieldBinary
	FieldObject
	FieldArray
)

func (t FieldType) matches(v Value) bool {
	switch t {
	case FieldString:
		return v.Kind == KindString
	case FieldNumber:
		return v.Kind == KindFloat64
	case FieldBoolean:
		return v.Kind == KindBool
	case FieldDateTime:
		return v.Kind == KindTimestamp
	case FieldBinary:
		return v.Kind == KindBytes
	case FieldObject:
		return v.Kind == KindObject && !isArrayShaped(v)
	case FieldArray:
		return v.Kind == KindObject && isArrayShaped(v)
	default:
		return false
	}
}

func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldNumber:
		return "number"
	case FieldBoolean:
		return "boolean"
	case FieldDateTime:
		return "datetime"
	case FieldBinary:
		return "binary"
	case FieldObject:
		return "object"
	case FieldArray:
		return "array"
	default:
		return "unknown"
	}
}

// isArrayShaped treats an object whose elements all carry the synthetic key
// "_" (array positions are not named) as an array; TissDB has no distinct
// wire representation for arrays, only nested Object values whose elements
// are unnamed, matching original_source's Array field type layered on top of
// the same underlying storage shape as Object.
func isArrayShaped(v Value) bool {
	if len(v.Obj) == 0 {
		return false
	}
	for _, e := range v.Obj {
		if e.Key != "_" {
			return false
		}
	}
	return true
}

// FieldSchema describes one declared field.
type FieldSchema struct {
	Name     string
	Type     FieldType
	Required bool
	Unique   bool
}

// ForeignKey declares that LocalField must reference RefField of a document
// in RefCollection.
type ForeignKey struct {
	LocalField    string
	RefCollection string
	RefField      string
}

// Schema is the ordered field list plus optional primary key (possibly
// composite) and foreign keys (spec §3).
type Schema struct {
	Fields      []FieldSchema
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

// Field looks up a field's declaration by name.
func (s Schema) Field(name string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// Validate checks required-field presence and type conformance (spec §4.8,
// grounded on original_source/common/schema_validator.cpp's required/type
// check pair).
func Validate(s Schema, doc Document) error {
	for _, f := range s.Fields {
		v, ok := doc.Get(f.Name)
		if !ok || v.Kind == KindNull {
			if f.Required {
				return tisserr.NewSchemaViolation(f.Name, "required field missing")
			}
			continue
		}
		if !f.Type.matches(v) {
			return tisserr.NewSchemaViolation(f.Name, "expected type %s, got %s", f.Type, v.Kind)
		}
	}
	return nil
}

// PrimaryKeyValue concatenates the primary key field values with NUL,
// matching the composite-key convention indexes use (spec §3).
func PrimaryKeyValue(s Schema, doc Document) (string, bool) {
	if len(s.PrimaryKey) == 0 {
		return "", false
	}
	key := ""
	for i, f := range s.PrimaryKey {
		v, ok := doc.Get(f)
		if !ok {
			return "", false
		}
		if i > 0 {
			key += "\x00"
		}
		key += v.Comparable()
	}
	return key, true
}
