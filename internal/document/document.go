package document

// Document is an ordered sequence of Elements identified by ID (spec §3).
// Order is preserved for serialization but equality (Equal) is structural
// per key, not positional.
type Document struct {
	ID       string
	Elements []Element
}

// New constructs a Document from the given id and elements, in order.
func New(id string, elements ...Element) Document {
	return Document{ID: id, Elements: elements}
}

// Get returns the value for key and whether it was present.
func (d Document) Get(key string) (Value, bool) {
	for _, e := range d.Elements {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Set overwrites the value for key if present, or appends a new Element.
func (d Document) Set(key string, v Value) Document {
	for i := range d.Elements {
		if d.Elements[i].Key == key {
			d.Elements[i].Value = v
			return d
		}
	}
	d.Elements = append(d.Elements, Element{Key: key, Value: v})
	return d
}

// Clone returns a deep-enough copy safe to mutate independently (the
// Elements slice is copied; nested Values are copy-on-write since Value is
// a value type whose slice fields are only mutated via New*/Set, never in place).
func (d Document) Clone() Document {
	elems := make([]Element, len(d.Elements))
	copy(elems, d.Elements)
	return Document{ID: d.ID, Elements: elems}
}

// Equal is structural per-key equality (order-independent), matching spec §3:
// "order is preserved for serialisation but not for equality".
func (d Document) Equal(o Document) bool {
	if d.ID != o.ID || len(d.Elements) != len(o.Elements) {
		return false
	}
	for _, e := range d.Elements {
		ov, ok := o.Get(e.Key)
		if !ok || !e.Value.Equal(ov) {
			return false
		}
	}
	return true
}
