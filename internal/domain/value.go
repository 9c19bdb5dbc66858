package domain

import "time"

// Value is a single field value as retrieved from a document store.
// The concrete variants below are the only implementations; callers
// switch on the concrete type.
type Value interface {
	isValue()
}

// Null is an explicit null field.
type Null struct{}

// Bool is a boolean field.
type Bool bool

// Integer is a whole-number field.
type Integer int64

// Double is a floating point field.
type Double float64

// String is a text field.
type String string

// Timestamp is a point in time.
type Timestamp time.Time

// Bytes is an opaque binary field.
type Bytes []byte

// Reference points at another document, as a path relative to the database root
// (e.g. "users/u1").
type Reference string

// List is an ordered sequence of values.
type List []Value

// Entry is one key of a Map.
type Entry struct {
	Key   string
	Value Value
}

// Map is an ordered mapping of keys to values.
// Order is the order the store reported, or ascending key order for stores
// whose client exposes unordered maps.
type Map []Entry

func (Null) isValue()      {}
func (Bool) isValue()      {}
func (Integer) isValue()   {}
func (Double) isValue()    {}
func (String) isValue()    {}
func (Timestamp) isValue() {}
func (Bytes) isValue()     {}
func (Reference) isValue() {}
func (List) isValue()      {}
func (Map) isValue()       {}

// Get returns the value stored under key.
func (m Map) Get(key string) (Value, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Without returns a copy of m with key removed.
func (m Map) Without(key string) Map {
	out := make(Map, 0, len(m))
	for _, e := range m {
		if e.Key != key {
			out = append(out, e)
		}
	}
	return out
}
