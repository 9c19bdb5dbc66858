package domain

// IDField is the reserved key the store-assigned document id is merged under.
const IDField = "id"

// CollectionField is the reserved key that tags each exported row with its origin collection.
const CollectionField = "firestore_collection"

// Document is one record fetched from a collection.
type Document struct {
	ID     string
	Fields Map
}

// WithID returns the document's fields with the store id merged in under
// IDField, placed first. A source field already named IDField is replaced.
func (d Document) WithID() Map {
	fields := d.Fields.Without(IDField)
	out := make(Map, 0, len(fields)+1)
	out = append(out, Entry{Key: IDField, Value: String(d.ID)})
	return append(out, fields...)
}

// FlatRecord is a single-level, string-valued record keyed by dotted paths.
// Keys keep the order they were first set in.
type FlatRecord struct {
	keys   []string
	values map[string]string
}

// NewFlatRecord returns an empty record with room for n keys.
func NewFlatRecord(n int) FlatRecord {
	return FlatRecord{
		keys:   make([]string, 0, n),
		values: make(map[string]string, n),
	}
}

// Set stores value under key. A new key is appended; an existing key keeps its position.
func (r *FlatRecord) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Has reports whether key is present.
func (r FlatRecord) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Get returns the value for key.
func (r FlatRecord) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r FlatRecord) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r FlatRecord) Len() int {
	return len(r.keys)
}

// Clone returns an independent copy.
func (r FlatRecord) Clone() FlatRecord {
	out := NewFlatRecord(len(r.keys))
	for _, k := range r.keys {
		out.Set(k, r.values[k])
	}
	return out
}

// AsMap returns the record as a plain map (order is lost).
func (r FlatRecord) AsMap() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
