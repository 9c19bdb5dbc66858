package etl

import (
	"errors"
	"strings"

	"docexport/internal/domain"
)

// Separator joins ancestor keys into a dotted path.
const Separator = "."

// DefaultMaxDepth bounds mapping/list nesting when no limit is configured.
const DefaultMaxDepth = 64

var (
	// ErrSeparatorInKey is returned for a field name containing Separator.
	// Such a name is indistinguishable from a nested path once flattened, in
	// this document or any other, so the document is rejected outright.
	ErrSeparatorInKey = errors.New("field name contains the path separator")

	// ErrKeyCollision is returned when a mapping repeats a key.
	ErrKeyCollision = errors.New("flattened key collision")

	// ErrTooDeep is returned when nesting exceeds the configured depth.
	ErrTooDeep = errors.New("document nesting too deep")
)

// Flattener turns a document's nested fields into a FlatRecord.
// Mappings are expanded into dotted paths; lists are kept whole as one
// canonical string; scalars become their text form.
type Flattener struct {
	MaxDepth int
}

// NewFlattener returns a Flattener with the given depth limit (<= 0 uses DefaultMaxDepth).
func NewFlattener(maxDepth int) *Flattener {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Flattener{MaxDepth: maxDepth}
}

// Flatten converts one document, with its id merged in, into a FlatRecord.
// On failure it returns a flatten ExportError carrying the document id and the
// offending key; the caller fills in the collection.
func (f *Flattener) Flatten(doc domain.Document) (domain.FlatRecord, error) {
	fields := doc.WithID()
	rec := domain.NewFlatRecord(len(fields))
	if key, err := f.flattenMap(&rec, "", fields, 1); err != nil {
		return domain.FlatRecord{}, &ExportError{Kind: KindFlatten, DocumentID: doc.ID, Path: key, Cause: err}
	}
	return rec, nil
}

func (f *Flattener) maxDepth() int {
	if f == nil || f.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return f.MaxDepth
}

// flattenMap walks m depth-first. On error it returns the path it failed at.
func (f *Flattener) flattenMap(rec *domain.FlatRecord, prefix string, m domain.Map, depth int) (string, error) {
	if depth > f.maxDepth() {
		return prefix, ErrTooDeep
	}
	for _, e := range m {
		key := e.Key
		if prefix != "" {
			key = prefix + Separator + e.Key
		}
		if strings.Contains(e.Key, Separator) {
			return key, ErrSeparatorInKey
		}

		switch v := e.Value.(type) {
		case domain.Map:
			if failed, err := f.flattenMap(rec, key, v, depth+1); err != nil {
				return failed, err
			}
		case domain.List:
			text, err := CanonicalString(v, f.maxDepth()-depth+1)
			if err != nil {
				return key, err
			}
			if rec.Has(key) {
				return key, ErrKeyCollision
			}
			rec.Set(key, text)
		default:
			if rec.Has(key) {
				return key, ErrKeyCollision
			}
			rec.Set(key, ScalarText(v))
		}
	}
	return "", nil
}
