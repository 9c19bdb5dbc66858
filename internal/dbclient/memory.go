package dbclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"docexport/internal/domain"
)

// MemoryCollection is one collection held by a MemoryStore.
type MemoryCollection struct {
	Name      string
	Documents []domain.Document

	// FailAfter, when > 0, makes the stream fail with FailErr after that many documents.
	FailAfter int
	FailErr   error
}

// MemoryStore is an in-process Store. It backs offline dry runs (driver
// "memory", loaded from a JSON fixture) and the package tests.
type MemoryStore struct {
	Collections []MemoryCollection
	ListErr     error
	closed      bool
}

// NewMemoryStore builds a store from the given collections, in order.
func NewMemoryStore(collections ...MemoryCollection) *MemoryStore {
	return &MemoryStore{Collections: collections}
}

func (s *MemoryStore) ListCollections(ctx context.Context) ([]string, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	names := make([]string, len(s.Collections))
	for i, c := range s.Collections {
		names[i] = c.Name
	}
	return names, nil
}

func (s *MemoryStore) Documents(ctx context.Context, collection string) DocumentIterator {
	for _, c := range s.Collections {
		if c.Name != collection {
			continue
		}
		if c.FailAfter > 0 && c.FailAfter <= len(c.Documents) {
			err := c.FailErr
			if err == nil {
				err = errors.New("stream interrupted")
			}
			return &sliceIterator{docs: c.Documents[:c.FailAfter], err: err}
		}
		return &sliceIterator{docs: c.Documents}
	}
	return &sliceIterator{}
}

func (s *MemoryStore) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *MemoryStore) Closed() bool {
	return s.closed
}

// ── Fixture loading ────────────────────────────────────────
// A fixture is a JSON object mapping collection names to arrays of documents:
//
//	{"users": [{"id": "u1", "name": "Alice"}], "orders": [...]}
//
// Object key order is preserved. A string "id" field becomes the document id;
// documents without one get their array index.

// LoadFixture reads a fixture file into a MemoryStore.
func LoadFixture(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return ReadFixture(f)
}

// ReadFixture parses a fixture from r.
func ReadFixture(r io.Reader) (*MemoryStore, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	store := &MemoryStore{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, '['); err != nil {
			return nil, fmt.Errorf("collection %q: %w", name, err)
		}
		coll := MemoryCollection{Name: name}
		for i := 0; dec.More(); i++ {
			v, err := readValue(dec)
			if err != nil {
				return nil, fmt.Errorf("collection %q document %d: %w", name, i, err)
			}
			fields, ok := v.(domain.Map)
			if !ok {
				return nil, fmt.Errorf("collection %q document %d: expected object", name, i)
			}
			doc := domain.Document{ID: strconv.Itoa(i), Fields: fields}
			if id, ok := fields.Get(domain.IDField); ok {
				if s, ok := id.(domain.String); ok {
					doc.ID = string(s)
					doc.Fields = fields.Without(domain.IDField)
				}
			}
			coll.Documents = append(coll.Documents, doc)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
		store.Collections = append(store.Collections, coll)
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return store, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("parse fixture: expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("parse fixture: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("parse fixture: expected key, got %v", tok)
	}
	return key, nil
}

func readValue(dec *json.Decoder) (domain.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	switch t := tok.(type) {
	case nil:
		return domain.Null{}, nil
	case bool:
		return domain.Bool(t), nil
	case string:
		return domain.String(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return domain.Integer(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("parse fixture: bad number %q", t)
		}
		return domain.Double(f), nil
	case json.Delim:
		switch t {
		case '{':
			m := domain.Map{}
			for dec.More() {
				key, err := readKey(dec)
				if err != nil {
					return nil, err
				}
				v, err := readValue(dec)
				if err != nil {
					return nil, err
				}
				m = append(m, domain.Entry{Key: key, Value: v})
			}
			return m, expectDelim(dec, '}')
		case '[':
			l := domain.List{}
			for dec.More() {
				v, err := readValue(dec)
				if err != nil {
					return nil, err
				}
				l = append(l, v)
			}
			return l, expectDelim(dec, ']')
		}
	}
	return nil, fmt.Errorf("parse fixture: unexpected token %v", tok)
}
