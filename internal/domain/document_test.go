package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentWithID(t *testing.T) {
	doc := Document{ID: "u1", Fields: Map{
		{Key: "name", Value: String("Alice")},
		{Key: IDField, Value: String("shadowed")},
		{Key: "age", Value: Integer(30)},
	}}

	got := doc.WithID()
	assert.Equal(t, Map{
		{Key: IDField, Value: String("u1")},
		{Key: "name", Value: String("Alice")},
		{Key: "age", Value: Integer(30)},
	}, got)
	assert.Len(t, doc.Fields, 3, "source fields untouched")
}

func TestFlatRecordOrder(t *testing.T) {
	r := NewFlatRecord(0)
	r.Set("b", "1")
	r.Set("a", "2")
	r.Set("b", "3")

	assert.Equal(t, []string{"b", "a"}, r.Keys())
	v, ok := r.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, map[string]string{"a": "2", "b": "3"}, r.AsMap())
}

func TestFlatRecordCloneIsIndependent(t *testing.T) {
	r := NewFlatRecord(1)
	r.Set("x", "1")
	c := r.Clone()
	c.Set("y", "2")

	assert.False(t, r.Has("y"))
	assert.True(t, c.Has("x"))
}

func TestFlatRecordZeroValue(t *testing.T) {
	var r FlatRecord
	assert.False(t, r.Has("x"))
	r.Set("x", "1")
	assert.Equal(t, []string{"x"}, r.Keys())
}

func TestMapGet(t *testing.T) {
	m := Map{{Key: "a", Value: Bool(true)}}
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, Bool(true), v)

	_, ok = m.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, m.Without("a"))
}
