package dbclient

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docexport/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Fixture loading
// ─────────────────────────────────────────────────────────────

const fixture = `{
  "users": [
    {"id": "u1", "name": "Alice", "address": {"zip": "10001", "city": "NY"}},
    {"name": "NoID", "age": 41, "score": 9.5, "ok": true, "gone": null, "tags": ["a", 2]}
  ],
  "orders": []
}`

func TestReadFixture(t *testing.T) {
	store, err := ReadFixture(strings.NewReader(fixture))
	require.NoError(t, err)

	names, err := store.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, names)

	users := store.Collections[0].Documents
	require.Len(t, users, 2)

	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, domain.Map{
		{Key: "name", Value: domain.String("Alice")},
		{Key: "address", Value: domain.Map{
			{Key: "zip", Value: domain.String("10001")},
			{Key: "city", Value: domain.String("NY")},
		}},
	}, users[0].Fields, "key order must be preserved")

	assert.Equal(t, "1", users[1].ID, "documents without id get their index")
	assert.Equal(t, domain.Map{
		{Key: "name", Value: domain.String("NoID")},
		{Key: "age", Value: domain.Integer(41)},
		{Key: "score", Value: domain.Double(9.5)},
		{Key: "ok", Value: domain.Bool(true)},
		{Key: "gone", Value: domain.Null{}},
		{Key: "tags", Value: domain.List{domain.String("a"), domain.Integer(2)}},
	}, users[1].Fields)
}

func TestReadFixture_Malformed(t *testing.T) {
	for _, in := range []string{`[]`, `{"c": {}}`, `{"c": [1]}`, `{"c": [`} {
		_, err := ReadFixture(strings.NewReader(in))
		assert.Error(t, err, in)
	}
}

func TestMemoryStore_Iteration(t *testing.T) {
	store := NewMemoryStore(MemoryCollection{
		Name:      "c",
		Documents: []domain.Document{{ID: "1"}, {ID: "2"}},
		FailAfter: 1,
		FailErr:   errors.New("boom"),
	})

	it := store.Documents(context.Background(), "c")
	defer it.Stop()
	doc, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", doc.ID)
	_, err = it.Next()
	assert.EqualError(t, err, "boom")

	missing := store.Documents(context.Background(), "nope")
	_, err = missing.Next()
	assert.ErrorIs(t, err, Done)

	require.NoError(t, store.Close())
	assert.True(t, store.Closed())
}

// ─────────────────────────────────────────────────────────────
// NewStore / credentials
// ─────────────────────────────────────────────────────────────

func TestCheckCredentials(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, CheckCredentials(""), ErrCredentialsNotFound)
	assert.ErrorIs(t, CheckCredentials(filepath.Join(dir, "missing.json")), ErrCredentialsNotFound)

	err := CheckCredentials(dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)

	key := filepath.Join(dir, "key.json")
	require.NoError(t, os.WriteFile(key, []byte("{}"), 0o600))
	assert.NoError(t, CheckCredentials(key))
}

func TestNewStore_Memory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	store, err := NewStore(context.Background(), domain.StoreConnection{
		Driver:          domain.StoreDriverMemory,
		CredentialsPath: path,
	})
	require.NoError(t, err)
	defer store.Close()

	names, err := store.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, names)
}

func TestNewStore_ChecksCredentialsFirst(t *testing.T) {
	_, err := NewStore(context.Background(), domain.StoreConnection{
		Driver:          domain.StoreDriverFirestore,
		CredentialsPath: filepath.Join(t.TempDir(), "absent.json"),
	})
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestNewStore_UnknownDriver(t *testing.T) {
	_, err := NewStore(context.Background(), domain.StoreConnection{Driver: "cassandra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
