package etl

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────
// CSV destination tests
// ─────────────────────────────────────────────────────────────

func TestCSVDestination_WritesHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	tbl := NewTable()
	tbl.Add(record("id", "u1", "note", "a,b \"quoted\"\nline2"), "users")
	tbl.Add(record("id", "u2"), "users")

	n, err := (&CSVDestination{Path: path}).Write(context.Background(), tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"id", "note", "firestore_collection"},
		{"u1", "a,b \"quoted\"\nline2", "users"},
		{"u2", "", "users"},
	}, rows)
}

func TestCSVDestination_NoDataCreatesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	n, err := (&CSVDestination{Path: path}).Write(context.Background(), NewTable())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoFileExists(t, path)
}

func TestCSVDestination_OverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new file\n"), 0o644))

	tbl := NewTable()
	tbl.Add(record("id", "1"), "c")
	_, err := (&CSVDestination{Path: path}).Write(context.Background(), tbl)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,firestore_collection\n1,c\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCSVDestination_UnwritableDirIsSerializationError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")
	tbl := NewTable()
	tbl.Add(record("id", "1"), "c")

	_, err := (&CSVDestination{Path: path}).Write(context.Background(), tbl)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindSerialization, kind)
	assert.True(t, IsFatal(err))
}
