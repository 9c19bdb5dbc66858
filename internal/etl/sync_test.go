package etl_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docexport/internal/dbclient"
	"docexport/internal/domain"
	"docexport/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// Engine tests: in-memory store through to a real CSV file
// ─────────────────────────────────────────────────────────────

func usersAndOrders() *dbclient.MemoryStore {
	return dbclient.NewMemoryStore(
		dbclient.MemoryCollection{Name: "users", Documents: []domain.Document{
			{ID: "u1", Fields: domain.Map{{Key: "name", Value: domain.String("Alice")}}},
		}},
		dbclient.MemoryCollection{Name: "orders", Documents: []domain.Document{
			{ID: "o1", Fields: domain.Map{
				{Key: "total", Value: domain.Integer(42)},
				{Key: "items", Value: domain.List{domain.Integer(1), domain.Integer(2)}},
			}},
		}},
	)
}

func newEngine(store dbclient.Store, path string) *etl.Engine {
	return &etl.Engine{
		Store:     store,
		Dest:      &etl.CSVDestination{Path: path},
		Flattener: etl.NewFlattener(0),
		Logger:    zerolog.Nop(),
		Output:    path,
	}
}

func TestRunExport_UsersAndOrders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	res, err := newEngine(usersAndOrders(), path).RunExport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, etl.StatusSuccess, res.Status)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.RowsRead)
	assert.Equal(t, 2, res.RowsWritten)
	assert.Equal(t, []string{"id", "name", "firestore_collection", "total", "items"}, res.Columns)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"id,name,firestore_collection,total,items\n"+
			"u1,Alice,users,,\n"+
			"o1,,orders,42,\"[1, 2]\"\n",
		string(data))
}

func TestRunExport_FractionalTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	store := dbclient.NewMemoryStore(dbclient.MemoryCollection{Name: "orders", Documents: []domain.Document{
		{ID: "o2", Fields: domain.Map{{Key: "total", Value: domain.Double(9.5)}}},
	}})

	_, err := newEngine(store, path).RunExport(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,total,firestore_collection\no2,9.5,orders\n", string(data))
}

func TestRunExport_Idempotent(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")
	store := usersAndOrders()

	_, err := newEngine(store, a).RunExport(context.Background())
	require.NoError(t, err)
	_, err = newEngine(store, b).RunExport(context.Background())
	require.NoError(t, err)

	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	assert.Equal(t, da, db)
}

func TestRunExport_NoCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	res, err := newEngine(dbclient.NewMemoryStore(), path).RunExport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, etl.StatusNoData, res.Status)
	assert.NoFileExists(t, path)
}

func TestRunExport_EmptyCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	store := dbclient.NewMemoryStore(dbclient.MemoryCollection{Name: "empty"})
	res, err := newEngine(store, path).RunExport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, etl.StatusNoData, res.Status)
	require.Len(t, res.Collections, 1)
	assert.NoFileExists(t, path)
}

func TestRunExport_EnumerationFailureIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	store := usersAndOrders()
	store.ListErr = errors.New("permission denied")

	res, err := newEngine(store, path).RunExport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, etl.StatusNoData, res.Status)
	assert.Contains(t, res.Error, "enumeration error")
	assert.NoFileExists(t, path)
}

func TestRunExport_FetchFailureKeepsPartialDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	store := dbclient.NewMemoryStore(
		dbclient.MemoryCollection{Name: "flaky", FailAfter: 1, Documents: []domain.Document{
			{ID: "a", Fields: domain.Map{{Key: "v", Value: domain.Integer(1)}}},
			{ID: "b", Fields: domain.Map{{Key: "v", Value: domain.Integer(2)}}},
		}},
		dbclient.MemoryCollection{Name: "ok", Documents: []domain.Document{
			{ID: "c", Fields: domain.Map{{Key: "w", Value: domain.Bool(true)}}},
		}},
	)

	res, err := newEngine(store, path).RunExport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, etl.StatusPartial, res.Status)
	assert.Equal(t, []string{"flaky"}, res.FailedCollections)
	assert.Equal(t, 2, res.RowsWritten)
	require.Len(t, res.Collections, 2)
	assert.Contains(t, res.Collections[0].Error, "stream interrupted")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,v,firestore_collection,w\na,1,flaky,\nc,,ok,true\n", string(data))
}

func TestRunExport_FlattenRejectsAreCounted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	store := dbclient.NewMemoryStore(dbclient.MemoryCollection{Name: "c", Documents: []domain.Document{
		{ID: "bad", Fields: domain.Map{
			{Key: "a.b", Value: domain.Integer(1)},
			{Key: "a", Value: domain.Map{{Key: "b", Value: domain.Integer(2)}}},
		}},
		{ID: "good", Fields: domain.Map{{Key: "a", Value: domain.Map{{Key: "b", Value: domain.Integer(3)}}}}},
	}})

	res, err := newEngine(store, path).RunExport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, etl.StatusPartial, res.Status)
	assert.Equal(t, 2, res.RowsRead)
	assert.Equal(t, 1, res.RowsSkipped)
	assert.Equal(t, 1, res.RowsWritten)
	assert.Equal(t, res.RowsRead, res.RowsWritten+res.RowsSkipped)
}

func TestRunExport_DottedNameNeverSharesAColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	store := dbclient.NewMemoryStore(dbclient.MemoryCollection{Name: "c", Documents: []domain.Document{
		{ID: "d1", Fields: domain.Map{{Key: "a.b", Value: domain.Integer(1)}}},
		{ID: "d2", Fields: domain.Map{{Key: "a", Value: domain.Map{{Key: "b", Value: domain.Integer(2)}}}}},
	}})

	res, err := newEngine(store, path).RunExport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, etl.StatusPartial, res.Status)
	assert.Equal(t, 1, res.RowsSkipped)
	assert.Equal(t, 1, res.RowsWritten)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,a.b,firestore_collection\nd2,2,c\n", string(data))
}

func TestRunExport_OnlySelectedCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	e := newEngine(usersAndOrders(), path)
	e.Only = []string{"orders", "missing"}

	res, err := e.RunExport(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Collections, 1)
	assert.Equal(t, "orders", res.Collections[0].Name)
	assert.Equal(t, []string{"id", "total", "items", "firestore_collection"}, res.Columns)
}

func TestRunExport_WriteFailureIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "data.csv")
	res, err := newEngine(usersAndOrders(), path).RunExport(context.Background())
	require.Error(t, err)
	assert.True(t, etl.IsFatal(err))
	assert.Equal(t, etl.StatusError, res.Status)
}

func TestRunLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	res, err := newEngine(usersAndOrders(), path).RunExport(context.Background())
	require.NoError(t, err)

	run := res.RunLog()
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, []string{"users", "orders"}, run.Collections)
	assert.Equal(t, path, run.Output)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
}

// ─────────────────────────────────────────────────────────────
// Preview / Fetch
// ─────────────────────────────────────────────────────────────

func TestPreview_LimitsRowsAndWritesNothing(t *testing.T) {
	dir := t.TempDir()
	store := dbclient.NewMemoryStore(dbclient.MemoryCollection{Name: "c", Documents: []domain.Document{
		{ID: "1"}, {ID: "2"}, {ID: "3"},
	}})
	tbl, err := newEngine(store, filepath.Join(dir, "x.csv")).Preview(context.Background(), "c", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"id", "firestore_collection"}, tbl.Columns())

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestFetchCollection_PartialOnError(t *testing.T) {
	store := dbclient.NewMemoryStore(dbclient.MemoryCollection{
		Name: "c", FailAfter: 2, FailErr: errors.New("deadline"),
		Documents: []domain.Document{{ID: "1"}, {ID: "2"}, {ID: "3"}},
	})
	docs, err := etl.FetchCollection(context.Background(), store, "c")
	assert.Len(t, docs, 2)
	require.Error(t, err)
	kind, _ := etl.KindOf(err)
	assert.Equal(t, etl.KindFetch, kind)
}

func TestEnumerateCollections_StoreOrder(t *testing.T) {
	names, err := etl.EnumerateCollections(context.Background(), usersAndOrders(), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders"}, names)
}
