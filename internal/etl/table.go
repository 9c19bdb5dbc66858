package etl

import "docexport/internal/domain"

// ── Table ──────────────────────────────────────────────────
// Accumulates flattened rows from every collection and tracks the unified
// column set. Columns are ordered by first appearance across rows, in the
// order rows were added, so the same input always yields the same header.

// Table is the assembled export: ordered rows plus their column union.
type Table struct {
	columns []string
	seen    map[string]bool
	rows    []domain.FlatRecord
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{seen: make(map[string]bool)}
}

// Add appends rec as a row tagged with its origin collection. The record
// itself is not modified.
func (t *Table) Add(rec domain.FlatRecord, collection string) {
	row := rec.Clone()
	row.Set(domain.CollectionField, collection)

	for _, k := range row.Keys() {
		if !t.seen[k] {
			t.seen[k] = true
			t.columns = append(t.columns, k)
		}
	}
	t.rows = append(t.rows, row)
}

// Columns returns the header, in first-seen order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the cells of row i aligned to Columns. Missing keys are empty cells.
func (t *Table) Row(i int) []string {
	rec := t.rows[i]
	cells := make([]string, len(t.columns))
	for j, col := range t.columns {
		cells[j], _ = rec.Get(col)
	}
	return cells
}

// Record returns row i as stored.
func (t *Table) Record(i int) domain.FlatRecord {
	return t.rows[i]
}

// Finalize returns ErrNoData when no rows were added.
func (t *Table) Finalize() error {
	if len(t.rows) == 0 {
		return ErrNoData
	}
	return nil
}
