package etl

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes the assembled table into a target.
// The only destination is a CSV file on local disk.

// Destination writes a finalized table and returns the number of data rows written.
type Destination interface {
	Write(ctx context.Context, table *Table) (int, error)
}

// ── CSV Destination ────────────────────────────────────────
// Header row = table columns, one row per record. The target file is
// replaced atomically: rows go to a temp file in the same directory which is
// renamed over the target once fully flushed.

// CSVDestination implements Destination for a CSV file.
type CSVDestination struct {
	Path string
}

func (d *CSVDestination) Write(ctx context.Context, table *Table) (int, error) {
	if err := table.Finalize(); err != nil {
		if errors.Is(err, ErrNoData) {
			return 0, nil
		}
		return 0, NewSerializationError(d.Path, err)
	}
	if d.Path == "" {
		return 0, NewSerializationError(d.Path, errors.New("output path is empty"))
	}

	dir := filepath.Dir(d.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.Path)+".*.tmp")
	if err != nil {
		return 0, NewSerializationError(d.Path, fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close() // no-op error if already closed
			os.Remove(tmpName)
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(table.Columns()); err != nil {
		return 0, NewSerializationError(d.Path, fmt.Errorf("write header: %w", err))
	}

	written := 0
	for i := 0; i < table.Len(); i++ {
		select {
		case <-ctx.Done():
			return written, NewSerializationError(d.Path, ctx.Err())
		default:
		}
		if err := w.Write(table.Row(i)); err != nil {
			return written, NewSerializationError(d.Path, fmt.Errorf("write row %d: %w", i, err))
		}
		written++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return written, NewSerializationError(d.Path, fmt.Errorf("flush: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return written, NewSerializationError(d.Path, fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return written, NewSerializationError(d.Path, fmt.Errorf("close: %w", err))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return written, NewSerializationError(d.Path, fmt.Errorf("chmod: %w", err))
	}
	if err := os.Rename(tmpName, d.Path); err != nil {
		return written, NewSerializationError(d.Path, fmt.Errorf("rename: %w", err))
	}
	committed = true
	return written, nil
}
