package etl

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docexport/internal/dbclient"
)

// ── Export run ─────────────────────────────────────────────
// Orchestrates: enumerate → fetch each collection → flatten → table → write.
// Enumeration, fetch and flatten failures are logged and recorded; only
// configuration, initialization and serialization failures abort the run.

// Run statuses.
const (
	StatusSuccess = "success" // every collection exported cleanly
	StatusPartial = "partial" // file written, but some collections or documents were dropped
	StatusNoData  = "no_data" // nothing to write, no file produced
	StatusError   = "error"   // fatal failure
)

// CollectionResult is the per-collection part of a run summary.
type CollectionResult struct {
	Name        string `json:"name"`
	RowsRead    int    `json:"rowsRead"`
	RowsSkipped int    `json:"rowsSkipped"`
	Error       string `json:"error,omitempty"`
}

// ExportResult is the outcome of one export run.
type ExportResult struct {
	RunID             string             `json:"runId"`
	Status            string             `json:"status"`
	StartedAt         time.Time          `json:"startedAt"`
	FinishedAt        time.Time          `json:"finishedAt"`
	Collections       []CollectionResult `json:"collections"`
	FailedCollections []string           `json:"failedCollections,omitempty"`
	Columns           []string           `json:"columns,omitempty"`
	RowsRead          int                `json:"rowsRead"`
	RowsWritten       int                `json:"rowsWritten"`
	RowsSkipped       int                `json:"rowsSkipped"`
	Output            string             `json:"output,omitempty"`
	Duration          time.Duration      `json:"duration"`
	Error             string             `json:"error,omitempty"`
}

// ExportRun is a historical record of a run, as persisted by the run store.
type ExportRun struct {
	ID                string    `json:"id"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
	Status            string    `json:"status"`
	Collections       []string  `json:"collections"`
	FailedCollections []string  `json:"failedCollections,omitempty"`
	RowsRead          int       `json:"rowsRead"`
	RowsWritten       int       `json:"rowsWritten"`
	RowsSkipped       int       `json:"rowsSkipped"`
	Output            string    `json:"output"`
	Error             string    `json:"error,omitempty"`
}

// RunLog converts a result into its history record.
func (r *ExportResult) RunLog() *ExportRun {
	names := make([]string, len(r.Collections))
	for i, c := range r.Collections {
		names[i] = c.Name
	}
	return &ExportRun{
		ID:                r.RunID,
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
		Status:            r.Status,
		Collections:       names,
		FailedCollections: r.FailedCollections,
		RowsRead:          r.RowsRead,
		RowsWritten:       r.RowsWritten,
		RowsSkipped:       r.RowsSkipped,
		Output:            r.Output,
		Error:             r.Error,
	}
}

// ── Engine ─────────────────────────────────────────────────

// Engine runs exports from one store into one destination.
type Engine struct {
	Store     dbclient.Store
	Dest      Destination
	Flattener *Flattener
	Logger    zerolog.Logger
	Output    string   // reported in results; the destination owns the actual path
	Only      []string // restrict the run to these collections; empty = all
}

// RunExport executes a full export. The returned error is non-nil only for
// fatal failures; recovered ones are reflected in the result.
func (e *Engine) RunExport(ctx context.Context) (*ExportResult, error) {
	start := time.Now()
	result := &ExportResult{RunID: uuid.NewString(), StartedAt: start, Output: e.Output}
	log := e.Logger.With().Str("run_id", result.RunID).Logger()

	degraded := false

	// 1. Enumerate top-level collections.
	names, err := EnumerateCollections(ctx, e.Store, log)
	if err != nil {
		degraded = true
		result.Error = err.Error()
	}
	names = e.selectCollections(names, log)

	// 2. Fetch and flatten, one collection at a time.
	table := NewTable()
	for _, name := range names {
		cr := e.exportCollection(ctx, name, table, log)
		result.Collections = append(result.Collections, cr)
		result.RowsRead += cr.RowsRead
		result.RowsSkipped += cr.RowsSkipped
		if cr.Error != "" {
			result.FailedCollections = append(result.FailedCollections, name)
			degraded = true
		}
		if cr.RowsSkipped > 0 {
			degraded = true
		}
	}
	result.Columns = table.Columns()

	// 3. Write.
	if errors.Is(table.Finalize(), ErrNoData) {
		log.Warn().Msg("no documents collected, nothing written")
		return e.finish(result, StatusNoData, start), nil
	}
	written, err := e.Dest.Write(ctx, table)
	result.RowsWritten = written
	if err != nil {
		log.Error().Err(err).Str("output", e.Output).Msg("write failed")
		result.Error = err.Error()
		return e.finish(result, StatusError, start), err
	}

	log.Info().
		Int("rows", written).
		Int("columns", len(result.Columns)).
		Str("output", e.Output).
		Msg("export written")

	status := StatusSuccess
	if degraded {
		status = StatusPartial
	}
	return e.finish(result, status, start), nil
}

// selectCollections applies Only, keeping store order.
func (e *Engine) selectCollections(names []string, log zerolog.Logger) []string {
	if len(e.Only) == 0 {
		return names
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	wanted := make(map[string]bool, len(e.Only))
	for _, n := range e.Only {
		wanted[n] = true
		if !present[n] {
			log.Warn().Str("collection", n).Msg("collection not found")
		}
	}
	var out []string
	for _, n := range names {
		if wanted[n] {
			out = append(out, n)
		}
	}
	return out
}

// exportCollection fetches one collection and adds its flattened rows to table.
func (e *Engine) exportCollection(ctx context.Context, name string, table *Table, log zerolog.Logger) CollectionResult {
	clog := log.With().Str("collection", name).Logger()
	cr := CollectionResult{Name: name}

	docs, err := FetchCollection(ctx, e.Store, name)
	cr.RowsRead = len(docs)
	if err != nil {
		clog.Error().Err(err).Int("fetched", len(docs)).Msg("fetch failed, keeping documents read so far")
		cr.Error = err.Error()
	}

	for _, doc := range docs {
		rec, err := e.Flattener.Flatten(doc)
		if err != nil {
			var ee *ExportError
			if errors.As(err, &ee) {
				ee.Collection = name
			}
			clog.Warn().Err(err).Str("document_id", doc.ID).Msg("skipping document")
			cr.RowsSkipped++
			continue
		}
		table.Add(rec, name)
	}

	clog.Info().Int("documents", cr.RowsRead).Int("skipped", cr.RowsSkipped).Msg("collection exported")
	return cr
}

func (e *Engine) finish(result *ExportResult, status string, start time.Time) *ExportResult {
	result.Status = status
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(start)
	return result
}

// Preview flattens up to maxRows documents of one collection without writing anything.
func (e *Engine) Preview(ctx context.Context, collection string, maxRows int) (*Table, error) {
	docs, err := fetchDocuments(ctx, e.Store, collection, maxRows)

	table := NewTable()
	for _, doc := range docs {
		rec, ferr := e.Flattener.Flatten(doc)
		if ferr != nil {
			e.Logger.Warn().Err(ferr).Str("collection", collection).Str("document_id", doc.ID).Msg("preview: skipping document")
			continue
		}
		table.Add(rec, collection)
	}
	return table, err
}
