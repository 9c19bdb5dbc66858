package etl

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"docexport/internal/dbclient"
	"docexport/internal/domain"
)

// ── Source ──────────────────────────────────────────────────
// Thin wrappers over the store client: list collections, drain one
// collection's stream. Both degrade instead of failing the run.

// EnumerateCollections lists top-level collection ids in store order.
// On failure it logs and returns an empty list plus the enumeration error,
// which callers record but never abort on.
func EnumerateCollections(ctx context.Context, store dbclient.Store, log zerolog.Logger) ([]string, error) {
	names, err := store.ListCollections(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not list collections, continuing with none")
		return []string{}, NewEnumerationError(err)
	}
	log.Info().Strs("collections", names).Msg("found top-level collections")
	return names, nil
}

// FetchCollection drains one collection. If the stream fails midway, the
// documents read so far are returned together with a fetch error.
func FetchCollection(ctx context.Context, store dbclient.Store, collection string) ([]domain.Document, error) {
	return fetchDocuments(ctx, store, collection, 0)
}

// fetchDocuments reads up to limit documents (limit <= 0 reads all).
func fetchDocuments(ctx context.Context, store dbclient.Store, collection string, limit int) ([]domain.Document, error) {
	it := store.Documents(ctx, collection)
	defer it.Stop()

	var docs []domain.Document
	for limit <= 0 || len(docs) < limit {
		if err := ctx.Err(); err != nil {
			return docs, NewFetchError(collection, err)
		}
		doc, err := it.Next()
		if errors.Is(err, dbclient.Done) {
			break
		}
		if err != nil {
			return docs, NewFetchError(collection, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
