package dbclient

import (
	"context"
	"errors"
	"fmt"
	"os"

	"docexport/internal/domain"
)

// Done is returned by DocumentIterator.Next when the collection is exhausted.
var Done = errors.New("no more documents")

// ErrCredentialsNotFound is returned when the credential artifact is missing.
var ErrCredentialsNotFound = errors.New("credentials file not found")

// DocumentIterator streams documents of one collection.
// Each Next call may block on a network round trip.
type DocumentIterator interface {
	// Next returns the next document, Done at the end, or the error that stopped the stream.
	Next() (domain.Document, error)

	// Stop releases the underlying cursor. Safe to call more than once.
	Stop()
}

// Store abstracts a hierarchical document store.
type Store interface {
	// ListCollections returns the ids of all top-level collections.
	ListCollections(ctx context.Context) ([]string, error)

	// Documents opens a lazy stream over one collection.
	Documents(ctx context.Context, collection string) DocumentIterator

	// Close releases the client.
	Close() error
}

// CheckCredentials verifies the credential artifact exists and is a readable file.
func CheckCredentials(path string) error {
	if path == "" {
		return fmt.Errorf("%w: no path configured", ErrCredentialsNotFound)
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("stat credentials: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("credentials path %s is a directory", path)
	}
	return nil
}

// NewStore creates a Store for the given connection.
// The credential artifact is checked before any client is constructed.
func NewStore(ctx context.Context, conn domain.StoreConnection) (Store, error) {
	switch conn.Driver {
	case domain.StoreDriverFirestore, domain.StoreDriverMongoDB, domain.StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported driver: %q", conn.Driver)
	}
	if err := CheckCredentials(conn.CredentialsPath); err != nil {
		return nil, err
	}

	switch conn.Driver {
	case domain.StoreDriverMongoDB:
		return newMongoStore(ctx, conn)
	case domain.StoreDriverMemory:
		return LoadFixture(conn.CredentialsPath)
	default:
		return newFirestoreStore(ctx, conn)
	}
}

// sliceIterator yields a fixed set of documents, then err (or Done).
type sliceIterator struct {
	docs []domain.Document
	err  error
	pos  int
}

func (it *sliceIterator) Next() (domain.Document, error) {
	if it.pos < len(it.docs) {
		d := it.docs[it.pos]
		it.pos++
		return d, nil
	}
	if it.err != nil {
		return domain.Document{}, it.err
	}
	return domain.Document{}, Done
}

func (it *sliceIterator) Stop() {}
