package dbclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/genproto/googleapis/type/latlng"

	"docexport/internal/domain"
)

// firestoreStore implements Store on top of the Cloud Firestore client.
type firestoreStore struct {
	client *firestore.Client
}

func newFirestoreStore(ctx context.Context, conn domain.StoreConnection) (*firestoreStore, error) {
	projectID := conn.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	databaseID := conn.Database
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID,
		option.WithCredentialsFile(conn.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("connect firestore: %w", err)
	}
	return &firestoreStore{client: client}, nil
}

func (s *firestoreStore) ListCollections(ctx context.Context) ([]string, error) {
	it := s.client.Collections(ctx)
	var names []string
	for {
		ref, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		names = append(names, ref.ID)
	}
	return names, nil
}

func (s *firestoreStore) Documents(ctx context.Context, collection string) DocumentIterator {
	return &firestoreIterator{it: s.client.Collection(collection).Documents(ctx)}
}

func (s *firestoreStore) Close() error {
	return s.client.Close()
}

type firestoreIterator struct {
	it *firestore.DocumentIterator
}

func (f *firestoreIterator) Next() (domain.Document, error) {
	snap, err := f.it.Next()
	if errors.Is(err, iterator.Done) {
		return domain.Document{}, Done
	}
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{
		ID:     snap.Ref.ID,
		Fields: fromFirestoreMap(snap.Data()),
	}, nil
}

func (f *firestoreIterator) Stop() {
	f.it.Stop()
}

// fromFirestoreMap converts a snapshot map. Go maps are unordered, so keys are
// sorted to keep repeated exports byte-identical.
func fromFirestoreMap(m map[string]any) domain.Map {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(domain.Map, 0, len(keys))
	for _, k := range keys {
		out = append(out, domain.Entry{Key: k, Value: fromFirestoreValue(m[k])})
	}
	return out
}

func fromFirestoreValue(v any) domain.Value {
	switch x := v.(type) {
	case nil:
		return domain.Null{}
	case bool:
		return domain.Bool(x)
	case int64:
		return domain.Integer(x)
	case float64:
		return domain.Double(x)
	case string:
		return domain.String(x)
	case []byte:
		return domain.Bytes(x)
	case time.Time:
		return domain.Timestamp(x)
	case *firestore.DocumentRef:
		if x == nil {
			return domain.Null{}
		}
		return domain.Reference(relativePath(x.Path))
	case *latlng.LatLng:
		if x == nil {
			return domain.Null{}
		}
		return domain.Map{
			{Key: "latitude", Value: domain.Double(x.GetLatitude())},
			{Key: "longitude", Value: domain.Double(x.GetLongitude())},
		}
	case []any:
		out := make(domain.List, len(x))
		for i, e := range x {
			out[i] = fromFirestoreValue(e)
		}
		return out
	case map[string]any:
		return fromFirestoreMap(x)
	default:
		return domain.String(fmt.Sprint(x))
	}
}

// relativePath trims "projects/p/databases/d/documents/" from a full document path.
func relativePath(path string) string {
	const marker = "/documents/"
	if i := strings.Index(path, marker); i != -1 {
		return path[i+len(marker):]
	}
	return path
}
