// ===============================
// internal/services/firestore.go - Legacy Firestore collections as an import source
// ===============================

package services

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DocumentSource walks every document of a collection.
type DocumentSource interface {
	Each(ctx context.Context, collection string, fn func(id string, data map[string]interface{}) error) error
}

type FirestoreSource struct {
	client *firestore.Client
}

func NewFirestoreSource(client *firestore.Client) *FirestoreSource {
	return &FirestoreSource{client: client}
}

// Each streams the collection in document ID order. A missing collection is
// treated as empty.
func (s *FirestoreSource) Each(ctx context.Context, collection string, fn func(id string, data map[string]interface{}) error) error {
	it := s.client.Collection(collection).OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer it.Stop()

	for {
		doc, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if status.Code(err) == codes.NotFound {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", collection)
		}

		if err := fn(doc.Ref.ID, doc.Data()); err != nil {
			return err
		}
	}
}

func (s *FirestoreSource) Close() error {
	return s.client.Close()
}
