// Package firestore is a remote.DocumentStore on Cloud Firestore.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	fs "cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/remote"
)

type Store struct {
	client *fs.Client
	log    *zap.Logger
}

var _ remote.DocumentStore = (*Store)(nil)

// Open creates a client for projectID. FIRESTORE_EMULATOR_HOST, when set,
// points the client at a local emulator.
func Open(ctx context.Context, projectID string, log *zap.Logger) (*Store, error) {
	client, err := fs.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return New(client, log), nil
}

func New(client *fs.Client, log *zap.Logger) *Store {
	return &Store{client: client, log: log}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, mapError(err))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return remote.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, mapError(err))
	}
	return remote.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, mapError(err))
	}
	return nil
}

// maxTransactionWrites is the Firestore limit on writes per transaction.
const maxTransactionWrites = 500

// DeleteAll removes ids in transactions of at most maxTransactionWrites
// deletes. Each transaction is all-or-nothing; when one fails, the batches
// before it stay deleted and a retry removes the rest.
func (s *Store) DeleteAll(ctx context.Context, collection string, ids []string) error {
	coll := s.client.Collection(collection)
	for _, batch := range batches(ids) {
		err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *fs.Transaction) error {
			for _, id := range batch {
				if err := tx.Delete(coll.Doc(id)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("delete batch in %s: %w", collection, mapError(err))
		}
	}
	return nil
}

func batches(ids []string) [][]string {
	return slices.Collect(slices.Chunk(ids, maxTransactionWrites))
}

// Find runs q. Ordering is applied client-side so equality filters never
// need a composite index.
func (s *Store) Find(ctx context.Context, q remote.Query) ([]remote.Document, error) {
	it := s.query(q).Documents(ctx)
	defer it.Stop()
	docs, err := collect(it)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, mapError(err))
	}
	remote.SortDocuments(q, docs)
	return docs, nil
}

// Watch attaches a snapshot listener to q.
func (s *Store) Watch(ctx context.Context, q remote.Query) (<-chan []remote.Document, error) {
	it := s.query(q).Snapshots(ctx)
	out := make(chan []remote.Document, 1)
	go func() {
		defer close(out)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && status.Code(err) != codes.Canceled {
					s.log.Warn("snapshot listener stopped", zap.String("collection", q.Collection), zap.Error(err))
				}
				return
			}
			docs, err := collect(snap.Documents)
			if err != nil {
				s.log.Warn("reading snapshot failed", zap.String("collection", q.Collection), zap.Error(err))
				continue
			}
			remote.SortDocuments(q, docs)
			remote.SendLatest(out, docs)
		}
	}()
	return out, nil
}

func (s *Store) query(q remote.Query) fs.Query {
	query := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		query = query.Where(f.Field, "==", f.Value)
	}
	return query
}

func collect(it *fs.DocumentIterator) ([]remote.Document, error) {
	docs := []remote.Document{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, remote.Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
}

// mapError tags a Firestore error with the matching models sentinel.
func mapError(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %w", models.ErrPermissionDenied, err)
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %w", models.ErrUnauthenticated, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted, codes.Internal, codes.Unknown:
		return fmt.Errorf("%w: %w", models.ErrTransientIO, err)
	}
	return err
}
