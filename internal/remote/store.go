package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
)

// Collection names of the per-user record stores.
const (
	DietCollection        = "diet_records"
	TrainingCollection    = "training_records"
	PartWeightsCollection = "part_analysis"
	BodyPhotoCollection   = "body_photos"
)

// Identity supplies the signed-in user.
type Identity interface {
	UserID() (string, bool)
}

// Syncable is a record that can be stored as a remote document.
type Syncable[T any] interface {
	models.Entity[T]
	ToDocument() map[string]any
}

// Decoder builds a record from a stored document.
type Decoder[T any] func(id string, data map[string]any) (T, error)

// Store is the remote record store of one entity type. Every record it reads
// or writes belongs to the signed-in user.
type Store[T Syncable[T]] struct {
	docs       DocumentStore
	collection string
	decode     Decoder[T]
	identity   Identity
	checkOwner bool
	log        *zap.Logger
}

type StoreOption func(*storeOptions)

type storeOptions struct {
	checkOwner bool
}

// WithOwnershipCheck makes updates and deletes read the stored document first
// and refuse to touch a document owned by someone else.
func WithOwnershipCheck() StoreOption {
	return func(o *storeOptions) { o.checkOwner = true }
}

func NewStore[T Syncable[T]](
	docs DocumentStore,
	collection string,
	decode Decoder[T],
	identity Identity,
	log *zap.Logger,
	opts ...StoreOption,
) *Store[T] {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		docs:       docs,
		collection: collection,
		decode:     decode,
		identity:   identity,
		checkOwner: o.checkOwner,
		log:        log.With(zap.String("collection", collection)),
	}
}

func NewDietStore(docs DocumentStore, identity Identity, log *zap.Logger) *Store[models.DietRecord] {
	return NewStore[models.DietRecord](docs, DietCollection, models.DietFromDocument, identity, log)
}

func NewTrainingStore(docs DocumentStore, identity Identity, log *zap.Logger) *Store[models.TrainingRecord] {
	return NewStore[models.TrainingRecord](docs, TrainingCollection, models.TrainingFromDocument, identity, log)
}

func NewPartWeightsStore(docs DocumentStore, identity Identity, log *zap.Logger) *Store[models.PartWeightsSnapshot] {
	return NewStore[models.PartWeightsSnapshot](docs, PartWeightsCollection, models.PartWeightsFromDocument, identity, log, WithOwnershipCheck())
}

func NewBodyPhotoStore(docs DocumentStore, identity Identity, log *zap.Logger) *Store[models.BodyPhotoMetadata] {
	return NewStore[models.BodyPhotoMetadata](docs, BodyPhotoCollection, models.BodyPhotoFromDocument, identity, log, WithOwnershipCheck())
}

func (s *Store[T]) Collection() string {
	return s.collection
}

func (s *Store[T]) userID() (string, error) {
	uid, ok := s.identity.UserID()
	if !ok || uid == "" {
		return "", models.ErrUnauthenticated
	}
	return uid, nil
}

// ownerQuery selects the user's documents, newest first.
func (s *Store[T]) ownerQuery(uid string) Query {
	return Query{Collection: s.collection}.
		Where(models.FieldUserID, uid).
		Order(models.FieldTimestamp, true)
}

// AddRecord stores rec under its id, assigning one when empty, stamped with
// the signed-in user as owner.
func (s *Store[T]) AddRecord(ctx context.Context, rec T) (string, error) {
	uid, err := s.userID()
	if err != nil {
		return "", err
	}
	if rec.RecordID() == "" {
		rec = rec.WithID(uuid.NewString())
	}
	rec = rec.WithOwner(uid)
	if err := s.docs.Set(ctx, s.collection, rec.RecordID(), rec.ToDocument()); err != nil {
		return "", fmt.Errorf("add %s/%s: %w", s.collection, rec.RecordID(), err)
	}
	return rec.RecordID(), nil
}

// UpdateRecord overwrites the whole document at rec's id.
func (s *Store[T]) UpdateRecord(ctx context.Context, rec T) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	if rec.RecordID() == "" {
		return fmt.Errorf("%w: update without id", models.ErrInvalidRecord)
	}
	if s.checkOwner {
		if err := s.verifyOwner(ctx, uid, rec.RecordID()); err != nil {
			return err
		}
	}
	rec = rec.WithOwner(uid)
	if err := s.docs.Set(ctx, s.collection, rec.RecordID(), rec.ToDocument()); err != nil {
		return fmt.Errorf("update %s/%s: %w", s.collection, rec.RecordID(), err)
	}
	return nil
}

// DeleteRecord removes the document with the given id.
func (s *Store[T]) DeleteRecord(ctx context.Context, id string) error {
	if s.checkOwner {
		uid, err := s.userID()
		if err != nil {
			return err
		}
		if err := s.verifyOwner(ctx, uid, id); err != nil {
			return err
		}
	}
	if err := s.docs.Delete(ctx, s.collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", s.collection, id, err)
	}
	return nil
}

func (s *Store[T]) verifyOwner(ctx context.Context, uid, id string) error {
	doc, err := s.docs.Get(ctx, s.collection, id)
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", s.collection, id, err)
	}
	owner, _ := doc.Data[models.FieldUserID].(string)
	if owner != uid {
		return fmt.Errorf("%w: %s/%s belongs to another user", models.ErrPermissionDenied, s.collection, id)
	}
	return nil
}

// List reads the user's records once, newest first.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.Find(ctx, s.ownerQuery(uid))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.collection, err)
	}
	return s.decodeAll(docs), nil
}

// Observe streams the user's records, newest first, after every change.
// Documents that fail to decode are skipped.
func (s *Store[T]) Observe(ctx context.Context) (<-chan []T, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}
	snapshots, err := s.docs.Watch(ctx, s.ownerQuery(uid))
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", s.collection, err)
	}
	out := make(chan []T, 1)
	go func() {
		defer close(out)
		for docs := range snapshots {
			SendLatest(out, s.decodeAll(docs))
		}
	}()
	return out, nil
}

// Clear deletes every record of the user in one atomic batch.
func (s *Store[T]) Clear(ctx context.Context) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	docs, err := s.docs.Find(ctx, Query{Collection: s.collection}.Where(models.FieldUserID, uid))
	if err != nil {
		return fmt.Errorf("clear %s: %w", s.collection, err)
	}
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	if err := s.docs.DeleteAll(ctx, s.collection, ids); err != nil {
		return fmt.Errorf("clear %s: %w", s.collection, err)
	}
	return nil
}

func (s *Store[T]) decodeAll(docs []Document) []T {
	records := make([]T, 0, len(docs))
	for _, d := range docs {
		rec, err := s.decode(d.ID, d.Data)
		if err != nil {
			if !errors.Is(err, models.ErrParseFailure) {
				err = fmt.Errorf("%w: %w", models.ErrParseFailure, err)
			}
			s.log.Warn("skipping undecodable document", zap.String("id", d.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records
}
