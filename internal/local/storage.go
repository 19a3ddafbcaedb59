// Package local persists records as one JSON file per entity type in the
// application's private data directory.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
)

// File names in the data directory, one per entity type.
const (
	DietFile        = "diet_records.json"
	TrainingFile    = "training_records.json"
	PartWeightsFile = "part_analysis.json"
	BodyPhotoFile   = "body_photos.json"
)

// FileStore keeps the full record list of one entity type in a single file.
// Every Save rewrites the whole file.
type FileStore[T models.Record] struct {
	path  string
	codec Codec[T]
	log   *zap.Logger
	mu    sync.Mutex
}

// NewFileStore returns a store for dir/name. The directory is created on first Save.
func NewFileStore[T models.Record](dir, name string, codec Codec[T], log *zap.Logger) *FileStore[T] {
	return &FileStore[T]{
		path:  filepath.Join(dir, name),
		codec: codec,
		log:   log.With(zap.String("file", name)),
	}
}

func NewDietStore(dir string, log *zap.Logger) *FileStore[models.DietRecord] {
	return NewFileStore[models.DietRecord](dir, DietFile, DietCodec, log)
}

func NewTrainingStore(dir string, log *zap.Logger) *FileStore[models.TrainingRecord] {
	return NewFileStore[models.TrainingRecord](dir, TrainingFile, TrainingCodec, log)
}

func NewPartWeightsStore(dir string, log *zap.Logger) *FileStore[models.PartWeightsSnapshot] {
	return NewFileStore[models.PartWeightsSnapshot](dir, PartWeightsFile, PartWeightsCodec, log)
}

func NewBodyPhotoStore(dir string, log *zap.Logger) *FileStore[models.BodyPhotoMetadata] {
	return NewFileStore[models.BodyPhotoMetadata](dir, BodyPhotoFile, BodyPhotoCodec, log)
}

func (s *FileStore[T]) Path() string {
	return s.path
}

// Load returns every record in the file. A missing or corrupt file yields an
// empty list and a warning; Load never fails.
func (s *FileStore[T]) Load(ctx context.Context) []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Save overwrites the file with records.
func (s *FileStore[T]) Save(ctx context.Context, records []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, records)
}

// Mutate loads the file, applies fn and saves the result under one lock.
func (s *FileStore[T]) Mutate(ctx context.Context, fn func([]T) []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, fn(s.load(ctx)))
}

// Prune drops records whose RecordTime is before cutoff and reports how many were removed.
func (s *FileStore[T]) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	return s.PruneIf(ctx, cutoff, nil)
}

// PruneIf is Prune restricted to the aged records eligible reports true for.
// A nil eligible accepts every aged record.
func (s *FileStore[T]) PruneIf(ctx context.Context, cutoff time.Time, eligible func(T) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load(ctx)
	kept := records[:0]
	for _, r := range records {
		if !r.RecordTime().Before(cutoff) || (eligible != nil && !eligible(r)) {
			kept = append(kept, r)
		}
	}
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.save(ctx, kept)
}

func (s *FileStore[T]) load(ctx context.Context) []T {
	if err := ctx.Err(); err != nil {
		s.log.Warn("local load cancelled", zap.Error(err))
		return []T{}
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("could not read local records", zap.Error(err))
		}
		return []T{}
	}
	records, skipped, err := s.codec.Decode(data)
	if err != nil {
		s.log.Warn("invalid local records file", zap.Error(err))
		return []T{}
	}
	for _, e := range skipped {
		s.log.Warn("skipping undecodable local record", zap.Error(e))
	}
	return records
}

func (s *FileStore[T]) save(ctx context.Context, records []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := s.codec.Encode(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: create %s: %w", models.ErrTransientIO, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", models.ErrTransientIO, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", models.ErrTransientIO, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", models.ErrTransientIO, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", models.ErrTransientIO, s.path, err)
	}
	return nil
}
