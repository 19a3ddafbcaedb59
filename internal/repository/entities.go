package repository

import (
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/local"
	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/remote"
)

// Backends are the shared dependencies of the per-entity repositories.
type Backends struct {
	DataDir  string
	Docs     remote.DocumentStore
	Identity remote.Identity
	// Identities, when set, makes the repositories follow sign-in changes.
	Identities IdentitySource
	Modes      ModeSource
	Log        *zap.Logger
}

func (b Backends) options() []Option {
	if b.Identities == nil {
		return nil
	}
	return []Option{FollowIdentity(b.Identities)}
}

func NewDietRepository(b Backends) *Repository[models.DietRecord] {
	log := b.Log.Named("diet")
	return New[models.DietRecord](
		local.NewDietStore(b.DataDir, log),
		remote.NewDietStore(b.Docs, b.Identity, log),
		b.Modes, log, b.options()...,
	)
}

func NewTrainingRepository(b Backends) *Repository[models.TrainingRecord] {
	log := b.Log.Named("training")
	return New[models.TrainingRecord](
		local.NewTrainingStore(b.DataDir, log),
		remote.NewTrainingStore(b.Docs, b.Identity, log),
		b.Modes, log, b.options()...,
	)
}

// NewPartAnalysisRepository checks ownership before remote updates and deletes.
func NewPartAnalysisRepository(b Backends) *Repository[models.PartWeightsSnapshot] {
	log := b.Log.Named("part_analysis")
	return New[models.PartWeightsSnapshot](
		local.NewPartWeightsStore(b.DataDir, log),
		remote.NewPartWeightsStore(b.Docs, b.Identity, log),
		b.Modes, log, b.options()...,
	)
}

// NewBodyPhotoRepository checks ownership before remote updates and deletes.
func NewBodyPhotoRepository(b Backends) *Repository[models.BodyPhotoMetadata] {
	log := b.Log.Named("body_photo")
	return New[models.BodyPhotoMetadata](
		local.NewBodyPhotoStore(b.DataDir, log),
		remote.NewBodyPhotoStore(b.Docs, b.Identity, log),
		b.Modes, log, b.options()...,
	)
}
