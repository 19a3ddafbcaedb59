// Package app assembles the data layer and its HTTP surface from config.Options.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/auth"
	"github.com/nm1236623-droid/fitsync/internal/coaching"
	"github.com/nm1236623-droid/fitsync/internal/config"
	"github.com/nm1236623-droid/fitsync/internal/local"
	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/prefs"
	"github.com/nm1236623-droid/fitsync/internal/remote"
	"github.com/nm1236623-droid/fitsync/internal/remote/firestore"
	"github.com/nm1236623-droid/fitsync/internal/remote/memstore"
	"github.com/nm1236623-droid/fitsync/internal/remote/pgstore"
	"github.com/nm1236623-droid/fitsync/internal/repository"
	handler "github.com/nm1236623-droid/fitsync/internal/server/handler/http"
	"github.com/nm1236623-droid/fitsync/internal/syncmode"
)

type App struct {
	opts *config.Options
	log  *zap.Logger

	Prefs    *prefs.Store
	Modes    *syncmode.Resolver
	Sessions *Sessions
	Docs     remote.DocumentStore

	Diet         *repository.Repository[models.DietRecord]
	Training     *repository.Repository[models.TrainingRecord]
	PartAnalysis *repository.Repository[models.PartWeightsSnapshot]
	BodyPhotos   *repository.Repository[models.BodyPhotoMetadata]
	Coaching     *coaching.Service

	closers []func() error
}

// New opens every store named by o. Background work begins with Start.
// ctx bounds the lifetime of backend listeners.
func New(ctx context.Context, o *config.Options, log *zap.Logger) (*App, error) {
	a := &App{opts: o, log: log}

	if err := os.MkdirAll(o.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	p, err := prefs.Open(o.DataDir)
	if err != nil {
		return nil, err
	}
	a.Prefs = p
	a.closers = append(a.closers, p.Close)

	var probe syncmode.Probe = syncmode.NetProbe{Addr: o.ProbeAddr, Timeout: o.ProbeTimeout.Duration}
	if o.ProbeAddr == "" {
		probe = syncmode.ProbeFunc(func(context.Context) bool { return true })
	}
	a.Modes = syncmode.NewResolver(p, probe, log.Named("syncmode"))
	a.closers = append(a.closers, func() error { a.Modes.Close(); return nil })

	a.Sessions = &Sessions{Session: auth.NewSession(o.IdentityKey, log.Named("auth")), prefs: p, log: log}
	a.Sessions.restore(ctx)

	if err := a.openBackend(ctx); err != nil {
		a.Close()
		return nil, err
	}

	b := repository.Backends{
		DataDir:    o.DataDir,
		Docs:       a.Docs,
		Identity:   a.Sessions,
		Identities: a.Sessions,
		Modes:      a.Modes,
		Log:        log,
	}
	a.Diet = repository.NewDietRepository(b)
	a.Training = repository.NewTrainingRepository(b)
	a.PartAnalysis = repository.NewPartAnalysisRepository(b)
	a.BodyPhotos = repository.NewBodyPhotoRepository(b)
	a.Coaching = coaching.New(a.Docs, log.Named("coaching"))
	return a, nil
}

func (a *App) openBackend(ctx context.Context) error {
	switch a.opts.Backend {
	case config.BackendMemory:
		a.Docs = memstore.New()
	case config.BackendFirestore:
		s, err := firestore.Open(ctx, a.opts.ProjectID, a.log.Named("firestore"))
		if err != nil {
			return err
		}
		a.Docs = s
		a.closers = append(a.closers, s.Close)
	case config.BackendPostgres:
		s, err := pgstore.Open(ctx, a.opts.DatabaseDSN, a.log.Named("pgstore"))
		if err != nil {
			return err
		}
		a.Docs = s
		a.closers = append(a.closers, s.Close)
	default:
		return fmt.Errorf("unknown backend %q", a.opts.Backend)
	}
	a.log.Info("remote store ready", zap.String("backend", a.opts.Backend))
	return nil
}

// Start follows the sync mode in every repository and runs the cache cleaner
// until ctx ends.
func (a *App) Start(ctx context.Context) {
	a.Diet.Start(ctx)
	a.Training.Start(ctx)
	a.PartAnalysis.Start(ctx)
	a.BodyPhotos.Start(ctx)

	local.StartCacheCleaner(ctx,
		a.opts.CleanerInterval.Duration,
		a.opts.CacheRetention.Duration,
		func() bool { return a.Modes.Current().Remote() },
		a.log.Named("cleaner"),
		a.Diet, a.Training, a.PartAnalysis, a.BodyPhotos,
	)
}

// Router builds the HTTP API over the app's components.
func (a *App) Router() http.Handler {
	log := a.log.Named("http")
	return handler.NewRouter(handler.Handlers{
		Session:      &handler.SessionHandler{Sessions: a.Sessions},
		Mode:         &handler.ModeHandler{Modes: a.Modes},
		Diet:         &handler.RecordHandler[models.DietRecord]{Repo: a.Diet, Log: log},
		Training:     &handler.RecordHandler[models.TrainingRecord]{Repo: a.Training, Log: log},
		PartAnalysis: &handler.RecordHandler[models.PartWeightsSnapshot]{Repo: a.PartAnalysis, Log: log},
		BodyPhotos:   &handler.RecordHandler[models.BodyPhotoMetadata]{Repo: a.BodyPhotos, Log: log},
		Stats:        &handler.StatsHandler{Training: a.Training, Diet: a.Diet, Parts: a.PartAnalysis},
		Coaching:     &handler.CoachingHandler{Coaching: a.Coaching},
	}, a.Sessions, a.opts.CORSOrigins, log)
}

// Close releases stores in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
