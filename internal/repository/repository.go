// Package repository provides the per-entity record repositories that route
// every read and write to the local file or the remote document store
// according to the active sync mode.
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/remote"
	"github.com/nm1236623-droid/fitsync/internal/syncmode"
)

// ModeSource supplies the sync mode to a repository.
type ModeSource interface {
	// Subscribe emits the current mode and then every change until ctx ends.
	Subscribe(ctx context.Context) <-chan syncmode.Mode
	// UseRemote decides whether a write issued now goes to the remote store.
	UseRemote(ctx context.Context) bool
}

// IdentitySource reports who is signed in.
type IdentitySource interface {
	// Changes emits the current user id and then every change until ctx ends.
	Changes(ctx context.Context) <-chan string
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	identities IdentitySource
}

// FollowIdentity resubscribes the remote list whenever the signed-in user
// changes, so the list always belongs to the current owner.
func FollowIdentity(src IdentitySource) Option {
	return func(o *options) { o.identities = src }
}

// LocalStore is the file-backed store of one entity type.
type LocalStore[T any] interface {
	Path() string
	Load(ctx context.Context) []T
	Mutate(ctx context.Context, fn func([]T) []T) error
	PruneIf(ctx context.Context, cutoff time.Time, eligible func(T) bool) (int, error)
}

// RemoteStore is the owner-scoped remote store of one entity type.
type RemoteStore[T any] interface {
	AddRecord(ctx context.Context, rec T) (string, error)
	UpdateRecord(ctx context.Context, rec T) error
	DeleteRecord(ctx context.Context, id string) error
	Observe(ctx context.Context) (<-chan []T, error)
	List(ctx context.Context) ([]T, error)
	Clear(ctx context.Context) error
}

// Repository holds the observable record list of one entity type.
//
// Every mutation is applied to the in-memory list first and then written
// durably to exactly one store, chosen when the call is made. A failed
// durable write is returned to the caller; the in-memory change is kept
// until the next resync.
type Repository[T models.Entity[T]] struct {
	local  LocalStore[T]
	remote RemoteStore[T]
	modes  ModeSource
	ids    IdentitySource
	log    *zap.Logger

	mu      sync.Mutex
	records []T
	gen     uint64
	subs    map[chan []T]struct{}
}

// New composes a repository from its stores and mode source.
func New[T models.Entity[T]](ls LocalStore[T], rs RemoteStore[T], modes ModeSource, log *zap.Logger, opts ...Option) *Repository[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{
		local:   ls,
		remote:  rs,
		modes:   modes,
		ids:     o.identities,
		log:     log,
		records: []T{},
		subs:    make(map[chan []T]struct{}),
	}
}

// Start follows the mode source until ctx ends. On every mode the record
// list is re-pointed: remote modes replace the live remote subscription,
// LocalOnly loads the local file once. BidirectionalSync first uploads
// local records the remote store does not have yet. With FollowIdentity a
// change of signed-in user re-points the list in the remote modes too.
func (r *Repository[T]) Start(ctx context.Context) {
	modes := r.modes.Subscribe(ctx)
	var users <-chan string
	if r.ids != nil {
		users = r.ids.Changes(ctx)
	}
	go func() {
		stop := func() {}
		defer func() { stop() }()
		var (
			mode    syncmode.Mode
			started bool
			uid     string
		)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-modes:
				if !ok {
					return
				}
				mode, started = m, true
			case id, ok := <-users:
				if !ok {
					users = nil
					continue
				}
				changed := id != uid
				uid = id
				if !changed || !started || !mode.Remote() {
					continue
				}
				r.log.Info("identity changed, resubscribing", zap.Stringer("mode", mode))
			}
			stop()
			stop = r.follow(ctx, mode)
		}
	}()
}

func (r *Repository[T]) follow(ctx context.Context, m syncmode.Mode) (stop func()) {
	gen := r.nextGeneration()
	if !m.Remote() {
		r.publish(gen, r.local.Load(ctx))
		return func() {}
	}

	if m == syncmode.BidirectionalSync {
		r.reconcile(ctx)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	snapshots, err := r.remote.Observe(watchCtx)
	if err != nil {
		cancel()
		r.log.Warn("remote subscription failed", zap.Stringer("mode", m), zap.Error(err))
		if m == syncmode.RemoteOnly {
			r.publish(gen, []T{})
		} else {
			r.publish(gen, r.local.Load(ctx))
		}
		return func() {}
	}
	go func() {
		for list := range snapshots {
			r.publish(gen, list)
		}
	}()
	return cancel
}

// reconcile uploads local records whose id is missing remotely.
func (r *Repository[T]) reconcile(ctx context.Context) {
	remoteRecords, err := r.remote.List(ctx)
	if err != nil {
		r.log.Warn("reconcile: listing remote records failed", zap.Error(err))
		return
	}
	known := make(map[string]struct{}, len(remoteRecords))
	for _, rec := range remoteRecords {
		known[rec.RecordID()] = struct{}{}
	}
	uploaded := 0
	for _, rec := range r.local.Load(ctx) {
		if _, ok := known[rec.RecordID()]; ok {
			continue
		}
		if _, err := r.remote.AddRecord(ctx, rec); err != nil {
			r.log.Error("reconcile: upload failed", zap.String("id", rec.RecordID()), zap.Error(err))
			continue
		}
		uploaded++
	}
	if uploaded > 0 {
		r.log.Info("reconcile: uploaded local records", zap.Int("count", uploaded))
	}
}

// AddRecord assigns an id when rec has none, shows the record immediately and
// then writes it to the store selected for this call. The returned record
// carries the id in both cases, and its time is truncated the way the
// stores keep it.
func (r *Repository[T]) AddRecord(ctx context.Context, rec T) (T, error) {
	rec = rec.Normalized()
	if rec.RecordID() == "" {
		rec = rec.WithID(uuid.NewString())
	}
	r.apply(func(list []T) []T { return upsert(list, rec) })

	if r.modes.UseRemote(ctx) {
		if _, err := r.remote.AddRecord(ctx, rec); err != nil {
			return rec, r.failed("add", rec.RecordID(), err)
		}
		return rec, nil
	}
	if err := r.local.Mutate(ctx, func(list []T) []T { return upsert(list, rec) }); err != nil {
		return rec, r.failed("add", rec.RecordID(), err)
	}
	return rec, nil
}

// UpdateRecord replaces the record with the same id.
func (r *Repository[T]) UpdateRecord(ctx context.Context, rec T) error {
	if rec.RecordID() == "" {
		return fmt.Errorf("%w: update without id", models.ErrInvalidRecord)
	}
	rec = rec.Normalized()
	r.apply(func(list []T) []T { return upsert(list, rec) })

	if r.modes.UseRemote(ctx) {
		if err := r.remote.UpdateRecord(ctx, rec); err != nil {
			return r.failed("update", rec.RecordID(), err)
		}
		return nil
	}
	if err := r.local.Mutate(ctx, func(list []T) []T { return upsert(list, rec) }); err != nil {
		return r.failed("update", rec.RecordID(), err)
	}
	return nil
}

// Remove deletes the record with the given id.
func (r *Repository[T]) Remove(ctx context.Context, id string) error {
	r.apply(func(list []T) []T { return without(list, id) })

	if r.modes.UseRemote(ctx) {
		if err := r.remote.DeleteRecord(ctx, id); err != nil {
			return r.failed("remove", id, err)
		}
		return nil
	}
	if err := r.local.Mutate(ctx, func(list []T) []T { return without(list, id) }); err != nil {
		return r.failed("remove", id, err)
	}
	return nil
}

// Clear deletes every record. Clearing an empty repository is a no-op.
func (r *Repository[T]) Clear(ctx context.Context) error {
	r.apply(func([]T) []T { return []T{} })

	if r.modes.UseRemote(ctx) {
		if err := r.remote.Clear(ctx); err != nil {
			return r.failed("clear", "", err)
		}
		return nil
	}
	if err := r.local.Mutate(ctx, func([]T) []T { return []T{} }); err != nil {
		return r.failed("clear", "", err)
	}
	return nil
}

// Path names the local file the repository prunes.
func (r *Repository[T]) Path() string {
	return r.local.Path()
}

// Prune drops local records older than cutoff, but only those the remote
// store already holds. Records written locally while the remote store was
// unreachable are kept until they have been uploaded.
func (r *Repository[T]) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	held, err := r.remote.List(ctx)
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("list remote records: %w", err)
	}
	known := make(map[string]struct{}, len(held))
	for _, rec := range held {
		known[rec.RecordID()] = struct{}{}
	}

	return r.local.PruneIf(ctx, cutoff, func(rec T) bool {
		_, ok := known[rec.RecordID()]
		return ok
	})
}

func (r *Repository[T]) failed(op, id string, err error) error {
	r.log.Error("durable write failed", zap.String("op", op), zap.String("id", id), zap.Error(err))
	return err
}

// Records returns a copy of the current list.
func (r *Repository[T]) Records() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// Subscribe emits the current list and then every change until ctx ends.
// A slow reader only sees the latest list.
func (r *Repository[T]) Subscribe(ctx context.Context) <-chan []T {
	ch := make(chan []T, 1)
	r.mu.Lock()
	ch <- slices.Clone(r.records)
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, ch)
		close(ch)
	}()
	return ch
}

// Filter returns the records of the current list matching keep.
func (r *Repository[T]) Filter(keep func(T) bool) []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []T{}
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// ForDate returns the records on the calendar day of d.
func (r *Repository[T]) ForDate(d time.Time) []T {
	return r.Filter(func(rec T) bool { return models.SameDay(rec.RecordTime(), d) })
}

// Between returns the records with from <= time < to.
func (r *Repository[T]) Between(from, to time.Time) []T {
	return r.Filter(func(rec T) bool {
		t := rec.RecordTime()
		return !t.Before(from) && t.Before(to)
	})
}

func (r *Repository[T]) nextGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	return r.gen
}

// publish replaces the list unless a newer mode has taken over.
func (r *Repository[T]) publish(gen uint64, list []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return
	}
	r.records = slices.Clone(list)
	r.broadcast()
}

func (r *Repository[T]) apply(fn func([]T) []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = fn(slices.Clone(r.records))
	r.broadcast()
}

// broadcast must be called with r.mu held.
func (r *Repository[T]) broadcast() {
	for ch := range r.subs {
		remote.SendLatest(ch, slices.Clone(r.records))
	}
}

func upsert[T models.Record](list []T, rec T) []T {
	for i, existing := range list {
		if existing.RecordID() == rec.RecordID() {
			list[i] = rec
			return list
		}
	}
	return append(list, rec)
}

func without[T models.Record](list []T, id string) []T {
	return slices.DeleteFunc(list, func(rec T) bool { return rec.RecordID() == id })
}
