package syncmode

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Preference keys.
const (
	KeyUseFirebase     = "use_firebase"
	KeyUseOfflineCache = "use_offline_cache"
	KeySyncStrategy    = "sync_strategy"

	strategyBidirectional = "bidirectional"
)

// Preferences is the persisted key/value store the resolver reads and writes.
type Preferences interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Bool(ctx context.Context, key string, def bool) bool
	Set(ctx context.Context, values map[string]string) error
	OnChange(fn func()) (cancel func())
}

// Resolver tracks the persisted mode and fans changes out to subscribers.
type Resolver struct {
	prefs  Preferences
	probe  Probe
	log    *zap.Logger
	cancel func()

	mu      sync.Mutex
	current Mode
	subs    map[chan Mode]struct{}
}

func NewResolver(p Preferences, probe Probe, log *zap.Logger) *Resolver {
	r := &Resolver{
		prefs: p,
		probe: probe,
		log:   log,
		subs:  make(map[chan Mode]struct{}),
	}
	r.current = r.read(context.Background())
	r.cancel = p.OnChange(r.reload)
	return r
}

// Close stops following preference changes.
func (r *Resolver) Close() {
	r.cancel()
}

func (r *Resolver) Current() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Subscribe emits the current mode and then every change until ctx ends.
// A slow reader only ever sees the latest mode.
func (r *Resolver) Subscribe(ctx context.Context) <-chan Mode {
	ch := make(chan Mode, 1)
	r.mu.Lock()
	ch <- r.current
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

// SetMode persists m in one batch.
func (r *Resolver) SetMode(ctx context.Context, m Mode) error {
	fb, oc := m.Flags()
	strategy := ""
	if m == BidirectionalSync {
		strategy = strategyBidirectional
	}
	return r.prefs.Set(ctx, map[string]string{
		KeyUseFirebase:     strconv.FormatBool(fb),
		KeyUseOfflineCache: strconv.FormatBool(oc),
		KeySyncStrategy:    strategy,
	})
}

// SetFlags writes the two booleans directly. Both true selects
// RemoteFirstWithLocalFallback.
func (r *Resolver) SetFlags(ctx context.Context, useFirebase, useOfflineCache bool) error {
	return r.SetMode(ctx, FromFlags(useFirebase, useOfflineCache))
}

// UseRemote decides the target store of a write made now.
// RemoteFirstWithLocalFallback probes reachability on every call.
func (r *Resolver) UseRemote(ctx context.Context) bool {
	switch m := r.Current(); m {
	case LocalOnly:
		return false
	case RemoteFirstWithLocalFallback:
		ok := r.probe.Reachable(ctx)
		if !ok {
			r.log.Info("remote store unreachable, falling back to local", zap.Stringer("mode", m))
		}
		return ok
	default:
		return true
	}
}

func (r *Resolver) read(ctx context.Context) Mode {
	m := FromFlags(
		r.prefs.Bool(ctx, KeyUseFirebase, true),
		r.prefs.Bool(ctx, KeyUseOfflineCache, true),
	)
	if m != RemoteFirstWithLocalFallback {
		return m
	}
	v, _, err := r.prefs.Get(ctx, KeySyncStrategy)
	if err != nil {
		r.log.Warn("could not read sync strategy", zap.Error(err))
	}
	if v == strategyBidirectional {
		return BidirectionalSync
	}
	return m
}

func (r *Resolver) reload() {
	m := r.read(context.Background())

	r.mu.Lock()
	defer r.mu.Unlock()
	if m == r.current {
		return
	}
	r.log.Info("sync mode changed", zap.Stringer("from", r.current), zap.Stringer("to", m))
	r.current = m
	for ch := range r.subs {
		sendLatest(ch, m)
	}
}

func sendLatest(ch chan Mode, m Mode) {
	for {
		select {
		case ch <- m:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
