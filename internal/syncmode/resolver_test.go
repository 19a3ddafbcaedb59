package syncmode

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/prefs"
)

func newResolver(t *testing.T, probe Probe) (*Resolver, *prefs.Store) {
	t.Helper()
	p, err := prefs.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	r := NewResolver(p, probe, zap.NewNop())
	t.Cleanup(r.Close)
	return r, p
}

func always(v bool) Probe {
	return ProbeFunc(func(context.Context) bool { return v })
}

func TestResolver_DefaultsToRemoteFirst(t *testing.T) {
	r, _ := newResolver(t, always(true))

	assert.Equal(t, RemoteFirstWithLocalFallback, r.Current())
}

func TestResolver_SetModePersistsEveryMode(t *testing.T) {
	ctx := context.Background()
	r, p := newResolver(t, always(true))

	for _, m := range []Mode{LocalOnly, RemoteOnly, BidirectionalSync, RemoteFirstWithLocalFallback} {
		require.NoError(t, r.SetMode(ctx, m))
		assert.Equal(t, m, r.Current())

		// a fresh resolver on the same preferences reads the same mode back
		fresh := NewResolver(p, always(true), zap.NewNop())
		assert.Equal(t, m, fresh.Current(), m.String())
		fresh.Close()
	}
}

func TestResolver_SetFlagsClearsBidirectional(t *testing.T) {
	ctx := context.Background()
	r, _ := newResolver(t, always(true))

	require.NoError(t, r.SetMode(ctx, BidirectionalSync))
	require.NoError(t, r.SetFlags(ctx, true, true))

	assert.Equal(t, RemoteFirstWithLocalFallback, r.Current())
}

func TestResolver_SubscribeEmitsCurrentThenChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, _ := newResolver(t, always(true))

	modes := r.Subscribe(ctx)
	assert.Equal(t, RemoteFirstWithLocalFallback, <-modes)

	require.NoError(t, r.SetMode(ctx, LocalOnly))
	select {
	case m := <-modes:
		assert.Equal(t, LocalOnly, m)
	case <-time.After(time.Second):
		t.Fatal("no mode change delivered")
	}

	// writing the same mode again is not a change
	require.NoError(t, r.SetMode(ctx, LocalOnly))
	select {
	case m := <-modes:
		t.Fatalf("unexpected emission %v", m)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestResolver_SubscribeClosesWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r, _ := newResolver(t, always(true))

	modes := r.Subscribe(ctx)
	<-modes
	cancel()

	require.Eventually(t, func() bool {
		_, ok := <-modes
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestResolver_UseRemote(t *testing.T) {
	ctx := context.Background()

	reachable := true
	r, _ := newResolver(t, ProbeFunc(func(context.Context) bool { return reachable }))

	require.NoError(t, r.SetMode(ctx, LocalOnly))
	assert.False(t, r.UseRemote(ctx))

	require.NoError(t, r.SetMode(ctx, RemoteOnly))
	reachable = false
	assert.True(t, r.UseRemote(ctx))

	require.NoError(t, r.SetMode(ctx, BidirectionalSync))
	assert.True(t, r.UseRemote(ctx))

	require.NoError(t, r.SetMode(ctx, RemoteFirstWithLocalFallback))
	assert.False(t, r.UseRemote(ctx))
	reachable = true
	assert.True(t, r.UseRemote(ctx))
}

func TestNetProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	p := NetProbe{Addr: addr, Timeout: time.Second}
	assert.True(t, p.Reachable(context.Background()))

	require.NoError(t, ln.Close())
	assert.False(t, p.Reachable(context.Background()))
}
