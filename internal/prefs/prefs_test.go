package prefs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := openTemp(t)

	_, ok, err := s.Get(context.Background(), "nope")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.Set(ctx, map[string]string{"a": "1", "b": "two"}))
	require.NoError(t, s.Set(ctx, map[string]string{"a": "3"}))

	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "3", v)

	v, _, err = s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestBoolDefaults(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	assert.True(t, s.Bool(ctx, "flag", true))
	assert.False(t, s.Bool(ctx, "flag", false))

	require.NoError(t, s.SetBool(ctx, "flag", false))
	assert.False(t, s.Bool(ctx, "flag", true))

	require.NoError(t, s.Set(ctx, map[string]string{"flag": "garbage"}))
	assert.True(t, s.Bool(ctx, "flag", true))
}

func TestOnChangeFiresOncePerBatch(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	calls := 0
	cancel := s.OnChange(func() { calls++ })

	require.NoError(t, s.Set(ctx, map[string]string{"x": "1", "y": "2", "z": "3"}))
	assert.Equal(t, 1, calls)

	cancel()
	require.NoError(t, s.SetBool(ctx, "x", true))
	assert.Equal(t, 1, calls)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SetBool(ctx, "use_firebase", false))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	assert.False(t, s.Bool(ctx, "use_firebase", true))
}
