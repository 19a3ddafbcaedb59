package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
)

const key = "test-key"

func TestSignIn(t *testing.T) {
	s := NewSession(key, zap.NewNop())
	_, ok := s.UserID()
	assert.False(t, ok)

	token, err := IssueToken(key, "u1", "Ana", time.Hour)
	require.NoError(t, err)

	u, err := s.SignIn(token)
	require.NoError(t, err)
	assert.Equal(t, User{ID: "u1", Name: "Ana"}, u)

	id, ok := s.UserID()
	assert.True(t, ok)
	assert.Equal(t, "u1", id)

	s.SignOut()
	_, ok = s.UserID()
	assert.False(t, ok)
}

func TestSignIn_Rejects(t *testing.T) {
	s := NewSession(key, zap.NewNop())

	wrongKey, err := IssueToken("other-key", "u1", "", time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(key, "u1", "", -time.Minute)
	require.NoError(t, err)
	noSubject, err := IssueToken(key, "", "", time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"},
	}).SignedString([]byte(key))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":    "not-a-token",
		"wrong key":  wrongKey,
		"expired":    expired,
		"no subject": noSubject,
		"no expiry":  noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.SignIn(token)
			assert.ErrorIs(t, err, models.ErrUnauthenticated)
		})
	}
	_, ok := s.UserID()
	assert.False(t, ok)
}

func TestSignIn_ReplacesUser(t *testing.T) {
	s := NewSession(key, zap.NewNop())

	for _, id := range []string{"u1", "u2"} {
		token, err := IssueToken(key, id, "", time.Hour)
		require.NoError(t, err)
		_, err = s.SignIn(token)
		require.NoError(t, err)
	}

	id, _ := s.UserID()
	assert.Equal(t, "u2", id)
}

func TestChanges(t *testing.T) {
	s := NewSession(key, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Changes(ctx)
	assert.Equal(t, "", <-ch)

	alice, err := IssueToken(key, "alice", "", time.Hour)
	require.NoError(t, err)
	bob, err := IssueToken(key, "bob", "", time.Hour)
	require.NoError(t, err)

	_, err = s.SignIn(alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", <-ch)

	// signing in again as the same user is not a change
	_, err = s.SignIn(alice)
	require.NoError(t, err)
	_, err = s.SignIn(bob)
	require.NoError(t, err)
	assert.Equal(t, "bob", <-ch)

	s.SignOut()
	assert.Equal(t, "", <-ch)

	cancel()
	_, open := <-ch
	assert.False(t, open)
}
