package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/auth"
	"github.com/nm1236623-droid/fitsync/internal/prefs"
)

// KeySessionToken is the preference holding the last accepted identity token.
const KeySessionToken = "session_token"

// Sessions keeps the signed-in identity across restarts by storing the
// token next to the sync mode preferences.
type Sessions struct {
	*auth.Session
	prefs *prefs.Store
	log   *zap.Logger
}

func (s *Sessions) SignIn(ctx context.Context, token string) (auth.User, error) {
	u, err := s.Session.SignIn(token)
	if err != nil {
		return auth.User{}, err
	}
	if err := s.prefs.Set(ctx, map[string]string{KeySessionToken: token}); err != nil {
		s.log.Warn("session not persisted", zap.Error(err))
	}
	return u, nil
}

func (s *Sessions) SignOut(ctx context.Context) error {
	s.Session.SignOut()
	return s.prefs.Set(ctx, map[string]string{KeySessionToken: ""})
}

// restore signs in with the stored token; an expired or foreign token is dropped.
func (s *Sessions) restore(ctx context.Context) {
	token, ok, err := s.prefs.Get(ctx, KeySessionToken)
	if err != nil || !ok || token == "" {
		return
	}
	if _, err := s.Session.SignIn(token); err != nil {
		s.log.Warn("stored session rejected", zap.Error(err))
		_ = s.prefs.Set(ctx, map[string]string{KeySessionToken: ""})
	}
}
