// Package auth holds the signed-in identity of this device.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/remote"
)

// Claims is the identity token payload. The subject is the user id.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Session is the process-wide signed-in identity. It satisfies remote.Identity.
type Session struct {
	key []byte
	log *zap.Logger

	mu   sync.RWMutex
	user *User
	subs map[chan string]struct{}
}

func NewSession(key string, log *zap.Logger) *Session {
	return &Session{key: []byte(key), log: log, subs: make(map[chan string]struct{})}
}

// SignIn verifies an identity token and makes its subject the current user.
func (s *Session) SignIn(token string) (User, error) {
	claims, err := s.verify(token)
	if err != nil {
		return User{}, err
	}
	u := User{ID: claims.Subject, Name: claims.Name}

	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()

	s.log.Info("signed in", zap.String("user", u.ID))
	return u, nil
}

func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(nil)
}

// Changes emits the current user id, empty when signed out, and then every
// change of identity until ctx ends. A slow reader only sees the latest id.
func (s *Session) Changes(ctx context.Context) <-chan string {
	ch := make(chan string, 1)
	s.mu.Lock()
	ch <- s.id()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, ch)
		close(ch)
	}()
	return ch
}

// set must be called with s.mu held.
func (s *Session) set(u *User) {
	before := s.id()
	s.user = u
	if after := s.id(); after != before {
		for ch := range s.subs {
			remote.SendLatest(ch, after)
		}
	}
}

func (s *Session) id() string {
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

func (s *Session) Current() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) UserID() (string, bool) {
	u, ok := s.Current()
	return u.ID, ok
}

func (s *Session) verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthenticated, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token", models.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthenticated, errors.New("token has no subject"))
	}
	return claims, nil
}

// IssueToken signs an identity token for userID. Used by development tooling
// and tests in place of the identity provider.
func IssueToken(key, userID, name string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
