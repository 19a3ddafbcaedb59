package http

import (
	"context"
	"net/http"

	"github.com/nm1236623-droid/fitsync/internal/auth"
)

// SessionService signs the process-wide user in and out.
type SessionService interface {
	SignIn(ctx context.Context, token string) (auth.User, error)
	SignOut(ctx context.Context) error
	Current() (auth.User, bool)
}

type SessionHandler struct {
	Sessions SessionService
}

// SignIn handles POST /api/session with body {"token": "..."}.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Sessions.SignIn(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *SessionHandler) Show(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Sessions.Current()
	if !ok {
		http.Error(w, "not signed in", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
