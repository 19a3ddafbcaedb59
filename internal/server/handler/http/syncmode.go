package http

import (
	"context"
	"net/http"

	"github.com/nm1236623-droid/fitsync/internal/syncmode"
)

// ModeService reads and persists the sync mode.
type ModeService interface {
	Current() syncmode.Mode
	SetMode(ctx context.Context, m syncmode.Mode) error
}

type ModeHandler struct {
	Modes ModeService
}

type modeView struct {
	Mode            syncmode.Mode `json:"mode"`
	UseFirebase     bool          `json:"useFirebase"`
	UseOfflineCache bool          `json:"useOfflineCache"`
}

func viewOf(m syncmode.Mode) modeView {
	fb, oc := m.Flags()
	return modeView{Mode: m, UseFirebase: fb, UseOfflineCache: oc}
}

func (h *ModeHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(h.Modes.Current()))
}

// Put accepts either {"mode": "remote_first"} or the two flags
// {"useFirebase": true, "useOfflineCache": false}.
func (h *ModeHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode            *syncmode.Mode `json:"mode"`
		UseFirebase     bool           `json:"useFirebase"`
		UseOfflineCache bool           `json:"useOfflineCache"`
	}
	if !decode(w, r, &req) {
		return
	}
	m := syncmode.FromFlags(req.UseFirebase, req.UseOfflineCache)
	if req.Mode != nil {
		m = *req.Mode
	}
	if err := h.Modes.SetMode(r.Context(), m); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(h.Modes.Current()))
}
