package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
)

// RecordRepository is the part of repository.Repository the record endpoints use.
type RecordRepository[T models.Entity[T]] interface {
	AddRecord(ctx context.Context, rec T) (T, error)
	UpdateRecord(ctx context.Context, rec T) error
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	Records() []T
	ForDate(d time.Time) []T
	Between(from, to time.Time) []T
	Subscribe(ctx context.Context) <-chan []T
}

// RecordHandler serves CRUD and a live snapshot stream for one entity type.
type RecordHandler[T models.Entity[T]] struct {
	Repo RecordRepository[T]
	Log  *zap.Logger
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Routes mounts the handler on r.
func (h *RecordHandler[T]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Delete("/", h.Clear)
	r.Get("/ws", h.Stream)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List handles GET requests. ?date=yyyy-MM-dd restricts to one day and
// ?from=&to= to a half-open range; without either the whole list is returned.
func (h *RecordHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("date") != "":
		day, err := models.ParseDay(q.Get("date"))
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, h.Repo.ForDate(day))
	case q.Get("from") != "" || q.Get("to") != "":
		from, err1 := models.ParseDay(q.Get("from"))
		to, err2 := models.ParseDay(q.Get("to"))
		if err1 != nil || err2 != nil {
			http.Error(w, "invalid range", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, h.Repo.Between(from, to))
	default:
		writeJSON(w, http.StatusOK, h.Repo.Records())
	}
}

func (h *RecordHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	var rec T
	if !decode(w, r, &rec) {
		return
	}
	saved, err := h.Repo.AddRecord(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// Update replaces the record named in the path; the body id is ignored.
func (h *RecordHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	var rec T
	if !decode(w, r, &rec) {
		return
	}
	rec = rec.WithID(chi.URLParam(r, "id"))
	if err := h.Repo.UpdateRecord(r.Context(), rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler[T]) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream upgrades to a WebSocket and pushes the full list on every change
// until the client disconnects.
func (h *RecordHandler[T]) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads only detect the peer going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for list := range h.Repo.Subscribe(ctx) {
		if err := conn.WriteJSON(list); err != nil {
			h.Log.Debug("websocket closed", zap.Error(err))
			return
		}
	}
}
