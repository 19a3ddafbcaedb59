package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nm1236623-droid/fitsync/internal/models"
	handler "github.com/nm1236623-droid/fitsync/internal/server/handler/http"
)

// fakeRepo keeps records in a slice and fails every write with err.
type fakeRepo[T models.Entity[T]] struct {
	mu      sync.Mutex
	records []T
	err     error
	updates chan []T
}

func (f *fakeRepo[T]) AddRecord(ctx context.Context, rec T) (T, error) {
	if rec.RecordID() == "" {
		rec = rec.WithID("generated")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return rec, f.err
}

func (f *fakeRepo[T]) UpdateRecord(ctx context.Context, rec T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].RecordID() == rec.RecordID() {
			f.records[i] = rec
		}
	}
	return f.err
}

func (f *fakeRepo[T]) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []T{}
	for _, r := range f.records {
		if r.RecordID() != id {
			out = append(out, r)
		}
	}
	f.records = out
	return f.err
}

func (f *fakeRepo[T]) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
	return f.err
}

func (f *fakeRepo[T]) Records() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]T{}, f.records...)
}

func (f *fakeRepo[T]) ForDate(d time.Time) []T {
	out := []T{}
	for _, r := range f.Records() {
		if models.SameDay(r.RecordTime(), d) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeRepo[T]) Between(from, to time.Time) []T {
	out := []T{}
	for _, r := range f.Records() {
		if t := r.RecordTime(); !t.Before(from) && t.Before(to) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeRepo[T]) Subscribe(ctx context.Context) <-chan []T {
	ch := make(chan []T, 1)
	ch <- f.Records()
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case list := <-f.updates:
				select {
				case ch <- list:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}

type dietRepo = fakeRepo[models.DietRecord]

func newDietRouter(repo *dietRepo) http.Handler {
	h := &handler.RecordHandler[models.DietRecord]{Repo: repo, Log: zap.NewNop()}
	r := chi.NewRouter()
	r.Route("/api/diet", h.Routes)
	return r
}

func day(s string) time.Time {
	d, _ := models.ParseDay(s)
	return d
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	return doWithType(t, h, method, target, body, "application/json")
}

func doWithType(t *testing.T, h http.Handler, method, target, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRecordHandler_ListByDate(t *testing.T) {
	repo := &dietRepo{records: []models.DietRecord{
		{ID: "a", Date: day("2024-03-01"), FoodName: "oats", Calories: 300},
		{ID: "b", Date: day("2024-03-02"), FoodName: "rice", Calories: 500},
	}}
	r := newDietRouter(repo)

	w := do(t, r, http.MethodGet, "/api/diet?date=2024-03-02", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got []models.DietRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)

	w = do(t, r, http.MethodGet, "/api/diet?date=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordHandler_ListRange(t *testing.T) {
	repo := &dietRepo{records: []models.DietRecord{
		{ID: "a", Date: day("2024-03-01")},
		{ID: "b", Date: day("2024-03-02")},
		{ID: "c", Date: day("2024-03-03")},
	}}
	w := do(t, newDietRouter(repo), http.MethodGet, "/api/diet?from=2024-03-01&to=2024-03-03", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []models.DietRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, 2)
}

func TestRecordHandler_Create(t *testing.T) {
	repo := &dietRepo{}
	w := do(t, newDietRouter(repo), http.MethodPost, "/api/diet",
		`{"date":"2024-03-01T00:00:00Z","foodName":"eggs","calories":150}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var got models.DietRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "generated", got.ID)
	assert.Equal(t, "eggs", got.FoodName)
	assert.Len(t, repo.Records(), 1)
}

func TestRecordHandler_BadJSON(t *testing.T) {
	w := do(t, newDietRouter(&dietRepo{}), http.MethodPost, "/api/diet", "not-a-json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid body\n", w.Body.String())
}

func TestRecordHandler_UpdateUsesPathID(t *testing.T) {
	repo := &dietRepo{records: []models.DietRecord{{ID: "a", FoodName: "oats"}}}
	w := do(t, newDietRouter(repo), http.MethodPut, "/api/diet/a", `{"id":"other","foodName":"porridge"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "porridge", repo.Records()[0].FoodName)
}

func TestRecordHandler_DeleteAndClear(t *testing.T) {
	repo := &dietRepo{records: []models.DietRecord{{ID: "a"}, {ID: "b"}}}
	r := newDietRouter(repo)

	w := do(t, r, http.MethodDelete, "/api/diet/a", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, repo.Records(), 1)

	w = do(t, r, http.MethodDelete, "/api/diet", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, repo.Records())
}

func TestRecordHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{models.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("update x: %w", models.ErrPermissionDenied), http.StatusForbidden},
		{models.ErrNotFound, http.StatusNotFound},
		{models.ErrInvalidRecord, http.StatusBadRequest},
		{models.ErrParseFailure, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := do(t, newDietRouter(&dietRepo{err: tc.err}), http.MethodDelete, "/api/diet/a", "")
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRecordHandler_Stream(t *testing.T) {
	repo := &dietRepo{
		records: []models.DietRecord{{ID: "a"}},
		updates: make(chan []models.DietRecord),
	}
	srv := httptest.NewServer(newDietRouter(repo))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/diet/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first []models.DietRecord
	require.NoError(t, conn.ReadJSON(&first))
	require.Len(t, first, 1)

	repo.updates <- []models.DietRecord{{ID: "a"}, {ID: "b"}}

	var second []models.DietRecord
	require.NoError(t, conn.ReadJSON(&second))
	assert.Len(t, second, 2)
}
