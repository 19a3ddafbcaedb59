package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nm1236623-droid/fitsync/internal/models"
	"github.com/nm1236623-droid/fitsync/internal/syncmode"
)

func newServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestClient_AddDiet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/diet", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var rec models.DietRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		rec.ID = "server-id"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(rec)
	})
	c := newServer(t, mux)

	got, err := c.AddDiet(context.Background(), models.DietRecord{FoodName: "oats", Calories: 300})
	require.NoError(t, err)
	assert.Equal(t, "server-id", got.ID)
	assert.Equal(t, "oats", got.FoodName)
}

func TestClient_DietByDate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/diet", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("date"))
		_, _ = w.Write([]byte(`[{"id":"a","date":"2024-03-01T00:00:00Z","foodName":"oats","calories":300}]`))
	})
	c := newServer(t, mux)

	got, err := c.Diet(context.Background(), "2024-03-01")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestClient_APIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/training/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	})
	c := newServer(t, mux)

	err := c.Delete(context.Background(), KindTraining, "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "permission denied", apiErr.Message)
}

func TestClient_Mode(t *testing.T) {
	var stored string
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/sync-mode", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		stored = body["mode"]
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("GET /api/sync-mode", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"mode":"` + stored + `"}`))
	})
	c := newServer(t, mux)

	require.NoError(t, c.SetMode(context.Background(), syncmode.BidirectionalSync))
	assert.Equal(t, "bidirectional", stored)

	m, err := c.Mode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, syncmode.BidirectionalSync, m)
}

func TestClient_SignOutNoContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newServer(t, mux)
	assert.NoError(t, c.SignOut(context.Background()))
}

func TestPrompter_Training(t *testing.T) {
	var out strings.Builder
	p := NewPrompter(strings.NewReader("2024-03-01\nSquat\n3\n\n100.5\n"), &out)

	rec, err := p.PromptTraining()
	require.NoError(t, err)
	assert.Equal(t, "Squat", rec.Exercise)
	assert.Equal(t, 3, rec.Sets)
	assert.Nil(t, rec.Reps)
	require.NotNil(t, rec.Weight)
	assert.Equal(t, 100.5, *rec.Weight)
	assert.NotEmpty(t, rec.ID)
	assert.Contains(t, out.String(), "Exercise: ")
}

func TestPrompter_DietRejectsBadCalories(t *testing.T) {
	p := NewPrompter(strings.NewReader("\noats\nlots\n"), &strings.Builder{})
	_, err := p.PromptDiet()
	assert.ErrorIs(t, err, models.ErrInvalidRecord)
}

func TestPrompter_DietRequiresFood(t *testing.T) {
	p := NewPrompter(strings.NewReader("2024-03-01\n\n"), &strings.Builder{})
	_, err := p.PromptDiet()
	assert.ErrorIs(t, err, models.ErrInvalidRecord)
}
