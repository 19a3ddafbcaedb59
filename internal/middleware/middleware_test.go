package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusTeapot)
}

type identity string

func (i identity) UserID() (string, bool) { return string(i), i != "" }

func TestRequireSession_Rejects(t *testing.T) {
	dummy := &dummyHandler{}
	h := RequireSession(identity(""))(dummy)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/coach/trainees", nil))

	assert.False(t, dummy.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_StoresUser(t *testing.T) {
	dummy := &dummyHandler{}
	h := RequireSession(identity("u1"))(dummy)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/coach/trainees", nil))

	assert.True(t, dummy.called)
	assert.Equal(t, "u1", GetUserIDFromContext(dummy.ctx))
}

func TestGetUserIDFromContext_Empty(t *testing.T) {
	assert.Equal(t, "", GetUserIDFromContext(context.Background()))
}

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := WithRequestLogging(zap.New(core))(&dummyHandler{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/diet", nil))

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "POST", fields["method"])
		assert.Equal(t, "/api/diet", fields["path"])
		assert.EqualValues(t, http.StatusTeapot, fields["status"])
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(&dummyHandler{})

	req := httptest.NewRequest(http.MethodOptions, "/api/diet", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
