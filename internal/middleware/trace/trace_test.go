package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"financas/internal/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareSetsRequestIDAndLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf, Component: log.ComponentHTTP})

	var seenID string
	var observed int
	m := NewMiddleware(logger, func(*http.Request) string { return "192.0.2.1" },
		func(method, path string, status int, _ time.Duration) {
			observed = status
			assert.Equal(t, http.MethodGet, method)
			assert.Equal(t, "/planejamentos", path)
		})

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		log.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/planejamentos", nil))

	require.True(t, strings.HasPrefix(seenID, "req_"))
	assert.Equal(t, seenID, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusNotFound, observed)

	out := buf.String()
	assert.Contains(t, out, `"msg":"inside handler"`)
	assert.Contains(t, out, `"request_id":"`+seenID+`"`)
	assert.Contains(t, out, `"msg":"HTTP request completed"`)
	assert.Contains(t, out, `"level":"WARN"`, "4xx completes at warn")
}

func TestMiddlewareDefaultsToOK(t *testing.T) {
	var status int
	m := NewMiddleware(log.Discard(), nil, func(_, _ string, s int, _ time.Duration) { status = s })
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
		w.WriteHeader(http.StatusTeapot) // ignored after the body started
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, status)
}

func TestGenerateRequestIDIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for range 100 {
		id := GenerateRequestID()
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
