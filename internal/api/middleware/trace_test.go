package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keepstone/keepstone/internal/api/shared"
	"github.com/keepstone/keepstone/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrace(t *testing.T) {
	buf, log := logger.NewTestLogger(t)

	var seen string
	h := Trace(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	}))

	t.Run("generates trace id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/settings", nil))

		require.Len(t, seen, 32)
		assert.Equal(t, seen, rec.Header().Get(TraceHeader))
		assert.True(t, buf.HasMessage(t, "inside handler"))
	})

	t.Run("reuses valid incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
		req.Header.Set(TraceHeader, "abc-123-def")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "abc-123-def", seen)
	})

	t.Run("replaces malformed incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
		req.Header.Set(TraceHeader, "bad id\nwith newline")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Len(t, seen, 32)
	})
}
