package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/diamondsgame/internal/testutil"
)

func TestRecoveryWritesInternalError(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	cases := []struct {
		method string
		status int
		level  string
	}{
		{http.MethodGet, http.StatusOK, "DEBUG"},
		{http.MethodPost, http.StatusCreated, "INFO"},
		{http.MethodPost, http.StatusConflict, "WARN"},
		{http.MethodGet, http.StatusInternalServerError, "ERROR"},
	}
	for _, tc := range cases {
		logger, logs := testutil.CaptureLogger()
		h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))

		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, "/api/v1/sessions", nil))

		require.Contains(t, logs.String(), "level="+tc.level, "%s %d", tc.method, tc.status)
		assert.Contains(t, logs.String(), "path=/api/v1/sessions")
	}
}

func TestLoggingKeepsFlusher(t *testing.T) {
	logger, _ := testutil.CaptureLogger()
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, ok := w.(http.Flusher)
		assert.True(t, ok)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
