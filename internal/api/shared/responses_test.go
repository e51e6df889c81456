package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureDefaultLogger routes slog.Default to a buffer for the duration of
// the test.
func captureDefaultLogger(t *testing.T) *strings.Builder {
	t.Helper()
	var buf strings.Builder
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(old) })
	return &buf
}

func requestWithTrace() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	return req.WithContext(context.WithValue(req.Context(), TraceIDKey, "test-trace-id"))
}

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithJSON(w, requestWithTrace(), http.StatusCreated, map[string]int{"id": 4})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":4}`, w.Body.String())
}

func TestRespondWithJSON_EncodingError(t *testing.T) {
	logs := captureDefaultLogger(t)
	w := httptest.NewRecorder()

	RespondWithJSON(w, requestWithTrace(), http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, logs.String(), "failed to encode JSON response")
}

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, requestWithTrace(), http.StatusBadRequest, "Invalid request")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request", resp.Error)
	assert.Equal(t, "test-trace-id", resp.TraceID)
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		elevate   bool
		wantLevel string
	}{
		{"server error", http.StatusInternalServerError, false, "level=ERROR"},
		{"client error", http.StatusBadRequest, false, "level=DEBUG"},
		{"elevated client error", http.StatusUnauthorized, true, "level=WARN"},
		{"rate limited", http.StatusTooManyRequests, false, "level=WARN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logs := captureDefaultLogger(t)
			w := httptest.NewRecorder()

			var opts []ResponseOption
			if tc.elevate {
				opts = append(opts, WithElevatedLogLevel())
			}
			err := errors.New("sheet call failed for ops@example.com")
			RespondWithErrorAndLog(w, requestWithTrace(), tc.status, "Something failed", err, opts...)

			assert.Equal(t, tc.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "Something failed", resp.Error)
			assert.NotContains(t, w.Body.String(), "sheet call failed")

			out := logs.String()
			assert.Contains(t, out, tc.wantLevel)
			assert.Contains(t, out, "trace_id=test-trace-id")
			assert.Contains(t, out, "error_type=")
			assert.NotContains(t, out, "ops@example.com")
		})
	}
}
