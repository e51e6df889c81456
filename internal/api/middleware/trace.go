package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/sheetdesk/internal/api/shared"
	"github.com/phrazzld/sheetdesk/internal/platform/logger"
)

// NewTraceMiddleware adds a trace ID to each request and stores a logger
// tagged with it in the request context. Apply it before any middleware
// that logs.
func NewTraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithLogger(ctx, log)

			w.Header().Set(shared.TraceIDHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
