package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/phrazzld/sheetdesk/internal/api/shared"
	"github.com/phrazzld/sheetdesk/internal/platform/logger"
)

// DefaultAPIKeyHeader is the header the dashboard sends its key in.
const DefaultAPIKeyHeader = "X-API-Key"

// AuthMiddleware checks the static shared secret sent by the dashboard.
type AuthMiddleware struct {
	key    []byte
	header string
}

// NewAuthMiddleware creates an AuthMiddleware expecting apiKey in header.
// The key may also be passed as an "api_key" query parameter, for clients
// of the legacy endpoint that cannot set headers.
func NewAuthMiddleware(apiKey, header string) *AuthMiddleware {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return &AuthMiddleware{key: []byte(apiKey), header: header}
}

// Authenticate rejects requests without a matching key with 401.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get(m.header)
		if provided == "" {
			provided = r.URL.Query().Get("api_key")
		}
		if provided == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "API key required")
			return
		}

		if len(m.key) == 0 || subtle.ConstantTimeCompare([]byte(provided), m.key) != 1 {
			logger.FromContextOrDefault(r.Context(), nil).Warn("rejected request with invalid API key",
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
