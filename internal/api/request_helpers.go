package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/sheetdesk/internal/domain"
)

// getPathID extracts a positive record ID from the URL path parameters.
func getPathID(r *http.Request, paramName string) (int, error) {
	return parseRecordID(paramName, chi.URLParam(r, paramName))
}

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}

// parseRecordID accepts "7" and "#7".
func parseRecordID(field, raw string) (int, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if raw == "" {
		return 0, domain.NewValidationError(field, "is required", domain.ErrInvalidID)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(field, "must be a positive number", domain.ErrInvalidID)
	}
	return id, nil
}

// paramGetter is satisfied by url.Values and the legacy action parameters.
type paramGetter interface {
	Get(key string) string
}

var _ paramGetter = url.Values(nil)

// parseFilter reads list criteria. Keys are tried in order so that both
// snake_case and the legacy camelCase names work.
func parseFilter(p paramGetter) (domain.Filter, error) {
	var f domain.Filter
	get := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(p.Get(k)); v != "" {
				return v
			}
		}
		return ""
	}

	if v := get("status"); v != "" {
		s, err := domain.ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = s
	}
	if v := get("priority"); v != "" {
		pr, err := domain.ParsePriority(v)
		if err != nil {
			return f, err
		}
		f.Priority = pr
	}
	if v := get("source"); v != "" {
		s, err := domain.ParseSource(v)
		if err != nil {
			return f, err
		}
		f.Source = s
	}
	f.Category = get("category")
	f.Search = get("search", "q")

	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, domain.NewValidationError(name, "must be a non-negative number", domain.ErrValidation)
		}
		*dst = n
	}

	if v := get("chat_id", "chatId"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, domain.NewValidationError("chat_id", "must be a number", domain.ErrValidation)
		}
		f.ChatID = n
	}
	return f, nil
}

// effectiveLimit mirrors the paging clamp applied by domain.Filter.
func effectiveLimit(limit int) int {
	switch {
	case limit <= 0:
		return domain.DefaultListLimit
	case limit > domain.MaxListLimit:
		return domain.MaxListLimit
	}
	return limit
}
