package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/sheetdesk/internal/api/shared"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/service"
	"github.com/phrazzld/sheetdesk/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError

	case errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, domain.ErrCommentsTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, service.ErrEmptyPatch),
		errors.Is(err, store.ErrInvalidEntity),
		domain.IsValidationError(err):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-safe message for err. Validation
// messages are built from field names only, never from cell contents.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var ve *domain.ValidationError
	switch {
	case errors.Is(err, service.ErrRecordNotFound), errors.Is(err, store.ErrRecordNotFound):
		return "Record not found"
	case errors.Is(err, service.ErrCommentNotFound):
		return "Comment not found"
	case errors.Is(err, store.ErrConflict):
		return "The sheet holds conflicting rows for this record"
	case errors.Is(err, domain.ErrCommentsTooLarge):
		return "Too many comments on this record"
	case errors.Is(err, service.ErrEmptyPatch):
		return "No fields to update"
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, domain.ErrInvalidStatus):
		return "Invalid status"
	case errors.Is(err, domain.ErrInvalidPriority):
		return "Invalid priority"
	case errors.Is(err, domain.ErrInvalidSource):
		return "Invalid source"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, domain.ErrEmptyContent):
		return "Required content is empty"
	case domain.IsValidationError(err), errors.Is(err, store.ErrInvalidEntity):
		return "Invalid record data"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, store.ErrUnavailable):
		return "The spreadsheet is temporarily unavailable, please retry"
	}
	return "An unexpected error occurred"
}

// HandleAPIError writes the response for err, logging the redacted cause.
// fallback replaces the generic message for unclassified errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusConflict || status == http.StatusServiceUnavailable {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// HandleValidationError responds 400 to a request body that failed struct
// validation or decoding.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError turns validator errors into "Invalid <field>:
// <reason>" without echoing submitted values.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, shared.ErrEmptyBody) {
		return "Request body is required"
	}
	return "Invalid request format"
}

func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte", "gt":
		return "too small"
	case "lte", "lt":
		return "too large"
	default:
		return "validation failed"
	}
}
