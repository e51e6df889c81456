package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
var (
	// ErrRecordNotFound indicates that no row holds the requested record ID.
	// API layer should map this to HTTP 404 Not Found.
	ErrRecordNotFound = errors.New("record not found")

	// ErrCommentNotFound indicates that the record has no comment with the given ID.
	// API layer should map this to HTTP 404 Not Found.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrEmptyPatch indicates an update request that changes nothing.
	// API layer should map this to HTTP 400 Bad Request.
	ErrEmptyPatch = errors.New("no fields to update")
)

// ServiceError wraps errors from the record service with context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "create_record", "add_comment")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("record service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("record service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
// Sentinels and validation errors are returned directly without wrapping.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrRecordNotFound), errors.Is(err, store.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, ErrCommentNotFound):
		return ErrCommentNotFound
	case errors.Is(err, ErrEmptyPatch):
		return ErrEmptyPatch
	case domain.IsValidationError(err):
		return err
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
