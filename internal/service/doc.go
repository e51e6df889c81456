// Package service contains the desk's use cases. It orchestrates the record
// store and the event emitter to fulfill API and bot requests.
//
// Services receive dependencies through constructor injection and never
// depend on a specific store implementation.
//
// Error handling:
//   - Expected conditions are returned as sentinel errors (ErrRecordNotFound,
//     ErrCommentNotFound, ErrEmptyPatch) or as domain validation errors
//   - Unexpected errors are wrapped in ServiceError with the failing operation
//   - The API layer maps these to HTTP status codes
package service
