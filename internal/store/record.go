package store

import (
	"context"

	"github.com/phrazzld/sheetdesk/internal/domain"
)

// RecordStore defines the interface for record persistence.
type RecordStore interface {
	// List returns every readable record in sheet order.
	List(ctx context.Context) ([]*domain.Record, error)

	// Get retrieves a record by its ID.
	// Returns ErrRecordNotFound if no row holds the ID.
	Get(ctx context.Context, id int) (*domain.Record, error)

	// Create appends rec as a new row. It assigns rec.ID (one more than the
	// highest existing ID) and rec.Row.
	Create(ctx context.Context, rec *domain.Record) error

	// Update rewrites every mutable column of the row currently holding
	// rec.ID in a single write. The cells are not updated atomically with
	// respect to concurrent editors of the sheet.
	// Returns ErrRecordNotFound if the ID is gone.
	Update(ctx context.Context, rec *domain.Record) error

	// Delete removes the row holding id. Rows below it move up.
	// Returns ErrRecordNotFound if no row holds the ID.
	Delete(ctx context.Context, id int) error

	// EnsureHeader writes the header row to an empty sheet and verifies it
	// otherwise.
	EnsureHeader(ctx context.Context) error
}
