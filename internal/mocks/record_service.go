package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/service"
)

var _ service.RecordService = (*MockRecordService)(nil)

// MockRecordService implements service.RecordService for testing
type MockRecordService struct {
	// Custom behavior functions
	ListFn          func(ctx context.Context, filter domain.Filter) ([]*domain.Record, int, error)
	GetFn           func(ctx context.Context, id int) (*domain.Record, error)
	CreateFn        func(ctx context.Context, in domain.NewRecordInput) (*domain.Record, error)
	UpdateFn        func(ctx context.Context, id int, patch domain.RecordPatch) (*domain.Record, error)
	UpdateStatusFn  func(ctx context.Context, id int, status domain.Status, actor, note string) (*domain.Record, error)
	AssignFn        func(ctx context.Context, id int, assignee string) (*domain.Record, error)
	DeleteFn        func(ctx context.Context, id int) error
	AddCommentFn    func(ctx context.Context, id int, author, text string, source domain.Source) (*domain.Record, domain.Comment, error)
	DeleteCommentFn func(ctx context.Context, id int, commentID uuid.UUID) (*domain.Record, error)
	StatsFn         func(ctx context.Context) (*domain.Stats, error)

	// Default return values
	Record       *domain.Record
	Records      []*domain.Record
	DefaultStats *domain.Stats
	DefaultError error
}

// List implements the RecordService.List method
func (m *MockRecordService) List(ctx context.Context, filter domain.Filter) ([]*domain.Record, int, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	return m.Records, len(m.Records), m.DefaultError
}

// Get implements the RecordService.Get method
func (m *MockRecordService) Get(ctx context.Context, id int) (*domain.Record, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return m.Record, m.DefaultError
}

// Create implements the RecordService.Create method
func (m *MockRecordService) Create(ctx context.Context, in domain.NewRecordInput) (*domain.Record, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, in)
	}
	return m.Record, m.DefaultError
}

// Update implements the RecordService.Update method
func (m *MockRecordService) Update(ctx context.Context, id int, patch domain.RecordPatch) (*domain.Record, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, patch)
	}
	return m.Record, m.DefaultError
}

// UpdateStatus implements the RecordService.UpdateStatus method
func (m *MockRecordService) UpdateStatus(ctx context.Context, id int, status domain.Status, actor, note string) (*domain.Record, error) {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, id, status, actor, note)
	}
	return m.Record, m.DefaultError
}

// Assign implements the RecordService.Assign method
func (m *MockRecordService) Assign(ctx context.Context, id int, assignee string) (*domain.Record, error) {
	if m.AssignFn != nil {
		return m.AssignFn(ctx, id, assignee)
	}
	return m.Record, m.DefaultError
}

// Delete implements the RecordService.Delete method
func (m *MockRecordService) Delete(ctx context.Context, id int) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return m.DefaultError
}

// AddComment implements the RecordService.AddComment method
func (m *MockRecordService) AddComment(
	ctx context.Context,
	id int,
	author, text string,
	source domain.Source,
) (*domain.Record, domain.Comment, error) {
	if m.AddCommentFn != nil {
		return m.AddCommentFn(ctx, id, author, text, source)
	}
	return m.Record, domain.Comment{}, m.DefaultError
}

// DeleteComment implements the RecordService.DeleteComment method
func (m *MockRecordService) DeleteComment(ctx context.Context, id int, commentID uuid.UUID) (*domain.Record, error) {
	if m.DeleteCommentFn != nil {
		return m.DeleteCommentFn(ctx, id, commentID)
	}
	return m.Record, m.DefaultError
}

// Stats implements the RecordService.Stats method
func (m *MockRecordService) Stats(ctx context.Context) (*domain.Stats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx)
	}
	return m.DefaultStats, m.DefaultError
}
