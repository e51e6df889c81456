package service

import (
	"context"
	"sync"

	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/events"
	"github.com/stretchr/testify/mock"
)

// MockRecordStore is a mock implementation of store.RecordStore
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) List(ctx context.Context) ([]*domain.Record, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]*domain.Record)
	return records, args.Error(1)
}

func (m *MockRecordStore) Get(ctx context.Context, id int) (*domain.Record, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(*domain.Record)
	return rec, args.Error(1)
}

func (m *MockRecordStore) Create(ctx context.Context, rec *domain.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecordStore) Update(ctx context.Context, rec *domain.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecordStore) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecordStore) EnsureHeader(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.RecordEvent
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.RecordEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *recordingEmitter) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}
