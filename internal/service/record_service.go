package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/events"
	"github.com/phrazzld/sheetdesk/internal/store"
)

// RecordService provides the desk's record operations.
type RecordService interface {
	// List returns one page of records matching filter, newest first, and
	// the number of matches before paging.
	List(ctx context.Context, filter domain.Filter) ([]*domain.Record, int, error)

	// Get retrieves a record by its ID.
	Get(ctx context.Context, id int) (*domain.Record, error)

	// Create validates input and appends a new pending record.
	Create(ctx context.Context, in domain.NewRecordInput) (*domain.Record, error)

	// Update applies a multi-column patch and writes the row once.
	Update(ctx context.Context, id int, patch domain.RecordPatch) (*domain.Record, error)

	// UpdateStatus moves a record to status. A non-empty note is stored as
	// a comment by actor in the same write.
	UpdateStatus(ctx context.Context, id int, status domain.Status, actor, note string) (*domain.Record, error)

	// Assign sets or clears the assignee.
	Assign(ctx context.Context, id int, assignee string) (*domain.Record, error)

	// Delete removes the record's row.
	Delete(ctx context.Context, id int) error

	// AddComment appends a comment and returns the updated record and the
	// new comment.
	AddComment(ctx context.Context, id int, author, text string, source domain.Source) (*domain.Record, domain.Comment, error)

	// DeleteComment removes one comment from a record.
	DeleteComment(ctx context.Context, id int, commentID uuid.UUID) (*domain.Record, error)

	// Stats summarizes every record in the sheet.
	Stats(ctx context.Context) (*domain.Stats, error)
}

// Option configures a record service.
type Option func(*recordServiceImpl)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *recordServiceImpl) {
		s.now = now
	}
}

// recordServiceImpl implements the RecordService interface
type recordServiceImpl struct {
	records  store.RecordStore
	emitter  events.EventEmitter
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
	locks    *recordLocks
}

// NewRecordService creates a new RecordService. Calendar statistics are
// computed in loc.
// It returns an error if any of the required dependencies are nil.
func NewRecordService(
	records store.RecordStore,
	emitter events.EventEmitter,
	loc *time.Location,
	logger *slog.Logger,
	opts ...Option,
) (RecordService, error) {
	if records == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "record store cannot be nil"}
	}
	if emitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "event emitter cannot be nil"}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &recordServiceImpl{
		records:  records,
		emitter:  emitter,
		location: loc,
		now:      time.Now,
		logger:   logger.With("component", "record_service"),
		locks:    newRecordLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List implements RecordService.List.
func (s *recordServiceImpl) List(ctx context.Context, filter domain.Filter) ([]*domain.Record, int, error) {
	all, err := s.records.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list records", "error", err)
		return nil, 0, NewServiceError("list_records", "failed to read records", err)
	}
	page, total := filter.Apply(all)
	return page, total, nil
}

// Get implements RecordService.Get.
func (s *recordServiceImpl) Get(ctx context.Context, id int) (*domain.Record, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			s.logger.ErrorContext(ctx, "failed to retrieve record", "error", err, "record_id", id)
		}
		return nil, NewServiceError("get_record", "failed to retrieve record", err)
	}
	return rec, nil
}

// Create implements RecordService.Create.
func (s *recordServiceImpl) Create(ctx context.Context, in domain.NewRecordInput) (*domain.Record, error) {
	rec, err := domain.NewRecord(in, s.now())
	if err != nil {
		return nil, NewServiceError("create_record", "invalid record", err)
	}

	if err := s.records.Create(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to create record", "error", err, "source", rec.Source)
		return nil, NewServiceError("create_record", "failed to save record", err)
	}

	s.logger.InfoContext(ctx, "record created",
		"record_id", rec.ID,
		"row", rec.Row,
		"source", rec.Source,
		"priority", rec.Priority)

	s.emit(ctx, events.TypeRecordCreated, events.CreatedPayload{
		RecordID: rec.ID,
		Title:    rec.Title,
		Reporter: rec.Reporter,
		Category: rec.Category,
		Location: rec.Location,
		Priority: string(rec.Priority),
		Source:   string(rec.Source),
		ChatID:   rec.ChatID,
	})
	return rec, nil
}

// Update implements RecordService.Update.
func (s *recordServiceImpl) Update(ctx context.Context, id int, patch domain.RecordPatch) (*domain.Record, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	rec, _, err := s.mutate(ctx, "update_record", id, "", "", func(rec *domain.Record, now time.Time) error {
		return patch.Apply(rec, now)
	})
	return rec, err
}

// UpdateStatus implements RecordService.UpdateStatus.
func (s *recordServiceImpl) UpdateStatus(
	ctx context.Context,
	id int,
	status domain.Status,
	actor, note string,
) (*domain.Record, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "is not a known status", domain.ErrInvalidStatus)
	}
	note = strings.TrimSpace(note)

	var comment *domain.Comment
	rec, changed, err := s.mutate(ctx, "update_status", id, actor, note, func(rec *domain.Record, now time.Time) error {
		if note != "" {
			c, err := rec.AddComment(actor, note, now)
			if err != nil {
				return err
			}
			comment = &c
		}
		rec.SetStatus(status, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// A note on an unchanged status is just a comment.
	if comment != nil && !changed {
		s.emitComment(ctx, rec, *comment, domain.SourceDashboard)
	}
	return rec, nil
}

// Assign implements RecordService.Assign.
func (s *recordServiceImpl) Assign(ctx context.Context, id int, assignee string) (*domain.Record, error) {
	return s.Update(ctx, id, domain.RecordPatch{Assignee: &assignee})
}

// Delete implements RecordService.Delete.
func (s *recordServiceImpl) Delete(ctx context.Context, id int) error {
	defer s.locks.lock(id)()

	if err := s.records.Delete(ctx, id); err != nil {
		if !store.IsNotFoundError(err) {
			s.logger.ErrorContext(ctx, "failed to delete record", "error", err, "record_id", id)
		}
		return NewServiceError("delete_record", "failed to delete record", err)
	}
	s.logger.InfoContext(ctx, "record deleted", "record_id", id)
	return nil
}

// AddComment implements RecordService.AddComment.
func (s *recordServiceImpl) AddComment(
	ctx context.Context,
	id int,
	author, text string,
	source domain.Source,
) (*domain.Record, domain.Comment, error) {
	var comment domain.Comment
	rec, _, err := s.mutate(ctx, "add_comment", id, "", "", func(rec *domain.Record, now time.Time) error {
		c, err := rec.AddComment(author, text, now)
		if err != nil {
			return err
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, domain.Comment{}, err
	}

	s.emitComment(ctx, rec, comment, source)
	return rec, comment, nil
}

// DeleteComment implements RecordService.DeleteComment.
func (s *recordServiceImpl) DeleteComment(ctx context.Context, id int, commentID uuid.UUID) (*domain.Record, error) {
	rec, _, err := s.mutate(ctx, "delete_comment", id, "", "", func(rec *domain.Record, now time.Time) error {
		if !rec.RemoveComment(commentID, now) {
			return ErrCommentNotFound
		}
		return nil
	})
	return rec, err
}

// Stats implements RecordService.Stats.
func (s *recordServiceImpl) Stats(ctx context.Context) (*domain.Stats, error) {
	all, err := s.records.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read records for stats", "error", err)
		return nil, NewServiceError("stats", "failed to read records", err)
	}
	return domain.ComputeStats(all, s.now(), s.location), nil
}

// mutate reads the record, applies change, and writes every mutable column
// back in one store call. Mutations of one record run one at a time. It reports whether the status changed, in which
// case a status event carrying actor and note has been emitted.
func (s *recordServiceImpl) mutate(
	ctx context.Context,
	op string,
	id int,
	actor, note string,
	change func(rec *domain.Record, now time.Time) error,
) (*domain.Record, bool, error) {
	rec, before, err := s.apply(ctx, op, id, change)
	if err != nil {
		return nil, false, err
	}

	s.logger.InfoContext(ctx, "record updated", "record_id", id, "operation", op, "status", rec.Status)

	if rec.Status == before {
		return rec, false, nil
	}
	s.emit(ctx, events.TypeRecordStatusChanged, events.StatusChangedPayload{
		RecordID: rec.ID,
		Title:    rec.Title,
		From:     string(before),
		To:       string(rec.Status),
		Actor:    actor,
		Note:     note,
		ChatID:   rec.ChatID,
	})
	return rec, true, nil
}

// apply runs the locked read, change and write of mutate and returns the
// status the record had before the change.
func (s *recordServiceImpl) apply(
	ctx context.Context,
	op string,
	id int,
	change func(rec *domain.Record, now time.Time) error,
) (*domain.Record, domain.Status, error) {
	defer s.locks.lock(id)()

	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			s.logger.ErrorContext(ctx, "failed to retrieve record", "error", err, "record_id", id, "operation", op)
		}
		return nil, "", NewServiceError(op, "failed to retrieve record", err)
	}

	before := rec.Status
	if err := change(rec, s.now()); err != nil {
		return nil, "", NewServiceError(op, "invalid change", err)
	}

	if err := s.records.Update(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "failed to save record", "error", err, "record_id", id, "operation", op)
		return nil, "", NewServiceError(op, "failed to save record", err)
	}
	return rec, before, nil
}

func (s *recordServiceImpl) emitComment(ctx context.Context, rec *domain.Record, c domain.Comment, source domain.Source) {
	s.emit(ctx, events.TypeRecordCommented, events.CommentedPayload{
		RecordID: rec.ID,
		Title:    rec.Title,
		Author:   c.Author,
		Text:     c.Text,
		Source:   string(source),
		ChatID:   rec.ChatID,
	})
}

// emit publishes an event. The write has already succeeded, so failures
// are logged and not returned.
func (s *recordServiceImpl) emit(ctx context.Context, eventType string, payload interface{}) {
	event, err := events.NewRecordEvent(eventType, payload, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create event", "error", err, "event_type", eventType)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit event",
			"error", err,
			"event_type", eventType,
			"event_id", event.ID)
	}
}
