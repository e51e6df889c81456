package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status represents where a record is in its lifecycle.
type Status string

// Possible record status values
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Priority represents how urgently a record should be handled.
type Priority string

// Possible record priority values
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Source identifies which client created a record.
type Source string

// Known record sources
const (
	SourceDashboard Source = "dashboard"
	SourceTelegram  Source = "telegram"
)

// Field length limits. MaxCellLength is the hard per-cell limit of the
// spreadsheet backend.
const (
	MaxTitleLength    = 200
	MaxReporterLength = 100
	MaxCategoryLength = 100
	MaxLocationLength = 200
	MaxAssigneeLength = 100
	MaxDetailLength   = 5000
	MaxCommentLength  = 2000
	MaxCellLength     = 50000
)

// AllStatuses returns every status in display order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusDone, StatusCancelled}
}

// AllPriorities returns every priority from lowest to highest.
func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

// ParseStatus accepts the canonical values plus the spellings people type
// into the sheet by hand ("In Progress", "in-progress", "canceled").
func ParseStatus(s string) (Status, error) {
	switch normalizeToken(s) {
	case "pending", "new", "open":
		return StatusPending, nil
	case "in_progress", "inprogress", "working":
		return StatusInProgress, nil
	case "done", "resolved", "closed":
		return StatusDone, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	}
	return "", NewValidationError("status", "must be one of pending, in_progress, done, cancelled", ErrInvalidStatus)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// IsOpen reports whether work on the record is still outstanding.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

// Label returns a human-readable name for the status.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In progress"
	case StatusDone:
		return "Done"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// ParsePriority parses a priority; an empty string yields PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	switch normalizeToken(s) {
	case "":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "normal", "medium":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "urgent", "critical":
		return PriorityUrgent, nil
	}
	return "", NewValidationError("priority", "must be one of low, normal, high, urgent", ErrInvalidPriority)
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ParseSource parses a source; an empty string yields SourceDashboard.
func ParseSource(s string) (Source, error) {
	switch normalizeToken(s) {
	case "", "dashboard", "web":
		return SourceDashboard, nil
	case "telegram", "bot":
		return SourceTelegram, nil
	}
	return "", NewValidationError("source", "must be dashboard or telegram", ErrInvalidSource)
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	return s == SourceDashboard || s == SourceTelegram
}

// Record is one row of the desk sheet.
//
// ID is the stable number shown to users. Row is the 1-based sheet row the
// record was read from; it is informational and changes when rows above it
// are deleted.
type Record struct {
	ID         int
	Row        int
	CreatedAt  time.Time
	Reporter   string
	Source     Source
	ChatID     int64
	Category   string
	Title      string
	Detail     string
	Location   string
	Priority   Priority
	Status     Status
	Assignee   string
	UpdatedAt  time.Time
	ResolvedAt *time.Time
	Comments   []Comment
}

// NewRecordInput holds the caller-supplied fields of a new record.
type NewRecordInput struct {
	Reporter string
	Source   Source
	ChatID   int64
	Category string
	Title    string
	Detail   string
	Location string
	Priority Priority
}

// NewRecord builds a pending record from input. The ID is assigned by the
// store when the row is appended.
func NewRecord(in NewRecordInput, now time.Time) (*Record, error) {
	priority := in.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	source := in.Source
	if source == "" {
		source = SourceDashboard
	}

	rec := &Record{
		CreatedAt: now,
		Reporter:  strings.TrimSpace(in.Reporter),
		Source:    source,
		ChatID:    in.ChatID,
		Category:  strings.TrimSpace(in.Category),
		Title:     strings.TrimSpace(in.Title),
		Detail:    strings.TrimSpace(in.Detail),
		Location:  strings.TrimSpace(in.Location),
		Priority:  priority,
		Status:    StatusPending,
		UpdatedAt: now,
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

func checkLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return NewValidationError(field, "is too long", ErrValidation)
	}
	return nil
}

// Validate checks if the Record has valid data.
func (r *Record) Validate() error {
	if r.ID < 0 {
		return NewValidationError("id", "cannot be negative", ErrInvalidID)
	}
	if r.Title == "" {
		return NewValidationError("title", "is required", ErrEmptyContent)
	}
	if r.Reporter == "" {
		return NewValidationError("reporter", "is required", ErrEmptyContent)
	}
	if !r.Status.Valid() {
		return NewValidationError("status", "is not a known status", ErrInvalidStatus)
	}
	if !r.Priority.Valid() {
		return NewValidationError("priority", "is not a known priority", ErrInvalidPriority)
	}
	if !r.Source.Valid() {
		return NewValidationError("source", "is not a known source", ErrInvalidSource)
	}

	for _, c := range []struct {
		field string
		value string
		max   int
	}{
		{"title", r.Title, MaxTitleLength},
		{"reporter", r.Reporter, MaxReporterLength},
		{"category", r.Category, MaxCategoryLength},
		{"location", r.Location, MaxLocationLength},
		{"assignee", r.Assignee, MaxAssigneeLength},
		{"detail", r.Detail, MaxDetailLength},
	} {
		if err := checkLength(c.field, c.value, c.max); err != nil {
			return err
		}
	}
	return nil
}

// SetStatus moves the record to s. ResolvedAt is stamped on the first
// transition to done and cleared whenever the record leaves done.
func (r *Record) SetStatus(s Status, now time.Time) {
	if s == StatusDone {
		if r.Status != StatusDone || r.ResolvedAt == nil {
			resolved := now
			r.ResolvedAt = &resolved
		}
	} else {
		r.ResolvedAt = nil
	}
	r.Status = s
	r.UpdatedAt = now
}

// AddComment appends a comment and returns it. An empty author is recorded
// as "anonymous".
func (r *Record) AddComment(author, text string, now time.Time) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, NewValidationError("text", "is required", ErrEmptyContent)
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return Comment{}, NewValidationError("text", "is too long", ErrValidation)
	}
	author = strings.TrimSpace(author)
	if author == "" {
		author = "anonymous"
	}

	c := Comment{
		ID:        uuid.New(),
		Author:    author,
		Text:      text,
		CreatedAt: now,
	}
	r.Comments = append(r.Comments, c)
	r.UpdatedAt = now
	return c, nil
}

// RemoveComment deletes the comment with the given ID. It reports whether a
// comment was removed.
func (r *Record) RemoveComment(id uuid.UUID, now time.Time) bool {
	for i, c := range r.Comments {
		if c.ID == id {
			r.Comments = append(r.Comments[:i:i], r.Comments[i+1:]...)
			r.UpdatedAt = now
			return true
		}
	}
	return false
}

// RecordPatch is a partial update touching any subset of a record's
// editable columns. Nil fields are left unchanged.
type RecordPatch struct {
	Reporter *string
	Category *string
	Title    *string
	Detail   *string
	Location *string
	Priority *Priority
	Status   *Status
	Assignee *string
	ChatID   *int64
}

// IsEmpty reports whether the patch changes nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.Reporter == nil && p.Category == nil && p.Title == nil &&
		p.Detail == nil && p.Location == nil && p.Priority == nil &&
		p.Status == nil && p.Assignee == nil && p.ChatID == nil
}

// Apply writes the patch into r. On a validation failure r is left
// untouched.
func (p RecordPatch) Apply(r *Record, now time.Time) error {
	updated := *r

	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&updated.Reporter, p.Reporter)
	setString(&updated.Category, p.Category)
	setString(&updated.Title, p.Title)
	setString(&updated.Detail, p.Detail)
	setString(&updated.Location, p.Location)
	setString(&updated.Assignee, p.Assignee)

	if p.Priority != nil {
		updated.Priority = *p.Priority
	}
	if p.ChatID != nil {
		updated.ChatID = *p.ChatID
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return NewValidationError("status", "is not a known status", ErrInvalidStatus)
		}
		updated.SetStatus(*p.Status, now)
	}
	updated.UpdatedAt = now

	if err := updated.Validate(); err != nil {
		return err
	}
	*r = updated
	return nil
}
