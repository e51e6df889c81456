package api

import (
	"time"

	"github.com/phrazzld/sheetdesk/internal/domain"
)

// CreateRecordRequest defines the payload for POST /api/records.
type CreateRecordRequest struct {
	Reporter string `json:"reporter" validate:"required,max=100"`
	Category string `json:"category" validate:"max=100"`
	Title    string `json:"title"    validate:"required,max=200"`
	Detail   string `json:"detail"   validate:"max=5000"`
	Location string `json:"location" validate:"max=200"`
	Priority string `json:"priority"`
	Source   string `json:"source"`
	ChatID   int64  `json:"chat_id"`
}

// UpdateRecordRequest defines the payload for PATCH /api/records/{id}.
// Omitted fields are left unchanged.
type UpdateRecordRequest struct {
	Reporter *string `json:"reporter" validate:"omitempty,max=100"`
	Category *string `json:"category" validate:"omitempty,max=100"`
	Title    *string `json:"title"    validate:"omitempty,max=200"`
	Detail   *string `json:"detail"   validate:"omitempty,max=5000"`
	Location *string `json:"location" validate:"omitempty,max=200"`
	Priority *string `json:"priority"`
	Status   *string `json:"status"`
	Assignee *string `json:"assignee" validate:"omitempty,max=100"`
	ChatID   *int64  `json:"chat_id"`
}

// UpdateStatusRequest defines the payload for POST /api/records/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Actor  string `json:"actor"  validate:"max=100"`
	Note   string `json:"note"   validate:"max=2000"`
}

// AssignRequest defines the payload for POST /api/records/{id}/assign. An
// empty assignee clears the assignment.
type AssignRequest struct {
	Assignee string `json:"assignee" validate:"max=100"`
}

// AddCommentRequest defines the payload for POST /api/records/{id}/comments.
type AddCommentRequest struct {
	Author string `json:"author"`
	Text   string `json:"text" validate:"required,max=2000"`
}

// CommentResponse is one comment in API responses.
type CommentResponse struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordResponse is a record in REST responses.
type RecordResponse struct {
	ID         int               `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	Reporter   string            `json:"reporter"`
	Source     string            `json:"source"`
	ChatID     int64             `json:"chat_id,omitempty"`
	Category   string            `json:"category"`
	Title      string            `json:"title"`
	Detail     string            `json:"detail"`
	Location   string            `json:"location"`
	Priority   string            `json:"priority"`
	Status     string            `json:"status"`
	Assignee   string            `json:"assignee"`
	UpdatedAt  time.Time         `json:"updated_at"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
	Comments   []CommentResponse `json:"comments"`
}

// RecordListResponse is the body of GET /api/records.
type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// CommentCreatedResponse is the body of POST /api/records/{id}/comments.
type CommentCreatedResponse struct {
	Comment CommentResponse `json:"comment"`
	Record  RecordResponse  `json:"record"`
}

func commentToResponse(c domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID.String(),
		Author:    c.Author,
		Text:      c.Text,
		CreatedAt: c.CreatedAt,
	}
}

func recordToResponse(rec *domain.Record) RecordResponse {
	comments := make([]CommentResponse, 0, len(rec.Comments))
	for _, c := range rec.Comments {
		comments = append(comments, commentToResponse(c))
	}
	return RecordResponse{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		Reporter:   rec.Reporter,
		Source:     string(rec.Source),
		ChatID:     rec.ChatID,
		Category:   rec.Category,
		Title:      rec.Title,
		Detail:     rec.Detail,
		Location:   rec.Location,
		Priority:   string(rec.Priority),
		Status:     string(rec.Status),
		Assignee:   rec.Assignee,
		UpdatedAt:  rec.UpdatedAt,
		ResolvedAt: rec.ResolvedAt,
		Comments:   comments,
	}
}
