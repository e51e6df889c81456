package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the record service.
const (
	TypeRecordCreated       = "record.created"
	TypeRecordStatusChanged = "record.status_changed"
	TypeRecordCommented     = "record.commented"
)

// RecordEvent describes something that happened to a record.
type RecordEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// Payload holds one of the *Payload structs serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *RecordEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewRecordEvent creates a RecordEvent with the specified type and payload.
func NewRecordEvent(eventType string, payload interface{}, now time.Time) (*RecordEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &RecordEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: now,
	}, nil
}

// CreatedPayload is the payload of TypeRecordCreated.
type CreatedPayload struct {
	RecordID int    `json:"record_id"`
	Title    string `json:"title"`
	Reporter string `json:"reporter"`
	Category string `json:"category,omitempty"`
	Location string `json:"location,omitempty"`
	Priority string `json:"priority"`
	Source   string `json:"source"`
	ChatID   int64  `json:"chat_id,omitempty"`
}

// StatusChangedPayload is the payload of TypeRecordStatusChanged.
type StatusChangedPayload struct {
	RecordID int    `json:"record_id"`
	Title    string `json:"title"`
	From     string `json:"from"`
	To       string `json:"to"`
	Actor    string `json:"actor,omitempty"`
	Note     string `json:"note,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
}

// CommentedPayload is the payload of TypeRecordCommented.
type CommentedPayload struct {
	RecordID int    `json:"record_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Text     string `json:"text"`
	Source   string `json:"source"`
	ChatID   int64  `json:"chat_id,omitempty"`
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *RecordEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *RecordEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *RecordEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *RecordEvent) error
}
