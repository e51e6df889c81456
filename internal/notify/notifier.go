package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/events"
	"github.com/phrazzld/sheetdesk/internal/metrics"
	"github.com/phrazzld/sheetdesk/internal/platform/telegram"
	"github.com/phrazzld/sheetdesk/internal/task"
	"golang.org/x/time/rate"
)

// TaskTypeMessage identifies outbound chat message tasks.
const TaskTypeMessage = "chat_message"

// MessageTask sends one message to one chat.
type MessageTask struct {
	id      uuid.UUID
	chatID  int64
	text    string
	sender  telegram.Messenger
	limiter *rate.Limiter
	metrics *metrics.Recorder
}

var _ task.Task = (*MessageTask)(nil)

// ID implements task.Task.
func (t *MessageTask) ID() uuid.UUID { return t.id }

// Type implements task.Task.
func (t *MessageTask) Type() string { return TaskTypeMessage }

// ChatID returns the destination chat.
func (t *MessageTask) ChatID() int64 { return t.chatID }

// Text returns the message body.
func (t *MessageTask) Text() string { return t.text }

// Execute waits for a send slot and delivers the message.
func (t *MessageTask) Execute(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		t.metrics.IncNotification("canceled")
		return fmt.Errorf("waiting for send slot: %w", err)
	}
	if err := t.sender.Send(ctx, t.chatID, t.text); err != nil {
		t.metrics.IncNotification("failed")
		return fmt.Errorf("send to chat %d: %w", t.chatID, err)
	}
	t.metrics.IncNotification("sent")
	return nil
}

// Notifier is an events.EventHandler that queues chat notifications:
// new records go to the admin chats, status changes and dashboard comments
// go to the chat the record was reported from.
type Notifier struct {
	queue      task.TaskQueueWriter
	sender     telegram.Messenger
	limiter    *rate.Limiter
	adminChats []int64
	metrics    *metrics.Recorder
	logger     *slog.Logger
}

var _ events.EventHandler = (*Notifier)(nil)

// NewNotifier creates a Notifier. ratePerSecond bounds the combined send
// rate of every worker.
func NewNotifier(
	queue task.TaskQueueWriter,
	sender telegram.Messenger,
	ratePerSecond float64,
	adminChats []int64,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Notifier{
		queue:      queue,
		sender:     sender,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		adminChats: append([]int64(nil), adminChats...),
		metrics:    rec,
		logger:     logger.With(slog.String("component", "notifier")),
	}
}

// HandleEvent implements events.EventHandler. Delivery problems are logged
// and never reported back to the emitter, so a full queue cannot fail the
// write that produced the event.
func (n *Notifier) HandleEvent(ctx context.Context, event *events.RecordEvent) error {
	var targets []int64
	var text string

	switch event.Type {
	case events.TypeRecordCreated:
		var p events.CreatedPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		for _, chat := range n.adminChats {
			if chat != p.ChatID {
				targets = append(targets, chat)
			}
		}
		text = createdMessage(p)

	case events.TypeRecordStatusChanged:
		var p events.StatusChangedPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		if p.ChatID != 0 {
			targets = append(targets, p.ChatID)
		}
		text = statusChangedMessage(p)

	case events.TypeRecordCommented:
		var p events.CommentedPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		// Comments made in the chat are already visible there.
		if p.ChatID != 0 && p.Source != string(domain.SourceTelegram) {
			targets = append(targets, p.ChatID)
		}
		text = commentedMessage(p)

	default:
		n.logger.DebugContext(ctx, "ignoring event with unsupported type",
			"event_type", event.Type, "event_id", event.ID)
		return nil
	}

	for _, chat := range targets {
		n.enqueue(ctx, event, chat, text)
	}
	return nil
}

func (n *Notifier) enqueue(ctx context.Context, event *events.RecordEvent, chatID int64, text string) {
	t := &MessageTask{
		id:      uuid.New(),
		chatID:  chatID,
		text:    text,
		sender:  n.sender,
		limiter: n.limiter,
		metrics: n.metrics,
	}
	err := n.queue.Enqueue(t)
	switch {
	case err == nil:
		n.logger.DebugContext(ctx, "notification queued",
			"task_id", t.id, "event_id", event.ID, "event_type", event.Type, "chat_id", chatID)
	case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrQueueClosed):
		n.metrics.IncNotification("dropped")
		n.logger.WarnContext(ctx, "notification dropped",
			"reason", err.Error(), "event_id", event.ID, "event_type", event.Type, "chat_id", chatID)
	default:
		n.metrics.IncNotification("dropped")
		n.logger.ErrorContext(ctx, "failed to queue notification",
			"error", err, "event_id", event.ID, "chat_id", chatID)
	}
}
