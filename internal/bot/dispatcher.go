package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/metrics"
	"github.com/phrazzld/sheetdesk/internal/service"
)

// mineLimit caps the /mine listing.
const mineLimit = 10

// Reply is a message to send back in response to an update.
type Reply struct {
	ChatID int64
	Text   string
}

// Dispatcher routes bot commands to the record service.
type Dispatcher struct {
	records service.RecordService
	admins  map[int64]bool
	tf      domain.TimeFormat
	metrics *metrics.Recorder
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher. Chats or users listed in adminIDs may
// use admin commands and see every record.
func NewDispatcher(
	records service.RecordService,
	adminIDs []int64,
	tf domain.TimeFormat,
	rec *metrics.Recorder,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Dispatcher{
		records: records,
		admins:  admins,
		tf:      tf,
		metrics: rec,
		logger:  logger.With(slog.String("component", "bot_dispatcher")),
	}
}

type command func(ctx context.Context, msg *tgbotapi.Message, args string) string

// Handle processes one update. It returns nil when there is nothing to
// send, such as for updates that carry no message.
func (d *Dispatcher) Handle(ctx context.Context, update *tgbotapi.Update) *Reply {
	if update == nil || update.Message == nil || update.Message.Chat == nil {
		d.metrics.IncBotUpdate("ignored")
		return nil
	}
	msg := update.Message

	if !msg.IsCommand() {
		if strings.TrimSpace(msg.Text) == "" {
			d.metrics.IncBotUpdate("ignored")
			return nil
		}
		d.metrics.IncBotUpdate("text")
		return &Reply{ChatID: msg.Chat.ID, Text: textHint}
	}

	name := strings.ToLower(msg.Command())
	handlers := map[string]command{
		"start":     d.help,
		"help":      d.help,
		"report":    d.report,
		"status":    d.status,
		"mine":      d.mine,
		"comment":   d.comment,
		"stats":     d.stats,
		"setstatus": d.setStatus,
	}
	handler, ok := handlers[name]
	if !ok {
		d.metrics.IncBotUpdate("unknown")
		return &Reply{ChatID: msg.Chat.ID, Text: "Unknown command. Send /help to see what I can do."}
	}

	d.metrics.IncBotUpdate(name)
	d.logger.DebugContext(ctx, "handling command",
		slog.String("command", name),
		slog.Int64("chat_id", msg.Chat.ID),
		slog.Int("update_id", update.UpdateID))

	return &Reply{ChatID: msg.Chat.ID, Text: handler(ctx, msg, strings.TrimSpace(msg.CommandArguments()))}
}

func (d *Dispatcher) isAdmin(msg *tgbotapi.Message) bool {
	if d.admins[msg.Chat.ID] {
		return true
	}
	return msg.From != nil && d.admins[msg.From.ID]
}

// canSee reports whether the sender may read or comment on rec.
func (d *Dispatcher) canSee(msg *tgbotapi.Message, rec *domain.Record) bool {
	return rec.ChatID == msg.Chat.ID || d.isAdmin(msg)
}

func senderName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return msg.Chat.Title
	}
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	if name == "" && msg.From.UserName != "" {
		name = "@" + msg.From.UserName
	}
	if name == "" {
		name = "user " + strconv.FormatInt(msg.From.ID, 10)
	}
	return name
}

func (d *Dispatcher) help(_ context.Context, msg *tgbotapi.Message, _ string) string {
	if d.isAdmin(msg) {
		return helpText + adminHelpText
	}
	return helpText
}

func (d *Dispatcher) report(ctx context.Context, msg *tgbotapi.Message, args string) string {
	title, detail, _ := strings.Cut(args, "|")
	title, detail = strings.TrimSpace(title), strings.TrimSpace(detail)
	if title == "" {
		return "Usage: /report &lt;title&gt; | &lt;details&gt;\nExample: /report Broken lamp | Room 4, flickers at night"
	}

	rec, err := d.records.Create(ctx, domain.NewRecordInput{
		Reporter: senderName(msg),
		Source:   domain.SourceTelegram,
		ChatID:   msg.Chat.ID,
		Title:    title,
		Detail:   detail,
	})
	if err != nil {
		return d.errorReply(ctx, "report", 0, err)
	}
	return fmt.Sprintf("✅ Recorded as <b>#%d</b>. I'll message you here when its status changes.\nCheck it any time with /status %d", rec.ID, rec.ID)
}

func (d *Dispatcher) status(ctx context.Context, msg *tgbotapi.Message, args string) string {
	id, ok := parseRecordID(args)
	if !ok {
		return "Usage: /status &lt;record number&gt;"
	}
	rec, err := d.records.Get(ctx, id)
	if err == nil && !d.canSee(msg, rec) {
		err = service.ErrRecordNotFound
	}
	if err != nil {
		return d.errorReply(ctx, "status", id, err)
	}
	return formatRecord(rec, d.tf)
}

func (d *Dispatcher) mine(ctx context.Context, msg *tgbotapi.Message, _ string) string {
	records, total, err := d.records.List(ctx, domain.Filter{ChatID: msg.Chat.ID, Limit: mineLimit})
	if err != nil {
		return d.errorReply(ctx, "mine", 0, err)
	}
	return formatList(records, total)
}

func (d *Dispatcher) comment(ctx context.Context, msg *tgbotapi.Message, args string) string {
	idArg, text, _ := strings.Cut(args, " ")
	id, ok := parseRecordID(idArg)
	if !ok || strings.TrimSpace(text) == "" {
		return "Usage: /comment &lt;record number&gt; &lt;text&gt;"
	}

	rec, err := d.records.Get(ctx, id)
	if err == nil && !d.canSee(msg, rec) {
		err = service.ErrRecordNotFound
	}
	if err == nil {
		_, _, err = d.records.AddComment(ctx, id, senderName(msg), text, domain.SourceTelegram)
	}
	if err != nil {
		return d.errorReply(ctx, "comment", id, err)
	}
	return fmt.Sprintf("💬 Comment added to <b>#%d</b>.", id)
}

func (d *Dispatcher) stats(ctx context.Context, _ *tgbotapi.Message, _ string) string {
	stats, err := d.records.Stats(ctx)
	if err != nil {
		return d.errorReply(ctx, "stats", 0, err)
	}
	return formatStats(stats)
}

func (d *Dispatcher) setStatus(ctx context.Context, msg *tgbotapi.Message, args string) string {
	if !d.isAdmin(msg) {
		return "Sorry, only desk admins can change a record's status."
	}

	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "Usage: /setstatus &lt;record number&gt; &lt;pending|in_progress|done|cancelled&gt; [note]"
	}
	id, ok := parseRecordID(fields[0])
	if !ok {
		return "Usage: /setstatus &lt;record number&gt; &lt;pending|in_progress|done|cancelled&gt; [note]"
	}
	status, err := domain.ParseStatus(fields[1])
	if err != nil {
		return "Unknown status. Use one of: pending, in_progress, done, cancelled."
	}
	note := strings.Join(fields[2:], " ")

	rec, err := d.records.UpdateStatus(ctx, id, status, senderName(msg), note)
	if err != nil {
		return d.errorReply(ctx, "setstatus", id, err)
	}
	return fmt.Sprintf("Record <b>#%d</b> is now <b>%s</b>.", rec.ID, esc(rec.Status.Label()))
}

// errorReply converts a service error into a chat-safe message. Only
// not-found and validation problems are described; everything else is
// logged and answered generically.
func (d *Dispatcher) errorReply(ctx context.Context, cmd string, id int, err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, service.ErrRecordNotFound):
		return fmt.Sprintf("Record #%d not found.", id)
	case errors.As(err, &ve):
		return "Can't do that: " + esc(ve.Error()) + "."
	case errors.Is(err, domain.ErrCommentsTooLarge):
		return "This record has too many comments to add another."
	}
	d.logger.ErrorContext(ctx, "bot command failed",
		slog.String("command", cmd),
		slog.Int("record_id", id),
		slog.String("error", err.Error()))
	return "Something went wrong. Please try again later."
}

func parseRecordID(s string) (int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
