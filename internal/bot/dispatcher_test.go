package bot

import (
	"context"
	"errors"
	"html"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/mocks"
	"github.com/phrazzld/sheetdesk/internal/platform/telegram"
	"github.com/phrazzld/sheetdesk/internal/service"
	"github.com/phrazzld/sheetdesk/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userChat  int64 = 555
	adminChat int64 = 999
)

var tf = domain.TimeFormat{Location: time.UTC, Layout: domain.DefaultTimestampLayout}

func newDispatcher(svc *mocks.MockRecordService) *Dispatcher {
	return NewDispatcher(svc, []int64{adminChat}, tf, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// commandUpdate builds an update whose text starts with a bot command, the
// way Telegram marks it with a bot_command entity.
func commandUpdate(chatID int64, text string) *tgbotapi.Update {
	update := textUpdate(chatID, text)
	cmd, _, _ := strings.Cut(text, " ")
	update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len([]rune(cmd))}}
	return update
}

func textUpdate(chatID int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: chatID, FirstName: "Somchai", LastName: "K"},
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
}

func record(id int, chatID int64) *domain.Record {
	return &domain.Record{
		ID:        id,
		ChatID:    chatID,
		Title:     "Broken <lamp>",
		Status:    domain.StatusInProgress,
		Priority:  domain.PriorityNormal,
		CreatedAt: time.Date(2025, time.April, 9, 10, 0, 0, 0, time.UTC),
	}
}

func TestHandle_IgnoresEmptyUpdates(t *testing.T) {
	d := newDispatcher(&mocks.MockRecordService{})
	assert.Nil(t, d.Handle(context.Background(), nil))
	assert.Nil(t, d.Handle(context.Background(), &tgbotapi.Update{UpdateID: 3}))
	assert.Nil(t, d.Handle(context.Background(), textUpdate(userChat, "   ")))
}

func TestHandle_TextAndUnknownCommands(t *testing.T) {
	d := newDispatcher(&mocks.MockRecordService{})

	reply := d.Handle(context.Background(), textUpdate(userChat, "hello?"))
	require.NotNil(t, reply)
	assert.Equal(t, userChat, reply.ChatID)
	assert.Contains(t, reply.Text, "/help")

	reply = d.Handle(context.Background(), commandUpdate(userChat, "/frobnicate"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "Unknown command")
}

func TestHandle_Help(t *testing.T) {
	d := newDispatcher(&mocks.MockRecordService{})

	reply := d.Handle(context.Background(), commandUpdate(userChat, "/start"))
	assert.Contains(t, reply.Text, "/report")
	assert.NotContains(t, reply.Text, "/setstatus")

	reply = d.Handle(context.Background(), commandUpdate(adminChat, "/help"))
	assert.Contains(t, reply.Text, "/setstatus")
}

func TestHandle_Report(t *testing.T) {
	var got domain.NewRecordInput
	svc := &mocks.MockRecordService{
		CreateFn: func(_ context.Context, in domain.NewRecordInput) (*domain.Record, error) {
			got = in
			return &domain.Record{ID: 42}, nil
		},
	}
	d := newDispatcher(svc)

	reply := d.Handle(context.Background(), commandUpdate(userChat, "/report Broken lamp | Room 4 flickers"))
	require.NotNil(t, reply)
	assert.Contains(t, reply.Text, "<b>#42</b>")

	assert.Equal(t, "Broken lamp", got.Title)
	assert.Equal(t, "Room 4 flickers", got.Detail)
	assert.Equal(t, "Somchai K", got.Reporter)
	assert.Equal(t, domain.SourceTelegram, got.Source)
	assert.Equal(t, userChat, got.ChatID)

	reply = d.Handle(context.Background(), commandUpdate(userChat, "/report"))
	assert.Contains(t, reply.Text, "Usage: /report")
}

func TestHandle_ReportValidationError(t *testing.T) {
	svc := &mocks.MockRecordService{
		CreateFn: func(context.Context, domain.NewRecordInput) (*domain.Record, error) {
			return nil, domain.NewValidationError("title", "is too long", domain.ErrValidation)
		},
	}
	reply := newDispatcher(svc).Handle(context.Background(), commandUpdate(userChat, "/report x"))
	assert.Equal(t, "Can't do that: title is too long.", reply.Text)
}

func TestHandle_StatusRespectsOwnership(t *testing.T) {
	svc := &mocks.MockRecordService{
		GetFn: func(_ context.Context, id int) (*domain.Record, error) {
			if id == 7 {
				return record(7, userChat), nil
			}
			return record(id, 123), nil
		},
	}
	d := newDispatcher(svc)

	reply := d.Handle(context.Background(), commandUpdate(userChat, "/status 7"))
	assert.Contains(t, reply.Text, "<b>#7</b> Broken &lt;lamp&gt;")
	assert.Contains(t, reply.Text, "In progress")
	assert.Contains(t, reply.Text, "Reported: 09/04/2025 10:00:00")

	reply = d.Handle(context.Background(), commandUpdate(userChat, "/status #8"))
	assert.Equal(t, "Record #8 not found.", reply.Text)

	reply = d.Handle(context.Background(), commandUpdate(adminChat, "/status 8"))
	assert.Contains(t, reply.Text, "<b>#8</b>")

	reply = d.Handle(context.Background(), commandUpdate(userChat, "/status abc"))
	assert.Contains(t, reply.Text, "Usage: /status")
}

func TestHandle_StatusLongRecordFitsOneMessage(t *testing.T) {
	rec := record(7, userChat)
	rec.Detail = strings.Repeat("pipe & valve ", domain.MaxDetailLength/13)
	rec.Comments = []domain.Comment{{
		ID:     uuid.New(),
		Author: "Niran",
		Text:   strings.Repeat("<", domain.MaxCommentLength),
	}}
	d := newDispatcher(&mocks.MockRecordService{Record: rec})

	reply := d.Handle(context.Background(), commandUpdate(userChat, "/status 7"))
	require.NotNil(t, reply)
	visible := html.UnescapeString(regexp.MustCompile(`<[^>]*>`).ReplaceAllString(reply.Text, ""))
	assert.Less(t, utf8.RuneCountInString(visible), telegram.MaxMessageLength,
		"long fields are shortened before escaping")
	assert.Contains(t, reply.Text, "pipe &amp; valve")
	assert.True(t, strings.HasSuffix(reply.Text, "&lt;…"))
}

func TestHandle_Mine(t *testing.T) {
	var filter domain.Filter
	svc := &mocks.MockRecordService{
		ListFn: func(_ context.Context, f domain.Filter) ([]*domain.Record, int, error) {
			filter = f
			return []*domain.Record{record(9, userChat), record(3, userChat)}, 12, nil
		},
	}
	reply := newDispatcher(svc).Handle(context.Background(), commandUpdate(userChat, "/mine"))

	assert.Equal(t, userChat, filter.ChatID)
	assert.Equal(t, mineLimit, filter.Limit)
	assert.Contains(t, reply.Text, "(12)")
	assert.Contains(t, reply.Text, "#9 [In progress]")
	assert.Contains(t, reply.Text, "and 10 older")

	empty := &mocks.MockRecordService{}
	reply = newDispatcher(empty).Handle(context.Background(), commandUpdate(userChat, "/mine"))
	assert.Contains(t, reply.Text, "no records yet")
}

func TestHandle_Comment(t *testing.T) {
	var author, text string
	svc := &mocks.MockRecordService{
		GetFn: func(_ context.Context, id int) (*domain.Record, error) {
			return record(id, userChat), nil
		},
		AddCommentFn: func(_ context.Context, id int, a, txt string, source domain.Source) (*domain.Record, domain.Comment, error) {
			author, text = a, txt
			assert.Equal(t, domain.SourceTelegram, source)
			return record(id, userChat), domain.Comment{}, nil
		},
	}
	d := newDispatcher(svc)

	reply := d.Handle(context.Background(), commandUpdate(userChat, "/comment 7 still flickering tonight"))
	assert.Contains(t, reply.Text, "Comment added")
	assert.Equal(t, "Somchai K", author)
	assert.Equal(t, "still flickering tonight", text)

	reply = d.Handle(context.Background(), commandUpdate(userChat, "/comment 7"))
	assert.Contains(t, reply.Text, "Usage: /comment")

	reply = d.Handle(context.Background(), commandUpdate(321, "/comment 7 not mine"))
	assert.Equal(t, "Record #7 not found.", reply.Text)
}

func TestHandle_SetStatus(t *testing.T) {
	var gotStatus domain.Status
	var gotNote string
	svc := &mocks.MockRecordService{
		UpdateStatusFn: func(_ context.Context, id int, s domain.Status, actor, note string) (*domain.Record, error) {
			gotStatus, gotNote = s, note
			rec := record(id, userChat)
			rec.Status = s
			return rec, nil
		},
	}
	d := newDispatcher(svc)

	reply := d.Handle(context.Background(), commandUpdate(userChat, "/setstatus 7 done"))
	assert.Contains(t, reply.Text, "only desk admins")

	reply = d.Handle(context.Background(), commandUpdate(adminChat, "/setstatus 7 done bulb swapped"))
	assert.Equal(t, "Record <b>#7</b> is now <b>Done</b>.", reply.Text)
	assert.Equal(t, domain.StatusDone, gotStatus)
	assert.Equal(t, "bulb swapped", gotNote)

	reply = d.Handle(context.Background(), commandUpdate(adminChat, "/setstatus 7 archived"))
	assert.Contains(t, reply.Text, "Unknown status")

	reply = d.Handle(context.Background(), commandUpdate(adminChat, "/setstatus 7"))
	assert.Contains(t, reply.Text, "Usage: /setstatus")
}

func TestHandle_Stats(t *testing.T) {
	svc := &mocks.MockRecordService{
		DefaultStats: &domain.Stats{Total: 10, Open: 4, Resolved: 5, Cancelled: 1, ResolutionRate: 50, AvgResolutionHours: 12.5,
			OldestOpen: &domain.OldestOpen{ID: 2, Title: "Door", AgeHours: 80}},
	}
	reply := newDispatcher(svc).Handle(context.Background(), commandUpdate(userChat, "/stats"))
	assert.Contains(t, reply.Text, "Total: 10 · Open: 4 · Done: 5 · Cancelled: 1")
	assert.Contains(t, reply.Text, "Resolution rate: 50.0%")
	assert.Contains(t, reply.Text, "Oldest open: #2 Door (80.0 h)")
}

func TestHandle_InternalErrorsAreGeneric(t *testing.T) {
	svc := &mocks.MockRecordService{
		DefaultError: &service.ServiceError{Operation: "stats", Message: "failed", Err: errors.Join(store.ErrUnavailable, errors.New("googleapi: Error 503: secret backend detail"))},
	}
	reply := newDispatcher(svc).Handle(context.Background(), commandUpdate(userChat, "/stats"))
	assert.Equal(t, "Something went wrong. Please try again later.", reply.Text)
}

func TestHandle_CommandWithBotMention(t *testing.T) {
	svc := &mocks.MockRecordService{}
	update := commandUpdate(-100, "/help@desk_bot")
	update.Message.Chat.Type = "group"

	reply := newDispatcher(svc).Handle(context.Background(), update)
	assert.Contains(t, reply.Text, "/report")
}
