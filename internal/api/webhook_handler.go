package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phrazzld/sheetdesk/internal/api/shared"
	"github.com/phrazzld/sheetdesk/internal/bot"
	"github.com/phrazzld/sheetdesk/internal/platform/logger"
	"github.com/phrazzld/sheetdesk/internal/platform/telegram"
	"github.com/phrazzld/sheetdesk/internal/redact"
)

// SecretTokenHeader carries the secret registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateDispatcher turns a bot update into an optional reply.
type UpdateDispatcher interface {
	Handle(ctx context.Context, update *tgbotapi.Update) *bot.Reply
}

// WebhookHandler receives Telegram updates. Once the secret matches it
// always answers 200, since Telegram redelivers on any other status and a
// failing update would be retried forever.
type WebhookHandler struct {
	secret     []byte
	dispatcher UpdateDispatcher
	messenger  telegram.Messenger
	logger     *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(
	secret string,
	dispatcher UpdateDispatcher,
	messenger telegram.Messenger,
	logger *slog.Logger,
) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		secret:     []byte(secret),
		dispatcher: dispatcher,
		messenger:  messenger,
		logger:     logger.With(slog.String("component", "webhook_handler")),
	}
}

// ServeHTTP handles POST /webhook/telegram.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	token := r.Header.Get(SecretTokenHeader)
	if len(h.secret) == 0 || subtle.ConstantTimeCompare([]byte(token), h.secret) != 1 {
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Invalid secret token", nil,
			shared.WithElevatedLogLevel())
		return
	}

	update, err := telegram.ParseUpdate(http.MaxBytesReader(w, r.Body, shared.MaxBodyBytes))
	if err != nil {
		log.Warn("discarding unreadable update", slog.String("error", redact.Error(err)))
		w.WriteHeader(http.StatusOK)
		return
	}

	reply := h.dispatcher.Handle(r.Context(), update)
	if reply != nil && reply.Text != "" {
		if err := h.messenger.Send(r.Context(), reply.ChatID, reply.Text); err != nil {
			log.Error("failed to send bot reply",
				slog.Int("update_id", update.UpdateID),
				slog.Int64("chat_id", reply.ChatID),
				slog.String("error", redact.Error(err)))
		}
	}
	w.WriteHeader(http.StatusOK)
}
