package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phrazzld/sheetdesk/internal/config"
	"github.com/phrazzld/sheetdesk/internal/redact"
)

// MaxMessageLength is the Bot API limit on message text, in characters.
const MaxMessageLength = 4096

// ErrRateLimited is returned when Telegram asks the sender to back off.
var ErrRateLimited = errors.New("telegram rate limit")

// Messenger sends text messages to chats.
type Messenger interface {
	// Send delivers an HTML-formatted message to chatID.
	Send(ctx context.Context, chatID int64, text string) error
}

// Client is the Bot API backed Messenger.
type Client struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

var _ Messenger = (*Client)(nil)

// NewClient authenticates against the Bot API with cfg.Token. The token is
// checked with a getMe call, so this fails fast on a bad token.
func NewClient(cfg config.BotConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, httpClient)
	if err != nil {
		// The token is part of every request URL and can surface in errors.
		return nil, fmt.Errorf("failed to connect to bot api: %s", redact.Error(err))
	}

	logger = logger.With(slog.String("component", "telegram_client"))
	logger.Info("bot authorized", slog.String("username", bot.Self.UserName))

	return &Client{bot: bot, logger: logger}, nil
}

// Username returns the bot's @username without the @.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// Send implements Messenger.Send. Text is HTML; long messages are cut to
// the API limit without breaking the markup.
func (c *Client) Send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, TruncateHTML(text, MaxMessageLength))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.bot.Send(msg); err != nil {
		return c.mapError("send message", err)
	}
	return nil
}

// SetWebhook registers url as the update endpoint. Telegram will echo
// secret in the X-Telegram-Bot-Api-Secret-Token header of every update.
func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if err := params.AddInterface("allowed_updates", []string{"message"}); err != nil {
		return fmt.Errorf("failed to encode allowed updates: %w", err)
	}

	if _, err := c.bot.MakeRequest("setWebhook", params); err != nil {
		return c.mapError("set webhook", err)
	}
	c.logger.InfoContext(ctx, "webhook registered", slog.String("url", url))
	return nil
}

// DeleteWebhook removes the registered webhook.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return c.mapError("delete webhook", err)
	}
	c.logger.InfoContext(ctx, "webhook deleted")
	return nil
}

func (c *Client) mapError(op string, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %s: retry after %ds", ErrRateLimited, op, apiErr.RetryAfter)
		}
		return fmt.Errorf("%s: telegram error %d: %s", op, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%s: %s", op, redact.Error(err))
}

// ParseUpdate decodes one webhook update body.
func ParseUpdate(r io.Reader) (*tgbotapi.Update, error) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r).Decode(&update); err != nil {
		return nil, fmt.Errorf("decode update: %w", err)
	}
	return &update, nil
}

// Truncate cuts s to at most max characters, marking the cut with an
// ellipsis.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

// TruncateHTML is Truncate for HTML message text. The cut never splits an
// entity or a tag, and tags left open by the cut are closed again.
func TruncateHTML(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 1 {
		return ""
	}
	cut := string([]rune(s)[:max-1])
	if i := strings.LastIndexByte(cut, '<'); i > strings.LastIndexByte(cut, '>') {
		cut = cut[:i]
	}
	if i := strings.LastIndexByte(cut, '&'); i > strings.LastIndexByte(cut, ';') {
		cut = cut[:i]
	}

	var b strings.Builder
	b.WriteString(cut)
	b.WriteString("…")
	open := openTags(cut)
	for i := len(open) - 1; i >= 0; i-- {
		b.WriteString("</" + open[i] + ">")
	}
	return b.String()
}

// openTags returns the names of the tags still open at the end of s, in
// opening order. s must not end inside a tag.
func openTags(s string) []string {
	var stack []string
	for {
		start := strings.IndexByte(s, '<')
		if start < 0 {
			return stack
		}
		end := strings.IndexByte(s[start:], '>')
		if end < 0 {
			return stack
		}
		tag := s[start+1 : start+end]
		s = s[start+end+1:]

		if name, ok := strings.CutPrefix(tag, "/"); ok {
			name = strings.ToLower(strings.TrimSpace(name))
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == name {
					stack = stack[:i]
					break
				}
			}
			continue
		}
		name := tag
		if i := strings.IndexAny(name, " \t\n"); i >= 0 {
			name = name[:i]
		}
		if name = strings.ToLower(name); name != "" {
			stack = append(stack, name)
		}
	}
}
