package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/events"
	"github.com/phrazzld/sheetdesk/internal/platform/telegram"
)

// textPreviewLength bounds notes and comment text quoted in a message.
const textPreviewLength = 1000

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func createdMessage(p events.CreatedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🆕 <b>New record #%d</b>\n%s\n", p.RecordID, esc(p.Title))

	details := []string{"Priority: " + esc(p.Priority)}
	if p.Category != "" {
		details = append(details, "Category: "+esc(p.Category))
	}
	if p.Location != "" {
		details = append(details, "Location: "+esc(p.Location))
	}
	b.WriteString(strings.Join(details, " · "))
	fmt.Fprintf(&b, "\nReported by %s via %s", esc(p.Reporter), esc(p.Source))
	return b.String()
}

func statusChangedMessage(p events.StatusChangedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 Record <b>#%d</b> %s\nStatus: %s → <b>%s</b>",
		p.RecordID,
		esc(p.Title),
		esc(domain.Status(p.From).Label()),
		esc(domain.Status(p.To).Label()),
	)
	if p.Actor != "" {
		fmt.Fprintf(&b, "\nBy: %s", esc(p.Actor))
	}
	if p.Note != "" {
		fmt.Fprintf(&b, "\nNote: %s", esc(telegram.Truncate(p.Note, textPreviewLength)))
	}
	return b.String()
}

func commentedMessage(p events.CommentedPayload) string {
	return fmt.Sprintf("💬 New comment on <b>#%d</b> %s\n<i>%s</i>: %s",
		p.RecordID, esc(p.Title), esc(p.Author), esc(telegram.Truncate(p.Text, textPreviewLength)))
}
