package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/platform/telegram"
)

const helpText = `<b>Request desk</b>
/report &lt;title&gt; | &lt;details&gt; - report a new problem
/status &lt;number&gt; - show one of your records
/mine - list your latest records
/comment &lt;number&gt; &lt;text&gt; - add a comment
/stats - desk summary
/help - this message`

const adminHelpText = `

<b>Admin</b>
/setstatus &lt;number&gt; &lt;status&gt; [note] - change a record's status`

const textHint = "I only understand commands. Send /report &lt;title&gt; to report a problem, or /help."

// Long free text is shortened before escaping so that a reply stays well
// under the message limit.
const (
	detailPreviewLength  = 1500
	commentPreviewLength = 500
)

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}

func formatRecord(rec *domain.Record, tf domain.TimeFormat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>#%d</b> %s\n", rec.ID, esc(rec.Title))
	fmt.Fprintf(&b, "Status: <b>%s</b> · Priority: %s\n", esc(rec.Status.Label()), esc(string(rec.Priority)))
	if rec.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", esc(rec.Location))
	}
	if rec.Assignee != "" {
		fmt.Fprintf(&b, "Assigned to: %s\n", esc(rec.Assignee))
	}
	fmt.Fprintf(&b, "Reported: %s", esc(tf.Format(rec.CreatedAt)))
	if rec.ResolvedAt != nil {
		fmt.Fprintf(&b, "\nResolved: %s", esc(tf.FormatPtr(rec.ResolvedAt)))
	}
	if rec.Detail != "" {
		fmt.Fprintf(&b, "\n\n%s", esc(telegram.Truncate(rec.Detail, detailPreviewLength)))
	}
	if n := len(rec.Comments); n > 0 {
		last := rec.Comments[n-1]
		fmt.Fprintf(&b, "\n\n💬 %d comment(s). Latest from <i>%s</i>: %s",
			n, esc(last.Author), esc(telegram.Truncate(last.Text, commentPreviewLength)))
	}
	return b.String()
}

func formatList(records []*domain.Record, total int) string {
	if total == 0 {
		return "You have no records yet. Send /report &lt;title&gt; to create one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Your records</b> (%d)\n", total)
	for _, rec := range records {
		fmt.Fprintf(&b, "\n#%d [%s] %s", rec.ID, esc(rec.Status.Label()), esc(rec.Title))
	}
	if total > len(records) {
		fmt.Fprintf(&b, "\n\n…and %d older", total-len(records))
	}
	return b.String()
}

func formatStats(s *domain.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Desk summary</b>\nTotal: %d · Open: %d · Done: %d · Cancelled: %d\n",
		s.Total, s.Open, s.Resolved, s.Cancelled)
	fmt.Fprintf(&b, "New today: %d · this week: %d · this month: %d\n",
		s.CreatedToday, s.CreatedThisWeek, s.CreatedThisMonth)
	fmt.Fprintf(&b, "Resolution rate: %.1f%%", s.ResolutionRate)
	if s.AvgResolutionHours > 0 {
		fmt.Fprintf(&b, " · avg %.1f h to resolve", s.AvgResolutionHours)
	}
	if s.OldestOpen != nil {
		fmt.Fprintf(&b, "\nOldest open: #%d %s (%.1f h)", s.OldestOpen.ID, esc(s.OldestOpen.Title), s.OldestOpen.AgeHours)
	}
	return b.String()
}
