package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sheetdesk/internal/api/shared"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/platform/logger"
	"github.com/phrazzld/sheetdesk/internal/redact"
	"github.com/phrazzld/sheetdesk/internal/service"
)

// LegacyResponse is the envelope every /exec response uses. The endpoint
// always answers 200; clients branch on Success.
type LegacyResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// legacyRecord is a record as the dashboard's older client expects it:
// camelCase keys and timestamps rendered in the desk's layout and zone.
type legacyRecord struct {
	ID         int             `json:"id"`
	CreatedAt  string          `json:"createdAt"`
	Reporter   string          `json:"reporter"`
	Source     string          `json:"source"`
	ChatID     string          `json:"chatId"`
	Category   string          `json:"category"`
	Title      string          `json:"title"`
	Detail     string          `json:"detail"`
	Location   string          `json:"location"`
	Priority   string          `json:"priority"`
	Status     string          `json:"status"`
	Assignee   string          `json:"assignee"`
	UpdatedAt  string          `json:"updatedAt"`
	ResolvedAt string          `json:"resolvedAt"`
	Comments   []legacyComment `json:"comments"`
}

type legacyComment struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// legacyParams holds the flattened action parameters from the query string
// and JSON body.
type legacyParams map[string]string

func (p legacyParams) Get(key string) string { return p[key] }

// lookup returns the value and whether the key was sent at all, so that
// updates can clear a column by sending an empty string.
func (p legacyParams) lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := p[k]; ok {
			return v, true
		}
	}
	return "", false
}

type legacyAction func(ctx context.Context, p legacyParams) (data interface{}, message string, err error)

// LegacyHandler serves the single action endpoint that replaced the old
// script deployment. Requests carry an "action" name plus parameters.
type LegacyHandler struct {
	records service.RecordService
	tf      domain.TimeFormat
	now     func() time.Time
	logger  *slog.Logger
	actions map[string]legacyAction
}

// NewLegacyHandler creates a LegacyHandler rendering timestamps with tf.
func NewLegacyHandler(records service.RecordService, tf domain.TimeFormat, logger *slog.Logger) *LegacyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &LegacyHandler{
		records: records,
		tf:      tf,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "legacy_handler")),
	}
	h.actions = map[string]legacyAction{
		"ping":          h.ping,
		"getRecords":    h.getRecords,
		"getRecord":     h.getRecord,
		"addRecord":     h.addRecord,
		"updateRecord":  h.updateRecord,
		"updateStatus":  h.updateStatus,
		"assignRecord":  h.assignRecord,
		"deleteRecord":  h.deleteRecord,
		"addComment":    h.addComment,
		"deleteComment": h.deleteComment,
		"getStats":      h.getStats,
	}
	return h
}

// ServeHTTP handles GET and POST /exec.
func (h *LegacyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	params, err := readLegacyParams(w, r)
	if err != nil {
		log.Debug("unreadable legacy request", slog.String("error", redact.Error(err)))
		h.fail(w, r, "invalid request body")
		return
	}

	name := strings.TrimSpace(params.Get("action"))
	action, ok := h.actions[name]
	if !ok {
		if name == "" {
			h.fail(w, r, "missing action")
			return
		}
		h.fail(w, r, "unknown action: "+name)
		return
	}

	data, message, err := action(r.Context(), params)
	if err != nil {
		level := slog.LevelWarn
		if MapErrorToStatusCode(err) >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(r.Context(), level, "legacy action failed",
			slog.String("action", name),
			slog.String("error", redact.Error(err)))
		h.fail(w, r, GetSafeErrorMessage(err))
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, LegacyResponse{Success: true, Data: data, Message: message})
}

func (h *LegacyHandler) fail(w http.ResponseWriter, r *http.Request, message string) {
	shared.RespondWithJSON(w, r, http.StatusOK, LegacyResponse{Success: false, Error: message})
}

// readLegacyParams merges query parameters with a flat JSON object body;
// body values win. The body is read whatever its content type, since old
// clients post JSON as text/plain to avoid CORS preflights.
func readLegacyParams(w http.ResponseWriter, r *http.Request) (legacyParams, error) {
	params := legacyParams{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	if r.Method != http.MethodPost || r.Body == nil {
		return params, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, shared.MaxBodyBytes))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(body)) == "" {
		return params, nil
	}

	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		switch val := v.(type) {
		case nil:
			params[k] = ""
		case string:
			params[k] = val
		case json.Number:
			params[k] = val.String()
		case bool:
			params[k] = strconv.FormatBool(val)
		default:
			raw, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			params[k] = string(raw)
		}
	}
	return params, nil
}

func (h *LegacyHandler) toLegacy(rec *domain.Record) legacyRecord {
	out := legacyRecord{
		ID:         rec.ID,
		CreatedAt:  h.tf.Format(rec.CreatedAt),
		Reporter:   rec.Reporter,
		Source:     string(rec.Source),
		Category:   rec.Category,
		Title:      rec.Title,
		Detail:     rec.Detail,
		Location:   rec.Location,
		Priority:   string(rec.Priority),
		Status:     string(rec.Status),
		Assignee:   rec.Assignee,
		UpdatedAt:  h.tf.Format(rec.UpdatedAt),
		ResolvedAt: h.tf.FormatPtr(rec.ResolvedAt),
		Comments:   make([]legacyComment, 0, len(rec.Comments)),
	}
	if rec.ChatID != 0 {
		out.ChatID = strconv.FormatInt(rec.ChatID, 10)
	}
	for _, c := range rec.Comments {
		out.Comments = append(out.Comments, h.toLegacyComment(c))
	}
	return out
}

func (h *LegacyHandler) toLegacyComment(c domain.Comment) legacyComment {
	return legacyComment{
		ID:        c.ID.String(),
		Author:    c.Author,
		Text:      c.Text,
		CreatedAt: h.tf.Format(c.CreatedAt),
	}
}

func legacyID(p legacyParams) (int, error) {
	raw, _ := p.lookup("id", "recordId")
	return parseRecordID("id", raw)
}

func legacyChatID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.NewValidationError("chatId", "must be a number", domain.ErrValidation)
	}
	return id, nil
}

func (h *LegacyHandler) ping(context.Context, legacyParams) (interface{}, string, error) {
	return map[string]string{"status": "ok", "time": h.tf.Format(h.now())}, "pong", nil
}

func (h *LegacyHandler) getRecords(ctx context.Context, p legacyParams) (interface{}, string, error) {
	filter, err := parseFilter(p)
	if err != nil {
		return nil, "", err
	}
	records, total, err := h.records.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	out := make([]legacyRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, h.toLegacy(rec))
	}
	return map[string]interface{}{"records": out, "total": total}, "", nil
}

func (h *LegacyHandler) getRecord(ctx context.Context, p legacyParams) (interface{}, string, error) {
	id, err := legacyID(p)
	if err != nil {
		return nil, "", err
	}
	rec, err := h.records.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return h.toLegacy(rec), "", nil
}

func (h *LegacyHandler) addRecord(ctx context.Context, p legacyParams) (interface{}, string, error) {
	priority, err := domain.ParsePriority(p.Get("priority"))
	if err != nil {
		return nil, "", err
	}
	source, err := domain.ParseSource(p.Get("source"))
	if err != nil {
		return nil, "", err
	}
	chatRaw, _ := p.lookup("chatId", "chat_id")
	chatID, err := legacyChatID(chatRaw)
	if err != nil {
		return nil, "", err
	}
	reporter, _ := p.lookup("reporter", "name")

	rec, err := h.records.Create(ctx, domain.NewRecordInput{
		Reporter: reporter,
		Source:   source,
		ChatID:   chatID,
		Category: p.Get("category"),
		Title:    p.Get("title"),
		Detail:   p.Get("detail"),
		Location: p.Get("location"),
		Priority: priority,
	})
	if err != nil {
		return nil, "", err
	}
	return h.toLegacy(rec), fmt.Sprintf("Record #%d created", rec.ID), nil
}

func (h *LegacyHandler) updateRecord(ctx context.Context, p legacyParams) (interface{}, string, error) {
	id, err := legacyID(p)
	if err != nil {
		return nil, "", err
	}

	var patch domain.RecordPatch
	for key, dst := range map[string]**string{
		"reporter": &patch.Reporter,
		"category": &patch.Category,
		"title":    &patch.Title,
		"detail":   &patch.Detail,
		"location": &patch.Location,
		"assignee": &patch.Assignee,
	} {
		if v, ok := p.lookup(key); ok {
			*dst = &v
		}
	}
	if v, ok := p.lookup("priority"); ok {
		pr, err := domain.ParsePriority(v)
		if err != nil {
			return nil, "", err
		}
		patch.Priority = &pr
	}
	if v, ok := p.lookup("status"); ok {
		s, err := domain.ParseStatus(v)
		if err != nil {
			return nil, "", err
		}
		patch.Status = &s
	}
	if v, ok := p.lookup("chatId", "chat_id"); ok {
		chatID, err := legacyChatID(v)
		if err != nil {
			return nil, "", err
		}
		patch.ChatID = &chatID
	}

	rec, err := h.records.Update(ctx, id, patch)
	if err != nil {
		return nil, "", err
	}
	return h.toLegacy(rec), fmt.Sprintf("Record #%d updated", rec.ID), nil
}

func (h *LegacyHandler) updateStatus(ctx context.Context, p legacyParams) (interface{}, string, error) {
	id, err := legacyID(p)
	if err != nil {
		return nil, "", err
	}
	status, err := domain.ParseStatus(p.Get("status"))
	if err != nil {
		return nil, "", err
	}
	actor, _ := p.lookup("actor", "updatedBy", "by")

	rec, err := h.records.UpdateStatus(ctx, id, status, actor, p.Get("note"))
	if err != nil {
		return nil, "", err
	}
	return h.toLegacy(rec), fmt.Sprintf("Record #%d is now %s", rec.ID, rec.Status.Label()), nil
}

func (h *LegacyHandler) assignRecord(ctx context.Context, p legacyParams) (interface{}, string, error) {
	id, err := legacyID(p)
	if err != nil {
		return nil, "", err
	}
	rec, err := h.records.Assign(ctx, id, p.Get("assignee"))
	if err != nil {
		return nil, "", err
	}
	if rec.Assignee == "" {
		return h.toLegacy(rec), fmt.Sprintf("Record #%d unassigned", rec.ID), nil
	}
	return h.toLegacy(rec), fmt.Sprintf("Record #%d assigned to %s", rec.ID, rec.Assignee), nil
}

func (h *LegacyHandler) deleteRecord(ctx context.Context, p legacyParams) (interface{}, string, error) {
	id, err := legacyID(p)
	if err != nil {
		return nil, "", err
	}
	if err := h.records.Delete(ctx, id); err != nil {
		return nil, "", err
	}
	return map[string]int{"id": id}, fmt.Sprintf("Record #%d deleted", id), nil
}

func (h *LegacyHandler) addComment(ctx context.Context, p legacyParams) (interface{}, string, error) {
	id, err := legacyID(p)
	if err != nil {
		return nil, "", err
	}
	text, _ := p.lookup("text", "comment")
	rec, comment, err := h.records.AddComment(ctx, id, p.Get("author"), text, domain.SourceDashboard)
	if err != nil {
		return nil, "", err
	}
	return map[string]interface{}{
		"comment": h.toLegacyComment(comment),
		"record":  h.toLegacy(rec),
	}, "Comment added", nil
}

func (h *LegacyHandler) deleteComment(ctx context.Context, p legacyParams) (interface{}, string, error) {
	id, err := legacyID(p)
	if err != nil {
		return nil, "", err
	}
	raw, _ := p.lookup("commentId", "comment_id")
	commentID, err := parseCommentID(raw)
	if err != nil {
		return nil, "", err
	}
	rec, err := h.records.DeleteComment(ctx, id, commentID)
	if err != nil {
		return nil, "", err
	}
	return h.toLegacy(rec), "Comment deleted", nil
}

func (h *LegacyHandler) getStats(ctx context.Context, _ legacyParams) (interface{}, string, error) {
	stats, err := h.records.Stats(ctx)
	if err != nil {
		return nil, "", err
	}
	return stats, "", nil
}

func parseCommentID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, domain.NewValidationError("commentId", "is required", domain.ErrInvalidID)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewValidationError("commentId", "has invalid format", domain.ErrInvalidID)
	}
	return id, nil
}
