package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/sheetdesk/internal/api/shared"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/platform/logger"
	"github.com/phrazzld/sheetdesk/internal/service"
)

// RecordHandler serves the REST record endpoints used by the dashboard.
type RecordHandler struct {
	records service.RecordService
	logger  *slog.Logger
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(records service.RecordService, logger *slog.Logger) *RecordHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for RecordHandler")
	}
	return &RecordHandler{
		records: records,
		logger:  logger.With(slog.String("component", "record_handler")),
	}
}

// Routes registers the record endpoints on r.
func (h *RecordHandler) Routes(r chi.Router) {
	r.Get("/records", h.ListRecords)
	r.Post("/records", h.CreateRecord)
	r.Get("/records/{id}", h.GetRecord)
	r.Patch("/records/{id}", h.UpdateRecord)
	r.Delete("/records/{id}", h.DeleteRecord)
	r.Post("/records/{id}/status", h.UpdateStatus)
	r.Post("/records/{id}/assign", h.AssignRecord)
	r.Post("/records/{id}/comments", h.AddComment)
	r.Delete("/records/{id}/comments/{commentID}", h.DeleteComment)
	r.Get("/stats", h.GetStats)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *RecordHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(w, r, v); err != nil {
		HandleValidationError(w, r, err)
		return false
	}
	if err := shared.ValidateRequest(v); err != nil {
		HandleValidationError(w, r, err)
		return false
	}
	return true
}

// pathID reads the {id} parameter, writing a 400 on failure.
func (h *RecordHandler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := getPathID(r, "id")
	if err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).Debug("invalid record id",
			slog.String("value", chi.URLParam(r, "id")))
		HandleAPIError(w, r, err, "")
		return 0, false
	}
	return id, true
}

// ListRecords handles GET /api/records.
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	records, total, err := h.records.List(r.Context(), filter)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list records")
		return
	}

	resp := RecordListResponse{
		Records: make([]RecordResponse, 0, len(records)),
		Total:   total,
		Limit:   effectiveLimit(filter.Limit),
		Offset:  filter.Offset,
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, recordToResponse(rec))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// CreateRecord handles POST /api/records.
func (h *RecordHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if !h.decode(w, r, &req) {
		return
	}

	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	source, err := domain.ParseSource(req.Source)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rec, err := h.records.Create(r.Context(), domain.NewRecordInput{
		Reporter: req.Reporter,
		Source:   source,
		ChatID:   req.ChatID,
		Category: req.Category,
		Title:    req.Title,
		Detail:   req.Detail,
		Location: req.Location,
		Priority: priority,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create record")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("record created",
		slog.Int("record_id", rec.ID))
	shared.RespondWithJSON(w, r, http.StatusCreated, recordToResponse(rec))
}

// GetRecord handles GET /api/records/{id}.
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.records.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get record")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(rec))
}

// UpdateRecord handles PATCH /api/records/{id}.
func (h *RecordHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateRecordRequest
	if !h.decode(w, r, &req) {
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rec, err := h.records.Update(r.Context(), id, patch)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update record")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(rec))
}

func (req UpdateRecordRequest) toPatch() (domain.RecordPatch, error) {
	patch := domain.RecordPatch{
		Reporter: req.Reporter,
		Category: req.Category,
		Title:    req.Title,
		Detail:   req.Detail,
		Location: req.Location,
		Assignee: req.Assignee,
		ChatID:   req.ChatID,
	}
	if req.Priority != nil {
		p, err := domain.ParsePriority(*req.Priority)
		if err != nil {
			return patch, err
		}
		patch.Priority = &p
	}
	if req.Status != nil {
		s, err := domain.ParseStatus(*req.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &s
	}
	return patch, nil
}

// DeleteRecord handles DELETE /api/records/{id}.
func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.records.Delete(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete record")
		return
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Info("record deleted", slog.Int("record_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles POST /api/records/{id}/status.
func (h *RecordHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	rec, err := h.records.UpdateStatus(r.Context(), id, status, req.Actor, req.Note)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update status")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(rec))
}

// AssignRecord handles POST /api/records/{id}/assign.
func (h *RecordHandler) AssignRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req AssignRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, err := h.records.Assign(r.Context(), id, req.Assignee)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to assign record")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(rec))
}

// AddComment handles POST /api/records/{id}/comments.
func (h *RecordHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req AddCommentRequest
	if !h.decode(w, r, &req) {
		return
	}
	rec, comment, err := h.records.AddComment(r.Context(), id, req.Author, req.Text, domain.SourceDashboard)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to add comment")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, CommentCreatedResponse{
		Comment: commentToResponse(comment),
		Record:  recordToResponse(rec),
	})
}

// DeleteComment handles DELETE /api/records/{id}/comments/{commentID}.
func (h *RecordHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	commentID, err := getPathUUID(r, "commentID")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	rec, err := h.records.DeleteComment(r.Context(), id, commentID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to delete comment")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, recordToResponse(rec))
}

// GetStats handles GET /api/stats.
func (h *RecordHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.records.Stats(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute statistics")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
