package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/mocks"
	"github.com/phrazzld/sheetdesk/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type legacyEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func bangkokFormat(t *testing.T) domain.TimeFormat {
	t.Helper()
	tf, err := domain.NewTimeFormat("Asia/Bangkok", "")
	require.NoError(t, err)
	return tf
}

func newLegacy(t *testing.T, svc service.RecordService) *LegacyHandler {
	h := NewLegacyHandler(svc, bangkokFormat(t), discardLogger())
	h.now = func() time.Time { return testNow }
	return h
}

func callLegacy(t *testing.T, h http.Handler, method, target, body string) legacyEnvelope {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, "the legacy endpoint always answers 200")
	var env legacyEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestLegacy_Ping(t *testing.T) {
	env := callLegacy(t, newLegacy(t, &mocks.MockRecordService{}), http.MethodGet, "/exec?action=ping", "")
	assert.True(t, env.Success)
	assert.Equal(t, "pong", env.Message)
	assert.JSONEq(t, `{"status":"ok","time":"09/04/2025 17:30:00"}`, string(env.Data))
}

func TestLegacy_UnknownAndMissingAction(t *testing.T) {
	h := newLegacy(t, &mocks.MockRecordService{})

	env := callLegacy(t, h, http.MethodGet, "/exec?action=dropTable", "")
	assert.False(t, env.Success)
	assert.Equal(t, "unknown action: dropTable", env.Error)

	env = callLegacy(t, h, http.MethodGet, "/exec", "")
	assert.False(t, env.Success)
	assert.Equal(t, "missing action", env.Error)

	env = callLegacy(t, h, http.MethodPost, "/exec", `{"action":`)
	assert.False(t, env.Success)
	assert.Equal(t, "invalid request body", env.Error)
}

func TestLegacy_GetRecordsFormatsTimestamps(t *testing.T) {
	var filter domain.Filter
	resolved := testNow.Add(26 * time.Hour)
	svc := &mocks.MockRecordService{
		ListFn: func(_ context.Context, f domain.Filter) ([]*domain.Record, int, error) {
			filter = f
			rec := sampleRecord(4)
			rec.ChatID = 5550001
			rec.Status = domain.StatusDone
			rec.ResolvedAt = &resolved
			return []*domain.Record{rec}, 1, nil
		},
	}

	env := callLegacy(t, newLegacy(t, svc), http.MethodGet, "/exec?action=getRecords&status=done&limit=5", "")
	require.True(t, env.Success, env.Error)
	assert.Equal(t, domain.StatusDone, filter.Status)
	assert.Equal(t, 5, filter.Limit)

	var data struct {
		Records []map[string]interface{} `json:"records"`
		Total   int                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 1, data.Total)
	require.Len(t, data.Records, 1)

	rec := data.Records[0]
	assert.Equal(t, float64(4), rec["id"])
	assert.Equal(t, "09/04/2025 17:30:00", rec["createdAt"])
	assert.Equal(t, "10/04/2025 19:30:00", rec["resolvedAt"])
	assert.Equal(t, "5550001", rec["chatId"])
	comments := rec["comments"].([]interface{})
	require.Len(t, comments, 1)
	assert.Equal(t, "09/04/2025 17:30:00", comments[0].(map[string]interface{})["createdAt"])
}

func TestLegacy_AddRecordFromJSONBody(t *testing.T) {
	var got domain.NewRecordInput
	svc := &mocks.MockRecordService{
		CreateFn: func(_ context.Context, in domain.NewRecordInput) (*domain.Record, error) {
			got = in
			return sampleRecord(12), nil
		},
	}

	env := callLegacy(t, newLegacy(t, svc), http.MethodPost, "/exec",
		`{"action":"addRecord","reporter":"Somchai","title":"Broken lamp","priority":"High","chatId":5550001,"source":"telegram"}`)
	require.True(t, env.Success, env.Error)
	assert.Equal(t, "Record #12 created", env.Message)

	assert.Equal(t, "Somchai", got.Reporter)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, domain.SourceTelegram, got.Source)
	assert.Equal(t, int64(5550001), got.ChatID)
}

func TestLegacy_AddRecordValidationFailure(t *testing.T) {
	svc := &mocks.MockRecordService{
		CreateFn: func(context.Context, domain.NewRecordInput) (*domain.Record, error) {
			return nil, domain.NewValidationError("title", "is required", domain.ErrEmptyContent)
		},
	}
	env := callLegacy(t, newLegacy(t, svc), http.MethodPost, "/exec", `{"action":"addRecord","reporter":"x"}`)
	assert.False(t, env.Success)
	assert.Equal(t, "title is required", env.Error)

	env = callLegacy(t, newLegacy(t, svc), http.MethodPost, "/exec", `{"action":"addRecord","chatId":"abc"}`)
	assert.False(t, env.Success)
	assert.Equal(t, "chatId must be a number", env.Error)
}

func TestLegacy_UpdateRecordOnlySentFields(t *testing.T) {
	var patch domain.RecordPatch
	svc := &mocks.MockRecordService{
		UpdateFn: func(_ context.Context, id int, p domain.RecordPatch) (*domain.Record, error) {
			patch = p
			return sampleRecord(id), nil
		},
	}

	env := callLegacy(t, newLegacy(t, svc), http.MethodPost, "/exec",
		`{"action":"updateRecord","id":"7","location":"","priority":"low","status":"in progress"}`)
	require.True(t, env.Success, env.Error)
	assert.Equal(t, "Record #7 updated", env.Message)

	require.NotNil(t, patch.Location)
	assert.Equal(t, "", *patch.Location)
	require.NotNil(t, patch.Priority)
	assert.Equal(t, domain.PriorityLow, *patch.Priority)
	require.NotNil(t, patch.Status)
	assert.Equal(t, domain.StatusInProgress, *patch.Status)
	assert.Nil(t, patch.Title)
	assert.Nil(t, patch.Reporter)
	assert.Nil(t, patch.ChatID)
}

func TestLegacy_StatusAssignDelete(t *testing.T) {
	var actor, note string
	var deleted int
	svc := &mocks.MockRecordService{
		UpdateStatusFn: func(_ context.Context, id int, s domain.Status, a, n string) (*domain.Record, error) {
			actor, note = a, n
			rec := sampleRecord(id)
			rec.Status = s
			return rec, nil
		},
		AssignFn: func(_ context.Context, id int, assignee string) (*domain.Record, error) {
			rec := sampleRecord(id)
			rec.Assignee = assignee
			return rec, nil
		},
		DeleteFn: func(_ context.Context, id int) error {
			deleted = id
			return nil
		},
	}
	h := newLegacy(t, svc)

	env := callLegacy(t, h, http.MethodGet, "/exec?action=updateStatus&id=3&status=done&updatedBy=Niran&note=fixed", "")
	require.True(t, env.Success, env.Error)
	assert.Equal(t, "Record #3 is now Done", env.Message)
	assert.Equal(t, "Niran", actor)
	assert.Equal(t, "fixed", note)

	env = callLegacy(t, h, http.MethodGet, "/exec?action=assignRecord&id=3&assignee=Niran", "")
	assert.Equal(t, "Record #3 assigned to Niran", env.Message)
	env = callLegacy(t, h, http.MethodGet, "/exec?action=assignRecord&id=3", "")
	assert.Equal(t, "Record #3 unassigned", env.Message)

	env = callLegacy(t, h, http.MethodPost, "/exec", `{"action":"deleteRecord","id":3}`)
	require.True(t, env.Success, env.Error)
	assert.Equal(t, 3, deleted)
	assert.JSONEq(t, `{"id":3}`, string(env.Data))

	env = callLegacy(t, h, http.MethodGet, "/exec?action=updateStatus&id=3&status=archived", "")
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "status must be one of")

	env = callLegacy(t, h, http.MethodGet, "/exec?action=deleteRecord&id=zero", "")
	assert.False(t, env.Success)
	assert.Equal(t, "id must be a positive number", env.Error)
}

func TestLegacy_Comments(t *testing.T) {
	target := uuid.New()
	svc := &mocks.MockRecordService{
		AddCommentFn: func(_ context.Context, id int, author, text string, source domain.Source) (*domain.Record, domain.Comment, error) {
			assert.Equal(t, domain.SourceDashboard, source)
			rec := sampleRecord(id)
			c, err := rec.AddComment(author, text, testNow)
			return rec, c, err
		},
		DeleteCommentFn: func(_ context.Context, id int, commentID uuid.UUID) (*domain.Record, error) {
			if commentID != target {
				return nil, service.ErrCommentNotFound
			}
			return sampleRecord(id), nil
		},
	}
	h := newLegacy(t, svc)

	env := callLegacy(t, h, http.MethodPost, "/exec", `{"action":"addComment","id":2,"author":"Admin","comment":"Parts ordered"}`)
	require.True(t, env.Success, env.Error)
	var added struct {
		Comment legacyComment `json:"comment"`
		Record  legacyRecord  `json:"record"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &added))
	assert.Equal(t, "Parts ordered", added.Comment.Text)
	assert.Equal(t, "09/04/2025 17:30:00", added.Comment.CreatedAt)
	assert.Len(t, added.Record.Comments, 2)

	env = callLegacy(t, h, http.MethodPost, "/exec", `{"action":"deleteComment","id":2,"commentId":"`+target.String()+`"}`)
	assert.True(t, env.Success, env.Error)

	env = callLegacy(t, h, http.MethodPost, "/exec", `{"action":"deleteComment","id":2,"commentId":"`+uuid.NewString()+`"}`)
	assert.False(t, env.Success)
	assert.Equal(t, "Comment not found", env.Error)

	env = callLegacy(t, h, http.MethodPost, "/exec", `{"action":"deleteComment","id":2}`)
	assert.False(t, env.Success)
	assert.Equal(t, "commentId is required", env.Error)
}

func TestLegacy_GetRecordAndStatsErrors(t *testing.T) {
	svc := &mocks.MockRecordService{DefaultError: unavailableErr()}
	h := newLegacy(t, svc)

	env := callLegacy(t, h, http.MethodGet, "/exec?action=getStats", "")
	assert.False(t, env.Success)
	assert.Equal(t, "The spreadsheet is temporarily unavailable, please retry", env.Error)

	svc.DefaultError = service.ErrRecordNotFound
	env = callLegacy(t, h, http.MethodGet, "/exec?action=getRecord&id=99", "")
	assert.False(t, env.Success)
	assert.Equal(t, "Record not found", env.Error)
}

func TestReadLegacyParams_BodyOverridesQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/exec?action=getRecord&id=1",
		strings.NewReader(`{"id":2,"flag":true,"tags":["a"],"none":null}`))
	params, err := readLegacyParams(httptest.NewRecorder(), req)
	require.NoError(t, err)

	assert.Equal(t, "getRecord", params.Get("action"))
	assert.Equal(t, "2", params.Get("id"))
	assert.Equal(t, "true", params.Get("flag"))
	assert.Equal(t, `["a"]`, params.Get("tags"))
	v, ok := params.lookup("none")
	assert.True(t, ok)
	assert.Empty(t, v)
}
