package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/mocks"
	"github.com/phrazzld/sheetdesk/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.April, 9, 10, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecord(id int) *domain.Record {
	return &domain.Record{
		ID:        id,
		CreatedAt: testNow,
		UpdatedAt: testNow,
		Reporter:  "Somchai",
		Source:    domain.SourceDashboard,
		Category:  "Electrical",
		Title:     "Broken lamp",
		Location:  "Room 4",
		Priority:  domain.PriorityNormal,
		Status:    domain.StatusPending,
		Comments: []domain.Comment{
			{ID: uuid.MustParse("0b6f2a8e-4c1e-4b7a-9a53-8d9a3f5d2c11"), Author: "Niran", Text: "On it", CreatedAt: testNow},
		},
	}
}

func newRecordRouter(svc service.RecordService) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", NewRecordHandler(svc, discardLogger()).Routes)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, reader))
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestNewRecordHandler_PanicsWithoutLogger(t *testing.T) {
	assert.Panics(t, func() { NewRecordHandler(&mocks.MockRecordService{}, nil) })
}

func TestListRecords(t *testing.T) {
	var got domain.Filter
	svc := &mocks.MockRecordService{
		ListFn: func(_ context.Context, f domain.Filter) ([]*domain.Record, int, error) {
			got = f
			return []*domain.Record{sampleRecord(3)}, 7, nil
		},
	}

	w := doRequest(t, newRecordRouter(svc), http.MethodGet, "/api/records?status=pending&search=lamp&limit=1&offset=2", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp RecordListResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 7, resp.Total)
	assert.Equal(t, 1, resp.Limit)
	assert.Equal(t, 2, resp.Offset)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, 3, resp.Records[0].ID)
	assert.Equal(t, "pending", resp.Records[0].Status)
	require.Len(t, resp.Records[0].Comments, 1)

	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "lamp", got.Search)
}

func TestListRecords_BadFilter(t *testing.T) {
	w := doRequest(t, newRecordRouter(&mocks.MockRecordService{}), http.MethodGet, "/api/records?status=archived", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "status")
}

func TestCreateRecord(t *testing.T) {
	var got domain.NewRecordInput
	svc := &mocks.MockRecordService{
		CreateFn: func(_ context.Context, in domain.NewRecordInput) (*domain.Record, error) {
			got = in
			rec := sampleRecord(8)
			rec.Priority = in.Priority
			return rec, nil
		},
	}
	h := newRecordRouter(svc)

	w := doRequest(t, h, http.MethodPost, "/api/records",
		`{"reporter":"Somchai","title":"Broken lamp","priority":"urgent","location":"Room 4"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp RecordResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 8, resp.ID)
	assert.Equal(t, "urgent", resp.Priority)
	assert.Equal(t, domain.PriorityUrgent, got.Priority)
	assert.Equal(t, domain.SourceDashboard, got.Source)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing title", `{"reporter":"Somchai"}`, "Invalid title: required field"},
		{"empty body", "", "Request body is required"},
		{"bad json", `{"title":`, "Invalid request format"},
		{"bad priority", `{"reporter":"a","title":"b","priority":"asap"}`, "priority"},
		{"bad source", `{"reporter":"a","title":"b","source":"fax"}`, "source"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, h, http.MethodPost, "/api/records", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}

func TestGetRecord(t *testing.T) {
	svc := &mocks.MockRecordService{
		GetFn: func(_ context.Context, id int) (*domain.Record, error) {
			if id == 404 {
				return nil, service.ErrRecordNotFound
			}
			return sampleRecord(id), nil
		},
	}
	h := newRecordRouter(svc)

	w := doRequest(t, h, http.MethodGet, "/api/records/5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp RecordResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 5, resp.ID)
	assert.True(t, resp.CreatedAt.Equal(testNow))

	w = doRequest(t, h, http.MethodGet, "/api/records/404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Record not found")

	w = doRequest(t, h, http.MethodGet, "/api/records/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRecord(t *testing.T) {
	var got domain.RecordPatch
	svc := &mocks.MockRecordService{
		UpdateFn: func(_ context.Context, id int, patch domain.RecordPatch) (*domain.Record, error) {
			got = patch
			if patch.IsEmpty() {
				return nil, service.ErrEmptyPatch
			}
			return sampleRecord(id), nil
		},
	}
	h := newRecordRouter(svc)

	w := doRequest(t, h, http.MethodPatch, "/api/records/5", `{"title":"Lamp fixed","status":"done","assignee":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, got.Title)
	assert.Equal(t, "Lamp fixed", *got.Title)
	require.NotNil(t, got.Status)
	assert.Equal(t, domain.StatusDone, *got.Status)
	require.NotNil(t, got.Assignee, "an explicit empty string clears the column")
	assert.Equal(t, "", *got.Assignee)
	assert.Nil(t, got.Detail)

	w = doRequest(t, h, http.MethodPatch, "/api/records/5", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No fields to update")

	w = doRequest(t, h, http.MethodPatch, "/api/records/5", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteRecord(t *testing.T) {
	var deleted int
	svc := &mocks.MockRecordService{
		DeleteFn: func(_ context.Context, id int) error {
			deleted = id
			return nil
		},
	}
	w := doRequest(t, newRecordRouter(svc), http.MethodDelete, "/api/records/9", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 9, deleted)
}

func TestUpdateStatus(t *testing.T) {
	var status domain.Status
	var actor, note string
	svc := &mocks.MockRecordService{
		UpdateStatusFn: func(_ context.Context, id int, s domain.Status, a, n string) (*domain.Record, error) {
			status, actor, note = s, a, n
			rec := sampleRecord(id)
			rec.Status = s
			return rec, nil
		},
	}
	h := newRecordRouter(svc)

	w := doRequest(t, h, http.MethodPost, "/api/records/5/status", `{"status":"in progress","actor":"Niran","note":"on my way"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.StatusInProgress, status)
	assert.Equal(t, "Niran", actor)
	assert.Equal(t, "on my way", note)

	w = doRequest(t, h, http.MethodPost, "/api/records/5/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignRecord(t *testing.T) {
	svc := &mocks.MockRecordService{
		AssignFn: func(_ context.Context, id int, assignee string) (*domain.Record, error) {
			rec := sampleRecord(id)
			rec.Assignee = assignee
			return rec, nil
		},
	}
	w := doRequest(t, newRecordRouter(svc), http.MethodPost, "/api/records/5/assign", `{"assignee":"Niran"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp RecordResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "Niran", resp.Assignee)
}

func TestAddComment(t *testing.T) {
	svc := &mocks.MockRecordService{
		AddCommentFn: func(_ context.Context, id int, author, text string, source domain.Source) (*domain.Record, domain.Comment, error) {
			assert.Equal(t, domain.SourceDashboard, source)
			rec := sampleRecord(id)
			c, err := rec.AddComment(author, text, testNow)
			return rec, c, err
		},
	}
	h := newRecordRouter(svc)

	w := doRequest(t, h, http.MethodPost, "/api/records/5/comments", `{"author":"Admin","text":"Parts ordered"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp CommentCreatedResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "Parts ordered", resp.Comment.Text)
	assert.Len(t, resp.Record.Comments, 2)

	w = doRequest(t, h, http.MethodPost, "/api/records/5/comments", `{"author":"Admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteComment(t *testing.T) {
	commentID := uuid.New()
	svc := &mocks.MockRecordService{
		DeleteCommentFn: func(_ context.Context, id int, cid uuid.UUID) (*domain.Record, error) {
			if cid != commentID {
				return nil, service.ErrCommentNotFound
			}
			return sampleRecord(id), nil
		},
	}
	h := newRecordRouter(svc)

	w := doRequest(t, h, http.MethodDelete, "/api/records/5/comments/"+commentID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodDelete, "/api/records/5/comments/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Comment not found")

	w = doRequest(t, h, http.MethodDelete, "/api/records/5/comments/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetStats(t *testing.T) {
	svc := &mocks.MockRecordService{DefaultStats: &domain.Stats{Total: 4, Open: 2, ResolutionRate: 50}}
	w := doRequest(t, newRecordRouter(svc), http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats domain.Stats
	decodeBody(t, w, &stats)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 50.0, stats.ResolutionRate)
}

func TestServiceUnavailableMapsTo503(t *testing.T) {
	svc := &mocks.MockRecordService{DefaultError: unavailableErr()}
	w := doRequest(t, newRecordRouter(svc), http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "Quota")
}
