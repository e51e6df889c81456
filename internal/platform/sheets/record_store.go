package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/redact"
	"github.com/phrazzld/sheetdesk/internal/store"
)

// ErrHeaderMismatch is returned by EnsureHeader when row 1 holds something
// other than the expected column titles.
var ErrHeaderMismatch = fmt.Errorf("%w: header row does not match", store.ErrConflict)

// errSkipRow marks a row that does not hold a record.
var errSkipRow = errors.New("row has no record id")

// RecordStore implements store.RecordStore on one worksheet.
//
// Writes from this process are serialized so that ID assignment and row
// lookups do not race each other. Edits made directly in the sheet are not
// coordinated with.
type RecordStore struct {
	api    ValuesAPI
	sheet  string
	tf     domain.TimeFormat
	logger *slog.Logger

	writeMu sync.Mutex
}

var _ store.RecordStore = (*RecordStore)(nil)

// NewRecordStore creates a RecordStore for the named sheet. Timestamps are
// written and read with tf.
func NewRecordStore(api ValuesAPI, sheet string, tf domain.TimeFormat, logger *slog.Logger) *RecordStore {
	if api == nil {
		panic("api cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordStore{
		api:    api,
		sheet:  sheet,
		tf:     tf,
		logger: logger.With(slog.String("component", "record_store"), slog.String("sheet", sheet)),
	}
}

// List implements store.RecordStore.List.
func (s *RecordStore) List(ctx context.Context) ([]*domain.Record, error) {
	rows, err := s.api.Get(ctx, dataRange(s.sheet))
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(rows))
	for i, row := range rows {
		rowNum := headerRow + 1 + i
		rec, err := s.rowToRecord(ctx, row, rowNum)
		if err != nil {
			if !isBlankRow(row) {
				s.logger.WarnContext(ctx, "skipping unreadable row",
					slog.Int("row", rowNum),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get implements store.RecordStore.Get.
func (s *RecordStore) Get(ctx context.Context, id int) (*domain.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var found *domain.Record
	for _, rec := range records {
		if rec.ID != id {
			continue
		}
		if found != nil {
			return nil, duplicateError("get", id, found.Row, rec.Row)
		}
		found = rec
	}
	if found == nil {
		return nil, store.ErrRecordNotFound
	}
	return found, nil
}

// Create implements store.RecordStore.Create.
func (s *RecordStore) Create(ctx context.Context, rec *domain.Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ids, err := s.readIDs(ctx)
	if err != nil {
		return err
	}
	maxID := 0
	for _, id := range ids {
		if id.id > maxID {
			maxID = id.id
		}
	}

	rec.ID = maxID + 1
	row, err := s.recordToRow(rec)
	if err != nil {
		rec.ID = 0
		return err
	}

	updated, err := s.api.Append(ctx, appendRange(s.sheet), [][]interface{}{row})
	if err != nil {
		// A failed append may still have been applied. The ID was free
		// when it was chosen, so finding it now means the row landed.
		if landed, rerr := s.rowOf(ctx, rec.ID); rerr == nil && landed > 0 {
			s.logger.WarnContext(ctx, "append reported failure but the row was written",
				slog.Int("id", rec.ID),
				slog.Int("row", landed),
				slog.String("error", redact.Error(err)),
			)
			rec.Row = landed
			return nil
		}
		rec.ID = 0
		return err
	}

	rng, perr := parseRange(updated)
	if perr != nil {
		// The row was written; only its position is unknown.
		s.logger.WarnContext(ctx, "could not parse appended range",
			slog.String("range", updated),
			slog.String("error", perr.Error()),
		)
		rec.Row = 0
	} else {
		rec.Row = rng.StartRow
	}

	s.logger.DebugContext(ctx, "record appended", slog.Int("id", rec.ID), slog.Int("row", rec.Row))
	return nil
}

// Update implements store.RecordStore.Update.
func (s *RecordStore) Update(ctx context.Context, rec *domain.Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rowNum, err := s.locate(ctx, "update", rec.ID)
	if err != nil {
		return err
	}
	row, err := s.recordToRow(rec)
	if err != nil {
		return err
	}

	err = s.api.BatchUpdate(ctx, []RangeValues{{
		Range:  mutableRange(s.sheet, rowNum),
		Values: [][]interface{}{row[colCreatedAt:]},
	}})
	if err != nil {
		return err
	}
	rec.Row = rowNum
	return nil
}

// Delete implements store.RecordStore.Delete.
func (s *RecordStore) Delete(ctx context.Context, id int) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rowNum, err := s.locate(ctx, "delete", id)
	if err != nil {
		return err
	}
	if err := s.api.DeleteRow(ctx, s.sheet, rowNum); err != nil {
		if row, rerr := s.rowOf(ctx, id); rerr == nil && row == 0 {
			s.logger.WarnContext(ctx, "row delete reported failure but the record is gone",
				slog.Int("id", id),
				slog.String("error", redact.Error(err)),
			)
			return nil
		}
		return err
	}
	return nil
}

// EnsureHeader implements store.RecordStore.EnsureHeader.
func (s *RecordStore) EnsureHeader(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rows, err := s.api.Get(ctx, headerRange(s.sheet))
	if err != nil {
		return err
	}

	want := Header()
	if len(rows) == 0 || isBlankRow(rows[0]) {
		cells := make([]interface{}, len(want))
		for i, h := range want {
			cells[i] = h
		}
		s.logger.InfoContext(ctx, "writing header row")
		return s.api.Update(ctx, headerRange(s.sheet), [][]interface{}{cells})
	}

	got := rows[0]
	for i, h := range want {
		if i >= len(got) || !strings.EqualFold(strings.TrimSpace(cellString(got[i])), h) {
			return store.NewStoreError("sheet", "ensure_header",
				fmt.Sprintf("column %s should be %q", columnLetter(i), h), ErrHeaderMismatch)
		}
	}
	return nil
}

type rowID struct {
	id  int
	row int
}

// readIDs reads column A and returns every parsable record ID with its row.
func (s *RecordStore) readIDs(ctx context.Context) ([]rowID, error) {
	rows, err := s.api.Get(ctx, idRange(s.sheet))
	if err != nil {
		return nil, err
	}
	ids := make([]rowID, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		id, err := parseID(row[colID])
		if err != nil {
			continue
		}
		ids = append(ids, rowID{id: id, row: headerRow + 1 + i})
	}
	return ids, nil
}

// rowOf returns the first row holding id, or 0 when the ID is absent.
func (s *RecordStore) rowOf(ctx context.Context, id int) (int, error) {
	ids, err := s.readIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range ids {
		if r.id == id {
			return r.row, nil
		}
	}
	return 0, nil
}

// locate finds the sheet row currently holding id. Rows shift when rows
// above them are deleted, so this always reads column A fresh.
func (s *RecordStore) locate(ctx context.Context, op string, id int) (int, error) {
	ids, err := s.readIDs(ctx)
	if err != nil {
		return 0, err
	}
	found := 0
	for _, r := range ids {
		if r.id != id {
			continue
		}
		if found != 0 {
			return 0, duplicateError(op, id, found, r.row)
		}
		found = r.row
	}
	if found == 0 {
		return 0, store.ErrRecordNotFound
	}
	return found, nil
}

func duplicateError(op string, id, rowA, rowB int) error {
	return store.NewStoreError("record", op,
		fmt.Sprintf("id %d appears on rows %d and %d", id, rowA, rowB), store.ErrConflict)
}

// recordToRow renders rec as the 15 sheet cells. The chat ID is written as
// a string so large IDs survive the round trip exactly.
func (s *RecordStore) recordToRow(rec *domain.Record) ([]interface{}, error) {
	comments, err := domain.EncodeComments(rec.Comments)
	if err != nil {
		return nil, store.NewStoreError("record", "encode", "comments cell",
			fmt.Errorf("%w: %w", store.ErrInvalidEntity, err))
	}

	chatID := ""
	if rec.ChatID != 0 {
		chatID = strconv.FormatInt(rec.ChatID, 10)
	}

	row := make([]interface{}, columnCount)
	row[colID] = rec.ID
	row[colCreatedAt] = s.tf.Format(rec.CreatedAt)
	row[colReporter] = rec.Reporter
	row[colSource] = string(rec.Source)
	row[colChatID] = chatID
	row[colCategory] = rec.Category
	row[colTitle] = rec.Title
	row[colDetail] = rec.Detail
	row[colLocation] = rec.Location
	row[colPriority] = string(rec.Priority)
	row[colStatus] = string(rec.Status)
	row[colAssignee] = rec.Assignee
	row[colUpdatedAt] = s.tf.Format(rec.UpdatedAt)
	row[colResolvedAt] = s.tf.FormatPtr(rec.ResolvedAt)
	row[colComments] = comments
	return row, nil
}

// rowToRecord parses one data row. Only a missing or malformed ID makes the
// row unreadable; other bad cells fall back to defaults and are logged.
func (s *RecordStore) rowToRecord(ctx context.Context, row []interface{}, rowNum int) (*domain.Record, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(cellString(row[i]))
		}
		return ""
	}
	warn := func(column, value string, err error) {
		s.logger.WarnContext(ctx, "unreadable cell, using default",
			slog.Int("row", rowNum),
			slog.String("column", column),
			slog.String("value", value),
			slog.String("error", err.Error()),
		)
	}

	if len(row) == 0 {
		return nil, errSkipRow
	}
	id, err := parseID(row[colID])
	if err != nil {
		return nil, err
	}

	rec := &domain.Record{
		ID:       id,
		Row:      rowNum,
		Reporter: cell(colReporter),
		Category: cell(colCategory),
		Title:    cell(colTitle),
		Detail:   cell(colDetail),
		Location: cell(colLocation),
		Assignee: cell(colAssignee),
	}

	if rec.Source, err = domain.ParseSource(cell(colSource)); err != nil {
		warn("source", cell(colSource), err)
		rec.Source = domain.SourceDashboard
	}
	if rec.Priority, err = domain.ParsePriority(cell(colPriority)); err != nil {
		warn("priority", cell(colPriority), err)
		rec.Priority = domain.PriorityNormal
	}
	if v := cell(colStatus); v == "" {
		rec.Status = domain.StatusPending
	} else if rec.Status, err = domain.ParseStatus(v); err != nil {
		warn("status", v, err)
		rec.Status = domain.StatusPending
	}

	if v := cell(colChatID); v != "" {
		if rec.ChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			warn("chat_id", v, err)
			rec.ChatID = 0
		}
	}

	if rec.CreatedAt, err = s.tf.Parse(cell(colCreatedAt)); err != nil {
		warn("created_at", cell(colCreatedAt), err)
	}
	if rec.UpdatedAt, err = s.tf.Parse(cell(colUpdatedAt)); err != nil {
		warn("updated_at", cell(colUpdatedAt), err)
	}
	if rec.ResolvedAt, err = s.tf.ParsePtr(cell(colResolvedAt)); err != nil {
		warn("resolved_at", cell(colResolvedAt), err)
	}

	comments, recovered := domain.DecodeComments(cell(colComments))
	if recovered {
		s.logger.WarnContext(ctx, "comments cell is not a JSON list, kept as legacy comment",
			slog.Int("row", rowNum),
		)
	}
	rec.Comments = comments

	return rec, nil
}

// parseID reads a record ID cell. Formatted numbers may carry thousands
// separators or a trailing ".0".
func parseID(v interface{}) (int, error) {
	s := strings.TrimSpace(cellString(v))
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return 0, errSkipRow
	}
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errSkipRow, s)
	}
	return id, nil
}

// cellString renders a cell value as the API returns it.
func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(t)
	}
}

func isBlankRow(row []interface{}) bool {
	for _, v := range row {
		if strings.TrimSpace(cellString(v)) != "" {
			return false
		}
	}
	return true
}
