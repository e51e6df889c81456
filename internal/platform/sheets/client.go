package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/phrazzld/sheetdesk/internal/config"
	"github.com/phrazzld/sheetdesk/internal/metrics"
	"github.com/phrazzld/sheetdesk/internal/redact"
	"github.com/phrazzld/sheetdesk/internal/store"
	"github.com/sethvargo/go-retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Value options used for every call. RAW input keeps timestamps and chat
// IDs as the exact strings written; formatted reads return what a person
// sees in the sheet.
const (
	valueInputOption  = "RAW"
	valueRenderOption = "FORMATTED_VALUE"
	insertDataOption  = "INSERT_ROWS"
)

// minRetryDelay keeps the exponential backoff from collapsing to zero.
const minRetryDelay = time.Millisecond

// ErrSheetNotFound is returned when the configured sheet title does not
// exist in the spreadsheet.
var ErrSheetNotFound = fmt.Errorf("%w: sheet", store.ErrNotFound)

// Client implements ValuesAPI with the Google Sheets v4 API.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
	maxRetries    uint64
	baseDelay     time.Duration
	timeout       time.Duration
	metrics       *metrics.Recorder
	logger        *slog.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ ValuesAPI = (*Client)(nil)

// NewClient creates a Client for cfg. Credentials come from
// cfg.CredentialsJSON, then cfg.CredentialsFile, then Application Default
// Credentials. Extra options are appended last so callers can override
// the endpoint or transport.
func NewClient(
	ctx context.Context,
	cfg config.SheetsConfig,
	rec *metrics.Recorder,
	logger *slog.Logger,
	opts ...option.ClientOption,
) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	clientOpts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %s", redact.Error(err))
	}

	baseDelay := cfg.RetryBaseDelay
	if baseDelay < minRetryDelay {
		baseDelay = minRetryDelay
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		maxRetries:    uint64(maxRetries),
		baseDelay:     baseDelay,
		timeout:       cfg.RequestTimeout,
		metrics:       rec,
		logger:        logger.With(slog.String("component", "sheets_client")),
		sheetIDs:      make(map[string]int64),
	}, nil
}

// Get implements ValuesAPI.Get.
func (c *Client) Get(ctx context.Context, rng string) ([][]interface{}, error) {
	var values [][]interface{}
	err := c.call(ctx, "values.get", isTransient, func(ctx context.Context) error {
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
			ValueRenderOption(valueRenderOption).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		values = resp.Values
		return nil
	})
	return values, err
}

// Append implements ValuesAPI.Append.
func (c *Client) Append(ctx context.Context, rng string, rows [][]interface{}) (string, error) {
	var updated string
	err := c.call(ctx, "values.append", isRejected, func(ctx context.Context) error {
		resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheets.ValueRange{Values: rows}).
			ValueInputOption(valueInputOption).
			InsertDataOption(insertDataOption).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if resp.Updates != nil {
			updated = resp.Updates.UpdatedRange
		}
		return nil
	})
	return updated, err
}

// Update implements ValuesAPI.Update.
func (c *Client) Update(ctx context.Context, rng string, rows [][]interface{}) error {
	return c.call(ctx, "values.update", isTransient, func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheets.ValueRange{Values: rows}).
			ValueInputOption(valueInputOption).
			Context(ctx).
			Do()
		return err
	})
}

// BatchUpdate implements ValuesAPI.BatchUpdate.
func (c *Client) BatchUpdate(ctx context.Context, data []RangeValues) error {
	req := &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInputOption,
		Data:             make([]*gsheets.ValueRange, 0, len(data)),
	}
	for _, d := range data {
		req.Data = append(req.Data, &gsheets.ValueRange{Range: d.Range, Values: d.Values})
	}

	return c.call(ctx, "values.batch_update", isTransient, func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
}

// DeleteRow implements ValuesAPI.DeleteRow.
func (c *Client) DeleteRow(ctx context.Context, sheet string, row int) error {
	if row <= headerRow {
		return fmt.Errorf("%w: refusing to delete row %d", store.ErrInvalidEntity, row)
	}
	sheetID, err := c.sheetID(ctx, sheet)
	if err != nil {
		return err
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// The first sheet has ID 0, which would otherwise be
					// dropped from the request body.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	return c.call(ctx, "spreadsheets.batch_update", isRejected, func(ctx context.Context) error {
		_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
}

// sheetID resolves a sheet title to its numeric ID. Results are cached for
// the life of the client.
func (c *Client) sheetID(ctx context.Context, sheet string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[sheet]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var props []*gsheets.SheetProperties
	err := c.call(ctx, "spreadsheets.get", isTransient, func(ctx context.Context) error {
		resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
			Fields(googleapi.Field("sheets.properties")).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		props = props[:0]
		for _, s := range resp.Sheets {
			if s.Properties != nil {
				props = append(props, s.Properties)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range props {
		c.sheetIDs[p.Title] = p.SheetId
	}
	id, ok = c.sheetIDs[sheet]
	if !ok {
		return 0, store.NewStoreError("sheet", "resolve", sheet, ErrSheetNotFound)
	}
	return id, nil
}

// call runs fn with a per-attempt timeout, retrying failures that retryable
// accepts with exponential backoff, and records one metric sample for the
// whole call.
//
// Appends and row deletions are not idempotent, so they pass isRejected:
// a timed out or dropped attempt may still have been applied.
func (c *Client) call(
	ctx context.Context,
	op string,
	retryable func(error) bool,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	attempt := 0

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && retryable(err) {
			c.logger.WarnContext(ctx, "transient sheets error, retrying",
				slog.String("operation", op),
				slog.Int("attempt", attempt),
				slog.String("error", redact.Error(err)),
			)
			return retry.RetryableError(err)
		}
		return err
	})

	c.metrics.ObserveSheetCall(op, outcome(err), time.Since(start))
	if err == nil {
		return nil
	}

	c.logger.ErrorContext(ctx, "sheets call failed",
		slog.String("operation", op),
		slog.Int("attempts", attempt),
		slog.String("error", redact.Error(err)),
	)
	return mapError(op, err)
}

// transientCodes are the HTTP statuses worth retrying.
var transientCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return transientCodes[gerr.Code]
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isRejected reports a quota rejection, which the API returns before
// applying anything.
func isRejected(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests
}

func outcome(err error) string {
	var gerr *googleapi.Error
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &gerr):
		if transientCodes[gerr.Code] {
			return "unavailable"
		}
		return "rejected"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// mapError converts an API failure into a store error. The upstream message
// is kept for logs; callers should only expose the sentinel.
func mapError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidEntity) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case transientCodes[gerr.Code]:
			return store.NewStoreError("sheet", op, "upstream unavailable", errors.Join(store.ErrUnavailable, err))
		case gerr.Code == http.StatusNotFound:
			return store.NewStoreError("sheet", op, "spreadsheet not found", errors.Join(store.ErrUnavailable, err))
		case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
			return store.NewStoreError("sheet", op, "access denied", errors.Join(store.ErrUnavailable, err))
		}
		return store.NewStoreError("sheet", op, "request rejected", err)
	}
	if isTransient(err) {
		return store.NewStoreError("sheet", op, "upstream unreachable", errors.Join(store.ErrUnavailable, err))
	}
	return store.NewStoreError("sheet", op, "request failed", err)
}
