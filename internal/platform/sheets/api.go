package sheets

import "context"

// RangeValues is one block of cells to write in a batch.
type RangeValues struct {
	Range  string
	Values [][]interface{}
}

// ValuesAPI is the subset of the spreadsheet API the record store needs.
// Ranges are in A1 notation including the sheet name.
type ValuesAPI interface {
	// Get returns the formatted cell values of rng. Trailing empty rows
	// and cells are omitted.
	Get(ctx context.Context, rng string) ([][]interface{}, error)

	// Append inserts rows after the last row of the table in rng and
	// returns the range that was written.
	Append(ctx context.Context, rng string, rows [][]interface{}) (string, error)

	// Update overwrites the cells of rng.
	Update(ctx context.Context, rng string, rows [][]interface{}) error

	// BatchUpdate overwrites several ranges in one request.
	BatchUpdate(ctx context.Context, data []RangeValues) error

	// DeleteRow removes a 1-based row from the named sheet, shifting the
	// rows below it up.
	DeleteRow(ctx context.Context, sheet string, row int) error
}
