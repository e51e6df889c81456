package sheets

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// fakeGrid is an in-memory ValuesAPI over a single sheet. Cells hold the
// values that were written, which the fake returns as formatted strings
// the way the real API does.
type fakeGrid struct {
	mu    sync.Mutex
	sheet string
	rows  [][]interface{}

	calls   []string
	failOn  map[string]error
	updates []RangeValues

	// failAfter errors are returned after the operation was applied, the
	// way a timed out request that still reached the sheet looks.
	failAfter map[string]error
}

func newFakeGrid(sheet string, rows ...[]interface{}) *fakeGrid {
	return &fakeGrid{sheet: sheet, rows: rows, failOn: map[string]error{}, failAfter: map[string]error{}}
}

func (g *fakeGrid) record(op string) error {
	g.calls = append(g.calls, op)
	return g.failOn[op]
}

func (g *fakeGrid) check(r cellRange) error {
	if r.Sheet != g.sheet {
		return fmt.Errorf("unknown sheet %q", r.Sheet)
	}
	return nil
}

func (g *fakeGrid) Get(_ context.Context, rng string) ([][]interface{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("get"); err != nil {
		return nil, err
	}
	r, err := parseRange(rng)
	if err != nil {
		return nil, err
	}
	if err := g.check(r); err != nil {
		return nil, err
	}

	end := len(g.rows)
	if r.EndRow != 0 && r.EndRow < end {
		end = r.EndRow
	}
	var out [][]interface{}
	for i := r.StartRow - 1; i < end; i++ {
		src := g.rows[i]
		var row []interface{}
		for c := r.StartCol; c <= r.EndCol && c < len(src); c++ {
			row = append(row, cellString(src[c]))
		}
		for len(row) > 0 && row[len(row)-1] == "" {
			row = row[:len(row)-1]
		}
		out = append(out, row)
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (g *fakeGrid) Append(_ context.Context, rng string, rows [][]interface{}) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("append"); err != nil {
		return "", err
	}
	r, err := parseRange(rng)
	if err != nil {
		return "", err
	}
	if err := g.check(r); err != nil {
		return "", err
	}

	last := len(g.rows)
	for last > 0 && isBlankRow(g.rows[last-1]) {
		last--
	}
	g.rows = g.rows[:last]
	start := last + 1
	g.rows = append(g.rows, rows...)
	if err := g.failAfter["append"]; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s!A%d:%s%d", g.sheet, start, columnLetter(len(rows[0])-1), start+len(rows)-1), nil
}

func (g *fakeGrid) write(rng string, values [][]interface{}) error {
	r, err := parseRange(rng)
	if err != nil {
		return err
	}
	if err := g.check(r); err != nil {
		return err
	}
	for i, vals := range values {
		idx := r.StartRow - 1 + i
		for len(g.rows) <= idx {
			g.rows = append(g.rows, nil)
		}
		row := g.rows[idx]
		for len(row) < r.StartCol+len(vals) {
			row = append(row, "")
		}
		copy(row[r.StartCol:], vals)
		g.rows[idx] = row
	}
	return nil
}

func (g *fakeGrid) Update(_ context.Context, rng string, rows [][]interface{}) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("update"); err != nil {
		return err
	}
	return g.write(rng, rows)
}

func (g *fakeGrid) BatchUpdate(_ context.Context, data []RangeValues) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("batch_update"); err != nil {
		return err
	}
	g.updates = append(g.updates, data...)
	for _, d := range data {
		if err := g.write(d.Range, d.Values); err != nil {
			return err
		}
	}
	return nil
}

func (g *fakeGrid) DeleteRow(_ context.Context, sheet string, row int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record("delete_row"); err != nil {
		return err
	}
	if sheet != g.sheet {
		return fmt.Errorf("unknown sheet %q", sheet)
	}
	if row < 1 || row > len(g.rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	g.rows = append(g.rows[:row-1], g.rows[row:]...)
	return g.failAfter["delete_row"]
}

// cellAt returns the formatted value of a 1-based row and zero-based column.
func (g *fakeGrid) cellAt(row, col int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row-1 >= len(g.rows) || col >= len(g.rows[row-1]) {
		return ""
	}
	return cellString(g.rows[row-1][col])
}

func headerCells() []interface{} {
	h := Header()
	out := make([]interface{}, len(h))
	for i, v := range h {
		out[i] = v
	}
	return out
}

// sheetRow builds a data row with the given ID and title; other cells use
// plausible sheet values.
func sheetRow(id int, title string) []interface{} {
	return []interface{}{
		strconv.Itoa(id), "09/04/2025 17:00:00", "Somchai", "dashboard", "",
		"Electrical", title, "", "Room 4", "normal", "pending", "",
		"09/04/2025 17:00:00", "", "",
	}
}
