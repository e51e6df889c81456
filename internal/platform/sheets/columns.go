package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// Column indexes of the record sheet, in sheet order.
const (
	colID = iota
	colCreatedAt
	colReporter
	colSource
	colChatID
	colCategory
	colTitle
	colDetail
	colLocation
	colPriority
	colStatus
	colAssignee
	colUpdatedAt
	colResolvedAt
	colComments

	columnCount
)

// headerRow is the first row of the record sheet. Data starts on row 2.
const headerRow = 1

// Header returns the expected header cells.
func Header() []string {
	return []string{
		"ID",
		"Created At",
		"Reporter",
		"Source",
		"Chat ID",
		"Category",
		"Title",
		"Detail",
		"Location",
		"Priority",
		"Status",
		"Assignee",
		"Updated At",
		"Resolved At",
		"Comments",
	}
}

// columnLetter converts a zero-based column index to its A1 letters.
func columnLetter(idx int) string {
	var b []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}

// columnIndex converts A1 column letters to a zero-based index.
func columnIndex(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("empty column")
	}
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column %q", letters)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

// quoteSheet quotes a sheet title for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// a1 builds "'Sheet'!<from>:<to>".
func a1(sheet, from, to string) string {
	return quoteSheet(sheet) + "!" + from + ":" + to
}

// dataRange covers every data column from row 2 down.
func dataRange(sheet string) string {
	return a1(sheet, "A"+strconv.Itoa(headerRow+1), columnLetter(columnCount-1))
}

// idRange covers column A from row 2 down.
func idRange(sheet string) string {
	return a1(sheet, "A"+strconv.Itoa(headerRow+1), "A")
}

// headerRange covers the header cells.
func headerRange(sheet string) string {
	r := strconv.Itoa(headerRow)
	return a1(sheet, "A"+r, columnLetter(columnCount-1)+r)
}

// appendRange is the table range new rows are appended to.
func appendRange(sheet string) string {
	return a1(sheet, "A", columnLetter(columnCount-1))
}

// mutableRange covers columns B..O of one row; the ID column is never
// rewritten.
func mutableRange(sheet string, row int) string {
	r := strconv.Itoa(row)
	return a1(sheet, columnLetter(colCreatedAt)+r, columnLetter(columnCount-1)+r)
}

// cellRange is a parsed A1 range. Rows are 1-based; columns are zero-based.
// An EndRow of 0 means the range is unbounded downwards.
type cellRange struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// parseRange parses ranges of the forms the API returns and this package
// builds: "Sheet!A2:O5", "'My Sheet'!A2:A", "Sheet!A:O" and "Sheet!B7".
func parseRange(s string) (cellRange, error) {
	var out cellRange

	ref := s
	if i := strings.LastIndex(s, "!"); i >= 0 {
		out.Sheet = s[:i]
		ref = s[i+1:]
		if strings.HasPrefix(out.Sheet, "'") && strings.HasSuffix(out.Sheet, "'") && len(out.Sheet) >= 2 {
			out.Sheet = strings.ReplaceAll(out.Sheet[1:len(out.Sheet)-1], "''", "'")
		}
	}

	from, to, hasTo := strings.Cut(ref, ":")
	startCol, startRow, err := parseCell(from)
	if err != nil {
		return cellRange{}, fmt.Errorf("parse range %q: %w", s, err)
	}
	out.StartCol, out.StartRow = startCol, startRow
	if out.StartRow == 0 {
		out.StartRow = 1
	}

	if !hasTo {
		out.EndCol, out.EndRow = startCol, startRow
		return out, nil
	}
	endCol, endRow, err := parseCell(to)
	if err != nil {
		return cellRange{}, fmt.Errorf("parse range %q: %w", s, err)
	}
	out.EndCol, out.EndRow = endCol, endRow
	return out, nil
}

// parseCell splits "B12" into column 1 and row 12. A bare column yields
// row 0.
func parseCell(ref string) (col, row int, err error) {
	i := 0
	for i < len(ref) && (ref[i] < '0' || ref[i] > '9') {
		i++
	}
	col, err = columnIndex(ref[:i])
	if err != nil {
		return 0, 0, err
	}
	if i == len(ref) {
		return col, 0, nil
	}
	row, err = strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid row in %q", ref)
	}
	return col, row, nil
}
