package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// LegacyCommentAuthor marks a comment recovered from a cell that did not
// hold a valid JSON comment list.
const LegacyCommentAuthor = "legacy"

// Comment is a single note attached to a record. The whole list of a
// record's comments is stored as a JSON array inside one sheet cell.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// commentID derives a stable ID for comments written without one, so that
// they can be addressed across reads.
func commentID(author, text string, at time.Time) uuid.UUID {
	key := fmt.Sprintf("%s\x00%s\x00%d", author, text, at.UnixNano())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key))
}

// EncodeComments serializes comments into the cell format. An empty list is
// stored as an empty cell.
func EncodeComments(comments []Comment) (string, error) {
	if len(comments) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(comments); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	cell := strings.TrimSuffix(buf.String(), "\n")
	// The cell limit counts characters, not bytes.
	if n := utf8.RuneCountInString(cell); n > MaxCellLength {
		return "", fmt.Errorf("%w: %d characters", ErrCommentsTooLarge, n)
	}
	return cell, nil
}

// DecodeComments parses a comment cell. A cell that is not a JSON comment
// list is kept as a single legacy comment holding the raw text; recovered
// reports when that happened.
func DecodeComments(cell string) (comments []Comment, recovered bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, false
	}

	if err := json.Unmarshal([]byte(cell), &comments); err != nil {
		return []Comment{{
			ID:     commentID(LegacyCommentAuthor, cell, time.Time{}),
			Author: LegacyCommentAuthor,
			Text:   cell,
		}}, true
	}

	for i := range comments {
		if comments[i].ID == uuid.Nil {
			comments[i].ID = commentID(comments[i].Author, comments[i].Text, comments[i].CreatedAt)
		}
	}
	return comments, false
}
