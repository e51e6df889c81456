package domain

import (
	"sort"
	"strings"
)

// List paging limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Filter selects and pages records for listing. Zero-valued fields match
// everything.
type Filter struct {
	Status   Status
	Priority Priority
	Category string
	Source   Source
	ChatID   int64
	Search   string
	Limit    int
	Offset   int
}

// Match reports whether r passes every set criterion. Search is a
// case-insensitive substring match over the free-text columns.
func (f Filter) Match(r *Record) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Priority != "" && r.Priority != f.Priority {
		return false
	}
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(f.Category), r.Category) {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	if f.ChatID != 0 && r.ChatID != f.ChatID {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		for _, field := range []string{r.Title, r.Detail, r.Location, r.Reporter, r.Assignee} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	}
	return true
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	}
	return f.Limit
}

// Apply returns one page of matching records, newest (highest ID) first,
// together with the number of records that matched before paging.
func (f Filter) Apply(records []*Record) ([]*Record, int) {
	matched := make([]*Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []*Record{}, total
	}
	end := offset + f.limit()
	if end > total {
		end = total
	}
	return matched[offset:end], total
}
