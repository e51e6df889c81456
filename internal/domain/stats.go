package domain

import (
	"math"
	"strings"
	"time"
)

// UncategorizedLabel is the category bucket for records with no category.
const UncategorizedLabel = "uncategorized"

// Stats is the dashboard summary of the whole sheet.
type Stats struct {
	Total              int              `json:"total"`
	Open               int              `json:"open"`
	Resolved           int              `json:"resolved"`
	Cancelled          int              `json:"cancelled"`
	ByStatus           map[Status]int   `json:"by_status"`
	ByPriority         map[Priority]int `json:"by_priority"`
	ByCategory         map[string]int   `json:"by_category"`
	CreatedToday       int              `json:"created_today"`
	CreatedThisWeek    int              `json:"created_this_week"`
	CreatedThisMonth   int              `json:"created_this_month"`
	ResolutionRate     float64          `json:"resolution_rate"`
	AvgResolutionHours float64          `json:"avg_resolution_hours"`
	OldestOpen         *OldestOpen      `json:"oldest_open,omitempty"`
}

// OldestOpen identifies the open record that has waited longest.
type OldestOpen struct {
	ID       int     `json:"id"`
	Title    string  `json:"title"`
	AgeHours float64 `json:"age_hours"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ComputeStats summarizes records as of now. Calendar buckets (today, this
// week starting Monday, this month) are evaluated in loc.
func ComputeStats(records []*Record, now time.Time, loc *time.Location) *Stats {
	if loc == nil {
		loc = time.UTC
	}

	stats := &Stats{
		ByStatus:   make(map[Status]int, 4),
		ByPriority: make(map[Priority]int, 4),
		ByCategory: make(map[string]int),
	}
	for _, s := range AllStatuses() {
		stats.ByStatus[s] = 0
	}
	for _, p := range AllPriorities() {
		stats.ByPriority[p] = 0
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)

	var resolutionTotal time.Duration
	var resolutionCount int
	var oldest *Record

	for _, r := range records {
		stats.Total++
		stats.ByStatus[r.Status]++
		stats.ByPriority[r.Priority]++

		category := strings.TrimSpace(r.Category)
		if category == "" {
			category = UncategorizedLabel
		}
		stats.ByCategory[category]++

		switch {
		case r.Status.IsOpen():
			stats.Open++
			if !r.CreatedAt.IsZero() && (oldest == nil || r.CreatedAt.Before(oldest.CreatedAt)) {
				oldest = r
			}
		case r.Status == StatusDone:
			stats.Resolved++
			if r.ResolvedAt != nil && !r.CreatedAt.IsZero() && !r.ResolvedAt.Before(r.CreatedAt) {
				resolutionTotal += r.ResolvedAt.Sub(r.CreatedAt)
				resolutionCount++
			}
		case r.Status == StatusCancelled:
			stats.Cancelled++
		}

		if r.CreatedAt.IsZero() {
			continue
		}
		if !r.CreatedAt.Before(today) {
			stats.CreatedToday++
		}
		if !r.CreatedAt.Before(weekStart) {
			stats.CreatedThisWeek++
		}
		if !r.CreatedAt.Before(monthStart) {
			stats.CreatedThisMonth++
		}
	}

	if stats.Total > 0 {
		stats.ResolutionRate = round1(float64(stats.Resolved) / float64(stats.Total) * 100)
	}
	if resolutionCount > 0 {
		stats.AvgResolutionHours = round1((resolutionTotal / time.Duration(resolutionCount)).Hours())
	}
	if oldest != nil {
		stats.OldestOpen = &OldestOpen{
			ID:       oldest.ID,
			Title:    oldest.Title,
			AgeHours: round1(now.Sub(oldest.CreatedAt).Hours()),
		}
	}
	return stats
}
