package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultTimestampLayout is the day-first layout the sheet has always used.
const DefaultTimestampLayout = "02/01/2006 15:04:05"

// Spreadsheet serial dates count days from 1899-12-30.
const maxSerialDay = 2958465

// fallbackLayouts are tried after the configured layout when parsing cells
// that were typed or pasted by hand.
var fallbackLayouts = []string{
	"02/01/2006 15:04",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// TimeFormat renders and parses sheet timestamps in one fixed zone and
// layout.
type TimeFormat struct {
	Location *time.Location
	Layout   string
}

// NewTimeFormat loads timezone and returns a TimeFormat using layout, or
// DefaultTimestampLayout when layout is empty.
func NewTimeFormat(timezone, layout string) (TimeFormat, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return TimeFormat{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	if layout == "" {
		layout = DefaultTimestampLayout
	}
	return TimeFormat{Location: loc, Layout: layout}, nil
}

func (f TimeFormat) loc() *time.Location {
	if f.Location == nil {
		return time.UTC
	}
	return f.Location
}

func (f TimeFormat) layout() string {
	if f.Layout == "" {
		return DefaultTimestampLayout
	}
	return f.Layout
}

// Format renders t; the zero time renders as an empty string.
func (f TimeFormat) Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.loc()).Format(f.layout())
}

// FormatPtr is Format for optional timestamps.
func (f TimeFormat) FormatPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return f.Format(*t)
}

// Parse reads a timestamp cell. Empty cells yield the zero time.
func (f TimeFormat) Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	loc := f.loc()
	if t, err := time.ParseInLocation(f.layout(), s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial <= maxSerialDay {
		return fromSerial(serial, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidFormat, s)
}

// ParsePtr is Parse for optional timestamps; empty cells yield nil.
func (f TimeFormat) ParsePtr(s string) (*time.Time, error) {
	t, err := f.Parse(s)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func fromSerial(serial float64, loc *time.Location) time.Time {
	days := math.Floor(serial)
	seconds := math.Round((serial - days) * 86400)
	base := time.Date(1899, time.December, 30, 0, 0, 0, 0, loc)
	return base.AddDate(0, 0, int(days)).Add(time.Duration(seconds) * time.Second)
}
