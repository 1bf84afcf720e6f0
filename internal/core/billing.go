package core

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order when parsing rental times. Layouts
// without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a client supplied rental timestamp.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// BillableHours rounds the elapsed time up to whole hours. A zero duration
// bills nothing; any positive duration bills at least one hour.
func BillableHours(start, end time.Time) int64 {
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	hours := int64(elapsed / time.Hour)
	if elapsed%time.Hour != 0 {
		hours++
	}
	return hours
}

// Charge is the amount owed for renting from start to end at hourlyRate.
func Charge(start, end time.Time, hourlyRate float64) float64 {
	return float64(BillableHours(start, end)) * hourlyRate
}
