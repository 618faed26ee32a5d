package utils

import (
	"strings"
	"time"
)

var dateFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ParseDate accepts the date formats the dashboard front end and CSV exports
// send, and truncates the result to its calendar day in UTC.
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	var lastErr error
	for _, format := range dateFormats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// LongDateLabel renders "March 5, 2024".
func LongDateLabel(t time.Time) string {
	return t.Format("January 2, 2006")
}
