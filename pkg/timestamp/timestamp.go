// Package timestamp provides the ISO-8601 timestamp handling used for stream events.
//
// Stream events carry their timestamp as a string with millisecond precision in
// UTC, e.g. "2023-01-15T12:30:45.123Z". When an event id starts with a date token
// ("<date>/<counter>") that date becomes the event time; otherwise the time the
// event was parsed is used.
//
// Usage Examples:
//
//	// Current time
//	now := timestamp.Now()
//
//	// Timestamp for an event id
//	ts := timestamp.ForEventID("2023-01-15T12:30:45.123Z/3", time.Now)
//
//	// Parse a free-form date token
//	t, ok := timestamp.ParseDate("2023-01-15")
package timestamp

import (
	"strings"
	"time"
)

// ISOLayout is the layout events are stamped with.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Accepted date layouts, most specific first.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Now returns the current time formatted with ISOLayout.
func Now() string {
	return Format(time.Now())
}

// Format converts a time to ISOLayout in UTC.
// Returns empty string for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(ISOLayout)
}

// ParseDate parses a date token in any of the accepted layouts.
// Layouts without a zone are interpreted as UTC.
// Purely numeric tokens are not treated as dates.
func ParseDate(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if token == "" || isNumeric(token) {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// ForEventID returns the timestamp for an event with the given id.
// The portion of id before the first "/" is tried as a date; when it does not
// parse, now() is used instead.
func ForEventID(id string, now func() time.Time) string {
	if now == nil {
		now = time.Now
	}
	if id != "" {
		token, _, _ := strings.Cut(id, "/")
		if t, ok := ParseDate(token); ok {
			return Format(t)
		}
	}
	return Format(now())
}

// Validate checks that a timestamp string uses ISOLayout.
func Validate(ts string) error {
	_, err := time.Parse(ISOLayout, ts)
	return err
}

func isNumeric(s string) bool {
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
