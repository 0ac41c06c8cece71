package intake

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the canonical calendar-date form used everywhere a date is
// rendered as a string (logs, persisted columns).
const DateLayout = "2006-01-02"

// sentinelFloor is the epoch-like value the store uses inside MAX-aggregation
// so that NULL date columns do not poison GREATEST. It must never escape to
// callers as a real date.
var sentinelFloor = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// NormalizeDateString parses a free-form, locale-tolerant date string into a
// canonical calendar date at midnight UTC. An empty input yields (nil, nil);
// it never defaults to the current time. An unparseable input yields nil plus
// a DateParseError, which callers treat as recoverable.
//
// Sources here are non-US authorities, so ambiguous numeric forms such as
// "02/03/2024" are read day-first.
func NormalizeDateString(input string) (*time.Time, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := dateparse.ParseAny(trimmed, dateparse.PreferMonthFirst(false))
	if err != nil {
		return nil, &DateParseError{Input: input, Err: err}
	}
	return TruncateToDate(parsed), nil
}

// NormalizeDate canonicalizes an already-parsed time value. The zero value
// maps to nil.
func NormalizeDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return TruncateToDate(t)
}

// TruncateToDate drops the time-of-day component, pinning the value to
// midnight UTC so date comparisons are unambiguous.
func TruncateToDate(t time.Time) *time.Time {
	u := t.UTC()
	d := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// StripSentinel maps aggregation-sentinel dates back to nil. Store
// implementations call this before returning a high-water date.
func StripSentinel(t *time.Time) *time.Time {
	if t == nil || !t.After(sentinelFloor) {
		return nil
	}
	return t
}

// FormatDate renders a nullable date in the canonical layout, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
