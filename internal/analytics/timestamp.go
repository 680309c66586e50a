package analytics

import (
	"strings"
	"time"
)

// parseAttempt is one step of the normalization chain
type parseAttempt func(s string) (time.Time, bool)

// offsetLayouts are ISO 8601 date-time layouts carrying an explicit UTC offset,
// in extended (+05:00), basic (+0500) and hour-only (+05) form
var offsetLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02T15:04Z0700",
	"2006-01-02 15:04Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04Z07",
	"2006-01-02 15:04Z07",
}

// naiveLayouts are ISO 8601 date-time layouts without an offset, read as UTC
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// normalizeChain is tried in order, first success wins
var normalizeChain = []parseAttempt{
	parseZulu,
	parseISO,
	parseSimple,
	parseDateOnly,
}

// Normalize converts a heterogeneous timestamp string to a UTC point in time.
// It returns false when no parse attempt succeeds, including for empty input.
func Normalize(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, attempt := range normalizeChain {
		if t, ok := attempt(s); ok {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatUTC renders a normalized timestamp the way the stores persist it
func FormatUTC(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseZulu handles a trailing UTC designator by rewriting it to +00:00
func parseZulu(s string) (time.Time, bool) {
	if !strings.HasSuffix(s, "Z") && !strings.HasSuffix(s, "z") {
		return time.Time{}, false
	}
	return parseLayouts(s[:len(s)-1]+"+00:00", offsetLayouts, nil)
}

// parseISO reads an ISO 8601 date-time, honoring an explicit offset when present
func parseISO(s string) (time.Time, bool) {
	if t, ok := parseLayouts(s, offsetLayouts, nil); ok {
		return t, true
	}
	return parseLayouts(s, naiveLayouts, time.UTC)
}

// parseSimple reads the fixed "YYYY-MM-DD HH:MM:SS" pattern as UTC
func parseSimple(s string) (time.Time, bool) {
	return parseLayouts(s, []string{"2006-01-02 15:04:05"}, time.UTC)
}

// parseDateOnly reads the first ten characters as a bare date at UTC midnight
func parseDateOnly(s string) (time.Time, bool) {
	if len(s) < 10 {
		return time.Time{}, false
	}
	return parseLayouts(s[:10], []string{time.DateOnly}, time.UTC)
}

// parseLayouts tries each layout in turn. A nil loc means the layout carries its own offset.
func parseLayouts(s string, layouts []string, loc *time.Location) (time.Time, bool) {
	for _, layout := range layouts {
		var (
			t   time.Time
			err error
		)
		if loc == nil {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, loc)
		}
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
