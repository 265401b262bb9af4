package event

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Fixed layouts tried before the lenient parser. Layouts without a year
// take the year of the reference time.
var (
	datedLayouts = []string{
		"Jan 02 2006",
		"Jan 2 2006",
		"Jan 2, 2006",
		"2 Jan 2006",
		"02 Jan 2006",
		"Mon, 2 Jan 2006",
		"1.2.06",
		"01.02.06",
		"01/02/06",
	}
	yearlessLayouts = []string{
		"Jan 02",
		"Jan 2",
		"2 Jan",
		"Mon, 2 Jan",
	}
)

// ParseDate attempts to parse event date text into a time.Time.
// Returns time.Time{} (zero value) if parsing fails.
func ParseDate(dateText string) time.Time {
	return ParseDateAt(dateText, time.Now())
}

// ParseDateAt is ParseDate with an explicit reference time. The reference
// supplies the location for dates without a zone and the year for dates
// without one.
func ParseDateAt(dateText string, now time.Time) time.Time {
	dateText = strings.TrimSpace(dateText)
	// Venue scheduling text like "TBA" or "Coming soon" is never a date
	if !strings.ContainsAny(dateText, "0123456789") {
		return time.Time{}
	}

	loc := now.Location()
	for _, layout := range datedLayouts {
		if t, err := time.ParseInLocation(layout, dateText, loc); err == nil {
			return t
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.ParseInLocation(layout, dateText, loc); err == nil {
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		}
	}

	t, err := dateparse.ParseIn(dateText, loc)
	if err != nil {
		return time.Time{}
	}
	if t.Year() == 0 {
		// dateparse leaves a missing year at 0000
		t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	}
	return t
}

// IsExpired reports whether dateText is strictly earlier than now plus
// daysOffset days. Unparseable dates are never expired.
func IsExpired(dateText string, daysOffset int, now time.Time) bool {
	parsed := ParseDateAt(dateText, now)
	if parsed.IsZero() {
		return false
	}
	return parsed.Before(now.AddDate(0, 0, daysOffset))
}

// IsExpired checks if the event's date has passed the threshold.
// Returns false if the date cannot be parsed (safer default).
func (e *Event) IsExpired(daysOffset int, now time.Time) bool {
	return IsExpired(e.Date, daysOffset, now)
}

// IsUpcoming checks if an event is in the future (not past).
// Returns true if the date cannot be parsed (safer default).
func (e *Event) IsUpcoming(now time.Time) bool {
	parsed := ParseDateAt(e.Date, now)
	if parsed.IsZero() {
		return true
	}
	return parsed.After(now)
}
