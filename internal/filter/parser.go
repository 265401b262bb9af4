package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

const monthPattern = `(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)`

var (
	sameMonthRange  = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	crossMonthRange = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*` + monthPattern + `\s+(\d{1,2})$`)
	wholeMonth      = regexp.MustCompile(`(?i)^` + monthPattern + `$`)
)

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats:
//   - "Mar 1-15" or "March 1-15" - Same month, different days
//   - "March 1 - April 15" - Different months
//   - "March" - Entire month
//
// A month earlier than now's month is taken to be in the next year. For
// cross-month ranges an end month before the start month is in the year
// after the start. Times are in now's location; the start is at 00:00:00
// and the end at 23:59:59.
func ParseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}
	loc := now.Location()

	if m := sameMonthRange.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		day1, err := parseDay(m[2])
		if err != nil {
			return nil, nil, err
		}
		day2, err := parseDay(m[3])
		if err != nil {
			return nil, nil, err
		}

		year := yearForMonth(month, now)
		from := time.Date(year, month, day1, 0, 0, 0, 0, loc)
		to := time.Date(year, month, day2, 23, 59, 59, 0, loc)
		if from.After(to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return &from, &to, nil
	}

	if m := crossMonthRange.FindStringSubmatch(input); m != nil {
		month1 := parseMonth(m[1])
		day1, err := parseDay(m[2])
		if err != nil {
			return nil, nil, err
		}
		month2 := parseMonth(m[3])
		day2, err := parseDay(m[4])
		if err != nil {
			return nil, nil, err
		}

		year1 := yearForMonth(month1, now)
		year2 := year1
		if month2 < month1 {
			year2++
		}

		from := time.Date(year1, month1, day1, 0, 0, 0, 0, loc)
		to := time.Date(year2, month2, day2, 23, 59, 59, 0, loc)
		if from.After(to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return &from, &to, nil
	}

	if m := wholeMonth.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		year := yearForMonth(month, now)
		from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		// Day 0 of the next month is the last day of this one
		to := time.Date(year, month+1, 0, 23, 59, 59, 0, loc)
		return &from, &to, nil
	}

	return nil, nil, fmt.Errorf("invalid date range format. Use 'Mar 1-15', 'March 1 - April 15', or 'March'")
}

// ParseStatuses parses a comma-separated list of statuses
func ParseStatuses(input string) ([]event.Status, error) {
	var statuses []event.Status
	for _, part := range SplitList(input) {
		switch {
		case strings.EqualFold(part, string(event.StatusActive)):
			statuses = append(statuses, event.StatusActive)
		case strings.EqualFold(part, string(event.StatusUpdated)):
			statuses = append(statuses, event.StatusUpdated)
		case strings.EqualFold(part, string(event.StatusExpired)):
			statuses = append(statuses, event.StatusExpired)
		default:
			return nil, fmt.Errorf("invalid status %q (must be Active, Updated or Expired)", part)
		}
	}
	return statuses, nil
}

// SplitList splits a comma-separated flag value, dropping blank entries
func SplitList(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDay(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day: %s", s)
	}
	return day, nil
}

// parseMonth converts a month name to time.Month
func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "sept" {
		return time.September
	}
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || name == full[:3] {
			return m
		}
	}
	return 0
}

// yearForMonth returns now's year, or the next one for a month already past
func yearForMonth(month time.Month, now time.Time) int {
	if month < now.Month() {
		return now.Year() + 1
	}
	return now.Year()
}
