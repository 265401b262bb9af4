package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

// Filter represents event filtering criteria. Empty criteria match everything.
type Filter struct {
	// Date range filtering, inclusive
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Event name filtering (case-insensitive substring match)
	Names []string `json:"names,omitempty"`

	// Weekend-only filtering (Saturday/Sunday)
	WeekendsOnly bool `json:"weekends_only,omitempty"`

	// City filtering (case-insensitive exact match)
	Cities []string `json:"cities,omitempty"`

	// Platform filtering against the event source (case-insensitive)
	Platforms []string `json:"platforms,omitempty"`

	// Category filtering (case-insensitive substring match)
	Categories []string `json:"categories,omitempty"`

	// Status filtering (case-insensitive)
	Statuses []event.Status `json:"statuses,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria
func NewFilter() *Filter {
	return &Filter{}
}

// IsEmpty checks if the filter has any active criteria
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Names) == 0 &&
		!f.WeekendsOnly &&
		len(f.Cities) == 0 &&
		len(f.Platforms) == 0 &&
		len(f.Categories) == 0 &&
		len(f.Statuses) == 0
}

// Matches checks if an event matches all active filter criteria.
// Date criteria reject events whose date cannot be parsed; now is the
// reference for dates without a year.
func (f *Filter) Matches(evt *event.Event, now time.Time) bool {
	if evt == nil {
		return false
	}
	if f.IsEmpty() {
		return true
	}

	if f.DateFrom != nil || f.DateTo != nil || f.WeekendsOnly {
		eventDate := event.ParseDateAt(evt.Date, now)
		if eventDate.IsZero() {
			return false
		}
		if f.DateFrom != nil && eventDate.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && eventDate.After(*f.DateTo) {
			return false
		}
		if f.WeekendsOnly {
			weekday := eventDate.Weekday()
			if weekday != time.Saturday && weekday != time.Sunday {
				return false
			}
		}
	}

	if len(f.Names) > 0 && !containsAny(evt.Name, f.Names) {
		return false
	}
	if len(f.Categories) > 0 && !containsAny(evt.Category, f.Categories) {
		return false
	}
	if len(f.Cities) > 0 && !equalsAny(evt.City, f.Cities) {
		return false
	}
	if len(f.Platforms) > 0 && !equalsAny(evt.Source, f.Platforms) {
		return false
	}

	if len(f.Statuses) > 0 {
		matched := false
		for _, status := range f.Statuses {
			if strings.EqualFold(string(evt.Status), string(status)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the events matching every criterion, keeping their order.
// An empty filter returns the original list unchanged.
func (f *Filter) Apply(events []*event.Event, now time.Time) []*event.Event {
	if f.IsEmpty() {
		return events
	}

	filtered := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if f.Matches(evt, now) {
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Jan 2, 2026 | To: Jan 15, 2026 | Cities: Pune | Weekends only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if len(f.Names) > 0 {
		parts = append(parts, fmt.Sprintf("Names: %s", strings.Join(f.Names, ", ")))
	}
	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}
	if len(f.Cities) > 0 {
		parts = append(parts, fmt.Sprintf("Cities: %s", strings.Join(f.Cities, ", ")))
	}
	if len(f.Platforms) > 0 {
		parts = append(parts, fmt.Sprintf("Platforms: %s", strings.Join(f.Platforms, ", ")))
	}
	if len(f.Categories) > 0 {
		parts = append(parts, fmt.Sprintf("Categories: %s", strings.Join(f.Categories, ", ")))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		parts = append(parts, fmt.Sprintf("Statuses: %s", strings.Join(statuses, ", ")))
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter
func (f *Filter) Clone() *Filter {
	clone := &Filter{WeekendsOnly: f.WeekendsOnly}

	if f.DateFrom != nil {
		df := *f.DateFrom
		clone.DateFrom = &df
	}
	if f.DateTo != nil {
		dt := *f.DateTo
		clone.DateTo = &dt
	}

	clone.Names = append([]string(nil), f.Names...)
	clone.Cities = append([]string(nil), f.Cities...)
	clone.Platforms = append([]string(nil), f.Platforms...)
	clone.Categories = append([]string(nil), f.Categories...)
	clone.Statuses = append([]event.Status(nil), f.Statuses...)
	return clone
}

func containsAny(value string, needles []string) bool {
	lower := strings.ToLower(value)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(strings.TrimSpace(n))) {
			return true
		}
	}
	return false
}

func equalsAny(value string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(value, strings.TrimSpace(c)) {
			return true
		}
	}
	return false
}
