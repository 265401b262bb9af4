package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate     SortOrder = "date"
	SortByName     SortOrder = "name"
	SortByCity     SortOrder = "city"
	SortByPlatform SortOrder = "platform"
)

func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case SortByDate, SortByName, SortByCity, SortByPlatform:
		return order, nil
	default:
		return "", fmt.Errorf("invalid sort order: %s (must be date, name, city or platform)", s)
	}
}

// sortEvents sorts a slice of events based on the specified sort order
func sortEvents(events []*event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j])
		})
	case SortByName:
		sort.SliceStable(events, func(i, j int) bool {
			if !strings.EqualFold(events[i].Name, events[j].Name) {
				return strings.ToLower(events[i].Name) < strings.ToLower(events[j].Name)
			}
			// If names are equal, sort by date
			return compareByDate(events[i], events[j])
		})
	case SortByCity, SortByPlatform:
		key := func(e *event.Event) string { return e.City }
		if sortOrder == SortByPlatform {
			key = func(e *event.Event) string { return e.Source }
		}
		sort.SliceStable(events, func(i, j int) bool {
			if key(events[i]) != key(events[j]) {
				return key(events[i]) < key(events[j])
			}
			return compareByDate(events[i], events[j])
		})
	}
}

// compareByDate compares two events by their date
// Returns true if event i should come before event j
func compareByDate(i, j *event.Event) bool {
	dateI := event.ParseDate(i.Date)
	dateJ := event.ParseDate(j.Date)

	// If both dates are valid, compare them
	if !dateI.IsZero() && !dateJ.IsZero() {
		return dateI.Before(dateJ)
	}

	// If only one date is valid, put the valid one first
	if !dateI.IsZero() {
		return true
	}
	if !dateJ.IsZero() {
		return false
	}

	// If neither has a valid date, sort by name
	return strings.ToLower(i.Name) < strings.ToLower(j.Name)
}
