package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// CycleSummary holds the counts of one reconciliation cycle
type CycleSummary struct {
	Scraped int  `json:"scraped"`
	New     int  `json:"new"`
	Updated int  `json:"updated"`
	Expired int  `json:"expired"`
	Saved   bool `json:"saved"`
}

// OutputResult contains data to be output
type OutputResult struct {
	CheckedAt  time.Time      `json:"checked_at"`
	City       string         `json:"city,omitempty"`
	Platforms  []string       `json:"platforms,omitempty"`
	Summary    *CycleSummary  `json:"summary,omitempty"`
	NewEvents  []*event.Event `json:"new_events"`
	EventCount int            `json:"event_count"`
	ShowAll    bool           `json:"show_all,omitempty"`
}

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if s := result.Summary; s != nil {
		fmt.Fprintf(w, "%s (%s): scraped %d events, %d new, %d updated, %d expired\n",
			result.City, strings.Join(result.Platforms, ", "), s.Scraped, s.New, s.Updated, s.Expired)
		if s.Scraped > 0 && !s.Saved {
			fmt.Fprintln(w, "Events were NOT saved.")
		}
	}

	// Determine labels based on ShowAll mode
	eventLabel := "new"
	if result.ShowAll {
		eventLabel = "events"
	}

	if result.EventCount == 0 {
		if result.ShowAll {
			fmt.Fprintln(w, "No events found.")
		} else {
			fmt.Fprintln(w, "No new events found.")
		}
		return nil
	}

	if !result.ShowAll {
		for _, evt := range result.NewEvents {
			fmt.Fprintf(w, "NEW (%s): %s\n", evt.Source, describe(evt))
			if verbose {
				writeDetails(w, evt, "     ")
			}
		}
		fmt.Fprintf(w, "\nTotal: %d %s\n", result.EventCount, eventLabel)
		return nil
	}

	// Listings are grouped by platform, keeping the sorted order within each
	byPlatform := make(map[string][]*event.Event)
	for _, evt := range result.NewEvents {
		byPlatform[evt.Source] = append(byPlatform[evt.Source], evt)
	}
	platforms := make([]string, 0, len(byPlatform))
	for p := range byPlatform {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	for _, p := range platforms {
		events := byPlatform[p]
		fmt.Fprintf(w, "\n%s (%d %s):\n", p, len(events), eventLabel)
		for _, evt := range events {
			fmt.Fprintf(w, "  [%s] %s\n", evt.Status, describe(evt))
			if verbose {
				writeDetails(w, evt, "       ")
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d %s across %d platforms\n", result.EventCount, eventLabel, len(byPlatform))
	return nil
}

// describe renders the name, date and venue of an event on one line
func describe(evt *event.Event) string {
	return fmt.Sprintf("%s - %s @ %s", evt.Name, evt.Date, evt.Venue)
}

func writeDetails(w io.Writer, evt *event.Event, indent string) {
	fmt.Fprintf(w, "%sID: %s\n", indent, evt.ID)
	fmt.Fprintf(w, "%sCity: %s\n", indent, evt.City)
	if evt.Category != "" {
		fmt.Fprintf(w, "%sCategory: %s\n", indent, evt.Category)
	}
	if evt.URL != "" {
		fmt.Fprintf(w, "%sURL: %s\n", indent, evt.URL)
	}
	fmt.Fprintf(w, "%sLast Updated: %s\n", indent, evt.LastUpdated.Format(event.TimestampLayout))
}
