package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

const (
	prodID = "-//Event Discovery//event-discovery//EN"
	// timedDuration is the length given to events with a start time
	timedDuration = 2 * time.Hour
	// maxLineOctets is the RFC 5545 content line limit before folding
	maxLineOctets = 75
)

// GenerateICS generates an iCalendar document holding one VEVENT per event
// that is not expired and has a parseable date. It returns the document and
// the number of events written. An empty name leaves out X-WR-CALNAME.
func GenerateICS(events []*event.Event, name string, now time.Time) (string, int) {
	var ics strings.Builder
	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:"+prodID)
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	if name != "" {
		writeLine(&ics, "X-WR-CALNAME:"+escapeICS(name))
	}

	count := 0
	for _, evt := range events {
		if evt == nil || evt.Status == event.StatusExpired {
			continue
		}
		start := event.ParseDateAt(evt.Date, now)
		if start.IsZero() {
			continue
		}
		writeEvent(&ics, evt, start, now)
		count++
	}

	writeLine(&ics, "END:VCALENDAR")
	return ics.String(), count
}

// WriteICS writes the document produced by GenerateICS to w
func WriteICS(w io.Writer, events []*event.Event, name string, now time.Time) (int, error) {
	doc, count := GenerateICS(events, name, now)
	if _, err := io.WriteString(w, doc); err != nil {
		return 0, fmt.Errorf("writing calendar: %w", err)
	}
	return count, nil
}

func writeEvent(ics *strings.Builder, evt *event.Event, start, now time.Time) {
	writeLine(ics, "BEGIN:VEVENT")
	writeLine(ics, fmt.Sprintf("UID:%s@event-discovery", evt.ID))
	writeLine(ics, "DTSTAMP:"+formatICSTime(now))

	// Dates without a time of day become all-day events
	if start.Hour() == 0 && start.Minute() == 0 && start.Second() == 0 {
		writeLine(ics, "DTSTART;VALUE=DATE:"+start.Format("20060102"))
		writeLine(ics, "DTEND;VALUE=DATE:"+start.AddDate(0, 0, 1).Format("20060102"))
	} else {
		writeLine(ics, "DTSTART:"+formatICSTime(start))
		writeLine(ics, "DTEND:"+formatICSTime(start.Add(timedDuration)))
	}

	writeLine(ics, "SUMMARY:"+escapeICS(evt.Name))

	description := fmt.Sprintf("%s event on %s\nDate: %s", evt.Category, evt.Source, evt.Date)
	if evt.URL != "" {
		description += "\nTickets: " + evt.URL
	}
	writeLine(ics, "DESCRIPTION:"+escapeICS(description))

	location := evt.City
	if evt.Venue != "" && evt.Venue != event.TBA {
		location = evt.Venue + ", " + evt.City
	}
	writeLine(ics, "LOCATION:"+escapeICS(location))

	if evt.Category != "" {
		writeLine(ics, "CATEGORIES:"+escapeICS(evt.Category))
	}
	if evt.URL != "" {
		writeLine(ics, "URL:"+evt.URL)
	}
	writeLine(ics, "LAST-MODIFIED:"+formatICSTime(evt.LastUpdated))
	writeLine(ics, "STATUS:CONFIRMED")
	writeLine(ics, "TRANSP:OPAQUE")
	writeLine(ics, "END:VEVENT")
}

// writeLine writes a content line, folding it at maxLineOctets without
// splitting UTF-8 sequences
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// Continuation lines carry a leading space
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
