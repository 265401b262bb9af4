package event

import (
	"errors"
	"strings"
	"time"
)

// Column names of the tabular representation, in storage order
const (
	ColumnID          = "Event ID"
	ColumnName        = "Event Name"
	ColumnDate        = "Date"
	ColumnVenue       = "Venue"
	ColumnCity        = "City"
	ColumnCategory    = "Category"
	ColumnURL         = "URL"
	ColumnSource      = "Source"
	ColumnStatus      = "Status"
	ColumnLastUpdated = "Last Updated"
)

// Columns is the header row shared by every tabular backend
var Columns = []string{
	ColumnID, ColumnName, ColumnDate, ColumnVenue, ColumnCity,
	ColumnCategory, ColumnURL, ColumnSource, ColumnStatus, ColumnLastUpdated,
}

// TimestampLayout is the fixed format of the Last Updated column
const TimestampLayout = "2006-01-02 15:04:05"

// ErrBlankRow is returned by FromRow for rows without any value
var ErrBlankRow = errors.New("blank row")

// Row returns the event's cells in Columns order
func (e *Event) Row() []string {
	return []string{
		e.ID,
		e.Name,
		e.Date,
		e.Venue,
		e.City,
		e.Category,
		e.URL,
		e.Source,
		string(e.Status),
		e.LastUpdated.Format(TimestampLayout),
	}
}

// FromRow builds an event from a stored row, mapping cells by header name.
// The stored ID is kept as-is and only recomputed when blank. A blank status
// becomes Active, and an unparseable Last Updated falls back to loadedAt.
func FromRow(header, row []string, loadedAt time.Time) (*Event, error) {
	cells := make(map[string]string, len(header))
	blank := true
	for i, name := range header {
		if i >= len(row) {
			break
		}
		value := strings.TrimSpace(row[i])
		if value != "" {
			blank = false
		}
		cells[strings.TrimSpace(name)] = value
	}
	if blank {
		return nil, ErrBlankRow
	}

	evt := &Event{
		ID:       cells[ColumnID],
		Name:     cells[ColumnName],
		Date:     cells[ColumnDate],
		Venue:    cells[ColumnVenue],
		City:     cells[ColumnCity],
		Category: cells[ColumnCategory],
		URL:      cells[ColumnURL],
		Source:   cells[ColumnSource],
		Status:   Status(cells[ColumnStatus]),
	}
	if evt.ID == "" {
		evt.Refresh()
	}
	if evt.Status == "" {
		evt.Status = StatusActive
	}

	evt.LastUpdated = loadedAt
	if ts := cells[ColumnLastUpdated]; ts != "" {
		if t, err := time.ParseInLocation(TimestampLayout, ts, loadedAt.Location()); err == nil {
			evt.LastUpdated = t
		}
	}

	return evt, nil
}

// FromRows decodes a table whose first row is the header. Blank rows are
// skipped; the number of skipped rows is returned alongside the events.
func FromRows(rows [][]string, loadedAt time.Time) ([]*Event, int) {
	if len(rows) < 2 {
		return []*Event{}, 0
	}
	header := rows[0]
	events := make([]*Event, 0, len(rows)-1)
	skipped := 0
	for _, row := range rows[1:] {
		evt, err := FromRow(header, row, loadedAt)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, evt)
	}
	return events, skipped
}

// Rows encodes events as a table with the Columns header first
func Rows(events []*Event) [][]string {
	rows := make([][]string, 0, len(events)+1)
	rows = append(rows, append([]string(nil), Columns...))
	for _, evt := range events {
		if evt == nil {
			continue
		}
		rows = append(rows, evt.Row())
	}
	return rows
}
