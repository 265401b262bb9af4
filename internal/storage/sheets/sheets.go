// Package sheets stores event records in a Google Sheets spreadsheet.
//
// The records occupy the "Events" worksheet, or the first worksheet when none
// is named Events. Every save clears the worksheet and writes the header and
// all rows with the RAW input option.
package sheets

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/pfrederiksen/event-discovery/internal/event"
	"github.com/pfrederiksen/event-discovery/internal/logger"
)

// WorksheetName is the preferred worksheet for the records
const WorksheetName = "Events"

// Spreadsheet is a Google Sheets backend
type Spreadsheet struct {
	svc     *sheets.Service
	sheetID string
	now     func() time.Time
}

// New authenticates with a service-account credentials file. Extra client
// options are appended after the credentials.
func New(ctx context.Context, sheetID, credentialsFile string, opts ...option.ClientOption) (*Spreadsheet, error) {
	if sheetID == "" || credentialsFile == "" {
		return nil, fmt.Errorf("google sheets credentials file and sheet ID must be set")
	}

	opts = append([]option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	}, opts...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}
	return NewWithService(svc, sheetID), nil
}

// NewWithService wraps an existing client
func NewWithService(svc *sheets.Service, sheetID string) *Spreadsheet {
	return &Spreadsheet{svc: svc, sheetID: sheetID, now: time.Now}
}

func (s *Spreadsheet) Name() string { return "google_sheets" }

// worksheet returns the title of the worksheet holding the records
func (s *Spreadsheet) worksheet(ctx context.Context) (string, error) {
	doc, err := s.svc.Spreadsheets.Get(s.sheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("opening spreadsheet: %w", err)
	}

	first := ""
	for _, sh := range doc.Sheets {
		if sh.Properties == nil {
			continue
		}
		if sh.Properties.Title == WorksheetName {
			return WorksheetName, nil
		}
		if first == "" {
			first = sh.Properties.Title
		}
	}
	if first == "" {
		return "", fmt.Errorf("spreadsheet %s has no worksheets", s.sheetID)
	}
	return first, nil
}

// Load reads every record from the worksheet
func (s *Spreadsheet) Load(ctx context.Context) ([]*event.Event, error) {
	ws, err := s.worksheet(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.sheetID, ws).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading worksheet %s: %w", ws, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}

	events, skipped := event.FromRows(rows, s.now())
	if skipped > 0 {
		logger.Debug("Skipped blank rows", logger.Fields{"worksheet": ws, "count": skipped})
	}
	return events, nil
}

// Save clears the worksheet and writes the header followed by events
func (s *Spreadsheet) Save(ctx context.Context, events []*event.Event) error {
	ws, err := s.worksheet(ctx)
	if err != nil {
		return err
	}

	if _, err := s.svc.Spreadsheets.Values.Clear(s.sheetID, ws, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clearing worksheet %s: %w", ws, err)
	}

	rows := event.Rows(events)
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	_, err = s.svc.Spreadsheets.Values.Update(s.sheetID, ws+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("writing worksheet %s: %w", ws, err)
	}
	return nil
}
