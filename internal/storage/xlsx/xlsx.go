// Package xlsx stores event records in an Excel workbook.
//
// Records live on the "Events" sheet under a styled header row. Loading maps
// cells by header name so columns may be reordered by hand.
package xlsx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pfrederiksen/event-discovery/internal/event"
	"github.com/pfrederiksen/event-discovery/internal/logger"
)

// SheetName is the worksheet holding the records
const SheetName = "Events"

var columnWidths = []float64{15, 30, 15, 25, 15, 15, 50, 15, 12, 20}

// Workbook is an Excel file backend
type Workbook struct {
	path string
	now  func() time.Time
}

// New returns a Workbook at path. The parent directory is created, and a
// header-only workbook is written when the file does not exist.
func New(path string) (*Workbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating workbook directory: %w", err)
	}

	w := &Workbook{path: path, now: time.Now}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := w.write(nil); err != nil {
			return nil, fmt.Errorf("creating workbook: %w", err)
		}
		logger.Info("Created new Excel file", logger.Fields{"path": path})
	}
	return w, nil
}

func (w *Workbook) Name() string { return "excel" }

// Path returns the workbook location
func (w *Workbook) Path() string { return w.path }

// Load reads every record from the Events sheet, or from the active sheet
// when no Events sheet exists. A missing file is an empty set.
func (w *Workbook) Load(_ context.Context) ([]*event.Event, error) {
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		return []*event.Event{}, nil
	}

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close() // nolint:errcheck

	sheet := SheetName
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
	}

	events, skipped := event.FromRows(rows, w.now())
	if skipped > 0 {
		logger.Debug("Skipped blank rows", logger.Fields{"path": w.path, "count": skipped})
	}
	return events, nil
}

// Save rewrites the workbook with events
func (w *Workbook) Save(_ context.Context, events []*event.Event) error {
	return w.write(events)
}

func (w *Workbook) write(events []*event.Event) error {
	f := excelize.NewFile()
	defer f.Close() // nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, row := range event.Rows(events) {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if err := styleHeader(f); err != nil {
		return err
	}

	// SaveAs picks the format from the extension, so the temp name keeps it.
	tmp := filepath.Join(filepath.Dir(w.path), ".tmp-"+filepath.Base(w.path))
	if err := f.SaveAs(tmp); err != nil {
		os.Remove(tmp) // nolint:errcheck
		return fmt.Errorf("writing workbook: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp) // nolint:errcheck
		return fmt.Errorf("replacing workbook: %w", err)
	}
	return nil
}

func styleHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(event.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}
	return nil
}
