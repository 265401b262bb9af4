package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/pfrederiksen/event-discovery/internal/config"
	"github.com/pfrederiksen/event-discovery/internal/logger"
	"github.com/pfrederiksen/event-discovery/internal/storage/gist"
	"github.com/pfrederiksen/event-discovery/internal/storage/sheets"
	"github.com/pfrederiksen/event-discovery/internal/storage/sqlite"
	"github.com/pfrederiksen/event-discovery/internal/storage/xlsx"
)

// Open builds the backend named by cfg.Type. Unknown types fall back to the
// Excel workbook.
func Open(ctx context.Context, cfg config.Storage) (Backend, error) {
	switch cfg.Type {
	case config.StorageExcel, "":
		return openExcel(cfg)
	case config.StorageGoogleSheets:
		b, err := sheets.New(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("opening google sheets storage: %w", err)
		}
		return b, nil
	case config.StorageJSON:
		return NewJSONFile(cfg.JSONDataDir)
	case config.StorageSQLite:
		b, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		return b, nil
	case config.StorageGist:
		b, err := gist.New(cfg.GistID, cfg.GitHubToken)
		if err != nil {
			return nil, fmt.Errorf("opening gist storage: %w", err)
		}
		return b, nil
	default:
		logger.Warn("Unknown storage type, using excel", logger.Fields{"storage_type": cfg.Type})
		return openExcel(cfg)
	}
}

func openExcel(cfg config.Storage) (Backend, error) {
	b, err := xlsx.New(cfg.ExcelFilePath)
	if err != nil {
		return nil, fmt.Errorf("opening excel storage: %w", err)
	}
	return b, nil
}

// Close releases backend resources when the backend holds any
func Close(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
