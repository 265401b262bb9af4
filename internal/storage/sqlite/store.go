// Package sqlite provides a SQLite-backed event record store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

const schema = `CREATE TABLE IF NOT EXISTS events (
	id           TEXT PRIMARY KEY,
	position     INTEGER NOT NULL,
	name         TEXT NOT NULL,
	date         TEXT NOT NULL,
	venue        TEXT NOT NULL,
	city         TEXT NOT NULL,
	category     TEXT NOT NULL,
	url          TEXT NOT NULL,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	last_updated INTEGER NOT NULL
)`

// Store persists event records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and creates the events table.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Name() string { return "sqlite" }

// Load returns every record in save order.
func (s *Store) Load(ctx context.Context) ([]*event.Event, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, date, venue, city, category, url, source, status, last_updated
		 FROM events ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []*event.Event{}
	for rows.Next() {
		var (
			evt     event.Event
			status  string
			updated int64
		)
		if err := rows.Scan(&evt.ID, &evt.Name, &evt.Date, &evt.Venue, &evt.City,
			&evt.Category, &evt.URL, &evt.Source, &status, &updated); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Status = event.Status(status)
		if evt.Status == "" {
			evt.Status = event.StatusActive
		}
		evt.LastUpdated = fromMillis(updated)
		events = append(events, &evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Save replaces the table contents in one transaction. A later record with a
// repeated ID overwrites the earlier one.
func (s *Store) Save(ctx context.Context, events []*event.Event) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("clear events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (id, position, name, date, venue, city, category, url, source, status, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   date = excluded.date,
		   venue = excluded.venue,
		   city = excluded.city,
		   category = excluded.category,
		   url = excluded.url,
		   source = excluded.source,
		   status = excluded.status,
		   last_updated = excluded.last_updated`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, evt := range events {
		if evt == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, evt.ID, i, evt.Name, evt.Date, evt.Venue, evt.City,
			evt.Category, evt.URL, evt.Source, string(evt.Status), toMillis(evt.LastUpdated)); err != nil {
			return fmt.Errorf("insert event %s: %w", evt.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
