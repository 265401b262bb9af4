package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

const snapshotFile = "events.json"

// Snapshot is the on-disk document of a JSONFile
type Snapshot struct {
	UpdatedAt string         `json:"updated_at"`
	Events    []*event.Event `json:"events"`
}

// JSONFile stores the record set as a JSON snapshot in a data directory
type JSONFile struct {
	dataDir string
	now     func() time.Time
}

// NewJSONFile creates a JSONFile rooted at dataDir, creating the directory
// when missing. A leading ~/ expands to the home directory.
func NewJSONFile(dataDir string) (*JSONFile, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &JSONFile{dataDir: dataDir, now: time.Now}, nil
}

func (s *JSONFile) Name() string { return "json" }

// Path returns the snapshot file location
func (s *JSONFile) Path() string {
	return filepath.Join(s.dataDir, snapshotFile)
}

// Load reads the snapshot. A missing file is an empty set.
func (s *JSONFile) Load(_ context.Context) ([]*event.Event, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return []*event.Event{}, nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	events := make([]*event.Event, 0, len(snapshot.Events))
	for _, evt := range snapshot.Events {
		if evt == nil {
			continue
		}
		if evt.ID == "" {
			evt.Refresh()
		}
		if evt.Status == "" {
			evt.Status = event.StatusActive
		}
		events = append(events, evt)
	}
	return events, nil
}

// Save writes the snapshot to a temporary file and renames it into place
func (s *JSONFile) Save(_ context.Context, events []*event.Event) error {
	snapshot := Snapshot{
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
		Events:    make([]*event.Event, 0, len(events)),
	}
	for _, evt := range events {
		if evt != nil {
			snapshot.Events = append(snapshot.Events, evt)
		}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dataDir, snapshotFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() // nolint:errcheck
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path()); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
