package storage

import (
	"context"
	"errors"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

// ErrNotFound is returned when an event ID is not in storage
var ErrNotFound = errors.New("event not found")

// Backend persists the complete set of event records
type Backend interface {
	// Load returns every stored record, or an empty slice when nothing has
	// been stored yet.
	Load(ctx context.Context) ([]*event.Event, error)
	// Save replaces the stored set with events.
	Save(ctx context.Context, events []*event.Event) error
	// Name identifies the backend in logs and metrics.
	Name() string
}

// GetEventByID loads the stored set and returns the event with the given ID
func GetEventByID(ctx context.Context, b Backend, id string) (*event.Event, error) {
	events, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, evt := range events {
		if evt != nil && evt.ID == id {
			return evt, nil
		}
	}
	return nil, ErrNotFound
}
