package event

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"
)

// Status is the lifecycle state of a stored event
type Status string

const (
	StatusActive  Status = "Active"
	StatusUpdated Status = "Updated"
	StatusExpired Status = "Expired"
)

// Placeholders used by scrapers when a field cannot be extracted
const (
	UnknownName     = "Unknown Event"
	TBA             = "TBA"
	GeneralCategory = "General"
)

// idLength is the number of hex characters kept from the digest
const idLength = 12

// Event represents a single event listing discovered on a ticketing platform
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"` // free-form, as shown by the platform
	Venue       string    `json:"venue"`
	City        string    `json:"city"`
	Category    string    `json:"category"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"last_updated"`
}

// GenerateID creates a deterministic ID for an event from its key fields.
// Category, URL, source and status never contribute to the ID.
func GenerateID(name, date, venue, city string) string {
	sum := md5.Sum([]byte(name + "_" + date + "_" + venue + "_" + city))
	return hex.EncodeToString(sum[:])[:idLength]
}

// NewEvent creates a new Active Event with ID and LastUpdated populated
func NewEvent(name, date, venue, city, category, url, source string, now time.Time) *Event {
	return &Event{
		ID:          GenerateID(name, date, venue, city),
		Name:        name,
		Date:        date,
		Venue:       venue,
		City:        city,
		Category:    category,
		URL:         url,
		Source:      source,
		Status:      StatusActive,
		LastUpdated: now,
	}
}

// Key returns the ID derived from the event's current key fields
func (e *Event) Key() string {
	return GenerateID(e.Name, e.Date, e.Venue, e.City)
}

// Refresh recomputes the ID from the key fields
func (e *Event) Refresh() {
	e.ID = e.Key()
}

// Touch advances LastUpdated to t. Earlier timestamps are ignored so that
// LastUpdated never moves backwards.
func (e *Event) Touch(t time.Time) {
	if t.After(e.LastUpdated) {
		e.LastUpdated = t
	}
}

// String returns a short human-readable form of the event
func (e *Event) String() string {
	return fmt.Sprintf("Event(%s - %s - %s)", e.Name, e.City, e.Date)
}
