// Package storage is the persistence port for event records.
//
// A Backend loads and saves the complete record set; callers replace the
// whole set on every save. Backends live in sub-packages (xlsx, sheets,
// sqlite, gist) except the JSON snapshot store, which lives here. Open picks
// one from configuration.
package storage
