// Package event provides the event record type and the pure reconciliation functions
// used to merge freshly scraped records into a persisted set.
//
// Each record is assigned a deterministic MD5-based ID generated from its name, date,
// venue and city, enabling reliable tracking of the same listing across scrape cycles
// regardless of which platform reported it.
package event
