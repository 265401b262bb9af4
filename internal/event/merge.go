package event

import "time"

// Index returns the events keyed by ID. Later duplicates win.
func Index(events []*Event) map[string]*Event {
	index := make(map[string]*Event, len(events))
	for _, evt := range events {
		if evt == nil {
			continue
		}
		index[evt.ID] = evt
	}
	return index
}

// Deduplicate returns the events of newBatch whose ID is not present in
// existing, preserving newBatch order.
func Deduplicate(newBatch, existing []*Event) []*Event {
	existingIDs := make(map[string]struct{}, len(existing))
	for _, evt := range existing {
		if evt != nil {
			existingIDs[evt.ID] = struct{}{}
		}
	}

	fresh := make([]*Event, 0, len(newBatch))
	for _, evt := range newBatch {
		if evt == nil {
			continue
		}
		if _, exists := existingIDs[evt.ID]; !exists {
			fresh = append(fresh, evt)
		}
	}
	return fresh
}

// Merge merges newBatch into existing and returns the merged set.
//
// A batch event whose ID is already known marks the stored event Updated and
// advances its LastUpdated; every other field of the stored event is kept and
// the batch copy is discarded. Unknown events are inserted as provided.
// Stored events are mutated in place. The result lists existing events first,
// followed by inserted ones in batch order.
func Merge(newBatch, existing []*Event) []*Event {
	byID := make(map[string]*Event, len(existing)+len(newBatch))
	merged := make([]*Event, 0, len(existing)+len(newBatch))
	for _, evt := range existing {
		if evt == nil {
			continue
		}
		if _, dup := byID[evt.ID]; dup {
			continue
		}
		byID[evt.ID] = evt
		merged = append(merged, evt)
	}

	for _, evt := range newBatch {
		if evt == nil {
			continue
		}
		if stored, exists := byID[evt.ID]; exists {
			stored.Status = StatusUpdated
			stored.Touch(evt.LastUpdated)
			continue
		}
		byID[evt.ID] = evt
		merged = append(merged, evt)
	}

	return merged
}

// SweepExpired marks every Active event whose date is earlier than now plus
// daysOffset days as Expired and returns how many were transitioned. Events
// in any other status are left untouched.
func SweepExpired(events []*Event, daysOffset int, now time.Time) int {
	count := 0
	for _, evt := range events {
		if evt == nil || evt.Status != StatusActive {
			continue
		}
		if evt.IsExpired(daysOffset, now) {
			evt.Status = StatusExpired
			evt.Touch(now)
			count++
		}
	}
	return count
}

// PruneExpired removes Expired events last updated before cutoff and returns
// the remaining events with the number removed.
func PruneExpired(events []*Event, cutoff time.Time) ([]*Event, int) {
	kept := make([]*Event, 0, len(events))
	removed := 0
	for _, evt := range events {
		if evt == nil {
			continue
		}
		if evt.Status == StatusExpired && evt.LastUpdated.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, evt)
	}
	return kept, removed
}

// Remove returns events without the event identified by id, and whether it
// was present.
func Remove(events []*Event, id string) ([]*Event, bool) {
	kept := make([]*Event, 0, len(events))
	found := false
	for _, evt := range events {
		if evt == nil {
			continue
		}
		if evt.ID == id {
			found = true
			continue
		}
		kept = append(kept, evt)
	}
	return kept, found
}

// Upsert replaces the event with the same ID or appends evt when absent.
func Upsert(events []*Event, evt *Event) []*Event {
	for i, existing := range events {
		if existing != nil && existing.ID == evt.ID {
			out := append([]*Event(nil), events...)
			out[i] = evt
			return out
		}
	}
	return append(append([]*Event(nil), events...), evt)
}
