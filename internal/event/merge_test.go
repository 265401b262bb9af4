package event

import (
	"testing"
	"time"
)

func newTestEvent(name, date string, at time.Time) *Event {
	return NewEvent(name, date, "Test Venue", "Mumbai", "Music", "https://example.com", "BookMyShow", at)
}

func ids(events []*Event) map[string]int {
	counts := make(map[string]int, len(events))
	for _, evt := range events {
		counts[evt.ID]++
	}
	return counts
}

func TestDeduplicate(t *testing.T) {
	t0 := refNow
	evt1 := newTestEvent("Event 1", "2026-11-01", t0)
	evt2 := newTestEvent("Event 2", "2026-11-02", t0)
	evt3 := newTestEvent("Event 3", "2026-11-03", t0)

	t.Run("returns only unknown events in order", func(t *testing.T) {
		got := Deduplicate([]*Event{evt3, evt1, evt2}, []*Event{evt1})

		if len(got) != 2 {
			t.Fatalf("expected 2 new events, got %d", len(got))
		}
		if got[0].ID != evt3.ID || got[1].ID != evt2.ID {
			t.Errorf("expected order [evt3 evt2], got [%s %s]", got[0].Name, got[1].Name)
		}
	})

	t.Run("handles empty existing set", func(t *testing.T) {
		got := Deduplicate([]*Event{evt1, evt2}, nil)
		if len(got) != 2 {
			t.Errorf("expected all 2 events to be new, got %d", len(got))
		}
	})

	t.Run("never grows the batch", func(t *testing.T) {
		batch := []*Event{evt1, evt2, evt3, nil}
		got := Deduplicate(batch, []*Event{evt1, evt2, evt3})
		if len(got) != 0 {
			t.Errorf("expected 0 new events, got %d", len(got))
		}
		if len(Deduplicate(batch, nil)) > len(batch) {
			t.Error("Deduplicate() returned more events than the batch")
		}
	})

	t.Run("does not mutate inputs", func(t *testing.T) {
		existing := []*Event{newTestEvent("Event 1", "2026-11-01", t0)}
		Deduplicate([]*Event{evt1}, existing)
		if existing[0].Status != StatusActive {
			t.Errorf("Deduplicate() changed existing status to %q", existing[0].Status)
		}
	})
}

func TestMerge(t *testing.T) {
	t0 := refNow
	t1 := t0.Add(time.Hour)

	t.Run("marks known event as updated", func(t *testing.T) {
		stored := newTestEvent("Event A", "2026-01-01", t0)
		incoming := newTestEvent("Event A", "2026-01-01", t1)

		merged := Merge([]*Event{incoming}, []*Event{stored})

		if len(merged) != 1 {
			t.Fatalf("expected 1 merged event, got %d", len(merged))
		}
		if merged[0] != stored {
			t.Error("expected the stored record to be kept")
		}
		if merged[0].Status != StatusUpdated {
			t.Errorf("expected status %q, got %q", StatusUpdated, merged[0].Status)
		}
		if !merged[0].LastUpdated.Equal(t1) {
			t.Errorf("expected LastUpdated %v, got %v", t1, merged[0].LastUpdated)
		}
	})

	t.Run("keeps stored fields on update", func(t *testing.T) {
		stored := newTestEvent("Event A", "2026-01-01", t0)
		incoming := newTestEvent("Event A", "2026-01-01", t1)
		incoming.Category = "Comedy"
		incoming.URL = "https://other.example.com"
		incoming.Source = "District"

		merged := Merge([]*Event{incoming}, []*Event{stored})

		got := merged[0]
		if got.Category != "Music" || got.URL != "https://example.com" || got.Source != "BookMyShow" {
			t.Errorf("expected stored fields to be kept, got %+v", got)
		}
	})

	t.Run("inserts unknown events as provided", func(t *testing.T) {
		stored := newTestEvent("Event A", "2026-01-01", t0)
		fresh := newTestEvent("Event B", "2026-01-02", t1)

		merged := Merge([]*Event{fresh}, []*Event{stored})

		if len(merged) != 2 {
			t.Fatalf("expected 2 merged events, got %d", len(merged))
		}
		if merged[1] != fresh || fresh.Status != StatusActive {
			t.Errorf("expected fresh event appended with status Active, got %+v", merged[1])
		}
		if stored.Status != StatusActive {
			t.Errorf("expected untouched stored event to stay Active, got %q", stored.Status)
		}
	})

	t.Run("keeps events missing from the batch", func(t *testing.T) {
		a := newTestEvent("Event A", "2026-01-01", t0)
		b := newTestEvent("Event B", "2026-01-02", t0)

		merged := Merge([]*Event{newTestEvent("Event A", "2026-01-01", t1)}, []*Event{a, b})

		if len(merged) != 2 {
			t.Fatalf("expected 2 merged events, got %d", len(merged))
		}
		if b.Status != StatusActive || !b.LastUpdated.Equal(t0) {
			t.Errorf("expected absent event untouched, got %+v", b)
		}
	})

	t.Run("never moves LastUpdated backwards", func(t *testing.T) {
		stored := newTestEvent("Event A", "2026-01-01", t1)
		older := newTestEvent("Event A", "2026-01-01", t0)

		merged := Merge([]*Event{older}, []*Event{stored})

		if !merged[0].LastUpdated.Equal(t1) {
			t.Errorf("expected LastUpdated to stay %v, got %v", t1, merged[0].LastUpdated)
		}
	})

	t.Run("skips nil events", func(t *testing.T) {
		merged := Merge([]*Event{nil, newTestEvent("Event A", "2026-01-01", t0)}, []*Event{nil})
		if len(merged) != 1 {
			t.Errorf("expected 1 merged event, got %d", len(merged))
		}
	})

	t.Run("empty batch leaves existing untouched", func(t *testing.T) {
		a := newTestEvent("Event A", "2026-01-01", t0)
		b := newTestEvent("Event B", "2026-01-02", t0)
		b.Status = StatusExpired

		merged := Merge(nil, []*Event{a, b})

		if len(merged) != 2 {
			t.Fatalf("expected 2 merged events, got %d", len(merged))
		}
		if a.Status != StatusActive || b.Status != StatusExpired {
			t.Errorf("expected statuses unchanged, got %q and %q", a.Status, b.Status)
		}
		if !a.LastUpdated.Equal(t0) || !b.LastUpdated.Equal(t0) {
			t.Error("expected LastUpdated unchanged")
		}
	})
}

func TestMerge_Idempotent(t *testing.T) {
	t0 := refNow
	existing := []*Event{
		newTestEvent("Event A", "2026-01-01", t0),
		newTestEvent("Event B", "2026-01-02", t0),
	}
	batch := []*Event{
		newTestEvent("Event A", "2026-01-01", t0.Add(time.Minute)),
		newTestEvent("Event C", "2026-01-03", t0.Add(time.Minute)),
	}

	once := Merge(batch, existing)
	twice := Merge(batch, once)

	if len(once) != 3 || len(twice) != 3 {
		t.Fatalf("expected 3 events after each merge, got %d and %d", len(once), len(twice))
	}
	for id, n := range ids(twice) {
		if n != 1 {
			t.Errorf("ID %s appears %d times", id, n)
		}
	}

	statuses := map[string]Status{}
	for _, evt := range twice {
		statuses[evt.Name] = evt.Status
	}
	want := map[string]Status{
		"Event A": StatusUpdated,
		"Event B": StatusActive,
		"Event C": StatusUpdated,
	}
	for name, status := range want {
		if statuses[name] != status {
			t.Errorf("%s status = %q, want %q", name, statuses[name], status)
		}
	}

	thrice := Merge(batch, twice)
	for i := range thrice {
		if thrice[i].Status != twice[i].Status || thrice[i].Name != twice[i].Name {
			t.Errorf("third merge changed event %d: %+v vs %+v", i, thrice[i], twice[i])
		}
	}
}

func TestSweepExpired(t *testing.T) {
	tests := []struct {
		name       string
		date       string
		status     Status
		daysOffset int
		wantStatus Status
		wantCount  int
	}{
		{name: "active past event expires", date: "2020-01-01", status: StatusActive, wantStatus: StatusExpired, wantCount: 1},
		{name: "active future event stays", date: "2099-01-01", status: StatusActive, wantStatus: StatusActive, wantCount: 0},
		{name: "unparseable date stays", date: "TBA", status: StatusActive, wantStatus: StatusActive, wantCount: 0},
		{name: "upcoming date without year stays", date: "October 18", status: StatusActive, wantStatus: StatusActive, wantCount: 0},
		{name: "upcoming date with time without year stays", date: "Dec 25 7:30 PM", status: StatusActive, wantStatus: StatusActive, wantCount: 0},
		{name: "updated past event untouched", date: "2020-01-01", status: StatusUpdated, wantStatus: StatusUpdated, wantCount: 0},
		{name: "expired event untouched", date: "2020-01-01", status: StatusExpired, wantStatus: StatusExpired, wantCount: 0},
		{name: "offset expires near-future event", date: refNow.AddDate(0, 0, 2).Format("2006-01-02"), status: StatusActive, daysOffset: 3, wantStatus: StatusExpired, wantCount: 1},
	}

	stamped := refNow.Add(-48 * time.Hour)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := newTestEvent("Event", tt.date, stamped)
			evt.Status = tt.status

			count := SweepExpired([]*Event{evt}, tt.daysOffset, refNow)

			if count != tt.wantCount {
				t.Errorf("SweepExpired() = %d, want %d", count, tt.wantCount)
			}
			if evt.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", evt.Status, tt.wantStatus)
			}
			wantUpdated := stamped
			if tt.wantCount == 1 {
				wantUpdated = refNow
			}
			if !evt.LastUpdated.Equal(wantUpdated) {
				t.Errorf("LastUpdated = %v, want %v", evt.LastUpdated, wantUpdated)
			}
		})
	}
}

func TestSweepExpired_Counts(t *testing.T) {
	events := []*Event{
		newTestEvent("Past 1", "2020-01-01", refNow),
		newTestEvent("Past 2", "Jan 1 2021", refNow),
		newTestEvent("Future", "2099-01-01", refNow),
		newTestEvent("Unknown", TBA, refNow),
		nil,
	}

	if got := SweepExpired(events, 0, refNow); got != 2 {
		t.Errorf("SweepExpired() = %d, want 2", got)
	}
	if got := SweepExpired(events, 0, refNow); got != 0 {
		t.Errorf("second SweepExpired() = %d, want 0", got)
	}
}

func TestPruneExpired(t *testing.T) {
	cutoff := refNow.AddDate(0, 0, -30)

	old := newTestEvent("Old", "2020-01-01", refNow.AddDate(0, 0, -40))
	old.Status = StatusExpired
	recent := newTestEvent("Recent", "2020-01-02", refNow.AddDate(0, 0, -10))
	recent.Status = StatusExpired
	activeOld := newTestEvent("Active", "2099-01-01", refNow.AddDate(0, 0, -40))

	kept, removed := PruneExpired([]*Event{old, recent, activeOld}, cutoff)

	if removed != 1 {
		t.Errorf("expected to prune 1 event, got %d", removed)
	}
	if len(kept) != 2 {
		t.Fatalf("expected 2 events remaining, got %d", len(kept))
	}
	for _, evt := range kept {
		if evt.ID == old.ID {
			t.Error("expected old expired event to be pruned")
		}
	}
}

func TestRemoveAndUpsert(t *testing.T) {
	a := newTestEvent("Event A", "2026-01-01", refNow)
	b := newTestEvent("Event B", "2026-01-02", refNow)

	kept, found := Remove([]*Event{a, b}, a.ID)
	if !found || len(kept) != 1 || kept[0].ID != b.ID {
		t.Errorf("Remove() = %v, %v; want [b], true", kept, found)
	}

	if _, found := Remove([]*Event{a, b}, "missing"); found {
		t.Error("Remove() found an unknown ID")
	}

	replaced := newTestEvent("Event A", "2026-01-01", refNow.Add(time.Hour))
	replaced.Venue = "Changed"
	out := Upsert([]*Event{a, b}, replaced)
	if len(out) != 2 || out[0] != replaced {
		t.Errorf("Upsert() should replace in place, got %v", out)
	}

	c := newTestEvent("Event C", "2026-01-03", refNow)
	out = Upsert([]*Event{a, b}, c)
	if len(out) != 3 || out[2] != c {
		t.Errorf("Upsert() should append unknown event, got %v", out)
	}
}
