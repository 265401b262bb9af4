package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

var outputNow = time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", FormatText, false},
		{" JSON ", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := parseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseFormat(%q) = %q, %v; want %q, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestWriteText_Listing(t *testing.T) {
	events := []*event.Event{
		event.NewEvent("Jazz Night", "2026-11-01", "Blue Frog", "Mumbai", "Music", "https://d/1", "District", outputNow),
		event.NewEvent("Comedy Hour", "2026-11-02", "Canvas", "Mumbai", "Comedy", "https://b/1", "BookMyShow", outputNow),
		event.NewEvent("Food Fest", "2026-11-03", "MMRDA", "Mumbai", "Food", "https://d/2", "District", outputNow),
	}
	result := &OutputResult{CheckedAt: outputNow, NewEvents: events, EventCount: len(events), ShowAll: true}

	var buf bytes.Buffer
	if err := WriteOutput(&buf, result, FormatText, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"BookMyShow (1 events):",
		"District (2 events):",
		"[Active] Jazz Night - 2026-11-01 @ Blue Frog",
		"ID: " + events[0].ID,
		"Total: 3 events across 2 platforms",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "BookMyShow") > strings.Index(out, "District") {
		t.Error("platform groups should be in name order")
	}
}

func TestWriteText_Cycle(t *testing.T) {
	tests := []struct {
		name    string
		summary CycleSummary
		events  []*event.Event
		want    []string
	}{
		{
			name:    "new events",
			summary: CycleSummary{Scraped: 3, New: 1, Updated: 2, Saved: true},
			events:  []*event.Event{event.NewEvent("Jazz Night", "2026-11-01", "Blue Frog", "Mumbai", "Music", "", "District", outputNow)},
			want:    []string{"Mumbai (district): scraped 3 events, 1 new, 2 updated, 0 expired", "NEW (District): Jazz Night", "Total: 1 new"},
		},
		{
			name:    "nothing new",
			summary: CycleSummary{Scraped: 2, Updated: 2, Saved: true},
			want:    []string{"No new events found."},
		},
		{
			name:    "not saved",
			summary: CycleSummary{Scraped: 2, New: 2},
			want:    []string{"Events were NOT saved."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := tt.summary
			result := &OutputResult{
				City:       "Mumbai",
				Platforms:  []string{"district"},
				Summary:    &summary,
				NewEvents:  tt.events,
				EventCount: len(tt.events),
			}
			var buf bytes.Buffer
			if err := WriteOutput(&buf, result, FormatText, false); err != nil {
				t.Fatal(err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	result := &OutputResult{CheckedAt: outputNow, NewEvents: []*event.Event{}, ShowAll: true}

	var buf bytes.Buffer
	if err := WriteOutput(&buf, result, FormatJSON, false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"event_count": 0`) || strings.Contains(out, `"summary"`) {
		t.Errorf("unexpected JSON:\n%s", out)
	}
	if err := WriteOutput(&buf, result, OutputFormat("yaml"), false); err == nil {
		t.Error("unknown format should fail")
	}
}
