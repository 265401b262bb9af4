package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../testdata/fixtures/" + name)
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return data
}

func TestDistrict_EventLinks(t *testing.T) {
	d := NewDistrict(nil, "Mumbai", "https://www.district.in/")

	links, err := d.eventLinks(loadFixture(t, "district_home.html"))
	if err != nil {
		t.Fatalf("eventLinks() error = %v", err)
	}
	want := []string{
		"https://www.district.in/events/sunburn-arena-mumbai",
		"https://www.district.in/event/comedy-night-bandra",
		"https://www.district.in/events/workshop-pottery",
	}
	if !reflect.DeepEqual(links, want) {
		t.Errorf("eventLinks() = %v, want %v", links, want)
	}
}

func TestDistrict_ParseEventPage(t *testing.T) {
	tests := []struct {
		fixture      string
		wantName     string
		wantDate     string
		wantVenue    string
		wantCategory string
	}{
		{
			fixture:      "district_event_ld.html",
			wantName:     "Sunburn Arena ft. Alan Walker",
			wantDate:     "2026-12-20T18:00:00+05:30",
			wantVenue:    "Jio World Garden - Mumbai",
			wantCategory: "Music",
		},
		{
			fixture:      "district_event_meta.html",
			wantName:     "Comedy Night at The Habitat",
			wantDate:     "Sat, 7 Nov",
			wantVenue:    "The Habitat, Khar",
			wantCategory: event.GeneralCategory,
		},
	}

	d := NewDistrict(nil, "Mumbai", "https://www.district.in/")
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			evt, err := d.parseEventPage(loadFixture(t, tt.fixture), "https://www.district.in/events/x")
			if err != nil {
				t.Fatalf("parseEventPage() error = %v", err)
			}
			if evt.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", evt.Name, tt.wantName)
			}
			if evt.Date != tt.wantDate {
				t.Errorf("Date = %q, want %q", evt.Date, tt.wantDate)
			}
			if evt.Venue != tt.wantVenue {
				t.Errorf("Venue = %q, want %q", evt.Venue, tt.wantVenue)
			}
			if evt.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", evt.Category, tt.wantCategory)
			}
			if evt.City != "Mumbai" || evt.Source != DistrictName || evt.Status != event.StatusActive {
				t.Errorf("unexpected record metadata: %+v", evt)
			}
			if evt.ID != event.GenerateID(tt.wantName, tt.wantDate, tt.wantVenue, "Mumbai") {
				t.Errorf("ID = %q does not match key fields", evt.ID)
			}
		})
	}
}

func TestDistrict_ParseEventPageWithoutData(t *testing.T) {
	d := NewDistrict(nil, "Delhi", "")
	evt, err := d.parseEventPage([]byte("<html><body><p>nothing here</p></body></html>"), "https://www.district.in/events/y")
	if err != nil {
		t.Fatalf("parseEventPage() error = %v", err)
	}
	if evt.Name != event.UnknownName || evt.Date != event.TBA || evt.Venue != event.TBA {
		t.Errorf("placeholders not applied: %+v", evt)
	}
}

func TestFindLDEvent(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantOK   bool
		wantName string
	}{
		{"object", `{"@type":"Event","name":"Gig"}`, true, "Gig"},
		{"list", `[{"@type":"Place"},{"@type":"Event","name":"Play"}]`, true, "Play"},
		{"other type", `{"@type":"Organization","name":"District"}`, false, ""},
		{"malformed", `{"@type":`, false, ""},
		{"empty", ``, false, ""},
		{"unexpected shape skipped", `[{"@type":"Event","name":{"en":"x"}},{"@type":"Event","name":"Second"}]`, true, "Second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findLDEvent(tt.script)
			if ok != tt.wantOK || got.Name != tt.wantName {
				t.Errorf("findLDEvent() = %q, %v; want %q, %v", got.Name, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestDistrict_Scrape(t *testing.T) {
	ld := loadFixture(t, "district_event_ld.html")
	meta := loadFixture(t, "district_event_meta.html")

	mux := http.NewServeMux()
	mux.HandleFunc("/mumbai", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
			<a href="/events/sunburn">Sunburn</a>
			<a href="/events/gone">Gone</a>
			<a href="/event/comedy?ref=home">Comedy</a>
			<a href="/events/sunburn-copy">Sunburn again</a>
		</body></html>`))
	})
	mux.HandleFunc("/events/sunburn", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(ld) })
	mux.HandleFunc("/events/sunburn-copy", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(ld) })
	mux.HandleFunc("/event/comedy", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(meta) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := NewDistrict(newTestFetcher(srv, 2), "Mumbai", srv.URL+"/mumbai")
	d.baseURL = srv.URL
	d.SetConcurrency(3)

	events, err := d.Scrape(context.Background())
	if err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}

	var names []string
	for _, evt := range events {
		names = append(names, evt.Name)
	}
	want := []string{"Sunburn Arena ft. Alan Walker", "Comedy Night at The Habitat"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Scrape() names = %v, want %v", names, want)
	}
	if events[1].URL != srv.URL+"/event/comedy" {
		t.Errorf("URL = %q, want query stripped", events[1].URL)
	}
}

func TestDistrict_ScrapeWithoutURL(t *testing.T) {
	d := NewDistrict(nil, "Kochi", "")
	if _, err := d.Scrape(context.Background()); err == nil {
		t.Error("Scrape() without URL should fail")
	}
}

func TestDistrict_ScrapeHomepageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewDistrict(newTestFetcher(srv, 2), "Mumbai", srv.URL)
	if _, err := d.Scrape(context.Background()); err == nil {
		t.Error("Scrape() should report homepage failure")
	}
}
