package scraper

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pfrederiksen/event-discovery/internal/config"
	"github.com/pfrederiksen/event-discovery/internal/event"
	"github.com/pfrederiksen/event-discovery/internal/metrics"
)

func TestRegistry_Build(t *testing.T) {
	cat, err := config.ParseCatalog([]byte(`platforms:
  district:
    base_url: https://district.test/
    cities:
      Pune: https://district.test/pune
  bookmyshow:
    base_url: https://bms.test
    cities:
      Mumbai: https://bms.test/mumbai
`))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRegistry(cat, NewFetcher("ua"), 4)

	scrapers, err := r.Build([]string{"District", " bookmyshow "}, "Pune")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(scrapers) != 2 {
		t.Fatalf("Build() returned %d scrapers, want 2", len(scrapers))
	}

	d, ok := scrapers[0].(*District)
	if !ok {
		t.Fatalf("scrapers[0] = %T, want *District", scrapers[0])
	}
	if d.url != "https://district.test/pune" || d.baseURL != "https://district.test" || d.concurrency != 4 {
		t.Errorf("district = url %q base %q concurrency %d", d.url, d.baseURL, d.concurrency)
	}

	b, ok := scrapers[1].(*BookMyShow)
	if !ok {
		t.Fatalf("scrapers[1] = %T, want *BookMyShow", scrapers[1])
	}
	if b.url != "" {
		t.Errorf("bookmyshow url = %q, want empty for unmapped city", b.url)
	}

	if _, err := r.Build([]string{"eventbrite"}, "Pune"); err == nil {
		t.Error("Build() with unknown platform should fail")
	}
}

func TestSupported(t *testing.T) {
	if got := Supported(); !reflect.DeepEqual(got, []string{"bookmyshow", "district"}) {
		t.Errorf("Supported() = %v", got)
	}
}

func TestNewFetcherFromConfig(t *testing.T) {
	f := NewFetcherFromConfig(config.Scrape{
		MaxRetries:            5,
		RequestTimeoutSeconds: 12,
		RateLimitDelaySeconds: 0.25,
		UserAgent:             "custom-agent",
	})
	if f.client.Timeout != 12*time.Second {
		t.Errorf("timeout = %v, want 12s", f.client.Timeout)
	}
	if f.rateLimit != 250*time.Millisecond {
		t.Errorf("rate limit = %v, want 250ms", f.rateLimit)
	}
	if f.retry.MaxAttempts != 5 || f.userAgent != "custom-agent" {
		t.Errorf("retry = %+v, user agent = %q", f.retry, f.userAgent)
	}
}

// stubScraper returns a fixed batch or error
type stubScraper struct {
	platform string
	events   []*event.Event
	err      error
}

func (s stubScraper) Platform() string { return s.platform }

func (s stubScraper) Scrape(context.Context) ([]*event.Event, error) {
	return s.events, s.err
}

func TestCollect(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	a := event.NewEvent("A", "2026-11-01", "V", "Mumbai", "Music", "https://a", DistrictName, now)
	b := event.NewEvent("B", "2026-11-02", "V", "Mumbai", "Music", "https://b", BookMyShowName, now)
	c := event.NewEvent("C", "2026-11-03", "V", "Mumbai", "Music", "https://c", BookMyShowName, now)

	rec := metrics.New()
	got := Collect(context.Background(), []Scraper{
		stubScraper{platform: DistrictName, events: []*event.Event{a}},
		stubScraper{platform: "Broken", err: errors.New("blocked")},
		stubScraper{platform: BookMyShowName, events: []*event.Event{b, c}},
	}, rec)

	var names []string
	for _, evt := range got {
		names = append(names, evt.Name)
	}
	if !reflect.DeepEqual(names, []string{"A", "B", "C"}) {
		t.Errorf("Collect() = %v, want [A B C]", names)
	}

	n, err := testutil.GatherAndCount(rec.Registry(), "event_discovery_scrape_errors_total")
	if err != nil || n != 1 {
		t.Errorf("scrape error series = %d, %v; want 1", n, err)
	}

	if got := Collect(context.Background(), nil, nil); len(got) != 0 {
		t.Errorf("Collect(nil) = %v, want empty", got)
	}
}
