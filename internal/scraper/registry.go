package scraper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/event-discovery/internal/config"
	"github.com/pfrederiksen/event-discovery/internal/event"
	"github.com/pfrederiksen/event-discovery/internal/logger"
	"github.com/pfrederiksen/event-discovery/internal/metrics"
)

// Target is what a Constructor needs to scrape one platform for one city
type Target struct {
	City        string
	URL         string
	BaseURL     string
	Concurrency int
}

// Constructor builds the Scraper of one platform
type Constructor func(f *Fetcher, t Target) Scraper

var constructors = map[string]Constructor{
	"district": func(f *Fetcher, t Target) Scraper {
		d := NewDistrict(f, t.City, t.URL)
		if t.BaseURL != "" {
			d.baseURL = strings.TrimSuffix(t.BaseURL, "/")
		}
		d.SetConcurrency(t.Concurrency)
		return d
	},
	"bookmyshow": func(f *Fetcher, t Target) Scraper {
		b := NewBookMyShow(f, t.City, t.URL)
		if t.BaseURL != "" {
			b.baseURL = strings.TrimSuffix(t.BaseURL, "/")
		}
		return b
	},
}

// Supported returns the platform keys with a scraper implementation
func Supported() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewFetcherFromConfig creates a Fetcher from the scrape settings
func NewFetcherFromConfig(cfg config.Scrape) *Fetcher {
	return NewFetcher(cfg.UserAgent,
		WithTimeout(cfg.RequestTimeout()),
		WithRateLimit(cfg.RateLimitDelay()),
		WithRetryPolicy(RetryPolicy{MaxAttempts: cfg.MaxRetries, Step: DefaultRetryStep}),
	)
}

// Registry builds scrapers from the platform catalog
type Registry struct {
	catalog     *config.Catalog
	fetcher     *Fetcher
	concurrency int
}

// NewRegistry creates a Registry sharing fetcher across scrapers
func NewRegistry(catalog *config.Catalog, fetcher *Fetcher, concurrency int) *Registry {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Registry{catalog: catalog, fetcher: fetcher, concurrency: concurrency}
}

// Build returns one scraper per platform for city. A platform without a URL
// for city still gets a scraper; it reports the missing URL when run.
func (r *Registry) Build(platforms []string, city string) ([]Scraper, error) {
	scrapers := make([]Scraper, 0, len(platforms))
	for _, name := range platforms {
		key := strings.ToLower(strings.TrimSpace(name))
		build, ok := constructors[key]
		if !ok {
			return nil, fmt.Errorf("unknown platform %q (supported: %s)", name, strings.Join(Supported(), ", "))
		}

		t := Target{City: city, Concurrency: r.concurrency}
		if p, ok := r.catalog.Platforms[key]; ok {
			t.BaseURL = p.BaseURL
		}
		if url, ok := r.catalog.CityURL(key, city); ok {
			t.URL = url
		} else {
			logger.Warn("No URL configured for city", logger.Fields{"platform": key, "city": city})
		}
		scrapers = append(scrapers, build(r.fetcher, t))
	}
	return scrapers, nil
}

// Collect runs scrapers concurrently and concatenates their batches in
// scraper order. A failing scraper contributes an empty batch.
func Collect(ctx context.Context, scrapers []Scraper, rec *metrics.Recorder) []*event.Event {
	batches := make([][]*event.Event, len(scrapers))

	var g errgroup.Group
	for i, s := range scrapers {
		g.Go(func() error {
			logger.Info("Starting scrape", logger.Fields{"platform": s.Platform()})
			events, err := s.Scrape(ctx)
			if err != nil {
				rec.ScrapeFailed(s.Platform())
				logger.Error("Scraping failed", logger.Fields{"platform": s.Platform()}, err)
				return nil
			}
			rec.Scraped(s.Platform(), len(events))
			logger.Info("Scraped events", logger.Fields{"platform": s.Platform(), "count": len(events)})
			batches[i] = events
			return nil
		})
	}
	_ = g.Wait()

	all := make([]*event.Event, 0)
	for _, batch := range batches {
		all = append(all, batch...)
	}
	return all
}
