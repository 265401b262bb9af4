package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/event-discovery/internal/event"
	"github.com/pfrederiksen/event-discovery/internal/logger"
)

const (
	DistrictName    = "District"
	DistrictBaseURL = "https://www.district.in"

	// districtPageLimit caps how many event pages are visited per scrape
	districtPageLimit = 25
)

// District scrapes district.in. The city page only links to events, so each
// event page is fetched and read from its structured data.
type District struct {
	fetcher     *Fetcher
	city        string
	url         string
	baseURL     string
	concurrency int
	now         func() time.Time
}

// NewDistrict creates a District scraper for city listed at url
func NewDistrict(f *Fetcher, city, url string) *District {
	return &District{
		fetcher:     f,
		city:        city,
		url:         url,
		baseURL:     DistrictBaseURL,
		concurrency: 1,
		now:         time.Now,
	}
}

// SetConcurrency sets how many event pages are fetched at once
func (d *District) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	d.concurrency = n
}

func (d *District) Platform() string { return DistrictName }

// Scrape fetches the city page and every linked event page
func (d *District) Scrape(ctx context.Context) ([]*event.Event, error) {
	if d.url == "" {
		return nil, fmt.Errorf("no %s URL configured for %s", DistrictName, d.city)
	}

	home, err := d.fetcher.Fetch(ctx, d.url)
	if err != nil {
		return nil, err
	}
	links, err := d.eventLinks(home)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		logger.Warn("No event links found on District homepage", logger.Fields{"url": d.url})
		return []*event.Event{}, nil
	}
	if len(links) > districtPageLimit {
		links = links[:districtPageLimit]
	}

	// Pages are collected by index so the batch keeps link order
	pages := make([]*event.Event, len(links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, link := range links {
		g.Go(func() error {
			body, err := d.fetcher.Fetch(gctx, link)
			if err != nil {
				logger.Debug("Skipping District event page", logger.Fields{"url": link, "error": err.Error()})
				return nil
			}
			evt, err := d.parseEventPage(body, link)
			if err != nil {
				logger.Debug("Skipping District event page", logger.Fields{"url": link, "error": err.Error()})
				return nil
			}
			pages[i] = evt
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	events := make([]*event.Event, 0, len(pages))
	for _, evt := range pages {
		if evt != nil && valid(evt) {
			events = append(events, evt)
		}
	}
	return unique(events), nil
}

// eventLinks returns the distinct event page URLs linked from the city page
func (d *District) eventLinks(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	seen := make(map[string]bool)
	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.Contains(href, "/events/") && !strings.Contains(href, "/event/") {
			return
		}
		if strings.Contains(href, "/artist") {
			return
		}
		if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
			href = d.baseURL + href
		}
		if !strings.HasPrefix(href, "http") {
			return
		}
		if i := strings.IndexByte(href, '?'); i >= 0 {
			href = href[:i]
		}
		if !seen[href] {
			seen[href] = true
			links = append(links, href)
		}
	})
	return links, nil
}

// parseEventPage reads one event page. JSON-LD Event data wins; the page
// heading and event meta tags fill whatever it lacks.
func (d *District) parseEventPage(body []byte, url string) (*event.Event, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	name, date, venue, category := event.UnknownName, event.TBA, event.TBA, event.GeneralCategory

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		ld, ok := findLDEvent(s.Text())
		if !ok {
			return true
		}
		if ld.Name != "" {
			name = ld.Name
		}
		if ld.StartDate != "" {
			date = ld.StartDate
		}
		if c := firstNonEmpty(ld.EventType, ld.Genre); c != "" {
			category = c
		}
		if ld.Location.Name != "" {
			venue = ld.Location.Name
		}
		if ld.Location.Address.Locality != "" {
			venue = venue + " - " + ld.Location.Address.Locality
		}
		return false
	})

	if name == event.UnknownName {
		if h1 := cleanText(doc.Find("h1").First().Text()); h1 != "" {
			name = h1
		}
	}
	if date == event.TBA {
		if v, ok := doc.Find(`meta[property="event:start_date"]`).Attr("content"); ok && v != "" {
			date = v
		}
	}
	if venue == event.TBA {
		if v, ok := doc.Find(`meta[property="event:location"]`).Attr("content"); ok && v != "" {
			venue = v
		}
	}

	return event.NewEvent(name, date, venue, d.city, category, url, DistrictName, d.now()), nil
}

// ldEvent is the subset of a schema.org Event read from JSON-LD
type ldEvent struct {
	Type      string `json:"@type"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EventType string `json:"eventType"`
	Genre     string `json:"genre"`
	Location  struct {
		Name    string `json:"name"`
		Address struct {
			Locality string `json:"addressLocality"`
		} `json:"address"`
	} `json:"location"`
}

// findLDEvent decodes a JSON-LD script holding one object or a list and
// returns the first item typed Event. Items with unexpected shapes are
// skipped.
func findLDEvent(script string) (ldEvent, bool) {
	script = strings.TrimSpace(script)
	if script == "" {
		return ldEvent{}, false
	}

	var raw []json.RawMessage
	if strings.HasPrefix(script, "[") {
		if err := json.Unmarshal([]byte(script), &raw); err != nil {
			return ldEvent{}, false
		}
	} else {
		raw = []json.RawMessage{json.RawMessage(script)}
	}

	for _, item := range raw {
		var evt ldEvent
		if err := json.Unmarshal(item, &evt); err != nil {
			continue
		}
		if evt.Type == "Event" {
			return evt, true
		}
	}
	return ldEvent{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
