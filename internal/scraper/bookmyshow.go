package scraper

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/event-discovery/internal/event"
	"github.com/pfrederiksen/event-discovery/internal/logger"
)

const (
	BookMyShowName    = "BookMyShow"
	BookMyShowBaseURL = "https://in.bookmyshow.com"

	// bookMyShowLimit caps how many listing containers are read per scrape
	bookMyShowLimit = 50
)

// Class name patterns for the listing markup, which changes often
var (
	containerClass = regexp.MustCompile(`event|card`)
	titleClass     = regexp.MustCompile(`title|name`)
	dateClass      = regexp.MustCompile(`date|time`)
	venueClass     = regexp.MustCompile(`venue|location`)
	categoryClass  = regexp.MustCompile(`category|genre`)
)

// BookMyShow scrapes the BookMyShow explore page of a city
type BookMyShow struct {
	fetcher *Fetcher
	city    string
	url     string
	baseURL string
	now     func() time.Time
}

// NewBookMyShow creates a BookMyShow scraper for city listed at url
func NewBookMyShow(f *Fetcher, city, url string) *BookMyShow {
	return &BookMyShow{
		fetcher: f,
		city:    city,
		url:     url,
		baseURL: BookMyShowBaseURL,
		now:     time.Now,
	}
}

func (b *BookMyShow) Platform() string { return BookMyShowName }

// Scrape fetches the explore page and parses its listing containers
func (b *BookMyShow) Scrape(ctx context.Context) ([]*event.Event, error) {
	if b.url == "" {
		return nil, fmt.Errorf("no %s URL configured for %s", BookMyShowName, b.city)
	}

	body, err := b.fetcher.Fetch(ctx, b.url)
	if err != nil {
		return nil, err
	}
	return b.parseEvents(body)
}

func (b *BookMyShow) parseEvents(body []byte) ([]*event.Event, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	containers := doc.Find("div[class]").FilterFunction(hasClass(containerClass))
	if containers.Length() == 0 {
		containers = doc.Find(`a[href*="/events/"]`)
	}

	events := make([]*event.Event, 0)
	containers.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= bookMyShowLimit {
			return false
		}
		evt := b.extractEvent(sel)
		if !valid(evt) {
			logger.Debug("Skipping incomplete BookMyShow listing", logger.Fields{"name": evt.Name})
			return true
		}
		events = append(events, evt)
		return true
	})

	return unique(events), nil
}

// extractEvent reads one listing container. A container that is itself a
// link supplies its own URL and text.
func (b *BookMyShow) extractEvent(sel *goquery.Selection) *event.Event {
	name := event.UnknownName
	if el := sel.Find("h3, h4, h5").FilterFunction(hasClass(titleClass)).First(); el.Length() > 0 {
		name = cleanText(el.Text())
	} else if a := linkOf(sel); a.Length() > 0 {
		name = cleanText(a.Text())
	}

	url := ""
	if a := linkOf(sel); a.Length() > 0 {
		href, _ := a.Attr("href")
		if href = strings.TrimSpace(href); href != "" {
			url = absolute(b.baseURL, href)
		}
	}

	date := textOf(sel, "span, div, p", dateClass, event.TBA)
	venue := textOf(sel, "span, div, p", venueClass, event.TBA)
	category := textOf(sel, "span, div", categoryClass, event.GeneralCategory)

	return event.NewEvent(name, date, venue, b.city, category, url, BookMyShowName, b.now())
}

// linkOf returns the container itself when it is a link, otherwise the
// first link inside it
func linkOf(sel *goquery.Selection) *goquery.Selection {
	if goquery.NodeName(sel) == "a" {
		if _, ok := sel.Attr("href"); ok {
			return sel
		}
	}
	return sel.Find("a[href]").First()
}

// textOf returns the text of the first descendant matching tags whose class
// matches re, or fallback
func textOf(sel *goquery.Selection, tags string, re *regexp.Regexp, fallback string) string {
	el := sel.Find(tags).FilterFunction(hasClass(re)).First()
	if el.Length() == 0 {
		return fallback
	}
	if text := cleanText(el.Text()); text != "" {
		return text
	}
	return fallback
}

// hasClass matches elements with at least one class token matching re
func hasClass(re *regexp.Regexp) func(int, *goquery.Selection) bool {
	return func(_ int, sel *goquery.Selection) bool {
		class, ok := sel.Attr("class")
		if !ok {
			return false
		}
		for _, token := range strings.Fields(class) {
			if re.MatchString(token) {
				return true
			}
		}
		return false
	}
}
