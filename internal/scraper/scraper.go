package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pfrederiksen/event-discovery/internal/event"
	"github.com/pfrederiksen/event-discovery/internal/logger"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultRateLimit   = 2 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryStep   = 2 * time.Second

	// maxBodyBytes caps how much of a page is read
	maxBodyBytes = 10 << 20
)

// Scraper fetches the current listings of one platform for one city
type Scraper interface {
	Platform() string
	Scrape(ctx context.Context) ([]*event.Event, error)
}

// RetryPolicy controls how failed requests are retried. Attempt n (starting
// at 1) is followed by a wait of Step*n before the next one.
type RetryPolicy struct {
	MaxAttempts int
	Step        time.Duration
}

// DefaultRetryPolicy makes three attempts spaced 2s then 4s apart
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: DefaultMaxAttempts, Step: DefaultRetryStep}

// backOff returns a backoff.BackOff implementing the policy
func (p RetryPolicy) backOff() backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithMaxRetries(&linearBackOff{step: p.Step}, uint64(attempts-1))
}

// linearBackOff waits step, 2*step, 3*step, ...
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.step * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// StatusError is returned for non-200 responses
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// Fetcher performs rate-limited GET requests with retries
type Fetcher struct {
	client    *http.Client
	userAgent string
	retry     RetryPolicy
	rateLimit time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithRetryPolicy replaces DefaultRetryPolicy
func WithRetryPolicy(p RetryPolicy) FetcherOption {
	return func(f *Fetcher) { f.retry = p }
}

// WithRateLimit sets the delay observed after every successful request
func WithRateLimit(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.rateLimit = d }
}

// WithHTTPClient replaces the default client. The client's timeout is kept.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher creates a Fetcher that identifies itself with userAgent
func NewFetcher(userAgent string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: userAgent,
		retry:     DefaultRetryPolicy,
		rateLimit: DefaultRateLimit,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body of url. Transport errors and non-200 responses are
// retried according to the retry policy, except 404 which fails at once.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	attempt := 0

	operation := func() error {
		attempt++
		data, err := f.get(ctx, url)
		if err != nil {
			if se, ok := err.(*StatusError); ok && se.StatusCode == http.StatusNotFound {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		body = data
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Debug("Retrying request", logger.Fields{
			"url":     url,
			"attempt": attempt,
			"wait":    wait.String(),
			"error":   err.Error(),
		})
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(f.retry.backOff(), ctx), notify); err != nil {
		return nil, fmt.Errorf("fetching %s after %d attempt(s): %w", url, attempt, err)
	}

	if err := f.sleep(ctx, f.rateLimit); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	logger.Info("Fetching page", logger.Fields{"url": url})
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return data, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// valid reports whether evt carries the fields every stored record needs
func valid(evt *event.Event) bool {
	for _, field := range []string{evt.Name, evt.Date, evt.Venue, evt.City, evt.URL} {
		if strings.TrimSpace(field) == "" {
			return false
		}
	}
	return true
}

// unique drops events whose ID was already seen, keeping the first
func unique(events []*event.Event) []*event.Event {
	seen := make(map[string]bool, len(events))
	out := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if !seen[evt.ID] {
			seen[evt.ID] = true
			out = append(out, evt)
		}
	}
	return out
}

// absolute resolves href against base
func absolute(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return strings.TrimSuffix(base, "/") + href
}

// cleanText collapses runs of whitespace
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
