// Package gist stores event records as a CSV file in a private GitHub Gist.
//
// The Gist holds a single events.csv file with the standard header row. The
// Gist must exist; CreateGist makes a new one seeded with the header.
package gist

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

const (
	gistAPIURL = "https://api.github.com/gists"
	// Filename is the Gist file holding the records
	Filename = "events.csv"
	timeout  = 15 * time.Second
)

// Storage is a GitHub Gist backend
type Storage struct {
	gistID      string
	githubToken string
	apiURL      string
	httpClient  *http.Client
	now         func() time.Time
}

// New creates a Gist backend for an existing Gist
func New(gistID, githubToken string) (*Storage, error) {
	if gistID == "" {
		return nil, fmt.Errorf("gist ID is required")
	}
	if githubToken == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}

	return &Storage{
		gistID:      gistID,
		githubToken: githubToken,
		apiURL:      gistAPIURL,
		httpClient:  &http.Client{Timeout: timeout},
		now:         time.Now,
	}, nil
}

func (g *Storage) Name() string { return "gist" }

func (g *Storage) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("token %s", g.githubToken))
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Load retrieves the records from the Gist. A Gist without the CSV file is
// an empty set.
func (g *Storage) Load(ctx context.Context) ([]*event.Event, error) {
	req, err := g.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/%s", g.apiURL, g.gistID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Don't include response body in error to prevent information leakage
		return nil, fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}

	var gistResp struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gistResp); err != nil {
		return nil, fmt.Errorf("decoding gist response: %w", err)
	}

	file, exists := gistResp.Files[Filename]
	if !exists {
		return []*event.Event{}, nil
	}

	events, err := decode(file.Content, g.now())
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", Filename, err)
	}
	return events, nil
}

// Save replaces the CSV file in the Gist
func (g *Storage) Save(ctx context.Context, events []*event.Event) error {
	content, err := encode(events)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", Filename, err)
	}

	payload := map[string]interface{}{
		"files": map[string]interface{}{
			Filename: map[string]string{
				"content": content,
			},
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPatch, fmt.Sprintf("%s/%s", g.apiURL, g.gistID), bytes.NewReader(payloadBytes))
	if err != nil {
		return err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("updating gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}
	return nil
}

// CreateGist creates a new private Gist holding an empty record set and
// returns its ID
func CreateGist(ctx context.Context, githubToken, description string) (string, error) {
	g := &Storage{githubToken: githubToken, apiURL: gistAPIURL, httpClient: &http.Client{Timeout: timeout}}
	return g.create(ctx, description)
}

func (g *Storage) create(ctx context.Context, description string) (string, error) {
	if g.githubToken == "" {
		return "", fmt.Errorf("GitHub token is required")
	}

	content, err := encode(nil)
	if err != nil {
		return "", err
	}
	payload := map[string]interface{}{
		"description": description,
		"public":      false,
		"files": map[string]interface{}{
			Filename: map[string]string{
				"content": content,
			},
		},
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling payload: %w", err)
	}

	req, err := g.newRequest(ctx, http.MethodPost, g.apiURL, bytes.NewReader(payloadBytes))
	if err != nil {
		return "", err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("creating gist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("GitHub API error (status %d)", resp.StatusCode)
	}

	var gistResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&gistResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return gistResp.ID, nil
}

func encode(events []*event.Event) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(event.Rows(events)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func decode(content string, loadedAt time.Time) ([]*event.Event, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	events, _ := event.FromRows(rows, loadedAt)
	return events, nil
}
