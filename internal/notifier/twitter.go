package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/pfrederiksen/event-discovery/internal/event"
)

const (
	// maxPostLength is the Twitter limit in characters
	maxPostLength = 280
	postDelay     = 2 * time.Second
)

// Credentials are the OAuth1 keys of a Twitter app and account
type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// TwitterNotifier posts events to Twitter
type TwitterNotifier struct {
	client *twitter.Client
	delay  time.Duration
}

// NewTwitterNotifier creates a Twitter notifier from creds
func NewTwitterNotifier(creds Credentials) (*TwitterNotifier, error) {
	if creds.ConsumerKey == "" || creds.ConsumerSecret == "" || creds.AccessToken == "" || creds.AccessSecret == "" {
		return nil, errors.New("missing required Twitter credentials")
	}

	cfg := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	return newTwitterNotifier(cfg.Client(oauth1.NoContext, token)), nil
}

func newTwitterNotifier(httpClient *http.Client) *TwitterNotifier {
	return &TwitterNotifier{client: twitter.NewClient(httpClient), delay: postDelay}
}

// Notify posts one tweet per event, waiting between posts
func (n *TwitterNotifier) Notify(ctx context.Context, events []*event.Event) error {
	for i, evt := range events {
		if _, _, err := n.client.Statuses.Update(formatPost(evt), nil); err != nil {
			return fmt.Errorf("failed to post tweet for event %s: %w", evt.ID, err)
		}

		if i < len(events)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(n.delay):
			}
		}
	}
	return nil
}

// formatPost formats an event as a post of at most maxPostLength characters
func formatPost(evt *event.Event) string {
	var b strings.Builder
	if evt.City != "" {
		fmt.Fprintf(&b, "🎟️ New event in %s!\n\n", evt.City)
	} else {
		b.WriteString("🎟️ New event!\n\n")
	}
	fmt.Fprintf(&b, "📍 %s\n", evt.Name)

	if evt.Date != "" && evt.Date != event.TBA {
		fmt.Fprintf(&b, "📅 %s\n", evt.Date)
	}
	if evt.Venue != "" && evt.Venue != event.TBA {
		fmt.Fprintf(&b, "🏢 %s\n", evt.Venue)
	}
	if evt.URL != "" {
		fmt.Fprintf(&b, "\n🔗 %s\n", evt.URL)
	}

	b.WriteString("\n#Events")
	if tag := hashtag(evt.City); tag != "" {
		b.WriteString(" #" + tag)
	}
	if tag := hashtag(evt.Source); tag != "" {
		b.WriteString(" #" + tag)
	}

	post := b.String()
	if utf8.RuneCountInString(post) > maxPostLength {
		runes := []rune(post)
		post = string(runes[:maxPostLength-3]) + "..."
	}
	return post
}

// hashtag strips everything but letters and digits
func hashtag(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
