package notifier

import (
	"context"
	"fmt"
	"io"

	"github.com/pfrederiksen/event-discovery/internal/config"
	"github.com/pfrederiksen/event-discovery/internal/event"
)

// Notifier defines the interface for posting event notifications
type Notifier interface {
	// Notify posts notifications for the given events
	Notify(ctx context.Context, events []*event.Event) error
}

// New returns the notifier selected by cfg. The none notifier is nil.
func New(cfg config.Notifier, out io.Writer) (Notifier, error) {
	switch cfg.Type {
	case config.NotifierNone, "":
		return nil, nil
	case config.NotifierDryRun:
		return NewDryRunNotifier(out), nil
	case config.NotifierTwitter:
		tw, err := NewTwitterNotifier(Credentials{
			ConsumerKey:    cfg.TwitterConsumerKey,
			ConsumerSecret: cfg.TwitterConsumerSecret,
			AccessToken:    cfg.TwitterAccessToken,
			AccessSecret:   cfg.TwitterAccessSecret,
		})
		if err != nil {
			return nil, err
		}
		return tw, nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", cfg.Type)
	}
}
