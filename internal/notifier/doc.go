// Package notifier announces newly discovered events.
//
// Notifiers receive only the records a cycle inserted, never updates or
// expiries. DryRunNotifier writes the messages it would post; TwitterNotifier
// posts them with OAuth1 credentials and waits between posts.
package notifier
