// Package cli implements the event-discovery command line.
//
// The root command loads configuration from the environment and an optional
// .env file, opens the configured storage backend and exposes subcommands to
// run one reconciliation cycle, run cycles on a schedule, sweep or prune
// expired records, and list, delete or export stored events.
package cli
