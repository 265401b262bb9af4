package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/event-discovery/internal/calendar"
	"github.com/pfrederiksen/event-discovery/internal/filter"
	"github.com/pfrederiksen/event-discovery/internal/logger"
	"github.com/pfrederiksen/event-discovery/internal/storage"
)

func newExpireCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Mark stored events whose date has passed as Expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			n := a.engine.MarkExpired(cmd.Context())
			fmt.Fprintf(a.out, "Marked %d events as expired.\n", n)
			return nil
		},
	}
}

func newPruneCmd(opts *globalOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove Expired events not updated for a number of days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("days") {
				days = a.cfg.RemoveExpiredDays
			}
			if days < 0 {
				return fmt.Errorf("--days must be >= 0, got %d", days)
			}

			n := a.engine.Prune(cmd.Context(), days)
			fmt.Fprintf(a.out, "Removed %d expired events older than %d days.\n", n, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Minimum age in days (default REMOVE_EXPIRED_DAYS)")
	return cmd
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var (
		status   string
		city     string
		platform string
		category string
		name     string
		dates    string
		weekends bool
		sortBy   string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}
			order, err := parseSortOrder(sortBy)
			if err != nil {
				return err
			}

			now := time.Now()
			f := filter.NewFilter()
			f.WeekendsOnly = weekends
			f.Cities = filter.SplitList(city)
			f.Platforms = filter.SplitList(platform)
			f.Categories = filter.SplitList(category)
			f.Names = filter.SplitList(name)
			if f.Statuses, err = filter.ParseStatuses(status); err != nil {
				return err
			}
			if dates != "" {
				if f.DateFrom, f.DateTo, err = filter.ParseDateRange(dates, now); err != nil {
					return err
				}
			}

			a, err := newApp(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.engine.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading events: %w", err)
			}
			a.log.Debug("Listing events", logger.Fields{"filter": f.String(), "stored": len(events)})
			events = f.Apply(events, now)
			sortEvents(events, order)

			result := &OutputResult{
				CheckedAt:  now.UTC(),
				NewEvents:  events,
				EventCount: len(events),
				ShowAll:    true,
			}
			return WriteOutput(a.out, result, outFormat, opts.verbose)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Comma-separated statuses to list (Active, Updated, Expired)")
	cmd.Flags().StringVar(&city, "city", "", "Comma-separated cities to list")
	cmd.Flags().StringVar(&platform, "platform", "", "Comma-separated platforms to list (e.g. District)")
	cmd.Flags().StringVar(&category, "category", "", "Comma-separated category substrings to match")
	cmd.Flags().StringVar(&name, "name", "", "Comma-separated event name substrings to match")
	cmd.Flags().StringVar(&dates, "dates", "", "Date range such as 'Mar 1-15', 'March 1 - April 15' or 'March'")
	cmd.Flags().BoolVar(&weekends, "weekends", false, "Only list events on Saturday or Sunday")
	cmd.Flags().StringVar(&sortBy, "sort", string(SortByDate), "Sort order: date, name, city or platform")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete a stored event by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			id := strings.TrimSpace(args[0])
			evt, err := storage.GetEventByID(cmd.Context(), a.backend, id)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("event %s: %w", id, err)
			}
			if err != nil {
				return fmt.Errorf("loading events: %w", err)
			}
			if !a.engine.Delete(cmd.Context(), id) {
				return fmt.Errorf("deleting event %s failed", id)
			}
			fmt.Fprintf(a.out, "Deleted %s\n", evt)
			return nil
		},
	}
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		output string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export upcoming stored events as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.engine.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("loading events: %w", err)
			}

			if dir := filepath.Dir(output); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("creating output directory: %w", err)
				}
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			count, err := calendar.WriteICS(f, events, name, time.Now())
			if cerr := f.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("closing %s: %w", output, cerr)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Exported %d events to %s\n", count, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "events.ics", "Path of the calendar file to write")
	cmd.Flags().StringVar(&name, "name", "Event Discovery", "Calendar name")
	return cmd
}
