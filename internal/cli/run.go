package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pfrederiksen/event-discovery/internal/logger"
	"github.com/pfrederiksen/event-discovery/internal/metrics"
	"github.com/pfrederiksen/event-discovery/internal/reconcile"
	"github.com/pfrederiksen/event-discovery/internal/schedule"
	"github.com/pfrederiksen/event-discovery/internal/scraper"
)

// errSaveFailed is returned when a cycle scraped events but could not save them
var errSaveFailed = errors.New("saving events failed")

// targetOptions select what a cycle scrapes
type targetOptions struct {
	city      string
	platforms string
}

func (o *targetOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.city, "city", "", "City to scrape (default DEFAULT_CITY)")
	cmd.Flags().StringVar(&o.platforms, "platforms", "", "Comma-separated platforms to scrape (default PLATFORMS)")
}

func (o *targetOptions) platformList() []string {
	var out []string
	for _, p := range strings.Split(o.platforms, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	target := &targetOptions{}
	var format string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one scrape and reconcile cycle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseFormat(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withScrapers(); err != nil {
				return err
			}

			city, platforms := a.resolveTargets(target.city, target.platformList())
			res, cycleErr := a.runCycle(ctx, city, platforms)

			result := &OutputResult{
				CheckedAt: time.Now().UTC(),
				City:      city,
				Platforms: platforms,
				Summary: &CycleSummary{
					Scraped: res.Scraped,
					New:     res.New,
					Updated: res.Updated,
					Expired: res.Expired,
					Saved:   res.Saved,
				},
				NewEvents:  res.NewEvents,
				EventCount: len(res.NewEvents),
			}
			if err := WriteOutput(a.out, result, outFormat, opts.verbose); err != nil {
				return fmt.Errorf("writing output: %w", err)
			}
			return cycleErr
		},
	}
	target.bind(cmd)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newScheduleCmd(opts *globalOptions) *cobra.Command {
	target := &targetOptions{}
	var (
		intervalHours int
		runNow        bool
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run cycles at a fixed interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withScrapers(); err != nil {
				return err
			}

			city, platforms := a.resolveTargets(target.city, target.platformList())
			interval := a.cfg.ScrapeInterval()
			if cmd.Flags().Changed("interval-hours") {
				interval = time.Duration(intervalHours) * time.Hour
			}
			return a.runSchedule(ctx, city, platforms, interval, runNow)
		},
	}
	target.bind(cmd)
	cmd.Flags().IntVar(&intervalHours, "interval-hours", 0, "Hours between cycles (default SCRAPE_INTERVAL_HOURS, minimum 1)")
	cmd.Flags().BoolVar(&runNow, "now", false, "Run a cycle immediately before the first interval elapses")
	return cmd
}

// runCycle scrapes every platform for city, reconciles the batch and
// announces newly discovered events
func (a *app) runCycle(ctx context.Context, city string, platforms []string) (reconcile.Result, error) {
	log := a.log.With(logger.Fields{"run_id": uuid.NewString(), "city": city})
	start := time.Now()
	log.Info("Starting cycle", logger.Fields{"platforms": strings.Join(platforms, ",")})

	scrapers, err := a.registry.Build(platforms, city)
	if err != nil {
		return reconcile.Result{}, err
	}

	batch := scraper.Collect(ctx, scrapers, a.metrics)
	res := a.engine.Run(ctx, batch)
	a.metrics.CycleFinished(time.Since(start), res.Saved, time.Now())

	log.Info("Cycle finished", logger.Fields{
		"scraped":  res.Scraped,
		"new":      res.New,
		"updated":  res.Updated,
		"expired":  res.Expired,
		"saved":    res.Saved,
		"duration": time.Since(start).String(),
	})

	if res.Scraped > 0 && !res.Saved {
		return res, errSaveFailed
	}

	if a.notifier != nil && len(res.NewEvents) > 0 {
		if err := a.notifier.Notify(ctx, res.NewEvents); err != nil {
			log.Error("Failed to send notifications", logger.Fields{"count": len(res.NewEvents)}, err)
		}
	}
	return res, nil
}

// runSchedule runs cycles until ctx is cancelled, serving metrics when
// METRICS_ADDR is set
func (a *app) runSchedule(ctx context.Context, city string, platforms []string, interval time.Duration, runNow bool) error {
	job := func(ctx context.Context) {
		if _, err := a.runCycle(ctx, city, platforms); err != nil {
			a.log.Error("Scheduled cycle failed", logger.Fields{"city": city}, err)
		}
	}

	runner := schedule.New(a.log, ctx)
	id, err := runner.Every(interval, job)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.cfg.MetricsAddr != "" {
		srv := metrics.NewServer(a.cfg.MetricsAddr, a.metrics)
		g.Go(func() error {
			a.log.Info("Serving metrics", logger.Fields{"addr": a.cfg.MetricsAddr})
			return srv.Serve()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		if runNow {
			job(gctx)
		}
		runner.Start()
		a.log.Info("Scheduler running", logger.Fields{
			"city":      city,
			"platforms": strings.Join(platforms, ","),
			"interval":  schedule.EverySpec(interval),
			"next_run":  runner.Next(id).Format(time.RFC3339),
		})
		<-gctx.Done()
		runner.Stop()
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
