package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pfrederiksen/event-discovery/internal/config"
	"github.com/pfrederiksen/event-discovery/internal/lock"
	"github.com/pfrederiksen/event-discovery/internal/logger"
	"github.com/pfrederiksen/event-discovery/internal/metrics"
	"github.com/pfrederiksen/event-discovery/internal/notifier"
	"github.com/pfrederiksen/event-discovery/internal/reconcile"
	"github.com/pfrederiksen/event-discovery/internal/scraper"
	"github.com/pfrederiksen/event-discovery/internal/storage"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// globalOptions are the flags shared by every subcommand
type globalOptions struct {
	envFile string
	verbose bool
}

// app holds the collaborators built from configuration for one invocation
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	backend  storage.Backend
	engine   *reconcile.Engine
	metrics  *metrics.Recorder
	registry *scraper.Registry
	notifier notifier.Notifier
	redis    *redis.Client
	out      io.Writer
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "event-discovery",
		Short: "Discover events on ticketing platforms and keep a reconciled record set",
		Long: `Scrapes event listings for a city from ticketing platforms and merges them
into a persistent record set. Known events are marked Updated, new ones are
inserted, and events whose date has passed are marked Expired.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional .env file with configuration")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newScheduleCmd(opts),
		newExpireCmd(opts),
		newPruneCmd(opts),
		newListCmd(opts),
		newDeleteCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

// newApp loads configuration and opens storage. The caller must close it.
func newApp(ctx context.Context, cmd *cobra.Command, opts *globalOptions) (*app, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := logger.ParseLevel(cfg.Log.Level)
	if opts.verbose {
		level = logger.LevelDebug
	}
	log := logger.NewWithFile(level, cmd.ErrOrStderr(), logger.FileOptions{
		Path:         cfg.Log.File,
		MaxSizeBytes: cfg.Log.MaxSize,
		MaxBackups:   cfg.Log.BackupCount,
	})
	logger.SetDefault(log)
	log.Debug("Configuration loaded", logger.Fields{"config": cfg.String()})

	a := &app{cfg: cfg, log: log, metrics: metrics.New(), out: cmd.OutOrStdout()}

	a.backend, err = storage.Open(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	locker := lock.Locker(lock.NewMutex())
	if cfg.Lock.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Lock.RedisAddr})
		r := lock.NewRedis(a.redis, cfg.Lock.Key, cfg.Lock.TTL)
		r.SetWait(cfg.Lock.Wait)
		locker = r
	}

	a.engine = reconcile.New(a.backend,
		reconcile.WithDaysOffset(cfg.MarkExpiredDays),
		reconcile.WithLocker(locker),
		reconcile.WithLogger(log),
		reconcile.WithMetrics(a.metrics),
	)
	return a, nil
}

// withScrapers adds the scraper registry and notifier used by cycles
func (a *app) withScrapers() error {
	catalog, err := config.LoadCatalog(a.cfg.PlatformsFile)
	if err != nil {
		return err
	}
	a.registry = scraper.NewRegistry(catalog, scraper.NewFetcherFromConfig(a.cfg.Scrape), a.cfg.Scrape.MaxConcurrentRequests)

	a.notifier, err = notifier.New(a.cfg.Notifier, a.out)
	if err != nil {
		return fmt.Errorf("initializing notifier: %w", err)
	}
	return nil
}

// Close releases storage, the lock client and the log file
func (a *app) Close() {
	if a.backend != nil {
		if err := storage.Close(a.backend); err != nil {
			a.log.Warn("Failed to close storage", logger.Fields{"error": err.Error()})
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.log.Close()
}

// resolveTargets applies config defaults to the --city and --platforms flags
func (a *app) resolveTargets(city string, platforms []string) (string, []string) {
	if city == "" {
		city = a.cfg.DefaultCity
	}
	city = config.NormalizeCity(city)
	if !config.ValidCity(city) {
		a.log.Warn("City is not in the supported list", logger.Fields{"city": city})
	}
	if len(platforms) == 0 {
		platforms = a.cfg.Platforms
	}
	return city, platforms
}
