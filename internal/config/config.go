package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backend names accepted by STORAGE_TYPE
const (
	StorageExcel        = "excel"
	StorageGoogleSheets = "google_sheets"
	StorageJSON         = "json"
	StorageSQLite       = "sqlite"
	StorageGist         = "gist"
)

// Notifier names accepted by NOTIFIER
const (
	NotifierNone    = "none"
	NotifierDryRun  = "dry-run"
	NotifierTwitter = "twitter"
)

// DefaultUserAgent is sent when USER_AGENT is not set
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Config holds every setting of a run
type Config struct {
	DefaultCity         string   `env:"DEFAULT_CITY" envDefault:"Mumbai"`
	Platforms           []string `env:"PLATFORMS" envDefault:"district" envSeparator:","`
	PlatformsFile       string   `env:"PLATFORMS_FILE"`
	ScrapeIntervalHours int      `env:"SCRAPE_INTERVAL_HOURS" envDefault:"24"`
	MarkExpiredDays     int      `env:"MARK_EXPIRED_DAYS" envDefault:"0"`
	RemoveExpiredDays   int      `env:"REMOVE_EXPIRED_DAYS" envDefault:"30"`
	MetricsAddr         string   `env:"METRICS_ADDR"`

	Storage  Storage
	Scrape   Scrape
	Log      Log
	Lock     Lock
	Notifier Notifier
}

// Storage selects and configures the persistence backend
type Storage struct {
	Type                  string `env:"STORAGE_TYPE" envDefault:"excel"`
	ExcelFilePath         string `env:"EXCEL_FILE_PATH" envDefault:"data/events.xlsx"`
	JSONDataDir           string `env:"JSON_DATA_DIR" envDefault:"data"`
	SQLitePath            string `env:"SQLITE_PATH" envDefault:"data/events.db"`
	GoogleSheetsID        string `env:"GOOGLE_SHEETS_ID"`
	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" envDefault:"credentials.json"`
	GistID                string `env:"GIST_ID"`
	GitHubToken           string `env:"GITHUB_TOKEN"`
}

// Scrape configures HTTP fetching
type Scrape struct {
	MaxRetries            int     `env:"MAX_RETRIES" envDefault:"3"`
	RequestTimeoutSeconds int     `env:"REQUEST_TIMEOUT" envDefault:"30"`
	RateLimitDelaySeconds float64 `env:"RATE_LIMIT_DELAY" envDefault:"2"`
	MaxConcurrentRequests int     `env:"MAX_CONCURRENT_REQUESTS" envDefault:"5"`
	UserAgent             string  `env:"USER_AGENT"`
}

// Log configures the logger
type Log struct {
	Level       string `env:"LOG_LEVEL" envDefault:"INFO"`
	File        string `env:"LOG_FILE" envDefault:"logs/app.log"`
	MaxSize     int64  `env:"LOG_MAX_SIZE" envDefault:"10485760"`
	BackupCount int    `env:"LOG_BACKUP_COUNT" envDefault:"5"`
}

// Lock configures the cross-process cycle lock. An empty address means an
// in-process lock.
type Lock struct {
	RedisAddr string        `env:"LOCK_REDIS_ADDR"`
	Key       string        `env:"LOCK_KEY" envDefault:"event-discovery:cycle"`
	TTL       time.Duration `env:"LOCK_TTL" envDefault:"10m"`
	Wait      time.Duration `env:"LOCK_WAIT" envDefault:"2m"`
}

// Notifier selects where newly discovered events are announced
type Notifier struct {
	Type                  string `env:"NOTIFIER" envDefault:"none"`
	TwitterConsumerKey    string `env:"TWITTER_API_KEY"`
	TwitterConsumerSecret string `env:"TWITTER_API_SECRET"`
	TwitterAccessToken    string `env:"TWITTER_ACCESS_TOKEN"`
	TwitterAccessSecret   string `env:"TWITTER_ACCESS_SECRET"`
}

// Load reads an optional .env file and parses the process environment.
// A missing envFile is not an error; existing variables are never overridden.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

// Parse builds a Config from the given variables only
func Parse(environ map[string]string) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.DefaultCity = NormalizeCity(c.DefaultCity)
	c.Storage.Type = strings.ToLower(strings.TrimSpace(c.Storage.Type))
	c.Notifier.Type = strings.ToLower(strings.TrimSpace(c.Notifier.Type))
	if c.Scrape.UserAgent == "" {
		c.Scrape.UserAgent = DefaultUserAgent
	}

	platforms := make([]string, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			platforms = append(platforms, p)
		}
	}
	c.Platforms = platforms
}

// Validate reports settings that would make a run fail. Unknown storage types
// are not rejected; the storage factory falls back to excel for them.
func (c *Config) Validate() error {
	var errs []error
	if c.MarkExpiredDays < 0 {
		errs = append(errs, fmt.Errorf("MARK_EXPIRED_DAYS must be >= 0, got %d", c.MarkExpiredDays))
	}
	if c.RemoveExpiredDays < 0 {
		errs = append(errs, fmt.Errorf("REMOVE_EXPIRED_DAYS must be >= 0, got %d", c.RemoveExpiredDays))
	}
	if c.Scrape.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must be >= 1, got %d", c.Scrape.MaxRetries))
	}
	if c.Scrape.RequestTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be >= 1, got %d", c.Scrape.RequestTimeoutSeconds))
	}
	if c.Scrape.RateLimitDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_DELAY must be >= 0, got %v", c.Scrape.RateLimitDelaySeconds))
	}
	if c.Scrape.MaxConcurrentRequests < 1 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_REQUESTS must be >= 1, got %d", c.Scrape.MaxConcurrentRequests))
	}
	if len(c.Platforms) == 0 {
		errs = append(errs, errors.New("PLATFORMS must name at least one platform"))
	}

	switch c.Storage.Type {
	case StorageGoogleSheets:
		if c.Storage.GoogleSheetsID == "" {
			errs = append(errs, errors.New("GOOGLE_SHEETS_ID is required for google_sheets storage"))
		}
	case StorageGist:
		if c.Storage.GistID == "" || c.Storage.GitHubToken == "" {
			errs = append(errs, errors.New("GIST_ID and GITHUB_TOKEN are required for gist storage"))
		}
	}

	switch c.Notifier.Type {
	case NotifierNone, NotifierDryRun:
	case NotifierTwitter:
		n := c.Notifier
		if n.TwitterConsumerKey == "" || n.TwitterConsumerSecret == "" || n.TwitterAccessToken == "" || n.TwitterAccessSecret == "" {
			errs = append(errs, errors.New("twitter notifier requires TWITTER_API_KEY, TWITTER_API_SECRET, TWITTER_ACCESS_TOKEN and TWITTER_ACCESS_SECRET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER %q", c.Notifier.Type))
	}

	return errors.Join(errs...)
}

// RequestTimeout returns REQUEST_TIMEOUT as a duration
func (s Scrape) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// RateLimitDelay returns RATE_LIMIT_DELAY as a duration
func (s Scrape) RateLimitDelay() time.Duration {
	return time.Duration(s.RateLimitDelaySeconds * float64(time.Second))
}

// ScrapeInterval returns the scheduler interval, never shorter than one hour
func (c *Config) ScrapeInterval() time.Duration {
	if c.ScrapeIntervalHours < 1 {
		return time.Hour
	}
	return time.Duration(c.ScrapeIntervalHours) * time.Hour
}

func (c *Config) String() string {
	return fmt.Sprintf("Config(city=%s, storage=%s)", c.DefaultCity, c.Storage.Type)
}
