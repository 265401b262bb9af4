// Package metrics exposes Prometheus collectors for scrape and reconciliation
// cycles. A nil *Recorder is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the collectors and the registry they are registered with
type Recorder struct {
	registry *prometheus.Registry

	scraped       *prometheus.CounterVec
	scrapeErrors  *prometheus.CounterVec
	merged        *prometheus.CounterVec
	expired       prometheus.Counter
	pruned        prometheus.Counter
	storageErrors *prometheus.CounterVec
	stored        prometheus.Gauge
	cycleDur      prometheus.Histogram
	lastSuccessTS prometheus.Gauge
}

// New creates a Recorder with its own registry
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.scraped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "event_discovery",
		Name:      "scraped_events_total",
		Help:      "Events returned by scrapers",
	}, []string{"platform"})
	r.scrapeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "event_discovery",
		Name:      "scrape_errors_total",
		Help:      "Scrapes that failed as a whole",
	}, []string{"platform"})
	r.merged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "event_discovery",
		Name:      "merged_events_total",
		Help:      "Merge outcomes by kind",
	}, []string{"outcome"})
	r.expired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "event_discovery",
		Name:      "expired_events_total",
		Help:      "Events transitioned to Expired",
	})
	r.pruned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "event_discovery",
		Name:      "pruned_events_total",
		Help:      "Expired events removed from storage",
	})
	r.storageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "event_discovery",
		Name:      "storage_errors_total",
		Help:      "Storage failures by operation",
	}, []string{"backend", "op"})
	r.stored = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "event_discovery",
		Name:      "stored_events",
		Help:      "Events in storage after the last successful save",
	})
	r.cycleDur = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "event_discovery",
		Name:      "cycle_duration_seconds",
		Help:      "Time spent in one scrape and reconcile cycle",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
	r.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "event_discovery",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last cycle that saved successfully",
	})

	r.registry.MustRegister(
		r.scraped, r.scrapeErrors, r.merged, r.expired, r.pruned,
		r.storageErrors, r.stored, r.cycleDur, r.lastSuccessTS,
	)
	return r
}

// Registry returns the registry holding the collectors
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) Scraped(platform string, n int) {
	if r == nil {
		return
	}
	r.scraped.WithLabelValues(platform).Add(float64(n))
}

func (r *Recorder) ScrapeFailed(platform string) {
	if r == nil {
		return
	}
	r.scrapeErrors.WithLabelValues(platform).Inc()
}

// Merged records the outcome of one merge
func (r *Recorder) Merged(inserted, updated int) {
	if r == nil {
		return
	}
	r.merged.WithLabelValues("new").Add(float64(inserted))
	r.merged.WithLabelValues("updated").Add(float64(updated))
}

func (r *Recorder) Expired(n int) {
	if r == nil {
		return
	}
	r.expired.Add(float64(n))
}

func (r *Recorder) Pruned(n int) {
	if r == nil {
		return
	}
	r.pruned.Add(float64(n))
}

// StorageFailed counts a failed load or save
func (r *Recorder) StorageFailed(backend, op string) {
	if r == nil {
		return
	}
	r.storageErrors.WithLabelValues(backend, op).Inc()
}

// Stored sets the size of the persisted set
func (r *Recorder) Stored(n int) {
	if r == nil {
		return
	}
	r.stored.Set(float64(n))
}

// CycleFinished observes a cycle duration and, when saved, its completion time
func (r *Recorder) CycleFinished(d time.Duration, saved bool, at time.Time) {
	if r == nil {
		return
	}
	r.cycleDur.Observe(d.Seconds())
	if saved {
		r.lastSuccessTS.Set(float64(at.Unix()))
	}
}

// Handler serves the collectors in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics and /healthz on addr
type Server struct {
	server *http.Server
}

// NewServer builds a metrics server for r
func NewServer(addr string, r *Recorder) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{server: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Serve blocks until the server stops. A clean shutdown returns nil.
func (s *Server) Serve() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }
