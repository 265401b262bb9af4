package reconcile

import (
	"context"
	"time"

	"github.com/pfrederiksen/event-discovery/internal/event"
	"github.com/pfrederiksen/event-discovery/internal/lock"
	"github.com/pfrederiksen/event-discovery/internal/logger"
	"github.com/pfrederiksen/event-discovery/internal/metrics"
	"github.com/pfrederiksen/event-discovery/internal/storage"
)

// Engine reconciles scraped batches with a storage backend
type Engine struct {
	backend    storage.Backend
	daysOffset int
	now        func() time.Time
	locker     lock.Locker
	log        *logger.Logger
	metrics    *metrics.Recorder
}

// Option configures an Engine
type Option func(*Engine)

// WithDaysOffset sets how many days ahead of now an event already counts as
// expired. Negative values are treated as 0.
func WithDaysOffset(days int) Option {
	return func(e *Engine) {
		if days < 0 {
			days = 0
		}
		e.daysOffset = days
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocker replaces the default in-process lock
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine over backend
func New(backend storage.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		now:     time.Now,
		locker:  lock.NewMutex(),
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(logger.Fields{"backend": backend.Name()})
	return e
}

// Result summarizes one cycle. NewEvents holds the inserted records that are
// still current after the sweep; New counts every inserted record.
type Result struct {
	Scraped   int
	New       int
	Updated   int
	Expired   int
	Saved     bool
	NewEvents []*event.Event
}

// Load returns the stored set. Unlike the cycle operations it reports load
// errors to the caller.
func (e *Engine) Load(ctx context.Context) ([]*event.Event, error) {
	events, err := e.backend.Load(ctx)
	if err != nil {
		e.metrics.StorageFailed(e.backend.Name(), "load")
		return nil, err
	}
	return events, nil
}

// Save merges batch into the stored set and writes the result back. A load
// failure is logged and treated as an empty stored set.
func (e *Engine) Save(ctx context.Context, batch []*event.Event) bool {
	release, ok := e.acquire(ctx)
	if !ok {
		return false
	}
	defer release()

	existing := e.loadOrEmpty(ctx)
	_, ok = e.merge(ctx, batch, existing, &Result{})
	return ok
}

// MarkExpired sweeps the stored set and saves it when anything expired. It
// returns the number of records transitioned and persisted.
func (e *Engine) MarkExpired(ctx context.Context) int {
	release, ok := e.acquire(ctx)
	if !ok {
		return 0
	}
	defer release()

	events, err := e.Load(ctx)
	if err != nil {
		e.log.Error("Failed to load events for expiry sweep", nil, err)
		return 0
	}
	return e.sweep(ctx, events)
}

// Update replaces the stored record with the same ID, or appends evt.
func (e *Engine) Update(ctx context.Context, evt *event.Event) bool {
	if evt == nil {
		return false
	}
	release, ok := e.acquire(ctx)
	if !ok {
		return false
	}
	defer release()

	events, err := e.Load(ctx)
	if err != nil {
		e.log.Error("Failed to load events for update", logger.Fields{"event_id": evt.ID}, err)
		return false
	}
	return e.write(ctx, event.Upsert(events, evt))
}

// Delete removes the record identified by id. It reports false when the
// record is unknown or the save fails.
func (e *Engine) Delete(ctx context.Context, id string) bool {
	release, ok := e.acquire(ctx)
	if !ok {
		return false
	}
	defer release()

	events, err := e.Load(ctx)
	if err != nil {
		e.log.Error("Failed to load events for delete", logger.Fields{"event_id": id}, err)
		return false
	}
	kept, found := event.Remove(events, id)
	if !found {
		e.log.Warn("Event not found", logger.Fields{"event_id": id})
		return false
	}
	return e.write(ctx, kept)
}

// Prune removes Expired records last updated more than olderThanDays days ago
// and returns how many were removed and persisted.
func (e *Engine) Prune(ctx context.Context, olderThanDays int) int {
	release, ok := e.acquire(ctx)
	if !ok {
		return 0
	}
	defer release()

	events, err := e.Load(ctx)
	if err != nil {
		e.log.Error("Failed to load events for prune", nil, err)
		return 0
	}

	cutoff := e.now().AddDate(0, 0, -olderThanDays)
	kept, removed := event.PruneExpired(events, cutoff)
	if removed == 0 {
		return 0
	}
	if !e.write(ctx, kept) {
		return 0
	}
	e.metrics.Pruned(removed)
	e.log.Info("Pruned expired events", logger.Fields{"count": removed, "older_than_days": olderThanDays})
	return removed
}

// Run executes one cycle: merge batch, save, then sweep and save again when
// anything expired. An empty batch is not saved and skips the sweep.
func (e *Engine) Run(ctx context.Context, batch []*event.Event) Result {
	batch = compact(batch)
	res := Result{Scraped: len(batch)}
	if len(batch) == 0 {
		e.log.Warn("No events scraped", nil)
		return res
	}

	release, ok := e.acquire(ctx)
	if !ok {
		return res
	}
	defer release()

	existing := e.loadOrEmpty(ctx)
	res.NewEvents = event.Deduplicate(batch, existing)

	merged, ok := e.merge(ctx, batch, existing, &res)
	if !ok {
		return res
	}
	res.Saved = true
	res.Expired = e.sweep(ctx, merged)
	res.NewEvents = current(res.NewEvents, merged)
	return res
}

// current drops records that the sweep of merged marked Expired
func current(events, merged []*event.Event) []*event.Event {
	index := event.Index(merged)
	out := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if stored, ok := index[evt.ID]; ok && stored.Status == event.StatusExpired {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func (e *Engine) acquire(ctx context.Context) (func(), bool) {
	release, err := e.locker.Acquire(ctx)
	if err != nil {
		e.log.Error("Failed to acquire cycle lock", nil, err)
		return nil, false
	}
	return release, true
}

func (e *Engine) loadOrEmpty(ctx context.Context) []*event.Event {
	existing, err := e.Load(ctx)
	if err != nil {
		e.log.Warn("Failed to load existing events, treating store as empty", logger.Fields{"error": err.Error()})
		return []*event.Event{}
	}
	return existing
}

// merge folds batch into existing, saves it and fills the counts of res
func (e *Engine) merge(ctx context.Context, batch, existing []*event.Event, res *Result) ([]*event.Event, bool) {
	batch = compact(batch)
	known := event.Index(existing)
	fresh := make(map[string]struct{}, len(batch))
	for _, evt := range batch {
		if _, ok := known[evt.ID]; ok {
			res.Updated++
		} else {
			fresh[evt.ID] = struct{}{}
		}
	}
	res.New = len(fresh)

	merged := event.Merge(batch, existing)
	if !e.write(ctx, merged) {
		return nil, false
	}
	e.metrics.Merged(res.New, res.Updated)
	e.log.Info("Saved events", logger.Fields{"total": len(merged), "new": res.New, "updated": res.Updated})
	return merged, true
}

// sweep expires records and saves when anything changed
func (e *Engine) sweep(ctx context.Context, events []*event.Event) int {
	count := event.SweepExpired(events, e.daysOffset, e.now())
	if count == 0 {
		return 0
	}
	if !e.write(ctx, events) {
		return 0
	}
	e.metrics.Expired(count)
	e.log.Info("Marked events as expired", logger.Fields{"count": count, "days_offset": e.daysOffset})
	return count
}

func (e *Engine) write(ctx context.Context, events []*event.Event) bool {
	if err := e.backend.Save(ctx, events); err != nil {
		e.metrics.StorageFailed(e.backend.Name(), "save")
		e.log.Error("Failed to save events", logger.Fields{"count": len(events)}, err)
		return false
	}
	e.metrics.Stored(len(events))
	return true
}

func compact(events []*event.Event) []*event.Event {
	out := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if evt != nil {
			out = append(out, evt)
		}
	}
	return out
}
