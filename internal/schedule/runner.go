package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pfrederiksen/event-discovery/internal/logger"
)

// MinInterval is the shortest interval accepted by Every
const MinInterval = time.Hour

// Runner executes jobs on cron schedules. A job still running when its next
// activation comes up is skipped for that activation.
type Runner struct {
	cron    *cron.Cron
	log     *logger.Logger
	baseCtx context.Context
}

// New creates a Runner whose jobs receive baseCtx
func New(log *logger.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if log == nil {
		log = logger.Default()
	}
	cl := cronLogger{log: log}
	return &Runner{
		cron:    cron.New(cron.WithSeconds(), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		log:     log,
		baseCtx: baseCtx,
	}
}

// Add schedules job with a cron spec such as "0 30 * * * *" or "@every 6h"
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() { job(r.baseCtx) })
	if err != nil {
		return 0, fmt.Errorf("adding job %q: %w", spec, err)
	}
	return id, nil
}

// Every schedules job at a fixed interval, clamped to MinInterval
func (r *Runner) Every(interval time.Duration, job func(context.Context)) (cron.EntryID, error) {
	return r.Add(EverySpec(interval), job)
}

// EverySpec returns the "@every" spec for interval, clamped to MinInterval
func EverySpec(interval time.Duration) string {
	if interval < MinInterval {
		interval = MinInterval
	}
	return "@every " + interval.String()
}

// Next returns the next activation time of the job, or the zero time
func (r *Runner) Next(id cron.EntryID) time.Time {
	return r.cron.Entry(id).Next
}

func (r *Runner) Start() {
	r.log.Info("Scheduler started", logger.Fields{"jobs": len(r.cron.Entries())})
	r.cron.Start()
}

// Stop stops scheduling and waits for running jobs to finish
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.log.Info("Scheduler stopped", nil)
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, toFields(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, toFields(keysAndValues), err)
}

func toFields(keysAndValues []interface{}) logger.Fields {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make(logger.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
