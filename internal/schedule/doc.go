// Package schedule runs jobs on a cron schedule with a shared base context.
package schedule
