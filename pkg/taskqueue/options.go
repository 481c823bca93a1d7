package taskqueue

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// QueueOption is a functional option for configuring a Queue
type QueueOption func(*queueOptions)

type queueOptions struct {
	signal Signal
	state  StateStore
	logger *slog.Logger
	now    func() time.Time
}

// WithSignal sets the work-signal bridge used to announce new tasks.
func WithSignal(s Signal) QueueOption {
	return func(o *queueOptions) {
		if s != nil {
			o.signal = s
		}
	}
}

// WithStateStore enables pause/resume backed by the given store.
func WithStateStore(s StateStore) QueueOption {
	return func(o *queueOptions) {
		if s != nil {
			o.state = s
		}
	}
}

// WithLogger sets the logger for the queue
func WithLogger(logger *slog.Logger) QueueOption {
	return func(o *queueOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNow sets the queue's time source.
func WithNow(now func() time.Time) QueueOption {
	return func(o *queueOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// JanitorOption is a functional option for configuring a Janitor
type JanitorOption func(*janitorOptions)

type janitorOptions struct {
	interval  time.Duration
	schedule  cron.Schedule
	retention time.Duration
	statuses  []Status
	logger    *slog.Logger
	now       func() time.Time
}

// WithCleanupInterval sets how often the janitor sweeps.
func WithCleanupInterval(d time.Duration) JanitorOption {
	return func(o *janitorOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithCleanupSchedule sweeps on a cron schedule instead of a fixed interval.
// See ParseCleanupSchedule.
func WithCleanupSchedule(schedule cron.Schedule) JanitorOption {
	return func(o *janitorOptions) {
		if schedule != nil {
			o.schedule = schedule
		}
	}
}

// WithRetention sets how long finished tasks are kept.
func WithRetention(d time.Duration) JanitorOption {
	return func(o *janitorOptions) {
		if d > 0 {
			o.retention = d
		}
	}
}

// WithCleanupStatuses overrides the terminal status set removed by the janitor.
func WithCleanupStatuses(statuses ...Status) JanitorOption {
	return func(o *janitorOptions) {
		if len(statuses) > 0 {
			o.statuses = statuses
		}
	}
}

// WithJanitorLogger sets the logger for the janitor
func WithJanitorLogger(logger *slog.Logger) JanitorOption {
	return func(o *janitorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithJanitorNow sets the janitor's time source.
func WithJanitorNow(now func() time.Time) JanitorOption {
	return func(o *janitorOptions) {
		if now != nil {
			o.now = now
		}
	}
}
