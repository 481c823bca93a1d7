package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/agentscheduler/pkg/logger"
)

// Cleaner deletes finished tasks older than a cutoff. *Queue implements it.
type Cleaner interface {
	Cleanup(ctx context.Context, before time.Time, statuses ...Status) (int64, error)
}

// Janitor periodically removes finished, unbookmarked tasks past retention.
type Janitor struct {
	cleaner   Cleaner
	interval  time.Duration
	schedule  cron.Schedule
	retention time.Duration
	statuses  []Status
	logger    *slog.Logger
	now       func() time.Time
}

// NewJanitor creates a janitor. Defaults: hourly sweeps, 30 days retention,
// terminal statuses.
func NewJanitor(cleaner Cleaner, opts ...JanitorOption) (*Janitor, error) {
	if cleaner == nil {
		return nil, ErrStorageNil
	}

	options := &janitorOptions{
		interval:  time.Hour,
		retention: 30 * 24 * time.Hour,
		statuses:  TerminalStatuses(),
		logger:    slog.Default(),
		now:       utcNow,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Janitor{
		cleaner:   cleaner,
		interval:  options.interval,
		schedule:  options.schedule,
		retention: options.retention,
		statuses:  options.statuses,
		logger:    options.logger.With(logger.Component("janitor")),
		now:       options.now,
	}, nil
}

// Sweep runs one cleanup pass.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()
	cutoff := j.now().Add(-j.retention)

	n, err := j.cleaner.Cleanup(ctx, cutoff, j.statuses...)
	if err != nil {
		return 0, err
	}

	j.logger.DebugContext(ctx, "sweep finished",
		logger.Count(n),
		slog.Time("cutoff", cutoff),
		logger.Duration(time.Since(start)))

	return n, nil
}

// ParseCleanupSchedule parses a standard five field cron expression or a
// descriptor such as "@daily" or "@every 30m".
func ParseCleanupSchedule(expr string) (cron.Schedule, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%w: invalid cleanup schedule %q", ErrValidation, expr), err)
	}
	return sched, nil
}

// Run returns a function suitable for errgroup that sweeps on the cleanup
// schedule, or every interval without one, until ctx is cancelled. Sweep
// errors are logged and do not stop the loop.
func (j *Janitor) Run(ctx context.Context) func() error {
	return func() error {
		j.logger.InfoContext(ctx, "janitor started",
			logger.Duration(j.interval),
			slog.Bool("scheduled", j.schedule != nil),
			slog.Duration("retention", j.retention))

		timer := time.NewTimer(j.wait(time.Now()))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				j.logger.InfoContext(ctx, "janitor stopped")
				return nil
			case <-timer.C:
				if _, err := j.Sweep(ctx); err != nil {
					j.logger.ErrorContext(ctx, "sweep failed", logger.Error(err))
				}
				timer.Reset(j.wait(time.Now()))
			}
		}
	}
}

// wait returns the delay until the next sweep.
func (j *Janitor) wait(now time.Time) time.Duration {
	if j.schedule == nil {
		return j.interval
	}
	return max(j.schedule.Next(now).Sub(now), 0)
}
