// Package maintenance runs periodic housekeeping for the stub backend.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/grachmannico95/bankline/pkg/logger"
)

const (
	defaultSchedule = "@every 1m"
	defaultWindow   = 24 * time.Hour
)

// IdempotencyPruner drops idempotency records created before a cutoff.
type IdempotencyPruner interface {
	PruneIdempotency(ctx context.Context, olderThan time.Time) (int, error)
}

type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, mostly for tests.
func WithCron(c *cron.Cron) Option {
	return func(cl *Cleaner) {
		if c != nil {
			cl.cron = c
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(cl *Cleaner) {
		if now != nil {
			cl.now = now
		}
	}
}

func WithSchedule(expr string) Option {
	return func(cl *Cleaner) {
		if expr != "" {
			cl.schedule = expr
		}
	}
}

// WithWindow sets how long a replayable response is kept.
func WithWindow(d time.Duration) Option {
	return func(cl *Cleaner) {
		if d > 0 {
			cl.window = d
		}
	}
}

// Cleaner expires idempotency records on a cron schedule.
type Cleaner struct {
	pruner   IdempotencyPruner
	cron     *cron.Cron
	now      func() time.Time
	logger   *logger.Logger
	schedule string
	window   time.Duration
}

func NewCleaner(pruner IdempotencyPruner, log *logger.Logger, opts ...Option) *Cleaner {
	if log == nil {
		log = logger.NewNop()
	}
	cl := &Cleaner{
		pruner:   pruner,
		now:      time.Now,
		logger:   log,
		schedule: defaultSchedule,
		window:   defaultWindow,
	}
	for _, opt := range opts {
		opt(cl)
	}
	if cl.cron == nil {
		cl.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cl
}

// Start registers the prune job and launches the scheduler.
func (c *Cleaner) Start() error {
	if c.pruner == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if _, err := c.RunOnce(context.Background()); err != nil {
			c.logger.Warn(context.Background(), "Idempotency cleanup failed", "error", err)
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	c.logger.Info(context.Background(), "Maintenance scheduler started",
		"schedule", c.schedule,
		"window", c.window.String(),
	)
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	return c.cron.Stop()
}

// RunOnce prunes records older than the window and reports how many went.
func (c *Cleaner) RunOnce(ctx context.Context) (int, error) {
	if c.pruner == nil {
		return 0, nil
	}

	removed, err := c.pruner.PruneIdempotency(ctx, c.now().Add(-c.window))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.logger.Debug(ctx, "Pruned idempotency records", "removed", removed)
	}
	return removed, nil
}
