package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wattrewards/wattrewards/pkg/logger"
	"github.com/wattrewards/wattrewards/pkg/metrics"
)

const defaultSchedule = "@hourly"

// ExpirySweeper removes rows whose expiry has passed using its own clock.
type ExpirySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// CodeSweeper removes verification codes that expired before now.
type CodeSweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Targets lists the stores swept by the Cleaner. Nil targets are skipped.
type Targets struct {
	Notifications ExpirySweeper
	OTPCodes      CodeSweeper
	Cache         ExpirySweeper
}

// Cleaner periodically removes expired notifications, verification codes and
// cache rows. Sweeps are an optimisation; reads already ignore expired rows.
type Cleaner struct {
	targets  Targets
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock passed to code sweeps.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron schedule shared by all sweeps.
func WithSchedule(schedule string) Option {
	return func(cleaner *Cleaner) {
		if schedule != "" {
			cleaner.schedule = schedule
		}
	}
}

// NewCleaner constructs a Cleaner for the provided targets.
func NewCleaner(targets Targets, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		targets:  targets,
		now:      time.Now,
		schedule: defaultSchedule,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.targets.Notifications != nil || c.targets.OTPCodes != nil || c.targets.Cache != nil
}

// Start registers the sweep job and launches the scheduler when at least one target is set.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("expiry sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured sweep. A failing sweep does not stop the others.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.targets.Notifications != nil {
		errs = multierr.Append(errs, c.record("notifications", func() (int64, error) {
			return c.targets.Notifications.SweepExpired(ctx)
		}))
	}

	if c.targets.OTPCodes != nil {
		errs = multierr.Append(errs, c.record("one_time_codes", func() (int64, error) {
			return c.targets.OTPCodes.DeleteExpired(ctx, c.now())
		}))
	}

	if c.targets.Cache != nil {
		errs = multierr.Append(errs, c.record("cache_entries", func() (int64, error) {
			return c.targets.Cache.SweepExpired(ctx)
		}))
	}

	return errs
}

func (c *Cleaner) record(table string, sweep func() (int64, error)) error {
	removed, err := sweep()
	if err != nil {
		return fmt.Errorf("maintenance: sweep %s: %w", table, err)
	}
	if removed > 0 {
		metrics.ExpiredRecordsSwept.WithLabelValues(table).Add(float64(removed))
		c.log.Debug("expired records removed", zap.String("table", table), zap.Int64("count", removed))
	}
	return nil
}
