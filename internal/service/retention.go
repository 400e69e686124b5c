package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sayless/sayless/internal/store"
)

// Retention prunes origin records whose parent link has aged past the
// retention window. It runs on its own cron schedule, outside any
// request path, and never touches link rows: the redirect mapping is
// kept indefinitely while creator attribution is pruned.
type Retention struct {
	store  *store.Store
	period time.Duration
	cron   *cron.Cron
	logger *slog.Logger
}

// NewRetention creates the scheduler. period is the retention window;
// schedule is a standard five-field cron expression.
func NewRetention(st *store.Store, period time.Duration, schedule string, logger *slog.Logger) (*Retention, error) {
	r := &Retention{
		store:  st,
		period: period,
		cron:   cron.New(),
		logger: logger,
	}

	_, err := r.cron.AddFunc(schedule, func() {
		// A failed run is logged and dropped; the next firing retries
		// naturally.
		if _, err := r.RunOnce(context.Background()); err != nil {
			r.logger.Error("origin retention run failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start launches the background schedule. Non-blocking.
func (r *Retention) Start() {
	r.logger.Info("origin retention scheduler started", "period", r.period.String())
	r.cron.Start()
}

// Stop halts the schedule and waits for any in-flight run to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("origin retention scheduler stopped")
}

// RunOnce performs one pruning pass and returns the number of origin
// rows removed. Exposed for the manual trigger and for tests.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-r.period)
	n, err := r.store.DeleteOriginsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Info("pruned origin records", "count", n, "cutoff", cutoff)
	}
	return n, nil
}
