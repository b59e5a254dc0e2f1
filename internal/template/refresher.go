package template

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"

	"github.com/fleetxds/control-plane/internal/metrics"
)

// RefreshSpec describes one entry's refresh cadence and retry policy.
// Exactly one of Interval or Cron should be set; Interval takes precedence
// if both are.
type RefreshSpec struct {
	Name          string
	Interval      time.Duration
	Cron          string
	NumRetries    int
	RetryInterval time.Duration
}

// Refresher runs each refreshable Context entry on its own schedule, via
// robfig/cron (interval schedules are expressed as "@every" entries on the
// same scheduler, so one clock drives both flavors).
type Refresher struct {
	ctx     *Context
	cron    *cron.Cron
	logger  *slog.Logger
	metrics *metrics.ContextMetrics
}

// NewRefresher builds a Refresher over ctx.
func NewRefresher(tc *Context, logger *slog.Logger, m *metrics.ContextMetrics) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		ctx:     tc,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
		metrics: m,
	}
}

// Schedule registers spec's entry with the scheduler. Call before Start.
func (r *Refresher) Schedule(spec RefreshSpec) error {
	expr := spec.Cron
	if spec.Interval > 0 {
		expr = fmt.Sprintf("@every %s", spec.Interval)
	}
	if expr == "" {
		return fmt.Errorf("refresh spec %q: neither Interval nor Cron is set", spec.Name)
	}

	_, err := r.cron.AddFunc(expr, func() {
		r.refreshWithRetry(spec)
	})
	if err != nil {
		return fmt.Errorf("schedule %q (%s): %w", spec.Name, expr, err)
	}
	return nil
}

// Start begins running scheduled refreshes in the background.
func (r *Refresher) Start() { r.cron.Start() }

// Stop halts the scheduler, waiting for any in-flight refresh to finish.
func (r *Refresher) Stop() { <-r.cron.Stop().Done() }

// refreshWithRetry retries spec's entry up to spec.NumRetries times with a
// fixed inter-retry backoff. If every attempt fails, the entry's prior
// value is retained (Context.Refresh never wrote over it) and a
// context_refresh_failed signal is logged.
func (r *Refresher) refreshWithRetry(spec RefreshSpec) {
	if r.metrics != nil {
		r.metrics.RefreshTotal.WithLabelValues(spec.Name).Inc()
	}

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(spec.RetryInterval), uint64(spec.NumRetries))
	err := backoff.Retry(func() error {
		return r.ctx.Refresh(context.Background(), spec.Name)
	}, b)

	if err != nil {
		if r.metrics != nil {
			r.metrics.RefreshFailureTotal.WithLabelValues(spec.Name).Inc()
		}
		r.logger.Warn("context_refresh_failed", "entry", spec.Name, "error", err)
	}
}
