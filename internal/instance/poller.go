package instance

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fleetxds/control-plane/internal/instance/transform"
	"github.com/fleetxds/control-plane/internal/metrics"
)

// SourceSpec binds one configured Source to the scope its instances
// belong to; scope "" is normalized to
// DefaultScope.
type SourceSpec struct {
	Type  string
	Scope string
	Src   Source
}

// PollerConfig controls the background refresh loop.
type PollerConfig struct {
	RefreshRate      time.Duration
	GlobalModifiers  []string
	PerInstModifiers []string
	// CircuitThreshold is the number of consecutive poll failures after
	// which the last error is raised to the observability channel.
	// It never stops the loop.
	CircuitThreshold int
}

// Poller periodically materializes instances from its configured sources
// into Store. It is the Store's only
// writer.
type Poller struct {
	store      *Store
	specs      []SourceSpec
	transforms *transform.Registry
	cfg        PollerConfig
	logger     *slog.Logger
	metrics    *metrics.IngestionMetrics

	consecutiveFailures int
	lastGoodChecksum    string

	// rawScopes holds the last successfully-fetched, pre-transform instance
	// set, for internal/admin's "dump instances (raw and post-transform
	// variants)" operation.
	rawScopes atomic.Pointer[map[string][]Instance]
}

// NewPoller builds a Poller writing into store from specs.
func NewPoller(store *Store, specs []SourceSpec, transforms *transform.Registry, cfg PollerConfig, logger *slog.Logger, m *metrics.IngestionMetrics) *Poller {
	if cfg.CircuitThreshold <= 0 {
		cfg.CircuitThreshold = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		store:      store,
		specs:      specs,
		transforms: transforms,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

// InitialLoad performs one blocking poll cycle. Callers must wait for this
// to succeed before serving discovery requests: there is no last-good generation to fall back to yet.
func (p *Poller) InitialLoad(ctx context.Context) error {
	return p.pollOnce(ctx)
}

// Run blocks, polling every cfg.RefreshRate until ctx is cancelled.
// Poll failures never propagate out of Run; they
// are logged and retried on the next tick.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.RefreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.pollOnce(ctx); err != nil {
				p.logger.Error("poll_failed", "error", err, "consecutive_failures", p.consecutiveFailures)
			}
		}
	}
}

// Snapshot returns the Store's currently published generation. Readers
// always see an internally-consistent view.
func (p *Poller) Snapshot() *Store {
	return p.store
}

// RawSnapshot returns the last successfully-fetched, pre-transform instance
// set by scope — the "raw" half of internal/admin's instance dump.
// Nil until the first successful poll cycle.
func (p *Poller) RawSnapshot() map[string][]Instance {
	raw := p.rawScopes.Load()
	if raw == nil {
		return nil
	}
	return *raw
}

// pollOnce runs one poll cycle: fetch every source sequentially, merge by
// scope, apply global then per-instance transforms, publish a new
// generation. Any source or transform failure aborts the whole cycle and
// leaves the store's last-good generation untouched.
func (p *Poller) pollOnce(ctx context.Context) error {
	start := time.Now()
	scopes := make(map[string][]Instance)

	for _, spec := range p.specs {
		scope := spec.Scope
		if scope == "" {
			scope = DefaultScope
		}
		instances, err := spec.Src.Get(ctx)
		if err != nil {
			p.recordFailure(spec.Type, err)
			return &SourceError{SourceType: spec.Type, Scope: scope, Cause: err}
		}
		scopes[scope] = append(scopes[scope], instances...)
	}

	checksum, err := ComputeGeneration(scopes)
	if err != nil {
		p.recordFailure("checksum", err)
		return fmt.Errorf("compute generation checksum: %w", err)
	}

	raw := make(map[string][]Instance, len(scopes))
	for scope, instances := range scopes {
		raw[scope] = append([]Instance(nil), instances...)
	}
	p.rawScopes.Store(&raw)

	if checksum == p.lastGoodChecksum {
		p.recordSuccess("unchanged", len(scopes))
		return nil
	}

	for _, name := range p.cfg.GlobalModifiers {
		mod, err := p.transforms.Global(name)
		if err != nil {
			p.recordFailure(name, err)
			return fmt.Errorf("global modifier %q: %w", name, err)
		}
		for scope, instances := range scopes {
			applied, err := mod.Apply(scope, instances)
			if err != nil {
				// Roll back this scope rather than the whole cycle.
				p.logger.Warn("global modifier failed, scope rolled back",
					"modifier", name, "scope", scope, "error", err)
				continue
			}
			scopes[scope] = applied
		}
	}

	for _, name := range p.cfg.PerInstModifiers {
		mod, err := p.transforms.PerInstance(name)
		if err != nil {
			p.recordFailure(name, err)
			return fmt.Errorf("per-instance modifier %q: %w", name, err)
		}
		for scope, instances := range scopes {
			filtered := make([]Instance, 0, len(instances))
			for _, inst := range instances {
				out, err := mod.Apply(inst)
				if err != nil {
					p.logger.Warn("per-instance modifier dropped instance",
						"modifier", name, "scope", scope, "error", err)
					continue
				}
				filtered = append(filtered, out)
			}
			scopes[scope] = filtered
		}
	}

	generation, err := ComputeGeneration(scopes)
	if err != nil {
		p.recordFailure("checksum", err)
		return fmt.Errorf("compute post-transform generation: %w", err)
	}

	p.store.Publish(generation, scopes)
	p.lastGoodChecksum = checksum
	p.consecutiveFailures = 0
	p.recordSuccess("ok", len(scopes))

	if p.metrics != nil {
		p.metrics.PollDuration.Observe(time.Since(start).Seconds())
		for scope, instances := range scopes {
			p.metrics.InstancesGauge.WithLabelValues(scope).Set(float64(len(instances)))
		}
	}
	return nil
}

func (p *Poller) recordSuccess(outcome string, scopeCount int) {
	if p.metrics == nil {
		return
	}
	p.metrics.PollsTotal.WithLabelValues(outcome).Inc()
}

func (p *Poller) recordFailure(sourceType string, cause error) {
	p.consecutiveFailures++
	if p.metrics != nil {
		p.metrics.PollsTotal.WithLabelValues("failed").Inc()
		p.metrics.PollFailuresTotal.WithLabelValues(sourceType).Inc()
	}
	if p.consecutiveFailures >= p.cfg.CircuitThreshold {
		p.logger.Error("poll circuit threshold exceeded",
			"consecutive_failures", p.consecutiveFailures, "last_error", cause)
	}
}

// backoffFor builds the bounded retry policy used by callers (e.g. a
// startup retry around InitialLoad) that want InitialLoad to tolerate
// transient failures before the process gives up.
func backoffFor(maxElapsed time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	return b
}

// InitialLoadWithRetry retries InitialLoad with exponential backoff up to
// maxElapsed. The first load must succeed before the process serves
// requests; the retry keeps a single transient hiccup from being fatal.
func (p *Poller) InitialLoadWithRetry(ctx context.Context, maxElapsed time.Duration) error {
	return backoff.Retry(func() error {
		return p.InitialLoad(ctx)
	}, backoff.WithContext(backoffFor(maxElapsed), ctx))
}
