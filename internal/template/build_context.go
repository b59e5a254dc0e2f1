package template

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetxds/control-plane/internal/config"
	"github.com/fleetxds/control-plane/internal/loader"
	"github.com/fleetxds/control-plane/internal/metrics"
)

// BuildContext materializes a Context from cfg.TemplateContext, registering every named entry as a Loadable backed
// by loc, and building the Refresher that keeps refreshable entries current
// when cfg.Refresh is set. All entries share the one configured cadence:
// the template_context block carries a single refresh_rate/refresh_cron,
// not one per entry.
func BuildContext(ctx context.Context, cfg config.TemplateContextConfig, registry *loader.Registry, m *metrics.ContextMetrics) (*Context, *Refresher, error) {
	tc := NewContext(nil)

	for name, loc := range cfg.Context {
		loc := loc
		load := func(ctx context.Context) (any, error) {
			v, err := registry.Load(ctx, loc)
			if err != nil {
				return nil, fmt.Errorf("load context entry %s: %w", loc, err)
			}
			return v, nil
		}
		if err := tc.Add(ctx, name, load); err != nil {
			return nil, nil, err
		}
	}

	if !cfg.Refresh {
		return tc, nil, nil
	}

	refresher := NewRefresher(tc, nil, m)
	for name := range cfg.Context {
		spec := RefreshSpec{
			Name:          name,
			Interval:      cfg.RefreshRate,
			Cron:          cfg.RefreshCron,
			NumRetries:    cfg.RefreshNumRetries,
			RetryInterval: time.Duration(cfg.RefreshRetryIntervalSecs) * time.Second,
		}
		if cfg.RefreshCron != "" {
			spec.Interval = 0
		}
		if err := refresher.Schedule(spec); err != nil {
			return nil, nil, fmt.Errorf("schedule refresh for %q: %w", name, err)
		}
	}
	return tc, refresher, nil
}
