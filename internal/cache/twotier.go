package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/fleetxds/control-plane/internal/config"
	"github.com/fleetxds/control-plane/internal/discovery"
	"github.com/fleetxds/control-plane/internal/metrics"
)

// TwoTier implements discovery.Cache: a mandatory Local LRU tier in front
// of an optional Remote Redis tier. A remote miss or error
// downgrades transparently to "ask the local tier to render"; this is the
// sole implementation of discovery.Cache in the repository.
type TwoTier struct {
	Local  *Local
	Remote *Remote

	remoteTimeout time.Duration
	metrics       *metrics.CacheMetrics
	logger        *slog.Logger
}

// Build constructs a TwoTier from cfg.DiscoveryCache. Returns (nil, nil) if caching is
// disabled — callers should treat a nil *TwoTier as "no cache" when
// assigning discovery.Engine.Cache.
func Build(cfg config.DiscoveryCacheConfig, m *metrics.CacheMetrics, logger *slog.Logger) (*TwoTier, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	local, err := NewLocal(cfg.LocalMaxEntries)
	if err != nil {
		return nil, err
	}

	tt := &TwoTier{Local: local, remoteTimeout: 2 * time.Second, metrics: m, logger: logger}

	if cfg.Remote != nil && cfg.Remote.Kind == "redis" {
		addr := cfg.Remote.Host
		if cfg.Remote.Port != 0 {
			addr = cfg.Remote.Host + ":" + strconv.Itoa(cfg.Remote.Port)
		}
		tt.Remote = NewRemote(addr, cfg.Remote.Password, 0, cfg.TTL, logger)
	}

	return tt, nil
}

// Get implements discovery.Cache.
func (t *TwoTier) Get(fingerprint string) (*discovery.Response, bool) {
	if resp, ok := t.Local.Get(fingerprint); ok {
		if t.metrics != nil {
			t.metrics.LocalHits.Inc()
		}
		return resp, true
	}
	if t.metrics != nil {
		t.metrics.LocalMisses.Inc()
	}

	if t.Remote == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.remoteTimeout)
	defer cancel()

	resp, ok, err := t.Remote.Get(ctx, fingerprint)
	if err != nil {
		if t.metrics != nil {
			t.metrics.RemoteErrors.Inc()
		}
		return nil, false
	}
	if !ok {
		if t.metrics != nil {
			t.metrics.RemoteMisses.Inc()
		}
		return nil, false
	}
	if t.metrics != nil {
		t.metrics.RemoteHits.Inc()
	}
	t.Local.Put(fingerprint, resp)
	return resp, true
}

// Put implements discovery.Cache. The local tier write is synchronous
// and infallible; the remote write, if configured, is fire-and-forget from
// the caller's perspective — Remote.Put already swallows and logs its own
// errors.
func (t *TwoTier) Put(fingerprint string, resp *discovery.Response) {
	t.Local.Put(fingerprint, resp)
	if t.Remote == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.remoteTimeout)
	defer cancel()
	if err := t.Remote.Put(ctx, fingerprint, resp); err != nil && t.metrics != nil {
		t.metrics.RemoteErrors.Inc()
	}
}

// Close releases the remote connection pool, if any.
func (t *TwoTier) Close() error {
	if t.Remote == nil {
		return nil
	}
	return t.Remote.Close()
}
