// Package metrics is the centralized Prometheus registry for the control
// plane, grouped by subsystem the way a single flat list of counters isn't:
// discovery (request path), ingestion (source poller), cache, and context
// (template-context refresh).
//
// Naming follows <namespace>_<subsystem>_<metric>_<unit>.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the central collection of metrics. Use Default() for the
// process-wide singleton registered against prometheus.DefaultRegisterer.
type Registry struct {
	namespace string

	Discovery *DiscoveryMetrics
	Ingestion *IngestionMetrics
	Cache     *CacheMetrics
	Context   *ContextMetrics
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the global Registry, built once.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New("xds_control_plane")
	})
	return defaultRegistry
}

// New builds a Registry under namespace, registering every collector with
// promauto's default registerer.
func New(namespace string) *Registry {
	return &Registry{
		namespace: namespace,
		Discovery: newDiscoveryMetrics(namespace),
		Ingestion: newIngestionMetrics(namespace),
		Cache:     newCacheMetrics(namespace),
		Context:   newContextMetrics(namespace),
	}
}

// DiscoveryMetrics instruments the discover() request path.
type DiscoveryMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	UnchangedTotal  *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	RenderDuration  *prometheus.HistogramVec
	RequestDuration *prometheus.HistogramVec
}

func newDiscoveryMetrics(namespace string) *DiscoveryMetrics {
	return &DiscoveryMetrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "requests_total",
			Help:      "Discovery requests handled, by resource type and proxy version.",
		}, []string{"resource_type", "proxy_version"}),
		UnchangedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "unchanged_total",
			Help:      "Discovery requests answered with the unchanged (no-op) response.",
		}, []string{"resource_type"}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "errors_total",
			Help:      "Discovery requests that failed, by error kind.",
		}, []string{"resource_type", "kind"}),
		RenderDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering and parsing a template on a cache miss.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource_type"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "request_duration_seconds",
			Help:      "End-to-end discover() latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource_type"}),
	}
}

// IngestionMetrics instruments the source poller.
type IngestionMetrics struct {
	PollsTotal        *prometheus.CounterVec
	PollFailuresTotal *prometheus.CounterVec
	InstancesGauge    *prometheus.GaugeVec
	PollDuration      prometheus.Histogram
	GenerationID      prometheus.Gauge
}

func newIngestionMetrics(namespace string) *IngestionMetrics {
	return &IngestionMetrics{
		PollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "polls_total",
			Help:      "Source poll cycles completed, by outcome.",
		}, []string{"outcome"}),
		PollFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "poll_failures_total",
			Help:      "Poll cycle failures, by source type.",
		}, []string{"source_type"}),
		InstancesGauge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "instances",
			Help:      "Instances currently held per scope.",
		}, []string{"scope"}),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "poll_duration_seconds",
			Help:      "Duration of a full poll cycle across all sources.",
			Buckets:   prometheus.DefBuckets,
		}),
		GenerationID: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "generation",
			Help:      "Monotonically increasing counter of published instance-store generations.",
		}),
	}
}

// CacheMetrics instruments the two-tier discovery cache.
type CacheMetrics struct {
	LocalHits    prometheus.Counter
	LocalMisses  prometheus.Counter
	RemoteHits   prometheus.Counter
	RemoteMisses prometheus.Counter
	RemoteErrors prometheus.Counter
}

func newCacheMetrics(namespace string) *CacheMetrics {
	return &CacheMetrics{
		LocalHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "local_hits_total",
			Help: "Local LRU tier hits.",
		}),
		LocalMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "local_misses_total",
			Help: "Local LRU tier misses.",
		}),
		RemoteHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "remote_hits_total",
			Help: "Remote (Redis) tier hits.",
		}),
		RemoteMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "remote_misses_total",
			Help: "Remote (Redis) tier misses.",
		}),
		RemoteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "remote_errors_total",
			Help: "Remote tier operations that failed and were downgraded to local-only.",
		}),
	}
}

// ContextMetrics instruments template-context refresh.
type ContextMetrics struct {
	RefreshTotal        *prometheus.CounterVec
	RefreshFailureTotal *prometheus.CounterVec
}

func newContextMetrics(namespace string) *ContextMetrics {
	return &ContextMetrics{
		RefreshTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "context",
			Name:      "refresh_total",
			Help:      "Template-context entry refreshes attempted, by entry name.",
		}, []string{"entry"}),
		RefreshFailureTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "context",
			Name:      "refresh_failures_total",
			Help:      "Template-context entry refreshes that exhausted retries.",
		}, []string{"entry"}),
	}
}
