package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"layer", "result"},
	)

	cacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"layer"},
	)

	cacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of cache invalidations",
		},
		[]string{"scope"},
	)

	// Queue metrics
	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_queue_depth",
			Help: "Number of operations currently pending in the sync queue",
		},
	)

	queueOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_queue_operations_total",
			Help: "Total number of queued operations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	drainDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_drain_duration_seconds",
			Help:    "Duration of queue drain passes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Connectivity metrics
	connectivityState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connectivity_online",
			Help: "Current connectivity state (1 = online, 0 = offline)",
		},
	)

	connectivityTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectivity_transitions_total",
			Help: "Total number of connectivity state transitions",
		},
		[]string{"to"},
	)

	// Remote store metrics
	remoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remote_requests_total",
			Help: "Total number of remote document store requests",
		},
		[]string{"operation", "status"},
	)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remote_request_duration_seconds",
			Help:    "Remote document store request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// RecordCacheLookup records a cache lookup outcome for a layer ("lru",
// "compact", "persistent").
func RecordCacheLookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(layer, result).Inc()
}

// RecordCacheEviction records a capacity eviction for a layer.
func RecordCacheEviction(layer string) {
	cacheEvictionsTotal.WithLabelValues(layer).Inc()
}

// RecordCacheInvalidation records an invalidation ("tenant" or "global").
func RecordCacheInvalidation(scope string) {
	cacheInvalidationsTotal.WithLabelValues(scope).Inc()
}

// SetQueueDepth sets the current pending operation count.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// RecordOperation records a queue operation outcome ("enqueued",
// "succeeded", "retried", "failed").
func RecordOperation(kind string, outcome string) {
	queueOperationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordDrainDuration records how long a drain pass took.
func RecordDrainDuration(d time.Duration) {
	drainDuration.Observe(d.Seconds())
}

// SetConnectivity records the current reachability state.
func SetConnectivity(online bool) {
	if online {
		connectivityState.Set(1)
		connectivityTransitionsTotal.WithLabelValues("online").Inc()
	} else {
		connectivityState.Set(0)
		connectivityTransitionsTotal.WithLabelValues("offline").Inc()
	}
}

// RecordRemoteRequest records a remote store call with its duration.
func RecordRemoteRequest(operation string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	remoteRequestsTotal.WithLabelValues(operation, status).Inc()
	remoteRequestDuration.WithLabelValues(operation).Observe(d.Seconds())
}
