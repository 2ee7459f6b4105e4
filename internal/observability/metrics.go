// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Preload metrics
	PreloadsTotal    *prometheus.CounterVec
	PreloadArtifacts prometheus.Gauge
	PreloadDuration  prometheus.Histogram
	RefreshRunsTotal *prometheus.CounterVec

	// Execution metrics
	ExecutionsTotal   *prometheus.CounterVec
	CacheHitsTotal    prometheus.Counter
	CacheMissesTotal  prometheus.Counter
	RebuildsTotal     prometheus.Counter
	ExecutionDuration *prometheus.HistogramVec

	// Submission metrics
	SubmissionsTotal      *prometheus.CounterVec
	RateLimitRetriesTotal prometheus.Counter
	FallbacksTotal        prometheus.Counter

	// Confirmation metrics
	ConfirmationsTotal *prometheus.CounterVec
	ConfirmLatency     prometheus.Histogram

	// Solana client metrics
	RPCCallLatency   *prometheus.HistogramVec
	WSMessageLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "tradeengine"
	}

	return &Metrics{
		// Preload metrics
		PreloadsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preload",
			Name:      "runs_total",
			Help:      "Total number of preload runs by result",
		}, []string{"result"}),
		PreloadArtifacts: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "preload",
			Name:      "artifacts",
			Help:      "Number of artifacts in the current cache generation",
		}),
		PreloadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "preload",
			Name:      "duration_seconds",
			Help:      "Preload build duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RefreshRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preload",
			Name:      "refresh_runs_total",
			Help:      "Total number of background refresh runs by result",
		}, []string{"result"}),

		// Execution metrics
		ExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "runs_total",
			Help:      "Total number of trade executions by side and status",
		}, []string{"side", "status"}),
		CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "cache_hits_total",
			Help:      "Total number of executions served from the preload cache",
		}),
		CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "cache_misses_total",
			Help:      "Total number of executions that rebuilt synchronously",
		}),
		RebuildsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "rebuilds_total",
			Help:      "Total number of rebuild-and-retry attempts after a cached artifact was rejected",
		}),
		ExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "duration_seconds",
			Help:      "End-to-end execution duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"side"}),

		// Submission metrics
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "submissions_total",
			Help:      "Total number of submissions by route",
		}, []string{"route"}),
		RateLimitRetriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "rate_limit_retries_total",
			Help:      "Total number of priority sends retried after a rate limit",
		}),
		FallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "submit",
			Name:      "fallbacks_total",
			Help:      "Total number of submissions that fell back to the direct channel",
		}),

		// Confirmation metrics
		ConfirmationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "confirm",
			Name:      "outcomes_total",
			Help:      "Total number of confirmation outcomes",
		}, []string{"outcome"}),
		ConfirmLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "confirm",
			Name:      "latency_seconds",
			Help:      "Latency from submission to confirmed signature in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 15, 30, 60},
		}),

		// Solana client metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPreload records one preload run.
func RecordPreload(ok bool, artifacts int, seconds float64) {
	result := "success"
	if !ok {
		result = "failure"
	}
	DefaultMetrics.PreloadsTotal.WithLabelValues(result).Inc()
	DefaultMetrics.PreloadDuration.Observe(seconds)
	if ok {
		DefaultMetrics.PreloadArtifacts.Set(float64(artifacts))
	}
}

// RecordCacheCleared zeroes the artifact gauge after an execution
// consumed the cache or the tracked token changed.
func RecordCacheCleared() {
	DefaultMetrics.PreloadArtifacts.Set(0)
}

// RecordRefresh records one background refresh run.
func RecordRefresh(ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	DefaultMetrics.RefreshRunsTotal.WithLabelValues(result).Inc()
}

// RecordExecution records one trade execution terminal state.
func RecordExecution(side, status string, seconds float64) {
	DefaultMetrics.ExecutionsTotal.WithLabelValues(side, status).Inc()
	DefaultMetrics.ExecutionDuration.WithLabelValues(side).Observe(seconds)
}

// RecordCacheDecision records whether the pipeline used the preload cache.
func RecordCacheDecision(hit bool) {
	if hit {
		DefaultMetrics.CacheHitsTotal.Inc()
	} else {
		DefaultMetrics.CacheMissesTotal.Inc()
	}
}

// RecordRebuilds adds the rebuild-and-retry count of one execution.
func RecordRebuilds(n int) {
	if n > 0 {
		DefaultMetrics.RebuildsTotal.Add(float64(n))
	}
}

// RecordSubmission records a submission on the given route.
func RecordSubmission(route string) {
	DefaultMetrics.SubmissionsTotal.WithLabelValues(route).Inc()
}

// RecordRateLimitRetry records one rate-limited priority send retry.
func RecordRateLimitRetry() {
	DefaultMetrics.RateLimitRetriesTotal.Inc()
}

// RecordFallback records a priority-to-direct fallback.
func RecordFallback() {
	DefaultMetrics.FallbacksTotal.Inc()
}

// RecordConfirmation records one confirmation outcome.
func RecordConfirmation(outcome string, seconds float64) {
	DefaultMetrics.ConfirmationsTotal.WithLabelValues(outcome).Inc()
	if outcome == "confirmed" {
		DefaultMetrics.ConfirmLatency.Observe(seconds)
	}
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordWSMessage records WebSocket message processing latency.
func RecordWSMessage(seconds float64) {
	DefaultMetrics.WSMessageLatency.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
