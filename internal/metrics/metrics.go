// Package metrics provides the centralized Prometheus metrics registry
// for the betting service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	UpstreamFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mysportsbet",
		Name:      "upstream_fetches_total",
		Help:      "Total number of upstream odds API fetches",
	}, []string{"market", "result"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mysportsbet",
		Name:      "cache_hits_total",
		Help:      "Total number of market snapshot cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mysportsbet",
		Name:      "cache_misses_total",
		Help:      "Total number of market snapshot cache misses",
	})
	StaleServesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mysportsbet",
		Name:      "stale_serves_total",
		Help:      "Total number of snapshots served stale after upstream failure or budget exhaustion",
	})
	DataQualityFaultsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mysportsbet",
		Name:      "data_quality_faults_total",
		Help:      "Total number of malformed upstream payloads rejected",
	})
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mysportsbet",
		Name:      "predictions_total",
		Help:      "Total number of ensemble predictions served",
	}, []string{"sport", "source"})
	OutcomesRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mysportsbet",
		Name:      "outcomes_recorded_total",
		Help:      "Total number of settled outcomes recorded",
	})
	ArbitrageFoundTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mysportsbet",
		Name:      "arbitrage_found_total",
		Help:      "Total number of arbitrage opportunities detected",
	})
	BucketRecomputesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mysportsbet",
		Name:      "bucket_recomputes_total",
		Help:      "Total number of calibration bucket adjustment recomputes",
	})
)

// Gauge metrics
var (
	BudgetRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mysportsbet",
		Name:      "budget_remaining",
		Help:      "Upstream requests remaining in the current budget period",
	})
	SnapshotCacheSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mysportsbet",
		Name:      "snapshot_cache_size",
		Help:      "Number of market snapshots currently cached",
	})
	PredictionCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mysportsbet",
		Name:      "prediction_cache_hit_ratio",
		Help:      "Hit ratio of the prediction memo cache",
	})
	BucketAdjustmentFactor = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mysportsbet",
		Name:      "bucket_adjustment_factor",
		Help:      "Current adjustment factor per calibration bucket",
	}, []string{"sport", "bucket"})
	ModelsAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mysportsbet",
		Name:      "models_available",
		Help:      "Number of ensemble sub-models available per sport",
	}, []string{"sport"})
)

// Histogram metrics
var (
	UpstreamFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mysportsbet",
		Name:      "upstream_fetch_latency_seconds",
		Help:      "Latency of upstream odds fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	PredictionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mysportsbet",
		Name:      "prediction_latency_seconds",
		Help:      "Latency of ensemble prediction calls in seconds",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(UpstreamFetchesTotal)
		registry.MustRegister(CacheHitsTotal)
		registry.MustRegister(CacheMissesTotal)
		registry.MustRegister(StaleServesTotal)
		registry.MustRegister(DataQualityFaultsTotal)
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(OutcomesRecordedTotal)
		registry.MustRegister(ArbitrageFoundTotal)
		registry.MustRegister(BucketRecomputesTotal)

		registry.MustRegister(BudgetRemaining)
		registry.MustRegister(SnapshotCacheSize)
		registry.MustRegister(PredictionCacheHitRatio)
		registry.MustRegister(BucketAdjustmentFactor)
		registry.MustRegister(ModelsAvailable)

		registry.MustRegister(UpstreamFetchLatency)
		registry.MustRegister(PredictionLatency)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}
