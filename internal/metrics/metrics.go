// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recommendation paths.
const (
	PathKnown       = "known"
	PathColdStart   = "cold_start"
	PathUnknownUser = "unknown_user"
)

// Training triggers.
const (
	TriggerStartup  = "startup"
	TriggerFeedback = "feedback"
	TriggerManual   = "manual"
	TriggerEvent    = "event"
	TriggerInterval = "interval"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests by scoring path",
		},
		[]string{"path"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Recommendation scoring duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"path"},
	)

	RecommendItemsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_items_returned",
			Help:    "Number of items in each recommendation response",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	// Feedback Metrics
	FeedbackSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feedback_submitted_total",
			Help: "Total number of feedback ratings accepted",
		},
	)

	FeedbackPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feedback_pending",
			Help: "Feedback submissions since the last merge",
		},
	)

	// Training Metrics
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of training runs",
		},
		[]string{"trigger", "result"},
	)

	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of training runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"trigger"},
	)

	TrainingLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful training run",
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Version of the serving model snapshot",
		},
	)

	ModelUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_users",
			Help: "Users in the serving model snapshot",
		},
	)

	ModelItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_items",
			Help: "Items in the serving model snapshot",
		},
	)

	SnapshotStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapshot_store_duration_seconds",
			Help:    "Duration of snapshot save and load operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Retrain event metrics
	RetrainEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrain_events_total",
			Help: "Retrain request events published and consumed",
		},
		[]string{"direction"}, // "published", "consumed", "dropped"
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendation records one scored request.
func RecordRecommendation(path string, items int, duration time.Duration) {
	RecommendRequests.WithLabelValues(path).Inc()
	RecommendDuration.WithLabelValues(path).Observe(duration.Seconds())
	RecommendItemsReturned.Observe(float64(items))
}

// RecordRecommendCache records a cache lookup.
func RecordRecommendCache(hit bool) {
	if hit {
		RecommendCacheHits.Inc()
	} else {
		RecommendCacheMisses.Inc()
	}
}

// RecordFeedback records an accepted rating and the pending count after it.
func RecordFeedback(pending int) {
	FeedbackSubmitted.Inc()
	FeedbackPending.Set(float64(pending))
}

// RecordTraining records a training run.
func RecordTraining(trigger string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	TrainingRuns.WithLabelValues(trigger, result).Inc()
	TrainingDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	if err == nil {
		TrainingLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// SetModel publishes the shape of the serving snapshot.
func SetModel(version int64, users, items int) {
	ModelVersion.Set(float64(version))
	ModelUsers.Set(float64(users))
	ModelItems.Set(float64(items))
}

// RecordSnapshotStore records a snapshot save or load.
func RecordSnapshotStore(operation string, duration time.Duration) {
	SnapshotStoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// BreakerStateValue maps a breaker state name to the circuit_breaker_state
// gauge value.
func BreakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordBreakerTransition records a state change and updates the gauge.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(BreakerStateValue(to))
}

// RecordBreakerRequest records a call through a breaker.
func RecordBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordRetrainEvent records a retrain event publish, consume or drop.
func RecordRetrainEvent(direction string) {
	RetrainEvents.WithLabelValues(direction).Inc()
}
