// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

/*
Package metrics declares the Prometheus metrics exported on /metrics.

All collectors are registered on the default registry through promauto at
package init. Callers use the Record* helpers rather than touching the
collectors directly so label values stay consistent.

# Metric Families

API:
  - api_requests_total{method, endpoint, status}
  - api_request_duration_seconds{method, endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Recommendations:
  - recommend_requests_total{path}: path is known, cold_start or unknown_user
  - recommend_duration_seconds{path}
  - recommend_items_returned
  - recommend_cache_hits_total, recommend_cache_misses_total

Feedback and training:
  - feedback_submitted_total
  - feedback_pending
  - training_runs_total{trigger, result}
  - training_duration_seconds{trigger}
  - training_last_success_timestamp_seconds
  - model_version, model_users, model_items
  - snapshot_store_duration_seconds{operation}

Retrain supervision:
  - circuit_breaker_state{name}
  - circuit_breaker_requests_total{name, result}
  - circuit_breaker_state_transitions_total{name, from_state, to_state}
  - retrain_events_total{direction}
*/
package metrics
