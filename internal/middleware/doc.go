// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

/*
Package middleware provides the HTTP middleware shared by every cinerec route.

  - RequestID: accepts or generates an X-Request-ID and stores it in the
    request context so logging.Ctx attaches it to every log line
  - PrometheusMetrics: request count, latency and in-flight gauges, labelled
    by the chi route pattern so path parameters do not explode cardinality

Both are plain func(http.Handler) http.Handler and go straight into
chi's r.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
