// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cinerec/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. mw may be nil for defaults.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi builds the route tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	// Probes are not rate limited.
	r.Route("/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("api"))
		r.Use(APISecurityHeaders())
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Post("/users", router.handler.CreateUser)
		r.Get("/users", router.handler.ListUsers)
		r.Get("/ratings", router.handler.UserRatings)
		r.Post("/feedback", router.handler.SubmitFeedback)
		r.Get("/recommend/{userID}", router.handler.GetRecommendations)
		r.Post("/retrain", router.handler.Retrain)
		r.Get("/model", router.handler.ModelStatus)
	})

	// Compatibility routes for clients of the original service.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit("legacy"))
		r.Use(APISecurityHeaders())

		r.Post("/users/create", router.handler.LegacyCreateUser)
		r.Post("/feedback", router.handler.LegacySubmitFeedback)
		r.Get("/recommend/{userID}", router.handler.LegacyRecommendations)
		r.Post("/retrain", router.handler.LegacyRetrain)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
