// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cinerec/internal/models"
)

// HealthLive handles GET /health/live. It answers 200 while the process
// runs, model or not.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, models.HealthStatus{
		Status: "alive",
		Ready:  h.engine.Ready(),
		Uptime: time.Since(h.startTime).Seconds(),
	}, models.Metadata{})
}

// HealthReady handles GET /health/ready: 200 once a snapshot serves,
// 503 before.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()
	health := models.HealthStatus{
		Status:       "ready",
		Ready:        st.Ready,
		ModelVersion: st.ModelVersion,
		Uptime:       time.Since(h.startTime).Seconds(),
	}
	if !st.Ready {
		health.Status = "not_ready"
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   models.StatusError,
			Data:     health,
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error: &models.APIError{
				Code:    ErrCodeModelNotReady,
				Message: "no model has been trained yet",
			},
		})
		return
	}
	respondSuccess(w, r, http.StatusOK, health, models.Metadata{})
}
