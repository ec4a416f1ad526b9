// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/cinerec/internal/logging"
	"github.com/tomtom215/cinerec/internal/recommend"
)

// Error codes.
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeModelNotReady      = "MODEL_NOT_READY"
	ErrCodeTrainingInProgress = "TRAINING_IN_PROGRESS"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

const internalErrorMessage = "internal server error"

// classify maps an engine error to a status, code and client-safe message.
func classify(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, recommend.ErrValidation):
		return http.StatusBadRequest, ErrCodeValidation, err.Error()
	case errors.Is(err, recommend.ErrNoModel):
		return http.StatusServiceUnavailable, ErrCodeModelNotReady, "no model has been trained yet"
	case errors.Is(err, recommend.ErrTrainingInProgress):
		return http.StatusConflict, ErrCodeTrainingInProgress, "a training run is already in progress, retry later"
	default:
		return http.StatusInternalServerError, ErrCodeInternal, internalErrorMessage
	}
}

// writeEngineError writes err in the /api/v1 envelope.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	logEngineError(r, status, err)
	respondError(w, r, status, code, message, nil)
}

// writeLegacyError writes err as {"detail": ...}.
func writeLegacyError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, message := classify(err)
	logEngineError(r, status, err)
	respondLegacyError(w, status, message)
}

func logEngineError(r *http.Request, status int, err error) {
	logger := logging.Ctx(r.Context())
	event := logger.Warn()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		event = logger.Error()
	}
	event.Str("path", sanitizeLogValue(r.URL.Path)).
		Int("status", status).
		Str("error", sanitizeLogValue(err.Error())).
		Msg("request failed")
}
