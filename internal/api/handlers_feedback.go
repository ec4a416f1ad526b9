// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package api

import (
	"net/http"

	"github.com/tomtom215/cinerec/internal/models"
	"github.com/tomtom215/cinerec/internal/recommend"
)

const feedbackRecorded = "feedback recorded"

// SubmitFeedback handles POST /api/v1/feedback. When the submission
// crosses the retrain threshold the request also waits for training.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	retrained, err := h.engine.SubmitFeedback(r.Context(), req.UserID, req.ItemID, *req.Rating)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, models.FeedbackResult{Status: feedbackRecorded, Retrained: retrained}, models.Metadata{})
}

// LegacySubmitFeedback handles POST /feedback.
func (h *Handler) LegacySubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondLegacyError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondLegacyError(w, http.StatusUnprocessableEntity, apiErr.Message)
		return
	}

	if _, err := h.engine.SubmitFeedback(r.Context(), req.UserID, req.ItemID, *req.Rating); err != nil {
		writeLegacyError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.LegacyStatus{Status: feedbackRecorded})
}

// Retrain handles POST /api/v1/retrain. A concurrent run answers 409.
func (h *Handler) Retrain(w http.ResponseWriter, r *http.Request) {
	st, err := h.engine.Retrain(r.Context(), manualTrigger)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, retrainResult(st), models.Metadata{QueryTimeMS: st.DurationMS})
}

// LegacyRetrain handles POST /retrain.
func (h *Handler) LegacyRetrain(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.Retrain(r.Context(), manualTrigger); err != nil {
		writeLegacyError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.LegacyStatus{Status: "retraining completed"})
}

// ModelStatus handles GET /api/v1/model.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.engine.Status(), models.Metadata{})
}

func retrainResult(st *recommend.TrainingStatus) models.RetrainResult {
	return models.RetrainResult{
		Version:    st.Version,
		Trigger:    st.Trigger,
		TrainedAt:  st.TrainedAt,
		DurationMS: st.DurationMS,
		Users:      st.Users,
		Items:      st.Items,
		Ratings:    st.Ratings,
		Persisted:  st.Persisted,
	}
}
