// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/cinerec/internal/models"
	"github.com/tomtom215/cinerec/internal/recommend"
)

// GetRecommendations handles GET /api/v1/recommend/{userID}?top_n=N.
// An unknown user without metadata gets an empty list, not a 404.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	req, apiErr := parseRecommendRequest(r)
	if apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	start := time.Now()
	resp, err := h.engine.Recommend(ctx, recommend.Request{UserID: req.UserID, TopN: req.TopN})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	data := models.Recommendations{
		UserID:           resp.UserID,
		RecommendedItems: resp.ItemIDs(),
		Items:            make([]models.RecommendedItem, len(resp.Items)),
		ColdStart:        resp.ColdStart,
		ModelVersion:     resp.ModelVersion,
	}
	for i, it := range resp.Items {
		data.Items[i] = models.RecommendedItem{ItemID: it.ItemID, Title: it.Title, Score: it.Score}
	}
	respondSuccess(w, r, http.StatusOK, data, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
	})
}

// LegacyRecommendations handles GET /recommend/{userID}: ids only, the
// default list length.
func (h *Handler) LegacyRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePositiveInt("user_id", chi.URLParam(r, "userID"))
	if err != nil {
		respondLegacyError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	resp, err := h.engine.Recommend(ctx, recommend.Request{UserID: userID})
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.LegacyRecommendations{RecommendedItems: resp.ItemIDs()})
}

func parseRecommendRequest(r *http.Request) (RecommendRequest, *models.APIError) {
	userID, err := parsePositiveInt("user_id", chi.URLParam(r, "userID"))
	if err != nil {
		return RecommendRequest{}, &models.APIError{
			Code:    ErrCodeValidation,
			Message: err.Error(),
			Details: map[string]interface{}{"field": "user_id"},
		}
	}
	topN, err := getIntParam(r, "top_n", 0)
	if err != nil {
		return RecommendRequest{}, &models.APIError{
			Code:    ErrCodeValidation,
			Message: err.Error(),
			Details: map[string]interface{}{"field": "top_n"},
		}
	}

	req := RecommendRequest{UserID: userID, TopN: topN}
	if apiErr := validateRequest(&req); apiErr != nil {
		return RecommendRequest{}, apiErr
	}
	return req, nil
}
