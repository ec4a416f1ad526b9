// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package api

import (
	"net/http"

	"github.com/tomtom215/cinerec/internal/models"
)

// CreateUser handles POST /api/v1/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}

	user, err := h.engine.CreateUser(r.Context(), req.meta())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusCreated, models.CreatedUser{UserID: user.ID}, models.Metadata{})
}

// LegacyCreateUser handles POST /users/create.
func (h *Handler) LegacyCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondLegacyError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondLegacyError(w, http.StatusUnprocessableEntity, apiErr.Message)
		return
	}

	user, err := h.engine.CreateUser(r.Context(), req.meta())
	if err != nil {
		writeLegacyError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.CreatedUser{UserID: user.ID})
}

// ListUsers handles GET /api/v1/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users := h.engine.Users()
	respondSuccess(w, r, http.StatusOK, users, models.Metadata{})
}

// UserRatings handles GET /api/v1/ratings?user_id=N.
func (h *Handler) UserRatings(w http.ResponseWriter, r *http.Request) {
	userID, err := parsePositiveInt("user_id", r.URL.Query().Get("user_id"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error(), map[string]interface{}{"field": "user_id"})
		return
	}

	rows := h.engine.UserRatings(userID)
	out := models.UserRatings{UserID: userID, Count: len(rows), Ratings: make([]models.UserRating, len(rows))}
	for i, row := range rows {
		out.Ratings[i] = models.UserRating{
			ItemID:    row.ItemID,
			Title:     h.title(row.ItemID),
			Rating:    row.Value,
			Timestamp: row.Timestamp,
		}
	}
	respondSuccess(w, r, http.StatusOK, out, models.Metadata{})
}
