// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package validation validates API request structs with
// go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and is safe for concurrent use. Besides the built-in tags it
// registers:
//
//   - gender: one of the accepted gender codes (F, M)
//   - occupation: one of the closed occupation categories
//
// Failures come back as *RequestValidationError, which converts to the
// API's VALIDATION_ERROR shape:
//
//	type FeedbackRequest struct {
//	    UserID int     `json:"user_id" validate:"required,gte=1"`
//	    Rating float64 `json:"rating" validate:"gte=1,lte=5"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
//
// Field names in messages use the json tag, so clients see the same names
// they sent.
package validation
