// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package api

import "github.com/tomtom215/cinerec/internal/recommend/ratings"

// CreateUserRequest is the body of POST /api/v1/users.
type CreateUserRequest struct {
	Age        int    `json:"age" validate:"gte=1,lte=150"`
	Gender     string `json:"gender" validate:"required,gender"`
	Occupation string `json:"occupation" validate:"required,occupation"`
	ZipCode    string `json:"zip_code" validate:"omitempty,max=10,excludesall=0x7C"`
}

func (req *CreateUserRequest) meta() ratings.UserMeta {
	zip := req.ZipCode
	if zip == "" {
		zip = ratings.DefaultZipCode
	}
	return ratings.UserMeta{
		Age:        req.Age,
		Gender:     req.Gender,
		Occupation: req.Occupation,
		ZipCode:    zip,
	}
}

// FeedbackRequest is the body of POST /api/v1/feedback. The rating range
// is configurable and checked by the engine.
type FeedbackRequest struct {
	UserID int      `json:"user_id" validate:"required,gte=1"`
	ItemID int      `json:"item_id" validate:"required,gte=1"`
	Rating *float64 `json:"rating" validate:"required"`
}

// RecommendRequest holds the parsed path and query of a recommendation.
type RecommendRequest struct {
	UserID int `validate:"gte=1"`
	TopN   int `validate:"gte=0"`
}
