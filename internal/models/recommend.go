// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package models

import "time"

// RecommendedItem is one ranked item with its display title.
type RecommendedItem struct {
	ItemID int     `json:"item_id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// Recommendations is the data of GET /api/v1/recommend/{userID}.
// RecommendedItems repeats the ids of Items in rank order.
type Recommendations struct {
	UserID           int               `json:"user_id"`
	RecommendedItems []int             `json:"recommended_items"`
	Items            []RecommendedItem `json:"items"`
	ColdStart        bool              `json:"cold_start"`
	ModelVersion     int64             `json:"model_version"`
}

// CreatedUser is the response to a registration.
type CreatedUser struct {
	UserID int `json:"user_id"`
}

// FeedbackResult is the data of POST /api/v1/feedback.
type FeedbackResult struct {
	Status    string `json:"status"`
	Retrained bool   `json:"retrained"`
}

// HealthStatus is the data of the health probes.
type HealthStatus struct {
	Status       string  `json:"status"`
	Ready        bool    `json:"ready"`
	ModelVersion int64   `json:"model_version,omitempty"`
	Uptime       float64 `json:"uptime_seconds"`
}

// UserRating is one merged rating of a user.
type UserRating struct {
	ItemID    int     `json:"item_id"`
	Title     string  `json:"title"`
	Rating    float64 `json:"rating"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// UserRatings is the data of GET /api/v1/ratings.
type UserRatings struct {
	UserID  int          `json:"user_id"`
	Count   int          `json:"count"`
	Ratings []UserRating `json:"ratings"`
}

// RetrainResult is the data of POST /api/v1/retrain.
type RetrainResult struct {
	Version    int64     `json:"version"`
	Trigger    string    `json:"trigger"`
	TrainedAt  time.Time `json:"trained_at"`
	DurationMS int64     `json:"duration_ms"`
	Users      int       `json:"users"`
	Items      int       `json:"items"`
	Ratings    int       `json:"ratings"`
	Persisted  bool      `json:"persisted"`
}

// LegacyRecommendations is the body of GET /recommend/{userID}.
type LegacyRecommendations struct {
	RecommendedItems []int `json:"recommended_items"`
}

// LegacyStatus is the body of POST /feedback and POST /retrain.
type LegacyStatus struct {
	Status string `json:"status"`
}
