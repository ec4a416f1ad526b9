// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package recommend

import "time"

// Request is a recommendation request.
type Request struct {
	// UserID is the user to recommend for, known to the model or not.
	UserID int `json:"user_id"`

	// TopN is the maximum number of items. 0 uses the configured default.
	TopN int `json:"top_n,omitempty"`
}

// ScoredItem is one recommended item.
type ScoredItem struct {
	ItemID int     `json:"item_id"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

// Response is a ranked recommendation list. Responses may be shared
// through the cache and must not be modified.
type Response struct {
	UserID       int          `json:"user_id"`
	Items        []ScoredItem `json:"items"`
	ColdStart    bool         `json:"cold_start"`
	ModelVersion int64        `json:"model_version"`
}

// ItemIDs returns the ranked item ids.
func (r *Response) ItemIDs() []int {
	ids := make([]int, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.ItemID
	}
	return ids
}

// TrainingStatus describes one completed training run.
type TrainingStatus struct {
	Version    int64     `json:"version"`
	Trigger    string    `json:"trigger"`
	TrainedAt  time.Time `json:"trained_at"`
	DurationMS int64     `json:"duration_ms"`
	Users      int       `json:"users"`
	Items      int       `json:"items"`
	Ratings    int       `json:"ratings"`
	ProfileDim int       `json:"profile_dim"`
	Persisted  bool      `json:"persisted"`
}

// Status is a point-in-time view of the engine for health and admin
// endpoints.
type Status struct {
	Ready        bool            `json:"ready"`
	ModelVersion int64           `json:"model_version"`
	TrainedAt    *time.Time      `json:"trained_at,omitempty"`
	Users        int             `json:"users"`
	Items        int             `json:"items"`
	LatentDim    int             `json:"latent_dim"`
	ProfileDim   int             `json:"profile_dim"`
	GlobalMean   float64         `json:"global_mean"`
	Ratings      int             `json:"ratings"`
	Pending      int             `json:"pending_feedback"`
	Threshold    int             `json:"retrain_threshold"`
	Training     bool            `json:"training"`
	RetrainDue   bool            `json:"retrain_due"`
	LastTraining *TrainingStatus `json:"last_training,omitempty"`
	LastError    string          `json:"last_error,omitempty"`
	Cache        *CacheStatus    `json:"cache,omitempty"`
}

// CacheStatus reports recommendation cache counters. Absent when the cache
// is disabled.
type CacheStatus struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Keys      int64   `json:"keys"`
	HitRate   float64 `json:"hit_rate_pct"`
}
