// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package api

import (
	"context"
	"time"

	"github.com/tomtom215/cinerec/internal/metrics"
	"github.com/tomtom215/cinerec/internal/recommend"
	"github.com/tomtom215/cinerec/internal/recommend/ratings"
)

// Engine is the recommendation engine as seen by the handlers.
// *recommend.Engine implements it.
type Engine interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
	SubmitFeedback(ctx context.Context, userID, itemID int, rating float64) (bool, error)
	Retrain(ctx context.Context, trigger string) (*recommend.TrainingStatus, error)
	CreateUser(ctx context.Context, meta ratings.UserMeta) (ratings.UserMeta, error)
	Users() []ratings.UserMeta
	UserRatings(userID int) []ratings.Rating
	Status() recommend.Status
	Ready() bool
}

// TitleLookup resolves item titles for rating listings.
type TitleLookup interface {
	Title(itemID int) string
}

// Handler serves the API endpoints.
//
// Handler methods are split across files:
//   - handlers_users.go: registration, user listing, rating history
//   - handlers_recommend.go: recommendations
//   - handlers_feedback.go: feedback, retrain, model status
//   - handlers_health.go: probes
type Handler struct {
	engine         Engine
	titles         TitleLookup
	requestTimeout time.Duration
	startTime      time.Time
}

// NewHandler creates a handler. titles may be nil.
func NewHandler(engine Engine, titles TitleLookup, requestTimeout time.Duration) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Handler{
		engine:         engine,
		titles:         titles,
		requestTimeout: requestTimeout,
		startTime:      time.Now(),
	}
}

func (h *Handler) title(itemID int) string {
	if h.titles == nil {
		return ""
	}
	return h.titles.Title(itemID)
}

// manualTrigger labels retrains requested over HTTP.
const manualTrigger = metrics.TriggerManual
