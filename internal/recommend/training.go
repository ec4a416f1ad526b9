// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/tomtom215/cinerec/internal/events"
	"github.com/tomtom215/cinerec/internal/logging"
	"github.com/tomtom215/cinerec/internal/metrics"
	"github.com/tomtom215/cinerec/internal/recommend/profile"
	"github.com/tomtom215/cinerec/internal/recommend/ratings"
)

// Retrain builds, persists and installs a new snapshot from the current
// merged ratings. It fails fast with ErrTrainingInProgress when another
// run holds the training lock. On failure the previous snapshot keeps
// serving and the error wraps ErrTraining.
func (e *Engine) Retrain(ctx context.Context, trigger string) (*TrainingStatus, error) {
	if !e.trainMu.TryLock() {
		return nil, ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()
	return e.retrainLocked(ctx, trigger)
}

// retrainWait is Retrain but waits for a running training to finish
// first. Feedback-triggered retrains use it so merged rows are never left
// untrained.
func (e *Engine) retrainWait(ctx context.Context, trigger string) (*TrainingStatus, error) {
	e.trainMu.Lock()
	defer e.trainMu.Unlock()
	return e.retrainLocked(ctx, trigger)
}

// retrainLocked must hold trainMu.
func (e *Engine) retrainLocked(ctx context.Context, trigger string) (*TrainingStatus, error) {
	e.training.Store(true)
	defer e.training.Store(false)

	logger := logging.Ctx(ctx).With().Str("component", "recommend").Str("trigger", trigger).Logger()
	start := e.now()
	version := e.version + 1

	var status *TrainingStatus
	err := e.store.Exclusive(func(tx *ratings.Tx) error {
		view := tx.View()
		rows := view.Ratings()

		snap, err := e.builder.Build(ctx, profile.Input{
			Ratings: rows,
			Users:   view.Users(),
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("build profiles: %w", err)
		}

		persisted := false
		if e.snapshots != nil {
			saveStart := e.now()
			if _, err := e.snapshots.Save(ctx, snap); err != nil {
				return fmt.Errorf("persist snapshot v%d: %w", version, err)
			}
			metrics.RecordSnapshotStore("save", e.now().Sub(saveStart))
			persisted = true
		}

		e.install(snap)
		e.version = version
		e.retrainDue.Store(false)

		status = &TrainingStatus{
			Version:    version,
			Trigger:    trigger,
			TrainedAt:  snap.TrainedAt(),
			DurationMS: e.now().Sub(start).Milliseconds(),
			Users:      snap.NumUsers(),
			Items:      snap.NumItems(),
			Ratings:    len(rows),
			ProfileDim: snap.Dim(),
			Persisted:  persisted,
		}
		return nil
	})

	metrics.RecordTraining(trigger, e.now().Sub(start), err)
	if err != nil {
		e.statusMu.Lock()
		e.lastErr = err.Error()
		e.statusMu.Unlock()
		logger.Error().Err(err).Int64("version", version).Msg("training failed, previous model keeps serving")
		return nil, fmt.Errorf("%w: %w", ErrTraining, err)
	}

	e.statusMu.Lock()
	e.lastTraining = status
	e.lastErr = ""
	e.statusMu.Unlock()

	logger.Info().
		Int64("version", status.Version).
		Int("users", status.Users).
		Int("items", status.Items).
		Int("ratings", status.Ratings).
		Int64("duration_ms", status.DurationMS).
		Msg("model retrained")
	return status, nil
}

// SubmitFeedback records a rating and, when the pending count reaches the
// threshold, merges the buffer and retrains. retrained is true only when
// a new snapshot was installed inline.
func (e *Engine) SubmitFeedback(ctx context.Context, userID, itemID int, rating float64) (retrained bool, err error) {
	if userID < 1 || itemID < 1 {
		return false, fmt.Errorf("%w: user and item ids must be positive", ErrValidation)
	}
	if math.IsNaN(rating) || rating < e.cfg.MinRating || rating > e.cfg.MaxRating {
		return false, fmt.Errorf("%w: rating must be within [%v, %v], got %v",
			ErrValidation, e.cfg.MinRating, e.cfg.MaxRating, rating)
	}

	if err := e.store.Submit(userID, itemID, rating); err != nil {
		if errors.Is(err, ratings.ErrInvalidRating) {
			return false, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return false, fmt.Errorf("record feedback: %w", err)
	}
	pending := e.store.Pending()
	metrics.RecordFeedback(pending)

	fire, err := e.store.ShouldRetrain(e.cfg.RetrainThreshold)
	if err != nil {
		return false, fmt.Errorf("merge feedback: %w", err)
	}
	if !fire {
		return false, nil
	}
	metrics.FeedbackPending.Set(0)
	e.retrainDue.Store(true)

	logger := logging.Ctx(ctx)
	logger.Info().Int("merged", pending).Int("threshold", e.cfg.RetrainThreshold).Msg("feedback threshold reached")

	if e.cfg.AsyncRetrain {
		evt := events.NewRetrainRequested(metrics.TriggerFeedback, pending)
		err := e.publisher.PublishRetrain(ctx, evt)
		if err == nil {
			return false, nil
		}
		logger.Warn().Err(err).Msg("retrain event not published, retraining inline")
	}

	if _, err := e.retrainWait(ctx, metrics.TriggerFeedback); err != nil {
		return false, err
	}
	return true, nil
}

// CreateUser registers a new user and returns it with its allocated id.
//
//nolint:gocritic // hugeParam: meta passed by value, returned with ID set
func (e *Engine) CreateUser(ctx context.Context, meta ratings.UserMeta) (ratings.UserMeta, error) {
	if meta.Age < 1 || meta.Age > 150 {
		return ratings.UserMeta{}, fmt.Errorf("%w: age must be within [1, 150], got %d", ErrValidation, meta.Age)
	}
	if !slices.Contains(ratings.Genders, meta.Gender) {
		return ratings.UserMeta{}, fmt.Errorf("%w: unknown gender %q", ErrValidation, meta.Gender)
	}
	if !slices.Contains(ratings.Occupations, meta.Occupation) {
		return ratings.UserMeta{}, fmt.Errorf("%w: unknown occupation %q", ErrValidation, meta.Occupation)
	}

	created, err := e.store.CreateUser(meta)
	if err != nil {
		return ratings.UserMeta{}, fmt.Errorf("create user: %w", err)
	}
	logging.Ctx(ctx).Info().Int("user_id", created.ID).Msg("user registered")
	return created, nil
}
