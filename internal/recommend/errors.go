// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package recommend

import (
	"errors"

	"github.com/tomtom215/cinerec/internal/recommend/storage"
)

var (
	// ErrConfiguration means persisted data or settings are missing or
	// corrupt. It is fatal at startup.
	ErrConfiguration = errors.New("recommend: configuration error")

	// ErrValidation means a caller-supplied value is out of range.
	ErrValidation = errors.New("recommend: validation error")

	// ErrTraining means a training run failed. The previous snapshot keeps
	// serving.
	ErrTraining = errors.New("recommend: training failed")

	// ErrTrainingInProgress means another training run holds the training
	// lock. Callers may retry later.
	ErrTrainingInProgress = errors.New("recommend: training already in progress")

	// ErrNoModel means no snapshot has been installed yet.
	ErrNoModel = errors.New("recommend: no model available")

	// ErrNoSnapshot means no complete snapshot is persisted.
	ErrNoSnapshot = storage.ErrNoSnapshot
)
