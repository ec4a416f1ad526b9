// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package recommend serves user-based collaborative filtering
// recommendations from an immutable model snapshot.
//
// # Architecture
//
// The Engine ties together:
//
//   - ratings.Store: base ratings, feedback buffer and user metadata
//   - profile.Builder: SVD latent factors + encoded demographics → snapshot
//   - snapshot.Holder: the serving snapshot, swapped atomically
//   - storage.Store: Badger persistence of snapshot artifacts
//
// # Scoring
//
// A known user's precomputed neighbor list is used with the user itself
// removed. An unknown user with metadata gets a cold-start profile (zero
// latent block + encoded demographics) and a fresh neighbor query. Each
// neighbor is weighted 1/(distance+1e-6) and items are predicted as
//
//	Σ w·r / (Σ w + 1e-9) + global_mean
//
// over the neighbors that rated the item. Items the user already rated are
// dropped; ranking is by prediction descending, item id ascending.
//
// # Feedback and Retraining
//
// SubmitFeedback writes through the rating store. Once the pending count
// reaches the configured threshold the buffer is merged into the base
// table and a retrain runs, either inline or via a retrain event consumed
// by the supervised retrain service.
//
// # Thread Safety
//
// Recommend never takes the data lock: it reads the current snapshot and
// rating view through atomic pointers. Training runs inside
// ratings.Store.Exclusive, so no feedback write can interleave with it.
// Only one training runs at a time; a second manual request fails fast with
// ErrTrainingInProgress.
package recommend
