// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package snapshot defines the immutable trained model served to readers
// and the holder that swaps it atomically.
package snapshot

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tomtom215/cinerec/internal/recommend/features"
	"github.com/tomtom215/cinerec/internal/recommend/knn"
)

// ErrInconsistent is returned when snapshot components disagree in shape.
var ErrInconsistent = errors.New("snapshot: inconsistent components")

// Parts are the components a Snapshot is assembled from.
type Parts struct {
	Version     int64
	TrainedAt   time.Time
	LatentDim   int
	UserIDs     []int
	ItemIDs     []int
	ItemFactors [][]float64
	Profiles    [][]float64
	Index       *knn.Index
	GlobalMean  float64
	Encoder     *features.Encoder
}

// Snapshot is a fully built model. Nothing in it changes after New returns;
// a retrain produces a new Snapshot instead.
type Snapshot struct {
	parts   Parts
	userRow map[int]int
}

// New validates parts and builds the user lookup.
func New(p Parts) (*Snapshot, error) {
	if p.Encoder == nil || p.Index == nil {
		return nil, fmt.Errorf("%w: missing encoder or index", ErrInconsistent)
	}
	if p.LatentDim <= 0 {
		return nil, fmt.Errorf("%w: latent dim %d", ErrInconsistent, p.LatentDim)
	}
	if len(p.Profiles) != len(p.UserIDs) {
		return nil, fmt.Errorf("%w: %d profiles for %d users", ErrInconsistent, len(p.Profiles), len(p.UserIDs))
	}
	if len(p.ItemFactors) != len(p.ItemIDs) {
		return nil, fmt.Errorf("%w: %d item factors for %d items", ErrInconsistent, len(p.ItemFactors), len(p.ItemIDs))
	}
	if p.Index.Len() != len(p.Profiles) {
		return nil, fmt.Errorf("%w: index has %d rows for %d profiles", ErrInconsistent, p.Index.Len(), len(p.Profiles))
	}

	dim := p.LatentDim + p.Encoder.Dim()
	for i, v := range p.Profiles {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: profile %d has dimension %d, want %d", ErrInconsistent, i, len(v), dim)
		}
	}
	for i, v := range p.ItemFactors {
		if len(v) != p.LatentDim {
			return nil, fmt.Errorf("%w: item factor %d has dimension %d, want %d", ErrInconsistent, i, len(v), p.LatentDim)
		}
	}

	rows := make(map[int]int, len(p.UserIDs))
	for i, id := range p.UserIDs {
		if _, dup := rows[id]; dup {
			return nil, fmt.Errorf("%w: duplicate user id %d", ErrInconsistent, id)
		}
		rows[id] = i
	}
	return &Snapshot{parts: p, userRow: rows}, nil
}

// Version is the monotonically increasing training generation.
func (s *Snapshot) Version() int64 { return s.parts.Version }

// TrainedAt is when the Profile Builder finished.
func (s *Snapshot) TrainedAt() time.Time { return s.parts.TrainedAt }

// LatentDim is K.
func (s *Snapshot) LatentDim() int { return s.parts.LatentDim }

// Dim is the profile vector dimension: K + encoder width.
func (s *Snapshot) Dim() int { return s.parts.LatentDim + s.parts.Encoder.Dim() }

// GlobalMean is the mean of all observed training ratings.
func (s *Snapshot) GlobalMean() float64 { return s.parts.GlobalMean }

// Index is the similarity index over Profiles.
func (s *Snapshot) Index() *knn.Index { return s.parts.Index }

// Encoder is the fitted demographic encoder.
func (s *Snapshot) Encoder() *features.Encoder { return s.parts.Encoder }

// NumUsers is the number of trained users.
func (s *Snapshot) NumUsers() int { return len(s.parts.UserIDs) }

// NumItems is the number of trained items.
func (s *Snapshot) NumItems() int { return len(s.parts.ItemIDs) }

// UserID returns the user id at a profile row.
func (s *Snapshot) UserID(row int) int { return s.parts.UserIDs[row] }

// UserRow returns the profile row for a user id.
func (s *Snapshot) UserRow(userID int) (int, bool) {
	row, ok := s.userRow[userID]
	return row, ok
}

// MaxUserID is the largest trained user id, or 0.
func (s *Snapshot) MaxUserID() int {
	m := 0
	for _, id := range s.parts.UserIDs {
		m = max(m, id)
	}
	return m
}

// Profile returns the stored profile vector for a row. Callers must not
// modify it.
func (s *Snapshot) Profile(row int) []float64 { return s.parts.Profiles[row] }

// ColdStartProfile builds a profile for a user without ratings: a zero
// latent block followed by the encoded demographics. Unknown categories
// encode as zeros.
func (s *Snapshot) ColdStartProfile(d features.Demographics) []float64 {
	v := make([]float64, s.Dim())
	s.parts.Encoder.EncodeInto(v[s.parts.LatentDim:], d)
	return v
}

// Parts returns the components, for persistence. Slices are shared and
// must not be modified.
func (s *Snapshot) Parts() Parts { return s.parts }

// Holder publishes the current Snapshot to concurrent readers.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// Load returns the serving snapshot, or nil before the first install.
func (h *Holder) Load() *Snapshot { return h.current.Load() }

// Install makes s the serving snapshot and returns the one it replaced.
func (h *Holder) Install(s *Snapshot) *Snapshot { return h.current.Swap(s) }
