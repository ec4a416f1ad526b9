// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package profile is the offline training pipeline. It turns the merged
// rating table and user metadata into a snapshot.Snapshot: latent factors
// from a truncated SVD, encoded demographics, and a cosine similarity
// index over the concatenated user profiles.
package profile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/tomtom215/cinerec/internal/recommend/features"
	"github.com/tomtom215/cinerec/internal/recommend/knn"
	"github.com/tomtom215/cinerec/internal/recommend/ratings"
	"github.com/tomtom215/cinerec/internal/recommend/snapshot"
	"github.com/tomtom215/cinerec/internal/recommend/svd"
)

// ErrNoRatings is returned when there is nothing to train on.
var ErrNoRatings = errors.New("profile: no ratings to train on")

// Config sizes the model.
type Config struct {
	// LatentDim is K, the number of SVD components.
	LatentDim int

	// Neighbors is M, the size of each neighbor list including self.
	Neighbors int

	// Workers bounds neighbor precomputation. 0 means runtime.NumCPU().
	Workers int
}

// Input is one training run's data, taken from a consistent store view.
type Input struct {
	Ratings []ratings.Rating
	Users   []ratings.UserMeta
	Version int64
}

// Builder runs the training pipeline. It holds no model state; each Build
// returns an independent snapshot.
type Builder struct {
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewBuilder validates cfg.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBuilder(cfg Config, logger zerolog.Logger) (*Builder, error) {
	if cfg.LatentDim <= 0 {
		return nil, fmt.Errorf("latent dim must be positive, got %d", cfg.LatentDim)
	}
	if cfg.Neighbors < 2 {
		return nil, fmt.Errorf("neighbors must be at least 2, got %d", cfg.Neighbors)
	}
	return &Builder{
		cfg:    cfg,
		logger: logger.With().Str("component", "profile-builder").Logger(),
		now:    time.Now,
	}, nil
}

// Build trains a new snapshot. The result is complete or nil; nothing is
// installed here.
func (b *Builder) Build(ctx context.Context, in Input) (*snapshot.Snapshot, error) {
	start := b.now()

	m, err := buildMatrix(in.Ratings)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dense := mat.NewDense(len(m.userIDs), len(m.itemIDs), m.values)
	factors, err := svd.Truncated(dense, b.cfg.LatentDim)
	if err != nil {
		return nil, fmt.Errorf("factorize %dx%d matrix: %w", len(m.userIDs), len(m.itemIDs), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	demo := alignDemographics(m.userIDs, in.Users)
	enc := features.Fit(demo)

	dim := b.cfg.LatentDim + enc.Dim()
	profiles := make([][]float64, len(m.userIDs))
	for i := range m.userIDs {
		v := make([]float64, dim)
		copy(v, factors.UserFactors[i])
		enc.EncodeInto(v[b.cfg.LatentDim:], demo[i])
		for _, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("profile for user %d is not finite", m.userIDs[i])
			}
		}
		profiles[i] = v
	}

	index, err := knn.Build(ctx, profiles, b.cfg.Neighbors, b.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("build similarity index: %w", err)
	}

	snap, err := snapshot.New(snapshot.Parts{
		Version:     in.Version,
		TrainedAt:   b.now(),
		LatentDim:   b.cfg.LatentDim,
		UserIDs:     m.userIDs,
		ItemIDs:     m.itemIDs,
		ItemFactors: factors.ItemFactors,
		Profiles:    profiles,
		Index:       index,
		GlobalMean:  m.globalMean,
		Encoder:     enc,
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info().
		Int64("version", in.Version).
		Int("users", len(m.userIDs)).
		Int("items", len(m.itemIDs)).
		Int("ratings", m.observed).
		Int("rank", factors.Rank).
		Int("profile_dim", dim).
		Float64("global_mean", m.globalMean).
		Dur("duration", b.now().Sub(start)).
		Msg("profile build complete")

	return snap, nil
}

// matrix is the dense user × item rating matrix in row-major order.
type matrix struct {
	userIDs    []int
	itemIDs    []int
	values     []float64
	globalMean float64
	observed   int
}

// buildMatrix averages duplicate (user, item) ratings and lays them out
// densely, users and items ascending by id, zero for missing cells. The
// global mean covers observed cells only.
func buildMatrix(rows []ratings.Rating) (*matrix, error) {
	if len(rows) == 0 {
		return nil, ErrNoRatings
	}

	type acc struct {
		sum   float64
		count int
	}
	type cell struct{ user, item int }

	cells := make(map[cell]*acc, len(rows))
	users := make(map[int]struct{})
	items := make(map[int]struct{})
	for _, r := range rows {
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return nil, fmt.Errorf("rating for user %d item %d is not finite", r.UserID, r.ItemID)
		}
		c := cell{r.UserID, r.ItemID}
		a, ok := cells[c]
		if !ok {
			a = &acc{}
			cells[c] = a
		}
		a.sum += r.Value
		a.count++
		users[r.UserID] = struct{}{}
		items[r.ItemID] = struct{}{}
	}

	m := &matrix{
		userIDs:  sortedKeys(users),
		itemIDs:  sortedKeys(items),
		observed: len(cells),
	}
	userRow := indexOf(m.userIDs)
	itemCol := indexOf(m.itemIDs)
	cols := len(m.itemIDs)
	m.values = make([]float64, len(m.userIDs)*cols)

	var total float64
	for c, a := range cells {
		v := a.sum / float64(a.count)
		m.values[userRow[c.user]*cols+itemCol[c.item]] = v
		total += v
	}
	m.globalMean = total / float64(len(cells))
	return m, nil
}

// alignDemographics returns one row per trained user in userIDs order.
// Users without metadata get the mean age and the most common gender and
// occupation across all metadata records.
func alignDemographics(userIDs []int, users []ratings.UserMeta) []features.Demographics {
	byID := make(map[int]ratings.UserMeta, len(users))
	var ageSum float64
	genders := make(map[string]int)
	occupations := make(map[string]int)
	for _, u := range users {
		byID[u.ID] = u
		ageSum += float64(u.Age)
		genders[u.Gender]++
		occupations[u.Occupation]++
	}

	fallback := features.Demographics{
		Gender:     mode(genders),
		Occupation: mode(occupations),
	}
	if len(users) > 0 {
		fallback.Age = ageSum / float64(len(users))
	}

	out := make([]features.Demographics, len(userIDs))
	for i, id := range userIDs {
		u, ok := byID[id]
		if !ok {
			out[i] = fallback
			continue
		}
		out[i] = features.Demographics{
			Age:        float64(u.Age),
			Gender:     u.Gender,
			Occupation: u.Occupation,
		}
	}
	return out
}

// mode returns the most frequent key, the smallest on ties, "" when empty.
func mode(counts map[string]int) string {
	best, bestN := "", 0
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

func sortedKeys(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func indexOf(ids []int) map[int]int {
	m := make(map[int]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}
