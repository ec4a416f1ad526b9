// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package recommend

import (
	"sort"

	"github.com/tomtom215/cinerec/internal/recommend/features"
	"github.com/tomtom215/cinerec/internal/recommend/knn"
	"github.com/tomtom215/cinerec/internal/recommend/ratings"
	"github.com/tomtom215/cinerec/internal/recommend/snapshot"
)

const (
	// distanceEpsilon keeps a perfect match (distance 0) finite.
	distanceEpsilon = 1e-6

	// weightEpsilon guards the weighted average denominator.
	weightEpsilon = 1e-9
)

type prediction struct {
	itemID int
	score  float64
}

// neighborWeight is the inverse-distance weight of one neighbor.
func neighborWeight(distance float64) float64 {
	return 1 / (distance + distanceEpsilon)
}

// withoutRow drops a stored user's own entry from its neighbor list.
func withoutRow(neighbors []knn.Neighbor, row int) []knn.Neighbor {
	out := make([]knn.Neighbor, 0, len(neighbors))
	for _, nb := range neighbors {
		if nb.Index != row {
			out = append(out, nb)
		}
	}
	return out
}

// predict scores every item rated by at least one neighbor:
// Σ w·r / (Σ w + ε) + global mean, summing over the neighbors that rated
// the item.
func predict(snap *snapshot.Snapshot, view *ratings.View, neighbors []knn.Neighbor) map[int]float64 {
	type acc struct{ num, den float64 }
	sums := make(map[int]*acc)
	for _, nb := range neighbors {
		w := neighborWeight(nb.Distance)
		view.ForEachUserRating(snap.UserID(nb.Index), func(r ratings.Rating) {
			a, ok := sums[r.ItemID]
			if !ok {
				a = &acc{}
				sums[r.ItemID] = a
			}
			a.num += w * r.Value
			a.den += w
		})
	}

	mean := snap.GlobalMean()
	out := make(map[int]float64, len(sums))
	for item, a := range sums {
		out[item] = a.num/(a.den+weightEpsilon) + mean
	}
	return out
}

// rank returns the topN unseen predicted items, best first, ties by item
// id.
func rank(snap *snapshot.Snapshot, view *ratings.View, userID int, neighbors []knn.Neighbor, topN int) []prediction {
	if len(neighbors) == 0 || topN <= 0 {
		return nil
	}
	scores := predict(snap, view, neighbors)
	if len(scores) == 0 {
		return nil
	}

	seen := view.SeenItems(userID)
	preds := make([]prediction, 0, len(scores))
	for item, score := range scores {
		if _, ok := seen[item]; ok {
			continue
		}
		preds = append(preds, prediction{itemID: item, score: score})
	}

	sort.Slice(preds, func(i, j int) bool {
		if preds[i].score != preds[j].score {
			return preds[i].score > preds[j].score
		}
		return preds[i].itemID < preds[j].itemID
	})
	if len(preds) > topN {
		preds = preds[:topN]
	}
	return preds
}

func demographicsOf(u ratings.UserMeta) features.Demographics {
	return features.Demographics{
		Age:        float64(u.Age),
		Gender:     u.Gender,
		Occupation: u.Occupation,
	}
}
