// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package knn is an exact cosine-distance nearest-neighbor index over user
// profile vectors.
//
// Neighbor lists for every stored row are computed once at build time by a
// pool of workers, so serving a known user is a slice lookup. Ad hoc
// queries (cold-start profiles) are answered by brute force.
package knn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Neighbor is one result row. Distance is 1 - cosine similarity, in [0, 2].
type Neighbor struct {
	Index    int
	Distance float64
}

// Index holds the stored vectors and their precomputed neighbor lists.
type Index struct {
	vectors   [][]float64
	norms     []float64
	k         int
	neighbors [][]Neighbor
}

// State is the persisted form of an Index's neighbor lists. The vectors
// themselves are stored with the model's profiles.
type State struct {
	K         int
	Neighbors [][]Neighbor
}

// ErrDimension is returned when vectors have inconsistent lengths.
var ErrDimension = errors.New("knn: inconsistent vector dimension")

// Build indexes vectors and precomputes the k nearest neighbors of every
// row, itself included at position 0. workers <= 0 uses runtime.NumCPU().
func Build(ctx context.Context, vectors [][]float64, k, workers int) (*Index, error) {
	if k <= 0 {
		return nil, fmt.Errorf("knn: k must be positive, got %d", k)
	}
	ix, err := newIndex(vectors, k)
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	n := len(vectors)
	ix.neighbors = make([][]Neighbor, n)
	chunkSize := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}
		g.Go(func() error {
			for row := start; row < end; row++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				// Each worker writes a disjoint range of rows.
				ix.neighbors[row] = ix.search(ix.vectors[row], ix.norms[row], row)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("knn: build cancelled: %w", err)
	}
	return ix, nil
}

// Restore rebuilds an Index from vectors and a persisted State without
// recomputing neighbor lists.
func Restore(vectors [][]float64, st State) (*Index, error) {
	ix, err := newIndex(vectors, st.K)
	if err != nil {
		return nil, err
	}
	if len(st.Neighbors) != len(vectors) {
		return nil, fmt.Errorf("knn: %d neighbor lists for %d vectors", len(st.Neighbors), len(vectors))
	}
	for row, list := range st.Neighbors {
		for _, nb := range list {
			if nb.Index < 0 || nb.Index >= len(vectors) {
				return nil, fmt.Errorf("knn: row %d references neighbor %d out of range", row, nb.Index)
			}
		}
	}
	ix.neighbors = st.Neighbors
	return ix, nil
}

func newIndex(vectors [][]float64, k int) (*Index, error) {
	ix := &Index{
		vectors: vectors,
		norms:   make([]float64, len(vectors)),
		k:       k,
	}
	dim := -1
	for i, v := range vectors {
		if dim < 0 {
			dim = len(v)
		} else if len(v) != dim {
			return nil, fmt.Errorf("%w: row %d has %d, want %d", ErrDimension, i, len(v), dim)
		}
		ix.norms[i] = norm(v)
	}
	return ix, nil
}

// State exports the neighbor lists for persistence.
func (ix *Index) State() State {
	return State{K: ix.k, Neighbors: ix.neighbors}
}

// Len is the number of stored vectors.
func (ix *Index) Len() int { return len(ix.vectors) }

// K is the neighbor count per list.
func (ix *Index) K() int { return ix.k }

// Dim is the vector dimension, or 0 for an empty index.
func (ix *Index) Dim() int {
	if len(ix.vectors) == 0 {
		return 0
	}
	return len(ix.vectors[0])
}

// Neighbors returns the precomputed list for a stored row, self first.
// The returned slice must not be modified.
func (ix *Index) Neighbors(row int) []Neighbor {
	if row < 0 || row >= len(ix.neighbors) {
		return nil
	}
	return ix.neighbors[row]
}

// Query returns the k nearest stored rows to q, ascending by distance with
// ties broken by row index.
func (ix *Index) Query(q []float64) ([]Neighbor, error) {
	if len(ix.vectors) > 0 && len(q) != ix.Dim() {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimension, len(q), ix.Dim())
	}
	return ix.search(q, norm(q), -1), nil
}

// search is a bounded insertion top-k. When self >= 0 that row is placed
// first at distance 0, ahead of any other exact match.
func (ix *Index) search(q []float64, qNorm float64, self int) []Neighbor {
	k := min(ix.k, len(ix.vectors))
	top := make([]Neighbor, 0, k)
	if self >= 0 {
		top = append(top, Neighbor{Index: self, Distance: 0})
	}

	for j, v := range ix.vectors {
		if j == self {
			continue
		}
		d := distance(q, v, qNorm, ix.norms[j])
		if len(top) == k && d >= top[k-1].Distance {
			continue
		}
		// Strictly-less comparison keeps earlier (lower index) entries
		// ahead on ties.
		pos := len(top)
		for pos > 0 && d < top[pos-1].Distance {
			pos--
		}
		if len(top) < k {
			top = append(top, Neighbor{})
		}
		copy(top[pos+1:], top[pos:len(top)-1])
		top[pos] = Neighbor{Index: j, Distance: d}
	}
	return top
}

// CosineDistance is 1 - cos(a, b). A zero vector is at distance 1 from
// everything.
func CosineDistance(a, b []float64) float64 {
	return distance(a, b, norm(a), norm(b))
}

func distance(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 1
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	d := 1 - dot/(na*nb)
	if d < 0 {
		return 0
	}
	return d
}

func norm(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}
