// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package svd computes truncated singular value decompositions of the
// user × item rating matrix.
package svd

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrFactorize is returned when the decomposition does not converge.
var ErrFactorize = errors.New("svd: factorization failed")

// Result holds K-dimensional factors. When the matrix rank is below K the
// trailing components are zero, so every row always has exactly K values.
type Result struct {
	// UserFactors is rows × K, the left singular vectors scaled by the
	// singular values (U·Σ).
	UserFactors [][]float64

	// ItemFactors is cols × K, the right singular vectors (V).
	ItemFactors [][]float64

	// Singular holds the K largest singular values, descending.
	Singular []float64

	// Rank is the number of components actually computed (≤ K).
	Rank int
}

// Truncated factorizes a into k components.
//
// Signs are normalized so the largest-magnitude entry of each left singular
// vector is positive; the raw LAPACK output is otherwise sign-ambiguous and
// would make profiles differ between otherwise identical trainings.
func Truncated(a mat.Matrix, k int) (*Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("svd: k must be positive, got %d", k)
	}
	rows, cols := a.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("svd: empty matrix %dx%d", rows, cols)
	}

	var dec mat.SVD
	if ok := dec.Factorize(a, mat.SVDThin); !ok {
		return nil, ErrFactorize
	}

	var u, v mat.Dense
	dec.UTo(&u)
	dec.VTo(&v)
	values := dec.Values(nil)

	rank := min(k, len(values))

	res := &Result{
		UserFactors: make([][]float64, rows),
		ItemFactors: make([][]float64, cols),
		Singular:    make([]float64, k),
		Rank:        rank,
	}
	copy(res.Singular, values[:rank])

	signs := make([]float64, rank)
	for j := 0; j < rank; j++ {
		signs[j] = columnSign(&u, j)
	}

	for i := 0; i < rows; i++ {
		row := make([]float64, k)
		for j := 0; j < rank; j++ {
			row[j] = signs[j] * u.At(i, j) * values[j]
		}
		res.UserFactors[i] = row
	}
	for i := 0; i < cols; i++ {
		row := make([]float64, k)
		for j := 0; j < rank; j++ {
			row[j] = signs[j] * v.At(i, j)
		}
		res.ItemFactors[i] = row
	}
	return res, nil
}

// columnSign returns -1 when the largest-magnitude entry of column j is
// negative, else 1. Ties go to the lowest row.
func columnSign(m *mat.Dense, j int) float64 {
	rows, _ := m.Dims()
	best, bestAbs := 0.0, -1.0
	for i := 0; i < rows; i++ {
		x := m.At(i, j)
		if ax := math.Abs(x); ax > bestAbs {
			best, bestAbs = x, ax
		}
	}
	if best < 0 {
		return -1
	}
	return 1
}
