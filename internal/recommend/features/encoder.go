// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package features encodes user demographics into the numeric block of a
// user profile vector: a standardized age followed by one-hot gender and
// one-hot occupation.
package features

import (
	"math"
	"sort"
)

// Scaler standardizes a value to zero mean and unit variance.
type Scaler struct {
	Mean  float64
	Scale float64
}

// FitScaler fits on values using the population standard deviation.
// A constant column gets Scale 1 so Transform stays finite.
func FitScaler(values []float64) Scaler {
	if len(values) == 0 {
		return Scaler{Scale: 1}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	scale := math.Sqrt(sq / float64(len(values)))
	if scale == 0 {
		scale = 1
	}
	return Scaler{Mean: mean, Scale: scale}
}

// Transform standardizes v.
func (s Scaler) Transform(v float64) float64 {
	return (v - s.Mean) / s.Scale
}

// OneHot encodes a categorical value. Categories are sorted; a value not
// seen during fitting encodes as all zeros.
type OneHot struct {
	Categories []string
}

// FitOneHot collects the distinct values, sorted.
func FitOneHot(values []string) OneHot {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	cats := make([]string, 0, len(set))
	for v := range set {
		cats = append(cats, v)
	}
	sort.Strings(cats)
	return OneHot{Categories: cats}
}

// Len is the width of the encoding.
func (o OneHot) Len() int { return len(o.Categories) }

// Index returns the column for v, or -1 if v is unknown.
func (o OneHot) Index(v string) int {
	i := sort.SearchStrings(o.Categories, v)
	if i < len(o.Categories) && o.Categories[i] == v {
		return i
	}
	return -1
}

// TransformInto writes the encoding of v into dst[:Len()].
func (o OneHot) TransformInto(dst []float64, v string) {
	for i := range dst[:o.Len()] {
		dst[i] = 0
	}
	if i := o.Index(v); i >= 0 {
		dst[i] = 1
	}
}

// Demographics is one user's raw side-information.
type Demographics struct {
	Age        float64
	Gender     string
	Occupation string
}

// Encoder is the fitted demographic transform of a model snapshot. It is
// immutable after Fit.
type Encoder struct {
	Age        Scaler
	Gender     OneHot
	Occupation OneHot
}

// Fit fits the scaler and both encoders over rows.
func Fit(rows []Demographics) *Encoder {
	ages := make([]float64, len(rows))
	genders := make([]string, len(rows))
	occupations := make([]string, len(rows))
	for i, r := range rows {
		ages[i] = r.Age
		genders[i] = r.Gender
		occupations[i] = r.Occupation
	}
	return &Encoder{
		Age:        FitScaler(ages),
		Gender:     FitOneHot(genders),
		Occupation: FitOneHot(occupations),
	}
}

// Dim is 1 + |genders| + |occupations|.
func (e *Encoder) Dim() int {
	return 1 + e.Gender.Len() + e.Occupation.Len()
}

// EncodeInto writes the encoding of d into dst[:Dim()].
func (e *Encoder) EncodeInto(dst []float64, d Demographics) {
	dst[0] = e.Age.Transform(d.Age)
	g := dst[1 : 1+e.Gender.Len()]
	e.Gender.TransformInto(g, d.Gender)
	o := dst[1+e.Gender.Len() : e.Dim()]
	e.Occupation.TransformInto(o, d.Occupation)
}

// Encode returns a freshly allocated encoding of d.
func (e *Encoder) Encode(d Demographics) []float64 {
	out := make([]float64, e.Dim())
	e.EncodeInto(out, d)
	return out
}
