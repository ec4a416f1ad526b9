// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package ratings owns the durable rating table, the feedback buffer that
// accumulates new ratings between retrains, and user metadata.
//
// All mutations are serialized through a single store lock. Readers take an
// immutable View without locking; every mutation publishes a fresh View.
package ratings

import "errors"

// DefaultZipCode is recorded when a user registers without a zip code.
const DefaultZipCode = "00000"

var (
	// ErrCorrupt is returned when a persisted file cannot be parsed.
	ErrCorrupt = errors.New("ratings: corrupt data file")

	// ErrInvalidRating is returned for out-of-range or non-finite ratings.
	ErrInvalidRating = errors.New("ratings: invalid rating")
)

// Rating is one (user, item, rating) observation. Timestamp is Unix
// seconds and is zero for buffered feedback.
type Rating struct {
	UserID    int     `json:"user_id"`
	ItemID    int     `json:"item_id"`
	Value     float64 `json:"rating"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// UserMeta is the demographic side-information for a user.
type UserMeta struct {
	ID         int    `json:"user_id"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	Occupation string `json:"occupation"`
	ZipCode    string `json:"zip_code"`
}

type pairKey struct {
	user int
	item int
}

func keyOf(r Rating) pairKey { return pairKey{user: r.UserID, item: r.ItemID} }

// Occupations is the closed set of occupation categories accepted at
// registration.
var Occupations = []string{
	"administrator", "artist", "doctor", "educator", "engineer",
	"entertainment", "executive", "healthcare", "homemaker", "lawyer",
	"librarian", "marketing", "none", "other", "programmer", "retired",
	"salesman", "scientist", "student", "technician", "writer",
}

// Genders is the set of gender codes accepted at registration.
var Genders = []string{"F", "M"}
