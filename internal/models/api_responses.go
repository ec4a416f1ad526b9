// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope of every /api/v1 response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
//
// Cached is set when the recommendation came from the response cache;
// QueryTimeMS is then near zero.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is a machine-readable error.
//
// Codes:
//   - VALIDATION_ERROR: malformed or out-of-range input (400)
//   - BAD_REQUEST: unparseable body or path parameter (400)
//   - MODEL_NOT_READY: no snapshot installed yet (503)
//   - TRAINING_IN_PROGRESS: another training run holds the lock (409)
//   - RATE_LIMIT_EXCEEDED: too many requests (429)
//   - INTERNAL_ERROR: anything else (500); the message is generic
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// LegacyError is the error body of the compatibility routes.
type LegacyError struct {
	Detail string `json:"detail"`
}
