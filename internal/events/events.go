// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package events carries in-process retrain requests over a Watermill
// GoChannel pub/sub. The feedback path publishes; the supervised retrain
// service consumes.
package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the current RetrainRequested schema version.
const SchemaVersion = 1

// TopicRetrain is the topic retrain requests are published on.
const TopicRetrain = "recommend.retrain"

// RetrainRequested asks the retrain service to build a new snapshot.
type RetrainRequested struct {
	SchemaVersion int       `json:"schema_version"`
	EventID       string    `json:"event_id"`
	Trigger       string    `json:"trigger"`
	Merged        int       `json:"merged"`
	RequestedAt   time.Time `json:"requested_at"`
}

// NewRetrainRequested builds an event with a fresh id.
func NewRetrainRequested(trigger string, merged int) RetrainRequested {
	return RetrainRequested{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Trigger:       trigger,
		Merged:        merged,
		RequestedAt:   time.Now().UTC(),
	}
}

// Marshal encodes e as JSON.
func (e RetrainRequested) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalRetrainRequested decodes and checks a payload.
func UnmarshalRetrainRequested(data []byte) (RetrainRequested, error) {
	var e RetrainRequested
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("decode retrain event: %w", err)
	}
	if e.EventID == "" {
		return e, fmt.Errorf("retrain event missing event_id")
	}
	if e.SchemaVersion > SchemaVersion {
		return e, fmt.Errorf("retrain event schema %d is newer than supported %d", e.SchemaVersion, SchemaVersion)
	}
	return e, nil
}
