// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Closer is satisfied by *events.Bus.
type Closer interface {
	Close() error
}

// EventBusService owns the event bus lifetime. The in-process pub/sub
// needs no goroutine of its own; the service exists so the bus is closed
// by the supervisor on shutdown, which ends every subscription.
type EventBusService struct {
	bus    Closer
	logger zerolog.Logger
	name   string
}

// NewEventBusService wraps bus.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEventBusService(bus Closer, logger zerolog.Logger) *EventBusService {
	return &EventBusService{
		bus:    bus,
		logger: logger.With().Str("service", "events").Logger(),
		name:   "event-bus",
	}
}

// Serve implements suture.Service. It blocks until ctx is done, then
// closes the bus.
func (e *EventBusService) Serve(ctx context.Context) error {
	e.logger.Debug().Msg("event bus running")
	<-ctx.Done()

	if err := e.bus.Close(); err != nil {
		e.logger.Error().Err(err).Msg("event bus close failed")
		return fmt.Errorf("close event bus: %w", err)
	}
	e.logger.Info().Msg("event bus closed")
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (e *EventBusService) String() string {
	return e.name
}
