// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

/*
Package services provides suture.Service wrappers for cinerec components.

Each wrapper translates a component's lifecycle into suture's
context-aware Serve pattern and identifies itself via fmt.Stringer.

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - http.ErrServerClosed is not treated as a failure

Retrain (RetrainService):
  - Trains on startup when no snapshot is installed
  - Consumes retrain events from the bus, coalescing queued ones
  - Spaces event-driven retrains with an x/time/rate limiter
  - Retrains on an interval while feedback is pending
  - Guards training with a gobreaker circuit breaker

Event Bus (EventBusService):
  - Closes the Watermill pub/sub on shutdown

Usage:

	tree.AddModelService(services.NewEventBusService(bus, logger))
	tree.AddModelService(services.NewRetrainService(engine, bus, services.RetrainServiceConfig{
	    TrainOnStartup: true,
	    MinGap:         30 * time.Second,
	}, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
*/
package services
