// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

/*
Package supervisor runs cinerec's long-lived components under a suture v4
supervisor tree.

	cinerec (root)
	├── model-layer
	│   ├── events       (watermill pub/sub, closed on shutdown)
	│   └── retrain      (startup training, retrain events, interval)
	└── api-layer
	    └── http-server

A panic or error in one service restarts that service only, with suture's
failure decay and backoff. The layers isolate failures: a retrain service
crash-looping never takes the HTTP server down, so the last installed
snapshot keeps serving.

Supervisor events are logged through sutureslog with the slog adapter from
internal/logging, so they land in the same zerolog stream.
*/
package supervisor
