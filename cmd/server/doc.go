// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

/*
Package main is the entry point for the cinerec recommendation server.

cinerec serves MovieLens-style movie recommendations over HTTP. It builds
user profiles from a truncated SVD of the rating matrix plus one-hot
demographics, indexes them for cosine nearest-neighbor search, and scores
unseen items from the neighbors' ratings. New users are served from
demographics alone. Feedback is buffered and merged into the rating table
once a threshold is reached, which triggers a retrain.

# Application Architecture

	cinerec (root supervisor)
	├── model-layer
	│   ├── event-bus        (Watermill GoChannel, retrain requests)
	│   └── retrain-service  (startup, event and interval training)
	└── api-layer
	    └── http-server      (chi router)

Component initialization order:

 1. Configuration: koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Rating store: base table, feedback buffer, user metadata
 4. Item catalog: titles for responses (optional)
 5. Snapshot store: BadgerDB model artifacts
 6. Engine: loads the latest snapshot if one is stored
 7. Supervisor tree: suture v4
 8. HTTP server

# Configuration

Common environment variables:

	HTTP_PORT                   listen port (default 8000)
	DATA_DIR                    directory with u1.base, u.user, u.item
	MODEL_DIR                   BadgerDB directory for snapshots
	MODEL_LATENT_DIM            SVD components K (default 50)
	MODEL_NEIGHBORS             neighbor list size M (default 50)
	FEEDBACK_RETRAIN_THRESHOLD  buffered ratings that trigger a retrain (default 100)
	FEEDBACK_ASYNC_RETRAIN      hand retraining to the background service
	LOG_LEVEL, LOG_FORMAT       logging

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in
flight requests, the event bus closes, and the stores are closed last.
*/
package main
