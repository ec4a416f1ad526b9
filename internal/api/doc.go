// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

/*
Package api is the HTTP surface of cinerec, routed with chi.

Routes:

	POST /api/v1/users                  register a user, returns its id
	GET  /api/v1/users                  list user metadata
	GET  /api/v1/ratings?user_id=N      merged ratings of one user
	POST /api/v1/feedback               submit a rating
	GET  /api/v1/recommend/{userID}     ranked recommendations (?top_n=)
	POST /api/v1/retrain                retrain now
	GET  /api/v1/model                  serving model and feedback status
	GET  /health/live, /health/ready    probes; ready once a model serves
	GET  /metrics                       Prometheus

	POST /users/create, POST /feedback, GET /recommend/{userID},
	POST /retrain                       compatibility routes, bare bodies

Every route runs behind request IDs, real-IP extraction, panic recovery,
CORS and Prometheus instrumentation. /api/v1 and the compatibility routes
are rate limited per client IP.

Engine errors map to status codes in one place (writeEngineError):
validation 400, no model 503, training in progress 409, everything else
500 with a generic message.
*/
package api
