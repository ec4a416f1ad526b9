// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

/*
Package models defines the wire types of the cinerec HTTP API.

Every /api/v1 endpoint answers with an APIResponse envelope:

	{
	  "status": "success",
	  "data": {"user_id": 1, "recommended_items": [50, 181], ...},
	  "metadata": {"timestamp": "2026-01-01T12:00:00Z", "query_time_ms": 3}
	}

Errors carry an APIError instead of data:

	{
	  "status": "error",
	  "error": {"code": "MODEL_NOT_READY", "message": "no model has been trained yet"},
	  "metadata": {"timestamp": "2026-01-01T12:00:00Z"}
	}

The root-level compatibility routes (/users/create, /feedback,
/recommend/{id}, /retrain) skip the envelope and write the Legacy*
payloads directly, with errors as {"detail": "..."}.
*/
package models
