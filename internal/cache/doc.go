// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

/*
Package cache provides a thread-safe in-memory cache with TTL expiration.

The recommendation engine uses it to memoize ranked responses. Keys carry
the model version and the rating view sequence, so a retrain or any new
feedback makes old entries unreachable; the TTL and the background sweep
only bound memory.

# Usage

	c := cache.New[key, *Response](time.Minute)
	defer c.Close()

	c.Set(k, resp)
	if resp, ok := c.Get(k); ok {
	    return resp
	}

# Expiration

Expired entries are removed lazily on Get and by a sweep that runs every
CleanupInterval (or every TTL when that is shorter). Close stops the sweep.

# Statistics

Stats reports hits, misses, evictions and the current key count. HitRate
is hits / (hits + misses) as a percentage.
*/
package cache
