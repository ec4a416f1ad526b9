// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package recommend

import (
	"fmt"
	"time"
)

// Config contains engine settings.
type Config struct {
	// DefaultTopN is used when a request does not set TopN.
	DefaultTopN int `json:"default_top_n"`

	// MaxTopN caps TopN.
	MaxTopN int `json:"max_top_n"`

	// CacheTTL is how long ranked responses are memoized. 0 disables the
	// cache.
	CacheTTL time.Duration `json:"cache_ttl"`

	// RetrainThreshold is the pending feedback count that triggers a merge
	// and retrain.
	RetrainThreshold int `json:"retrain_threshold"`

	// AsyncRetrain publishes a retrain event instead of training inline.
	AsyncRetrain bool `json:"async_retrain"`

	// MinRating and MaxRating bound accepted feedback.
	MinRating float64 `json:"min_rating"`
	MaxRating float64 `json:"max_rating"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultTopN:      10,
		MaxTopN:          100,
		CacheTTL:         time.Minute,
		RetrainThreshold: 100,
		MinRating:        1,
		MaxRating:        5,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.DefaultTopN < 1 {
		return fmt.Errorf("default_top_n must be positive, got %d", c.DefaultTopN)
	}
	if c.MaxTopN < c.DefaultTopN {
		return fmt.Errorf("max_top_n (%d) must be >= default_top_n (%d)", c.MaxTopN, c.DefaultTopN)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must be non-negative, got %v", c.CacheTTL)
	}
	if c.RetrainThreshold < 1 {
		return fmt.Errorf("retrain_threshold must be positive, got %d", c.RetrainThreshold)
	}
	if c.MinRating > c.MaxRating {
		return fmt.Errorf("min_rating (%v) must be <= max_rating (%v)", c.MinRating, c.MaxRating)
	}
	return nil
}
