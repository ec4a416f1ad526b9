// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/cinerec/internal/logging"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateLogging,
		c.validateData,
		c.validateModel,
		c.validateRecommend,
		c.validateFeedback,
		c.validateRetrain,
		c.validateSecurity,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, panic, disabled; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateData() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Data.RatingsFile == "" || c.Data.FeedbackFile == "" || c.Data.UsersFile == "" {
		return fmt.Errorf("data.ratings_file, data.feedback_file and data.users_file are required")
	}
	return nil
}

func (c *Config) validateModel() error {
	if !c.Model.InMemory && c.Model.Dir == "" {
		return fmt.Errorf("MODEL_DIR is required unless model.in_memory is set")
	}
	if c.Model.LatentDim <= 0 {
		return fmt.Errorf("model.latent_dim must be positive, got %d", c.Model.LatentDim)
	}
	if c.Model.Neighbors < 2 {
		return fmt.Errorf("model.neighbors must be at least 2, got %d", c.Model.Neighbors)
	}
	if c.Model.Workers < 0 {
		return fmt.Errorf("model.workers must be non-negative, got %d", c.Model.Workers)
	}
	if c.Model.RetainVersions < 1 {
		return fmt.Errorf("model.retain_versions must be at least 1, got %d", c.Model.RetainVersions)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.DefaultTopN <= 0 {
		return fmt.Errorf("recommend.default_top_n must be positive, got %d", c.Recommend.DefaultTopN)
	}
	if c.Recommend.MaxTopN < c.Recommend.DefaultTopN {
		return fmt.Errorf("recommend.max_top_n (%d) must be >= default_top_n (%d)",
			c.Recommend.MaxTopN, c.Recommend.DefaultTopN)
	}
	if c.Recommend.CacheTTL < 0 {
		return fmt.Errorf("recommend.cache_ttl must be non-negative, got %v", c.Recommend.CacheTTL)
	}
	return nil
}

func (c *Config) validateFeedback() error {
	if c.Feedback.RetrainThreshold <= 0 {
		return fmt.Errorf("feedback.retrain_threshold must be positive, got %d", c.Feedback.RetrainThreshold)
	}
	if c.Feedback.MinRating >= c.Feedback.MaxRating {
		return fmt.Errorf("feedback.min_rating (%g) must be below max_rating (%g)",
			c.Feedback.MinRating, c.Feedback.MaxRating)
	}
	return nil
}

func (c *Config) validateRetrain() error {
	if c.Retrain.Interval < 0 {
		return fmt.Errorf("retrain.interval must be non-negative, got %v", c.Retrain.Interval)
	}
	if c.Retrain.MinGap < 0 {
		return fmt.Errorf("retrain.min_gap must be non-negative, got %v", c.Retrain.MinGap)
	}
	if c.Retrain.BreakerFailures == 0 {
		return fmt.Errorf("retrain.breaker_failures must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
	}
	return nil
}
