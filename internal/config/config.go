// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

// Package config loads cinerec configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence.
package config

import (
	"path/filepath"
	"time"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Data      DataConfig      `koanf:"data"`
	Model     ModelConfig     `koanf:"model"`
	Recommend RecommendConfig `koanf:"recommend"`
	Feedback  FeedbackConfig  `koanf:"feedback"`
	Retrain   RetrainConfig   `koanf:"retrain"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger settings passed to logging.Init.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json (production) or console (development).
	Format string `koanf:"format"`

	// Caller adds file:line to entries.
	Caller bool `koanf:"caller"`
}

// DataConfig locates the rating, feedback, user and item files.
type DataConfig struct {
	Dir          string `koanf:"dir"`
	RatingsFile  string `koanf:"ratings_file"`
	FeedbackFile string `koanf:"feedback_file"`
	UsersFile    string `koanf:"users_file"`
	ItemsFile    string `koanf:"items_file"`
}

// RatingsPath returns the base rating table path.
func (d DataConfig) RatingsPath() string { return filepath.Join(d.Dir, d.RatingsFile) }

// FeedbackPath returns the feedback buffer path.
func (d DataConfig) FeedbackPath() string { return filepath.Join(d.Dir, d.FeedbackFile) }

// UsersPath returns the user metadata path.
func (d DataConfig) UsersPath() string { return filepath.Join(d.Dir, d.UsersFile) }

// ItemsPath returns the item catalog path. Empty ItemsFile disables titles.
func (d DataConfig) ItemsPath() string {
	if d.ItemsFile == "" {
		return ""
	}
	return filepath.Join(d.Dir, d.ItemsFile)
}

// ModelConfig controls training and artifact storage.
type ModelConfig struct {
	// Dir holds the Badger database with snapshot artifacts.
	Dir string `koanf:"dir"`

	// LatentDim is K, the number of SVD components.
	LatentDim int `koanf:"latent_dim"`

	// Neighbors is M, the neighbor count of the similarity index (self included).
	Neighbors int `koanf:"neighbors"`

	// Workers bounds the goroutines used to precompute neighbor lists.
	// 0 means runtime.NumCPU().
	Workers int `koanf:"workers"`

	// RetainVersions is how many persisted snapshots are kept.
	RetainVersions int `koanf:"retain_versions"`

	// TrainOnStartup trains immediately when no snapshot can be loaded.
	TrainOnStartup bool `koanf:"train_on_startup"`

	// InMemory keeps artifacts in memory only. Tests and ephemeral runs.
	InMemory bool `koanf:"in_memory"`
}

// RecommendConfig controls online scoring.
type RecommendConfig struct {
	DefaultTopN int           `koanf:"default_top_n"`
	MaxTopN     int           `koanf:"max_top_n"`
	CacheTTL    time.Duration `koanf:"cache_ttl"`
}

// FeedbackConfig controls the feedback buffer and retrain trigger.
type FeedbackConfig struct {
	RetrainThreshold int     `koanf:"retrain_threshold"`
	AsyncRetrain     bool    `koanf:"async_retrain"`
	MinRating        float64 `koanf:"min_rating"`
	MaxRating        float64 `koanf:"max_rating"`
}

// RetrainConfig controls the background retrain service.
type RetrainConfig struct {
	// Interval retrains periodically when feedback is pending. 0 disables.
	Interval time.Duration `koanf:"interval"`

	// MinGap is the minimum time between event-driven retrains.
	MinGap time.Duration `koanf:"min_gap"`

	// BreakerFailures opens the retrain circuit after this many consecutive failures.
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// SecurityConfig holds HTTP hardening settings. There is no authentication.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Load reads configuration from all layers and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
