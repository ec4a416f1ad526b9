// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cinerec/config.yaml",
	"/etc/cinerec/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// sliceConfigPaths are accepted as comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"data_dir":      "data.dir",
	"ratings_file":  "data.ratings_file",
	"feedback_file": "data.feedback_file",
	"users_file":    "data.users_file",
	"items_file":    "data.items_file",

	"model_dir":              "model.dir",
	"model_latent_dim":       "model.latent_dim",
	"model_neighbors":        "model.neighbors",
	"model_workers":          "model.workers",
	"model_retain_versions":  "model.retain_versions",
	"model_train_on_startup": "model.train_on_startup",
	"model_in_memory":        "model.in_memory",

	"recommend_default_top_n": "recommend.default_top_n",
	"recommend_max_top_n":     "recommend.max_top_n",
	"recommend_cache_ttl":     "recommend.cache_ttl",

	"feedback_retrain_threshold": "feedback.retrain_threshold",
	"feedback_async_retrain":     "feedback.async_retrain",
	"feedback_min_rating":        "feedback.min_rating",
	"feedback_max_rating":        "feedback.max_rating",

	"retrain_interval":         "retrain.interval",
	"retrain_min_gap":          "retrain.min_gap",
	"retrain_breaker_failures": "retrain.breaker_failures",
	"retrain_breaker_timeout":  "retrain.breaker_timeout",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
}

// defaultConfig returns the lowest-precedence layer.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Data: DataConfig{
			Dir:          "./ml-100k",
			RatingsFile:  "u1.base",
			FeedbackFile: "feedback.csv",
			UsersFile:    "u.user",
			ItemsFile:    "u.item",
		},
		Model: ModelConfig{
			Dir:            "./model_data",
			LatentDim:      50,
			Neighbors:      50,
			Workers:        0,
			RetainVersions: 3,
			TrainOnStartup: true,
		},
		Recommend: RecommendConfig{
			DefaultTopN: 10,
			MaxTopN:     100,
			CacheTTL:    time.Minute,
		},
		Feedback: FeedbackConfig{
			RetrainThreshold: 100,
			AsyncRetrain:     false,
			MinRating:        1,
			MaxRating:        5,
		},
		Retrain: RetrainConfig{
			Interval:        0,
			MinGap:          30 * time.Second,
			BreakerFailures: 3,
			BreakerTimeout:  5 * time.Minute,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
	}
}

// LoadWithKoanf layers defaults, the YAML file and environment variables,
// then unmarshals and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH when it exists, else the first
// existing default path, else "".
func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// processSliceFields splits comma-separated env values into string slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
