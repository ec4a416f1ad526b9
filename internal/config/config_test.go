// Cinerec - Movie Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinerec

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Model.LatentDim != 50 {
		t.Errorf("Model.LatentDim = %d, want 50", cfg.Model.LatentDim)
	}
	if cfg.Model.Neighbors != 50 {
		t.Errorf("Model.Neighbors = %d, want 50", cfg.Model.Neighbors)
	}
	if cfg.Recommend.DefaultTopN != 10 {
		t.Errorf("Recommend.DefaultTopN = %d, want 10", cfg.Recommend.DefaultTopN)
	}
	if cfg.Feedback.RetrainThreshold != 100 {
		t.Errorf("Feedback.RetrainThreshold = %d, want 100", cfg.Feedback.RetrainThreshold)
	}
	if cfg.Data.RatingsFile != "u1.base" {
		t.Errorf("Data.RatingsFile = %q, want u1.base", cfg.Data.RatingsFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig().Validate() error = %v", err)
	}
}

func TestDataConfigPaths(t *testing.T) {
	d := DataConfig{Dir: "/data", RatingsFile: "u1.base", FeedbackFile: "feedback.csv", UsersFile: "u.user"}

	if got := d.RatingsPath(); got != filepath.Join("/data", "u1.base") {
		t.Errorf("RatingsPath() = %q", got)
	}
	if got := d.FeedbackPath(); got != filepath.Join("/data", "feedback.csv") {
		t.Errorf("FeedbackPath() = %q", got)
	}
	if got := d.ItemsPath(); got != "" {
		t.Errorf("ItemsPath() = %q, want empty when ItemsFile unset", got)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"DATA_DIR", "data.dir"},
		{"MODEL_LATENT_DIM", "model.latent_dim"},
		{"FEEDBACK_RETRAIN_THRESHOLD", "feedback.retrain_threshold"},
		{"CORS_ORIGINS", "security.cors_origins"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestLoadWithKoanf_Layers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlData := `
server:
  port: 9100
model:
  latent_dim: 20
  neighbors: 10
feedback:
  retrain_threshold: 25
`
	if err := os.WriteFile(path, []byte(yamlData), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("MODEL_NEIGHBORS", "12")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("RETRAIN_INTERVAL", "10m")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100 (file)", cfg.Server.Port)
	}
	if cfg.Model.LatentDim != 20 {
		t.Errorf("Model.LatentDim = %d, want 20 (file)", cfg.Model.LatentDim)
	}
	if cfg.Model.Neighbors != 12 {
		t.Errorf("Model.Neighbors = %d, want 12 (env over file)", cfg.Model.Neighbors)
	}
	if cfg.Feedback.RetrainThreshold != 25 {
		t.Errorf("Feedback.RetrainThreshold = %d, want 25", cfg.Feedback.RetrainThreshold)
	}
	if cfg.Retrain.Interval != 10*time.Minute {
		t.Errorf("Retrain.Interval = %v, want 10m", cfg.Retrain.Interval)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "http://b.example" {
		t.Errorf("Security.CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.Data.UsersFile != "u.user" {
		t.Errorf("Data.UsersFile = %q, want default u.user", cfg.Data.UsersFile)
	}
}

func TestLoadWithKoanf_InvalidFails(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("FEEDBACK_RETRAIN_THRESHOLD", "0")

	_, err := LoadWithKoanf()
	if err == nil {
		t.Fatal("LoadWithKoanf() error = nil, want validation error")
	}
	if !strings.Contains(err.Error(), "retrain_threshold") {
		t.Errorf("error = %v, want mention of retrain_threshold", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"disabled level", func(c *Config) { c.Logging.Level = "disabled" }, ""},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"no data dir", func(c *Config) { c.Data.Dir = "" }, "DATA_DIR"},
		{"no model dir", func(c *Config) { c.Model.Dir = "" }, "MODEL_DIR"},
		{"in-memory without dir", func(c *Config) { c.Model.Dir = ""; c.Model.InMemory = true }, ""},
		{"zero latent dim", func(c *Config) { c.Model.LatentDim = 0 }, "latent_dim"},
		{"one neighbor", func(c *Config) { c.Model.Neighbors = 1 }, "neighbors"},
		{"max below default", func(c *Config) { c.Recommend.MaxTopN = 5 }, "max_top_n"},
		{"rating range inverted", func(c *Config) { c.Feedback.MinRating = 5 }, "min_rating"},
		{"rate limit disabled skips checks", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"rate limit zero", func(c *Config) { c.Security.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
