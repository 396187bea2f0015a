// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

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

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vitals/config.yaml",
	"/etc/vitals/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Whoop: WhoopConfig{
			APIURL:   "https://api.prod.whoop.com/developer",
			AuthURL:  "https://api.prod.whoop.com/oauth/oauth2/auth",
			TokenURL: "https://api.prod.whoop.com/oauth/oauth2/token",
			Scopes: []string{
				"offline",
				"read:profile",
				"read:cycles",
				"read:recovery",
				"read:sleep",
				"read:workout",
			},
		},
		Strava: StravaConfig{
			APIURL:   "https://www.strava.com/api/v3",
			AuthURL:  "https://www.strava.com/oauth/authorize",
			TokenURL: "https://www.strava.com/oauth/token",
			Scopes:   []string{"read", "activity:read_all", "profile:read_all"},
		},
		Chat: ChatConfig{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 512,
			Timeout:   30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/vitals.duckdb",
			MaxMemory: "512MB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Sync: SyncConfig{
			WindowDays:   2,
			UserDelay:    500 * time.Millisecond,
			RefreshDelay: 250 * time.Millisecond,
			PageSize:     25,
			MaxPages:     10,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			BaseURL:     "http://localhost:8080",
			Environment: "development",
		},
		Security: SecurityConfig{
			CronSecret:        "",
			SessionSecret:     "",
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// WHOOP_CLIENT_ID -> whoop.client_id, CRON_SECRET -> security.cron_secret
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
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

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"whoop.scopes",
	"strava.scopes",
}

// processSliceFields converts comma-separated string values to slices for known
// slice fields. Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps flat environment variable names to koanf config paths.
// Unknown environment variables are ignored so the process environment cannot
// pollute the configuration tree.
var envMappings = map[string]string{
	// WHOOP OAuth
	"whoop_client_id":     "whoop.client_id",
	"whoop_client_secret": "whoop.client_secret",
	"whoop_redirect_uri":  "whoop.redirect_uri",
	"whoop_api_url":       "whoop.api_url",
	"whoop_auth_url":      "whoop.auth_url",
	"whoop_token_url":     "whoop.token_url",
	"whoop_scopes":        "whoop.scopes",

	// Strava OAuth
	"strava_client_id":     "strava.client_id",
	"strava_client_secret": "strava.client_secret",
	"strava_redirect_uri":  "strava.redirect_uri",
	"strava_api_url":       "strava.api_url",
	"strava_auth_url":      "strava.auth_url",
	"strava_token_url":     "strava.token_url",
	"strava_scopes":        "strava.scopes",

	// Chatbot relay
	"openai_api_key":  "chat.api_key",
	"chat_base_url":   "chat.base_url",
	"chat_model":      "chat.model",
	"chat_max_tokens": "chat.max_tokens",
	"chat_timeout":    "chat.timeout",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Sync job
	"sync_window_days":   "sync.window_days",
	"sync_user_delay":    "sync.user_delay",
	"sync_refresh_delay": "sync.refresh_delay",
	"sync_page_size":     "sync.page_size",
	"sync_max_pages":     "sync.max_pages",

	// Server
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"base_url":     "server.base_url",
	"environment":  "server.environment",

	// Security
	"cron_secret":         "security.cron_secret",
	"session_secret":      "security.session_secret",
	"cors_origins":        "security.cors_origins",
	"rate_limit_reqs":     "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"rate_limit_disabled": "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Returns empty string for unmapped variables, which koanf drops.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
