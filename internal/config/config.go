// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package config

import "time"

// Config holds all application configuration loaded from environment variables
// and an optional YAML config file.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Secrets (provider credentials, cron secret) are intentionally NOT validated
// at startup: the site boots with partial configuration and the health endpoint
// reports which values are missing. Malformed values (bad URLs, negative
// durations) do fail Load().
//
// Thread Safety: Config is immutable after Load() and safe for concurrent
// read access from multiple goroutines.
type Config struct {
	Whoop    WhoopConfig    `koanf:"whoop"`
	Strava   StravaConfig   `koanf:"strava"`
	Chat     ChatConfig     `koanf:"chat"`
	Database DatabaseConfig `koanf:"database"`
	Sync     SyncConfig     `koanf:"sync"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// WhoopConfig holds WHOOP OAuth and API settings.
//
// Environment Variables:
//   - WHOOP_CLIENT_ID: OAuth client id from the WHOOP developer dashboard
//   - WHOOP_CLIENT_SECRET: OAuth client secret
//   - WHOOP_REDIRECT_URI: OAuth callback URL (e.g. https://example.com/api/v1/auth/whoop/callback)
//   - WHOOP_API_URL / WHOOP_AUTH_URL / WHOOP_TOKEN_URL: endpoint overrides (tests)
type WhoopConfig struct {
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	RedirectURI  string   `koanf:"redirect_uri"`
	APIURL       string   `koanf:"api_url"`
	AuthURL      string   `koanf:"auth_url"`
	TokenURL     string   `koanf:"token_url"`
	Scopes       []string `koanf:"scopes"`
}

// Configured reports whether both halves of the OAuth credential pair are set.
func (c *WhoopConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// StravaConfig holds Strava OAuth and API settings.
//
// Environment Variables:
//   - STRAVA_CLIENT_ID, STRAVA_CLIENT_SECRET, STRAVA_REDIRECT_URI
//   - STRAVA_API_URL / STRAVA_AUTH_URL / STRAVA_TOKEN_URL: endpoint overrides (tests)
type StravaConfig struct {
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	RedirectURI  string   `koanf:"redirect_uri"`
	APIURL       string   `koanf:"api_url"`
	AuthURL      string   `koanf:"auth_url"`
	TokenURL     string   `koanf:"token_url"`
	Scopes       []string `koanf:"scopes"`
}

// Configured reports whether both halves of the OAuth credential pair are set.
func (c *StravaConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// ChatConfig holds settings for the portfolio chatbot relay.
// The upstream LLM provider is treated as a black box reachable over HTTP
// with an OpenAI-compatible chat-completions contract.
type ChatConfig struct {
	APIKey    string        `koanf:"api_key"`
	BaseURL   string        `koanf:"base_url"`
	Model     string        `koanf:"model"`
	MaxTokens int           `koanf:"max_tokens"`
	Timeout   time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB configuration.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// SyncConfig holds settings for the scheduled sync job.
type SyncConfig struct {
	// WindowDays is the number of fully-elapsed days each run processes.
	// The partial current day is never fetched so half-finished daily
	// aggregates are never stored.
	WindowDays int `koanf:"window_days"`

	// UserDelay is the pause between users when processing more than one,
	// a deliberately simple upstream rate-limiting strategy.
	UserDelay time.Duration `koanf:"user_delay"`

	// RefreshDelay is the pause between token-refresh requests in RefreshAll.
	RefreshDelay time.Duration `koanf:"refresh_delay"`

	// PageSize is the per-page record count requested from providers.
	PageSize int `koanf:"page_size"`

	// MaxPages caps pagination per collection so a provider whose cursor
	// never signals completion cannot loop the job forever.
	MaxPages int `koanf:"max_pages"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	BaseURL     string        `koanf:"base_url"`
	Environment string        `koanf:"environment"`
}

// SecurityConfig holds shared secrets and request limits.
//
// Environment Variables:
//   - CRON_SECRET: pre-shared secret for the scheduled sync endpoint
//   - SESSION_SECRET: signing secret for OAuth state tokens
//   - CORS_ORIGINS: comma-separated allowed origins
type SecurityConfig struct {
	CronSecret        string        `koanf:"cron_secret"`
	SessionSecret     string        `koanf:"session_secret"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
