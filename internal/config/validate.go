// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration is structurally sound. Missing
// secrets are allowed (the health endpoint reports them); malformed values
// are not.
func (c *Config) Validate() error {
	var errs []string

	if err := validateURL("whoop.api_url", c.Whoop.APIURL); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateURL("whoop.auth_url", c.Whoop.AuthURL); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateURL("whoop.token_url", c.Whoop.TokenURL); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateURL("strava.api_url", c.Strava.APIURL); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateURL("strava.auth_url", c.Strava.AuthURL); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateURL("strava.token_url", c.Strava.TokenURL); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateURL("chat.base_url", c.Chat.BaseURL); err != nil {
		errs = append(errs, err.Error())
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, "server.timeout must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path must not be empty")
	}
	if c.Database.Threads < 0 {
		errs = append(errs, fmt.Sprintf("database.threads must not be negative, got %d", c.Database.Threads))
	}

	if c.Sync.WindowDays < 1 {
		errs = append(errs, fmt.Sprintf("sync.window_days must be at least 1, got %d", c.Sync.WindowDays))
	}
	if c.Sync.UserDelay < 0 {
		errs = append(errs, "sync.user_delay must not be negative")
	}
	if c.Sync.RefreshDelay < 0 {
		errs = append(errs, "sync.refresh_delay must not be negative")
	}
	if c.Sync.PageSize < 1 {
		errs = append(errs, fmt.Sprintf("sync.page_size must be at least 1, got %d", c.Sync.PageSize))
	}
	if c.Sync.MaxPages < 1 {
		errs = append(errs, fmt.Sprintf("sync.max_pages must be at least 1, got %d", c.Sync.MaxPages))
	}

	if c.Chat.MaxTokens < 1 {
		errs = append(errs, fmt.Sprintf("chat.max_tokens must be at least 1, got %d", c.Chat.MaxTokens))
	}
	if c.Chat.Timeout <= 0 {
		errs = append(errs, "chat.timeout must be positive")
	}

	if c.Security.RateLimitReqs < 1 {
		errs = append(errs, fmt.Sprintf("security.rate_limit_reqs must be at least 1, got %d", c.Security.RateLimitReqs))
	}
	if c.Security.RateLimitWindow <= 0 {
		errs = append(errs, "security.rate_limit_window must be positive")
	}

	if err := validateOneOf("logging.level", c.Logging.Level,
		"trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled"); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateOneOf("logging.format", c.Logging.Format, "json", "console"); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateOneOf("server.environment", c.Server.Environment,
		"development", "staging", "production"); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateURL checks that a value is a well-formed absolute http(s) URL.
// Uses the validator engine for the format check, then enforces the scheme.
func validateURL(path, value string) error {
	if value == "" {
		return fmt.Errorf("%s must not be empty", path)
	}
	if err := validate.Var(value, "url"); err != nil {
		return fmt.Errorf("%s is not a valid URL: %q", path, value)
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must use http or https scheme: %q", path, value)
	}
	return nil
}

// validateOneOf checks that a value is one of the allowed options (case-insensitive).
func validateOneOf(path, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of [%s], got %q", path, strings.Join(allowed, ", "), value)
}
