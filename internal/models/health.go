// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package models

import "time"

// CheckResult is the outcome of a single health probe.
type CheckResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// SpatialCheck is the DuckDB spatial extension feature probe. It is allowed
// to fail without affecting overall health.
type SpatialCheck struct {
	OK      bool   `json:"ok"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthChecks groups the runtime probes in the health response.
type HealthChecks struct {
	UptimeMs int64        `json:"uptimeMs"`
	DB       CheckResult  `json:"db"`
	Spatial  SpatialCheck `json:"spatial"`
}

// HealthStatus is the full health endpoint payload. Env maps configuration
// value names to presence booleans — values themselves are never echoed.
type HealthStatus struct {
	OK        bool            `json:"ok"`
	Env       map[string]bool `json:"env"`
	Checks    HealthChecks    `json:"checks"`
	Timestamp time.Time       `json:"timestamp"`
}
