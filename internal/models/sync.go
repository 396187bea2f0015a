// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package models

import "time"

// RefreshFailure records a single failed token refresh during a batch run.
type RefreshFailure struct {
	UserID   int64    `json:"user_id"`
	Provider Provider `json:"provider"`
	Error    string   `json:"error"`
}

// RefreshSummary aggregates the outcome of a RefreshAll pass. A single user's
// failure never aborts the pass, so Failed and Errors can be non-zero while
// the batch still proceeds.
type RefreshSummary struct {
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Errors     []RefreshFailure `json:"errors,omitempty"`
}

// UserSyncResult holds per-user counts for one sync run. The New* counts are
// rows that did not exist before the run; re-synced rows with identical
// external ids are updated in place and not counted.
type UserSyncResult struct {
	UserID        int64    `json:"user_id"`
	Name          string   `json:"name"`
	Success       bool     `json:"success"`
	NewCycles     int      `json:"new_cycles"`
	NewSleeps     int      `json:"new_sleeps"`
	NewRecoveries int      `json:"new_recoveries"`
	NewWorkouts   int      `json:"new_workouts"`
	NewActivities int      `json:"new_activities"`
	Errors        []string `json:"errors,omitempty"`
}

// SyncReport is the aggregate summary returned by one orchestrator run.
// Not a durable entity — it is the response payload (and WebSocket broadcast)
// of a single scheduled invocation, reconstructable from logs.
type SyncReport struct {
	Timestamp       time.Time        `json:"timestamp"`
	WindowStart     time.Time        `json:"window_start"`
	WindowEnd       time.Time        `json:"window_end"`
	TotalUsers      int              `json:"total_users"`
	SuccessfulUsers int              `json:"successful_users"`
	FailedUsers     int              `json:"failed_users"`
	Users           []UserSyncResult `json:"users"`
	Errors          []string         `json:"errors,omitempty"`
	Refresh         RefreshSummary   `json:"refresh"`
	DurationMs      int64            `json:"duration_ms"`
}

// AddUserResult appends a per-user result and keeps the aggregate counters
// consistent.
func (r *SyncReport) AddUserResult(res UserSyncResult) {
	r.Users = append(r.Users, res)
	if res.Success {
		r.SuccessfulUsers++
	} else {
		r.FailedUsers++
		for _, e := range res.Errors {
			r.Errors = append(r.Errors, res.Name+": "+e)
		}
	}
}
