// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package models defines data structures used throughout the Vitals application.
// These models represent users, provider tokens, fitness records, sync results,
// and API responses.

package models

import (
	"time"
)

// Provider identifies an external fitness platform.
type Provider string

// Supported providers.
const (
	ProviderWhoop  Provider = "whoop"
	ProviderStrava Provider = "strava"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderWhoop || p == ProviderStrava
}

// User represents a signed-in identity with at most one active token pair per
// provider. Created on first successful OAuth sign-in; the token columns are
// updated on every refresh; never hard-deleted in normal operation.
//
// An expired refresh token makes the provider's columns stale until the user
// re-authenticates — there is no explicit teardown.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Provider identities (opaque external ids).
	WhoopUserID     *int64 `json:"whoop_user_id,omitempty"`
	StravaAthleteID *int64 `json:"strava_athlete_id,omitempty"`

	// Token columns. Pointer fields are NULL until the user links the provider.
	WhoopAccessToken   *string    `json:"-"`
	WhoopRefreshToken  *string    `json:"-"`
	WhoopExpiresAt     *time.Time `json:"-"`
	StravaAccessToken  *string    `json:"-"`
	StravaRefreshToken *string    `json:"-"`
	StravaExpiresAt    *time.Time `json:"-"`
}

// DisplayName returns a human-readable name for log and report output.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Email != "":
		return u.Email
	default:
		return "user"
	}
}

// Tokens returns the stored token pair for the given provider, or nil if the
// user has never linked that provider.
func (u *User) Tokens(provider Provider) *TokenPair {
	var access, refresh *string
	var expires *time.Time

	switch provider {
	case ProviderWhoop:
		access, refresh, expires = u.WhoopAccessToken, u.WhoopRefreshToken, u.WhoopExpiresAt
	case ProviderStrava:
		access, refresh, expires = u.StravaAccessToken, u.StravaRefreshToken, u.StravaExpiresAt
	default:
		return nil
	}

	if access == nil && refresh == nil {
		return nil
	}

	pair := &TokenPair{}
	if access != nil {
		pair.AccessToken = *access
	}
	if refresh != nil {
		pair.RefreshToken = *refresh
	}
	if expires != nil {
		pair.ExpiresAt = *expires
	}
	return pair
}

// TokenPair holds an access/refresh credential pair and its expiry.
// Mutated only by the token refresh service; each store write is a single
// atomic row update (last-write-wins).
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// HasAccessToken reports whether the pair carries a usable access token.
func (t *TokenPair) HasAccessToken() bool {
	return t != nil && t.AccessToken != ""
}

// HasRefreshToken reports whether the pair can be refreshed without user
// interaction.
func (t *TokenPair) HasRefreshToken() bool {
	return t != nil && t.RefreshToken != ""
}

// NeedsRefresh reports whether the pair should be refreshed: no access token,
// or the expiry falls within the lookahead window of now.
func (t *TokenPair) NeedsRefresh(now time.Time, lookahead time.Duration) bool {
	if !t.HasAccessToken() {
		return true
	}
	return t.ExpiresAt.Before(now.Add(lookahead))
}

// Cycle is a WHOOP physiological day cycle, keyed by the provider-assigned id.
type Cycle struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	Start          time.Time  `json:"start"`
	End            *time.Time `json:"end,omitempty"` // nil while the cycle is ongoing
	TimezoneOffset string     `json:"timezone_offset,omitempty"`
	ScoreState     string     `json:"score_state"`
	Strain         *float64   `json:"strain,omitempty"`
	Kilojoule      *float64   `json:"kilojoule,omitempty"`
	AvgHeartRate   *int       `json:"average_heart_rate,omitempty"`
	MaxHeartRate   *int       `json:"max_heart_rate,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Sleep is a WHOOP sleep session.
type Sleep struct {
	ID                  int64     `json:"id"`
	UserID              int64     `json:"user_id"`
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	TimezoneOffset      string    `json:"timezone_offset,omitempty"`
	Nap                 bool      `json:"nap"`
	ScoreState          string    `json:"score_state"`
	PerformancePct      *float64  `json:"sleep_performance_percentage,omitempty"`
	EfficiencyPct       *float64  `json:"sleep_efficiency_percentage,omitempty"`
	ConsistencyPct      *float64  `json:"sleep_consistency_percentage,omitempty"`
	RespiratoryRate     *float64  `json:"respiratory_rate,omitempty"`
	TimeInBedMilli      *int64    `json:"total_in_bed_time_milli,omitempty"`
	AwakeTimeMilli      *int64    `json:"total_awake_time_milli,omitempty"`
	LightSleepMilli     *int64    `json:"total_light_sleep_time_milli,omitempty"`
	SlowWaveSleepMilli  *int64    `json:"total_slow_wave_sleep_time_milli,omitempty"`
	RemSleepMilli       *int64    `json:"total_rem_sleep_time_milli,omitempty"`
	SleepCycleCount     *int      `json:"sleep_cycle_count,omitempty"`
	DisturbanceCount    *int      `json:"disturbance_count,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Recovery is a WHOOP recovery score. Keyed by the cycle it belongs to —
// WHOOP produces at most one recovery per cycle.
type Recovery struct {
	CycleID          int64     `json:"cycle_id"`
	SleepID          int64     `json:"sleep_id"`
	UserID           int64     `json:"user_id"`
	ScoreState       string    `json:"score_state"`
	UserCalibrating  *bool     `json:"user_calibrating,omitempty"`
	RecoveryScore    *float64  `json:"recovery_score,omitempty"`
	RestingHeartRate *float64  `json:"resting_heart_rate,omitempty"`
	HRVRmssdMilli    *float64  `json:"hrv_rmssd_milli,omitempty"`
	SpO2Percentage   *float64  `json:"spo2_percentage,omitempty"`
	SkinTempCelsius  *float64  `json:"skin_temp_celsius,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Workout is a WHOOP workout session.
type Workout struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	TimezoneOffset    string    `json:"timezone_offset,omitempty"`
	SportID           int       `json:"sport_id"`
	ScoreState        string    `json:"score_state"`
	Strain            *float64  `json:"strain,omitempty"`
	AvgHeartRate      *int      `json:"average_heart_rate,omitempty"`
	MaxHeartRate      *int      `json:"max_heart_rate,omitempty"`
	Kilojoule         *float64  `json:"kilojoule,omitempty"`
	DistanceMeter     *float64  `json:"distance_meter,omitempty"`
	AltitudeGainMeter *float64  `json:"altitude_gain_meter,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Activity is a Strava activity summary.
type Activity struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	Name               string    `json:"name"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	Timezone           string    `json:"timezone,omitempty"`
	ElapsedTimeSec     int       `json:"elapsed_time"`
	MovingTimeSec      int       `json:"moving_time"`
	DistanceMeters     float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	AverageHeartrate   *float64  `json:"average_heartrate,omitempty"`
	MaxHeartrate       *float64  `json:"max_heartrate,omitempty"`
	AverageWatts       *float64  `json:"average_watts,omitempty"`
	Kilojoules         *float64  `json:"kilojoules,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
