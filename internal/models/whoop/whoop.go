// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package whoop defines typed payloads for the WHOOP developer API.
//
// Every upstream response is modeled as an explicit tagged struct and
// validated at the boundary — malformed payloads are rejected with a typed
// error instead of propagating unchecked shapes into storage.
package whoop

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Score states returned by WHOOP for cycles, sleeps, recoveries, and workouts.
const (
	ScoreStateScored       = "SCORED"
	ScoreStatePendingScore = "PENDING_SCORE"
	ScoreStateUnscorable   = "UNSCORABLE"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Collection is WHOOP's paginated collection envelope. NextToken is an opaque
// cursor; nil or empty means the collection is exhausted.
type Collection[T any] struct {
	Records   []T     `json:"records"`
	NextToken *string `json:"next_token"`
}

// HasNext reports whether another page should be requested.
func (c *Collection[T]) HasNext() bool {
	return c.NextToken != nil && *c.NextToken != ""
}

// Profile is the basic profile payload from /v1/user/profile/basic.
type Profile struct {
	UserID    int64  `json:"user_id" validate:"required"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate checks required fields on a decoded profile.
func (p *Profile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid whoop profile payload: %w", err)
	}
	return nil
}

// CycleScore holds the scored portion of a cycle. Present only when
// ScoreState is SCORED.
type CycleScore struct {
	Strain           float64 `json:"strain"`
	Kilojoule        float64 `json:"kilojoule"`
	AverageHeartRate int     `json:"average_heart_rate"`
	MaxHeartRate     int     `json:"max_heart_rate"`
}

// Cycle is a physiological day cycle from /v1/cycle.
type Cycle struct {
	ID             int64       `json:"id" validate:"required"`
	UserID         int64       `json:"user_id" validate:"required"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Start          time.Time   `json:"start" validate:"required"`
	End            *time.Time  `json:"end"` // nil while the cycle is ongoing
	TimezoneOffset string      `json:"timezone_offset"`
	ScoreState     string      `json:"score_state"`
	Score          *CycleScore `json:"score"`
}

// Validate checks required fields on a decoded cycle.
func (c *Cycle) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid whoop cycle payload: %w", err)
	}
	return nil
}

// RecoveryScore holds the scored portion of a recovery.
type RecoveryScore struct {
	UserCalibrating  bool     `json:"user_calibrating"`
	RecoveryScore    float64  `json:"recovery_score"`
	RestingHeartRate float64  `json:"resting_heart_rate"`
	HRVRmssdMilli    float64  `json:"hrv_rmssd_milli"`
	SpO2Percentage   *float64 `json:"spo2_percentage"`
	SkinTempCelsius  *float64 `json:"skin_temp_celsius"`
}

// Recovery is a recovery record from /v1/recovery. There is at most one
// recovery per cycle, so CycleID doubles as the external id.
type Recovery struct {
	CycleID    int64          `json:"cycle_id" validate:"required"`
	SleepID    int64          `json:"sleep_id"`
	UserID     int64          `json:"user_id" validate:"required"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ScoreState string         `json:"score_state"`
	Score      *RecoveryScore `json:"score"`
}

// Validate checks required fields on a decoded recovery.
func (r *Recovery) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid whoop recovery payload: %w", err)
	}
	return nil
}

// SleepStageSummary breaks a sleep into stage durations.
type SleepStageSummary struct {
	TotalInBedTimeMilli         int64 `json:"total_in_bed_time_milli"`
	TotalAwakeTimeMilli         int64 `json:"total_awake_time_milli"`
	TotalLightSleepTimeMilli    int64 `json:"total_light_sleep_time_milli"`
	TotalSlowWaveSleepTimeMilli int64 `json:"total_slow_wave_sleep_time_milli"`
	TotalRemSleepTimeMilli      int64 `json:"total_rem_sleep_time_milli"`
	SleepCycleCount             int   `json:"sleep_cycle_count"`
	DisturbanceCount            int   `json:"disturbance_count"`
}

// SleepScore holds the scored portion of a sleep.
type SleepScore struct {
	StageSummary               SleepStageSummary `json:"stage_summary"`
	RespiratoryRate            *float64          `json:"respiratory_rate"`
	SleepPerformancePercentage *float64          `json:"sleep_performance_percentage"`
	SleepConsistencyPercentage *float64          `json:"sleep_consistency_percentage"`
	SleepEfficiencyPercentage  *float64          `json:"sleep_efficiency_percentage"`
}

// Sleep is a sleep session from /v1/activity/sleep.
type Sleep struct {
	ID             int64       `json:"id" validate:"required"`
	UserID         int64       `json:"user_id" validate:"required"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Start          time.Time   `json:"start" validate:"required"`
	End            time.Time   `json:"end" validate:"required"`
	TimezoneOffset string      `json:"timezone_offset"`
	Nap            bool        `json:"nap"`
	ScoreState     string      `json:"score_state"`
	Score          *SleepScore `json:"score"`
}

// Validate checks required fields on a decoded sleep.
func (s *Sleep) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid whoop sleep payload: %w", err)
	}
	return nil
}

// WorkoutScore holds the scored portion of a workout.
type WorkoutScore struct {
	Strain            float64  `json:"strain"`
	AverageHeartRate  int      `json:"average_heart_rate"`
	MaxHeartRate      int      `json:"max_heart_rate"`
	Kilojoule         float64  `json:"kilojoule"`
	DistanceMeter     *float64 `json:"distance_meter"`
	AltitudeGainMeter *float64 `json:"altitude_gain_meter"`
}

// Workout is a workout session from /v1/activity/workout.
type Workout struct {
	ID             int64         `json:"id" validate:"required"`
	UserID         int64         `json:"user_id" validate:"required"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	Start          time.Time     `json:"start" validate:"required"`
	End            time.Time     `json:"end" validate:"required"`
	TimezoneOffset string        `json:"timezone_offset"`
	SportID        int           `json:"sport_id"`
	ScoreState     string        `json:"score_state"`
	Score          *WorkoutScore `json:"score"`
}

// Validate checks required fields on a decoded workout.
func (w *Workout) Validate() error {
	if err := validate.Struct(w); err != nil {
		return fmt.Errorf("invalid whoop workout payload: %w", err)
	}
	return nil
}
