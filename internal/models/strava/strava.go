// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package strava defines typed payloads for the Strava v3 API.
//
// Strava paginates with page numbers rather than cursors; an empty page
// signals exhaustion. Payloads are validated at the boundary.
package strava

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Athlete is the authenticated athlete payload from /athlete.
type Athlete struct {
	ID        int64     `json:"id" validate:"required"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Profile   string    `json:"profile"` // avatar URL
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks required fields on a decoded athlete.
func (a *Athlete) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid strava athlete payload: %w", err)
	}
	return nil
}

// SummaryActivity is one entry from /athlete/activities.
type SummaryActivity struct {
	ID                 int64     `json:"id" validate:"required"`
	Name               string    `json:"name"`
	Distance           float64   `json:"distance"` // meters
	MovingTime         int       `json:"moving_time"`
	ElapsedTime        int       `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date" validate:"required"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Timezone           string    `json:"timezone"`
	AverageSpeed       float64   `json:"average_speed"`
	MaxSpeed           float64   `json:"max_speed"`
	AverageHeartrate   *float64  `json:"average_heartrate"`
	MaxHeartrate       *float64  `json:"max_heartrate"`
	AverageWatts       *float64  `json:"average_watts"`
	Kilojoules         *float64  `json:"kilojoules"`
}

// Validate checks required fields on a decoded activity.
func (a *SummaryActivity) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid strava activity payload: %w", err)
	}
	return nil
}
