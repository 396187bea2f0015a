// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package database

import (
	"fmt"
)

// createTables creates the users table and one table per fitness record kind.
// Each record table carries a UNIQUE external-id constraint (the primary key)
// that makes re-syncing the same window an idempotent upsert.
func (db *DB) createTables() error {
	statements := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_users_id START 1`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_users_id'),
			email VARCHAR,
			first_name VARCHAR,
			last_name VARCHAR,
			whoop_user_id BIGINT UNIQUE,
			strava_athlete_id BIGINT UNIQUE,
			whoop_access_token VARCHAR,
			whoop_refresh_token VARCHAR,
			whoop_expires_at TIMESTAMP,
			strava_access_token VARCHAR,
			strava_refresh_token VARCHAR,
			strava_expires_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT current_timestamp,
			updated_at TIMESTAMP DEFAULT current_timestamp
		)`,

		`CREATE TABLE IF NOT EXISTS cycles (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			timezone_offset VARCHAR,
			score_state VARCHAR,
			strain DOUBLE,
			kilojoule DOUBLE,
			average_heart_rate INTEGER,
			max_heart_rate INTEGER,
			created_at TIMESTAMP DEFAULT current_timestamp,
			updated_at TIMESTAMP DEFAULT current_timestamp
		)`,

		`CREATE TABLE IF NOT EXISTS sleeps (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NOT NULL,
			timezone_offset VARCHAR,
			nap BOOLEAN DEFAULT false,
			score_state VARCHAR,
			performance_pct DOUBLE,
			efficiency_pct DOUBLE,
			consistency_pct DOUBLE,
			respiratory_rate DOUBLE,
			time_in_bed_milli BIGINT,
			awake_time_milli BIGINT,
			light_sleep_milli BIGINT,
			slow_wave_sleep_milli BIGINT,
			rem_sleep_milli BIGINT,
			sleep_cycle_count INTEGER,
			disturbance_count INTEGER,
			created_at TIMESTAMP DEFAULT current_timestamp,
			updated_at TIMESTAMP DEFAULT current_timestamp
		)`,

		`CREATE TABLE IF NOT EXISTS recoveries (
			cycle_id BIGINT PRIMARY KEY,
			sleep_id BIGINT,
			user_id BIGINT NOT NULL,
			score_state VARCHAR,
			user_calibrating BOOLEAN,
			recovery_score DOUBLE,
			resting_heart_rate DOUBLE,
			hrv_rmssd_milli DOUBLE,
			spo2_percentage DOUBLE,
			skin_temp_celsius DOUBLE,
			created_at TIMESTAMP DEFAULT current_timestamp,
			updated_at TIMESTAMP DEFAULT current_timestamp
		)`,

		`CREATE TABLE IF NOT EXISTS workouts (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP NOT NULL,
			timezone_offset VARCHAR,
			sport_id INTEGER,
			score_state VARCHAR,
			strain DOUBLE,
			average_heart_rate INTEGER,
			max_heart_rate INTEGER,
			kilojoule DOUBLE,
			distance_meter DOUBLE,
			altitude_gain_meter DOUBLE,
			created_at TIMESTAMP DEFAULT current_timestamp,
			updated_at TIMESTAMP DEFAULT current_timestamp
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			name VARCHAR,
			sport_type VARCHAR,
			start_date TIMESTAMP NOT NULL,
			timezone VARCHAR,
			elapsed_time_sec INTEGER,
			moving_time_sec INTEGER,
			distance_meters DOUBLE,
			total_elevation_gain DOUBLE,
			average_speed DOUBLE,
			max_speed DOUBLE,
			average_heartrate DOUBLE,
			max_heartrate DOUBLE,
			average_watts DOUBLE,
			kilojoules DOUBLE,
			created_at TIMESTAMP DEFAULT current_timestamp,
			updated_at TIMESTAMP DEFAULT current_timestamp
		)`,

		`CREATE INDEX IF NOT EXISTS idx_cycles_user_start ON cycles (user_id, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sleeps_user_end ON sleeps (user_id, ended_at)`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_user_end ON workouts (user_id, ended_at)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user_start ON activities (user_id, start_date)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}
