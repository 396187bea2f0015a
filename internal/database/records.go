// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mbaxter/vitals/internal/models"
)

// The upsert helpers below all follow the same shape: run the batch in one
// transaction, check each external id for existence to count genuinely new
// rows, then INSERT ... ON CONFLICT DO UPDATE so re-synced records pick up
// content changes (e.g. PENDING_SCORE -> SCORED) without duplicating.
//
// RowsAffected cannot distinguish insert from update under DO UPDATE, hence
// the explicit existence check.

// rowExists reports whether a row with the given key exists inside tx.
func rowExists(ctx context.Context, tx *sql.Tx, query string, key int64) (bool, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx, query, key).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// UpsertCycles stores a batch of cycles and returns how many were new.
func (db *DB) UpsertCycles(ctx context.Context, cycles []models.Cycle) (int, error) {
	if len(cycles) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	newRows := 0
	for i := range cycles {
		c := &cycles[i]

		exists, err := rowExists(ctx, tx,
			"SELECT EXISTS(SELECT 1 FROM cycles WHERE id = ?)", c.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to check cycle %d: %w", c.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO cycles (id, user_id, started_at, ended_at, timezone_offset,
				score_state, strain, kilojoule, average_heart_rate, max_heart_rate,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				ended_at = excluded.ended_at,
				score_state = excluded.score_state,
				strain = excluded.strain,
				kilojoule = excluded.kilojoule,
				average_heart_rate = excluded.average_heart_rate,
				max_heart_rate = excluded.max_heart_rate,
				updated_at = excluded.updated_at`,
			c.ID, c.UserID, c.Start.UTC(), nullableTime(c.End), c.TimezoneOffset,
			c.ScoreState, c.Strain, c.Kilojoule, c.AvgHeartRate, c.MaxHeartRate,
			c.CreatedAt.UTC(), c.UpdatedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to upsert cycle %d: %w", c.ID, err)
		}

		if !exists {
			newRows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit cycle batch: %w", err)
	}
	return newRows, nil
}

// UpsertSleeps stores a batch of sleeps and returns how many were new.
func (db *DB) UpsertSleeps(ctx context.Context, sleeps []models.Sleep) (int, error) {
	if len(sleeps) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	newRows := 0
	for i := range sleeps {
		s := &sleeps[i]

		exists, err := rowExists(ctx, tx,
			"SELECT EXISTS(SELECT 1 FROM sleeps WHERE id = ?)", s.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to check sleep %d: %w", s.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sleeps (id, user_id, started_at, ended_at, timezone_offset, nap,
				score_state, performance_pct, efficiency_pct, consistency_pct,
				respiratory_rate, time_in_bed_milli, awake_time_milli,
				light_sleep_milli, slow_wave_sleep_milli, rem_sleep_milli,
				sleep_cycle_count, disturbance_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				score_state = excluded.score_state,
				performance_pct = excluded.performance_pct,
				efficiency_pct = excluded.efficiency_pct,
				consistency_pct = excluded.consistency_pct,
				respiratory_rate = excluded.respiratory_rate,
				time_in_bed_milli = excluded.time_in_bed_milli,
				awake_time_milli = excluded.awake_time_milli,
				light_sleep_milli = excluded.light_sleep_milli,
				slow_wave_sleep_milli = excluded.slow_wave_sleep_milli,
				rem_sleep_milli = excluded.rem_sleep_milli,
				sleep_cycle_count = excluded.sleep_cycle_count,
				disturbance_count = excluded.disturbance_count,
				updated_at = excluded.updated_at`,
			s.ID, s.UserID, s.Start.UTC(), s.End.UTC(), s.TimezoneOffset, s.Nap,
			s.ScoreState, s.PerformancePct, s.EfficiencyPct, s.ConsistencyPct,
			s.RespiratoryRate, s.TimeInBedMilli, s.AwakeTimeMilli,
			s.LightSleepMilli, s.SlowWaveSleepMilli, s.RemSleepMilli,
			s.SleepCycleCount, s.DisturbanceCount, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to upsert sleep %d: %w", s.ID, err)
		}

		if !exists {
			newRows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sleep batch: %w", err)
	}
	return newRows, nil
}

// UpsertRecoveries stores a batch of recoveries keyed by cycle id and returns
// how many were new.
func (db *DB) UpsertRecoveries(ctx context.Context, recoveries []models.Recovery) (int, error) {
	if len(recoveries) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	newRows := 0
	for i := range recoveries {
		r := &recoveries[i]

		exists, err := rowExists(ctx, tx,
			"SELECT EXISTS(SELECT 1 FROM recoveries WHERE cycle_id = ?)", r.CycleID)
		if err != nil {
			return 0, fmt.Errorf("failed to check recovery %d: %w", r.CycleID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO recoveries (cycle_id, sleep_id, user_id, score_state,
				user_calibrating, recovery_score, resting_heart_rate,
				hrv_rmssd_milli, spo2_percentage, skin_temp_celsius,
				created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (cycle_id) DO UPDATE SET
				score_state = excluded.score_state,
				user_calibrating = excluded.user_calibrating,
				recovery_score = excluded.recovery_score,
				resting_heart_rate = excluded.resting_heart_rate,
				hrv_rmssd_milli = excluded.hrv_rmssd_milli,
				spo2_percentage = excluded.spo2_percentage,
				skin_temp_celsius = excluded.skin_temp_celsius,
				updated_at = excluded.updated_at`,
			r.CycleID, r.SleepID, r.UserID, r.ScoreState,
			r.UserCalibrating, r.RecoveryScore, r.RestingHeartRate,
			r.HRVRmssdMilli, r.SpO2Percentage, r.SkinTempCelsius,
			r.CreatedAt.UTC(), r.UpdatedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to upsert recovery %d: %w", r.CycleID, err)
		}

		if !exists {
			newRows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit recovery batch: %w", err)
	}
	return newRows, nil
}

// UpsertWorkouts stores a batch of workouts and returns how many were new.
func (db *DB) UpsertWorkouts(ctx context.Context, workouts []models.Workout) (int, error) {
	if len(workouts) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	newRows := 0
	for i := range workouts {
		w := &workouts[i]

		exists, err := rowExists(ctx, tx,
			"SELECT EXISTS(SELECT 1 FROM workouts WHERE id = ?)", w.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to check workout %d: %w", w.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workouts (id, user_id, started_at, ended_at, timezone_offset,
				sport_id, score_state, strain, average_heart_rate, max_heart_rate,
				kilojoule, distance_meter, altitude_gain_meter, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				score_state = excluded.score_state,
				strain = excluded.strain,
				average_heart_rate = excluded.average_heart_rate,
				max_heart_rate = excluded.max_heart_rate,
				kilojoule = excluded.kilojoule,
				distance_meter = excluded.distance_meter,
				altitude_gain_meter = excluded.altitude_gain_meter,
				updated_at = excluded.updated_at`,
			w.ID, w.UserID, w.Start.UTC(), w.End.UTC(), w.TimezoneOffset,
			w.SportID, w.ScoreState, w.Strain, w.AvgHeartRate, w.MaxHeartRate,
			w.Kilojoule, w.DistanceMeter, w.AltitudeGainMeter,
			w.CreatedAt.UTC(), w.UpdatedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to upsert workout %d: %w", w.ID, err)
		}

		if !exists {
			newRows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit workout batch: %w", err)
	}
	return newRows, nil
}

// UpsertActivities stores a batch of Strava activities and returns how many
// were new.
func (db *DB) UpsertActivities(ctx context.Context, activities []models.Activity) (int, error) {
	if len(activities) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	newRows := 0
	for i := range activities {
		a := &activities[i]

		exists, err := rowExists(ctx, tx,
			"SELECT EXISTS(SELECT 1 FROM activities WHERE id = ?)", a.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to check activity %d: %w", a.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO activities (id, user_id, name, sport_type, start_date, timezone,
				elapsed_time_sec, moving_time_sec, distance_meters, total_elevation_gain,
				average_speed, max_speed, average_heartrate, max_heartrate,
				average_watts, kilojoules, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				sport_type = excluded.sport_type,
				elapsed_time_sec = excluded.elapsed_time_sec,
				moving_time_sec = excluded.moving_time_sec,
				distance_meters = excluded.distance_meters,
				total_elevation_gain = excluded.total_elevation_gain,
				average_speed = excluded.average_speed,
				max_speed = excluded.max_speed,
				average_heartrate = excluded.average_heartrate,
				max_heartrate = excluded.max_heartrate,
				average_watts = excluded.average_watts,
				kilojoules = excluded.kilojoules,
				updated_at = excluded.updated_at`,
			a.ID, a.UserID, a.Name, a.SportType, a.StartDate.UTC(), a.Timezone,
			a.ElapsedTimeSec, a.MovingTimeSec, a.DistanceMeters, a.TotalElevationGain,
			a.AverageSpeed, a.MaxSpeed, a.AverageHeartrate, a.MaxHeartrate,
			a.AverageWatts, a.Kilojoules, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("failed to upsert activity %d: %w", a.ID, err)
		}

		if !exists {
			newRows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit activity batch: %w", err)
	}
	return newRows, nil
}

// CountRecords returns the row count of one record table. Used by tests and
// diagnostics.
func (db *DB) CountRecords(ctx context.Context, table string) (int, error) {
	switch table {
	case "cycles", "sleeps", "recoveries", "workouts", "activities":
	default:
		return 0, fmt.Errorf("unknown record table %q", table)
	}

	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// nullableTime converts a *time.Time to a driver-friendly value in UTC.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
